package server

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/datatypes"

	"github.com/sorteops/relatorio/internal/edition"
	"github.com/sorteops/relatorio/internal/pipeline"
)

const webhookSecretHeader = "X-Webhook-Secret"

type webhookPayload struct {
	Edicao    int64  `json:"edicao" binding:"required"`
	SourceApp string `json:"source_app"`
}

// handleWebhook validates an incoming edition event and, when accepted,
// launches the pipeline in the background. The response never waits for the
// run.
func (s *Server) handleWebhook(c *gin.Context) {
	if !s.authorized(c) {
		s.metrics.RecordWebhookDecision("unauthorized")
		AbortWithError(c, requestError(ErrUnauthorized, "segredo do webhook inválido"))
		return
	}

	var payload webhookPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		s.metrics.RecordWebhookDecision("invalid_request")
		AbortWithError(c, requestError(ErrInvalidRequest, "payload inválido: o campo edicao é obrigatório"))
		return
	}

	ctx := c.Request.Context()
	raw := datatypes.JSONMap{
		"edicao":     payload.Edicao,
		"source_app": payload.SourceApp,
	}

	if payload.Edicao < s.cfg.EditionMin || payload.Edicao > s.cfg.EditionMax {
		msg := fmt.Sprintf("Edição %d fora do intervalo permitido (%d a %d)",
			payload.Edicao, s.cfg.EditionMin, s.cfg.EditionMax)
		s.audit.record(ctx, payload.SourceApp, payload.Edicao, raw, "rejected", msg)
		s.metrics.RecordWebhookDecision("out_of_range")
		AbortWithError(c, requestError(ErrInvalidRequest, msg))
		return
	}

	ed, err := s.registry.FindByID(ctx, payload.Edicao)
	if err != nil {
		if errors.Is(err, edition.ErrNotFound) {
			msg := fmt.Sprintf("Edição %d não encontrada no cadastro", payload.Edicao)
			s.audit.record(ctx, payload.SourceApp, payload.Edicao, raw, "rejected", msg)
			s.metrics.RecordWebhookDecision("unknown_edition")
			AbortWithError(c, requestError(edition.ErrNotFound, msg))
			return
		}
		AbortWithError(c, err)
		return
	}

	code := s.schedule.ExtractCanonicalCode(ed.CodeLabel)
	if err := s.gate.PrecedenceCheck(code, ed.DrawDate); err != nil {
		s.audit.record(ctx, payload.SourceApp, payload.Edicao, raw, "deferred", err.Error())
		s.metrics.RecordWebhookDecision("schedule_violation")
		AbortWithError(c, err)
		return
	}

	decision := s.gate.MayProcess(code, ed.DrawDate)
	msg := fmt.Sprintf("Processamento da edição %d iniciado", payload.Edicao)
	if decision.Advisory != "" {
		msg += ". " + decision.Advisory
	}

	s.audit.record(ctx, payload.SourceApp, payload.Edicao, raw, "accepted", msg)
	s.metrics.RecordWebhookDecision("accepted")
	go s.launch(payload.Edicao)

	c.JSON(http.StatusOK, gin.H{"success": true, "message": msg})
}

func (s *Server) authorized(c *gin.Context) bool {
	if s.cfg.WebhookSecret == "" {
		return true
	}
	got := c.GetHeader(webhookSecretHeader)
	return subtle.ConstantTimeCompare([]byte(got), []byte(s.cfg.WebhookSecret)) == 1
}

func (s *Server) launch(editionID int64) {
	ctx, cancel := context.WithTimeout(context.Background(), runTimeout)
	defer cancel()

	res := s.orchestrator.Run(ctx, editionID)
	if res.Outcome == pipeline.OutcomeEditionNotFound {
		s.log.Warn("edition missing in panel", zap.Int64("edition", editionID))
	}
}
