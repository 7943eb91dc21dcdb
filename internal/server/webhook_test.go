package server

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/sorteops/relatorio/internal/clock"
	"github.com/sorteops/relatorio/internal/config"
	"github.com/sorteops/relatorio/internal/edition"
	"github.com/sorteops/relatorio/internal/pipeline"
)

type fakeRunner struct {
	launched chan int64
}

func (r *fakeRunner) Run(ctx context.Context, editionID int64) pipeline.Result {
	r.launched <- editionID
	return pipeline.Result{Outcome: pipeline.OutcomeCompleted}
}

type testHarness struct {
	server *Server
	db     *gorm.DB
	runner *fakeRunner
}

func newTestHarness(t *testing.T, now time.Time, secret string) *testHarness {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{TranslateError: true})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&edition.Edition{}, &WebhookRequest{}))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	holder := config.NewStaticScheduleHolder(config.DefaultScheduleConfig())
	schedule := edition.NewSchedule(holder)
	clk := clock.NewFakeClock(now)
	log := zap.NewNop()

	runner := &fakeRunner{launched: make(chan int64, 1)}
	s := &Server{
		engine:       NewEngine(log),
		cfg:          config.Config{EditionMin: 5350, EditionMax: 20000, WebhookSecret: secret},
		registry:     edition.NewRegistry(db),
		schedule:     schedule,
		gate:         edition.NewGate(schedule, clk, log),
		orchestrator: runner,
		audit:        newAuditTrail(db, node, log),
		log:          log,
	}
	s.routes()
	return &testHarness{server: s, db: db, runner: runner}
}

func (h *testHarness) post(body string, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/webhook", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	h.server.engine.ServeHTTP(rec, req)
	return rec
}

func (h *testHarness) seedEdition(t *testing.T, id int64, label string, drawDate time.Time) {
	t.Helper()
	require.NoError(t, h.db.Create(&edition.Edition{
		Edition:   id,
		CodeLabel: label,
		DrawDate:  drawDate,
	}).Error)
}

func (h *testHarness) awaitLaunch(t *testing.T) int64 {
	t.Helper()
	select {
	case id := <-h.runner.launched:
		return id
	case <-time.After(2 * time.Second):
		t.Fatal("pipeline was not launched")
		return 0
	}
}

func (h *testHarness) lastAudit(t *testing.T) WebhookRequest {
	t.Helper()
	var row WebhookRequest
	require.NoError(t, h.db.Order("id DESC").First(&row).Error)
	return row
}

func TestWebhookAcceptsPastEdition(t *testing.T) {
	now := time.Date(2024, 5, 10, 8, 0, 0, 0, time.Local)
	h := newTestHarness(t, now, "")
	h.seedEdition(t, 5877, "PTV", time.Date(2024, 5, 1, 0, 0, 0, 0, time.Local))

	rec := h.post(`{"edicao": 5877, "source_app": "litoral-bot"}`, nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"success":true`)
	assert.Contains(t, rec.Body.String(), "Processamento da edição 5877 iniciado")
	assert.Equal(t, int64(5877), h.awaitLaunch(t))

	row := h.lastAudit(t)
	assert.Equal(t, "accepted", row.Status)
	assert.Equal(t, "litoral-bot", row.SourceApp)
}

func TestWebhookAdvisoryForDistantDraw(t *testing.T) {
	// 06:00 on draw day, PPT draws at 09:20: more than two hours out
	now := time.Date(2024, 5, 10, 6, 0, 0, 0, time.Local)
	h := newTestHarness(t, now, "")
	h.seedEdition(t, 6001, "PPT", now)

	rec := h.post(`{"edicao": 6001}`, nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "só ocorrerá às 09:20")
	h.awaitLaunch(t)
}

func TestWebhookRejectsOutOfRangeEdition(t *testing.T) {
	h := newTestHarness(t, time.Now(), "")

	rec := h.post(`{"edicao": 100}`, nil)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "fora do intervalo permitido")
	assert.Equal(t, "rejected", h.lastAudit(t).Status)
}

func TestWebhookRejectsUnknownEdition(t *testing.T) {
	h := newTestHarness(t, time.Now(), "")

	rec := h.post(`{"edicao": 5877}`, nil)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "não encontrada no cadastro")
}

func TestWebhookRejectsMissingEdicao(t *testing.T) {
	h := newTestHarness(t, time.Now(), "")

	rec := h.post(`{"source_app": "litoral-bot"}`, nil)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "edicao é obrigatório")
}

func TestWebhookSecretEnforced(t *testing.T) {
	now := time.Date(2024, 5, 10, 8, 0, 0, 0, time.Local)
	h := newTestHarness(t, now, "s3cret")
	h.seedEdition(t, 5877, "PTV", time.Date(2024, 5, 1, 0, 0, 0, 0, time.Local))

	rec := h.post(`{"edicao": 5877}`, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = h.post(`{"edicao": 5877}`, map[string]string{webhookSecretHeader: "wrong"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = h.post(`{"edicao": 5877}`, map[string]string{webhookSecretHeader: "s3cret"})
	assert.Equal(t, http.StatusOK, rec.Code)
	h.awaitLaunch(t)
}

func TestWebhookDefersLaterDrawWhileEarlierPending(t *testing.T) {
	// 08:00: PPT (09:20) still pending, so PT (14:20) must wait its turn
	now := time.Date(2024, 5, 10, 8, 0, 0, 0, time.Local)
	h := newTestHarness(t, now, "")
	h.seedEdition(t, 6002, "PT", now)
	h.seedEdition(t, 6003, "PPT", now)

	rec := h.post(`{"edicao": 6002}`, nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "deferred", h.lastAudit(t).Status)

	rec = h.post(`{"edicao": 6003}`, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, int64(6003), h.awaitLaunch(t))
}

func TestHealthAndMetricsEndpoints(t *testing.T) {
	h := newTestHarness(t, time.Now(), "")

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	h.server.engine.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec = httptest.NewRecorder()
	h.server.engine.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}
