package server

import (
	"context"
	"net/http"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/sorteops/relatorio/internal/config"
	"github.com/sorteops/relatorio/internal/edition"
	"github.com/sorteops/relatorio/internal/pipeline"
	"github.com/sorteops/relatorio/pkg/telemetry"
)

// runTimeout caps one background pipeline run.
const runTimeout = 15 * time.Minute

// Runner executes one pipeline run for an accepted edition.
type Runner interface {
	Run(ctx context.Context, editionID int64) pipeline.Result
}

func NewEngine(log *zap.Logger) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(RequestLoggingMiddleware(log))
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

type Server struct {
	engine       *gin.Engine
	cfg          config.Config
	registry     *edition.Registry
	schedule     *edition.Schedule
	gate         *edition.Gate
	orchestrator Runner
	audit        *auditTrail
	metrics      *telemetry.Metrics
	log          *zap.Logger
}

type ServerParams struct {
	fx.In

	Gin          *gin.Engine
	Cfg          config.Config
	DB           *gorm.DB
	GenID        *snowflake.Node
	Registry     *edition.Registry
	Schedule     *edition.Schedule
	Gate         *edition.Gate
	Orchestrator *pipeline.Orchestrator
	Metrics      *telemetry.Metrics `optional:"true"`
	Log          *zap.Logger
}

func NewServer(p ServerParams) *Server {
	s := &Server{
		engine:       p.Gin,
		cfg:          p.Cfg,
		registry:     p.Registry,
		schedule:     p.Schedule,
		gate:         p.Gate,
		orchestrator: p.Orchestrator,
		audit:        newAuditTrail(p.DB, p.GenID, p.Log),
		metrics:      p.Metrics,
		log:          p.Log.Named("webhook.server"),
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.engine.POST("/webhook", s.handleWebhook)
}

func run(lc fx.Lifecycle, cfg config.Config, r *gin.Engine, log *zap.Logger) {
	srv := &http.Server{
		Addr:    ":" + cfg.WebhookPort,
		Handler: r,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			log.Info("webhook server listening", zap.String("addr", srv.Addr))
			go func() {
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					panic(err)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})
}

func registerGin(log *zap.Logger) *gin.Engine {
	return NewEngine(log)
}

var Module = fx.Module("http.server",
	fx.Provide(registerGin),
	fx.Invoke(NewServer),
	fx.Invoke(run),
)
