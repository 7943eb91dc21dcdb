package pipeline

import (
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/sorteops/relatorio/internal/browser"
	"github.com/sorteops/relatorio/internal/clock"
	"github.com/sorteops/relatorio/internal/config"
	"github.com/sorteops/relatorio/internal/download"
	"github.com/sorteops/relatorio/internal/importer/domain"
	"github.com/sorteops/relatorio/internal/report"
	"github.com/sorteops/relatorio/pkg/telemetry"
)

type Params struct {
	fx.In

	Config   config.Config
	Log      *zap.Logger
	Clock    clock.Clock
	Factory  SessionFactory
	Importer domain.Service
	Renderer report.Provider
	Metrics  *telemetry.Metrics `optional:"true"`
}

func New(p Params) *Orchestrator {
	return &Orchestrator{
		cfg:        p.Config,
		log:        p.Log.Named("pipeline"),
		clk:        p.Clock,
		factory:    p.Factory,
		importer:   p.Importer,
		renderer:   p.Renderer,
		metrics:    p.Metrics,
		watcherCfg: download.Config{},
	}
}

// NewSessionFactory builds real browser sessions against the panel.
func NewSessionFactory(cfg config.Config, log *zap.Logger) SessionFactory {
	return func() (Driver, Finder) {
		session := browser.NewSession(cfg, log)
		return session, browser.NewLocator(session, log)
	}
}

var Module = fx.Module("pipeline",
	fx.Provide(
		NewSessionFactory,
		telemetry.NewMetrics,
		New,
	),
)
