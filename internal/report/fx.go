package report

import (
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/sorteops/relatorio/internal/config"
)

// NewProvider returns the PDF renderer, or the no-op stand-in when rendering
// is switched off. Callers treat a nil reader as "nothing rendered".
func NewProvider(cfg config.Config, log *zap.Logger) Provider {
	if !cfg.PDFEnabled {
		log.Warn("pdf rendering disabled, reports will not be generated")
		return &NoOpProvider{}
	}
	return New()
}

var Module = fx.Module("report",
	fx.Provide(NewProvider),
)
