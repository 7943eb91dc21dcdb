package report

import (
	"context"
	"io"

	"github.com/sorteops/relatorio/internal/transform"
)

// Data carries everything a rendered sales report needs.
type Data struct {
	Title  string
	Buyers []transform.AggregatedBuyer
}

type Provider interface {
	GenerateSalesReport(ctx context.Context, data Data) (io.Reader, error)
}

// NoOpProvider stands in when PDF generation is unavailable. Rendering is
// best-effort, a run never fails over it.
type NoOpProvider struct{}

func (p *NoOpProvider) GenerateSalesReport(ctx context.Context, data Data) (io.Reader, error) {
	return nil, nil
}
