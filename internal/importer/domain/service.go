package domain

import (
	"context"
	"errors"

	"github.com/sorteops/relatorio/internal/transform"
)

var (
	ErrCodeExtraction = errors.New("code_extraction_failed")
	ErrPersistence    = errors.New("persistence_failed")
)

// Status tags the outcome of an import attempt.
type Status string

const (
	StatusImported        Status = "imported"
	StatusAlreadyImported Status = "already_imported"
	StatusFailed          Status = "failed"
)

// Outcome reports what an import attempt did. Reason is set only for
// StatusFailed.
type Outcome struct {
	Status     Status `json:"status"`
	Edition    int64  `json:"edition"`
	Code       string `json:"code,omitempty"`
	RowCount   int    `json:"row_count"`
	TotalUnits int    `json:"total_units"`
	Reason     string `json:"reason,omitempty"`
}

type ImportRequest struct {
	Edition      int64
	ArtifactName string
	Rows         []transform.SaleRow
}

type Service interface {
	Import(ctx context.Context, req ImportRequest) (Outcome, error)
}
