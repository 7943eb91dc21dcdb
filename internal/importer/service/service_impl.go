package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/sorteops/relatorio/internal/clock"
	"github.com/sorteops/relatorio/internal/edition"
	"github.com/sorteops/relatorio/internal/importer/domain"
	"github.com/sorteops/relatorio/internal/transform"
	"github.com/sorteops/relatorio/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB       *gorm.DB
	Log      *zap.Logger
	GenID    *snowflake.Node
	Repo     domain.Repository
	Schedule *edition.Schedule
	Clock    clock.Clock
}

type Service struct {
	db       *gorm.DB
	log      *zap.Logger
	genID    *snowflake.Node
	repo     domain.Repository
	schedule *edition.Schedule
	clock    clock.Clock
}

func New(p Params) domain.Service {
	return &Service{
		db:       p.DB,
		log:      p.Log.Named("importer.service"),
		genID:    p.GenID,
		repo:     p.Repo,
		schedule: p.Schedule,
		clock:    p.Clock,
	}
}

// Import persists one edition exactly once: parent row first, then child
// rows ordered by purchase timestamp, in a single transaction. A repeat
// attempt is a no-op reported as AlreadyImported, never an error.
func (s *Service) Import(ctx context.Context, req domain.ImportRequest) (domain.Outcome, error) {
	code, err := domain.CodeFromArtifact(req.ArtifactName)
	if err != nil {
		return domain.Outcome{
			Status:  domain.StatusFailed,
			Edition: req.Edition,
			Reason:  err.Error(),
		}, err
	}

	outcome := domain.Outcome{
		Status:   domain.StatusImported,
		Edition:  req.Edition,
		Code:     code,
		RowCount: len(req.Rows),
	}

	txErr := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		exists, err := s.repo.ImportExists(ctx, tx, req.Edition)
		if err != nil {
			return err
		}
		if exists {
			outcome.Status = domain.StatusAlreadyImported
			outcome.RowCount = 0
			return nil
		}

		totalUnits := 0
		for _, row := range req.Rows {
			totalUnits += row.Qty
		}
		outcome.TotalUnits = totalUnits

		parent := &domain.ImportRecord{
			Edition:          req.Edition,
			TotalUnits:       totalUnits,
			ClosingTimestamp: s.closingTimestamp(code, req.Rows),
			Code:             code,
			CreatedAt:        s.clock.Now(),
		}
		if err := s.repo.InsertImport(ctx, tx, parent); err != nil {
			return err
		}

		return s.repo.InsertSales(ctx, tx, s.buildSales(code, req.Edition, req.Rows))
	})
	if txErr != nil {
		// import_records.edition is the primary key: a concurrent first run
		// that committed before us surfaces here as a duplicate key.
		if db.IsDuplicateKeyErr(txErr) {
			s.log.Info("edition already imported by concurrent run", zap.Int64("edition", req.Edition))
			outcome.Status = domain.StatusAlreadyImported
			outcome.RowCount = 0
			outcome.TotalUnits = 0
			return outcome, nil
		}
		outcome.Status = domain.StatusFailed
		outcome.Reason = txErr.Error()
		return outcome, fmt.Errorf("%w: %v", domain.ErrPersistence, txErr)
	}

	switch outcome.Status {
	case domain.StatusAlreadyImported:
		s.log.Info("edition already imported, nothing inserted", zap.Int64("edition", req.Edition))
	default:
		s.log.Info("edition imported",
			zap.Int64("edition", req.Edition),
			zap.String("code", code),
			zap.Int("rows", outcome.RowCount),
			zap.Int("total_units", outcome.TotalUnits),
		)
	}
	return outcome, nil
}

// closingTimestamp combines the latest parsed purchase date with the code's
// scheduled draw time. When no timestamp parses, today is used.
func (s *Service) closingTimestamp(code string, rows []transform.SaleRow) time.Time {
	var latest time.Time
	for _, row := range rows {
		if row.PurchaseAt != nil && row.PurchaseAt.After(latest) {
			latest = *row.PurchaseAt
		}
	}
	if latest.IsZero() {
		latest = s.clock.Now()
	}

	day := time.Date(latest.Year(), latest.Month(), latest.Day(), 0, 0, 0, 0, latest.Location())
	return day.Add(s.schedule.DrawTimeOrDefault(code))
}

func (s *Service) buildSales(code string, editionID int64, rows []transform.SaleRow) []*domain.SaleRecord {
	ordered := make([]transform.SaleRow, len(rows))
	copy(ordered, rows)
	// ascending by purchase timestamp; rows that failed to parse sort last
	sort.SliceStable(ordered, func(i, j int) bool {
		a, b := ordered[i].PurchaseAt, ordered[j].PurchaseAt
		if a == nil {
			return false
		}
		if b == nil {
			return true
		}
		return a.Before(*b)
	})

	records := make([]*domain.SaleRecord, 0, len(ordered))
	for _, row := range ordered {
		record := &domain.SaleRecord{
			ID:          s.genID.Generate(),
			Name:        row.Name,
			PhoneMasked: transform.MaskPhone(row.Phone),
			Edition:     editionID,
			Code:        code,
			Qty:         row.Qty,
			Total:       row.Total,
			UnitPrice:   unitPrice(row.Total, row.Qty),
			Approver:    row.Approver,
			PaymentHost: row.PaymentHost,
			Numbers:     row.Numbers,
		}
		if row.PurchaseAt != nil {
			ts := *row.PurchaseAt
			date := datatypes.Date(ts)
			tod := datatypes.NewTime(ts.Hour(), ts.Minute(), ts.Second(), 0)
			record.PurchaseDate = &date
			record.PurchaseTime = &tod
		}
		records = append(records, record)
	}
	return records
}

func unitPrice(total decimal.Decimal, qty int) decimal.Decimal {
	if qty == 0 {
		return decimal.Zero
	}
	return total.DivRound(decimal.NewFromInt(int64(qty)), 4)
}
