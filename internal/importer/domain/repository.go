package domain

import (
	"context"

	"gorm.io/gorm"
)

type Repository interface {
	ImportExists(ctx context.Context, db *gorm.DB, edition int64) (bool, error)
	InsertImport(ctx context.Context, db *gorm.DB, record *ImportRecord) error
	InsertSales(ctx context.Context, db *gorm.DB, records []*SaleRecord) error
}
