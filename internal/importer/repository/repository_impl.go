package repository

import (
	"context"

	"github.com/sorteops/relatorio/internal/importer/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) ImportExists(ctx context.Context, db *gorm.DB, edition int64) (bool, error) {
	var count int64
	err := db.WithContext(ctx).
		Model(&domain.ImportRecord{}).
		Where("edition = ?", edition).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *repo) InsertImport(ctx context.Context, db *gorm.DB, record *domain.ImportRecord) error {
	return db.WithContext(ctx).Create(record).Error
}

func (r *repo) InsertSales(ctx context.Context, db *gorm.DB, records []*domain.SaleRecord) error {
	if len(records) == 0 {
		return nil
	}
	return db.WithContext(ctx).Create(records).Error
}
