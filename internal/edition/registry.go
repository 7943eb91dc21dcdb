package edition

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
)

// Edition is one scheduled draw as registered by the upstream cadastral
// system. Read-only input to a run.
type Edition struct {
	Edition   int64     `gorm:"primaryKey;column:edition" json:"edition"`
	CodeLabel string    `gorm:"column:code_label;not null" json:"code_label"`
	DrawDate  time.Time `gorm:"column:draw_date;not null" json:"draw_date"`
	CreatedAt time.Time `gorm:"column:created_at;not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}

func (Edition) TableName() string {
	return "editions"
}

// Registry reads registered editions for the event-triggered path.
type Registry struct {
	db *gorm.DB
}

func NewRegistry(db *gorm.DB) *Registry {
	return &Registry{db: db}
}

func (r *Registry) FindByID(ctx context.Context, id int64) (*Edition, error) {
	var ed Edition
	err := r.db.WithContext(ctx).
		Where("edition = ?", id).
		First(&ed).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &ed, nil
}
