package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// ImportRecord is the parent row, at most one per edition.
type ImportRecord struct {
	Edition          int64     `gorm:"primaryKey;column:edition" json:"edition"`
	TotalUnits       int       `gorm:"column:total_units;not null" json:"total_units"`
	ClosingTimestamp time.Time `gorm:"column:closing_timestamp;not null" json:"closing_timestamp"`
	Code             string    `gorm:"column:code;not null" json:"code"`
	CreatedAt        time.Time `gorm:"column:created_at;not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}

func (ImportRecord) TableName() string {
	return "import_records"
}

// SaleRecord is one persisted sales row. It exists only under a committed
// parent and has no independent lifecycle.
type SaleRecord struct {
	ID           snowflake.ID    `gorm:"primaryKey" json:"id"`
	Name         string          `gorm:"not null" json:"name"`
	PhoneMasked  string          `gorm:"column:phone_masked;not null" json:"phone_masked"`
	Edition      int64           `gorm:"column:edition;not null;index" json:"edition"`
	Code         string          `gorm:"not null" json:"code"`
	Qty          int             `gorm:"not null" json:"qty"`
	Total        decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"total"`
	PurchaseDate *datatypes.Date `gorm:"column:purchase_date" json:"purchase_date,omitempty"`
	PurchaseTime *datatypes.Time `gorm:"column:purchase_time" json:"purchase_time,omitempty"`
	UnitPrice    decimal.Decimal `gorm:"column:unit_price;type:decimal(12,4);not null" json:"unit_price"`
	Approver     string          `gorm:"not null;default:''" json:"approver"`
	PaymentHost  string          `gorm:"column:payment_host;not null;default:''" json:"payment_host"`
	Numbers      string          `gorm:"type:text" json:"numbers"`
}

func (SaleRecord) TableName() string {
	return "sale_records"
}
