package server

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// WebhookRequest is the audit trail row for one received webhook call,
// recorded whatever the decision was.
type WebhookRequest struct {
	ID        int64             `gorm:"primaryKey;column:id"`
	SourceApp string            `gorm:"column:source_app"`
	Edition   int64             `gorm:"column:edition"`
	Payload   datatypes.JSONMap `gorm:"column:payload"`
	Status    string            `gorm:"column:status;not null"`
	Message   string            `gorm:"column:message"`
	CreatedAt time.Time         `gorm:"column:created_at"`
}

func (WebhookRequest) TableName() string {
	return "webhook_requests"
}

type auditTrail struct {
	db    *gorm.DB
	genID *snowflake.Node
	log   *zap.Logger
}

func newAuditTrail(db *gorm.DB, genID *snowflake.Node, log *zap.Logger) *auditTrail {
	return &auditTrail{
		db:    db,
		genID: genID,
		log:   log.Named("webhook.audit"),
	}
}

// record persists the audit row. Auditing never blocks a decision: failures
// are logged and swallowed.
func (a *auditTrail) record(ctx context.Context, sourceApp string, editionID int64, payload datatypes.JSONMap, status, message string) {
	row := WebhookRequest{
		ID:        a.genID.Generate().Int64(),
		SourceApp: sourceApp,
		Edition:   editionID,
		Payload:   payload,
		Status:    status,
		Message:   message,
	}
	if err := a.db.WithContext(ctx).Create(&row).Error; err != nil {
		a.log.Warn("audit write failed",
			zap.Int64("edition", editionID),
			zap.Error(err),
		)
	}
}
