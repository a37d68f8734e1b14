package postgres

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/frahmantamala/expense-sap-bridge/internal/audit"
	auditDatamodel "github.com/frahmantamala/expense-sap-bridge/internal/core/datamodel/audit"
)

// AuditRepository implements the audit.Writer interface using GORM
type AuditRepository struct {
	db *gorm.DB
}

func NewAuditRepository(db *gorm.DB) audit.Writer {
	return &AuditRepository{db: db}
}

func (r *AuditRepository) Write(ctx context.Context, entry audit.Entry) error {
	record := &auditDatamodel.AuditLog{
		ID:        uuid.NewString(),
		UserID:    entry.UserID,
		ExpenseID: entry.ExpenseID,
		Action:    entry.Action,
		Details:   entry.Details,
		CreatedAt: time.Now(),
	}
	return r.db.WithContext(ctx).Create(record).Error
}
