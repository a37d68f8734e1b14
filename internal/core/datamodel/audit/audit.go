package audit

import "time"

// AuditLog is an append-only trail entry for SAP posting state transitions.
type AuditLog struct {
	ID        string    `json:"id" gorm:"primaryKey"`
	UserID    string    `json:"user_id" gorm:"column:user_id;not null;index"`
	ExpenseID string    `json:"expense_id" gorm:"column:expense_id;not null;index"`
	Action    string    `json:"action" gorm:"column:action;not null"`
	Details   string    `json:"details" gorm:"column:details"`
	CreatedAt time.Time `json:"created_at" gorm:"column:created_at"`
}

func (AuditLog) TableName() string {
	return "audit_logs"
}
