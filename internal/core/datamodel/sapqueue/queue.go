package sapqueue

import "time"

const (
	StatusPending    = "PENDING"
	StatusProcessing = "PROCESSING"
	StatusCompleted  = "COMPLETED"
	StatusFailed     = "FAILED"
)

// QueueItem is one durable posting request. Items are only ever mutated by
// the queue's own processing loop; COMPLETED and FAILED rows are kept for
// inspection, never deleted.
type QueueItem struct {
	ID        string     `json:"id" gorm:"primaryKey"`
	ExpenseID string     `json:"expense_id" gorm:"column:expense_id;not null;index"`
	Payload   string     `json:"payload" gorm:"column:payload;type:jsonb"`
	Status    string     `json:"status" gorm:"column:status;default:PENDING;index"`
	Attempts  int        `json:"attempts" gorm:"column:attempts;default:0"`
	LastError *string    `json:"last_error,omitempty" gorm:"column:last_error"`
	NextRetry *time.Time `json:"next_retry,omitempty" gorm:"column:next_retry"`
	CreatedAt time.Time  `json:"created_at" gorm:"column:created_at"`
	UpdatedAt time.Time  `json:"updated_at" gorm:"column:updated_at"`
}

func (QueueItem) TableName() string {
	return "sap_posting_queue"
}
