package audit

import (
	"context"
)

const (
	ActionPostedToSAP    = "POSTED_TO_SAP"
	ActionSAPPostFailed  = "SAP_POST_FAILED"
	ActionSAPQueueFailed = "SAP_QUEUE_FAILED"
)

// Entry is one append-only audit record for a posting state transition.
type Entry struct {
	UserID    string
	ExpenseID string
	Action    string
	Details   string
}

// Writer is the append-only audit sink. Implementations must never be
// consulted for reads by this subsystem.
type Writer interface {
	Write(ctx context.Context, entry Entry) error
}
