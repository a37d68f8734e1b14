package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/frahmantamala/expense-sap-bridge/internal"
	"github.com/frahmantamala/expense-sap-bridge/internal/audit"
	"github.com/frahmantamala/expense-sap-bridge/internal/core/datamodel/expense"
	"github.com/frahmantamala/expense-sap-bridge/internal/core/datamodel/sapqueue"
	"github.com/frahmantamala/expense-sap-bridge/internal/posting"
	"github.com/frahmantamala/expense-sap-bridge/internal/sap"
)

// Poster is the synchronous posting entry point the queue delegates to.
type Poster interface {
	PostExpenseToSAP(ctx context.Context, expenseID string) (*posting.PostResponse, error)
}

type ExpenseRepository interface {
	GetByID(ctx context.Context, id string) (*expense.Expense, error)
}

// Repository defines the data access methods for queue items.
type Repository interface {
	Create(ctx context.Context, item *sapqueue.QueueItem) error
	GetByID(ctx context.Context, id string) (*sapqueue.QueueItem, error)
	// DueItems selects up to limit items eligible for processing: PENDING
	// or FAILED, below the attempt cap, with no retry time or one that has
	// passed, oldest first.
	DueItems(ctx context.Context, now time.Time, maxAttempts, limit int) ([]*sapqueue.QueueItem, error)
	SetProcessing(ctx context.Context, id string) error
	SetCompleted(ctx context.Context, id string, attempts int) error
	SetRetry(ctx context.Context, id string, attempts int, lastError string, nextRetry time.Time) error
	SetDead(ctx context.Context, id string, attempts int, lastError string) error
	Reset(ctx context.Context, id string) error
	CountByStatus(ctx context.Context, status string) (int64, error)
	RecentFailed(ctx context.Context, limit int) ([]*sapqueue.QueueItem, error)
}

// Service is the durable posting queue: enqueue decouples "request to post"
// from "actually post", the sweep drains eligible items with exponential
// backoff and dead-letters items that exhaust their attempt budget.
type Service struct {
	repo        Repository
	expenses    ExpenseRepository
	poster      Poster
	auditLog    audit.Writer
	maxAttempts int
	batchSize   int
	logger      *slog.Logger

	now      func() time.Time
	sweeping atomic.Bool
}

type Option func(*Service)

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func NewService(repo Repository, expenses ExpenseRepository, poster Poster, auditLog audit.Writer, cfg internal.QueueConfig, logger *slog.Logger, opts ...Option) *Service {
	s := &Service{
		repo:        repo,
		expenses:    expenses,
		poster:      poster,
		auditLog:    auditLog,
		maxAttempts: cfg.MaxAttempts,
		batchSize:   cfg.BatchSize,
		logger:      logger,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

type payloadSnapshot struct {
	ExpenseID      string `json:"expense_id"`
	IdempotencyKey string `json:"idempotency_key"`
}

// Enqueue inserts a new PENDING queue item for the expense. It is
// fire-and-forget: a missing expense is a silent no-op, and no dedup is
// attempted here — a duplicate item simply converges on the posting
// service's Conflict gate later.
func (s *Service) Enqueue(ctx context.Context, expenseID string) error {
	exp, err := s.expenses.GetByID(ctx, expenseID)
	if err != nil {
		s.logger.Warn("enqueue skipped, expense not found", "expense_id", expenseID, "error", err)
		return nil
	}

	snapshot, err := json.Marshal(payloadSnapshot{
		ExpenseID:      exp.ID,
		IdempotencyKey: sap.IdempotencyKey(exp.ID, exp.UpdatedAt),
	})
	if err != nil {
		return fmt.Errorf("failed to marshal payload snapshot: %w", err)
	}

	now := s.now()
	item := &sapqueue.QueueItem{
		ID:        uuid.NewString(),
		ExpenseID: expenseID,
		Payload:   string(snapshot),
		Status:    sapqueue.StatusPending,
		Attempts:  0,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.repo.Create(ctx, item); err != nil {
		s.logger.Error("failed to enqueue SAP posting", "error", err, "expense_id", expenseID)
		return err
	}

	s.logger.Info("enqueued SAP posting", "queue_id", item.ID, "expense_id", expenseID)
	return nil
}

// ProcessQueue runs one sweep over the due items. The in-flight guard makes
// overlapping sweeps a no-op when one run outlasts the tick interval.
func (s *Service) ProcessQueue(ctx context.Context) error {
	if !s.sweeping.CompareAndSwap(false, true) {
		return nil
	}
	defer s.sweeping.Store(false)

	items, err := s.repo.DueItems(ctx, s.now(), s.maxAttempts, s.batchSize)
	if err != nil {
		s.logger.Error("failed to select due queue items", "error", err)
		return err
	}

	for _, item := range items {
		s.processItem(ctx, item)
	}

	if len(items) > 0 {
		s.logger.Info("processed SAP queue items", "count", len(items))
	}
	return nil
}

func (s *Service) processItem(ctx context.Context, item *sapqueue.QueueItem) {
	// claim the item before the slow posting call so a concurrent sweep
	// cannot reselect it
	if err := s.repo.SetProcessing(ctx, item.ID); err != nil {
		s.logger.Error("failed to claim queue item", "error", err, "queue_id", item.ID)
		return
	}

	_, err := s.poster.PostExpenseToSAP(ctx, item.ExpenseID)
	if err == nil {
		if uerr := s.repo.SetCompleted(ctx, item.ID, item.Attempts+1); uerr != nil {
			s.logger.Error("failed to complete queue item", "error", uerr, "queue_id", item.ID)
		}
		return
	}

	attempts := item.Attempts + 1

	if attempts >= s.maxAttempts {
		if uerr := s.repo.SetDead(ctx, item.ID, attempts, err.Error()); uerr != nil {
			s.logger.Error("failed to dead-letter queue item", "error", uerr, "queue_id", item.ID)
			return
		}

		if exp, eerr := s.expenses.GetByID(ctx, item.ExpenseID); eerr == nil {
			if aerr := s.auditLog.Write(ctx, audit.Entry{
				UserID:    exp.UserID,
				ExpenseID: item.ExpenseID,
				Action:    audit.ActionSAPQueueFailed,
				Details:   fmt.Sprintf("Failed after %d attempts: %v", s.maxAttempts, err),
			}); aerr != nil {
				s.logger.Error("failed to write audit entry", "error", aerr, "queue_id", item.ID)
			}
		}

		s.logger.Error("SAP queue item permanently failed",
			"queue_id", item.ID,
			"expense_id", item.ExpenseID,
			"attempts", attempts)
		return
	}

	nextRetry := s.now().Add(backoff(attempts))
	if uerr := s.repo.SetRetry(ctx, item.ID, attempts, err.Error(), nextRetry); uerr != nil {
		s.logger.Error("failed to reschedule queue item", "error", uerr, "queue_id", item.ID)
		return
	}

	s.logger.Warn("SAP queue item rescheduled",
		"queue_id", item.ID,
		"expense_id", item.ExpenseID,
		"attempts", attempts,
		"next_retry", nextRetry)
}

// backoff is 5^attempts minutes: 5, 25, 125 for the default cap of 3.
func backoff(attempts int) time.Duration {
	return time.Duration(math.Pow(5, float64(attempts))) * time.Minute
}

type RetryResponse struct {
	Message string `json:"message"`
	QueueID string `json:"queue_id"`
}

// RetryItem is the administrative override that re-admits a dead-lettered
// item to the sweep cycle. It returns nil when no such item exists.
func (s *Service) RetryItem(ctx context.Context, queueID string) (*RetryResponse, error) {
	if _, err := s.repo.GetByID(ctx, queueID); err != nil {
		if appErr, ok := internal.IsAppError(err); ok && appErr.Type == internal.ErrorTypeNotFound {
			return nil, nil
		}
		return nil, err
	}

	if err := s.repo.Reset(ctx, queueID); err != nil {
		s.logger.Error("failed to reset queue item", "error", err, "queue_id", queueID)
		return nil, err
	}

	s.logger.Info("queue item reset for retry", "queue_id", queueID)
	return &RetryResponse{Message: "Item queued for retry", QueueID: queueID}, nil
}

type StatusCounts struct {
	Pending    int64 `json:"pending"`
	Processing int64 `json:"processing"`
	Completed  int64 `json:"completed"`
	Failed     int64 `json:"failed"`
}

type ExpenseSummary struct {
	ID          string          `json:"id"`
	Description *string         `json:"description,omitempty"`
	Amount      decimal.Decimal `json:"amount"`
}

type FailedItem struct {
	*sapqueue.QueueItem
	Expense *ExpenseSummary `json:"expense,omitempty"`
}

type StatusResponse struct {
	Counts      StatusCounts `json:"counts"`
	FailedItems []FailedItem `json:"failed_items"`
}

const recentFailedLimit = 20

// QueueStatus reports per-status counts and the most recent dead-lettered
// items for the admin view. It is not consulted by any business logic.
func (s *Service) QueueStatus(ctx context.Context) (*StatusResponse, error) {
	var counts StatusCounts
	var err error

	if counts.Pending, err = s.repo.CountByStatus(ctx, sapqueue.StatusPending); err != nil {
		return nil, err
	}
	if counts.Processing, err = s.repo.CountByStatus(ctx, sapqueue.StatusProcessing); err != nil {
		return nil, err
	}
	if counts.Completed, err = s.repo.CountByStatus(ctx, sapqueue.StatusCompleted); err != nil {
		return nil, err
	}
	if counts.Failed, err = s.repo.CountByStatus(ctx, sapqueue.StatusFailed); err != nil {
		return nil, err
	}

	failed, err := s.repo.RecentFailed(ctx, recentFailedLimit)
	if err != nil {
		return nil, err
	}

	items := make([]FailedItem, 0, len(failed))
	for _, item := range failed {
		fi := FailedItem{QueueItem: item}
		if exp, eerr := s.expenses.GetByID(ctx, item.ExpenseID); eerr == nil {
			fi.Expense = &ExpenseSummary{ID: exp.ID, Description: exp.Description, Amount: exp.Amount}
		}
		items = append(items, fi)
	}

	return &StatusResponse{Counts: counts, FailedItems: items}, nil
}
