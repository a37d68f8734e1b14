package postgres

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/frahmantamala/expense-sap-bridge/internal"
	"github.com/frahmantamala/expense-sap-bridge/internal/core/datamodel/sapqueue"
	"github.com/frahmantamala/expense-sap-bridge/internal/queue"
)

// QueueRepository implements the queue.Repository interface using GORM
type QueueRepository struct {
	db *gorm.DB
}

func NewQueueRepository(db *gorm.DB) queue.Repository {
	return &QueueRepository{db: db}
}

func (r *QueueRepository) Create(ctx context.Context, item *sapqueue.QueueItem) error {
	return r.db.WithContext(ctx).Create(item).Error
}

func (r *QueueRepository) GetByID(ctx context.Context, id string) (*sapqueue.QueueItem, error) {
	var item sapqueue.QueueItem
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&item).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, internal.ErrQueueItemNotFound
		}
		return nil, err
	}
	return &item, nil
}

func (r *QueueRepository) DueItems(ctx context.Context, now time.Time, maxAttempts, limit int) ([]*sapqueue.QueueItem, error) {
	var items []*sapqueue.QueueItem
	err := r.db.WithContext(ctx).
		Where("status IN ?", []string{sapqueue.StatusPending, sapqueue.StatusFailed}).
		Where("attempts < ?", maxAttempts).
		Where("next_retry IS NULL OR next_retry <= ?", now).
		Order("created_at ASC"). // FIFO for fairness
		Limit(limit).
		Find(&items).Error
	return items, err
}

func (r *QueueRepository) SetProcessing(ctx context.Context, id string) error {
	return r.updates(ctx, id, map[string]interface{}{
		"status": sapqueue.StatusProcessing,
	})
}

func (r *QueueRepository) SetCompleted(ctx context.Context, id string, attempts int) error {
	return r.updates(ctx, id, map[string]interface{}{
		"status":   sapqueue.StatusCompleted,
		"attempts": attempts,
	})
}

func (r *QueueRepository) SetRetry(ctx context.Context, id string, attempts int, lastError string, nextRetry time.Time) error {
	return r.updates(ctx, id, map[string]interface{}{
		"status":     sapqueue.StatusPending,
		"attempts":   attempts,
		"last_error": lastError,
		"next_retry": nextRetry,
	})
}

func (r *QueueRepository) SetDead(ctx context.Context, id string, attempts int, lastError string) error {
	return r.updates(ctx, id, map[string]interface{}{
		"status":     sapqueue.StatusFailed,
		"attempts":   attempts,
		"last_error": lastError,
		"next_retry": nil,
	})
}

func (r *QueueRepository) Reset(ctx context.Context, id string) error {
	return r.updates(ctx, id, map[string]interface{}{
		"status":     sapqueue.StatusPending,
		"attempts":   0,
		"last_error": nil,
		"next_retry": nil,
	})
}

func (r *QueueRepository) updates(ctx context.Context, id string, fields map[string]interface{}) error {
	fields["updated_at"] = time.Now()
	return r.db.WithContext(ctx).Model(&sapqueue.QueueItem{}).
		Where("id = ?", id).
		Updates(fields).Error
}

func (r *QueueRepository) CountByStatus(ctx context.Context, status string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&sapqueue.QueueItem{}).
		Where("status = ?", status).
		Count(&count).Error
	return count, err
}

func (r *QueueRepository) RecentFailed(ctx context.Context, limit int) ([]*sapqueue.QueueItem, error) {
	var items []*sapqueue.QueueItem
	err := r.db.WithContext(ctx).
		Where("status = ?", sapqueue.StatusFailed).
		Order("updated_at DESC").
		Limit(limit).
		Find(&items).Error
	return items, err
}
