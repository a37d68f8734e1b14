package postgres

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/frahmantamala/expense-sap-bridge/internal"
	"github.com/frahmantamala/expense-sap-bridge/internal/core/datamodel/expense"
	"github.com/frahmantamala/expense-sap-bridge/internal/posting"
)

// ExpenseRepository implements the posting.Repository interface using GORM
type ExpenseRepository struct {
	db *gorm.DB
}

func NewExpenseRepository(db *gorm.DB) posting.Repository {
	return &ExpenseRepository{db: db}
}

func (r *ExpenseRepository) GetByID(ctx context.Context, id string) (*expense.Expense, error) {
	var exp expense.Expense
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&exp).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, internal.ErrExpenseNotFound
		}
		return nil, err
	}
	return &exp, nil
}

// MarkPosted performs the approved-to-posted transition as one conditional
// update, so two concurrent posters can never both succeed.
func (r *ExpenseRepository) MarkPosted(ctx context.Context, id, documentNumber string) (bool, error) {
	result := r.db.WithContext(ctx).Model(&expense.Expense{}).
		Where("id = ? AND status IN ?", id, []string{expense.StatusManagerApproved, expense.StatusFinanceApproved}).
		Updates(map[string]interface{}{
			"status":              expense.StatusPostedToSAP,
			"sap_document_number": documentNumber,
			"updated_at":          time.Now(),
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}
