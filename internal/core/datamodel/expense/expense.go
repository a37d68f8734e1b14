package expense

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	StatusDraft           = "DRAFT"
	StatusSubmitted       = "SUBMITTED"
	StatusManagerApproved = "MANAGER_APPROVED"
	StatusFinanceApproved = "FINANCE_APPROVED"
	StatusRejected        = "REJECTED"
	StatusPostedToSAP     = "POSTED_TO_SAP"
)

// Expense is the persisted expense record. This service only reads it and
// advances approved expenses to POSTED_TO_SAP; everything else in its
// lifecycle belongs to the surrounding application.
type Expense struct {
	ID                string           `json:"id" gorm:"primaryKey"`
	UserID            string           `json:"user_id" gorm:"column:user_id;not null"`
	Amount            decimal.Decimal  `json:"amount" gorm:"column:amount;type:numeric(14,2);not null"`
	TaxAmount         *decimal.Decimal `json:"tax_amount,omitempty" gorm:"column:tax_amount;type:numeric(14,2)"`
	Currency          string           `json:"currency" gorm:"column:currency;default:TRY"`
	Category          string           `json:"category" gorm:"column:category;not null"`
	CostCenter        *string          `json:"cost_center,omitempty" gorm:"column:cost_center"`
	ProjectCode       *string          `json:"project_code,omitempty" gorm:"column:project_code"`
	Description       *string          `json:"description,omitempty" gorm:"column:description"`
	Status            string           `json:"status" gorm:"column:status;default:DRAFT"`
	SapDocumentNumber *string          `json:"sap_document_number,omitempty" gorm:"column:sap_document_number"`
	ExpenseDate       time.Time        `json:"expense_date" gorm:"column:expense_date;type:date"`
	CreatedAt         time.Time        `json:"created_at" gorm:"column:created_at"`
	UpdatedAt         time.Time        `json:"updated_at" gorm:"column:updated_at"`
}

func (Expense) TableName() string {
	return "expenses"
}

func (e *Expense) IsPosted() bool {
	return e.Status == StatusPostedToSAP
}

// CanBePosted reports whether the expense is in one of the two approved
// states that make it eligible for SAP posting.
func (e *Expense) CanBePosted() bool {
	return e.Status == StatusManagerApproved || e.Status == StatusFinanceApproved
}
