package posting

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/frahmantamala/expense-sap-bridge/internal"
	"github.com/frahmantamala/expense-sap-bridge/internal/audit"
	"github.com/frahmantamala/expense-sap-bridge/internal/core/datamodel/expense"
	"github.com/frahmantamala/expense-sap-bridge/internal/core/datamodel/user"
	"github.com/frahmantamala/expense-sap-bridge/internal/sap"
)

// Repository defines the data access methods the posting service needs.
type Repository interface {
	GetByID(ctx context.Context, id string) (*expense.Expense, error)
	// MarkPosted transitions an approved expense to POSTED_TO_SAP and
	// records the document number in a single conditional update. It
	// reports false when the expense was no longer in an approved state,
	// which closes the read-then-write race between concurrent posters.
	MarkPosted(ctx context.Context, id, documentNumber string) (bool, error)
}

type UserRepository interface {
	GetByID(ctx context.Context, id string) (*user.User, error)
}

// AdapterFactory hides the backend variant choice from the service.
type AdapterFactory interface {
	Create() sap.Adapter
	SAPType() sap.Type
}

// Service orchestrates a single synchronous posting attempt sequence:
// validate expense state, build the normalized payload, drive the adapter
// with bounded retries, persist the outcome and write the audit trail.
type Service struct {
	repo       Repository
	users      UserRepository
	auditLog   audit.Writer
	adapter    sap.Adapter
	sapType    sap.Type
	maxRetries int
	taxRate    decimal.Decimal
	logger     *slog.Logger

	sleep func(time.Duration)
}

type Option func(*Service)

// WithSleep overrides the backoff sleep between retry attempts.
func WithSleep(sleep func(time.Duration)) Option {
	return func(s *Service) { s.sleep = sleep }
}

func NewService(repo Repository, users UserRepository, auditLog audit.Writer, factory AdapterFactory, cfg internal.SAPConfig, logger *slog.Logger, opts ...Option) *Service {
	s := &Service{
		repo:       repo,
		users:      users,
		auditLog:   auditLog,
		adapter:    factory.Create(),
		sapType:    factory.SAPType(),
		maxRetries: cfg.MaxRetries,
		taxRate:    decimal.NewFromFloat(cfg.DefaultTaxRate),
		logger:     logger,
		sleep:      time.Sleep,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// PostResponse is the normalized result returned to the caller of a
// successful synchronous post.
type PostResponse struct {
	SapDocumentNumber string `json:"sap_document_number"`
	Status            string `json:"status"`
	SapType           string `json:"sap_type"`
	ExpenseID         string `json:"expense_id"`
}

// PostExpenseToSAP posts one approved expense to the configured SAP backend.
// The status check here is the authoritative at-most-once guarantee; queue
// dedup and wire idempotency keys are defense-in-depth underneath it.
func (s *Service) PostExpenseToSAP(ctx context.Context, expenseID string) (*PostResponse, error) {
	exp, err := s.repo.GetByID(ctx, expenseID)
	if err != nil {
		s.logger.Error("failed to load expense for posting", "error", err, "expense_id", expenseID)
		return nil, err
	}

	if exp.IsPosted() {
		docNumber := ""
		if exp.SapDocumentNumber != nil {
			docNumber = *exp.SapDocumentNumber
		}
		return nil, internal.NewConflictError(
			fmt.Sprintf("Expense already posted to SAP: %s", docNumber),
			internal.ErrCodeAlreadyPosted,
		)
	}

	if !exp.CanBePosted() {
		s.logger.Warn("expense not in postable state", "expense_id", expenseID, "status", exp.Status)
		return nil, internal.ErrExpenseNotApproved
	}

	usr, err := s.users.GetByID(ctx, exp.UserID)
	if err != nil {
		s.logger.Error("failed to load expense owner", "error", err, "expense_id", expenseID, "user_id", exp.UserID)
		return nil, internal.NewInternalError("failed to load expense owner", err)
	}

	payload := s.buildPayload(exp, usr)

	var lastErr error

	for attempt := 1; attempt <= s.maxRetries; attempt++ {
		s.logger.Info("SAP posting attempt", "attempt", attempt, "expense_id", expenseID)

		result, err := s.adapter.PostExpense(ctx, payload)
		if err == nil {
			return s.recordSuccess(ctx, exp, result)
		}

		lastErr = err
		s.logger.Warn("SAP posting attempt failed", "attempt", attempt, "expense_id", expenseID, "error", err)

		if attempt < s.maxRetries {
			s.sleep(time.Duration(attempt) * time.Second)
		}
	}

	if aerr := s.auditLog.Write(ctx, audit.Entry{
		UserID:    exp.UserID,
		ExpenseID: exp.ID,
		Action:    audit.ActionSAPPostFailed,
		Details:   lastErr.Error(),
	}); aerr != nil {
		s.logger.Error("failed to write audit entry", "error", aerr, "expense_id", expenseID)
	}

	return nil, internal.NewValidationError(
		fmt.Sprintf("Failed to post to SAP after %d attempts: %v", s.maxRetries, lastErr),
		internal.ErrCodeSAPPostFailed,
	)
}

func (s *Service) recordSuccess(ctx context.Context, exp *expense.Expense, result *sap.PostResult) (*PostResponse, error) {
	updated, err := s.repo.MarkPosted(ctx, exp.ID, result.DocumentNumber)
	if err != nil {
		return nil, internal.NewInternalError("failed to record SAP document number", err)
	}
	if !updated {
		// a concurrent poster won the conditional update after our
		// fast-path check; the expense carries that poster's document
		return nil, internal.NewConflictError("Expense already posted to SAP", internal.ErrCodeAlreadyPosted)
	}

	if err := s.auditLog.Write(ctx, audit.Entry{
		UserID:    exp.UserID,
		ExpenseID: exp.ID,
		Action:    audit.ActionPostedToSAP,
		Details:   fmt.Sprintf("SAP Document: %s | Type: %s", result.DocumentNumber, s.sapType),
	}); err != nil {
		s.logger.Error("failed to write audit entry", "error", err, "expense_id", exp.ID)
	}

	s.logger.Info("expense posted to SAP",
		"expense_id", exp.ID,
		"sap_document_number", result.DocumentNumber,
		"sap_type", s.sapType)

	return &PostResponse{
		SapDocumentNumber: result.DocumentNumber,
		Status:            result.Status,
		SapType:           string(s.sapType),
		ExpenseID:         exp.ID,
	}, nil
}

// buildPayload normalizes the expense into the backend-agnostic posting
// payload. The tax default is applied here so repeated attempts on the same
// expense always produce identical payloads.
func (s *Service) buildPayload(exp *expense.Expense, usr *user.User) sap.Payload {
	taxAmount := exp.Amount.Mul(s.taxRate).Round(2)
	if exp.TaxAmount != nil {
		taxAmount = *exp.TaxAmount
	}

	return sap.Payload{
		ID:          exp.ID,
		ExpenseDate: exp.ExpenseDate,
		Amount:      exp.Amount,
		TaxAmount:   taxAmount,
		Currency:    exp.Currency,
		Category:    exp.Category,
		CostCenter:  exp.CostCenter,
		ProjectCode: exp.ProjectCode,
		Description: exp.Description,
		Reference:   Reference(exp.ID),
		Employee: sap.Employee{
			SapEmployeeID: usr.SapEmployeeID,
			Name:          usr.Name,
			Department:    usr.Department,
		},
		MutatedAt: exp.UpdatedAt,
	}
}

// TestConnection probes the configured SAP backend.
func (s *Service) TestConnection(ctx context.Context) sap.ConnectionResult {
	return s.adapter.TestConnection(ctx)
}

// Reference derives the deterministic human-readable document reference
// from an expense id.
func Reference(expenseID string) string {
	short := expenseID
	if len(short) > 8 {
		short = short[:8]
	}
	return "EXP-" + strings.ToUpper(short)
}
