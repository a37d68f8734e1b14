package sap

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/frahmantamala/expense-sap-bridge/internal"
)

const eccSystemType = "SAP ECC On-Premise"

// ECCAdapter posts through a custom Z-service on a legacy ECC system. The
// wire body is the flat field list the Z-service expects; authentication is
// Basic Auth.
type ECCAdapter struct {
	baseURL     string
	expensePath string
	companyCode string
	username    string
	password    string
	client      *http.Client
	logger      *slog.Logger
	now         func() time.Time
}

func NewECCAdapter(cfg internal.SAPConfig, logger *slog.Logger) *ECCAdapter {
	return &ECCAdapter{
		baseURL:     cfg.BaseURL,
		expensePath: cfg.ExpensePath,
		companyCode: cfg.CompanyCode,
		username:    cfg.Username,
		password:    cfg.Password,
		client:      &http.Client{Timeout: cfg.Timeout},
		logger:      logger,
		now:         time.Now,
	}
}

type eccExpenseBody struct {
	CompanyCode  string  `json:"CompanyCode"`
	EmployeeID   string  `json:"EmployeeId"`
	EmployeeName string  `json:"EmployeeName"`
	ExpenseDate  string  `json:"ExpenseDate"`
	PostingDate  string  `json:"PostingDate"`
	DocumentType string  `json:"DocumentType"`
	Amount       float64 `json:"Amount"`
	TaxAmount    float64 `json:"TaxAmount"`
	Currency     string  `json:"Currency"`
	GlAccount    string  `json:"GlAccount"`
	CostCenter   string  `json:"CostCenter"`
	ProjectCode  string  `json:"ProjectCode"`
	Description  string  `json:"Description"`
	Reference    string  `json:"Reference"`
}

func (a *ECCAdapter) PostExpense(ctx context.Context, payload Payload) (*PostResult, error) {
	body := eccExpenseBody{
		CompanyCode:  a.companyCode,
		EmployeeID:   deref(payload.Employee.SapEmployeeID),
		EmployeeName: payload.Employee.Name,
		ExpenseDate:  payload.ExpenseDate.Format("2006-01-02"),
		PostingDate:  a.now().Format("2006-01-02"),
		DocumentType: documentTypeVendorInvoice,
		Amount:       payload.Amount.InexactFloat64(),
		TaxAmount:    payload.TaxAmount.InexactFloat64(),
		Currency:     payload.Currency,
		GlAccount:    glAccountFor(payload.Category),
		CostCenter:   deref(payload.CostCenter),
		ProjectCode:  deref(payload.ProjectCode),
		Description:  deref(payload.Description),
		Reference:    payload.Reference,
	}

	a.logger.Info("posting expense to SAP ECC", "path", a.expensePath, "reference", payload.Reference)

	raw, err := doJSON(ctx, a.client, http.MethodPost, a.baseURL+a.expensePath, basicAuth(a.username, a.password), body)
	if err != nil {
		return nil, err
	}

	nums := extractDocumentNumbers(raw)
	docNumber := firstNonEmpty(
		nums.Flat,
		nums.Nested,
		nums.Normalized,
		// forward progress on a malformed success response
		"ECC-"+strconv.FormatInt(a.now().UnixMilli(), 10),
	)

	return &PostResult{DocumentNumber: docNumber, Status: PostStatusPosted, RawResponse: raw}, nil
}

func (a *ECCAdapter) TestConnection(ctx context.Context) ConnectionResult {
	probeCtx, cancel := context.WithTimeout(ctx, connectionProbeTimeout)
	defer cancel()

	_, err := doJSON(probeCtx, a.client, http.MethodGet, a.baseURL+metadataPath(a.expensePath), basicAuth(a.username, a.password), nil)
	if err == nil {
		return ConnectionResult{Connected: true, SystemType: eccSystemType}
	}

	// 401 means we reached SAP but the credentials were rejected
	if apiErr, ok := err.(*apiError); ok && apiErr.StatusCode == http.StatusUnauthorized {
		return ConnectionResult{
			Connected:  true,
			SystemType: eccSystemType,
			Error:      "Authentication failed - check SAP username/password",
		}
	}

	return ConnectionResult{Connected: false, SystemType: eccSystemType, Error: err.Error()}
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
