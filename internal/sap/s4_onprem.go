package sap

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/frahmantamala/expense-sap-bridge/internal"
)

const s4OnPremSystemType = "SAP S/4HANA On-Premise"

// S4OnPremAdapter posts journal entries through the standard
// API_JOURNALENTRY_POST OData service with Basic Auth.
type S4OnPremAdapter struct {
	baseURL     string
	companyCode string
	username    string
	password    string
	client      *http.Client
	logger      *slog.Logger
	now         func() time.Time
}

func NewS4OnPremAdapter(cfg internal.SAPConfig, logger *slog.Logger) *S4OnPremAdapter {
	return &S4OnPremAdapter{
		baseURL:     cfg.BaseURL,
		companyCode: cfg.CompanyCode,
		username:    cfg.Username,
		password:    cfg.Password,
		client:      &http.Client{Timeout: cfg.Timeout},
		logger:      logger,
		now:         time.Now,
	}
}

func (a *S4OnPremAdapter) PostExpense(ctx context.Context, payload Payload) (*PostResult, error) {
	body := buildJournalEntry(a.companyCode, payload, a.now())

	a.logger.Info("posting journal entry to S/4HANA on-premise", "reference", payload.Reference)

	raw, err := doJSON(ctx, a.client, http.MethodPost, a.baseURL+journalEntryPath, basicAuth(a.username, a.password), body)
	if err != nil {
		return nil, err
	}

	nums := extractDocumentNumbers(raw)
	docNumber := firstNonEmpty(
		nums.Normalized,
		nums.Nested,
		"S4OP-"+strconv.FormatInt(a.now().UnixMilli(), 10),
	)

	return &PostResult{DocumentNumber: docNumber, Status: PostStatusPosted, RawResponse: raw}, nil
}

func (a *S4OnPremAdapter) TestConnection(ctx context.Context) ConnectionResult {
	probeCtx, cancel := context.WithTimeout(ctx, connectionProbeTimeout)
	defer cancel()

	_, err := doJSON(probeCtx, a.client, http.MethodGet, a.baseURL+"/API_JOURNALENTRY_POST/$metadata", basicAuth(a.username, a.password), nil)
	if err == nil {
		return ConnectionResult{Connected: true, SystemType: s4OnPremSystemType}
	}

	if apiErr, ok := err.(*apiError); ok && apiErr.StatusCode == http.StatusUnauthorized {
		return ConnectionResult{
			Connected:  true,
			SystemType: s4OnPremSystemType,
			Error:      "Authentication failed - check SAP username/password",
		}
	}

	return ConnectionResult{Connected: false, SystemType: s4OnPremSystemType, Error: err.Error()}
}
