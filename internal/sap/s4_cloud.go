package sap

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/frahmantamala/expense-sap-bridge/internal"
)

const s4CloudSystemType = "SAP S/4HANA Cloud (RISE)"

// S4CloudAdapter posts journal entries through the standard OData APIs of a
// RISE-hosted S/4HANA Cloud tenant, authenticating with an OAuth2
// client-credentials bearer token.
type S4CloudAdapter struct {
	baseURL     string
	companyCode string
	tokens      *TokenSource
	client      *http.Client
	logger      *slog.Logger
	now         func() time.Time
}

func NewS4CloudAdapter(cfg internal.SAPConfig, logger *slog.Logger) *S4CloudAdapter {
	return &S4CloudAdapter{
		baseURL:     cfg.BaseURL,
		companyCode: cfg.CompanyCode,
		tokens:      NewTokenSource(cfg.OAuthTokenURL, cfg.OAuthClientID, cfg.OAuthClientSecret),
		client:      &http.Client{Timeout: cfg.Timeout},
		logger:      logger,
		now:         time.Now,
	}
}

func (a *S4CloudAdapter) PostExpense(ctx context.Context, payload Payload) (*PostResult, error) {
	token, err := a.tokens.Token(ctx)
	if err != nil {
		return nil, err
	}

	body := buildJournalEntry(a.companyCode, payload, a.now())

	a.logger.Info("posting journal entry to S/4HANA cloud", "reference", payload.Reference)

	raw, err := doJSON(ctx, a.client, http.MethodPost, a.baseURL+journalEntryPath, bearerAuth(token), body)
	if err != nil {
		return nil, err
	}

	nums := extractDocumentNumbers(raw)
	docNumber := firstNonEmpty(
		nums.Normalized,
		nums.Nested,
		"S4CL-"+strconv.FormatInt(a.now().UnixMilli(), 10),
	)

	return &PostResult{DocumentNumber: docNumber, Status: PostStatusPosted, RawResponse: raw}, nil
}

func (a *S4CloudAdapter) TestConnection(ctx context.Context) ConnectionResult {
	token, err := a.tokens.Token(ctx)
	if err != nil {
		// a rejected credential exchange still means the token endpoint
		// was reachable
		if apiErr, ok := err.(*apiError); ok {
			return ConnectionResult{
				Connected:  true,
				SystemType: s4CloudSystemType,
				Error:      "OAuth authentication failed - check SAP oauth client credentials: " + apiErr.Error(),
			}
		}
		return ConnectionResult{Connected: false, SystemType: s4CloudSystemType, Error: err.Error()}
	}

	probeCtx, cancel := context.WithTimeout(ctx, connectionProbeTimeout)
	defer cancel()

	_, err = doJSON(probeCtx, a.client, http.MethodGet, a.baseURL+"/API_JOURNALENTRY_POST/$metadata", bearerAuth(token), nil)
	if err == nil {
		return ConnectionResult{Connected: true, SystemType: s4CloudSystemType}
	}

	if apiErr, ok := err.(*apiError); ok && (apiErr.StatusCode == http.StatusUnauthorized || apiErr.StatusCode == http.StatusForbidden) {
		return ConnectionResult{
			Connected:  true,
			SystemType: s4CloudSystemType,
			Error:      "OAuth authentication failed - check SAP oauth client credentials",
		}
	}

	return ConnectionResult{Connected: false, SystemType: s4CloudSystemType, Error: err.Error()}
}
