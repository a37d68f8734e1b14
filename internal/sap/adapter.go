package sap

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Payload is the normalized, backend-agnostic posting request. It is built
// fresh from the expense record for every attempt and never persisted.
type Payload struct {
	ID          string
	ExpenseDate time.Time
	Amount      decimal.Decimal
	TaxAmount   decimal.Decimal
	Currency    string
	Category    string
	CostCenter  *string
	ProjectCode *string
	Description *string
	Reference   string
	Employee    Employee
	// MutatedAt is the expense's last mutation timestamp, mixed into the
	// idempotency key so a network-level retry of the same attempt is
	// deduplicated by SAP itself.
	MutatedAt time.Time
}

type Employee struct {
	SapEmployeeID *string
	Name          string
	Department    *string
}

type PostResult struct {
	DocumentNumber string          `json:"document_number"`
	Status         string          `json:"status"`
	RawResponse    json.RawMessage `json:"raw_response,omitempty"`
}

const (
	PostStatusPosted    = "Posted"
	PostStatusSimulated = "Simulated"
)

// ConnectionResult distinguishes reachable-and-authenticated from
// reachable-but-rejected from unreachable, so operators can tell a network
// failure apart from a credential failure.
type ConnectionResult struct {
	Connected  bool   `json:"connected"`
	SystemType string `json:"system_type"`
	Error      string `json:"error,omitempty"`
}

// Adapter is the capability every SAP backend variant implements. Retry
// policy lives in the posting service; adapters perform exactly one network
// call per PostExpense and propagate failures unmodified.
type Adapter interface {
	PostExpense(ctx context.Context, payload Payload) (*PostResult, error)
	TestConnection(ctx context.Context) ConnectionResult
}

var glAccountMap = map[string]string{
	"Travel":         "770001",
	"Accommodation":  "770002",
	"Meals":          "770003",
	"Transportation": "770004",
	"Office":         "770005",
	"Other":          "770099",
}

const glAccountFallback = "770099"

func glAccountFor(category string) string {
	if gl, ok := glAccountMap[category]; ok {
		return gl
	}
	return glAccountFallback
}

// IdempotencyKey derives the wire-level deduplication key from the expense
// id and its last mutation timestamp. The same derivation feeds both the
// journal-entry header and the queue's payload snapshot.
func IdempotencyKey(expenseID string, mutatedAt time.Time) string {
	sum := sha256.Sum256([]byte(expenseID + mutatedAt.UTC().Format(time.RFC3339)))
	return hex.EncodeToString(sum[:])
}

func idempotencyKey(p Payload) string {
	return IdempotencyKey(p.ID, p.MutatedAt)
}

const connectionProbeTimeout = 10 * time.Second

// metadataPath swaps the last segment of an OData entity path for $metadata.
func metadataPath(entityPath string) string {
	return path.Dir(strings.TrimRight(entityPath, "/")) + "/$metadata"
}

// ---- HTTP plumbing shared by the three adapters ----

type authorize func(*http.Request) error

func basicAuth(username, password string) authorize {
	return func(req *http.Request) error {
		req.SetBasicAuth(username, password)
		return nil
	}
}

func bearerAuth(token string) authorize {
	return func(req *http.Request) error {
		req.Header.Set("Authorization", "Bearer "+token)
		return nil
	}
}

// apiError is a non-2xx SAP response. The status code is kept so
// TestConnection can classify auth rejections.
type apiError struct {
	StatusCode int
	Body       string
}

func (e *apiError) Error() string {
	return fmt.Sprintf("sap api error %d: %s", e.StatusCode, e.Body)
}

func doJSON(ctx context.Context, client *http.Client, method, url string, auth authorize, body any) (json.RawMessage, error) {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request body: %w", err)
		}
		reader = bytes.NewBuffer(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to create HTTP request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if auth != nil {
		if err := auth(req); err != nil {
			return nil, err
		}
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &apiError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(raw))}
	}
	return raw, nil
}

// extractDocumentNumbers pulls the document number candidates out of a
// posting response. SAP variants disagree on where the number lives, so
// each adapter chains the fields in its own preference order.
type documentNumbers struct {
	Flat       string // DocumentNumber
	Nested     string // d.DocumentNumber (classic OData envelope)
	Normalized string // sapDocumentNumber (gateway-normalized responses)
}

func extractDocumentNumbers(raw json.RawMessage) documentNumbers {
	var parsed struct {
		DocumentNumber    any `json:"DocumentNumber"`
		SapDocumentNumber any `json:"sapDocumentNumber"`
		D                 struct {
			DocumentNumber any `json:"DocumentNumber"`
		} `json:"d"`
	}
	_ = json.Unmarshal(raw, &parsed)

	return documentNumbers{
		Flat:       stringify(parsed.DocumentNumber),
		Nested:     stringify(parsed.D.DocumentNumber),
		Normalized: stringify(parsed.SapDocumentNumber),
	}
}

func stringify(v any) string {
	if v == nil {
		return ""
	}
	switch t := v.(type) {
	case string:
		return t
	case float64:
		return decimal.NewFromFloat(t).String()
	default:
		return fmt.Sprint(t)
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
