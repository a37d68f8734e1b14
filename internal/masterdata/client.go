package masterdata

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/frahmantamala/expense-sap-bridge/internal"
	"github.com/frahmantamala/expense-sap-bridge/internal/core/datamodel/masterdata"
)

var odataEndpoints = map[string]string{
	masterdata.TypeCostCenter: "/sap/opu/odata/sap/API_COSTCENTER_SRV/A_CostCenter",
	masterdata.TypeGLAccount:  "/sap/opu/odata/sap/API_GLACCOUNT_SRV/A_GLAccountInChartOfAccounts",
	masterdata.TypeTaxCode:    "/sap/opu/odata/sap/API_TAXCODE_SRV/A_TaxCode",
}

// HTTPClient fetches reference data from the SAP OData catalog services
// with Basic Auth.
type HTTPClient struct {
	baseURL  string
	username string
	password string
	client   *http.Client
}

func NewHTTPClient(cfg internal.SAPConfig) *HTTPClient {
	return &HTTPClient{
		baseURL:  cfg.BaseURL,
		username: cfg.Username,
		password: cfg.Password,
		client:   &http.Client{Timeout: cfg.Timeout},
	}
}

// listEnvelope tolerates both the classic OData v2 d.results wrapper and
// the v4 value array.
type listEnvelope struct {
	D struct {
		Results []json.RawMessage `json:"results"`
	} `json:"d"`
	Value []json.RawMessage `json:"value"`
}

type recordFields struct {
	CostCenter     string `json:"CostCenter"`
	CostCenterName string `json:"CostCenterName"`
	GLAccount      string `json:"GLAccount"`
	GLAccountName  string `json:"GLAccountName"`
	TaxCode        string `json:"TaxCode"`
	TaxCodeName    string `json:"TaxCodeName"`
	Code           string `json:"code"`
	Name           string `json:"name"`
}

func (c *HTTPClient) FetchRecords(ctx context.Context, dataType string) ([]Record, error) {
	endpoint, ok := odataEndpoints[dataType]
	if !ok {
		return nil, fmt.Errorf("no SAP endpoint for master data type %q", dataType)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+endpoint+"?$format=json", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.SetBasicAuth(c.username, c.password)
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("sap api error %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var envelope listEnvelope
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	rawItems := envelope.D.Results
	if len(rawItems) == 0 {
		rawItems = envelope.Value
	}

	records := make([]Record, 0, len(rawItems))
	for _, raw := range rawItems {
		var fields recordFields
		if err := json.Unmarshal(raw, &fields); err != nil {
			continue
		}

		code := firstNonEmpty(fields.CostCenter, fields.GLAccount, fields.TaxCode, fields.Code)
		if code == "" {
			continue
		}
		name := firstNonEmpty(fields.CostCenterName, fields.GLAccountName, fields.TaxCodeName, fields.Name, code)

		records = append(records, Record{Code: code, Name: name})
	}

	return records, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
