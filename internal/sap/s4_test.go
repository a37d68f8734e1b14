package sap_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/frahmantamala/expense-sap-bridge/internal"
	"github.com/frahmantamala/expense-sap-bridge/internal/sap"
)

type journalRequest struct {
	Header struct {
		CompanyCode    string `json:"companyCode"`
		DocumentDate   string `json:"documentDate"`
		DocumentType   string `json:"documentType"`
		Reference      string `json:"reference"`
		HeaderText     string `json:"headerText"`
		Currency       string `json:"currency"`
		IdempotencyKey string `json:"idempotencyKey"`
	} `json:"header"`
	Items []struct {
		Type        string  `json:"type"`
		GLAccount   string  `json:"glAccount"`
		Vendor      string  `json:"vendor"`
		Amount      float64 `json:"amount"`
		DebitCredit string  `json:"debitCredit"`
		CostCenter  string  `json:"costCenter"`
		TaxCode     string  `json:"taxCode"`
	} `json:"items"`
}

var _ = Describe("S4OnPremAdapter", func() {
	var (
		server   *httptest.Server
		received *journalRequest
		reqPath  string
		status   int
		respBody string
	)

	newAdapter := func() *sap.S4OnPremAdapter {
		cfg := internal.SAPConfig{
			BaseURL:     server.URL,
			CompanyCode: "1000",
			Username:    "sapuser",
			Password:    "sappass",
			Timeout:     5 * time.Second,
		}
		return sap.NewS4OnPremAdapter(cfg, testLogger())
	}

	BeforeEach(func() {
		received = nil
		status = http.StatusCreated
		respBody = `{"sapDocumentNumber":"100000042"}`

		server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			reqPath = r.URL.Path
			if r.Method == http.MethodPost {
				received = &journalRequest{}
				_ = json.NewDecoder(r.Body).Decode(received)
			}
			w.WriteHeader(status)
			_, _ = w.Write([]byte(respBody))
		}))
	})

	AfterEach(func() {
		server.Close()
	})

	Describe("PostExpense", func() {
		It("should post a balanced three-line journal entry", func() {
			result, err := newAdapter().PostExpense(context.Background(), testPayload())

			Expect(err).ToNot(HaveOccurred())
			Expect(result.DocumentNumber).To(Equal("100000042"))
			Expect(reqPath).To(Equal("/API_JOURNALENTRY_POST/JournalEntryPost"))

			Expect(received.Header.CompanyCode).To(Equal("1000"))
			Expect(received.Header.DocumentDate).To(Equal("2025-03-10"))
			Expect(received.Header.DocumentType).To(Equal("KR"))
			Expect(received.Header.Reference).To(Equal("EXP-5F1C9A2E"))
			Expect(received.Header.HeaderText).To(Equal("Employee Travel Expense"))
			Expect(received.Header.Currency).To(Equal("TRY"))

			Expect(received.Items).To(HaveLen(3))

			gl := received.Items[0]
			Expect(gl.Type).To(Equal("GL"))
			Expect(gl.GLAccount).To(Equal("770001"))
			Expect(gl.Amount).To(Equal(100.00)) // 118.00 gross - 18.00 tax
			Expect(gl.DebitCredit).To(Equal("D"))
			Expect(gl.CostCenter).To(Equal("CC100"))
			Expect(gl.TaxCode).To(Equal("V1"))

			tax := received.Items[1]
			Expect(tax.Type).To(Equal("TAX"))
			Expect(tax.GLAccount).To(Equal("191000"))
			Expect(tax.Amount).To(Equal(18.00))
			Expect(tax.DebitCredit).To(Equal("D"))

			vendor := received.Items[2]
			Expect(vendor.Type).To(Equal("VENDOR"))
			Expect(vendor.Vendor).To(Equal("EMP001"))
			Expect(vendor.Amount).To(Equal(118.00))
			Expect(vendor.DebitCredit).To(Equal("C"))
		})

		It("should carry the idempotency key in the header", func() {
			payload := testPayload()

			_, err := newAdapter().PostExpense(context.Background(), payload)

			Expect(err).ToNot(HaveOccurred())
			Expect(received.Header.IdempotencyKey).To(Equal(sap.IdempotencyKey(payload.ID, payload.MutatedAt)))
		})

		It("should send identical bodies for repeated attempts on the same expense", func() {
			adapter := newAdapter()

			_, err := adapter.PostExpense(context.Background(), testPayload())
			Expect(err).ToNot(HaveOccurred())
			firstKey := received.Header.IdempotencyKey

			_, err = adapter.PostExpense(context.Background(), testPayload())
			Expect(err).ToNot(HaveOccurred())

			Expect(received.Header.IdempotencyKey).To(Equal(firstKey))
		})

		It("should prefer the nested document number when no normalized one exists", func() {
			respBody = `{"d":{"DocumentNumber":100000043}}`

			result, err := newAdapter().PostExpense(context.Background(), testPayload())

			Expect(err).ToNot(HaveOccurred())
			Expect(result.DocumentNumber).To(Equal("100000043"))
		})

		It("should synthesize a placeholder number when the response has none", func() {
			respBody = `{}`

			result, err := newAdapter().PostExpense(context.Background(), testPayload())

			Expect(err).ToNot(HaveOccurred())
			Expect(result.DocumentNumber).To(HavePrefix("S4OP-"))
		})
	})

	Describe("TestConnection", func() {
		It("should classify a 401 metadata probe as an auth failure", func() {
			status = http.StatusUnauthorized

			result := newAdapter().TestConnection(context.Background())

			Expect(result.Connected).To(BeTrue())
			Expect(result.SystemType).To(Equal("SAP S/4HANA On-Premise"))
			Expect(result.Error).To(ContainSubstring("Authentication failed"))
		})
	})
})

var _ = Describe("S4CloudAdapter", func() {
	var (
		apiServer   *httptest.Server
		tokenServer *httptest.Server
		tokenCalls  int
		tokenStatus int
		expiresIn   int64
		seenBearer  string
		respBody    string
	)

	newAdapter := func() *sap.S4CloudAdapter {
		cfg := internal.SAPConfig{
			BaseURL:           apiServer.URL,
			CompanyCode:       "1000",
			OAuthTokenURL:     tokenServer.URL + "/oauth/token",
			OAuthClientID:     "client-id",
			OAuthClientSecret: "client-secret",
			Timeout:           5 * time.Second,
		}
		return sap.NewS4CloudAdapter(cfg, testLogger())
	}

	BeforeEach(func() {
		tokenCalls = 0
		tokenStatus = http.StatusOK
		expiresIn = 3600
		respBody = `{"sapDocumentNumber":"100000050"}`

		tokenServer = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenCalls++
			Expect(r.ParseForm()).To(Succeed())
			Expect(r.PostForm.Get("grant_type")).To(Equal("client_credentials"))
			Expect(r.PostForm.Get("client_id")).To(Equal("client-id"))

			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(tokenStatus)
			_ = json.NewEncoder(w).Encode(map[string]any{
				"access_token": "test-token",
				"expires_in":   expiresIn,
			})
		}))

		apiServer = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			seenBearer = r.Header.Get("Authorization")
			w.WriteHeader(http.StatusCreated)
			_, _ = w.Write([]byte(respBody))
		}))
	})

	AfterEach(func() {
		apiServer.Close()
		tokenServer.Close()
	})

	Describe("PostExpense", func() {
		It("should authenticate with a bearer token", func() {
			result, err := newAdapter().PostExpense(context.Background(), testPayload())

			Expect(err).ToNot(HaveOccurred())
			Expect(result.DocumentNumber).To(Equal("100000050"))
			Expect(seenBearer).To(Equal("Bearer test-token"))
		})

		It("should reuse the cached token across posts", func() {
			adapter := newAdapter()

			_, err := adapter.PostExpense(context.Background(), testPayload())
			Expect(err).ToNot(HaveOccurred())
			_, err = adapter.PostExpense(context.Background(), testPayload())
			Expect(err).ToNot(HaveOccurred())

			Expect(tokenCalls).To(Equal(1))
		})

		It("should refresh a token that is about to expire", func() {
			// within the 60s safety margin, so every call refreshes
			expiresIn = 30
			adapter := newAdapter()

			_, err := adapter.PostExpense(context.Background(), testPayload())
			Expect(err).ToNot(HaveOccurred())
			_, err = adapter.PostExpense(context.Background(), testPayload())
			Expect(err).ToNot(HaveOccurred())

			Expect(tokenCalls).To(Equal(2))
		})

		It("should synthesize a placeholder number when the response has none", func() {
			respBody = `{}`

			result, err := newAdapter().PostExpense(context.Background(), testPayload())

			Expect(err).ToNot(HaveOccurred())
			Expect(result.DocumentNumber).To(HavePrefix("S4CL-"))
		})

		It("should fail without posting when the token exchange is rejected", func() {
			tokenStatus = http.StatusUnauthorized

			result, err := newAdapter().PostExpense(context.Background(), testPayload())

			Expect(result).To(BeNil())
			Expect(err).To(HaveOccurred())
		})
	})

	Describe("TestConnection", func() {
		It("should report connected when the probe succeeds", func() {
			result := newAdapter().TestConnection(context.Background())

			Expect(result.Connected).To(BeTrue())
			Expect(result.SystemType).To(Equal("SAP S/4HANA Cloud (RISE)"))
		})

		It("should classify a rejected token exchange as an auth failure", func() {
			tokenStatus = http.StatusUnauthorized

			result := newAdapter().TestConnection(context.Background())

			Expect(result.Connected).To(BeTrue())
			Expect(result.Error).To(ContainSubstring("OAuth authentication failed"))
		})

		It("should report unreachable when the token endpoint is down", func() {
			adapter := newAdapter()
			tokenServer.Close()

			result := adapter.TestConnection(context.Background())

			Expect(result.Connected).To(BeFalse())
		})
	})
})

var _ = Describe("TokenSource", func() {
	It("should default the expiry when the response omits expires_in", func() {
		calls := 0
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls++
			_ = json.NewEncoder(w).Encode(map[string]any{"access_token": "tok"})
		}))
		defer server.Close()

		source := sap.NewTokenSource(server.URL, "id", "secret")

		first, err := source.Token(context.Background())
		Expect(err).ToNot(HaveOccurred())
		Expect(first).To(Equal("tok"))

		// a one-hour default keeps the token cached
		second, err := source.Token(context.Background())
		Expect(err).ToNot(HaveOccurred())
		Expect(second).To(Equal("tok"))
		Expect(calls).To(Equal(1))
	})

	It("should reject a response without an access token", func() {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_ = json.NewEncoder(w).Encode(map[string]any{"expires_in": 3600})
		}))
		defer server.Close()

		source := sap.NewTokenSource(server.URL, "id", "secret")

		_, err := source.Token(context.Background())
		Expect(err).To(HaveOccurred())
		Expect(err.Error()).To(ContainSubstring("access_token"))
	})
})
