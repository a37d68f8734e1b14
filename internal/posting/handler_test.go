package posting_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/go-chi/chi"

	"github.com/frahmantamala/expense-sap-bridge/internal"
	"github.com/frahmantamala/expense-sap-bridge/internal/posting"
	"github.com/frahmantamala/expense-sap-bridge/internal/sap"
)

type mockPostingService struct {
	response   *posting.PostResponse
	err        error
	connResult sap.ConnectionResult
	lastID     string
}

func (m *mockPostingService) PostExpenseToSAP(ctx context.Context, expenseID string) (*posting.PostResponse, error) {
	m.lastID = expenseID
	if m.err != nil {
		return nil, m.err
	}
	return m.response, nil
}

func (m *mockPostingService) TestConnection(ctx context.Context) sap.ConnectionResult {
	return m.connResult
}

var _ = Describe("Posting Handler", func() {
	var (
		service *mockPostingService
		router  *chi.Mux
	)

	const expenseID = "5f1c9a2e-7d3b-4c8a-9f6e-1b2c3d4e5f6a"

	BeforeEach(func() {
		service = &mockPostingService{
			response: &posting.PostResponse{
				SapDocumentNumber: "DOC-123",
				Status:            sap.PostStatusPosted,
				SapType:           "ECC",
				ExpenseID:         expenseID,
			},
		}
		handler := posting.NewHandler(service)

		router = chi.NewRouter()
		router.Post("/integration/sap/post-expense/{id}", handler.PostExpense)
		router.Get("/integration/sap/test-connection", handler.TestConnection)
	})

	Describe("POST /integration/sap/post-expense/{id}", func() {
		It("should post the expense and return the document number", func() {
			req := httptest.NewRequest(http.MethodPost, "/integration/sap/post-expense/"+expenseID, nil)
			w := httptest.NewRecorder()

			router.ServeHTTP(w, req)

			Expect(w.Code).To(Equal(http.StatusOK))
			Expect(service.lastID).To(Equal(expenseID))

			var response posting.PostResponse
			Expect(json.NewDecoder(w.Body).Decode(&response)).To(Succeed())
			Expect(response.SapDocumentNumber).To(Equal("DOC-123"))
			Expect(response.SapType).To(Equal("ECC"))
		})

		It("should reject a malformed expense ID", func() {
			req := httptest.NewRequest(http.MethodPost, "/integration/sap/post-expense/not-a-uuid", nil)
			w := httptest.NewRecorder()

			router.ServeHTTP(w, req)

			Expect(w.Code).To(Equal(http.StatusBadRequest))
			Expect(service.lastID).To(BeEmpty())
		})

		It("should map a conflict error to 409", func() {
			service.err = internal.NewConflictError("Expense already posted to SAP: DOC-9", internal.ErrCodeAlreadyPosted)

			req := httptest.NewRequest(http.MethodPost, "/integration/sap/post-expense/"+expenseID, nil)
			w := httptest.NewRecorder()

			router.ServeHTTP(w, req)

			Expect(w.Code).To(Equal(http.StatusConflict))

			var body map[string]map[string]any
			Expect(json.NewDecoder(w.Body).Decode(&body)).To(Succeed())
			Expect(body["error"]["code"]).To(Equal("ALREADY_POSTED"))
			Expect(body["error"]["message"]).To(ContainSubstring("DOC-9"))
		})

		It("should map a not found error to 404", func() {
			service.err = internal.ErrExpenseNotFound

			req := httptest.NewRequest(http.MethodPost, "/integration/sap/post-expense/"+expenseID, nil)
			w := httptest.NewRecorder()

			router.ServeHTTP(w, req)

			Expect(w.Code).To(Equal(http.StatusNotFound))
		})

		It("should map an approval-state error to 400", func() {
			service.err = internal.ErrExpenseNotApproved

			req := httptest.NewRequest(http.MethodPost, "/integration/sap/post-expense/"+expenseID, nil)
			w := httptest.NewRecorder()

			router.ServeHTTP(w, req)

			Expect(w.Code).To(Equal(http.StatusBadRequest))
		})
	})

	Describe("GET /integration/sap/test-connection", func() {
		It("should return the probe result", func() {
			service.connResult = sap.ConnectionResult{Connected: true, SystemType: "SAP ECC On-Premise"}

			req := httptest.NewRequest(http.MethodGet, "/integration/sap/test-connection", nil)
			w := httptest.NewRecorder()

			router.ServeHTTP(w, req)

			Expect(w.Code).To(Equal(http.StatusOK))

			var result sap.ConnectionResult
			Expect(json.NewDecoder(w.Body).Decode(&result)).To(Succeed())
			Expect(result.Connected).To(BeTrue())
			Expect(result.SystemType).To(Equal("SAP ECC On-Premise"))
		})
	})
})
