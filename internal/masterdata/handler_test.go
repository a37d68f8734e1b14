package masterdata_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/go-chi/chi"

	"github.com/frahmantamala/expense-sap-bridge/internal"
	masterdataDatamodel "github.com/frahmantamala/expense-sap-bridge/internal/core/datamodel/masterdata"
	"github.com/frahmantamala/expense-sap-bridge/internal/masterdata"
)

type mockMasterDataService struct {
	records   []*masterdataDatamodel.MasterData
	getErr    error
	syncCalls int
}

func (m *mockMasterDataService) GetByType(ctx context.Context, dataType string) ([]*masterdataDatamodel.MasterData, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	return m.records, nil
}

func (m *mockMasterDataService) SyncAll(ctx context.Context) {
	m.syncCalls++
}

var _ = Describe("MasterData Handler", func() {
	var (
		service *mockMasterDataService
		router  *chi.Mux
	)

	BeforeEach(func() {
		service = &mockMasterDataService{
			records: []*masterdataDatamodel.MasterData{
				{Type: masterdataDatamodel.TypeCostCenter, Code: "CC100", Name: "Sales"},
			},
		}
		handler := masterdata.NewHandler(service)

		router = chi.NewRouter()
		router.Get("/integration/sap/master-data", handler.GetMasterData)
		router.Post("/integration/sap/master-data/sync", handler.SyncMasterData)
	})

	Describe("GET /integration/sap/master-data", func() {
		It("should return cached records for the requested type", func() {
			req := httptest.NewRequest(http.MethodGet, "/integration/sap/master-data?type=COST_CENTER", nil)
			w := httptest.NewRecorder()

			router.ServeHTTP(w, req)

			Expect(w.Code).To(Equal(http.StatusOK))

			var body struct {
				Type    string                            `json:"type"`
				Count   int                               `json:"count"`
				Records []*masterdataDatamodel.MasterData `json:"records"`
			}
			Expect(json.NewDecoder(w.Body).Decode(&body)).To(Succeed())
			Expect(body.Type).To(Equal("COST_CENTER"))
			Expect(body.Count).To(Equal(1))
			Expect(body.Records[0].Code).To(Equal("CC100"))
		})

		It("should require the type query parameter", func() {
			req := httptest.NewRequest(http.MethodGet, "/integration/sap/master-data", nil)
			w := httptest.NewRecorder()

			router.ServeHTTP(w, req)

			Expect(w.Code).To(Equal(http.StatusBadRequest))
		})

		It("should map an invalid type to 400", func() {
			service.getErr = internal.NewValidationError("Invalid master data type", internal.ErrCodeInvalidMasterDataType)

			req := httptest.NewRequest(http.MethodGet, "/integration/sap/master-data?type=VENDOR", nil)
			w := httptest.NewRecorder()

			router.ServeHTTP(w, req)

			Expect(w.Code).To(Equal(http.StatusBadRequest))
		})
	})

	Describe("POST /integration/sap/master-data/sync", func() {
		It("should trigger a full sync", func() {
			req := httptest.NewRequest(http.MethodPost, "/integration/sap/master-data/sync", nil)
			w := httptest.NewRecorder()

			router.ServeHTTP(w, req)

			Expect(w.Code).To(Equal(http.StatusOK))
			Expect(service.syncCalls).To(Equal(1))
		})
	})
})
