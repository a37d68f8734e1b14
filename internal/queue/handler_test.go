package queue_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/go-chi/chi"

	"github.com/frahmantamala/expense-sap-bridge/internal/queue"
)

type mockQueueService struct {
	enqueueErr  error
	enqueuedIDs []string
	retryResp   *queue.RetryResponse
	retryErr    error
	status      *queue.StatusResponse
	statusErr   error
}

func (m *mockQueueService) Enqueue(ctx context.Context, expenseID string) error {
	if m.enqueueErr != nil {
		return m.enqueueErr
	}
	m.enqueuedIDs = append(m.enqueuedIDs, expenseID)
	return nil
}

func (m *mockQueueService) RetryItem(ctx context.Context, queueID string) (*queue.RetryResponse, error) {
	return m.retryResp, m.retryErr
}

func (m *mockQueueService) QueueStatus(ctx context.Context) (*queue.StatusResponse, error) {
	return m.status, m.statusErr
}

var _ = Describe("Queue Handler", func() {
	var (
		service *mockQueueService
		router  *chi.Mux
	)

	const expenseID = "5f1c9a2e-7d3b-4c8a-9f6e-1b2c3d4e5f6a"
	const queueID = "a1b2c3d4-e5f6-4a1b-8c2d-3e4f5a6b7c8d"

	BeforeEach(func() {
		service = &mockQueueService{
			status: &queue.StatusResponse{
				Counts:      queue.StatusCounts{Pending: 2, Failed: 1},
				FailedItems: []queue.FailedItem{},
			},
		}
		handler := queue.NewHandler(service)

		router = chi.NewRouter()
		router.Post("/integration/sap/queue/enqueue/{id}", handler.EnqueueExpense)
		router.Get("/integration/sap/queue", handler.QueueStatus)
		router.Post("/integration/sap/queue/{id}/retry", handler.RetryItem)
	})

	Describe("POST /integration/sap/queue/enqueue/{id}", func() {
		It("should accept the expense for asynchronous posting", func() {
			req := httptest.NewRequest(http.MethodPost, "/integration/sap/queue/enqueue/"+expenseID, nil)
			w := httptest.NewRecorder()

			router.ServeHTTP(w, req)

			Expect(w.Code).To(Equal(http.StatusAccepted))
			Expect(service.enqueuedIDs).To(Equal([]string{expenseID}))

			var body map[string]string
			Expect(json.NewDecoder(w.Body).Decode(&body)).To(Succeed())
			Expect(body["expense_id"]).To(Equal(expenseID))
		})

		It("should reject a malformed expense ID", func() {
			req := httptest.NewRequest(http.MethodPost, "/integration/sap/queue/enqueue/nope", nil)
			w := httptest.NewRecorder()

			router.ServeHTTP(w, req)

			Expect(w.Code).To(Equal(http.StatusBadRequest))
			Expect(service.enqueuedIDs).To(BeEmpty())
		})
	})

	Describe("GET /integration/sap/queue", func() {
		It("should return the queue status", func() {
			req := httptest.NewRequest(http.MethodGet, "/integration/sap/queue", nil)
			w := httptest.NewRecorder()

			router.ServeHTTP(w, req)

			Expect(w.Code).To(Equal(http.StatusOK))

			var status queue.StatusResponse
			Expect(json.NewDecoder(w.Body).Decode(&status)).To(Succeed())
			Expect(status.Counts.Pending).To(Equal(int64(2)))
			Expect(status.Counts.Failed).To(Equal(int64(1)))
		})
	})

	Describe("POST /integration/sap/queue/{id}/retry", func() {
		It("should reset the queue item", func() {
			service.retryResp = &queue.RetryResponse{Message: "Item queued for retry", QueueID: queueID}

			req := httptest.NewRequest(http.MethodPost, "/integration/sap/queue/"+queueID+"/retry", nil)
			w := httptest.NewRecorder()

			router.ServeHTTP(w, req)

			Expect(w.Code).To(Equal(http.StatusOK))

			var resp queue.RetryResponse
			Expect(json.NewDecoder(w.Body).Decode(&resp)).To(Succeed())
			Expect(resp.QueueID).To(Equal(queueID))
		})

		It("should return 404 for an unknown item", func() {
			service.retryResp = nil

			req := httptest.NewRequest(http.MethodPost, "/integration/sap/queue/"+queueID+"/retry", nil)
			w := httptest.NewRecorder()

			router.ServeHTTP(w, req)

			Expect(w.Code).To(Equal(http.StatusNotFound))
		})
	})
})
