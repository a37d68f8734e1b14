package queue

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/frahmantamala/expense-sap-bridge/internal/transport"
	"github.com/frahmantamala/expense-sap-bridge/pkg/logger"
	"github.com/go-chi/chi"
	"github.com/google/uuid"
)

type ServiceAPI interface {
	Enqueue(ctx context.Context, expenseID string) error
	RetryItem(ctx context.Context, queueID string) (*RetryResponse, error)
	QueueStatus(ctx context.Context) (*StatusResponse, error)
}

type Handler struct {
	*transport.BaseHandler
	Service ServiceAPI
}

func NewHandler(service ServiceAPI) *Handler {
	lg := logger.LoggerWrapper()
	if lg == nil {
		lg = slog.Default()
	}
	return &Handler{
		BaseHandler: transport.NewBaseHandler(lg),
		Service:     service,
	}
}

func (h *Handler) EnqueueExpense(w http.ResponseWriter, r *http.Request) {
	expenseID := chi.URLParam(r, "id")
	if _, err := uuid.Parse(expenseID); err != nil {
		h.Logger.Error("EnqueueExpense: invalid expense ID", "id", expenseID)
		h.WriteError(w, http.StatusBadRequest, "invalid expense ID")
		return
	}

	if err := h.Service.Enqueue(r.Context(), expenseID); err != nil {
		h.Logger.Error("EnqueueExpense: service error", "error", err, "expense_id", expenseID)
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusAccepted, map[string]string{
		"message":    "Expense queued for SAP posting",
		"expense_id": expenseID,
	})
}

func (h *Handler) QueueStatus(w http.ResponseWriter, r *http.Request) {
	resp, err := h.Service.QueueStatus(r.Context())
	if err != nil {
		h.Logger.Error("QueueStatus: service error", "error", err)
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, resp)
}

func (h *Handler) RetryItem(w http.ResponseWriter, r *http.Request) {
	queueID := chi.URLParam(r, "id")
	if _, err := uuid.Parse(queueID); err != nil {
		h.Logger.Error("RetryItem: invalid queue ID", "id", queueID)
		h.WriteError(w, http.StatusBadRequest, "invalid queue ID")
		return
	}

	resp, err := h.Service.RetryItem(r.Context(), queueID)
	if err != nil {
		h.Logger.Error("RetryItem: service error", "error", err, "queue_id", queueID)
		h.HandleServiceError(w, err)
		return
	}
	if resp == nil {
		h.WriteError(w, http.StatusNotFound, "queue item not found")
		return
	}

	h.WriteJSON(w, http.StatusOK, resp)
}
