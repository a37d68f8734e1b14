package posting

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/frahmantamala/expense-sap-bridge/internal/sap"
	"github.com/frahmantamala/expense-sap-bridge/internal/transport"
	"github.com/frahmantamala/expense-sap-bridge/pkg/logger"
	"github.com/go-chi/chi"
	"github.com/google/uuid"
)

type ServiceAPI interface {
	PostExpenseToSAP(ctx context.Context, expenseID string) (*PostResponse, error)
	TestConnection(ctx context.Context) sap.ConnectionResult
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

func (h *Handler) PostExpense(w http.ResponseWriter, r *http.Request) {
	expenseID := chi.URLParam(r, "id")
	if _, err := uuid.Parse(expenseID); err != nil {
		h.Logger.Error("PostExpense: invalid expense ID", "id", expenseID)
		h.WriteError(w, http.StatusBadRequest, "invalid expense ID")
		return
	}

	resp, err := h.Service.PostExpenseToSAP(r.Context(), expenseID)
	if err != nil {
		h.Logger.Error("PostExpense: service error", "error", err, "expense_id", expenseID)
		h.HandleServiceError(w, err)
		return
	}

	h.Logger.Info("PostExpense: expense posted to SAP",
		"expense_id", expenseID,
		"sap_document_number", resp.SapDocumentNumber,
		"sap_type", resp.SapType)

	h.WriteJSON(w, http.StatusOK, resp)
}

func (h *Handler) TestConnection(w http.ResponseWriter, r *http.Request) {
	result := h.Service.TestConnection(r.Context())

	h.Logger.Info("TestConnection: probe finished",
		"connected", result.Connected,
		"system_type", result.SystemType)

	h.WriteJSON(w, http.StatusOK, result)
}
