package masterdata

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/frahmantamala/expense-sap-bridge/internal/core/datamodel/masterdata"
	"github.com/frahmantamala/expense-sap-bridge/internal/transport"
	"github.com/frahmantamala/expense-sap-bridge/pkg/logger"
)

type ServiceAPI interface {
	GetByType(ctx context.Context, dataType string) ([]*masterdata.MasterData, error)
	SyncAll(ctx context.Context)
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

func (h *Handler) GetMasterData(w http.ResponseWriter, r *http.Request) {
	dataType := r.URL.Query().Get("type")
	if dataType == "" {
		h.WriteError(w, http.StatusBadRequest, "type query parameter is required")
		return
	}

	records, err := h.Service.GetByType(r.Context(), dataType)
	if err != nil {
		h.Logger.Error("GetMasterData: service error", "error", err, "type", dataType)
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, map[string]any{
		"type":    dataType,
		"count":   len(records),
		"records": records,
	})
}

func (h *Handler) SyncMasterData(w http.ResponseWriter, r *http.Request) {
	h.Service.SyncAll(r.Context())

	h.Logger.Info("SyncMasterData: manual sync completed")

	h.WriteJSON(w, http.StatusOK, map[string]string{
		"message": "Master data sync completed",
	})
}
