package rest

import (
	"database/sql"
	"log/slog"

	"github.com/frahmantamala/expense-sap-bridge/internal/masterdata"
	"github.com/frahmantamala/expense-sap-bridge/internal/posting"
	"github.com/frahmantamala/expense-sap-bridge/internal/queue"
	"github.com/frahmantamala/expense-sap-bridge/internal/transport/middleware"
	"github.com/go-chi/chi"
	chiMiddleware "github.com/go-chi/chi/middleware"
)

func RegisterAllRoutes(router *chi.Mux, db *sql.DB, postingHandler *posting.Handler, queueHandler *queue.Handler, masterDataHandler *masterdata.Handler, logger *slog.Logger) {
	healthHandler := NewHealthHandler(db)

	router.Use(chiMiddleware.RequestID)
	router.Use(middleware.RecoveryMiddleware(logger))
	router.Use(middleware.LoggingMiddleware(logger))

	router.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", healthHandler.healthCheckHandler)
		r.Get("/ping", healthHandler.pingHandler)

		r.Route("/integration/sap", func(sr chi.Router) {
			if postingHandler != nil {
				sr.Post("/post-expense/{id}", postingHandler.PostExpense)
				sr.Get("/test-connection", postingHandler.TestConnection)
			}

			if queueHandler != nil {
				sr.Post("/queue/enqueue/{id}", queueHandler.EnqueueExpense)
				sr.Get("/queue", queueHandler.QueueStatus)
				sr.Post("/queue/{id}/retry", queueHandler.RetryItem)
			}

			if masterDataHandler != nil {
				sr.Get("/master-data", masterDataHandler.GetMasterData)
				sr.Post("/master-data/sync", masterDataHandler.SyncMasterData)
			}
		})
	})
}
