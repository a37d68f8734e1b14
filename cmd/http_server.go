package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/frahmantamala/expense-sap-bridge/internal"
	auditPostgres "github.com/frahmantamala/expense-sap-bridge/internal/audit/postgres"
	"github.com/frahmantamala/expense-sap-bridge/internal/masterdata"
	masterdataPostgres "github.com/frahmantamala/expense-sap-bridge/internal/masterdata/postgres"
	"github.com/frahmantamala/expense-sap-bridge/internal/posting"
	postingPostgres "github.com/frahmantamala/expense-sap-bridge/internal/posting/postgres"
	"github.com/frahmantamala/expense-sap-bridge/internal/queue"
	queuePostgres "github.com/frahmantamala/expense-sap-bridge/internal/queue/postgres"
	"github.com/frahmantamala/expense-sap-bridge/internal/sap"
	"github.com/frahmantamala/expense-sap-bridge/internal/transport/rest"
	"github.com/frahmantamala/expense-sap-bridge/pkg/logger"

	"github.com/go-chi/chi"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	"github.com/spf13/cobra"
	gormPostgres "gorm.io/driver/postgres"
	"gorm.io/gorm"
)

var httpServerCmd = &cobra.Command{
	Use:   "server",
	Short: "Start HTTP server",
	Long:  `Start the HTTP server to handle SAP integration API requests`,
	Run: func(cmd *cobra.Command, args []string) {
		startHTTPServer()
	},
}

type Dependencies struct {
	Config *internal.Config
	DB     *sqlx.DB
	GormDB *gorm.DB
	Router *chi.Mux
	Logger *slog.Logger
}

func startHTTPServer() {
	deps, err := initializeDependencies()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize dependencies: %v\n", err)
		os.Exit(1)
	}

	setupRoutes(deps)

	addr := fmt.Sprintf(":%d", deps.Config.Server.Port)
	deps.Logger.Info("starting HTTP server", "address", addr)

	server := &http.Server{
		Addr:         addr,
		Handler:      deps.Router,
		ReadTimeout:  deps.Config.Server.ReadTimeout,
		WriteTimeout: deps.Config.Server.WriteTimeout,
		IdleTimeout:  deps.Config.Server.IdleTimeout,
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	serverErrChan := make(chan error, 1)
	go func() {
		serverErrChan <- server.ListenAndServe()
	}()

	select {
	case sig := <-sigChan:
		deps.Logger.Info("received signal, shutting down", "signal", sig)
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil {
			deps.Logger.Error("server shutdown error", "error", err)
		}
		if err := deps.DB.Close(); err != nil {
			deps.Logger.Error("database close error", "error", err)
		}
	case err := <-serverErrChan:
		if err != nil && err != http.ErrServerClosed {
			deps.Logger.Error("server failed to start", "error", err)
			os.Exit(1)
		}
	}

	deps.Logger.Info("server stopped")
}

func setupRoutes(deps *Dependencies) {
	log := deps.Logger

	auditRepo := auditPostgres.NewAuditRepository(deps.GormDB)
	factory := sap.NewFactory(deps.Config.SAP, log)

	expenseRepo := postingPostgres.NewExpenseRepository(deps.GormDB)
	userRepo := postingPostgres.NewUserRepository(deps.GormDB)
	postingService := posting.NewService(expenseRepo, userRepo, auditRepo, factory, deps.Config.SAP, log)

	queueRepo := queuePostgres.NewQueueRepository(deps.GormDB)
	queueService := queue.NewService(queueRepo, expenseRepo, postingService, auditRepo, deps.Config.Queue, log)

	masterDataRepo := masterdataPostgres.NewMasterDataRepository(deps.GormDB)
	masterDataClient := masterdata.NewHTTPClient(deps.Config.SAP)
	masterDataService := masterdata.NewService(masterDataRepo, masterDataClient, log)

	postingHandler := posting.NewHandler(postingService)
	queueHandler := queue.NewHandler(queueService)
	masterDataHandler := masterdata.NewHandler(masterDataService)

	rest.RegisterAllRoutes(deps.Router, deps.DB.DB, postingHandler, queueHandler, masterDataHandler, log)
}

func initializeDependencies() (*Dependencies, error) {
	config, err := loadConfig(".")
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	logger.Init(os.Getenv("APP_ENV"))
	log := logger.LoggerWrapper()
	if log == nil {
		log = slog.Default()
	}

	db, err := initDB(config.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	gormDB, err := initGormDB(db)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize gorm: %w", err)
	}

	return &Dependencies{
		Config: config,
		Logger: log,
		DB:     db,
		GormDB: gormDB,
		Router: chi.NewRouter(),
	}, nil
}

// initDB opens the pgx-backed connection pool shared by health checks,
// migrations and the gorm layer.
func initDB(cfg internal.DatabaseConfig) (*sqlx.DB, error) {
	const driver = "pgx"

	dbConn, err := sqlx.Connect(driver, cfg.Source)
	if err != nil {
		return nil, fmt.Errorf("failed to open db connection: %w", err)
	}

	dbConn.SetMaxIdleConns(cfg.MaxIdleConns)
	dbConn.SetMaxOpenConns(cfg.MaxOpenConns)
	dbConn.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	dbConn.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	if err := dbConn.Ping(); err != nil {
		_ = dbConn.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return dbConn, nil
}

// initGormDB wraps the existing pool so gorm shares connections with
// everything else instead of opening a second pool.
func initGormDB(db *sqlx.DB) (*gorm.DB, error) {
	return gorm.Open(gormPostgres.New(gormPostgres.Config{Conn: db.DB}), &gorm.Config{})
}
