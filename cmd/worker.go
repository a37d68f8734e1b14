package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	auditPostgres "github.com/frahmantamala/expense-sap-bridge/internal/audit/postgres"
	"github.com/frahmantamala/expense-sap-bridge/internal/masterdata"
	masterdataPostgres "github.com/frahmantamala/expense-sap-bridge/internal/masterdata/postgres"
	"github.com/frahmantamala/expense-sap-bridge/internal/posting"
	postingPostgres "github.com/frahmantamala/expense-sap-bridge/internal/posting/postgres"
	"github.com/frahmantamala/expense-sap-bridge/internal/queue"
	queuePostgres "github.com/frahmantamala/expense-sap-bridge/internal/queue/postgres"
	"github.com/frahmantamala/expense-sap-bridge/internal/sap"
	"github.com/frahmantamala/expense-sap-bridge/pkg/logger"
	"github.com/spf13/cobra"
)

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Start background workers",
	Long:  `Start the queue sweeper and master data sync loops`,
	Run: func(cmd *cobra.Command, args []string) {
		startWorker()
	},
}

func startWorker() {
	config, err := loadConfig(".")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger.Init(os.Getenv("APP_ENV"))
	log := logger.LoggerWrapper()
	if log == nil {
		log = slog.Default()
	}

	db, err := initDB(config.Database)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize database: %v\n", err)
		os.Exit(1)
	}
	defer db.Close()

	gormDB, err := initGormDB(db)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize gorm: %v\n", err)
		os.Exit(1)
	}

	auditRepo := auditPostgres.NewAuditRepository(gormDB)
	factory := sap.NewFactory(config.SAP, log)

	expenseRepo := postingPostgres.NewExpenseRepository(gormDB)
	userRepo := postingPostgres.NewUserRepository(gormDB)
	postingService := posting.NewService(expenseRepo, userRepo, auditRepo, factory, config.SAP, log)

	queueRepo := queuePostgres.NewQueueRepository(gormDB)
	queueService := queue.NewService(queueRepo, expenseRepo, postingService, auditRepo, config.Queue, log)
	sweeper := queue.NewSweeper(queueService, config.Queue.SweepInterval, log)

	masterDataRepo := masterdataPostgres.NewMasterDataRepository(gormDB)
	masterDataClient := masterdata.NewHTTPClient(config.SAP)
	masterDataService := masterdata.NewService(masterDataRepo, masterDataClient, log)
	syncer := masterdata.NewSyncer(masterDataService, config.MasterData.SyncInterval, log)

	ctx, cancel := context.WithCancel(context.Background())

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		sweeper.Run(ctx)
	}()
	go func() {
		defer wg.Done()
		syncer.Run(ctx)
	}()

	log.Info("worker is running",
		"sweep_interval", config.Queue.SweepInterval,
		"sync_interval", config.MasterData.SyncInterval)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigChan
	log.Info("received signal, shutting down worker", "signal", sig)
	cancel()

	shutdownDone := make(chan struct{})
	go func() {
		wg.Wait()
		close(shutdownDone)
	}()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	select {
	case <-shutdownDone:
		log.Info("worker shutdown complete")
	case <-shutdownCtx.Done():
		log.Warn("shutdown timeout reached, forcing exit")
	}
}
