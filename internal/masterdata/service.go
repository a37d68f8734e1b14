package masterdata

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/frahmantamala/expense-sap-bridge/internal"
	"github.com/frahmantamala/expense-sap-bridge/internal/core/datamodel/masterdata"
)

// Record is one reference-data row as fetched from SAP.
type Record struct {
	Code string
	Name string
}

// Client fetches one reference-data type from the SAP OData catalog.
type Client interface {
	FetchRecords(ctx context.Context, dataType string) ([]Record, error)
}

// Repository defines the local cache access methods.
type Repository interface {
	Upsert(ctx context.Context, dataType, code, name string, syncedAt time.Time) error
	GetActiveByType(ctx context.Context, dataType string) ([]*masterdata.MasterData, error)
}

// Service maintains the read-through local cache of SAP reference data so
// the posting path never round-trips to the ERP for validation lookups.
type Service struct {
	repo   Repository
	client Client
	logger *slog.Logger
	now    func() time.Time
}

func NewService(repo Repository, client Client, logger *slog.Logger) *Service {
	return &Service{repo: repo, client: client, logger: logger, now: time.Now}
}

var syncedTypes = []string{
	masterdata.TypeCostCenter,
	masterdata.TypeGLAccount,
	masterdata.TypeTaxCode,
}

// SyncAll refreshes the three reference-data types. Each type syncs in
// isolation: a failed fetch leaves that type's cached rows untouched and
// never prevents the other types from refreshing.
func (s *Service) SyncAll(ctx context.Context) {
	s.logger.Info("starting SAP master data synchronization")

	var wg sync.WaitGroup
	for _, dataType := range syncedTypes {
		wg.Add(1)
		go func(dataType string) {
			defer wg.Done()
			s.syncType(ctx, dataType)
		}(dataType)
	}
	wg.Wait()

	s.logger.Info("SAP master data synchronization completed")
}

func (s *Service) syncType(ctx context.Context, dataType string) {
	records, err := s.client.FetchRecords(ctx, dataType)
	if err != nil {
		s.logger.Warn("failed to sync master data from SAP, using local cache",
			"type", dataType,
			"error", err)
		return
	}

	syncedAt := s.now()
	stored := 0
	for _, rec := range records {
		if rec.Code == "" {
			continue
		}
		if err := s.repo.Upsert(ctx, dataType, rec.Code, rec.Name, syncedAt); err != nil {
			s.logger.Error("failed to upsert master data record",
				"type", dataType,
				"code", rec.Code,
				"error", err)
			continue
		}
		stored++
	}

	s.logger.Info("synced master data from SAP", "type", dataType, "count", stored)
}

// GetByType reads the active cached records for one reference-data type.
func (s *Service) GetByType(ctx context.Context, dataType string) ([]*masterdata.MasterData, error) {
	if !masterdata.ValidType(dataType) {
		return nil, internal.NewValidationError("Invalid master data type", internal.ErrCodeInvalidMasterDataType)
	}
	return s.repo.GetActiveByType(ctx, dataType)
}
