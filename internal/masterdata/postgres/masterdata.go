package postgres

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	masterdataDatamodel "github.com/frahmantamala/expense-sap-bridge/internal/core/datamodel/masterdata"
	"github.com/frahmantamala/expense-sap-bridge/internal/masterdata"
)

// MasterDataRepository implements the masterdata.Repository interface using GORM
type MasterDataRepository struct {
	db *gorm.DB
}

func NewMasterDataRepository(db *gorm.DB) masterdata.Repository {
	return &MasterDataRepository{db: db}
}

// Upsert inserts or refreshes one record keyed by (type, code), reactivating
// it and stamping the sync time.
func (r *MasterDataRepository) Upsert(ctx context.Context, dataType, code, name string, syncedAt time.Time) error {
	record := &masterdataDatamodel.MasterData{
		ID:        uuid.NewString(),
		Type:      dataType,
		Code:      code,
		Name:      name,
		IsActive:  true,
		SyncedAt:  syncedAt,
		CreatedAt: time.Now(),
	}

	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "type"}, {Name: "code"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"name":      name,
			"is_active": true,
			"synced_at": syncedAt,
		}),
	}).Create(record).Error
}

func (r *MasterDataRepository) GetActiveByType(ctx context.Context, dataType string) ([]*masterdataDatamodel.MasterData, error) {
	var records []*masterdataDatamodel.MasterData
	err := r.db.WithContext(ctx).
		Where("type = ? AND is_active = ?", dataType, true).
		Order("code ASC").
		Find(&records).Error
	return records, err
}
