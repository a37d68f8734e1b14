package masterdata

import "time"

const (
	TypeCostCenter = "COST_CENTER"
	TypeGLAccount  = "GL_ACCOUNT"
	TypeTaxCode    = "TAX_CODE"
)

// MasterData is one cached SAP reference-data record, keyed by (type, code).
// Rows are upserted on each sync cycle and never hard-deleted.
type MasterData struct {
	ID        string    `json:"id" gorm:"primaryKey"`
	Type      string    `json:"type" gorm:"column:type;not null;uniqueIndex:idx_master_data_type_code"`
	Code      string    `json:"code" gorm:"column:code;not null;uniqueIndex:idx_master_data_type_code"`
	Name      string    `json:"name" gorm:"column:name;not null"`
	IsActive  bool      `json:"is_active" gorm:"column:is_active;default:true"`
	SyncedAt  time.Time `json:"synced_at" gorm:"column:synced_at"`
	CreatedAt time.Time `json:"created_at" gorm:"column:created_at"`
}

func (MasterData) TableName() string {
	return "sap_master_data"
}

func ValidType(t string) bool {
	switch t {
	case TypeCostCenter, TypeGLAccount, TypeTaxCode:
		return true
	}
	return false
}
