package user

import "time"

// User carries the subset of the employee record the SAP payload needs.
type User struct {
	ID            string    `json:"id" gorm:"primaryKey"`
	Name          string    `json:"name" gorm:"column:name;not null"`
	Email         string    `json:"email" gorm:"column:email;uniqueIndex;not null"`
	Department    *string   `json:"department,omitempty" gorm:"column:department"`
	SapEmployeeID *string   `json:"sap_employee_id,omitempty" gorm:"column:sap_employee_id"`
	CreatedAt     time.Time `json:"created_at" gorm:"column:created_at"`
	UpdatedAt     time.Time `json:"updated_at" gorm:"column:updated_at"`
}

func (User) TableName() string {
	return "users"
}
