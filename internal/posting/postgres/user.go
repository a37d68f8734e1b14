package postgres

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/frahmantamala/expense-sap-bridge/internal/core/datamodel/user"
	"github.com/frahmantamala/expense-sap-bridge/internal/posting"
)

// UserRepository implements the posting.UserRepository interface using GORM
type UserRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) posting.UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) GetByID(ctx context.Context, id string) (*user.User, error) {
	var usr user.User
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&usr).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("user %s not found", id)
		}
		return nil, err
	}
	return &usr, nil
}
