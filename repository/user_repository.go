package repository

import (
	"context"
	"fmt"

	"AlbumShelf/model"

	"gorm.io/gorm"
)

// UserRepository defines the interface for user data operations.
type UserRepository interface {
	CreateUser(ctx context.Context, user *model.User) error
	GetUserByID(ctx context.Context, id int64) (*model.User, error)
	GetUserByUsername(ctx context.Context, username string) (*model.User, error)
	SetStaff(ctx context.Context, username string, staff bool) error
}

type gormUserRepository struct {
	db *gorm.DB
}

// NewGormUserRepository creates a gorm backed UserRepository.
func NewGormUserRepository(db *gorm.DB) UserRepository {
	return &gormUserRepository{db: db}
}

// CreateUser adds a new user to the database.
func (r *gormUserRepository) CreateUser(ctx context.Context, user *model.User) error {
	if err := r.db.WithContext(ctx).Create(user).Error; err != nil {
		if isDuplicateKey(err) {
			return ErrDuplicateUser
		}
		return fmt.Errorf("failed to create user %s: %w", user.Username, err)
	}
	return nil
}

// GetUserByID retrieves a user by their ID.
func (r *gormUserRepository) GetUserByID(ctx context.Context, id int64) (*model.User, error) {
	var user model.User
	if err := r.db.WithContext(ctx).First(&user, id).Error; err != nil {
		return nil, notFound(err)
	}
	return &user, nil
}

// GetUserByUsername retrieves a user by their username.
func (r *gormUserRepository) GetUserByUsername(ctx context.Context, username string) (*model.User, error) {
	var user model.User
	if err := r.db.WithContext(ctx).Where("username = ?", username).First(&user).Error; err != nil {
		return nil, notFound(err)
	}
	return &user, nil
}

// SetStaff grants or revokes staff status.
func (r *gormUserRepository) SetStaff(ctx context.Context, username string, staff bool) error {
	res := r.db.WithContext(ctx).Model(&model.User{}).Where("username = ?", username).Update("is_staff", staff)
	if res.Error != nil {
		return fmt.Errorf("failed to update staff flag for %s: %w", username, res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
