package repository

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/EgehanKilicarslan/mbs-auth/internal/database"
	"github.com/EgehanKilicarslan/mbs-auth/internal/database/models"
)

// UserRepository defines the interface for user data operations
type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	FindByID(ctx context.Context, id uint) (*models.User, error)
	FindByUsername(ctx context.Context, username string) (*models.User, error)
	FindActiveUserByID(ctx context.Context, id uint) (*models.User, error)
	AssignRoles(ctx context.Context, user *models.User, roleNames ...string) error
}

type userRepository struct {
	db *gorm.DB
}

// NewUserRepository creates a new user repository instance
func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) Create(ctx context.Context, user *models.User) error {
	return database.Conn(ctx, r.db).Create(user).Error
}

func (r *userRepository) FindByID(ctx context.Context, id uint) (*models.User, error) {
	return r.findOne(ctx, "id = ?", id)
}

func (r *userRepository) FindByUsername(ctx context.Context, username string) (*models.User, error) {
	return r.findOne(ctx, "username = ?", username)
}

// FindActiveUserByID loads the user with roles and authorities, rejecting
// accounts that are not active or have been disabled.
func (r *userRepository) FindActiveUserByID(ctx context.Context, id uint) (*models.User, error) {
	user, err := r.findOne(ctx, "id = ?", id)
	if err != nil {
		return nil, err
	}

	if !user.IsActive() {
		return nil, fmt.Errorf("%w: status %s, enabled %t", ErrUserInactive, user.Status, user.Enabled)
	}

	return user, nil
}

func (r *userRepository) AssignRoles(ctx context.Context, user *models.User, roleNames ...string) error {
	if len(roleNames) == 0 {
		return nil
	}

	db := database.Conn(ctx, r.db)

	var roles []models.Role
	if err := db.Where("name IN ?", roleNames).Find(&roles).Error; err != nil {
		return err
	}
	if len(roles) != len(roleNames) {
		return ErrRoleNotFound
	}

	return db.Model(user).Association("Roles").Append(roles)
}

func (r *userRepository) findOne(ctx context.Context, query string, args ...any) (*models.User, error) {
	var user models.User
	err := database.Conn(ctx, r.db).
		Preload("Roles.Authorities").
		Where(query, args...).
		First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &user, nil
}

// Repository errors
var (
	ErrUserNotFound = errors.New("user not found")
	ErrUserInactive = errors.New("user is not active")
	ErrRoleNotFound = errors.New("role not found")
)
