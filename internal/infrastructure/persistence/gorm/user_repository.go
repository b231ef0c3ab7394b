package gorm

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tymenu/tymenu/internal/domain/user"
	"github.com/tymenu/tymenu/internal/ports/outbound"
)

// UserRepository implements the user repository interface using GORM
type UserRepository struct {
	db *gorm.DB
}

// NewUserRepository creates a new user repository
func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{db: db}
}

var _ outbound.UserRepository = (*UserRepository)(nil)

func mapUserError(err error) error {
	if col, ok := uniqueViolation(err); ok {
		switch col {
		case "email":
			return user.ErrEmailTaken
		case "username":
			return user.ErrUsernameTaken
		}
	}
	return err
}

// Create inserts a new user
func (r *UserRepository) Create(ctx context.Context, u *user.User) error {
	return mapUserError(conn(ctx, r.db).Omit("Role").Create(UserToModel(u)).Error)
}

// Update saves every column of an existing user
func (r *UserRepository) Update(ctx context.Context, u *user.User) error {
	result := conn(ctx, r.db).Omit("Role").Save(UserToModel(u))
	if result.Error != nil {
		return mapUserError(result.Error)
	}
	return nil
}

// Delete removes a user
func (r *UserRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result := conn(ctx, r.db).Delete(&UserModel{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return user.ErrUserNotFound
	}
	return nil
}

func (r *UserRepository) findOne(ctx context.Context, query string, args ...interface{}) (*user.User, error) {
	var model UserModel
	err := conn(ctx, r.db).Preload("Role").Where(query, args...).First(&model).Error
	if err != nil {
		if isNotFound(err) {
			return nil, user.ErrUserNotFound
		}
		return nil, err
	}
	return ModelToUser(&model), nil
}

// FindByID finds a user by ID
func (r *UserRepository) FindByID(ctx context.Context, id uuid.UUID) (*user.User, error) {
	return r.findOne(ctx, "id = ?", id)
}

// FindByEmail finds a user by email, ignoring case
func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*user.User, error) {
	return r.findOne(ctx, "email = ?", strings.ToLower(strings.TrimSpace(email)))
}

// FindByUsername finds a user by exact username
func (r *UserRepository) FindByUsername(ctx context.Context, username string) (*user.User, error) {
	return r.findOne(ctx, "username = ?", username)
}

// FindByIDs loads several users; unknown ids are skipped
func (r *UserRepository) FindByIDs(ctx context.Context, ids []uuid.UUID) ([]*user.User, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var models []UserModel
	if err := conn(ctx, r.db).Preload("Role").Where("id IN ?", ids).Find(&models).Error; err != nil {
		return nil, err
	}
	users := make([]*user.User, len(models))
	for i := range models {
		users[i] = ModelToUser(&models[i])
	}
	return users, nil
}

// List returns a page of users, oldest members first
func (r *UserRepository) List(ctx context.Context, page outbound.Page) ([]*user.User, int64, error) {
	var total int64
	if err := conn(ctx, r.db).Model(&UserModel{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var models []UserModel
	err := conn(ctx, r.db).
		Preload("Role").
		Order("member_since ASC").
		Offset(page.Offset).
		Limit(page.Limit).
		Find(&models).Error
	if err != nil {
		return nil, 0, err
	}
	users := make([]*user.User, len(models))
	for i := range models {
		users[i] = ModelToUser(&models[i])
	}
	return users, total, nil
}
