package gorm

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/tymenu/tymenu/internal/domain/user"
	"github.com/tymenu/tymenu/internal/ports/outbound"
)

// RoleRepository implements the role repository interface using GORM
type RoleRepository struct {
	db *gorm.DB
}

func NewRoleRepository(db *gorm.DB) *RoleRepository {
	return &RoleRepository{db: db}
}

var _ outbound.RoleRepository = (*RoleRepository)(nil)

// Save upserts on the role name, keeping the stored id.
func (r *RoleRepository) Save(ctx context.Context, role *user.Role) error {
	model := RoleToModel(role)
	return conn(ctx, r.db).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "name"}},
		DoUpdates: clause.AssignmentColumns([]string{"is_default", "permissions"}),
	}).Create(model).Error
}

// FindAll returns roles in ascending order of privilege.
func (r *RoleRepository) FindAll(ctx context.Context) ([]*user.Role, error) {
	var models []RoleModel
	if err := conn(ctx, r.db).Order("permissions ASC, name ASC").Find(&models).Error; err != nil {
		return nil, err
	}
	roles := make([]*user.Role, len(models))
	for i := range models {
		roles[i] = ModelToRole(&models[i])
	}
	return roles, nil
}

func (r *RoleRepository) FindByName(ctx context.Context, name string) (*user.Role, error) {
	var model RoleModel
	if err := conn(ctx, r.db).Where("LOWER(name) = LOWER(?)", name).First(&model).Error; err != nil {
		if isNotFound(err) {
			return nil, user.ErrRoleNotFound
		}
		return nil, err
	}
	return ModelToRole(&model), nil
}

func (r *RoleRepository) FindDefault(ctx context.Context) (*user.Role, error) {
	var model RoleModel
	if err := conn(ctx, r.db).Where("is_default = ?", true).First(&model).Error; err != nil {
		if isNotFound(err) {
			return nil, user.ErrRoleNotFound
		}
		return nil, err
	}
	return ModelToRole(&model), nil
}
