package gorm

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tymenu/tymenu/internal/domain/plan"
	"github.com/tymenu/tymenu/internal/ports/outbound"
)

// PlanRepository implements the menu plan repository interface using GORM
type PlanRepository struct {
	db *gorm.DB
}

func NewPlanRepository(db *gorm.DB) *PlanRepository {
	return &PlanRepository{db: db}
}

var _ outbound.PlanRepository = (*PlanRepository)(nil)

// Create inserts the plan row and any items or instances it already has
func (r *PlanRepository) Create(ctx context.Context, p *plan.MenuPlan) error {
	db := conn(ctx, r.db)
	if err := db.Create(PlanToModel(p)).Error; err != nil {
		return err
	}
	for _, item := range p.Items() {
		if err := db.Create(ItemToModel(item)).Error; err != nil {
			return err
		}
	}
	for _, inst := range p.Instances() {
		if err := db.Create(InstanceToModel(inst)).Error; err != nil {
			return err
		}
	}
	return nil
}

// Update saves the title and description
func (r *PlanRepository) Update(ctx context.Context, p *plan.MenuPlan) error {
	result := conn(ctx, r.db).Model(&MenuPlanModel{}).Where("id = ?", p.ID()).Updates(map[string]interface{}{
		"title":            p.Title(),
		"description":      p.Description(),
		"description_html": p.DescriptionHTML(),
	})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return plan.ErrPlanNotFound
	}
	return nil
}

// Delete removes the plan with its items and instances. Callers should run
// it inside a transaction.
func (r *PlanRepository) Delete(ctx context.Context, id uuid.UUID) error {
	db := conn(ctx, r.db)
	if err := db.Where("menu_plan_id = ?", id).Delete(&MenuPlanItemModel{}).Error; err != nil {
		return err
	}
	if err := db.Where("menu_plan_id = ?", id).Delete(&MenuPlanInstanceModel{}).Error; err != nil {
		return err
	}
	result := db.Delete(&MenuPlanModel{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return plan.ErrPlanNotFound
	}
	return nil
}

func preloadChildren(db *gorm.DB) *gorm.DB {
	return db.
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("day ASC") }).
		Preload("Instances", func(db *gorm.DB) *gorm.DB { return db.Order("date ASC") })
}

// FindByID loads a plan with its items and instances
func (r *PlanRepository) FindByID(ctx context.Context, id uuid.UUID) (*plan.MenuPlan, error) {
	var model MenuPlanModel
	if err := preloadChildren(conn(ctx, r.db)).First(&model, "id = ?", id).Error; err != nil {
		if isNotFound(err) {
			return nil, plan.ErrPlanNotFound
		}
		return nil, err
	}
	return ModelToPlan(&model), nil
}

// List returns every plan, newest first
func (r *PlanRepository) List(ctx context.Context) ([]*plan.MenuPlan, error) {
	var models []MenuPlanModel
	if err := preloadChildren(conn(ctx, r.db)).Order("created_at DESC").Find(&models).Error; err != nil {
		return nil, err
	}
	plans := make([]*plan.MenuPlan, len(models))
	for i := range models {
		plans[i] = ModelToPlan(&models[i])
	}
	return plans, nil
}

func (r *PlanRepository) AddItem(ctx context.Context, item *plan.Item) error {
	return conn(ctx, r.db).Create(ItemToModel(item)).Error
}

func (r *PlanRepository) FindItem(ctx context.Context, itemID uuid.UUID) (*plan.Item, error) {
	var model MenuPlanItemModel
	if err := conn(ctx, r.db).First(&model, "id = ?", itemID).Error; err != nil {
		if isNotFound(err) {
			return nil, plan.ErrItemNotFound
		}
		return nil, err
	}
	return ModelToItem(&model), nil
}

func (r *PlanRepository) DeleteItem(ctx context.Context, itemID uuid.UUID) error {
	result := conn(ctx, r.db).Delete(&MenuPlanItemModel{}, "id = ?", itemID)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return plan.ErrItemNotFound
	}
	return nil
}

func (r *PlanRepository) AddInstance(ctx context.Context, inst *plan.Instance) error {
	return conn(ctx, r.db).Create(InstanceToModel(inst)).Error
}

// InstancesBetween returns the instances dated within [from, to], by date
func (r *PlanRepository) InstancesBetween(ctx context.Context, from, to time.Time) ([]*plan.Instance, error) {
	var models []MenuPlanInstanceModel
	err := conn(ctx, r.db).
		Where("date >= ? AND date <= ?", plan.TruncateDay(from), plan.TruncateDay(to)).
		Order("date ASC").
		Find(&models).Error
	if err != nil {
		return nil, err
	}
	instances := make([]*plan.Instance, len(models))
	for i := range models {
		instances[i] = ModelToInstance(&models[i])
	}
	return instances, nil
}
