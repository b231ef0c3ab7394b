// Package gorm provides GORM-based repository implementations
package gorm

import (
	"time"

	"github.com/google/uuid"
)

// RoleModel represents the GORM model for roles
type RoleModel struct {
	ID          uuid.UUID `gorm:"type:char(36);primaryKey"`
	Name        string    `gorm:"type:varchar(64);uniqueIndex;not null"`
	IsDefault   bool      `gorm:"column:is_default;default:false;index"`
	Permissions int       `gorm:"not null;default:0"`
}

func (RoleModel) TableName() string { return "roles" }

// UserModel represents the GORM model for users
type UserModel struct {
	ID           uuid.UUID  `gorm:"type:char(36);primaryKey"`
	Email        string     `gorm:"type:varchar(64);uniqueIndex;not null"`
	Username     string     `gorm:"type:varchar(64);uniqueIndex;not null"`
	PasswordHash string     `gorm:"type:varchar(128);not null"`
	RoleID       *uuid.UUID `gorm:"type:char(36);index"`
	Role         *RoleModel `gorm:"foreignKey:RoleID"`
	AvatarHash   string     `gorm:"type:varchar(32)"`
	MemberSince  time.Time  `gorm:"not null;index"`
}

func (UserModel) TableName() string { return "users" }

// RecipeModel represents the GORM model for recipes
type RecipeModel struct {
	ID             uuid.UUID  `gorm:"type:char(36);primaryKey"`
	AuthorID       uuid.UUID  `gorm:"type:char(36);not null;index"`
	Author         *UserModel `gorm:"foreignKey:AuthorID"`
	Title          string     `gorm:"type:varchar(64);uniqueIndex;not null"`
	Ingredients    string     `gorm:"type:text;not null"`
	Instructions   string     `gorm:"type:text;not null"`
	Background     string     `gorm:"type:text"`
	Keywords       string     `gorm:"type:text;not null"`
	Source         string     `gorm:"type:text"`
	Servings       int        `gorm:"not null"`
	Kcal           *float64
	KcalType       int `gorm:"not null;default:1"`
	ProteinGram    *float64
	CarbGram       *float64
	FatGram        *float64
	CookingTimeMin *float64

	IngredientsHTML  string `gorm:"column:ingredients_html;type:text"`
	InstructionsHTML string `gorm:"column:instructions_html;type:text"`
	BackgroundHTML   string `gorm:"column:background_html;type:text"`

	ImgDisplayURL   string `gorm:"column:img_display_url;type:text"`
	ImgDeleteURL    string `gorm:"column:img_delete_url;type:text"`
	ImgThumbnailURL string `gorm:"column:img_thumbnail_url;type:text"`
	ImgViewerURL    string `gorm:"column:img_viewer_url;type:text"`

	CreatedAt   time.Time `gorm:"not null;index"`
	LastUpdated *time.Time
}

func (RecipeModel) TableName() string { return "recipes" }

// MenuPlanModel represents the GORM model for menu plans
type MenuPlanModel struct {
	ID              uuid.UUID               `gorm:"type:char(36);primaryKey"`
	Title           string                  `gorm:"type:varchar(255);not null"`
	Description     string                  `gorm:"type:text"`
	DescriptionHTML string                  `gorm:"column:description_html;type:text"`
	AddedByID       uuid.UUID               `gorm:"type:char(36);index"`
	CreatedAt       time.Time               `gorm:"not null"`
	Items           []MenuPlanItemModel     `gorm:"foreignKey:MenuPlanID;constraint:OnDelete:CASCADE"`
	Instances       []MenuPlanInstanceModel `gorm:"foreignKey:MenuPlanID;constraint:OnDelete:CASCADE"`
}

func (MenuPlanModel) TableName() string { return "menu_plans" }

// MenuPlanItemModel joins a plan and a recipe on a day offset
type MenuPlanItemModel struct {
	ID           uuid.UUID `gorm:"type:char(36);primaryKey"`
	MenuPlanID   uuid.UUID `gorm:"type:char(36);not null;index"`
	RecipeID     uuid.UUID `gorm:"type:char(36);not null;index"`
	Day          int       `gorm:"not null"`
	DaysLeftover int       `gorm:"not null;default:0"`
}

func (MenuPlanItemModel) TableName() string { return "menu_plan_items" }

// MenuPlanInstanceModel schedules a plan on a date
type MenuPlanInstanceModel struct {
	ID         uuid.UUID `gorm:"type:char(36);primaryKey"`
	MenuPlanID uuid.UUID `gorm:"type:char(36);not null;index"`
	Date       time.Time `gorm:"not null;index"`
}

func (MenuPlanInstanceModel) TableName() string { return "menu_plan_instances" }

// AllModels lists the models in dependency order for AutoMigrate.
func AllModels() []interface{} {
	return []interface{}{
		&RoleModel{},
		&UserModel{},
		&RecipeModel{},
		&MenuPlanModel{},
		&MenuPlanItemModel{},
		&MenuPlanInstanceModel{},
	}
}
