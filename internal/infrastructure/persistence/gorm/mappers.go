package gorm

import (
	"github.com/tymenu/tymenu/internal/domain/plan"
	"github.com/tymenu/tymenu/internal/domain/recipe"
	"github.com/tymenu/tymenu/internal/domain/user"
)

// RoleToModel converts a domain role to a GORM model
func RoleToModel(r *user.Role) *RoleModel {
	s := r.Snapshot()
	return &RoleModel{
		ID:          s.ID,
		Name:        s.Name,
		IsDefault:   s.IsDefault,
		Permissions: int(s.Permissions),
	}
}

// ModelToRole converts a GORM model to a domain role
func ModelToRole(m *RoleModel) *user.Role {
	if m == nil {
		return nil
	}
	return user.RoleFromSnapshot(user.RoleSnapshot{
		ID:          m.ID,
		Name:        m.Name,
		IsDefault:   m.IsDefault,
		Permissions: user.Permission(m.Permissions),
	})
}

// UserToModel converts a domain user to a GORM model
func UserToModel(u *user.User) *UserModel {
	s := u.Snapshot()
	m := &UserModel{
		ID:           s.ID,
		Email:        s.Email,
		Username:     s.Username,
		PasswordHash: s.PasswordHash,
		AvatarHash:   s.AvatarHash,
		MemberSince:  s.MemberSince,
	}
	if s.Role != nil {
		id := s.Role.ID()
		m.RoleID = &id
	}
	return m
}

// ModelToUser converts a GORM model to a domain user. The role must be preloaded.
func ModelToUser(m *UserModel) *user.User {
	return user.FromSnapshot(user.Snapshot{
		ID:           m.ID,
		Email:        m.Email,
		Username:     m.Username,
		PasswordHash: m.PasswordHash,
		Role:         ModelToRole(m.Role),
		AvatarHash:   m.AvatarHash,
		MemberSince:  m.MemberSince,
	})
}

// RecipeToModel converts a domain recipe to a GORM model
func RecipeToModel(r *recipe.Recipe) *RecipeModel {
	s := r.Snapshot()
	c := s.Content
	return &RecipeModel{
		ID:               s.ID,
		AuthorID:         s.AuthorID,
		Title:            c.Title,
		Ingredients:      c.Ingredients,
		Instructions:     c.Instructions,
		Background:       c.Background,
		Keywords:         c.Keywords,
		Source:           c.Source,
		Servings:         c.Servings,
		Kcal:             c.Kcal,
		KcalType:         int(c.KcalType),
		ProteinGram:      c.ProteinGram,
		CarbGram:         c.CarbGram,
		FatGram:          c.FatGram,
		CookingTimeMin:   c.CookingTimeMin,
		IngredientsHTML:  s.IngredientsHTML,
		InstructionsHTML: s.InstructionsHTML,
		BackgroundHTML:   s.BackgroundHTML,
		ImgDisplayURL:    s.Image.Display,
		ImgDeleteURL:     s.Image.Delete,
		ImgThumbnailURL:  s.Image.Thumbnail,
		ImgViewerURL:     s.Image.Viewer,
		CreatedAt:        s.CreatedAt,
		LastUpdated:      s.LastUpdated,
	}
}

// ModelToRecipe converts a GORM model to a domain recipe
func ModelToRecipe(m *RecipeModel) *recipe.Recipe {
	return recipe.FromSnapshot(recipe.Snapshot{
		ID:       m.ID,
		AuthorID: m.AuthorID,
		Content: recipe.Content{
			Title:          m.Title,
			Ingredients:    m.Ingredients,
			Instructions:   m.Instructions,
			Background:     m.Background,
			Keywords:       m.Keywords,
			Source:         m.Source,
			Servings:       m.Servings,
			Kcal:           m.Kcal,
			KcalType:       recipe.KcalType(m.KcalType),
			ProteinGram:    m.ProteinGram,
			CarbGram:       m.CarbGram,
			FatGram:        m.FatGram,
			CookingTimeMin: m.CookingTimeMin,
		},
		IngredientsHTML:  m.IngredientsHTML,
		InstructionsHTML: m.InstructionsHTML,
		BackgroundHTML:   m.BackgroundHTML,
		Image: recipe.ImageURLs{
			Display:   m.ImgDisplayURL,
			Delete:    m.ImgDeleteURL,
			Thumbnail: m.ImgThumbnailURL,
			Viewer:    m.ImgViewerURL,
		},
		CreatedAt:   m.CreatedAt,
		LastUpdated: m.LastUpdated,
	})
}

func modelsToRecipes(models []RecipeModel) []*recipe.Recipe {
	recipes := make([]*recipe.Recipe, len(models))
	for i := range models {
		recipes[i] = ModelToRecipe(&models[i])
	}
	return recipes
}

// PlanToModel converts the plan row without its items and instances
func PlanToModel(p *plan.MenuPlan) *MenuPlanModel {
	s := p.Snapshot()
	return &MenuPlanModel{
		ID:              s.ID,
		Title:           s.Title,
		Description:     s.Description,
		DescriptionHTML: s.DescriptionHTML,
		AddedByID:       s.AddedByID,
		CreatedAt:       s.CreatedAt,
	}
}

func ItemToModel(i *plan.Item) *MenuPlanItemModel {
	return &MenuPlanItemModel{
		ID:           i.ID,
		MenuPlanID:   i.PlanID,
		RecipeID:     i.RecipeID,
		Day:          i.Day,
		DaysLeftover: i.DaysLeftover,
	}
}

func ModelToItem(m *MenuPlanItemModel) *plan.Item {
	return &plan.Item{
		ID:           m.ID,
		PlanID:       m.MenuPlanID,
		RecipeID:     m.RecipeID,
		Day:          m.Day,
		DaysLeftover: m.DaysLeftover,
	}
}

func InstanceToModel(i *plan.Instance) *MenuPlanInstanceModel {
	return &MenuPlanInstanceModel{ID: i.ID, MenuPlanID: i.PlanID, Date: i.Date}
}

func ModelToInstance(m *MenuPlanInstanceModel) *plan.Instance {
	return &plan.Instance{ID: m.ID, PlanID: m.MenuPlanID, Date: plan.TruncateDay(m.Date)}
}

// ModelToPlan converts a GORM model with its preloaded children
func ModelToPlan(m *MenuPlanModel) *plan.MenuPlan {
	items := make([]*plan.Item, len(m.Items))
	for i := range m.Items {
		items[i] = ModelToItem(&m.Items[i])
	}
	instances := make([]*plan.Instance, len(m.Instances))
	for i := range m.Instances {
		instances[i] = ModelToInstance(&m.Instances[i])
	}
	return plan.FromSnapshot(plan.Snapshot{
		ID:              m.ID,
		Title:           m.Title,
		Description:     m.Description,
		DescriptionHTML: m.DescriptionHTML,
		AddedByID:       m.AddedByID,
		CreatedAt:       m.CreatedAt,
		Items:           items,
		Instances:       instances,
	})
}
