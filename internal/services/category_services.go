package services

import (
	"context"
	"errors"
	"strings"

	"StoreProAPI/internal/model"
	"StoreProAPI/internal/repository"
)

type CategoryService struct {
	Repo     CategoryStore
	Products ProductStore
}

func NewCategoryService(r CategoryStore, products ProductStore) *CategoryService {
	return &CategoryService{Repo: r, Products: products}
}

// CategoryInput is used for create and partial update. A nil field is left unchanged.
type CategoryInput struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
	ParentID    *int64  `json:"parentcategory"`
}

func (s *CategoryService) Create(ctx context.Context, in CategoryInput) (*model.Category, error) {
	c := &model.Category{}
	if in.Name != nil {
		c.Name = strings.TrimSpace(*in.Name)
	}
	if in.Description != nil {
		c.Description = strings.TrimSpace(*in.Description)
	}
	if c.Name == "" {
		return nil, validation("category name is required")
	}
	if c.Description == "" {
		return nil, validation("category description is required")
	}
	if in.ParentID != nil {
		if _, err := s.Repo.GetByID(ctx, *in.ParentID); err != nil {
			return nil, mapNotFound(err, "parent category not found")
		}
		c.ParentID = in.ParentID
	}

	id, err := s.Repo.Create(ctx, c)
	if err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, validation("a category with that name already exists")
		}
		return nil, err
	}
	c.CategoryID = id
	return c, nil
}

// Get returns the category with its direct subcategories populated.
func (s *CategoryService) Get(ctx context.Context, id int64) (*model.Category, error) {
	c, err := s.Repo.GetByID(ctx, id)
	if err != nil {
		return nil, mapNotFound(err, "no category found with that ID")
	}
	children, err := s.Repo.Children(ctx, id)
	if err != nil {
		return nil, err
	}
	c.Subcategories = children
	return c, nil
}

func (s *CategoryService) List(ctx context.Context, q repository.ListQuery) ([]model.Category, error) {
	return s.Repo.List(ctx, q)
}

func (s *CategoryService) Subcategories(ctx context.Context, id int64) ([]model.Category, error) {
	return s.Repo.Children(ctx, id)
}

func (s *CategoryService) Update(ctx context.Context, id int64, in CategoryInput) (*model.Category, error) {
	if in.ParentID != nil && *in.ParentID == id {
		return nil, businessRule(ErrCircularCategory, "category cannot be its own parent")
	}
	c, err := s.Repo.GetByID(ctx, id)
	if err != nil {
		return nil, mapNotFound(err, "no category found with that ID")
	}

	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		if name == "" {
			return nil, validation("category name is required")
		}
		c.Name = name
	}
	if in.Description != nil {
		desc := strings.TrimSpace(*in.Description)
		if desc == "" {
			return nil, validation("category description is required")
		}
		c.Description = desc
	}
	if in.ParentID != nil {
		if _, err := s.Repo.GetByID(ctx, *in.ParentID); err != nil {
			return nil, mapNotFound(err, "parent category not found")
		}
		below, err := s.Repo.IsDescendant(ctx, id, *in.ParentID)
		if err != nil {
			return nil, err
		}
		if below {
			return nil, businessRule(ErrCircularCategory, "category cannot be moved under its own subcategory")
		}
		c.ParentID = in.ParentID
	}

	if err := s.Repo.Update(ctx, c); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, validation("a category with that name already exists")
		}
		return nil, mapNotFound(err, "no category found with that ID")
	}
	return c, nil
}

// Delete refuses while subcategories or products still reference the category.
func (s *CategoryService) Delete(ctx context.Context, id int64) error {
	if _, err := s.Repo.GetByID(ctx, id); err != nil {
		return mapNotFound(err, "no category found with that ID")
	}
	hasChildren, err := s.Repo.HasChildren(ctx, id)
	if err != nil {
		return err
	}
	if hasChildren {
		return businessRule(nil, "cannot delete category with subcategories, delete subcategories first")
	}
	n, err := s.Products.CountInCategory(ctx, id)
	if err != nil {
		return err
	}
	if n > 0 {
		return businessRule(nil, "cannot delete category with products, remove products first")
	}
	err = s.Repo.Delete(ctx, id)
	if errors.Is(err, repository.ErrInUse) {
		return businessRule(err, "category is still referenced and cannot be deleted")
	}
	return mapNotFound(err, "no category found with that ID")
}
