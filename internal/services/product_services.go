package services

import (
	"context"
	"errors"
	"strings"

	"StoreProAPI/internal/model"
	"StoreProAPI/internal/repository"
)

// ImageStore removes previously uploaded product images.
type ImageStore interface {
	Delete(ctx context.Context, url string) error
}

type ProductService struct {
	Repo       ProductStore
	Categories CategoryStore
	Images     ImageStore
}

func NewProductService(r ProductStore, categories CategoryStore, images ImageStore) *ProductService {
	return &ProductService{Repo: r, Categories: categories, Images: images}
}

// ProductInput is used for create and partial update. Images holds URLs of
// freshly uploaded files; when non-empty on update it replaces the old set.
type ProductInput struct {
	Name          *string          `json:"name"`
	Description   *string          `json:"description"`
	CategoryID    *int64           `json:"category"`
	Price         *float64         `json:"price"`
	DiscountPrice *float64         `json:"discountprice"`
	StockQuantity *int             `json:"stockquantity"`
	Specs         *[]string        `json:"specs"`
	Variants      *[]model.Variant `json:"variants"`
	Images        []string         `json:"-"`
}

func (in ProductInput) apply(p *model.Product) {
	if in.Name != nil {
		p.Name = strings.TrimSpace(*in.Name)
	}
	if in.Description != nil {
		p.Description = strings.TrimSpace(*in.Description)
	}
	if in.CategoryID != nil {
		p.CategoryID = *in.CategoryID
	}
	if in.Price != nil {
		p.Price = *in.Price
	}
	if in.DiscountPrice != nil {
		p.DiscountPrice = in.DiscountPrice
	}
	if in.StockQuantity != nil {
		p.StockQuantity = *in.StockQuantity
	}
	if in.Specs != nil {
		p.Specs = *in.Specs
	}
	if in.Variants != nil {
		p.Variants = *in.Variants
	}
	if len(in.Images) > 0 {
		p.Images = in.Images
	}
}

func (s *ProductService) validate(ctx context.Context, p *model.Product) error {
	if p.Name == "" {
		return validation("product name is required")
	}
	if p.Description == "" {
		return validation("product description is required")
	}
	if p.Price < 0 {
		return validation("price must be >= 0")
	}
	if p.DiscountPrice != nil && (*p.DiscountPrice < 0 || *p.DiscountPrice >= p.Price) {
		return validation("discount price must be below the regular price")
	}
	if p.StockQuantity < 0 {
		return validation("stock quantity must be >= 0")
	}
	if p.CategoryID == 0 {
		return validation("product must have a category")
	}
	if _, err := s.Categories.GetByID(ctx, p.CategoryID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return validation("invalid category ID")
		}
		return err
	}
	return nil
}

func (s *ProductService) Create(ctx context.Context, in ProductInput) (*model.Product, error) {
	if len(in.Images) == 0 {
		return nil, validation("please upload at least one product image")
	}
	if in.Price == nil {
		return nil, validation("product price is required")
	}
	p := &model.Product{Specs: []string{}, Variants: []model.Variant{}}
	in.apply(p)
	if err := s.validate(ctx, p); err != nil {
		return nil, err
	}

	id, err := s.Repo.Create(ctx, p)
	if err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, validation("variant SKU already in use")
		}
		return nil, err
	}
	return s.Get(ctx, id)
}

func (s *ProductService) Get(ctx context.Context, id int64) (*model.Product, error) {
	p, err := s.Repo.GetByID(ctx, id)
	if err != nil {
		return nil, mapNotFound(err, "no product found with that ID")
	}
	return p, nil
}

func (s *ProductService) List(ctx context.Context, q repository.ListQuery) ([]model.Product, error) {
	return s.Repo.List(ctx, q)
}

func (s *ProductService) ByCategory(ctx context.Context, categoryID int64) ([]model.Product, error) {
	return s.Repo.ListByCategory(ctx, categoryID)
}

func (s *ProductService) Search(ctx context.Context, term string) ([]model.Product, error) {
	term = strings.TrimSpace(term)
	if term == "" {
		return nil, validation("please provide a search query")
	}
	return s.Repo.Search(ctx, term)
}

func (s *ProductService) Update(ctx context.Context, id int64, in ProductInput) (*model.Product, error) {
	p, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	oldImages := p.Images
	if in.Variants == nil {
		p.Variants = nil
	}
	in.apply(p)
	if err := s.validate(ctx, p); err != nil {
		return nil, err
	}
	if err := s.Repo.Update(ctx, p); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, validation("variant SKU already in use")
		}
		return nil, mapNotFound(err, "no product found with that ID")
	}
	if len(in.Images) > 0 {
		s.removeImages(ctx, oldImages)
	}
	return s.Get(ctx, id)
}

// Delete removes the product and then its images.
func (s *ProductService) Delete(ctx context.Context, id int64) error {
	p, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := s.Repo.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrInUse) {
			return businessRule(err, "product has existing orders and cannot be deleted")
		}
		return mapNotFound(err, "no product found with that ID")
	}
	s.removeImages(ctx, p.Images)
	return nil
}

// removeImages is best effort: a leftover file never fails the request.
func (s *ProductService) removeImages(ctx context.Context, urls []string) {
	if s.Images == nil {
		return
	}
	for _, u := range urls {
		_ = s.Images.Delete(ctx, u)
	}
}
