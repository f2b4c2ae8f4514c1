package services

import (
	"context"
	"errors"

	"StoreProAPI/internal/model"
	"StoreProAPI/internal/repository"
)

type CartService struct {
	Repo     CartStore
	Products ProductStore
}

func NewCartService(r CartStore, products ProductStore) *CartService {
	return &CartService{Repo: r, Products: products}
}

type AddItemInput struct {
	ProductID int64         `json:"productId"`
	Variant   model.Variant `json:"variant"`
	Quantity  int           `json:"quantity"`
}

// Get returns the user's cart, creating an empty one on first access.
func (s *CartService) Get(ctx context.Context, userID int64) (*model.Cart, error) {
	c, err := s.Repo.GetByUserID(ctx, userID)
	if errors.Is(err, repository.ErrNotFound) {
		return s.Repo.Create(ctx, userID)
	}
	return c, err
}

// existing returns the user's cart without creating one.
func (s *CartService) existing(ctx context.Context, userID int64) (*model.Cart, error) {
	c, err := s.Repo.GetByUserID(ctx, userID)
	if err != nil {
		return nil, mapNotFound(err, "cart not found")
	}
	return c, nil
}

// AddItem adds quantity of a product variant. A repeat add of the same
// product+variant grows the existing line and re-prices it at the current
// effective price.
func (s *CartService) AddItem(ctx context.Context, userID int64, in AddItemInput) (*model.Cart, error) {
	if in.Quantity == 0 {
		in.Quantity = 1
	}
	if in.Quantity < 1 {
		return nil, validation("quantity must be at least 1")
	}
	p, err := s.Products.GetByID(ctx, in.ProductID)
	if err != nil {
		return nil, mapNotFound(err, "product not found")
	}
	if p.StockQuantity < in.Quantity {
		return nil, businessRule(ErrInsufficientStock, "not enough stock available")
	}

	c, err := s.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	item := model.CartItem{
		ProductID:  p.ProductID,
		Variant:    model.Variant{Color: in.Variant.Color, Size: in.Variant.Size},
		Quantity:   in.Quantity,
		PriceAtAdd: p.FinalPrice(),
	}
	if err := s.Repo.AddOrIncrementItem(ctx, c.CartID, item); err != nil {
		return nil, err
	}
	return s.Repo.GetByUserID(ctx, userID)
}

func (s *CartService) UpdateItem(ctx context.Context, userID, itemID int64, qty int) (*model.Cart, error) {
	if qty < 1 {
		return nil, validation("quantity must be at least 1")
	}
	c, err := s.existing(ctx, userID)
	if err != nil {
		return nil, err
	}
	idx := c.ItemByID(itemID)
	if idx < 0 {
		return nil, notFound("item not found in cart")
	}

	p, err := s.Products.GetByID(ctx, c.Items[idx].ProductID)
	if err != nil {
		return nil, mapNotFound(err, "product not found")
	}
	if p.StockQuantity < qty {
		return nil, businessRule(ErrInsufficientStock, "not enough stock available")
	}
	if err := s.Repo.SetItemQuantity(ctx, c.CartID, itemID, qty); err != nil {
		return nil, mapNotFound(err, "item not found in cart")
	}
	return s.Repo.GetByUserID(ctx, userID)
}

func (s *CartService) RemoveItem(ctx context.Context, userID, itemID int64) (*model.Cart, error) {
	c, err := s.existing(ctx, userID)
	if err != nil {
		return nil, err
	}
	if c.ItemByID(itemID) < 0 {
		return nil, notFound("item not found in cart")
	}
	if err := s.Repo.RemoveItem(ctx, c.CartID, itemID); err != nil {
		return nil, mapNotFound(err, "item not found in cart")
	}
	return s.Repo.GetByUserID(ctx, userID)
}

// Clear empties the cart in place.
func (s *CartService) Clear(ctx context.Context, userID int64) (*model.Cart, error) {
	c, err := s.existing(ctx, userID)
	if err != nil {
		return nil, err
	}
	if err := s.Repo.ClearItems(ctx, c.CartID); err != nil {
		return nil, err
	}
	c.Items = []model.CartItem{}
	return c, nil
}
