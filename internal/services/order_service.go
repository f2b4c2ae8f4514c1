package services

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"StoreProAPI/internal/events"
	"StoreProAPI/internal/model"
	"StoreProAPI/internal/repository"
)

type OrderService struct {
	Repo     OrderStore
	Carts    CartStore
	Products ProductStore
	Events   events.Publisher
	Now      func() time.Time
}

func NewOrderService(r OrderStore, carts CartStore, products ProductStore, pub events.Publisher) *OrderService {
	if pub == nil {
		pub = events.Nop{}
	}
	return &OrderService{Repo: r, Carts: carts, Products: products, Events: pub, Now: time.Now}
}

type CreateOrderInput struct {
	ShippingAddress model.Address `json:"shippingAddress"`
	PaymentMethod   string        `json:"paymentMethod"`
}

// CreateFromCart turns the user's cart into an order priced at the current
// effective prices, then empties the cart. Stock is re-checked against live
// products; it is not touched until delivery.
func (s *OrderService) CreateFromCart(ctx context.Context, userID int64, in CreateOrderInput) (*model.Order, error) {
	in.PaymentMethod = strings.TrimSpace(in.PaymentMethod)
	if in.PaymentMethod == "" {
		return nil, validation("payment method is required")
	}

	cart, err := s.Carts.GetByUserID(ctx, userID)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}
	if cart == nil || len(cart.Items) == 0 {
		return nil, businessRule(ErrEmptyCart, "cart is empty")
	}

	o := &model.Order{
		UserID:          userID,
		ShippingAddress: in.ShippingAddress,
		PaymentStatus:   model.PaymentStatusPending,
		OrderStatus:     model.OrderProcessing,
		PaymentMethod:   in.PaymentMethod,
	}
	wanted := make(map[int64]int, len(cart.Items))
	for _, line := range cart.Items {
		p, err := s.Products.GetByID(ctx, line.ProductID)
		if err != nil {
			return nil, mapNotFound(err, fmt.Sprintf("product %d not found", line.ProductID))
		}
		wanted[p.ProductID] += line.Quantity
		if p.StockQuantity < wanted[p.ProductID] {
			return nil, businessRule(ErrInsufficientStock, "not enough stock for "+p.Name)
		}
		price := p.FinalPrice()
		o.Items = append(o.Items, model.OrderItem{
			ProductID:       p.ProductID,
			Variant:         line.Variant,
			Quantity:        line.Quantity,
			PriceAtPurchase: price,
			Name:            p.Name,
		})
		o.TotalAmount += price * float64(line.Quantity)
	}
	o.TotalAmount = math.Round(o.TotalAmount*100) / 100

	id, err := s.Repo.CreateFromCart(ctx, o, cart.CartID)
	if err != nil {
		if errors.Is(err, repository.ErrInsufficientStock) {
			name := strings.TrimPrefix(err.Error(), repository.ErrInsufficientStock.Error()+": ")
			return nil, businessRule(err, "not enough stock for "+name)
		}
		return nil, mapNotFound(err, "product not found")
	}

	created, err := s.Repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	s.Events.Publish(ctx, events.Event{
		Type: events.OrderCreated, OrderID: id, UserID: userID,
		Status: created.OrderStatus, Amount: created.TotalAmount, At: s.Now(),
	})
	return created, nil
}

// List returns the actor's own orders, or every order for an admin.
func (s *OrderService) List(ctx context.Context, actor *model.User, q repository.ListQuery) ([]model.Order, error) {
	if actor.IsAdmin() {
		return s.Repo.List(ctx, nil, q)
	}
	return s.Repo.List(ctx, &actor.UserID, q)
}

func (s *OrderService) ListForUser(ctx context.Context, userID int64, q repository.ListQuery) ([]model.Order, error) {
	return s.Repo.List(ctx, &userID, q)
}

// Get hides other users' orders from non-admins behind a NotFound.
func (s *OrderService) Get(ctx context.Context, actor *model.User, id int64) (*model.Order, error) {
	o, err := s.Repo.GetByID(ctx, id)
	if err != nil {
		return nil, mapNotFound(err, "no order found with that ID")
	}
	if !actor.IsAdmin() && o.UserID != actor.UserID {
		return nil, notFound("no order found with that ID")
	}
	return o, nil
}

// UpdateStatus is admin-only. Moving into delivered decrements stock once;
// repeating delivered leaves stock alone.
func (s *OrderService) UpdateStatus(ctx context.Context, id int64, status string) (*model.Order, error) {
	if !model.ValidOrderStatus(status) {
		return nil, validation("order status must be one of processing, shipped, delivered, cancelled")
	}
	if err := s.Repo.UpdateStatus(ctx, id, status, s.Now()); err != nil {
		if errors.Is(err, repository.ErrInsufficientStock) {
			return nil, businessRule(err, "cannot deliver order: "+err.Error())
		}
		return nil, mapNotFound(err, "no order found with that ID")
	}

	o, err := s.Repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	s.Events.Publish(ctx, events.Event{
		Type: events.OrderStatusChanged, OrderID: id, UserID: o.UserID, Status: status, At: s.Now(),
	})
	return o, nil
}

// Cancel is allowed for the owner or an admin, and only before shipping.
func (s *OrderService) Cancel(ctx context.Context, actor *model.User, id int64) (*model.Order, error) {
	o, err := s.Repo.GetByID(ctx, id)
	if err != nil {
		return nil, mapNotFound(err, "no order found with that ID")
	}
	if !actor.IsAdmin() && o.UserID != actor.UserID {
		return nil, forbidden("you are not authorized to cancel this order")
	}
	if o.OrderStatus == model.OrderShipped || o.OrderStatus == model.OrderDelivered {
		return nil, businessRule(ErrInvalidTransition, "cannot cancel order that has been shipped")
	}

	ok, err := s.Repo.Cancel(ctx, id)
	if err != nil {
		return nil, mapNotFound(err, "no order found with that ID")
	}
	if !ok {
		return nil, businessRule(ErrInvalidTransition, "cannot cancel order that has been shipped")
	}

	o, err = s.Repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	s.Events.Publish(ctx, events.Event{
		Type: events.OrderCancelled, OrderID: id, UserID: o.UserID, Status: o.OrderStatus, At: s.Now(),
	})
	return o, nil
}

func (s *OrderService) Stats(ctx context.Context, userID int64) (*model.OrderStats, error) {
	return s.Repo.Stats(ctx, userID)
}
