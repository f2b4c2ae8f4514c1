package services

import (
	"context"
	"encoding/json"
	"time"

	"StoreProAPI/internal/model"
	"StoreProAPI/internal/repository"
)

// The store interfaces below are satisfied by the pgx repositories in
// internal/repository.

type UserStore interface {
	Create(ctx context.Context, u *model.User) (int64, error)
	GetByID(ctx context.Context, id int64) (*model.User, error)
	GetByEmail(ctx context.Context, email string) (*model.User, error)
	GetByResetToken(ctx context.Context, tokenHash string, now time.Time) (*model.User, error)
	List(ctx context.Context, q repository.ListQuery) ([]model.User, error)
	UpdateProfile(ctx context.Context, u *model.User) error
	SetActive(ctx context.Context, id int64, active bool) error
	Delete(ctx context.Context, id int64) error
	SetPassword(ctx context.Context, id int64, hash string, changedAt time.Time) error
	SetResetToken(ctx context.Context, id int64, tokenHash *string, expires *time.Time) error
}

type CategoryStore interface {
	Create(ctx context.Context, c *model.Category) (int64, error)
	GetByID(ctx context.Context, id int64) (*model.Category, error)
	List(ctx context.Context, q repository.ListQuery) ([]model.Category, error)
	Children(ctx context.Context, id int64) ([]model.Category, error)
	Update(ctx context.Context, c *model.Category) error
	Delete(ctx context.Context, id int64) error
	IsDescendant(ctx context.Context, rootID, candidateID int64) (bool, error)
	HasChildren(ctx context.Context, id int64) (bool, error)
}

type ProductStore interface {
	Create(ctx context.Context, p *model.Product) (int64, error)
	GetByID(ctx context.Context, id int64) (*model.Product, error)
	List(ctx context.Context, q repository.ListQuery) ([]model.Product, error)
	ListByCategory(ctx context.Context, categoryID int64) ([]model.Product, error)
	Search(ctx context.Context, term string) ([]model.Product, error)
	Update(ctx context.Context, p *model.Product) error
	Delete(ctx context.Context, id int64) error
	CountInCategory(ctx context.Context, categoryID int64) (int64, error)
}

type CartStore interface {
	GetByUserID(ctx context.Context, userID int64) (*model.Cart, error)
	Create(ctx context.Context, userID int64) (*model.Cart, error)
	AddOrIncrementItem(ctx context.Context, cartID int64, it model.CartItem) error
	SetItemQuantity(ctx context.Context, cartID, itemID int64, qty int) error
	RemoveItem(ctx context.Context, cartID, itemID int64) error
	ClearItems(ctx context.Context, cartID int64) error
}

type OrderStore interface {
	CreateFromCart(ctx context.Context, o *model.Order, cartID int64) (int64, error)
	GetByID(ctx context.Context, id int64) (*model.Order, error)
	List(ctx context.Context, userID *int64, q repository.ListQuery) ([]model.Order, error)
	UpdateStatus(ctx context.Context, id int64, status string, at time.Time) error
	Cancel(ctx context.Context, id int64) (bool, error)
	Stats(ctx context.Context, userID int64) (*model.OrderStats, error)
}

type PaymentStore interface {
	Create(ctx context.Context, p *model.Payment) (int64, error)
	GetByID(ctx context.Context, id int64) (*model.Payment, error)
	GetByOrderID(ctx context.Context, orderID int64) (*model.Payment, error)
	GetByTransactionID(ctx context.Context, ref string) (*model.Payment, error)
	List(ctx context.Context, q repository.ListQuery) ([]model.Payment, error)
	Transition(ctx context.Context, t repository.PaymentTransition) (bool, error)
}

type ChargeRequest struct {
	Reference     string
	OrderID       int64
	Amount        float64
	Currency      string
	CustomerName  string
	CustomerEmail string
	CallbackURL   string
}

// ChargeSession is what the provider hands back when a charge is opened.
type ChargeSession struct {
	Reference        string
	AuthorizationURL string
	Token            string
	Raw              json.RawMessage
}

// ChargeStatus is a provider's view of a charge. Outcome is one of
// model.PaymentSuccess, model.PaymentFailed or model.PaymentPending.
type ChargeStatus struct {
	Reference string
	Outcome   string
	Raw       json.RawMessage
}

// PaymentProvider is a hosted payment gateway.
type PaymentProvider interface {
	Name() string
	Initialize(ctx context.Context, req ChargeRequest) (*ChargeSession, error)
	Verify(ctx context.Context, reference string) (*ChargeStatus, error)
	Refund(ctx context.Context, reference string, amount float64, reason string) (json.RawMessage, error)
	// ParseWebhook authenticates and decodes a notification body. It returns
	// ErrInvalidSignature when the body was not signed by the provider.
	ParseWebhook(body []byte) (*ChargeStatus, error)
}
