package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"StoreProAPI/internal/config"
	"StoreProAPI/internal/events"
	"StoreProAPI/internal/model"
	"StoreProAPI/internal/repository"

	"github.com/google/uuid"
)

type PaymentService struct {
	Repo     PaymentStore
	Orders   OrderStore
	Provider PaymentProvider
	Events   events.Publisher
	Config   config.PaymentConfig
	Now      func() time.Time
}

func NewPaymentService(
	pr PaymentStore,
	or OrderStore,
	provider PaymentProvider,
	pub events.Publisher,
	cfg config.PaymentConfig,
) *PaymentService {
	if pub == nil {
		pub = events.Nop{}
	}
	return &PaymentService{
		Repo:     pr,
		Orders:   or,
		Provider: provider,
		Events:   pub,
		Config:   cfg,
		Now:      time.Now,
	}
}

// Initialize opens a provider charge for the actor's order. A pending payment
// that already exists for the order is returned as is; created reports
// whether a new one was made.
func (s *PaymentService) Initialize(ctx context.Context, actor *model.User, orderID int64, email string) (p *model.Payment, created bool, err error) {
	order, err := s.Orders.GetByID(ctx, orderID)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return nil, false, err
	}
	if order == nil || order.UserID != actor.UserID {
		return nil, false, notFound("order not found or unauthorized")
	}
	if order.PaymentStatus == model.PaymentStatusPaid {
		return nil, false, businessRule(ErrAlreadyPaid, "order is already paid")
	}
	if order.OrderStatus == model.OrderCancelled {
		return nil, false, businessRule(ErrInvalidTransition, "cannot pay for a cancelled order")
	}

	existing, err := s.Repo.GetByOrderID(ctx, orderID)
	if err != nil {
		return nil, false, err
	}
	if existing != nil {
		if existing.Status == model.PaymentPending {
			return existing, false, nil
		}
		return nil, false, businessRule(nil, fmt.Sprintf("a %s payment already exists for this order", existing.Status))
	}

	if strings.TrimSpace(email) == "" {
		email = actor.Email
	}
	ref := fmt.Sprintf("ORDER-%d-%s", orderID, uuid.NewString())
	session, err := s.Provider.Initialize(ctx, ChargeRequest{
		Reference:     ref,
		OrderID:       orderID,
		Amount:        order.TotalAmount,
		Currency:      s.Config.Currency,
		CustomerName:  actor.Name,
		CustomerEmail: email,
		CallbackURL:   s.Config.CallbackURL,
	})
	if err != nil {
		return nil, false, upstream("payment initialization failed", err)
	}

	p = &model.Payment{
		OrderID:          orderID,
		Provider:         s.Provider.Name(),
		TransactionID:    ref,
		Status:           model.PaymentPending,
		Amount:           order.TotalAmount,
		Currency:         s.Config.Currency,
		AuthorizationURL: session.AuthorizationURL,
		ProviderResponse: session.Raw,
	}
	id, err := s.Repo.Create(ctx, p)
	if err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			// lost a race with a concurrent initialize for the same order
			if again, gerr := s.Repo.GetByOrderID(ctx, orderID); gerr == nil && again != nil && again.Status == model.PaymentPending {
				return again, false, nil
			}
		}
		return nil, false, err
	}
	p, err = s.Repo.GetByID(ctx, id)
	return p, true, err
}

// Verify asks the provider for the outcome of a pending charge and records
// it. Settled payments are returned without contacting the provider, and a
// charge the provider still reports as pending is left untouched.
func (s *PaymentService) Verify(ctx context.Context, reference string) (*model.Payment, error) {
	if strings.TrimSpace(reference) == "" {
		return nil, validation("no reference provided")
	}
	p, err := s.Repo.GetByTransactionID(ctx, reference)
	if err != nil {
		return nil, mapNotFound(err, "payment not found")
	}
	if p.Status != model.PaymentPending {
		return p, nil
	}

	st, err := s.Provider.Verify(ctx, reference)
	if err != nil {
		return nil, upstream("payment verification failed", err)
	}
	if st.Outcome == model.PaymentPending {
		return p, nil
	}
	if err := s.transition(ctx, p, st.Outcome, st.Raw, nil); err != nil {
		return nil, err
	}
	return s.Repo.GetByID(ctx, p.PaymentID)
}

// RedirectURL is where the browser lands after a redirect-mode verify.
func (s *PaymentService) RedirectURL(p *model.Payment) string {
	page := "order-failed"
	if p.Status == model.PaymentSuccess {
		page = "order-success"
	}
	return fmt.Sprintf("%s/%s?order=%d", strings.TrimRight(s.Config.FrontendURL, "/"), page, p.OrderID)
}

// HandleWebhook applies a provider notification. The caller acknowledges the
// provider whatever this returns; the error is only for logging.
func (s *PaymentService) HandleWebhook(ctx context.Context, body []byte) error {
	st, err := s.Provider.ParseWebhook(body)
	if err != nil {
		return err
	}
	if st.Outcome == model.PaymentPending {
		return nil
	}

	p, err := s.Repo.GetByTransactionID(ctx, st.Reference)
	if err != nil {
		return mapNotFound(err, "payment not found for reference "+st.Reference)
	}
	if p.Status != model.PaymentPending {
		// already processed
		return nil
	}
	return s.transition(ctx, p, st.Outcome, st.Raw, nil)
}

// Refund returns a successful payment's money through the provider.
func (s *PaymentService) Refund(ctx context.Context, paymentID int64, reason string) (*model.Payment, json.RawMessage, error) {
	p, err := s.Repo.GetByID(ctx, paymentID)
	if err != nil {
		return nil, nil, mapNotFound(err, "payment not found")
	}
	if p.Provider != s.Provider.Name() {
		return nil, nil, businessRule(nil, fmt.Sprintf("only %s payments can be refunded via this endpoint", s.Provider.Name()))
	}
	switch p.Status {
	case model.PaymentSuccess:
	case model.PaymentRefunded:
		return nil, nil, businessRule(ErrInvalidTransition, "payment is already refunded")
	default:
		return nil, nil, businessRule(ErrInvalidTransition, "only successful payments can be refunded")
	}
	if strings.TrimSpace(reason) == "" {
		reason = "Refund requested by admin"
	}

	refund, err := s.Provider.Refund(ctx, p.TransactionID, p.Amount, reason)
	if err != nil {
		return nil, nil, upstream("refund failed", err)
	}
	if err := s.transition(ctx, p, model.PaymentRefunded, withRefund(p.ProviderResponse, refund), &reason); err != nil {
		return nil, nil, err
	}
	p, err = s.Repo.GetByID(ctx, paymentID)
	return p, refund, err
}

// Get lets owners and admins read a payment.
func (s *PaymentService) Get(ctx context.Context, actor *model.User, id int64) (*model.Payment, error) {
	p, err := s.Repo.GetByID(ctx, id)
	if err != nil {
		return nil, mapNotFound(err, "payment not found")
	}
	if !actor.IsAdmin() && p.OrderUserID != actor.UserID {
		return nil, forbidden("you are not authorized to view this payment")
	}
	return p, nil
}

func (s *PaymentService) List(ctx context.Context, q repository.ListQuery) ([]model.Payment, error) {
	return s.Repo.List(ctx, q)
}

// transition moves p to status `to` and cascades the order's payment status.
// Losing a compare-and-set race to another writer is not an error.
func (s *PaymentService) transition(ctx context.Context, p *model.Payment, to string, raw json.RawMessage, reason *string) error {
	if !model.CanTransition(p.Status, to) {
		return businessRule(ErrInvalidTransition, fmt.Sprintf("payment cannot move from %s to %s", p.Status, to))
	}
	at := s.Now()
	moved, err := s.Repo.Transition(ctx, repository.PaymentTransition{
		PaymentID:    p.PaymentID,
		OrderID:      p.OrderID,
		From:         p.Status,
		To:           to,
		Payload:      raw,
		RefundReason: reason,
		At:           at,
	})
	if err != nil {
		return err
	}
	if !moved {
		if to == model.PaymentRefunded {
			return businessRule(ErrInvalidTransition, "payment is no longer refundable")
		}
		return nil
	}

	ev := events.Event{OrderID: p.OrderID, UserID: p.OrderUserID, PaymentID: p.PaymentID, Status: to, Amount: p.Amount, At: at}
	switch to {
	case model.PaymentSuccess:
		ev.Type = events.PaymentSucceeded
	case model.PaymentFailed:
		ev.Type = events.PaymentFailed
	case model.PaymentRefunded:
		ev.Type = events.PaymentRefunded
	}
	s.Events.Publish(ctx, ev)
	return nil
}

// withRefund nests the refund response under "refund" in the stored provider payload.
func withRefund(stored, refund json.RawMessage) json.RawMessage {
	doc := map[string]json.RawMessage{}
	if len(stored) > 0 {
		if err := json.Unmarshal(stored, &doc); err != nil {
			doc = map[string]json.RawMessage{"charge": stored}
		}
	}
	if doc == nil {
		doc = map[string]json.RawMessage{}
	}
	if len(refund) > 0 {
		doc["refund"] = refund
	}
	out, err := json.Marshal(doc)
	if err != nil {
		return stored
	}
	return out
}
