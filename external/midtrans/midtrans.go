package midtrans

import (
	"context"
	"crypto/sha512"
	"crypto/subtle"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"math"

	"StoreProAPI/internal/config"
	"StoreProAPI/internal/model"
	"StoreProAPI/internal/services"

	"github.com/midtrans/midtrans-go"
	"github.com/midtrans/midtrans-go/coreapi"
	"github.com/midtrans/midtrans-go/snap"
)

const ProviderName = "midtrans"

// Provider opens charges through Snap and checks or refunds them through the
// Core API. It implements services.PaymentProvider.
type Provider struct {
	serverKey string
	snap      snap.Client
	core      coreapi.Client
}

func NewProvider(cfg config.PaymentConfig) (*Provider, error) {
	if cfg.ServerKey == "" {
		return nil, errors.New("midtrans: payment.server_key not set")
	}
	env := midtrans.Sandbox
	if cfg.Environment == "production" {
		env = midtrans.Production
	}

	p := &Provider{serverKey: cfg.ServerKey}
	p.snap.New(cfg.ServerKey, env)
	p.core.New(cfg.ServerKey, env)
	return p, nil
}

func (p *Provider) Name() string { return ProviderName }

func (p *Provider) Initialize(ctx context.Context, req services.ChargeRequest) (*services.ChargeSession, error) {
	snapReq := &snap.Request{
		TransactionDetails: midtrans.TransactionDetails{
			OrderID:  req.Reference,
			GrossAmt: int64(math.Round(req.Amount)),
		},
		CustomerDetail: &midtrans.CustomerDetails{
			FName: req.CustomerName,
			Email: req.CustomerEmail,
		},
	}
	if req.CallbackURL != "" {
		snapReq.Callbacks = &snap.Callbacks{Finish: req.CallbackURL}
	}

	resp, merr := p.snap.CreateTransaction(snapReq)
	if merr != nil {
		return nil, fmt.Errorf("midtrans: create transaction: %w", merr)
	}
	raw, _ := json.Marshal(resp)
	return &services.ChargeSession{
		Reference:        req.Reference,
		AuthorizationURL: resp.RedirectURL,
		Token:            resp.Token,
		Raw:              raw,
	}, nil
}

func (p *Provider) Verify(ctx context.Context, reference string) (*services.ChargeStatus, error) {
	resp, merr := p.core.CheckTransaction(reference)
	if merr != nil {
		return nil, fmt.Errorf("midtrans: check transaction: %w", merr)
	}
	raw, _ := json.Marshal(resp)
	return &services.ChargeStatus{
		Reference: reference,
		Outcome:   Outcome(resp.TransactionStatus, resp.FraudStatus),
		Raw:       raw,
	}, nil
}

func (p *Provider) Refund(ctx context.Context, reference string, amount float64, reason string) (json.RawMessage, error) {
	resp, merr := p.core.RefundTransaction(reference, &coreapi.RefundReq{
		RefundKey: reference + "-refund",
		Amount:    int64(math.Round(amount)),
		Reason:    reason,
	})
	if merr != nil {
		return nil, fmt.Errorf("midtrans: refund: %w", merr)
	}
	return json.Marshal(resp)
}

type notification struct {
	OrderID           string `json:"order_id"`
	StatusCode        string `json:"status_code"`
	GrossAmount       string `json:"gross_amount"`
	SignatureKey      string `json:"signature_key"`
	TransactionStatus string `json:"transaction_status"`
	FraudStatus       string `json:"fraud_status"`
}

// ParseWebhook checks the notification's signature_key before trusting any
// of its fields.
func (p *Provider) ParseWebhook(body []byte) (*services.ChargeStatus, error) {
	var n notification
	if err := json.Unmarshal(body, &n); err != nil {
		return nil, fmt.Errorf("midtrans: decode notification: %w", err)
	}
	if n.OrderID == "" {
		return nil, errors.New("midtrans: notification without order_id")
	}
	if !VerifySignature(n.OrderID, n.StatusCode, n.GrossAmount, n.SignatureKey, p.serverKey) {
		return nil, services.ErrInvalidSignature
	}
	return &services.ChargeStatus{
		Reference: n.OrderID,
		Outcome:   Outcome(n.TransactionStatus, n.FraudStatus),
		Raw:       json.RawMessage(body),
	}, nil
}

// Outcome maps a Midtrans transaction_status/fraud_status pair to a payment status.
func Outcome(transactionStatus, fraudStatus string) string {
	switch transactionStatus {
	case "settlement":
		return model.PaymentSuccess
	case "capture":
		switch fraudStatus {
		case "accept":
			return model.PaymentSuccess
		case "deny":
			return model.PaymentFailed
		}
	case "deny", "cancel", "expire", "failure":
		return model.PaymentFailed
	}
	return model.PaymentPending
}

// Signature is sha512(order_id + status_code + gross_amount + server_key), hex encoded.
func Signature(orderID, statusCode, grossAmount, serverKey string) string {
	hash := sha512.Sum512([]byte(orderID + statusCode + grossAmount + serverKey))
	return hex.EncodeToString(hash[:])
}

func VerifySignature(orderID, statusCode, grossAmount, signature, serverKey string) bool {
	expected := Signature(orderID, statusCode, grossAmount, serverKey)
	return subtle.ConstantTimeCompare([]byte(expected), []byte(signature)) == 1
}
