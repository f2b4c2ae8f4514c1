package model

import (
	"encoding/json"
	"time"
)

// Payment status values
const (
	PaymentPending  = "pending"
	PaymentSuccess  = "success"
	PaymentFailed   = "failed"
	PaymentRefunded = "refunded"
)

// CanTransition encodes the payment state machine:
// pending -> success|failed, success -> refunded.
func CanTransition(from, to string) bool {
	switch from {
	case PaymentPending:
		return to == PaymentSuccess || to == PaymentFailed
	case PaymentSuccess:
		return to == PaymentRefunded
	}
	return false
}

// OrderPaymentStatus maps a payment status onto Order.PaymentStatus.
func OrderPaymentStatus(paymentStatus string) string {
	switch paymentStatus {
	case PaymentSuccess:
		return PaymentStatusPaid
	case PaymentFailed:
		return PaymentStatusFailed
	case PaymentRefunded:
		return PaymentStatusRefunded
	}
	return PaymentStatusPending
}

type Payment struct {
	PaymentID        int64           `db:"paymentid" json:"payment_id"`
	OrderID          int64           `db:"orderid" json:"order_id"`
	OrderUserID      int64           `db:"userid" json:"-"`
	Provider         string          `db:"provider" json:"provider"`
	TransactionID    string          `db:"transactionid" json:"transaction_id"`
	Status           string          `db:"status" json:"status"`
	Amount           float64         `db:"amount" json:"amount"`
	Currency         string          `db:"currency" json:"currency"`
	AuthorizationURL string          `db:"authorizationurl" json:"authorization_url,omitempty"`
	ProviderResponse json.RawMessage `db:"providerresponse" json:"provider_response,omitempty"`
	RefundReason     *string         `db:"refundreason" json:"refund_reason,omitempty"`
	PaidAt           *time.Time      `db:"paidat" json:"paid_at,omitempty"`
	FailedAt         *time.Time      `db:"failedat" json:"failed_at,omitempty"`
	RefundedAt       *time.Time      `db:"refundedat" json:"refunded_at,omitempty"`
	CreatedAt        time.Time       `db:"createdat" json:"created_at"`
}
