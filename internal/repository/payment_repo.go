package repository

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"StoreProAPI/internal/model"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PaymentRepository struct {
	DB *pgxpool.Pool
}

func NewPaymentRepository(db *pgxpool.Pool) *PaymentRepository {
	return &PaymentRepository{DB: db}
}

var PaymentFields = map[string]Field{
	"status":     {Column: "p.status", Kind: KindText},
	"provider":   {Column: "p.provider", Kind: KindText},
	"amount":     {Column: "p.amount", Kind: KindNumber},
	"currency":   {Column: "p.currency", Kind: KindText},
	"order":      {Column: "p.orderid", Kind: KindInt},
	"created_at": {Column: "p.created_at", Kind: KindText},
}

const paymentSelect = `
	SELECT p.paymentid, p.orderid, o.userid, p.provider, p.transactionid, p.status, p.amount::float8, p.currency,
		p.authorizationurl, p.providerresponse, p.refundreason, p.paidat, p.failedat, p.refundedat, p.created_at
	FROM payments p
	JOIN orders o ON o.orderid = p.orderid`

func scanPayment(row pgx.Row) (*model.Payment, error) {
	var p model.Payment
	var raw []byte
	err := row.Scan(&p.PaymentID, &p.OrderID, &p.OrderUserID, &p.Provider, &p.TransactionID, &p.Status, &p.Amount,
		&p.Currency, &p.AuthorizationURL, &raw, &p.RefundReason, &p.PaidAt, &p.FailedAt, &p.RefundedAt, &p.CreatedAt)
	if err != nil {
		return nil, err
	}
	p.ProviderResponse = json.RawMessage(raw)
	return &p, nil
}

// Create records a new pending payment. A second payment for the same order
// or a reused transaction id yields ErrDuplicate.
func (r *PaymentRepository) Create(ctx context.Context, p *model.Payment) (int64, error) {
	payload := []byte(p.ProviderResponse)
	if len(payload) == 0 {
		payload = []byte("{}")
	}

	var id int64
	q := `
		INSERT INTO payments
			(orderid, provider, transactionid, status, amount, currency, authorizationurl, providerresponse)
		VALUES
			($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING paymentid
	`
	err := r.DB.QueryRow(
		ctx, q,
		p.OrderID, p.Provider, p.TransactionID, p.Status, p.Amount, p.Currency, p.AuthorizationURL, payload,
	).Scan(&id)
	if err != nil {
		if isUniqueViolation(err) {
			return 0, ErrDuplicate
		}
		return 0, err
	}
	return id, nil
}

func (r *PaymentRepository) GetByID(ctx context.Context, id int64) (*model.Payment, error) {
	p, err := scanPayment(r.DB.QueryRow(ctx, paymentSelect+` WHERE p.paymentid=$1`, id))
	if err != nil {
		return nil, notFound(err)
	}
	return p, nil
}

// GetByOrderID returns nil, nil when the order has no payment yet.
func (r *PaymentRepository) GetByOrderID(ctx context.Context, orderID int64) (*model.Payment, error) {
	p, err := scanPayment(r.DB.QueryRow(ctx, paymentSelect+` WHERE p.orderid=$1`, orderID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return p, nil
}

func (r *PaymentRepository) GetByTransactionID(ctx context.Context, ref string) (*model.Payment, error) {
	p, err := scanPayment(r.DB.QueryRow(ctx, paymentSelect+` WHERE p.transactionid=$1`, ref))
	if err != nil {
		return nil, notFound(err)
	}
	return p, nil
}

func (r *PaymentRepository) List(ctx context.Context, q ListQuery) ([]model.Payment, error) {
	query, args := q.Apply(paymentSelect, nil, "p.created_at DESC")
	rows, err := r.DB.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []model.Payment{}
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *p)
	}
	return out, rows.Err()
}

// PaymentTransition describes one compare-and-set move of a payment's status.
type PaymentTransition struct {
	PaymentID    int64
	OrderID      int64
	From         string
	To           string
	Payload      json.RawMessage
	RefundReason *string
	At           time.Time
}

// Transition applies t only if the payment is still in t.From, and mirrors the
// new status onto the order in the same transaction. It reports false when
// another writer moved the payment first.
func (r *PaymentRepository) Transition(ctx context.Context, t PaymentTransition) (bool, error) {
	tx, err := r.DB.Begin(ctx)
	if err != nil {
		return false, err
	}
	defer tx.Rollback(ctx)

	var payload []byte
	if len(t.Payload) > 0 {
		payload = t.Payload
	}

	tag, err := tx.Exec(ctx, `
		UPDATE payments
		SET status=$3,
		    providerresponse=COALESCE($4::jsonb, providerresponse),
		    refundreason=COALESCE($5, refundreason),
		    paidat=CASE WHEN $3='success' THEN $6::timestamptz ELSE paidat END,
		    failedat=CASE WHEN $3='failed' THEN $6::timestamptz ELSE failedat END,
		    refundedat=CASE WHEN $3='refunded' THEN $6::timestamptz ELSE refundedat END,
		    updated_at=NOW()
		WHERE paymentid=$1 AND status=$2
	`, t.PaymentID, t.From, t.To, payload, t.RefundReason, t.At)
	if err != nil {
		return false, err
	}
	if tag.RowsAffected() == 0 {
		return false, nil
	}

	_, err = tx.Exec(ctx, `
		UPDATE orders
		SET paymentstatus=$2,
		    paidat=CASE WHEN $2='paid' THEN $3::timestamptz ELSE paidat END,
		    updated_at=NOW()
		WHERE orderid=$1
	`, t.OrderID, model.OrderPaymentStatus(t.To), t.At)
	if err != nil {
		return false, err
	}
	return true, tx.Commit(ctx)
}
