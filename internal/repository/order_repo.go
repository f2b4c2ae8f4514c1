package repository

import (
	"context"
	"fmt"
	"slices"
	"time"

	"StoreProAPI/internal/model"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type OrderRepository struct {
	DB *pgxpool.Pool
}

func NewOrderRepository(db *pgxpool.Pool) *OrderRepository {
	return &OrderRepository{DB: db}
}

var OrderFields = map[string]Field{
	"orderstatus":   {Column: "orderstatus", Kind: KindText},
	"paymentstatus": {Column: "paymentstatus", Kind: KindText},
	"paymentmethod": {Column: "paymentmethod", Kind: KindText},
	"totalamount":   {Column: "totalamount", Kind: KindNumber},
	"created_at":    {Column: "created_at", Kind: KindText},
}

const orderColumns = `orderid, userid, totalamount::float8, street, city, state, zip, country,
	paymentstatus, orderstatus, paymentmethod, paidat, deliveredat, created_at, updated_at`

func scanOrder(row pgx.Row) (*model.Order, error) {
	var o model.Order
	a := &o.ShippingAddress
	err := row.Scan(&o.OrderID, &o.UserID, &o.TotalAmount, &a.Street, &a.City, &a.State, &a.Zip, &a.Country,
		&o.PaymentStatus, &o.OrderStatus, &o.PaymentMethod, &o.PaidAt, &o.DeliveredAt, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		return nil, notFound(err)
	}
	o.Items = []model.OrderItem{}
	return &o, nil
}

// CreateFromCart persists o and empties the cart in a single transaction.
// Product rows are locked and stock re-checked first, so a concurrent order
// cannot slip between the check and the write.
func (r *OrderRepository) CreateFromCart(ctx context.Context, o *model.Order, cartID int64) (int64, error) {
	tx, err := r.DB.Begin(ctx)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback(ctx)

	wanted := o.QuantityByProduct()
	ids := make([]int64, 0, len(wanted))
	for id := range wanted {
		ids = append(ids, id)
	}
	// fixed lock order keeps two concurrent orders from deadlocking
	slices.Sort(ids)
	for _, pid := range ids {
		var stock int
		var name string
		err := tx.QueryRow(ctx, `SELECT name, stockquantity FROM products WHERE productid=$1 FOR UPDATE`, pid).
			Scan(&name, &stock)
		if err != nil {
			return 0, notFound(err)
		}
		if stock < wanted[pid] {
			return 0, fmt.Errorf("%w: %s", ErrInsufficientStock, name)
		}
	}

	a := o.ShippingAddress
	var id int64
	query := `
		INSERT INTO orders (userid, totalamount, street, city, state, zip, country, paymentstatus, orderstatus, paymentmethod)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING orderid
	`
	err = tx.QueryRow(ctx, query, o.UserID, o.TotalAmount, a.Street, a.City, a.State, a.Zip, a.Country,
		o.PaymentStatus, o.OrderStatus, o.PaymentMethod).Scan(&id)
	if err != nil {
		return 0, err
	}

	for _, it := range o.Items {
		_, err := tx.Exec(ctx, `
			INSERT INTO order_items (orderid, productid, color, size, quantity, priceatpurchase, name)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
		`, id, it.ProductID, it.Variant.Color, it.Variant.Size, it.Quantity, it.PriceAtPurchase, it.Name)
		if err != nil {
			return 0, err
		}
	}

	if _, err := tx.Exec(ctx, `DELETE FROM cart_items WHERE cartid=$1`, cartID); err != nil {
		return 0, err
	}
	if _, err := tx.Exec(ctx, `UPDATE carts SET updated_at=NOW() WHERE cartid=$1`, cartID); err != nil {
		return 0, err
	}
	return id, tx.Commit(ctx)
}

func (r *OrderRepository) GetByID(ctx context.Context, id int64) (*model.Order, error) {
	o, err := scanOrder(r.DB.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE orderid=$1`, id))
	if err != nil {
		return nil, err
	}
	if err := r.attachItems(ctx, []*model.Order{o}); err != nil {
		return nil, err
	}
	return o, nil
}

// List returns orders, restricted to userID when it is non-nil.
func (r *OrderRepository) List(ctx context.Context, userID *int64, q ListQuery) ([]model.Order, error) {
	base := `SELECT ` + orderColumns + ` FROM orders`
	var args []any
	if userID != nil {
		base += ` WHERE userid=$1`
		args = append(args, *userID)
	}
	query, args := q.Apply(base, args, "created_at DESC")

	rows, err := r.DB.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	var list []*model.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		list = append(list, o)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if err := r.attachItems(ctx, list); err != nil {
		return nil, err
	}
	out := make([]model.Order, 0, len(list))
	for _, o := range list {
		out = append(out, *o)
	}
	return out, nil
}

// UpdateStatus sets the order status. Entering delivered from any other
// status stamps deliveredat and decrements stock by the quantity summed over
// each product's lines; a product without enough stock aborts the whole
// transition.
func (r *OrderRepository) UpdateStatus(ctx context.Context, id int64, status string, at time.Time) error {
	tx, err := r.DB.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	var current string
	if err := tx.QueryRow(ctx, `SELECT orderstatus FROM orders WHERE orderid=$1 FOR UPDATE`, id).Scan(&current); err != nil {
		return notFound(err)
	}

	if status == model.OrderDelivered && current != model.OrderDelivered {
		rows, err := tx.Query(ctx, `
			SELECT productid, SUM(quantity)::int, MIN(name) FROM order_items
			WHERE orderid=$1 GROUP BY productid ORDER BY productid
		`, id)
		if err != nil {
			return err
		}
		type line struct {
			productID int64
			qty       int
			name      string
		}
		var lines []line
		for rows.Next() {
			var l line
			if err := rows.Scan(&l.productID, &l.qty, &l.name); err != nil {
				rows.Close()
				return err
			}
			lines = append(lines, l)
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return err
		}

		for _, l := range lines {
			tag, err := tx.Exec(ctx, `
				UPDATE products SET stockquantity = stockquantity - $1, updated_at=NOW()
				WHERE productid=$2 AND stockquantity >= $1
			`, l.qty, l.productID)
			if err != nil {
				return err
			}
			if tag.RowsAffected() == 0 {
				return fmt.Errorf("%w: %s", ErrInsufficientStock, l.name)
			}
		}
		if _, err := tx.Exec(ctx, `UPDATE orders SET deliveredat=$1 WHERE orderid=$2`, at, id); err != nil {
			return err
		}
	}

	if _, err := tx.Exec(ctx, `UPDATE orders SET orderstatus=$1, updated_at=NOW() WHERE orderid=$2`, status, id); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// Cancel moves the order to cancelled unless it has already shipped.
// It reports false when the order was shipped or delivered.
func (r *OrderRepository) Cancel(ctx context.Context, id int64) (bool, error) {
	tag, err := r.DB.Exec(ctx, `
		UPDATE orders SET orderstatus='cancelled', updated_at=NOW()
		WHERE orderid=$1 AND orderstatus NOT IN ('shipped', 'delivered')
	`, id)
	if err != nil {
		return false, err
	}
	if tag.RowsAffected() == 0 {
		var exists bool
		if err := r.DB.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM orders WHERE orderid=$1)`, id).Scan(&exists); err != nil {
			return false, err
		}
		if !exists {
			return false, ErrNotFound
		}
		return false, nil
	}
	return true, nil
}

func (r *OrderRepository) Stats(ctx context.Context, userID int64) (*model.OrderStats, error) {
	var s model.OrderStats
	query := `
		SELECT COUNT(*), COALESCE(SUM(totalamount), 0)::float8, COALESCE(AVG(totalamount), 0)::float8
		FROM orders WHERE userid=$1
	`
	if err := r.DB.QueryRow(ctx, query, userID).Scan(&s.TotalOrders, &s.TotalSpent, &s.AvgOrderValue); err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *OrderRepository) attachItems(ctx context.Context, orders []*model.Order) error {
	if len(orders) == 0 {
		return nil
	}
	ids := make([]int64, 0, len(orders))
	byID := make(map[int64]*model.Order, len(orders))
	for _, o := range orders {
		ids = append(ids, o.OrderID)
		byID[o.OrderID] = o
	}

	rows, err := r.DB.Query(ctx, `
		SELECT orderid, orderitemid, productid, color, size, quantity, priceatpurchase::float8, name
		FROM order_items WHERE orderid = ANY($1) ORDER BY orderitemid
	`, ids)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var oid int64
		var it model.OrderItem
		if err := rows.Scan(&oid, &it.OrderItemID, &it.ProductID, &it.Variant.Color, &it.Variant.Size,
			&it.Quantity, &it.PriceAtPurchase, &it.Name); err != nil {
			return err
		}
		if o := byID[oid]; o != nil {
			o.Items = append(o.Items, it)
		}
	}
	return rows.Err()
}
