package repository

import (
	"context"

	"StoreProAPI/internal/model"

	"github.com/jackc/pgx/v5/pgxpool"
)

type CartRepository struct {
	DB *pgxpool.Pool
}

func NewCartRepository(db *pgxpool.Pool) *CartRepository {
	return &CartRepository{DB: db}
}

// GetByUserID loads the user's cart with its lines, or ErrNotFound when the user has none yet
func (r *CartRepository) GetByUserID(ctx context.Context, userID int64) (*model.Cart, error) {
	var c model.Cart
	query := `SELECT cartid, userid, created_at, updated_at FROM carts WHERE userid=$1`
	if err := r.DB.QueryRow(ctx, query, userID).Scan(&c.CartID, &c.UserID, &c.CreatedAt, &c.UpdatedAt); err != nil {
		return nil, notFound(err)
	}

	rows, err := r.DB.Query(ctx, `
		SELECT ci.cartitemid, ci.productid, p.name, ci.color, ci.size, ci.quantity, ci.priceatadd::float8
		FROM cart_items ci
		JOIN products p ON p.productid = ci.productid
		WHERE ci.cartid=$1
		ORDER BY ci.cartitemid
	`, c.CartID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	c.Items = []model.CartItem{}
	for rows.Next() {
		var it model.CartItem
		if err := rows.Scan(&it.CartItemID, &it.ProductID, &it.ProductName, &it.Variant.Color, &it.Variant.Size,
			&it.Quantity, &it.PriceAtAdd); err != nil {
			return nil, err
		}
		c.Items = append(c.Items, it)
	}
	return &c, rows.Err()
}

// Create makes an empty cart for the user. Concurrent first accesses converge on the same row.
func (r *CartRepository) Create(ctx context.Context, userID int64) (*model.Cart, error) {
	c := model.Cart{UserID: userID, Items: []model.CartItem{}}
	query := `
		INSERT INTO carts (userid) VALUES ($1)
		ON CONFLICT (userid) DO UPDATE SET userid = EXCLUDED.userid
		RETURNING cartid, created_at, updated_at
	`
	if err := r.DB.QueryRow(ctx, query, userID).Scan(&c.CartID, &c.CreatedAt, &c.UpdatedAt); err != nil {
		return nil, err
	}
	return &c, nil
}

// AddOrIncrementItem inserts a line or bumps the quantity of the matching
// product+variant line, refreshing its price either way.
func (r *CartRepository) AddOrIncrementItem(ctx context.Context, cartID int64, it model.CartItem) error {
	query := `
		INSERT INTO cart_items (cartid, productid, color, size, quantity, priceatadd)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (cartid, productid, color, size)
		DO UPDATE SET quantity = cart_items.quantity + EXCLUDED.quantity, priceatadd = EXCLUDED.priceatadd
	`
	if _, err := r.DB.Exec(ctx, query, cartID, it.ProductID, it.Variant.Color, it.Variant.Size, it.Quantity, it.PriceAtAdd); err != nil {
		return err
	}
	return r.touch(ctx, cartID)
}

func (r *CartRepository) SetItemQuantity(ctx context.Context, cartID, itemID int64, qty int) error {
	query := `UPDATE cart_items SET quantity=$1 WHERE cartid=$2 AND cartitemid=$3`
	tag, err := r.DB.Exec(ctx, query, qty, cartID, itemID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return r.touch(ctx, cartID)
}

func (r *CartRepository) RemoveItem(ctx context.Context, cartID, itemID int64) error {
	tag, err := r.DB.Exec(ctx, `DELETE FROM cart_items WHERE cartid=$1 AND cartitemid=$2`, cartID, itemID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return r.touch(ctx, cartID)
}

// ClearItems empties the cart in place; the cart row itself stays.
func (r *CartRepository) ClearItems(ctx context.Context, cartID int64) error {
	if _, err := r.DB.Exec(ctx, `DELETE FROM cart_items WHERE cartid=$1`, cartID); err != nil {
		return err
	}
	return r.touch(ctx, cartID)
}

func (r *CartRepository) touch(ctx context.Context, cartID int64) error {
	_, err := r.DB.Exec(ctx, `UPDATE carts SET updated_at=NOW() WHERE cartid=$1`, cartID)
	return err
}
