package repository

import (
	"context"

	"StoreProAPI/internal/model"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type ProductRepository struct {
	DB *pgxpool.Pool
}

func NewProductRepository(db *pgxpool.Pool) *ProductRepository {
	return &ProductRepository{DB: db}
}

// ProductFields is the filter/sort whitelist for product listings
var ProductFields = map[string]Field{
	"name":            {Column: "p.name", Kind: KindText},
	"price":           {Column: "p.price", Kind: KindNumber},
	"discountprice":   {Column: "p.discountprice", Kind: KindNumber},
	"category":        {Column: "p.categoryid", Kind: KindInt},
	"ratingsaverage":  {Column: "p.ratingsaverage", Kind: KindNumber},
	"ratingsquantity": {Column: "p.ratingsquantity", Kind: KindInt},
	"stockquantity":   {Column: "p.stockquantity", Kind: KindInt},
	"created_at":      {Column: "p.created_at", Kind: KindText},
}

const productSelect = `
	SELECT p.productid, p.name, p.description, p.categoryid, c.name, p.price::float8, p.discountprice::float8,
		p.images, p.specs, p.ratingsaverage::float8, p.ratingsquantity, p.stockquantity, p.created_at, p.updated_at
	FROM products p
	JOIN categories c ON c.categoryid = p.categoryid`

func scanProduct(row pgx.Row) (*model.Product, error) {
	var p model.Product
	err := row.Scan(&p.ProductID, &p.Name, &p.Description, &p.CategoryID, &p.CategoryName, &p.Price, &p.DiscountPrice,
		&p.Images, &p.Specs, &p.RatingsAverage, &p.RatingsQuantity, &p.StockQuantity, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, notFound(err)
	}
	p.Variants = []model.Variant{}
	return &p, nil
}

// Create inserts the product and its variants in one transaction
func (r *ProductRepository) Create(ctx context.Context, p *model.Product) (int64, error) {
	tx, err := r.DB.Begin(ctx)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback(ctx)

	var id int64
	query := `
		INSERT INTO products (name, description, categoryid, price, discountprice, images, specs, stockquantity)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING productid
	`
	err = tx.QueryRow(ctx, query, p.Name, p.Description, p.CategoryID, p.Price, p.DiscountPrice,
		nonNil(p.Images), nonNil(p.Specs), p.StockQuantity).Scan(&id)
	if err != nil {
		return 0, err
	}
	if err := insertVariants(ctx, tx, id, p.Variants); err != nil {
		return 0, err
	}
	return id, tx.Commit(ctx)
}

func (r *ProductRepository) GetByID(ctx context.Context, id int64) (*model.Product, error) {
	p, err := scanProduct(r.DB.QueryRow(ctx, productSelect+` WHERE p.productid=$1`, id))
	if err != nil {
		return nil, err
	}
	if err := r.attachVariants(ctx, []*model.Product{p}); err != nil {
		return nil, err
	}
	return p, nil
}

func (r *ProductRepository) List(ctx context.Context, q ListQuery) ([]model.Product, error) {
	query, args := q.Apply(productSelect, nil, "p.created_at DESC")
	return r.collect(ctx, query, args...)
}

func (r *ProductRepository) ListByCategory(ctx context.Context, categoryID int64) ([]model.Product, error) {
	return r.collect(ctx, productSelect+` WHERE p.categoryid=$1 ORDER BY p.name`, categoryID)
}

// Search ranks matches of term against name and description
func (r *ProductRepository) Search(ctx context.Context, term string) ([]model.Product, error) {
	query := productSelect + `
		WHERE to_tsvector('english', p.name || ' ' || p.description) @@ plainto_tsquery('english', $1)
		ORDER BY ts_rank(to_tsvector('english', p.name || ' ' || p.description), plainto_tsquery('english', $1)) DESC
		LIMIT 100`
	return r.collect(ctx, query, term)
}

// Update rewrites the product row. Variants are replaced only when p.Variants is non-nil.
func (r *ProductRepository) Update(ctx context.Context, p *model.Product) error {
	tx, err := r.DB.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	query := `
		UPDATE products
		SET name=$1, description=$2, categoryid=$3, price=$4, discountprice=$5,
			images=$6, specs=$7, stockquantity=$8, updated_at=NOW()
		WHERE productid=$9
	`
	tag, err := tx.Exec(ctx, query, p.Name, p.Description, p.CategoryID, p.Price, p.DiscountPrice,
		nonNil(p.Images), nonNil(p.Specs), p.StockQuantity, p.ProductID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	if p.Variants != nil {
		if _, err := tx.Exec(ctx, `DELETE FROM product_variants WHERE productid=$1`, p.ProductID); err != nil {
			return err
		}
		if err := insertVariants(ctx, tx, p.ProductID, p.Variants); err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}

func (r *ProductRepository) Delete(ctx context.Context, id int64) error {
	tag, err := r.DB.Exec(ctx, `DELETE FROM products WHERE productid=$1`, id)
	if err != nil {
		return deleteErr(err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *ProductRepository) CountInCategory(ctx context.Context, categoryID int64) (int64, error) {
	var n int64
	if err := r.DB.QueryRow(ctx, `SELECT COUNT(*) FROM products WHERE categoryid=$1`, categoryID).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

func (r *ProductRepository) collect(ctx context.Context, query string, args ...any) ([]model.Product, error) {
	rows, err := r.DB.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	var list []*model.Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		list = append(list, p)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if err := r.attachVariants(ctx, list); err != nil {
		return nil, err
	}
	out := make([]model.Product, 0, len(list))
	for _, p := range list {
		out = append(out, *p)
	}
	return out, nil
}

func (r *ProductRepository) attachVariants(ctx context.Context, products []*model.Product) error {
	if len(products) == 0 {
		return nil
	}
	ids := make([]int64, 0, len(products))
	byID := make(map[int64]*model.Product, len(products))
	for _, p := range products {
		ids = append(ids, p.ProductID)
		byID[p.ProductID] = p
	}

	rows, err := r.DB.Query(ctx,
		`SELECT productid, color, size, COALESCE(sku, '') FROM product_variants WHERE productid = ANY($1) ORDER BY variantid`, ids)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var pid int64
		var v model.Variant
		if err := rows.Scan(&pid, &v.Color, &v.Size, &v.SKU); err != nil {
			return err
		}
		if p := byID[pid]; p != nil {
			p.Variants = append(p.Variants, v)
		}
	}
	return rows.Err()
}

func insertVariants(ctx context.Context, tx pgx.Tx, productID int64, variants []model.Variant) error {
	for _, v := range variants {
		var sku *string
		if v.SKU != "" {
			sku = &v.SKU
		}
		_, err := tx.Exec(ctx, `INSERT INTO product_variants (productid, color, size, sku) VALUES ($1, $2, $3, $4)`,
			productID, v.Color, v.Size, sku)
		if err != nil {
			if isUniqueViolation(err) {
				return ErrDuplicate
			}
			return err
		}
	}
	return nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
