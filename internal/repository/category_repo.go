package repository

import (
	"context"

	"StoreProAPI/internal/model"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type CategoryRepository struct {
	DB *pgxpool.Pool
}

func NewCategoryRepository(db *pgxpool.Pool) *CategoryRepository {
	return &CategoryRepository{DB: db}
}

var CategoryFields = map[string]Field{
	"name":           {Column: "name", Kind: KindText},
	"parentcategory": {Column: "parentid", Kind: KindInt},
	"created_at":     {Column: "created_at", Kind: KindText},
}

const categoryColumns = `categoryid, name, description, parentid, created_at, updated_at`

func scanCategory(row pgx.Row) (*model.Category, error) {
	var c model.Category
	if err := row.Scan(&c.CategoryID, &c.Name, &c.Description, &c.ParentID, &c.CreatedAt, &c.UpdatedAt); err != nil {
		return nil, notFound(err)
	}
	return &c, nil
}

func (r *CategoryRepository) Create(ctx context.Context, c *model.Category) (int64, error) {
	var id int64
	query := `INSERT INTO categories (name, description, parentid) VALUES ($1, $2, $3) RETURNING categoryid`
	if err := r.DB.QueryRow(ctx, query, c.Name, c.Description, c.ParentID).Scan(&id); err != nil {
		if isUniqueViolation(err) {
			return 0, ErrDuplicate
		}
		return 0, err
	}
	return id, nil
}

func (r *CategoryRepository) GetByID(ctx context.Context, id int64) (*model.Category, error) {
	return scanCategory(r.DB.QueryRow(ctx, `SELECT `+categoryColumns+` FROM categories WHERE categoryid=$1`, id))
}

func (r *CategoryRepository) List(ctx context.Context, q ListQuery) ([]model.Category, error) {
	query, args := q.Apply(`SELECT `+categoryColumns+` FROM categories`, nil, "categoryid")
	return r.collect(ctx, query, args...)
}

// Children lists the direct subcategories of id
func (r *CategoryRepository) Children(ctx context.Context, id int64) ([]model.Category, error) {
	return r.collect(ctx, `SELECT `+categoryColumns+` FROM categories WHERE parentid=$1 ORDER BY name`, id)
}

func (r *CategoryRepository) Update(ctx context.Context, c *model.Category) error {
	query := `UPDATE categories SET name=$1, description=$2, parentid=$3, updated_at=NOW() WHERE categoryid=$4`
	tag, err := r.DB.Exec(ctx, query, c.Name, c.Description, c.ParentID, c.CategoryID)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *CategoryRepository) Delete(ctx context.Context, id int64) error {
	tag, err := r.DB.Exec(ctx, `DELETE FROM categories WHERE categoryid=$1`, id)
	if err != nil {
		return deleteErr(err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// IsDescendant reports whether candidateID sits somewhere below rootID in the tree.
func (r *CategoryRepository) IsDescendant(ctx context.Context, rootID, candidateID int64) (bool, error) {
	var found bool
	query := `
		WITH RECURSIVE tree AS (
			SELECT categoryid FROM categories WHERE parentid=$1
			UNION
			SELECT c.categoryid FROM categories c JOIN tree t ON c.parentid = t.categoryid
		)
		SELECT EXISTS (SELECT 1 FROM tree WHERE categoryid=$2)
	`
	if err := r.DB.QueryRow(ctx, query, rootID, candidateID).Scan(&found); err != nil {
		return false, err
	}
	return found, nil
}

func (r *CategoryRepository) HasChildren(ctx context.Context, id int64) (bool, error) {
	var exists bool
	query := `SELECT EXISTS (SELECT 1 FROM categories WHERE parentid=$1)`
	if err := r.DB.QueryRow(ctx, query, id).Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}

func (r *CategoryRepository) collect(ctx context.Context, query string, args ...any) ([]model.Category, error) {
	rows, err := r.DB.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []model.Category{}
	for rows.Next() {
		c, err := scanCategory(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *c)
	}
	return out, rows.Err()
}
