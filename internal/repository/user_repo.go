package repository

import (
	"context"
	"fmt"
	"time"

	"StoreProAPI/internal/model"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type UserRepository struct {
	DB *pgxpool.Pool
}

func NewUserRepository(db *pgxpool.Pool) *UserRepository {
	return &UserRepository{DB: db}
}

// UserFields is the filter/sort whitelist for GET /users
var UserFields = map[string]Field{
	"name":       {Column: "name", Kind: KindText},
	"email":      {Column: "email", Kind: KindText},
	"role":       {Column: "role", Kind: KindText},
	"created_at": {Column: "created_at", Kind: KindText},
}

const userColumns = `userid, name, email, passwordhash, role, phone, active,
	passwordchangedat, passwordresettoken, passwordresetexpires, created_at, updated_at`

func scanUser(row pgx.Row) (*model.User, error) {
	var u model.User
	err := row.Scan(&u.UserID, &u.Name, &u.Email, &u.PasswordHash, &u.Role, &u.Phone, &u.Active,
		&u.PasswordChangedAt, &u.ResetTokenHash, &u.ResetExpiresAt, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, notFound(err)
	}
	return &u, nil
}

// Create inserts a new user with its addresses and returns the created userid
func (r *UserRepository) Create(ctx context.Context, u *model.User) (int64, error) {
	tx, err := r.DB.Begin(ctx)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback(ctx)

	var id int64
	query := `INSERT INTO users (name, email, passwordhash, role, phone, active)
		VALUES ($1, $2, $3, $4, $5, TRUE) RETURNING userid`
	if err := tx.QueryRow(ctx, query, u.Name, u.Email, u.PasswordHash, u.Role, u.Phone).Scan(&id); err != nil {
		if isUniqueViolation(err) {
			return 0, ErrDuplicate
		}
		return 0, err
	}
	if err := replaceAddresses(ctx, tx, id, u.Addresses); err != nil {
		return 0, err
	}
	return id, tx.Commit(ctx)
}

func (r *UserRepository) GetByID(ctx context.Context, id int64) (*model.User, error) {
	u, err := scanUser(r.DB.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE userid=$1`, id))
	if err != nil {
		return nil, err
	}
	return u, r.loadAddresses(ctx, u)
}

// GetByEmail returns active users only, password hash included
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	u, err := scanUser(r.DB.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE email=$1 AND active`, email))
	if err != nil {
		return nil, err
	}
	return u, r.loadAddresses(ctx, u)
}

// GetByResetToken finds the active user holding an unexpired reset token hash
func (r *UserRepository) GetByResetToken(ctx context.Context, tokenHash string, now time.Time) (*model.User, error) {
	query := `SELECT ` + userColumns + ` FROM users
		WHERE passwordresettoken=$1 AND passwordresetexpires > $2 AND active`
	return scanUser(r.DB.QueryRow(ctx, query, tokenHash, now))
}

func (r *UserRepository) List(ctx context.Context, q ListQuery) ([]model.User, error) {
	query, args := q.Apply(`SELECT `+userColumns+` FROM users WHERE active`, nil, "userid")
	rows, err := r.DB.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	list := []model.User{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, *u)
	}
	return list, rows.Err()
}

// UpdateProfile writes name, email, phone, role and replaces the address list
func (r *UserRepository) UpdateProfile(ctx context.Context, u *model.User) error {
	tx, err := r.DB.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	query := `UPDATE users SET name=$1, email=$2, phone=$3, role=$4, updated_at=NOW() WHERE userid=$5 AND active`
	tag, err := tx.Exec(ctx, query, u.Name, u.Email, u.Phone, u.Role, u.UserID)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	if err := replaceAddresses(ctx, tx, u.UserID, u.Addresses); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// SetActive soft-deletes (false) or restores (true) a user
func (r *UserRepository) SetActive(ctx context.Context, id int64, active bool) error {
	tag, err := r.DB.Exec(ctx, `UPDATE users SET active=$1, updated_at=NOW() WHERE userid=$2`, active, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *UserRepository) Delete(ctx context.Context, id int64) error {
	tag, err := r.DB.Exec(ctx, `DELETE FROM users WHERE userid=$1`, id)
	if err != nil {
		return deleteErr(err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// SetPassword stores a new hash, stamps passwordchangedat and clears any reset token
func (r *UserRepository) SetPassword(ctx context.Context, id int64, hash string, changedAt time.Time) error {
	query := `UPDATE users
		SET passwordhash=$1, passwordchangedat=$2, passwordresettoken=NULL, passwordresetexpires=NULL, updated_at=NOW()
		WHERE userid=$3`
	tag, err := r.DB.Exec(ctx, query, hash, changedAt, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *UserRepository) SetResetToken(ctx context.Context, id int64, tokenHash *string, expires *time.Time) error {
	_, err := r.DB.Exec(ctx, `
		UPDATE users
		SET passwordresettoken=$1, passwordresetexpires=$2
		WHERE userid=$3
	`, tokenHash, expires, id)
	return err
}

func (r *UserRepository) loadAddresses(ctx context.Context, u *model.User) error {
	rows, err := r.DB.Query(ctx,
		`SELECT addressid, street, city, state, zip, country FROM user_addresses WHERE userid=$1 ORDER BY addressid`, u.UserID)
	if err != nil {
		return err
	}
	defer rows.Close()

	u.Addresses = []model.Address{}
	for rows.Next() {
		var a model.Address
		if err := rows.Scan(&a.AddressID, &a.Street, &a.City, &a.State, &a.Zip, &a.Country); err != nil {
			return err
		}
		u.Addresses = append(u.Addresses, a)
	}
	return rows.Err()
}

func replaceAddresses(ctx context.Context, tx pgx.Tx, userID int64, addrs []model.Address) error {
	if _, err := tx.Exec(ctx, `DELETE FROM user_addresses WHERE userid=$1`, userID); err != nil {
		return err
	}
	for _, a := range addrs {
		_, err := tx.Exec(ctx,
			`INSERT INTO user_addresses (userid, street, city, state, zip, country) VALUES ($1, $2, $3, $4, $5, $6)`,
			userID, a.Street, a.City, a.State, a.Zip, a.Country)
		if err != nil {
			return fmt.Errorf("insert address: %w", err)
		}
	}
	return nil
}
