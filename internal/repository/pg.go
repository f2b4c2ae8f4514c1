package repository

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

func isForeignKeyViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23503"
}

// deleteErr maps a DELETE failure: foreign key violations become ErrInUse.
func deleteErr(err error) error {
	if isForeignKeyViolation(err) {
		return fmt.Errorf("%w: %v", ErrInUse, err)
	}
	return err
}

// notFound converts pgx.ErrNoRows into ErrNotFound and passes other errors through.
func notFound(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	return err
}
