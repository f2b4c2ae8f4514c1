package repository

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
)

func TestDeleteErrMapsForeignKeyViolations(t *testing.T) {
	fk := fmt.Errorf("delete: %w", &pgconn.PgError{Code: "23503", ConstraintName: "order_items_productid_fkey"})
	assert.True(t, errors.Is(deleteErr(fk), ErrInUse))

	unique := &pgconn.PgError{Code: "23505"}
	assert.False(t, errors.Is(deleteErr(unique), ErrInUse))
	assert.Same(t, unique, deleteErr(unique))

	assert.NoError(t, deleteErr(nil))
}
