package postgres

import (
	"errors"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"

	"github.com/jhoicas/inventario-ledger/internal/domain"
)

func TestMapError(t *testing.T) {
	assert.NoError(t, mapError("op", nil))

	for _, code := range []string{"40001", "40P01", "55P03"} {
		err := mapError("lock item", &pgconn.PgError{Code: code})
		assert.ErrorIs(t, err, domain.ErrConcurrencyConflict, code)
		assert.NotErrorIs(t, err, domain.ErrStorageFailure, code)
	}

	cause := &pgconn.PgError{Code: "23503"}
	err := mapError("insert movement", cause)
	assert.ErrorIs(t, err, domain.ErrStorageFailure)
	var pgErr *pgconn.PgError
	assert.True(t, errors.As(err, &pgErr))
	assert.Contains(t, err.Error(), "insert movement")
}

func TestIsUniqueViolation(t *testing.T) {
	assert.True(t, isUniqueViolation(&pgconn.PgError{Code: "23505"}))
	assert.False(t, isUniqueViolation(errors.New("otra cosa")))
}

func TestPgx5URL(t *testing.T) {
	assert.Equal(t, "pgx5://u:p@h:5432/db", pgx5URL("postgres://u:p@h:5432/db"))
	assert.Equal(t, "pgx5://u@h/db?sslmode=require", pgx5URL("postgresql://u@h/db?sslmode=require"))
	assert.Equal(t, "pgx5://ya", pgx5URL("pgx5://ya"))
}

func TestNullString(t *testing.T) {
	assert.Nil(t, nullString(""))
	assert.Equal(t, "x", derefString(nullString("x")))
	assert.Equal(t, "", derefString(nil))
}
