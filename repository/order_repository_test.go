package repository

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
)

func TestIsUniqueViolation(t *testing.T) {
	t.Run("PgxDriverError", func(t *testing.T) {
		err := fmt.Errorf("failed to save entity: %w", &pgconn.PgError{Code: "23505"})
		assert.True(t, isUniqueViolation(err))
	})

	t.Run("PqDriverError", func(t *testing.T) {
		err := fmt.Errorf("failed to save entity: %w", &pq.Error{Code: "23505"})
		assert.True(t, isUniqueViolation(err))
	})

	t.Run("OtherSQLState", func(t *testing.T) {
		err := fmt.Errorf("failed to save entity: %w", &pgconn.PgError{Code: "23503"})
		assert.False(t, isUniqueViolation(err))
	})

	t.Run("PlainError", func(t *testing.T) {
		assert.False(t, isUniqueViolation(errors.New("connection reset")))
	})
}
