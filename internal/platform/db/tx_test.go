package db

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/require"
)

func TestIsSerializationFailure(t *testing.T) {
	wrapped := fmt.Errorf("insert entry: %w", &pgconn.PgError{Code: "40001"})
	require.True(t, isSerializationFailure(wrapped))
	require.False(t, isSerializationFailure(&pgconn.PgError{Code: "23505"}))
	require.False(t, isSerializationFailure(errors.New("plain")))
}
