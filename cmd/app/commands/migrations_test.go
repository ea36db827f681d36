package commands

import (
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRunMigrations(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	t.Run("unsupported driver", func(t *testing.T) {
		err := RunMigrations(logger, "sqlite3", "sqlite3://app.db")
		require.Error(t, err)
		require.Contains(t, err.Error(), "unsupported database driver: sqlite3")
	})

	t.Run("unregistered database scheme", func(t *testing.T) {
		err := RunMigrations(logger, "postgres", "sqlite3://app.db")
		require.Error(t, err)
		require.Contains(t, err.Error(), "failed to create migrate instance")
	})

	t.Run("malformed postgres connection string", func(t *testing.T) {
		err := RunMigrations(logger, "postgres", "not-a-connection-string")
		require.Error(t, err)
		require.Contains(t, err.Error(), "failed to create migrate instance")
	})

	t.Run("malformed mysql connection string", func(t *testing.T) {
		err := RunMigrations(logger, "mysql", "not-a-connection-string")
		require.Error(t, err)
		require.Contains(t, err.Error(), "failed to create migrate instance")
	})
}
