package database

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"yell/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConnect_SQLiteAndMigrate(t *testing.T) {
	db, err := Connect(context.Background(), Config{
		Driver:          "sqlite",
		URL:             filepath.Join(t.TempDir(), "yell.db"),
		ConnectAttempts: 1,
	})
	require.NoError(t, err)
	t.Cleanup(func() { Close(db) })

	require.NoError(t, Migrate(db))
	// Running it again must be a no-op.
	require.NoError(t, Migrate(db))

	assert.True(t, db.Migrator().HasTable("entries"))
	for _, column := range []string{"title", "mobiles", "social", "type", "created_at", "updated_at"} {
		assert.True(t, db.Migrator().HasColumn(&models.Entry{}, column), column)
	}
}

func TestConnect_GivesUpAfterAttempts(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "no", "such", "dir", "yell.db")

	start := time.Now()
	_, err := Connect(context.Background(), Config{
		Driver:          "sqlite",
		URL:             missing,
		ConnectAttempts: 3,
		ConnectDelay:    10 * time.Millisecond,
	})

	require.Error(t, err)
	assert.ErrorIs(t, err, models.ErrStoreUnavailable)
	assert.Contains(t, err.Error(), "3 connection attempts failed")
	assert.GreaterOrEqual(t, time.Since(start), 20*time.Millisecond)
}

func TestConnect_UnsupportedDriver(t *testing.T) {
	_, err := Connect(context.Background(), Config{Driver: "oracle", URL: "x"})
	assert.Error(t, err)
}

func TestNow_TruncatedUTC(t *testing.T) {
	now := Now()
	assert.Equal(t, time.UTC, now.Location())
	assert.Zero(t, now.Nanosecond()%int(time.Microsecond))
}

func TestCloseQuietly(t *testing.T) {
	assert.NotPanics(t, func() { closeQuietly(nil) })

	db, err := Connect(context.Background(), Config{
		Driver: "sqlite",
		URL:    filepath.Join(t.TempDir(), "yell.db"),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)

	closeQuietly(db)

	assert.ErrorContains(t, sqlDB.Ping(), "database is closed")
}
