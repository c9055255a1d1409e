package database

import (
	"context"
	"fmt"
	"time"

	"yell/internal/models"

	"github.com/rs/zerolog/log"
	"github.com/sethvargo/go-retry"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type Config struct {
	Driver          string
	URL             string
	ConnectAttempts int
	ConnectDelay    time.Duration
	MaxOpenConns    int
	MaxIdleConns    int
	Debug           bool
}

// Now is the clock used for generated timestamps. PostgreSQL keeps
// microseconds, so values are truncated to that precision before they are
// handed back to callers.
func Now() time.Time {
	return time.Now().UTC().Truncate(time.Microsecond)
}

// Connect opens the store, retrying failed attempts with a constant delay.
// When every attempt fails the returned error wraps models.ErrStoreUnavailable.
func Connect(ctx context.Context, config Config) (*gorm.DB, error) {
	dialector, err := openDialector(config)
	if err != nil {
		return nil, err
	}

	attempts := config.ConnectAttempts
	if attempts < 1 {
		attempts = 1
	}
	backoff := retry.WithMaxRetries(uint64(attempts-1), retry.NewConstant(config.ConnectDelay))

	var db *gorm.DB
	attempt := 0
	err = retry.Do(ctx, backoff, func(ctx context.Context) error {
		attempt++
		conn, err := gorm.Open(dialector, &gorm.Config{
			Logger:  newGormLogger(config.Debug),
			NowFunc: Now,
		})
		if err != nil {
			closeQuietly(conn)
			log.Warn().Err(err).Msgf("Database connection attempt %d/%d failed", attempt, attempts)
			return retry.RetryableError(err)
		}
		db = conn
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %d connection attempts failed: %w", models.ErrStoreUnavailable, attempt, err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql.DB: %w", err)
	}

	if config.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(config.MaxIdleConns)
	}
	if config.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(config.MaxOpenConns)
	}
	sqlDB.SetConnMaxLifetime(time.Hour)

	log.Info().Str("driver", config.Driver).Msg("Database connected successfully")
	return db, nil
}

// closeQuietly releases the pool of a connection that failed to open.
func closeQuietly(db *gorm.DB) {
	if db == nil || db.Config == nil || db.ConnPool == nil {
		return
	}
	if sqlDB, err := db.DB(); err == nil {
		sqlDB.Close()
	}
}

func openDialector(config Config) (gorm.Dialector, error) {
	switch config.Driver {
	case "postgres", "":
		return postgres.Open(config.URL), nil
	case "sqlite":
		return sqlite.Open(config.URL), nil
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", config.Driver)
	}
}

func newGormLogger(debug bool) logger.Interface {
	level := logger.Warn
	if debug {
		level = logger.Info
	}
	return logger.New(&log.Logger, logger.Config{
		SlowThreshold:             200 * time.Millisecond,
		LogLevel:                  level,
		IgnoreRecordNotFoundError: true,
	})
}

// Migrate creates the entries table when it does not exist yet.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(&models.Entry{}); err != nil {
		return fmt.Errorf("failed to migrate models: %w", err)
	}

	log.Info().Msg("Database migration completed successfully")
	return nil
}

// Close releases the pooled connections behind db.
func Close(db *gorm.DB) {
	if sqlDB, err := db.DB(); err == nil {
		if err := sqlDB.Close(); err != nil {
			log.Error().Err(err).Msg("Failed to close database")
		}
	}
}
