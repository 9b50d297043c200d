package postgresql

import (
	"context"
	"fmt"

	"github.com/aniladanir/retry"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Initialize opens a db session, retrying up to maxAttempts times, and auto
// migrates given models
func Initialize(ctx context.Context, connStr string, maxAttempts int, models []any) (*gorm.DB, error) {
	retrier, err := retry.New(retry.WithMaxAttemps(maxAttempts))
	if err != nil {
		return nil, fmt.Errorf("encountered error when initializing retrier: %w", err)
	}

	var (
		db      *gorm.DB
		openErr error
	)
	ok := <-retrier.Retry(ctx, func(attempt int) (terminate bool) {
		db, openErr = Open(postgres.Open(connStr))
		return openErr == nil
	}, true)
	if !ok {
		if openErr == nil {
			openErr = ctx.Err()
		}
		return nil, fmt.Errorf("failed to connect to database: %w", openErr)
	}

	if err := db.WithContext(ctx).AutoMigrate(models...); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return db, nil
}

// Open creates a gorm session on the given dialector with the service defaults.
func Open(dialector gorm.Dialector) (*gorm.DB, error) {
	return gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
}

func Ping(ctx context.Context, db *gorm.DB) error {
	sqlDb, err := db.DB()
	if err != nil {
		return err
	}

	return sqlDb.PingContext(ctx)
}

func Close(db *gorm.DB) error {
	sqlDb, err := db.DB()
	if err != nil {
		return err
	}

	return sqlDb.Close()
}
