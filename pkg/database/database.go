package database

import (
	"context"
	"fmt"
	"time"

	"github.com/CyrilCartoux/watch-pros-sub002/pkg/config"
	zaplog "github.com/CyrilCartoux/watch-pros-sub002/pkg/logger"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// InitDB opens the PostgreSQL connection and applies pool settings
func InitDB(ctx context.Context, dbConfig *config.DBConfig) (*gorm.DB, error) {
	if dbConfig.SecretID != "" {
		creds, err := FetchCredentials(ctx, dbConfig.SecretID)
		if err != nil {
			return nil, err
		}
		dbConfig.User = creds.Username
		dbConfig.Password = creds.Password
	}

	pgConfig := postgres.Config{
		DSN:                  dbConfig.GetDSN(),
		PreferSimpleProtocol: true, // Disables implicit prepared statement usage
	}

	db, err := gorm.Open(postgres.New(pgConfig), &gorm.Config{
		Logger:  logger.Default.LogMode(logLevel(dbConfig.LogLevel)),
		NowFunc: func() time.Time { return time.Now().UTC() },
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database object: %w", err)
	}

	sqlDB.SetMaxIdleConns(dbConfig.MaxIdleConns)
	sqlDB.SetMaxOpenConns(dbConfig.MaxOpenConns)
	sqlDB.SetConnMaxLifetime(dbConfig.ConnMaxLifetime)

	zaplog.GetLogger().Info("Database connected successfully",
		zap.String("host", dbConfig.Host),
		zap.String("database", dbConfig.DBName),
	)

	return db, nil
}

// Migrate creates or updates tables for the given models and the search index
func Migrate(db *gorm.DB, models ...interface{}) error {
	if db == nil {
		return fmt.Errorf("database is not initialized")
	}

	if err := db.AutoMigrate(models...); err != nil {
		return fmt.Errorf("failed to run database migrations: %w", err)
	}

	// full text search on titles, matching the expression used by listing search
	if err := db.Exec(`CREATE INDEX IF NOT EXISTS idx_listings_title_fts ON listings USING GIN (to_tsvector('simple', title))`).Error; err != nil {
		return fmt.Errorf("failed to create search index: %w", err)
	}
	if err := db.Exec(`CREATE INDEX IF NOT EXISTS idx_listings_status_created ON listings (status, created_at DESC, id DESC)`).Error; err != nil {
		return fmt.Errorf("failed to create listing order index: %w", err)
	}

	return nil
}

// Ping checks connectivity with a short timeout
func Ping(ctx context.Context, db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	return sqlDB.PingContext(ctx)
}

// Close releases the underlying connection pool
func Close(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func logLevel(level string) logger.LogLevel {
	switch level {
	case "silent":
		return logger.Silent
	case "error":
		return logger.Error
	case "info":
		return logger.Info
	default:
		return logger.Warn
	}
}
