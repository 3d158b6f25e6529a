package db

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"charging-kiosk-backend/config"
	"charging-kiosk-backend/internal/model"
)

// Init opens the configured database, runs migrations and seeds the coin set.
func Init(cfg *config.DatabaseConfig, log *slog.Logger) (*gorm.DB, error) {
	dialector, err := dialectorFor(cfg)
	if err != nil {
		return nil, err
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql.DB: %w", err)
	}

	if cfg.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	sqlDB.SetConnMaxLifetime(time.Duration(cfg.ConnMaxLifetimeMinutes) * time.Minute)

	log.Info("running database migrations", "driver", cfg.Driver)
	if err := Migrate(db); err != nil {
		return nil, err
	}

	if cfg.SeedDenominations {
		n, err := SeedDenominations(context.Background(), db, model.DefaultDenominations())
		if err != nil {
			return nil, err
		}
		if n > 0 {
			log.Info("seeded default denominations", "count", n)
		}
	}

	log.Info("database initialization complete")
	return db, nil
}

// Migrate creates or updates every table the kiosk uses.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&model.Denomination{},
		&model.Transaction{},
		&model.PushSubscription{},
		&model.SubscriptionSlot{},
	); err != nil {
		return fmt.Errorf("automigrate failed: %w", err)
	}
	return nil
}

// SeedDenominations inserts the given coin set when the table is empty and
// reports how many rows were written.
func SeedDenominations(ctx context.Context, db *gorm.DB, denominations []model.Denomination) (int, error) {
	var count int64
	if err := db.WithContext(ctx).Model(&model.Denomination{}).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("failed to count denominations: %w", err)
	}
	if count > 0 || len(denominations) == 0 {
		return 0, nil
	}
	if err := db.WithContext(ctx).Create(&denominations).Error; err != nil {
		return 0, fmt.Errorf("failed to seed denominations: %w", err)
	}
	return len(denominations), nil
}

func dialectorFor(cfg *config.DatabaseConfig) (gorm.Dialector, error) {
	switch cfg.Driver {
	case "", "postgres":
		return postgres.Open(cfg.DSN), nil
	case "sqlite":
		return sqlite.Open(cfg.DSN), nil
	case "mysql":
		return mysql.Open(cfg.DSN), nil
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}
}
