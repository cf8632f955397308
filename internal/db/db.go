package db

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"turtlecrossing/internal/config"
	"turtlecrossing/internal/models"
	"turtlecrossing/internal/voting"
)

// Init connects to Postgres and tunes the connection pool.
func Init(cfg *config.Config) (*gorm.DB, error) {
	gdb, err := Open(postgres.Open(cfg.DatabaseURL))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := gdb.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql.DB: %w", err)
	}
	sqlDB.SetMaxOpenConns(50)
	sqlDB.SetMaxIdleConns(25)
	sqlDB.SetConnMaxLifetime(30 * time.Minute)
	sqlDB.SetConnMaxIdleTime(5 * time.Minute)

	slog.Info("database connected")
	return gdb, nil
}

// Open opens a database with the settings every environment shares. Unique
// violations surface as gorm.ErrDuplicatedKey.
func Open(dialector gorm.Dialector) (*gorm.DB, error) {
	return gorm.Open(dialector, &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Warn),
	})
}

// Migrate creates the site tables, the reason table and every vote table.
func Migrate(gdb *gorm.DB, engine *voting.Engine) error {
	if err := gdb.AutoMigrate(models.All()...); err != nil {
		return fmt.Errorf("failed to migrate models: %w", err)
	}
	if err := engine.Migrate(); err != nil {
		return fmt.Errorf("failed to migrate voting tables: %w", err)
	}
	slog.Info("database migration completed")
	return nil
}

var defaultReasons = []voting.VoteReason{
	{ContentType: "story", Direction: 1, Reason: "Interesting"},
	{ContentType: "story", Direction: 1, Reason: "Insightful"},
	{ContentType: "story", Direction: -1, Reason: "Spam"},
	{ContentType: "story", Direction: -1, Reason: "Off-topic"},
}

// SeedVoteReasons stores the initial story reasons when no reasons exist yet.
func SeedVoteReasons(ctx context.Context, gdb *gorm.DB, registry *voting.Registry) error {
	var count int64
	if err := gdb.WithContext(ctx).Model(&voting.VoteReason{}).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		slog.Info("vote reasons already seeded, skipping")
		return nil
	}

	for _, r := range defaultReasons {
		reason := r
		if err := registry.Save(ctx, &reason); err != nil {
			return fmt.Errorf("failed to seed reason %s: %w", reason.String(), err)
		}
	}
	slog.Info("initial vote reasons created", "count", len(defaultReasons))
	return nil
}
