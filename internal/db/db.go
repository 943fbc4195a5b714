package db

import (
	"fmt"
	"log"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"fleet-telemetry-backend/config"
	"fleet-telemetry-backend/internal/model"
)

// Init initializes the database connection and runs migrations.
func Init(cfg *config.DatabaseConfig) (*gorm.DB, error) {
	gormDB, err := gorm.Open(postgres.Open(cfg.DSN), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := gormDB.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql.DB: %w", err)
	}

	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(time.Duration(cfg.ConnMaxLifetimeMinutes) * time.Minute)

	log.Println("Running database migrations...")
	if err := Migrate(gormDB); err != nil {
		return nil, err
	}

	log.Println("Database initialization complete.")
	return gormDB, nil
}

// Migrate creates or updates the schema for all models.
func Migrate(gormDB *gorm.DB) error {
	if err := gormDB.AutoMigrate(
		&model.Machine{},
		&model.User{},
		&model.SpeedHistory{},
		&model.MaintenanceComment{},
		&model.AlertSubscription{},
	); err != nil {
		return fmt.Errorf("automigrate failed: %w", err)
	}
	return nil
}

// SeedAdmin inserts the built-in admin account if it does not exist.
// The row's token is the configured admin constant; the resolver
// short-circuits on that constant before any user lookup, so the row
// exists only to back the login endpoint and comment attribution.
func SeedAdmin(gormDB *gorm.DB, cfg *config.AuthConfig) error {
	admin := model.User{
		Username: "admin",
		Password: cfg.AdminPassword,
		Role:     model.RoleAdmin,
		Token:    cfg.AdminToken,
	}
	err := gormDB.Where("username = ?", admin.Username).FirstOrCreate(&admin).Error
	if err != nil {
		return fmt.Errorf("seed admin user: %w", err)
	}
	return nil
}
