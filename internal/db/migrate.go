package db

import (
	"fmt"

	"github.com/tmarsden/tradescout-backend/internal/app/model"
	"github.com/tmarsden/tradescout-backend/pkg/logger"
	"gorm.io/gorm"
)

// Migrate runs schema migrations.
func Migrate(database *gorm.DB) error {
	logger.Info("Running database migrations")

	if err := database.AutoMigrate(
		&model.Business{},
	); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}

	logger.Info("Database migrations completed successfully")
	return nil
}
