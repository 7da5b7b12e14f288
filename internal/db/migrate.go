package db

import (
	"fmt"

	"github.com/ecurie-aix/rover-panel/internal/models"
	"gorm.io/gorm"
)

// Migrate applies the GORM auto-migrations for every model.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&models.User{},
		&models.Permission{},
		&models.AccessRequest{},
		&models.ConnectionLog{},
		&models.RaceLog{},
	); err != nil {
		return fmt.Errorf("migrations: %w", err)
	}
	return nil
}
