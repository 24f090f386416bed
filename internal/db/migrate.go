package db

import (
	"fmt"

	"github.com/school-portal/portal-backend/internal/models"
	"gorm.io/gorm"
)

// Migrate creates or updates every table the portal uses.
func Migrate(conn *gorm.DB) error {
	if conn == nil {
		return fmt.Errorf("db: nil connection")
	}
	if errMigrate := conn.AutoMigrate(
		&models.Student{},
		&models.Admin{},
		&models.Account{},
		&models.LedgerEntry{},
		&models.Product{},
		&models.ExchangeRecord{},
		&models.Setting{},
	); errMigrate != nil {
		return fmt.Errorf("db: migrate: %w", errMigrate)
	}
	return nil
}
