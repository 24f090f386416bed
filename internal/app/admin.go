package app

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/school-portal/portal-backend/internal/config"
	"github.com/school-portal/portal-backend/internal/db"
	"github.com/school-portal/portal-backend/internal/models"
	"github.com/school-portal/portal-backend/internal/security"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// CreateAdminParams holds inputs for admin creation.
type CreateAdminParams struct {
	Username    string
	Password    string
	DisplayName string
	SchoolCode  string
	SuperAdmin  bool
}

// CreateAdmin inserts a staff account. Non-super admins start without permissions.
func CreateAdmin(ctx context.Context, cfg config.AppConfig, params CreateAdminParams) (*models.Admin, error) {
	conn, _, err := openDatabase(cfg)
	if err != nil {
		return nil, err
	}
	defer closeDatabase(conn)
	if errMigrate := db.Migrate(conn); errMigrate != nil {
		return nil, errMigrate
	}
	return createAdmin(ctx, conn, params)
}

func createAdmin(ctx context.Context, conn *gorm.DB, params CreateAdminParams) (*models.Admin, error) {
	username := strings.TrimSpace(params.Username)
	if username == "" {
		return nil, errors.New("username is required")
	}
	if errPassword := security.ValidatePassword(params.Password); errPassword != nil {
		return nil, errPassword
	}
	hash, errHash := security.HashPassword(params.Password)
	if errHash != nil {
		return nil, fmt.Errorf("hash password: %w", errHash)
	}

	admin := models.Admin{
		Username:     username,
		Password:     hash,
		DisplayName:  strings.TrimSpace(params.DisplayName),
		SchoolCode:   strings.TrimSpace(params.SchoolCode),
		Active:       true,
		IsSuperAdmin: params.SuperAdmin,
		Permissions:  datatypes.JSON("[]"),
	}
	if errCreate := conn.WithContext(ctx).Create(&admin).Error; errCreate != nil {
		if db.IsUniqueViolation(errCreate) {
			return nil, fmt.Errorf("admin %q already exists", username)
		}
		return nil, fmt.Errorf("create admin: %w", errCreate)
	}
	return &admin, nil
}
