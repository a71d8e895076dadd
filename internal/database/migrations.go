package database

import (
	"SiteStats-Backend/internal/domain"
	"fmt"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// AutoMigrate runs automatic migrations for all domain models.
func AutoMigrate(db *gorm.DB, log *zap.Logger) error {
	log.Info("starting database auto-migration")

	models := []interface{}{
		&domain.AdminUser{},
		&domain.VisitorEvent{},
	}

	for _, model := range models {
		modelName := fmt.Sprintf("%T", model)
		if err := db.AutoMigrate(model); err != nil {
			log.Error("failed to migrate model",
				zap.String("model", modelName),
				zap.Error(err))
			return fmt.Errorf("failed to migrate model %s: %w", modelName, err)
		}
		log.Info("model migrated successfully", zap.String("model", modelName))
	}

	log.Info("database auto-migration completed successfully", zap.Int("migrated_models", len(models)))
	return nil
}

// SeedAdmin creates the initial dashboard admin account when no account
// exists for the configured email. passwordHash must already be a bcrypt
// hash; plaintext never reaches this layer.
func SeedAdmin(db *gorm.DB, log *zap.Logger, email, passwordHash string) error {
	if email == "" || passwordHash == "" {
		log.Info("admin seed skipped, no admin credentials configured")
		return nil
	}

	var count int64
	if err := db.Model(&domain.AdminUser{}).Where("email = ?", email).Count(&count).Error; err != nil {
		return fmt.Errorf("failed to check existing admin: %w", err)
	}
	if count > 0 {
		log.Info("admin account already exists, skipping seeding", zap.String("email", email))
		return nil
	}

	admin := domain.AdminUser{
		Email:        email,
		PasswordHash: passwordHash,
		IsActive:     true,
	}
	if err := db.Create(&admin).Error; err != nil {
		log.Error("failed to seed admin account", zap.String("email", email), zap.Error(err))
		return fmt.Errorf("failed to seed admin account: %w", err)
	}

	log.Info("seeded admin account", zap.String("email", email))
	return nil
}
