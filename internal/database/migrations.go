package database

import (
	"Lynx-Backend/internal/domain"
	"fmt"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// AutoMigrate runs automatic migrations for all domain models.
func AutoMigrate(db *gorm.DB, log *zap.Logger) error {
	log.Info("starting database auto-migration")

	// Migration order matters because of foreign key style references.
	models := []interface{}{
		&domain.Plan{}, // reference data first
		&domain.User{},
		&domain.Link{},
		&domain.UsageRecord{},
		&domain.AnalyticsEvent{},
	}

	for _, model := range models {
		modelName := fmt.Sprintf("%T", model)
		if err := db.AutoMigrate(model); err != nil {
			log.Error("failed to migrate model",
				zap.String("model", modelName),
				zap.Error(err))
			return fmt.Errorf("failed to migrate model %s: %w", modelName, err)
		}
		log.Debug("model migrated", zap.String("model", modelName))
	}

	log.Info("database auto-migration completed", zap.Int("migrated_models", len(models)))
	return nil
}

// SeedPlans fills the subscription plan reference data. A limit of -1 means
// unlimited. Idempotent: existing plans are left untouched.
func SeedPlans(db *gorm.DB, log *zap.Logger) error {
	var count int64
	db.Model(&domain.Plan{}).Count(&count)
	if count > 0 {
		log.Info("subscription plans already exist, skipping seeding", zap.Int64("existing_count", count))
		return nil
	}

	plans := []domain.Plan{
		{
			Tier:                   domain.TierFree,
			DisplayName:            "Free",
			LinksPerMonth:          25,
			APIRequestsPerMonth:    1000,
			CustomDomains:          0,
			AnalyticsRetentionDays: 30,
			CustomCodes:            false,
		},
		{
			Tier:                   domain.TierPro,
			DisplayName:            "Pro",
			LinksPerMonth:          500,
			APIRequestsPerMonth:    25000,
			CustomDomains:          3,
			AnalyticsRetentionDays: 180,
			CustomCodes:            true,
		},
		{
			Tier:                   domain.TierPremium,
			DisplayName:            "Premium",
			LinksPerMonth:          domain.Unlimited,
			APIRequestsPerMonth:    domain.Unlimited,
			CustomDomains:          domain.Unlimited,
			AnalyticsRetentionDays: domain.Unlimited,
			CustomCodes:            true,
		},
	}

	if err := db.Create(&plans).Error; err != nil {
		log.Error("failed to seed subscription plans", zap.Error(err))
		return fmt.Errorf("failed to seed subscription plans: %w", err)
	}

	log.Info("seeded subscription plans", zap.Int("plans_created", len(plans)))
	return nil
}
