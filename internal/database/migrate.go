package database

import (
	"fmt"

	"gorm.io/gorm"

	"milebot/internal/model"
	"milebot/pkg/log"
)

// AutoMigrate auto migrate database table schema
func AutoMigrate(db *gorm.DB) error {
	log.Info("Starting database migration...")

	models := []interface{}{
		&model.User{},
		&model.SiteUser{},
		&model.Ad{},
		&model.Proposal{},
		&model.Rating{},
		&model.MileHistory{},
		&model.Plan{},
		&model.Subscription{},
		&model.Payment{},
		&model.ConversationState{},
	}

	for _, m := range models {
		if err := db.AutoMigrate(m); err != nil {
			return fmt.Errorf("failed to migrate %T: %w", m, err)
		}
		log.Infof("Migrated model: %T", m)
	}

	log.Info("Database migration completed successfully")
	return nil
}

// CreateIndexes create additional indexes
func CreateIndexes(db *gorm.DB) error {
	log.Info("Creating additional indexes...")

	indexes := []struct {
		table string
		name  string
		sql   string
	}{
		{
			table: "ads",
			name:  "idx_ads_owner_status",
			sql:   "CREATE INDEX IF NOT EXISTS idx_ads_owner_status ON ads (owner_id, status, created_at)",
		},
		{
			table: "proposals",
			name:  "idx_proposals_ad_status",
			sql:   "CREATE INDEX IF NOT EXISTS idx_proposals_ad_status ON proposals (ad_id, status, created_at)",
		},
		{
			table: "ratings",
			name:  "idx_ratings_to_confirmed",
			sql:   "CREATE INDEX IF NOT EXISTS idx_ratings_to_confirmed ON ratings (to_user_id, confirmed, created_at)",
		},
		{
			table: "subscriptions",
			name:  "idx_subscriptions_status_ends",
			sql:   "CREATE INDEX IF NOT EXISTS idx_subscriptions_status_ends ON subscriptions (status, ends_at)",
		},
	}

	for _, idx := range indexes {
		if err := db.Exec(idx.sql).Error; err != nil {
			log.Warnf("Failed to create index %s on table %s: %v", idx.name, idx.table, err)
		} else {
			log.Infof("Created index: %s on table %s", idx.name, idx.table)
		}
	}

	log.Info("Index creation completed")
	return nil
}

// SeedPlans inserts the default subscription plans if the table is empty.
func SeedPlans(db *gorm.DB) error {
	var count int64
	if err := db.Model(&model.Plan{}).Count(&count).Error; err != nil {
		return fmt.Errorf("failed to count plans: %w", err)
	}
	if count > 0 {
		return nil
	}

	plans := []model.Plan{
		{Name: "Comprador", Price: 19.90, DurationDays: 30, Features: `["BUY"]`, Active: true},
		{Name: "Vendedor", Price: 29.90, DurationDays: 30, Features: `["SELL"]`, Active: true},
		{Name: "Completo", Price: 39.90, DurationDays: 30, Features: `["BUY","SELL"]`, Active: true},
	}

	if err := db.Create(&plans).Error; err != nil {
		return fmt.Errorf("failed to seed plans: %w", err)
	}
	log.Infof("Seeded %d default plans", len(plans))
	return nil
}
