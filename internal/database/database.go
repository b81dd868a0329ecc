package database

import (
	"fmt"
	"time"

	"github.com/reviewinn/backend/internal/config"
	"github.com/reviewinn/backend/internal/models"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// DB holds the database connection
var DB *gorm.DB

// Initialize creates and configures the database connection. The pool is
// sized for high request concurrency; timestamps are always UTC.
func Initialize(cfg *config.Config) error {
	gormLogger := logger.Default
	if cfg.IsDevelopment() {
		gormLogger = logger.Default.LogMode(logger.Info)
	}

	db, err := gorm.Open(postgres.Open(cfg.DatabaseURL), &gorm.Config{
		Logger: gormLogger,
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	})
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}

	sqlDB.SetMaxIdleConns(cfg.DBMaxIdleConns)
	sqlDB.SetMaxOpenConns(cfg.DBMaxOpenConns)
	sqlDB.SetConnMaxLifetime(cfg.DBConnLifetime)

	DB = db
	return nil
}

// Migrate runs auto-migration for all models
func Migrate() error {
	if DB == nil {
		return fmt.Errorf("database not initialized")
	}

	err := DB.AutoMigrate(
		&models.User{},
		&models.UnifiedCategory{},
		&models.CategoryQuestion{},
		&models.Entity{},
		&models.EntityView{},
		&models.Review{},
		&models.ReviewReaction{},
		&models.ReviewView{},
		&models.Comment{},
		&models.CommentReaction{},
		&models.ReviewCircle{},
		&models.CircleConnection{},
		&models.CircleRequest{},
		&models.CircleInvite{},
		&models.CircleBlock{},
		&models.Notification{},
	)
	if err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	if err := createIndexes(); err != nil {
		return fmt.Errorf("failed to create indexes: %w", err)
	}

	return nil
}

// createIndexes creates performance indexes beyond what the model tags
// declare. All foreign keys are covered; composite indexes back the hot
// reaction, view, and request lookups.
func createIndexes() error {
	// Entity listing and filters
	DB.Exec("CREATE INDEX IF NOT EXISTS idx_entities_name_lower ON entities (LOWER(name))")
	DB.Exec("CREATE INDEX IF NOT EXISTS idx_entities_root_final ON entities (root_category_id, final_category_id)")
	DB.Exec("CREATE INDEX IF NOT EXISTS idx_entities_rating ON entities (average_rating DESC) WHERE deleted_at IS NULL")

	// Review feeds
	DB.Exec("CREATE INDEX IF NOT EXISTS idx_reviews_entity_created ON reviews (entity_id, created_at DESC) WHERE deleted_at IS NULL")
	DB.Exec("CREATE INDEX IF NOT EXISTS idx_reviews_user_created ON reviews (user_id, created_at DESC) WHERE deleted_at IS NULL")

	// Reaction summaries: grouped counts plus the caller's own row
	DB.Exec("CREATE INDEX IF NOT EXISTS idx_review_reactions_review_kind ON review_reactions (review_id, kind)")
	DB.Exec("CREATE INDEX IF NOT EXISTS idx_comment_reactions_comment_kind ON comment_reactions (comment_id, kind)")

	// View dedupe windows
	DB.Exec("CREATE INDEX IF NOT EXISTS idx_review_views_window ON review_views (review_id, ip, viewed_at DESC)")
	DB.Exec("CREATE INDEX IF NOT EXISTS idx_entity_views_window ON entity_views (entity_id, ip, viewed_at DESC)")
	DB.Exec("CREATE INDEX IF NOT EXISTS idx_entity_views_user_recent ON entity_views (user_id, viewed_at DESC) WHERE user_id IS NOT NULL")

	// Circle lookups
	DB.Exec("CREATE INDEX IF NOT EXISTS idx_circle_requests_receiver_status ON circle_requests (receiver_id, status)")
	DB.Exec("CREATE INDEX IF NOT EXISTS idx_circle_connections_circle ON circle_connections (circle_id)")

	// Notification feed
	DB.Exec("CREATE INDEX IF NOT EXISTS idx_notifications_user_unread ON notifications (user_id) WHERE is_read = false")

	return nil
}

// Transaction runs fn inside a single database transaction. Any returned
// error rolls the whole unit back.
func Transaction(fn func(tx *gorm.DB) error) error {
	return DB.Transaction(fn)
}

// Close closes the database connection
func Close() error {
	if DB == nil {
		return nil
	}

	sqlDB, err := DB.DB()
	if err != nil {
		return err
	}

	return sqlDB.Close()
}

// Health checks database connectivity
func Health() error {
	if DB == nil {
		return fmt.Errorf("database not initialized")
	}

	sqlDB, err := DB.DB()
	if err != nil {
		return err
	}

	return sqlDB.Ping()
}
