package views

import (
	"context"
	"testing"
	"time"

	"github.com/reviewinn/backend/internal/logger"
	"github.com/reviewinn/backend/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func newTestTracker(t *testing.T) (*Tracker, *gorm.DB, *time.Time) {
	t.Helper()
	logger.InitializeForTests()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&models.Entity{},
		&models.EntityView{},
		&models.Review{},
		&models.ReviewView{},
		&models.UnifiedCategory{},
	))

	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	tracker := NewTracker(db)
	tracker.SetClock(func() time.Time { return now })
	return tracker, db, &now
}

func seedEntityAndReview(t *testing.T, db *gorm.DB) (*models.Entity, *models.Review) {
	t.Helper()
	entity := models.Entity{Name: "e", Description: "d", RootCategoryID: 1, FinalCategoryID: 1}
	require.NoError(t, db.Create(&entity).Error)
	review := models.Review{UserID: 1, EntityID: entity.ID, Title: "t", Content: "long enough", OverallRating: 4}
	require.NoError(t, db.Create(&review).Error)
	return &entity, &review
}

func TestEntityViewDedupeWindow(t *testing.T) {
	tracker, db, now := newTestTracker(t)
	entity, _ := seedEntityAndReview(t, db)
	ctx := context.Background()
	visit := Visit{IP: "10.0.0.1"}

	counted, err := tracker.RecordEntityView(ctx, entity.ID, visit)
	require.NoError(t, err)
	assert.True(t, counted)

	// Same IP inside the window does not count.
	*now = now.Add(10 * time.Minute)
	counted, err = tracker.RecordEntityView(ctx, entity.ID, visit)
	require.NoError(t, err)
	assert.False(t, counted)

	// A different IP counts immediately.
	counted, err = tracker.RecordEntityView(ctx, entity.ID, Visit{IP: "10.0.0.2"})
	require.NoError(t, err)
	assert.True(t, counted)

	// The same IP counts again once the window passes.
	*now = now.Add(25 * time.Minute)
	counted, err = tracker.RecordEntityView(ctx, entity.ID, visit)
	require.NoError(t, err)
	assert.True(t, counted)

	var got models.Entity
	require.NoError(t, db.First(&got, "id = ?", entity.ID).Error)
	assert.Equal(t, int64(3), got.ViewCount)
}

func TestReviewViewCountsEntityOnce(t *testing.T) {
	tracker, db, now := newTestTracker(t)
	entity, review := seedEntityAndReview(t, db)
	ctx := context.Background()
	visit := Visit{IP: "10.0.0.1"}

	counted, err := tracker.RecordReviewView(ctx, review.ID, visit)
	require.NoError(t, err)
	assert.True(t, counted)

	*now = now.Add(5 * time.Minute)
	counted, err = tracker.RecordReviewView(ctx, review.ID, visit)
	require.NoError(t, err)
	assert.False(t, counted, "second view inside the window is deduplicated")

	var gotReview models.Review
	require.NoError(t, db.First(&gotReview, "id = ?", review.ID).Error)
	assert.Equal(t, int64(1), gotReview.ViewCount)

	var gotEntity models.Entity
	require.NoError(t, db.First(&gotEntity, "id = ?", entity.ID).Error)
	assert.Equal(t, int64(1), gotEntity.ViewCount, "entity counted exactly once")
}

func TestViewRowsCarryExpiry(t *testing.T) {
	tracker, db, now := newTestTracker(t)
	entity, _ := seedEntityAndReview(t, db)

	_, err := tracker.RecordEntityView(context.Background(), entity.ID, Visit{IP: "10.0.0.1"})
	require.NoError(t, err)

	var row models.EntityView
	require.NoError(t, db.First(&row).Error)
	assert.WithinDuration(t, now.Add(30*24*time.Hour), row.ExpiresAt, time.Second)
}

func TestRecentlyViewedOrdering(t *testing.T) {
	tracker, db, now := newTestTracker(t)
	ctx := context.Background()
	userID := uint64(42)

	first := models.Entity{Name: "first", Description: "d", RootCategoryID: 1, FinalCategoryID: 1}
	second := models.Entity{Name: "second", Description: "d", RootCategoryID: 1, FinalCategoryID: 1}
	require.NoError(t, db.Create(&first).Error)
	require.NoError(t, db.Create(&second).Error)

	_, err := tracker.RecordEntityView(ctx, first.ID, Visit{IP: "10.0.0.1", UserID: &userID})
	require.NoError(t, err)
	*now = now.Add(time.Hour)
	_, err = tracker.RecordEntityView(ctx, second.ID, Visit{IP: "10.0.0.1", UserID: &userID})
	require.NoError(t, err)

	recent, err := tracker.RecentlyViewedEntities(ctx, userID, 10)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, second.ID, recent[0].ID, "newest visit first")
	assert.Equal(t, first.ID, recent[1].ID)

	// Anonymous visits never show up in a user's feed.
	other, err := tracker.RecentlyViewedEntities(ctx, 7, 10)
	require.NoError(t, err)
	assert.Empty(t, other)
}

func TestSweepExpired(t *testing.T) {
	tracker, db, now := newTestTracker(t)
	entity, review := seedEntityAndReview(t, db)
	ctx := context.Background()

	_, err := tracker.RecordEntityView(ctx, entity.ID, Visit{IP: "10.0.0.1"})
	require.NoError(t, err)
	_, err = tracker.RecordReviewView(ctx, review.ID, Visit{IP: "10.0.0.2"})
	require.NoError(t, err)

	// Nothing has expired yet.
	swept, err := tracker.SweepExpired(ctx)
	require.NoError(t, err)
	assert.Zero(t, swept)

	*now = now.Add(31 * 24 * time.Hour)
	swept, err = tracker.SweepExpired(ctx)
	require.NoError(t, err)
	// One entity view from the direct visit, one entity view plus one
	// review view from the review visit.
	assert.Equal(t, int64(3), swept)
}
