package category

import (
	"context"
	"testing"

	"github.com/reviewinn/backend/internal/logger"
	"github.com/reviewinn/backend/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	logger.InitializeForTests()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.UnifiedCategory{}, &models.CategoryQuestion{}))
	return NewEngine(db)
}

func seedQuestionRow(t *testing.T, e *Engine, path, name string, level int, isRoot bool) {
	t.Helper()
	row := models.CategoryQuestion{
		CategoryPath:   path,
		CategoryName:   name,
		CategoryLevel:  level,
		IsRootCategory: isRoot,
		Questions: []models.RatingQuestion{
			{Key: "quality", Question: "How was the quality from their professional?", Description: "Quality overall"},
			{Key: "value", Question: "How was the value for the service?", Description: "Value for money"},
		},
		IsActive: true,
	}
	require.NoError(t, e.db.Create(&row).Error)
}

func TestQuestionsExactMatch(t *testing.T) {
	e := newTestEngine(t)
	seedQuestionRow(t, e, "professionals/doctors", "Doctors", 2, false)

	res, err := e.GetQuestionsForCategory(context.Background(), "professionals/doctors")
	require.NoError(t, err)
	require.NotNil(t, res)
	assert.Equal(t, SourceSpecific, res.Source)
	assert.False(t, res.IsFallback)
	assert.Equal(t, "professionals/doctors", res.MatchedPath)
	assert.Len(t, res.Questions, 2)
}

func TestQuestionsExactMatchAcrossSeparators(t *testing.T) {
	e := newTestEngine(t)
	seedQuestionRow(t, e, "professionals/doctors", "Doctors", 2, false)

	res, err := e.GetQuestionsForCategory(context.Background(), "professionals.doctors")
	require.NoError(t, err)
	require.NotNil(t, res)
	assert.Equal(t, SourceSpecific, res.Source)
	assert.Equal(t, "professionals/doctors", res.MatchedPath)
}

func TestQuestionsExactMatchBumpsUsage(t *testing.T) {
	e := newTestEngine(t)
	seedQuestionRow(t, e, "professionals", "Professionals", 1, true)

	_, err := e.GetQuestionsForCategory(context.Background(), "professionals")
	require.NoError(t, err)

	var row models.CategoryQuestion
	require.NoError(t, e.db.First(&row, "category_path = ?", "professionals").Error)
	assert.Equal(t, int64(1), row.UsageCount)
	assert.NotNil(t, row.LastUsedAt)
}

func TestQuestionsParentFallback(t *testing.T) {
	e := newTestEngine(t)
	seedQuestionRow(t, e, "professionals/doctors", "Doctors", 2, false)

	res, err := e.GetQuestionsForCategory(context.Background(), "professionals/doctors/cardiologists")
	require.NoError(t, err)
	require.NotNil(t, res)
	assert.Equal(t, SourceParentFallback, res.Source)
	assert.True(t, res.IsFallback)
	assert.Equal(t, "professionals/doctors", res.MatchedPath)
	assert.Equal(t, "professionals/doctors/cardiologists", res.FallbackFrom)
}

func TestQuestionsSynthesizeFromRootTemplate(t *testing.T) {
	// Only the root has questions: the deeper path gets its own row
	// synthesized from the root template, customized with its name.
	e := newTestEngine(t)
	seedQuestionRow(t, e, "professionals", "Professionals", 1, true)

	res, err := e.GetQuestionsForCategory(context.Background(), "professionals/doctors")
	require.NoError(t, err)
	require.NotNil(t, res)
	assert.Equal(t, SourceAutoCreated, res.Source)
	assert.True(t, res.IsFallback)

	// The subject token is replaced with the category name.
	assert.Contains(t, res.Questions[0].Question, "doctors")
	assert.NotContains(t, res.Questions[0].Question, "their professional")

	// The synthesized row persists, so the next lookup is an exact hit.
	again, err := e.GetQuestionsForCategory(context.Background(), "professionals/doctors")
	require.NoError(t, err)
	assert.Equal(t, SourceSpecific, again.Source)
}

func TestQuestionsNewRootMaterializesDefaults(t *testing.T) {
	e := newTestEngine(t)

	res, err := e.GetQuestionsForCategory(context.Background(), "gadgets")
	require.NoError(t, err)
	require.NotNil(t, res)
	assert.Equal(t, SourceAutoCreated, res.Source)
	assert.Len(t, res.Questions, 5)
}

func TestQuestionsFinalFallback(t *testing.T) {
	// A deep path whose root has no template falls through to "other".
	e := newTestEngine(t)
	seedQuestionRow(t, e, GenericCategoryPath, "Other", 1, true)

	res, err := e.GetQuestionsForCategory(context.Background(), "unknown/sub/deep")
	require.NoError(t, err)
	require.NotNil(t, res)
	assert.Equal(t, SourceFinalFallback, res.Source)
	assert.True(t, res.IsFallback)
	assert.Equal(t, GenericCategoryPath, res.MatchedPath)
}

func TestQuestionsNoMatchAnywhere(t *testing.T) {
	e := newTestEngine(t)

	res, err := e.GetQuestionsForCategory(context.Background(), "unknown/sub")
	require.NoError(t, err)
	assert.Nil(t, res)
}

func TestTreeCreateAndBreadcrumb(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	root, err := e.Create(ctx, "Professionals", 0, 1)
	require.NoError(t, err)
	assert.Equal(t, 1, root.Level)
	assert.Equal(t, "professionals", root.Path)

	child, err := e.Create(ctx, "Doctors", root.ID, 1)
	require.NoError(t, err)
	assert.Equal(t, 2, child.Level)
	assert.Equal(t, "professionals/doctors", child.Path)

	chain, err := e.Breadcrumb(ctx, child.ID)
	require.NoError(t, err)
	require.Len(t, chain, 2)
	assert.Equal(t, "Professionals > Doctors", BreadcrumbDisplay(chain))

	_, err = e.Create(ctx, "Doctors", root.ID, 2)
	assert.Error(t, err, "duplicate sibling slug rejected")
}

func TestTreeLeavesAndDescendants(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	root, err := e.Create(ctx, "Places", 0, 1)
	require.NoError(t, err)
	mid, err := e.Create(ctx, "Restaurants", root.ID, 1)
	require.NoError(t, err)
	leaf, err := e.Create(ctx, "Cafes", mid.ID, 1)
	require.NoError(t, err)

	descendants, err := e.Descendants(ctx, root.ID)
	require.NoError(t, err)
	assert.Len(t, descendants, 2)

	leaves, err := e.Leaves(ctx, root.ID)
	require.NoError(t, err)
	require.Len(t, leaves, 1)
	assert.Equal(t, leaf.ID, leaves[0].ID)
}
