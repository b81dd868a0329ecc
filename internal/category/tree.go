package category

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/reviewinn/backend/internal/models"
	"gorm.io/gorm"
)

var ErrCategoryNotFound = errors.New("category not found")

// Engine serves the category tree and the per-category question sets.
type Engine struct {
	db *gorm.DB
}

// NewEngine creates a category engine over the given database.
func NewEngine(db *gorm.DB) *Engine {
	return &Engine{db: db}
}

// GetByID loads a single category.
func (e *Engine) GetByID(ctx context.Context, id uint64) (*models.UnifiedCategory, error) {
	var cat models.UnifiedCategory
	err := e.db.WithContext(ctx).First(&cat, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrCategoryNotFound
	}
	return &cat, err
}

// GetByPath resolves a category through the multi-format path candidates.
func (e *Engine) GetByPath(ctx context.Context, rawPath string) (*models.UnifiedCategory, error) {
	for _, candidate := range PathCandidates(rawPath) {
		var cat models.UnifiedCategory
		err := e.db.WithContext(ctx).First(&cat, "path = ? AND is_active = ?", candidate, true).Error
		if err == nil {
			return &cat, nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
	}
	return nil, ErrCategoryNotFound
}

// Roots lists the level-1 categories in sort order.
func (e *Engine) Roots(ctx context.Context) ([]models.UnifiedCategory, error) {
	var cats []models.UnifiedCategory
	err := e.db.WithContext(ctx).
		Where("parent_id IS NULL AND is_active = ?", true).
		Order("sort_order, name").
		Find(&cats).Error
	return cats, err
}

// Children lists the direct children of a category.
func (e *Engine) Children(ctx context.Context, parentID uint64) ([]models.UnifiedCategory, error) {
	var cats []models.UnifiedCategory
	err := e.db.WithContext(ctx).
		Where("parent_id = ? AND is_active = ?", parentID, true).
		Order("sort_order, name").
		Find(&cats).Error
	return cats, err
}

// Breadcrumb returns the chain from root to the category, in ancestor order.
func (e *Engine) Breadcrumb(ctx context.Context, id uint64) ([]models.UnifiedCategory, error) {
	var chain []models.UnifiedCategory
	currentID := &id
	for currentID != nil {
		cat, err := e.GetByID(ctx, *currentID)
		if err != nil {
			return nil, err
		}
		chain = append([]models.UnifiedCategory{*cat}, chain...)
		currentID = cat.ParentID
	}
	return chain, nil
}

// BreadcrumbDisplay renders a breadcrumb chain as "A > B > C".
func BreadcrumbDisplay(chain []models.UnifiedCategory) string {
	names := make([]string, len(chain))
	for i, cat := range chain {
		names[i] = cat.Name
	}
	return strings.Join(names, " > ")
}

// Descendants lists every category under the given subtree, excluding the
// node itself. The materialized path makes this a single prefix query.
func (e *Engine) Descendants(ctx context.Context, id uint64) ([]models.UnifiedCategory, error) {
	root, err := e.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	var cats []models.UnifiedCategory
	err = e.db.WithContext(ctx).
		Where("path LIKE ? AND id <> ? AND is_active = ?", root.Path+"/%", root.ID, true).
		Order("path").
		Find(&cats).Error
	return cats, err
}

// Leaves lists the leaf categories under a subtree (or the whole tree when
// subtreeID is zero).
func (e *Engine) Leaves(ctx context.Context, subtreeID uint64) ([]models.UnifiedCategory, error) {
	query := e.db.WithContext(ctx).
		Where("is_active = ?", true).
		Where("NOT EXISTS (SELECT 1 FROM unified_categories children WHERE children.parent_id = unified_categories.id AND children.is_active = ?)", true)

	if subtreeID != 0 {
		root, err := e.GetByID(ctx, subtreeID)
		if err != nil {
			return nil, err
		}
		query = query.Where("(path LIKE ? OR id = ?)", root.Path+"/%", root.ID)
	}

	var cats []models.UnifiedCategory
	err := query.Order("path").Find(&cats).Error
	return cats, err
}

// Search finds active categories by name substring, case-insensitive.
func (e *Engine) Search(ctx context.Context, query string, limit int) ([]models.UnifiedCategory, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	var cats []models.UnifiedCategory
	err := e.db.WithContext(ctx).
		Where("LOWER(name) LIKE ? AND is_active = ?", "%"+strings.ToLower(query)+"%", true).
		Order("level, sort_order, name").
		Limit(limit).
		Find(&cats).Error
	return cats, err
}

// Create inserts a category under parentID (zero for a root), maintaining
// the level and materialized-path invariants.
func (e *Engine) Create(ctx context.Context, name string, parentID uint64, sortOrder int) (*models.UnifiedCategory, error) {
	slug := Slugify(name)
	if slug == "" {
		return nil, fmt.Errorf("category name %q produces an empty slug", name)
	}

	cat := models.UnifiedCategory{
		Name:      name,
		Slug:      slug,
		Level:     1,
		Path:      slug,
		SortOrder: sortOrder,
		IsActive:  true,
	}

	if parentID != 0 {
		parent, err := e.GetByID(ctx, parentID)
		if err != nil {
			return nil, err
		}
		cat.ParentID = &parent.ID
		cat.Level = parent.Level + 1
		cat.Path = parent.Path + "/" + slug
	}

	// Slug must be unique among siblings; the unique path index enforces
	// the same thing transitively.
	var count int64
	sibling := e.db.WithContext(ctx).Model(&models.UnifiedCategory{}).Where("slug = ?", slug)
	if cat.ParentID == nil {
		sibling = sibling.Where("parent_id IS NULL")
	} else {
		sibling = sibling.Where("parent_id = ?", *cat.ParentID)
	}
	if err := sibling.Count(&count).Error; err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, fmt.Errorf("category slug %q already exists under this parent", slug)
	}

	if err := e.db.WithContext(ctx).Create(&cat).Error; err != nil {
		return nil, err
	}
	return &cat, nil
}

// RootAncestor returns the level-1 ancestor of a category (itself for roots).
func (e *Engine) RootAncestor(ctx context.Context, id uint64) (*models.UnifiedCategory, error) {
	chain, err := e.Breadcrumb(ctx, id)
	if err != nil {
		return nil, err
	}
	return &chain[0], nil
}
