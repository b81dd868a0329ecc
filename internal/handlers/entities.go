package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/reviewinn/backend/internal/aggregation"
	"github.com/reviewinn/backend/internal/apperrors"
	"github.com/reviewinn/backend/internal/category"
	"github.com/reviewinn/backend/internal/database"
	"github.com/reviewinn/backend/internal/logger"
	"github.com/reviewinn/backend/internal/models"
	"github.com/reviewinn/backend/internal/util"
	"github.com/reviewinn/backend/internal/views"
	"gorm.io/gorm"
)

// entityView is the API shape of an entity plus its category breadcrumb.
type entityView struct {
	models.Entity
	Breadcrumb        []aggregation.BreadcrumbNode `json:"category_breadcrumb,omitempty"`
	BreadcrumbDisplay string                       `json:"category_display,omitempty"`
}

// ListEntities handles GET /api/v1/entities with search and filters.
func (h *Handlers) ListEntities(c *gin.Context) {
	page, limit := util.PageParams(c)

	query := database.DB.WithContext(c.Request.Context()).Model(&models.Entity{})

	if q := c.Query("q"); q != "" {
		query = query.Where("LOWER(name) LIKE ?", "%"+strings.ToLower(strings.TrimSpace(q))+"%")
	}
	if rootID, ok := util.QueryUint(c, "root_category_id"); ok {
		query = query.Where("root_category_id = ?", rootID)
	}
	if finalID, ok := util.QueryUint(c, "final_category_id"); ok {
		query = query.Where("final_category_id = ?", finalID)
	}
	if path := c.Query("category"); path != "" {
		cat, err := h.categories.GetByPath(c.Request.Context(), path)
		if err != nil {
			util.RespondPage(c, "entities", []entityView{}, util.NewPagination(0, page, limit))
			return
		}
		var ids []uint64
		subtree, err := h.categories.Descendants(c.Request.Context(), cat.ID)
		if err != nil {
			util.Fail(c, err)
			return
		}
		ids = append(ids, cat.ID)
		for _, d := range subtree {
			ids = append(ids, d.ID)
		}
		query = query.Where("final_category_id IN ?", ids)
	}
	if minRating, ok := util.QueryFloat(c, "min_rating"); ok {
		query = query.Where("average_rating >= ?", minRating)
	}
	if verified := c.Query("verified"); verified == "true" {
		query = query.Where("is_verified = ?", true)
	}
	if claimed := c.Query("claimed"); claimed == "true" {
		query = query.Where("is_claimed = ?", true)
	}

	switch c.DefaultQuery("sort", "recent") {
	case "rating":
		query = query.Order("average_rating DESC, review_count DESC")
	case "reviews":
		query = query.Order("review_count DESC")
	case "views":
		query = query.Order("view_count DESC")
	case "name":
		query = query.Order("name")
	default:
		query = query.Order("created_at DESC")
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		util.Fail(c, err)
		return
	}

	var entities []models.Entity
	err := query.
		Preload("RootCategory").
		Preload("FinalCategory").
		Offset((page - 1) * limit).
		Limit(limit).
		Find(&entities).Error
	if err != nil {
		util.Fail(c, err)
		return
	}

	util.RespondPage(c, "entities", entities, util.NewPagination(total, page, limit))
}

// GetEntity handles GET /api/v1/entities/:id. The read path reconciles the
// denormalized counters before rendering.
func (h *Handlers) GetEntity(c *gin.Context) {
	id, ok := util.IDParam(c, "id")
	if !ok {
		return
	}

	var entity models.Entity
	err := database.DB.WithContext(c.Request.Context()).
		Preload("RootCategory").
		Preload("FinalCategory").
		First(&entity, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			util.Fail(c, apperrors.NotFound("entity"))
			return
		}
		util.Fail(c, err)
		return
	}

	if err := h.agg.ReconcileEntity(c.Request.Context(), &entity); err != nil {
		logger.WarnWithError("entity reconciliation failed on read", err)
	}

	view := entityView{Entity: entity}
	if nodes, display, err := h.agg.CategoryBreadcrumb(c.Request.Context(), &entity); err == nil {
		view.Breadcrumb = nodes
		view.BreadcrumbDisplay = display
	}

	util.Respond(c, http.StatusOK, "", view)
}

type entityRequest struct {
	Name            string         `json:"name" binding:"required,min=1,max=200"`
	Description     string         `json:"description" binding:"required,min=1"`
	Avatar          string         `json:"avatar"`
	FinalCategoryID uint64         `json:"final_category_id"`
	CategoryPath    string         `json:"category_path"`
	Context         models.JSONMap `json:"context"`
}

// CreateEntity handles POST /api/v1/entities. The root category is always
// derived from the final category, never trusted from the client.
func (h *Handlers) CreateEntity(c *gin.Context) {
	userID, ok := util.RequireUserID(c)
	if !ok {
		return
	}

	var req entityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		util.Fail(c, apperrors.Validation("", err.Error()))
		return
	}

	final, err := h.resolveFinalCategory(c, req)
	if err != nil {
		util.Fail(c, err)
		return
	}
	root, err := h.categories.RootAncestor(c.Request.Context(), final.ID)
	if err != nil {
		util.Fail(c, err)
		return
	}

	entity := models.Entity{
		Name:            req.Name,
		Description:     req.Description,
		Avatar:          req.Avatar,
		RootCategoryID:  root.ID,
		FinalCategoryID: final.ID,
		Context:         req.Context,
		IsClaimed:       true,
		ClaimedBy:       &userID,
	}
	if err := database.DB.WithContext(c.Request.Context()).Create(&entity).Error; err != nil {
		util.Fail(c, err)
		return
	}

	h.cache.ClearNamespace(c.Request.Context(), "entities:trending")
	util.Respond(c, http.StatusCreated, "entity created", entity)
}

// UpdateEntity handles PUT /api/v1/entities/:id. Only the claimer or an
// admin may edit.
func (h *Handlers) UpdateEntity(c *gin.Context) {
	userID, ok := util.RequireUserID(c)
	if !ok {
		return
	}
	id, ok := util.IDParam(c, "id")
	if !ok {
		return
	}

	var entity models.Entity
	err := database.DB.WithContext(c.Request.Context()).First(&entity, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			util.Fail(c, apperrors.NotFound("entity"))
			return
		}
		util.Fail(c, err)
		return
	}
	if !h.canManageEntity(c, &entity, userID) {
		util.Fail(c, apperrors.Forbidden("you do not have permission to edit this entity"))
		return
	}

	var req entityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		util.Fail(c, apperrors.Validation("", err.Error()))
		return
	}

	fields := []string{"name", "description", "avatar"}
	updates := models.Entity{
		Name:        req.Name,
		Description: req.Description,
		Avatar:      req.Avatar,
	}
	if req.Context != nil {
		// Struct-based write so the json serializer encodes the column.
		updates.Context = req.Context
		fields = append(fields, "context")
	}
	if req.FinalCategoryID != 0 || req.CategoryPath != "" {
		final, err := h.resolveFinalCategory(c, req)
		if err != nil {
			util.Fail(c, err)
			return
		}
		root, err := h.categories.RootAncestor(c.Request.Context(), final.ID)
		if err != nil {
			util.Fail(c, err)
			return
		}
		updates.FinalCategoryID = final.ID
		updates.RootCategoryID = root.ID
		fields = append(fields, "final_category_id", "root_category_id")
	}

	err = database.DB.WithContext(c.Request.Context()).
		Model(&entity).Select(fields).Updates(&updates).Error
	if err != nil {
		util.Fail(c, err)
		return
	}

	util.Respond(c, http.StatusOK, "entity updated", entity)
}

// DeleteEntity handles DELETE /api/v1/entities/:id. Deletion requires the
// exact confirmation phrase and an entity with no reviews.
func (h *Handlers) DeleteEntity(c *gin.Context) {
	userID, ok := util.RequireUserID(c)
	if !ok {
		return
	}
	id, ok := util.IDParam(c, "id")
	if !ok {
		return
	}

	var req struct {
		Confirmation string `json:"confirmation" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		util.Fail(c, apperrors.Validation("confirmation", "confirmation phrase is required"))
		return
	}
	expected := fmt.Sprintf("DELETE_ENTITY_%d", id)
	if req.Confirmation != expected {
		util.Fail(c, apperrors.Validation("confirmation", fmt.Sprintf("confirmation must be %q", expected)))
		return
	}

	var entity models.Entity
	err := database.DB.WithContext(c.Request.Context()).First(&entity, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			util.Fail(c, apperrors.NotFound("entity"))
			return
		}
		util.Fail(c, err)
		return
	}
	if !h.canManageEntity(c, &entity, userID) {
		util.Fail(c, apperrors.Forbidden("you do not have permission to delete this entity"))
		return
	}

	var reviewCount int64
	err = database.DB.WithContext(c.Request.Context()).
		Model(&models.Review{}).Where("entity_id = ?", id).Count(&reviewCount).Error
	if err != nil {
		util.Fail(c, err)
		return
	}
	if reviewCount > 0 {
		util.Fail(c, apperrors.BusinessRule("entities with reviews cannot be deleted"))
		return
	}

	if err := database.DB.WithContext(c.Request.Context()).Delete(&entity).Error; err != nil {
		util.Fail(c, err)
		return
	}

	h.cache.ClearNamespace(c.Request.Context(), "entities:trending")
	util.Respond(c, http.StatusOK, "entity deleted", gin.H{"id": id})
}

// RecordEntityView handles POST /api/v1/entities/:id/view
func (h *Handlers) RecordEntityView(c *gin.Context) {
	id, ok := util.IDParam(c, "id")
	if !ok {
		return
	}

	visit := views.Visit{
		IP:        c.ClientIP(),
		UserAgent: c.Request.UserAgent(),
		SessionID: c.GetHeader("X-Session-ID"),
	}
	if userID, ok := util.CurrentUserID(c); ok {
		visit.UserID = &userID
	}

	counted, err := h.views.RecordEntityView(c.Request.Context(), id, visit)
	if err != nil {
		util.Fail(c, err)
		return
	}
	util.Respond(c, http.StatusOK, "view recorded", gin.H{"counted": counted})
}

// TrendingEntities handles GET /api/v1/entities/trending. Results are
// cached; staleness up to the cache TTL is acceptable here.
func (h *Handlers) TrendingEntities(c *gin.Context) {
	_, limit := util.PageParams(c)

	cacheKey := fmt.Sprintf("entities:trending:%d", limit)
	var cached []models.Entity
	if h.cache.GetJSON(c.Request.Context(), cacheKey, &cached) {
		util.Respond(c, http.StatusOK, "trending entities", cached)
		return
	}

	since := time.Now().UTC().Add(-7 * 24 * time.Hour)
	var entities []models.Entity
	err := database.DB.WithContext(c.Request.Context()).
		Preload("FinalCategory").
		Where("id IN (?)", database.DB.Model(&models.EntityView{}).
			Select("entity_id").
			Where("viewed_at > ?", since).
			Group("entity_id").
			Order("COUNT(*) DESC").
			Limit(limit)).
		Order("view_count DESC, review_count DESC").
		Limit(limit).
		Find(&entities).Error
	if err != nil {
		util.Fail(c, err)
		return
	}

	// Quiet weeks fall back to the all-time ranking.
	if len(entities) == 0 {
		err = database.DB.WithContext(c.Request.Context()).
			Preload("FinalCategory").
			Order("view_count DESC, review_count DESC").
			Limit(limit).
			Find(&entities).Error
		if err != nil {
			util.Fail(c, err)
			return
		}
	}

	h.cache.Set(c.Request.Context(), cacheKey, entities, 0)
	util.Respond(c, http.StatusOK, "trending entities", entities)
}

// SimilarEntities handles GET /api/v1/entities/:id/similar
func (h *Handlers) SimilarEntities(c *gin.Context) {
	id, ok := util.IDParam(c, "id")
	if !ok {
		return
	}
	_, limit := util.PageParams(c)

	var entity models.Entity
	err := database.DB.WithContext(c.Request.Context()).First(&entity, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			util.Fail(c, apperrors.NotFound("entity"))
			return
		}
		util.Fail(c, err)
		return
	}

	var similar []models.Entity
	err = database.DB.WithContext(c.Request.Context()).
		Preload("FinalCategory").
		Where("final_category_id = ? AND id <> ?", entity.FinalCategoryID, entity.ID).
		Order("review_count DESC, average_rating DESC").
		Limit(limit).
		Find(&similar).Error
	if err != nil {
		util.Fail(c, err)
		return
	}

	// Widen to the root category when the leaf is sparse.
	if len(similar) < limit {
		var more []models.Entity
		exclude := []uint64{entity.ID}
		for _, e := range similar {
			exclude = append(exclude, e.ID)
		}
		err = database.DB.WithContext(c.Request.Context()).
			Preload("FinalCategory").
			Where("root_category_id = ? AND id NOT IN ?", entity.RootCategoryID, exclude).
			Order("review_count DESC, average_rating DESC").
			Limit(limit - len(similar)).
			Find(&more).Error
		if err != nil {
			util.Fail(c, err)
			return
		}
		similar = append(similar, more...)
	}

	util.Respond(c, http.StatusOK, "similar entities", similar)
}

// RecentlyViewedEntities handles GET /api/v1/entities/recently-viewed
func (h *Handlers) RecentlyViewedEntities(c *gin.Context) {
	userID, ok := util.RequireUserID(c)
	if !ok {
		return
	}
	_, limit := util.PageParams(c)

	entities, err := h.views.RecentlyViewedEntities(c.Request.Context(), userID, limit)
	if err != nil {
		util.Fail(c, err)
		return
	}
	util.Respond(c, http.StatusOK, "recently viewed", entities)
}

func (h *Handlers) resolveFinalCategory(c *gin.Context, req entityRequest) (*models.UnifiedCategory, error) {
	if req.FinalCategoryID != 0 {
		final, err := h.categories.GetByID(c.Request.Context(), req.FinalCategoryID)
		if errors.Is(err, category.ErrCategoryNotFound) {
			return nil, apperrors.Validation("final_category_id", "category does not exist")
		}
		return final, err
	}
	if req.CategoryPath != "" {
		final, err := h.categories.GetByPath(c.Request.Context(), req.CategoryPath)
		if errors.Is(err, category.ErrCategoryNotFound) {
			return nil, apperrors.Validation("category_path", "category does not exist")
		}
		return final, err
	}
	return nil, apperrors.Validation("final_category_id", "a category is required")
}

func (h *Handlers) canManageEntity(c *gin.Context, entity *models.Entity, userID uint64) bool {
	if role := c.GetString("user_role"); role == "admin" {
		return true
	}
	return entity.ClaimedBy != nil && *entity.ClaimedBy == userID
}
