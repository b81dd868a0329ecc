package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/reviewinn/backend/internal/apperrors"
	"github.com/reviewinn/backend/internal/category"
	"github.com/reviewinn/backend/internal/util"
)

// ListRootCategories handles GET /api/v1/categories
func (h *Handlers) ListRootCategories(c *gin.Context) {
	roots, err := h.categories.Roots(c.Request.Context())
	if err != nil {
		util.Fail(c, err)
		return
	}
	util.Respond(c, http.StatusOK, "categories", roots)
}

// CategoryChildren handles GET /api/v1/categories/:id/children
func (h *Handlers) CategoryChildren(c *gin.Context) {
	id, ok := util.IDParam(c, "id")
	if !ok {
		return
	}
	children, err := h.categories.Children(c.Request.Context(), id)
	if err != nil {
		util.Fail(c, err)
		return
	}
	util.Respond(c, http.StatusOK, "subcategories", children)
}

// CategoryLeaves handles GET /api/v1/categories/leaves, the set of
// categories entities can attach to. ?root=<id> narrows to one subtree.
func (h *Handlers) CategoryLeaves(c *gin.Context) {
	var subtreeID uint64
	if id, ok := util.QueryUint(c, "root"); ok {
		subtreeID = id
	}
	leaves, err := h.categories.Leaves(c.Request.Context(), subtreeID)
	if err != nil {
		if errors.Is(err, category.ErrCategoryNotFound) {
			util.Fail(c, apperrors.NotFound("category"))
			return
		}
		util.Fail(c, err)
		return
	}
	util.Respond(c, http.StatusOK, "leaf categories", leaves)
}

// SearchCategories handles GET /api/v1/categories/search?q=
func (h *Handlers) SearchCategories(c *gin.Context) {
	q := c.Query("q")
	if q == "" {
		util.Fail(c, apperrors.Validation("q", "a search query is required"))
		return
	}
	_, limit := util.PageParams(c)

	results, err := h.categories.Search(c.Request.Context(), q, limit)
	if err != nil {
		util.Fail(c, err)
		return
	}
	util.Respond(c, http.StatusOK, "categories", results)
}

// CategoryBreadcrumb handles GET /api/v1/categories/:id/breadcrumb
func (h *Handlers) CategoryBreadcrumb(c *gin.Context) {
	id, ok := util.IDParam(c, "id")
	if !ok {
		return
	}
	chain, err := h.categories.Breadcrumb(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, category.ErrCategoryNotFound) {
			util.Fail(c, apperrors.NotFound("category"))
			return
		}
		util.Fail(c, err)
		return
	}
	util.Respond(c, http.StatusOK, "", gin.H{
		"breadcrumb": chain,
		"display":    category.BreadcrumbDisplay(chain),
	})
}

type createCategoryRequest struct {
	Name      string `json:"name" binding:"required,min=1,max=100"`
	ParentID  uint64 `json:"parent_id"`
	SortOrder int    `json:"sort_order"`
}

// CreateCategory handles POST /api/v1/categories. Admin only.
func (h *Handlers) CreateCategory(c *gin.Context) {
	if _, ok := util.RequireUserID(c); !ok {
		return
	}
	if c.GetString("user_role") != "admin" {
		util.Fail(c, apperrors.Forbidden("only admins can create categories"))
		return
	}

	var req createCategoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		util.Fail(c, apperrors.Validation("", err.Error()))
		return
	}

	cat, err := h.categories.Create(c.Request.Context(), req.Name, req.ParentID, req.SortOrder)
	if err != nil {
		if errors.Is(err, category.ErrCategoryNotFound) {
			util.Fail(c, apperrors.Validation("parent_id", "parent category does not exist"))
			return
		}
		util.Fail(c, apperrors.Conflict(err.Error()))
		return
	}
	util.Respond(c, http.StatusCreated, "category created", cat)
}

// CategoryQuestions handles GET /api/v1/categories/questions?path=. The
// fallback chain guarantees a usable question set for any known root.
func (h *Handlers) CategoryQuestions(c *gin.Context) {
	path := c.Query("path")
	if path == "" {
		util.Fail(c, apperrors.Validation("path", "a category path is required"))
		return
	}

	resolution, err := h.categories.GetQuestionsForCategory(c.Request.Context(), path)
	if err != nil {
		util.Fail(c, err)
		return
	}
	if resolution == nil {
		util.Fail(c, apperrors.NotFound("question set"))
		return
	}
	util.Respond(c, http.StatusOK, "", resolution)
}

// EntityQuestions handles GET /api/v1/entities/:id/questions
func (h *Handlers) EntityQuestions(c *gin.Context) {
	id, ok := util.IDParam(c, "id")
	if !ok {
		return
	}

	entity, err := h.loadEntity(c, id)
	if err != nil {
		util.Fail(c, err)
		return
	}

	resolution, err := h.categories.GetQuestionsForEntity(c.Request.Context(), entity)
	if err != nil {
		util.Fail(c, err)
		return
	}
	if resolution == nil {
		util.Fail(c, apperrors.NotFound("question set"))
		return
	}
	util.Respond(c, http.StatusOK, "", resolution)
}
