package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/reviewinn/backend/internal/apperrors"
	"github.com/reviewinn/backend/internal/repository"
	"github.com/reviewinn/backend/internal/util"
)

// GetUser handles GET /api/v1/users/:id
func (h *Handlers) GetUser(c *gin.Context) {
	id, ok := util.IDParam(c, "id")
	if !ok {
		return
	}

	user, err := h.users.GetUser(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			util.Fail(c, apperrors.NotFound("user"))
			return
		}
		util.Fail(c, err)
		return
	}
	util.Respond(c, http.StatusOK, "", user)
}

// SearchUsers handles GET /api/v1/users/search?q=
func (h *Handlers) SearchUsers(c *gin.Context) {
	q := c.Query("q")
	if q == "" {
		util.Fail(c, apperrors.Validation("q", "a search query is required"))
		return
	}
	page, limit := util.PageParams(c)

	users, err := h.users.SearchUsers(c.Request.Context(), q, limit, (page-1)*limit)
	if err != nil {
		util.Fail(c, err)
		return
	}
	util.Respond(c, http.StatusOK, "users", users)
}

// TopReviewers handles GET /api/v1/users/top
func (h *Handlers) TopReviewers(c *gin.Context) {
	page, limit := util.PageParams(c)

	users, err := h.users.GetTopReviewers(c.Request.Context(), limit, (page-1)*limit)
	if err != nil {
		util.Fail(c, err)
		return
	}
	util.Respond(c, http.StatusOK, "top reviewers", users)
}
