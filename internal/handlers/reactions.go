package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/reviewinn/backend/internal/apperrors"
	"github.com/reviewinn/backend/internal/models"
	"github.com/reviewinn/backend/internal/util"
)

type reactionRequest struct {
	Kind models.ReactionKind `json:"kind" binding:"required"`
}

// ReactToReview handles POST /api/v1/reviews/:id/react
func (h *Handlers) ReactToReview(c *gin.Context) {
	userID, ok := util.RequireUserID(c)
	if !ok {
		return
	}
	reviewID, ok := util.IDParam(c, "id")
	if !ok {
		return
	}

	var req reactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		util.Fail(c, apperrors.Validation("kind", "a reaction kind is required"))
		return
	}

	summary, err := h.reactions.ReactToReview(c.Request.Context(), reviewID, userID, req.Kind)
	if err != nil {
		util.Fail(c, err)
		return
	}
	util.Respond(c, http.StatusOK, "reaction recorded", summary)
}

// UnreactToReview handles DELETE /api/v1/reviews/:id/react
func (h *Handlers) UnreactToReview(c *gin.Context) {
	userID, ok := util.RequireUserID(c)
	if !ok {
		return
	}
	reviewID, ok := util.IDParam(c, "id")
	if !ok {
		return
	}

	summary, err := h.reactions.UnreactToReview(c.Request.Context(), reviewID, userID)
	if err != nil {
		util.Fail(c, err)
		return
	}
	util.Respond(c, http.StatusOK, "reaction removed", summary)
}

// ReviewReactions handles GET /api/v1/reviews/:id/reactions
func (h *Handlers) ReviewReactions(c *gin.Context) {
	reviewID, ok := util.IDParam(c, "id")
	if !ok {
		return
	}

	var userID *uint64
	if id, ok := util.CurrentUserID(c); ok {
		userID = &id
	}

	summary, err := h.reactions.ReviewSummary(c.Request.Context(), reviewID, userID)
	if err != nil {
		util.Fail(c, err)
		return
	}
	util.Respond(c, http.StatusOK, "", summary)
}

// ReactToComment handles POST /api/v1/comments/:id/react
func (h *Handlers) ReactToComment(c *gin.Context) {
	userID, ok := util.RequireUserID(c)
	if !ok {
		return
	}
	commentID, ok := util.IDParam(c, "id")
	if !ok {
		return
	}

	var req reactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		util.Fail(c, apperrors.Validation("kind", "a reaction kind is required"))
		return
	}

	summary, err := h.reactions.ReactToComment(c.Request.Context(), commentID, userID, req.Kind)
	if err != nil {
		util.Fail(c, err)
		return
	}
	util.Respond(c, http.StatusOK, "reaction recorded", summary)
}

// UnreactToComment handles DELETE /api/v1/comments/:id/react
func (h *Handlers) UnreactToComment(c *gin.Context) {
	userID, ok := util.RequireUserID(c)
	if !ok {
		return
	}
	commentID, ok := util.IDParam(c, "id")
	if !ok {
		return
	}

	summary, err := h.reactions.UnreactToComment(c.Request.Context(), commentID, userID)
	if err != nil {
		util.Fail(c, err)
		return
	}
	util.Respond(c, http.StatusOK, "reaction removed", summary)
}

// CommentReactions handles GET /api/v1/comments/:id/reactions
func (h *Handlers) CommentReactions(c *gin.Context) {
	commentID, ok := util.IDParam(c, "id")
	if !ok {
		return
	}

	var userID *uint64
	if id, ok := util.CurrentUserID(c); ok {
		userID = &id
	}

	summary, err := h.reactions.CommentSummary(c.Request.Context(), commentID, userID)
	if err != nil {
		util.Fail(c, err)
		return
	}
	util.Respond(c, http.StatusOK, "", summary)
}
