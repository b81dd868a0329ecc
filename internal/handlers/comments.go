package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/reviewinn/backend/internal/apperrors"
	"github.com/reviewinn/backend/internal/database"
	"github.com/reviewinn/backend/internal/models"
	"github.com/reviewinn/backend/internal/util"
	"gorm.io/gorm"
)

// ListComments handles GET /api/v1/reviews/:id/comments. Top-level
// comments with their replies preloaded, oldest first.
func (h *Handlers) ListComments(c *gin.Context) {
	reviewID, ok := util.IDParam(c, "id")
	if !ok {
		return
	}
	page, limit := util.PageParams(c)

	var total int64
	err := database.DB.WithContext(c.Request.Context()).Model(&models.Comment{}).
		Where("review_id = ? AND parent_id IS NULL", reviewID).
		Count(&total).Error
	if err != nil {
		util.Fail(c, err)
		return
	}

	var comments []models.Comment
	err = database.DB.WithContext(c.Request.Context()).
		Preload("User").
		Where("review_id = ? AND parent_id IS NULL", reviewID).
		Order("created_at").
		Offset((page - 1) * limit).
		Limit(limit).
		Find(&comments).Error
	if err != nil {
		util.Fail(c, err)
		return
	}

	// One query for all replies on the page.
	if len(comments) > 0 {
		parentIDs := make([]uint64, len(comments))
		for i, comment := range comments {
			parentIDs[i] = comment.ID
		}
		var replies []models.Comment
		err = database.DB.WithContext(c.Request.Context()).
			Preload("User").
			Where("parent_id IN ?", parentIDs).
			Order("created_at").
			Find(&replies).Error
		if err != nil {
			util.Fail(c, err)
			return
		}
		byParent := make(map[uint64][]models.Comment)
		for _, reply := range replies {
			byParent[*reply.ParentID] = append(byParent[*reply.ParentID], reply)
		}
		type threadedComment struct {
			models.Comment
			Replies []models.Comment `json:"replies"`
		}
		threaded := make([]threadedComment, len(comments))
		for i, comment := range comments {
			threaded[i] = threadedComment{Comment: comment, Replies: byParent[comment.ID]}
			if threaded[i].Replies == nil {
				threaded[i].Replies = []models.Comment{}
			}
		}
		util.RespondPage(c, "comments", threaded, util.NewPagination(total, page, limit))
		return
	}

	util.RespondPage(c, "comments", comments, util.NewPagination(total, page, limit))
}

type commentRequest struct {
	Content     string  `json:"content" binding:"required,min=1,max=2000"`
	ParentID    *uint64 `json:"parent_id"`
	IsAnonymous bool    `json:"is_anonymous"`
}

// CreateComment handles POST /api/v1/reviews/:id/comments. Threading is
// one level deep: replies to replies attach to the original parent.
func (h *Handlers) CreateComment(c *gin.Context) {
	userID, ok := util.RequireUserID(c)
	if !ok {
		return
	}
	reviewID, ok := util.IDParam(c, "id")
	if !ok {
		return
	}

	var req commentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		util.Fail(c, apperrors.Validation("", err.Error()))
		return
	}

	var review models.Review
	err := database.DB.WithContext(c.Request.Context()).First(&review, "id = ?", reviewID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			util.Fail(c, apperrors.NotFound("review"))
			return
		}
		util.Fail(c, err)
		return
	}

	if req.ParentID != nil {
		var parent models.Comment
		err := database.DB.WithContext(c.Request.Context()).
			First(&parent, "id = ? AND review_id = ?", *req.ParentID, reviewID).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				util.Fail(c, apperrors.Validation("parent_id", "parent comment not found on this review"))
				return
			}
			util.Fail(c, err)
			return
		}
		// Flatten deeper nesting to one level.
		if parent.ParentID != nil {
			req.ParentID = parent.ParentID
		}
	}

	comment := models.Comment{
		ReviewID:    reviewID,
		UserID:      userID,
		ParentID:    req.ParentID,
		Content:     req.Content,
		IsAnonymous: req.IsAnonymous,
	}

	err = database.DB.WithContext(c.Request.Context()).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&comment).Error; err != nil {
			return err
		}
		err := tx.Model(&models.Review{}).
			Where("id = ?", reviewID).
			UpdateColumn("comment_count", gorm.Expr("comment_count + 1")).Error
		if err != nil {
			return err
		}
		return h.agg.ApplyEntityCommentDelta(tx, review.EntityID, 1)
	})
	if err != nil {
		util.Fail(c, err)
		return
	}

	h.notifications.Emit(models.Notification{
		UserID:     review.UserID,
		ActorID:    &userID,
		Type:       models.NotifyReviewComment,
		EntityType: "review",
		EntityID:   reviewID,
		Title:      "New comment on your review",
		Message:    "Someone commented on your review",
	})

	util.Respond(c, http.StatusCreated, "comment created", comment)
}

// DeleteComment handles DELETE /api/v1/comments/:id. Author or admin.
func (h *Handlers) DeleteComment(c *gin.Context) {
	userID, ok := util.RequireUserID(c)
	if !ok {
		return
	}
	id, ok := util.IDParam(c, "id")
	if !ok {
		return
	}

	var comment models.Comment
	err := database.DB.WithContext(c.Request.Context()).First(&comment, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			util.Fail(c, apperrors.NotFound("comment"))
			return
		}
		util.Fail(c, err)
		return
	}
	if comment.UserID != userID && c.GetString("user_role") != "admin" {
		util.Fail(c, apperrors.Forbidden("only the author can delete a comment"))
		return
	}

	var review models.Review
	if err := database.DB.WithContext(c.Request.Context()).First(&review, "id = ?", comment.ReviewID).Error; err != nil {
		util.Fail(c, err)
		return
	}

	err = database.DB.WithContext(c.Request.Context()).Transaction(func(tx *gorm.DB) error {
		result := tx.Delete(&comment)
		if result.Error != nil {
			return result.Error
		}
		err := tx.Model(&models.Review{}).
			Where("id = ? AND comment_count > 0", comment.ReviewID).
			UpdateColumn("comment_count", gorm.Expr("comment_count - 1")).Error
		if err != nil {
			return err
		}
		return h.agg.ApplyEntityCommentDelta(tx, review.EntityID, -1)
	})
	if err != nil {
		util.Fail(c, err)
		return
	}

	util.Respond(c, http.StatusOK, "comment deleted", gin.H{"id": id})
}

// VoteCommentHelpful handles POST /api/v1/comments/:id/helpful
func (h *Handlers) VoteCommentHelpful(c *gin.Context) {
	if _, ok := util.RequireUserID(c); !ok {
		return
	}
	id, ok := util.IDParam(c, "id")
	if !ok {
		return
	}

	result := database.DB.WithContext(c.Request.Context()).
		Model(&models.Comment{}).
		Where("id = ?", id).
		UpdateColumn("helpful_votes", gorm.Expr("helpful_votes + 1"))
	if result.Error != nil {
		util.Fail(c, result.Error)
		return
	}
	if result.RowsAffected == 0 {
		util.Fail(c, apperrors.NotFound("comment"))
		return
	}

	util.Respond(c, http.StatusOK, "vote recorded", gin.H{"id": id})
}
