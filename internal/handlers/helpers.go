package handlers

import (
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/reviewinn/backend/internal/apperrors"
	"github.com/reviewinn/backend/internal/database"
	"github.com/reviewinn/backend/internal/models"
	"gorm.io/gorm"
)

// loadEntity fetches an entity or returns the API not-found error.
func (h *Handlers) loadEntity(c *gin.Context, id uint64) (*models.Entity, error) {
	var entity models.Entity
	err := database.DB.WithContext(c.Request.Context()).First(&entity, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.NotFound("entity")
	}
	if err != nil {
		return nil, err
	}
	return &entity, nil
}
