package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/reviewinn/backend/internal/apperrors"
	"github.com/reviewinn/backend/internal/auth"
	"github.com/reviewinn/backend/internal/util"
)

// Register handles POST /api/v1/auth/register
func (h *Handlers) Register(c *gin.Context) {
	var req auth.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		util.Fail(c, apperrors.Validation("", err.Error()))
		return
	}

	resp, err := h.auth.Register(req)
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrUserExists):
			util.Fail(c, apperrors.Conflict("an account with this email already exists"))
		case errors.Is(err, auth.ErrUsernameExists):
			util.Fail(c, apperrors.Conflict("this username is already taken"))
		default:
			util.Fail(c, err)
		}
		return
	}

	util.Respond(c, http.StatusCreated, "account created", resp)
}

// Login handles POST /api/v1/auth/login
func (h *Handlers) Login(c *gin.Context) {
	var req auth.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		util.Fail(c, apperrors.Validation("", err.Error()))
		return
	}

	resp, err := h.auth.Login(req)
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrInvalidCredentials):
			util.Fail(c, apperrors.Unauthenticated("invalid email or password"))
		case errors.Is(err, auth.ErrAccountInactive):
			util.Fail(c, apperrors.Forbidden("this account has been deactivated"))
		default:
			util.Fail(c, err)
		}
		return
	}

	util.Respond(c, http.StatusOK, "logged in", resp)
}

// Me handles GET /api/v1/auth/me
func (h *Handlers) Me(c *gin.Context) {
	userID, ok := util.RequireUserID(c)
	if !ok {
		return
	}

	user, err := h.users.GetUser(c.Request.Context(), userID)
	if err != nil {
		util.Fail(c, apperrors.NotFound("user"))
		return
	}

	util.Respond(c, http.StatusOK, "", user)
}
