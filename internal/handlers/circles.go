package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/reviewinn/backend/internal/apperrors"
	"github.com/reviewinn/backend/internal/models"
	"github.com/reviewinn/backend/internal/util"
)

type circleRequestBody struct {
	ReceiverID uint64 `json:"receiver_id" binding:"required"`
	Message    string `json:"message" binding:"max=500"`
}

// SendCircleRequest handles POST /api/v1/circles/requests
func (h *Handlers) SendCircleRequest(c *gin.Context) {
	userID, ok := util.RequireUserID(c)
	if !ok {
		return
	}

	var req circleRequestBody
	if err := c.ShouldBindJSON(&req); err != nil {
		util.Fail(c, apperrors.Validation("", err.Error()))
		return
	}

	request, err := h.circles.SendRequest(c.Request.Context(), userID, req.ReceiverID, req.Message)
	if err != nil {
		util.Fail(c, err)
		return
	}
	util.Respond(c, http.StatusCreated, "circle request sent", request)
}

// ListCircleRequests handles GET /api/v1/circles/requests. ?direction=sent
// lists outgoing requests; the default is the caller's inbox.
func (h *Handlers) ListCircleRequests(c *gin.Context) {
	userID, ok := util.RequireUserID(c)
	if !ok {
		return
	}

	outgoing := c.Query("direction") == "sent"
	requests, err := h.circles.PendingRequests(c.Request.Context(), userID, outgoing)
	if err != nil {
		util.Fail(c, err)
		return
	}
	util.Respond(c, http.StatusOK, "circle requests", requests)
}

// RespondToCircleRequest handles POST /api/v1/circles/requests/:id/respond
// with action "accept" or "decline".
func (h *Handlers) RespondToCircleRequest(c *gin.Context) {
	userID, ok := util.RequireUserID(c)
	if !ok {
		return
	}
	requestID, ok := util.IDParam(c, "id")
	if !ok {
		return
	}

	var req struct {
		Action string `json:"action" binding:"required,oneof=accept decline"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		util.Fail(c, apperrors.Validation("action", "action must be accept or decline"))
		return
	}

	var (
		request *models.CircleRequest
		err     error
	)
	message := "request declined"
	if req.Action == "accept" {
		message = "request accepted"
		request, err = h.circles.AcceptRequest(c.Request.Context(), requestID, userID)
	} else {
		request, err = h.circles.DeclineRequest(c.Request.Context(), requestID, userID)
	}
	if err != nil {
		util.Fail(c, err)
		return
	}
	util.Respond(c, http.StatusOK, message, request)
}

type circleInviteBody struct {
	UserID uint64 `json:"user_id" binding:"required"`
}

// InviteToCircle handles POST /api/v1/circles/:id/invite
func (h *Handlers) InviteToCircle(c *gin.Context) {
	userID, ok := util.RequireUserID(c)
	if !ok {
		return
	}
	circleID, ok := util.IDParam(c, "id")
	if !ok {
		return
	}

	var req circleInviteBody
	if err := c.ShouldBindJSON(&req); err != nil {
		util.Fail(c, apperrors.Validation("user_id", "user_id is required"))
		return
	}

	invite, err := h.circles.InviteToCircle(c.Request.Context(), userID, circleID, req.UserID)
	if err != nil {
		util.Fail(c, err)
		return
	}
	util.Respond(c, http.StatusCreated, "invite sent", invite)
}

// ListCircleInvites handles GET /api/v1/circles/invites
func (h *Handlers) ListCircleInvites(c *gin.Context) {
	userID, ok := util.RequireUserID(c)
	if !ok {
		return
	}
	invites, err := h.circles.PendingInvites(c.Request.Context(), userID)
	if err != nil {
		util.Fail(c, err)
		return
	}
	util.Respond(c, http.StatusOK, "circle invites", invites)
}

// RespondToCircleInvite handles POST /api/v1/circles/invites/:id/respond
// with action "accept" or "decline".
func (h *Handlers) RespondToCircleInvite(c *gin.Context) {
	userID, ok := util.RequireUserID(c)
	if !ok {
		return
	}
	inviteID, ok := util.IDParam(c, "id")
	if !ok {
		return
	}

	var req struct {
		Action string `json:"action" binding:"required,oneof=accept decline"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		util.Fail(c, apperrors.Validation("action", "action must be accept or decline"))
		return
	}

	invite, err := h.circles.RespondToInvite(c.Request.Context(), inviteID, userID, req.Action == "accept")
	if err != nil {
		util.Fail(c, err)
		return
	}
	message := "invite declined"
	if req.Action == "accept" {
		message = "invite accepted"
	}
	util.Respond(c, http.StatusOK, message, invite)
}

// CancelCircleRequest handles DELETE /api/v1/circles/requests/:id
func (h *Handlers) CancelCircleRequest(c *gin.Context) {
	userID, ok := util.RequireUserID(c)
	if !ok {
		return
	}
	requestID, ok := util.IDParam(c, "id")
	if !ok {
		return
	}

	if err := h.circles.CancelRequest(c.Request.Context(), requestID, userID); err != nil {
		util.Fail(c, err)
		return
	}
	util.Respond(c, http.StatusOK, "request cancelled", gin.H{"id": requestID})
}

type createCircleBody struct {
	Name        string `json:"name" binding:"required,min=1,max=100"`
	Description string `json:"description" binding:"max=500"`
	IsPublic    bool   `json:"is_public"`
	MaxMembers  int    `json:"max_members"`
}

// CreateCircle handles POST /api/v1/circles
func (h *Handlers) CreateCircle(c *gin.Context) {
	userID, ok := util.RequireUserID(c)
	if !ok {
		return
	}

	var req createCircleBody
	if err := c.ShouldBindJSON(&req); err != nil {
		util.Fail(c, apperrors.Validation("", err.Error()))
		return
	}

	circle, err := h.circles.CreateCircle(c.Request.Context(), userID, req.Name, req.Description, req.IsPublic, req.MaxMembers)
	if err != nil {
		util.Fail(c, err)
		return
	}
	util.Respond(c, http.StatusCreated, "circle created", circle)
}

// MyCircles handles GET /api/v1/circles
func (h *Handlers) MyCircles(c *gin.Context) {
	userID, ok := util.RequireUserID(c)
	if !ok {
		return
	}

	circleList, err := h.circles.UserCircles(c.Request.Context(), userID)
	if err != nil {
		util.Fail(c, err)
		return
	}
	util.Respond(c, http.StatusOK, "circles", circleList)
}

// CircleMembers handles GET /api/v1/circles/:id/members
func (h *Handlers) CircleMembers(c *gin.Context) {
	if _, ok := util.RequireUserID(c); !ok {
		return
	}
	circleID, ok := util.IDParam(c, "id")
	if !ok {
		return
	}
	page, limit := util.PageParams(c)

	members, total, err := h.circles.Members(c.Request.Context(), circleID, page, limit)
	if err != nil {
		util.Fail(c, err)
		return
	}
	util.RespondPage(c, "circle members", members, util.NewPagination(total, page, limit))
}

// UpdateMemberTrust handles PUT /api/v1/circles/:id/members/:userId/trust
func (h *Handlers) UpdateMemberTrust(c *gin.Context) {
	actorID, ok := util.RequireUserID(c)
	if !ok {
		return
	}
	circleID, ok := util.IDParam(c, "id")
	if !ok {
		return
	}
	memberID, ok := util.IDParam(c, "userId")
	if !ok {
		return
	}

	var req struct {
		TrustLevel models.TrustLevel `json:"trust_level" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		util.Fail(c, apperrors.Validation("trust_level", "a trust level is required"))
		return
	}

	member, err := h.circles.UpdateTrustLevel(c.Request.Context(), actorID, circleID, memberID, req.TrustLevel)
	if err != nil {
		util.Fail(c, err)
		return
	}
	util.Respond(c, http.StatusOK, "trust level updated", member)
}

// RemoveCircleMember handles DELETE /api/v1/circles/:id/members/:userId
func (h *Handlers) RemoveCircleMember(c *gin.Context) {
	actorID, ok := util.RequireUserID(c)
	if !ok {
		return
	}
	circleID, ok := util.IDParam(c, "id")
	if !ok {
		return
	}
	memberID, ok := util.IDParam(c, "userId")
	if !ok {
		return
	}

	if err := h.circles.RemoveMember(c.Request.Context(), actorID, circleID, memberID); err != nil {
		util.Fail(c, err)
		return
	}
	util.Respond(c, http.StatusOK, "member removed", gin.H{"user_id": memberID})
}

// BlockUser handles POST /api/v1/circles/blocks/:userId
func (h *Handlers) BlockUser(c *gin.Context) {
	userID, ok := util.RequireUserID(c)
	if !ok {
		return
	}
	blockedID, ok := util.IDParam(c, "userId")
	if !ok {
		return
	}

	if err := h.circles.Block(c.Request.Context(), userID, blockedID); err != nil {
		util.Fail(c, err)
		return
	}
	util.Respond(c, http.StatusOK, "user blocked", gin.H{"user_id": blockedID})
}

// UnblockUser handles DELETE /api/v1/circles/blocks/:userId
func (h *Handlers) UnblockUser(c *gin.Context) {
	userID, ok := util.RequireUserID(c)
	if !ok {
		return
	}
	blockedID, ok := util.IDParam(c, "userId")
	if !ok {
		return
	}

	if err := h.circles.Unblock(c.Request.Context(), userID, blockedID); err != nil {
		util.Fail(c, err)
		return
	}
	util.Respond(c, http.StatusOK, "user unblocked", gin.H{"user_id": blockedID})
}

// CircleSuggestions handles GET /api/v1/circles/suggestions
func (h *Handlers) CircleSuggestions(c *gin.Context) {
	userID, ok := util.RequireUserID(c)
	if !ok {
		return
	}
	_, limit := util.PageParams(c)

	minScore, _ := util.QueryFloat(c, "min_taste_match")
	suggestions, err := h.circles.Suggestions(c.Request.Context(), userID, limit, minScore)
	if err != nil {
		util.Fail(c, err)
		return
	}
	util.Respond(c, http.StatusOK, "suggestions", suggestions)
}
