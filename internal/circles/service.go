// Package circles implements review circles: the request lifecycle between
// users, circle membership with trust levels, blocking, and connection
// suggestions.
package circles

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"time"

	"github.com/reviewinn/backend/internal/apperrors"
	"github.com/reviewinn/backend/internal/models"
	"github.com/reviewinn/backend/internal/notifications"
	"gorm.io/gorm"
)

// Service manages circle requests, memberships and blocks.
type Service struct {
	db       *gorm.DB
	notifier *notifications.Service
}

// NewService creates a circle service.
func NewService(db *gorm.DB, notifier *notifications.Service) *Service {
	return &Service{db: db, notifier: notifier}
}

// SendRequest creates a pending connection request from requester to
// receiver. Self-requests, duplicates in either direction, existing
// connections and blocks are all rejected before the insert.
func (s *Service) SendRequest(ctx context.Context, requesterID, receiverID uint64, message string) (*models.CircleRequest, error) {
	if requesterID == receiverID {
		return nil, apperrors.BusinessRule("cannot send a circle request to yourself")
	}

	var receiver models.User
	if err := s.db.WithContext(ctx).First(&receiver, "id = ?", receiverID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NotFound("user")
		}
		return nil, err
	}

	blocked, err := s.isBlockedEitherWay(ctx, requesterID, receiverID)
	if err != nil {
		return nil, err
	}
	if blocked {
		return nil, apperrors.Forbidden("a block exists between these users")
	}

	var pending int64
	err = s.db.WithContext(ctx).Model(&models.CircleRequest{}).
		Where("status = ?", models.RequestPending).
		Where("(requester_id = ? AND receiver_id = ?) OR (requester_id = ? AND receiver_id = ?)",
			requesterID, receiverID, receiverID, requesterID).
		Count(&pending).Error
	if err != nil {
		return nil, err
	}
	if pending > 0 {
		return nil, apperrors.Conflict("a pending request already exists between these users")
	}

	connected, err := s.AreConnected(ctx, requesterID, receiverID)
	if err != nil {
		return nil, err
	}
	if connected {
		return nil, apperrors.Conflict("users are already connected")
	}

	request := models.CircleRequest{
		RequesterID: requesterID,
		ReceiverID:  receiverID,
		Message:     message,
		Status:      models.RequestPending,
	}
	if err := s.db.WithContext(ctx).Create(&request).Error; err != nil {
		return nil, err
	}

	s.notifier.Emit(models.Notification{
		UserID:     receiverID,
		ActorID:    &requesterID,
		Type:       models.NotifyCircleRequest,
		EntityType: "circle_request",
		EntityID:   request.ID,
		Title:      "New circle request",
		Message:    "Someone wants to join your review circle",
	})
	return &request, nil
}

// AcceptRequest accepts a pending request addressed to receiverID. Both
// users get a default circle if they lack one, and each joins the other's
// circle as REVIEWER with a taste match score.
func (s *Service) AcceptRequest(ctx context.Context, requestID, receiverID uint64) (*models.CircleRequest, error) {
	request, err := s.pendingRequest(ctx, requestID, receiverID)
	if err != nil {
		return nil, err
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		now := time.Now().UTC()
		err := tx.Model(request).Updates(map[string]any{
			"status":       models.RequestAccepted,
			"responded_at": now,
		}).Error
		if err != nil {
			return err
		}

		receiverCircle, err := s.ensureDefaultCircle(tx, request.ReceiverID)
		if err != nil {
			return err
		}
		requesterCircle, err := s.ensureDefaultCircle(tx, request.RequesterID)
		if err != nil {
			return err
		}

		score := tasteMatchScore(request.RequesterID, request.ReceiverID)
		if err := s.ensureMembership(tx, request.RequesterID, receiverCircle.ID, score); err != nil {
			return err
		}
		return s.ensureMembership(tx, request.ReceiverID, requesterCircle.ID, score)
	})
	if err != nil {
		return nil, err
	}

	s.notifier.Emit(models.Notification{
		UserID:     request.RequesterID,
		ActorID:    &receiverID,
		Type:       models.NotifyCircleAccepted,
		EntityType: "circle_request",
		EntityID:   request.ID,
		Title:      "Circle request accepted",
		Message:    "Your circle request was accepted",
	})
	return request, nil
}

// DeclineRequest declines a pending request addressed to receiverID.
func (s *Service) DeclineRequest(ctx context.Context, requestID, receiverID uint64) (*models.CircleRequest, error) {
	request, err := s.pendingRequest(ctx, requestID, receiverID)
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	err = s.db.WithContext(ctx).Model(request).Updates(map[string]any{
		"status":       models.RequestDeclined,
		"responded_at": now,
	}).Error
	if err != nil {
		return nil, err
	}
	return request, nil
}

// CancelRequest lets the requester withdraw their own pending request.
func (s *Service) CancelRequest(ctx context.Context, requestID, requesterID uint64) error {
	result := s.db.WithContext(ctx).
		Where("id = ? AND requester_id = ? AND status = ?", requestID, requesterID, models.RequestPending).
		Delete(&models.CircleRequest{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return apperrors.NotFound("pending request")
	}
	return nil
}

// PendingRequests lists requests awaiting the user's response (incoming)
// or sent by the user (outgoing).
func (s *Service) PendingRequests(ctx context.Context, userID uint64, outgoing bool) ([]models.CircleRequest, error) {
	query := s.db.WithContext(ctx).
		Where("status = ?", models.RequestPending).
		Order("created_at DESC")
	if outgoing {
		query = query.Preload("Receiver").Where("requester_id = ?", userID)
	} else {
		query = query.Preload("Requester").Where("receiver_id = ?", userID)
	}
	var requests []models.CircleRequest
	err := query.Find(&requests).Error
	return requests, err
}

// Block severs the relationship: any pending requests between the two
// users are marked blocked and both users leave each other's circles.
func (s *Service) Block(ctx context.Context, blockerID, blockedID uint64) error {
	if blockerID == blockedID {
		return apperrors.BusinessRule("cannot block yourself")
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing int64
		err := tx.Model(&models.CircleBlock{}).
			Where("blocker_id = ? AND blocked_id = ?", blockerID, blockedID).
			Count(&existing).Error
		if err != nil {
			return err
		}
		if existing == 0 {
			if err := tx.Create(&models.CircleBlock{BlockerID: blockerID, BlockedID: blockedID}).Error; err != nil {
				return err
			}
		}

		err = tx.Model(&models.CircleRequest{}).
			Where("status = ?", models.RequestPending).
			Where("(requester_id = ? AND receiver_id = ?) OR (requester_id = ? AND receiver_id = ?)",
				blockerID, blockedID, blockedID, blockerID).
			Updates(map[string]any{"status": models.RequestBlocked}).Error
		if err != nil {
			return err
		}

		// Remove each user from circles the other created.
		err = tx.Where("user_id = ? AND circle_id IN (?)", blockedID,
			tx.Model(&models.ReviewCircle{}).Select("id").Where("creator_id = ?", blockerID),
		).Delete(&models.CircleConnection{}).Error
		if err != nil {
			return err
		}
		return tx.Where("user_id = ? AND circle_id IN (?)", blockerID,
			tx.Model(&models.ReviewCircle{}).Select("id").Where("creator_id = ?", blockedID),
		).Delete(&models.CircleConnection{}).Error
	})
}

// Unblock removes the caller's block on another user.
func (s *Service) Unblock(ctx context.Context, blockerID, blockedID uint64) error {
	result := s.db.WithContext(ctx).
		Where("blocker_id = ? AND blocked_id = ?", blockerID, blockedID).
		Delete(&models.CircleBlock{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return apperrors.NotFound("block")
	}
	return nil
}

// CreateCircle creates an additional, explicitly named circle.
func (s *Service) CreateCircle(ctx context.Context, creatorID uint64, name, description string, isPublic bool, maxMembers int) (*models.ReviewCircle, error) {
	if maxMembers <= 0 {
		maxMembers = 50
	}
	circle := models.ReviewCircle{
		Name:        name,
		Description: description,
		CreatorID:   creatorID,
		IsPublic:    isPublic,
		MaxMembers:  maxMembers,
	}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&circle).Error; err != nil {
			return err
		}
		membership := models.CircleConnection{
			UserID:     creatorID,
			CircleID:   circle.ID,
			TrustLevel: models.TrustReviewMentor,
			JoinedAt:   time.Now().UTC(),
		}
		return tx.Create(&membership).Error
	})
	if err != nil {
		return nil, err
	}
	return &circle, nil
}

// UserCircles lists circles the user created or belongs to.
func (s *Service) UserCircles(ctx context.Context, userID uint64) ([]models.ReviewCircle, error) {
	var circles []models.ReviewCircle
	err := s.db.WithContext(ctx).
		Where("creator_id = ? OR id IN (?)", userID,
			s.db.Model(&models.CircleConnection{}).Select("circle_id").Where("user_id = ?", userID),
		).
		Order("created_at").
		Find(&circles).Error
	return circles, err
}

// Members pages a circle's membership, mentors first.
func (s *Service) Members(ctx context.Context, circleID uint64, page, perPage int) ([]models.CircleConnection, int64, error) {
	var circle models.ReviewCircle
	if err := s.db.WithContext(ctx).First(&circle, "id = ?", circleID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, 0, apperrors.NotFound("circle")
		}
		return nil, 0, err
	}

	var total int64
	err := s.db.WithContext(ctx).Model(&models.CircleConnection{}).
		Where("circle_id = ?", circleID).
		Count(&total).Error
	if err != nil {
		return nil, 0, err
	}

	var members []models.CircleConnection
	err = s.db.WithContext(ctx).
		Preload("User").
		Where("circle_id = ?", circleID).
		Order("CASE trust_level WHEN 'REVIEW_MENTOR' THEN 0 WHEN 'REVIEW_ALLY' THEN 1 WHEN 'TRUSTED_REVIEWER' THEN 2 ELSE 3 END, joined_at").
		Offset((page - 1) * perPage).
		Limit(perPage).
		Find(&members).Error
	return members, total, err
}

// UpdateTrustLevel changes a member's trust level. Only mentors of the
// circle may do this, and the last mentor cannot demote themselves.
func (s *Service) UpdateTrustLevel(ctx context.Context, actorID, circleID, memberID uint64, level models.TrustLevel) (*models.CircleConnection, error) {
	if !models.ValidTrustLevels[level] {
		return nil, apperrors.Validation("trust_level", fmt.Sprintf("invalid trust level %q", level))
	}

	actor, err := s.membership(ctx, actorID, circleID)
	if err != nil {
		return nil, err
	}
	if actor == nil || actor.TrustLevel != models.TrustReviewMentor {
		return nil, apperrors.Forbidden("only circle mentors can change trust levels")
	}

	member, err := s.membership(ctx, memberID, circleID)
	if err != nil {
		return nil, err
	}
	if member == nil {
		return nil, apperrors.NotFound("circle member")
	}

	if actorID == memberID && level != models.TrustReviewMentor {
		mentors, err := s.mentorCount(ctx, circleID)
		if err != nil {
			return nil, err
		}
		if mentors <= 1 {
			return nil, apperrors.BusinessRule("the last mentor of a circle cannot demote themselves")
		}
	}

	if err := s.db.WithContext(ctx).Model(member).Update("trust_level", level).Error; err != nil {
		return nil, err
	}
	member.TrustLevel = level
	return member, nil
}

// RemoveMember removes a member from a circle. Allowed for the circle's
// creator, any mentor, or the member themselves leaving.
func (s *Service) RemoveMember(ctx context.Context, actorID, circleID, memberID uint64) error {
	var circle models.ReviewCircle
	if err := s.db.WithContext(ctx).First(&circle, "id = ?", circleID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperrors.NotFound("circle")
		}
		return err
	}

	if actorID != memberID && actorID != circle.CreatorID {
		actor, err := s.membership(ctx, actorID, circleID)
		if err != nil {
			return err
		}
		if actor == nil || actor.TrustLevel != models.TrustReviewMentor {
			return apperrors.Forbidden("only the creator, a mentor, or the member themselves can remove a member")
		}
	}

	result := s.db.WithContext(ctx).
		Where("user_id = ? AND circle_id = ?", memberID, circleID).
		Delete(&models.CircleConnection{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return apperrors.NotFound("circle member")
	}
	return nil
}

// InviteToCircle invites a user into a specific circle. Only the creator or
// a mentor of the circle may invite, and the circle must have room.
func (s *Service) InviteToCircle(ctx context.Context, inviterID, circleID, inviteeID uint64) (*models.CircleInvite, error) {
	if inviterID == inviteeID {
		return nil, apperrors.BusinessRule("cannot invite yourself")
	}

	var circle models.ReviewCircle
	if err := s.db.WithContext(ctx).First(&circle, "id = ?", circleID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NotFound("circle")
		}
		return nil, err
	}

	if inviterID != circle.CreatorID {
		actor, err := s.membership(ctx, inviterID, circleID)
		if err != nil {
			return nil, err
		}
		if actor == nil || actor.TrustLevel != models.TrustReviewMentor {
			return nil, apperrors.Forbidden("only the creator or a mentor can invite to a circle")
		}
	}

	var invitee models.User
	if err := s.db.WithContext(ctx).First(&invitee, "id = ?", inviteeID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NotFound("user")
		}
		return nil, err
	}

	blocked, err := s.isBlockedEitherWay(ctx, inviterID, inviteeID)
	if err != nil {
		return nil, err
	}
	if blocked {
		return nil, apperrors.Forbidden("a block exists between these users")
	}

	member, err := s.membership(ctx, inviteeID, circleID)
	if err != nil {
		return nil, err
	}
	if member != nil {
		return nil, apperrors.Conflict("user is already a member of this circle")
	}

	var pending int64
	err = s.db.WithContext(ctx).Model(&models.CircleInvite{}).
		Where("circle_id = ? AND invitee_id = ? AND status = ?", circleID, inviteeID, models.RequestPending).
		Count(&pending).Error
	if err != nil {
		return nil, err
	}
	if pending > 0 {
		return nil, apperrors.Conflict("a pending invite already exists for this user")
	}

	var members int64
	err = s.db.WithContext(ctx).Model(&models.CircleConnection{}).
		Where("circle_id = ?", circleID).
		Count(&members).Error
	if err != nil {
		return nil, err
	}
	if int(members) >= circle.MaxMembers {
		return nil, apperrors.BusinessRule("circle is full")
	}

	invite := models.CircleInvite{
		CircleID:  circleID,
		InviterID: inviterID,
		InviteeID: inviteeID,
		Status:    models.RequestPending,
	}
	if err := s.db.WithContext(ctx).Create(&invite).Error; err != nil {
		return nil, err
	}

	s.notifier.Emit(models.Notification{
		UserID:     inviteeID,
		ActorID:    &inviterID,
		Type:       models.NotifyCircleInvite,
		EntityType: "circle_invite",
		EntityID:   invite.ID,
		Title:      "Circle invitation",
		Message:    fmt.Sprintf("You were invited to join %s", circle.Name),
	})
	return &invite, nil
}

// RespondToInvite accepts or declines a pending invite addressed to the
// invitee. Accepting joins the circle as REVIEWER with a taste match against
// the circle's creator.
func (s *Service) RespondToInvite(ctx context.Context, inviteID, inviteeID uint64, accept bool) (*models.CircleInvite, error) {
	var invite models.CircleInvite
	err := s.db.WithContext(ctx).First(&invite, "id = ?", inviteID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.NotFound("circle invite")
	}
	if err != nil {
		return nil, err
	}
	if invite.InviteeID != inviteeID {
		return nil, apperrors.Forbidden("only the invitee can respond to an invite")
	}
	if invite.Status != models.RequestPending {
		return nil, apperrors.NotFound("pending invite")
	}

	status := models.RequestDeclined
	if accept {
		status = models.RequestAccepted
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		now := time.Now().UTC()
		err := tx.Model(&invite).Updates(map[string]any{
			"status":       status,
			"responded_at": now,
		}).Error
		if err != nil {
			return err
		}
		if !accept {
			return nil
		}
		var circle models.ReviewCircle
		if err := tx.First(&circle, "id = ?", invite.CircleID).Error; err != nil {
			return err
		}
		score := tasteMatchScore(inviteeID, circle.CreatorID)
		return s.ensureMembership(tx, inviteeID, invite.CircleID, score)
	})
	if err != nil {
		return nil, err
	}

	if accept {
		s.notifier.Emit(models.Notification{
			UserID:     invite.InviterID,
			ActorID:    &inviteeID,
			Type:       models.NotifyCircleAccepted,
			EntityType: "circle_invite",
			EntityID:   invite.ID,
			Title:      "Circle invite accepted",
			Message:    "Your circle invitation was accepted",
		})
	}
	return &invite, nil
}

// PendingInvites lists invites awaiting the user's response.
func (s *Service) PendingInvites(ctx context.Context, userID uint64) ([]models.CircleInvite, error) {
	var invites []models.CircleInvite
	err := s.db.WithContext(ctx).
		Preload("Circle").
		Where("invitee_id = ? AND status = ?", userID, models.RequestPending).
		Order("created_at DESC").
		Find(&invites).Error
	return invites, err
}

// Suggestion pairs a candidate user with their computed taste match.
type Suggestion struct {
	User            models.User `json:"user"`
	TasteMatchScore float64     `json:"taste_match_score"`
}

// Suggestions ranks active users the caller is not yet connected to by
// review activity, filtered to a minimum taste match when requested.
func (s *Service) Suggestions(ctx context.Context, userID uint64, limit int, minScore float64) ([]Suggestion, error) {
	if limit <= 0 || limit > 50 {
		limit = 10
	}

	excluded := map[uint64]bool{userID: true}

	var blockRows []models.CircleBlock
	err := s.db.WithContext(ctx).
		Where("blocker_id = ? OR blocked_id = ?", userID, userID).
		Find(&blockRows).Error
	if err != nil {
		return nil, err
	}
	for _, b := range blockRows {
		excluded[b.BlockerID] = true
		excluded[b.BlockedID] = true
	}

	var requestRows []models.CircleRequest
	err = s.db.WithContext(ctx).
		Where("status = ? AND (requester_id = ? OR receiver_id = ?)", models.RequestPending, userID, userID).
		Find(&requestRows).Error
	if err != nil {
		return nil, err
	}
	for _, r := range requestRows {
		excluded[r.RequesterID] = true
		excluded[r.ReceiverID] = true
	}

	connectedIDs, err := s.connectedUserIDs(ctx, userID)
	if err != nil {
		return nil, err
	}
	for _, id := range connectedIDs {
		excluded[id] = true
	}

	ids := make([]uint64, 0, len(excluded))
	for id := range excluded {
		ids = append(ids, id)
	}

	var candidates []models.User
	err = s.db.WithContext(ctx).
		Where("is_active = ? AND id NOT IN ?", true, ids).
		Order("review_count DESC, points DESC, id").
		Limit(limit * 2).
		Find(&candidates).Error
	if err != nil {
		return nil, err
	}

	suggestions := make([]Suggestion, 0, limit)
	for _, candidate := range candidates {
		score := tasteMatchScore(userID, candidate.ID)
		if score < minScore {
			continue
		}
		suggestions = append(suggestions, Suggestion{User: candidate, TasteMatchScore: score})
		if len(suggestions) == limit {
			break
		}
	}
	return suggestions, nil
}

// AreConnected reports whether either user belongs to a circle the other
// created.
func (s *Service) AreConnected(ctx context.Context, a, b uint64) (bool, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&models.CircleConnection{}).
		Joins("JOIN review_circles ON review_circles.id = circle_connections.circle_id").
		Where("review_circles.deleted_at IS NULL").
		Where("(circle_connections.user_id = ? AND review_circles.creator_id = ?) OR (circle_connections.user_id = ? AND review_circles.creator_id = ?)",
			a, b, b, a).
		Count(&count).Error
	return count > 0, err
}

func (s *Service) connectedUserIDs(ctx context.Context, userID uint64) ([]uint64, error) {
	var ids []uint64
	// Members of my circles.
	err := s.db.WithContext(ctx).Model(&models.CircleConnection{}).
		Joins("JOIN review_circles ON review_circles.id = circle_connections.circle_id").
		Where("review_circles.creator_id = ? AND circle_connections.user_id <> ?", userID, userID).
		Pluck("circle_connections.user_id", &ids).Error
	if err != nil {
		return nil, err
	}
	// Creators of circles I belong to.
	var creatorIDs []uint64
	err = s.db.WithContext(ctx).Model(&models.ReviewCircle{}).
		Joins("JOIN circle_connections ON circle_connections.circle_id = review_circles.id").
		Where("circle_connections.user_id = ? AND review_circles.creator_id <> ?", userID, userID).
		Pluck("review_circles.creator_id", &creatorIDs).Error
	if err != nil {
		return nil, err
	}
	return append(ids, creatorIDs...), nil
}

func (s *Service) pendingRequest(ctx context.Context, requestID, receiverID uint64) (*models.CircleRequest, error) {
	var request models.CircleRequest
	err := s.db.WithContext(ctx).First(&request, "id = ?", requestID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.NotFound("circle request")
	}
	if err != nil {
		return nil, err
	}
	if request.ReceiverID != receiverID {
		return nil, apperrors.Forbidden("only the receiver can respond to a request")
	}
	if request.Status != models.RequestPending {
		// Once responded to, the pending request no longer exists as an
		// actionable resource.
		return nil, apperrors.NotFound("pending request")
	}
	return &request, nil
}

func (s *Service) membership(ctx context.Context, userID, circleID uint64) (*models.CircleConnection, error) {
	var conn models.CircleConnection
	err := s.db.WithContext(ctx).
		First(&conn, "user_id = ? AND circle_id = ?", userID, circleID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &conn, nil
}

func (s *Service) mentorCount(ctx context.Context, circleID uint64) (int64, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&models.CircleConnection{}).
		Where("circle_id = ? AND trust_level = ?", circleID, models.TrustReviewMentor).
		Count(&count).Error
	return count, err
}

func (s *Service) isBlockedEitherWay(ctx context.Context, a, b uint64) (bool, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&models.CircleBlock{}).
		Where("(blocker_id = ? AND blocked_id = ?) OR (blocker_id = ? AND blocked_id = ?)", a, b, b, a).
		Count(&count).Error
	return count > 0, err
}

// ensureDefaultCircle returns the user's personal circle, creating it with
// the user as mentor when missing.
func (s *Service) ensureDefaultCircle(tx *gorm.DB, userID uint64) (*models.ReviewCircle, error) {
	var circle models.ReviewCircle
	err := tx.Where("creator_id = ?", userID).Order("created_at").First(&circle).Error
	if err == nil {
		return &circle, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	var user models.User
	if err := tx.First(&user, "id = ?", userID).Error; err != nil {
		return nil, err
	}

	circle = models.ReviewCircle{
		Name:      fmt.Sprintf("%s's Review Circle", user.Username),
		CreatorID: userID,
	}
	if err := tx.Create(&circle).Error; err != nil {
		return nil, err
	}
	membership := models.CircleConnection{
		UserID:     userID,
		CircleID:   circle.ID,
		TrustLevel: models.TrustReviewMentor,
		JoinedAt:   time.Now().UTC(),
	}
	if err := tx.Create(&membership).Error; err != nil {
		return nil, err
	}
	return &circle, nil
}

// ensureMembership adds the user as REVIEWER; an existing membership keeps
// its trust level and score.
func (s *Service) ensureMembership(tx *gorm.DB, userID, circleID uint64, score float64) error {
	var existing int64
	err := tx.Model(&models.CircleConnection{}).
		Where("user_id = ? AND circle_id = ?", userID, circleID).
		Count(&existing).Error
	if err != nil {
		return err
	}
	if existing > 0 {
		return nil
	}
	conn := models.CircleConnection{
		UserID:          userID,
		CircleID:        circleID,
		TrustLevel:      models.TrustReviewer,
		TasteMatchScore: score,
		JoinedAt:        time.Now().UTC(),
	}
	return tx.Create(&conn).Error
}

// tasteMatchScore derives a stable score in [60, 95] from the unordered
// user pair, so both directions of a connection always agree.
func tasteMatchScore(a, b uint64) float64 {
	lo, hi := a, b
	if lo > hi {
		lo, hi = hi, lo
	}
	h := fnv.New64a()
	fmt.Fprintf(h, "%d:%d", lo, hi)
	return 60 + float64(h.Sum64()%3500)/100
}
