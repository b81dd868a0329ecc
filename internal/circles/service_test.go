package circles

import (
	"context"
	"fmt"
	"net/http"
	"testing"

	"github.com/reviewinn/backend/internal/apperrors"
	"github.com/reviewinn/backend/internal/logger"
	"github.com/reviewinn/backend/internal/models"
	"github.com/reviewinn/backend/internal/notifications"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func newTestService(t *testing.T) (*Service, *gorm.DB) {
	t.Helper()
	logger.InitializeForTests()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&models.User{},
		&models.ReviewCircle{},
		&models.CircleConnection{},
		&models.CircleRequest{},
		&models.CircleInvite{},
		&models.CircleBlock{},
		&models.Notification{},
	))
	return NewService(db, notifications.NewService(db)), db
}

func seedUser(t *testing.T, db *gorm.DB, username string) *models.User {
	t.Helper()
	user := models.User{
		Username: username,
		Email:    username + "@example.com",
		IsActive: true,
	}
	require.NoError(t, db.Create(&user).Error)
	return &user
}

func TestSendRequestGuards(t *testing.T) {
	s, db := newTestService(t)
	alice := seedUser(t, db, "alice")
	bob := seedUser(t, db, "bob")
	ctx := context.Background()

	_, err := s.SendRequest(ctx, alice.ID, alice.ID, "")
	apiErr := apperrors.As(err)
	require.NotNil(t, apiErr)
	assert.Equal(t, apperrors.ErrBusinessLogic, apiErr.Code)

	_, err = s.SendRequest(ctx, alice.ID, 999, "")
	apiErr = apperrors.As(err)
	require.NotNil(t, apiErr)
	assert.Equal(t, apperrors.ErrNotFound, apiErr.Code)

	_, err = s.SendRequest(ctx, alice.ID, bob.ID, "hi")
	require.NoError(t, err)

	// Duplicate in either direction is rejected while pending.
	_, err = s.SendRequest(ctx, alice.ID, bob.ID, "hi again")
	apiErr = apperrors.As(err)
	require.NotNil(t, apiErr)
	assert.Equal(t, apperrors.ErrConflict, apiErr.Code)

	_, err = s.SendRequest(ctx, bob.ID, alice.ID, "me too")
	apiErr = apperrors.As(err)
	require.NotNil(t, apiErr)
	assert.Equal(t, apperrors.ErrConflict, apiErr.Code)
}

func TestSendRequestBlockedUsers(t *testing.T) {
	s, db := newTestService(t)
	alice := seedUser(t, db, "alice")
	bob := seedUser(t, db, "bob")
	ctx := context.Background()

	require.NoError(t, s.Block(ctx, bob.ID, alice.ID))

	_, err := s.SendRequest(ctx, alice.ID, bob.ID, "")
	apiErr := apperrors.As(err)
	require.NotNil(t, apiErr)
	assert.Equal(t, apperrors.ErrAuthorization, apiErr.Code)
}

func TestAcceptRequestConnectsBothWays(t *testing.T) {
	s, db := newTestService(t)
	alice := seedUser(t, db, "alice")
	bob := seedUser(t, db, "bob")
	ctx := context.Background()

	request, err := s.SendRequest(ctx, alice.ID, bob.ID, "hi")
	require.NoError(t, err)

	accepted, err := s.AcceptRequest(ctx, request.ID, bob.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RequestAccepted, accepted.Status)
	assert.NotNil(t, accepted.RespondedAt)

	// Both users got a default circle named after them.
	var aliceCircle, bobCircle models.ReviewCircle
	require.NoError(t, db.First(&aliceCircle, "creator_id = ?", alice.ID).Error)
	require.NoError(t, db.First(&bobCircle, "creator_id = ?", bob.ID).Error)
	assert.Equal(t, "alice's Review Circle", aliceCircle.Name)
	assert.Equal(t, "bob's Review Circle", bobCircle.Name)

	// Each joined the other's circle as REVIEWER with the same score.
	var aliceInBobs, bobInAlices models.CircleConnection
	require.NoError(t, db.First(&aliceInBobs, "user_id = ? AND circle_id = ?", alice.ID, bobCircle.ID).Error)
	require.NoError(t, db.First(&bobInAlices, "user_id = ? AND circle_id = ?", bob.ID, aliceCircle.ID).Error)
	assert.Equal(t, models.TrustReviewer, aliceInBobs.TrustLevel)
	assert.Equal(t, models.TrustReviewer, bobInAlices.TrustLevel)
	assert.Equal(t, aliceInBobs.TasteMatchScore, bobInAlices.TasteMatchScore)
	assert.GreaterOrEqual(t, aliceInBobs.TasteMatchScore, 60.0)
	assert.Less(t, aliceInBobs.TasteMatchScore, 95.0)

	connected, err := s.AreConnected(ctx, alice.ID, bob.ID)
	require.NoError(t, err)
	assert.True(t, connected)

	// Connected users cannot send another request.
	_, err = s.SendRequest(ctx, alice.ID, bob.ID, "again")
	apiErr := apperrors.As(err)
	require.NotNil(t, apiErr)
	assert.Equal(t, apperrors.ErrConflict, apiErr.Code)
}

func TestAcceptRequestOnlyReceiver(t *testing.T) {
	s, db := newTestService(t)
	alice := seedUser(t, db, "alice")
	bob := seedUser(t, db, "bob")
	eve := seedUser(t, db, "eve")
	ctx := context.Background()

	request, err := s.SendRequest(ctx, alice.ID, bob.ID, "")
	require.NoError(t, err)

	_, err = s.AcceptRequest(ctx, request.ID, eve.ID)
	apiErr := apperrors.As(err)
	require.NotNil(t, apiErr)
	assert.Equal(t, apperrors.ErrAuthorization, apiErr.Code)

	// A responded request is no longer an actionable resource: the
	// second accept sees it as gone.
	_, err = s.AcceptRequest(ctx, request.ID, bob.ID)
	require.NoError(t, err)
	_, err = s.AcceptRequest(ctx, request.ID, bob.ID)
	apiErr = apperrors.As(err)
	require.NotNil(t, apiErr)
	assert.Equal(t, apperrors.ErrNotFound, apiErr.Code)
	assert.Equal(t, http.StatusNotFound, apiErr.Status)
}

func TestDeclineAndCancel(t *testing.T) {
	s, db := newTestService(t)
	alice := seedUser(t, db, "alice")
	bob := seedUser(t, db, "bob")
	ctx := context.Background()

	request, err := s.SendRequest(ctx, alice.ID, bob.ID, "")
	require.NoError(t, err)
	declined, err := s.DeclineRequest(ctx, request.ID, bob.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RequestDeclined, declined.Status)

	// Declined does not connect anyone.
	connected, err := s.AreConnected(ctx, alice.ID, bob.ID)
	require.NoError(t, err)
	assert.False(t, connected)

	// Cancel only works for the requester's own pending request.
	second, err := s.SendRequest(ctx, bob.ID, alice.ID, "")
	require.NoError(t, err)
	err = s.CancelRequest(ctx, second.ID, alice.ID)
	apiErr := apperrors.As(err)
	require.NotNil(t, apiErr)
	assert.Equal(t, apperrors.ErrNotFound, apiErr.Code)
	require.NoError(t, s.CancelRequest(ctx, second.ID, bob.ID))
}

func TestBlockRemovesMemberships(t *testing.T) {
	s, db := newTestService(t)
	alice := seedUser(t, db, "alice")
	bob := seedUser(t, db, "bob")
	ctx := context.Background()

	request, err := s.SendRequest(ctx, alice.ID, bob.ID, "")
	require.NoError(t, err)
	_, err = s.AcceptRequest(ctx, request.ID, bob.ID)
	require.NoError(t, err)

	require.NoError(t, s.Block(ctx, alice.ID, bob.ID))

	connected, err := s.AreConnected(ctx, alice.ID, bob.ID)
	require.NoError(t, err)
	assert.False(t, connected, "block severs both memberships")

	// Blocking again is idempotent.
	require.NoError(t, s.Block(ctx, alice.ID, bob.ID))

	var blocks int64
	require.NoError(t, db.Model(&models.CircleBlock{}).Count(&blocks).Error)
	assert.Equal(t, int64(1), blocks)

	require.NoError(t, s.Unblock(ctx, alice.ID, bob.ID))
	err = s.Unblock(ctx, alice.ID, bob.ID)
	apiErr := apperrors.As(err)
	require.NotNil(t, apiErr)
	assert.Equal(t, apperrors.ErrNotFound, apiErr.Code)
}

func TestSoleMentorCannotSelfDemote(t *testing.T) {
	s, db := newTestService(t)
	alice := seedUser(t, db, "alice")
	bob := seedUser(t, db, "bob")
	ctx := context.Background()

	circle, err := s.CreateCircle(ctx, alice.ID, "Critics", "", false, 0)
	require.NoError(t, err)
	assert.Equal(t, 50, circle.MaxMembers)

	_, err = s.UpdateTrustLevel(ctx, alice.ID, circle.ID, alice.ID, models.TrustReviewer)
	apiErr := apperrors.As(err)
	require.NotNil(t, apiErr)
	assert.Equal(t, apperrors.ErrBusinessLogic, apiErr.Code)

	// A second mentor unblocks the demotion.
	require.NoError(t, db.Create(&models.CircleConnection{
		UserID: bob.ID, CircleID: circle.ID, TrustLevel: models.TrustReviewMentor,
	}).Error)
	updated, err := s.UpdateTrustLevel(ctx, alice.ID, circle.ID, alice.ID, models.TrustReviewer)
	require.NoError(t, err)
	assert.Equal(t, models.TrustReviewer, updated.TrustLevel)
}

func TestUpdateTrustLevelRequiresMentor(t *testing.T) {
	s, db := newTestService(t)
	alice := seedUser(t, db, "alice")
	bob := seedUser(t, db, "bob")
	ctx := context.Background()

	circle, err := s.CreateCircle(ctx, alice.ID, "Critics", "", false, 0)
	require.NoError(t, err)
	require.NoError(t, db.Create(&models.CircleConnection{
		UserID: bob.ID, CircleID: circle.ID, TrustLevel: models.TrustReviewer,
	}).Error)

	_, err = s.UpdateTrustLevel(ctx, bob.ID, circle.ID, bob.ID, models.TrustReviewAlly)
	apiErr := apperrors.As(err)
	require.NotNil(t, apiErr)
	assert.Equal(t, apperrors.ErrAuthorization, apiErr.Code)

	_, err = s.UpdateTrustLevel(ctx, alice.ID, circle.ID, bob.ID, models.TrustLevel("BEST_FRIEND"))
	apiErr = apperrors.As(err)
	require.NotNil(t, apiErr)
	assert.Equal(t, apperrors.ErrValidation, apiErr.Code)

	updated, err := s.UpdateTrustLevel(ctx, alice.ID, circle.ID, bob.ID, models.TrustReviewAlly)
	require.NoError(t, err)
	assert.Equal(t, models.TrustReviewAlly, updated.TrustLevel)
}

func TestRemoveMemberPermissions(t *testing.T) {
	s, db := newTestService(t)
	alice := seedUser(t, db, "alice")
	bob := seedUser(t, db, "bob")
	eve := seedUser(t, db, "eve")
	ctx := context.Background()

	circle, err := s.CreateCircle(ctx, alice.ID, "Critics", "", false, 0)
	require.NoError(t, err)
	require.NoError(t, db.Create(&models.CircleConnection{
		UserID: bob.ID, CircleID: circle.ID, TrustLevel: models.TrustReviewer,
	}).Error)

	err = s.RemoveMember(ctx, eve.ID, circle.ID, bob.ID)
	apiErr := apperrors.As(err)
	require.NotNil(t, apiErr)
	assert.Equal(t, apperrors.ErrAuthorization, apiErr.Code)

	// Members can leave on their own.
	require.NoError(t, s.RemoveMember(ctx, bob.ID, circle.ID, bob.ID))
}

func TestSuggestionsExcludeKnownUsers(t *testing.T) {
	s, db := newTestService(t)
	alice := seedUser(t, db, "alice")
	bob := seedUser(t, db, "bob")
	eve := seedUser(t, db, "eve")
	mallory := seedUser(t, db, "mallory")
	for i, u := range []*models.User{bob, eve, mallory} {
		require.NoError(t, db.Model(u).Update("review_count", 10-i).Error)
	}
	ctx := context.Background()

	// bob is connected, eve has a pending request, mallory is free.
	request, err := s.SendRequest(ctx, alice.ID, bob.ID, "")
	require.NoError(t, err)
	_, err = s.AcceptRequest(ctx, request.ID, bob.ID)
	require.NoError(t, err)
	_, err = s.SendRequest(ctx, alice.ID, eve.ID, "")
	require.NoError(t, err)

	suggestions, err := s.Suggestions(ctx, alice.ID, 10, 0)
	require.NoError(t, err)
	require.Len(t, suggestions, 1)
	assert.Equal(t, mallory.ID, suggestions[0].User.ID)
	assert.GreaterOrEqual(t, suggestions[0].TasteMatchScore, 60.0)
	assert.Less(t, suggestions[0].TasteMatchScore, 95.0)
}

func TestInviteLifecycle(t *testing.T) {
	s, db := newTestService(t)
	alice := seedUser(t, db, "alice")
	bob := seedUser(t, db, "bob")
	eve := seedUser(t, db, "eve")
	ctx := context.Background()

	circle, err := s.CreateCircle(ctx, alice.ID, "Critics", "", false, 0)
	require.NoError(t, err)

	// Only the creator or a mentor can invite.
	_, err = s.InviteToCircle(ctx, eve.ID, circle.ID, bob.ID)
	apiErr := apperrors.As(err)
	require.NotNil(t, apiErr)
	assert.Equal(t, apperrors.ErrAuthorization, apiErr.Code)

	invite, err := s.InviteToCircle(ctx, alice.ID, circle.ID, bob.ID)
	require.NoError(t, err)

	// A second pending invite for the same user is a conflict.
	_, err = s.InviteToCircle(ctx, alice.ID, circle.ID, bob.ID)
	apiErr = apperrors.As(err)
	require.NotNil(t, apiErr)
	assert.Equal(t, apperrors.ErrConflict, apiErr.Code)

	// Only the invitee can respond.
	_, err = s.RespondToInvite(ctx, invite.ID, eve.ID, true)
	apiErr = apperrors.As(err)
	require.NotNil(t, apiErr)
	assert.Equal(t, apperrors.ErrAuthorization, apiErr.Code)

	accepted, err := s.RespondToInvite(ctx, invite.ID, bob.ID, true)
	require.NoError(t, err)
	assert.Equal(t, models.RequestAccepted, accepted.Status)

	var membership models.CircleConnection
	require.NoError(t, db.First(&membership, "user_id = ? AND circle_id = ?", bob.ID, circle.ID).Error)
	assert.Equal(t, models.TrustReviewer, membership.TrustLevel)
	assert.Equal(t, tasteMatchScore(bob.ID, alice.ID), membership.TasteMatchScore)

	// Members cannot be invited again.
	_, err = s.InviteToCircle(ctx, alice.ID, circle.ID, bob.ID)
	apiErr = apperrors.As(err)
	require.NotNil(t, apiErr)
	assert.Equal(t, apperrors.ErrConflict, apiErr.Code)

	// A responded invite is gone as an actionable resource.
	_, err = s.RespondToInvite(ctx, invite.ID, bob.ID, false)
	apiErr = apperrors.As(err)
	require.NotNil(t, apiErr)
	assert.Equal(t, apperrors.ErrNotFound, apiErr.Code)
}

func TestInviteRespectsCircleCapacity(t *testing.T) {
	s, db := newTestService(t)
	alice := seedUser(t, db, "alice")
	bob := seedUser(t, db, "bob")
	ctx := context.Background()

	circle, err := s.CreateCircle(ctx, alice.ID, "Tiny", "", false, 1)
	require.NoError(t, err)

	// The creator's own membership already fills the single slot.
	_, err = s.InviteToCircle(ctx, alice.ID, circle.ID, bob.ID)
	apiErr := apperrors.As(err)
	require.NotNil(t, apiErr)
	assert.Equal(t, apperrors.ErrBusinessLogic, apiErr.Code)
}

func TestTasteMatchScoreStableAndSymmetric(t *testing.T) {
	for _, pair := range [][2]uint64{{1, 2}, {7, 7000}, {42, 43}} {
		a := tasteMatchScore(pair[0], pair[1])
		b := tasteMatchScore(pair[1], pair[0])
		assert.Equal(t, a, b, fmt.Sprintf("pair %v must be order-independent", pair))
		assert.GreaterOrEqual(t, a, 60.0)
		assert.Less(t, a, 95.0)
	}
}
