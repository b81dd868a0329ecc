package handlers

import (
	"github.com/reviewinn/backend/internal/aggregation"
	"github.com/reviewinn/backend/internal/auth"
	"github.com/reviewinn/backend/internal/cache"
	"github.com/reviewinn/backend/internal/category"
	"github.com/reviewinn/backend/internal/circles"
	"github.com/reviewinn/backend/internal/notifications"
	"github.com/reviewinn/backend/internal/reactions"
	"github.com/reviewinn/backend/internal/repository"
	"github.com/reviewinn/backend/internal/views"
)

// Handlers contains all HTTP handlers for the API
type Handlers struct {
	auth          *auth.Service
	categories    *category.Engine
	agg           *aggregation.Engine
	reactions     *reactions.Service
	views         *views.Tracker
	circles       *circles.Service
	notifications *notifications.Service
	users         repository.UserRepository
	cache         *cache.Store
	development   bool
}

// NewHandlers creates a new handlers instance
func NewHandlers(
	authService *auth.Service,
	categories *category.Engine,
	agg *aggregation.Engine,
	reactionService *reactions.Service,
	viewTracker *views.Tracker,
	circleService *circles.Service,
	notificationService *notifications.Service,
	users repository.UserRepository,
	cacheStore *cache.Store,
	development bool,
) *Handlers {
	return &Handlers{
		auth:          authService,
		categories:    categories,
		agg:           agg,
		reactions:     reactionService,
		views:         viewTracker,
		circles:       circleService,
		notifications: notificationService,
		users:         users,
		cache:         cacheStore,
		development:   development,
	}
}
