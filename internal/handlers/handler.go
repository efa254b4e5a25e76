package handlers

import (
	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"

	"github.com/healthconnect/healthconnect-api/internal/middleware"
	"github.com/healthconnect/healthconnect-api/internal/models"
	"github.com/healthconnect/healthconnect-api/internal/policy"
	"github.com/healthconnect/healthconnect-api/internal/services"
)

// Handler carries the shared dependencies; every route handler is a method
// on it.
type Handler struct {
	DB     *mongo.Database
	Log    *zap.Logger
	Tokens *services.TokenStore
}

func NewHandler(db *mongo.Database, log *zap.Logger, tokens *services.TokenStore) *Handler {
	return &Handler{
		DB:     db,
		Log:    log,
		Tokens: tokens,
	}
}

// principal reads the authenticated actor out of the gin context. The auth
// middleware guarantees both keys on protected routes; the boolean covers
// misconfigured routes that skipped it.
func principal(c *gin.Context) (policy.Principal, bool) {
	id, ok := c.Get(middleware.ContextUserIDKey)
	if !ok {
		return policy.Principal{}, false
	}
	roleVal, ok := c.Get(middleware.ContextUserRoleKey)
	if !ok {
		return policy.Principal{}, false
	}
	role, ok := roleVal.(models.Role)
	if !ok {
		return policy.Principal{}, false
	}
	return policy.Principal{ID: id.(string), Role: role}, true
}
