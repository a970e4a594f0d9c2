// internal/middleware/auth_middleware.go
package middleware

import (
	"net/http"

	domain "better-together-service/internal/domain/auth"
	"better-together-service/internal/idp"
	"better-together-service/internal/pkg/response"
	"better-together-service/internal/pkg/session"

	"github.com/gin-gonic/gin"
)

// Context keys set by the auth middleware for downstream handlers.
const (
	ctxUserID    = "user_id"
	ctxUserEmail = "user_email"
	ctxUser      = "user"
	ctxIdP       = "idp_client"
	ctxTokens    = "session_tokens"
)

// AuthMiddleware gates requests on the resolved session. It never mutates
// cookies: cookie writes belong to the explicit login/logout/refresh
// handlers, which keeps both variants read-only and idempotent.
type AuthMiddleware struct {
	resolver *session.Resolver
}

func NewAuthMiddleware(resolver *session.Resolver) *AuthMiddleware {
	return &AuthMiddleware{resolver: resolver}
}

// RequireAuth rejects requests without a provider-confirmed session. An
// unreachable provider answers 503, not 401, so clients do not prompt for
// re-login during an outage.
func (m *AuthMiddleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		res := m.resolver.Resolve(c)
		switch res.State {
		case session.Authenticated:
			setIdentity(c, res)
			c.Next()
		case session.UpstreamUnavailable:
			response.Error(c, http.StatusServiceUnavailable, "Authentication service unavailable")
		default:
			response.Unauthorized(c, "Unauthorized")
		}
	}
}

// OptionalAuth resolves the session but proceeds either way. Downstream
// handlers must check for absent identity themselves.
func (m *AuthMiddleware) OptionalAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if res := m.resolver.Resolve(c); res.State == session.Authenticated {
			setIdentity(c, res)
		}
		c.Next()
	}
}

func setIdentity(c *gin.Context, res session.Resolution) {
	c.Set(ctxUserID, res.User.ID)
	c.Set(ctxUserEmail, res.User.Email)
	c.Set(ctxUser, res.User)
	c.Set(ctxIdP, res.Client)
	c.Set(ctxTokens, res.Tokens)
}

// GetUserID returns the authenticated user's id from context.
func GetUserID(c *gin.Context) (string, bool) {
	v, exists := c.Get(ctxUserID)
	if !exists {
		return "", false
	}
	id, ok := v.(string)
	return id, ok
}

// GetUser returns the provider-confirmed user from context.
func GetUser(c *gin.Context) (*domain.User, bool) {
	v, exists := c.Get(ctxUser)
	if !exists {
		return nil, false
	}
	u, ok := v.(*domain.User)
	return u, ok
}

// GetIdP returns the request-scoped provider client from context.
func GetIdP(c *gin.Context) (*idp.Client, bool) {
	v, exists := c.Get(ctxIdP)
	if !exists {
		return nil, false
	}
	client, ok := v.(*idp.Client)
	return client, ok
}

// GetTokens returns the request's decoded token pair from context.
func GetTokens(c *gin.Context) (domain.TokenPair, bool) {
	v, exists := c.Get(ctxTokens)
	if !exists {
		return domain.TokenPair{}, false
	}
	pair, ok := v.(domain.TokenPair)
	return pair, ok
}

// IsAuthenticated checks if the request carries a resolved identity.
func IsAuthenticated(c *gin.Context) bool {
	_, exists := c.Get(ctxUserID)
	return exists
}
