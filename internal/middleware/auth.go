package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/thereayou/study-room/internal/apperrors"
	"github.com/thereayou/study-room/internal/session"
	"github.com/thereayou/study-room/pkg/auth"
)

const (
	SessionKey  = "session"
	ProviderKey = "sessionProvider"
)

// AuthMiddleware restores the caller's session from the bearer token.
// Requests without a valid session are sent to the sign-in page.
func AuthMiddleware(identity session.Identity) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := auth.ExtractTokenFromHeader(c.Request)
		if err != nil {
			unauthorized(c, "missing or invalid token")
			return
		}
		restore(c, identity, token)
	}
}

// WSAuthMiddleware is AuthMiddleware for websocket upgrades, where browsers
// cannot set headers: the token may also come from the query string.
func WSAuthMiddleware(identity session.Identity) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := c.Query("token")
		if token == "" {
			authHeader := c.GetHeader("Authorization")
			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) == 2 && strings.EqualFold(parts[0], "bearer") {
				token = parts[1]
			}
		}

		if token == "" {
			unauthorized(c, "missing token")
			return
		}
		restore(c, identity, token)
	}
}

func restore(c *gin.Context, identity session.Identity, token string) {
	provider := session.NewProvider(identity)
	sess, err := provider.Restore(c.Request.Context(), token)
	if err != nil {
		if apperrors.IsTransient(err) {
			c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"error": "session service unavailable"})
			return
		}
		unauthorized(c, err.Error())
		return
	}

	c.Set(SessionKey, sess)
	c.Set(ProviderKey, provider)
	c.Request = c.Request.WithContext(session.WithSession(c.Request.Context(), sess))
	c.Next()
}

func unauthorized(c *gin.Context, msg string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": msg, "redirect": "/login"})
}

// CurrentSession returns the session restored for this request.
func CurrentSession(c *gin.Context) session.Session {
	if v, ok := c.Get(SessionKey); ok {
		if s, ok := v.(session.Session); ok {
			return s
		}
	}
	return session.Anonymous
}

// CurrentProvider returns the request's session provider, or nil.
func CurrentProvider(c *gin.Context) *session.Provider {
	if v, ok := c.Get(ProviderKey); ok {
		if p, ok := v.(*session.Provider); ok {
			return p
		}
	}
	return nil
}
