package ginserver

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	gin "github.com/gin-gonic/gin"

	domainauth "warehub/internal/domain/auth"
	domainuser "warehub/internal/domain/user"
)

const actorContextKey = "warehub.actor"

// TokenResolver turns a bearer token into the actor it was issued to.
type TokenResolver interface {
	Resolve(ctx context.Context, token string) (domainauth.Actor, error)
}

// AuthMiddleware attaches the caller's actor to the request. Requests without
// a token continue anonymously; a token that does not resolve is refused.
type AuthMiddleware struct {
	Resolver TokenResolver
	Logger   *slog.Logger
}

func (m AuthMiddleware) Handle(c *gin.Context) {
	token := requestToken(c)
	if token == "" || m.Resolver == nil {
		c.Next()
		return
	}
	actor, err := m.Resolver.Resolve(c.Request.Context(), token)
	if err != nil {
		if !errors.Is(err, domainauth.ErrInvalidToken) {
			respondWithError(c, m.Logger, err)
			return
		}
		if m.Logger != nil {
			m.Logger.Debug("token rejected", "path", c.Request.URL.Path, "error", err)
		}
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
		return
	}
	c.Set(actorContextKey, actor)
	c.Next()
}

// requestToken reads the Authorization header. Browsers cannot set headers on
// a websocket handshake, so ?token= is accepted as well.
func requestToken(c *gin.Context) string {
	if token := extractBearerToken(c.GetHeader("Authorization")); token != "" {
		return token
	}
	return strings.TrimSpace(c.Query("token"))
}

func currentActor(c *gin.Context) domainauth.Actor {
	val, ok := c.Get(actorContextKey)
	if !ok {
		return domainauth.Actor{}
	}
	actor, _ := val.(domainauth.Actor)
	return actor
}

// requireRole answers 401/403 itself and reports false when the caller may
// not continue. An empty role only requires a signed-in caller.
func requireRole(c *gin.Context, role domainuser.Role) (domainauth.Actor, bool) {
	actor := currentActor(c)
	if !actor.Authenticated() {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "auth required"})
		return domainauth.Actor{}, false
	}
	if role != "" && actor.Role != role {
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "insufficient permissions"})
		return domainauth.Actor{}, false
	}
	return actor, true
}

func extractBearerToken(header string) string {
	if len(header) < 7 || !strings.EqualFold(header[:7], "bearer ") {
		return ""
	}
	return strings.TrimSpace(header[7:])
}
