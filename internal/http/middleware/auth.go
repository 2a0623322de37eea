// README: Firebase auth middleware and caller provisioning.
package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"rideshare/internal/infra"
	"rideshare/internal/modules/user"
	"rideshare/internal/types"
)

const (
	ctxCallerUID  = "caller_uid"
	ctxCallerRole = "caller_role"
	ctxCaller     = "caller"
)

// Auth verifies the bearer token and stores the caller's uid and role claim.
func Auth(verifier infra.TokenVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		raw, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || strings.TrimSpace(raw) == "" {
			// Browsers cannot set headers on websocket upgrades.
			raw = c.Query("access_token")
		}
		raw = strings.TrimSpace(raw)
		if raw == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing bearer token"})
			return
		}
		token, err := verifier.VerifyIDToken(c.Request.Context(), raw)
		if err != nil || token == nil || token.UID == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}
		c.Set(ctxCallerUID, token.UID)
		if role, ok := token.Role(); ok {
			c.Set(ctxCallerRole, role)
		}
		c.Next()
	}
}

func CallerUID(c *gin.Context) string {
	return c.GetString(ctxCallerUID)
}

// CallerRole is the role claim of the token; zero when absent.
func CallerRole(c *gin.Context) types.Role {
	v, ok := c.Get(ctxCallerRole)
	if !ok {
		return 0
	}
	r, _ := v.(types.Role)
	return r
}

// Caller is the provisioned actor set by Provision.
func Caller(c *gin.Context) (types.Actor, bool) {
	v, ok := c.Get(ctxCaller)
	if !ok {
		return types.Actor{}, false
	}
	a, ok := v.(types.Actor)
	return a, ok
}

type Provisioner interface {
	Get(ctx context.Context, id types.ID) (*user.User, error)
	Ensure(ctx context.Context, id types.ID, role types.Role) (*user.User, error)
}

// Provision resolves the authenticated uid to a user profile, creating it on
// first sight from the role claim. The stored role is authoritative after
// that. Must run after Auth.
func Provision(users Provisioner) gin.HandlerFunc {
	return func(c *gin.Context) {
		uid := types.ID(CallerUID(c))
		if uid == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthenticated"})
			return
		}

		var u *user.User
		var err error
		if role := CallerRole(c); role != 0 {
			u, err = users.Ensure(c.Request.Context(), uid, role)
		} else {
			u, err = users.Get(c.Request.Context(), uid)
			if errors.Is(err, user.ErrNotFound) {
				c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "role claim required"})
				return
			}
		}
		if err != nil {
			_ = c.Error(err)
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
			return
		}
		c.Set(ctxCaller, types.Actor{ID: u.ID, Role: u.Role})
		c.Next()
	}
}
