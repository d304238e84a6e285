package middleware

import (
	"errors"
	"net/http"
	"strings"

	"agritrace/internal/models"
	"agritrace/internal/service"
	"agritrace/internal/util"

	"github.com/gin-gonic/gin"
)

const (
	actorKey       = "actor"
	currentUserKey = "currentUser"
	tokenCookie    = "at_token"
)

// tokenFrom looks for a bearer token in the Authorization header, then the
// ?token= query parameter (downloads), then the cookie.
func tokenFrom(c *gin.Context) string {
	if authHeader := c.GetHeader("Authorization"); authHeader != "" {
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
			return strings.TrimSpace(parts[1])
		}
	}
	if t := c.Query("token"); t != "" {
		return t
	}
	if cookie, err := c.Cookie(tokenCookie); err == nil {
		return cookie
	}
	return ""
}

// Authenticate resolves the caller from a JWT and stores it in the
// context. Without a token the request continues anonymously unless
// required is set; a token that does not verify is always rejected.
func Authenticate(jwtSecret string, users *service.Users, required bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenStr := tokenFrom(c)
		if tokenStr == "" {
			if required {
				util.Error(c, http.StatusUnauthorized, "login required")
				c.Abort()
				return
			}
			c.Next()
			return
		}

		claims, err := util.ParseToken(jwtSecret, tokenStr)
		if err != nil {
			util.Error(c, http.StatusUnauthorized, "session expired, please log in again")
			c.Abort()
			return
		}

		user, err := users.GetUser(c.Request.Context(), claims.UserID)
		if err != nil {
			if errors.Is(err, service.ErrNotFound) {
				util.Error(c, http.StatusUnauthorized, "user does not exist")
			} else {
				util.Error(c, http.StatusInternalServerError, "failed to load user")
			}
			c.Abort()
			return
		}

		c.Set(currentUserKey, user)
		c.Set(actorKey, service.Actor{ID: user.ID, Role: user.Role})
		c.Next()
	}
}

// RequireRole rejects callers whose role is not listed. Admins always pass.
func RequireRole(roles ...models.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor := CurrentActor(c)
		if !actor.Authenticated() {
			util.Error(c, http.StatusUnauthorized, "login required")
			c.Abort()
			return
		}
		if actor.IsAdmin() {
			c.Next()
			return
		}
		for _, r := range roles {
			if actor.Role == r {
				c.Next()
				return
			}
		}
		util.Error(c, http.StatusForbidden, "insufficient role")
		c.Abort()
	}
}

// CurrentActor returns the verified caller, or the anonymous actor.
func CurrentActor(c *gin.Context) service.Actor {
	if v, ok := c.Get(actorKey); ok {
		if a, ok := v.(service.Actor); ok {
			return a
		}
	}
	return service.Actor{}
}

// CurrentUser returns the caller's account, if any.
func CurrentUser(c *gin.Context) *models.User {
	if v, ok := c.Get(currentUserKey); ok {
		if u, ok := v.(*models.User); ok {
			return u
		}
	}
	return nil
}
