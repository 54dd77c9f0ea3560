package middleware

import (
	"github.com/gin-gonic/gin"

	iauth "github.com/foliotrack/foliotrack/internal/auth"
	"github.com/foliotrack/foliotrack/pkg/errors"
	"github.com/foliotrack/foliotrack/pkg/response"
)

const (
	CtxUserKey   = "authUser"
	CtxUserIDKey = "userID"
)

// Auth enforces session authentication via the session cookie. Requests
// without a cookie, or with a token that no longer resolves, are rejected
// with 401 before the handler runs.
func Auth(sessions *iauth.SessionService) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := c.Cookie(iauth.SessionCookieName)
		if err != nil || token == "" {
			response.Error(c, errors.ErrUnauthorized)
			c.Abort()
			return
		}

		user, err := sessions.Resolve(c.Request.Context(), token)
		if err != nil {
			// Absent, expired and lookup failures all normalise to 401.
			response.Error(c, errors.ErrUnauthorized)
			c.Abort()
			return
		}

		c.Set(CtxUserKey, user)
		c.Set(CtxUserIDKey, user.ID)

		c.Next()
	}
}
