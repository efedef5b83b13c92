package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"homecare-dashboard/internal/auth"
	"homecare-dashboard/internal/session"
)

const (
	CookieName = "session_id"

	UserIDKey    = "user_id"
	UserNameKey  = "user_name"
	SessionIDKey = "session_id"
	SessionKey   = "session"
)

// Session requires a live browser session and redirects to /login
// otherwise. Each authenticated request slides the session expiry.
func Session(store session.Store, log *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := c.Cookie(CookieName)
		if err != nil || id == "" {
			c.Redirect(http.StatusFound, "/login")
			c.Abort()
			return
		}
		data, err := store.Get(c.Request.Context(), id)
		if err != nil {
			if !errors.Is(err, session.ErrNotFound) {
				log.WithError(err).Error("session lookup failed")
			}
			c.SetCookie(CookieName, "", -1, "/", "", false, true)
			c.Redirect(http.StatusFound, "/login")
			c.Abort()
			return
		}
		if err := store.Extend(c.Request.Context(), id); err != nil {
			log.WithError(err).Warn("session extend failed")
		}

		c.Set(SessionIDKey, id)
		c.Set(SessionKey, data)
		c.Set(UserIDKey, data.UserID)
		c.Set(UserNameKey, data.Name)
		c.Next()
	}
}

// Bearer requires Authorization: Bearer <jwt> for the JSON API.
func Bearer(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		h := c.GetHeader("Authorization")
		raw := strings.TrimPrefix(h, "Bearer ")
		if h == "" || raw == h || raw == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "no token"})
			return
		}
		claims, err := auth.ParseToken(raw, secret)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "bad token"})
			return
		}
		c.Set(UserIDKey, claims.UserID)
		c.Set(UserNameKey, claims.Name)
		c.Next()
	}
}

func UserID(c *gin.Context) string {
	return c.GetString(UserIDKey)
}

// CurrentSession returns the session loaded by Session, if any.
func CurrentSession(c *gin.Context) (string, *session.Data, bool) {
	v, ok := c.Get(SessionKey)
	if !ok {
		return "", nil, false
	}
	d, ok := v.(*session.Data)
	return c.GetString(SessionIDKey), d, ok
}
