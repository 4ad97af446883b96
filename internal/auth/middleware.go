package auth

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"github.com/jimdaga/tophive/internal/models"
	"gorm.io/gorm"
)

// Resolver reads the session of the current request. It returns nil when
// the request carries no valid session.
type Resolver func(c *gin.Context) (*Session, error)

// CookieResolver resolves the gin cookie session. When db is set the user
// must still exist; hubs revoke sessions of users who signed out elsewhere.
func CookieResolver(db *gorm.DB, hubs *Hubs) Resolver {
	return func(c *gin.Context) (*Session, error) {
		session := sessions.Default(c)
		userID, ok := session.Get(sessionUserID).(uint)
		if !ok || userID == 0 {
			return nil, nil
		}

		s := &Session{UserID: userID}
		s.Email, _ = session.Get(sessionEmail).(string)
		s.Name, _ = session.Get(sessionName).(string)
		s.AvatarURL, _ = session.Get(sessionAvatar).(string)

		if hubs != nil {
			if state, _ := hubs.For(userID).Current(); state == StateUnauthenticated {
				return nil, nil
			}
		}

		if db != nil {
			var user models.User
			err := db.WithContext(c.Request.Context()).Select("id").First(&user, userID).Error
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, nil
			}
			if err != nil {
				return nil, err
			}
		}

		return s, nil
	}
}

// RequireAuth only lets requests with a resolved session through. Others
// are redirected to the login page; HTMX and API callers get a 401.
func RequireAuth(resolve Resolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		guard := NewGuard()

		s, err := resolve(c)
		if err != nil {
			slog.Error("Session resolution failed", "error", err)
			c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"error": "Session check failed. Please try again."})
			return
		}
		guard.Resolve(s)

		if err := guard.Wait(c.Request.Context()); err != nil {
			c.Abort()
			return
		}

		decision := guard.Decide()
		switch decision.Kind {
		case DecisionAllow:
			session := guard.Session()
			c.Set("user_id", session.UserID)
			c.Set("user_email", session.Email)
			c.Set("user_name", session.Name)
			c.Next()

		case DecisionRedirect:
			switch {
			case c.GetHeader("HX-Request") == "true":
				c.Header("HX-Redirect", decision.Location)
				c.AbortWithStatus(http.StatusUnauthorized)
			case strings.HasPrefix(c.Request.URL.Path, "/api/"):
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
			default:
				c.Redirect(http.StatusFound, decision.Location)
				c.Abort()
			}

		default:
			// Unreachable after Wait; never serve an unresolved session
			c.AbortWithStatus(http.StatusServiceUnavailable)
		}
	}
}
