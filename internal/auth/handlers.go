package auth

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jimdaga/tophive/internal/metrics"
	"github.com/jimdaga/tophive/internal/models"
	"github.com/markbates/goth"
	"github.com/markbates/goth/gothic"
	"gorm.io/gorm"
)

const dashboardPath = "/dashboard"

type credentials struct {
	Email       string `json:"email" form:"email"`
	Password    string `json:"password" form:"password"`
	DisplayName string `json:"displayName" form:"displayName"`
}

func respondAuthError(c *gin.Context, err error) {
	var authErr *AuthError
	if errors.As(err, &authErr) {
		if authErr.Err != nil {
			slog.Error("Auth failure", "op", authErr.Op, "error", authErr.Err)
		}
		c.JSON(http.StatusUnauthorized, gin.H{"error": authErr.Reason})
		return
	}
	slog.Error("Auth failure", "error", err)
	c.JSON(http.StatusInternalServerError, gin.H{"error": "Something went wrong"})
}

// HomeHandler serves the public landing view
func HomeHandler(resolve Resolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		s, _ := resolve(c)
		c.JSON(http.StatusOK, gin.H{
			"app":           "TopHive",
			"authenticated": s != nil,
			"login":         LoginPath,
			"signup":        "/signup",
		})
	}
}

// PageHandler serves the public login or signup view. Visitors that are
// already signed in go to the dashboard.
func PageHandler(resolve Resolver, page string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if s, _ := resolve(c); s != nil {
			c.Redirect(http.StatusFound, dashboardPath)
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"page":  page,
			"error": c.Query("error"),
			"oauth": "/auth/google",
		})
	}
}

// SignInHandler authenticates with email and password
func SignInHandler(m *Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		var body credentials
		if err := c.ShouldBind(&body); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
			return
		}

		s, err := m.SignIn(c.Request.Context(), body.Email, body.Password)
		if err != nil {
			respondAuthError(c, err)
			return
		}
		if err := m.Establish(c, s); err != nil {
			respondAuthError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"session": s, "redirect": dashboardPath})
	}
}

// SignUpHandler creates an account and signs it in
func SignUpHandler(m *Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		var body credentials
		if err := c.ShouldBind(&body); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
			return
		}

		s, err := m.SignUp(c.Request.Context(), body.Email, body.Password, body.DisplayName)
		if err != nil {
			respondAuthError(c, err)
			return
		}
		if err := m.Establish(c, s); err != nil {
			respondAuthError(c, err)
			return
		}
		c.JSON(http.StatusCreated, gin.H{"session": s, "redirect": dashboardPath})
	}
}

// SignOutHandler clears the session and redirects to login
func SignOutHandler(m *Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := m.SignOut(c); err != nil {
			slog.Error("Session clear error", "error", err)
		}
		c.Redirect(http.StatusFound, LoginPath)
	}
}

// HandleLogin initiates the Google OAuth flow
func HandleLogin(c *gin.Context) {
	// Gothic requires the "provider" query parameter
	q := c.Request.URL.Query()
	q.Add("provider", "google")
	c.Request.URL.RawQuery = q.Encode()

	gothic.BeginAuthHandler(c.Writer, c.Request)
}

// HandleCallback completes the OAuth flow, upserts the user and its
// identity, and starts a session
func HandleCallback(m *Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		// Gothic requires the "provider" query parameter
		q := c.Request.URL.Query()
		q.Add("provider", "google")
		c.Request.URL.RawQuery = q.Encode()

		gothUser, err := gothic.CompleteUserAuth(c.Writer, c.Request)
		if err != nil {
			slog.Error("OAuth error", "error", err)
			metrics.AuthEvents.WithLabelValues("failure").Inc()
			c.Redirect(http.StatusFound, LoginPath+"?error=auth_failed")
			return
		}

		user, err := m.upsertOAuthUser(c, gothUser)
		if err != nil {
			slog.Error("Failed to store OAuth user", "email", gothUser.Email, "error", err)
			metrics.AuthEvents.WithLabelValues("failure").Inc()
			c.Redirect(http.StatusFound, LoginPath+"?error=auth_failed")
			return
		}

		s := &Session{
			UserID:    user.ID,
			Email:     user.Email,
			Name:      user.Name,
			AvatarURL: gothUser.AvatarURL,
		}
		if err := m.Establish(c, s); err != nil {
			slog.Error("Session save error", "error", err)
			c.Redirect(http.StatusFound, LoginPath+"?error=session_failed")
			return
		}

		metrics.AuthEvents.WithLabelValues("oauth").Inc()
		slog.Info("User authenticated", "user_id", user.ID, "provider", gothUser.Provider)
		c.Redirect(http.StatusFound, dashboardPath)
	}
}

// upsertOAuthUser finds or creates the user of an OAuth login and records
// the provider identity with its tokens
func (m *Manager) upsertOAuthUser(c *gin.Context, gothUser goth.User) (*models.User, error) {
	now := m.now()
	var user models.User

	err := m.db.WithContext(c.Request.Context()).Transaction(func(tx *gorm.DB) error {
		err := tx.Where("email = ?", gothUser.Email).First(&user).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			user = models.User{Email: gothUser.Email, Name: gothUser.Name, LastLoginAt: &now}
			if err := tx.Create(&user).Error; err != nil {
				return err
			}
		case err != nil:
			return err
		default:
			if err := tx.Model(&user).Updates(map[string]interface{}{
				"name":          gothUser.Name,
				"last_login_at": now,
			}).Error; err != nil {
				return err
			}
		}

		var identity models.AuthIdentity
		err = tx.Where("provider_user_id = ?", gothUser.UserID).First(&identity).Error
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		identity.UserID = user.ID
		identity.Provider = gothUser.Provider
		identity.ProviderUserID = gothUser.UserID
		identity.AccessToken = gothUser.AccessToken
		identity.RefreshToken = gothUser.RefreshToken
		if !gothUser.ExpiresAt.IsZero() {
			expiry := gothUser.ExpiresAt
			identity.TokenExpiry = &expiry
		}
		return tx.Omit("User").Save(&identity).Error
	})
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// maxSessionWait caps how long a session request is held open
const maxSessionWait = time.Minute

// SessionHandler reports the caller's session state. With ?wait=<duration>
// a signed-in caller is answered once the session changes, for example
// when the user signs out in another browser, or when the wait runs out.
func SessionHandler(resolve Resolver, hubs *Hubs) gin.HandlerFunc {
	return func(c *gin.Context) {
		guard := NewGuard()
		s, err := resolve(c)
		if err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"state": StateLoading.String()})
			return
		}
		guard.Resolve(s)

		if wait := sessionWait(c.Query("wait")); wait > 0 && s != nil && hubs != nil {
			waitForChange(c.Request.Context(), guard, hubs.For(s.UserID), wait)
		}
		c.JSON(http.StatusOK, gin.H{
			"state":   guard.State().String(),
			"session": guard.Session(),
			"checked": time.Now().UTC(),
		})
	}
}

func sessionWait(raw string) time.Duration {
	if raw == "" {
		return 0
	}
	d, err := time.ParseDuration(raw)
	if err != nil || d <= 0 {
		return 0
	}
	return min(d, maxSessionWait)
}

// waitForChange blocks until the guard leaves its current state, wait
// passes or ctx ends
func waitForChange(ctx context.Context, guard *Guard, hub *Hub, wait time.Duration) {
	initial := guard.State()
	stop := guard.Follow(hub)
	defer stop()

	timer := time.NewTimer(wait)
	defer timer.Stop()
	for guard.State() == initial {
		select {
		case <-guard.Changed():
		case <-timer.C:
			return
		case <-ctx.Done():
			return
		}
	}
}
