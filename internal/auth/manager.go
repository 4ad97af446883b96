package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/jimdaga/tophive/internal/metrics"
	"github.com/jimdaga/tophive/internal/models"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// MinPasswordLength is the shortest accepted password
const MinPasswordLength = 8

// Session cookie keys
const (
	sessionUserID = "user_id"
	sessionEmail  = "user_email"
	sessionName   = "user_name"
	sessionAvatar = "user_avatar"
)

var validate = validator.New()

// AuthError is a sign-in, sign-up or sign-out failure that can be shown to
// the user as is
type AuthError struct {
	Op     string
	Reason string
	Err    error
}

func (e *AuthError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Reason, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Reason)
}

func (e *AuthError) Unwrap() error { return e.Err }

// Manager authenticates users against the users table and keeps their
// hubs informed of session changes
type Manager struct {
	db   *gorm.DB
	hubs *Hubs
	now  func() time.Time
}

// NewManager creates a Manager
func NewManager(db *gorm.DB, hubs *Hubs) *Manager {
	return &Manager{db: db, hubs: hubs, now: time.Now}
}

// SignUp creates an account with a password
func (m *Manager) SignUp(ctx context.Context, email, password, displayName string) (*Session, error) {
	const op = "sign up"

	email, err := normalizeEmail(op, email)
	if err != nil {
		return nil, m.fail(err)
	}
	if len(password) < MinPasswordLength {
		return nil, m.fail(&AuthError{Op: op, Reason: fmt.Sprintf("Password must be at least %d characters", MinPasswordLength)})
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, m.fail(&AuthError{Op: op, Reason: "Could not create account", Err: err})
	}

	name := strings.TrimSpace(displayName)
	if name == "" {
		name = strings.SplitN(email, "@", 2)[0]
	}

	db := m.db.WithContext(ctx)
	var existing models.User
	err = db.Where("email = ?", email).First(&existing).Error
	switch {
	case err == nil:
		return nil, m.fail(&AuthError{Op: op, Reason: "An account with this email already exists"})
	case !errors.Is(err, gorm.ErrRecordNotFound):
		return nil, m.fail(&AuthError{Op: op, Reason: "Could not create account", Err: err})
	}

	now := m.now()
	user := models.User{
		Email:        email,
		Name:         name,
		PasswordHash: string(hash),
		LastLoginAt:  &now,
	}
	if err := db.Create(&user).Error; err != nil {
		return nil, m.fail(&AuthError{Op: op, Reason: "Could not create account", Err: err})
	}

	slog.Info("User signed up", "user_id", user.ID, "email", user.Email)
	metrics.AuthEvents.WithLabelValues("sign_up").Inc()
	return &Session{UserID: user.ID, Email: user.Email, Name: user.Name}, nil
}

// SignIn checks an email and password
func (m *Manager) SignIn(ctx context.Context, email, password string) (*Session, error) {
	const op = "sign in"
	invalid := &AuthError{Op: op, Reason: "Invalid email or password"}

	email, err := normalizeEmail(op, email)
	if err != nil {
		return nil, m.fail(err)
	}

	db := m.db.WithContext(ctx)
	var user models.User
	err = db.Where("email = ?", email).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, m.fail(invalid)
	}
	if err != nil {
		return nil, m.fail(&AuthError{Op: op, Reason: "Sign in is temporarily unavailable", Err: err})
	}
	// OAuth-only accounts have no password
	if user.PasswordHash == "" {
		return nil, m.fail(invalid)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, m.fail(invalid)
	}

	if err := db.Model(&user).Update("last_login_at", m.now()).Error; err != nil {
		slog.Warn("Failed to record last login", "user_id", user.ID, "error", err)
	}

	slog.Info("User signed in", "user_id", user.ID)
	metrics.AuthEvents.WithLabelValues("sign_in").Inc()
	return &Session{UserID: user.ID, Email: user.Email, Name: user.Name}, nil
}

// Establish stores s in the request's cookie session and announces it
func (m *Manager) Establish(c *gin.Context, s *Session) error {
	session := sessions.Default(c)
	session.Set(sessionUserID, s.UserID)
	session.Set(sessionEmail, s.Email)
	session.Set(sessionName, s.Name)
	session.Set(sessionAvatar, s.AvatarURL)

	if err := session.Save(); err != nil {
		return m.fail(&AuthError{Op: "sign in", Reason: "Could not start session", Err: err})
	}

	m.hubs.For(s.UserID).Publish(s)
	return nil
}

// SignOut clears the cookie session. The user's other sessions are signed
// out as well.
func (m *Manager) SignOut(c *gin.Context) error {
	session := sessions.Default(c)
	userID, _ := session.Get(sessionUserID).(uint)
	session.Clear()
	session.Options(sessions.Options{Path: "/", MaxAge: -1})

	if err := session.Save(); err != nil {
		return m.fail(&AuthError{Op: "sign out", Reason: "Could not end session", Err: err})
	}

	if userID != 0 {
		m.hubs.For(userID).Publish(nil)
		slog.Info("User signed out", "user_id", userID)
	}
	metrics.AuthEvents.WithLabelValues("sign_out").Inc()
	return nil
}

func (m *Manager) fail(err error) error {
	metrics.AuthEvents.WithLabelValues("failure").Inc()
	return err
}

func normalizeEmail(op, email string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return "", &AuthError{Op: op, Reason: "Email is required"}
	}
	if err := validate.Var(email, "email"); err != nil {
		return "", &AuthError{Op: op, Reason: "Email address is not valid"}
	}
	return email, nil
}
