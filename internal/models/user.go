package models

import (
	"time"

	"gorm.io/gorm"
)

// User represents an account that owns briefing requests
type User struct {
	gorm.Model
	Email        string `gorm:"uniqueIndex:idx_users_email_not_deleted,where:deleted_at IS NULL;not null"`
	Name         string `gorm:"not null;default:''"`
	PasswordHash string `gorm:"column:password_hash;type:text"` // empty for OAuth-only accounts
	LastLoginAt  *time.Time

	// Associations
	AuthIdentities   []AuthIdentity    `gorm:"constraint:OnDelete:CASCADE;"`
	BriefingRequests []BriefingRequest `gorm:"constraint:OnDelete:CASCADE;"`
}
