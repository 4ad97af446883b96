package models

import (
	"time"

	"github.com/jimdaga/tophive/internal/crypto"
	"gorm.io/gorm"
)

var sealer *crypto.Sealer

// InitEncryption installs the sealer used for OAuth tokens.
// Without it tokens are stored as given (tests, local development).
func InitEncryption(encryptionKey string) error {
	s, err := crypto.NewSealer(encryptionKey)
	if err != nil {
		return err
	}
	sealer = s
	return nil
}

// AuthIdentity links a user to an external OAuth account
type AuthIdentity struct {
	gorm.Model
	UserID         uint   `gorm:"not null;index"`
	User           User   `gorm:"constraint:OnDelete:CASCADE;"`
	Provider       string `gorm:"not null"`
	ProviderUserID string `gorm:"not null;uniqueIndex:idx_auth_identities_provider_user,where:deleted_at IS NULL"`
	AccessToken    string `gorm:"type:text"` // sealed
	RefreshToken   string `gorm:"type:text"` // sealed
	TokenExpiry    *time.Time
}

// BeforeSave seals tokens before they reach the database
func (a *AuthIdentity) BeforeSave(tx *gorm.DB) error {
	if sealer == nil {
		return nil
	}

	var err error
	if a.AccessToken, err = sealer.Seal(a.AccessToken); err != nil {
		return err
	}
	a.RefreshToken, err = sealer.Seal(a.RefreshToken)
	return err
}

// AfterFind opens sealed tokens after loading
func (a *AuthIdentity) AfterFind(tx *gorm.DB) error {
	if sealer == nil {
		return nil
	}

	var err error
	if a.AccessToken, err = sealer.Open(a.AccessToken); err != nil {
		return err
	}
	a.RefreshToken, err = sealer.Open(a.RefreshToken)
	return err
}
