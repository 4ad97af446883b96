package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Lifecycle status constants shared by requests and briefings
const (
	StatusGenerating = "generating"
	StatusCompleted  = "completed"
	StatusFailed     = "failed"
)

// BriefingRequest records a user's ask to generate a briefing. The company is
// a snapshot taken at submission and never changes afterwards.
type BriefingRequest struct {
	ID             string                      `gorm:"type:uuid;primaryKey"`
	UserID         uint                        `gorm:"not null;index"`
	User           User                        `gorm:"constraint:OnDelete:CASCADE;"`
	CompanyID      string                      `gorm:"not null"`
	CompanyName    string                      `gorm:"not null"`
	CompanyLogo    *string
	CompanyProfile datatypes.JSON              `gorm:"type:jsonb"` // full company as submitted
	MeetingType    string                      `gorm:"not null"`
	ContactID      *string                     `gorm:"column:contact_id"`
	FocusAreas     datatypes.JSONSlice[string] `gorm:"type:jsonb"`
	Status         string                      `gorm:"not null;default:'generating';index"`
	CreatedAt      time.Time
	UpdatedAt      time.Time

	Briefing *Briefing `gorm:"foreignKey:RequestID"`
}

// BeforeCreate assigns a UUID primary key when none was provided
func (r *BriefingRequest) BeforeCreate(tx *gorm.DB) error {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	return nil
}

// Briefing is the persisted briefing content. The nested columns are stored as
// loosely typed JSON and are only trusted after normalization.
type Briefing struct {
	ID                 string          `gorm:"type:uuid;primaryKey"`
	RequestID          string          `gorm:"type:uuid;not null;uniqueIndex"`
	Request            BriefingRequest `gorm:"foreignKey:RequestID;constraint:OnDelete:CASCADE;"`
	Title              string          `gorm:"not null"`
	Summary            datatypes.JSON  `gorm:"type:jsonb"`
	CompanyOverview    datatypes.JSON  `gorm:"type:jsonb;not null"`
	KeyContacts        datatypes.JSON  `gorm:"type:jsonb"`
	Insights           datatypes.JSON  `gorm:"type:jsonb"`
	SalesHypotheses    datatypes.JSON  `gorm:"type:jsonb"`
	CompetitorAnalysis datatypes.JSON  `gorm:"type:jsonb"`
	TalkingPoints      datatypes.JSON  `gorm:"type:jsonb"`
	Notes              *string         `gorm:"type:text"`
	Status             string          `gorm:"not null;default:'completed';index"`
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// BeforeCreate assigns a UUID primary key when none was provided
func (b *Briefing) BeforeCreate(tx *gorm.DB) error {
	if b.ID == "" {
		b.ID = uuid.NewString()
	}
	return nil
}
