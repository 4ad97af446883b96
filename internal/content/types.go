// Package content defines the briefing display model and the normalizer that
// turns loosely shaped persisted or remote briefing data into it.
package content

import "time"

// MeetingType is the kind of sales meeting a briefing prepares for
type MeetingType string

const (
	MeetingIntroCall       MeetingType = "Intro Call"
	MeetingRenewal         MeetingType = "Renewal"
	MeetingCompetitiveDeal MeetingType = "Competitive Deal"
)

// MeetingTypes lists the accepted meeting types in display order
var MeetingTypes = []MeetingType{MeetingIntroCall, MeetingRenewal, MeetingCompetitiveDeal}

// Valid reports whether m is one of the known meeting types
func (m MeetingType) Valid() bool {
	for _, known := range MeetingTypes {
		if m == known {
			return true
		}
	}
	return false
}

// Status is the lifecycle state of a briefing or request
type Status string

const (
	StatusGenerating Status = "generating"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// Company is the target account of a briefing
type Company struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Logo        string `json:"logo,omitempty"`
	Description string `json:"description,omitempty"`
	Industry    string `json:"industry,omitempty"`
	Location    string `json:"location,omitempty"`
	Website     string `json:"website,omitempty"`
	Domain      string `json:"domain,omitempty"`
}

// Contact is a person at the target company
type Contact struct {
	ID             string   `json:"id"`
	Name           string   `json:"name"`
	Title          string   `json:"title"`
	Company        string   `json:"company"`
	Photo          string   `json:"photo,omitempty"`
	Email          string   `json:"email,omitempty"`
	LinkedIn       string   `json:"linkedin,omitempty"`
	RecentActivity []string `json:"recentActivity,omitempty"`
}

type NewsItem struct {
	Title   string `json:"title"`
	Date    string `json:"date"`
	Source  string `json:"source"`
	Summary string `json:"summary"`
	URL     string `json:"url,omitempty"`
}

type FinancialHealth struct {
	Status  string            `json:"status"`
	Details string            `json:"details"`
	Metrics map[string]string `json:"metrics,omitempty"`
}

type CompanyOverview struct {
	Description     string          `json:"description"`
	RecentNews      []NewsItem      `json:"recentNews"`
	FinancialHealth FinancialHealth `json:"financialHealth"`
}

type Insight struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Items       []string `json:"items"`
}

type Competitor struct {
	Name     string `json:"name"`
	Strength string `json:"strength"`
	Weakness string `json:"weakness"`
}

type CompetitorAnalysis struct {
	Competitors []Competitor `json:"competitors"`
	Comparison  string       `json:"comparison"`
}

// Briefing is the fully defaulted display model. Every list is non-nil once
// it has been through Normalize.
type Briefing struct {
	ID                 string              `json:"id"`
	Title              string              `json:"title"`
	RequestID          string              `json:"requestId,omitempty"`
	Company            Company             `json:"company"`
	MeetingType        MeetingType         `json:"meetingType"`
	PrimaryContactID   string              `json:"primaryContactId,omitempty"`
	FocusAreas         []string            `json:"focusAreas"`
	Summary            []string            `json:"summary"`
	CompanyOverview    CompanyOverview     `json:"companyOverview"`
	KeyContacts        []Contact           `json:"keyContacts"`
	Insights           []Insight           `json:"insights"`
	SalesHypotheses    []string            `json:"salesHypotheses"`
	CompetitorAnalysis *CompetitorAnalysis `json:"competitorAnalysis,omitempty"`
	TalkingPoints      []string            `json:"talkingPoints"`
	Notes              string              `json:"notes"`
	Status             Status              `json:"status"`
	CreatedAt          time.Time           `json:"createdAt"`
}
