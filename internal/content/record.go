package content

import (
	"encoding/json"
	"time"
)

// Record is a persisted briefing joined with its request, as read from the
// store. JSON columns are kept raw: they may be null, truncated, double
// encoded, or shaped differently than the display model expects.
type Record struct {
	ID        string
	RequestID string
	Title     string

	// Request side of the join
	CompanyID      string
	CompanyName    string
	CompanyLogo    string
	CompanyProfile json.RawMessage
	MeetingType    string
	ContactID      string
	FocusAreas     json.RawMessage

	Summary            json.RawMessage
	CompanyOverview    json.RawMessage
	KeyContacts        json.RawMessage
	Insights           json.RawMessage
	SalesHypotheses    json.RawMessage
	CompetitorAnalysis json.RawMessage
	TalkingPoints      json.RawMessage

	Notes     *string
	Status    string
	CreatedAt time.Time
}

// FromBriefing encodes b into its stored shape
func FromBriefing(b Briefing) Record {
	rec := Record{
		ID:          b.ID,
		RequestID:   b.RequestID,
		Title:       b.Title,
		CompanyID:   b.Company.ID,
		CompanyName: b.Company.Name,
		CompanyLogo: b.Company.Logo,
		MeetingType: string(b.MeetingType),
		ContactID:   b.PrimaryContactID,
		Status:      string(b.Status),
		CreatedAt:   b.CreatedAt,
	}

	rec.CompanyProfile = mustJSON(b.Company)
	rec.FocusAreas = mustJSON(b.FocusAreas)
	rec.Summary = mustJSON(b.Summary)
	rec.CompanyOverview = mustJSON(b.CompanyOverview)
	rec.KeyContacts = mustJSON(b.KeyContacts)
	rec.Insights = mustJSON(b.Insights)
	rec.SalesHypotheses = mustJSON(b.SalesHypotheses)
	rec.TalkingPoints = mustJSON(b.TalkingPoints)
	if b.CompetitorAnalysis != nil {
		rec.CompetitorAnalysis = mustJSON(b.CompetitorAnalysis)
	}
	if b.Notes != "" {
		notes := b.Notes
		rec.Notes = &notes
	}

	return rec
}

// mustJSON marshals values that only contain strings, slices and maps,
// which cannot fail to encode.
func mustJSON(v any) json.RawMessage {
	data, err := json.Marshal(v)
	if err != nil {
		panic("content: unencodable value: " + err.Error())
	}
	return data
}
