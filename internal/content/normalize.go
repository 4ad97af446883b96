package content

import (
	"bytes"
	"encoding/json"
	"strconv"
)

// Normalize reshapes a stored record into a fully defaulted Briefing.
// It never fails: anything that cannot be decoded falls back to the field's
// default, and nested objects are defaulted key by key.
func Normalize(rec Record) Briefing {
	b := Briefing{
		ID:                 rec.ID,
		RequestID:          rec.RequestID,
		Title:              rec.Title,
		Company:            normalizeCompany(decodeLoose(rec.CompanyProfile)),
		MeetingType:        MeetingType(rec.MeetingType),
		PrimaryContactID:   rec.ContactID,
		FocusAreas:         stringList(decodeLoose(rec.FocusAreas)),
		Summary:            stringList(decodeLoose(rec.Summary)),
		CompanyOverview:    normalizeOverview(decodeLoose(rec.CompanyOverview)),
		KeyContacts:        normalizeContacts(decodeLoose(rec.KeyContacts)),
		Insights:           normalizeInsights(decodeLoose(rec.Insights)),
		SalesHypotheses:    stringList(decodeLoose(rec.SalesHypotheses)),
		CompetitorAnalysis: normalizeCompetitorAnalysis(decodeLoose(rec.CompetitorAnalysis)),
		TalkingPoints:      stringList(decodeLoose(rec.TalkingPoints)),
		Status:             Status(rec.Status),
		CreatedAt:          rec.CreatedAt,
	}

	// Request columns are authoritative over the stored profile snapshot
	if rec.CompanyID != "" {
		b.Company.ID = rec.CompanyID
	}
	if rec.CompanyName != "" {
		b.Company.Name = rec.CompanyName
	}
	if rec.CompanyLogo != "" {
		b.Company.Logo = rec.CompanyLogo
	}
	if rec.Notes != nil {
		b.Notes = *rec.Notes
	}
	if b.Status == "" {
		b.Status = StatusCompleted
	}

	return b
}

// NormalizeDocument reshapes a briefing document received from a remote
// generator (camelCase keys, same layout as the Briefing JSON encoding).
// A document that is not an object yields an all-default briefing.
func NormalizeDocument(raw []byte) Briefing {
	obj, _ := asObject(decodeLoose(raw))

	rec := Record{
		ID:          asString(obj["id"]),
		Title:       asString(obj["title"]),
		MeetingType: asString(obj["meetingType"]),
		ContactID:   asString(obj["primaryContactId"]),
		Status:      asString(obj["status"]),
	}
	rec.CompanyProfile = rawField(obj, "company")
	rec.FocusAreas = rawField(obj, "focusAreas")
	rec.Summary = rawField(obj, "summary")
	rec.CompanyOverview = rawField(obj, "companyOverview")
	rec.KeyContacts = rawField(obj, "keyContacts")
	rec.Insights = rawField(obj, "insights")
	rec.SalesHypotheses = rawField(obj, "salesHypotheses")
	rec.CompetitorAnalysis = rawField(obj, "competitorAnalysis")
	rec.TalkingPoints = rawField(obj, "talkingPoints")
	if notes, ok := obj["notes"].(string); ok {
		rec.Notes = &notes
	}

	return Normalize(rec)
}

func rawField(obj map[string]any, key string) json.RawMessage {
	v, ok := obj[key]
	if !ok {
		return nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	return data
}

// decodeLoose decodes raw JSON into generic values. A JSON string whose
// content is itself JSON is decoded once more. Undecodable input is nil.
func decodeLoose(raw []byte) any {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return nil
	}

	v, ok := decode(raw)
	if !ok {
		return nil
	}
	if s, isString := v.(string); isString {
		if inner, ok := decode([]byte(s)); ok {
			return inner
		}
	}
	return v
}

func decode(raw []byte) (any, bool) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()

	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, false
	}
	// Trailing garbage means the value was not a single JSON document
	if dec.More() {
		return nil, false
	}
	return v, true
}

// truthy mirrors the storage layer's notion of an "empty" JSON value
func truthy(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case bool:
		return t
	case string:
		return t != ""
	case json.Number:
		f, err := t.Float64()
		return err == nil && f != 0
	default:
		return true
	}
}

func asObject(v any) (map[string]any, bool) {
	m, ok := v.(map[string]any)
	return m, ok
}

// asString returns v as text. Numbers and booleans are formatted; anything
// else, including null, becomes the empty string.
func asString(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case json.Number:
		return t.String()
	case bool:
		return strconv.FormatBool(t)
	default:
		return ""
	}
}

// stringList keeps the string elements of an array. Non-arrays yield an
// empty, non-nil list.
func stringList(v any) []string {
	items, ok := v.([]any)
	if !ok {
		return []string{}
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

func normalizeCompany(v any) Company {
	obj, _ := asObject(v)
	return Company{
		ID:          asString(obj["id"]),
		Name:        asString(obj["name"]),
		Logo:        asString(obj["logo"]),
		Description: asString(obj["description"]),
		Industry:    asString(obj["industry"]),
		Location:    asString(obj["location"]),
		Website:     asString(obj["website"]),
		Domain:      asString(obj["domain"]),
	}
}

func normalizeOverview(v any) CompanyOverview {
	obj, _ := asObject(v)

	overview := CompanyOverview{
		Description: asString(obj["description"]),
		RecentNews:  []NewsItem{},
	}

	if items, ok := obj["recentNews"].([]any); ok {
		for _, item := range items {
			news, ok := asObject(item)
			if !ok {
				continue
			}
			overview.RecentNews = append(overview.RecentNews, NewsItem{
				Title:   asString(news["title"]),
				Date:    asString(news["date"]),
				Source:  asString(news["source"]),
				Summary: asString(news["summary"]),
				URL:     asString(news["url"]),
			})
		}
	}

	health, _ := asObject(obj["financialHealth"])
	overview.FinancialHealth = FinancialHealth{
		Status:  asString(health["status"]),
		Details: asString(health["details"]),
	}
	if metrics, ok := asObject(health["metrics"]); ok && len(metrics) > 0 {
		overview.FinancialHealth.Metrics = make(map[string]string, len(metrics))
		for k, mv := range metrics {
			switch mv.(type) {
			case string, json.Number, bool:
				overview.FinancialHealth.Metrics[k] = asString(mv)
			}
		}
	}

	return overview
}

func normalizeContacts(v any) []Contact {
	items, _ := v.([]any)
	contacts := make([]Contact, 0, len(items))
	for _, item := range items {
		obj, ok := asObject(item)
		if !ok {
			continue
		}
		c := Contact{
			ID:       asString(obj["id"]),
			Name:     asString(obj["name"]),
			Title:    asString(obj["title"]),
			Company:  asString(obj["company"]),
			Photo:    asString(obj["photo"]),
			Email:    asString(obj["email"]),
			LinkedIn: asString(obj["linkedin"]),
		}
		// recentActivity is optional: absent or null stays nil
		if _, isList := obj["recentActivity"].([]any); isList {
			c.RecentActivity = stringList(obj["recentActivity"])
		}
		contacts = append(contacts, c)
	}
	return contacts
}

func normalizeInsights(v any) []Insight {
	items, _ := v.([]any)
	insights := make([]Insight, 0, len(items))
	for _, item := range items {
		obj, ok := asObject(item)
		if !ok {
			continue
		}
		insights = append(insights, Insight{
			Title:       asString(obj["title"]),
			Description: asString(obj["description"]),
			Items:       stringList(obj["items"]),
		})
	}
	return insights
}

func normalizeCompetitorAnalysis(v any) *CompetitorAnalysis {
	if !truthy(v) {
		return nil
	}

	obj, _ := asObject(v)
	analysis := &CompetitorAnalysis{
		Competitors: []Competitor{},
		Comparison:  asString(obj["comparison"]),
	}
	if items, ok := obj["competitors"].([]any); ok {
		for _, item := range items {
			c, ok := asObject(item)
			if !ok {
				continue
			}
			analysis.Competitors = append(analysis.Competitors, Competitor{
				Name:     asString(c["name"]),
				Strength: asString(c["strength"]),
				Weakness: asString(c["weakness"]),
			})
		}
	}
	return analysis
}
