// Package webhook generates briefing content, either from the built-in
// fixture or by calling an n8n workflow over HTTP.
package webhook

import (
	"context"

	"github.com/jimdaga/tophive/internal/content"
)

// GenerateInput is everything a generator needs to research one meeting
type GenerateInput struct {
	Company     content.Company     `json:"company"`
	MeetingType content.MeetingType `json:"meetingType"`
	Contact     *content.Contact    `json:"contact,omitempty"`
	FocusAreas  []string            `json:"focusAreas,omitempty"`
}

// Generator produces a fully populated briefing for a meeting. Implementations
// must be safe for concurrent use.
type Generator interface {
	Generate(ctx context.Context, in GenerateInput) (*content.Briefing, error)
}
