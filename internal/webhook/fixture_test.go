package webhook

import (
	"context"
	"testing"
	"time"

	"github.com/jimdaga/tophive/internal/content"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFixtureGenerate(t *testing.T) {
	f := NewFixture(0)
	f.now = func() time.Time { return time.Date(2024, 6, 30, 9, 0, 0, 0, time.UTC) }

	contact := &content.Contact{ID: "2", Name: "John Rogers", Title: "VP of Data Engineering"}
	b, err := f.Generate(context.Background(), GenerateInput{
		Company:     content.Company{ID: "1", Name: "Snowflake", Industry: "Cloud Data Platform"},
		MeetingType: content.MeetingIntroCall,
		Contact:     contact,
		FocusAreas:  []string{"Technology Stack"},
	})
	require.NoError(t, err)

	assert.Equal(t, "Intro Call with Snowflake", b.Title)
	assert.Len(t, b.ID, 7)
	assert.Equal(t, "2", b.PrimaryContactID)
	assert.Equal(t, []string{"Technology Stack"}, b.FocusAreas)
	assert.Len(t, b.Summary, 4)
	assert.Len(t, b.KeyContacts, 3)
	assert.Len(t, b.Insights, 3)
	assert.Len(t, b.TalkingPoints, 5)
	require.Len(t, b.CompanyOverview.RecentNews, 3)
	assert.Equal(t, "2024-06-25", b.CompanyOverview.RecentNews[0].Date)
	assert.Equal(t, "2024-05-31", b.CompanyOverview.RecentNews[2].Date)
	assert.Equal(t, content.StatusCompleted, b.Status)
	assert.Contains(t, b.CompanyOverview.Description, "Cloud Data Platform")
}

func TestFixtureOutputSurvivesNormalization(t *testing.T) {
	b, err := NewFixture(0).Generate(context.Background(), GenerateInput{
		Company:     content.Company{ID: "1", Name: "Snowflake", Logo: "https://logo.clearbit.com/snowflake.com"},
		MeetingType: content.MeetingCompetitiveDeal,
	})
	require.NoError(t, err)

	assert.Equal(t, *b, content.Normalize(content.FromBriefing(*b)))
}

func TestFixtureEmptyFocusAreasIsEmptyList(t *testing.T) {
	b, err := NewFixture(0).Generate(context.Background(), GenerateInput{Company: content.Company{Name: "Adobe"}})
	require.NoError(t, err)
	assert.NotNil(t, b.FocusAreas)
	assert.Empty(t, b.FocusAreas)
}
