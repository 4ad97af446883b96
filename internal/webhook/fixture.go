package webhook

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jimdaga/tophive/internal/content"
)

// Fixture is the stand-in research pipeline: it returns canned briefing
// content shaped around the requested company after a simulated delay.
type Fixture struct {
	latency time.Duration
	now     func() time.Time
}

// NewFixture creates a Fixture that waits latency before answering
func NewFixture(latency time.Duration) *Fixture {
	return &Fixture{latency: latency, now: time.Now}
}

// Generate implements Generator
func (f *Fixture) Generate(ctx context.Context, in GenerateInput) (*content.Briefing, error) {
	if f.latency > 0 {
		timer := time.NewTimer(f.latency)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-timer.C:
		}
	}

	b := f.build(in)
	return &b, nil
}

func (f *Fixture) build(in GenerateInput) content.Briefing {
	now := f.now().UTC()
	name := in.Company.Name
	daysAgo := func(n int) string {
		return now.AddDate(0, 0, -n).Format("2006-01-02")
	}

	focus := []string{}
	if len(in.FocusAreas) > 0 {
		focus = append(focus, in.FocusAreas...)
	}

	var contactID string
	if in.Contact != nil {
		contactID = in.Contact.ID
	}

	return content.Briefing{
		ID:               shortID(),
		Title:            fmt.Sprintf("%s with %s", in.MeetingType, name),
		Company:          in.Company,
		MeetingType:      in.MeetingType,
		PrimaryContactID: contactID,
		FocusAreas:       focus,
		Summary: []string{
			fmt.Sprintf("%s is looking to improve their data infrastructure.", name),
			"Recent leadership changes indicate a shift towards cloud-first strategy.",
			"Q2 financial results exceeded expectations, suggesting available budget.",
			"Competitive pressure from industry leaders might accelerate decision timeline.",
		},
		CompanyOverview: content.CompanyOverview{
			Description: fmt.Sprintf("%s is a leading provider of %s solutions. They have grown to become a significant player in the industry.",
				name, orNA(in.Company.Industry)),
			RecentNews: []content.NewsItem{
				{
					Title:   fmt.Sprintf("%s Announces New Cloud Partnership", name),
					Date:    daysAgo(5),
					Source:  "TechCrunch",
					Summary: fmt.Sprintf("%s has announced a new strategic partnership to enhance their cloud capabilities and expand market reach.", name),
				},
				{
					Title:   fmt.Sprintf("%s Reports Strong Q2 Earnings", name),
					Date:    daysAgo(15),
					Source:  "Bloomberg",
					Summary: fmt.Sprintf("%s reported Q2 earnings above analyst expectations, with revenue growth of 25%% year-over-year.", name),
				},
				{
					Title:   fmt.Sprintf("%s Appoints New CTO", name),
					Date:    daysAgo(30),
					Source:  "Business Insider",
					Summary: fmt.Sprintf("%s has appointed a new Chief Technology Officer to lead their digital transformation initiatives.", name),
				},
			},
			FinancialHealth: content.FinancialHealth{
				Status:  "Strong",
				Details: fmt.Sprintf("%s has demonstrated solid financial performance with consistent revenue growth over the past four quarters.", name),
				Metrics: map[string]string{
					"Revenue Growth": "+25% YoY",
					"Profit Margin":  "18.5%",
					"Cash Reserves":  "$350M",
					"R&D Investment": "12% of revenue",
				},
			},
		},
		KeyContacts: []content.Contact{
			{
				ID:       "1",
				Name:     "Jane Smith",
				Title:    "Chief Technology Officer",
				Company:  name,
				LinkedIn: "https://linkedin.com/in/janesmith",
				RecentActivity: []string{
					"Spoke at Cloud Computing Summit about data modernization",
					"Published article on future of cloud data warehousing",
					"Mentioned scalability challenges in quarterly investor call",
				},
			},
			{
				ID:       "2",
				Name:     "John Rogers",
				Title:    "VP of Data Engineering",
				Company:  name,
				LinkedIn: "https://linkedin.com/in/johnrogers",
				RecentActivity: []string{
					"Hired three senior data engineers in the last quarter",
					"Commented on LinkedIn about challenges with current data processing pipeline",
					"Attended workshop on modern data stack architecture",
				},
			},
			{
				ID:       "3",
				Name:     "Sarah Chen",
				Title:    "Chief Financial Officer",
				Company:  name,
				LinkedIn: "https://linkedin.com/in/sarahchen",
				RecentActivity: []string{
					"Mentioned technology investment priorities in recent earnings call",
					"Emphasized cost optimization in company town hall",
					"Quoted in industry publication about strategic technology investments",
				},
			},
		},
		Insights: []content.Insight{
			{
				Title:       "Technology Stack",
				Description: "Current technology infrastructure and potential pain points",
				Items: []string{
					"Currently using legacy data warehouse solution with scalability issues",
					"Struggles with data integration across multiple business units",
					"Recently started cloud migration initiative for core applications",
					"Engineering team investigating real-time analytics solutions",
				},
			},
			{
				Title:       "Business Initiatives",
				Description: "Strategic priorities and ongoing projects",
				Items: []string{
					"Digital transformation program launched in Q1 with 3-year roadmap",
					"Expansion into European market planned for next fiscal year",
					"New product launch scheduled for Q4 with data-intensive requirements",
					"Cost optimization initiative targeting 15% reduction in operational expenses",
				},
			},
			{
				Title:       "Decision Process",
				Description: "Understanding of their buying journey and timeline",
				Items: []string{
					"Technology purchases above $250K require executive committee approval",
					"Currently in research phase for data infrastructure modernization",
					"Typical purchase cycle runs 3-6 months from initial evaluation",
					"IT and Finance departments have joint decision-making authority",
				},
			},
		},
		SalesHypotheses: []string{
			fmt.Sprintf("%s is likely facing data scalability challenges as they grow, making them receptive to our cloud-based solution.", name),
			"Their recent cloud partnership announcement indicates readiness to invest in modern data infrastructure.",
			"The new CTO may be looking to make strategic technology decisions to establish their vision.",
			"Strong financial performance suggests available budget for technology investments with demonstrable ROI.",
		},
		CompetitorAnalysis: &content.CompetitorAnalysis{
			Competitors: []content.Competitor{
				{Name: "Competitor A", Strength: "Established relationship with target account", Weakness: "Legacy technology with limited cloud capabilities"},
				{Name: "Competitor B", Strength: "Aggressive pricing and packaging", Weakness: "Limited support for complex data integration"},
				{Name: "Competitor C", Strength: "Strong presence in their industry vertical", Weakness: "Recent security and reliability issues"},
			},
			Comparison: "Our solution offers superior cloud-native architecture with better scalability and lower TCO than competitor alternatives.",
		},
		TalkingPoints: []string{
			"How are they currently handling data integration across business units?",
			"What are their biggest pain points with their current data infrastructure?",
			"What business outcomes are they looking to achieve with improved data capabilities?",
			"Who are the key stakeholders involved in technology purchase decisions?",
			"What is their timeline for implementing new data solutions?",
		},
		Status:    content.StatusCompleted,
		CreatedAt: now,
	}
}

func shortID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:7]
}

func orNA(s string) string {
	if s == "" {
		return "N/A"
	}
	return s
}
