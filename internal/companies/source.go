// Package companies implements the company directory lookup used when
// picking the target account of a briefing.
package companies

import (
	"context"
	"fmt"
	"strings"

	"github.com/jimdaga/tophive/internal/content"
)

// DefaultLogoHost serves company logos by domain
const DefaultLogoHost = "logo.clearbit.com"

// Source answers a free-text company query with ordered candidates
type Source interface {
	Search(ctx context.Context, query string) ([]content.Company, error)
}

// LogoURL returns the logo location for a company domain
func LogoURL(host, domain string) string {
	if host == "" {
		host = DefaultLogoHost
	}
	return fmt.Sprintf("https://%s/%s", host, domain)
}

// FixtureSource searches a fixed in-memory directory
type FixtureSource struct {
	companies []content.Company
}

// NewFixtureSource builds the demo directory with logos served from logoHost
func NewFixtureSource(logoHost string) *FixtureSource {
	directory := []content.Company{
		{ID: "1", Name: "Snowflake", Industry: "Cloud Data Platform", Location: "Bozeman, MT", Domain: "snowflake.com"},
		{ID: "2", Name: "Salesforce", Industry: "CRM Software", Location: "San Francisco, CA", Domain: "salesforce.com"},
		{ID: "3", Name: "Microsoft", Industry: "Technology", Location: "Redmond, WA", Domain: "microsoft.com"},
		{ID: "4", Name: "Adobe", Industry: "Software", Location: "San Jose, CA", Domain: "adobe.com"},
		{ID: "5", Name: "Slack", Industry: "Communication", Location: "San Francisco, CA", Domain: "slack.com"},
		{ID: "6", Name: "Google", Industry: "Technology", Location: "Mountain View, CA", Domain: "google.com"},
		{ID: "7", Name: "Amazon", Industry: "E-commerce", Location: "Seattle, WA", Domain: "amazon.com"},
		{ID: "8", Name: "Apple", Industry: "Technology", Location: "Cupertino, CA", Domain: "apple.com"},
		{ID: "9", Name: "Facebook", Industry: "Social Media", Location: "Menlo Park, CA", Domain: "facebook.com"},
		{ID: "10", Name: "Tesla", Industry: "Automotive", Location: "Palo Alto, CA", Domain: "tesla.com"},
	}
	for i := range directory {
		directory[i].Logo = LogoURL(logoHost, directory[i].Domain)
		directory[i].Website = "https://" + directory[i].Domain
	}
	return NewFixtureSourceWith(directory)
}

// NewFixtureSourceWith searches the given companies
func NewFixtureSourceWith(directory []content.Company) *FixtureSource {
	return &FixtureSource{companies: directory}
}

// Search returns companies whose name contains query, ignoring case
func (s *FixtureSource) Search(ctx context.Context, query string) ([]content.Company, error) {
	needle := strings.ToLower(strings.TrimSpace(query))
	matches := []content.Company{}
	if needle == "" {
		return matches, nil
	}
	for _, c := range s.companies {
		if strings.Contains(strings.ToLower(c.Name), needle) {
			matches = append(matches, c)
		}
	}
	return matches, nil
}

// ByID returns the directory entry with the given id
func (s *FixtureSource) ByID(id string) (content.Company, bool) {
	for _, c := range s.companies {
		if c.ID == id {
			return c, true
		}
	}
	return content.Company{}, false
}
