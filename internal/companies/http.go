package companies

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/jimdaga/tophive/internal/content"
	"golang.org/x/time/rate"
)

// HTTPSource queries a Clearbit-style autocomplete endpoint
type HTTPSource struct {
	baseURL    string
	logoHost   string
	httpClient *http.Client
	limiter    *rate.Limiter
}

type suggestion struct {
	Name   string `json:"name"`
	Domain string `json:"domain"`
	Logo   string `json:"logo"`
}

// NewHTTPSource creates a source that issues at most rps requests per second
func NewHTTPSource(baseURL, logoHost string, rps float64) *HTTPSource {
	if rps <= 0 {
		rps = 5
	}
	return &HTTPSource{
		baseURL:    strings.TrimRight(baseURL, "/"),
		logoHost:   logoHost,
		httpClient: &http.Client{Timeout: 5 * time.Second},
		limiter:    rate.NewLimiter(rate.Limit(rps), int(rps)+1),
	}
}

// Search implements Source
func (s *HTTPSource) Search(ctx context.Context, query string) ([]content.Company, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return []content.Company{}, nil
	}

	if err := s.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("lookup rate limit: %w", err)
	}

	endpoint := fmt.Sprintf("%s/v1/companies/suggest?query=%s", s.baseURL, url.QueryEscape(query))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("lookup returned status %d: %s", resp.StatusCode, string(body))
	}

	var suggestions []suggestion
	if err := json.NewDecoder(resp.Body).Decode(&suggestions); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	companies := make([]content.Company, 0, len(suggestions))
	for _, sg := range suggestions {
		if sg.Name == "" || sg.Domain == "" {
			continue
		}
		logo := sg.Logo
		if logo == "" {
			logo = LogoURL(s.logoHost, sg.Domain)
		}
		companies = append(companies, content.Company{
			// The directory has no stable ids; the domain is unique
			ID:      sg.Domain,
			Name:    sg.Name,
			Logo:    logo,
			Domain:  sg.Domain,
			Website: "https://" + sg.Domain,
		})
	}
	return companies, nil
}
