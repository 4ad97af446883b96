package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/jimdaga/tophive/internal/content"
)

const maxAttempts = 3

// Client handles communication with the n8n webhook for briefing generation
type Client struct {
	baseURL    string
	secret     string
	httpClient *http.Client
	fixture    *Fixture
	stubMode   bool
	backoff    func() backoff.BackOff
}

// NewClient creates a new webhook client. In stub mode no HTTP calls are
// made and the fixture answers instead.
func NewClient(baseURL, secret string, stubMode bool, fixtureLatency time.Duration) *Client {
	return &Client{
		baseURL:    baseURL,
		secret:     secret,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		fixture:    NewFixture(fixtureLatency),
		stubMode:   stubMode,
		backoff: func() backoff.BackOff {
			b := backoff.NewExponentialBackOff()
			b.InitialInterval = 500 * time.Millisecond
			b.MaxElapsedTime = 20 * time.Second
			return b
		},
	}
}

// Generate implements Generator
func (c *Client) Generate(ctx context.Context, in GenerateInput) (*content.Briefing, error) {
	if c.stubMode {
		return c.fixture.Generate(ctx, in)
	}

	body, err := json.Marshal(in)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	var raw []byte
	attempt := 0
	operation := func() error {
		attempt++
		raw, err = c.post(ctx, body)
		if err != nil {
			slog.Warn("Webhook generation attempt failed",
				"attempt", attempt,
				"company", in.Company.Name,
				"error", err,
			)
		}
		return err
	}

	policy := backoff.WithContext(backoff.WithMaxRetries(c.backoff(), maxAttempts-1), ctx)
	if err := backoff.Retry(operation, policy); err != nil {
		return nil, err
	}

	if err := content.ValidateDocument(raw); err != nil {
		return nil, fmt.Errorf("webhook returned an unusable briefing: %w", err)
	}

	b := content.NormalizeDocument(raw)
	if b.MeetingType == "" {
		b.MeetingType = in.MeetingType
	}
	if b.Company.ID == "" {
		b.Company = in.Company
	}
	if b.CreatedAt.IsZero() {
		b.CreatedAt = time.Now().UTC()
	}
	return &b, nil
}

// post performs one request. Client errors are wrapped as permanent so the
// retry loop stops on them.
func (c *Client) post(ctx context.Context, body []byte) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/generate", bytes.NewReader(body))
	if err != nil {
		return nil, backoff.Permanent(fmt.Errorf("failed to create request: %w", err))
	}
	req.Header.Set("X-N8N-SECRET", c.secret)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return nil, backoff.Permanent(err)
		}
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	switch {
	case resp.StatusCode == http.StatusOK:
		return data, nil
	case resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests:
		return nil, fmt.Errorf("webhook returned status %d: %s", resp.StatusCode, string(data))
	default:
		return nil, backoff.Permanent(fmt.Errorf("webhook returned status %d: %s", resp.StatusCode, string(data)))
	}
}
