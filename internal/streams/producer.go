package streams

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jimdaga/tophive/internal/metrics"
	"github.com/redis/go-redis/v9"
)

// Publisher publishes briefing lifecycle events to Redis Streams. It does
// not own the client.
type Publisher struct {
	rdb *redis.Client
}

// NewPublisherWithClient creates a Publisher on an existing client
func NewPublisherWithClient(rdb *redis.Client) *Publisher {
	return &Publisher{rdb: rdb}
}

// PublishEvent appends ev to the events stream and returns the message id
func (p *Publisher) PublishEvent(ctx context.Context, ev BriefingEvent) (string, error) {
	if ev.OccurredAt.IsZero() {
		ev.OccurredAt = time.Now().UTC()
	}

	payload, err := json.Marshal(ev)
	if err != nil {
		return "", fmt.Errorf("failed to marshal event: %w", err)
	}

	result := p.rdb.XAdd(ctx, &redis.XAddArgs{
		Stream: StreamBriefingEvents,
		MaxLen: 10000,
		Approx: true,
		ID:     "*", // auto-generate ID
		Values: map[string]interface{}{
			"payload":        string(payload),
			"request_id":     ev.RequestID,
			"status":         ev.Status,
			"schema_version": SchemaVersionV1,
		},
	})

	if result.Err() != nil {
		metrics.StreamMessages.WithLabelValues("published", "error").Inc()
		return "", fmt.Errorf("failed to publish to stream: %w", result.Err())
	}

	metrics.StreamMessages.WithLabelValues("published", "ok").Inc()
	return result.Val(), nil
}
