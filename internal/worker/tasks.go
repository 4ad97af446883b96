package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
)

// Task type constants
const (
	TaskGenerateBriefing  = "briefing:generate"
	TaskScanStaleRequests = "briefing:scan_stale"
)

const (
	generateTaskIDPrefix  = "generate:"
	generateTaskMaxRetry  = 3
	generateTaskTimeout   = 5 * time.Minute
	generateTaskRetention = 24 * time.Hour
)

// GeneratePayload is the payload of a briefing:generate task
type GeneratePayload struct {
	RequestID string `json:"request_id"`
}

// Client enqueues background tasks
type Client struct {
	client *asynq.Client
}

// NewClient connects an enqueueing client to redisURL
func NewClient(redisURL string) (*Client, error) {
	opt, err := asynq.ParseRedisURI(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}
	return &Client{client: asynq.NewClient(opt)}, nil
}

// Close closes the Asynq client connection gracefully
func (c *Client) Close() error {
	return c.client.Close()
}

// EnqueueGenerateBriefing schedules generation of the briefing for a
// request. Enqueueing the same request twice is a no-op while the first
// task is retained.
func (c *Client) EnqueueGenerateBriefing(ctx context.Context, requestID string) error {
	task, err := newGenerateTask(requestID)
	if err != nil {
		return err
	}

	_, err = c.client.EnqueueContext(ctx, task)
	if err != nil && !errors.Is(err, asynq.ErrTaskIDConflict) {
		return fmt.Errorf("failed to enqueue %s: %w", TaskGenerateBriefing, err)
	}
	return nil
}

func newGenerateTask(requestID string) (*asynq.Task, error) {
	if requestID == "" {
		return nil, fmt.Errorf("request id is required")
	}

	payload, err := json.Marshal(GeneratePayload{RequestID: requestID})
	if err != nil {
		return nil, err
	}

	return asynq.NewTask(
		TaskGenerateBriefing,
		payload,
		asynq.TaskID(generateTaskIDPrefix+requestID),
		asynq.MaxRetry(generateTaskMaxRetry),
		asynq.Timeout(generateTaskTimeout),
		asynq.Retention(generateTaskRetention),
	), nil
}
