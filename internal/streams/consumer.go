package streams

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"strings"
	"time"

	"github.com/jimdaga/tophive/internal/metrics"
	"github.com/redis/go-redis/v9"
)

// ResultConsumer consumes externally generated briefings from Redis Streams
type ResultConsumer struct {
	rdb          *redis.Client
	groupName    string
	consumerName string
	block        time.Duration
}

// NewResultConsumer creates a new ResultConsumer instance
func NewResultConsumer(redisURL, consumerName string) (*ResultConsumer, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis URL: %w", err)
	}

	// Read timeout must exceed the XReadGroup Block duration (5s)
	// to avoid spurious i/o timeout errors on idle streams.
	opts.ReadTimeout = 10 * time.Second

	return NewResultConsumerWithClient(context.Background(), redis.NewClient(opts), consumerName)
}

// NewResultConsumerWithClient creates the consumer group on an existing client
func NewResultConsumerWithClient(ctx context.Context, rdb *redis.Client, consumerName string) (*ResultConsumer, error) {
	// Start ID "0" means read from beginning if group is new
	err := rdb.XGroupCreateMkStream(ctx, StreamBriefingResults, GroupGoWorkers, "0").Err()
	if err != nil && !strings.Contains(err.Error(), "BUSYGROUP") {
		return nil, fmt.Errorf("failed to create consumer group: %w", err)
	}

	return &ResultConsumer{
		rdb:          rdb,
		groupName:    GroupGoWorkers,
		consumerName: consumerName,
		block:        5 * time.Second,
	}, nil
}

// ConsumeResults runs a blocking loop consuming results from the stream
func (c *ResultConsumer) ConsumeResults(ctx context.Context, handler func(context.Context, BriefingResult) error) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		streams, err := c.rdb.XReadGroup(ctx, &redis.XReadGroupArgs{
			Group:    c.groupName,
			Consumer: c.consumerName,
			Streams:  []string{StreamBriefingResults, ">"},
			Count:    10,
			Block:    c.block,
		}).Result()

		if errors.Is(err, redis.Nil) {
			continue
		}

		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			// Blocking reads return a timeout when no messages arrive
			// within the Block duration; this is normal.
			var netErr net.Error
			if errors.As(err, &netErr) && netErr.Timeout() {
				continue
			}
			slog.Error("Failed to read from stream", "error", err)
			time.Sleep(time.Second)
			continue
		}

		for _, stream := range streams {
			for _, message := range stream.Messages {
				c.process(ctx, message, handler)
			}
		}
	}
}

func (c *ResultConsumer) process(ctx context.Context, message redis.XMessage, handler func(context.Context, BriefingResult) error) {
	payloadStr, ok := message.Values["payload"].(string)
	if !ok {
		slog.Error("Invalid message payload", "message_id", message.ID)
		c.ack(ctx, message.ID)
		metrics.StreamMessages.WithLabelValues("consumed", "error").Inc()
		return
	}

	var result BriefingResult
	if err := json.Unmarshal([]byte(payloadStr), &result); err != nil {
		slog.Error("Failed to unmarshal result", "error", err, "message_id", message.ID)
		c.ack(ctx, message.ID)
		metrics.StreamMessages.WithLabelValues("consumed", "error").Inc()
		return
	}

	if err := handler(ctx, result); err != nil {
		slog.Error("Handler failed", "error", err, "request_id", result.RequestID)
		metrics.StreamMessages.WithLabelValues("consumed", "error").Inc()
		// Message stays in PEL for retry, don't ACK
		return
	}

	c.ack(ctx, message.ID)
	metrics.StreamMessages.WithLabelValues("consumed", "ok").Inc()
}

func (c *ResultConsumer) ack(ctx context.Context, id string) {
	if err := c.rdb.XAck(ctx, StreamBriefingResults, c.groupName, id).Err(); err != nil {
		slog.Error("Failed to ACK message", "error", err, "message_id", id)
	}
}

// Close closes the Redis client connection
func (c *ResultConsumer) Close() error {
	return c.rdb.Close()
}

// StartResultConsumer starts the result consumer in a background goroutine
// and returns a stop function
func StartResultConsumer(redisURL string, completer Completer) (stop func(), err error) {
	consumer, err := NewResultConsumer(redisURL, "go-worker-1")
	if err != nil {
		return nil, fmt.Errorf("failed to create result consumer: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())

	go func() {
		if err := consumer.ConsumeResults(ctx, HandleBriefingResult(completer)); err != nil {
			if !errors.Is(err, context.Canceled) {
				slog.Error("Result consumer stopped with error", "error", err)
			}
		}
	}()

	slog.Info("Result consumer started", "stream", StreamBriefingResults)

	return func() {
		cancel()
		consumer.Close()
	}, nil
}
