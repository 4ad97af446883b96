package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
	"github.com/jimdaga/tophive/internal/briefings"
	"github.com/jimdaga/tophive/internal/config"
)

// Processor is the part of the briefing service the worker drives
type Processor interface {
	Complete(ctx context.Context, requestID string) (string, error)
	Fail(ctx context.Context, requestID, reason string) error
	StaleRequests(ctx context.Context, age time.Duration) (int64, error)
}

// asynqLoggerAdapter wraps slog.Logger to implement asynq.Logger interface
type asynqLoggerAdapter struct {
	logger *slog.Logger
}

func (a *asynqLoggerAdapter) Debug(args ...interface{}) {
	a.logger.Debug(fmt.Sprint(args...))
}

func (a *asynqLoggerAdapter) Info(args ...interface{}) {
	a.logger.Info(fmt.Sprint(args...))
}

func (a *asynqLoggerAdapter) Warn(args ...interface{}) {
	a.logger.Warn(fmt.Sprint(args...))
}

func (a *asynqLoggerAdapter) Error(args ...interface{}) {
	a.logger.Error(fmt.Sprint(args...))
}

func (a *asynqLoggerAdapter) Fatal(args ...interface{}) {
	a.logger.Error(fmt.Sprint(args...))
	panic(fmt.Sprint(args...))
}

// Start starts the Asynq worker in non-blocking mode and returns a stop
// function so the caller can coordinate shutdown.
func Start(cfg *config.Config, proc Processor) (stop func(), err error) {
	srv, mux, err := newServer(cfg, proc)
	if err != nil {
		return nil, err
	}
	if err := srv.Start(mux); err != nil {
		return nil, fmt.Errorf("failed to start worker: %w", err)
	}
	return func() { srv.Shutdown() }, nil
}

func newServer(cfg *config.Config, proc Processor) (*asynq.Server, *asynq.ServeMux, error) {
	redisOpt, err := asynq.ParseRedisURI(cfg.RedisURL)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	logger := NewLogger(cfg.LogLevel, cfg.LogFormat)

	srv := asynq.NewServer(
		redisOpt,
		asynq.Config{
			Concurrency:     5,
			ShutdownTimeout: 30 * time.Second,
			ErrorHandler:    asynq.ErrorHandlerFunc(makeErrorHandler(logger, proc)),
			Logger:          &asynqLoggerAdapter{logger: logger},
		},
	)

	logger.Info("Worker starting", "concurrency", 5)
	return srv, newMux(logger, proc, cfg.StaleRequestAfter), nil
}

func newMux(logger *slog.Logger, proc Processor, staleAfter time.Duration) *asynq.ServeMux {
	mux := asynq.NewServeMux()
	mux.HandleFunc(TaskGenerateBriefing, handleGenerateBriefing(logger, proc))
	mux.HandleFunc(TaskScanStaleRequests, handleScanStaleRequests(logger, proc, staleAfter))
	return mux
}

// handleGenerateBriefing completes the request named in the payload
func handleGenerateBriefing(logger *slog.Logger, proc Processor) func(context.Context, *asynq.Task) error {
	return func(ctx context.Context, task *asynq.Task) error {
		var payload GeneratePayload
		if err := json.Unmarshal(task.Payload(), &payload); err != nil || payload.RequestID == "" {
			// Invalid payload - don't retry
			return fmt.Errorf("invalid payload: %w", asynq.SkipRetry)
		}

		logger.Info("Processing briefing:generate task", "request_id", payload.RequestID)

		briefingID, err := proc.Complete(ctx, payload.RequestID)
		if err != nil {
			if errors.Is(err, briefings.ErrNotFound) {
				logger.Error("Briefing request not found", "request_id", payload.RequestID)
				return fmt.Errorf("request not found: %w", asynq.SkipRetry)
			}
			return fmt.Errorf("briefing generation failed: %w", err)
		}

		logger.Info(
			"Briefing generation completed",
			"request_id", payload.RequestID,
			"briefing_id", briefingID,
		)
		return nil
	}
}

// handleScanStaleRequests reports requests stuck in generating state
func handleScanStaleRequests(logger *slog.Logger, proc Processor, staleAfter time.Duration) func(context.Context, *asynq.Task) error {
	return func(ctx context.Context, task *asynq.Task) error {
		n, err := proc.StaleRequests(ctx, staleAfter)
		if err != nil {
			return fmt.Errorf("stale request scan failed: %w", err)
		}
		if n > 0 {
			logger.Warn("Briefing requests stuck in generating state", "count", n, "older_than", staleAfter.String())
		}
		return nil
	}
}

// makeErrorHandler logs task failures and marks generation requests failed
// once their retries are exhausted
func makeErrorHandler(logger *slog.Logger, proc Processor) func(context.Context, *asynq.Task, error) {
	return func(ctx context.Context, task *asynq.Task, err error) {
		retried, _ := asynq.GetRetryCount(ctx)
		maxRetry, _ := asynq.GetMaxRetry(ctx)

		logger.Error(
			"Task execution failed",
			"task_type", task.Type(),
			"error", err.Error(),
			"retry_count", retried,
			"max_retry", maxRetry,
		)

		final := retried >= maxRetry || errors.Is(err, asynq.SkipRetry)
		if !final || task.Type() != TaskGenerateBriefing {
			return
		}

		var payload GeneratePayload
		if json.Unmarshal(task.Payload(), &payload) != nil || payload.RequestID == "" {
			return
		}
		if err := proc.Fail(ctx, payload.RequestID, err.Error()); err != nil && !errors.Is(err, briefings.ErrNotFound) {
			logger.Error("Failed to mark request failed", "request_id", payload.RequestID, "error", err)
		}
	}
}
