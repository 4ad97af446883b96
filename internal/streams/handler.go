package streams

import (
	"context"
	"fmt"
	"log/slog"
)

// Completer finishes briefing requests from externally produced results
type Completer interface {
	CompleteWithDocument(ctx context.Context, requestID string, document []byte) (string, error)
	Fail(ctx context.Context, requestID, reason string) error
}

// HandleBriefingResult returns a handler that stores pipeline results
func HandleBriefingResult(completer Completer) func(context.Context, BriefingResult) error {
	return func(ctx context.Context, result BriefingResult) error {
		if result.RequestID == "" {
			return fmt.Errorf("result without request_id")
		}

		switch result.Status {
		case "completed":
			briefingID, err := completer.CompleteWithDocument(ctx, result.RequestID, result.Document)
			if err != nil {
				return fmt.Errorf("failed to complete request %s: %w", result.RequestID, err)
			}
			slog.Info("Pipeline briefing stored",
				"request_id", result.RequestID,
				"briefing_id", briefingID,
			)
			return nil

		case "failed":
			if err := completer.Fail(ctx, result.RequestID, result.Error); err != nil {
				return fmt.Errorf("failed to mark request %s failed: %w", result.RequestID, err)
			}
			slog.Error("Pipeline briefing failed",
				"request_id", result.RequestID,
				"error", result.Error,
			)
			return nil

		default:
			return fmt.Errorf("unknown status: %s", result.Status)
		}
	}
}
