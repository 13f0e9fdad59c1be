package worker

import (
	"context"
	"log/slog"

	audit "livecheck/pkg/platform/audit"
)

// Worker consumes forwarded audit events from the outbox channel and hands
// them to a downstream sink such as the Kafka publisher.
type Worker struct {
	sink   audit.Appender
	inbox  <-chan audit.Event
	logger *slog.Logger
}

func NewWorker(sink audit.Appender, inbox <-chan audit.Event, logger *slog.Logger) *Worker {
	if logger == nil {
		logger = slog.Default()
	}
	return &Worker{sink: sink, inbox: inbox, logger: logger}
}

// Run delivers events until ctx is cancelled or the inbox is closed. Sink
// failures are logged and the event is skipped; the store already holds it.
func (w *Worker) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-w.inbox:
			if !ok {
				return nil
			}
			if err := w.sink.Append(ctx, event); err != nil {
				w.logger.ErrorContext(ctx, "failed to forward audit event",
					"action", event.Action,
					"user_id", event.UserID.String(),
					"error", err,
				)
			}
		}
	}
}
