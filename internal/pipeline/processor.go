package pipeline

import (
	"context"
	"log/slog"

	"github.com/illmade-knight/go-dataflow/pkg/messagepipeline"
	"github.com/tinywideclouds/go-fanpush-service/pkg/dispatch"
)

// Notifier is satisfied by *notifier.Dispatcher.
type Notifier interface {
	Notify(ctx context.Context, rec *dispatch.NotificationRecord)
}

// NewProcessor hands each created record to the notifier. It always reports
// success so the event is acknowledged whatever happened to the push.
func NewProcessor(n Notifier, logger *slog.Logger) messagepipeline.StreamProcessor[dispatch.NotificationRecord] {
	return func(ctx context.Context, original messagepipeline.Message, rec *dispatch.NotificationRecord) error {
		logger.Debug("Notification record received", "pubsub_msg_id", original.ID, "user_id", rec.UserID)
		n.Notify(ctx, rec)
		return nil
	}
}
