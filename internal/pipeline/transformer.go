// Package pipeline adapts notification-created events arriving on Pub/Sub to
// the notification dispatcher.
package pipeline

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/illmade-knight/go-dataflow/pkg/messagepipeline"
	"github.com/tinywideclouds/go-fanpush-service/pkg/dispatch"
)

// NewNotificationRecordTransformer decodes the created NotificationRecord from
// a message payload. A payload that cannot be decoded is logged and skipped
// (acknowledged): a broken record will not get better on redelivery. Field
// contents are not validated here.
func NewNotificationRecordTransformer(logger *slog.Logger) func(context.Context, *messagepipeline.Message) (*dispatch.NotificationRecord, bool, error) {
	log := logger.With("component", "NotificationRecordTransformer")

	return func(_ context.Context, msg *messagepipeline.Message) (*dispatch.NotificationRecord, bool, error) {
		var rec dispatch.NotificationRecord
		if err := json.Unmarshal(msg.Payload, &rec); err != nil {
			log.Error("Dropping malformed notification record", "pubsub_msg_id", msg.ID, "err", err)
			return nil, true, nil
		}
		return &rec, false, nil
	}
}
