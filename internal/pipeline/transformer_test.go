package pipeline_test

import (
	"context"
	"testing"
	"time"

	"github.com/illmade-knight/go-dataflow/pkg/messagepipeline"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tinywideclouds/go-fanpush-service/internal/pipeline"
)

func TestNotificationRecordTransformer(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)

	transformer := pipeline.NewNotificationRecordTransformer(newTestLogger())

	validPayload := []byte(`{
		"userId": "u1",
		"title": "Grid set",
		"message": "Final starting grid for Suzuka",
		"type": "grid",
		"relatedId": "suzuka-2026",
		"additionalData": {"pole": "VER", "round": 4},
		"isRead": false,
		"timestamp": "2026-04-05T05:00:00Z"
	}`)

	testCases := []struct {
		name       string
		payload    []byte
		expectSkip bool
	}{
		{name: "Happy Path - Valid record", payload: validPayload},
		{name: "Missing fields are not validated", payload: []byte(`{"title": "orphan"}`)},
		{name: "Malformed JSON is skipped", payload: []byte("not-json"), expectSkip: true},
		{name: "Wrong field type is skipped", payload: []byte(`{"userId": 42}`), expectSkip: true},
		{name: "Firestore timestamp is accepted", payload: []byte(`{"userId": "u1", "timestamp": {"_seconds": 1775365200, "_nanoseconds": 0}}`)},
		{name: "Epoch timestamp is accepted", payload: []byte(`{"userId": "u1", "timestamp": 1775365200000}`)},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			msg := &messagepipeline.Message{
				MessageData: messagepipeline.MessageData{ID: "msg-1", Payload: tc.payload},
			}

			rec, skip, err := transformer(ctx, msg)

			require.NoError(t, err)
			assert.Equal(t, tc.expectSkip, skip)
			if tc.expectSkip {
				assert.Nil(t, rec)
			} else {
				assert.NotNil(t, rec)
			}
		})
	}

	t.Run("Decodes every field", func(t *testing.T) {
		rec, _, err := transformer(ctx, &messagepipeline.Message{
			MessageData: messagepipeline.MessageData{ID: "msg-2", Payload: validPayload},
		})
		require.NoError(t, err)

		assert.Equal(t, "u1", rec.UserID)
		assert.Equal(t, "Grid set", rec.Title)
		assert.Equal(t, "Final starting grid for Suzuka", rec.Message)
		assert.Equal(t, "grid", rec.Type)
		assert.Equal(t, "suzuka-2026", rec.RelatedID)
		assert.Equal(t, "VER", rec.AdditionalData["pole"])
		assert.Equal(t, float64(4), rec.AdditionalData["round"])
		assert.Equal(t, time.Date(2026, 4, 5, 5, 0, 0, 0, time.UTC), rec.Timestamp.Time)
	})
}
