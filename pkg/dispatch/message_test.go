package dispatch_test

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tinywideclouds/go-fanpush-service/pkg/dispatch"
)

func TestBuildPushMessage(t *testing.T) {
	t.Run("Data holds only type, relatedId and additional entries", func(t *testing.T) {
		msg := dispatch.BuildPushMessage("Race start", "Lights out in 10 minutes", "race", "monza-2026",
			map[string]any{"lap": 12, "safetyCar": true}, []string{"t1", "t2"})

		assert.Equal(t, "Race start", msg.Content.Title)
		assert.Equal(t, "Lights out in 10 minutes", msg.Content.Body)
		assert.Equal(t, []string{"t1", "t2"}, msg.Tokens)
		assert.Equal(t, map[string]string{
			"type":      "race",
			"relatedId": "monza-2026",
			"lap":       "12",
			"safetyCar": "true",
		}, msg.Data)
	})

	t.Run("Nil additional data", func(t *testing.T) {
		msg := dispatch.BuildPushMessage("t", "b", "news", "n-1", nil, []string{"t1"})
		assert.Equal(t, map[string]string{"type": "news", "relatedId": "n-1"}, msg.Data)
	})

	t.Run("Additional data overrides reserved keys", func(t *testing.T) {
		msg := dispatch.BuildPushMessage("t", "b", "news", "n-1", map[string]any{"type": "weather"}, nil)
		assert.Equal(t, "weather", msg.Data["type"])
		assert.Equal(t, "n-1", msg.Data["relatedId"])
	})
}

func TestStringifyData(t *testing.T) {
	ts := time.Date(2026, 9, 6, 13, 0, 0, 0, time.UTC)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal([]byte(`{"position": 1, "gap": 0.512, "big": 1000000}`), &decoded))

	out := dispatch.StringifyData(map[string]any{
		"circuit":  "Monza",
		"missing":  nil,
		"pole":     false,
		"laps":     int64(53),
		"start":    ts,
		"podium":   []string{"VER", "NOR", "LEC"},
		"weather":  map[string]any{"tempC": 24},
		"position": decoded["position"],
		"gap":      decoded["gap"],
		"big":      decoded["big"],
		"number":   json.Number("44"),
	})

	assert.Equal(t, "Monza", out["circuit"])
	assert.Equal(t, "", out["missing"])
	assert.Equal(t, "false", out["pole"])
	assert.Equal(t, "53", out["laps"])
	assert.Equal(t, "2026-09-06T13:00:00Z", out["start"])
	assert.Equal(t, `["VER","NOR","LEC"]`, out["podium"])
	assert.Equal(t, `{"tempC":24}`, out["weather"])
	assert.Equal(t, "1", out["position"])
	assert.Equal(t, "0.512", out["gap"])
	assert.Equal(t, "1000000", out["big"])
	assert.Equal(t, "44", out["number"])
	assert.Len(t, out, 11)
}
