package dispatch

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/tinywideclouds/go-platform/pkg/notification/v1"
)

// BuildPushMessage assembles the multicast message shared by both dispatch
// paths. The data block holds type and relatedId, then the stringified
// additional data; an additional entry with the same key wins.
func BuildPushMessage(title, body, msgType, relatedID string, additional map[string]any, tokens []string) *PushMessage {
	data := make(map[string]string, len(additional)+2)
	data["type"] = msgType
	data["relatedId"] = relatedID
	for k, v := range StringifyData(additional) {
		data[k] = v
	}

	return &PushMessage{
		Content: notification.NotificationContent{
			Title: title,
			Body:  body,
		},
		Data:   data,
		Tokens: tokens,
	}
}

// StringifyData flattens an arbitrary map into the string-only payload a push
// gateway accepts.
func StringifyData(in map[string]any) map[string]string {
	out := make(map[string]string, len(in))
	for k, v := range in {
		out[k] = stringify(v)
	}
	return out
}

func stringify(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case bool:
		return strconv.FormatBool(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(t), 'f', -1, 32)
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return fmt.Sprintf("%d", t)
	case json.Number:
		return t.String()
	case time.Time:
		return t.UTC().Format(time.RFC3339Nano)
	case fmt.Stringer:
		return t.String()
	}

	// Maps, slices and structs are sent as JSON.
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	return string(b)
}
