package dispatch

import (
	"bytes"
	"encoding/json"
	"time"
)

// Timestamp is the creation time of a NotificationRecord. Producers write it
// in different shapes, and none of them may cost the record its push:
//   - an RFC 3339 string
//   - epoch seconds or epoch milliseconds
//   - a serialized Firestore timestamp, {"_seconds","_nanoseconds"} or {"seconds","nanos"}
//
// Anything else decodes to the zero time.
type Timestamp struct {
	time.Time
}

type firestoreTimestamp struct {
	Seconds     *int64 `json:"_seconds"`
	Nanoseconds int64  `json:"_nanoseconds"`
	PBSeconds   *int64 `json:"seconds"`
	PBNanos     int64  `json:"nanos"`
}

// epochMillisThreshold separates epoch seconds from epoch milliseconds; in
// seconds it lies past the year 5000.
const epochMillisThreshold = 100_000_000_000

func (t *Timestamp) UnmarshalJSON(data []byte) error {
	t.Time = time.Time{}
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil
	}

	switch data[0] {
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return nil
		}
		if parsed, err := time.Parse(time.RFC3339Nano, s); err == nil {
			t.Time = parsed.UTC()
		}
	case '{':
		var ft firestoreTimestamp
		if err := json.Unmarshal(data, &ft); err != nil {
			return nil
		}
		switch {
		case ft.Seconds != nil:
			t.Time = time.Unix(*ft.Seconds, ft.Nanoseconds).UTC()
		case ft.PBSeconds != nil:
			t.Time = time.Unix(*ft.PBSeconds, ft.PBNanos).UTC()
		}
	default:
		var n json.Number
		if err := json.Unmarshal(data, &n); err != nil {
			return nil
		}
		v, err := n.Int64()
		if err != nil {
			f, ferr := n.Float64()
			if ferr != nil {
				return nil
			}
			v = int64(f)
		}
		if v >= epochMillisThreshold || v <= -epochMillisThreshold {
			t.Time = time.UnixMilli(v).UTC()
		} else {
			t.Time = time.Unix(v, 0).UTC()
		}
	}
	return nil
}

// MarshalJSON always writes RFC 3339.
func (t Timestamp) MarshalJSON() ([]byte, error) {
	return t.Time.MarshalJSON()
}
