package sink

import "time"

// Operations recorded by journaling sinks.
const (
	OpTrack     = "track"
	OpSetOnce   = "set_once"
	OpSet       = "set"
	OpIncrement = "increment"
	OpUnion     = "union"
)

// Record is the serialized form of one sink call.
type Record struct {
	Op         string              `json:"op"`
	ID         string              `json:"id"`
	Label      string              `json:"label,omitempty"`
	Properties map[string]any      `json:"properties,omitempty"`
	Counters   map[string]float64  `json:"counters,omitempty"`
	Sets       map[string][]string `json:"sets,omitempty"`
	RecordedAt time.Time           `json:"recordedAt"`
}

// insertID returns the $insert_id property when present.
func insertID(props map[string]any) string {
	if id, ok := props["$insert_id"].(string); ok {
		return id
	}
	return ""
}

// eventTime returns the millisecond timestamp property as a time.
func eventTime(props map[string]any) (time.Time, bool) {
	switch v := props["timestamp"].(type) {
	case int64:
		return time.UnixMilli(v).UTC(), true
	case float64:
		return time.UnixMilli(int64(v)).UTC(), true
	default:
		return time.Time{}, false
	}
}
