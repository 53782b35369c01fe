package db

import (
	"encoding/json"
	"fmt"
	"time"
)

// TimeFormat is the on-disk timestamp encoding. It is fixed width and always
// UTC, so comparing encoded strings orders them chronologically.
const TimeFormat = "2006-01-02T15:04:05.000000000Z07:00"

// Fields is a document body or a partial update
type Fields map[string]any

type serverTimestamp struct{}

// ServerTimestamp is a field value the store replaces with its own clock at
// write time
var ServerTimestamp = serverTimestamp{}

// Document is one stored record. Data holds the JSON body; callers decode it
// into a typed record rather than handling it directly.
type Document struct {
	ID   string
	Seq  int64
	Data json.RawMessage
}

// Decode unmarshals the document body into v
func (d Document) Decode(v any) error {
	if err := json.Unmarshal(d.Data, v); err != nil {
		return fmt.Errorf("decode document %s: %w", d.ID, err)
	}
	return nil
}

// FormatTime encodes t the way the store does
func FormatTime(t time.Time) string {
	return t.UTC().Format(TimeFormat)
}

// normalize converts a field value into its stored form
func normalize(v any, now time.Time) any {
	switch val := v.(type) {
	case serverTimestamp:
		return FormatTime(now)
	case time.Time:
		return FormatTime(val)
	case *time.Time:
		if val == nil {
			return nil
		}
		return FormatTime(*val)
	}
	return v
}

func encodeFields(fields Fields, now time.Time) ([]byte, error) {
	out := make(map[string]any, len(fields))
	for k, v := range fields {
		if !validField(k) {
			return nil, fmt.Errorf("%w: field name %q", ErrInvalidQuery, k)
		}
		out[k] = normalize(v, now)
	}
	data, err := json.Marshal(out)
	if err != nil {
		return nil, fmt.Errorf("encode fields: %w", err)
	}
	return data, nil
}
