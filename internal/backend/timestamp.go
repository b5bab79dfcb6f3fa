package backend

import (
	"bytes"
	"encoding/json"
	"time"
)

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.000Z07:00",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// Timestamp decodes the date formats the backend emits. Unparseable values
// decode to the zero time instead of failing the whole document.
type Timestamp struct {
	time.Time
}

// UnmarshalJSON implements json.Unmarshaler.
func (t *Timestamp) UnmarshalJSON(raw []byte) error {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		t.Time = time.Time{}
		return nil
	}
	var ms int64
	if err := json.Unmarshal(raw, &ms); err == nil {
		t.Time = time.UnixMilli(ms).UTC()
		return nil
	}
	var value string
	if err := json.Unmarshal(raw, &value); err != nil {
		t.Time = time.Time{}
		return nil
	}
	for _, layout := range timestampLayouts {
		if parsed, err := time.Parse(layout, value); err == nil {
			t.Time = parsed
			return nil
		}
	}
	t.Time = time.Time{}
	return nil
}

// MarshalJSON implements json.Marshaler.
func (t Timestamp) MarshalJSON() ([]byte, error) {
	if t.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(t.Time.Format(time.RFC3339))
}

// OrNow returns the time, or now when unset.
func (t Timestamp) OrNow(now time.Time) time.Time {
	if t.IsZero() {
		return now
	}
	return t.Time
}
