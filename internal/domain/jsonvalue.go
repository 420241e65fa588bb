package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// The status API stores records in a document table and serializes numbers
// and timestamps loosely, so the fields below accept either JSON numbers or
// numeric strings, and timestamps with or without a zone.

var naiveTimeLayouts = []string{
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
}

// Timestamp decodes RFC 3339 and zone-less ISO 8601 times, the latter as UTC.
// Empty strings and null decode to the zero time.
type Timestamp struct {
	time.Time
}

func (t *Timestamp) UnmarshalJSON(data []byte) error {
	raw, ok, err := unquote(data)
	if err != nil || !ok {
		t.Time = time.Time{}
		return err
	}

	if parsed, err := time.Parse(time.RFC3339Nano, raw); err == nil {
		t.Time = parsed
		return nil
	}
	for _, layout := range naiveTimeLayouts {
		if parsed, err := time.ParseInLocation(layout, raw, time.UTC); err == nil {
			t.Time = parsed
			return nil
		}
	}
	return fmt.Errorf("parse timestamp %q", raw)
}

func (t Timestamp) MarshalJSON() ([]byte, error) {
	if t.IsZero() {
		return []byte(`""`), nil
	}
	return json.Marshal(t.UTC().Format(time.RFC3339Nano))
}

// Number is a float that also decodes from a numeric string.
type Number float64

func (n *Number) UnmarshalJSON(data []byte) error {
	raw, ok, err := unquote(data)
	if err != nil || !ok {
		*n = 0
		return err
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return fmt.Errorf("parse number %q: %w", raw, err)
	}
	*n = Number(v)
	return nil
}

// Count is an int that also decodes from a numeric string.
type Count int

func (c *Count) UnmarshalJSON(data []byte) error {
	var n Number
	if err := n.UnmarshalJSON(data); err != nil {
		return err
	}
	*c = Count(n)
	return nil
}

// unquote returns the scalar text of data, reporting false for null or "".
func unquote(data []byte) (string, bool, error) {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		return "", false, nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return "", false, err
		}
		s = strings.TrimSpace(s)
		return s, s != "", nil
	}
	return string(data), len(data) > 0, nil
}
