package domain

import (
	"database/sql/driver"
	"fmt"
	"strings"
	"time"
)

// Time tolerates the backend's two timestamp renditions: RFC 3339 and the
// zone-less ISO form ("2024-01-02T15:04:05.123456", implicitly UTC).
type Time struct {
	time.Time
}

func Now() Time { return Time{time.Now().UTC()} }

func NewTime(t time.Time) Time { return Time{t.UTC()} }

const isoNoZone = "2006-01-02T15:04:05.999999999"

func (t *Time) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "" || s == "null" {
		t.Time = time.Time{}
		return nil
	}
	if parsed, err := time.Parse(time.RFC3339Nano, s); err == nil {
		t.Time = parsed
		return nil
	}
	parsed, err := time.ParseInLocation(isoNoZone, s, time.UTC)
	if err != nil {
		return fmt.Errorf("invalid timestamp %q", s)
	}
	t.Time = parsed
	return nil
}

func (t Time) MarshalJSON() ([]byte, error) {
	if t.IsZero() {
		return []byte(`""`), nil
	}
	return []byte(`"` + t.UTC().Format(time.RFC3339Nano) + `"`), nil
}

func (t *Time) Scan(v any) error {
	switch x := v.(type) {
	case time.Time:
		t.Time = x
	case nil:
		t.Time = time.Time{}
	default:
		return fmt.Errorf("cannot scan %T into Time", v)
	}
	return nil
}

func (t Time) Value() (driver.Value, error) { return t.Time, nil }
