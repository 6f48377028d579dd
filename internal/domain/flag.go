package domain

import (
	"database/sql/driver"
	"fmt"
)

// Flag is a bool that also accepts the backend's integer rendition (0/1).
// Older API generations store alert resolution as an integer column.
type Flag bool

func (f *Flag) UnmarshalJSON(b []byte) error {
	switch string(b) {
	case "true", "1":
		*f = true
	case "false", "0", "null":
		*f = false
	default:
		return fmt.Errorf("invalid flag value %s", b)
	}
	return nil
}

func (f Flag) Bool() bool { return bool(f) }

func (f *Flag) Scan(v any) error {
	switch x := v.(type) {
	case bool:
		*f = Flag(x)
	case int64:
		*f = x != 0
	case nil:
		*f = false
	default:
		return fmt.Errorf("cannot scan %T into Flag", v)
	}
	return nil
}

func (f Flag) Value() (driver.Value, error) { return bool(f), nil }
