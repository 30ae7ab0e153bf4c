// Package unitsx provides JSON- and flag-friendly duration and byte size
// types for configuration files.
package unitsx

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/docker/go-units"
)

// Duration accepts either a Go duration string ("1h", "90s") or an integer
// number of nanoseconds.
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalJSON(b []byte) error {
	var v any
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	switch value := v.(type) {
	case float64:
		d.Duration = time.Duration(value)
		return nil
	case string:
		parsed, err := time.ParseDuration(value)
		if err != nil {
			return err
		}
		d.Duration = parsed
		return nil
	default:
		return errors.New("invalid duration")
	}
}

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

// ByteSize is a size in bytes that parses binary suffixes, so "128MiB",
// "128m" and "134217728" are the same value.
type ByteSize int64

// ParseByteSize parses s with binary (1024-based) multipliers.
func ParseByteSize(s string) (ByteSize, error) {
	n, err := units.RAMInBytes(s)
	if err != nil {
		return 0, fmt.Errorf("invalid size %q: %w", s, err)
	}
	if n < 0 {
		return 0, fmt.Errorf("invalid size %q: negative", s)
	}
	return ByteSize(n), nil
}

func (b *ByteSize) UnmarshalJSON(data []byte) error {
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	switch value := v.(type) {
	case float64:
		if value < 0 {
			return errors.New("invalid size: negative")
		}
		*b = ByteSize(value)
		return nil
	case string:
		parsed, err := ParseByteSize(value)
		if err != nil {
			return err
		}
		*b = parsed
		return nil
	default:
		return errors.New("invalid size")
	}
}

func (b ByteSize) MarshalJSON() ([]byte, error) {
	return json.Marshal(int64(b))
}

// String renders the size the way people write it, e.g. "128MiB".
func (b ByteSize) String() string {
	return units.BytesSize(float64(b))
}

// Set implements flag.Value.
func (b *ByteSize) Set(s string) error {
	parsed, err := ParseByteSize(s)
	if err != nil {
		return err
	}
	*b = parsed
	return nil
}

// Int64 returns the size as a plain byte count.
func (b ByteSize) Int64() int64 {
	return int64(b)
}

// HumanSize formats n bytes for progress output.
func HumanSize(n int64) string {
	return units.BytesSize(float64(n))
}
