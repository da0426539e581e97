package domain

import (
	"encoding/json"
	"fmt"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration is a time span as it appears in flow documents. Documents
// written by hand use Go duration strings ("1.5s", "300ms"); documents
// exported from other tools use bare numbers, which are taken as
// milliseconds.
type Duration time.Duration

// Std returns the standard library representation.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// IsZero reports whether no delay was configured.
func (d Duration) IsZero() bool {
	return d == 0
}

func (d Duration) String() string {
	return time.Duration(d).String()
}

// MarshalJSON encodes as a duration string.
func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

// UnmarshalJSON accepts a duration string or a number of milliseconds.
func (d *Duration) UnmarshalJSON(data []byte) error {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	parsed, err := ParseDurationValue(raw)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// UnmarshalYAML accepts a duration string or a number of milliseconds.
func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	var raw any
	if err := node.Decode(&raw); err != nil {
		return err
	}
	parsed, err := ParseDurationValue(raw)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// ParseDurationValue converts a decoded document value into a Duration.
// Strings go through time.ParseDuration; numbers are milliseconds.
func ParseDurationValue(raw any) (Duration, error) {
	switch v := raw.(type) {
	case nil:
		return 0, nil
	case string:
		if v == "" {
			return 0, nil
		}
		parsed, err := time.ParseDuration(v)
		if err != nil {
			return 0, fmt.Errorf("invalid duration %q: %w", v, err)
		}
		return Duration(parsed), nil
	case int:
		return Duration(time.Duration(v) * time.Millisecond), nil
	case int64:
		return Duration(time.Duration(v) * time.Millisecond), nil
	case uint64:
		return Duration(time.Duration(v) * time.Millisecond), nil
	case float64:
		return Duration(time.Duration(v * float64(time.Millisecond))), nil
	default:
		return 0, fmt.Errorf("invalid duration value of type %T", raw)
	}
}
