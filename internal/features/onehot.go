package features

import (
	"errors"
	"fmt"
	"strings"
)

// Default one-hot widths for the positional features.
const (
	DefaultLineNumberDepth = 15
	DefaultTotalLinesDepth = 20
)

// ErrPositionOutOfRange is wrapped by every PositionOutOfRangeError.
var ErrPositionOutOfRange = errors.New("position out of range")

// PositionOutOfRangeError reports a positional value that does not fit the
// one-hot width under PolicyReject.
type PositionOutOfRangeError struct {
	Field string // "line_number" or "total_lines"
	Value int
	Depth int
}

func (e *PositionOutOfRangeError) Error() string {
	return fmt.Sprintf("features: %s=%d outside one-hot depth %d", e.Field, e.Value, e.Depth)
}

func (e *PositionOutOfRangeError) Unwrap() error { return ErrPositionOutOfRange }

// Policy decides what happens to a positional value outside [0, depth).
type Policy int

const (
	// PolicyReject fails encoding with a PositionOutOfRangeError.
	PolicyReject Policy = iota
	// PolicyClip maps the value onto the last slot (depth-1), or slot 0 for
	// negative values.
	PolicyClip
	// PolicyZero emits an all-zero vector.
	PolicyZero
)

func (p Policy) String() string {
	switch p {
	case PolicyClip:
		return "clip"
	case PolicyZero:
		return "zero"
	default:
		return "reject"
	}
}

// ParsePolicy converts "reject", "clip" or "zero" into a Policy.
func ParsePolicy(s string) (Policy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "reject", "":
		return PolicyReject, nil
	case "clip":
		return PolicyClip, nil
	case "zero":
		return PolicyZero, nil
	default:
		return PolicyReject, fmt.Errorf("features: unknown position policy %q", s)
	}
}

// MarshalText implements encoding.TextMarshaler.
func (p Policy) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (p *Policy) UnmarshalText(b []byte) error {
	v, err := ParsePolicy(string(b))
	if err != nil {
		return err
	}
	*p = v
	return nil
}

// OneHot encodes index into a vector of width depth, applying policy when the
// index does not fit. field only labels the error.
func OneHot(field string, index, depth int, policy Policy) ([]float32, error) {
	vec := make([]float32, depth)
	if index >= 0 && index < depth {
		vec[index] = 1
		return vec, nil
	}
	switch policy {
	case PolicyClip:
		if index < 0 {
			vec[0] = 1
		} else {
			vec[depth-1] = 1
		}
		return vec, nil
	case PolicyZero:
		return vec, nil
	default:
		return nil, &PositionOutOfRangeError{Field: field, Value: index, Depth: depth}
	}
}
