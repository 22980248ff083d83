package schema

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ErrInvalidValue is returned when a textual value cannot be converted to a field's type
var ErrInvalidValue = errors.New("invalid value")

// DateLayout is the layout accepted for date fields
const DateLayout = "2006-01-02"

// ParseValue converts a textual value (path or query parameter) to the Go value
// stored for the given type.
func ParseValue(t *TypeSpec, raw string) (interface{}, error) {
	switch t.BaseType {
	case TypeString, TypeText, TypeEmail, TypeURL:
		return raw, nil

	case TypeInt, TypeBigInt:
		i, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: %q is not an integer", ErrInvalidValue, raw)
		}
		return i, nil

	case TypeFloat, TypeDecimal:
		f, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
		if err != nil {
			return nil, fmt.Errorf("%w: %q is not a number", ErrInvalidValue, raw)
		}
		return f, nil

	case TypeBool:
		b, err := strconv.ParseBool(strings.TrimSpace(raw))
		if err != nil {
			return nil, fmt.Errorf("%w: %q is not a boolean", ErrInvalidValue, raw)
		}
		return b, nil

	case TypeTimestamp, TypeDate:
		ts, err := ParseTime(raw)
		if err != nil {
			return nil, err
		}
		return ts, nil

	case TypeUUID:
		id, err := uuid.Parse(strings.TrimSpace(raw))
		if err != nil {
			return nil, fmt.Errorf("%w: %q is not a uuid", ErrInvalidValue, raw)
		}
		return id, nil

	case TypeEnum:
		for _, allowed := range t.EnumValues {
			if allowed == raw {
				return raw, nil
			}
		}
		return nil, fmt.Errorf("%w: %q is not one of %s", ErrInvalidValue, raw, strings.Join(t.EnumValues, ", "))

	default:
		return nil, fmt.Errorf("%w: %s values cannot be parsed from text", ErrInvalidValue, t.BaseType)
	}
}

// ParseTime accepts RFC 3339 timestamps and plain dates
func ParseTime(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339, DateLayout} {
		if ts, err := time.Parse(layout, raw); err == nil {
			return ts, nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: %q is not a date or RFC 3339 timestamp", ErrInvalidValue, raw)
}
