package dto

import (
	"encoding/json"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/conduit-lang/scaffold/internal/orm/schema"
	"github.com/conduit-lang/scaffold/internal/orm/validation"
)

// Decode checks body against the shape and returns the accepted values keyed
// by internal field name. Members the shape does not know are dropped.
// Failures are reported as *validation.ValidationErrors keyed by exposed name.
func (s *Shape) Decode(body map[string]interface{}) (map[string]interface{}, error) {
	return s.DecodeWith(validation.Default(), body)
}

// DecodeWith is Decode using a specific validation engine
func (s *Shape) DecodeWith(engine *validation.Engine, body map[string]interface{}) (map[string]interface{}, error) {
	errs := validation.NewValidationErrors()
	out := make(map[string]interface{}, len(s.Rules))

	for _, rule := range s.Rules {
		raw, present := body[rule.Name]
		if !present {
			if rule.Required {
				errs.Add(rule.Name, "is required")
			}
			continue
		}

		if raw == nil {
			if !rule.Nullable {
				errs.Add(rule.Name, "must not be null")
				continue
			}
			out[rule.Field] = nil
			continue
		}

		value, msg := coerce(engine, rule, raw)
		if msg != "" {
			errs.Add(rule.Name, msg)
			continue
		}

		if rule.Tag != "" {
			target := value
			if str, ok := raw.(string); ok {
				target = str
			}
			before := errs.Count()
			engine.Check(rule.Name, target, rule.Tag, errs)
			if errs.Count() > before {
				continue
			}
		}

		if rule.Format == FormatUUID {
			id, err := uuid.Parse(value.(string))
			if err != nil {
				errs.Add(rule.Name, "must be a valid UUID")
				continue
			}
			value = id
		}

		out[rule.Field] = value
	}

	if err := errs.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// DecodeMany decodes every element of rows, reporting failures as "[i].name"
func (s *Shape) DecodeMany(rows []map[string]interface{}) ([]map[string]interface{}, error) {
	errs := validation.NewValidationErrors()
	out := make([]map[string]interface{}, 0, len(rows))

	for i, row := range rows {
		data, err := s.Decode(row)
		if err != nil {
			verrs, ok := err.(*validation.ValidationErrors)
			if !ok {
				return nil, err
			}
			errs.Merge(fmt.Sprintf("[%d]", i), verrs)
			continue
		}
		out = append(out, data)
	}

	if err := errs.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func coerce(engine *validation.Engine, rule Rule, raw interface{}) (interface{}, string) {
	switch rule.Kind {
	case KindString, KindEnum:
		s, ok := raw.(string)
		if !ok {
			return nil, "must be a string"
		}
		return s, ""

	case KindInteger:
		return toInt64(raw)

	case KindNumber:
		return toFloat64(raw)

	case KindBoolean:
		b, ok := raw.(bool)
		if !ok {
			return nil, "must be a boolean"
		}
		return b, ""

	case KindDate:
		switch v := raw.(type) {
		case time.Time:
			return v, ""
		case string:
			ts, err := schema.ParseTime(v)
			if err != nil {
				return nil, "must be a date (YYYY-MM-DD) or an RFC 3339 timestamp"
			}
			return ts, ""
		default:
			return nil, "must be a date string"
		}

	case KindArray:
		items, ok := raw.([]interface{})
		if !ok {
			return nil, "must be an array"
		}
		if rule.Items == nil {
			return items, ""
		}
		out := make([]interface{}, len(items))
		for i, item := range items {
			if item == nil {
				return nil, fmt.Sprintf("item %d must not be null", i)
			}
			value, msg := coerce(engine, *rule.Items, item)
			if msg != "" {
				return nil, fmt.Sprintf("item %d %s", i, msg)
			}
			itemErrs := validation.NewValidationErrors()
			engine.Check("item", item, rule.Items.Tag, itemErrs)
			if itemErrs.HasErrors() {
				return nil, fmt.Sprintf("item %d %s", i, itemErrs.Fields["item"][0])
			}
			out[i] = value
		}
		return out, ""

	case KindObject:
		switch raw.(type) {
		case map[string]interface{}, []interface{}:
			return raw, ""
		default:
			return nil, "must be an object or array"
		}
	}

	return nil, fmt.Sprintf("unsupported kind %s", rule.Kind)
}

func toInt64(raw interface{}) (interface{}, string) {
	const msg = "must be an integer"
	switch v := raw.(type) {
	case json.Number:
		i, err := v.Int64()
		if err != nil {
			return nil, msg
		}
		return i, ""
	case float64:
		if v != math.Trunc(v) || math.IsInf(v, 0) || v > math.MaxInt64 || v < math.MinInt64 {
			return nil, msg
		}
		return int64(v), ""
	case int:
		return int64(v), ""
	case int32:
		return int64(v), ""
	case int64:
		return v, ""
	default:
		return nil, msg
	}
}

func toFloat64(raw interface{}) (interface{}, string) {
	const msg = "must be a number"
	switch v := raw.(type) {
	case json.Number:
		f, err := v.Float64()
		if err != nil {
			return nil, msg
		}
		return f, ""
	case float64:
		return v, ""
	case float32:
		return float64(v), ""
	case int:
		return float64(v), ""
	case int64:
		return float64(v), ""
	default:
		return nil, msg
	}
}
