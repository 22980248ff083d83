package crud

import (
	"database/sql"
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/conduit-lang/scaffold/internal/orm/schema"
)

// now is replaced in tests
var now = func() time.Time { return time.Now().UTC() }

// scanner is satisfied by *sql.Row and *sql.Rows
type scanner interface {
	Scan(dest ...interface{}) error
}

// scanRecord scans one row selected with o.columns into a record keyed by field name
func (o *Operations) scanRecord(row scanner) (map[string]interface{}, error) {
	fields := o.resource.OrderedFields()
	values := make([]interface{}, len(fields))
	valuePtrs := make([]interface{}, len(fields))
	for i := range values {
		valuePtrs[i] = &values[i]
	}

	if err := row.Scan(valuePtrs...); err != nil {
		return nil, err
	}

	record := make(map[string]interface{}, len(fields))
	for i, field := range fields {
		value, err := fromColumn(field, values[i])
		if err != nil {
			return nil, fmt.Errorf("column %s: %w", field.ColumnName(), err)
		}
		record[field.Name] = value
	}
	return record, nil
}

// scanRecords scans every row, closing rows when done
func (o *Operations) scanRecords(rows *sql.Rows) ([]map[string]interface{}, error) {
	defer rows.Close()

	results := make([]map[string]interface{}, 0)
	for rows.Next() {
		record, err := o.scanRecord(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, record)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}
	return results, nil
}

// toColumn converts a record value into something every supported driver accepts
func toColumn(field *schema.Field, value interface{}) (interface{}, error) {
	if value == nil {
		return nil, nil
	}

	switch field.Type.BaseType {
	case schema.TypeJSON:
		switch v := value.(type) {
		case json.RawMessage:
			return string(v), nil
		case []byte:
			return string(v), nil
		}
		encoded, err := json.Marshal(value)
		if err != nil {
			return nil, fmt.Errorf("encode %s: %w", field.Name, err)
		}
		return string(encoded), nil

	case schema.TypeArray:
		return toArray(value), nil
	}

	return value, nil
}

// toArray wraps a slice in the lib/pq array type matching its elements
func toArray(value interface{}) driver.Valuer {
	items, ok := value.([]interface{})
	if !ok {
		return pq.Array(value)
	}

	strs := make(pq.StringArray, 0, len(items))
	ints := make(pq.Int64Array, 0, len(items))
	floats := make(pq.Float64Array, 0, len(items))
	bools := make(pq.BoolArray, 0, len(items))
	for _, item := range items {
		switch v := item.(type) {
		case string:
			strs = append(strs, v)
		case uuid.UUID:
			strs = append(strs, v.String())
		case time.Time:
			strs = append(strs, v.Format(time.RFC3339Nano))
		case int64:
			ints = append(ints, v)
		case float64:
			floats = append(floats, v)
		case bool:
			bools = append(bools, v)
		}
	}

	switch len(items) {
	case len(strs):
		return strs
	case len(ints):
		return ints
	case len(floats):
		return floats
	case len(bools):
		return bools
	}
	return pq.Array(items)
}

// fromColumn normalizes a scanned driver value to the field's Go representation
func fromColumn(field *schema.Field, value interface{}) (interface{}, error) {
	if value == nil {
		return nil, nil
	}
	if b, ok := value.([]byte); ok {
		if field.Type.BaseType == schema.TypeJSON {
			return json.RawMessage(append([]byte(nil), b...)), nil
		}
		value = string(b)
	}

	switch field.Type.BaseType {
	case schema.TypeInt, schema.TypeBigInt:
		switch v := value.(type) {
		case int32:
			return int64(v), nil
		case int:
			return int64(v), nil
		case string:
			return strconv.ParseInt(v, 10, 64)
		}

	case schema.TypeFloat, schema.TypeDecimal:
		switch v := value.(type) {
		case float32:
			return float64(v), nil
		case int64:
			return float64(v), nil
		case string:
			return strconv.ParseFloat(v, 64)
		}

	case schema.TypeBool:
		switch v := value.(type) {
		case int64:
			return v != 0, nil
		case string:
			return strconv.ParseBool(v)
		}

	case schema.TypeTimestamp, schema.TypeDate:
		if s, ok := value.(string); ok {
			return schema.ParseTime(s)
		}

	case schema.TypeUUID:
		switch v := value.(type) {
		case [16]byte:
			return uuid.UUID(v), nil
		case string:
			return uuid.Parse(v)
		}

	case schema.TypeJSON:
		if s, ok := value.(string); ok {
			return json.RawMessage(s), nil
		}

	case schema.TypeArray:
		if s, ok := value.(string); ok {
			return parseArray(field.Type.ArrayElement, s)
		}
	}

	return value, nil
}

// parseArray reads a PostgreSQL array literal or a JSON array
func parseArray(element *schema.TypeSpec, raw string) (interface{}, error) {
	raw = strings.TrimSpace(raw)
	if strings.HasPrefix(raw, "[") {
		var items []interface{}
		if err := json.Unmarshal([]byte(raw), &items); err != nil {
			return nil, err
		}
		return items, nil
	}

	base := schema.TypeString
	if element != nil {
		base = element.BaseType
	}

	switch base {
	case schema.TypeInt, schema.TypeBigInt:
		var ints pq.Int64Array
		if err := ints.Scan(raw); err != nil {
			return nil, err
		}
		return toInterfaces(ints), nil
	case schema.TypeFloat, schema.TypeDecimal:
		var floats pq.Float64Array
		if err := floats.Scan(raw); err != nil {
			return nil, err
		}
		return toInterfaces(floats), nil
	case schema.TypeBool:
		var bools pq.BoolArray
		if err := bools.Scan(raw); err != nil {
			return nil, err
		}
		return toInterfaces(bools), nil
	default:
		var strs pq.StringArray
		if err := strs.Scan(raw); err != nil {
			return nil, err
		}
		return toInterfaces(strs), nil
	}
}

func toInterfaces[T any](values []T) []interface{} {
	out := make([]interface{}, len(values))
	for i, v := range values {
		out[i] = v
	}
	return out
}
