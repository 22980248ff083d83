package stream

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"time"
)

// Encoder writes records in one wire format. An Encoder holds per-response
// state and must not be shared between exports.
type Encoder interface {
	ContentType() string
	Begin(w io.Writer) error
	Encode(w io.Writer, record map[string]interface{}) error
	End(w io.Writer) error
}

// JSONEncoder writes a single JSON array
type JSONEncoder struct {
	count int
}

// NewJSONEncoder creates a JSON array encoder
func NewJSONEncoder() *JSONEncoder {
	return &JSONEncoder{}
}

// ContentType returns the JSON media type
func (e *JSONEncoder) ContentType() string {
	return "application/json; charset=utf-8"
}

// Begin writes the opening bracket
func (e *JSONEncoder) Begin(w io.Writer) error {
	_, err := io.WriteString(w, "[")
	return err
}

// Encode writes one array element
func (e *JSONEncoder) Encode(w io.Writer, record map[string]interface{}) error {
	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to encode record: %w", err)
	}
	if e.count > 0 {
		if _, err := io.WriteString(w, ","); err != nil {
			return err
		}
	}
	e.count++
	_, err = w.Write(data)
	return err
}

// End writes the closing bracket
func (e *JSONEncoder) End(w io.Writer) error {
	_, err := io.WriteString(w, "]")
	return err
}

// CSVEncoder writes a header row followed by one row per record
type CSVEncoder struct {
	Columns []string
	writer  *csv.Writer
}

// NewCSVEncoder creates a CSV encoder with a fixed column order
func NewCSVEncoder(columns []string) *CSVEncoder {
	return &CSVEncoder{Columns: columns}
}

// ContentType returns the CSV media type
func (e *CSVEncoder) ContentType() string {
	return "text/csv; charset=utf-8"
}

// Begin writes the header row
func (e *CSVEncoder) Begin(w io.Writer) error {
	e.writer = csv.NewWriter(w)
	if err := e.writer.Write(e.Columns); err != nil {
		return fmt.Errorf("failed to write CSV headers: %w", err)
	}
	return nil
}

// Encode writes one row. Missing columns are written as empty cells.
func (e *CSVEncoder) Encode(_ io.Writer, record map[string]interface{}) error {
	row := make([]string, len(e.Columns))
	for i, column := range e.Columns {
		cell, err := formatCell(record[column])
		if err != nil {
			return fmt.Errorf("column %s: %w", column, err)
		}
		row[i] = cell
	}
	if err := e.writer.Write(row); err != nil {
		return fmt.Errorf("failed to write CSV row: %w", err)
	}
	// csv.Writer buffers; push the row through before the streamer flushes
	e.writer.Flush()
	return e.writer.Error()
}

// End flushes remaining rows
func (e *CSVEncoder) End(io.Writer) error {
	e.writer.Flush()
	return e.writer.Error()
}

func formatCell(value interface{}) (string, error) {
	switch v := value.(type) {
	case nil:
		return "", nil
	case string:
		return v, nil
	case []byte:
		return string(v), nil
	case json.RawMessage:
		return string(v), nil
	case bool:
		return strconv.FormatBool(v), nil
	case int64:
		return strconv.FormatInt(v, 10), nil
	case int:
		return strconv.Itoa(v), nil
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64), nil
	case time.Time:
		return v.Format(time.RFC3339), nil
	case fmt.Stringer:
		return v.String(), nil
	case map[string]interface{}, []interface{}:
		data, err := json.Marshal(v)
		if err != nil {
			return "", err
		}
		return string(data), nil
	default:
		return fmt.Sprint(v), nil
	}
}
