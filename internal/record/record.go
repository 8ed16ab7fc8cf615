package record

import (
	"fmt"
	"strconv"
	"time"
)

// Record is one projected row as returned by a store: column name to value.
// Values keep whatever type the backend produced (JSON numbers, driver
// integers, []byte text), so callers go through the typed accessors.
type Record map[string]interface{}

// GetFloat64 retrieves a float64 value for a given column.
// Handles missing keys, null values, integer columns and numeric text.
func (r Record) GetFloat64(key string) (float64, bool) {
	val, exists := r[key]
	if !exists || val == nil {
		return 0, false
	}

	switch v := val.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case int32:
		return float64(v), true
	case []byte:
		f, err := strconv.ParseFloat(string(v), 64)
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(v, 64)
		return f, err == nil
	}
	return 0, false
}

// GetString returns the column as a string. Integer keys are formatted in
// base 10 so ids compare equal regardless of the backend column type.
func (r Record) GetString(key string) (string, bool) {
	val, exists := r[key]
	if !exists || val == nil {
		return "", false
	}

	switch v := val.(type) {
	case string:
		return v, true
	case []byte:
		return string(v), true
	case int64:
		return strconv.FormatInt(v, 10), true
	case int:
		return strconv.Itoa(v), true
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64), true
	case fmt.Stringer:
		return v.String(), true
	}
	return "", false
}

// HasNonNull checks if a key exists and its value is not explicitly null.
func (r Record) HasNonNull(key string) bool {
	val, exists := r[key]
	return exists && val != nil
}

// timestampFormats covers ISO 8601 from the REST API, the text layout used
// by the sqlite schema and postgres' default rendering.
var timestampFormats = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999-07",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// GetTime attempts to retrieve a time.Time value for a given column.
// Timestamps without a zone are read as UTC.
func (r Record) GetTime(key string) (time.Time, bool) {
	val, exists := r[key]
	if !exists || val == nil {
		return time.Time{}, false
	}

	var text string
	switch v := val.(type) {
	case time.Time:
		return v, true
	case string:
		text = v
	case []byte:
		text = string(v)
	default:
		return time.Time{}, false
	}

	for _, format := range timestampFormats {
		if t, err := time.Parse(format, text); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// GetFieldSnippet returns a string snippet of a field's value, useful for logging.
func (r Record) GetFieldSnippet(fieldName string, maxLength int) string {
	value, exists := r[fieldName]
	if !exists {
		return "<missing>"
	}

	strValue := fmt.Sprintf("%v", value)
	if maxLength <= 0 {
		return "..."
	}
	if len(strValue) > maxLength {
		return strValue[:maxLength] + "..."
	}
	return strValue
}
