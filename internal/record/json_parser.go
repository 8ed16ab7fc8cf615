package record

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// ParseRecords parses a JSON array of row objects, as returned by the REST
// query API. An empty body or a JSON null yields no rows.
// It returns ErrJSONUnmarshalFailed (wrapping the original error) if unmarshalling fails.
func ParseRecords(data []byte) ([]Record, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return []Record{}, nil
	}

	var rows []Record
	if err := json.Unmarshal(trimmed, &rows); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrJSONUnmarshalFailed, err)
	}
	return rows, nil
}
