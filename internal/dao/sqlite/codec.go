package sqlite

import (
	"encoding/json"
	"fmt"

	"github.com/schemakeep/schemakeep/internal/metadata"
)

// encodeIDList renders an id list as JSON text, "[]" when empty.
func encodeIDList(ids []int64) (string, error) {
	if ids == nil {
		ids = []int64{}
	}
	data, err := json.Marshal(ids)
	if err != nil {
		return "", fmt.Errorf("marshaling id list: %w", err)
	}
	return string(data), nil
}

func decodeIDList(text string) ([]int64, error) {
	var ids []int64
	if err := json.Unmarshal([]byte(text), &ids); err != nil {
		return nil, fmt.Errorf("parsing id list: %w", err)
	}
	return ids, nil
}

// encodeConstraints renders the constraint list as JSON text, nil when
// empty so the column stays NULL.
func encodeConstraints(constraints []metadata.Constraint) (any, error) {
	if len(constraints) == 0 {
		return nil, nil
	}
	data, err := json.Marshal(constraints)
	if err != nil {
		return nil, fmt.Errorf("marshaling table constraints: %w", err)
	}
	return string(data), nil
}

func decodeConstraints(text []byte) ([]metadata.Constraint, error) {
	if len(text) == 0 {
		return nil, nil
	}
	var constraints []metadata.Constraint
	if err := json.Unmarshal(text, &constraints); err != nil {
		return nil, fmt.Errorf("parsing table constraints: %w", err)
	}
	return constraints, nil
}
