package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// JSONMap is a free-form string map persisted as JSONB.
type JSONMap map[string]string

// Value marshals the map to JSON for persistence.
func (m JSONMap) Value() (driver.Value, error) {
	if m == nil {
		return []byte("{}"), nil
	}
	data, err := json.Marshal(map[string]string(m))
	if err != nil {
		return nil, fmt.Errorf("marshal json map: %w", err)
	}
	return data, nil
}

// Scan unmarshals JSON payloads into the map.
func (m *JSONMap) Scan(value interface{}) error {
	data, err := jsonBytes(value, "JSONMap")
	if err != nil {
		return err
	}
	if len(data) == 0 {
		*m = JSONMap{}
		return nil
	}
	out := JSONMap{}
	if err := json.Unmarshal(data, &out); err != nil {
		return fmt.Errorf("unmarshal json map: %w", err)
	}
	*m = out
	return nil
}

// FloatList is a numeric list persisted as a JSONB array.
type FloatList []float64

// Value marshals the list to JSON for persistence.
func (l FloatList) Value() (driver.Value, error) {
	if l == nil {
		return []byte("[]"), nil
	}
	data, err := json.Marshal([]float64(l))
	if err != nil {
		return nil, fmt.Errorf("marshal float list: %w", err)
	}
	return data, nil
}

// Scan unmarshals a JSON array into the list.
func (l *FloatList) Scan(value interface{}) error {
	data, err := jsonBytes(value, "FloatList")
	if err != nil {
		return err
	}
	if len(data) == 0 {
		*l = nil
		return nil
	}
	var out []float64
	if err := json.Unmarshal(data, &out); err != nil {
		return fmt.Errorf("unmarshal float list: %w", err)
	}
	*l = out
	return nil
}

func jsonBytes(value interface{}, name string) ([]byte, error) {
	switch v := value.(type) {
	case nil:
		return nil, nil
	case []byte:
		return v, nil
	case string:
		return []byte(v), nil
	default:
		return nil, fmt.Errorf("unsupported type %T for %s", value, name)
	}
}
