package entity

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// Attributes stores custom entity fields as JSONB in PostgreSQL.
// Keys are free-form; values must be JSON-serializable.
type Attributes map[string]any

// Value implements driver.Valuer for database serialization.
func (a Attributes) Value() (driver.Value, error) {
	if a == nil {
		return nil, nil
	}
	return json.Marshal(a)
}

// Scan implements sql.Scanner for database deserialization.
func (a *Attributes) Scan(src any) error {
	if src == nil {
		*a = nil
		return nil
	}

	var data []byte
	switch v := src.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("unsupported attributes source type: %T", src)
	}

	if len(data) == 0 {
		*a = nil
		return nil
	}

	return json.Unmarshal(data, a)
}

// Get returns an attribute value or nil.
func (a Attributes) Get(key string) any {
	if a == nil {
		return nil
	}
	return a[key]
}

// GetString returns a string attribute or empty string.
func (a Attributes) GetString(key string) string {
	if s, ok := a.Get(key).(string); ok {
		return s
	}
	return ""
}
