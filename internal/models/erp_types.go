package models

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
)

// ErpString handles the ERP's dynamic typing: empty text fields come back
// as `false` instead of an empty string.
type ErpString string

// UnmarshalJSON accepts both a string and bool(false).
func (s *ErpString) UnmarshalJSON(data []byte) error {
	var str string
	if err := json.Unmarshal(data, &str); err == nil {
		*s = ErpString(str)
		return nil
	}

	var b bool
	if err := json.Unmarshal(data, &b); err == nil {
		if !b {
			*s = ""
			return nil
		}
		*s = "true"
		return nil
	}

	return errors.New("ErpString: cannot unmarshal value into string")
}

// Value implements driver.Valuer interface for database storage
func (s ErpString) Value() (driver.Value, error) {
	return string(s), nil
}

// Scan implements sql.Scanner interface for database retrieval
func (s *ErpString) Scan(value interface{}) error {
	if value == nil {
		*s = ""
		return nil
	}
	switch v := value.(type) {
	case string:
		*s = ErpString(v)
	case []byte:
		*s = ErpString(string(v))
	default:
		return fmt.Errorf("failed to scan ErpString: %v", value)
	}
	return nil
}

func (s ErpString) String() string {
	return string(s)
}

// Many2One is a relational ERP field, returned as `[id, "display name"]`
// or `false` when unset.
type Many2One struct {
	ID   int64
	Name string
}

// UnmarshalJSON decodes `[id, name]`, a bare id or `false`.
func (m *Many2One) UnmarshalJSON(data []byte) error {
	var pair []interface{}
	if err := json.Unmarshal(data, &pair); err == nil {
		*m = Many2One{}
		if len(pair) > 0 {
			id, ok := pair[0].(float64)
			if !ok {
				return fmt.Errorf("Many2One: unexpected id %v", pair[0])
			}
			m.ID = int64(id)
		}
		if len(pair) > 1 {
			if name, ok := pair[1].(string); ok {
				m.Name = name
			}
		}
		return nil
	}

	var id int64
	if err := json.Unmarshal(data, &id); err == nil {
		*m = Many2One{ID: id}
		return nil
	}

	var b bool
	if err := json.Unmarshal(data, &b); err == nil && !b {
		*m = Many2One{}
		return nil
	}

	return errors.New("Many2One: cannot unmarshal value")
}

// Valid reports whether the relation is set.
func (m Many2One) Valid() bool { return m.ID != 0 }
