package schema

import (
	"encoding/json"
	"math"
)

// EncodeValue converts a document field value into the driver value for
// its column: booleans to 0/1, objects and arrays to JSON text, numbers
// normalized to int64/float64. A nil value is only legal for nullable
// columns. Values of the wrong shape are a MappingError.
func EncodeValue(col Column, field string, v any) (any, error) {
	if v == nil {
		if !col.Nullable {
			return nil, mappingErr(field, "null value for non-nullable field")
		}
		return nil, nil
	}

	if col.JSON {
		data, err := json.Marshal(v)
		if err != nil {
			return nil, mappingErr(field, "value not serializable: %v", err)
		}
		return string(data), nil
	}

	if col.Bool {
		b, ok := v.(bool)
		if !ok {
			return nil, mappingErr(field, "expected boolean, got %T", v)
		}
		if b {
			return int64(1), nil
		}
		return int64(0), nil
	}

	switch col.SQLType {
	case "TEXT":
		s, ok := v.(string)
		if !ok {
			return nil, mappingErr(field, "expected string, got %T", v)
		}
		if col.MaxLength > 0 && len(s) > col.MaxLength {
			return nil, mappingErr(field, "string length %d exceeds maxLength %d", len(s), col.MaxLength)
		}
		return s, nil

	case "INTEGER":
		n, ok := toInt64(v)
		if !ok {
			return nil, mappingErr(field, "expected integer, got %T(%v)", v, v)
		}
		return n, nil

	case "REAL":
		f, ok := toFloat64(v)
		if !ok {
			return nil, mappingErr(field, "expected number, got %T", v)
		}
		return f, nil
	}

	return nil, mappingErr(field, "unhandled column type %s", col.SQLType)
}

// DecodeValue reverses EncodeValue: driver value back to the document
// field value (0/1 to booleans, JSON text to decoded values).
func DecodeValue(col Column, field string, v any) (any, error) {
	if v == nil {
		return nil, nil
	}

	if col.JSON {
		s, ok := textValue(v)
		if !ok {
			return nil, mappingErr(field, "expected JSON text column, got %T", v)
		}
		var out any
		if err := json.Unmarshal([]byte(s), &out); err != nil {
			return nil, mappingErr(field, "stored JSON is invalid: %v", err)
		}
		return out, nil
	}

	if col.Bool {
		n, ok := v.(int64)
		if !ok {
			return nil, mappingErr(field, "expected 0/1 column, got %T", v)
		}
		return n != 0, nil
	}

	switch col.SQLType {
	case "TEXT":
		s, ok := textValue(v)
		if !ok {
			return nil, mappingErr(field, "expected text column, got %T", v)
		}
		return s, nil
	case "INTEGER":
		n, ok := v.(int64)
		if !ok {
			return nil, mappingErr(field, "expected integer column, got %T", v)
		}
		return n, nil
	case "REAL":
		switch f := v.(type) {
		case float64:
			return f, nil
		case int64:
			// SQLite stores integral REALs as integers.
			return float64(f), nil
		}
		return nil, mappingErr(field, "expected real column, got %T", v)
	}

	return nil, mappingErr(field, "unhandled column type %s", col.SQLType)
}

// NormalizeKey validates and normalizes a primary-key value against the
// key column: strings stay strings, integer keys normalize to int64.
func (m *ColumnMap) NormalizeKey(v any) (any, error) {
	if v == nil {
		return nil, mappingErr(m.keyField, "missing primary key")
	}

	if m.Key.SQLType == "TEXT" {
		s, ok := v.(string)
		if !ok {
			return nil, mappingErr(m.keyField, "expected string primary key, got %T", v)
		}
		if s == "" {
			return nil, mappingErr(m.keyField, "empty primary key")
		}
		if m.Key.MaxLength > 0 && len(s) > m.Key.MaxLength {
			return nil, mappingErr(m.keyField, "primary key length %d exceeds maxLength %d", len(s), m.Key.MaxLength)
		}
		return s, nil
	}

	n, ok := toInt64(v)
	if !ok {
		return nil, mappingErr(m.keyField, "expected integer primary key, got %T(%v)", v, v)
	}
	return n, nil
}

// textValue accepts stored text either way the driver surfaces it.
func textValue(v any) (string, bool) {
	switch s := v.(type) {
	case string:
		return s, true
	case []byte:
		return string(s), true
	}
	return "", false
}

func toInt64(v any) (int64, bool) {
	switch n := v.(type) {
	case int:
		return int64(n), true
	case int32:
		return int64(n), true
	case int64:
		return n, true
	case float64:
		// JSON decoding yields float64; accept integral values only.
		if n != math.Trunc(n) || math.IsInf(n, 0) {
			return 0, false
		}
		return int64(n), true
	case json.Number:
		i, err := n.Int64()
		if err != nil {
			return 0, false
		}
		return i, true
	}
	return 0, false
}

func toFloat64(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		if err != nil {
			return 0, false
		}
		return f, true
	}
	return 0, false
}
