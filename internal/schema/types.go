package schema

import (
	"fmt"
	"regexp"
)

// FieldType is the tagged variant identifying a field's value type.
//
// Exactly one variant per field; optionality is carried by the separate
// Nullable flag rather than a union type.
type FieldType int

const (
	TypeString FieldType = iota + 1
	TypeInteger
	TypeNumber
	TypeBoolean
	TypeObject
	TypeArray
)

// String returns the JSON-schema style name of the type.
func (t FieldType) String() string {
	switch t {
	case TypeString:
		return "string"
	case TypeInteger:
		return "integer"
	case TypeNumber:
		return "number"
	case TypeBoolean:
		return "boolean"
	case TypeObject:
		return "object"
	case TypeArray:
		return "array"
	default:
		return fmt.Sprintf("FieldType(%d)", int(t))
	}
}

// Descriptor describes one field of a document schema.
type Descriptor struct {
	// Type is the field's value type variant.
	Type FieldType

	// Nullable permits an explicit null value for this field.
	Nullable bool

	// PrimaryKey marks the field as the table's row identifier.
	// Exactly one field per schema. Primary keys are caller-assigned;
	// database-generated keys are not part of the model.
	PrimaryKey bool

	// MaxLength bounds string lengths (0 = unlimited).
	// Enforced at write time, not via SQL CHECK, so violations are
	// classified as mapping errors before any I/O.
	MaxLength int
}

// Field is a named descriptor within a schema.
type Field struct {
	Name string
	Descriptor
}

// Schema is an ordered document schema with a single primary key.
// Construct with New; the zero value is not usable.
type Schema struct {
	fields []Field
	byName map[string]int
	key    int // index into fields
}

// Reserved column names. Schema fields may not shadow them
// (the primary-key field maps onto "id" and keeps its own name only on
// the document side).
const (
	ColID          = "id"
	ColDeleted     = "deleted"
	ColRevision    = "revision"
	ColLastWriteAt = "last_write_at"
)

// Field names become SQL identifiers, so they are restricted up front.
var fieldNameRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// New validates the field list and builds a Schema.
//
// Validation rules:
//   - at least one field, all names unique and identifier-shaped
//   - no field named after a reserved column
//   - exactly one primary key, of type string or integer, not nullable
func New(fields []Field) (*Schema, error) {
	if len(fields) == 0 {
		return nil, mappingErr("", "schema has no fields")
	}

	s := &Schema{
		fields: make([]Field, len(fields)),
		byName: make(map[string]int, len(fields)),
		key:    -1,
	}
	copy(s.fields, fields)

	for i, f := range s.fields {
		if !fieldNameRe.MatchString(f.Name) {
			return nil, mappingErr(f.Name, "invalid field name")
		}
		if isReserved(f.Name) {
			return nil, mappingErr(f.Name, "field name shadows reserved column")
		}
		if _, dup := s.byName[f.Name]; dup {
			return nil, mappingErr(f.Name, "duplicate field name")
		}
		s.byName[f.Name] = i

		switch f.Type {
		case TypeString, TypeInteger, TypeNumber, TypeBoolean, TypeObject, TypeArray:
		default:
			return nil, mappingErr(f.Name, "unknown field type %v", f.Type)
		}

		if f.MaxLength < 0 {
			return nil, mappingErr(f.Name, "negative maxLength %d", f.MaxLength)
		}
		if f.MaxLength > 0 && f.Type != TypeString {
			return nil, mappingErr(f.Name, "maxLength requires a string field")
		}

		if f.PrimaryKey {
			if s.key >= 0 {
				return nil, mappingErr(f.Name, "multiple primary keys (already %q)", s.fields[s.key].Name)
			}
			if f.Type != TypeString && f.Type != TypeInteger {
				return nil, mappingErr(f.Name, "primary key must be string or integer, got %v", f.Type)
			}
			if f.Nullable {
				return nil, mappingErr(f.Name, "primary key cannot be nullable")
			}
			s.key = i
		}
	}

	if s.key < 0 {
		return nil, mappingErr("", "schema has no primary key")
	}

	return s, nil
}

// Fields returns the fields in declaration order.
func (s *Schema) Fields() []Field {
	return s.fields
}

// Field looks up a field by name.
func (s *Schema) Field(name string) (Field, bool) {
	i, ok := s.byName[name]
	if !ok {
		return Field{}, false
	}
	return s.fields[i], true
}

// PrimaryKey returns the primary-key field.
func (s *Schema) PrimaryKey() Field {
	return s.fields[s.key]
}

func isReserved(name string) bool {
	switch name {
	case ColID, ColDeleted, ColRevision, ColLastWriteAt:
		return true
	}
	return false
}

// DescriptorFromTypeSet converts a JSON-schema style type list into a
// Descriptor. A list of ["X", "null"] (in either order) yields a nullable
// X; a single type yields a non-nullable descriptor. Any other combination
// is a MappingError: the relational layout needs one column type per field.
func DescriptorFromTypeSet(field string, types []string) (Descriptor, error) {
	var (
		d        Descriptor
		sawNull  bool
		sawOther bool
	)

	for _, name := range types {
		if name == "null" {
			sawNull = true
			continue
		}

		t, err := typeFromName(name)
		if err != nil {
			return Descriptor{}, mappingErr(field, "%v", err)
		}
		if sawOther {
			return Descriptor{}, mappingErr(field, "more than one value type (%v and %v)", d.Type, t)
		}
		d.Type = t
		sawOther = true
	}

	if !sawOther {
		return Descriptor{}, mappingErr(field, "type set %v has no non-null type", types)
	}

	d.Nullable = sawNull
	return d, nil
}

func typeFromName(name string) (FieldType, error) {
	switch name {
	case "string":
		return TypeString, nil
	case "integer":
		return TypeInteger, nil
	case "number":
		return TypeNumber, nil
	case "boolean":
		return TypeBoolean, nil
	case "object":
		return TypeObject, nil
	case "array":
		return TypeArray, nil
	default:
		return 0, fmt.Errorf("unknown value type %q", name)
	}
}
