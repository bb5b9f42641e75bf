package schema

import (
	"strings"
)

// FieldType captures how a destination should represent a field.
type FieldType string

const (
	FieldTypeTitle    FieldType = "title"
	FieldTypeText     FieldType = "text"
	FieldTypeURL      FieldType = "url"
	FieldTypeEmail    FieldType = "email"
	FieldTypeNumber   FieldType = "number"
	FieldTypePhone    FieldType = "phone"
	FieldTypeMulti    FieldType = "multi"
	FieldTypeDateTime FieldType = "datetime"
)

// Field captures the minimal behavior-relevant schema fields.
type Field struct {
	// Name is the stable machine name (CSV header, lookup key).
	Name string
	// Title is the human-facing column or property name.
	Title    string
	Type     FieldType
	Nullable bool
}

// RecordContract is the ordered set of fields persisted for one record.
type RecordContract struct {
	Fields []Field
}

// Names returns the field names in contract order.
func (c RecordContract) Names() []string {
	out := make([]string, 0, len(c.Fields))
	for _, f := range c.Fields {
		out = append(out, f.Name)
	}
	return out
}

// Titles returns the field titles in contract order.
func (c RecordContract) Titles() []string {
	out := make([]string, 0, len(c.Fields))
	for _, f := range c.Fields {
		out = append(out, f.Title)
	}
	return out
}

// Lookup finds a field by name, ignoring case and surrounding whitespace.
func (c RecordContract) Lookup(name string) (Field, bool) {
	name = strings.TrimSpace(name)
	for _, f := range c.Fields {
		if strings.EqualFold(f.Name, name) {
			return f, true
		}
	}
	return Field{}, false
}
