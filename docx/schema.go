package docx

import (
	"reflect"
	"strings"
)

type SchemaField struct {
	Name     string        `json:"name"`
	Type     string        `json:"type"`
	Rules    string        `json:"rules,omitempty"`
	Required bool          `json:"required"`
	Fields   []SchemaField `json:"fields,omitempty"`
}

type Schema struct {
	Type   string        `json:"type"`
	Fields []SchemaField `json:"fields,omitempty"`
}

// extractSchema describes a DTO by its JSON field names. Embedded structs
// are flattened the way encoding/json flattens them.
func extractSchema(t reflect.Type) Schema {
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	schema := Schema{Type: typeName(t)}
	schema.Fields = fieldsOf(t, 0)
	return schema
}

func fieldsOf(t reflect.Type, depth int) []SchemaField {
	for t.Kind() == reflect.Ptr || t.Kind() == reflect.Slice {
		t = t.Elem()
	}
	if t.Kind() != reflect.Struct || depth > 4 {
		return nil
	}

	var fields []SchemaField
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if !f.IsExported() {
			continue
		}
		name, opts, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			continue
		}
		if f.Anonymous && name == "" {
			fields = append(fields, fieldsOf(f.Type, depth+1)...)
			continue
		}
		if name == "" {
			name = f.Name
		}

		rules := f.Tag.Get("validatex")
		fields = append(fields, SchemaField{
			Name:     name,
			Type:     typeName(f.Type),
			Rules:    rules,
			Required: strings.Contains(rules, "required") || (!strings.Contains(opts, "omitempty") && f.Type.Kind() != reflect.Ptr),
			Fields:   fieldsOf(f.Type, depth+1),
		})
	}
	return fields
}

func typeName(t reflect.Type) string {
	switch t.Kind() {
	case reflect.Ptr:
		return typeName(t.Elem())
	case reflect.Slice, reflect.Array:
		return "[]" + typeName(t.Elem())
	case reflect.Map:
		return "map[" + typeName(t.Key()) + "]" + typeName(t.Elem())
	case reflect.Struct:
		if t.Name() == "Time" && t.PkgPath() == "time" {
			return "timestamp"
		}
		return t.Name()
	case reflect.Interface:
		return "any"
	}
	return t.Kind().String()
}
