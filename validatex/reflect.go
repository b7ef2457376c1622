package validatex

import (
	"errors"
	"reflect"
	"strings"
	"sync"
)

var ErrNotStruct = errors.New("value must be a struct")

type rule struct {
	name  string
	param string
}

func (r rule) String() string {
	if r.param == "" {
		return r.name
	}
	return r.name + "=" + r.param
}

// parseRules splits "required,max=10"
func parseRules(tag string) []rule {
	var rules []rule
	for _, part := range strings.Split(tag, ",") {
		if part = strings.TrimSpace(part); part == "" {
			continue
		}
		name, param, _ := strings.Cut(part, "=")
		rules = append(rules, rule{name: name, param: param})
	}
	return rules
}

// layoutField is an exported field that carries rules or leads to a struct
// that might.
type layoutField struct {
	index  int
	name   string
	rules  []rule
	nested bool
	inline bool
}

var layouts sync.Map // reflect.Type -> []layoutField

func layoutOf(t reflect.Type) []layoutField {
	if cached, ok := layouts.Load(t); ok {
		return cached.([]layoutField)
	}
	var fields []layoutField
	for i := range t.NumField() {
		sf := t.Field(i)
		if !sf.IsExported() {
			continue
		}
		lf := layoutField{index: i, name: jsonName(sf), inline: sf.Anonymous}
		if tag := sf.Tag.Get("validatex"); tag != "" && tag != "-" {
			lf.rules = parseRules(tag)
		}
		ft := sf.Type
		if ft.Kind() == reflect.Pointer {
			ft = ft.Elem()
		}
		lf.nested = ft.Kind() == reflect.Struct
		if len(lf.rules) > 0 || lf.nested {
			fields = append(fields, lf)
		}
	}
	layouts.Store(t, fields)
	return fields
}

func jsonName(sf reflect.StructField) string {
	if name, _, _ := strings.Cut(sf.Tag.Get("json"), ","); name != "" && name != "-" {
		return name
	}
	return sf.Name
}

// check is one field value paired with its rules. Nested fields have dotted
// paths; embedded structs keep their parent's path.
type check struct {
	path  string
	value any
	unset bool // nil pointer or interface
	rules []rule
}

func checksOf(obj any) ([]check, error) {
	v := reflect.ValueOf(obj)
	if v.Kind() == reflect.Pointer {
		if v.IsNil() {
			return nil, ErrNotStruct
		}
		v = v.Elem()
	}
	if v.Kind() != reflect.Struct {
		return nil, ErrNotStruct
	}
	return collect(v, "", nil), nil
}

func collect(v reflect.Value, prefix string, out []check) []check {
	for _, lf := range layoutOf(v.Type()) {
		fv := v.Field(lf.index)
		path := lf.name
		if prefix != "" {
			path = prefix + "." + lf.name
		}

		if len(lf.rules) > 0 {
			c := check{path: path, rules: lf.rules}
			switch {
			case (fv.Kind() == reflect.Pointer || fv.Kind() == reflect.Interface) && fv.IsNil():
				c.unset = true
			case fv.Kind() == reflect.Pointer:
				c.value = fv.Elem().Interface()
			default:
				c.value = fv.Interface()
			}
			out = append(out, c)
		}

		if !lf.nested {
			continue
		}
		if fv.Kind() == reflect.Pointer {
			if fv.IsNil() {
				continue
			}
			fv = fv.Elem()
		}
		if lf.inline {
			path = prefix
		}
		out = collect(fv, path, out)
	}
	return out
}

// blank treats whitespace-only strings as empty
func blank(value any) bool {
	if value == nil {
		return true
	}
	v := reflect.ValueOf(value)
	switch v.Kind() {
	case reflect.String:
		return strings.TrimSpace(v.String()) == ""
	case reflect.Slice, reflect.Map, reflect.Array:
		return v.Len() == 0
	case reflect.Pointer, reflect.Interface:
		return v.IsNil()
	}
	return v.IsZero()
}
