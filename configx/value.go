package configx

import (
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cast"
)

// Value is one looked-up setting. The zero Value is unset and every accessor
// returns its default.
type Value struct {
	key string
	raw any
}

func newValue(key string, raw any) Value {
	return Value{key: key, raw: raw}
}

// Key is the dotted key the value was read from
func (v Value) Key() string { return v.key }

func (v Value) IsSet() bool { return v.raw != nil }

func (v Value) AsString() string { return v.AsStringDefault("") }

func (v Value) AsStringDefault(def string) string {
	switch raw := v.raw.(type) {
	case nil:
		return def
	case time.Duration:
		return raw.String()
	}
	s, err := cast.ToStringE(v.raw)
	if err != nil {
		return def
	}
	return s
}

func (v Value) AsInt() int { return v.AsIntDefault(0) }

// AsIntDefault reads strings as base 10, so "010" is ten
func (v Value) AsIntDefault(def int) int {
	if v.raw == nil {
		return def
	}
	if s, ok := v.raw.(string); ok {
		n, err := strconv.Atoi(strings.TrimSpace(s))
		if err != nil {
			return def
		}
		return n
	}
	n, err := cast.ToIntE(v.raw)
	if err != nil {
		return def
	}
	return n
}

func (v Value) AsBool() bool { return v.AsBoolDefault(false) }

var boolWords = map[string]bool{
	"true": true, "yes": true, "y": true, "on": true, "1": true,
	"false": false, "no": false, "n": false, "off": false, "0": false,
}

func (v Value) AsBoolDefault(def bool) bool {
	if v.raw == nil {
		return def
	}
	if s, ok := v.raw.(string); ok {
		b, known := boolWords[strings.ToLower(strings.TrimSpace(s))]
		if !known {
			return def
		}
		return b
	}
	b, err := cast.ToBoolE(v.raw)
	if err != nil {
		return def
	}
	return b
}

func (v Value) AsDuration() time.Duration { return v.AsDurationDefault(0) }

// AsDurationDefault takes Go duration strings. Bare numbers are milliseconds.
func (v Value) AsDurationDefault(def time.Duration) time.Duration {
	switch raw := v.raw.(type) {
	case nil:
		return def
	case time.Duration:
		return raw
	case string:
		s := strings.TrimSpace(raw)
		if d, err := time.ParseDuration(s); err == nil {
			return d
		}
		v = newValue(v.key, s)
		if ms := v.AsIntDefault(-1); ms >= 0 {
			return time.Duration(ms) * time.Millisecond
		}
		return def
	}
	ms, err := cast.ToInt64E(v.raw)
	if err != nil {
		return def
	}
	return time.Duration(ms) * time.Millisecond
}

// AsStringSlice splits strings on commas and drops blank entries
func (v Value) AsStringSlice() []string {
	if s, ok := v.raw.(string); ok {
		var out []string
		for _, part := range strings.Split(s, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
		return out
	}
	if v.raw == nil {
		return nil
	}
	out, err := cast.ToStringSliceE(v.raw)
	if err != nil {
		return nil
	}
	return out
}
