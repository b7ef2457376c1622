package validatex

import (
	"fmt"
	"reflect"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/google/uuid"
)

// ValidationFunc reports whether value satisfies the rule with param
type ValidationFunc func(value any, param string) bool

var builtinValidationFuncs = map[string]ValidationFunc{
	"required":    validateRequired,
	"min":         validateMin,
	"max":         validateMax,
	"oneof":       validateOneOf,
	"regex":       validateRegex,
	"uuid":        validateUUID,
	"prefix":      validatePrefix,
	"notcontains": validateNotContains,
}

var (
	customMu              sync.RWMutex
	customValidationFuncs = map[string]ValidationFunc{}
)

// RegisterValidationFunc adds or replaces a named rule
func RegisterValidationFunc(name string, fn ValidationFunc) {
	customMu.Lock()
	defer customMu.Unlock()
	customValidationFuncs[name] = fn
}

func getValidationFunc(name string) (ValidationFunc, bool) {
	customMu.RLock()
	fn, ok := customValidationFuncs[name]
	customMu.RUnlock()
	if ok {
		return fn, true
	}
	fn, ok = builtinValidationFuncs[name]
	return fn, ok
}

func validateRequired(value any, _ string) bool {
	return !blank(value)
}

// size is the rune count of strings, the length of collections and the
// value of numbers
func size(value any) (float64, bool) {
	val := reflect.ValueOf(value)
	switch val.Kind() {
	case reflect.String:
		return float64(utf8.RuneCountInString(val.String())), true
	case reflect.Slice, reflect.Map, reflect.Array:
		return float64(val.Len()), true
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(val.Int()), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return float64(val.Uint()), true
	case reflect.Float32, reflect.Float64:
		return val.Float(), true
	}
	return 0, false
}

func validateMin(value any, param string) bool {
	limit, err := strconv.ParseFloat(param, 64)
	n, ok := size(value)
	return err == nil && ok && n >= limit
}

func validateMax(value any, param string) bool {
	limit, err := strconv.ParseFloat(param, 64)
	n, ok := size(value)
	return err == nil && ok && n <= limit
}

// validateOneOf takes a space separated list
func validateOneOf(value any, param string) bool {
	s := fmt.Sprintf("%v", value)
	for _, allowed := range strings.Fields(param) {
		if s == allowed {
			return true
		}
	}
	return false
}

var (
	regexMu    sync.Mutex
	regexCache = map[string]*regexp.Regexp{}
)

func validateRegex(value any, param string) bool {
	s, ok := value.(string)
	if !ok {
		return false
	}
	regexMu.Lock()
	re, cached := regexCache[param]
	if !cached {
		var err error
		if re, err = regexp.Compile(param); err != nil {
			regexMu.Unlock()
			return false
		}
		regexCache[param] = re
	}
	regexMu.Unlock()
	return re.MatchString(s)
}

func validateUUID(value any, _ string) bool {
	s, ok := value.(string)
	if !ok {
		return false
	}
	_, err := uuid.Parse(s)
	return err == nil
}

func validatePrefix(value any, param string) bool {
	s, ok := value.(string)
	return ok && strings.HasPrefix(s, param)
}

func validateNotContains(value any, param string) bool {
	s, ok := value.(string)
	return ok && !strings.Contains(s, param)
}
