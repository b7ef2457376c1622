// Package validatex checks request structs against `validatex` struct tags.
//
//	type addSymptom struct {
//		Text string `json:"text" validatex:"required,max=200"`
//	}
//
// Rules are comma separated, parameters follow '='. Structs implementing
// Validatable get their own check after the tag rules pass.
package validatex

import (
	"net/http"
	"sort"
	"strings"

	"github.com/Abraxas-365/rxintake/errx"
)

var (
	ErrorRegistry = errx.NewRegistry("VALIDATION")

	CodeInvalid = ErrorRegistry.Register("FAILED", errx.TypeValidation,
		http.StatusBadRequest, "Request is not valid")
	CodeUnknownRule = ErrorRegistry.Register("UNKNOWN_RULE", errx.TypeInternal,
		http.StatusInternalServerError, "Validation rule is not registered")
)

// Validatable is implemented by types with checks tags cannot express
type Validatable interface {
	Validate() error
}

// Validate applies every rule on obj's tagged fields. The returned error
// lists each failing field with the first rule it broke.
func Validate(obj any) error {
	checks, err := checksOf(obj)
	if err != nil {
		return ErrorRegistry.New(CodeInvalid).WithCause(err)
	}

	failed := make(map[string]string)
	for _, c := range checks {
		for _, r := range c.rules {
			if c.unset && r.name != "required" {
				// optional pointer left unset
				break
			}
			fn, ok := getValidationFunc(r.name)
			if !ok {
				return ErrorRegistry.New(CodeUnknownRule).WithDetail("rule", r.name)
			}
			if !fn(c.value, r.param) {
				failed[c.path] = r.String()
				break
			}
		}
	}

	if len(failed) > 0 {
		names := make([]string, 0, len(failed))
		for name := range failed {
			names = append(names, name)
		}
		sort.Strings(names)
		return ErrorRegistry.NewWithMessage(CodeInvalid, "Invalid "+strings.Join(names, ", ")).
			WithDetail("fields", failed)
	}

	if v, ok := obj.(Validatable); ok {
		return v.Validate()
	}
	return nil
}
