package errx

import (
	"fmt"
	"net/http"
)

// Registry holds the codes one package can return
type Registry struct {
	prefix string
	defs   map[Code]Error
}

func NewRegistry(prefix string) *Registry {
	return &Registry{prefix: prefix, defs: make(map[Code]Error)}
}

// Register declares PREFIX_code and returns the full code. Registering the
// same code twice panics; registries are filled from package vars.
func (r *Registry) Register(code Code, errType Type, httpStatus int, message string) Code {
	full := Code(r.prefix + "_" + string(code))
	if _, dup := r.defs[full]; dup {
		panic(fmt.Sprintf("errx: %s registered twice", full))
	}
	r.defs[full] = Error{Code: full, Type: errType, Message: message, HTTPStatus: httpStatus}
	return full
}

// New returns a fresh error for code. An unregistered code yields an internal
// error that names the code in its details.
func (r *Registry) New(code Code) *Error {
	def, ok := r.defs[code]
	if !ok {
		return (&Error{
			Code:       CodeInternal,
			Type:       TypeInternal,
			Message:    "An unexpected error occurred",
			HTTPStatus: http.StatusInternalServerError,
		}).WithDetail("unregistered_code", string(code))
	}
	return &def
}

func (r *Registry) NewWithMessage(code Code, message string) *Error {
	err := r.New(code)
	err.Message = message
	return err
}
