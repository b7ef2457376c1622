package errx

import (
	"errors"

	"github.com/gofiber/fiber/v2"
)

// ToFiber writes the error as its JSON body with its HTTP status
func (e *Error) ToFiber(c *fiber.Ctx) error {
	return c.Status(e.Status()).JSON(e)
}

// FiberErrorHandler renders errors returned by handlers. Routing errors from
// fiber keep their status under an HTTP_ code; anything unregistered is an
// opaque 500. onInternal sees every 5xx before it is written.
func FiberErrorHandler(onInternal func(c *fiber.Ctx, err error)) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		var ferr *fiber.Error
		if errors.As(err, &ferr) {
			return (&Error{
				Code:       Code("HTTP_" + httpCodeName(ferr.Code)),
				Type:       TypeBadRequest,
				Message:    ferr.Message,
				HTTPStatus: ferr.Code,
			}).ToFiber(c)
		}

		xerr := From(err)
		if onInternal != nil && xerr.Status() >= fiber.StatusInternalServerError {
			onInternal(c, err)
		}
		return xerr.ToFiber(c)
	}
}

func httpCodeName(status int) string {
	switch status {
	case fiber.StatusNotFound:
		return "NOT_FOUND"
	case fiber.StatusMethodNotAllowed:
		return "METHOD_NOT_ALLOWED"
	case fiber.StatusRequestEntityTooLarge:
		return "PAYLOAD_TOO_LARGE"
	case fiber.StatusBadRequest:
		return "BAD_REQUEST"
	default:
		return "ERROR"
	}
}
