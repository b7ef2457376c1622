/*
Package errx provides coded, typed errors that carry an HTTP status.

Each package declares its own registry and registers the codes it can return:

	var (
		ErrorRegistry = errx.NewRegistry("RX")

		CodeStorageFailed = ErrorRegistry.Register("STORAGE_FAILED", errx.TypeExternal,
			http.StatusBadGateway, "Image upload failed")
	)

	return ErrorRegistry.New(CodeStorageFailed).
		WithCause(err).
		WithDetail("user_id", userID)

Callers branch on codes with IsCode. Errors compose with errors.Is and
errors.As through Unwrap, and From turns any error into an *Error so HTTP
and log code has one shape to deal with.

FiberErrorHandler is installed as the fiber.Config ErrorHandler so handlers
can simply return a registered error.
*/
package errx
