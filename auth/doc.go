/*
Package auth verifies the bearer tokens issued by the hosted identity
provider and exposes the caller's user id to handlers.

	tokens := auth.NewTokenService(auth.TokenConfig{
		Secret:   []byte(secret),
		Audience: "authenticated",
	})
	api := app.Group("/api/v1", auth.Middleware(tokens))

	func handler(c *fiber.Ctx) error {
		userID := auth.UserID(c)
		...
	}

Components below the HTTP layer take the user id as an explicit argument and
call RequireUser before doing any work.
*/
package auth
