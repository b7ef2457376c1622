package api

import (
	"errors"
	"time"

	"github.com/Abraxas-365/rxintake/auth"
	"github.com/Abraxas-365/rxintake/errx"
	"github.com/Abraxas-365/rxintake/logx"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
)

// BasePath prefixes every authenticated route
const BasePath = "/api/v1"

type ServerConfig struct {
	BodyLimit    int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		BodyLimit:    16 << 20,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 90 * time.Second,
	}
}

// NewServer builds the fiber app with error rendering, panic recovery,
// request logging, the public docs route and the authenticated API.
func NewServer(cfg ServerConfig, h *Handler, tokens *auth.TokenService) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:               "rxintake",
		BodyLimit:             cfg.BodyLimit,
		ReadTimeout:           cfg.ReadTimeout,
		WriteTimeout:          cfg.WriteTimeout,
		DisableStartupMessage: true,
		ErrorHandler: errx.FiberErrorHandler(func(c *fiber.Ctx, err error) {
			logx.Error("%s %s failed: %v", c.Method(), c.Path(), err)
		}),
	})

	app.Use(recover.New())
	app.Use(RequestLogger())

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})
	app.Get("/docs", Docs(BasePath).Handler())

	h.RegisterRoutes(app.Group(BasePath), tokens)
	return app
}

// RequestLogger writes one line per request once the handler chain returns
func RequestLogger() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()

		status := c.Response().StatusCode()
		if err != nil {
			status = errx.StatusOf(err)
			var ferr *fiber.Error
			if errors.As(err, &ferr) {
				status = ferr.Code
			}
		}

		elapsed := time.Since(start)
		switch {
		case status >= fiber.StatusInternalServerError:
			logx.Warn("%s %s -> %d (%s)", c.Method(), c.OriginalURL(), status, elapsed)
		default:
			logx.Debug("%s %s -> %d (%s)", c.Method(), c.OriginalURL(), status, elapsed)
		}
		return err
	}
}
