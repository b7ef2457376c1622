// Package api exposes the intake flow over HTTP with fiber.
package api

import (
	"context"
	"strings"

	"github.com/Abraxas-365/rxintake/acquire"
	"github.com/Abraxas-365/rxintake/auth"
	"github.com/Abraxas-365/rxintake/intake"
	"github.com/Abraxas-365/rxintake/persist"
	"github.com/Abraxas-365/rxintake/prescription"
	"github.com/Abraxas-365/rxintake/storex"
	"github.com/Abraxas-365/rxintake/validatex"
	"github.com/gofiber/fiber/v2"
)

// ProfileReader returns what a user has saved
type ProfileReader interface {
	Profile(ctx context.Context, userID string, page storex.PageRequest) (persist.Profile, error)
}

var _ ProfileReader = (*persist.Gateway)(nil)

type Handler struct {
	svc      *intake.Service
	profiles ProfileReader
}

func NewHandler(svc *intake.Service, profiles ProfileReader) *Handler {
	return &Handler{svc: svc, profiles: profiles}
}

// RegisterRoutes mounts every route on router behind the bearer middleware
func (h *Handler) RegisterRoutes(router fiber.Router, tokens *auth.TokenService) {
	r := router.Group("", auth.Middleware(tokens))

	r.Post("/prescriptions", h.uploadPrescription)

	r.Post("/sessions", h.startManual)
	r.Get("/sessions/:id", h.getSession)
	r.Delete("/sessions/:id", h.discard)
	r.Post("/sessions/:id/symptoms", h.addSymptom)
	r.Delete("/sessions/:id/symptoms/:index", h.removeSymptom)
	r.Post("/sessions/:id/medicines", h.addMedicine)
	r.Patch("/sessions/:id/medicines/:index", h.editMedicine)
	r.Delete("/sessions/:id/medicines/:index", h.removeMedicine)
	r.Post("/sessions/:id/review", h.requestSave)
	r.Post("/sessions/:id/review/cancel", h.cancelSave)
	r.Post("/sessions/:id/confirm", h.confirm)
	r.Post("/sessions/:id/manual", h.fallbackToManual)

	r.Get("/profile", h.profile)
}

func session(c *fiber.Ctx, status int, v intake.View, err error) error {
	if err != nil {
		return err
	}
	return c.Status(status).JSON(SessionResponse{Session: v})
}

func bind(c *fiber.Ctx, dst any) error {
	if err := c.BodyParser(dst); err != nil {
		return validatex.ErrorRegistry.NewWithMessage(validatex.CodeInvalid, "Request body could not be read").
			WithCause(err)
	}
	return validatex.Validate(dst)
}

func index(c *fiber.Ctx) (int, error) {
	i, err := c.ParamsInt("index")
	if err != nil {
		return 0, prescription.ErrorRegistry.New(prescription.CodeIndexOutOfRange).
			WithDetail("index", c.Params("index"))
	}
	return i, nil
}

// uploadPrescription accepts a multipart "image" file or a JSON camera
// capture. With ?async=true it answers 202 while the extraction runs.
func (h *Handler) uploadPrescription(c *fiber.Ctx) error {
	var (
		img prescription.Image
		err error
	)
	if strings.HasPrefix(c.Get(fiber.HeaderContentType), fiber.MIMEMultipartForm) {
		fh, _ := c.FormFile("image")
		img, err = acquire.FromFile(fh)
	} else {
		var req ImageRequest
		if err := bind(c, &req); err != nil {
			return err
		}
		img, err = acquire.FromDataURL(req.Image)
	}
	if err != nil {
		return err
	}

	userID := auth.UserID(c)
	if c.QueryBool("async") {
		v, err := h.svc.BeginFromImage(c.UserContext(), userID, img)
		return session(c, fiber.StatusAccepted, v, err)
	}
	v, err := h.svc.StartFromImage(c.UserContext(), userID, img)
	return session(c, fiber.StatusCreated, v, err)
}

func (h *Handler) startManual(c *fiber.Ctx) error {
	v, err := h.svc.StartManual(c.UserContext(), auth.UserID(c))
	return session(c, fiber.StatusCreated, v, err)
}

func (h *Handler) getSession(c *fiber.Ctx) error {
	v, err := h.svc.Get(c.UserContext(), auth.UserID(c), c.Params("id"))
	return session(c, fiber.StatusOK, v, err)
}

func (h *Handler) discard(c *fiber.Ctx) error {
	if err := h.svc.Discard(c.UserContext(), auth.UserID(c), c.Params("id")); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (h *Handler) addSymptom(c *fiber.Ctx) error {
	var req SymptomRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	v, err := h.svc.AddSymptom(c.UserContext(), auth.UserID(c), c.Params("id"), req.Text)
	return session(c, fiber.StatusCreated, v, err)
}

func (h *Handler) removeSymptom(c *fiber.Ctx) error {
	i, err := index(c)
	if err != nil {
		return err
	}
	v, err := h.svc.RemoveSymptom(c.UserContext(), auth.UserID(c), c.Params("id"), i)
	return session(c, fiber.StatusOK, v, err)
}

func (h *Handler) addMedicine(c *fiber.Ctx) error {
	v, err := h.svc.AddMedicine(c.UserContext(), auth.UserID(c), c.Params("id"))
	return session(c, fiber.StatusCreated, v, err)
}

func (h *Handler) editMedicine(c *fiber.Ctx) error {
	i, err := index(c)
	if err != nil {
		return err
	}
	var req MedicineEditRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	v, err := h.svc.EditMedicine(c.UserContext(), auth.UserID(c), c.Params("id"), i,
		prescription.MedicineField(req.Field), req.Value)
	return session(c, fiber.StatusOK, v, err)
}

func (h *Handler) removeMedicine(c *fiber.Ctx) error {
	i, err := index(c)
	if err != nil {
		return err
	}
	v, err := h.svc.RemoveMedicine(c.UserContext(), auth.UserID(c), c.Params("id"), i)
	return session(c, fiber.StatusOK, v, err)
}

func (h *Handler) requestSave(c *fiber.Ctx) error {
	v, err := h.svc.RequestSave(c.UserContext(), auth.UserID(c), c.Params("id"))
	return session(c, fiber.StatusOK, v, err)
}

func (h *Handler) cancelSave(c *fiber.Ctx) error {
	v, err := h.svc.CancelSave(c.UserContext(), auth.UserID(c), c.Params("id"))
	return session(c, fiber.StatusOK, v, err)
}

func (h *Handler) confirm(c *fiber.Ctx) error {
	v, err := h.svc.Confirm(c.UserContext(), auth.UserID(c), c.Params("id"))
	return session(c, fiber.StatusOK, v, err)
}

func (h *Handler) fallbackToManual(c *fiber.Ctx) error {
	v, err := h.svc.FallbackToManual(c.UserContext(), auth.UserID(c), c.Params("id"))
	return session(c, fiber.StatusOK, v, err)
}

func (h *Handler) profile(c *fiber.Ctx) error {
	page := storex.PageRequest{Page: c.QueryInt("page", 1), PageSize: c.QueryInt("page_size", storex.DefaultPageSize)}
	p, err := h.profiles.Profile(c.UserContext(), auth.UserID(c), page)
	if err != nil {
		return err
	}
	return c.JSON(ProfileResponse{Profile: p})
}
