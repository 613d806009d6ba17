package order

import (
	"github.com/gofiber/fiber/v2"

	"github.com/storefrontlab/storefront-backend/internal/apperr"
	"github.com/storefrontlab/storefront-backend/internal/user"
)

// Handler exposes order lookup, customer cancellation and the admin
// status transition endpoint.
type Handler struct {
	service *Service
}

func NewHandler(s *Service) *Handler {
	return &Handler{service: s}
}

func (h *Handler) RegisterProtectedRoutes(app *fiber.App) {
	app.Get("/api/v1/orders", h.listOrders)
	app.Get("/api/v1/orders/:number", h.getOrder)
	app.Post("/api/v1/orders/:number/cancel", h.cancelOrder)
	app.Put("/api/v1/admin/orders/:number/status", h.updateStatus)
}

func (h *Handler) listOrders(c *fiber.Ctx) error {
	userID, err := user.GetUserIDFromCtx(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"message": "unauthorized"})
	}
	orders, err := h.service.ListByUser(userID)
	if err != nil {
		return c.Status(apperr.HTTPStatus(err)).JSON(apperr.Envelope(err))
	}
	return c.JSON(orders)
}

func (h *Handler) getOrder(c *fiber.Ctx) error {
	userID, err := user.GetUserIDFromCtx(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"message": "unauthorized"})
	}
	o, err := h.service.GetForUser(userID, c.Params("number"))
	if err != nil {
		return c.Status(apperr.HTTPStatus(err)).JSON(apperr.Envelope(err))
	}
	return c.JSON(o)
}

type cancelRequest struct {
	Note string `json:"note,omitempty"`
}

func (h *Handler) cancelOrder(c *fiber.Ctx) error {
	userID, err := user.GetUserIDFromCtx(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"message": "unauthorized"})
	}
	payload := new(cancelRequest)
	// body is optional for cancellation
	_ = c.BodyParser(payload)

	o, err := h.service.Cancel(userID, c.Params("number"), payload.Note)
	if err != nil {
		return c.Status(apperr.HTTPStatus(err)).JSON(apperr.Envelope(err))
	}
	return c.JSON(o)
}

type statusRequest struct {
	Status string `json:"status"`
	Note   string `json:"note,omitempty"`
}

func (h *Handler) updateStatus(c *fiber.Ctx) error {
	if _, err := user.GetUserIDFromCtx(c); err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"message": "unauthorized"})
	}
	payload := new(statusRequest)
	if err := c.BodyParser(payload); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": err.Error()})
	}
	if payload.Status == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": "status is required"})
	}
	o, err := h.service.Transition(c.Params("number"), Status(payload.Status), "admin", payload.Note)
	if err != nil {
		return c.Status(apperr.HTTPStatus(err)).JSON(apperr.Envelope(err))
	}
	return c.JSON(o)
}
