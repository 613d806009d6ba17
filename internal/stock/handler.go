package stock

import (
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/storefrontlab/storefront-backend/internal/apperr"
)

type Handler struct {
	service ServiceInterface
}

func NewHandler(s ServiceInterface) *Handler {
	return &Handler{service: s}
}

func (h *Handler) RegisterProtectedRoutes(app *fiber.App) {
	app.Post("/api/v1/admin/stock/adjust", h.adjust)
	app.Get("/api/v1/admin/stock/low", h.lowStock)
	app.Get("/api/v1/admin/stock/movements", h.movements)
}

type adjustRequest struct {
	VariantID int    `json:"variantID"`
	Delta     int    `json:"delta"`
	Note      string `json:"note,omitempty"`
}

func (h *Handler) adjust(c *fiber.Ctx) error {
	payload := new(adjustRequest)
	if err := c.BodyParser(payload); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": err.Error()})
	}
	if payload.VariantID <= 0 || payload.Delta == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": "variantID and a non-zero delta are required"})
	}
	m, err := h.service.Adjust(payload.VariantID, payload.Delta, payload.Note)
	if err != nil {
		return c.Status(apperr.HTTPStatus(err)).JSON(apperr.Envelope(err))
	}
	return c.JSON(m)
}

func (h *Handler) lowStock(c *fiber.Ctx) error {
	variants, err := h.service.LowStock()
	if err != nil {
		return c.Status(apperr.HTTPStatus(err)).JSON(apperr.Envelope(err))
	}
	return c.JSON(variants)
}

func (h *Handler) movements(c *fiber.Ctx) error {
	variantID, _ := strconv.Atoi(c.Query("variantID", "0"))
	limit, _ := strconv.Atoi(c.Query("limit", "100"))
	out, err := h.service.Movements(variantID, limit)
	if err != nil {
		return c.Status(apperr.HTTPStatus(err)).JSON(apperr.Envelope(err))
	}
	return c.JSON(out)
}
