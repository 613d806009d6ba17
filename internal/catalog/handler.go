package catalog

import (
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/storefrontlab/storefront-backend/internal/apperr"
	"github.com/storefrontlab/storefront-backend/internal/pricing"
)

// Handler exposes the catalog browse endpoints. Responses carry the
// derived final price so clients never compute discounts themselves.
type Handler struct {
	service ServiceInterface
}

func NewHandler(s ServiceInterface) *Handler {
	return &Handler{service: s}
}

func (h *Handler) RegisterPublicRoutes(app *fiber.App) {
	app.Get("/api/v1/variants", h.list)
	app.Get("/api/v1/variants/:id<[0-9]+>", h.getByID)
}

func (h *Handler) RegisterProtectedRoutes(app *fiber.App) {
	app.Post("/api/v1/admin/variants", h.create)
	app.Put("/api/v1/admin/variants/:id<[0-9]+>", h.update)
}

type variantView struct {
	Variant
	FinalPrice float64 `json:"finalPrice"`
}

func withFinalPrice(v Variant) variantView {
	return variantView{Variant: v, FinalPrice: pricing.Compute(v.UnitPrice, v.DiscountPct).FinalPrice}
}

func (h *Handler) list(c *fiber.Ctx) error {
	variants, err := h.service.List()
	if err != nil {
		return c.Status(apperr.HTTPStatus(err)).JSON(apperr.Envelope(err))
	}
	out := make([]variantView, 0, len(variants))
	for _, v := range variants {
		out = append(out, withFinalPrice(v))
	}
	return c.JSON(out)
}

func (h *Handler) getByID(c *fiber.Ctx) error {
	id, err := strconv.Atoi(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": "invalid variant id"})
	}
	v, err := h.service.GetByID(id)
	if err != nil {
		if err == ErrNotFound {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"message": "variant not found"})
		}
		return c.Status(apperr.HTTPStatus(err)).JSON(apperr.Envelope(err))
	}
	return c.JSON(withFinalPrice(v))
}

func (h *Handler) create(c *fiber.Ctx) error {
	payload := new(Variant)
	if err := c.BodyParser(payload); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": err.Error()})
	}
	if payload.ProductName == "" || payload.UnitPrice < 0 || payload.DiscountPct < 0 || payload.DiscountPct > 100 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": "invalid variant payload"})
	}
	created, err := h.service.Create(*payload)
	if err != nil {
		return c.Status(apperr.HTTPStatus(err)).JSON(apperr.Envelope(err))
	}
	return c.Status(fiber.StatusCreated).JSON(withFinalPrice(created))
}

func (h *Handler) update(c *fiber.Ctx) error {
	id, err := strconv.Atoi(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": "invalid variant id"})
	}
	payload := new(Variant)
	if err := c.BodyParser(payload); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": err.Error()})
	}
	updated, err := h.service.Update(id, *payload)
	if err != nil {
		if err == ErrNotFound {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"message": "variant not found"})
		}
		return c.Status(apperr.HTTPStatus(err)).JSON(apperr.Envelope(err))
	}
	return c.JSON(withFinalPrice(updated))
}
