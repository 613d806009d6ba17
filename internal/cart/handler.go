package cart

import (
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/storefrontlab/storefront-backend/internal/apperr"
	"github.com/storefrontlab/storefront-backend/internal/user"
)

// Handler delegates cart operations to the cart service. This keeps
// cart-specific HTTP routing isolated.
type Handler struct {
	service   *Service
	validator *Validator
}

func NewHandler(s *Service, v *Validator) *Handler {
	return &Handler{service: s, validator: v}
}

func (h *Handler) RegisterProtectedRoutes(app *fiber.App) {
	app.Get("/api/v1/cart", h.getCart)
	app.Get("/api/v1/cart/validate", h.validate)
	app.Post("/api/v1/cart/items", h.addItem)
	app.Put("/api/v1/cart/items/:variantID<[0-9]+>", h.updateItem)
	app.Delete("/api/v1/cart/items/:variantID<[0-9]+>", h.removeItem)
	app.Delete("/api/v1/cart", h.clear)
}

type itemRequest struct {
	VariantID int `json:"variantID"`
	Quantity  int `json:"quantity"`
}

func (h *Handler) getCart(c *fiber.Ctx) error {
	userID, err := user.GetUserIDFromCtx(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"message": "unauthorized"})
	}
	enriched, err := h.service.Read(userID)
	if err != nil {
		return c.Status(apperr.HTTPStatus(err)).JSON(apperr.Envelope(err))
	}
	return c.JSON(enriched)
}

func (h *Handler) validate(c *fiber.Ctx) error {
	userID, err := user.GetUserIDFromCtx(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"message": "unauthorized"})
	}
	// non-destructive: display-time validation never strips items
	res, err := h.validator.Validate(userID, false)
	if err != nil {
		return c.Status(apperr.HTTPStatus(err)).JSON(apperr.Envelope(err))
	}
	return c.JSON(res)
}

func (h *Handler) addItem(c *fiber.Ctx) error {
	payload := new(itemRequest)
	if err := c.BodyParser(payload); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": err.Error()})
	}
	if payload.VariantID <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": "invalid variantID"})
	}
	userID, err := user.GetUserIDFromCtx(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"message": "unauthorized"})
	}
	enriched, err := h.service.AddItem(userID, payload.VariantID, payload.Quantity)
	if err != nil {
		return c.Status(apperr.HTTPStatus(err)).JSON(apperr.Envelope(err))
	}
	return c.Status(fiber.StatusOK).JSON(enriched)
}

func (h *Handler) updateItem(c *fiber.Ctx) error {
	variantID, err := strconv.Atoi(c.Params("variantID"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": "invalid variantID"})
	}
	payload := new(itemRequest)
	if err := c.BodyParser(payload); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": err.Error()})
	}
	userID, err := user.GetUserIDFromCtx(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"message": "unauthorized"})
	}
	enriched, err := h.service.UpdateItem(userID, variantID, payload.Quantity)
	if err != nil {
		return c.Status(apperr.HTTPStatus(err)).JSON(apperr.Envelope(err))
	}
	return c.JSON(enriched)
}

func (h *Handler) removeItem(c *fiber.Ctx) error {
	variantID, err := strconv.Atoi(c.Params("variantID"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": "invalid variantID"})
	}
	userID, err := user.GetUserIDFromCtx(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"message": "unauthorized"})
	}
	enriched, err := h.service.RemoveItem(userID, variantID)
	if err != nil {
		return c.Status(apperr.HTTPStatus(err)).JSON(apperr.Envelope(err))
	}
	return c.JSON(enriched)
}

func (h *Handler) clear(c *fiber.Ctx) error {
	userID, err := user.GetUserIDFromCtx(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"message": "unauthorized"})
	}
	if err := h.service.Clear(userID); err != nil {
		return c.Status(apperr.HTTPStatus(err)).JSON(apperr.Envelope(err))
	}
	return c.JSON(fiber.Map{"message": "cart cleared"})
}
