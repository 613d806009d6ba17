package checkout

import (
	"github.com/gofiber/fiber/v2"

	"github.com/storefrontlab/storefront-backend/internal/apperr"
	"github.com/storefrontlab/storefront-backend/internal/user"
)

type Handler struct {
	service *Service
}

func NewHandler(s *Service) *Handler {
	return &Handler{service: s}
}

func (h *Handler) RegisterProtectedRoutes(app *fiber.App) {
	app.Post("/api/v1/checkout", h.begin)
	app.Post("/api/v1/checkout/verify", h.verify)
}

type beginRequest struct {
	PaymentMethod string `json:"paymentMethod"`
	AddressID     int    `json:"addressId"`
}

type verifyRequest struct {
	IntentID  string `json:"intentID"`
	PaymentID string `json:"paymentID"`
	Signature string `json:"signature"`
	AddressID int    `json:"addressId"`
}

func (h *Handler) begin(c *fiber.Ctx) error {
	userID, err := user.GetUserIDFromCtx(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"message": "unauthorized"})
	}
	payload := new(beginRequest)
	if err := c.BodyParser(payload); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": err.Error()})
	}

	res, err := h.service.BeginCheckout(userID, payload.PaymentMethod, payload.AddressID)
	if err != nil {
		return c.Status(apperr.HTTPStatus(err)).JSON(apperr.Envelope(err))
	}
	if res.Order != nil {
		return c.Status(fiber.StatusCreated).JSON(res)
	}
	return c.JSON(res)
}

func (h *Handler) verify(c *fiber.Ctx) error {
	userID, err := user.GetUserIDFromCtx(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"message": "unauthorized"})
	}
	payload := new(verifyRequest)
	if err := c.BodyParser(payload); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": err.Error()})
	}
	if payload.IntentID == "" || payload.PaymentID == "" || payload.Signature == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": "intentID, paymentID and signature are required"})
	}

	o, err := h.service.VerifyAndCommit(userID, payload.IntentID, payload.PaymentID, payload.Signature, payload.AddressID)
	if err != nil {
		return c.Status(apperr.HTTPStatus(err)).JSON(apperr.Envelope(err))
	}
	return c.Status(fiber.StatusCreated).JSON(o)
}
