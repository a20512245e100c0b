package api

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/Motaplivia/tudinhoo/internal/model"
)

// subscriptionRequest mirrors the browser's PushSubscription.toJSON().
type subscriptionRequest struct {
	Endpoint string `json:"endpoint"`
	Keys     struct {
		P256dh string `json:"p256dh"`
		Auth   string `json:"auth"`
	} `json:"keys"`
}

func VapidPublicKeyHandler(publicKey string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if publicKey == "" {
			return fiber.NewError(fiber.StatusNotFound, "Notificações push não configuradas")
		}
		return c.JSON(fiber.Map{"publicKey": publicKey})
	}
}

func SubscribePushHandler(store PushStore) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req subscriptionRequest
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Corpo da requisição inválido")
		}
		if strings.TrimSpace(req.Endpoint) == "" || req.Keys.P256dh == "" || req.Keys.Auth == "" {
			return fiber.NewError(fiber.StatusBadRequest, "Assinatura push incompleta")
		}

		sub := &model.PushSubscription{
			UserID:   currentUser(c),
			Endpoint: req.Endpoint,
			P256dh:   req.Keys.P256dh,
			Auth:     req.Keys.Auth,
		}
		if err := store.Save(c.UserContext(), sub); err != nil {
			return err
		}
		return c.Status(fiber.StatusCreated).JSON(fiber.Map{"success": true})
	}
}

func UnsubscribePushHandler(store PushStore) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req struct {
			Endpoint string `json:"endpoint"`
		}
		if err := c.BodyParser(&req); err != nil || req.Endpoint == "" {
			return fiber.NewError(fiber.StatusBadRequest, "Endpoint ausente")
		}
		if err := store.Unsubscribe(c.UserContext(), currentUser(c), req.Endpoint); err != nil {
			return err
		}
		return c.SendStatus(fiber.StatusNoContent)
	}
}
