package api

import (
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/Motaplivia/tudinhoo/internal/auth"
)

const (
	localUserID = "userID"
	localToken  = "token"
)

// AuthMiddleware resolves the bearer token to a user id.
func AuthMiddleware(svc *auth.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		header := c.Get(fiber.HeaderAuthorization)
		if header == "" {
			return fiber.NewError(fiber.StatusUnauthorized, "Cabeçalho de autorização ausente")
		}

		parts := strings.Fields(header)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			return fiber.NewError(fiber.StatusUnauthorized, "Formato de autorização inválido")
		}

		userID, err := svc.CurrentUserID(c.UserContext(), parts[1])
		if err != nil {
			return err
		}

		c.Locals(localUserID, userID)
		c.Locals(localToken, parts[1])
		return c.Next()
	}
}

func currentUser(c *fiber.Ctx) uint {
	id, _ := c.Locals(localUserID).(uint)
	return id
}

func requestLogger(log *zap.SugaredLogger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()
		status := c.Response().StatusCode()
		if err != nil {
			if fe, ok := err.(*fiber.Error); ok {
				status = fe.Code
			}
		}
		log.Debugw("request", "method", c.Method(), "path", c.Path(), "status", status, "took", time.Since(start))
		return err
	}
}
