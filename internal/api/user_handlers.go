package api

import (
	"github.com/gofiber/fiber/v2"

	"github.com/Motaplivia/tudinhoo/internal/service"
)

func GetProfileHandler(svc *service.ProfileService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		profile, err := svc.Get(c.UserContext(), currentUser(c))
		if err != nil {
			return err
		}
		return c.JSON(profile)
	}
}

func UpdateProfileHandler(svc *service.ProfileService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req struct {
			Name string `json:"name"`
		}
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Corpo da requisição inválido")
		}
		profile, err := svc.UpdateName(c.UserContext(), currentUser(c), req.Name)
		if err != nil {
			return err
		}
		return c.JSON(profile)
	}
}

func GetPreferencesHandler(svc *service.PreferenceService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		prefs, err := svc.Get(c.UserContext(), currentUser(c))
		if err != nil {
			return err
		}
		return c.JSON(prefs)
	}
}

// UpdatePreferencesHandler applies whichever switches are present in the body.
func UpdatePreferencesHandler(svc *service.PreferenceService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req struct {
			DarkModeEnabled      *bool `json:"darkModeEnabled"`
			NotificationsEnabled *bool `json:"notificationsEnabled"`
		}
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Corpo da requisição inválido")
		}

		ctx, userID := c.UserContext(), currentUser(c)
		current, err := svc.Get(ctx, userID)
		if err != nil {
			return err
		}
		dark, notifications := current.DarkModeEnabled, current.NotificationsEnabled
		if req.DarkModeEnabled != nil {
			dark = *req.DarkModeEnabled
		}
		if req.NotificationsEnabled != nil {
			notifications = *req.NotificationsEnabled
		}

		prefs, err := svc.Set(ctx, userID, dark, notifications)
		if err != nil {
			return err
		}
		return c.JSON(prefs)
	}
}
