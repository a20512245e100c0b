package api

import (
	"github.com/gofiber/fiber/v2"

	"github.com/Motaplivia/tudinhoo/internal/auth"
)

type registerRequest struct {
	Name            string `json:"name"`
	Email           string `json:"email"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirmPassword"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func RegisterHandler(svc *auth.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req registerRequest
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Corpo da requisição inválido")
		}
		session, err := svc.SignUp(c.UserContext(), req.Name, req.Email, req.Password, req.ConfirmPassword)
		if err != nil {
			return err
		}
		return c.Status(fiber.StatusCreated).JSON(session)
	}
}

func LoginHandler(svc *auth.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req loginRequest
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Corpo da requisição inválido")
		}
		session, err := svc.SignIn(c.UserContext(), req.Email, req.Password)
		if err != nil {
			return err
		}
		return c.JSON(session)
	}
}

func LogoutHandler(svc *auth.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		token, _ := c.Locals(localToken).(string)
		if err := svc.SignOut(c.UserContext(), token); err != nil {
			return err
		}
		return c.SendStatus(fiber.StatusNoContent)
	}
}

func ForgotPasswordHandler(svc *auth.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req struct {
			Email string `json:"email"`
		}
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Corpo da requisição inválido")
		}
		if err := svc.SendPasswordReset(c.UserContext(), req.Email); err != nil {
			return err
		}
		return c.Status(fiber.StatusAccepted).JSON(fiber.Map{
			"message": "Verifique sua caixa de entrada e siga as instruções para redefinir sua senha.",
		})
	}
}

func ResetPasswordHandler(svc *auth.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req struct {
			Token    string `json:"token"`
			Password string `json:"password"`
		}
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Corpo da requisição inválido")
		}
		if err := svc.ResetPassword(c.UserContext(), req.Token, req.Password); err != nil {
			return err
		}
		return c.SendStatus(fiber.StatusNoContent)
	}
}
