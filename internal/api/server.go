package api

import (
	"context"
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/Motaplivia/tudinhoo/internal/auth"
	"github.com/Motaplivia/tudinhoo/internal/model"
	"github.com/Motaplivia/tudinhoo/internal/service"
)

// PushStore keeps web-push subscriptions.
type PushStore interface {
	Save(ctx context.Context, sub *model.PushSubscription) error
	Unsubscribe(ctx context.Context, userID uint, endpoint string) error
}

// Deps are the collaborators behind the HTTP surface.
type Deps struct {
	Auth           *auth.Service
	Tasks          *service.TaskService
	Profiles       *service.ProfileService
	Preferences    *service.PreferenceService
	Push           PushStore
	VAPIDPublicKey string
	Gatherer       prometheus.Gatherer
	Log            *zap.SugaredLogger
}

// Server is the REST API.
type Server struct {
	app *fiber.App
	log *zap.SugaredLogger
}

func New(d Deps) *Server {
	log := d.Log.With("component", "api")
	app := fiber.New(fiber.Config{
		AppName:               "tudinho",
		DisableStartupMessage: true,
		ReadTimeout:           15 * time.Second,
		WriteTimeout:          15 * time.Second,
		ErrorHandler:          errorHandler(log),
	})
	app.Use(recover.New())
	app.Use(requestLogger(log))

	SetupRoutes(app, d)
	return &Server{app: app, log: log}
}

// App exposes the fiber app, mostly for tests.
func (s *Server) App() *fiber.App {
	return s.app
}

// Listen blocks until the server stops. A clean shutdown returns nil.
func (s *Server) Listen(addr string) error {
	s.log.Infow("http server listening", "addr", addr)
	return s.app.Listen(addr)
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.app.ShutdownWithContext(ctx)
}

const genericError = "Ocorreu um erro inesperado"

func errorHandler(log *zap.SugaredLogger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		code, msg := classify(err)
		if code == fiber.StatusInternalServerError {
			log.Errorw("request failed", "method", c.Method(), "path", c.Path(), "error", err)
		}
		return c.Status(code).JSON(fiber.Map{"error": msg})
	}
}

func classify(err error) (int, string) {
	var fe *fiber.Error
	if errors.As(err, &fe) {
		return fe.Code, fe.Message
	}

	var verr *service.ValidationError
	if errors.As(err, &verr) {
		return fiber.StatusBadRequest, verr.Message
	}

	switch {
	case errors.Is(err, service.ErrTaskNotFound):
		return fiber.StatusNotFound, "Tarefa não encontrada"
	case errors.Is(err, service.ErrUserNotFound):
		return fiber.StatusNotFound, "Usuário não encontrado"
	case errors.Is(err, auth.ErrInvalidSession):
		return fiber.StatusUnauthorized, auth.Message(err)
	}

	var aerr *auth.Error
	if !errors.As(err, &aerr) {
		return fiber.StatusInternalServerError, genericError
	}
	switch aerr.Code {
	case auth.CodeEmailInUse:
		return fiber.StatusConflict, auth.Message(err)
	case auth.CodeUserNotFound:
		if aerr.Op == auth.OpPasswordReset {
			return fiber.StatusNotFound, auth.Message(err)
		}
		return fiber.StatusUnauthorized, auth.Message(err)
	case auth.CodeWrongPassword:
		return fiber.StatusUnauthorized, auth.Message(err)
	case auth.CodeTooManyRequests:
		return fiber.StatusTooManyRequests, auth.Message(err)
	default:
		return fiber.StatusBadRequest, auth.Message(err)
	}
}
