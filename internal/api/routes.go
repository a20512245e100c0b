package api

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func SetupRoutes(app *fiber.App, d Deps) {
	api := app.Group("/api")

	authGroup := api.Group("/auth")
	authGroup.Post("/register", RegisterHandler(d.Auth))
	authGroup.Post("/login", LoginHandler(d.Auth))
	authGroup.Post("/forgot-password", ForgotPasswordHandler(d.Auth))
	authGroup.Post("/reset-password", ResetPasswordHandler(d.Auth))
	authGroup.Post("/logout", AuthMiddleware(d.Auth), LogoutHandler(d.Auth))

	api.Get("/push/vapid-public-key", VapidPublicKeyHandler(d.VAPIDPublicKey))

	protected := api.Group("/", AuthMiddleware(d.Auth))

	tasks := protected.Group("/tasks")
	tasks.Get("/", ListTasksHandler(d.Tasks))
	tasks.Post("/", CreateTaskHandler(d.Tasks))
	tasks.Get("/:id", GetTaskHandler(d.Tasks))
	tasks.Put("/:id", UpdateTaskHandler(d.Tasks))
	tasks.Patch("/:id/completed", SetCompletedHandler(d.Tasks))
	tasks.Delete("/:id", DeleteTaskHandler(d.Tasks))

	protected.Get("/dashboard", DashboardHandler(d.Tasks))

	protected.Get("/profile", GetProfileHandler(d.Profiles))
	protected.Put("/profile", UpdateProfileHandler(d.Profiles))

	protected.Get("/preferences", GetPreferencesHandler(d.Preferences))
	protected.Put("/preferences", UpdatePreferencesHandler(d.Preferences))

	push := protected.Group("/push")
	push.Post("/subscribe", SubscribePushHandler(d.Push))
	push.Delete("/subscribe", UnsubscribePushHandler(d.Push))

	gatherer := d.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})
}
