package api

import (
	"github.com/gofiber/fiber/v2"

	"github.com/Motaplivia/tudinhoo/internal/service"
)

func ListTasksHandler(svc *service.TaskService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		tasks, err := svc.ListTasks(c.UserContext(), currentUser(c))
		if err != nil {
			return err
		}
		return c.JSON(tasks)
	}
}

func CreateTaskHandler(svc *service.TaskService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var input service.TaskInput
		if err := c.BodyParser(&input); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Corpo da requisição inválido")
		}
		task, err := svc.CreateTask(c.UserContext(), currentUser(c), input)
		if err != nil {
			return err
		}
		return c.Status(fiber.StatusCreated).JSON(task)
	}
}

func GetTaskHandler(svc *service.TaskService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		task, err := svc.GetTask(c.UserContext(), currentUser(c), c.Params("id"))
		if err != nil {
			return err
		}
		return c.JSON(task)
	}
}

func UpdateTaskHandler(svc *service.TaskService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var input service.TaskInput
		if err := c.BodyParser(&input); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Corpo da requisição inválido")
		}
		task, err := svc.UpdateTask(c.UserContext(), currentUser(c), c.Params("id"), input)
		if err != nil {
			return err
		}
		return c.JSON(task)
	}
}

// SetCompletedHandler sets the flag from {"completed": bool}; an empty body toggles it.
func SetCompletedHandler(svc *service.TaskService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req struct {
			Completed *bool `json:"completed"`
		}
		if len(c.Body()) > 0 {
			if err := c.BodyParser(&req); err != nil {
				return fiber.NewError(fiber.StatusBadRequest, "Corpo da requisição inválido")
			}
		}

		ctx, userID, id := c.UserContext(), currentUser(c), c.Params("id")
		if req.Completed == nil {
			task, err := svc.ToggleCompleted(ctx, userID, id)
			if err != nil {
				return err
			}
			return c.JSON(task)
		}
		task, err := svc.SetCompleted(ctx, userID, id, *req.Completed)
		if err != nil {
			return err
		}
		return c.JSON(task)
	}
}

func DeleteTaskHandler(svc *service.TaskService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if err := svc.DeleteTask(c.UserContext(), currentUser(c), c.Params("id")); err != nil {
			return err
		}
		return c.SendStatus(fiber.StatusNoContent)
	}
}

func DashboardHandler(svc *service.TaskService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		dash, err := svc.Dashboard(c.UserContext(), currentUser(c))
		if err != nil {
			return err
		}
		return c.JSON(dash)
	}
}
