// handlers/admin.go
package handlers

import (
	"rewards-dashboard/middleware"
	"rewards-dashboard/services"

	"github.com/gofiber/fiber/v2"
)

// SetupAdminRoutes registers /api/admin behind AdminAuth.
func SetupAdminRoutes(api fiber.Router, svc *services.Services) {
	admin := api.Group("/admin", middleware.AdminAuth(svc.Admin))

	admin.Get("/verify", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"admin":  true,
			"wallet": c.Locals(middleware.LocalAdminWallet),
		})
	})

	admin.Get("/stats", func(c *fiber.Ctx) error {
		stats, err := svc.Admin.Stats(c.UserContext())
		if err != nil {
			return fail(c, err)
		}
		return c.JSON(stats)
	})

	admin.Get("/users", func(c *fiber.Ctx) error {
		res, err := svc.Admin.ListUsers(c.UserContext(), pageFrom(c))
		if err != nil {
			return fail(c, err)
		}
		return c.JSON(res)
	})

	admin.Post("/users/:wallet/points", func(c *fiber.Ctx) error {
		var in services.GrantInput
		if err := c.BodyParser(&in); err != nil {
			return badBody(c, err)
		}
		u, rc, err := svc.Admin.GrantPoints(c.UserContext(), c.Params("wallet"), in)
		if err != nil {
			return fail(c, err)
		}
		return c.JSON(fiber.Map{"user": u, "receipt": rc})
	})

	// 📋 Tasks
	admin.Get("/tasks", func(c *fiber.Ctx) error {
		tasks, err := svc.Tasks.ListAll(c.UserContext())
		if err != nil {
			return fail(c, err)
		}
		return c.JSON(tasks)
	})

	admin.Post("/tasks", func(c *fiber.Ctx) error {
		var in services.TaskInput
		if err := c.BodyParser(&in); err != nil {
			return badBody(c, err)
		}
		t, err := svc.Tasks.Create(c.UserContext(), in)
		if err != nil {
			return fail(c, err)
		}
		return c.Status(fiber.StatusCreated).JSON(t)
	})

	admin.Put("/tasks/:id", func(c *fiber.Ctx) error {
		var patch services.TaskPatch
		if err := c.BodyParser(&patch); err != nil {
			return badBody(c, err)
		}
		t, err := svc.Tasks.Update(c.UserContext(), c.Params("id"), patch)
		if err != nil {
			return fail(c, err)
		}
		return c.JSON(t)
	})

	admin.Delete("/tasks/:id", func(c *fiber.Ctx) error {
		if err := svc.Tasks.Delete(c.UserContext(), c.Params("id")); err != nil {
			return fail(c, err)
		}
		return c.SendStatus(fiber.StatusNoContent)
	})

	admin.Post("/tasks/:id/image", func(c *fiber.Ctx) error {
		fh, err := c.FormFile("image")
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "image file is required",
				"cause": err.Error(),
			})
		}
		t, err := svc.Tasks.UploadImage(c.UserContext(), c.Params("id"), fh)
		if err != nil {
			return fail(c, err)
		}
		return c.JSON(t)
	})

	// 🎖️ Achievements
	admin.Get("/achievements", func(c *fiber.Ctx) error {
		list, err := svc.Achievements.ListAll(c.UserContext())
		if err != nil {
			return fail(c, err)
		}
		return c.JSON(list)
	})

	admin.Post("/achievements", func(c *fiber.Ctx) error {
		var in services.AchievementInput
		if err := c.BodyParser(&in); err != nil {
			return badBody(c, err)
		}
		a, err := svc.Achievements.Create(c.UserContext(), in)
		if err != nil {
			return fail(c, err)
		}
		return c.Status(fiber.StatusCreated).JSON(a)
	})

	admin.Put("/achievements/:id", func(c *fiber.Ctx) error {
		var patch services.AchievementPatch
		if err := c.BodyParser(&patch); err != nil {
			return badBody(c, err)
		}
		a, err := svc.Achievements.Update(c.UserContext(), c.Params("id"), patch)
		if err != nil {
			return fail(c, err)
		}
		return c.JSON(a)
	})

	admin.Delete("/achievements/:id", func(c *fiber.Ctx) error {
		if err := svc.Achievements.Delete(c.UserContext(), c.Params("id")); err != nil {
			return fail(c, err)
		}
		return c.SendStatus(fiber.StatusNoContent)
	})

	admin.Post("/achievements/:id/image", func(c *fiber.Ctx) error {
		fh, err := c.FormFile("image")
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "image file is required",
				"cause": err.Error(),
			})
		}
		a, err := svc.Achievements.UploadImage(c.UserContext(), c.Params("id"), fh)
		if err != nil {
			return fail(c, err)
		}
		return c.JSON(a)
	})

	// 💬 Feedback and 🎰 lottery
	admin.Get("/opinions", func(c *fiber.Ctx) error {
		res, err := svc.Opinions.List(c.UserContext(), pageFrom(c))
		if err != nil {
			return fail(c, err)
		}
		return c.JSON(res)
	})

	admin.Post("/lottery/draw", func(c *fiber.Ctx) error {
		winners, err := svc.Lottery.Draw(c.UserContext())
		if err != nil {
			return fail(c, err)
		}
		return c.Status(fiber.StatusCreated).JSON(winners)
	})

	admin.Get("/lottery/winners", func(c *fiber.Ctx) error {
		winners, err := svc.Lottery.Winners(c.UserContext(), c.QueryInt("limit", 50))
		if err != nil {
			return fail(c, err)
		}
		return c.JSON(winners)
	})
}
