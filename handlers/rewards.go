package handlers

import (
	"rewards-dashboard/services"

	"github.com/gofiber/fiber/v2"
)

type walletRequest struct {
	WalletAddress string `json:"walletAddress"`
}

// SetupRewardRoutes registers the points-earning endpoints and public boards.
func SetupRewardRoutes(api fiber.Router, svc *services.Services) {
	// 📋 Tasks
	api.Get("/tasks", func(c *fiber.Ctx) error {
		tasks, err := svc.Tasks.ListActive(c.UserContext())
		if err != nil {
			return fail(c, err)
		}
		return c.JSON(tasks)
	})

	api.Post("/tasks/complete", func(c *fiber.Ctx) error {
		var req struct {
			WalletAddress string `json:"walletAddress"`
			TaskID        string `json:"taskId"`
		}
		if err := c.BodyParser(&req); err != nil {
			return badBody(c, err)
		}
		res, err := svc.Tasks.Complete(c.UserContext(), req.WalletAddress, req.TaskID)
		if err != nil {
			return fail(c, err)
		}
		return c.JSON(res)
	})

	// 📅 Daily check-in
	api.Post("/checkin", func(c *fiber.Ctx) error {
		var req walletRequest
		if err := c.BodyParser(&req); err != nil {
			return badBody(c, err)
		}
		res, err := svc.CheckIns.CheckIn(c.UserContext(), req.WalletAddress)
		if err != nil {
			return fail(c, err)
		}
		return c.JSON(res)
	})

	api.Get("/checkin/:wallet", func(c *fiber.Ctx) error {
		st, err := svc.CheckIns.Status(c.UserContext(), c.Params("wallet"))
		if err != nil {
			return fail(c, err)
		}
		return c.JSON(st)
	})

	// 🏆 Boards
	api.Get("/leaderboard", func(c *fiber.Ctx) error {
		entries, err := svc.Leaderboard.Top(c.UserContext(), c.QueryInt("limit", services.DefaultLeaderboardLimit))
		if err != nil {
			return fail(c, err)
		}
		return c.JSON(entries)
	})

	api.Get("/achievements", func(c *fiber.Ctx) error {
		list, err := svc.Achievements.List(c.UserContext())
		if err != nil {
			return fail(c, err)
		}
		return c.JSON(list)
	})

	api.Get("/lottery/winners", func(c *fiber.Ctx) error {
		winners, err := svc.Lottery.Winners(c.UserContext(), c.QueryInt("limit", 20))
		if err != nil {
			return fail(c, err)
		}
		return c.JSON(winners)
	})

	api.Post("/opinions", func(c *fiber.Ctx) error {
		var in services.OpinionInput
		if err := c.BodyParser(&in); err != nil {
			return badBody(c, err)
		}
		o, err := svc.Opinions.Submit(c.UserContext(), in)
		if err != nil {
			return fail(c, err)
		}
		return c.Status(fiber.StatusCreated).JSON(o)
	})
}

// SetupExtensionRoutes registers the browser extension's server-side endpoints.
func SetupExtensionRoutes(api fiber.Router, ext *services.ExtensionService) {
	g := api.Group("/extension")

	g.Post("/connect", func(c *fiber.Ctx) error {
		var req walletRequest
		if err := c.BodyParser(&req); err != nil {
			return badBody(c, err)
		}
		session, err := ext.Connect(c.UserContext(), req.WalletAddress)
		if err != nil {
			return fail(c, err)
		}
		return c.Status(fiber.StatusCreated).JSON(session)
	})

	g.Post("/toggle", func(c *fiber.Ctx) error {
		var req struct {
			WalletAddress string `json:"walletAddress"`
			Enabled       *bool  `json:"enabled"`
		}
		if err := c.BodyParser(&req); err != nil {
			return badBody(c, err)
		}
		if req.Enabled == nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "enabled is required"})
		}
		res, err := ext.Toggle(c.UserContext(), req.WalletAddress, *req.Enabled)
		if err != nil {
			return fail(c, err)
		}
		return c.JSON(res)
	})

	g.Post("/sync", func(c *fiber.Ctx) error {
		var req walletRequest
		if err := c.BodyParser(&req); err != nil {
			return badBody(c, err)
		}
		res, err := ext.Sync(c.UserContext(), req.WalletAddress)
		if err != nil {
			return fail(c, err)
		}
		return c.JSON(res)
	})
}
