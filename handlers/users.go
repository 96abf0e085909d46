// handlers/users.go
package handlers

import (
	"rewards-dashboard/models"
	"rewards-dashboard/services"

	"github.com/gofiber/fiber/v2"
)

func pageFrom(c *fiber.Ctx) models.Page {
	return models.Page{Page: c.QueryInt("page", 1), Size: c.QueryInt("size", 20)}
}

// SetupUserRoutes registers wallet onboarding and the per-wallet dashboard views.
func SetupUserRoutes(api fiber.Router, svc *services.Services) {
	users := api.Group("/users")

	users.Post("/connect", func(c *fiber.Ctx) error {
		var req struct {
			WalletAddress string `json:"walletAddress"`
			ReferralCode  string `json:"referralCode"`
		}
		if err := c.BodyParser(&req); err != nil {
			return badBody(c, err)
		}
		res, err := svc.Users.Connect(c.UserContext(), req.WalletAddress, req.ReferralCode)
		if err != nil {
			return fail(c, err)
		}
		status := fiber.StatusOK
		if res.Created {
			status = fiber.StatusCreated
		}
		return c.Status(status).JSON(res)
	})

	users.Get("/:wallet", func(c *fiber.Ctx) error {
		u, err := svc.Users.Get(c.UserContext(), c.Params("wallet"))
		if err != nil {
			return fail(c, err)
		}
		return c.JSON(u)
	})

	users.Put("/:wallet/profile", func(c *fiber.Ctx) error {
		var patch models.ProfilePatch
		if err := c.BodyParser(&patch); err != nil {
			return badBody(c, err)
		}
		u, rc, err := svc.Users.UpdateProfile(c.UserContext(), c.Params("wallet"), patch)
		if err != nil {
			return fail(c, err)
		}
		return c.JSON(fiber.Map{
			"user":       u,
			"completion": services.ProfileCompletionOf(u),
			"receipt":    rc,
		})
	})

	users.Get("/:wallet/profile-completion", func(c *fiber.Ctx) error {
		pc, err := svc.Users.ProfileCompletion(c.UserContext(), c.Params("wallet"))
		if err != nil {
			return fail(c, err)
		}
		return c.JSON(pc)
	})

	users.Get("/:wallet/history", func(c *fiber.Ctx) error {
		res, err := svc.Users.History(c.UserContext(), c.Params("wallet"), pageFrom(c))
		if err != nil {
			return fail(c, err)
		}
		return c.JSON(res)
	})

	users.Get("/:wallet/referrals", func(c *fiber.Ctx) error {
		list, err := svc.Users.Referrals(c.UserContext(), c.Params("wallet"))
		if err != nil {
			return fail(c, err)
		}
		return c.JSON(fiber.Map{"referrals": list, "count": len(list)})
	})

	users.Post("/:wallet/referral", func(c *fiber.Ctx) error {
		var req struct {
			ReferralCode string `json:"referralCode"`
		}
		if err := c.BodyParser(&req); err != nil {
			return badBody(c, err)
		}
		res, err := svc.Users.ApplyReferral(c.UserContext(), c.Params("wallet"), req.ReferralCode)
		if err != nil {
			return fail(c, err)
		}
		return c.JSON(res)
	})

	users.Get("/:wallet/tasks", func(c *fiber.Ctx) error {
		views, err := svc.Tasks.ListForWallet(c.UserContext(), c.Params("wallet"))
		if err != nil {
			return fail(c, err)
		}
		return c.JSON(views)
	})

	users.Get("/:wallet/achievements", func(c *fiber.Ctx) error {
		views, err := svc.Achievements.ListForWallet(c.UserContext(), c.Params("wallet"))
		if err != nil {
			return fail(c, err)
		}
		return c.JSON(views)
	})

	users.Get("/:wallet/rank", func(c *fiber.Ctx) error {
		r, err := svc.Leaderboard.Rank(c.UserContext(), c.Params("wallet"))
		if err != nil {
			return fail(c, err)
		}
		return c.JSON(r)
	})
}
