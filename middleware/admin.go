// middleware/admin.go
package middleware

import (
	"github.com/gofiber/fiber/v2"
	log "github.com/sirupsen/logrus"
)

const (
	HeaderWallet   = "X-Wallet-Address"
	HeaderAdminKey = "X-Admin-Key"

	// LocalAdminWallet holds the wallet that passed AdminAuth, if any.
	LocalAdminWallet = "admin_wallet"
)

// AdminChecker decides whether a wallet or bypass key grants admin access.
type AdminChecker interface {
	IsAdmin(wallet, key string) bool
}

// AdminAuth guards every admin route. No credentials is 401, wrong credentials is 403.
func AdminAuth(checker AdminChecker) fiber.Handler {
	return func(c *fiber.Ctx) error {
		wallet := c.Get(HeaderWallet)
		key := c.Get(HeaderAdminKey)

		if wallet == "" && key == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "admin credentials required",
			})
		}
		if !checker.IsAdmin(wallet, key) {
			log.WithFields(log.Fields{
				"wallet": wallet,
				"path":   c.Path(),
				"ip":     c.IP(),
			}).Warn("❌ Admin access denied")
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
				"error": "not an admin",
			})
		}

		c.Locals(LocalAdminWallet, wallet)
		return c.Next()
	}
}
