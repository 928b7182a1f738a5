package handlers

import (
	"github.com/gofiber/fiber/v2"
	"golang.org/x/crypto/bcrypt"

	applog "b2bcatalog/internal/log"
)

// RequireAdminKey guards mutating admin routes with the X-Admin-Key header,
// checked against a bcrypt hash. With no hash configured the routes are open.
func RequireAdminKey(hash string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if hash == "" {
			return c.Next()
		}
		key := c.Get("X-Admin-Key")
		if key == "" || bcrypt.CompareHashAndPassword([]byte(hash), []byte(key)) != nil {
			applog.Security(c, "access.denied.admin", nil)
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "admin key required"})
		}
		return c.Next()
	}
}
