package http

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/dmitrijs2005/papervault/internal/common"
	"github.com/dmitrijs2005/papervault/internal/server/auth"
)

const ownerIDKey = "ownerID"

// authRequired validates the bearer token and stores the owner id in the
// request context.
func authRequired(secretKey []byte) fiber.Handler {
	return func(c *fiber.Ctx) error {
		header := c.Get(common.AuthHeaderName)
		if header == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "missing authorization header"})
		}

		token, ok := strings.CutPrefix(header, common.AuthScheme+" ")
		if !ok {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "invalid authorization scheme"})
		}

		ownerID, err := auth.GetUserIDFromToken(token, secretKey)
		if err != nil || ownerID == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "invalid token"})
		}

		c.Locals(ownerIDKey, ownerID)
		return c.Next()
	}
}

func ownerID(c *fiber.Ctx) string {
	id, _ := c.Locals(ownerIDKey).(string)
	return id
}
