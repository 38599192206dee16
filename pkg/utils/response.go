package utils

import "github.com/gofiber/fiber/v2"

func Success(c *fiber.Ctx, status int, data interface{}) error {
	return c.Status(status).JSON(fiber.Map{
		"success": true,
		"data":    data,
	})
}

func Error(c *fiber.Ctx, status int, message string) error {
	return c.Status(status).JSON(fiber.Map{
		"success": false,
		"error":   message,
	})
}

// Ineligible reports a business-rule rejection. These are expected outcomes,
// not failures, so the status stays 200 and the reason is a stable code.
func Ineligible(c *fiber.Ctx, reason string) error {
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"eligible": false,
		"reason":   reason,
	})
}
