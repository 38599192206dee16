package middleware

import (
	"time"

	"github.com/Sukanto01899/captcha-backend/pkg/logger"
	"github.com/gofiber/fiber/v2"
)

func RequestLogger() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		requestID := logger.GenerateRequestID()
		c.Locals("requestID", requestID)

		err := c.Next()

		details := map[string]interface{}{
			"method":       c.Method(),
			"path":         c.Path(),
			"status_code":  c.Response().StatusCode(),
			"latency_ms":   time.Since(start).Milliseconds(),
			"ip":           c.IP(),
			"request_body": logger.GetRequestBodySummary(c),
			"request_id":   requestID,
		}

		fid := logger.GetFidFromContext(c)
		statusCode := c.Response().StatusCode()

		switch {
		case fid != nil && statusCode >= 400:
			logger.ErrorWithFid(*fid, "http_request", err, details)
		case fid != nil:
			logger.InfoWithFid(*fid, "http_request", details)
		case statusCode >= 400:
			logger.Error("http_request", err, details)
		default:
			logger.Info("http_request", details)
		}

		return err
	}
}
