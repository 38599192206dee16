package middleware

import (
	"strconv"
	"strings"

	"github.com/Sukanto01899/captcha-backend/pkg/logger"
	"github.com/Sukanto01899/captcha-backend/pkg/utils"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
)

const fidKey = "fid"

type AuthMiddleware struct {
	// AdminFid is the only identity allowed through AdminOnly.
	AdminFid uint64
	// AllowHeaderIdentity accepts a bare X-Fid header when no bearer token
	// is present. Development only; Config.Validate rejects it in
	// production.
	AllowHeaderIdentity bool
}

func NewAuthMiddleware(adminFid uint64, allowHeaderIdentity bool) *AuthMiddleware {
	return &AuthMiddleware{AdminFid: adminFid, AllowHeaderIdentity: allowHeaderIdentity}
}

func CORS() fiber.Handler {
	return cors.New(cors.Config{
		AllowOrigins: "*",
		AllowHeaders: "Origin, Content-Type, Accept, Authorization, X-Fid",
		AllowMethods: "GET,POST,PUT,OPTIONS",
	})
}

// RequireIdentity resolves the authenticated fid and stores it in locals.
// Failures are a flat unauthorized: the response never reveals whether a
// given fid exists.
func (a *AuthMiddleware) RequireIdentity(c *fiber.Ctx) error {
	fid, ok := a.resolveFid(c)
	if !ok {
		logger.Warn("identity_missing", map[string]interface{}{
			"ip":   c.IP(),
			"path": c.Path(),
		})
		return utils.Error(c, fiber.StatusUnauthorized, "unauthorized")
	}

	c.Locals(fidKey, fid)
	return c.Next()
}

// OptionalIdentity resolves the fid when credentials are present but lets
// anonymous requests through.
func (a *AuthMiddleware) OptionalIdentity(c *fiber.Ctx) error {
	if fid, ok := a.resolveFid(c); ok {
		c.Locals(fidKey, fid)
	}
	return c.Next()
}

func (a *AuthMiddleware) AdminOnly(c *fiber.Ctx) error {
	fid := GetFid(c)
	if fid == 0 || a.AdminFid == 0 || fid != a.AdminFid {
		return utils.Error(c, fiber.StatusUnauthorized, "unauthorized")
	}
	return c.Next()
}

func (a *AuthMiddleware) resolveFid(c *fiber.Ctx) (uint64, bool) {
	authHeader := c.Get("Authorization")
	if authHeader != "" {
		tokenString := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer"))
		if tokenString == authHeader || tokenString == "" {
			return 0, false
		}
		claims, err := utils.ValidateToken(tokenString)
		if err != nil {
			logger.Warn("jwt_validation_failed", map[string]interface{}{
				"ip":    c.IP(),
				"path":  c.Path(),
				"error": err.Error(),
			})
			return 0, false
		}
		return claims.Fid, true
	}

	if a.AllowHeaderIdentity {
		if raw := c.Get("X-Fid"); raw != "" {
			fid, err := strconv.ParseUint(strings.TrimSpace(raw), 10, 64)
			if err == nil && fid > 0 {
				return fid, true
			}
		}
	}

	return 0, false
}

// GetFid returns the authenticated fid set by RequireIdentity, or 0.
func GetFid(c *fiber.Ctx) uint64 {
	value := c.Locals(fidKey)
	if value == nil {
		return 0
	}
	fid, ok := value.(uint64)
	if !ok {
		return 0
	}
	return fid
}
