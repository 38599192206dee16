package handlers

import (
	"errors"
	"strconv"

	"github.com/Sukanto01899/captcha-backend/internal/models"
	"github.com/Sukanto01899/captcha-backend/pkg/utils"
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

type UsersHandler struct {
	DB *gorm.DB
}

func NewUsersHandler(db *gorm.DB) *UsersHandler {
	return &UsersHandler{DB: db}
}

// Get returns the stored account snapshot. Unknown fids get the zero-state
// response rather than a 404 so first-time clients need no special casing.
func (h *UsersHandler) Get(c *fiber.Ctx) error {
	fid, err := strconv.ParseUint(c.Query("fid"), 10, 64)
	if err != nil || fid == 0 {
		return utils.Error(c, fiber.StatusBadRequest, "missing fid")
	}

	var user models.User
	dbErr := h.DB.Where("fid = ?", fid).First(&user).Error
	if errors.Is(dbErr, gorm.ErrRecordNotFound) {
		return utils.Success(c, fiber.StatusOK, fiber.Map{
			"fid":        fid,
			"onboarded":  false,
			"humanId":    nil,
			"points":     0,
			"humanScore": 0,
		})
	}
	if dbErr != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed to load user")
	}

	return utils.Success(c, fiber.StatusOK, fiber.Map{
		"fid":        user.Fid,
		"onboarded":  user.Onboarded,
		"humanId":    user.HumanID,
		"points":     user.Points,
		"humanScore": user.HumanScore,
	})
}
