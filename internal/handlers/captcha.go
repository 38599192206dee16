package handlers

import (
	"errors"
	"fmt"
	"time"

	"github.com/Sukanto01899/captcha-backend/internal/captcha"
	"github.com/Sukanto01899/captcha-backend/internal/claims"
	"github.com/Sukanto01899/captcha-backend/internal/middleware"
	"github.com/Sukanto01899/captcha-backend/internal/models"
	"github.com/Sukanto01899/captcha-backend/pkg/logger"
	"github.com/Sukanto01899/captcha-backend/pkg/utils"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type CaptchaHandler struct {
	DB      *gorm.DB
	Engine  *captcha.Engine
	Markers claims.Store
}

func NewCaptchaHandler(db *gorm.DB, engine *captcha.Engine, markers claims.Store) *CaptchaHandler {
	return &CaptchaHandler{DB: db, Engine: engine, Markers: markers}
}

// Issue returns a fresh challenge. Nothing is stored server-side; the token
// in the response is the entire verification state.
func (h *CaptchaHandler) Issue(c *fiber.Ctx) error {
	variant := captcha.ParseVariant(c.Query("variant"))

	challenge, err := h.Engine.Issue(variant)
	if err != nil {
		logger.Error("captcha_issue_failed", err, nil)
		return utils.Error(c, fiber.StatusInternalServerError, "failed to issue challenge")
	}

	return utils.Success(c, fiber.StatusOK, fiber.Map{"challenge": challenge})
}

type verifyCaptchaRequest struct {
	ID      string `json:"id"`
	Token   string `json:"token"`
	Answer  string `json:"answer"`
	Address string `json:"address"`
}

// Verify checks the claimed answer against the issued token. On success it
// mints a human id, upserts the account record for an authenticated caller,
// and stores the one-shot claim marker that the points-voucher path consumes.
func (h *CaptchaHandler) Verify(c *fiber.Ctx) error {
	var req verifyCaptchaRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"ok": false, "error": "missing_fields"})
	}
	if req.ID == "" || req.Token == "" || req.Answer == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"ok": false, "error": "missing_fields"})
	}

	ok, reason := h.Engine.Verify(req.ID, req.Token, req.Answer)
	if !ok {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"ok": false, "error": string(reason)})
	}

	mintedAt := time.Now().UnixMilli()
	humanID := mintHumanID(req.ID, mintedAt)

	response := fiber.Map{
		"ok":       true,
		"humanId":  humanID,
		"mintedAt": mintedAt,
	}

	if fid := middleware.GetFid(c); fid > 0 {
		if err := h.recordVerification(c, fid, humanID); err != nil {
			logger.ErrorWithFid(fid, "captcha_record_failed", err, nil)
			return utils.Error(c, fiber.StatusInternalServerError, "failed to record verification")
		}

		if addr, addrOK := parseAddress(req.Address); addrOK {
			claimToken := uuid.New().String()
			marker := claims.Marker{Token: claimToken, Address: addr.Hex()}
			if err := h.Markers.Put(c.Context(), fid, marker); err != nil {
				logger.ErrorWithFid(fid, "claim_marker_store_failed", err, nil)
				return utils.Error(c, fiber.StatusBadGateway, "failed to store claim marker")
			}
			response["claimToken"] = claimToken
		}
	}

	return c.Status(fiber.StatusOK).JSON(response)
}

func (h *CaptchaHandler) recordVerification(c *fiber.Ctx, fid uint64, humanID string) error {
	var user models.User
	err := h.DB.Where("fid = ?", fid).First(&user).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		user = models.User{Fid: fid, Onboarded: true, HumanID: &humanID}
		return h.DB.Create(&user).Error
	case err != nil:
		return err
	}

	updates := map[string]interface{}{"onboarded": true}
	if user.HumanID == nil {
		updates["human_id"] = humanID
	}
	return h.DB.Model(&user).Updates(updates).Error
}

// mintHumanID derives the badge string shown to the user: four characters of
// the challenge id plus the trailing digits of the mint timestamp.
func mintHumanID(challengeID string, mintedAt int64) string {
	prefix := challengeID
	if len(prefix) > 4 {
		prefix = prefix[:4]
	}
	ms := fmt.Sprintf("%d", mintedAt)
	if len(ms) > 6 {
		ms = ms[len(ms)-6:]
	}
	return fmt.Sprintf("HUM-%s-%s", prefix, ms)
}
