package handlers

import (
	"errors"

	"github.com/Sukanto01899/captcha-backend/internal/airdrop"
	"github.com/Sukanto01899/captcha-backend/internal/config"
	"github.com/Sukanto01899/captcha-backend/internal/middleware"
	"github.com/Sukanto01899/captcha-backend/internal/models"
	"github.com/Sukanto01899/captcha-backend/pkg/logger"
	"github.com/Sukanto01899/captcha-backend/pkg/utils"
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

type AirdropHandler struct {
	DB       *gorm.DB
	Checker  *airdrop.Checker
	Fallback config.AirdropConfig
}

func NewAirdropHandler(db *gorm.DB, checker *airdrop.Checker, fallback config.AirdropConfig) *AirdropHandler {
	return &AirdropHandler{DB: db, Checker: checker, Fallback: fallback}
}

type eligibilityRequest struct {
	UserAddress string `json:"userAddress"`
	Fid         uint64 `json:"fid"`
}

// Eligibility runs the ordered airdrop checks for the authenticated fid and
// returns either a rejection reason or the signed voucher.
func (h *AirdropHandler) Eligibility(c *fiber.Ctx) error {
	authFid := middleware.GetFid(c)

	var req eligibilityRequest
	if err := c.BodyParser(&req); err != nil || req.UserAddress == "" {
		return utils.Error(c, fiber.StatusBadRequest, "invalid_input")
	}

	// A fid in the body must match the authenticated identity exactly.
	if req.Fid != 0 && req.Fid != authFid {
		return utils.Error(c, fiber.StatusUnauthorized, "fid_mismatch")
	}

	recipient, ok := parseAddress(req.UserAddress)
	if !ok {
		return utils.Error(c, fiber.StatusBadRequest, "invalid_address")
	}

	record, err := h.loadConfig()
	if err != nil {
		logger.ErrorWithFid(authFid, "airdrop_config_load_failed", err, nil)
		return utils.Error(c, fiber.StatusInternalServerError, "failed to load config")
	}

	score := 0
	var user models.User
	if dbErr := h.DB.Where("fid = ?", authFid).First(&user).Error; dbErr == nil {
		score = user.HumanScore
	}

	result, err := h.Checker.Check(c.Context(), airdrop.Request{
		Fid:       authFid,
		Recipient: recipient,
		Score:     score,
		Settings:  h.resolveSettings(record),
	})
	switch {
	case errors.Is(err, airdrop.ErrNotConfigured):
		return utils.Error(c, fiber.StatusServiceUnavailable, "not_configured")
	case errors.Is(err, airdrop.ErrChainRead):
		logger.ErrorWithFid(authFid, "airdrop_chain_read_failed", err, nil)
		return utils.Error(c, fiber.StatusBadGateway, "chain_unavailable")
	case err != nil:
		logger.ErrorWithFid(authFid, "airdrop_check_failed", err, nil)
		return utils.Error(c, fiber.StatusInternalServerError, "eligibility_check_failed")
	}

	if !result.Eligible {
		return utils.Ineligible(c, result.Reason)
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"eligible":    true,
		"signature":   result.Voucher.Signature,
		"fid":         result.Voucher.Fid,
		"nonce":       result.Voucher.Nonce,
		"amount":      result.Voucher.Amount,
		"burnPoints":  result.Voucher.BurnPoints,
		"humanScore":  result.Voucher.HumanScore,
		"deadline":    result.Voucher.Deadline,
		"contract":    result.Voucher.Contract,
		"pointsToken": result.Voucher.PointsToken,
	})
}

func (h *AirdropHandler) GetConfig(c *fiber.Ctx) error {
	record, err := h.loadConfig()
	if err != nil {
		logger.Error("airdrop_config_load_failed", err, nil)
		return utils.Error(c, fiber.StatusInternalServerError, "failed to load config")
	}
	return utils.Success(c, fiber.StatusOK, record)
}

type updateConfigRequest struct {
	TokenName        *string `json:"tokenName"`
	PoolAmount       *string `json:"poolAmount"`
	ClaimAmount      *string `json:"claimAmount"`
	MinPoints        *int64  `json:"minPoints"`
	MinScore         *int    `json:"minScore"`
	MaxClaimsPerUser *int    `json:"maxClaimsPerUser"`
	RequireHumanID   *bool   `json:"requireHumanId"`
	Paused           *bool   `json:"paused"`
}

// UpdateConfig partially updates the singleton config row. Admin only.
func (h *AirdropHandler) UpdateConfig(c *fiber.Ctx) error {
	adminFid := middleware.GetFid(c)

	var req updateConfigRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid_input")
	}

	updates := map[string]interface{}{"updated_by": adminFid}
	if req.TokenName != nil {
		updates["token_name"] = *req.TokenName
	}
	if req.PoolAmount != nil {
		updates["pool_amount"] = *req.PoolAmount
	}
	if req.ClaimAmount != nil {
		updates["claim_amount"] = *req.ClaimAmount
	}
	if req.MinPoints != nil {
		updates["min_points"] = *req.MinPoints
	}
	if req.MinScore != nil {
		updates["min_score"] = *req.MinScore
	}
	if req.MaxClaimsPerUser != nil {
		updates["max_claims_per_user"] = *req.MaxClaimsPerUser
	}
	if req.RequireHumanID != nil {
		updates["require_human_id"] = *req.RequireHumanID
	}
	if req.Paused != nil {
		updates["paused"] = *req.Paused
	}

	record, err := h.loadConfig()
	if err != nil {
		logger.ErrorWithFid(adminFid, "airdrop_config_load_failed", err, nil)
		return utils.Error(c, fiber.StatusInternalServerError, "failed to load config")
	}

	if err := h.DB.Model(record).Updates(updates).Error; err != nil {
		logger.ErrorWithFid(adminFid, "airdrop_config_update_failed", err, nil)
		return utils.Error(c, fiber.StatusInternalServerError, "failed to update config")
	}

	record, err = h.loadConfig()
	if err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed to load config")
	}
	return utils.Success(c, fiber.StatusOK, record)
}

// loadConfig fetches the singleton row, creating it when missing so callers
// always see a full record with defaults.
func (h *AirdropHandler) loadConfig() (*models.AirdropConfig, error) {
	var record models.AirdropConfig
	err := h.DB.Where("key = ?", models.AirdropConfigKey).First(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		record = models.AirdropConfig{
			Key:              models.AirdropConfigKey,
			PoolAmount:       "0",
			ClaimAmount:      "0",
			MaxClaimsPerUser: 1,
		}
		if createErr := h.DB.Create(&record).Error; createErr != nil {
			return nil, createErr
		}
		return &record, nil
	}
	if err != nil {
		return nil, err
	}
	return &record, nil
}

// resolveSettings merges the persisted record with environment fallbacks:
// the record wins wherever it carries a value.
func (h *AirdropHandler) resolveSettings(record *models.AirdropConfig) airdrop.Settings {
	settings := airdrop.Settings{
		ClaimAmount:    record.ClaimAmount,
		MinPoints:      record.MinPoints,
		MinScore:       record.MinScore,
		Paused:         record.Paused,
		RequireHumanID: record.RequireHumanID,
	}

	if settings.ClaimAmount == "" || settings.ClaimAmount == "0" {
		settings.ClaimAmount = h.Fallback.RewardAmount
	}
	if settings.MinPoints == 0 {
		settings.MinPoints = h.Fallback.MinPoints
	}
	if settings.MinScore == 0 {
		settings.MinScore = h.Fallback.MinScore
	}

	return settings
}
