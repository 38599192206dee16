package handlers

import (
	"context"
	"errors"
	"math/big"
	"time"

	"github.com/Sukanto01899/captcha-backend/internal/chain"
	"github.com/Sukanto01899/captcha-backend/internal/models"
	"github.com/Sukanto01899/captcha-backend/internal/reputation"
	"github.com/Sukanto01899/captcha-backend/pkg/logger"
	"github.com/Sukanto01899/captcha-backend/pkg/utils"
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

var weiPerEther = new(big.Float).SetFloat64(1e18)

type ScoreHandler struct {
	DB          *gorm.DB
	Provider    reputation.Provider
	Chain       chain.Reader
	ReadTimeout time.Duration
}

func NewScoreHandler(db *gorm.DB, provider reputation.Provider, reader chain.Reader, readTimeout time.Duration) *ScoreHandler {
	if readTimeout <= 0 {
		readTimeout = 15 * time.Second
	}
	return &ScoreHandler{DB: db, Provider: provider, Chain: reader, ReadTimeout: readTimeout}
}

type refreshScoreRequest struct {
	Fid           uint64 `json:"fid"`
	WalletAddress string `json:"walletAddress"`
}

// Refresh recomputes the reputation score from a fresh provider snapshot and
// upserts it. Individual signal lookups degrade to zero on failure; scoring
// itself never fails.
func (h *ScoreHandler) Refresh(c *fiber.Ctx) error {
	var req refreshScoreRequest
	if err := c.BodyParser(&req); err != nil || req.Fid == 0 {
		return utils.Error(c, fiber.StatusBadRequest, "missing fid")
	}

	profile := h.buildProfile(c.Context(), req.Fid, req.WalletAddress)
	score, breakdown := reputation.Score(profile)

	if err := h.upsertSnapshot(req.Fid, profile, score); err != nil {
		logger.ErrorWithFid(req.Fid, "score_upsert_failed", err, nil)
		return utils.Error(c, fiber.StatusInternalServerError, "failed to persist score")
	}

	return utils.Success(c, fiber.StatusOK, fiber.Map{
		"humanScore": score,
		"breakdown":  breakdown,
		"profile":    profile,
	})
}

func (h *ScoreHandler) buildProfile(ctx context.Context, fid uint64, walletAddress string) reputation.Profile {
	lookupCtx, cancel := context.WithTimeout(ctx, h.ReadTimeout)
	defer cancel()

	raw, err := h.Provider.Lookup(lookupCtx, fid)
	if err != nil {
		logger.WarnWithFid(fid, "profile_lookup_failed", map[string]interface{}{"error": err.Error()})
		raw = nil
	}

	profile := reputation.FromRaw(raw, time.Now())

	if addr, ok := parseAddress(walletAddress); ok {
		balanceCtx, cancelBalance := context.WithTimeout(ctx, h.ReadTimeout)
		defer cancelBalance()

		wei, err := h.Chain.NativeBalance(balanceCtx, addr)
		if err != nil {
			logger.WarnWithFid(fid, "balance_lookup_failed", map[string]interface{}{"error": err.Error()})
		} else if wei != nil {
			ether, _ := new(big.Float).Quo(new(big.Float).SetInt(wei), weiPerEther).Float64()
			profile.WalletBalance = ether
		}
	}

	return profile
}

func (h *ScoreHandler) upsertSnapshot(fid uint64, p reputation.Profile, score int) error {
	snapshot := map[string]interface{}{
		"human_score":      score,
		"followers":        p.Followers,
		"following":        p.Following,
		"posts":            p.Posts,
		"engagement":       p.Engagement,
		"comments":         p.Comments,
		"account_age_days": p.AccountAgeDays,
		"platform_trust":   p.PlatformTrust,
		"wallet_balance":   p.WalletBalance,
		"spam_label":       int(p.SpamLabel),
		"has_elite_badge":  p.HasEliteBadge,
	}

	var user models.User
	err := h.DB.Where("fid = ?", fid).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		user = models.User{
			Fid:            fid,
			HumanScore:     score,
			Followers:      p.Followers,
			Following:      p.Following,
			Posts:          p.Posts,
			Engagement:     p.Engagement,
			Comments:       p.Comments,
			AccountAgeDays: p.AccountAgeDays,
			PlatformTrust:  p.PlatformTrust,
			WalletBalance:  p.WalletBalance,
			SpamLabel:      int(p.SpamLabel),
			HasEliteBadge:  p.HasEliteBadge,
		}
		return h.DB.Create(&user).Error
	}
	if err != nil {
		return err
	}

	return h.DB.Model(&user).Updates(snapshot).Error
}
