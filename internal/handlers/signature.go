package handlers

import (
	"errors"
	"math/big"
	"strings"
	"time"

	"github.com/Sukanto01899/captcha-backend/internal/chain"
	"github.com/Sukanto01899/captcha-backend/internal/claims"
	"github.com/Sukanto01899/captcha-backend/internal/middleware"
	"github.com/Sukanto01899/captcha-backend/internal/signer"
	"github.com/Sukanto01899/captcha-backend/pkg/logger"
	"github.com/Sukanto01899/captcha-backend/pkg/utils"
	"github.com/ethereum/go-ethereum/common"
	"github.com/gofiber/fiber/v2"
	"golang.org/x/sync/errgroup"
)

// defaultPointsAmount is 100 tokens in base units, used when POINTS_AMOUNT
// is not configured.
var defaultPointsAmount = new(big.Int).Mul(big.NewInt(100), new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil))

type SignatureHandler struct {
	Markers      claims.Store
	Chain        chain.Reader
	Signer       *signer.Signer
	Contract     common.Address
	PointsAmount string
	now          func() time.Time
}

func NewSignatureHandler(markers claims.Store, reader chain.Reader, s *signer.Signer, contract common.Address, pointsAmount string) *SignatureHandler {
	return &SignatureHandler{
		Markers:      markers,
		Chain:        reader,
		Signer:       s,
		Contract:     contract,
		PointsAmount: pointsAmount,
		now:          time.Now,
	}
}

// WithNow overrides the clock. Tests only.
func (h *SignatureHandler) WithNow(now func() time.Time) *SignatureHandler {
	h.now = now
	return h
}

type pointsClaimRequest struct {
	UserAddress string `json:"userAddress"`
	ClaimToken  string `json:"claimToken"`
}

// PointsClaim exchanges a one-shot claim marker for a signed points voucher.
// The marker must match both the token and the recipient it was bound to,
// and the on-chain cooldown must have elapsed. Signing is the only effectful
// step and runs last; the marker is consumed only after a signature exists.
func (h *SignatureHandler) PointsClaim(c *fiber.Ctx) error {
	fid := middleware.GetFid(c)

	var req pointsClaimRequest
	if err := c.BodyParser(&req); err != nil || req.UserAddress == "" || req.ClaimToken == "" {
		return utils.Error(c, fiber.StatusBadRequest, "invalid_input")
	}

	recipient, ok := parseAddress(req.UserAddress)
	if !ok {
		return utils.Error(c, fiber.StatusBadRequest, "invalid_address")
	}

	if h.Signer == nil || h.Contract == (common.Address{}) {
		logger.ErrorWithFid(fid, "points_claim_unconfigured", nil, nil)
		return utils.Error(c, fiber.StatusServiceUnavailable, "not_configured")
	}

	marker, err := h.Markers.Get(c.Context(), fid)
	if errors.Is(err, claims.ErrNotFound) {
		return utils.Error(c, fiber.StatusUnauthorized, "verification_required")
	}
	if err != nil {
		logger.ErrorWithFid(fid, "claim_marker_lookup_failed", err, nil)
		return utils.Error(c, fiber.StatusBadGateway, "marker_store_unavailable")
	}
	if marker.Token != req.ClaimToken || !strings.EqualFold(marker.Address, req.UserAddress) {
		return utils.Error(c, fiber.StatusUnauthorized, "verification_required")
	}

	// Cooldown compares against chain time, read jointly with the claim
	// state it gates.
	var (
		lastClaimAt *big.Int
		cooldown    *big.Int
		blockTime   uint64
	)
	g, gctx := errgroup.WithContext(c.Context())
	g.Go(func() (err error) {
		lastClaimAt, err = h.Chain.LastClaimAt(gctx, h.Contract, fid)
		return err
	})
	g.Go(func() (err error) {
		cooldown, err = h.Chain.ClaimCooldown(gctx, h.Contract)
		return err
	})
	g.Go(func() (err error) {
		blockTime, err = h.Chain.LatestBlockTime(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		logger.ErrorWithFid(fid, "points_claim_chain_read_failed", err, nil)
		return utils.Error(c, fiber.StatusBadGateway, "chain_unavailable")
	}

	nextClaimAt := new(big.Int).Add(lastClaimAt, cooldown)
	if new(big.Int).SetUint64(blockTime).Cmp(nextClaimAt) < 0 {
		return utils.Error(c, fiber.StatusTooManyRequests, "cooldown_active")
	}

	amount := h.claimAmount()
	nonce := signer.NewNonce()
	deadline := signer.Deadline(h.now())

	sig, err := h.Signer.SignPointsClaim(h.Contract, signer.PointsClaim{
		To:       recipient,
		Fid:      fid,
		Nonce:    nonce,
		Amount:   amount,
		Deadline: deadline,
	})
	if err != nil {
		logger.ErrorWithFid(fid, "points_claim_signing_failed", err, nil)
		return utils.Error(c, fiber.StatusInternalServerError, "signing_failed")
	}

	if err := h.Markers.Delete(c.Context(), fid); err != nil {
		// The voucher is already signed; on-chain cooldown still bounds a
		// replayed marker. Log and continue.
		logger.WarnWithFid(fid, "claim_marker_delete_failed", map[string]interface{}{"error": err.Error()})
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"isSuccess": true,
		"signature": sig,
		"fid":       fid,
		"nonce":     nonce.String(),
		"amount":    amount.String(),
		"deadline":  deadline.String(),
	})
}

func (h *SignatureHandler) claimAmount() *big.Int {
	if h.PointsAmount != "" {
		if parsed, ok := new(big.Int).SetString(h.PointsAmount, 10); ok && parsed.Sign() > 0 {
			return parsed
		}
	}
	return new(big.Int).Set(defaultPointsAmount)
}
