package airdrop

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/Sukanto01899/captcha-backend/internal/chain"
	"github.com/Sukanto01899/captcha-backend/internal/signer"
	"github.com/ethereum/go-ethereum/common"
	"golang.org/x/sync/errgroup"
)

// Rejection reason codes, in check order. The order is a contract: the
// first failing check names the rejection, so a paused airdrop reports
// "paused" even for an account that would also fail the score check.
const (
	ReasonPaused             = "paused"
	ReasonHumanIDRequired    = "human_id_required"
	ReasonAlreadyClaimed     = "already_claimed"
	ReasonInsufficientPoints = "insufficient_points"
	ReasonScoreTooLow        = "score_too_low"
)

// ErrNotConfigured means the deployment lacks a signer key, contract address
// or claim amount. Fatal for the request, never defaulted.
var ErrNotConfigured = errors.New("airdrop not configured")

// ErrChainRead wraps any upstream RPC failure. Retriable; eligibility is
// never assumed when chain state is unknown.
var ErrChainRead = errors.New("chain read failed")

var tokenDecimals = new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil)

// Settings is the per-request configuration snapshot, already merged from
// the persisted config record and environment fallbacks by the caller.
type Settings struct {
	ClaimAmount    string // base units; on-chain claimAmount wins when set
	MinPoints      int64  // whole tokens; on-chain minPointsRequired wins when set
	MinScore       int
	Paused         bool
	RequireHumanID bool
}

type Request struct {
	Fid       uint64
	Recipient common.Address
	Score     int
	Settings  Settings
}

type Result struct {
	Eligible bool
	Reason   string
	Voucher  *Voucher
}

// Voucher is the signed airdrop authorization plus everything the caller
// needs to redeem it, including the contract addresses for the
// pre-redemption allowance step.
type Voucher struct {
	Signature   string `json:"signature"`
	Fid         uint64 `json:"fid"`
	Nonce       string `json:"nonce"`
	Amount      string `json:"amount"`
	BurnPoints  string `json:"burnPoints"`
	HumanScore  int    `json:"humanScore"`
	Deadline    string `json:"deadline"`
	Contract    string `json:"contract"`
	PointsToken string `json:"pointsToken"`
}

type Contracts struct {
	AirdropClaim common.Address
	PointsToken  common.Address
	HumanID      common.Address
}

type Checker struct {
	chain     chain.Reader
	signer    *signer.Signer
	contracts Contracts
	now       func() time.Time
}

func NewChecker(reader chain.Reader, s *signer.Signer, contracts Contracts) *Checker {
	return &Checker{
		chain:     reader,
		signer:    s,
		contracts: contracts,
		now:       time.Now,
	}
}

// WithNow overrides the clock. Tests only.
func (c *Checker) WithNow(now func() time.Time) *Checker {
	c.now = now
	return c
}

// Check runs the ordered eligibility gauntlet and, when every gate passes,
// signs and returns the airdrop voucher. Business rejections come back as a
// Result with a reason; configuration and upstream failures come back as
// errors.
func (c *Checker) Check(ctx context.Context, req Request) (*Result, error) {
	if c.signer == nil || c.contracts.AirdropClaim == (common.Address{}) || c.contracts.PointsToken == (common.Address{}) {
		return nil, ErrNotConfigured
	}

	if req.Settings.Paused {
		return &Result{Reason: ReasonPaused}, nil
	}

	if req.Settings.RequireHumanID {
		humanID, err := c.chain.HumanIDOf(ctx, c.contracts.HumanID, req.Fid)
		if err != nil {
			return nil, fmt.Errorf("%w: humanIdOf: %v", ErrChainRead, err)
		}
		if humanID == "" {
			return &Result{Reason: ReasonHumanIDRequired}, nil
		}
	}

	// Independent views, fetched jointly. All must land before any gate
	// below can be decided.
	var (
		claimed          bool
		balance          *big.Int
		onchainAmount    *big.Int
		onchainMinPoints *big.Int
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		claimed, err = c.chain.IsClaimed(gctx, c.contracts.AirdropClaim, req.Fid)
		return err
	})
	g.Go(func() (err error) {
		balance, err = c.chain.TokenBalance(gctx, c.contracts.PointsToken, req.Recipient)
		return err
	})
	g.Go(func() (err error) {
		onchainAmount, err = c.chain.ClaimAmount(gctx, c.contracts.AirdropClaim)
		return err
	})
	g.Go(func() (err error) {
		onchainMinPoints, err = c.chain.MinPointsRequired(gctx, c.contracts.AirdropClaim)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrChainRead, err)
	}

	if claimed {
		return &Result{Reason: ReasonAlreadyClaimed}, nil
	}

	minPointsWei := onchainMinPoints
	if minPointsWei == nil || minPointsWei.Sign() == 0 {
		minPointsWei = new(big.Int).Mul(big.NewInt(req.Settings.MinPoints), tokenDecimals)
	}
	if balance.Cmp(minPointsWei) < 0 {
		return &Result{Reason: ReasonInsufficientPoints}, nil
	}

	if req.Score < req.Settings.MinScore {
		return &Result{Reason: ReasonScoreTooLow}, nil
	}

	amount := onchainAmount
	if amount == nil || amount.Sign() == 0 {
		parsed, ok := new(big.Int).SetString(req.Settings.ClaimAmount, 10)
		if !ok || parsed.Sign() == 0 {
			return nil, ErrNotConfigured
		}
		amount = parsed
	}

	nonce := signer.NewNonce()
	deadline := signer.Deadline(c.now())

	sig, err := c.signer.SignAirdropClaim(c.contracts.AirdropClaim, signer.AirdropClaim{
		To:         req.Recipient,
		Fid:        req.Fid,
		Nonce:      nonce,
		Amount:     amount,
		BurnPoints: minPointsWei,
		HumanScore: req.Score,
		Deadline:   deadline,
	})
	if err != nil {
		return nil, err
	}

	return &Result{
		Eligible: true,
		Voucher: &Voucher{
			Signature:   sig,
			Fid:         req.Fid,
			Nonce:       nonce.String(),
			Amount:      amount.String(),
			BurnPoints:  minPointsWei.String(),
			HumanScore:  req.Score,
			Deadline:    deadline.String(),
			Contract:    c.contracts.AirdropClaim.Hex(),
			PointsToken: c.contracts.PointsToken.Hex(),
		},
	}, nil
}
