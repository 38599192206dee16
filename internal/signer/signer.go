package signer

import (
	"crypto/ecdsa"
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/common/math"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/signer/core/apitypes"
)

// Typed-data domains. Name, version, field names and field order are a
// bit-exact contract with the verifying contracts; changing any of them
// invalidates every voucher.
const (
	pointsDomainName  = "CaptchaPoints"
	airdropDomainName = "CaptchaAirdrop"
	domainVersion     = "1"

	voucherTTL = 15 * time.Minute
)

// Signer holds the single server-side signing key. Signing mutates nothing,
// so a Signer is safe for concurrent use.
type Signer struct {
	key     *ecdsa.PrivateKey
	chainID int64
}

func New(privateKeyHex string, chainID int64) (*Signer, error) {
	if privateKeyHex == "" {
		return nil, fmt.Errorf("signer: missing private key")
	}
	key, err := crypto.HexToECDSA(strings.TrimPrefix(privateKeyHex, "0x"))
	if err != nil {
		return nil, fmt.Errorf("signer: parsing private key: %w", err)
	}
	return &Signer{key: key, chainID: chainID}, nil
}

func (s *Signer) Address() common.Address {
	return crypto.PubkeyToAddress(s.key.PublicKey)
}

// PointsClaim is the points-voucher payload in contract field order.
type PointsClaim struct {
	To       common.Address
	Fid      uint64
	Nonce    *big.Int
	Amount   *big.Int
	Deadline *big.Int
}

// AirdropClaim is the airdrop-voucher payload in contract field order.
type AirdropClaim struct {
	To         common.Address
	Fid        uint64
	Nonce      *big.Int
	Amount     *big.Int
	BurnPoints *big.Int
	HumanScore int
	Deadline   *big.Int
}

func (s *Signer) SignPointsClaim(contract common.Address, claim PointsClaim) (string, error) {
	typed := apitypes.TypedData{
		Types: apitypes.Types{
			"EIP712Domain": domainType(),
			"PointsClaim": []apitypes.Type{
				{Name: "to", Type: "address"},
				{Name: "fid", Type: "uint256"},
				{Name: "nonce", Type: "uint256"},
				{Name: "amount", Type: "uint256"},
				{Name: "deadline", Type: "uint256"},
			},
		},
		PrimaryType: "PointsClaim",
		Domain:      s.domain(pointsDomainName, contract),
		Message: apitypes.TypedDataMessage{
			"to":       claim.To.Hex(),
			"fid":      new(big.Int).SetUint64(claim.Fid).String(),
			"nonce":    claim.Nonce.String(),
			"amount":   claim.Amount.String(),
			"deadline": claim.Deadline.String(),
		},
	}

	return s.sign(typed)
}

func (s *Signer) SignAirdropClaim(contract common.Address, claim AirdropClaim) (string, error) {
	typed := apitypes.TypedData{
		Types: apitypes.Types{
			"EIP712Domain": domainType(),
			"AirdropClaim": []apitypes.Type{
				{Name: "to", Type: "address"},
				{Name: "fid", Type: "uint256"},
				{Name: "nonce", Type: "uint256"},
				{Name: "amount", Type: "uint256"},
				{Name: "burnPoints", Type: "uint256"},
				{Name: "humanScore", Type: "uint256"},
				{Name: "deadline", Type: "uint256"},
			},
		},
		PrimaryType: "AirdropClaim",
		Domain:      s.domain(airdropDomainName, contract),
		Message: apitypes.TypedDataMessage{
			"to":         claim.To.Hex(),
			"fid":        new(big.Int).SetUint64(claim.Fid).String(),
			"nonce":      claim.Nonce.String(),
			"amount":     claim.Amount.String(),
			"burnPoints": claim.BurnPoints.String(),
			"humanScore": big.NewInt(int64(claim.HumanScore)).String(),
			"deadline":   claim.Deadline.String(),
		},
	}

	return s.sign(typed)
}

func (s *Signer) sign(typed apitypes.TypedData) (string, error) {
	hash, _, err := apitypes.TypedDataAndHash(typed)
	if err != nil {
		return "", fmt.Errorf("signer: hashing typed data: %w", err)
	}

	sig, err := crypto.Sign(hash, s.key)
	if err != nil {
		return "", fmt.Errorf("signer: %w", err)
	}

	// Contracts expect the legacy recovery id.
	sig[64] += 27

	return hexutil.Encode(sig), nil
}

func (s *Signer) domain(name string, contract common.Address) apitypes.TypedDataDomain {
	return apitypes.TypedDataDomain{
		Name:              name,
		Version:           domainVersion,
		ChainId:           math.NewHexOrDecimal256(s.chainID),
		VerifyingContract: contract.Hex(),
	}
}

func domainType() []apitypes.Type {
	return []apitypes.Type{
		{Name: "name", Type: "string"},
		{Name: "version", Type: "string"},
		{Name: "chainId", Type: "uint256"},
		{Name: "verifyingContract", Type: "address"},
	}
}

// NewNonce builds the voucher nonce as milliseconds*1e6 plus a random
// sub-millisecond component. Uniqueness is probabilistic; the redeeming
// contract owns replay rejection.
func NewNonce() *big.Int {
	nonce := new(big.Int).Mul(big.NewInt(time.Now().UnixMilli()), big.NewInt(1_000_000))
	r, err := rand.Int(rand.Reader, big.NewInt(1_000_000))
	if err != nil {
		// crypto/rand only fails when the platform source is broken; the
		// timestamp component still keeps nonces practically unique.
		return nonce
	}
	return nonce.Add(nonce, r)
}

// Deadline returns the voucher expiry, 15 minutes out, in unix seconds.
func Deadline(now time.Time) *big.Int {
	return big.NewInt(now.Add(voucherTTL).Unix())
}
