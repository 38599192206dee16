package chain

import (
	"context"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
)

// Reader is the set of on-chain views the backend depends on. Eligibility
// gating must treat any error here as "unknown", never as "eligible".
type Reader interface {
	NativeBalance(ctx context.Context, account common.Address) (*big.Int, error)
	TokenBalance(ctx context.Context, token, owner common.Address) (*big.Int, error)
	IsClaimed(ctx context.Context, contract common.Address, fid uint64) (bool, error)
	ClaimAmount(ctx context.Context, contract common.Address) (*big.Int, error)
	MinPointsRequired(ctx context.Context, contract common.Address) (*big.Int, error)
	LastClaimAt(ctx context.Context, contract common.Address, fid uint64) (*big.Int, error)
	ClaimCooldown(ctx context.Context, contract common.Address) (*big.Int, error)
	HumanIDOf(ctx context.Context, contract common.Address, fid uint64) (string, error)
	LatestBlockTime(ctx context.Context) (uint64, error)
}

const (
	erc20ABI = `[{"name":"balanceOf","type":"function","stateMutability":"view","inputs":[{"name":"owner","type":"address"}],"outputs":[{"type":"uint256"}]}]`

	airdropClaimABI = `[
		{"name":"isClaimed","type":"function","stateMutability":"view","inputs":[{"name":"fid","type":"uint256"}],"outputs":[{"type":"bool"}]},
		{"name":"claimAmount","type":"function","stateMutability":"view","inputs":[],"outputs":[{"type":"uint256"}]},
		{"name":"minPointsRequired","type":"function","stateMutability":"view","inputs":[],"outputs":[{"type":"uint256"}]}
	]`

	pointsClaimABI = `[
		{"name":"lastClaimAtByFid","type":"function","stateMutability":"view","inputs":[{"name":"fid","type":"uint256"}],"outputs":[{"type":"uint256"}]},
		{"name":"claimCooldown","type":"function","stateMutability":"view","inputs":[],"outputs":[{"type":"uint256"}]}
	]`

	humanIDABI = `[{"name":"humanIdOf","type":"function","stateMutability":"view","inputs":[{"name":"fid","type":"uint256"}],"outputs":[{"type":"string"}]}]`
)

// Client reads contract views over a JSON-RPC endpoint.
type Client struct {
	eth     *ethclient.Client
	erc20   abi.ABI
	airdrop abi.ABI
	points  abi.ABI
	humanID abi.ABI
}

func Dial(ctx context.Context, rpcURL string) (*Client, error) {
	eth, err := ethclient.DialContext(ctx, rpcURL)
	if err != nil {
		return nil, fmt.Errorf("dialing rpc: %w", err)
	}
	return NewClient(eth)
}

func NewClient(eth *ethclient.Client) (*Client, error) {
	c := &Client{eth: eth}
	for _, def := range []struct {
		raw  string
		dest *abi.ABI
	}{
		{erc20ABI, &c.erc20},
		{airdropClaimABI, &c.airdrop},
		{pointsClaimABI, &c.points},
		{humanIDABI, &c.humanID},
	} {
		parsed, err := abi.JSON(strings.NewReader(def.raw))
		if err != nil {
			return nil, fmt.Errorf("parsing abi: %w", err)
		}
		*def.dest = parsed
	}
	return c, nil
}

func (c *Client) NativeBalance(ctx context.Context, account common.Address) (*big.Int, error) {
	return c.eth.BalanceAt(ctx, account, nil)
}

func (c *Client) TokenBalance(ctx context.Context, token, owner common.Address) (*big.Int, error) {
	out, err := c.call(ctx, c.erc20, token, "balanceOf", owner)
	if err != nil {
		return nil, err
	}
	return asBig(out)
}

func (c *Client) IsClaimed(ctx context.Context, contract common.Address, fid uint64) (bool, error) {
	out, err := c.call(ctx, c.airdrop, contract, "isClaimed", new(big.Int).SetUint64(fid))
	if err != nil {
		return false, err
	}
	claimed, ok := out[0].(bool)
	if !ok {
		return false, fmt.Errorf("isClaimed: unexpected return type %T", out[0])
	}
	return claimed, nil
}

func (c *Client) ClaimAmount(ctx context.Context, contract common.Address) (*big.Int, error) {
	out, err := c.call(ctx, c.airdrop, contract, "claimAmount")
	if err != nil {
		return nil, err
	}
	return asBig(out)
}

func (c *Client) MinPointsRequired(ctx context.Context, contract common.Address) (*big.Int, error) {
	out, err := c.call(ctx, c.airdrop, contract, "minPointsRequired")
	if err != nil {
		return nil, err
	}
	return asBig(out)
}

func (c *Client) LastClaimAt(ctx context.Context, contract common.Address, fid uint64) (*big.Int, error) {
	out, err := c.call(ctx, c.points, contract, "lastClaimAtByFid", new(big.Int).SetUint64(fid))
	if err != nil {
		return nil, err
	}
	return asBig(out)
}

func (c *Client) ClaimCooldown(ctx context.Context, contract common.Address) (*big.Int, error) {
	out, err := c.call(ctx, c.points, contract, "claimCooldown")
	if err != nil {
		return nil, err
	}
	return asBig(out)
}

func (c *Client) HumanIDOf(ctx context.Context, contract common.Address, fid uint64) (string, error) {
	out, err := c.call(ctx, c.humanID, contract, "humanIdOf", new(big.Int).SetUint64(fid))
	if err != nil {
		return "", err
	}
	id, ok := out[0].(string)
	if !ok {
		return "", fmt.Errorf("humanIdOf: unexpected return type %T", out[0])
	}
	return id, nil
}

// LatestBlockTime is the cooldown clock: claims compare against chain time,
// not server time, so both sides of the cooldown agree.
func (c *Client) LatestBlockTime(ctx context.Context) (uint64, error) {
	header, err := c.eth.HeaderByNumber(ctx, nil)
	if err != nil {
		return 0, err
	}
	return header.Time, nil
}

func (c *Client) call(ctx context.Context, parsed abi.ABI, contract common.Address, method string, args ...interface{}) ([]interface{}, error) {
	data, err := parsed.Pack(method, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: packing call: %w", method, err)
	}

	raw, err := c.eth.CallContract(ctx, ethereum.CallMsg{To: &contract, Data: data}, nil)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", method, err)
	}

	out, err := parsed.Unpack(method, raw)
	if err != nil {
		return nil, fmt.Errorf("%s: unpacking result: %w", method, err)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%s: empty result", method)
	}
	return out, nil
}

func asBig(out []interface{}) (*big.Int, error) {
	v, ok := out[0].(*big.Int)
	if !ok {
		return nil, fmt.Errorf("unexpected return type %T", out[0])
	}
	return v, nil
}
