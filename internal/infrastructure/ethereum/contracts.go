package ethereum

import (
	"context"
	"fmt"
	"math/big"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"

	"github.com/bimakw/nadfun-gateway/internal/config"
	"github.com/bimakw/nadfun-gateway/internal/domain/repositories"
)

const curveABIJSON = `[
	{"type":"function","name":"isListed","stateMutability":"view",
	 "inputs":[{"name":"token","type":"address"}],"outputs":[{"name":"","type":"bool"}]},
	{"type":"function","name":"isLocked","stateMutability":"view",
	 "inputs":[{"name":"token","type":"address"}],"outputs":[{"name":"","type":"bool"}]}
]`

const lensABIJSON = `[
	{"type":"function","name":"getAmountOut","stateMutability":"view",
	 "inputs":[{"name":"token","type":"address"},{"name":"amountIn","type":"uint256"},{"name":"isBuy","type":"bool"}],
	 "outputs":[{"name":"router","type":"address"},{"name":"amountOut","type":"uint256"}]}
]`

const routerABIJSON = `[
	{"type":"function","name":"buy","stateMutability":"payable",
	 "inputs":[{"name":"params","type":"tuple","components":[
		{"name":"amountOutMin","type":"uint256"},
		{"name":"token","type":"address"},
		{"name":"to","type":"address"},
		{"name":"deadline","type":"uint256"}]}],
	 "outputs":[]},
	{"type":"function","name":"sellPermit","stateMutability":"nonpayable",
	 "inputs":[{"name":"params","type":"tuple","components":[
		{"name":"amountIn","type":"uint256"},
		{"name":"amountOutMin","type":"uint256"},
		{"name":"amountAllowance","type":"uint256"},
		{"name":"token","type":"address"},
		{"name":"to","type":"address"},
		{"name":"deadline","type":"uint256"},
		{"name":"v","type":"uint8"},
		{"name":"r","type":"bytes32"},
		{"name":"s","type":"bytes32"}]}],
	 "outputs":[]}
]`

const erc20ABIJSON = `[
	{"type":"function","name":"balanceOf","stateMutability":"view",
	 "inputs":[{"name":"account","type":"address"}],"outputs":[{"name":"","type":"uint256"}]},
	{"type":"function","name":"nonces","stateMutability":"view",
	 "inputs":[{"name":"owner","type":"address"}],"outputs":[{"name":"","type":"uint256"}]},
	{"type":"function","name":"name","stateMutability":"view",
	 "inputs":[],"outputs":[{"name":"","type":"string"}]}
]`

var (
	abiOnce   sync.Once
	curveABI  abi.ABI
	lensABI   abi.ABI
	routerABI abi.ABI
	erc20ABI  abi.ABI
)

func loadABIs() {
	abiOnce.Do(func() {
		curveABI = mustParseABI(curveABIJSON)
		lensABI = mustParseABI(lensABIJSON)
		routerABI = mustParseABI(routerABIJSON)
		erc20ABI = mustParseABI(erc20ABIJSON)
	})
}

func mustParseABI(raw string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(raw))
	if err != nil {
		panic(fmt.Sprintf("invalid embedded ABI: %v", err))
	}
	return parsed
}

// BuyParams is the tuple argument of the router's buy function
type BuyParams struct {
	AmountOutMin *big.Int
	Token        common.Address
	To           common.Address
	Deadline     *big.Int
}

// SellPermitParams is the tuple argument of the router's sellPermit function
type SellPermitParams struct {
	AmountIn        *big.Int
	AmountOutMin    *big.Int
	AmountAllowance *big.Int
	Token           common.Address
	To              common.Address
	Deadline        *big.Int
	V               uint8
	R               [32]byte
	S               [32]byte
}

var _ repositories.TradingContracts = (*Contracts)(nil)

// Contracts reads the bonding curve, lens and token contracts
type Contracts struct {
	client    *Client
	curve     common.Address
	router    common.Address
	dexRouter common.Address
	lens      common.Address
}

// NewContracts creates contract bindings for the configured addresses
func NewContracts(client *Client, cfg config.ContractsConfig) *Contracts {
	loadABIs()
	return &Contracts{
		client:    client,
		curve:     common.HexToAddress(cfg.BondingCurve),
		router:    common.HexToAddress(cfg.BondingCurveRouter),
		dexRouter: common.HexToAddress(cfg.DexRouter),
		lens:      common.HexToAddress(cfg.Lens),
	}
}

// Router returns the bonding-curve router address
func (c *Contracts) Router() common.Address {
	return c.router
}

// Venue names the market a quoted router belongs to
func (c *Contracts) Venue(router common.Address) string {
	switch router {
	case c.router:
		return "curve"
	case c.dexRouter:
		return "dex"
	default:
		return "unknown"
	}
}

// IsListed reports whether the token graduated to the DEX
func (c *Contracts) IsListed(ctx context.Context, token common.Address) (bool, error) {
	out, err := c.call(ctx, curveABI, c.curve, "isListed", token)
	if err != nil {
		return false, err
	}
	return out[0].(bool), nil
}

// IsLocked reports whether curve trading is locked for the token
func (c *Contracts) IsLocked(ctx context.Context, token common.Address) (bool, error) {
	out, err := c.call(ctx, curveABI, c.curve, "isLocked", token)
	if err != nil {
		return false, err
	}
	return out[0].(bool), nil
}

// GetAmountOut quotes a trade and returns the router that would execute it
func (c *Contracts) GetAmountOut(ctx context.Context, token common.Address, amountIn *big.Int, isBuy bool) (common.Address, *big.Int, error) {
	out, err := c.call(ctx, lensABI, c.lens, "getAmountOut", token, amountIn, isBuy)
	if err != nil {
		return common.Address{}, nil, err
	}
	return out[0].(common.Address), out[1].(*big.Int), nil
}

// TokenBalance returns the ERC-20 balance of owner
func (c *Contracts) TokenBalance(ctx context.Context, token, owner common.Address) (*big.Int, error) {
	out, err := c.call(ctx, erc20ABI, token, "balanceOf", owner)
	if err != nil {
		return nil, err
	}
	return out[0].(*big.Int), nil
}

// NativeBalance returns the native-currency balance of account
func (c *Contracts) NativeBalance(ctx context.Context, account common.Address) (*big.Int, error) {
	return c.client.BalanceAt(ctx, account)
}

// PermitNonce returns the EIP-2612 nonce of owner on the token
func (c *Contracts) PermitNonce(ctx context.Context, token, owner common.Address) (*big.Int, error) {
	out, err := c.call(ctx, erc20ABI, token, "nonces", owner)
	if err != nil {
		return nil, err
	}
	return out[0].(*big.Int), nil
}

// TokenName returns the token name used as the permit domain name
func (c *Contracts) TokenName(ctx context.Context, token common.Address) (string, error) {
	out, err := c.call(ctx, erc20ABI, token, "name")
	if err != nil {
		return "", err
	}
	return out[0].(string), nil
}

func (c *Contracts) call(ctx context.Context, parsed abi.ABI, to common.Address, method string, args ...interface{}) ([]interface{}, error) {
	data, err := parsed.Pack(method, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to pack %s: %w", method, err)
	}

	result, err := c.client.CallContract(ctx, to, data)
	if err != nil {
		return nil, fmt.Errorf("failed to call %s on %s: %w", method, to.Hex(), err)
	}

	out, err := parsed.Unpack(method, result)
	if err != nil {
		return nil, fmt.Errorf("failed to unpack %s: %w", method, err)
	}
	return out, nil
}

// PackBuy encodes a call to router.buy
func PackBuy(params BuyParams) ([]byte, error) {
	loadABIs()
	return routerABI.Pack("buy", params)
}

// PackSellPermit encodes a call to router.sellPermit
func PackSellPermit(params SellPermitParams) ([]byte, error) {
	loadABIs()
	return routerABI.Pack("sellPermit", params)
}
