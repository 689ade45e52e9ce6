package repositories

import (
	"context"
	"crypto/ecdsa"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// TradingContracts defines the on-chain reads needed to validate and quote trades
type TradingContracts interface {
	// Router returns the bonding-curve router that executes trades
	Router() common.Address

	// Venue names the market a quoted router belongs to
	Venue(router common.Address) string

	IsListed(ctx context.Context, token common.Address) (bool, error)
	IsLocked(ctx context.Context, token common.Address) (bool, error)

	// GetAmountOut quotes a trade and returns the router that would execute it
	GetAmountOut(ctx context.Context, token common.Address, amountIn *big.Int, isBuy bool) (common.Address, *big.Int, error)

	TokenBalance(ctx context.Context, token, owner common.Address) (*big.Int, error)
	NativeBalance(ctx context.Context, account common.Address) (*big.Int, error)

	// PermitNonce returns the EIP-2612 nonce of owner on the token
	PermitNonce(ctx context.Context, token, owner common.Address) (*big.Int, error)

	// TokenName returns the EIP-712 domain name of the token
	TokenName(ctx context.Context, token common.Address) (string, error)
}

// TradeSubmitter signs and submits transactions from the trading wallet
type TradeSubmitter interface {
	Address() common.Address
	Key() *ecdsa.PrivateKey
	ChainID() *big.Int

	// Send submits a transaction once; it is never retried
	Send(ctx context.Context, to common.Address, data []byte, value *big.Int) (common.Hash, error)

	// WaitReceipt polls for the receipt of hash until timeout
	WaitReceipt(ctx context.Context, hash common.Hash, interval, timeout time.Duration) (*types.Receipt, error)
}
