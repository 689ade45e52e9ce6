package ethereum

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"go.uber.org/zap"

	"github.com/bimakw/nadfun-gateway/internal/domain/repositories"
)

var _ repositories.TradeSubmitter = (*Transactor)(nil)

// ErrReceiptTimeout is returned when a transaction is not mined in time
var ErrReceiptTimeout = errors.New("timed out waiting for transaction receipt")

// Transactor signs and submits transactions from a single wallet.
// Submissions are never retried.
type Transactor struct {
	client       *Client
	key          *ecdsa.PrivateKey
	from         common.Address
	gasBufferPct uint64
	logger       *zap.Logger
}

// NewTransactor creates a transactor from a hex-encoded private key
func NewTransactor(client *Client, privateKeyHex string, gasBufferPct uint64, logger *zap.Logger) (*Transactor, error) {
	key, err := crypto.HexToECDSA(strings.TrimPrefix(privateKeyHex, "0x"))
	if err != nil {
		return nil, fmt.Errorf("invalid private key: %w", err)
	}

	return &Transactor{
		client:       client,
		key:          key,
		from:         crypto.PubkeyToAddress(key.PublicKey),
		gasBufferPct: gasBufferPct,
		logger:       logger,
	}, nil
}

// Address returns the wallet address
func (t *Transactor) Address() common.Address {
	return t.from
}

// Key returns the signing key, used for off-chain permit signatures
func (t *Transactor) Key() *ecdsa.PrivateKey {
	return t.key
}

// ChainID returns the chain the transactor signs for
func (t *Transactor) ChainID() *big.Int {
	return t.client.ChainID()
}

// Send builds, signs and submits an EIP-1559 transaction calling to with data
func (t *Transactor) Send(ctx context.Context, to common.Address, data []byte, value *big.Int) (common.Hash, error) {
	backend := t.client.Backend()

	if value == nil {
		value = new(big.Int)
	}

	nonce, err := backend.PendingNonceAt(ctx, t.from)
	if err != nil {
		return common.Hash{}, fmt.Errorf("failed to get nonce: %w", err)
	}

	tip, err := backend.SuggestGasTipCap(ctx)
	if err != nil {
		return common.Hash{}, fmt.Errorf("failed to suggest gas tip: %w", err)
	}

	head, err := t.client.GetHeader(ctx, nil)
	if err != nil {
		return common.Hash{}, fmt.Errorf("failed to get latest header: %w", err)
	}

	baseFee := head.BaseFee
	if baseFee == nil {
		baseFee = new(big.Int)
	}
	feeCap := new(big.Int).Add(tip, new(big.Int).Mul(baseFee, big.NewInt(2)))

	gas, err := backend.EstimateGas(ctx, ethereum.CallMsg{
		From:      t.from,
		To:        &to,
		GasTipCap: tip,
		GasFeeCap: feeCap,
		Value:     value,
		Data:      data,
	})
	if err != nil {
		return common.Hash{}, fmt.Errorf("failed to estimate gas: %w", err)
	}
	gas = gas * (100 + t.gasBufferPct) / 100

	tx := types.NewTx(&types.DynamicFeeTx{
		ChainID:   t.client.ChainID(),
		Nonce:     nonce,
		GasTipCap: tip,
		GasFeeCap: feeCap,
		Gas:       gas,
		To:        &to,
		Value:     value,
		Data:      data,
	})

	signed, err := types.SignTx(tx, types.LatestSignerForChainID(t.client.ChainID()), t.key)
	if err != nil {
		return common.Hash{}, fmt.Errorf("failed to sign transaction: %w", err)
	}

	if err := backend.SendTransaction(ctx, signed); err != nil {
		return common.Hash{}, fmt.Errorf("failed to send transaction: %w", err)
	}

	t.logger.Info("Transaction submitted",
		zap.String("tx_hash", signed.Hash().Hex()),
		zap.String("to", to.Hex()),
		zap.Uint64("nonce", nonce),
		zap.Uint64("gas", gas),
	)

	return signed.Hash(), nil
}

// WaitReceipt polls for the receipt of hash every interval until timeout
func (t *Transactor) WaitReceipt(ctx context.Context, hash common.Hash, interval, timeout time.Duration) (*types.Receipt, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		receipt, err := t.client.Backend().TransactionReceipt(ctx, hash)
		if err == nil {
			return receipt, nil
		}
		if !errors.Is(err, ethereum.NotFound) {
			t.logger.Debug("Receipt lookup failed",
				zap.String("tx_hash", hash.Hex()),
				zap.Error(err),
			)
		}

		select {
		case <-ctx.Done():
			if errors.Is(ctx.Err(), context.DeadlineExceeded) {
				return nil, ErrReceiptTimeout
			}
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}
