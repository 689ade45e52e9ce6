package ethereum

import (
	"context"
	"errors"
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"go.uber.org/zap"
)

const testPrivateKey = "0x4c0883a69102937d6231471b5dbb6204fe5129617082792ae468d01a3f362318"

func TestTransactor_Send(t *testing.T) {
	backend := newFakeBackend()
	backend.nonce = 7
	client := newTestEthClient(t, backend)

	transactor, err := NewTransactor(client, testPrivateKey, 20, zap.NewNop())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	to := common.HexToAddress("0x1000000000000000000000000000000000000002")
	hash, err := transactor.Send(context.Background(), to, []byte{0x01, 0x02}, big.NewInt(1000))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(backend.sent) != 1 {
		t.Fatalf("expected 1 sent transaction, got %d", len(backend.sent))
	}
	tx := backend.sent[0]

	if tx.Hash() != hash {
		t.Errorf("expected returned hash to match sent tx")
	}
	if tx.Type() != types.DynamicFeeTxType {
		t.Errorf("expected dynamic fee tx, got type %d", tx.Type())
	}
	if tx.Nonce() != 7 {
		t.Errorf("expected nonce 7, got %d", tx.Nonce())
	}
	if tx.Gas() != 120000 {
		t.Errorf("expected buffered gas 120000, got %d", tx.Gas())
	}
	// tip + 2 * base fee
	if tx.GasFeeCap().Int64() != 102 {
		t.Errorf("expected fee cap 102, got %s", tx.GasFeeCap())
	}
	if tx.Value().Int64() != 1000 {
		t.Errorf("expected value 1000, got %s", tx.Value())
	}

	sender, err := types.Sender(types.LatestSignerForChainID(big.NewInt(10143)), tx)
	if err != nil {
		t.Fatalf("failed to recover sender: %v", err)
	}
	if sender != transactor.Address() {
		t.Errorf("expected sender %s, got %s", transactor.Address().Hex(), sender.Hex())
	}
}

func TestNewTransactor_InvalidKey(t *testing.T) {
	client := newTestEthClient(t, newFakeBackend())
	if _, err := NewTransactor(client, "not-a-key", 0, zap.NewNop()); err == nil {
		t.Fatal("expected invalid key error")
	}
}

func TestTransactor_WaitReceipt(t *testing.T) {
	backend := newFakeBackend()
	client := newTestEthClient(t, backend)
	transactor, err := NewTransactor(client, testPrivateKey, 0, zap.NewNop())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	mined := common.HexToHash("0x01")
	backend.receipts[mined] = &types.Receipt{Status: types.ReceiptStatusSuccessful, BlockNumber: big.NewInt(9)}

	receipt, err := transactor.WaitReceipt(context.Background(), mined, time.Millisecond, time.Second)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if receipt.BlockNumber.Int64() != 9 {
		t.Errorf("unexpected receipt %+v", receipt)
	}

	_, err = transactor.WaitReceipt(context.Background(), common.HexToHash("0x02"), time.Millisecond, 20*time.Millisecond)
	if !errors.Is(err, ErrReceiptTimeout) {
		t.Errorf("expected ErrReceiptTimeout, got %v", err)
	}
}
