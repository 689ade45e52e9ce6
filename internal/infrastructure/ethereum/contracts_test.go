package ethereum

import (
	"context"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"

	"github.com/bimakw/nadfun-gateway/internal/config"
)

var (
	testCurve  = common.HexToAddress("0x1000000000000000000000000000000000000001")
	testRouter = common.HexToAddress("0x1000000000000000000000000000000000000002")
	testDex    = common.HexToAddress("0x1000000000000000000000000000000000000003")
	testLens   = common.HexToAddress("0x1000000000000000000000000000000000000004")
	testToken  = common.HexToAddress("0x2000000000000000000000000000000000000001")
)

func newTestContracts(t *testing.T, backend *fakeBackend) *Contracts {
	t.Helper()
	return NewContracts(newTestEthClient(t, backend), config.ContractsConfig{
		BondingCurve:       testCurve.Hex(),
		BondingCurveRouter: testRouter.Hex(),
		DexRouter:          testDex.Hex(),
		Lens:               testLens.Hex(),
	})
}

func TestContracts_Status(t *testing.T) {
	backend := newFakeBackend()
	contracts := newTestContracts(t, backend)

	backend.on(curveABI.Methods["isListed"].ID, func(data []byte) ([]byte, error) {
		return curveABI.Methods["isListed"].Outputs.Pack(true)
	})
	backend.on(curveABI.Methods["isLocked"].ID, func(data []byte) ([]byte, error) {
		args, err := curveABI.Methods["isLocked"].Inputs.Unpack(data[4:])
		if err != nil {
			return nil, err
		}
		if args[0].(common.Address) != testToken {
			t.Errorf("unexpected token argument %v", args[0])
		}
		return curveABI.Methods["isLocked"].Outputs.Pack(false)
	})

	listed, err := contracts.IsListed(context.Background(), testToken)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !listed {
		t.Error("expected token to be listed")
	}

	locked, err := contracts.IsLocked(context.Background(), testToken)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if locked {
		t.Error("expected token to be unlocked")
	}
}

func TestContracts_GetAmountOut(t *testing.T) {
	backend := newFakeBackend()
	contracts := newTestContracts(t, backend)

	method := lensABI.Methods["getAmountOut"]
	backend.on(method.ID, func(data []byte) ([]byte, error) {
		args, err := method.Inputs.Unpack(data[4:])
		if err != nil {
			return nil, err
		}
		amountIn := args[1].(*big.Int)
		isBuy := args[2].(bool)
		if !isBuy {
			t.Error("expected isBuy to be true")
		}
		return method.Outputs.Pack(testRouter, new(big.Int).Mul(amountIn, big.NewInt(3)))
	})

	router, out, err := contracts.GetAmountOut(context.Background(), testToken, big.NewInt(100), true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if router != testRouter {
		t.Errorf("expected router %s, got %s", testRouter.Hex(), router.Hex())
	}
	if out.Int64() != 300 {
		t.Errorf("expected amount out 300, got %s", out)
	}
	if contracts.Venue(router) != "curve" {
		t.Errorf("expected curve venue, got %s", contracts.Venue(router))
	}
	if contracts.Venue(testDex) != "dex" {
		t.Errorf("expected dex venue, got %s", contracts.Venue(testDex))
	}
}

func TestPackBuy(t *testing.T) {
	to := common.HexToAddress("0x3000000000000000000000000000000000000001")
	data, err := PackBuy(BuyParams{
		AmountOutMin: big.NewInt(990),
		Token:        testToken,
		To:           to,
		Deadline:     big.NewInt(1700001200),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	method := routerABI.Methods["buy"]
	if string(data[:4]) != string(method.ID) {
		t.Fatalf("unexpected selector %x", data[:4])
	}

	args, err := method.Inputs.Unpack(data[4:])
	if err != nil {
		t.Fatalf("failed to unpack: %v", err)
	}
	params := abi.ConvertType(args[0], new(BuyParams)).(*BuyParams)
	if params.AmountOutMin.Int64() != 990 || params.Token != testToken || params.To != to {
		t.Errorf("unexpected decoded params %+v", params)
	}
}

func TestPackSellPermit(t *testing.T) {
	var r, s [32]byte
	r[0], s[31] = 0xaa, 0xbb

	data, err := PackSellPermit(SellPermitParams{
		AmountIn:        big.NewInt(1000),
		AmountOutMin:    big.NewInt(10),
		AmountAllowance: big.NewInt(1000),
		Token:           testToken,
		To:              testRouter,
		Deadline:        big.NewInt(1700001200),
		V:               27,
		R:               r,
		S:               s,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	method := routerABI.Methods["sellPermit"]
	if string(data[:4]) != string(method.ID) {
		t.Fatalf("unexpected selector %x", data[:4])
	}
	// selector + 9 static words
	if len(data) != 4+9*32 {
		t.Errorf("expected %d bytes, got %d", 4+9*32, len(data))
	}
}
