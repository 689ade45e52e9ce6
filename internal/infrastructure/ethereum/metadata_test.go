/*
 * Copyright (c) 2024 Bima Kharisma Wicaksana
 * GitHub: https://github.com/bimakw
 *
 * Licensed under MIT License with Attribution Requirement.
 * See LICENSE file for details.
 */

package ethereum

import (
	"bytes"
	"context"
	"errors"
	"math/big"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"go.uber.org/zap"

	"github.com/bimakw/nadfun-gateway/internal/testutil"
)

// abiString encodes s the way a Solidity `string` return value is laid out
func abiString(s string) []byte {
	out := common.LeftPadBytes([]byte{0x20}, 32)
	out = append(out, common.LeftPadBytes(big.NewInt(int64(len(s))).Bytes(), 32)...)
	padded := (len(s) + 31) / 32 * 32
	return append(out, common.RightPadBytes([]byte(s), padded)...)
}

func uint256(v int64) []byte {
	return common.LeftPadBytes(big.NewInt(v).Bytes(), 32)
}

func TestDecodeStringOrBytes32_LaunchpadNames(t *testing.T) {
	longName := "Nad Cat Official Bonding Curve Launch Token"

	tests := []struct {
		name    string
		input   []byte
		want    string
		wantErr bool
	}{
		{name: "string return", input: abiString("Nad Cat"), want: "Nad Cat"},
		{name: "string spanning two words", input: abiString(longName), want: longName},
		{name: "string with emoji bytes", input: abiString("chog 🐸"), want: "chog 🐸"},
		{name: "empty string return", input: abiString(""), want: ""},
		{name: "bytes32 symbol", input: common.RightPadBytes([]byte("NCAT"), 32), want: "NCAT"},
		{name: "bytes32 filled", input: []byte(strings.Repeat("M", 32)), want: strings.Repeat("M", 32)},
		{
			name:  "bytes32 with binary content",
			input: common.LeftPadBytes([]byte{0x01, 0xff}, 32),
			want:  "0x" + strings.Repeat("00", 30) + "01ff",
		},
		{name: "no data", input: nil, wantErr: true},
		{name: "truncated word", input: []byte("NCAT"), wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := decodeStringOrBytes32(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error, got %q", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("expected %q, got %q", tt.want, got)
			}
		})
	}
}

func TestIsPrintableASCII(t *testing.T) {
	printable := []string{"NCAT", "Nad Cat", "CHOG-2", "moyaki_v1", "~$MON!"}
	for _, s := range printable {
		if !isPrintableASCII([]byte(s)) {
			t.Errorf("%q should be printable", s)
		}
	}

	unprintable := [][]byte{
		nil,
		[]byte("NCAT\x00"),
		[]byte("Nad\tCat"),
		[]byte("Nad\x7fCat"),
		[]byte("🐸"),
	}
	for _, b := range unprintable {
		if isPrintableASCII(b) {
			t.Errorf("%q should not be printable", b)
		}
	}
}

func TestMetadataSelectorsMatchSignatures(t *testing.T) {
	selectors := map[string][]byte{
		"name()":        nameSig,
		"symbol()":      symbolSig,
		"decimals()":    decimalsSig,
		"totalSupply()": totalSupplySig,
	}
	for signature, selector := range selectors {
		want := crypto.Keccak256([]byte(signature))[:4]
		if !bytes.Equal(selector, want) {
			t.Errorf("%s: expected %x, got %x", signature, want, selector)
		}
	}
}

func TestMetadataFetcher_FetchMetadata(t *testing.T) {
	backend := newFakeBackend()
	backend.on(totalSupplySig, func([]byte) ([]byte, error) {
		return common.LeftPadBytes(launchSupply.Bytes(), 32), nil
	})
	backend.on(nameSig, func([]byte) ([]byte, error) {
		return abiString("Nad Cat"), nil
	})
	backend.on(symbolSig, func([]byte) ([]byte, error) {
		return abiString("NCAT"), nil
	})
	backend.on(decimalsSig, func([]byte) ([]byte, error) {
		return uint256(18), nil
	})

	fetcher := NewMetadataFetcher(newTestEthClient(t, backend), zap.NewNop())
	token, err := fetcher.GetTokenMetadata(context.Background(), strings.ToUpper(testutil.TokenAddress))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if token.Address != testutil.TokenAddress {
		t.Errorf("expected address %s, got %s", testutil.TokenAddress, token.Address)
	}
	if token.Name != "Nad Cat" || token.Symbol != "NCAT" {
		t.Errorf("expected Nad Cat/NCAT, got %s/%s", token.Name, token.Symbol)
	}
	if token.Decimals != 18 {
		t.Errorf("expected 18 decimals, got %d", token.Decimals)
	}
	if token.TotalSupply != launchSupply.String() {
		t.Errorf("unexpected total supply %s", token.TotalSupply)
	}
	if token.ImageURI != "" || token.Creator != "" {
		t.Errorf("chain metadata should not carry launchpad fields: %+v", token)
	}
}

func TestMetadataFetcher_DescriptiveFieldsFallBack(t *testing.T) {
	backend := newFakeBackend()
	backend.on(totalSupplySig, func([]byte) ([]byte, error) {
		return uint256(42), nil
	})
	backend.on(decimalsSig, func([]byte) ([]byte, error) {
		// shorter than a word
		return []byte{6}, nil
	})
	// name() and symbol() are not implemented by the contract

	fetcher := NewMetadataFetcher(newTestEthClient(t, backend), zap.NewNop())
	metadata, err := fetcher.FetchMetadata(context.Background(), testutil.OtherTokenAddress)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if metadata.Name != "Unknown" || metadata.Symbol != "UNK" {
		t.Errorf("expected Unknown/UNK, got %s/%s", metadata.Name, metadata.Symbol)
	}
	if metadata.Decimals != 18 {
		t.Errorf("expected decimals to fall back to 18, got %d", metadata.Decimals)
	}
	if metadata.TotalSupply.Int64() != 42 {
		t.Errorf("expected supply 42, got %s", metadata.TotalSupply)
	}
}

func TestMetadataFetcher_TotalSupplyRequired(t *testing.T) {
	tests := []struct {
		name   string
		result []byte
		err    error
	}{
		{name: "reverted", err: errors.New("execution reverted")},
		{name: "short result", result: []byte{0x01}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			backend := newFakeBackend()
			backend.on(totalSupplySig, func([]byte) ([]byte, error) {
				return tt.result, tt.err
			})
			backend.on(symbolSig, func([]byte) ([]byte, error) {
				return abiString("NCAT"), nil
			})

			fetcher := NewMetadataFetcher(newTestEthClient(t, backend), zap.NewNop())
			if _, err := fetcher.GetTokenMetadata(context.Background(), testutil.TokenAddress); err == nil {
				t.Fatal("expected error when totalSupply is unavailable")
			}
		})
	}
}

func TestTokenMetadata_ToTokenWithoutSupply(t *testing.T) {
	token := (&TokenMetadata{Name: "Chog", Symbol: "CHOG", Decimals: 18}).ToToken(testutil.OtherTokenAddress)
	if token.TotalSupply != "0" {
		t.Errorf("expected zero supply, got %s", token.TotalSupply)
	}
}
