package main

import (
	"bytes"
	"encoding/json"
	"io"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bimakw/nadfun-gateway/internal/config"
)

func TestDisplayUnits(t *testing.T) {
	assert.Equal(t, "1.5", displayUnits("1500000000000000000"))
	assert.Equal(t, "0", displayUnits("0"))
	assert.Equal(t, "not-a-number", displayUnits("not-a-number"))
}

func TestPrint_JSON(t *testing.T) {
	a := &app{asJSON: true}
	var buf bytes.Buffer

	err := a.print(&buf, tradeView{TxHash: "0xabc", Success: true}, func(w io.Writer) {
		t.Fatal("text renderer must not run in JSON mode")
	})
	require.NoError(t, err)

	var got map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	assert.Equal(t, "0xabc", got["tx_hash"])
	assert.Equal(t, true, got["success"])
	assert.NotContains(t, got, "error")
}

func TestPrint_Text(t *testing.T) {
	a := &app{}
	var buf bytes.Buffer

	err := a.print(&buf, nil, func(w io.Writer) {
		io.WriteString(w, "tradable: true\n")
	})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(buf.String(), "tradable"))
}

func TestAddTradeFlags(t *testing.T) {
	cmd := &cobra.Command{Use: "buy <token> <amount>"}
	addTradeFlags(cmd)

	require.NoError(t, cmd.ParseFlags([]string{"--slippage-bps", "250", "--min-out", "0.5"}))

	slippage, _ := cmd.Flags().GetInt64("slippage-bps")
	minOut, _ := cmd.Flags().GetString("min-out")
	assert.Equal(t, int64(250), slippage)
	assert.Equal(t, "0.5", minOut)
}

func TestWalletAddress(t *testing.T) {
	// well-known hardhat account #0
	a := &app{cfg: &config.Config{Trading: config.TradingConfig{
		PrivateKey: "0xac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80",
	}}}

	addr, err := a.walletAddress()
	require.NoError(t, err)
	assert.Equal(t, "0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266", addr.Hex())

	a.cfg.Trading.PrivateKey = ""
	_, err = a.walletAddress()
	assert.Error(t, err)
}
