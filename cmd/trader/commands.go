package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/big"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/bimakw/nadfun-gateway/internal/domain/entities"
	"github.com/bimakw/nadfun-gateway/internal/format"
)

func runStatus(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, cmd, appOptions{slippageBps: -1})
	if err != nil {
		return err
	}
	defer a.close()

	status, err := a.service.Status(ctx, args[0])
	if err != nil {
		return err
	}

	return a.print(cmd.OutOrStdout(), status, func(w io.Writer) {
		fmt.Fprintf(w, "token:    %s\n", status.TokenAddress)
		fmt.Fprintf(w, "listed:   %t\n", status.IsListed)
		fmt.Fprintf(w, "locked:   %t\n", status.IsLocked)
		fmt.Fprintf(w, "tradable: %t\n", status.CanTrade())
	})
}

func runQuote(cmd *cobra.Command, args []string) error {
	direction := entities.TradeDirection(args[0])
	if !direction.Valid() {
		return fmt.Errorf("direction must be buy or sell, got %q", args[0])
	}
	amount, err := format.ParseUnits(args[2], format.NativeDecimals)
	if err != nil {
		return err
	}
	slippage, _ := cmd.Flags().GetInt64("slippage-bps")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, cmd, appOptions{slippageBps: slippage})
	if err != nil {
		return err
	}
	defer a.close()

	quote, err := a.service.QuoteWithSlippage(ctx, args[1], direction, amount)
	if err != nil {
		return err
	}

	return a.print(cmd.OutOrStdout(), quote, func(w io.Writer) {
		fmt.Fprintf(w, "token:          %s\n", quote.TokenAddress)
		fmt.Fprintf(w, "direction:      %s\n", quote.Direction)
		fmt.Fprintf(w, "amount in:      %s\n", displayUnits(quote.AmountIn))
		fmt.Fprintf(w, "amount out:     %s\n", displayUnits(quote.AmountOut))
		fmt.Fprintf(w, "min amount out: %s (%d bps)\n", displayUnits(quote.MinAmountOut), quote.SlippageBps)
		fmt.Fprintf(w, "venue:          %s (%s)\n", quote.Venue, quote.Router)
	})
}

// tradeView is the printable outcome of a buy or sell
type tradeView struct {
	JournalID    string `json:"journal_id"`
	TxHash       string `json:"tx_hash"`
	Direction    string `json:"direction"`
	TokenAddress string `json:"token_address"`
	AmountIn     string `json:"amount_in"`
	MinAmountOut string `json:"min_amount_out"`
	BlockNumber  uint64 `json:"block_number,omitempty"`
	GasUsed      uint64 `json:"gas_used,omitempty"`
	Success      bool   `json:"success"`
	Error        string `json:"error,omitempty"`
}

func runTrade(cmd *cobra.Command, args []string) error {
	direction := entities.TradeDirection(cmd.Name())
	amount, err := format.ParseUnits(args[1], format.NativeDecimals)
	if err != nil {
		return err
	}

	req := entities.TradeRequest{
		TokenAddress: args[0],
		Direction:    direction,
		AmountIn:     amount,
	}
	if minOut, _ := cmd.Flags().GetString("min-out"); minOut != "" {
		req.MinAmountOut, err = format.ParseUnits(minOut, format.NativeDecimals)
		if err != nil {
			return err
		}
	}
	slippage, _ := cmd.Flags().GetInt64("slippage-bps")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, cmd, appOptions{needWallet: true, slippageBps: slippage})
	if err != nil {
		return err
	}
	defer a.close()

	result, tradeErr := a.service.Submit(ctx, req)
	if result == nil {
		return tradeErr
	}

	view := tradeView{
		JournalID:    result.JournalID,
		TxHash:       result.TxHash,
		Direction:    string(result.Direction),
		TokenAddress: result.TokenAddress,
		AmountIn:     result.AmountIn.String(),
		MinAmountOut: result.MinAmountOut.String(),
		BlockNumber:  result.BlockNumber,
		GasUsed:      result.GasUsed,
		Success:      result.Success,
	}
	if tradeErr != nil {
		view.Error = tradeErr.Error()
	}

	if err := a.print(cmd.OutOrStdout(), view, func(w io.Writer) {
		fmt.Fprintf(w, "%s %s of %s\n", view.Direction, displayUnits(view.AmountIn), view.TokenAddress)
		fmt.Fprintf(w, "tx:      %s\n", view.TxHash)
		fmt.Fprintf(w, "min out: %s\n", displayUnits(view.MinAmountOut))
		if view.BlockNumber > 0 {
			fmt.Fprintf(w, "block:   %d (gas %d)\n", view.BlockNumber, view.GasUsed)
		}
		fmt.Fprintf(w, "success: %t\n", view.Success)
	}); err != nil {
		return err
	}
	return tradeErr
}

func runJournal(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, cmd, appOptions{offline: true, slippageBps: -1})
	if err != nil {
		return err
	}
	defer a.close()

	account, _ := cmd.Flags().GetString("account")
	if account == "" {
		addr, err := a.walletAddress()
		if err != nil {
			return fmt.Errorf("--account not given: %w", err)
		}
		account = addr.Hex()
	}
	limit, _ := cmd.Flags().GetInt("limit")

	entries, err := a.service.Journal(ctx, account, limit)
	if err != nil {
		return err
	}

	return a.print(cmd.OutOrStdout(), entries, func(w io.Writer) {
		tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "CREATED\tDIRECTION\tTOKEN\tAMOUNT IN\tSTATUS\tTX")
		for _, e := range entries {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
				e.CreatedAt.Format("2006-01-02 15:04:05"),
				e.Direction,
				e.TokenAddress,
				displayUnits(e.AmountIn),
				e.Status,
				e.TxHash,
			)
		}
		tw.Flush()
	})
}

// print writes v as indented JSON with --json, otherwise renders text
func (a *app) print(w io.Writer, v interface{}, text func(io.Writer)) error {
	if a.asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}
	text(w)
	return nil
}

// displayUnits renders a raw 18-decimal amount in whole units
func displayUnits(raw string) string {
	v, ok := new(big.Int).SetString(raw, 10)
	if !ok {
		return raw
	}
	return format.FormatUnits(v, format.NativeDecimals)
}
