package main

import (
	"os"

	"github.com/spf13/cobra"
)

func main() {
	root := &cobra.Command{
		Use:          "trader",
		Short:        "Nad.fun bonding-curve trader",
		SilenceUsage: true,
	}

	root.PersistentFlags().String("log-level", "", "log level (debug, info, warn, error), overrides LOG_LEVEL")
	root.PersistentFlags().Bool("json", false, "print results as JSON")

	statusCmd := &cobra.Command{
		Use:   "status <token>",
		Short: "Show whether a token still trades on the bonding curve",
		Args:  cobra.ExactArgs(1),
		RunE:  runStatus,
	}
	root.AddCommand(statusCmd)

	quoteCmd := &cobra.Command{
		Use:   "quote <buy|sell> <token> <amount>",
		Short: "Quote a trade without submitting it",
		Args:  cobra.ExactArgs(3),
		RunE:  runQuote,
	}
	quoteCmd.Flags().Int64("slippage-bps", -1, "slippage bound in basis points, defaults to TRADE_DEFAULT_SLIPPAGE_BPS")
	root.AddCommand(quoteCmd)

	buyCmd := &cobra.Command{
		Use:   "buy <token> <amount>",
		Short: "Buy a token with native currency",
		Args:  cobra.ExactArgs(2),
		RunE:  runTrade,
	}
	addTradeFlags(buyCmd)
	root.AddCommand(buyCmd)

	sellCmd := &cobra.Command{
		Use:   "sell <token> <amount>",
		Short: "Sell a token for native currency using a permit",
		Args:  cobra.ExactArgs(2),
		RunE:  runTrade,
	}
	addTradeFlags(sellCmd)
	root.AddCommand(sellCmd)

	journalCmd := &cobra.Command{
		Use:   "journal",
		Short: "List trades submitted from the wallet",
		Args:  cobra.NoArgs,
		RunE:  runJournal,
	}
	journalCmd.Flags().String("account", "", "account to list, defaults to the configured wallet")
	journalCmd.Flags().Int("limit", 20, "maximum number of entries (1-100)")
	root.AddCommand(journalCmd)

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func addTradeFlags(cmd *cobra.Command) {
	cmd.Flags().Int64("slippage-bps", -1, "slippage bound in basis points, defaults to TRADE_DEFAULT_SLIPPAGE_BPS")
	cmd.Flags().String("min-out", "", "explicit minimum output in whole units, overrides --slippage-bps")
}
