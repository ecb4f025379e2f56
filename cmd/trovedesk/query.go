package main

import (
	"fmt"

	"TroveDesk/internal/collector"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"
)

func newPricesCmd(load configLoader) *cobra.Command {
	return &cobra.Command{
		Use:   "prices",
		Short: "Fetch the current price set",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			a, err := buildApp(cmd.Context(), cfg, modeQuery)
			if err != nil {
				return err
			}
			defer a.Close()

			set, err := a.prices.Collect(cmd.Context())
			if err != nil {
				return fmt.Errorf("%s: %w", collector.Classify(err), err)
			}
			return printJSON(cmd.OutOrStdout(), map[string]any{"prices": set})
		},
	}
}

func newTrovesCmd(load configLoader) *cobra.Command {
	return &cobra.Command{
		Use:   "troves <account>",
		Short: "List the troves opened by an account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !common.IsHexAddress(args[0]) {
				return fmt.Errorf("invalid account address %q", args[0])
			}
			cfg, err := load()
			if err != nil {
				return err
			}
			a, err := buildApp(cmd.Context(), cfg, modeQuery)
			if err != nil {
				return err
			}
			defer a.Close()

			troves := a.subgraph.TrovesByAccount(cmd.Context(), common.HexToAddress(args[0]))
			return printJSON(cmd.OutOrStdout(), map[string]any{"troves": troves})
		},
	}
}

func newLoanCmd(load configLoader) *cobra.Command {
	return &cobra.Command{
		Use:   "loan <prefixedId>",
		Short: "Show the loan screen state for a trove, e.g. 1:0x2a",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			a, err := buildApp(cmd.Context(), cfg, modeQuery)
			if err != nil {
				return err
			}
			defer a.Close()

			view, err := a.loans.Load(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), view)
		},
	}
}

func newBracketsCmd(load configLoader) *cobra.Command {
	return &cobra.Command{
		Use:   "brackets",
		Short: "List debt per interest rate bracket across branches",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			a, err := buildApp(cmd.Context(), cfg, modeQuery)
			if err != nil {
				return err
			}
			defer a.Close()

			brackets := a.subgraph.AllInterestRateBrackets(cmd.Context())
			return printJSON(cmd.OutOrStdout(), map[string]any{"brackets": brackets})
		},
	}
}
