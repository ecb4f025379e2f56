package main

import (
	"encoding/json"
	"io"
	"os"

	"TroveDesk/internal/config"

	"github.com/spf13/cobra"
)

const defaultConfigPath = "configs/config.yaml"

func newRootCmd() *cobra.Command {
	var cfgPath string

	root := &cobra.Command{
		Use:          "trovedesk",
		Short:        "Backend for the EVRO borrowing portal",
		SilenceUsage: true,
	}

	envPath := os.Getenv("CONFIG_PATH")
	if envPath == "" {
		envPath = defaultConfigPath
	}
	root.PersistentFlags().StringVarP(&cfgPath, "config", "c", envPath, "path to the YAML config file")

	load := func() (*config.Config, error) {
		cfg, err := config.Load(cfgPath)
		if err != nil {
			return nil, err
		}
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
		return cfg, nil
	}

	root.AddCommand(
		newServeCmd(load),
		newPricesCmd(load),
		newTrovesCmd(load),
		newLoanCmd(load),
		newBracketsCmd(load),
	)
	return root
}

type configLoader func() (*config.Config, error)

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
