package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/tourneyhub/tourneyhub/client-core/internal/config"
	"github.com/tourneyhub/tourneyhub/client-core/pkg/logger"
)

var cfg *config.Config

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "tourneyhubctl",
		Short:         "Developer tooling for the tourneyhub client core",
		Long:          `tourneyhubctl issues emulator id tokens, inspects profiles and reads the auth activity log.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if cfg != nil {
				return nil
			}
			c, err := config.LoadConfig()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			cfg = c
			level := cfg.Log.Level
			if debug, _ := cmd.Flags().GetBool("debug"); debug {
				level = "debug"
			}
			logger.SetOutput(os.Stderr, cfg.Log.Dev)
			logger.Init(level)
			return nil
		},
	}
	root.PersistentFlags().StringP("output", "o", "table", "output format (table, json, yaml)")
	root.PersistentFlags().Bool("debug", false, "debug logging")

	root.AddCommand(newTokenCmd())
	root.AddCommand(newProfileCmd())
	root.AddCommand(newActivityCmd())
	return root
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
