package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	verbose bool
	logger  *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:              "mlirtv",
	Short:            "mlirtv checks translation equivalence between two encoded tensor-IR functions",
	TraverseChildren: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg := zap.NewProductionConfig()
		if verbose {
			cfg = zap.NewDevelopmentConfig()
		}
		l, err := cfg.Build()
		if err != nil {
			return fmt.Errorf("mlirtv: building logger: %w", err)
		}
		logger = l
		return nil
	},
}

func Execute() error {
	defer func() {
		if logger != nil {
			_ = logger.Sync()
		}
	}()
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable development-mode (human-readable) logging")
	rootCmd.AddCommand(checkCmd)
	rootCmd.AddCommand(analyzeCmd)
}
