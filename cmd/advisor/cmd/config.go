package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tomking/trading-framework/internal/config"
	"github.com/tomking/trading-framework/internal/strategy"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Validate configuration files",
	Long: `Check a configuration file before running the advisor.

Example:
  advisor config validate --config config.yaml`,
}

var configValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate a configuration file",
	RunE:  runConfigValidate,
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configValidateCmd)
}

func runConfigValidate(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	// The strategy catalog applies entry-window checks config.Load leaves
	// to it (day names, clock parsing, window ordering).
	if _, err := strategy.NewCatalog(cfg.Strategies, cfg.Location()); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	fmt.Printf("configuration valid: %s\n", configPath)
	fmt.Printf("  mode:       %s (%s)\n", cfg.Environment.Mode, cfg.Broker.Provider)
	fmt.Printf("  strategies: %d\n", len(cfg.Strategies))
	fmt.Printf("  phases:     %d breakpoints\n", len(cfg.Risk.PhaseBreakpoints))
	fmt.Printf("  journal:    %s\n", cfg.Journal.Path)
	return nil
}
