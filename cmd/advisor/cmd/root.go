package cmd

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "advisor",
	Short: "Options trading decision-support advisor",
	Long: `Advisor is a personal decision-support tool for premium-selling
options strategies. It classifies the volatility regime, enforces
correlation-group limits, sizes positions with a fractional Kelly
criterion, and paper-trades the result.

It recommends and simulates; it never places live orders.`,
}

var configPath string

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "config.yaml", "path to config file")
}
