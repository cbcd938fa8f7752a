package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tomking/trading-framework/internal/config"
	"github.com/tomking/trading-framework/internal/models"
	"github.com/tomking/trading-framework/internal/risk"
)

var evaluateCmd = &cobra.Command{
	Use:   "evaluate",
	Short: "Evaluate one proposed position from the command line",
	Long: `Run a single evaluation against the configured risk policy: classify
the VIX regime, check the correlation limit for the account phase, and size
the position with the fractional Kelly formula. Nothing is stored or traded.

The strategy's configured statistics are used unless overridden with
--win-rate, --avg-win and --avg-loss.

Examples:
  advisor evaluate --vix 19.5 --equity 80000 --strategy lt112
  advisor evaluate --vix 32 --equity 50000 --strategy zero_dte_condor \
      --existing equity_index,metals`,
	RunE: runEvaluate,
}

var (
	evalVIX      float64
	evalEquity   float64
	evalStrategy string
	evalExisting []string
	evalWinRate  float64
	evalAvgWin   float64
	evalAvgLoss  float64
)

func init() {
	rootCmd.AddCommand(evaluateCmd)

	evaluateCmd.Flags().Float64Var(&evalVIX, "vix", 0, "current VIX reading")
	evaluateCmd.Flags().Float64Var(&evalEquity, "equity", 0, "account net liquidation value")
	evaluateCmd.Flags().StringVar(&evalStrategy, "strategy", "", "strategy id from the config file")
	evaluateCmd.Flags().StringSliceVar(&evalExisting, "existing", nil, "correlation groups of positions already open")
	evaluateCmd.Flags().Float64Var(&evalWinRate, "win-rate", 0, "override win rate (0..1)")
	evaluateCmd.Flags().Float64Var(&evalAvgWin, "avg-win", 0, "override average winning trade")
	evaluateCmd.Flags().Float64Var(&evalAvgLoss, "avg-loss", 0, "override average losing trade")

	_ = evaluateCmd.MarkFlagRequired("vix")
	_ = evaluateCmd.MarkFlagRequired("equity")
	_ = evaluateCmd.MarkFlagRequired("strategy")
}

func runEvaluate(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	var strat *config.StrategyConfig
	for i := range cfg.Strategies {
		if cfg.Strategies[i].ID == evalStrategy {
			strat = &cfg.Strategies[i]
			break
		}
	}
	if strat == nil {
		return fmt.Errorf("unknown strategy %q", evalStrategy)
	}

	stats := strat.Stats
	if cmd.Flags().Changed("win-rate") {
		stats.WinRate = evalWinRate
	}
	if cmd.Flags().Changed("avg-win") {
		stats.AvgWin = evalAvgWin
	}
	if cmd.Flags().Changed("avg-loss") {
		stats.AvgLoss = evalAvgLoss
	}

	phase, err := models.PhaseForEquity(evalEquity, cfg.Risk.PhaseBreakpoints)
	if err != nil {
		return fmt.Errorf("account phase: %w", err)
	}

	existing := make([]risk.Position, 0, len(evalExisting))
	for _, group := range evalExisting {
		existing = append(existing, risk.Position{CorrelationGroup: group})
	}

	evaluator, err := risk.NewEvaluator(cfg.Risk.VIXRegimes, cfg.Risk.CorrelationLimits, cfg.Risk.KellyFraction)
	if err != nil {
		return fmt.Errorf("risk policy: %w", err)
	}

	result, err := evaluator.Evaluate(risk.EvaluationInput{
		VIX:              evalVIX,
		Equity:           evalEquity,
		Phase:            phase,
		CorrelationGroup: strat.CorrelationGroup,
		Stats:            stats,
		Existing:         existing,
	})
	if err != nil {
		return fmt.Errorf("evaluate: %w", err)
	}

	printEvaluation(strat, phase, result)
	return nil
}

func printEvaluation(strat *config.StrategyConfig, phase int, r risk.EvaluationResult) {
	verdict := "REJECTED"
	if r.Accepted {
		verdict = "ACCEPTED"
	}
	fmt.Printf("%s  %s (%s)\n", verdict, strat.ID, strat.Symbol)
	fmt.Printf("  reason:      %s\n", r.Reason)
	fmt.Printf("  regime:      %s (max BP %.0f%%)\n", r.Regime, r.MaxBuyingPowerFraction*100)
	fmt.Printf("  phase:       %d\n", phase)
	fmt.Printf("  correlation: %d of %d in %s\n", r.CorrelationCount, r.CorrelationLimit, strat.CorrelationGroup)
	if r.Accepted {
		fmt.Printf("  allocation:  $%.2f (%.1f%% of equity)\n", r.RecommendedAllocation, r.AllocationFraction*100)
	}
}
