package journal

import (
	"fmt"
	"strings"
)

// FormatTrade renders one trade as a multi-line detail block for the CLI.
func FormatTrade(t TradeRecord) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Trade %s\n", t.TradeID)
	fmt.Fprintf(&b, "  strategy:  %s (%s, group %s)\n", t.StrategyID, t.Symbol, t.CorrelationGroup)
	fmt.Fprintf(&b, "  quantity:  %d\n", t.Quantity)
	fmt.Fprintf(&b, "  allocated: $%.2f\n", t.Allocation)
	fmt.Fprintf(&b, "  entry vix: %.2f (%s)\n", t.EntryVIX, t.Regime)
	fmt.Fprintf(&b, "  opened:    %s\n", t.OpenTime.Format("2006-01-02 15:04:05 MST"))
	fmt.Fprintf(&b, "  closed:    %s (%s)\n", t.CloseTime.Format("2006-01-02 15:04:05 MST"), t.Reason)
	fmt.Fprintf(&b, "  pnl:       %+.2f", t.RealizedPL)
	return b.String()
}

// FormatTrades renders a compact one-line-per-trade table with a P&L total.
func FormatTrades(trades []TradeRecord) string {
	if len(trades) == 0 {
		return "no trades"
	}
	var b strings.Builder
	var total float64
	for _, t := range trades {
		fmt.Fprintf(&b, "%s  %-20s %-6s qty=%-3d %+10.2f  %s\n",
			t.CloseTime.Format("15:04:05"), t.StrategyID, t.Symbol, t.Quantity, t.RealizedPL, t.Reason)
		total += t.RealizedPL
	}
	fmt.Fprintf(&b, "%d trades, total %+.2f", len(trades), total)
	return b.String()
}

// FormatStrategy renders a strategy's realized performance summary.
func FormatStrategy(r StrategyRecord) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Strategy %s\n", r.StrategyID)
	fmt.Fprintf(&b, "  trades:   %d\n", r.Trades)
	if r.Trades > 0 {
		fmt.Fprintf(&b, "  win rate: %.1f%%\n", r.Stats.WinRate*100)
		fmt.Fprintf(&b, "  avg win:  $%.2f\n", r.Stats.AvgWin)
		fmt.Fprintf(&b, "  avg loss: $%.2f\n", r.Stats.AvgLoss)
	}
	fmt.Fprintf(&b, "  total pnl: %+.2f", r.TotalPL)
	return b.String()
}
