// Package journal keeps a durable SQLite log of completed paper trades and
// derives realized per-strategy statistics from it. Once a strategy has
// enough journaled trades, its realized stats replace the configured
// historical ones for sizing.
package journal

import (
	"time"

	"github.com/tomking/trading-framework/internal/risk"
)

// TradeRecord is one completed paper trade.
type TradeRecord struct {
	TradeID          string
	StrategyID       string
	Symbol           string
	CorrelationGroup string
	Quantity         int
	Allocation       float64
	EntryVIX         float64
	Regime           string
	OpenTime         time.Time
	CloseTime        time.Time
	RealizedPL       float64
	Reason           string
}

// StrategyRecord summarizes a strategy's realized performance.
type StrategyRecord struct {
	StrategyID string
	Trades     int
	Stats      risk.StrategyStats
	TotalPL    float64
}

// Journal records completed trades and answers statistics queries.
type Journal interface {
	RecordTrade(TradeRecord) error
	GetTrade(tradeID string) (TradeRecord, error)
	ListTradesClosedBetween(start, end time.Time) ([]TradeRecord, error)
	StrategyStats(strategyID string) (StrategyRecord, error)
	Close() error
}
