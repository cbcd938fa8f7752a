package journal

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/tomking/trading-framework/internal/risk"
)

const selectColumns = `trade_id, strategy_id, symbol, correlation_group, quantity, allocation, entry_vix, regime, open_time, close_time, realized_pl, reason`

func scanTrade(scan func(dest ...any) error) (TradeRecord, error) {
	var rec TradeRecord
	err := scan(
		&rec.TradeID,
		&rec.StrategyID,
		&rec.Symbol,
		&rec.CorrelationGroup,
		&rec.Quantity,
		&rec.Allocation,
		&rec.EntryVIX,
		&rec.Regime,
		&rec.OpenTime,
		&rec.CloseTime,
		&rec.RealizedPL,
		&rec.Reason,
	)
	return rec, err
}

// GetTrade returns a single trade record by ID.
func (j *SQLiteJournal) GetTrade(tradeID string) (TradeRecord, error) {
	row := j.db.QueryRow(`
		SELECT `+selectColumns+`
		FROM trades
		WHERE trade_id = ?`, tradeID)

	rec, err := scanTrade(row.Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return TradeRecord{}, fmt.Errorf("trade %q not found", tradeID)
		}
		return TradeRecord{}, err
	}
	return rec, nil
}

// ListTradesClosedBetween returns trades whose close_time is within [start, end).
func (j *SQLiteJournal) ListTradesClosedBetween(start, end time.Time) ([]TradeRecord, error) {
	rows, err := j.db.Query(`
		SELECT `+selectColumns+`
		FROM trades
		WHERE close_time >= ? AND close_time < ?
		ORDER BY close_time ASC`, start, end)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []TradeRecord
	for rows.Next() {
		rec, err := scanTrade(rows.Scan)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// StrategyStats aggregates realized results for one strategy. Strategies with
// no journaled trades return a zero record, not an error.
func (j *SQLiteJournal) StrategyStats(strategyID string) (StrategyRecord, error) {
	row := j.db.QueryRow(`
		SELECT
			COUNT(*),
			COALESCE(SUM(realized_pl), 0),
			COALESCE(SUM(CASE WHEN realized_pl > 0 THEN 1 ELSE 0 END), 0),
			COALESCE(AVG(CASE WHEN realized_pl > 0 THEN realized_pl END), 0),
			COALESCE(AVG(CASE WHEN realized_pl <= 0 THEN -realized_pl END), 0)
		FROM trades
		WHERE strategy_id = ?`, strategyID)

	var (
		trades  int
		totalPL float64
		wins    int
		avgWin  float64
		avgLoss float64
	)
	if err := row.Scan(&trades, &totalPL, &wins, &avgWin, &avgLoss); err != nil {
		return StrategyRecord{}, err
	}

	rec := StrategyRecord{
		StrategyID: strategyID,
		Trades:     trades,
		TotalPL:    totalPL,
	}
	if trades > 0 {
		rec.Stats = risk.StrategyStats{
			WinRate: float64(wins) / float64(trades),
			AvgWin:  avgWin,
			AvgLoss: avgLoss,
		}
	}
	return rec, nil
}

// EffectiveStats returns realized stats once a strategy has at least
// minTrades journaled trades, otherwise the configured fallback. Realized
// stats that would fail sizing validation also fall back.
func EffectiveStats(j Journal, strategyID string, minTrades int, fallback risk.StrategyStats) (risk.StrategyStats, error) {
	rec, err := j.StrategyStats(strategyID)
	if err != nil {
		return risk.StrategyStats{}, err
	}
	if rec.Trades < minTrades {
		return fallback, nil
	}
	if err := rec.Stats.Validate(); err != nil {
		return fallback, nil
	}
	return rec.Stats, nil
}
