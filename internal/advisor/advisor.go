// Package advisor runs the periodic decision cycle: gate on the market
// clock, refresh market and account state, maintain open paper positions,
// then evaluate each in-window strategy candidate against the risk policy
// and stage what is accepted.
package advisor

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/tomking/trading-framework/internal/broker"
	"github.com/tomking/trading-framework/internal/config"
	"github.com/tomking/trading-framework/internal/journal"
	"github.com/tomking/trading-framework/internal/models"
	"github.com/tomking/trading-framework/internal/orders"
	"github.com/tomking/trading-framework/internal/paper"
	"github.com/tomking/trading-framework/internal/retry"
	"github.com/tomking/trading-framework/internal/risk"
	"github.com/tomking/trading-framework/internal/storage"
	"github.com/tomking/trading-framework/internal/strategy"
)

// Advisor wires the full cycle together.
type Advisor struct {
	cfg       *config.Config
	broker    broker.Broker
	market    *retry.Client
	storage   storage.Interface
	catalog   *strategy.Catalog
	stager    *orders.Stager
	engine    *paper.Engine
	journal   journal.Journal
	evaluator *risk.Evaluator
	logger    logrus.FieldLogger
}

// CycleReport summarizes one advisor cycle.
type CycleReport struct {
	Skipped         bool
	SkipReason      string
	Halted          bool
	VIX             float64
	Equity          float64
	Phase           int
	Regime          string
	Recommendations []models.Recommendation
}

// New builds an advisor from validated configuration and its collaborators.
// The journal may be nil; sizing then always uses configured statistics.
func New(
	cfg *config.Config,
	b broker.Broker,
	store storage.Interface,
	cat *strategy.Catalog,
	stager *orders.Stager,
	engine *paper.Engine,
	jnl journal.Journal,
	logger logrus.FieldLogger,
) (*Advisor, error) {
	evaluator, err := risk.NewEvaluator(cfg.Risk.VIXRegimes, cfg.Risk.CorrelationLimits, cfg.Risk.KellyFraction)
	if err != nil {
		return nil, fmt.Errorf("building risk evaluator: %w", err)
	}

	return &Advisor{
		cfg:       cfg,
		broker:    b,
		market:    retry.NewClient(b, logger),
		storage:   store,
		catalog:   cat,
		stager:    stager,
		engine:    engine,
		journal:   jnl,
		evaluator: evaluator,
		logger:    logger,
	}, nil
}

// RunCycle executes one full advisor pass at the given instant.
func (a *Advisor) RunCycle(ctx context.Context, now time.Time) (*CycleReport, error) {
	report := &CycleReport{}

	open, err := a.broker.IsTradingDay()
	if err != nil {
		return nil, fmt.Errorf("checking market clock: %w", err)
	}
	if !open {
		report.Skipped = true
		report.SkipReason = "market_closed"
		return report, nil
	}
	if !a.cfg.IsWithinTradingHours(now) {
		report.Skipped = true
		report.SkipReason = "outside_trading_hours"
		return report, nil
	}

	vix, err := a.market.GetVIXWithRetry(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetching VIX: %w", err)
	}
	equity, err := a.market.GetAccountBalanceWithRetry(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetching equity: %w", err)
	}
	phase, err := models.PhaseForEquity(equity, a.cfg.Risk.PhaseBreakpoints)
	if err != nil {
		return nil, fmt.Errorf("resolving account phase: %w", err)
	}

	report.VIX = vix
	report.Equity = equity
	report.Phase = phase

	// Maintain existing paper positions before considering new exposure.
	if err := a.engine.FillStaged(ctx); err != nil {
		return nil, err
	}
	if err := a.engine.MarkPositions(ctx); err != nil {
		return nil, err
	}
	if err := a.engine.CheckExits(now); err != nil {
		return nil, err
	}

	if a.dailyLossBreached(now) {
		a.logger.WithField("daily_pnl", a.storage.GetDailyPnL(now.Format("2006-01-02"))).
			Warn("daily loss limit breached, halting")
		if err := a.engine.CloseAll("daily_loss_halt"); err != nil {
			return nil, err
		}
		report.Halted = true
		return report, nil
	}

	existing, err := a.existingExposure(ctx)
	if err != nil {
		return nil, err
	}

	for _, cand := range a.catalog.Candidates(now, phase) {
		if a.hasActivePosition(cand.StrategyID) {
			continue
		}

		stats := cand.Stats
		if a.journal != nil {
			stats, err = journal.EffectiveStats(a.journal, cand.StrategyID, a.cfg.Journal.MinTradesForStats, cand.Stats)
			if err != nil {
				return nil, fmt.Errorf("realized stats for %s: %w", cand.StrategyID, err)
			}
		}

		result, err := a.evaluator.Evaluate(risk.EvaluationInput{
			VIX:              vix,
			Equity:           equity,
			Phase:            phase,
			CorrelationGroup: cand.CorrelationGroup,
			Stats:            stats,
			Existing:         existing,
		})
		if err != nil {
			a.logger.WithError(err).WithField("strategy", cand.StrategyID).Error("evaluation failed")
			continue
		}

		rec := models.Recommendation{
			ID:               uuid.NewString(),
			StrategyID:       cand.StrategyID,
			Symbol:           cand.Symbol,
			CorrelationGroup: cand.CorrelationGroup,
			Accepted:         result.Accepted,
			Reason:           string(result.Reason),
			Regime:           result.Regime,
			VIX:              vix,
			MaxBPFraction:    result.MaxBuyingPowerFraction,
			Allocation:       result.RecommendedAllocation,
			AllocationPct:    result.AllocationFraction,
			Phase:            phase,
			GeneratedAt:      now.UTC(),
		}
		if err := a.storage.AddRecommendation(rec); err != nil {
			return nil, fmt.Errorf("persisting recommendation: %w", err)
		}
		report.Recommendations = append(report.Recommendations, rec)
		report.Regime = result.Regime

		a.logger.WithFields(logrus.Fields{
			"strategy":   rec.StrategyID,
			"accepted":   rec.Accepted,
			"reason":     rec.Reason,
			"regime":     rec.Regime,
			"allocation": rec.Allocation,
		}).Info("recommendation")

		if !result.Accepted {
			continue
		}

		// Fold the accepted proposal into the working set so the next
		// candidate sees it against the correlation limits.
		existing = append(existing, risk.Position{
			CorrelationGroup: cand.CorrelationGroup,
			StrategyID:       cand.StrategyID,
			NotionalRisk:     result.RecommendedAllocation,
		})

		if _, err := a.stager.Stage(rec, cand.Expiration); err != nil {
			return nil, fmt.Errorf("staging %s: %w", cand.StrategyID, err)
		}
	}

	// Fill anything staged this cycle so exposure is live immediately.
	if err := a.engine.FillStaged(ctx); err != nil {
		return nil, err
	}

	return report, nil
}

func (a *Advisor) dailyLossBreached(now time.Time) bool {
	limit := a.cfg.Risk.MaxDailyLoss
	if limit <= 0 {
		return false
	}
	return a.storage.GetDailyPnL(now.Format("2006-01-02")) <= -limit
}

// existingExposure merges active paper positions with whatever the broker
// account already holds, mapped through the symbol correlation table.
func (a *Advisor) existingExposure(ctx context.Context) ([]risk.Position, error) {
	var out []risk.Position

	for _, pos := range a.storage.GetOpenPositions() {
		p := pos
		if !p.IsActive() {
			continue
		}
		out = append(out, risk.Position{
			CorrelationGroup: p.CorrelationGroup,
			StrategyID:       p.StrategyID,
			NotionalRisk:     p.NotionalRisk,
		})
	}

	brokerPositions, err := a.market.GetPositionsWithRetry(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetching broker positions: %w", err)
	}
	for _, bp := range brokerPositions {
		group, ok := a.cfg.GroupForSymbol(bp.UnderlyingSymbol)
		if !ok {
			a.logger.WithField("symbol", bp.UnderlyingSymbol).
				Debug("broker position has no correlation group mapping")
			continue
		}
		out = append(out, risk.Position{
			CorrelationGroup: group,
			StrategyID:       "broker:" + bp.Symbol,
			NotionalRisk:     bp.CostBasis,
		})
	}

	return out, nil
}

func (a *Advisor) hasActivePosition(strategyID string) bool {
	for _, pos := range a.storage.GetOpenPositions() {
		p := pos
		if p.StrategyID == strategyID && p.IsActive() {
			return true
		}
	}
	return false
}
