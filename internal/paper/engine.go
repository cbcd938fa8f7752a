// Package paper simulates fills, marks, and exits for staged positions.
// Fills happen at the option chain midpoint; no order ever leaves the
// process.
package paper

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/tomking/trading-framework/internal/broker"
	"github.com/tomking/trading-framework/internal/journal"
	"github.com/tomking/trading-framework/internal/models"
	"github.com/tomking/trading-framework/internal/storage"
	"github.com/tomking/trading-framework/internal/strategy"
	"github.com/tomking/trading-framework/internal/util"
)

const (
	// targetDelta picks the short strikes for simulated fills.
	targetDelta = 0.16
	// optionMultiplier converts per-share option prices to dollars.
	optionMultiplier = 100.0
	// tickSize for simulated fill prices.
	tickSize = 0.01
	// marginMultiple is a rough buying-power estimate per contract, as a
	// multiple of credit received.
	marginMultiple = 10.0
)

// Engine drives the paper lifecycle: staged -> open -> closed.
type Engine struct {
	broker  broker.Broker
	storage storage.Interface
	catalog *strategy.Catalog
	journal journal.Journal
	logger  logrus.FieldLogger
}

// NewEngine creates a paper engine. The journal may be nil, in which case
// closed trades are only kept in storage history.
func NewEngine(b broker.Broker, store storage.Interface, cat *strategy.Catalog, jnl journal.Journal, logger logrus.FieldLogger) *Engine {
	return &Engine{
		broker:  b,
		storage: store,
		catalog: cat,
		journal: jnl,
		logger:  logger,
	}
}

// FillStaged simulates fills for every staged position. A position that
// cannot be priced moves to the error state instead of blocking the rest.
func (e *Engine) FillStaged(ctx context.Context) error {
	for _, pos := range e.storage.GetOpenPositions() {
		if pos.State != models.StateStaged {
			continue
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		p := pos
		if err := e.fillOne(&p); err != nil {
			e.logger.WithError(err).WithField("position_id", p.ID).Warn("paper fill failed")
			if terr := p.TransitionState(models.StateError, "fill_failed"); terr != nil {
				return terr
			}
			if uerr := e.storage.UpdatePosition(&p); uerr != nil {
				return uerr
			}
		}
	}
	return nil
}

func (e *Engine) fillOne(pos *models.Position) error {
	expiration := pos.Expiration.Format("2006-01-02")
	chain, err := e.broker.GetOptionChain(pos.Symbol, expiration, true)
	if err != nil {
		return fmt.Errorf("fetching chain for %s: %w", pos.Symbol, err)
	}

	putStrike, callStrike := strikesNearDelta(chain, targetDelta)
	if putStrike == 0 || callStrike == 0 {
		return fmt.Errorf("no strikes near %.2f delta for %s", targetDelta, pos.Symbol)
	}

	credit, err := strangleCredit(chain, putStrike, callStrike)
	if err != nil {
		return err
	}
	// Round the fill credit down: never book more premium than the mids show.
	credit = util.FloorToTick(credit, tickSize)
	if credit <= 0 {
		return fmt.Errorf("non-positive credit for %s", pos.Symbol)
	}

	quantity := contractsFor(pos.Allocation, credit)

	pos.PutStrike = putStrike
	pos.CallStrike = callStrike
	pos.CreditReceived = credit
	pos.Quantity = quantity

	if err := pos.TransitionState(models.StateOpen, "paper_fill"); err != nil {
		return err
	}
	if err := e.storage.UpdatePosition(pos); err != nil {
		return err
	}

	e.logger.WithFields(logrus.Fields{
		"position_id": pos.ID,
		"symbol":      pos.Symbol,
		"put_strike":  putStrike,
		"call_strike": callStrike,
		"credit":      credit,
		"quantity":    quantity,
	}).Info("paper fill")
	return nil
}

// MarkPositions reprices every open position against the current chain and
// stores the unrealized P&L.
func (e *Engine) MarkPositions(ctx context.Context) error {
	for _, pos := range e.storage.GetOpenPositions() {
		if pos.State != models.StateOpen {
			continue
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		p := pos
		pnl, err := e.markToMarket(&p)
		if err != nil {
			e.logger.WithError(err).WithField("position_id", p.ID).Warn("mark to market failed")
			continue
		}
		p.CurrentPnL = pnl
		if err := e.storage.UpdatePosition(&p); err != nil {
			return err
		}
	}
	return nil
}

func (e *Engine) markToMarket(pos *models.Position) (float64, error) {
	expiration := pos.Expiration.Format("2006-01-02")
	chain, err := e.broker.GetOptionChain(pos.Symbol, expiration, false)
	if err != nil {
		return 0, err
	}

	cost, err := strangleCredit(chain, pos.PutStrike, pos.CallStrike)
	if err != nil {
		return 0, err
	}
	cost = util.CeilToTick(cost, tickSize)

	// P&L = credit received - current cost to close, in dollars.
	return (pos.CreditReceived - cost) * optionMultiplier * float64(pos.Quantity), nil
}

// CheckExits closes positions that hit their profit target, stop loss, or
// expiration. Positions must have been marked first.
func (e *Engine) CheckExits(now time.Time) error {
	for _, pos := range e.storage.GetOpenPositions() {
		if pos.State != models.StateOpen {
			continue
		}

		reason, ok := e.exitReason(&pos, now)
		if !ok {
			continue
		}
		if err := e.closePosition(&pos, pos.CurrentPnL, reason); err != nil {
			return err
		}
	}
	return nil
}

func (e *Engine) exitReason(pos *models.Position, now time.Time) (string, bool) {
	spec, ok := e.catalog.ByID(pos.StrategyID)
	if !ok {
		e.logger.WithField("strategy", pos.StrategyID).Warn("open position references unknown strategy")
		return "", false
	}

	maxGain := pos.CreditReceived * optionMultiplier * float64(pos.Quantity)
	if maxGain > 0 {
		if pos.CurrentPnL >= spec.ProfitTarget*maxGain {
			return "profit_target", true
		}
		if pos.CurrentPnL <= -spec.StopLossPct*maxGain {
			return "stop_loss", true
		}
	}

	if now.After(pos.Expiration.Add(24 * time.Hour)) {
		return "expiration_reached", true
	}
	return "", false
}

// CloseAll force-closes every open position with the given exit reason.
// Used by the daily loss halt.
func (e *Engine) CloseAll(reason string) error {
	for _, pos := range e.storage.GetOpenPositions() {
		if pos.State != models.StateOpen {
			continue
		}
		p := pos
		if err := e.closePosition(&p, p.CurrentPnL, reason); err != nil {
			return err
		}
	}
	return nil
}

func (e *Engine) closePosition(pos *models.Position, finalPnL float64, reason string) error {
	if err := e.storage.ClosePosition(pos.ID, finalPnL, reason); err != nil {
		return err
	}

	e.logger.WithFields(logrus.Fields{
		"position_id": pos.ID,
		"strategy":    pos.StrategyID,
		"pnl":         finalPnL,
		"reason":      reason,
	}).Info("paper position closed")

	if e.journal == nil {
		return nil
	}
	rec := journal.TradeRecord{
		TradeID:          pos.ID,
		StrategyID:       pos.StrategyID,
		Symbol:           pos.Symbol,
		CorrelationGroup: pos.CorrelationGroup,
		Quantity:         pos.Quantity,
		Allocation:       pos.Allocation,
		EntryVIX:         pos.EntryVIX,
		Regime:           pos.Regime,
		OpenTime:         pos.EntryDate,
		CloseTime:        time.Now().UTC(),
		RealizedPL:       finalPnL,
		Reason:           reason,
	}
	if err := e.journal.RecordTrade(rec); err != nil {
		e.logger.WithError(err).WithField("position_id", pos.ID).Error("journaling trade failed")
	}
	return nil
}

// strikesNearDelta returns the put and call strikes closest to the target
// absolute delta.
func strikesNearDelta(options []broker.Option, target float64) (putStrike, callStrike float64) {
	bestPutDiff := math.MaxFloat64
	bestCallDiff := math.MaxFloat64

	for _, option := range options {
		if option.Greeks == nil {
			continue
		}

		switch option.OptionType {
		case "put":
			diff := math.Abs(math.Abs(option.Greeks.Delta) - target)
			if diff < bestPutDiff {
				bestPutDiff = diff
				putStrike = option.Strike
			}
		case "call":
			diff := math.Abs(option.Greeks.Delta - target)
			if diff < bestCallDiff {
				bestCallDiff = diff
				callStrike = option.Strike
			}
		}
	}
	return putStrike, callStrike
}

// strangleCredit prices the short strangle at the chain midpoints.
func strangleCredit(options []broker.Option, putStrike, callStrike float64) (float64, error) {
	putCredit := 0.0
	callCredit := 0.0

	for _, option := range options {
		if option.Strike == putStrike && option.OptionType == "put" {
			putCredit = broker.MidPrice(option)
		}
		if option.Strike == callStrike && option.OptionType == "call" {
			callCredit = broker.MidPrice(option)
		}
	}

	if putCredit == 0 || callCredit == 0 {
		return 0, fmt.Errorf("no matching strikes: put=%.2f call=%.2f", putStrike, callStrike)
	}
	return putCredit + callCredit, nil
}

// contractsFor sizes the simulated position from its capital allocation,
// using a rough margin estimate per contract.
func contractsFor(allocation, credit float64) int {
	bprPerContract := credit * optionMultiplier * marginMultiple
	if bprPerContract <= 0 {
		return 1
	}
	contracts := int(allocation / bprPerContract)
	if contracts < 1 {
		contracts = 1
	}
	return contracts
}
