package models

import (
	"fmt"
	"strings"
	"time"
)

// Position represents a paper-traded position tracked by the framework.
// Correlation grouping and strategy identity live here because they are what
// the risk evaluator consumes; pricing detail stays with the paper engine.
type Position struct {
	StateMachine *StateMachine `json:"-"`     // runtime only, rebuilt from State
	State        PositionState `json:"state"` // canonical persisted state

	ID               string `json:"id"`
	Symbol           string `json:"symbol"`
	StrategyID       string `json:"strategy_id"`
	CorrelationGroup string `json:"correlation_group"`

	Quantity     int     `json:"quantity"`
	Allocation   float64 `json:"allocation"`    // capital committed at entry
	NotionalRisk float64 `json:"notional_risk"` // worst-case capital at risk
	EntryVIX     float64 `json:"entry_vix"`
	Regime       string  `json:"regime"`

	// Simulated fill detail, populated by the paper engine.
	PutStrike      float64 `json:"put_strike,omitempty"`
	CallStrike     float64 `json:"call_strike,omitempty"`
	CreditReceived float64 `json:"credit_received,omitempty"` // per contract, per share

	CurrentPnL float64   `json:"current_pnl"`
	ExitReason string    `json:"exit_reason,omitempty"`
	Expiration time.Time `json:"expiration"`
	EntryDate  time.Time `json:"entry_date,omitempty"`
	ExitDate   time.Time `json:"exit_date,omitempty"`
}

// NewPosition creates a position in the idle state, ready to be staged.
func NewPosition(id, symbol, strategyID, group string, expiration time.Time) *Position {
	return &Position{
		ID:               id,
		Symbol:           symbol,
		StrategyID:       strategyID,
		CorrelationGroup: group,
		Expiration:       expiration,
		StateMachine:     NewStateMachine(),
		State:            StateIdle,
	}
}

// TransitionState moves the position to a new state, keeping the persisted
// canonical state and lifecycle timestamps in sync with the machine.
func (p *Position) TransitionState(to PositionState, condition string) error {
	if err := p.ensureMachine().Transition(to, condition); err != nil {
		return fmt.Errorf("position %s state transition failed: %w", p.ID, err)
	}
	p.State = to

	if to == StateOpen && p.EntryDate.IsZero() {
		p.EntryDate = time.Now().UTC()
	}
	if (to == StateClosed || to == StateExpired) && p.ExitDate.IsZero() {
		p.ExitDate = time.Now().UTC()
	}
	return nil
}

// IsActive returns true while the position counts against correlation limits
// and buying power.
func (p *Position) IsActive() bool {
	return p.ensureMachine().IsActive()
}

// IsTerminal returns true once the position is closed or expired.
func (p *Position) IsTerminal() bool {
	return p.ensureMachine().IsTerminal()
}

// DTE returns calendar days until expiration, floored at zero.
func (p *Position) DTE() int {
	now := time.Now().UTC().Truncate(24 * time.Hour)
	exp := p.Expiration.UTC().Truncate(24 * time.Hour)
	days := int(exp.Sub(now).Hours() / 24)
	if days < 0 {
		return 0
	}
	return days
}

// ValidateState checks that the position's data is consistent with its
// lifecycle state. Violations indicate a persistence or bookkeeping bug.
func (p *Position) ValidateState() error {
	switch p.State {
	case StateIdle, StateStaged, StateError:
		if !p.EntryDate.IsZero() {
			return fmt.Errorf("position %s in state %s: EntryDate must be zero (current: %v)",
				p.ID, p.State, p.EntryDate)
		}
		if !p.ExitDate.IsZero() {
			return fmt.Errorf("position %s in state %s: ExitDate must be zero (current: %v)",
				p.ID, p.State, p.ExitDate)
		}
		if strings.TrimSpace(p.ExitReason) != "" {
			return fmt.Errorf("position %s in state %s: ExitReason must be empty (current: %s)",
				p.ID, p.State, p.ExitReason)
		}
	case StateOpen:
		if p.EntryDate.IsZero() {
			return fmt.Errorf("position %s in state %s: EntryDate must be set", p.ID, p.State)
		}
		if !p.ExitDate.IsZero() {
			return fmt.Errorf("position %s in state %s: ExitDate must be zero (current: %v)",
				p.ID, p.State, p.ExitDate)
		}
		if p.Allocation <= 0 {
			return fmt.Errorf("position %s in state %s: Allocation must be positive (current: %.2f)",
				p.ID, p.State, p.Allocation)
		}
		if p.Quantity <= 0 {
			return fmt.Errorf("position %s in state %s: Quantity must be > 0 (current: %d)",
				p.ID, p.State, p.Quantity)
		}
	case StateClosed, StateExpired:
		if p.EntryDate.IsZero() {
			return fmt.Errorf("position %s in state %s: EntryDate must be set", p.ID, p.State)
		}
		if p.ExitDate.IsZero() {
			return fmt.Errorf("position %s in state %s: ExitDate must be set", p.ID, p.State)
		}
		if strings.TrimSpace(p.ExitReason) == "" {
			return fmt.Errorf("position %s in state %s: ExitReason must be set", p.ID, p.State)
		}
		if !p.EntryDate.Before(p.ExitDate) {
			return fmt.Errorf("position %s in state %s: EntryDate (%v) must be before ExitDate (%v)",
				p.ID, p.State, p.EntryDate, p.ExitDate)
		}
	}

	if p.CorrelationGroup == "" && p.State != StateIdle {
		return fmt.Errorf("position %s in state %s: CorrelationGroup must be set", p.ID, p.State)
	}
	return nil
}

// ensureMachine rebuilds the StateMachine from the persisted state after a
// JSON round trip.
func (p *Position) ensureMachine() *StateMachine {
	if p.StateMachine == nil {
		p.StateMachine = NewStateMachineFromState(p.State)
	}
	return p.StateMachine
}
