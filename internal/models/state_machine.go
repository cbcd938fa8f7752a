// Package models provides data structures and lifecycle management for
// paper-traded positions, account state, and advisor recommendations.
package models

import (
	"fmt"
	"time"
)

// PositionState represents the current state of a paper position.
type PositionState string

const (
	// StateIdle means no active position; the slot is ready for a new entry.
	StateIdle PositionState = "idle"
	// StateStaged means a simulated order has been staged, waiting for a fill.
	StateStaged PositionState = "staged"
	// StateOpen means the paper position is live and being marked to market.
	StateOpen PositionState = "open"
	// StateClosed means the position was exited by rule (profit target, stop,
	// or time limit).
	StateClosed PositionState = "closed"
	// StateExpired means the position reached expiration without an exit.
	StateExpired PositionState = "expired"
	// StateError means the position needs manual attention before reuse.
	StateError PositionState = "error"
)

// StateTransition defines a valid state transition and the condition that
// drives it.
type StateTransition struct {
	From      PositionState
	To        PositionState
	Condition string
}

// ValidTransitions enumerates the paper-position lifecycle.
var ValidTransitions = []StateTransition{
	{StateIdle, StateStaged, "order_staged"},
	{StateStaged, StateOpen, "paper_fill"},
	{StateStaged, StateIdle, "order_canceled"},
	{StateStaged, StateError, "fill_failed"},
	{StateOpen, StateClosed, "profit_target"},
	{StateOpen, StateClosed, "stop_loss"},
	{StateOpen, StateClosed, "time_limit"},
	{StateOpen, StateClosed, "daily_loss_halt"},
	{StateOpen, StateExpired, "expiration_reached"},
	{StateError, StateIdle, "manual_reset"},
}

// StateMachine validates paper-position state transitions.
type StateMachine struct {
	currentState  PositionState
	previousState PositionState
	transitionAt  time.Time
}

// NewStateMachine creates a state machine in the idle state.
func NewStateMachine() *StateMachine {
	return &StateMachine{
		currentState:  StateIdle,
		previousState: StateIdle,
		transitionAt:  time.Now().UTC(),
	}
}

// NewStateMachineFromState restores a state machine from a persisted state.
func NewStateMachineFromState(state PositionState) *StateMachine {
	if state == "" {
		state = StateIdle
	}
	return &StateMachine{
		currentState:  state,
		previousState: state,
		transitionAt:  time.Now().UTC(),
	}
}

// GetCurrentState returns the current state.
func (sm *StateMachine) GetCurrentState() PositionState {
	return sm.currentState
}

// GetPreviousState returns the previous state.
func (sm *StateMachine) GetPreviousState() PositionState {
	return sm.previousState
}

// Transition moves to a new state after validating the edge and condition.
func (sm *StateMachine) Transition(to PositionState, condition string) error {
	if !sm.isTransitionDefined(to, condition) {
		return fmt.Errorf("invalid transition from %s to %s with condition %q",
			sm.currentState, to, condition)
	}
	sm.previousState = sm.currentState
	sm.currentState = to
	sm.transitionAt = time.Now().UTC()
	return nil
}

func (sm *StateMachine) isTransitionDefined(to PositionState, condition string) bool {
	for _, tr := range ValidTransitions {
		if tr.From == sm.currentState && tr.To == to && tr.Condition == condition {
			return true
		}
	}
	return false
}

// IsTerminal returns true once the position can no longer change state on its
// own (closed or expired).
func (sm *StateMachine) IsTerminal() bool {
	return sm.currentState == StateClosed || sm.currentState == StateExpired
}

// IsActive returns true while the position consumes buying power.
func (sm *StateMachine) IsActive() bool {
	return sm.currentState == StateStaged || sm.currentState == StateOpen
}

// GetStateDescription returns a human-readable description of the state.
func (sm *StateMachine) GetStateDescription() string {
	switch sm.currentState {
	case StateIdle:
		return "No active position, ready for new opportunities"
	case StateStaged:
		return "Simulated order staged, waiting for paper fill"
	case StateOpen:
		return "Paper position open, marking to market"
	case StateClosed:
		return "Position closed by exit rule"
	case StateExpired:
		return "Position reached expiration without an exit"
	case StateError:
		return "Error state - manual intervention required"
	default:
		return "Unknown state"
	}
}
