// Package orders stages accepted recommendations as paper positions. It is
// the only place a recommendation turns into tracked exposure, and it refuses
// to do so outside paper mode: there is no live order path anywhere in this
// codebase.
package orders

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/tomking/trading-framework/internal/models"
	"github.com/tomking/trading-framework/internal/storage"
)

// ErrExecutionDisabled is returned when staging is attempted outside paper
// mode. Live execution is not implemented.
var ErrExecutionDisabled = errors.New("live execution is disabled: paper mode only")

// Stager converts accepted recommendations into staged paper positions.
type Stager struct {
	storage      storage.Interface
	logger       logrus.FieldLogger
	paperTrading bool
}

// NewStager creates a stager. paperTrading must be true for staging to work.
func NewStager(store storage.Interface, logger logrus.FieldLogger, paperTrading bool) *Stager {
	if store == nil {
		panic("orders.NewStager: storage must not be nil")
	}
	if logger == nil {
		l := logrus.New()
		logger = l
	}
	return &Stager{
		storage:      store,
		logger:       logger,
		paperTrading: paperTrading,
	}
}

// Stage creates a staged paper position from an accepted recommendation.
func (s *Stager) Stage(rec models.Recommendation, expiration time.Time) (*models.Position, error) {
	if !s.paperTrading {
		return nil, ErrExecutionDisabled
	}
	if !rec.Accepted {
		return nil, fmt.Errorf("recommendation %s was not accepted (%s)", rec.ID, rec.Reason)
	}

	pos := models.NewPosition(uuid.NewString(), rec.Symbol, rec.StrategyID, rec.CorrelationGroup, expiration)
	pos.Allocation = rec.Allocation
	pos.NotionalRisk = rec.Allocation
	pos.EntryVIX = rec.VIX
	pos.Regime = rec.Regime

	if err := pos.TransitionState(models.StateStaged, "order_staged"); err != nil {
		return nil, err
	}
	if err := s.storage.AddPosition(pos); err != nil {
		return nil, fmt.Errorf("persisting staged position: %w", err)
	}

	s.logger.WithFields(logrus.Fields{
		"position_id": pos.ID,
		"strategy":    pos.StrategyID,
		"symbol":      pos.Symbol,
		"allocation":  pos.Allocation,
	}).Info("staged paper position")

	return pos, nil
}

// Cancel returns a staged position to idle and removes it from the open set.
func (s *Stager) Cancel(positionID string) error {
	pos, ok := s.storage.GetPositionByID(positionID)
	if !ok {
		return fmt.Errorf("%w: %s", storage.ErrPositionNotFound, positionID)
	}
	if pos.State != models.StateStaged {
		return fmt.Errorf("position %s is %s, only staged positions can be canceled", positionID, pos.State)
	}

	if err := pos.TransitionState(models.StateIdle, "order_canceled"); err != nil {
		return err
	}
	if err := s.storage.UpdatePosition(pos); err != nil {
		return err
	}

	s.logger.WithField("position_id", positionID).Info("canceled staged position")
	return nil
}
