package storage

import (
	"fmt"
	"time"

	"github.com/tomking/trading-framework/internal/models"
)

// MockStorage implements Interface in memory for testing
type MockStorage struct {
	saveError       error
	loadError       error
	openPositions   []models.Position
	history         []models.Position
	recommendations []models.Recommendation
	dailyPnL        map[string]float64
	statistics      *Statistics
	saveCallCount   int
	loadCallCount   int
}

// Ensure MockStorage implements Interface
var _ Interface = (*MockStorage)(nil)

// NewMockStorage creates a new mock storage for testing
func NewMockStorage() *MockStorage {
	return &MockStorage{
		dailyPnL:   make(map[string]float64),
		statistics: &Statistics{},
	}
}

// SetSaveError forces subsequent Save calls to fail with the given error.
func (m *MockStorage) SetSaveError(err error) { m.saveError = err }

// SetLoadError forces subsequent Load calls to fail with the given error.
func (m *MockStorage) SetLoadError(err error) { m.loadError = err }

// SaveCallCount reports how many times Save was invoked.
func (m *MockStorage) SaveCallCount() int { return m.saveCallCount }

func (m *MockStorage) GetOpenPositions() []models.Position {
	out := make([]models.Position, len(m.openPositions))
	copy(out, m.openPositions)
	return out
}

func (m *MockStorage) GetPositionByID(id string) (*models.Position, bool) {
	for i := range m.openPositions {
		if m.openPositions[i].ID == id {
			pos := m.openPositions[i]
			return &pos, true
		}
	}
	return nil, false
}

func (m *MockStorage) AddPosition(pos *models.Position) error {
	if pos == nil {
		return fmt.Errorf("nil position")
	}
	for i := range m.openPositions {
		if m.openPositions[i].ID == pos.ID {
			return fmt.Errorf("%w: %s", ErrDuplicatePosition, pos.ID)
		}
	}
	m.openPositions = append(m.openPositions, *pos)
	return m.saveError
}

func (m *MockStorage) UpdatePosition(pos *models.Position) error {
	if pos == nil {
		return fmt.Errorf("nil position")
	}
	for i := range m.openPositions {
		if m.openPositions[i].ID == pos.ID {
			m.openPositions[i] = *pos
			return m.saveError
		}
	}
	return fmt.Errorf("%w: %s", ErrPositionNotFound, pos.ID)
}

func (m *MockStorage) ClosePosition(id string, finalPnL float64, reason string) error {
	for i := range m.openPositions {
		if m.openPositions[i].ID != id {
			continue
		}
		pos := &m.openPositions[i]

		target := models.StateClosed
		if reason == "expiration_reached" {
			target = models.StateExpired
		}
		if err := pos.TransitionState(target, reason); err != nil {
			return err
		}
		pos.CurrentPnL = finalPnL
		pos.ExitReason = reason

		m.history = append(m.history, *pos)
		m.statistics.TotalTrades++
		m.statistics.TotalPnL += finalPnL
		if finalPnL > 0 {
			m.statistics.WinningTrades++
		} else {
			m.statistics.LosingTrades++
		}
		m.dailyPnL[pos.ExitDate.Format("2006-01-02")] += finalPnL

		m.openPositions = append(m.openPositions[:i], m.openPositions[i+1:]...)
		return m.saveError
	}
	return fmt.Errorf("%w: %s", ErrPositionNotFound, id)
}

func (m *MockStorage) Save() error {
	m.saveCallCount++
	return m.saveError
}

func (m *MockStorage) Load() error {
	m.loadCallCount++
	return m.loadError
}

func (m *MockStorage) GetHistory() []models.Position {
	out := make([]models.Position, len(m.history))
	copy(out, m.history)
	return out
}

func (m *MockStorage) HasInHistory(id string) bool {
	for i := range m.history {
		if m.history[i].ID == id {
			return true
		}
	}
	return false
}

func (m *MockStorage) GetStatistics() *Statistics {
	stats := *m.statistics
	return &stats
}

func (m *MockStorage) GetDailyPnL(date string) float64 {
	return m.dailyPnL[date]
}

// SetDailyPnL seeds the daily ledger for halt-threshold tests.
func (m *MockStorage) SetDailyPnL(date string, pnl float64) {
	m.dailyPnL[date] = pnl
}

// SeedPosition injects an open position without state machine checks.
func (m *MockStorage) SeedPosition(pos models.Position) {
	m.openPositions = append(m.openPositions, pos)
}

func (m *MockStorage) AddRecommendation(rec models.Recommendation) error {
	if rec.GeneratedAt.IsZero() {
		rec.GeneratedAt = time.Now().UTC()
	}
	m.recommendations = append(m.recommendations, rec)
	return m.saveError
}

func (m *MockStorage) GetRecommendations(limit int) []models.Recommendation {
	recs := m.recommendations
	if limit > 0 && len(recs) > limit {
		recs = recs[len(recs)-limit:]
	}
	out := make([]models.Recommendation, len(recs))
	copy(out, recs)
	return out
}
