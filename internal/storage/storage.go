package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/tomking/trading-framework/internal/models"
)

// maxRecommendations caps the retained recommendation log.
const maxRecommendations = 500

// JSONStorage persists advisor state to a single JSON file with atomic writes.
type JSONStorage struct {
	mu       sync.RWMutex
	filepath string
	data     *storageData
}

type storageData struct {
	OpenPositions   []models.Position       `json:"open_positions"`
	History         []models.Position       `json:"history"`
	Recommendations []models.Recommendation `json:"recommendations"`
	DailyPnL        map[string]float64      `json:"daily_pnl"`
	Statistics      *Statistics             `json:"statistics"`
	LastUpdated     time.Time               `json:"last_updated"`
}

// Statistics aggregates realized results across closed paper trades.
type Statistics struct {
	TotalTrades   int     `json:"total_trades"`
	WinningTrades int     `json:"winning_trades"`
	LosingTrades  int     `json:"losing_trades"`
	WinRate       float64 `json:"win_rate"`
	TotalPnL      float64 `json:"total_pnl"`
	AverageWin    float64 `json:"average_win"`
	AverageLoss   float64 `json:"average_loss"`
	MaxDrawdown   float64 `json:"max_drawdown"`
	CurrentStreak int     `json:"current_streak"`
}

// NewJSONStorage opens or creates a JSON storage file at the given path.
func NewJSONStorage(path string) (*JSONStorage, error) {
	s := &JSONStorage{
		filepath: path,
		data: &storageData{
			DailyPnL:   make(map[string]float64),
			Statistics: &Statistics{},
		},
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating storage directory: %w", err)
		}
	}

	// Load existing data if file exists
	if _, err := os.Stat(path); err == nil {
		if err := s.Load(); err != nil {
			return nil, fmt.Errorf("loading storage: %w", err)
		}
	}

	return s, nil
}

func (s *JSONStorage) Load() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	raw, err := os.ReadFile(s.filepath)
	if err != nil {
		return err
	}

	if err := json.Unmarshal(raw, &s.data); err != nil {
		return err
	}

	if s.data.DailyPnL == nil {
		s.data.DailyPnL = make(map[string]float64)
	}
	if s.data.Statistics == nil {
		s.data.Statistics = &Statistics{}
	}

	return nil
}

func (s *JSONStorage) Save() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saveLocked()
}

func (s *JSONStorage) saveLocked() error {
	s.data.LastUpdated = time.Now()

	raw, err := json.MarshalIndent(s.data, "", "  ")
	if err != nil {
		return err
	}

	// Write to temp file first, then atomic rename.
	tmpFile := s.filepath + ".tmp"
	if err := os.WriteFile(tmpFile, raw, 0o600); err != nil {
		return err
	}
	return os.Rename(tmpFile, s.filepath)
}

func (s *JSONStorage) GetOpenPositions() []models.Position {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.Position, len(s.data.OpenPositions))
	copy(out, s.data.OpenPositions)
	return out
}

func (s *JSONStorage) GetPositionByID(id string) (*models.Position, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for i := range s.data.OpenPositions {
		if s.data.OpenPositions[i].ID == id {
			pos := s.data.OpenPositions[i]
			return &pos, true
		}
	}
	return nil, false
}

func (s *JSONStorage) AddPosition(pos *models.Position) error {
	if pos == nil {
		return fmt.Errorf("nil position")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.data.OpenPositions {
		if s.data.OpenPositions[i].ID == pos.ID {
			return fmt.Errorf("%w: %s", ErrDuplicatePosition, pos.ID)
		}
	}

	s.data.OpenPositions = append(s.data.OpenPositions, *pos)
	return s.saveLocked()
}

func (s *JSONStorage) UpdatePosition(pos *models.Position) error {
	if pos == nil {
		return fmt.Errorf("nil position")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.data.OpenPositions {
		if s.data.OpenPositions[i].ID == pos.ID {
			s.data.OpenPositions[i] = *pos
			return s.saveLocked()
		}
	}
	return fmt.Errorf("%w: %s", ErrPositionNotFound, pos.ID)
}

// ClosePosition transitions the position out of the open set, realizes its
// P&L into statistics and the daily ledger, and appends it to history. The
// reason must be a valid exit trigger on the position state machine.
func (s *JSONStorage) ClosePosition(id string, finalPnL float64, reason string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := -1
	for i := range s.data.OpenPositions {
		if s.data.OpenPositions[i].ID == id {
			idx = i
			break
		}
	}
	if idx == -1 {
		return fmt.Errorf("%w: %s", ErrPositionNotFound, id)
	}

	pos := &s.data.OpenPositions[idx]

	target := models.StateClosed
	if reason == "expiration_reached" {
		target = models.StateExpired
	}
	if err := pos.TransitionState(target, reason); err != nil {
		return fmt.Errorf("closing position %s: %w", id, err)
	}

	pos.CurrentPnL = finalPnL
	pos.ExitReason = reason

	s.data.History = append(s.data.History, *pos)
	s.updateStatistics(finalPnL)
	s.data.DailyPnL[pos.ExitDate.Format("2006-01-02")] += finalPnL

	s.data.OpenPositions = append(s.data.OpenPositions[:idx], s.data.OpenPositions[idx+1:]...)

	return s.saveLocked()
}

func (s *JSONStorage) updateStatistics(pnl float64) {
	stats := s.data.Statistics
	stats.TotalTrades++
	stats.TotalPnL += pnl

	if pnl > 0 {
		stats.WinningTrades++
		if stats.CurrentStreak >= 0 {
			stats.CurrentStreak++
		} else {
			stats.CurrentStreak = 1
		}

		totalWins := stats.AverageWin*float64(stats.WinningTrades-1) + pnl
		stats.AverageWin = totalWins / float64(stats.WinningTrades)
	} else {
		stats.LosingTrades++
		if stats.CurrentStreak <= 0 {
			stats.CurrentStreak--
		} else {
			stats.CurrentStreak = -1
		}

		totalLosses := stats.AverageLoss*float64(stats.LosingTrades-1) + pnl
		stats.AverageLoss = totalLosses / float64(stats.LosingTrades)
	}

	if stats.TotalTrades > 0 {
		stats.WinRate = float64(stats.WinningTrades) / float64(stats.TotalTrades)
	}

	if pnl < 0 && pnl < stats.MaxDrawdown {
		stats.MaxDrawdown = pnl
	}
}

func (s *JSONStorage) GetStatistics() *Statistics {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := *s.data.Statistics
	return &stats
}

func (s *JSONStorage) GetDailyPnL(date string) float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.data.DailyPnL[date]
}

func (s *JSONStorage) GetHistory() []models.Position {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.Position, len(s.data.History))
	copy(out, s.data.History)
	return out
}

func (s *JSONStorage) HasInHistory(id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for i := range s.data.History {
		if s.data.History[i].ID == id {
			return true
		}
	}
	return false
}

func (s *JSONStorage) AddRecommendation(rec models.Recommendation) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.data.Recommendations = append(s.data.Recommendations, rec)
	if len(s.data.Recommendations) > maxRecommendations {
		overflow := len(s.data.Recommendations) - maxRecommendations
		s.data.Recommendations = s.data.Recommendations[overflow:]
	}
	return s.saveLocked()
}

// GetRecommendations returns the most recent recommendations, newest last.
// A limit of 0 or less returns all retained entries.
func (s *JSONStorage) GetRecommendations(limit int) []models.Recommendation {
	s.mu.RLock()
	defer s.mu.RUnlock()

	recs := s.data.Recommendations
	if limit > 0 && len(recs) > limit {
		recs = recs[len(recs)-limit:]
	}

	out := make([]models.Recommendation, len(recs))
	copy(out, recs)
	return out
}
