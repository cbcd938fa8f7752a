package storage

import (
	"github.com/tomking/trading-framework/internal/models"
)

// Interface defines the contract for paper-position and recommendation
// persistence.
//
// Implementations must be safe for concurrent use - callers can assume all
// methods are goroutine-safe and can safely call these methods from multiple
// goroutines.
//
// The provided JSONStorage implementation uses sync.RWMutex to serialize
// access, ensuring all Interface methods are protected for concurrent readers
// and writers.
type Interface interface {
	// Position management
	GetOpenPositions() []models.Position
	GetPositionByID(id string) (*models.Position, bool)
	AddPosition(pos *models.Position) error
	UpdatePosition(pos *models.Position) error
	ClosePosition(id string, finalPnL float64, reason string) error

	// Data persistence
	Save() error
	Load() error

	// Historical data and analytics
	GetHistory() []models.Position
	HasInHistory(id string) bool
	GetStatistics() *Statistics
	GetDailyPnL(date string) float64

	// Recommendation log
	AddRecommendation(rec models.Recommendation) error
	GetRecommendations(limit int) []models.Recommendation
}

// NewStorage creates a new storage implementation (currently JSON-based)
// In the future, this can be extended to support different storage backends
func NewStorage(filepath string) (Interface, error) {
	return NewJSONStorage(filepath)
}

// Ensure JSONStorage implements Interface
var _ Interface = (*JSONStorage)(nil)
