// Package strategy holds the trade catalogue: which setups exist, when each
// may be entered, and the historical statistics the sizer consumes. The
// catalogue only proposes candidates; acceptance is the risk evaluator's call.
package strategy

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/tomking/trading-framework/internal/config"
	"github.com/tomking/trading-framework/internal/risk"
)

// Strategy is one playbook entry with its parsed entry window.
type Strategy struct {
	ID               string
	Name             string
	Symbol           string
	CorrelationGroup string
	MinPhase         int
	TargetDTE        int
	ProfitTarget     float64
	StopLossPct      float64
	Stats            risk.StrategyStats

	entryDays  map[time.Weekday]bool
	entryStart time.Duration // offset from midnight, exchange time
	entryEnd   time.Duration
}

// Candidate is a proposed entry emitted by the catalogue for one cycle.
type Candidate struct {
	StrategyID       string
	Symbol           string
	CorrelationGroup string
	Expiration       time.Time
	ProfitTarget     float64
	StopLossPct      float64
	Stats            risk.StrategyStats
}

// Catalog indexes the configured strategies.
type Catalog struct {
	strategies []Strategy
	byID       map[string]*Strategy
	loc        *time.Location
}

var weekdayNames = map[string]time.Weekday{
	"sunday":    time.Sunday,
	"monday":    time.Monday,
	"tuesday":   time.Tuesday,
	"wednesday": time.Wednesday,
	"thursday":  time.Thursday,
	"friday":    time.Friday,
	"saturday":  time.Saturday,
}

// NewCatalog builds a catalogue from validated config entries. Windows are
// interpreted in the given exchange timezone.
func NewCatalog(configs []config.StrategyConfig, loc *time.Location) (*Catalog, error) {
	if loc == nil {
		loc = time.UTC
	}

	cat := &Catalog{
		strategies: make([]Strategy, 0, len(configs)),
		byID:       make(map[string]*Strategy, len(configs)),
		loc:        loc,
	}

	for _, sc := range configs {
		s := Strategy{
			ID:               sc.ID,
			Name:             sc.Name,
			Symbol:           sc.Symbol,
			CorrelationGroup: sc.CorrelationGroup,
			MinPhase:         sc.MinPhase,
			TargetDTE:        sc.TargetDTE,
			ProfitTarget:     sc.ProfitTarget,
			StopLossPct:      sc.StopLossPct,
			Stats:            sc.Stats,
			entryDays:        make(map[time.Weekday]bool, len(sc.EntryDays)),
		}

		for _, day := range sc.EntryDays {
			wd, ok := weekdayNames[strings.ToLower(day)]
			if !ok {
				return nil, fmt.Errorf("strategy %s: unknown entry day %q", sc.ID, day)
			}
			s.entryDays[wd] = true
		}

		var err error
		if s.entryStart, err = parseClock(sc.EntryStart); err != nil {
			return nil, fmt.Errorf("strategy %s: entry_start: %w", sc.ID, err)
		}
		if s.entryEnd, err = parseClock(sc.EntryEnd); err != nil {
			return nil, fmt.Errorf("strategy %s: entry_end: %w", sc.ID, err)
		}
		if s.entryEnd <= s.entryStart {
			return nil, fmt.Errorf("strategy %s: entry window ends before it starts", sc.ID)
		}

		cat.strategies = append(cat.strategies, s)
		if _, dup := cat.byID[s.ID]; dup {
			return nil, fmt.Errorf("duplicate strategy id %s", s.ID)
		}
		cat.byID[s.ID] = &cat.strategies[len(cat.strategies)-1]
	}

	return cat, nil
}

func parseClock(value string) (time.Duration, error) {
	t, err := time.Parse("15:04", value)
	if err != nil {
		return 0, fmt.Errorf("invalid clock time %q", value)
	}
	return time.Duration(t.Hour())*time.Hour + time.Duration(t.Minute())*time.Minute, nil
}

// ByID returns the strategy with the given id.
func (c *Catalog) ByID(id string) (*Strategy, bool) {
	s, ok := c.byID[id]
	return s, ok
}

// All returns the strategies sorted by id for deterministic iteration.
func (c *Catalog) All() []Strategy {
	out := make([]Strategy, len(c.strategies))
	copy(out, c.strategies)
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// EligibleForPhase reports whether the account phase unlocks this strategy.
func (s *Strategy) EligibleForPhase(phase int) bool {
	return phase >= s.MinPhase
}

// InEntryWindow reports whether now falls inside the strategy's entry window,
// evaluated in the exchange timezone.
func (s *Strategy) inEntryWindow(now time.Time, loc *time.Location) bool {
	local := now.In(loc)
	if !s.entryDays[local.Weekday()] {
		return false
	}

	sinceMidnight := time.Duration(local.Hour())*time.Hour +
		time.Duration(local.Minute())*time.Minute +
		time.Duration(local.Second())*time.Second

	// Start inclusive, end exclusive.
	return sinceMidnight >= s.entryStart && sinceMidnight < s.entryEnd
}

// InEntryWindow checks a strategy's window against the catalogue's timezone.
func (c *Catalog) InEntryWindow(s *Strategy, now time.Time) bool {
	return s.inEntryWindow(now, c.loc)
}

// TargetExpiration returns the first Friday on or after now + TargetDTE days.
func (s *Strategy) TargetExpiration(now time.Time) time.Time {
	target := now.AddDate(0, 0, s.TargetDTE)
	for target.Weekday() != time.Friday {
		target = target.AddDate(0, 0, 1)
	}
	return time.Date(target.Year(), target.Month(), target.Day(), 0, 0, 0, 0, target.Location())
}

// Candidates returns the strategies whose entry window contains now and whose
// phase gate passes, as sizing proposals in deterministic id order.
func (c *Catalog) Candidates(now time.Time, phase int) []Candidate {
	var out []Candidate
	for _, s := range c.All() {
		if !s.EligibleForPhase(phase) {
			continue
		}
		if !s.inEntryWindow(now, c.loc) {
			continue
		}
		out = append(out, Candidate{
			StrategyID:       s.ID,
			Symbol:           s.Symbol,
			CorrelationGroup: s.CorrelationGroup,
			Expiration:       s.TargetExpiration(now.In(c.loc)),
			ProfitTarget:     s.ProfitTarget,
			StopLossPct:      s.StopLossPct,
			Stats:            s.Stats,
		})
	}
	return out
}
