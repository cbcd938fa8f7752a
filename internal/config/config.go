// Package config provides configuration management for the trading framework.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	yaml "gopkg.in/yaml.v3"

	"github.com/tomking/trading-framework/internal/risk"
)

const (
	// defaultKellyFraction is full Kelly; the regime cap still applies.
	defaultKellyFraction = 1.0
	// defaultMinTradesForStats is the closed-trade count before realized
	// journal statistics override the configured assumptions.
	defaultMinTradesForStats = 20
	// defaultCheckInterval is used when schedule.check_interval is unset.
	defaultCheckInterval = "15m"
)

// Config represents the complete application configuration.
type Config struct {
	Environment EnvironmentConfig `yaml:"environment"`
	Broker      BrokerConfig      `yaml:"broker"`
	Schedule    ScheduleConfig    `yaml:"schedule"`
	Risk        RiskConfig        `yaml:"risk"`
	Strategies  []StrategyConfig  `yaml:"strategies"`
	Groups      map[string]string `yaml:"correlation_groups"` // symbol -> group tag
	Storage     StorageConfig     `yaml:"storage"`
	Journal     JournalConfig     `yaml:"journal"`
	API         APIConfig         `yaml:"api"`
}

// EnvironmentConfig defines the environment settings.
type EnvironmentConfig struct {
	Mode     string `yaml:"mode"`      // paper | live
	LogLevel string `yaml:"log_level"` // debug | info | warn | error
}

// BrokerConfig defines broker API settings. Provider "mock" runs entirely on
// canned market data and needs no credentials.
type BrokerConfig struct {
	Provider    string `yaml:"provider"` // tastytrade | mock
	APIKey      string `yaml:"api_key"`
	APIEndpoint string `yaml:"api_endpoint"`
	AccountID   string `yaml:"account_id"`
	VIXSymbol   string `yaml:"vix_symbol"` // defaults to VIX
}

// ScheduleConfig defines the advisor cycle schedule and market hours.
type ScheduleConfig struct {
	CheckInterval string `yaml:"check_interval"`
	Timezone      string `yaml:"timezone"`      // e.g., "America/New_York"
	TradingStart  string `yaml:"trading_start"` // "HH:MM"
	TradingEnd    string `yaml:"trading_end"`   // "HH:MM"
}

// RiskConfig holds the policy tables consumed by the risk evaluator.
type RiskConfig struct {
	KellyFraction     float64                `yaml:"kelly_fraction"`
	MaxDailyLoss      float64                `yaml:"max_daily_loss"`
	PhaseBreakpoints  []float64              `yaml:"phase_breakpoints"`
	VIXRegimes        risk.RegimePolicy      `yaml:"vix_regimes"`
	CorrelationLimits risk.CorrelationPolicy `yaml:"correlation_limits"`
}

// StrategyConfig describes one catalogue entry: when it may be entered, what
// it trades, and the historical statistics used for sizing.
type StrategyConfig struct {
	ID               string             `yaml:"id"`
	Name             string             `yaml:"name"`
	Symbol           string             `yaml:"symbol"`
	CorrelationGroup string             `yaml:"correlation_group"`
	MinPhase         int                `yaml:"min_phase"`
	EntryDays        []string           `yaml:"entry_days"`  // weekday names
	EntryStart       string             `yaml:"entry_start"` // "HH:MM"
	EntryEnd         string             `yaml:"entry_end"`   // "HH:MM"
	TargetDTE        int                `yaml:"target_dte"`
	ProfitTarget     float64            `yaml:"profit_target"` // fraction of max gain
	StopLossPct      float64            `yaml:"stop_loss_pct"` // multiple of credit received
	Stats            risk.StrategyStats `yaml:"stats"`
}

// StorageConfig defines storage settings for paper position data.
type StorageConfig struct {
	Path string `yaml:"path"`
}

// JournalConfig defines the SQLite trade journal settings.
type JournalConfig struct {
	Path              string `yaml:"path"`
	MinTradesForStats int    `yaml:"min_trades_for_stats"`
}

// APIConfig defines the JSON status API settings.
type APIConfig struct {
	Enabled   bool   `yaml:"enabled"`
	Port      int    `yaml:"port"`
	AuthToken string `yaml:"auth_token"`
}

// Load reads and parses the configuration file from the specified path.
func Load(configPath string) (*Config, error) {
	if configPath == "" {
		configPath = "config.yaml"
	}

	data, err := os.ReadFile(configPath) // #nosec G304 -- configPath is a user-provided config file path
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	// Expand environment variables
	expanded := os.ExpandEnv(string(data))

	var config Config
	dec := yaml.NewDecoder(strings.NewReader(expanded))
	dec.KnownFields(true)
	if err := dec.Decode(&config); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	config.applyDefaults()

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &config, nil
}

func (c *Config) applyDefaults() {
	if c.Risk.KellyFraction == 0 {
		c.Risk.KellyFraction = defaultKellyFraction
	}
	if c.Journal.MinTradesForStats == 0 {
		c.Journal.MinTradesForStats = defaultMinTradesForStats
	}
	if c.Schedule.CheckInterval == "" {
		c.Schedule.CheckInterval = defaultCheckInterval
	}
	if c.Broker.VIXSymbol == "" {
		c.Broker.VIXSymbol = "VIX"
	}
}

// Validate checks that all configuration values are valid and consistent.
func (c *Config) Validate() error {
	// Environment validation
	if c.Environment.Mode != "paper" && c.Environment.Mode != "live" {
		return fmt.Errorf("environment.mode must be 'paper' or 'live'")
	}

	// Broker validation
	switch c.Broker.Provider {
	case "mock":
		// No credentials required
	case "tastytrade":
		if c.Broker.APIKey == "" {
			return fmt.Errorf("broker.api_key is required for provider %q", c.Broker.Provider)
		}
		if c.Broker.AccountID == "" {
			return fmt.Errorf("broker.account_id is required for provider %q", c.Broker.Provider)
		}
	default:
		return fmt.Errorf("broker.provider must be 'tastytrade' or 'mock'")
	}

	// Risk policy validation delegates to the evaluator's invariants
	if err := c.Risk.VIXRegimes.Validate(); err != nil {
		return fmt.Errorf("risk.vix_regimes: %w", err)
	}
	if err := c.Risk.CorrelationLimits.Validate(); err != nil {
		return fmt.Errorf("risk.correlation_limits: %w", err)
	}
	if c.Risk.KellyFraction <= 0 || c.Risk.KellyFraction > 1 {
		return fmt.Errorf("risk.kelly_fraction must be in (0,1]")
	}
	if c.Risk.MaxDailyLoss <= 0 {
		return fmt.Errorf("risk.max_daily_loss must be > 0")
	}
	if len(c.Risk.PhaseBreakpoints) == 0 {
		return fmt.Errorf("risk.phase_breakpoints is required")
	}
	for i := 0; i < len(c.Risk.PhaseBreakpoints); i++ {
		if c.Risk.PhaseBreakpoints[i] <= 0 {
			return fmt.Errorf("risk.phase_breakpoints must be positive")
		}
		if i > 0 && c.Risk.PhaseBreakpoints[i] <= c.Risk.PhaseBreakpoints[i-1] {
			return fmt.Errorf("risk.phase_breakpoints must be strictly ascending")
		}
	}
	// Every phase a breakpoint can produce needs a correlation limit entry.
	for phase := 1; phase <= len(c.Risk.PhaseBreakpoints)+1; phase++ {
		if _, ok := c.Risk.CorrelationLimits[phase]; !ok {
			return fmt.Errorf("risk.correlation_limits missing entry for phase %d", phase)
		}
	}

	// Strategy catalogue validation
	if len(c.Strategies) == 0 {
		return fmt.Errorf("at least one strategy is required")
	}
	seen := make(map[string]bool, len(c.Strategies))
	for i, s := range c.Strategies {
		if s.ID == "" {
			return fmt.Errorf("strategies[%d].id is required", i)
		}
		if seen[s.ID] {
			return fmt.Errorf("duplicate strategy id %q", s.ID)
		}
		seen[s.ID] = true
		if s.Symbol == "" {
			return fmt.Errorf("strategy %q: symbol is required", s.ID)
		}
		if s.CorrelationGroup == "" {
			return fmt.Errorf("strategy %q: correlation_group is required", s.ID)
		}
		if s.MinPhase < 1 || s.MinPhase > len(c.Risk.PhaseBreakpoints)+1 {
			return fmt.Errorf("strategy %q: min_phase must be in [1,%d]", s.ID, len(c.Risk.PhaseBreakpoints)+1)
		}
		if len(s.EntryDays) == 0 {
			return fmt.Errorf("strategy %q: entry_days is required", s.ID)
		}
		for _, day := range s.EntryDays {
			if !validWeekday(day) {
				return fmt.Errorf("strategy %q: invalid entry day %q", s.ID, day)
			}
		}
		if err := validateWindow(s.EntryStart, s.EntryEnd); err != nil {
			return fmt.Errorf("strategy %q: %w", s.ID, err)
		}
		if s.TargetDTE < 0 {
			return fmt.Errorf("strategy %q: target_dte must be >= 0", s.ID)
		}
		if s.ProfitTarget <= 0 || s.ProfitTarget >= 1 {
			return fmt.Errorf("strategy %q: profit_target must be in (0,1)", s.ID)
		}
		if s.StopLossPct <= 0 {
			return fmt.Errorf("strategy %q: stop_loss_pct must be > 0", s.ID)
		}
		if err := s.Stats.Validate(); err != nil {
			return fmt.Errorf("strategy %q stats: %w", s.ID, err)
		}
	}

	// Schedule validation
	if _, err := time.ParseDuration(c.Schedule.CheckInterval); err != nil {
		return fmt.Errorf("schedule.check_interval invalid: %w", err)
	}
	if err := validateWindow(c.Schedule.TradingStart, c.Schedule.TradingEnd); err != nil {
		return fmt.Errorf("schedule trading window: %w", err)
	}

	// Storage and journal paths
	if c.Storage.Path == "" {
		return fmt.Errorf("storage.path is required")
	}
	if c.Journal.Path == "" {
		return fmt.Errorf("journal.path is required")
	}
	if c.Journal.MinTradesForStats < 1 {
		return fmt.Errorf("journal.min_trades_for_stats must be >= 1")
	}

	if c.API.Enabled && (c.API.Port <= 0 || c.API.Port > 65535) {
		return fmt.Errorf("api.port must be a valid TCP port")
	}

	return nil
}

// IsPaperTrading returns true if the framework is configured for paper mode.
func (c *Config) IsPaperTrading() bool {
	return c.Environment.Mode == "paper"
}

// GetCheckInterval returns the configured advisor cycle interval.
func (c *Config) GetCheckInterval() time.Duration {
	d, err := time.ParseDuration(c.Schedule.CheckInterval)
	if err != nil {
		return 15 * time.Minute // default
	}
	return d
}

// Location returns the configured exchange timezone, falling back to New York
// and then a DST-agnostic fixed zone for minimal containers.
func (c *Config) Location() *time.Location {
	tz := c.Schedule.Timezone
	if tz == "" {
		tz = "America/New_York"
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		if fallback, err2 := time.LoadLocation("America/New_York"); err2 == nil {
			return fallback
		}
		return time.FixedZone("ET", -5*60*60)
	}
	return loc
}

// IsWithinTradingHours checks if the given time falls within configured
// trading hours on a weekday.
func (c *Config) IsWithinTradingHours(now time.Time) bool {
	loc := c.Location()
	today := now.In(loc)

	if today.Weekday() == time.Saturday || today.Weekday() == time.Sunday {
		return false
	}

	startClock, err1 := time.ParseInLocation("15:04", c.Schedule.TradingStart, loc)
	endClock, err2 := time.ParseInLocation("15:04", c.Schedule.TradingEnd, loc)
	if err1 != nil || err2 != nil {
		// Safe defaults if misconfigured
		startClock = time.Date(0, 1, 1, 9, 45, 0, 0, loc)
		endClock = time.Date(0, 1, 1, 15, 45, 0, 0, loc)
	}
	start := time.Date(today.Year(), today.Month(), today.Day(),
		startClock.Hour(), startClock.Minute(), 0, 0, loc)
	end := time.Date(today.Year(), today.Month(), today.Day(),
		endClock.Hour(), endClock.Minute(), 0, 0, loc)

	// Inclusive start, exclusive end
	return !today.Before(start) && today.Before(end)
}

// GroupForSymbol resolves a symbol to its correlation group tag. Tags are
// exact-match assignments; an unmapped symbol returns false rather than a
// fuzzy guess.
func (c *Config) GroupForSymbol(symbol string) (string, bool) {
	group, ok := c.Groups[symbol]
	return group, ok
}

func validWeekday(day string) bool {
	switch day {
	case "Monday", "Tuesday", "Wednesday", "Thursday", "Friday":
		return true
	default:
		return false
	}
}

func validateWindow(start, end string) error {
	s, err1 := time.Parse("15:04", start)
	e, err2 := time.Parse("15:04", end)
	if err1 != nil || err2 != nil {
		return fmt.Errorf("start/end must be HH:MM")
	}
	if !s.Before(e) {
		return fmt.Errorf("window start %s must be before end %s", start, end)
	}
	return nil
}
