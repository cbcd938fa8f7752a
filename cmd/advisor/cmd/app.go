package cmd

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/tomking/trading-framework/internal/advisor"
	"github.com/tomking/trading-framework/internal/api"
	"github.com/tomking/trading-framework/internal/broker"
	"github.com/tomking/trading-framework/internal/config"
	"github.com/tomking/trading-framework/internal/journal"
	"github.com/tomking/trading-framework/internal/mock"
	"github.com/tomking/trading-framework/internal/orders"
	"github.com/tomking/trading-framework/internal/paper"
	"github.com/tomking/trading-framework/internal/storage"
	"github.com/tomking/trading-framework/internal/strategy"
)

// app holds the wired collaborators for the run command.
type app struct {
	cfg     *config.Config
	logger  *logrus.Logger
	broker  broker.Broker
	storage storage.Interface
	journal journal.Journal
	advisor *advisor.Advisor
	api     *api.Server
}

func newLogger(level string) *logrus.Logger {
	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	parsed, err := logrus.ParseLevel(level)
	if err != nil {
		parsed = logrus.InfoLevel
	}
	logger.SetLevel(parsed)
	return logger
}

func buildBroker(cfg *config.Config) (broker.Broker, error) {
	switch cfg.Broker.Provider {
	case "mock":
		return mock.NewProvider(), nil
	case "tastytrade":
		client := broker.NewTastytradeClient(
			cfg.Broker.APIKey,
			cfg.Broker.AccountID,
			cfg.Broker.APIEndpoint,
			cfg.Broker.VIXSymbol,
		)
		return broker.NewCircuitBreakerBroker(client), nil
	default:
		return nil, fmt.Errorf("unknown broker provider %q", cfg.Broker.Provider)
	}
}

func buildApp(path string) (*app, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	logger := newLogger(cfg.Environment.LogLevel)

	b, err := buildBroker(cfg)
	if err != nil {
		return nil, err
	}

	store, err := storage.NewStorage(cfg.Storage.Path)
	if err != nil {
		return nil, fmt.Errorf("opening storage: %w", err)
	}

	var jnl journal.Journal
	if cfg.Journal.Path != "" {
		jnl, err = journal.NewSQLite(cfg.Journal.Path)
		if err != nil {
			return nil, fmt.Errorf("opening journal: %w", err)
		}
	}

	catalog, err := strategy.NewCatalog(cfg.Strategies, cfg.Location())
	if err != nil {
		return nil, fmt.Errorf("building strategy catalogue: %w", err)
	}

	stager := orders.NewStager(store, logger, cfg.IsPaperTrading())
	engine := paper.NewEngine(b, store, catalog, jnl, logger)

	adv, err := advisor.New(cfg, b, store, catalog, stager, engine, jnl, logger)
	if err != nil {
		return nil, err
	}

	a := &app{
		cfg:     cfg,
		logger:  logger,
		broker:  b,
		storage: store,
		journal: jnl,
		advisor: adv,
	}
	if cfg.API.Enabled {
		a.api = api.NewServer(api.Config{Port: cfg.API.Port, AuthToken: cfg.API.AuthToken}, store, logger)
	}
	return a, nil
}

func (a *app) close() {
	if a.journal != nil {
		if err := a.journal.Close(); err != nil {
			a.logger.WithError(err).Warn("closing journal")
		}
	}
}
