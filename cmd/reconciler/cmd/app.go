package cmd

import (
	"github.com/jinzhu/gorm"
	"github.com/spf13/viper"

	"golang-bank-recon-service/cmd/reconciler/config"
	"golang-bank-recon-service/internal/matcher"
	"golang-bank-recon-service/internal/normalizer"
	"golang-bank-recon-service/internal/reconciler"
	"golang-bank-recon-service/internal/settlement"
	"golang-bank-recon-service/internal/store"
	"golang-bank-recon-service/pkg/logger"
)

// app holds what a command needs once configuration is loaded.
type app struct {
	cfg     *config.Config
	db      *gorm.DB
	recon   *store.ReconStore
	stats   *store.StatsLog
	ledger  *store.Ledger
	service *reconciler.Service
	logger  logger.Logger
}

// loadConfig reads the typed configuration from the global viper instance.
func loadConfig() (*config.Config, error) {
	return config.Load(viper.GetViper())
}

// openApp loads configuration, connects to the database and wires the
// reconciliation service.
func openApp() (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	log := logger.GetGlobalLogger().WithComponent("cli")

	db, err := store.Open(&cfg.Database)
	if err != nil {
		return nil, err
	}

	a := &app{
		cfg:    cfg,
		db:     db,
		recon:  store.NewReconStore(db, cfg.Reconcile.SuccessCode, log),
		stats:  store.NewStatsLog(db),
		ledger: store.NewLedger(db, cfg.LedgerConfig()),
		logger: log,
	}

	a.service, err = newService(cfg, a.recon, a.stats, a.ledger, log)
	if err != nil {
		db.Close()
		return nil, err
	}

	log.WithFields(logger.Fields{
		"dialect":      cfg.Database.Dialect,
		"auto_migrate": cfg.Database.AutoMigrate,
	}).Debug("Database connected")
	return a, nil
}

// newService builds the reconciliation service on top of the given stores.
func newService(cfg *config.Config, flags store.FlagStore, stats store.StatsStore, ledger store.LedgerSource, log logger.Logger) (*reconciler.Service, error) {
	norm, err := normalizer.New(cfg.NormalizerConfig(), log)
	if err != nil {
		return nil, err
	}
	match, err := matcher.New(cfg.MatcherConfig(), log)
	if err != nil {
		return nil, err
	}
	aggregator, err := settlement.NewAggregator(cfg.RoutingConfig(), log)
	if err != nil {
		return nil, err
	}

	return reconciler.NewService(reconciler.Deps{
		Normalizer:            norm,
		Matcher:               match,
		Aggregator:            aggregator,
		SettlementMatcher:     settlement.NewMatcher(log),
		Flags:                 flags,
		Stats:                 stats,
		Ledger:                ledger,
		Logger:                log,
		SuccessCode:           cfg.Reconcile.SuccessCode,
		StatementResponseCode: cfg.Reconcile.StatementResponseCode,
	})
}

// Close releases the database connection.
func (a *app) Close() {
	if err := a.db.Close(); err != nil {
		a.logger.WithError(err).Warn("Failed to close database")
	}
}
