// Package config turns viper settings into the typed configuration of each
// package. Every key has a default so flags, environment variables
// (RECONCILER_*) and an optional config file can override any of them.
package config

import (
	"fmt"

	"github.com/spf13/viper"

	"golang-bank-recon-service/internal/matcher"
	"golang-bank-recon-service/internal/normalizer"
	"golang-bank-recon-service/internal/parsers"
	"golang-bank-recon-service/internal/reporter"
	"golang-bank-recon-service/internal/settlement"
	"golang-bank-recon-service/internal/store"
	"golang-bank-recon-service/pkg/errors"
	"golang-bank-recon-service/pkg/logger"
)

// EnvPrefix is the prefix of environment overrides.
const EnvPrefix = "RECONCILER"

// Config is the complete CLI configuration.
type Config struct {
	Database   store.DatabaseConfig `mapstructure:"database"`
	Reconcile  ReconcileConfig      `mapstructure:"reconcile"`
	Settlement SettlementConfig     `mapstructure:"settlement"`
	Batch      BatchConfig          `mapstructure:"batch"`
	Log        logger.Config        `mapstructure:"log"`
}

// ReconcileConfig holds the statement reconciliation settings.
type ReconcileConfig struct {
	SuccessCode            string   `mapstructure:"success_code"`
	ReferenceWidth         int      `mapstructure:"reference_width"`
	RequestType            string   `mapstructure:"request_type"`
	ExcludedTxnTypes       []string `mapstructure:"excluded_txn_types"`
	AllowedProcessingCodes []string `mapstructure:"allowed_processing_codes"`
	// StatementResponseCode is stamped on uploaded rows when set.
	StatementResponseCode string `mapstructure:"statement_response_code"`
}

// SettlementConfig holds the settlement aggregation and report settings.
type SettlementConfig struct {
	HubCode              string   `mapstructure:"hub_code"`
	PartnerCode          string   `mapstructure:"partner_code"`
	RoutedTypes          []string `mapstructure:"routed_types"`
	IssuerCode           string   `mapstructure:"issuer_code"`
	TxnTypes             []string `mapstructure:"txn_types"`
	ReversalRequestTypes []string `mapstructure:"reversal_request_types"`
	ReportSheet          string   `mapstructure:"report_sheet"`
	ReportColumns        []int    `mapstructure:"report_columns"`
}

// BatchConfig controls reconcile-batch.
type BatchConfig struct {
	MaxConcurrency int `mapstructure:"max_concurrency"`
}

// SetDefaults registers the default of every key on v.
func SetDefaults(v *viper.Viper) {
	db := store.DefaultDatabaseConfig()
	v.SetDefault("database.dialect", db.Dialect)
	v.SetDefault("database.dsn", "")
	v.SetDefault("database.auto_migrate", false)
	v.SetDefault("database.max_open_conns", db.MaxOpenConns)

	ledger := store.DefaultLedgerConfig()
	v.SetDefault("reconcile.success_code", matcher.DefaultSuccessCode)
	v.SetDefault("reconcile.reference_width", normalizer.DefaultReferenceWidth)
	v.SetDefault("reconcile.request_type", ledger.RequestType)
	v.SetDefault("reconcile.excluded_txn_types", ledger.ExcludedTxnTypes)
	v.SetDefault("reconcile.allowed_processing_codes", ledger.AllowedProcessingCodes)
	v.SetDefault("reconcile.statement_response_code", "")

	routing := settlement.DefaultRoutingConfig()
	report := parsers.DefaultReportConfig()
	v.SetDefault("settlement.hub_code", routing.HubCode)
	v.SetDefault("settlement.partner_code", routing.PartnerCode)
	v.SetDefault("settlement.routed_types", routing.RoutedTypes)
	v.SetDefault("settlement.issuer_code", ledger.SettlementIssuer)
	v.SetDefault("settlement.txn_types", ledger.SettlementTxnTypes)
	v.SetDefault("settlement.reversal_request_types", ledger.ReversalRequestTypes)
	v.SetDefault("settlement.report_sheet", report.Sheet)
	v.SetDefault("settlement.report_columns", report.Columns)

	v.SetDefault("batch.max_concurrency", 4)

	log := logger.DefaultConfig()
	v.SetDefault("log.level", string(log.Level))
	v.SetDefault("log.format", string(log.Format))
	v.SetDefault("log.output", string(log.Output))
	v.SetDefault("log.file", "")
}

// Load reads the configuration from v and validates it. The database DSN is
// checked when the database is opened, so commands that never touch it can
// run without one.
func Load(v *viper.Viper) (*Config, error) {
	SetDefaults(v)

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, errors.ConfigurationError("config", nil, fmt.Errorf("failed to decode configuration: %w", err))
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks every section.
func (c *Config) Validate() error {
	if c.Batch.MaxConcurrency < 1 {
		return errors.ConfigurationError("batch.max_concurrency", c.Batch.MaxConcurrency,
			fmt.Errorf("max concurrency must be at least 1"))
	}

	validators := []interface{ Validate() error }{
		c.NormalizerConfig(),
		c.MatcherConfig(),
		c.LedgerConfig(),
		c.RoutingConfig(),
		c.ReportReaderConfig(),
		&c.Log,
	}
	for _, v := range validators {
		if err := v.Validate(); err != nil {
			return errors.WrapIfNeeded(err, errors.KindConfiguration, "invalid configuration")
		}
	}
	return nil
}

// NormalizerConfig returns the normalizer section.
func (c *Config) NormalizerConfig() *normalizer.Config {
	return &normalizer.Config{ReferenceWidth: c.Reconcile.ReferenceWidth}
}

// MatcherConfig returns the matcher section.
func (c *Config) MatcherConfig() *matcher.Config {
	return &matcher.Config{SuccessCode: c.Reconcile.SuccessCode}
}

// LedgerConfig returns the ledger query filters.
func (c *Config) LedgerConfig() *store.LedgerConfig {
	return &store.LedgerConfig{
		RequestType:            c.Reconcile.RequestType,
		ExcludedTxnTypes:       c.Reconcile.ExcludedTxnTypes,
		AllowedProcessingCodes: c.Reconcile.AllowedProcessingCodes,
		SuccessCode:            c.Reconcile.SuccessCode,
		SettlementIssuer:       c.Settlement.IssuerCode,
		SettlementTxnTypes:     c.Settlement.TxnTypes,
		ReversalRequestTypes:   c.Settlement.ReversalRequestTypes,
	}
}

// RoutingConfig returns the aggregator routing rules.
func (c *Config) RoutingConfig() *settlement.RoutingConfig {
	return &settlement.RoutingConfig{
		HubCode:     c.Settlement.HubCode,
		PartnerCode: c.Settlement.PartnerCode,
		RoutedTypes: c.Settlement.RoutedTypes,
	}
}

// ReportReaderConfig returns the settlement report layout.
func (c *Config) ReportReaderConfig() *parsers.ReportConfig {
	return &parsers.ReportConfig{
		Sheet:   c.Settlement.ReportSheet,
		Columns: c.Settlement.ReportColumns,
	}
}

// CreateReportConfig creates a report configuration for the given output format
func CreateReportConfig(outputFormat string) *reporter.ReportConfig {
	config := reporter.DefaultReportConfig()
	config.Format = reporter.OutputFormat(outputFormat)

	switch config.Format {
	case reporter.FormatJSON, reporter.FormatCSV:
		config.IncludeReconciled = true
		config.MaxRows = 0
	}

	return config
}
