package config

import (
	"reflect"
	"strings"
	"testing"

	"github.com/spf13/viper"

	"golang-bank-recon-service/internal/reporter"
	"golang-bank-recon-service/internal/store"
	"golang-bank-recon-service/pkg/errors"
)

func newViper() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	return v
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(newViper())
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Database.Dialect != store.DialectPostgres {
		t.Errorf("Database.Dialect = %q, want %q", cfg.Database.Dialect, store.DialectPostgres)
	}
	if cfg.Database.MaxOpenConns != 10 {
		t.Errorf("Database.MaxOpenConns = %d, want 10", cfg.Database.MaxOpenConns)
	}
	if cfg.Reconcile.SuccessCode != "0" {
		t.Errorf("Reconcile.SuccessCode = %q, want %q", cfg.Reconcile.SuccessCode, "0")
	}
	if cfg.Reconcile.ReferenceWidth != 12 {
		t.Errorf("Reconcile.ReferenceWidth = %d, want 12", cfg.Reconcile.ReferenceWidth)
	}
	if cfg.Reconcile.StatementResponseCode != "" {
		t.Errorf("Reconcile.StatementResponseCode = %q, want empty", cfg.Reconcile.StatementResponseCode)
	}
	if !reflect.DeepEqual(cfg.Reconcile.ExcludedTxnTypes, []string{"BI", "MINI"}) {
		t.Errorf("Reconcile.ExcludedTxnTypes = %v", cfg.Reconcile.ExcludedTxnTypes)
	}
	if cfg.Settlement.HubCode != "TROAUGKA" || cfg.Settlement.PartnerCode != "AFRIUGKA" {
		t.Errorf("Settlement hub/partner = %q/%q", cfg.Settlement.HubCode, cfg.Settlement.PartnerCode)
	}
	if !reflect.DeepEqual(cfg.Settlement.ReportColumns, []int{0, 1, 2, 7, 8, 9, 11}) {
		t.Errorf("Settlement.ReportColumns = %v", cfg.Settlement.ReportColumns)
	}
	if cfg.Settlement.ReportSheet != "Transaction Report" {
		t.Errorf("Settlement.ReportSheet = %q", cfg.Settlement.ReportSheet)
	}
	if cfg.Batch.MaxConcurrency != 4 {
		t.Errorf("Batch.MaxConcurrency = %d, want 4", cfg.Batch.MaxConcurrency)
	}
}

func TestLoad_EnvOverride(t *testing.T) {
	t.Setenv("RECONCILER_RECONCILE_SUCCESS_CODE", "00")
	t.Setenv("RECONCILER_BATCH_MAX_CONCURRENCY", "8")
	t.Setenv("RECONCILER_SETTLEMENT_ROUTED_TYPES", "NWSC,UMEME,DSTV")
	t.Setenv("RECONCILER_DATABASE_DIALECT", store.DialectSQLite)

	cfg, err := Load(newViper())
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.MatcherConfig().SuccessCode != "00" {
		t.Errorf("MatcherConfig().SuccessCode = %q, want %q", cfg.MatcherConfig().SuccessCode, "00")
	}
	if cfg.LedgerConfig().SuccessCode != "00" {
		t.Errorf("LedgerConfig().SuccessCode = %q, want %q", cfg.LedgerConfig().SuccessCode, "00")
	}
	if cfg.Batch.MaxConcurrency != 8 {
		t.Errorf("Batch.MaxConcurrency = %d, want 8", cfg.Batch.MaxConcurrency)
	}
	if got := cfg.RoutingConfig().RoutedTypes; !reflect.DeepEqual(got, []string{"NWSC", "UMEME", "DSTV"}) {
		t.Errorf("RoutingConfig().RoutedTypes = %v", got)
	}
	if cfg.Database.Dialect != store.DialectSQLite {
		t.Errorf("Database.Dialect = %q, want %q", cfg.Database.Dialect, store.DialectSQLite)
	}
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		key  string
		val  interface{}
	}{
		{"zero concurrency", "batch.max_concurrency", 0},
		{"blank success code", "reconcile.success_code", " "},
		{"zero reference width", "reconcile.reference_width", 0},
		{"no report sheet", "settlement.report_sheet", ""},
		{"no hub", "settlement.hub_code", ""},
		{"bad log level", "log.level", "loud"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := newViper()
			v.Set(tt.key, tt.val)

			_, err := Load(v)
			if err == nil {
				t.Fatalf("Load() expected error for %s = %v", tt.key, tt.val)
			}
			if !errors.IsKind(err, errors.KindConfiguration) {
				t.Errorf("Load() error kind = %s, want %s", errors.KindOf(err), errors.KindConfiguration)
			}
		})
	}
}

func TestConfigProjections(t *testing.T) {
	cfg, err := Load(newViper())
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	ledger := cfg.LedgerConfig()
	if ledger.RequestType != "1200" || ledger.SettlementIssuer != "730147" {
		t.Errorf("LedgerConfig() = %+v", ledger)
	}
	if !reflect.DeepEqual(ledger.ReversalRequestTypes, []string{"1420", "1421"}) {
		t.Errorf("LedgerConfig().ReversalRequestTypes = %v", ledger.ReversalRequestTypes)
	}
	if cfg.NormalizerConfig().ReferenceWidth != 12 {
		t.Errorf("NormalizerConfig().ReferenceWidth = %d, want 12", cfg.NormalizerConfig().ReferenceWidth)
	}
	if got := cfg.ReportReaderConfig(); got.Sheet != "Transaction Report" || len(got.Columns) != 7 {
		t.Errorf("ReportReaderConfig() = %+v", got)
	}
}

func TestCreateReportConfig(t *testing.T) {
	tests := []struct {
		format         string
		wantReconciled bool
		wantMaxRows    int
	}{
		{"console", false, 20},
		{"json", true, 0},
		{"csv", true, 0},
	}

	for _, tt := range tests {
		t.Run(tt.format, func(t *testing.T) {
			config := CreateReportConfig(tt.format)
			if config.Format != reporter.OutputFormat(tt.format) {
				t.Errorf("Format = %s, want %s", config.Format, tt.format)
			}
			if config.IncludeReconciled != tt.wantReconciled {
				t.Errorf("IncludeReconciled = %v, want %v", config.IncludeReconciled, tt.wantReconciled)
			}
			if config.MaxRows != tt.wantMaxRows {
				t.Errorf("MaxRows = %d, want %d", config.MaxRows, tt.wantMaxRows)
			}
			if err := config.Validate(); err != nil {
				t.Errorf("Validate() error = %v", err)
			}
		})
	}
}
