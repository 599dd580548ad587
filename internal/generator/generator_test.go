package generator_test

import (
	"bytes"
	"context"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/spf13/afero"

	"golang-bank-recon-service/internal/generator"
	"golang-bank-recon-service/internal/matcher"
	"golang-bank-recon-service/internal/normalizer"
	"golang-bank-recon-service/internal/parsers"
	"golang-bank-recon-service/internal/reconciler"
	"golang-bank-recon-service/internal/settlement"
	"golang-bank-recon-service/internal/store"
	"golang-bank-recon-service/pkg/errors"
	"golang-bank-recon-service/pkg/logger"
)

func TestStatementGenerator_Generate(t *testing.T) {
	g := generator.NewStatementGenerator("BANK01", 42)
	g.Count = 40
	g.MatchRatio = 0.5

	s, err := g.Generate()
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}

	if s.Matched != 20 || s.LedgerOnly != 10 || s.StatementOnly != 10 {
		t.Errorf("Generate() counts = %d/%d/%d, want 20/10/10", s.Matched, s.LedgerOnly, s.StatementOnly)
	}
	if len(s.Statement) != 30 || len(s.Ledger) != 30 {
		t.Errorf("Generate() sizes = %d statement, %d ledger, want 30 and 30", len(s.Statement), len(s.Ledger))
	}

	for _, row := range s.Ledger {
		if row.IssuerCode != "BANK01" && row.AcquirerCode != "BANK01" {
			t.Errorf("ledger row %s does not involve the bank", row.Reference)
		}
		if row.DateTime.Before(g.StartDate) || row.DateTime.After(g.EndDate.AddDate(0, 0, 1)) {
			t.Errorf("ledger row %s dated %v outside the range", row.Reference, row.DateTime)
		}
	}

	again, err := g.Generate()
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if !reflect.DeepEqual(s.Statement, again.Statement) {
		t.Error("Generate() with the same seed should return the same statement")
	}
}

func TestStatementGenerator_Validate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(g *generator.StatementGenerator)
	}{
		{"no bank", func(g *generator.StatementGenerator) { g.BankCode = "" }},
		{"bank is counterparty", func(g *generator.StatementGenerator) { g.Counterparty = g.BankCode }},
		{"zero count", func(g *generator.StatementGenerator) { g.Count = 0 }},
		{"ratio above one", func(g *generator.StatementGenerator) { g.MatchRatio = 1.5 }},
		{"reversed dates", func(g *generator.StatementGenerator) { g.EndDate = g.StartDate.AddDate(0, 0, -1) }},
		{"reversed amounts", func(g *generator.StatementGenerator) { g.MaxAmount = g.MinAmount.Sub(g.MinAmount).Sub(g.MinAmount) }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := generator.NewStatementGenerator("BANK01", 1)
			tt.modify(g)
			if _, err := g.Generate(); !errors.IsKind(err, errors.KindConfiguration) {
				t.Errorf("Generate() error = %v, want configuration error", err)
			}
		})
	}
}

func TestWriteStatementCSV_ReadBack(t *testing.T) {
	g := generator.NewStatementGenerator("BANK01", 7)
	g.Count = 5
	s, err := g.Generate()
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}

	var buf bytes.Buffer
	if err := generator.WriteStatementCSV(&buf, s.Statement); err != nil {
		t.Fatalf("WriteStatementCSV() error = %v", err)
	}
	if !strings.HasPrefix(buf.String(), "Date,Description,Amount,Reference\n") {
		t.Errorf("CSV header = %q", strings.SplitN(buf.String(), "\n", 2)[0])
	}

	fs := afero.NewMemMapFs()
	if err := afero.WriteFile(fs, "/upload.csv", buf.Bytes(), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}
	rows, _, err := parsers.NewStatementReader(fs, nil, logger.Discard()).Read("/upload.csv")
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	if !reflect.DeepEqual(rows, s.Statement) {
		t.Errorf("Read() = %+v, want %+v", rows, s.Statement)
	}
}

func TestScenario_Reconciles(t *testing.T) {
	db, err := store.Open(&store.DatabaseConfig{
		Dialect:     store.DialectSQLite,
		DSN:         filepath.Join(t.TempDir(), "recon.db"),
		AutoMigrate: true,
	})
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer db.Close()

	g := generator.NewStatementGenerator("BANK01", 99)
	g.Count = 40
	g.MatchRatio = 0.5
	s, err := g.Generate()
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if err := generator.SeedLedger(db, s.Ledger); err != nil {
		t.Fatalf("SeedLedger() error = %v", err)
	}

	log := logger.Discard()
	norm, _ := normalizer.New(nil, log)
	match, _ := matcher.New(nil, log)
	aggregator, _ := settlement.NewAggregator(nil, log)
	svc, err := reconciler.NewService(reconciler.Deps{
		Normalizer:        norm,
		Matcher:           match,
		Aggregator:        aggregator,
		SettlementMatcher: settlement.NewMatcher(log),
		Flags:             store.NewReconStore(db, matcher.DefaultSuccessCode, log),
		Stats:             store.NewStatsLog(db),
		Ledger:            store.NewLedger(db, nil),
		Logger:            log,
	})
	if err != nil {
		t.Fatalf("NewService() error = %v", err)
	}

	outcome, err := svc.Reconcile(context.Background(), &reconciler.Request{
		BankCode:  "BANK01",
		UserID:    "generator",
		Statement: s.Statement,
		Now:       time.Date(2024, 2, 1, 9, 0, 0, 0, time.UTC),
	})
	if err != nil {
		t.Fatalf("Reconcile() error = %v", err)
	}

	if outcome.Summary.Reconciled != s.Matched {
		t.Errorf("Reconciled = %d, want %d", outcome.Summary.Reconciled, s.Matched)
	}
	if outcome.Summary.ExternalOnly != s.StatementOnly {
		t.Errorf("ExternalOnly = %d, want %d", outcome.Summary.ExternalOnly, s.StatementOnly)
	}
	if outcome.Upsert.Inserted != s.Matched {
		t.Errorf("Upsert.Inserted = %d, want %d", outcome.Upsert.Inserted, s.Matched)
	}
}
