package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"golang-bank-recon-service/internal/reconciler"
	"golang-bank-recon-service/internal/store"
	"golang-bank-recon-service/pkg/errors"
)

func TestValidateFileExists(t *testing.T) {
	tmpDir := t.TempDir()
	validFile := filepath.Join(tmpDir, "valid.csv")
	if err := os.WriteFile(validFile, []byte("test"), 0644); err != nil {
		t.Fatalf("failed to create test file: %v", err)
	}

	tests := []struct {
		name        string
		filePath    string
		expectError bool
	}{
		{
			name:        "valid file",
			filePath:    validFile,
			expectError: false,
		},
		{
			name:        "empty path",
			filePath:    "",
			expectError: true,
		},
		{
			name:        "non-existent file",
			filePath:    "/non/existent/file.csv",
			expectError: true,
		},
		{
			name:        "directory instead of file",
			filePath:    tmpDir,
			expectError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateFileExists(tt.filePath, "statement file")

			if tt.expectError && err == nil {
				t.Errorf("expected error but got none")
			}
			if !tt.expectError && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
			if tt.expectError && !errors.IsKind(err, errors.KindFile) {
				t.Errorf("error kind = %s, want %s", errors.KindOf(err), errors.KindFile)
			}
		})
	}
}

func TestValidateReconcileFlags(t *testing.T) {
	tmpDir := t.TempDir()
	statement := filepath.Join(tmpDir, "upload.csv")
	if err := os.WriteFile(statement, []byte("Date,Description,Amount,Reference\n2024-01-01,ATM,100,REF1\n"), 0644); err != nil {
		t.Fatalf("failed to create statement: %v", err)
	}

	tests := []struct {
		name          string
		setupFlags    func()
		expectError   bool
		errorContains string
	}{
		{
			name: "valid flags",
			setupFlags: func() {
				viper.Set("bank-code", "BANK01")
				viper.Set("statement", statement)
				viper.Set("output-format", "console")
			},
			expectError: false,
		},
		{
			name: "missing bank code",
			setupFlags: func() {
				viper.Set("bank-code", "  ")
				viper.Set("statement", statement)
				viper.Set("output-format", "console")
			},
			expectError:   true,
			errorContains: "bank-code is required",
		},
		{
			name: "missing statement",
			setupFlags: func() {
				viper.Set("bank-code", "BANK01")
				viper.Set("output-format", "console")
			},
			expectError:   true,
			errorContains: "statement is required",
		},
		{
			name: "statement does not exist",
			setupFlags: func() {
				viper.Set("bank-code", "BANK01")
				viper.Set("statement", filepath.Join(tmpDir, "missing.csv"))
				viper.Set("output-format", "console")
			},
			expectError:   true,
			errorContains: "does not exist",
		},
		{
			name: "invalid output format",
			setupFlags: func() {
				viper.Set("bank-code", "BANK01")
				viper.Set("statement", statement)
				viper.Set("output-format", "xml")
			},
			expectError:   true,
			errorContains: "invalid output format",
		},
		{
			name: "output directory missing",
			setupFlags: func() {
				viper.Set("bank-code", "BANK01")
				viper.Set("statement", statement)
				viper.Set("output-format", "json")
				viper.Set("output-file", filepath.Join(tmpDir, "nope", "report.json"))
			},
			expectError:   true,
			errorContains: "output directory does not exist",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			viper.Reset()
			tt.setupFlags()

			err := validateReconcileFlags(&cobra.Command{}, []string{})

			if tt.expectError {
				if err == nil {
					t.Errorf("expected error but got none")
				} else if tt.errorContains != "" && !strings.Contains(err.Error(), tt.errorContains) {
					t.Errorf("expected error to contain '%s', got: %v", tt.errorContains, err)
				}
			} else if err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

func TestReconcileCommandHelp(t *testing.T) {
	cmd := reconcileCmd

	for _, name := range []string{"bank-code", "user", "statement", "output-format", "output-file"} {
		if cmd.Flags().Lookup(name) == nil {
			t.Errorf("%s flag not found", name)
		}
	}

	var helpOutput bytes.Buffer
	cmd.SetOut(&helpOutput)
	cmd.Help()

	helpText := helpOutput.String()
	for _, section := range []string{"Usage:", "Examples:", "Flags:", "--bank-code", "--statement", "--db-dsn"} {
		if !strings.Contains(helpText, section) {
			t.Errorf("help text should contain '%s'", section)
		}
	}
}

func TestParseRunFlag(t *testing.T) {
	tests := []struct {
		value     string
		wantBank  string
		wantPath  string
		wantError bool
	}{
		{"BANK01=stmt.csv", "BANK01", "stmt.csv", false},
		{" BANK02 = /data/a=b.xlsx ", "BANK02", "/data/a=b.xlsx", false},
		{"BANK01", "", "", true},
		{"=stmt.csv", "", "", true},
		{"BANK01=", "", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			run, err := parseRunFlag(tt.value)
			if tt.wantError {
				if !errors.IsKind(err, errors.KindConfiguration) {
					t.Errorf("parseRunFlag() error = %v, want configuration error", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("parseRunFlag() error = %v", err)
			}
			if run.bankCode != tt.wantBank || run.path != tt.wantPath {
				t.Errorf("parseRunFlag() = %+v, want %s=%s", run, tt.wantBank, tt.wantPath)
			}
		})
	}
}

func TestParseDay(t *testing.T) {
	day, err := parseDay("2024-01-02")
	if err != nil {
		t.Fatalf("parseDay() error = %v", err)
	}
	if day.Year() != 2024 || day.Month() != time.January || day.Day() != 2 {
		t.Errorf("parseDay() = %v", day)
	}

	if _, err := parseDay("02/01/2024"); !errors.IsKind(err, errors.KindInvalidDate) {
		t.Errorf("parseDay() error = %v, want invalid date", err)
	}

	today, err := parseDay("")
	if err != nil {
		t.Fatalf("parseDay(\"\") error = %v", err)
	}
	if today.Hour() != 0 || today.Minute() != 0 {
		t.Errorf("parseDay(\"\") = %v, want midnight", today)
	}
}

func TestWriteBatchReport(t *testing.T) {
	items := []reconciler.BatchItem{
		{
			Request: &reconciler.Request{BankCode: "BANK01"},
			Outcome: &reconciler.Outcome{BankCode: "BANK01", Feedback: reconciler.FeedbackEmptyUpload},
		},
		{
			Request: &reconciler.Request{BankCode: "BANK01"},
			Err:     errors.New(errors.KindConfiguration, "bank BANK01 already has a run in progress"),
		},
	}

	var buf bytes.Buffer
	if err := writeBatchReport(&buf, items, "console"); err != nil {
		t.Fatalf("writeBatchReport() error = %v", err)
	}

	output := buf.String()
	if !strings.Contains(output, reconciler.FeedbackEmptyUpload) {
		t.Errorf("report should contain the first outcome, got:\n%s", output)
	}
	if !strings.Contains(output, "Bank BANK01: not run") {
		t.Errorf("report should list the rejected run, got:\n%s", output)
	}
}

func TestRunReconcile_SQLite(t *testing.T) {
	dir := t.TempDir()
	dsn := filepath.Join(dir, "recon.db")

	db, err := store.Open(&store.DatabaseConfig{Dialect: store.DialectSQLite, DSN: dsn, AutoMigrate: true})
	if err != nil {
		t.Fatalf("store.Open() error = %v", err)
	}
	code := "0"
	seed := []store.Transaction{
		{DateTime: time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC), Reference: "REF1", TxnType: "ACI", RequestType: "1200",
			IssuerCode: "BANK01", AcquirerCode: "BANK02", Amount: "100", ResponseCode: &code},
		{DateTime: time.Date(2024, 1, 1, 11, 0, 0, 0, time.UTC), Reference: "REF9", TxnType: "ACI", RequestType: "1200",
			IssuerCode: "BANK01", AcquirerCode: "BANK02", Amount: "900", ResponseCode: &code},
	}
	for i := range seed {
		if err := db.Create(&seed[i]).Error; err != nil {
			t.Fatalf("seed: %v", err)
		}
	}
	db.Close()

	statement := filepath.Join(dir, "upload.csv")
	if err := os.WriteFile(statement, []byte("Date,Description,Amount,Reference\n2024-01-01,ATM,100.00,REF1\n"), 0644); err != nil {
		t.Fatalf("failed to create statement: %v", err)
	}

	viper.Reset()
	viper.Set("database.dialect", store.DialectSQLite)
	viper.Set("database.dsn", dsn)
	bankCode = "BANK01"
	userID = "ops"
	statementFile = statement
	outputFormat = "json"
	outputFile = filepath.Join(dir, "report.json")

	if err := runReconcile(&cobra.Command{}, nil); err != nil {
		t.Fatalf("runReconcile() error = %v", err)
	}

	raw, err := os.ReadFile(outputFile)
	if err != nil {
		t.Fatalf("read report: %v", err)
	}
	var report struct {
		Feedback string              `json:"feedback"`
		Rows     []map[string]string `json:"rows"`
	}
	if err := json.Unmarshal(raw, &report); err != nil {
		t.Fatalf("decode report: %v", err)
	}
	if report.Feedback != "Updated: 0, Inserted: 1" {
		t.Errorf("Feedback = %q, want %q", report.Feedback, "Updated: 0, Inserted: 1")
	}
	if len(report.Rows) != 2 {
		t.Errorf("report rows = %d, want 2", len(report.Rows))
	}

	db, err = store.Open(&store.DatabaseConfig{Dialect: store.DialectSQLite, DSN: dsn})
	if err != nil {
		t.Fatalf("store.Open() error = %v", err)
	}
	defer db.Close()

	history, err := store.NewStatsLog(db).RunHistory(context.Background(), "BANK01")
	if err != nil {
		t.Fatalf("RunHistory() error = %v", err)
	}
	if len(history) != 1 || history[0].UserID != "ops" || history[0].ReconciledRows != 1 {
		t.Errorf("RunHistory() = %+v, want one run by ops with 1 reconciled row", history)
	}
}
