package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"golang-bank-recon-service/cmd/reconciler/config"
	"golang-bank-recon-service/internal/models"
	"golang-bank-recon-service/internal/parsers"
	"golang-bank-recon-service/internal/reconciler"
	"golang-bank-recon-service/internal/reporter"
	"golang-bank-recon-service/pkg/errors"
	"golang-bank-recon-service/pkg/logger"
)

// Flags for the reconcile command
var (
	bankCode      string
	userID        string
	statementFile string
	outputFormat  string
	outputFile    string
)

// reconcileCmd represents the reconcile command
var reconcileCmd = &cobra.Command{
	Use:   "reconcile",
	Short: "Reconcile a bank statement against the transaction ledger",
	Long: `Reconcile reads a statement uploaded by a bank, extracts the ledger
transactions of that bank over the statement's date range and classifies
every row as reconciled, partially reconciled, unreconciled or an exception.
Flags of the reconciled transactions are written to the recon table and the
run is logged to recon_log.

The statement may be a CSV file or an Excel workbook. Its first four
columns are read as date, description, amount and reference.

Examples:
  # Basic reconciliation
  reconciler reconcile --bank-code BANK01 --statement upload.xlsx

  # JSON report written to a file
  reconciler reconcile --bank-code BANK01 --statement upload.csv \
    --output-format json --output-file report.json

  # Against a local SQLite database
  reconciler reconcile --db-dialect sqlite3 --db-dsn recon.db \
    --bank-code BANK01 --statement upload.csv`,

	PreRunE: validateReconcileFlags,
	RunE:    runReconcile,
}

func init() {
	rootCmd.AddCommand(reconcileCmd)

	flags := reconcileCmd.Flags()
	flags.StringVarP(&bankCode, "bank-code", "b", "", "bank code the statement belongs to (required)")
	flags.StringVarP(&userID, "user", "u", "", "user recorded against the run (default: $USER)")
	flags.StringVarP(&statementFile, "statement", "s", "", "path to the statement file, .csv or .xlsx (required)")
	flags.StringVarP(&outputFormat, "output-format", "f", "console", "output format: console, json, csv")
	flags.StringVarP(&outputFile, "output-file", "o", "", "output file path (default: stdout)")

	reconcileCmd.MarkFlagRequired("bank-code")
	reconcileCmd.MarkFlagRequired("statement")

	bindFlags(flags, map[string]string{
		"bank-code":     "bank-code",
		"user":          "user",
		"statement":     "statement",
		"output-format": "output-format",
		"output-file":   "output-file",
	})
}

func validateReconcileFlags(cmd *cobra.Command, args []string) error {
	// Get values from viper (allows override from config file)
	bankCode = strings.TrimSpace(viper.GetString("bank-code"))
	userID = viper.GetString("user")
	statementFile = viper.GetString("statement")
	outputFormat = viper.GetString("output-format")
	outputFile = viper.GetString("output-file")

	if bankCode == "" {
		return errors.ConfigurationError("bank-code", bankCode, fmt.Errorf("bank-code is required"))
	}
	if statementFile == "" {
		return errors.ConfigurationError("statement", statementFile, fmt.Errorf("statement is required"))
	}
	if err := validateFileExists(statementFile, "statement file"); err != nil {
		return err
	}
	if err := validateOutputFormat(outputFormat); err != nil {
		return err
	}
	if userID == "" {
		userID = os.Getenv("USER")
	}
	return validateOutputFile(outputFile)
}

func validateOutputFormat(format string) error {
	if !reporter.OutputFormat(format).IsValid() {
		return errors.ConfigurationError("output-format", format,
			fmt.Errorf("invalid output format '%s'. Valid formats: console, json, csv", format))
	}
	return nil
}

func validateOutputFile(path string) error {
	if path == "" {
		return nil
	}
	dir := filepath.Dir(path)
	if dir != "." {
		if _, err := os.Stat(dir); os.IsNotExist(err) {
			return errors.FileError(path, fmt.Errorf("output directory does not exist: %s", dir))
		}
	}
	return nil
}

func validateFileExists(filePath, description string) error {
	if filePath == "" {
		return errors.FileError(filePath, fmt.Errorf("%s path cannot be empty", description))
	}

	info, err := os.Stat(filePath)
	if os.IsNotExist(err) {
		return errors.FileError(filePath, fmt.Errorf("%s does not exist: %s", description, filePath))
	}
	if err != nil {
		return errors.FileError(filePath, fmt.Errorf("error accessing %s: %w", description, err))
	}

	if info.IsDir() {
		return errors.FileError(filePath, fmt.Errorf("%s is a directory, expected a file: %s", description, filePath))
	}

	file, err := os.Open(filePath)
	if err != nil {
		return errors.FileError(filePath, fmt.Errorf("%s is not readable: %w", description, err))
	}
	file.Close()

	return nil
}

// readStatement reads a statement upload from the local filesystem.
func readStatement(path string, log logger.Logger) ([]models.RawRecord, error) {
	reader := parsers.NewStatementReader(afero.NewOsFs(), parsers.DefaultParseConfig(), log)
	rows, stats, err := reader.Read(path)
	if err != nil {
		return nil, err
	}
	log.WithFields(logger.Fields{"file": path, "stats": stats.String()}).Debug("Statement read")
	return rows, nil
}

func runReconcile(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	if viper.GetBool("verbose") {
		fmt.Fprintf(os.Stderr, "Starting reconciliation...\n")
		fmt.Fprintf(os.Stderr, "Bank code: %s\n", bankCode)
		fmt.Fprintf(os.Stderr, "Statement: %s\n", statementFile)
		fmt.Fprintf(os.Stderr, "Output format: %s\n", outputFormat)
		if outputFile != "" {
			fmt.Fprintf(os.Stderr, "Output file: %s\n", outputFile)
		}
	}

	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	statement, err := readStatement(statementFile, a.logger)
	if err != nil {
		return err
	}

	outcome, runErr := a.service.Reconcile(ctx, &reconciler.Request{
		BankCode:  bankCode,
		UserID:    userID,
		Statement: statement,
		Now:       time.Now(),
	})
	if outcome == nil {
		return runErr
	}

	if err := writeReport(outcome, outputFormat, outputFile); err != nil {
		return err
	}

	if viper.GetBool("verbose") && outcome.Summary != nil {
		fmt.Fprintf(os.Stderr, "\nReconciliation finished: %s\n", outcome.Feedback)
		fmt.Fprintf(os.Stderr, "Merged %d rows: %d reconciled, %d partially reconciled, %d unreconciled, %d exceptions.\n",
			outcome.Summary.Merged, outcome.Summary.Reconciled, outcome.Summary.PartiallyReconciled,
			outcome.Summary.Unreconciled, outcome.Summary.Exceptions)
	}

	if runErr != nil {
		return runErr
	}
	return degradedError(outcome)
}

// degradedError turns a run whose results were not fully persisted into an
// error so the process exits non-zero.
func degradedError(outcome *reconciler.Outcome) error {
	if outcome == nil || !outcome.Degraded {
		return nil
	}
	return errors.New(errors.KindPersistenceFailure, outcome.Feedback).
		WithContext("bank_code", outcome.BankCode).
		WithContext("run_id", outcome.RunID)
}

// writeReport renders outcome to path, or to stdout when path is empty.
func writeReport(outcome *reconciler.Outcome, format, path string) error {
	generator, err := reporter.NewReportGenerator(config.CreateReportConfig(format))
	if err != nil {
		return err
	}

	return withOutput(path, func(w io.Writer) error {
		return generator.GenerateReport(outcome, w)
	})
}

// withOutput calls write with the named file, or stdout when path is empty.
func withOutput(path string, write func(io.Writer) error) error {
	if path == "" {
		return write(os.Stdout)
	}

	file, err := os.Create(path)
	if err != nil {
		return errors.FileError(path, err)
	}
	if err := write(file); err != nil {
		file.Close()
		return err
	}
	if err := file.Close(); err != nil {
		return errors.FileError(path, err)
	}
	return nil
}
