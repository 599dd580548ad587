// Package reporter renders reconciliation outcomes and settlement artifacts.
//
// Supported output formats:
//   - Console: human-readable summary and per-status tables for the terminal
//   - JSON: structured outcome for programmatic consumption
//   - CSV: merged rows in the reconciliation report projection
//
// Settlement runs are packaged as a zip of CSV files by WriteSettlementArchive.
//
// Example usage:
//
//	gen, err := reporter.NewReportGenerator(&reporter.ReportConfig{Format: reporter.FormatJSON})
//	err = gen.GenerateReport(outcome, os.Stdout)
package reporter

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"golang-bank-recon-service/internal/models"
	"golang-bank-recon-service/internal/reconciler"
	"golang-bank-recon-service/pkg/errors"
)

// OutputFormat represents the supported report output formats.
type OutputFormat string

const (
	FormatConsole OutputFormat = "console"
	FormatJSON    OutputFormat = "json"
	FormatCSV     OutputFormat = "csv"
)

// IsValid checks if the output format is supported
func (f OutputFormat) IsValid() bool {
	switch f {
	case FormatConsole, FormatJSON, FormatCSV:
		return true
	default:
		return false
	}
}

// MatchColumns is the CSV projection of a matched row.
var MatchColumns = []string{
	"DATE_TIME", "TXN TYPE", "AMOUNT", "TRN_REF", "ABC REFERENCE", "BATCH",
	"ISSUER_CODE", "ACQUIRER_CODE", "RESPONSE_CODE", "MERGE", "STATUS",
}

// ReportConfig holds configuration options for report generation
type ReportConfig struct {
	Format OutputFormat `json:"format"`

	// Console sections
	IncludeReconciled   bool `json:"include_reconciled"`
	IncludePartial      bool `json:"include_partial"`
	IncludeUnreconciled bool `json:"include_unreconciled"`
	IncludeExceptions   bool `json:"include_exceptions"`
	// MaxRows caps each console table. Zero means no cap.
	MaxRows int `json:"max_rows"`

	CSVDelimiter rune `json:"csv_delimiter"`
	CSVHeaders   bool `json:"csv_headers"`
}

// DefaultReportConfig returns a default report configuration
func DefaultReportConfig() *ReportConfig {
	return &ReportConfig{
		Format:              FormatConsole,
		IncludeReconciled:   false,
		IncludePartial:      true,
		IncludeUnreconciled: true,
		IncludeExceptions:   true,
		MaxRows:             20,
		CSVDelimiter:        ',',
		CSVHeaders:          true,
	}
}

// Validate validates the report configuration
func (c *ReportConfig) Validate() error {
	if !c.Format.IsValid() {
		return errors.ConfigurationError("format", c.Format, fmt.Errorf("invalid output format: %s", c.Format)).
			WithSuggestion("use one of: console, json, csv")
	}
	if c.MaxRows < 0 {
		return errors.ConfigurationError("max_rows", c.MaxRows, fmt.Errorf("max rows cannot be negative"))
	}
	return nil
}

// ReportGenerator generates reconciliation reports in various formats
type ReportGenerator struct {
	config *ReportConfig
}

// NewReportGenerator creates a new report generator with the specified configuration
func NewReportGenerator(config *ReportConfig) (*ReportGenerator, error) {
	if config == nil {
		config = DefaultReportConfig()
	}
	if config.CSVDelimiter == 0 {
		config.CSVDelimiter = ','
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &ReportGenerator{config: config}, nil
}

// GenerateReport writes outcome to writer in the configured format.
func (rg *ReportGenerator) GenerateReport(outcome *reconciler.Outcome, writer io.Writer) error {
	if outcome == nil {
		return errors.InternalError("generate_report", fmt.Errorf("outcome cannot be nil"))
	}

	var err error
	switch rg.config.Format {
	case FormatConsole:
		err = rg.generateConsoleReport(outcome, writer)
	case FormatJSON:
		err = rg.generateJSONReport(outcome, writer)
	case FormatCSV:
		err = rg.generateCSVReport(outcome, writer)
	}
	if err != nil {
		return errors.WrapIfNeeded(err, errors.KindFile, "failed to write report")
	}
	return nil
}

func (rg *ReportGenerator) generateConsoleReport(outcome *reconciler.Outcome, writer io.Writer) error {
	b := &strings.Builder{}

	fmt.Fprintf(b, "RECONCILIATION REPORT\n")
	fmt.Fprintf(b, "Run:        %s\n", outcome.RunID)
	fmt.Fprintf(b, "Bank:       %s\n", outcome.BankCode)
	if outcome.DateRange != "" {
		fmt.Fprintf(b, "Date range: %s\n", outcome.DateRange)
	}
	fmt.Fprintf(b, "Feedback:   %s\n", outcome.Feedback)
	if outcome.Degraded {
		fmt.Fprintf(b, "WARNING: results were not fully persisted\n")
	}
	fmt.Fprintf(b, "\n=== SUMMARY ===\n")
	fmt.Fprintf(b, "Uploaded rows:  %d\n", outcome.UploadedRows)
	fmt.Fprintf(b, "Requested rows: %d\n", outcome.RequestedRows)

	if r := outcome.Result; r != nil {
		s := r.Summary()
		fmt.Fprintf(b, "Merged:               %d\n", s.Merged)
		fmt.Fprintf(b, "Reconciled:           %d (%.1f%%)\n", s.Reconciled, percentage(s.Reconciled, s.Merged))
		fmt.Fprintf(b, "Partially reconciled: %d (%.1f%%)\n", s.PartiallyReconciled, percentage(s.PartiallyReconciled, s.Merged))
		fmt.Fprintf(b, "Unreconciled:         %d (%.1f%%)\n", s.Unreconciled, percentage(s.Unreconciled, s.Merged))
		fmt.Fprintf(b, "Exceptions:           %d\n", s.Exceptions)
		fmt.Fprintf(b, "Bank only:            %d\n", s.ExternalOnly)
		fmt.Fprintf(b, "Ledger only:          %d\n", s.InternalOnly)
		fmt.Fprintf(b, "Flags updated:        %d\n", outcome.Upsert.Updated)
		fmt.Fprintf(b, "Flags inserted:       %d\n", outcome.Upsert.Inserted)

		sections := []struct {
			title   string
			enabled bool
			rows    []*models.MatchedRow
		}{
			{"EXCEPTIONS", rg.config.IncludeExceptions, r.Exceptions},
			{"RECONCILED", rg.config.IncludeReconciled, r.Reconciled},
			{"PARTIALLY RECONCILED", rg.config.IncludePartial, r.PartiallyReconciled},
			{"UNRECONCILED", rg.config.IncludeUnreconciled, r.Unreconciled},
		}
		for _, section := range sections {
			if section.enabled && len(section.rows) > 0 {
				fmt.Fprintf(b, "\n=== %s (%d) ===\n", section.title, len(section.rows))
				rg.printRows(section.rows, b)
			}
		}
	}

	_, err := io.WriteString(writer, b.String())
	return err
}

func (rg *ReportGenerator) printRows(rows []*models.MatchedRow, writer io.Writer) {
	fmt.Fprintf(writer, "  %-10s %-14s %12s %-6s %s\n", "DATE", "REFERENCE", "AMOUNT", "CODE", "MERGE")
	for i, row := range rows {
		if rg.config.MaxRows > 0 && i >= rg.config.MaxRows {
			fmt.Fprintf(writer, "  ... and %d more\n", len(rows)-i)
			return
		}
		code, ok := row.InternalResponseCode()
		if !ok {
			code = "-"
		}
		fmt.Fprintf(writer, "  %-10s %-14s %12s %-6s %s\n",
			row.DateKey, row.OriginalReference(), row.AmountKey, code, row.Side.Label())
	}
}

type jsonReport struct {
	*reconciler.Outcome
	Rows []map[string]string `json:"rows,omitempty"`
}

func (rg *ReportGenerator) generateJSONReport(outcome *reconciler.Outcome, writer io.Writer) error {
	report := jsonReport{Outcome: outcome}
	if outcome.Result != nil {
		for _, row := range outcome.Result.Merged {
			values := MatchValues(row)
			entry := make(map[string]string, len(MatchColumns))
			for i, col := range MatchColumns {
				entry[col] = values[i]
			}
			report.Rows = append(report.Rows, entry)
		}
	}

	encoder := json.NewEncoder(writer)
	encoder.SetIndent("", "  ")
	return encoder.Encode(report)
}

func (rg *ReportGenerator) generateCSVReport(outcome *reconciler.Outcome, writer io.Writer) error {
	var rows []*models.MatchedRow
	if outcome.Result != nil {
		rows = outcome.Result.Merged
	}
	return WriteMatchedRows(writer, rows, rg.config.CSVDelimiter, rg.config.CSVHeaders)
}

// WriteMatchedRows writes rows as CSV in MatchColumns order.
func WriteMatchedRows(writer io.Writer, rows []*models.MatchedRow, delimiter rune, headers bool) error {
	w := csv.NewWriter(writer)
	w.Comma = delimiter

	if headers {
		if err := w.Write(MatchColumns); err != nil {
			return fmt.Errorf("failed to write CSV headers: %w", err)
		}
	}
	for _, row := range rows {
		if err := w.Write(MatchValues(row)); err != nil {
			return fmt.Errorf("failed to write row %s: %w", row.ReferenceKey, err)
		}
	}

	w.Flush()
	return w.Error()
}

// MatchValues renders a matched row in MatchColumns order. The transaction
// type falls back to the statement description for bank-only rows.
func MatchValues(row *models.MatchedRow) []string {
	txnType := row.Field(models.FieldTransactionType)
	if txnType == "" {
		txnType = row.External.Get(models.FieldDescription)
	}
	code, ok := row.InternalResponseCode()
	if !ok {
		code, _ = row.ExternalResponseCode()
	}
	return []string{
		row.DateKey,
		txnType,
		row.AmountKey,
		row.ReferenceKey,
		row.OriginalReference(),
		row.Field(models.FieldBatch),
		row.Field(models.FieldIssuerCode),
		row.Field(models.FieldAcquirerCode),
		code,
		row.Side.Label(),
		string(row.Status),
	}
}

func percentage(part, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(part) / float64(total) * 100
}
