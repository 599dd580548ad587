package parsers

import (
	"fmt"

	"github.com/spf13/afero"

	"golang-bank-recon-service/internal/models"
	"golang-bank-recon-service/pkg/errors"
	"golang-bank-recon-service/pkg/logger"
)

// ReportConfig locates settlement data inside the external report workbook.
type ReportConfig struct {
	Sheet string `mapstructure:"report_sheet"`
	// Columns are the zero-based indexes of reference, date, batch, type,
	// amount, fee and commission, in that order.
	Columns []int `mapstructure:"report_columns"`
}

// ReportFieldCount is the number of columns a settlement report provides.
const ReportFieldCount = 7

// DefaultReportConfig returns the layout of the settlement bank's report.
func DefaultReportConfig() *ReportConfig {
	return &ReportConfig{
		Sheet:   "Transaction Report",
		Columns: []int{0, 1, 2, 7, 8, 9, 11},
	}
}

// Validate checks the report layout.
func (rc *ReportConfig) Validate() error {
	if rc.Sheet == "" {
		return errors.ConfigurationError("settlement.report_sheet", rc.Sheet, fmt.Errorf("sheet name cannot be empty"))
	}
	if len(rc.Columns) != ReportFieldCount {
		return errors.ConfigurationError("settlement.report_columns", rc.Columns,
			fmt.Errorf("expected %d column indexes, got %d", ReportFieldCount, len(rc.Columns)))
	}
	for _, c := range rc.Columns {
		if c < 0 {
			return errors.ConfigurationError("settlement.report_columns", rc.Columns, fmt.Errorf("negative column index %d", c))
		}
	}
	return nil
}

// ReportReader reads external settlement reports.
type ReportReader struct {
	baseReader
	report *ReportConfig
}

// NewReportReader creates a report reader. Nil configs use defaults.
func NewReportReader(fs afero.Fs, report *ReportConfig, config *ParseConfig, log logger.Logger) (*ReportReader, error) {
	if report == nil {
		report = DefaultReportConfig()
	}
	if err := report.Validate(); err != nil {
		return nil, err
	}
	return &ReportReader{
		baseReader: newBaseReader(fs, config, log, "report_reader"),
		report:     report,
	}, nil
}

// Read loads the configured sheet of an XLSX report.
func (rr *ReportReader) Read(path string) ([]models.SettlementRecord, *ParseStats, error) {
	t, err := rr.readTable(path, rr.report.Sheet, false)
	if err != nil {
		return nil, nil, err
	}

	stats := &ParseStats{Sheet: t.sheet}
	rows := rr.dataRows(t, stats)

	cols := rr.report.Columns
	records := make([]models.SettlementRecord, 0, len(rows))
	for _, row := range rows {
		records = append(records, models.SettlementRecord{
			Reference:       cell(row, cols[0]),
			DateTime:        cell(row, cols[1]),
			Batch:           cell(row, cols[2]),
			TransactionType: cell(row, cols[3]),
			Amount:          cell(row, cols[4]),
			Fee:             cell(row, cols[5]),
			Commission:      cell(row, cols[6]),
		})
		stats.ProcessedRows++
	}

	rr.logger.WithFields(logger.Fields{
		"file":      path,
		"sheet":     t.sheet,
		"processed": stats.ProcessedRows,
	}).Info("Read settlement report")

	return records, stats, nil
}
