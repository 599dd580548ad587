package parsers

import (
	"github.com/spf13/afero"

	"golang-bank-recon-service/internal/models"
	"golang-bank-recon-service/pkg/errors"
	"golang-bank-recon-service/pkg/logger"
)

// StatementColumns is the number of leading columns read from a statement:
// date, description, amount, reference. Later columns are ignored.
const StatementColumns = 4

// StatementReader reads bank statement uploads.
type StatementReader struct {
	baseReader
}

// NewStatementReader creates a statement reader. A nil fs uses the OS filesystem.
func NewStatementReader(fs afero.Fs, config *ParseConfig, log logger.Logger) *StatementReader {
	return &StatementReader{baseReader: newBaseReader(fs, config, log, "statement_reader")}
}

// Read loads the first sheet of an XLSX file, or a CSV file, as statement rows.
func (sr *StatementReader) Read(path string) ([]models.RawRecord, *ParseStats, error) {
	t, err := sr.readTable(path, "", true)
	if err != nil {
		return nil, nil, err
	}

	stats := &ParseStats{Sheet: t.sheet}
	if len(t.rows) == 0 {
		return nil, stats, nil
	}

	if width := sr.shapeWidth(t); width < StatementColumns {
		return nil, stats, errors.MissingColumnsError(path, t.sheet, 1, width, StatementColumns)
	}

	rows := sr.dataRows(t, stats)
	records := make([]models.RawRecord, 0, len(rows))
	for _, row := range rows {
		records = append(records, models.RawRecord{
			TransactionDate: cell(row, 0),
			Description:     cell(row, 1),
			Amount:          cell(row, 2),
			Reference:       cell(row, 3),
		})
		stats.ProcessedRows++
	}

	sr.logger.WithFields(logger.Fields{
		"file":      path,
		"sheet":     t.sheet,
		"processed": stats.ProcessedRows,
		"skipped":   stats.SkippedRows,
	}).Info("Read bank statement")

	return records, stats, nil
}

// shapeWidth is the header width, or the widest row when there is no header.
func (sr *StatementReader) shapeWidth(t *table) int {
	if sr.config.HasHeader {
		return len(t.rows[0])
	}
	width := 0
	for _, row := range t.rows {
		if len(row) > width {
			width = len(row)
		}
	}
	return width
}
