// Package parsers reads bank statements and settlement reports from CSV or
// XLSX files.
//
// All readers work over an afero.Fs, so the CLI reads from the OS filesystem
// while tests use an in-memory one.
//
// Reader types:
//   - StatementReader: bank statement uploads, first four columns of the first sheet
//   - ReportReader: settlement bank reports, a named sheet and fixed column indexes
//
// Example usage:
//
//	reader := parsers.NewStatementReader(afero.NewOsFs(), nil, log)
//	rows, stats, err := reader.Read("statement.xlsx")
package parsers

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/spf13/afero"
	"github.com/xuri/excelize/v2"

	"golang-bank-recon-service/pkg/errors"
	"golang-bank-recon-service/pkg/logger"
)

// Supported file extensions
const (
	ExtCSV  = ".csv"
	ExtXLSX = ".xlsx"
	ExtXLSM = ".xlsm"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// ParseConfig holds configuration shared by the readers
type ParseConfig struct {
	HasHeader        bool
	Delimiter        rune
	TrimLeadingSpace bool
	SkipEmptyRows    bool
	ValidateEncoding bool
}

// DefaultParseConfig returns a configuration with sensible defaults
func DefaultParseConfig() *ParseConfig {
	return &ParseConfig{
		HasHeader:        true,
		Delimiter:        ',',
		TrimLeadingSpace: true,
		SkipEmptyRows:    true,
		ValidateEncoding: true,
	}
}

// ParseStats contains statistics about a read
type ParseStats struct {
	TotalRows     int
	ProcessedRows int
	SkippedRows   int
	Sheet         string
}

// String returns a string representation of the parse statistics
func (ps *ParseStats) String() string {
	return fmt.Sprintf("Total: %d, Processed: %d, Skipped: %d", ps.TotalRows, ps.ProcessedRows, ps.SkippedRows)
}

// table is the raw cell grid of one sheet or CSV file.
type table struct {
	file  string
	sheet string
	rows  [][]string
}

// baseReader opens files and turns them into cell grids.
type baseReader struct {
	fs     afero.Fs
	config *ParseConfig
	logger logger.Logger
}

func newBaseReader(fs afero.Fs, config *ParseConfig, log logger.Logger, component string) baseReader {
	if fs == nil {
		fs = afero.NewOsFs()
	}
	if config == nil {
		config = DefaultParseConfig()
	}
	return baseReader{
		fs:     fs,
		config: config,
		logger: logger.OrGlobal(log).WithComponent(component),
	}
}

// readTable loads a CSV file, or the named sheet of a workbook. An empty
// sheet name selects the first sheet.
func (br *baseReader) readTable(path, sheet string, allowCSV bool) (*table, error) {
	ext := strings.ToLower(filepath.Ext(path))

	switch ext {
	case ExtXLSX, ExtXLSM:
		return br.readWorkbook(path, sheet)
	case ExtCSV:
		if allowCSV {
			return br.readCSV(path)
		}
		return nil, errors.UnsupportedFormatError(path, ExtXLSX, ExtXLSM)
	default:
		if allowCSV {
			return nil, errors.UnsupportedFormatError(path, ExtCSV, ExtXLSX, ExtXLSM)
		}
		return nil, errors.UnsupportedFormatError(path, ExtXLSX, ExtXLSM)
	}
}

func (br *baseReader) readCSV(path string) (*table, error) {
	data, err := afero.ReadFile(br.fs, path)
	if err != nil {
		return nil, errors.FileError(path, err)
	}
	data = bytes.TrimPrefix(data, utf8BOM)

	if br.config.ValidateEncoding && !utf8.Valid(data) {
		return nil, errors.At(errors.New(errors.KindFile, "file is not valid UTF-8").
			WithSuggestion("save the file with UTF-8 encoding"), &errors.ParseContext{File: path})
	}

	reader := csv.NewReader(bytes.NewReader(data))
	reader.Comma = br.config.Delimiter
	reader.TrimLeadingSpace = br.config.TrimLeadingSpace
	reader.FieldsPerRecord = -1

	var rows [][]string
	for line := 1; ; line++ {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.At(errors.Wrap(err, errors.KindFile, "malformed CSV"),
				&errors.ParseContext{File: path, Row: line})
		}
		rows = append(rows, record)
	}

	return &table{file: path, rows: rows}, nil
}

func (br *baseReader) readWorkbook(path, sheet string) (*table, error) {
	file, err := br.fs.Open(path)
	if err != nil {
		return nil, errors.FileError(path, err)
	}
	defer file.Close()

	wb, err := excelize.OpenReader(file, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, errors.FileError(path, err).WithSuggestion("check that the file is a valid XLSX workbook")
	}
	defer wb.Close()

	if sheet == "" {
		sheet = wb.GetSheetName(0)
	} else if idx, err := wb.GetSheetIndex(sheet); err != nil || idx < 0 {
		return nil, errors.MissingSheetError(path, sheet, wb.GetSheetList())
	}

	rows, err := wb.GetRows(sheet)
	if err != nil {
		return nil, errors.At(errors.FileError(path, err), &errors.ParseContext{File: path, Sheet: sheet})
	}

	return &table{file: path, sheet: sheet, rows: rows}, nil
}

// dataRows drops the header and, when configured, rows with no content.
func (br *baseReader) dataRows(t *table, stats *ParseStats) [][]string {
	start := 0
	if br.config.HasHeader && len(t.rows) > 0 {
		start = 1
	}

	rows := make([][]string, 0, len(t.rows)-start)
	for i := start; i < len(t.rows); i++ {
		stats.TotalRows++
		if br.config.SkipEmptyRows && isEmptyRecord(t.rows[i]) {
			stats.SkippedRows++
			continue
		}
		rows = append(rows, t.rows[i])
	}
	return rows
}

func isEmptyRecord(record []string) bool {
	for _, field := range record {
		if strings.TrimSpace(field) != "" {
			return false
		}
	}
	return true
}

// cell returns the trimmed value at index, or "" if the row is shorter.
func cell(record []string, index int) string {
	if index < 0 || index >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[index])
}
