package errors

import (
	"fmt"
	"path/filepath"
	"strings"
)

// ParseContext locates a problem inside an input file
type ParseContext struct {
	File     string `json:"file"`
	Sheet    string `json:"sheet,omitempty"`
	Row      int    `json:"row,omitempty"`
	Column   int    `json:"column,omitempty"`
	Value    string `json:"value,omitempty"`
	Expected string `json:"expected,omitempty"`
}

// String renders the location as file[:sheet][:row][ column N].
func (c *ParseContext) String() string {
	if c == nil {
		return ""
	}
	location := filepath.Base(c.File)
	if c.Sheet != "" {
		location += fmt.Sprintf(" sheet '%s'", c.Sheet)
	}
	if c.Row > 0 {
		location += fmt.Sprintf(" row %d", c.Row)
	}
	if c.Column > 0 {
		location += fmt.Sprintf(" column %d", c.Column)
	}
	return location
}

// ParseError is a ReconcilerError with a file location attached
type ParseError struct {
	*ReconcilerError
	Location *ParseContext `json:"location"`
}

// Error implements the error interface with the location appended
func (e *ParseError) Error() string {
	if e.Location == nil {
		return e.ReconcilerError.Error()
	}
	return fmt.Sprintf("%s at %s", e.ReconcilerError.Error(), e.Location)
}

// Unwrap exposes the embedded ReconcilerError so KindOf sees through the location.
func (e *ParseError) Unwrap() error {
	return e.ReconcilerError
}

// GetDetailedError returns a detailed multi-line error description
func (e *ParseError) GetDetailedError() string {
	var lines []string
	lines = append(lines, fmt.Sprintf("ERROR: %s", e.Message))

	if e.Location != nil {
		lines = append(lines, fmt.Sprintf("  → File: %s", e.Location.File))
		if e.Location.Sheet != "" {
			lines = append(lines, fmt.Sprintf("  → Sheet: %s", e.Location.Sheet))
		}
		if e.Location.Row > 0 {
			lines = append(lines, fmt.Sprintf("  → Row: %d", e.Location.Row))
		}
		if e.Location.Column > 0 {
			lines = append(lines, fmt.Sprintf("  → Column: %d", e.Location.Column))
		}
		if e.Location.Value != "" {
			lines = append(lines, fmt.Sprintf("  → Value: '%s'", e.Location.Value))
		}
		if e.Location.Expected != "" {
			lines = append(lines, fmt.Sprintf("  → Expected: %s", e.Location.Expected))
		}
	}

	if e.Suggestion != "" {
		lines = append(lines, fmt.Sprintf("  → Suggestion: %s", e.Suggestion))
	}

	return strings.Join(lines, "\n")
}

// At attaches a location to a ReconcilerError.
func At(err *ReconcilerError, location *ParseContext) *ParseError {
	if location != nil {
		err.WithContext("file", location.File)
		if location.Sheet != "" {
			err.WithContext("sheet", location.Sheet)
		}
		if location.Row > 0 {
			err.WithContext("row", location.Row)
		}
	}
	return &ParseError{ReconcilerError: err, Location: location}
}

// Common parse error constructors

// MissingColumnsError reports a row narrower than the columns the reader needs.
func MissingColumnsError(file, sheet string, row, have, want int) *ParseError {
	err := SchemaError(fmt.Sprintf("column %d", have+1), nil).
		WithSuggestion(fmt.Sprintf("the file must provide at least %d columns", want))
	return At(err, &ParseContext{
		File:     file,
		Sheet:    sheet,
		Row:      row,
		Expected: fmt.Sprintf("%d columns, found %d", want, have),
	})
}

// MissingSheetError reports a workbook without the requested sheet.
func MissingSheetError(file, sheet string, available []string) *ParseError {
	err := New(KindFile, fmt.Sprintf("sheet '%s' not found", sheet)).
		WithSuggestion(fmt.Sprintf("available sheets: %s", strings.Join(available, ", ")))
	return At(err, &ParseContext{File: file, Sheet: sheet})
}

// UnsupportedFormatError reports a file extension no reader handles.
func UnsupportedFormatError(file string, supported ...string) *ParseError {
	err := New(KindFile, fmt.Sprintf("unsupported file type '%s'", filepath.Ext(file))).
		WithSuggestion(fmt.Sprintf("use one of: %s", strings.Join(supported, ", ")))
	return At(err, &ParseContext{File: file})
}
