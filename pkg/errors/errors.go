package errors

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

// Kind is the closed set of failure kinds a run can report.
// Callers switch on the kind, never on the concrete error type.
type Kind string

const (
	KindInvalidAmount       Kind = "invalid_amount"
	KindInvalidDate         Kind = "invalid_date"
	KindSchema              Kind = "schema_error"
	KindNoMatchingRecords   Kind = "no_matching_records"
	KindPersistenceConflict Kind = "persistence_conflict"
	KindPersistenceFailure  Kind = "persistence_failure"
	KindSourceFailure       Kind = "source_failure"
	KindEmptyInput          Kind = "empty_input"
	KindFile                Kind = "file_error"
	KindConfiguration       Kind = "configuration_error"
	KindInternal            Kind = "internal_error"
)

// Kinds lists every kind in declaration order.
var Kinds = []Kind{
	KindInvalidAmount,
	KindInvalidDate,
	KindSchema,
	KindNoMatchingRecords,
	KindPersistenceConflict,
	KindPersistenceFailure,
	KindSourceFailure,
	KindEmptyInput,
	KindFile,
	KindConfiguration,
	KindInternal,
}

// IsValid reports whether k is one of the declared kinds.
func (k Kind) IsValid() bool {
	for _, known := range Kinds {
		if k == known {
			return true
		}
	}
	return false
}

// IsInputError reports whether the kind describes malformed input data.
func (k Kind) IsInputError() bool {
	switch k {
	case KindInvalidAmount, KindInvalidDate, KindSchema, KindEmptyInput:
		return true
	default:
		return false
	}
}

// ReconcilerError is the base error type for all application errors
type ReconcilerError struct {
	Kind       Kind              `json:"kind"`
	Message    string            `json:"message"`
	Suggestion string            `json:"suggestion,omitempty"`
	Context    Context           `json:"context,omitempty"`
	Cause      error             `json:"-"`
	StackTrace errors.StackTrace `json:"-"`
}

// Context provides additional information about the error
type Context map[string]interface{}

// Error implements the error interface
func (e *ReconcilerError) Error() string {
	if e.Suggestion != "" {
		return fmt.Sprintf("%s (suggestion: %s)", e.Message, e.Suggestion)
	}
	return e.Message
}

// Unwrap returns the underlying cause error
func (e *ReconcilerError) Unwrap() error {
	return e.Cause
}

// GetExitCode returns an appropriate exit code for the error
func (e *ReconcilerError) GetExitCode() int {
	switch e.Kind {
	case KindFile:
		return 2
	case KindInvalidAmount, KindInvalidDate, KindSchema, KindEmptyInput:
		return 3
	case KindConfiguration:
		return 4
	case KindPersistenceFailure, KindPersistenceConflict, KindInternal:
		return 5
	case KindSourceFailure:
		return 6
	case KindNoMatchingRecords:
		return 0
	default:
		return 1
	}
}

// WithContext adds context information to the error
func (e *ReconcilerError) WithContext(key string, value interface{}) *ReconcilerError {
	if e.Context == nil {
		e.Context = make(Context)
	}
	e.Context[key] = value
	return e
}

// WithSuggestion adds a suggestion for fixing the error
func (e *ReconcilerError) WithSuggestion(suggestion string) *ReconcilerError {
	e.Suggestion = suggestion
	return e
}

// New creates a new ReconcilerError
func New(kind Kind, message string) *ReconcilerError {
	return &ReconcilerError{
		Kind:       kind,
		Message:    message,
		StackTrace: errors.New("").(stackTracer).StackTrace(),
	}
}

// Wrap wraps an existing error with ReconcilerError context
func Wrap(err error, kind Kind, message string) *ReconcilerError {
	if err == nil {
		return nil
	}

	return &ReconcilerError{
		Kind:       kind,
		Message:    message,
		Cause:      err,
		StackTrace: errors.WithStack(err).(stackTracer).StackTrace(),
	}
}

// stackTracer interface for extracting stack traces
type stackTracer interface {
	StackTrace() errors.StackTrace
}

func build(kind Kind, message string, err error) *ReconcilerError {
	if err != nil {
		return Wrap(err, kind, message)
	}
	return New(kind, message)
}

// Specific error constructors

// InvalidAmount reports a value that cannot be read as a number.
func InvalidAmount(field string, value interface{}, err error) *ReconcilerError {
	return build(KindInvalidAmount, fmt.Sprintf("invalid amount in field '%s': %v", field, value), err).
		WithSuggestion("ensure amounts are plain numbers (e.g., '1250' or '1250.50')").
		WithContext("field", field).
		WithContext("value", value)
}

// InvalidDate reports a date that cannot be parsed where one is required.
func InvalidDate(field string, value interface{}, err error) *ReconcilerError {
	return build(KindInvalidDate, fmt.Sprintf("invalid date in field '%s': %v", field, value), err).
		WithSuggestion("use date format YYYY-MM-DD or YYYY-MM-DD HH:MM:SS").
		WithContext("field", field).
		WithContext("value", value)
}

// SchemaError reports a required field that is absent from the input.
func SchemaError(field string, err error) *ReconcilerError {
	return build(KindSchema, fmt.Sprintf("required field '%s' is missing", field), err).
		WithSuggestion("verify the input has all required columns in the expected order").
		WithContext("field", field)
}

// NoMatchingRecords reports an empty ledger extract. It is an outcome, not a failure.
func NoMatchingRecords(scope string) *ReconcilerError {
	return New(KindNoMatchingRecords, fmt.Sprintf("no matching records found for %s", scope)).
		WithSuggestion("check the date range or batch number").
		WithContext("scope", scope)
}

// PersistenceConflict reports a lost insert race on a reference.
func PersistenceConflict(reference string) *ReconcilerError {
	return New(KindPersistenceConflict, fmt.Sprintf("reference %s was inserted by a concurrent run", reference)).
		WithContext("reference", reference)
}

// PersistenceFailure reports a store operation that could not complete.
func PersistenceFailure(operation string, err error) *ReconcilerError {
	return build(KindPersistenceFailure, fmt.Sprintf("persistence failed during %s", operation), err).
		WithSuggestion("check database connectivity and retry the run").
		WithContext("operation", operation)
}

// SourceFailure reports a ledger read that could not complete.
func SourceFailure(operation string, err error) *ReconcilerError {
	return build(KindSourceFailure, fmt.Sprintf("ledger read failed during %s", operation), err).
		WithSuggestion("check the date range and database connectivity").
		WithContext("operation", operation)
}

// EmptyInput reports an uploaded file without data rows.
func EmptyInput(source string) *ReconcilerError {
	return New(KindEmptyInput, fmt.Sprintf("no data rows in %s", source)).
		WithSuggestion("upload a statement with at least one transaction row").
		WithContext("source", source)
}

// FileError creates a file-related error
func FileError(path string, err error) *ReconcilerError {
	return build(KindFile, fmt.Sprintf("file error: %s", path), err).
		WithSuggestion("check if the file path is correct and the file is readable").
		WithContext("file_path", path)
}

// ConfigurationError creates a configuration-related error
func ConfigurationError(setting string, value interface{}, err error) *ReconcilerError {
	return build(KindConfiguration, fmt.Sprintf("invalid configuration for '%s': %v", setting, value), err).
		WithSuggestion("check the configuration file and flags for valid values").
		WithContext("setting", setting).
		WithContext("value", value)
}

// InternalError creates an internal error
func InternalError(operation string, err error) *ReconcilerError {
	return build(KindInternal, fmt.Sprintf("unexpected error during %s", operation), err).
		WithSuggestion("this is likely a bug - please report it with the error details").
		WithContext("operation", operation)
}

// Utility functions

// AsReconcilerError extracts a ReconcilerError from an error chain
func AsReconcilerError(err error) (*ReconcilerError, bool) {
	var reconcilerErr *ReconcilerError
	if errors.As(err, &reconcilerErr) {
		return reconcilerErr, true
	}
	return nil, false
}

// KindOf returns the kind of the first ReconcilerError in the chain,
// or KindInternal for foreign errors. A nil error has no kind.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	if reconcilerErr, ok := AsReconcilerError(err); ok {
		return reconcilerErr.Kind
	}
	return KindInternal
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// WrapIfNeeded wraps an error if it's not already a ReconcilerError
func WrapIfNeeded(err error, kind Kind, message string) *ReconcilerError {
	if err == nil {
		return nil
	}

	if reconcilerErr, ok := AsReconcilerError(err); ok {
		return reconcilerErr
	}

	return Wrap(err, kind, message)
}

// ErrorSummary counts errors by kind.
type ErrorSummary struct {
	Total  int                `json:"total"`
	ByKind map[Kind]int       `json:"by_kind"`
	Errors []*ReconcilerError `json:"errors"`
}

// NewErrorSummary creates a new error summary
func NewErrorSummary(errs []*ReconcilerError) *ErrorSummary {
	summary := &ErrorSummary{
		Total:  len(errs),
		ByKind: make(map[Kind]int),
		Errors: errs,
	}
	for _, err := range errs {
		summary.ByKind[err.Kind]++
	}
	return summary
}

// Error returns a formatted error message for the summary
func (es *ErrorSummary) Error() string {
	if es.Total == 0 {
		return "no errors"
	}
	if es.Total == 1 {
		return es.Errors[0].Error()
	}

	var kinds []string
	for _, kind := range Kinds {
		if count := es.ByKind[kind]; count > 0 {
			kinds = append(kinds, fmt.Sprintf("%s: %d", kind, count))
		}
	}

	return fmt.Sprintf("%d errors occurred (%s)", es.Total, strings.Join(kinds, ", "))
}

// GetExitCode returns the highest exit code from all errors
func (es *ErrorSummary) GetExitCode() int {
	maxCode := 0
	for _, err := range es.Errors {
		if code := err.GetExitCode(); code > maxCode {
			maxCode = code
		}
	}
	return maxCode
}
