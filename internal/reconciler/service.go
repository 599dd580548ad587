// Package reconciler runs reconciliation and settlement jobs end to end.
//
// A Service wires normalization, matching, flag persistence and run
// statistics together and turns each outcome into the feedback text shown
// to the bank user. The stores are interfaces so tests can run a whole job
// in memory.
//
// Example usage:
//
//	svc, err := reconciler.NewService(deps)
//	outcome, err := svc.Reconcile(ctx, &reconciler.Request{
//		BankCode:  "BANK01",
//		UserID:    "ops",
//		Statement: rows,
//		Now:       time.Now(),
//	})
//	fmt.Println(outcome.Feedback)
package reconciler

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"golang-bank-recon-service/internal/locker"
	"golang-bank-recon-service/internal/matcher"
	"golang-bank-recon-service/internal/models"
	"golang-bank-recon-service/internal/normalizer"
	"golang-bank-recon-service/internal/settlement"
	"golang-bank-recon-service/internal/store"
	"golang-bank-recon-service/pkg/errors"
	"golang-bank-recon-service/pkg/logger"
)

// Feedback messages reported to the bank user.
const (
	FeedbackEmptyUpload    = "Your uploaded file is empty"
	FeedbackSourceFailure  = "No records. Check your date range."
	FeedbackNoMatches      = "Oops! No Matched Records were found."
	FeedbackNoReconciled   = "Sorry, Reconciliation failed."
	FeedbackDegraded       = "Sorry, an error occurred during reconciliation."
	feedbackUpsertTemplate = "Updated: %d, Inserted: %d"
)

// dateRangeLayout formats each end of RunStats.DateRange.
const dateRangeLayout = "2006-01-02"

// Deps are the collaborators of a Service.
type Deps struct {
	Normalizer        *normalizer.Normalizer
	Matcher           *matcher.Matcher
	Aggregator        *settlement.Aggregator
	SettlementMatcher *settlement.Matcher

	Flags  store.FlagStore
	Stats  store.StatsStore
	Ledger store.LedgerSource

	Logger logger.Logger

	// SuccessCode is the response code counted in RequestedRows.
	SuccessCode string
	// StatementResponseCode, when set, is stamped on every uploaded row.
	StatementResponseCode string
}

// Service runs reconciliation and settlement jobs.
type Service struct {
	deps   Deps
	locks  *locker.Locker
	logger logger.Logger
}

// NewService checks deps and builds a Service.
func NewService(deps Deps) (*Service, error) {
	required := []struct {
		name    string
		missing bool
	}{
		{"normalizer", deps.Normalizer == nil},
		{"matcher", deps.Matcher == nil},
		{"aggregator", deps.Aggregator == nil},
		{"settlement_matcher", deps.SettlementMatcher == nil},
		{"flag_store", deps.Flags == nil},
		{"stats_store", deps.Stats == nil},
		{"ledger", deps.Ledger == nil},
	}
	for _, dep := range required {
		if dep.missing {
			return nil, errors.ConfigurationError(dep.name, nil, fmt.Errorf("%s is required", dep.name))
		}
	}
	if deps.SuccessCode == "" {
		deps.SuccessCode = matcher.DefaultSuccessCode
	}

	return &Service{
		deps:   deps,
		locks:  locker.New(),
		logger: logger.OrGlobal(deps.Logger).WithComponent("reconciler"),
	}, nil
}

// Request is one bank's statement reconciliation.
type Request struct {
	BankCode  string
	UserID    string
	Statement []models.RawRecord
	// Now stamps flags and stats. It is the only clock a run reads.
	Now time.Time
}

// Outcome is what a run reports back. Result is nil when the run stopped
// before matching.
type Outcome struct {
	RunID         string             `json:"run_id"`
	BankCode      string             `json:"bank_code"`
	Feedback      string             `json:"feedback"`
	Kind          errors.Kind        `json:"kind,omitempty"`
	Degraded      bool               `json:"degraded"`
	DateRange     string             `json:"date_range,omitempty"`
	UploadedRows  int                `json:"uploaded_rows"`
	RequestedRows int                `json:"requested_rows"`
	Result        *matcher.Result    `json:"-"`
	Summary       *matcher.Summary   `json:"summary,omitempty"`
	Upsert        store.UpsertResult `json:"upsert"`
	Stats         *models.RunStats   `json:"stats,omitempty"`
}

// Reconcile matches a statement against the ledger and persists flags for
// the reconciled rows.
//
// Expected empty outcomes (an empty upload, no ledger rows, nothing
// reconciled) and persistence failures come back as an Outcome with a nil
// error. Malformed input and an unreadable ledger return an error alongside
// an Outcome carrying the feedback.
func (s *Service) Reconcile(ctx context.Context, req *Request) (*Outcome, error) {
	if req == nil {
		return nil, errors.InternalError("reconcile", fmt.Errorf("request is nil"))
	}
	if req.Now.IsZero() {
		return nil, errors.ConfigurationError("now", req.Now, fmt.Errorf("run timestamp is required"))
	}

	outcome := &Outcome{
		RunID:        uuid.New().String(),
		BankCode:     req.BankCode,
		UploadedRows: len(req.Statement),
	}
	log := s.logger.WithFields(logger.Fields{
		"run_id":    outcome.RunID,
		"bank_code": req.BankCode,
		"user":      req.UserID,
	})
	op := logger.NewOperationLogger("reconcile", log)

	if len(req.Statement) == 0 {
		outcome.Feedback = FeedbackEmptyUpload
		outcome.Kind = errors.KindEmptyInput
		op.Warning("Uploaded statement is empty")
		return outcome, nil
	}

	minDate, maxDate, err := statementDateRange(req.Statement)
	if err != nil {
		return s.fail(op, outcome, err)
	}
	outcome.DateRange = minDate.Format(dateRangeLayout) + "," + maxDate.Format(dateRangeLayout)

	external, err := s.deps.Normalizer.NormalizeStatement(s.stampStatement(req.Statement))
	if err != nil {
		return s.fail(op, outcome, err)
	}
	op.Step("normalize", logger.Fields{"uploaded_rows": outcome.UploadedRows})

	ledger, err := s.deps.Ledger.Extract(ctx, req.BankCode, minDate, maxDate)
	if err != nil {
		outcome.Feedback = FeedbackSourceFailure
		outcome.Kind = errors.KindSourceFailure
		op.Error(err, "Ledger extract failed")
		return outcome, errors.WrapIfNeeded(err, errors.KindSourceFailure, "ledger extract failed")
	}
	op.Step("extract", logger.Fields{"ledger_rows": len(ledger)})

	if len(ledger) == 0 {
		outcome.Feedback = FeedbackNoMatches
		outcome.Kind = errors.KindNoMatchingRecords
		s.recordStats(ctx, op, req, outcome)
		op.Warning("No ledger rows for the statement date range")
		return outcome, nil
	}
	outcome.RequestedRows = countSuccessful(ledger, s.deps.SuccessCode)

	internal, err := s.deps.Normalizer.NormalizeLedger(ledger)
	if err != nil {
		return s.fail(op, outcome, err)
	}

	result, err := s.deps.Matcher.Reconcile(external, internal)
	if err != nil {
		return s.fail(op, outcome, err)
	}
	summary := result.Summary()
	outcome.Result = result
	outcome.Summary = &summary
	op.Step("match", logger.Fields{
		"merged":     summary.Merged,
		"reconciled": summary.Reconciled,
		"exceptions": summary.Exceptions,
	})

	if len(result.Reconciled) == 0 {
		outcome.Feedback = FeedbackNoReconciled
		s.recordStats(ctx, op, req, outcome)
		op.Warning("No rows reconciled")
		return outcome, nil
	}

	upsert, err := s.deps.Flags.Upsert(ctx, store.FlagRowsFromMatches(result.Reconciled), req.BankCode, req.Now)
	if err != nil {
		outcome.Feedback = FeedbackDegraded
		outcome.Kind = errors.KindPersistenceFailure
		outcome.Degraded = true
		op.Error(err, "Flag upsert failed, returning unpersisted results")
	} else {
		outcome.Upsert = upsert
		outcome.Feedback = fmt.Sprintf(feedbackUpsertTemplate, upsert.Updated, upsert.Inserted)
		op.Step("persist", logger.Fields{
			"updated":   upsert.Updated,
			"inserted":  upsert.Inserted,
			"conflicts": upsert.Conflicts,
		})
	}

	s.recordStats(ctx, op, req, outcome)
	op.Success("Reconciliation completed")
	return outcome, nil
}

// fail records an input or matching error on the outcome.
func (s *Service) fail(op *logger.OperationLogger, outcome *Outcome, err error) (*Outcome, error) {
	outcome.Kind = errors.KindOf(err)
	outcome.Feedback = err.Error()
	op.Error(err, "Reconciliation aborted")
	return outcome, err
}

// recordStats appends the run to the stats log. A failure degrades the
// outcome but the run still returns its results.
func (s *Service) recordStats(ctx context.Context, op *logger.OperationLogger, req *Request, outcome *Outcome) {
	stats := &models.RunStats{
		RunID:         outcome.RunID,
		BankCode:      req.BankCode,
		UserID:        req.UserID,
		DateRange:     outcome.DateRange,
		UploadedRows:  outcome.UploadedRows,
		RequestedRows: outcome.RequestedRows,
		Feedback:      outcome.Feedback,
		CreatedAt:     req.Now,
	}
	if r := outcome.Result; r != nil {
		stats.ReconciledRows = len(r.Reconciled)
		stats.UnreconciledRows = len(r.Merged) - len(r.Reconciled)
		stats.ExceptionRows = len(r.Exceptions)
	}

	if err := s.deps.Stats.Record(ctx, stats); err != nil {
		outcome.Feedback = FeedbackDegraded
		outcome.Degraded = true
		op.Error(err, "Recording run stats failed")
		return
	}
	outcome.Stats = stats
	op.Step("stats", nil)
}

// stampStatement copies rows with the configured statement response code.
func (s *Service) stampStatement(rows []models.RawRecord) []models.RawRecord {
	if s.deps.StatementResponseCode == "" {
		return rows
	}
	out := make([]models.RawRecord, len(rows))
	for i, row := range rows {
		row.ResponseCode = s.deps.StatementResponseCode
		out[i] = row
	}
	return out
}

// statementDateRange returns the first and last calendar day of the
// statement. Unparseable dates are ignored unless no date parses at all.
func statementDateRange(rows []models.RawRecord) (time.Time, time.Time, error) {
	var minDate, maxDate time.Time
	found := false
	for _, row := range rows {
		t, err := models.ParseTimeWithFormats(row.TransactionDate)
		if err != nil {
			continue
		}
		day := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
		if !found || day.Before(minDate) {
			minDate = day
		}
		if !found || day.After(maxDate) {
			maxDate = day
		}
		found = true
	}
	if !found {
		return time.Time{}, time.Time{}, errors.InvalidDate(models.FieldDate, rows[0].TransactionDate,
			fmt.Errorf("no statement row has a readable date")).
			WithSuggestion("check the first column of the statement holds transaction dates")
	}
	return minDate, maxDate, nil
}

func countSuccessful(rows []models.LedgerRecord, successCode string) int {
	n := 0
	for _, row := range rows {
		if row.ResponseCode == successCode {
			n++
		}
	}
	return n
}
