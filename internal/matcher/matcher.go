package matcher

import (
	"golang-bank-recon-service/internal/models"
	"golang-bank-recon-service/pkg/logger"
)

// Matcher is the reconciliation engine for statement against ledger.
type Matcher struct {
	config *Config
	logger logger.Logger
}

// Result is the outcome of one reconciliation pass. Every partition holds
// pointers into Merged, so a row has one identity across all of them.
type Result struct {
	Merged              []*models.MatchedRow
	Reconciled          []*models.MatchedRow
	PartiallyReconciled []*models.MatchedRow
	Unreconciled        []*models.MatchedRow
	Exceptions          []*models.MatchedRow

	// Duplicates dropped from each input before joining
	ExternalDuplicates int
	InternalDuplicates int
}

// Summary provides aggregate counts about a reconciliation pass.
type Summary struct {
	Merged              int `json:"merged"`
	Reconciled          int `json:"reconciled"`
	PartiallyReconciled int `json:"partially_reconciled"`
	Unreconciled        int `json:"unreconciled"`
	Exceptions          int `json:"exceptions"`
	ExternalOnly        int `json:"external_only"`
	InternalOnly        int `json:"internal_only"`
}

// Summary counts the rows in each partition.
func (r *Result) Summary() Summary {
	s := Summary{
		Merged:              len(r.Merged),
		Reconciled:          len(r.Reconciled),
		PartiallyReconciled: len(r.PartiallyReconciled),
		Unreconciled:        len(r.Unreconciled),
		Exceptions:          len(r.Exceptions),
	}
	for _, row := range r.Merged {
		switch row.Side {
		case models.JoinExternalOnly:
			s.ExternalOnly++
		case models.JoinInternalOnly:
			s.InternalOnly++
		}
	}
	return s
}

// New creates a matcher. A nil config uses DefaultConfig.
func New(config *Config, log logger.Logger) (*Matcher, error) {
	if config == nil {
		config = DefaultConfig()
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &Matcher{
		config: config,
		logger: logger.OrGlobal(log).WithComponent("matcher"),
	}, nil
}

// Reconcile joins external (statement) rows with internal (ledger) rows and
// classifies every joined row.
//
// Merged lists external rows first, in de-duplicated input order, followed by
// ledger rows that found no statement row. The inputs are not modified.
func (m *Matcher) Reconcile(external, internal []models.NormalizedRecord) (*Result, error) {
	extIndex := NewRecordIndex(external)
	intIndex := NewRecordIndex(internal)

	result := &Result{
		Merged:             make([]*models.MatchedRow, 0, extIndex.Len()+intIndex.Len()),
		ExternalDuplicates: extIndex.Duplicates,
		InternalDuplicates: intIndex.Duplicates,
	}

	joined := make(map[JoinKey]struct{}, extIndex.Len())

	for _, ext := range extIndex.Records {
		key := KeyOf(ext)
		row := &models.MatchedRow{
			DateKey:      key.Date,
			ReferenceKey: key.Reference,
			AmountKey:    key.Amount,
			External:     ext,
			Side:         models.JoinExternalOnly,
		}
		if in, ok := intIndex.Lookup(key); ok {
			row.Internal = in
			row.Side = models.JoinBoth
			joined[key] = struct{}{}
		}
		result.Merged = append(result.Merged, row)
	}

	for _, in := range intIndex.Records {
		key := KeyOf(in)
		if _, ok := joined[key]; ok {
			continue
		}
		result.Merged = append(result.Merged, &models.MatchedRow{
			DateKey:      key.Date,
			ReferenceKey: key.Reference,
			AmountKey:    key.Amount,
			Internal:     in,
			Side:         models.JoinInternalOnly,
		})
	}

	for _, row := range result.Merged {
		row.Status = m.classify(row)

		switch row.Status {
		case models.StatusReconciled:
			result.Reconciled = append(result.Reconciled, row)
			if !m.isSuccess(row.InternalResponseCode()) {
				result.Exceptions = append(result.Exceptions, row)
			}
		case models.StatusPartiallyReconciled:
			result.PartiallyReconciled = append(result.PartiallyReconciled, row)
		default:
			result.Unreconciled = append(result.Unreconciled, row)
		}
	}

	summary := result.Summary()
	m.logger.WithFields(logger.Fields{
		"external_rows":        len(external),
		"internal_rows":        len(internal),
		"external_duplicates":  result.ExternalDuplicates,
		"internal_duplicates":  result.InternalDuplicates,
		"reconciled":           summary.Reconciled,
		"partially_reconciled": summary.PartiallyReconciled,
		"unreconciled":         summary.Unreconciled,
		"exceptions":           summary.Exceptions,
	}).Debug("Reconciliation pass complete")

	return result, nil
}

// classify applies the status precedence: Unreconciled by default,
// PartiallyReconciled when a side reports success, Reconciled whenever both
// sides joined regardless of response codes.
func (m *Matcher) classify(row *models.MatchedRow) models.Status {
	status := models.StatusUnreconciled

	if m.isSuccess(row.ExternalResponseCode()) || m.isSuccess(row.InternalResponseCode()) {
		status = models.StatusPartiallyReconciled
	}

	if row.Side == models.JoinBoth {
		status = models.StatusReconciled
	}

	return status
}

func (m *Matcher) isSuccess(code string, present bool) bool {
	return present && code == m.config.SuccessCode
}
