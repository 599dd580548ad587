package settlement

import (
	"github.com/shopspring/decimal"

	"golang-bank-recon-service/internal/models"
	"golang-bank-recon-service/pkg/logger"
)

// MatchResult holds the settlement join and its partitions. Partitions point
// into Merged.
type MatchResult struct {
	Merged        []*models.SettlementRow
	Matched       []*models.SettlementRow
	Unmatched     []*models.SettlementRow
	Discrepancies []*models.SettlementRow
}

type settlementKey struct {
	date      string
	reference string
}

func keyOf(rec *models.NormalizedRecord) settlementKey {
	return settlementKey{date: rec.DateKey, reference: rec.ReferenceKey}
}

// Matcher compares ledger settlement rows with an external report.
type Matcher struct {
	logger logger.Logger
}

// NewMatcher creates a settlement matcher.
func NewMatcher(log logger.Logger) *Matcher {
	return &Matcher{logger: logger.OrGlobal(log).WithComponent("settlement")}
}

// Match outer-joins internal and external rows on (date, reference). Every
// pairing of rows sharing a key becomes one joined row. Amounts are compared,
// never matched on: joined rows carry internal minus external differences,
// with unparseable amounts read as zero. Unjoined rows have no differences
// and count as discrepancies.
//
// Merged lists internal rows in input order, then external rows that found
// no internal row.
func (m *Matcher) Match(internal, external []models.NormalizedRecord) (*MatchResult, error) {
	byKey := make(map[settlementKey][]*models.NormalizedRecord, len(external))
	for i := range external {
		key := keyOf(&external[i])
		byKey[key] = append(byKey[key], &external[i])
	}

	result := &MatchResult{Merged: make([]*models.SettlementRow, 0, len(internal)+len(external))}
	joined := make(map[settlementKey]struct{}, len(internal))

	for i := range internal {
		in := &internal[i]
		key := keyOf(in)

		matches := byKey[key]
		if len(matches) == 0 {
			result.Merged = append(result.Merged, project(in, nil, models.JoinInternalOnly))
			continue
		}

		joined[key] = struct{}{}
		for _, ext := range matches {
			row := project(in, ext, models.JoinBoth)
			amountDiff := diff(in, ext, models.FieldAmount)
			commissionDiff := diff(in, ext, models.FieldCommission)
			row.AmountDiff = &amountDiff
			row.CommissionDiff = &commissionDiff
			result.Merged = append(result.Merged, row)
		}
	}

	for i := range external {
		ext := &external[i]
		if _, ok := joined[keyOf(ext)]; ok {
			continue
		}
		result.Merged = append(result.Merged, project(nil, ext, models.JoinExternalOnly))
	}

	for _, row := range result.Merged {
		if row.Status == models.StatusReconciled {
			result.Matched = append(result.Matched, row)
		} else {
			result.Unmatched = append(result.Unmatched, row)
		}
		if row.HasDiscrepancy() {
			result.Discrepancies = append(result.Discrepancies, row)
		}
	}

	m.logger.WithFields(logger.Fields{
		"internal_rows": len(internal),
		"external_rows": len(external),
		"matched":       len(result.Matched),
		"unmatched":     len(result.Unmatched),
		"discrepancies": len(result.Discrepancies),
	}).Debug("Settlement match complete")

	return result, nil
}

// project builds the fixed report projection, preferring internal fields.
func project(in, ext *models.NormalizedRecord, side models.JoinSide) *models.SettlementRow {
	src := in
	if src == nil {
		src = ext
	}

	status := models.StatusUnreconciled
	if side == models.JoinBoth {
		status = models.StatusReconciled
	}

	return &models.SettlementRow{
		ReferenceKey:    src.ReferenceKey,
		DateKey:         src.DateKey,
		Batch:           src.Get(models.FieldBatch),
		TransactionType: src.Get(models.FieldTransactionType),
		Amount:          src.Get(models.FieldAmount),
		Fee:             src.Get(models.FieldFee),
		Commission:      src.Get(models.FieldCommission),
		Side:            side,
		Status:          status,
	}
}

func diff(in, ext *models.NormalizedRecord, field string) decimal.Decimal {
	return models.DecimalOrZero(in.Get(field)).Sub(models.DecimalOrZero(ext.Get(field)))
}
