package models

import (
	"github.com/shopspring/decimal"
)

// JoinSide tells which inputs of an outer join contributed a row
type JoinSide string

const (
	JoinBoth         JoinSide = "both"
	JoinExternalOnly JoinSide = "external_only"
	JoinInternalOnly JoinSide = "internal_only"
)

// Label is the merge indicator written to reports.
func (s JoinSide) Label() string {
	switch s {
	case JoinExternalOnly:
		return "Bank_only"
	case JoinInternalOnly:
		return "ABC_only"
	default:
		return string(s)
	}
}

// Status is the reconciliation classification of a joined row
type Status string

const (
	StatusReconciled          Status = "Reconciled"
	StatusPartiallyReconciled Status = "PartiallyReconciled"
	StatusUnreconciled        Status = "Unreconciled"
)

// MatchedRow is one row of the full outer join between statement and ledger.
type MatchedRow struct {
	DateKey      string            `json:"date_key"`
	ReferenceKey string            `json:"reference_key"`
	AmountKey    string            `json:"amount_key"`
	External     *NormalizedRecord `json:"external,omitempty"`
	Internal     *NormalizedRecord `json:"internal,omitempty"`
	Side         JoinSide          `json:"join_side"`
	Status       Status            `json:"status"`
}

// ExternalResponseCode returns the statement response code, if any.
func (m *MatchedRow) ExternalResponseCode() (string, bool) {
	return m.External.Field(FieldResponseCode)
}

// InternalResponseCode returns the ledger response code, if any.
func (m *MatchedRow) InternalResponseCode() (string, bool) {
	return m.Internal.Field(FieldResponseCode)
}

// Field returns the value from the internal side, then the external side.
func (m *MatchedRow) Field(name string) string {
	if v, ok := m.Internal.Field(name); ok {
		return v
	}
	return m.External.Get(name)
}

// OriginalReference returns the unpadded reference of whichever side is present.
func (m *MatchedRow) OriginalReference() string {
	if m.Internal != nil {
		return m.Internal.OriginalReference
	}
	if m.External != nil {
		return m.External.OriginalReference
	}
	return ""
}

// SettlementRow is one row of the settlement outer join, restricted to the
// report projection.
type SettlementRow struct {
	ReferenceKey    string           `json:"trn_ref"`
	DateKey         string           `json:"date_time"`
	Batch           string           `json:"batch"`
	TransactionType string           `json:"txn_type"`
	Amount          string           `json:"amount"`
	Fee             string           `json:"fee"`
	Commission      string           `json:"abc_commission"`
	AmountDiff      *decimal.Decimal `json:"amount_diff,omitempty"`
	CommissionDiff  *decimal.Decimal `json:"abc_commission_diff,omitempty"`
	Side            JoinSide         `json:"merge"`
	Status          Status           `json:"status"`
}

// HasDiscrepancy is true when either diff is non-zero or undefined.
func (r *SettlementRow) HasDiscrepancy() bool {
	if r.AmountDiff == nil || r.CommissionDiff == nil {
		return true
	}
	return !r.AmountDiff.IsZero() || !r.CommissionDiff.IsZero()
}

// SettlementColumns is the fixed projection of settlement output.
var SettlementColumns = []string{
	FieldReference, FieldDate, FieldBatch, FieldTransactionType, FieldAmount,
	FieldFee, FieldCommission, "AMOUNT_DIFF", "ABC_COMMISSION_DIFF", "MERGE", "STATUS",
}

// Values renders the row in SettlementColumns order.
func (r *SettlementRow) Values() []string {
	return []string{
		r.ReferenceKey, r.DateKey, r.Batch, r.TransactionType, r.Amount,
		r.Fee, r.Commission, diffString(r.AmountDiff), diffString(r.CommissionDiff),
		r.Side.Label(), string(r.Status),
	}
}

func diffString(d *decimal.Decimal) string {
	if d == nil {
		return ""
	}
	return d.String()
}
