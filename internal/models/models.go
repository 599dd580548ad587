package models

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Canonical field names shared by statements, ledger extracts and settlement reports.
const (
	FieldDate              = "DATE_TIME"
	FieldDescription       = "DESCRIPTION"
	FieldAmount            = "AMOUNT"
	FieldReference         = "TRN_REF"
	FieldOriginalReference = "ORIGINAL_TRN_REF"
	FieldResponseCode      = "RESPONSE_CODE"
	FieldBatch             = "BATCH"
	FieldTransactionType   = "TXN_TYPE"
	FieldIssuerCode        = "ISSUER_CODE"
	FieldAcquirerCode      = "ACQUIRER_CODE"
	FieldFee               = "FEE"
	FieldCommission        = "ABC_COMMISSION"
)

// LedgerTimeLayout renders ledger timestamps before normalization.
const LedgerTimeLayout = "2006-01-02 15:04:05"

// Record is one row of named string fields. A missing key means the
// field is absent, which is different from present but empty.
type Record map[string]string

// Get returns the value of a field, or "" when it is absent.
func (r Record) Get(name string) string {
	return r[name]
}

// Has reports whether the field is present.
func (r Record) Has(name string) bool {
	_, ok := r[name]
	return ok
}

// Clone returns an independent copy of the record.
func (r Record) Clone() Record {
	out := make(Record, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// RawRecord is one row of a statement supplied by a bank.
type RawRecord struct {
	TransactionDate string `json:"transaction_date"`
	Description     string `json:"description,omitempty"`
	Amount          string `json:"amount"`
	Reference       string `json:"reference"`
	ResponseCode    string `json:"response_code,omitempty"`
}

// Record projects the statement row onto canonical field names.
func (r RawRecord) Record() Record {
	rec := Record{
		FieldDate:        r.TransactionDate,
		FieldDescription: r.Description,
		FieldAmount:      r.Amount,
		FieldReference:   r.Reference,
	}
	if r.ResponseCode != "" {
		rec[FieldResponseCode] = r.ResponseCode
	}
	return rec
}

// LedgerRecord is one row of the internal transaction ledger.
type LedgerRecord struct {
	DateTime        time.Time `json:"date_time"`
	Batch           string    `json:"batch"`
	Reference       string    `json:"trn_ref"`
	TransactionType string    `json:"txn_type"`
	ProcessingCode  string    `json:"processing_code,omitempty"`
	RequestType     string    `json:"request_type,omitempty"`
	IssuerCode      string    `json:"issuer_code"`
	AcquirerCode    string    `json:"acquirer_code"`
	Issuer          string    `json:"issuer,omitempty"`
	Acquirer        string    `json:"acquirer,omitempty"`
	Amount          string    `json:"amount"`
	Fee             string    `json:"fee,omitempty"`
	Commission      string    `json:"abc_commission,omitempty"`
	ResponseCode    string    `json:"response_code,omitempty"`
}

// Record projects the ledger row onto canonical field names for reconciliation.
func (l LedgerRecord) Record() Record {
	rec := Record{
		FieldDate:            l.DateTime.Format(LedgerTimeLayout),
		FieldBatch:           l.Batch,
		FieldReference:       l.Reference,
		FieldTransactionType: l.TransactionType,
		FieldIssuerCode:      l.IssuerCode,
		FieldAcquirerCode:    l.AcquirerCode,
		FieldAmount:          l.Amount,
	}
	if l.ResponseCode != "" {
		rec[FieldResponseCode] = l.ResponseCode
	}
	return rec
}

// SettlementRecord projects the ledger row onto the settlement report shape.
func (l LedgerRecord) SettlementRecord() SettlementRecord {
	return SettlementRecord{
		Reference:       l.Reference,
		DateTime:        l.DateTime.Format(LedgerTimeLayout),
		Batch:           l.Batch,
		TransactionType: l.TransactionType,
		Amount:          l.Amount,
		Fee:             l.Fee,
		Commission:      l.Commission,
	}
}

// Payer is the acquiring party, falling back to the acquirer code.
func (l LedgerRecord) Payer() string {
	if l.Acquirer != "" {
		return l.Acquirer
	}
	return l.AcquirerCode
}

// Beneficiary is the issuing party, falling back to the issuer code.
func (l LedgerRecord) Beneficiary() string {
	if l.Issuer != "" {
		return l.Issuer
	}
	return l.IssuerCode
}

// SettlementRecord is one row of an external settlement report.
type SettlementRecord struct {
	Reference       string `json:"trn_ref"`
	DateTime        string `json:"date_time"`
	Batch           string `json:"batch"`
	TransactionType string `json:"txn_type"`
	Amount          string `json:"amount"`
	Fee             string `json:"fee"`
	Commission      string `json:"abc_commission"`
}

// Record projects the report row onto canonical field names.
func (s SettlementRecord) Record() Record {
	return Record{
		FieldReference:       s.Reference,
		FieldDate:            s.DateTime,
		FieldBatch:           s.Batch,
		FieldTransactionType: s.TransactionType,
		FieldAmount:          s.Amount,
		FieldFee:             s.Fee,
		FieldCommission:      s.Commission,
	}
}

// NormalizedRecord is the canonical, comparable projection of any record.
type NormalizedRecord struct {
	DateKey           string            `json:"date_key"`
	AmountKey         string            `json:"amount_key"`
	ReferenceKey      string            `json:"reference_key"`
	OriginalReference string            `json:"original_reference"`
	Fields            map[string]string `json:"fields"`
}

// Field returns a cleaned field and whether it was present in the source.
func (n *NormalizedRecord) Field(name string) (string, bool) {
	if n == nil {
		return "", false
	}
	v, ok := n.Fields[name]
	return v, ok
}

// Get returns a cleaned field or "" when absent.
func (n *NormalizedRecord) Get(name string) string {
	v, _ := n.Field(name)
	return v
}

// SettlementPosition is the summed amount owed from payer to beneficiary.
type SettlementPosition struct {
	Payer       string          `json:"payer"`
	Beneficiary string          `json:"beneficiary"`
	Amount      decimal.Decimal `json:"amount"`
}

// String renders the position for logs.
func (p SettlementPosition) String() string {
	return fmt.Sprintf("%s -> %s: %s", p.Payer, p.Beneficiary, p.Amount.String())
}

// RunStats summarizes one reconciliation invocation.
type RunStats struct {
	RunID            string    `json:"run_id"`
	BankCode         string    `json:"bank_code"`
	UserID           string    `json:"user_id"`
	DateRange        string    `json:"date_range"`
	UploadedRows     int       `json:"uploaded_rows"`
	RequestedRows    int       `json:"requested_rows"`
	ReconciledRows   int       `json:"reconciled_rows"`
	UnreconciledRows int       `json:"unreconciled_rows"`
	ExceptionRows    int       `json:"exception_rows"`
	Feedback         string    `json:"feedback"`
	CreatedAt        time.Time `json:"created_at"`
}
