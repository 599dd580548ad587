package store

import (
	"context"
	"fmt"
	"time"

	"github.com/jinzhu/gorm"

	"golang-bank-recon-service/internal/models"
	"golang-bank-recon-service/pkg/errors"
)

// LedgerSource reads transactions from the internal ledger.
type LedgerSource interface {
	Extract(ctx context.Context, bankCode string, minDate, maxDate time.Time) ([]models.LedgerRecord, error)
	SettlementExtract(ctx context.Context, batch string) ([]models.LedgerRecord, error)
}

// LedgerConfig holds the filters applied to ledger queries.
type LedgerConfig struct {
	// RequestType selects financial requests for reconciliation.
	RequestType string `mapstructure:"request_type"`
	// ExcludedTxnTypes are non-financial types, kept only when their
	// processing code is in AllowedProcessingCodes.
	ExcludedTxnTypes       []string `mapstructure:"excluded_txn_types"`
	AllowedProcessingCodes []string `mapstructure:"allowed_processing_codes"`

	SuccessCode          string   `mapstructure:"success_code"`
	SettlementIssuer     string   `mapstructure:"issuer_code"`
	SettlementTxnTypes   []string `mapstructure:"txn_types"`
	ReversalRequestTypes []string `mapstructure:"reversal_request_types"`
}

// DefaultLedgerConfig returns the production ledger filters.
func DefaultLedgerConfig() *LedgerConfig {
	return &LedgerConfig{
		RequestType:            "1200",
		ExcludedTxnTypes:       []string{"BI", "MINI"},
		AllowedProcessingCodes: []string{"320000", "340000", "510000", "370000", "180000", "360000"},
		SuccessCode:            "0",
		SettlementIssuer:       "730147",
		SettlementTxnTypes:     []string{"ACI", "AGENTFLOATINQ"},
		ReversalRequestTypes:   []string{"1420", "1421"},
	}
}

// Validate checks that every filter has a value.
func (c *LedgerConfig) Validate() error {
	checks := []struct {
		setting string
		empty   bool
	}{
		{"reconcile.request_type", c.RequestType == ""},
		{"reconcile.success_code", c.SuccessCode == ""},
		{"settlement.issuer_code", c.SettlementIssuer == ""},
		{"settlement.txn_types", len(c.SettlementTxnTypes) == 0},
		{"settlement.reversal_request_types", len(c.ReversalRequestTypes) == 0},
	}
	for _, check := range checks {
		if check.empty {
			return errors.ConfigurationError(check.setting, "", fmt.Errorf("%s cannot be empty", check.setting))
		}
	}
	return nil
}

// Ledger reads the transactions table.
type Ledger struct {
	db     *gorm.DB
	config *LedgerConfig
}

// NewLedger creates a ledger reader. A nil config uses DefaultLedgerConfig.
func NewLedger(db *gorm.DB, config *LedgerConfig) *Ledger {
	if config == nil {
		config = DefaultLedgerConfig()
	}
	return &Ledger{db: db, config: config}
}

const ledgerColumns = "DISTINCT date_time, batch, trn_ref, txn_type, processing_code, request_type, " +
	"issuer_code, acquirer_code, issuer, acquirer, amount, fee, abc_commission, response_code"

// Extract returns the distinct financial transactions where bankCode is
// issuer or acquirer and the date falls within [minDate, maxDate].
func (l *Ledger) Extract(ctx context.Context, bankCode string, minDate, maxDate time.Time) ([]models.LedgerRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, errors.SourceFailure("extract ledger", err)
	}

	from, to := dayRange(minDate, maxDate)

	query := l.db.Table(Transaction{}.TableName()).
		Select(ledgerColumns).
		Where("(issuer_code = ? OR acquirer_code = ?)", bankCode, bankCode).
		Where("date_time >= ? AND date_time < ?", from, to).
		Where("request_type = ?", l.config.RequestType)
	query = l.excludeNonFinancial(query)

	var rows []Transaction
	if err := query.Order("date_time ASC").Order("trn_ref ASC").Find(&rows).Error; err != nil {
		return nil, errors.SourceFailure("extract ledger", err).
			WithContext("bank_code", bankCode).
			WithContext("date_range", fmt.Sprintf("%s,%s", minDate.Format("2006-01-02"), maxDate.Format("2006-01-02")))
	}

	return toLedgerRecords(rows), nil
}

// SettlementExtract returns the successful settlement transactions of a batch.
func (l *Ledger) SettlementExtract(ctx context.Context, batch string) ([]models.LedgerRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, errors.SourceFailure("extract settlement", err)
	}

	var rows []Transaction
	if err := l.db.Table(Transaction{}.TableName()).
		Select(ledgerColumns).
		Where("response_code = ?", l.config.SuccessCode).
		Where("batch = ?", batch).
		Where("issuer_code = ?", l.config.SettlementIssuer).
		Where("txn_type IN (?)", l.config.SettlementTxnTypes).
		Where("request_type NOT IN (?)", l.config.ReversalRequestTypes).
		Order("date_time ASC").Order("trn_ref ASC").
		Find(&rows).Error; err != nil {
		return nil, errors.SourceFailure("extract settlement", err).WithContext("batch", batch)
	}

	return toLedgerRecords(rows), nil
}

func (l *Ledger) excludeNonFinancial(query *gorm.DB) *gorm.DB {
	if len(l.config.ExcludedTxnTypes) == 0 {
		return query
	}
	if len(l.config.AllowedProcessingCodes) == 0 {
		return query.Where("txn_type NOT IN (?)", l.config.ExcludedTxnTypes)
	}
	return query.Where("NOT (txn_type IN (?) AND COALESCE(processing_code, '') NOT IN (?))",
		l.config.ExcludedTxnTypes, l.config.AllowedProcessingCodes)
}

// dayRange turns inclusive dates into the half-open range [min 00:00, max+1d 00:00).
func dayRange(minDate, maxDate time.Time) (time.Time, time.Time) {
	from := time.Date(minDate.Year(), minDate.Month(), minDate.Day(), 0, 0, 0, 0, minDate.Location())
	to := time.Date(maxDate.Year(), maxDate.Month(), maxDate.Day(), 0, 0, 0, 0, maxDate.Location()).AddDate(0, 0, 1)
	return from, to
}

func toLedgerRecords(rows []Transaction) []models.LedgerRecord {
	out := make([]models.LedgerRecord, len(rows))
	for i, row := range rows {
		out[i] = models.LedgerRecord{
			DateTime:        row.DateTime,
			Batch:           row.Batch,
			Reference:       row.Reference,
			TransactionType: row.TxnType,
			ProcessingCode:  deref(row.ProcessingCode),
			RequestType:     row.RequestType,
			IssuerCode:      row.IssuerCode,
			AcquirerCode:    row.AcquirerCode,
			Issuer:          row.Issuer,
			Acquirer:        row.Acquirer,
			Amount:          row.Amount,
			Fee:             row.Fee,
			Commission:      row.Commission,
			ResponseCode:    deref(row.ResponseCode),
		}
	}
	return out
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
