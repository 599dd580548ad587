package store

import (
	"context"
	"time"

	"golang-bank-recon-service/pkg/errors"
)

// Reversal status values
const (
	ReversalPending    = "Pending"
	ReversalSuccessful = "Successful"
	ReversalFailed     = "Failed"
)

// reversalSuccessCode is the ISO 8583 approval code reversals answer with.
const reversalSuccessCode = "00"

// Reversal is one reversal request awaiting or past its response.
type Reversal struct {
	DateTime     time.Time `json:"date_time"`
	TxnID        string    `json:"txn_id"`
	Reference    string    `json:"trn_ref"`
	Amount       string    `json:"amount"`
	Issuer       string    `json:"issuer"`
	Acquirer     string    `json:"acquirer"`
	TxnType      string    `json:"txn_type"`
	ReversalType string    `json:"reversal_type"`
	Status       string    `json:"status"`
}

// Reversals lists the unsuccessful financial reversal requests of a bank on one day.
func (l *Ledger) Reversals(ctx context.Context, bankCode string, day time.Time) ([]Reversal, error) {
	if err := ctx.Err(); err != nil {
		return nil, errors.SourceFailure("list reversals", err)
	}

	from, to := dayRange(day, day)

	query := l.db.Table(Transaction{}.TableName()).
		Select("DISTINCT date_time, txn_id, trn_ref, amount, issuer, acquirer, txn_type, request_type, response_code").
		Where("request_type IN (?)", l.config.ReversalRequestTypes).
		Where("(issuer_code = ? OR acquirer_code = ?)", bankCode, bankCode).
		Where("date_time >= ? AND date_time < ?", from, to).
		Where("amount <> ?", "0").
		Where("(response_code IS NULL OR response_code <> ?)", reversalSuccessCode)
	if len(l.config.ExcludedTxnTypes) > 0 {
		query = query.Where("txn_type NOT IN (?)", l.config.ExcludedTxnTypes)
	}
	if len(l.config.AllowedProcessingCodes) > 0 {
		query = query.Where("COALESCE(processing_code, '') NOT IN (?)", l.config.AllowedProcessingCodes)
	}

	var rows []Transaction
	if err := query.Order("date_time ASC").Order("trn_ref ASC").Find(&rows).Error; err != nil {
		return nil, errors.SourceFailure("list reversals", err).WithContext("bank_code", bankCode)
	}

	out := make([]Reversal, len(rows))
	for i, row := range rows {
		out[i] = Reversal{
			DateTime:     row.DateTime,
			TxnID:        row.TxnID,
			Reference:    row.Reference,
			Amount:       row.Amount,
			Issuer:       row.Issuer,
			Acquirer:     row.Acquirer,
			TxnType:      row.TxnType,
			ReversalType: reversalType(row.RequestType),
			Status:       reversalStatus(row.ResponseCode),
		}
	}
	return out, nil
}

func reversalType(requestType string) string {
	switch requestType {
	case "1420":
		return "Reversal"
	case "1421":
		return "Repeat Reversal"
	default:
		return ""
	}
}

func reversalStatus(code *string) string {
	switch {
	case code == nil:
		return ReversalPending
	case *code == reversalSuccessCode:
		return ReversalSuccessful
	default:
		return ReversalFailed
	}
}
