package reconciler

import (
	"context"

	"golang-bank-recon-service/internal/models"
	"golang-bank-recon-service/internal/settlement"
	"golang-bank-recon-service/pkg/errors"
	"golang-bank-recon-service/pkg/logger"
)

// SettlementOutcome is the result of a settlement run for one batch.
type SettlementOutcome struct {
	Batch     string                      `json:"batch"`
	Positions []models.SettlementPosition `json:"positions"`
	// Match is nil unless an external report was supplied.
	Match *settlement.MatchResult `json:"-"`
}

// Settle aggregates the ledger settlement rows of batch into payer to
// beneficiary positions.
func (s *Service) Settle(ctx context.Context, batch string) (*SettlementOutcome, error) {
	op := logger.NewOperationLogger("settle", s.logger.WithField("batch", batch))

	rows, err := s.settlementRows(ctx, op, batch)
	if err != nil {
		return nil, err
	}

	positions, err := s.deps.Aggregator.Aggregate(rows)
	if err != nil {
		op.Error(err, "Aggregation failed")
		return nil, err
	}
	op.Step("aggregate", logger.Fields{"positions": len(positions)})

	op.Success("Settlement completed")
	return &SettlementOutcome{Batch: batch, Positions: positions}, nil
}

// SettleReport aggregates batch and compares its ledger rows with an
// external settlement report.
func (s *Service) SettleReport(ctx context.Context, batch string, report []models.SettlementRecord) (*SettlementOutcome, error) {
	op := logger.NewOperationLogger("settle_report", s.logger.WithFields(logger.Fields{
		"batch":       batch,
		"report_rows": len(report),
	}))

	rows, err := s.settlementRows(ctx, op, batch)
	if err != nil {
		return nil, err
	}

	positions, err := s.deps.Aggregator.Aggregate(rows)
	if err != nil {
		op.Error(err, "Aggregation failed")
		return nil, err
	}

	internalRows := make([]models.SettlementRecord, len(rows))
	for i, row := range rows {
		internalRows[i] = row.SettlementRecord()
	}

	internal, err := s.deps.Normalizer.NormalizeSettlement(internalRows)
	if err != nil {
		op.Error(err, "Normalizing ledger settlement rows failed")
		return nil, err
	}
	external, err := s.deps.Normalizer.NormalizeSettlement(report)
	if err != nil {
		op.Error(err, "Normalizing settlement report failed")
		return nil, err
	}
	op.Step("normalize", nil)

	match, err := s.deps.SettlementMatcher.Match(internal, external)
	if err != nil {
		op.Error(err, "Settlement match failed")
		return nil, err
	}
	op.Step("match", logger.Fields{
		"matched":       len(match.Matched),
		"unmatched":     len(match.Unmatched),
		"discrepancies": len(match.Discrepancies),
	})

	op.Success("Settlement report comparison completed")
	return &SettlementOutcome{Batch: batch, Positions: positions, Match: match}, nil
}

func (s *Service) settlementRows(ctx context.Context, op *logger.OperationLogger, batch string) ([]models.LedgerRecord, error) {
	rows, err := s.deps.Ledger.SettlementExtract(ctx, batch)
	if err != nil {
		op.Error(err, "Settlement extract failed")
		return nil, errors.WrapIfNeeded(err, errors.KindSourceFailure, "settlement extract failed")
	}
	if len(rows) == 0 {
		op.Warning("No settlement rows for batch")
		return nil, errors.NoMatchingRecords("settlement batch " + batch)
	}
	op.Step("extract", logger.Fields{"ledger_rows": len(rows)})
	return rows, nil
}
