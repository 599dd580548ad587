package store

import (
	"context"
	"time"

	"github.com/jinzhu/gorm"

	"golang-bank-recon-service/internal/models"
	"golang-bank-recon-service/internal/normalizer"
	"golang-bank-recon-service/pkg/errors"
	"golang-bank-recon-service/pkg/logger"
)

// FlagRow is what the flag store needs to know about one reconciled transaction.
type FlagRow struct {
	Reference       string
	TransactionDate string
	Batch           string
	Amount          string
	IssuerCode      string
	AcquirerCode    string
	// ResponseCode is empty when the ledger carried none.
	ResponseCode string
}

// FlagRowFromMatch builds a flag row from the ledger side of a matched row.
// A ledger reference that cleaned down to nothing leaves Reference empty, so
// Upsert skips the row instead of filing it under the padded sentinel.
func FlagRowFromMatch(row *models.MatchedRow) FlagRow {
	reference := row.ReferenceKey
	if row.Internal != nil && row.Internal.OriginalReference == normalizer.Sentinel {
		reference = ""
	}
	return FlagRow{
		Reference:       reference,
		TransactionDate: row.DateKey,
		Batch:           row.Field(models.FieldBatch),
		Amount:          row.AmountKey,
		IssuerCode:      row.Internal.Get(models.FieldIssuerCode),
		AcquirerCode:    row.Internal.Get(models.FieldAcquirerCode),
		ResponseCode:    row.Internal.Get(models.FieldResponseCode),
	}
}

// FlagRowsFromMatches converts every matched row.
func FlagRowsFromMatches(rows []*models.MatchedRow) []FlagRow {
	out := make([]FlagRow, 0, len(rows))
	for _, row := range rows {
		out = append(out, FlagRowFromMatch(row))
	}
	return out
}

// UpsertResult is the per-call delta of an upsert.
type UpsertResult struct {
	Updated   int `json:"updated"`
	Inserted  int `json:"inserted"`
	Conflicts int `json:"conflicts"`
	Skipped   int `json:"skipped"`
}

// FlagStore upserts reconciliation flags for one reconciling bank.
type FlagStore interface {
	Upsert(ctx context.Context, rows []FlagRow, bankCode string, now time.Time) (UpsertResult, error)
}

// ReconStore is the gorm implementation of FlagStore over the recon table.
type ReconStore struct {
	db          *gorm.DB
	successCode string
	logger      logger.Logger

	// lookupExisting returns the subset of refs already stored.
	lookupExisting func(tx *gorm.DB, refs []string) (map[string]bool, error)
}

// NewReconStore creates a flag store. successCode decides which response
// codes leave the exception flag alone.
func NewReconStore(db *gorm.DB, successCode string, log logger.Logger) *ReconStore {
	return &ReconStore{
		db:             db,
		successCode:    successCode,
		logger:         logger.OrGlobal(log).WithComponent("store"),
		lookupExisting: existingReferences,
	}
}

func existingReferences(tx *gorm.DB, refs []string) (map[string]bool, error) {
	var found []string
	if err := tx.Model(&ReconciliationEntry{}).Where("trn_ref IN (?)", refs).Pluck("trn_ref", &found).Error; err != nil {
		return nil, err
	}
	existing := make(map[string]bool, len(found))
	for _, ref := range found {
		existing[ref] = true
	}
	return existing, nil
}

const insertEntrySQL = `INSERT INTO recon
	(date_time, tran_date, batch, amount, trn_ref, issuer_code, acquirer_code,
	 iss_flg, iss_flg_date, acq_flg, acq_flg_date, excep_flag)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT (trn_ref) DO NOTHING`

// Upsert applies all rows in one transaction. Rows without a reference are
// skipped and repeated references keep their first row. A reference inserted
// by a concurrent run between lookup and insert is logged and counted as a
// conflict, never as an error.
func (s *ReconStore) Upsert(ctx context.Context, rows []FlagRow, bankCode string, now time.Time) (UpsertResult, error) {
	var result UpsertResult

	unique := make([]FlagRow, 0, len(rows))
	seen := make(map[string]struct{}, len(rows))
	for _, row := range rows {
		if row.Reference == "" {
			result.Skipped++
			continue
		}
		if _, dup := seen[row.Reference]; dup {
			continue
		}
		seen[row.Reference] = struct{}{}
		unique = append(unique, row)
	}

	if result.Skipped > 0 {
		s.logger.WithField("skipped", result.Skipped).Warn("Rows without reference skipped")
	}
	if len(unique) == 0 {
		return result, nil
	}

	tx := s.db.BeginTx(ctx, nil)
	if tx.Error != nil {
		return UpsertResult{}, errors.PersistenceFailure("begin upsert", tx.Error)
	}

	refs := make([]string, len(unique))
	for i, row := range unique {
		refs[i] = row.Reference
	}

	existing, err := s.lookupExisting(tx, refs)
	if err != nil {
		tx.Rollback()
		return UpsertResult{}, errors.PersistenceFailure("lookup references", err)
	}

	for _, row := range unique {
		if existing[row.Reference] {
			changed, err := s.updateFlags(tx, row, bankCode, now)
			if err != nil {
				tx.Rollback()
				return UpsertResult{}, errors.PersistenceFailure("update flags", err).WithContext("reference", row.Reference)
			}
			if changed {
				result.Updated++
			}
			continue
		}

		inserted, err := s.insertEntry(tx, row, bankCode, now)
		if err != nil {
			tx.Rollback()
			return UpsertResult{}, errors.PersistenceFailure("insert entry", err).WithContext("reference", row.Reference)
		}
		if !inserted {
			result.Conflicts++
			s.logger.WithFields(logger.Fields{
				"reference": row.Reference,
				"bank_code": bankCode,
			}).WithError(errors.PersistenceConflict(row.Reference)).Warn("Reference inserted by a concurrent run, skipping")
			continue
		}
		result.Inserted++
	}

	if err := tx.Commit().Error; err != nil {
		tx.Rollback()
		return UpsertResult{}, errors.PersistenceFailure("commit upsert", err)
	}

	s.logger.WithFields(logger.Fields{
		"bank_code": bankCode,
		"updated":   result.Updated,
		"inserted":  result.Inserted,
		"conflicts": result.Conflicts,
	}).Info("Reconciliation flags upserted")

	return result, nil
}

func (s *ReconStore) updateFlags(tx *gorm.DB, row FlagRow, bankCode string, now time.Time) (bool, error) {
	changed := false

	if row.ResponseCode != s.successCode {
		res := tx.Model(&ReconciliationEntry{}).
			Where("trn_ref = ? AND excep_flag <> ?", row.Reference, ExceptionYes).
			Update("excep_flag", ExceptionYes)
		if res.Error != nil {
			return false, res.Error
		}
		changed = changed || res.RowsAffected > 0
	}

	res := tx.Model(&ReconciliationEntry{}).
		Where("trn_ref = ? AND issuer_code = ? AND COALESCE(iss_flg, 0) <> 1", row.Reference, bankCode).
		Updates(map[string]interface{}{"iss_flg": 1, "iss_flg_date": now})
	if res.Error != nil {
		return false, res.Error
	}
	changed = changed || res.RowsAffected > 0

	res = tx.Model(&ReconciliationEntry{}).
		Where("trn_ref = ? AND acquirer_code = ? AND COALESCE(acq_flg, 0) <> 1", row.Reference, bankCode).
		Updates(map[string]interface{}{"acq_flg": 1, "acq_flg_date": now})
	if res.Error != nil {
		return false, res.Error
	}
	changed = changed || res.RowsAffected > 0

	return changed, nil
}

func (s *ReconStore) insertEntry(tx *gorm.DB, row FlagRow, bankCode string, now time.Time) (bool, error) {
	issFlag, issDate := flagFor(row.IssuerCode, bankCode, now)
	acqFlag, acqDate := flagFor(row.AcquirerCode, bankCode, now)

	exception := ExceptionNo
	if row.ResponseCode != s.successCode {
		exception = ExceptionYes
	}

	res := tx.Exec(insertEntrySQL,
		now, row.TransactionDate, row.Batch, row.Amount, row.Reference, row.IssuerCode, row.AcquirerCode,
		issFlag, issDate, acqFlag, acqDate, exception)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func flagFor(code, bankCode string, now time.Time) (int, *time.Time) {
	if code == bankCode {
		return 1, &now
	}
	return 0, nil
}

// Exceptions lists entries flagged as exceptions where the bank is issuer or acquirer.
func (s *ReconStore) Exceptions(ctx context.Context, bankCode string) ([]ReconciliationEntry, error) {
	if err := ctx.Err(); err != nil {
		return nil, errors.SourceFailure("list exceptions", err)
	}

	var entries []ReconciliationEntry
	if err := s.db.
		Where("excep_flag = ? AND (issuer_code = ? OR acquirer_code = ?)", ExceptionYes, bankCode, bankCode).
		Order("trn_ref ASC").
		Find(&entries).Error; err != nil {
		return nil, errors.SourceFailure("list exceptions", err).WithContext("bank_code", bankCode)
	}
	return entries, nil
}

// Entry returns the stored entry for a reference.
func (s *ReconStore) Entry(reference string) (ReconciliationEntry, error) {
	var entry ReconciliationEntry
	if err := s.db.Where("trn_ref = ?", reference).First(&entry).Error; err != nil {
		return entry, errors.SourceFailure("find entry", err).WithContext("reference", reference)
	}
	return entry, nil
}
