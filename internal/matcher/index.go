package matcher

import (
	"golang-bank-recon-service/internal/models"
)

// JoinKey is the composite key statement and ledger rows are joined on.
type JoinKey struct {
	Date      string
	Reference string
	Amount    string
}

// KeyOf returns the join key of a normalized record.
func KeyOf(rec *models.NormalizedRecord) JoinKey {
	return JoinKey{Date: rec.DateKey, Reference: rec.ReferenceKey, Amount: rec.AmountKey}
}

// RecordIndex holds de-duplicated records in input order and a lookup by join key.
type RecordIndex struct {
	// Records are the surviving rows, first occurrence of each reference key.
	Records []*models.NormalizedRecord

	// ByKey maps each join key to its record
	ByKey map[JoinKey]*models.NormalizedRecord

	// Duplicates counts rows dropped because their reference key was already seen.
	Duplicates int
}

// NewRecordIndex de-duplicates records by reference key and indexes the survivors.
// The input slice is not modified.
func NewRecordIndex(records []models.NormalizedRecord) *RecordIndex {
	index := &RecordIndex{
		Records: make([]*models.NormalizedRecord, 0, len(records)),
		ByKey:   make(map[JoinKey]*models.NormalizedRecord, len(records)),
	}

	seen := make(map[string]struct{}, len(records))
	for i := range records {
		rec := &records[i]
		if _, dup := seen[rec.ReferenceKey]; dup {
			index.Duplicates++
			continue
		}
		seen[rec.ReferenceKey] = struct{}{}

		index.Records = append(index.Records, rec)
		index.ByKey[KeyOf(rec)] = rec
	}

	return index
}

// Lookup returns the record with the given join key, if any.
func (ri *RecordIndex) Lookup(key JoinKey) (*models.NormalizedRecord, bool) {
	rec, ok := ri.ByKey[key]
	return rec, ok
}

// Len returns the number of de-duplicated records.
func (ri *RecordIndex) Len() int {
	return len(ri.Records)
}
