package matcher

import (
	"sort"
	"testing"

	"golang-bank-recon-service/internal/models"
	"golang-bank-recon-service/pkg/errors"
	"golang-bank-recon-service/pkg/logger"
)

func newTestMatcher(t *testing.T) *Matcher {
	t.Helper()
	m, err := New(nil, logger.Discard())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return m
}

// record builds a normalized record; an empty code means the response code is absent.
func record(date, amount, ref, code string) models.NormalizedRecord {
	rec := models.NormalizedRecord{
		DateKey:           date,
		AmountKey:         amount,
		ReferenceKey:      ref,
		OriginalReference: ref,
		Fields: map[string]string{
			models.FieldDate:      date,
			models.FieldAmount:    amount,
			models.FieldReference: ref,
		},
	}
	if code != "" {
		rec.Fields[models.FieldResponseCode] = code
	}
	return rec
}

func createScenarioData() ([]models.NormalizedRecord, []models.NormalizedRecord) {
	external := []models.NormalizedRecord{
		record("20240101", "100", "00000000REF1", ""),
		record("20240102", "200", "00000000REF2", ""),
	}
	internal := []models.NormalizedRecord{
		record("20240101", "100", "00000000REF1", "0"),
		record("20240103", "300", "00000000REF3", "05"),
	}
	return external, internal
}

func statusByReference(result *Result) map[string]models.Status {
	out := make(map[string]models.Status, len(result.Merged))
	for _, row := range result.Merged {
		out[row.ReferenceKey] = row.Status
	}
	return out
}

func TestNew(t *testing.T) {
	m := newTestMatcher(t)
	if m.config.SuccessCode != DefaultSuccessCode {
		t.Errorf("SuccessCode = %v, want %v", m.config.SuccessCode, DefaultSuccessCode)
	}

	if _, err := New(&Config{SuccessCode: " "}, logger.Discard()); !errors.IsKind(err, errors.KindConfiguration) {
		t.Errorf("New() with blank success code error = %v, want configuration error", err)
	}
}

func TestMatcher_Reconcile_Scenario(t *testing.T) {
	m := newTestMatcher(t)
	external, internal := createScenarioData()

	result, err := m.Reconcile(external, internal)
	if err != nil {
		t.Fatalf("Reconcile() error = %v", err)
	}

	want := map[string]models.Status{
		"00000000REF1": models.StatusReconciled,
		"00000000REF2": models.StatusUnreconciled,
		"00000000REF3": models.StatusUnreconciled,
	}
	got := statusByReference(result)
	for ref, status := range want {
		if got[ref] != status {
			t.Errorf("status of %s = %v, want %v", ref, got[ref], status)
		}
	}

	if len(result.Exceptions) != 0 {
		t.Errorf("Exceptions = %d, want 0", len(result.Exceptions))
	}

	sides := []models.JoinSide{models.JoinBoth, models.JoinExternalOnly, models.JoinInternalOnly}
	for i, row := range result.Merged {
		if row.Side != sides[i] {
			t.Errorf("Merged[%d].Side = %v, want %v", i, row.Side, sides[i])
		}
	}

	summary := result.Summary()
	if summary.Merged != 3 || summary.Reconciled != 1 || summary.Unreconciled != 2 {
		t.Errorf("Summary() = %+v", summary)
	}
	if summary.ExternalOnly != 1 || summary.InternalOnly != 1 {
		t.Errorf("Summary() sides = %+v", summary)
	}
}

func TestMatcher_Reconcile_Idempotent(t *testing.T) {
	m := newTestMatcher(t)
	external, internal := createScenarioData()

	first, err := m.Reconcile(external, internal)
	if err != nil {
		t.Fatalf("Reconcile() error = %v", err)
	}
	second, err := m.Reconcile(external, internal)
	if err != nil {
		t.Fatalf("Reconcile() error = %v", err)
	}

	keys := func(r *Result) []string {
		out := make([]string, 0, len(r.Merged))
		for _, row := range r.Merged {
			out = append(out, row.ReferenceKey+"|"+string(row.Side)+"|"+string(row.Status))
		}
		sort.Strings(out)
		return out
	}

	a, b := keys(first), keys(second)
	if len(a) != len(b) {
		t.Fatalf("merged sizes differ: %d vs %d", len(a), len(b))
	}
	for i := range a {
		if a[i] != b[i] {
			t.Errorf("merged row %d = %v, want %v", i, b[i], a[i])
		}
	}
}

func TestMatcher_Reconcile_Precedence(t *testing.T) {
	tests := []struct {
		name     string
		external []models.NormalizedRecord
		internal []models.NormalizedRecord
		want     models.Status
		wantExc  int
	}{
		{
			name:     "both sides success",
			external: []models.NormalizedRecord{record("20240101", "10", "R1", "0")},
			internal: []models.NormalizedRecord{record("20240101", "10", "R1", "0")},
			want:     models.StatusReconciled,
		},
		{
			name:     "full match overrides failed ledger code",
			external: []models.NormalizedRecord{record("20240101", "10", "R1", "")},
			internal: []models.NormalizedRecord{record("20240101", "10", "R1", "05")},
			want:     models.StatusReconciled,
			wantExc:  1,
		},
		{
			name:     "full match with absent ledger code is an exception",
			external: []models.NormalizedRecord{record("20240101", "10", "R1", "0")},
			internal: []models.NormalizedRecord{record("20240101", "10", "R1", "")},
			want:     models.StatusReconciled,
			wantExc:  1,
		},
		{
			name:     "ledger-only success is partial",
			internal: []models.NormalizedRecord{record("20240101", "10", "R1", "0")},
			want:     models.StatusPartiallyReconciled,
		},
		{
			name:     "statement-only success is partial",
			external: []models.NormalizedRecord{record("20240101", "10", "R1", "0")},
			want:     models.StatusPartiallyReconciled,
		},
		{
			name:     "ledger-only failure",
			internal: []models.NormalizedRecord{record("20240101", "10", "R1", "91")},
			want:     models.StatusUnreconciled,
		},
		{
			name:     "amount mismatch does not join",
			external: []models.NormalizedRecord{record("20240101", "11", "R1", "")},
			internal: []models.NormalizedRecord{record("20240101", "10", "R1", "91")},
			want:     models.StatusUnreconciled,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := newTestMatcher(t).Reconcile(tt.external, tt.internal)
			if err != nil {
				t.Fatalf("Reconcile() error = %v", err)
			}
			for _, row := range result.Merged {
				if row.Status != tt.want {
					t.Errorf("Status = %v, want %v", row.Status, tt.want)
				}
			}
			if len(result.Exceptions) != tt.wantExc {
				t.Errorf("Exceptions = %d, want %d", len(result.Exceptions), tt.wantExc)
			}
		})
	}
}

func TestMatcher_Reconcile_Deduplicates(t *testing.T) {
	m := newTestMatcher(t)

	external := []models.NormalizedRecord{
		record("20240101", "100", "R1", ""),
		record("20240105", "999", "R1", ""),
	}
	internal := []models.NormalizedRecord{
		record("20240101", "100", "R1", "0"),
		record("20240101", "100", "R1", "0"),
	}

	result, err := m.Reconcile(external, internal)
	if err != nil {
		t.Fatalf("Reconcile() error = %v", err)
	}

	if len(result.Merged) != 1 {
		t.Fatalf("Merged = %d rows, want 1", len(result.Merged))
	}
	if result.Merged[0].AmountKey != "100" {
		t.Errorf("kept AmountKey = %v, want first occurrence 100", result.Merged[0].AmountKey)
	}
	if result.ExternalDuplicates != 1 || result.InternalDuplicates != 1 {
		t.Errorf("duplicates = %d/%d, want 1/1", result.ExternalDuplicates, result.InternalDuplicates)
	}
}

func TestMatcher_Reconcile_PartitionsAreViews(t *testing.T) {
	m := newTestMatcher(t)
	external, internal := createScenarioData()

	result, err := m.Reconcile(external, internal)
	if err != nil {
		t.Fatalf("Reconcile() error = %v", err)
	}

	inMerged := make(map[*models.MatchedRow]bool, len(result.Merged))
	for _, row := range result.Merged {
		inMerged[row] = true
	}

	for _, part := range [][]*models.MatchedRow{result.Reconciled, result.PartiallyReconciled, result.Unreconciled, result.Exceptions} {
		for _, row := range part {
			if !inMerged[row] {
				t.Errorf("row %s is not a view into Merged", row.ReferenceKey)
			}
		}
	}

	total := len(result.Reconciled) + len(result.PartiallyReconciled) + len(result.Unreconciled)
	if total != len(result.Merged) {
		t.Errorf("partitions cover %d rows, want %d", total, len(result.Merged))
	}
}

func TestMatcher_Reconcile_EmptyInputs(t *testing.T) {
	result, err := newTestMatcher(t).Reconcile(nil, nil)
	if err != nil {
		t.Fatalf("Reconcile() error = %v", err)
	}
	if len(result.Merged) != 0 {
		t.Errorf("Merged = %d rows, want 0", len(result.Merged))
	}
}

func TestRecordIndex(t *testing.T) {
	records := []models.NormalizedRecord{
		record("20240101", "1", "A", ""),
		record("20240101", "2", "B", ""),
		record("20240102", "3", "A", ""),
	}

	index := NewRecordIndex(records)
	if index.Len() != 2 || index.Duplicates != 1 {
		t.Fatalf("Len() = %d, Duplicates = %d, want 2, 1", index.Len(), index.Duplicates)
	}

	if _, ok := index.Lookup(JoinKey{Date: "20240101", Reference: "A", Amount: "1"}); !ok {
		t.Error("Lookup() should find the first occurrence of A")
	}
	if _, ok := index.Lookup(JoinKey{Date: "20240102", Reference: "A", Amount: "3"}); ok {
		t.Error("Lookup() should not find the dropped duplicate of A")
	}
}
