package models

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestRawRecord_Record(t *testing.T) {
	rec := RawRecord{TransactionDate: "2024-01-01", Description: "POS", Amount: "100", Reference: "REF1"}.Record()

	if rec.Get(FieldReference) != "REF1" {
		t.Errorf("expected reference REF1, got %s", rec.Get(FieldReference))
	}
	if rec.Has(FieldResponseCode) {
		t.Error("response code should be absent when the statement carries none")
	}

	withCode := RawRecord{Reference: "REF1", ResponseCode: "0"}.Record()
	if withCode.Get(FieldResponseCode) != "0" {
		t.Errorf("expected response code 0, got %q", withCode.Get(FieldResponseCode))
	}
}

func TestLedgerRecord_Record(t *testing.T) {
	ledger := LedgerRecord{
		DateTime:     time.Date(2024, 1, 3, 14, 5, 0, 0, time.UTC),
		Batch:        "42",
		Reference:    "REF3",
		IssuerCode:   "730147",
		AcquirerCode: "730999",
		Amount:       "300.00",
	}

	rec := ledger.Record()
	if got := rec.Get(FieldDate); got != "2024-01-03 14:05:00" {
		t.Errorf("DATE_TIME = %q, want 2024-01-03 14:05:00", got)
	}
	if rec.Has(FieldResponseCode) {
		t.Error("NULL response code should be absent")
	}

	clone := rec.Clone()
	clone[FieldBatch] = "99"
	if rec.Get(FieldBatch) != "42" {
		t.Error("Clone should not share storage with the original")
	}
}

func TestLedgerRecord_Parties(t *testing.T) {
	tests := []struct {
		name            string
		record          LedgerRecord
		wantPayer       string
		wantBeneficiary string
	}{
		{
			name:            "party identifiers",
			record:          LedgerRecord{Acquirer: "TROAUGKA", Issuer: "AFRIUGKA", AcquirerCode: "1", IssuerCode: "2"},
			wantPayer:       "TROAUGKA",
			wantBeneficiary: "AFRIUGKA",
		},
		{
			name:            "falls back to codes",
			record:          LedgerRecord{AcquirerCode: "730999", IssuerCode: "730147"},
			wantPayer:       "730999",
			wantBeneficiary: "730147",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.record.Payer(); got != tt.wantPayer {
				t.Errorf("Payer() = %v, want %v", got, tt.wantPayer)
			}
			if got := tt.record.Beneficiary(); got != tt.wantBeneficiary {
				t.Errorf("Beneficiary() = %v, want %v", got, tt.wantBeneficiary)
			}
		})
	}
}

func TestParseTimeWithFormats(t *testing.T) {
	tests := []struct {
		input    string
		wantDate string
		wantErr  bool
	}{
		{"2024-01-15", "20240115", false},
		{"2024-01-15 10:30:00", "20240115", false},
		{"2024-01-15 10:30:00.123456", "20240115", false},
		{"2024-01-15T10:30:00Z", "20240115", false},
		{"20240115", "20240115", false},
		{"01/15/2024", "20240115", false},
		{"15-01-2024", "20240115", false},
		{"Jan 15, 2024", "20240115", false},
		{"45306", "20240115", false},
		{"not a date", "", true},
		{"", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseTimeWithFormats(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseTimeWithFormats(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if !tt.wantErr && got.Format("20060102") != tt.wantDate {
				t.Errorf("ParseTimeWithFormats(%q) = %v, want %v", tt.input, got.Format("20060102"), tt.wantDate)
			}
		})
	}
}

func TestParseDecimalFromString(t *testing.T) {
	tests := []struct {
		input   string
		want    string
		wantErr bool
	}{
		{"100.99", "100.99", false},
		{" 1,250.50 ", "1250.5", false},
		{"-5", "-5", false},
		{"1e3", "1000", false},
		{"", "", true},
		{"abc", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseDecimalFromString(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseDecimalFromString(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if !tt.wantErr && got.String() != tt.want {
				t.Errorf("ParseDecimalFromString(%q) = %v, want %v", tt.input, got.String(), tt.want)
			}
		})
	}

	if !DecimalOrZero("n/a").IsZero() {
		t.Error("DecimalOrZero should return zero for non-numeric input")
	}
}

func TestSettlementRow_HasDiscrepancy(t *testing.T) {
	zero := decimal.Zero
	five := decimal.NewFromInt(5)

	tests := []struct {
		name string
		row  SettlementRow
		want bool
	}{
		{"unjoined", SettlementRow{}, true},
		{"equal", SettlementRow{AmountDiff: &zero, CommissionDiff: &zero}, false},
		{"amount differs", SettlementRow{AmountDiff: &five, CommissionDiff: &zero}, true},
		{"commission differs", SettlementRow{AmountDiff: &zero, CommissionDiff: &five}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.row.HasDiscrepancy(); got != tt.want {
				t.Errorf("HasDiscrepancy() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestSettlementRow_Values(t *testing.T) {
	diff := decimal.NewFromInt(-20)
	zero := decimal.Zero
	row := SettlementRow{
		ReferenceKey: "000000000123", DateKey: "20240101", Batch: "7", TransactionType: "ACI",
		Amount: "1000", Fee: "10", Commission: "5", AmountDiff: &diff, CommissionDiff: &zero,
		Side: JoinBoth, Status: StatusReconciled,
	}

	values := row.Values()
	if len(values) != len(SettlementColumns) {
		t.Fatalf("Values() returned %d columns, want %d", len(values), len(SettlementColumns))
	}
	if values[7] != "-20" || values[9] != "both" || values[10] != "Reconciled" {
		t.Errorf("unexpected projection %v", values)
	}
}

func TestMatchedRow_Accessors(t *testing.T) {
	row := &MatchedRow{
		External: &NormalizedRecord{OriginalReference: "REF2", Fields: map[string]string{FieldDescription: "POS"}},
		Side:     JoinExternalOnly,
	}

	if _, ok := row.InternalResponseCode(); ok {
		t.Error("missing internal side should report no response code")
	}
	if got := row.Field(FieldDescription); got != "POS" {
		t.Errorf("Field() = %q, want POS", got)
	}
	if got := row.OriginalReference(); got != "REF2" {
		t.Errorf("OriginalReference() = %q, want REF2", got)
	}
	if row.Side.Label() != "Bank_only" || JoinInternalOnly.Label() != "ABC_only" {
		t.Error("unexpected merge labels")
	}
}
