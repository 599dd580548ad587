package reconciler

import (
	"context"
	"testing"

	"golang-bank-recon-service/internal/models"
	"golang-bank-recon-service/pkg/errors"
)

func TestService_RunBatch(t *testing.T) {
	f := newFixture(t)
	f.ledger.byBank["BANK02"] = scenarioLedger()
	svc := f.service(t)

	requests := []*Request{
		{BankCode: "BANK01", Statement: scenarioStatement(), Now: runTime},
		{BankCode: "BANK02", Statement: scenarioStatement(), Now: runTime},
		{BankCode: "BANK03", Statement: nil, Now: runTime},
	}

	items, err := svc.RunBatch(context.Background(), requests, 2)
	if err != nil {
		t.Fatalf("RunBatch() error = %v", err)
	}
	if len(items) != len(requests) {
		t.Fatalf("RunBatch() returned %d items, want %d", len(items), len(requests))
	}

	for i, item := range items {
		if item.Request != requests[i] {
			t.Errorf("items[%d] belongs to %s, want request order", i, item.Request.BankCode)
		}
		if item.Outcome == nil || item.Outcome.BankCode != requests[i].BankCode {
			t.Errorf("items[%d].Outcome = %+v", i, item.Outcome)
		}
	}

	if items[2].Outcome.Feedback != FeedbackEmptyUpload {
		t.Errorf("items[2].Feedback = %q, want %q", items[2].Outcome.Feedback, FeedbackEmptyUpload)
	}
	if len(f.flags.calls) != 2 {
		t.Errorf("Upsert() calls = %d, want 2", len(f.flags.calls))
	}
	if svc.locks.IsLocked("BANK01") {
		t.Error("bank lock should be released after the batch")
	}
}

func TestService_RunBatch_RejectsDuplicateBank(t *testing.T) {
	f := newFixture(t)
	svc := f.service(t)

	requests := []*Request{
		{BankCode: "BANK01", Statement: scenarioStatement(), Now: runTime},
		{BankCode: "BANK01", Statement: scenarioStatement(), Now: runTime},
	}

	items, err := svc.RunBatch(context.Background(), requests, 1)
	if err == nil {
		t.Fatal("RunBatch() expected error for duplicate bank")
	}

	if items[0].Err != nil || items[0].Outcome == nil {
		t.Errorf("first run should succeed, got err = %v", items[0].Err)
	}
	if items[1].Outcome != nil || !errors.IsKind(items[1].Err, errors.KindConfiguration) {
		t.Errorf("duplicate run should be rejected, got outcome = %+v err = %v", items[1].Outcome, items[1].Err)
	}
	if len(f.ledger.calls) != 1 {
		t.Errorf("Extract() calls = %d, want 1", len(f.ledger.calls))
	}
}

func TestService_RunBatch_RejectsBankInFlight(t *testing.T) {
	f := newFixture(t)
	svc := f.service(t)

	if !svc.locks.TryLock("BANK01") {
		t.Fatal("TryLock() failed")
	}
	defer svc.locks.Unlock("BANK01")

	items, err := svc.RunBatch(context.Background(), []*Request{
		{BankCode: "BANK01", Statement: scenarioStatement(), Now: runTime},
	}, 1)
	if err == nil || items[0].Err == nil {
		t.Fatal("RunBatch() should reject a bank with a run in progress")
	}
	if !svc.locks.IsLocked("BANK01") {
		t.Error("RunBatch() must not release a lock it did not take")
	}
}

func TestService_RunBatch_CollectsRunErrors(t *testing.T) {
	f := newFixture(t)
	svc := f.service(t)

	requests := []*Request{
		{BankCode: "BANK01", Statement: scenarioStatement(), Now: runTime},
		{BankCode: "BANK02", Statement: []models.RawRecord{{TransactionDate: "2024-01-01", Amount: "x", Reference: "R"}}, Now: runTime},
	}

	items, err := svc.RunBatch(context.Background(), requests, 0)
	summary, ok := err.(*errors.ErrorSummary)
	if !ok {
		t.Fatalf("RunBatch() error = %T %v, want *errors.ErrorSummary", err, err)
	}
	if summary.Total != 1 || summary.ByKind[errors.KindInvalidAmount] != 1 {
		t.Errorf("summary = %+v, want one invalid amount", summary)
	}
	if items[0].Err != nil {
		t.Errorf("items[0].Err = %v, want nil", items[0].Err)
	}
	if items[1].Outcome == nil || items[1].Outcome.Kind != errors.KindInvalidAmount {
		t.Errorf("items[1].Outcome = %+v", items[1].Outcome)
	}
}
