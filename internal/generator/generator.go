// Package generator builds reproducible reconciliation scenarios: a bank
// statement and the ledger rows it should be reconciled against.
package generator

import (
	"encoding/csv"
	"fmt"
	"io"
	"math/rand"
	"time"

	"github.com/jinzhu/gorm"
	"github.com/shopspring/decimal"

	"golang-bank-recon-service/internal/models"
	"golang-bank-recon-service/internal/store"
	"golang-bank-recon-service/pkg/errors"
)

// StatementColumns is the header written above generated statements.
var StatementColumns = []string{"Date", "Description", "Amount", "Reference"}

var descriptions = []string{"ACI", "CWD", "AGENTFLOATINQ", "NWSC", "UMEME"}

// StatementGenerator generates a statement and a ledger for one bank
type StatementGenerator struct {
	BankCode     string
	Counterparty string
	Count        int
	StartDate    time.Time
	EndDate      time.Time
	MinAmount    decimal.Decimal
	MaxAmount    decimal.Decimal
	// MatchRatio is the share of rows present in both the statement and the ledger.
	MatchRatio float64
	Seed       int64
}

// Scenario is one generated data set.
type Scenario struct {
	Statement []models.RawRecord
	Ledger    []store.Transaction
	// Matched counts the references present on both sides.
	Matched int
	// LedgerOnly counts ledger rows missing from the statement.
	LedgerOnly int
	// StatementOnly counts statement rows missing from the ledger.
	StatementOnly int
}

// NewStatementGenerator returns a generator with the defaults of the
// generate command.
func NewStatementGenerator(bankCode string, seed int64) *StatementGenerator {
	return &StatementGenerator{
		BankCode:     bankCode,
		Counterparty: "BANK99",
		Count:        100,
		StartDate:    time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		EndDate:      time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC),
		MinAmount:    decimal.NewFromInt(100),
		MaxAmount:    decimal.NewFromInt(500000),
		MatchRatio:   0.8,
		Seed:         seed,
	}
}

// Validate checks the generator parameters.
func (sg *StatementGenerator) Validate() error {
	switch {
	case sg.BankCode == "":
		return errors.ConfigurationError("bank-code", sg.BankCode, fmt.Errorf("bank code is required"))
	case sg.BankCode == sg.Counterparty:
		return errors.ConfigurationError("counterparty", sg.Counterparty, fmt.Errorf("counterparty must differ from the bank"))
	case sg.Count <= 0:
		return errors.ConfigurationError("count", sg.Count, fmt.Errorf("count must be positive"))
	case sg.MatchRatio < 0 || sg.MatchRatio > 1:
		return errors.ConfigurationError("match-ratio", sg.MatchRatio, fmt.Errorf("match ratio must be between 0.0 and 1.0"))
	case sg.EndDate.Before(sg.StartDate):
		return errors.ConfigurationError("end-date", sg.EndDate.Format("2006-01-02"), fmt.Errorf("end date cannot be before start date"))
	case sg.MaxAmount.LessThan(sg.MinAmount):
		return errors.ConfigurationError("max-amount", sg.MaxAmount.String(), fmt.Errorf("max amount cannot be below min amount"))
	}
	return nil
}

// Generate creates the scenario. The same seed always yields the same rows.
//
// The first Count*MatchRatio rows appear on both sides with a successful
// response code. The remaining rows alternate between ledger-only rows,
// half of them failed, and statement-only rows.
func (sg *StatementGenerator) Generate() (*Scenario, error) {
	if err := sg.Validate(); err != nil {
		return nil, err
	}

	r := rand.New(rand.NewSource(sg.Seed))
	days := int(sg.EndDate.Sub(sg.StartDate).Hours()/24) + 1
	amountRange := sg.MaxAmount.Sub(sg.MinAmount)
	matchCount := int(float64(sg.Count) * sg.MatchRatio)

	s := &Scenario{}
	for i := 0; i < sg.Count; i++ {
		when := sg.StartDate.AddDate(0, 0, r.Intn(days)).
			Add(time.Duration(r.Intn(24*60)) * time.Minute)
		amount := decimal.NewFromFloat(r.Float64()).Mul(amountRange).Add(sg.MinAmount).Round(2)
		reference := fmt.Sprintf("TRN%09d", i+1)
		description := descriptions[r.Intn(len(descriptions))]

		statement := models.RawRecord{
			TransactionDate: when.Format("2006-01-02"),
			Description:     description,
			Amount:          amount.StringFixed(2),
			Reference:       reference,
		}
		ledger := sg.ledgerRow(i, when, reference, description, amount)

		switch {
		case i < matchCount:
			ledger.ResponseCode = stringPtr("0")
			s.Statement = append(s.Statement, statement)
			s.Ledger = append(s.Ledger, ledger)
			s.Matched++
		case (i-matchCount)%2 == 0:
			code := "0"
			if (i-matchCount)%4 == 2 {
				code = "05"
			}
			ledger.ResponseCode = stringPtr(code)
			s.Ledger = append(s.Ledger, ledger)
			s.LedgerOnly++
		default:
			s.Statement = append(s.Statement, statement)
			s.StatementOnly++
		}
	}

	return s, nil
}

// ledgerRow puts the bank on the issuer side of even rows and on the
// acquirer side of odd rows.
func (sg *StatementGenerator) ledgerRow(i int, when time.Time, reference, txnType string, amount decimal.Decimal) store.Transaction {
	issuer, acquirer := sg.BankCode, sg.Counterparty
	if i%2 == 1 {
		issuer, acquirer = acquirer, issuer
	}
	return store.Transaction{
		DateTime:     when,
		TxnID:        fmt.Sprintf("T%09d", i+1),
		Batch:        when.Format("20060102"),
		Reference:    reference,
		TxnType:      txnType,
		RequestType:  "1200",
		IssuerCode:   issuer,
		AcquirerCode: acquirer,
		Issuer:       issuer,
		Acquirer:     acquirer,
		Amount:       amount.StringFixed(2),
		Fee:          "0",
		Commission:   "0",
	}
}

func stringPtr(s string) *string { return &s }

// WriteStatementCSV writes rows in the upload layout read by the statement reader.
func WriteStatementCSV(w io.Writer, rows []models.RawRecord) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(StatementColumns); err != nil {
		return err
	}
	for _, row := range rows {
		if err := cw.Write([]string{row.TransactionDate, row.Description, row.Amount, row.Reference}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// SeedLedger inserts rows into the transactions table in one transaction.
func SeedLedger(db *gorm.DB, rows []store.Transaction) error {
	tx := db.Begin()
	if tx.Error != nil {
		return errors.PersistenceFailure("seed ledger", tx.Error)
	}
	for i := range rows {
		if err := tx.Create(&rows[i]).Error; err != nil {
			tx.Rollback()
			return errors.PersistenceFailure("seed ledger", err).WithContext("reference", rows[i].Reference)
		}
	}
	if err := tx.Commit().Error; err != nil {
		return errors.PersistenceFailure("seed ledger", err)
	}
	return nil
}
