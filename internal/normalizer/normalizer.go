// Package normalizer canonicalizes raw statement, ledger and settlement
// fields into comparable join keys.
//
// Every pass is pure: Normalize takes records and returns new normalized
// records without mutating its input. Date failures degrade to the "0"
// sentinel so unknown dates can still be joined; amount failures abort the
// whole record set with an InvalidAmount error.
package normalizer

import (
	"fmt"
	"regexp"
	"strings"

	"golang-bank-recon-service/internal/models"
	"golang-bank-recon-service/pkg/errors"
	"golang-bank-recon-service/pkg/logger"
)

// Role decides how a field is cleaned
type Role int

const (
	RoleGeneric Role = iota
	RoleDate
	RoleAmount
	RoleReference
)

func (r Role) String() string {
	switch r {
	case RoleDate:
		return "date"
	case RoleAmount:
		return "amount"
	case RoleReference:
		return "reference"
	default:
		return "generic"
	}
}

// FieldRoles maps field names to roles. Fields not listed are generic.
type FieldRoles map[string]Role

// StatementRoles describes a bank statement row.
var StatementRoles = FieldRoles{
	models.FieldDate:      RoleDate,
	models.FieldAmount:    RoleAmount,
	models.FieldReference: RoleReference,
}

// LedgerRoles describes a ledger extract row.
var LedgerRoles = FieldRoles{
	models.FieldDate:      RoleDate,
	models.FieldAmount:    RoleAmount,
	models.FieldReference: RoleReference,
}

// SettlementRoles describes a settlement row from either the ledger or the
// external report.
var SettlementRoles = FieldRoles{
	models.FieldDate:      RoleDate,
	models.FieldAmount:    RoleAmount,
	models.FieldReference: RoleReference,
}

// Sentinel is the value of a field that cleaned down to nothing or a date
// that could not be parsed.
const Sentinel = "0"

// DefaultReferenceWidth is the fixed width of reference join keys.
const DefaultReferenceWidth = 12

// Config contains configuration for normalization
type Config struct {
	ReferenceWidth int `mapstructure:"reference_width"`
}

// DefaultConfig returns a default normalization configuration
func DefaultConfig() *Config {
	return &Config{ReferenceWidth: DefaultReferenceWidth}
}

// Validate validates the normalization configuration
func (c *Config) Validate() error {
	if c.ReferenceWidth <= 0 {
		return errors.ConfigurationError("reconcile.reference_width", c.ReferenceWidth, nil)
	}
	return nil
}

// Normalizer turns records into NormalizedRecords
type Normalizer struct {
	config *Config
	logger logger.Logger
}

// New creates a normalizer. A nil config uses defaults.
func New(config *Config, log logger.Logger) (*Normalizer, error) {
	if config == nil {
		config = DefaultConfig()
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &Normalizer{
		config: config,
		logger: logger.OrGlobal(log).WithComponent("normalizer"),
	}, nil
}

// Normalize cleans every record according to roles. Fields with the date,
// amount or reference role must be present on every record.
func (n *Normalizer) Normalize(records []models.Record, roles FieldRoles) ([]models.NormalizedRecord, error) {
	keys, err := roleFields(roles)
	if err != nil {
		return nil, err
	}

	out := make([]models.NormalizedRecord, 0, len(records))
	unknownDates := 0

	for i, rec := range records {
		for _, field := range keys.required() {
			if !rec.Has(field) {
				return nil, errors.SchemaError(field, nil).WithContext("row", i+1)
			}
		}

		norm := models.NormalizedRecord{Fields: make(map[string]string, len(rec)+1)}

		for field, value := range rec {
			switch roles[field] {
			case RoleDate:
				norm.Fields[field] = CleanDate(value)
			case RoleAmount:
				cleaned, err := CleanAmount(value)
				if err != nil {
					return nil, errors.InvalidAmount(field, value, err).WithContext("row", i+1)
				}
				norm.Fields[field] = cleaned
			case RoleReference:
				cleaned := CleanText(value)
				norm.Fields[models.FieldOriginalReference] = cleaned
				norm.Fields[field] = PadReference(cleaned, n.config.ReferenceWidth)
			default:
				norm.Fields[field] = CleanText(value)
			}
		}

		if keys.date != "" {
			norm.DateKey = norm.Fields[keys.date]
			if norm.DateKey == Sentinel {
				unknownDates++
			}
		}
		if keys.amount != "" {
			norm.AmountKey = norm.Fields[keys.amount]
		}
		norm.ReferenceKey = norm.Fields[keys.reference]
		norm.OriginalReference = norm.Fields[models.FieldOriginalReference]

		out = append(out, norm)
	}

	if unknownDates > 0 {
		n.logger.WithFields(logger.Fields{
			"rows":          len(records),
			"unknown_dates": unknownDates,
		}).Warn("Unparseable dates replaced with sentinel")
	}

	return out, nil
}

// NormalizeStatement normalizes bank statement rows.
func (n *Normalizer) NormalizeStatement(rows []models.RawRecord) ([]models.NormalizedRecord, error) {
	records := make([]models.Record, len(rows))
	for i, row := range rows {
		records[i] = row.Record()
	}
	return n.Normalize(records, StatementRoles)
}

// NormalizeLedger normalizes ledger extract rows.
func (n *Normalizer) NormalizeLedger(rows []models.LedgerRecord) ([]models.NormalizedRecord, error) {
	records := make([]models.Record, len(rows))
	for i, row := range rows {
		records[i] = row.Record()
	}
	return n.Normalize(records, LedgerRoles)
}

// NormalizeSettlement rounds and normalizes settlement rows.
func (n *Normalizer) NormalizeSettlement(rows []models.SettlementRecord) ([]models.NormalizedRecord, error) {
	records := make([]models.Record, len(rows))
	for i, row := range rows {
		records[i] = RoundSettlementAmounts(row.Record(), models.FieldAmount, models.FieldFee, models.FieldCommission)
	}
	return n.Normalize(records, SettlementRoles)
}

type keyFields struct {
	date      string
	amount    string
	reference string
}

func (k keyFields) required() []string {
	fields := make([]string, 0, 3)
	for _, f := range []string{k.date, k.amount, k.reference} {
		if f != "" {
			fields = append(fields, f)
		}
	}
	return fields
}

func roleFields(roles FieldRoles) (keyFields, error) {
	var keys keyFields
	for field, role := range roles {
		var slot *string
		switch role {
		case RoleDate:
			slot = &keys.date
		case RoleAmount:
			slot = &keys.amount
		case RoleReference:
			slot = &keys.reference
		default:
			continue
		}
		if *slot != "" {
			return keys, errors.ConfigurationError("field roles", fmt.Sprintf("%s and %s both have role %s", *slot, field, role), nil)
		}
		*slot = field
	}
	if keys.reference == "" {
		return keys, errors.ConfigurationError("field roles", "no reference field", nil)
	}
	return keys, nil
}

var nonAlphanumeric = regexp.MustCompile(`[^0-9A-Za-z]`)

// CleanText strips everything outside [0-9A-Za-z]. An empty result becomes "0".
func CleanText(value string) string {
	cleaned := nonAlphanumeric.ReplaceAllString(value, "")
	if cleaned == "" {
		return Sentinel
	}
	return cleaned
}

// PadReference left-pads with '0' to width, or keeps the first width characters.
func PadReference(value string, width int) string {
	if len(value) >= width {
		return value[:width]
	}
	return strings.Repeat("0", width-len(value)) + value
}
