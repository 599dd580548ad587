package normalizer

import (
	"golang-bank-recon-service/internal/models"
)

const dateKeyLayout = "20060102"

// CleanDate renders the value as YYYYMMDD, or "0" when it cannot be parsed.
func CleanDate(value string) string {
	t, err := models.ParseTimeWithFormats(value)
	if err != nil {
		return Sentinel
	}
	return t.Format(dateKeyLayout)
}

// CleanAmount truncates the value toward zero and renders it as an integer string.
func CleanAmount(value string) (string, error) {
	d, err := models.ParseDecimalFromString(value)
	if err != nil {
		return "", err
	}
	return d.Truncate(0).String(), nil
}

// RoundSettlementAmounts returns a copy of rec with the given fields rounded
// half to even. Values that are not numbers are left unchanged.
func RoundSettlementAmounts(rec models.Record, fields ...string) models.Record {
	out := rec.Clone()
	for _, field := range fields {
		value, ok := out[field]
		if !ok {
			continue
		}
		d, err := models.ParseDecimalFromString(value)
		if err != nil {
			continue
		}
		out[field] = d.RoundBank(0).String()
	}
	return out
}
