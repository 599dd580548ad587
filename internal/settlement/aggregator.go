// Package settlement aggregates ledger transactions into net settlement
// positions and compares ledger settlement rows with an external settlement
// bank report.
package settlement

import (
	"fmt"
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"golang-bank-recon-service/internal/models"
	"golang-bank-recon-service/pkg/errors"
	"golang-bank-recon-service/pkg/logger"
)

// RoutingConfig names the hub party whose self-settled service payments are
// settled with a partner instead of being dropped.
type RoutingConfig struct {
	HubCode     string   `mapstructure:"hub_code"`
	PartnerCode string   `mapstructure:"partner_code"`
	RoutedTypes []string `mapstructure:"routed_types"`
}

// DefaultRoutingConfig returns the routing used in production.
func DefaultRoutingConfig() *RoutingConfig {
	return &RoutingConfig{
		HubCode:     "TROAUGKA",
		PartnerCode: "AFRIUGKA",
		RoutedTypes: []string{"NWSC", "UMEME"},
	}
}

// Validate checks that a hub is always paired with a partner.
func (rc *RoutingConfig) Validate() error {
	hub := strings.TrimSpace(rc.HubCode)
	partner := strings.TrimSpace(rc.PartnerCode)
	if (hub == "") != (partner == "") {
		return errors.ConfigurationError("settlement.hub_code", rc.HubCode,
			fmt.Errorf("hub code and partner code must be set together"))
	}
	if hub != "" && hub == partner {
		return errors.ConfigurationError("settlement.partner_code", rc.PartnerCode,
			fmt.Errorf("partner code must differ from hub code"))
	}
	return nil
}

func (rc *RoutingConfig) isRouted(txnType string) bool {
	for _, t := range rc.RoutedTypes {
		if t == txnType {
			return true
		}
	}
	return false
}

type bucket struct {
	payer       string
	beneficiary string
}

// Aggregator sums ledger amounts into (payer, beneficiary) positions.
type Aggregator struct {
	routing *RoutingConfig
	logger  logger.Logger
}

// NewAggregator creates an aggregator. A nil config uses DefaultRoutingConfig.
func NewAggregator(routing *RoutingConfig, log logger.Logger) (*Aggregator, error) {
	if routing == nil {
		routing = DefaultRoutingConfig()
	}
	if err := routing.Validate(); err != nil {
		return nil, err
	}
	return &Aggregator{
		routing: routing,
		logger:  logger.OrGlobal(log).WithComponent("settlement"),
	}, nil
}

// Aggregate rounds each amount half to even and sums it into its
// (payer, beneficiary) bucket. Self-settlements are dropped unless the hub
// settles a routed service type with itself, in which case the amount goes
// to (hub, partner). Positions are sorted by payer, then beneficiary.
func (a *Aggregator) Aggregate(rows []models.LedgerRecord) ([]models.SettlementPosition, error) {
	sums := make(map[bucket]decimal.Decimal)
	dropped := 0
	routed := 0

	for i, row := range rows {
		amount, err := models.ParseDecimalFromString(row.Amount)
		if err != nil {
			return nil, errors.InvalidAmount(models.FieldAmount, row.Amount, err).
				WithContext("row", i+1).
				WithContext("reference", row.Reference)
		}
		amount = amount.RoundBank(0)

		key := bucket{payer: row.Payer(), beneficiary: row.Beneficiary()}
		if key.payer == key.beneficiary {
			if a.routing.HubCode == "" || key.payer != a.routing.HubCode || !a.routing.isRouted(row.TransactionType) {
				dropped++
				continue
			}
			key.beneficiary = a.routing.PartnerCode
			routed++
		}

		sums[key] = sums[key].Add(amount)
	}

	positions := make([]models.SettlementPosition, 0, len(sums))
	for key, amount := range sums {
		positions = append(positions, models.SettlementPosition{
			Payer:       key.payer,
			Beneficiary: key.beneficiary,
			Amount:      amount,
		})
	}
	sort.Slice(positions, func(i, j int) bool {
		if positions[i].Payer != positions[j].Payer {
			return positions[i].Payer < positions[j].Payer
		}
		return positions[i].Beneficiary < positions[j].Beneficiary
	})

	a.logger.WithFields(logger.Fields{
		"rows":           len(rows),
		"positions":      len(positions),
		"self_dropped":   dropped,
		"routed_to_peer": routed,
	}).Debug("Aggregated settlement positions")

	return positions, nil
}
