// Package matcher reconciles a normalized bank statement against a normalized
// ledger extract.
//
// The engine works in three passes:
//  1. De-duplication of both inputs by reference key, keeping the first row
//  2. A full outer join on (date key, reference key, amount key)
//  3. Status classification and partitioning of the joined rows
//
// Example usage:
//
//	m, err := matcher.New(matcher.DefaultConfig(), log)
//	if err != nil {
//		return err
//	}
//
//	result, err := m.Reconcile(statement, ledger)
package matcher

import (
	"fmt"
	"strings"

	"golang-bank-recon-service/pkg/errors"
)

// DefaultSuccessCode is the response code of a successful transaction.
const DefaultSuccessCode = "0"

// Config holds the parameters of a reconciliation pass.
type Config struct {
	// SuccessCode is the response code that marks a transaction successful.
	// An absent response code never equals it.
	SuccessCode string `mapstructure:"success_code"`
}

// DefaultConfig returns the configuration used by the reconcile command.
func DefaultConfig() *Config {
	return &Config{SuccessCode: DefaultSuccessCode}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.SuccessCode) == "" {
		return errors.ConfigurationError("reconcile.success_code", c.SuccessCode, fmt.Errorf("success code cannot be empty"))
	}
	return nil
}

// Clone creates a copy of the configuration.
func (c *Config) Clone() *Config {
	clone := *c
	return &clone
}

// String returns a string representation of the configuration.
func (c *Config) String() string {
	return fmt.Sprintf("MatcherConfig{SuccessCode: %q}", c.SuccessCode)
}
