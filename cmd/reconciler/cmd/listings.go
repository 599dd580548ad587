package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"golang-bank-recon-service/internal/models"
	"golang-bank-recon-service/internal/store"
	"golang-bank-recon-service/pkg/errors"
)

const dayLayout = "2006-01-02"

var (
	listBankCode string
	listFormat   string
	reversalDay  string
)

var exceptionsCmd = &cobra.Command{
	Use:     "exceptions",
	Short:   "List reconciliation exceptions of a bank",
	PreRunE: validateListFlags,
	RunE:    runExceptions,
}

var statsCmd = &cobra.Command{
	Use:     "stats",
	Short:   "List the reconciliation runs of a bank, newest first",
	PreRunE: validateListFlags,
	RunE:    runStats,
}

var reversalsCmd = &cobra.Command{
	Use:   "reversals",
	Short: "List unsuccessful reversal requests of a bank for one day",
	PreRunE: func(cmd *cobra.Command, args []string) error {
		if err := validateListFlags(cmd, args); err != nil {
			return err
		}
		_, err := parseDay(reversalDay)
		return err
	},
	RunE: runReversals,
}

func init() {
	for _, c := range []*cobra.Command{exceptionsCmd, statsCmd, reversalsCmd} {
		c.Flags().StringVarP(&listBankCode, "bank-code", "b", "", "bank code (required)")
		c.Flags().StringVarP(&listFormat, "output-format", "f", "console", "output format: console, json")
		c.MarkFlagRequired("bank-code")
		rootCmd.AddCommand(c)
	}
	reversalsCmd.Flags().StringVar(&reversalDay, "day", "", "day to list, YYYY-MM-DD (default: today)")
}

func validateListFlags(cmd *cobra.Command, args []string) error {
	if strings.TrimSpace(listBankCode) == "" {
		return errors.ConfigurationError("bank-code", listBankCode, fmt.Errorf("bank-code is required"))
	}
	switch listFormat {
	case "console", "json":
		return nil
	default:
		return errors.ConfigurationError("output-format", listFormat,
			fmt.Errorf("invalid output format '%s'. Valid formats: console, json", listFormat))
	}
}

// parseDay parses a YYYY-MM-DD day. An empty value is today.
func parseDay(value string) (time.Time, error) {
	if value == "" {
		now := time.Now()
		return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.Local), nil
	}
	day, err := time.ParseInLocation(dayLayout, value, time.Local)
	if err != nil {
		return time.Time{}, errors.InvalidDate("day", value, err).WithSuggestion("use YYYY-MM-DD")
	}
	return day, nil
}

func runExceptions(cmd *cobra.Command, args []string) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	entries, err := a.recon.Exceptions(context.Background(), listBankCode)
	if err != nil {
		return err
	}
	if listFormat == "json" {
		return writeJSON(os.Stdout, entries)
	}
	printExceptions(os.Stdout, entries)
	return nil
}

func runStats(cmd *cobra.Command, args []string) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	history, err := a.stats.RunHistory(context.Background(), listBankCode)
	if err != nil {
		return err
	}
	if listFormat == "json" {
		return writeJSON(os.Stdout, history)
	}
	printRunHistory(os.Stdout, history)
	return nil
}

func runReversals(cmd *cobra.Command, args []string) error {
	day, err := parseDay(reversalDay)
	if err != nil {
		return err
	}

	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	reversals, err := a.ledger.Reversals(context.Background(), listBankCode, day)
	if err != nil {
		return err
	}
	if listFormat == "json" {
		return writeJSON(os.Stdout, reversals)
	}
	printReversals(os.Stdout, reversals)
	return nil
}

func writeJSON(w io.Writer, v interface{}) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(v); err != nil {
		return errors.Wrap(err, errors.KindFile, "failed to write JSON")
	}
	return nil
}

func printExceptions(w io.Writer, entries []store.ReconciliationEntry) {
	fmt.Fprintf(w, "EXCEPTIONS (%d)\n", len(entries))
	fmt.Fprintf(w, "  %-14s %-10s %12s %-8s %-10s %-10s\n", "REFERENCE", "DATE", "AMOUNT", "BATCH", "ISSUER", "ACQUIRER")
	for _, e := range entries {
		fmt.Fprintf(w, "  %-14s %-10s %12s %-8s %-10s %-10s\n",
			e.Reference, e.TransactionDate, e.Amount, e.Batch, e.IssuerCode, e.AcquirerCode)
	}
}

func printRunHistory(w io.Writer, history []models.RunStats) {
	fmt.Fprintf(w, "RUNS (%d)\n", len(history))
	fmt.Fprintf(w, "  %-19s %-23s %8s %8s %8s %8s %8s  %s\n",
		"DATE", "RANGE", "UPLOADED", "REQUEST", "RECON", "UNRECON", "EXCEP", "FEEDBACK")
	for _, s := range history {
		fmt.Fprintf(w, "  %-19s %-23s %8d %8d %8d %8d %8d  %s\n",
			s.CreatedAt.Format("2006-01-02 15:04:05"), s.DateRange, s.UploadedRows, s.RequestedRows,
			s.ReconciledRows, s.UnreconciledRows, s.ExceptionRows, s.Feedback)
	}
}

func printReversals(w io.Writer, reversals []store.Reversal) {
	fmt.Fprintf(w, "REVERSALS (%d)\n", len(reversals))
	fmt.Fprintf(w, "  %-19s %-14s %12s %-10s %-10s %-16s %s\n",
		"DATE", "REFERENCE", "AMOUNT", "ISSUER", "ACQUIRER", "TYPE", "STATUS")
	for _, r := range reversals {
		fmt.Fprintf(w, "  %-19s %-14s %12s %-10s %-10s %-16s %s\n",
			r.DateTime.Format("2006-01-02 15:04:05"), r.Reference, r.Amount, r.Issuer, r.Acquirer, r.ReversalType, r.Status)
	}
}
