package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"golang-bank-recon-service/internal/models"
	"golang-bank-recon-service/internal/parsers"
	"golang-bank-recon-service/internal/reconciler"
	"golang-bank-recon-service/internal/reporter"
	"golang-bank-recon-service/pkg/errors"
)

// DefaultSettlementArchive is the archive written by settle-report.
const DefaultSettlementArchive = "Settlement_.zip"

var (
	settleBatch  string
	settleOutput string
	reportFile   string
)

var settleCmd = &cobra.Command{
	Use:   "settle",
	Short: "Aggregate a settlement batch into net positions",
	Long: `Settle sums the successful settlement transactions of a batch into
payer to beneficiary positions. Positions are printed, or written as a zip
containing settlement_result.csv when --output is given.

Examples:
  reconciler settle --batch 2024010101
  reconciler settle --batch 2024010101 --output positions.zip`,

	PreRunE: validateSettleFlags,
	RunE:    runSettle,
}

var settleReportCmd = &cobra.Command{
	Use:   "settle-report",
	Short: "Compare a settlement batch with the settlement bank's report",
	Long: `Settle-report reads the settlement bank's workbook, compares it with the
ledger rows of the batch and writes a zip with the matched rows, the
discrepancies and the batch positions.

Examples:
  reconciler settle-report --batch 2024010101 --report report.xlsx
  reconciler settle-report --batch 2024010101 --report report.xlsx --output out/settlement.zip`,

	PreRunE: validateSettleReportFlags,
	RunE:    runSettleReport,
}

func init() {
	rootCmd.AddCommand(settleCmd)
	rootCmd.AddCommand(settleReportCmd)

	settleCmd.Flags().StringVar(&settleBatch, "batch", "", "settlement batch number (required)")
	settleCmd.Flags().StringVarP(&settleOutput, "output", "o", "", "zip file for the positions (default: print)")
	settleCmd.MarkFlagRequired("batch")

	settleReportCmd.Flags().StringVar(&settleBatch, "batch", "", "settlement batch number (required)")
	settleReportCmd.Flags().StringVar(&reportFile, "report", "", "settlement bank report workbook, .xlsx (required)")
	settleReportCmd.Flags().StringVarP(&settleOutput, "output", "o", DefaultSettlementArchive, "zip file for the artifacts")
	settleReportCmd.MarkFlagRequired("batch")
	settleReportCmd.MarkFlagRequired("report")
}

func validateBatchNumber(batch string) error {
	if strings.TrimSpace(batch) == "" {
		return errors.ConfigurationError("batch", batch, fmt.Errorf("batch is required"))
	}
	return nil
}

func validateSettleFlags(cmd *cobra.Command, args []string) error {
	if err := validateBatchNumber(settleBatch); err != nil {
		return err
	}
	return validateOutputFile(settleOutput)
}

func validateSettleReportFlags(cmd *cobra.Command, args []string) error {
	if err := validateBatchNumber(settleBatch); err != nil {
		return err
	}
	if err := validateFileExists(reportFile, "settlement report"); err != nil {
		return err
	}
	if settleOutput == "" {
		return errors.ConfigurationError("output", settleOutput, fmt.Errorf("output cannot be empty"))
	}
	return validateOutputFile(settleOutput)
}

func runSettle(cmd *cobra.Command, args []string) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	outcome, err := a.service.Settle(context.Background(), settleBatch)
	if err != nil {
		return err
	}

	if settleOutput == "" {
		printPositions(os.Stdout, outcome)
		return nil
	}

	artifacts := &reporter.SettlementArtifacts{Positions: outcome.Positions}
	if err := reporter.WriteSettlementArchiveFile(afero.NewOsFs(), settleOutput, artifacts); err != nil {
		return err
	}
	fmt.Fprintf(os.Stdout, "Wrote %d positions for batch %s to %s\n", len(outcome.Positions), outcome.Batch, settleOutput)
	return nil
}

func runSettleReport(cmd *cobra.Command, args []string) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	fs := afero.NewOsFs()
	reader, err := parsers.NewReportReader(fs, a.cfg.ReportReaderConfig(), parsers.DefaultParseConfig(), a.logger)
	if err != nil {
		return err
	}
	report, _, err := reader.Read(reportFile)
	if err != nil {
		return err
	}

	outcome, err := a.service.SettleReport(context.Background(), settleBatch, report)
	if err != nil {
		return err
	}

	artifacts := reporter.ArtifactsFromMatch(outcome.Match, outcome.Positions)
	if err := reporter.WriteSettlementArchiveFile(fs, settleOutput, artifacts); err != nil {
		return err
	}

	printSettlementSummary(os.Stdout, outcome)
	fmt.Fprintf(os.Stdout, "Artifacts written to %s\n", settleOutput)
	return nil
}

func printPositions(w io.Writer, outcome *reconciler.SettlementOutcome) {
	fmt.Fprintf(w, "SETTLEMENT POSITIONS (batch %s)\n", outcome.Batch)
	fmt.Fprintf(w, "  %-12s %-12s %16s\n", "PAYER", "BENEFICIARY", "AMOUNT")
	for _, p := range outcome.Positions {
		fmt.Fprintf(w, "  %-12s %-12s %16s\n", p.Payer, p.Beneficiary, p.Amount.String())
	}
}

func printSettlementSummary(w io.Writer, outcome *reconciler.SettlementOutcome) {
	printPositions(w, outcome)
	if outcome.Match == nil {
		return
	}

	unjoined := 0
	for _, row := range outcome.Match.Discrepancies {
		if row.Side != models.JoinBoth {
			unjoined++
		}
	}
	fmt.Fprintf(w, "\n=== REPORT COMPARISON ===\n")
	fmt.Fprintf(w, "Merged:        %d\n", len(outcome.Match.Merged))
	fmt.Fprintf(w, "Matched:       %d\n", len(outcome.Match.Matched))
	fmt.Fprintf(w, "Unmatched:     %d\n", len(outcome.Match.Unmatched))
	fmt.Fprintf(w, "Discrepancies: %d (%d without a counterpart)\n", len(outcome.Match.Discrepancies), unjoined)
}
