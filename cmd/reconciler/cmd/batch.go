package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"golang-bank-recon-service/cmd/reconciler/config"
	"golang-bank-recon-service/internal/reconciler"
	"golang-bank-recon-service/internal/reporter"
	"golang-bank-recon-service/pkg/errors"
)

var (
	batchRuns         []string
	batchOutputFormat string
)

var batchCmd = &cobra.Command{
	Use:   "reconcile-batch",
	Short: "Reconcile the statements of several banks concurrently",
	Long: `Reconcile-batch runs one reconciliation per bank. Each --run flag names
a bank code and its statement file as BANK=PATH. Runs are independent and
share a bounded worker pool; a bank code may appear only once per batch.

Examples:
  reconciler reconcile-batch --run BANK01=bank01.xlsx --run BANK02=bank02.csv
  reconciler reconcile-batch --run BANK01=bank01.xlsx --max-concurrency 2 --output-format json`,

	PreRunE: validateBatchFlags,
	RunE:    runBatch,
}

func init() {
	rootCmd.AddCommand(batchCmd)

	flags := batchCmd.Flags()
	flags.StringArrayVarP(&batchRuns, "run", "r", nil, "bank code and statement file as BANK=PATH (repeatable, required)")
	flags.StringVarP(&batchOutputFormat, "output-format", "f", "console", "output format: console, json, csv")
	flags.StringVarP(&userID, "user", "u", "", "user recorded against the runs (default: $USER)")
	flags.Int("max-concurrency", reconciler.DefaultMaxConcurrency, "maximum number of banks reconciled at once")

	batchCmd.MarkFlagRequired("run")

	bindFlags(flags, map[string]string{
		"batch.max_concurrency": "max-concurrency",
	})
}

// runFlag is one parsed --run value.
type runFlag struct {
	bankCode string
	path     string
}

func parseRunFlag(value string) (runFlag, error) {
	bank, path, ok := strings.Cut(value, "=")
	bank = strings.TrimSpace(bank)
	path = strings.TrimSpace(path)
	if !ok || bank == "" || path == "" {
		return runFlag{}, errors.ConfigurationError("run", value, fmt.Errorf("expected BANK=PATH, got %q", value))
	}
	return runFlag{bankCode: bank, path: path}, nil
}

func validateBatchFlags(cmd *cobra.Command, args []string) error {
	if len(batchRuns) == 0 {
		return errors.ConfigurationError("run", nil, fmt.Errorf("at least one --run is required"))
	}
	for _, value := range batchRuns {
		run, err := parseRunFlag(value)
		if err != nil {
			return err
		}
		if err := validateFileExists(run.path, "statement file for "+run.bankCode); err != nil {
			return err
		}
	}
	if userID == "" {
		userID = os.Getenv("USER")
	}
	return validateOutputFormat(batchOutputFormat)
}

func runBatch(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	now := time.Now()
	requests := make([]*reconciler.Request, 0, len(batchRuns))
	for _, value := range batchRuns {
		run, err := parseRunFlag(value)
		if err != nil {
			return err
		}
		statement, err := readStatement(run.path, a.logger.WithField("bank_code", run.bankCode))
		if err != nil {
			return err
		}
		requests = append(requests, &reconciler.Request{
			BankCode:  run.bankCode,
			UserID:    userID,
			Statement: statement,
			Now:       now,
		})
	}

	if viper.GetBool("verbose") {
		fmt.Fprintf(os.Stderr, "Reconciling %d banks with up to %d at once...\n", len(requests), a.cfg.Batch.MaxConcurrency)
	}

	items, batchErr := a.service.RunBatch(ctx, requests, a.cfg.Batch.MaxConcurrency)
	if err := writeBatchReport(os.Stdout, items, batchOutputFormat); err != nil {
		return err
	}
	if batchErr != nil {
		return batchErr
	}

	for _, item := range items {
		if err := degradedError(item.Outcome); err != nil {
			return err
		}
	}
	return nil
}

// writeBatchReport renders every outcome in request order. Rejected runs are
// listed with their error.
func writeBatchReport(w io.Writer, items []reconciler.BatchItem, format string) error {
	generator, err := reporter.NewReportGenerator(config.CreateReportConfig(format))
	if err != nil {
		return err
	}

	for i, item := range items {
		if item.Outcome == nil {
			fmt.Fprintf(w, "Bank %s: not run: %v\n", item.Request.BankCode, item.Err)
			continue
		}
		if i > 0 && format == string(reporter.FormatConsole) {
			fmt.Fprintln(w)
		}
		if err := generator.GenerateReport(item.Outcome, w); err != nil {
			return err
		}
	}
	return nil
}
