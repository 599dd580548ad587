package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"golang-bank-recon-service/cmd/reconciler/config"
	"golang-bank-recon-service/pkg/logger"
)

var (
	cfgFile string
	verbose bool
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "reconciler",
	Short: "Bank statement and settlement reconciliation tool",
	Long: `Reconciler matches bank-submitted statements against the internal
transaction ledger, flags the reconciled transactions and records run
statistics. It also aggregates settlement batches into net positions and
compares them with the settlement bank's report.

Examples:
  reconciler reconcile --bank-code BANK01 --statement upload.xlsx
  reconciler reconcile-batch --run BANK01=bank01.csv --run BANK02=bank02.xlsx
  reconciler settle --batch 2024010101 --output positions.zip
  reconciler settle-report --batch 2024010101 --report report.xlsx
  reconciler exceptions --bank-code BANK01`,
	Version:           getVersionString(),
	SilenceErrors:     true,
	SilenceUsage:      true,
	PersistentPreRunE: setupLogging,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "config file (optional)")
	flags.BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	flags.String("log-level", string(logger.InfoLevel), "log level: debug, info, warn, error")
	flags.String("log-format", string(logger.TextFormat), "log format: text, json")
	flags.String("db-dialect", "postgres", "database dialect: postgres, sqlite3")
	flags.String("db-dsn", "", "database connection string")

	bindFlags(flags, map[string]string{
		"verbose":          "verbose",
		"log.level":        "log-level",
		"log.format":       "log-format",
		"database.dialect": "db-dialect",
		"database.dsn":     "db-dsn",
	})
}

// bindFlags binds each viper key to the named flag of flags.
func bindFlags(flags *pflag.FlagSet, keys map[string]string) {
	for key, name := range keys {
		if err := viper.BindPFlag(key, flags.Lookup(name)); err != nil {
			panic(fmt.Sprintf("bind flag %s: %v", name, err))
		}
	}
}

// initConfig reads in config file and ENV variables.
func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)

		if err := viper.ReadInConfig(); err != nil {
			fmt.Fprintf(os.Stderr, "Error reading config file: %s\n", err)
			os.Exit(4)
		}

		if viper.GetBool("verbose") {
			fmt.Fprintf(os.Stderr, "Using config file: %s\n", viper.ConfigFileUsed())
		}
	}

	viper.SetEnvPrefix(config.EnvPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	viper.AutomaticEnv()
}

// setupLogging replaces the global logger once flags and config are known.
func setupLogging(cmd *cobra.Command, args []string) error {
	config.SetDefaults(viper.GetViper())

	logConfig := &logger.Config{
		Level:  logger.Level(viper.GetString("log.level")),
		Format: logger.Format(viper.GetString("log.format")),
		Output: logger.Output(viper.GetString("log.output")),
		File:   viper.GetString("log.file"),
	}
	if viper.GetBool("verbose") {
		logConfig.Level = logger.DebugLevel
		logConfig.CallerInfo = true
	}

	log, err := logger.NewLogger(logConfig)
	if err != nil {
		return fmt.Errorf("failed to configure logging: %w", err)
	}
	logger.SetGlobalLogger(log)
	return nil
}

// SetVersionInfo sets the version information for the CLI
func SetVersionInfo(v, c, d string) {
	version = v
	commit = c
	date = d
	rootCmd.Version = getVersionString()
}

func getVersionString() string {
	if version == "dev" {
		return fmt.Sprintf("%s (commit %s, built %s)", version, commit, date)
	}
	return version
}
