package cmd

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"golang-transfer-reconciler/cmd/reconciler/config"
	"golang-transfer-reconciler/pkg/errors"
	"golang-transfer-reconciler/pkg/logger"
)

var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

// cli carries the state shared by one command tree. Every tree owns its own
// viper instance so repeated executions do not leak settings.
type cli struct {
	v       *viper.Viper
	cfgFile string
	log     logger.Logger
}

// NewRootCmd builds the reconciler command tree
func NewRootCmd() *cobra.Command {
	c := &cli{v: viper.New()}

	root := &cobra.Command{
		Use:   "reconciler",
		Short: "Transfer reconciliation tool",
		Long: `Reconciler finds internal transfers across bank statements: the two
ledger sides of one money movement, such as a currency conversion inside one
account or a cross-bank transfer between two of your accounts.

Input is a JSON or YAML document of already-extracted statement batches.
Settings come from flags, RECONCILER_* environment variables or a config file.

Examples:
  reconciler reconcile --input statements.json --display-name "Ammar Qazi"
  reconciler reconcile -i statements.yaml --output-format json -o report.json
  reconciler patterns --display-name "Ammar Qazi"
  reconciler version`,
		Version:           getVersionString(),
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: c.initConfig,
	}

	flags := root.PersistentFlags()
	flags.StringVar(&c.cfgFile, "config", "", "config file (yaml, json or toml)")
	flags.BoolP("verbose", "v", false, "verbose output (debug logging)")
	flags.String("log-level", "info", "log level (debug, info, warn, error)")
	flags.String("log-format", "text", "log format (text, json)")
	flags.String("profile", config.ProfileDefault, "matching profile (default, strict, relaxed)")
	flags.String("display-name", "", "account holder name used by name-based transfer patterns")

	_ = c.v.BindPFlag(config.KeyVerbose, flags.Lookup("verbose"))
	_ = c.v.BindPFlag(config.KeyLogLevel, flags.Lookup("log-level"))
	_ = c.v.BindPFlag(config.KeyLogFormat, flags.Lookup("log-format"))
	_ = c.v.BindPFlag(config.KeyProfile, flags.Lookup("profile"))
	_ = c.v.BindPFlag(config.KeyDisplayName, flags.Lookup("display-name"))

	root.AddCommand(c.reconcileCmd())
	root.AddCommand(c.patternsCmd())
	root.AddCommand(versionCmd())

	return root
}

// Execute runs the CLI and returns the process exit code
func Execute(ctx context.Context) int {
	return run(ctx, os.Args[1:], os.Stdout, os.Stderr)
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	root := NewRootCmd()
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)

	err := root.ExecuteContext(ctx)
	verbose, _ := root.PersistentFlags().GetBool("verbose")
	return NewCLIErrorHandler(stderr, verbose).HandleError(err)
}

// initConfig reads the optional config file and sets up the global logger
func (c *cli) initConfig(_ *cobra.Command, _ []string) error {
	config.Configure(c.v)

	if c.cfgFile != "" {
		c.v.SetConfigFile(c.cfgFile)
		if err := c.v.ReadInConfig(); err != nil {
			if _, statErr := os.Stat(c.cfgFile); statErr != nil {
				return errors.FileError(errors.CodeFileNotFound, c.cfgFile, statErr)
			}
			return errors.ConfigurationError(errors.CodeInvalidConfig, "config", c.cfgFile, err).
				WithSuggestion("Check the config file syntax")
		}
	}

	logConfig, err := config.CreateLoggerConfig(c.v)
	if err != nil {
		return err
	}
	log, err := logger.NewLogger(logConfig)
	if err != nil {
		return errors.ConfigurationError(errors.CodeInvalidConfig, "log", nil, err)
	}
	logger.SetGlobalLogger(log)
	c.log = log.WithComponent("cli")

	if c.cfgFile != "" {
		c.log.WithField("file", c.v.ConfigFileUsed()).Debug("Using config file")
	}
	return nil
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "reconciler %s (commit %s, built %s)\n", version, commit, date)
		},
	}
}

// SetVersionInfo sets the version information for the CLI
func SetVersionInfo(v, c, d string) {
	version = v
	commit = c
	date = d
}

func getVersionString() string {
	if version == "dev" {
		return fmt.Sprintf("%s (commit %s, built %s)", version, commit, date)
	}
	return version
}
