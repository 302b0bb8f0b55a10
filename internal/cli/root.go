// Package cli implements the swgmerchant command line.
package cli

import (
	"fmt"
	"slices"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/roach88/swgmerchant/internal/config"
	"github.com/roach88/swgmerchant/internal/ledger"
)

// RootOptions holds global flags and the state shared by all commands.
type RootOptions struct {
	Verbose    bool
	Format     string // "json" | "text"
	ConfigPath string
	Database   string // overrides database.path when set

	// Populated by PersistentPreRunE.
	Config *config.Config
	// Logger is built from the config unless already set (tests inject one).
	Logger *zap.Logger
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the swgmerchant CLI.
func NewRootCommand() *cobra.Command {
	return newRootCommand(&RootOptions{})
}

func newRootCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "swgmerchant",
		Short: "SWG merchant mail ledger",
		Long: `swgmerchant reads vendor sale and purchase mails exported by the game
client, classifies each item by crafting profession and category, and keeps
a SQLite ledger of sales, purchases and customers for reporting.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !isValidFormat(opts.Format) {
				return NewExitError(ExitCommandError,
					fmt.Sprintf("invalid format %q: must be one of %v", opts.Format, ValidFormats))
			}
			return opts.setup()
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if opts.Logger != nil {
				_ = opts.Logger.Sync()
			}
		},
	}

	cmd.SetFlagErrorFunc(func(c *cobra.Command, err error) error {
		return WrapExitError(ExitCommandError, "invalid flags", err)
	})

	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().StringVar(&opts.ConfigPath, "config", config.DefaultPath, "path to YAML config file")
	cmd.PersistentFlags().StringVar(&opts.Database, "db", "", "path to SQLite database (overrides config)")

	cmd.AddCommand(NewIngestCommand(opts))
	cmd.AddCommand(NewReportCommand(opts))
	cmd.AddCommand(NewRecommendCommand(opts))
	cmd.AddCommand(NewImportCSVCommand(opts))
	cmd.AddCommand(NewRunsCommand(opts))

	return cmd
}

// setup loads .env and the config file, applies flag overrides and builds
// the logger.
func (o *RootOptions) setup() error {
	if err := config.LoadDotEnv(); err != nil {
		return WrapExitError(ExitCommandError, "failed to load .env", err)
	}
	cfg, err := config.Load(o.ConfigPath)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load config", err)
	}
	if o.Database != "" {
		cfg.Database.Path = o.Database
	}
	if err := cfg.Validate(); err != nil {
		return WrapExitError(ExitCommandError, "invalid config", err)
	}
	o.Config = cfg

	if o.Logger == nil {
		logger, err := newLogger(cfg.Logging, o.Verbose)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to initialize logger", err)
		}
		o.Logger = logger
	}
	return nil
}

// newLogger builds a production zap logger writing to stderr. --verbose
// forces debug level.
func newLogger(cfg config.LoggingConfig, verbose bool) (*zap.Logger, error) {
	zc := zap.NewProductionConfig()
	zc.Encoding = cfg.Format
	if cfg.Format == "console" {
		zc.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
		zc.EncoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}
	if verbose {
		level = zapcore.DebugLevel
	}
	zc.Level = zap.NewAtomicLevelAt(level)
	return zc.Build()
}

// openLedger opens the configured database.
func (o *RootOptions) openLedger() (*ledger.Ledger, error) {
	return ledger.Open(o.Config.Database.Path, ledger.WithDriver(o.Config.Database.Driver))
}

func (o *RootOptions) formatter(cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:    o.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   o.Verbose,
	}
}

// isValidFormat checks if the format is one of the allowed values.
func isValidFormat(format string) bool {
	return slices.Contains(ValidFormats, format)
}
