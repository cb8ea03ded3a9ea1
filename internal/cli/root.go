package cli

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/roach88/spaghetti/internal/config"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose    bool
	Format     string // "json" | "text"
	ConfigPath string
	LogLevel   string
	LogFormat  string

	// Config and Logger are resolved in PersistentPreRunE. Commands
	// constructed on their own (tests) fall back to defaults.
	Config *config.Config
	Logger *slog.Logger

	closeLog func() error
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// settings returns the resolved configuration or the defaults.
func (o *RootOptions) settings() config.Config {
	if o.Config == nil {
		return config.Default()
	}
	return *o.Config
}

// logger returns the resolved logger or one that discards everything.
func (o *RootOptions) logger() *slog.Logger {
	if o.Logger == nil {
		return slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return o.Logger
}

// NewRootCommand creates the root command for the spaghetti CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "spaghetti",
		Short: "spaghetti - a deterministic dataflow engine",
		Long: `Compile, run, test and replay circuits of logic elements.

Circuits are package definitions written in CUE or HCL. Every tick the
engine evaluates each element once, in insertion order; feedback links
see the value from the previous tick.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !isValidFormat(opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			return opts.resolve(cmd)
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			if opts.closeLog == nil {
				return nil
			}
			return opts.closeLog()
		},
	}

	// Global flags
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().StringVar(&opts.ConfigPath, "config", "", "config file (default ./"+config.DefaultFile+" if present)")
	cmd.PersistentFlags().StringVar(&opts.LogLevel, "log-level", "", "log level (debug|info|warn|error)")
	cmd.PersistentFlags().StringVar(&opts.LogFormat, "log-format", "", "log format (text|json)")

	// Add subcommands
	cmd.AddCommand(NewCompileCommand(opts))
	cmd.AddCommand(NewValidateCommand(opts))
	cmd.AddCommand(NewTypesCommand(opts))
	cmd.AddCommand(NewRunCommand(opts))
	cmd.AddCommand(NewTestCommand(opts))
	cmd.AddCommand(NewTraceCommand(opts))
	cmd.AddCommand(NewReplayCommand(opts))

	return cmd
}

// resolve loads the config file and lays the log flags over it. Logs go to
// stderr, and to the log file when configured, so JSON output on stdout
// stays parseable.
func (o *RootOptions) resolve(cmd *cobra.Command) error {
	cfg, err := config.Load(o.ConfigPath)
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid configuration", err)
	}

	if o.LogLevel != "" {
		cfg.Log.Level = o.LogLevel
	}
	if o.Verbose {
		cfg.Log.Level = "debug"
	}
	if o.LogFormat != "" {
		cfg.Log.Format = o.LogFormat
	}
	if err := cfg.Validate(); err != nil {
		return WrapExitError(ExitCommandError, "invalid configuration", err)
	}

	w, closeLog, err := cfg.Log.Writer(cmd.ErrOrStderr())
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid configuration", err)
	}

	o.Config = &cfg
	o.Logger = cfg.Log.NewLogger(w)
	o.closeLog = closeLog
	return nil
}

// isValidFormat checks if the format is one of the allowed values.
func isValidFormat(format string) bool {
	for _, f := range ValidFormats {
		if f == format {
			return true
		}
	}
	return false
}
