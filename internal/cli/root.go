package cli

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose    bool
	Format     string // "json" | "text"
	LogLevel   string
	ConfigPath string
	NoColor    bool

	// Config and Logger are set before any subcommand runs.
	Config *Config
	Logger *slog.Logger
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the p4ir CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "p4ir",
		Short: "p4ir - packet pipeline IR builder",
		Long: `Build the intermediate representation of packet-processing programs.

Programs are CUE documents declaring headers, parsers, controls and a main
package instance. p4ir checks them against an architecture prelude, resolves
overloads and generics, and records every successful build.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return opts.setup(cmd)
		},
	}

	// Global flags
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().StringVar(&opts.LogLevel, "log-level", "warn", "log level (debug|info|warn|error)")
	cmd.PersistentFlags().StringVar(&opts.ConfigPath, "config", "", "config file (default: p4ir.toml found from the working directory up)")
	cmd.PersistentFlags().BoolVar(&opts.NoColor, "no-color", false, "disable coloured output")

	// Add subcommands
	cmd.AddCommand(NewBuildCommand(opts))
	cmd.AddCommand(NewValidateCommand(opts))
	cmd.AddCommand(NewInspectCommand(opts))
	cmd.AddCommand(NewHistoryCommand(opts))
	cmd.AddCommand(NewShowCommand(opts))
	cmd.AddCommand(NewTestCommand(opts))

	return cmd
}

// setup loads the config and applies it beneath explicitly set flags.
func (opts *RootOptions) setup(cmd *cobra.Command) error {
	cfg, err := resolveConfig(opts.ConfigPath)
	if err != nil {
		return WrapExitError(ExitCommandError, "loading config", err)
	}
	opts.Config = cfg

	flags := cmd.Flags()
	if !flags.Changed("format") && cfg.Build.Format != "" {
		opts.Format = cfg.Build.Format
	}
	if !flags.Changed("log-level") && cfg.Log.Level != "" {
		opts.LogLevel = cfg.Log.Level
	}

	// Validate format flag
	if !isValidFormat(opts.Format) {
		return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
	}

	level, err := parseLogLevel(opts.LogLevel)
	if err != nil {
		return err
	}
	if opts.Verbose {
		level = slog.LevelDebug
	}
	opts.Logger = newLogger(cmd.ErrOrStderr(), level)

	if opts.NoColor || opts.Format == "json" {
		color.NoColor = true
	}
	return nil
}

// logger returns the configured logger, or a discard logger when setup has not run.
func (opts *RootOptions) logger() *slog.Logger {
	if opts.Logger != nil {
		return opts.Logger
	}
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// config returns the loaded config, or an empty one when setup has not run.
func (opts *RootOptions) config() *Config {
	if opts.Config != nil {
		return opts.Config
	}
	return &Config{}
}

func newLogger(w io.Writer, level slog.Level) *slog.Logger {
	if w == nil {
		w = os.Stderr
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

func parseLogLevel(s string) (slog.Level, error) {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return 0, fmt.Errorf("invalid log level %q: must be one of debug, info, warn, error", s)
}

// isValidFormat checks if the format is one of the allowed values.
func isValidFormat(format string) bool {
	return slices.Contains(ValidFormats, format)
}
