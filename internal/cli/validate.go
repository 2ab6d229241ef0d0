package cli

import (
	"context"
	"errors"
	"fmt"
	"runtime"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/roach88/p4ir/internal/compiler"
	"github.com/roach88/p4ir/internal/ir"
)

// ValidateOptions holds flags for the validate command.
type ValidateOptions struct {
	*RootOptions
	Arch string
	Jobs int
}

// FileValidation is the outcome for one program file.
type FileValidation struct {
	Path       string                     `json:"path"`
	Valid      bool                       `json:"valid"`
	LoadError  string                     `json:"load_error,omitempty"`
	Errors     []compiler.ValidationError `json:"errors,omitempty"`
	BuildError *ir.BuildError             `json:"build_error,omitempty"`
	Warnings   []compiler.CycleWarning    `json:"warnings,omitempty"`
}

// ValidationResult holds validation results for all files.
type ValidationResult struct {
	Valid bool             `json:"valid"`
	Files []FileValidation `json:"files"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ValidateOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "validate <program.cue>...",
		Short: "Validate programs without recording builds",
		Long: `Validate CUE programs.

Each program is decoded, checked by collect-all static validation, and then
built fail-fast. Nothing is written. Programs are validated concurrently.`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true, // Don't print usage on errors
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(cmd.Context(), opts, args, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Arch, "arch", "", "architecture prelude (overrides each program's arch)")
	cmd.Flags().IntVarP(&opts.Jobs, "jobs", "j", 0, "programs validated at once (default GOMAXPROCS)")

	return cmd
}

func runValidate(ctx context.Context, opts *ValidateOptions, paths []string, cmd *cobra.Command) error {
	if ctx == nil {
		ctx = context.Background()
	}
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(), // Verbose logs go to stderr to avoid corrupting JSON
		Verbose:   opts.Verbose,
	}

	files, err := validateFiles(ctx, paths, opts)
	if err != nil {
		return outputCommandError(formatter, ErrCodeGeneric, err.Error())
	}

	result := ValidationResult{Valid: true, Files: files}
	loadFailed := false
	for _, f := range files {
		if !f.Valid {
			result.Valid = false
		}
		if f.LoadError != "" {
			loadFailed = true
		}
	}

	if formatter.Format == "json" {
		if err := formatter.Success(result); err != nil {
			return err
		}
	} else {
		outputValidateText(formatter, result)
	}

	switch {
	case loadFailed:
		return NewExitError(ExitCommandError, "one or more programs could not be loaded")
	case !result.Valid:
		return NewExitError(ExitFailure, "validation failed")
	}
	return nil
}

// validateFiles checks every path concurrently. Results keep argument order.
func validateFiles(ctx context.Context, paths []string, opts *ValidateOptions) ([]FileValidation, error) {
	jobs := opts.Jobs
	if jobs <= 0 {
		jobs = runtime.GOMAXPROCS(0)
	}
	archDefault := opts.config().Build.Arch
	logger := opts.logger()

	// Each goroutine owns one index.
	files := make([]FileValidation, len(paths))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(1, min(jobs, len(paths))))
	for i, path := range paths {
		g.Go(func() error {
			select {
			case <-gctx.Done():
				return gctx.Err()
			default:
			}

			fv := FileValidation{Path: path}
			c, err := compileFile(path, opts.Arch, archDefault, logger)
			if err != nil {
				var loadErr *LoadError
				if errors.As(err, &loadErr) {
					fv.LoadError = loadErr.Error()
				} else {
					fv.LoadError = err.Error()
				}
				files[i] = fv
				return nil
			}
			fv.Valid = c.OK()
			fv.Errors = c.Validation
			fv.BuildError = c.BuildError
			if c.BuildError == nil && c.Err != nil && len(c.Validation) == 0 {
				fv.BuildError = &ir.BuildError{Kind: "Unknown", Message: c.Err.Error()}
			}
			fv.Warnings = c.Warnings
			files[i] = fv
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return files, nil
}

func outputValidateText(formatter *OutputFormatter, result ValidationResult) {
	w := formatter.Writer
	for _, f := range result.Files {
		switch {
		case f.LoadError != "":
			fmt.Fprintf(w, "%s %s\n  %s\n", Mark(false), f.Path, f.LoadError)
		case len(f.Errors) > 0:
			fmt.Fprintf(w, "%s %s: %d validation error(s)\n", Mark(false), f.Path, len(f.Errors))
			for _, e := range f.Errors {
				fmt.Fprintf(w, "  %s\n", e.Error())
			}
		case f.BuildError != nil:
			fmt.Fprintf(w, "%s %s\n  %s\n", Mark(false), f.Path, f.BuildError.Error())
		default:
			fmt.Fprintf(w, "%s %s\n", Mark(true), f.Path)
		}
		for _, warn := range f.Warnings {
			if warn.Level == "warning" {
				fmt.Fprintf(w, "  %s parser %s: %s\n", Warn("warning:"), warn.Parser, warn.Message)
			} else if formatter.Verbose {
				fmt.Fprintf(w, "  info: parser %s: %s\n", warn.Parser, warn.Message)
			}
		}
	}

	valid := 0
	for _, f := range result.Files {
		if f.Valid {
			valid++
		}
	}
	fmt.Fprintf(w, "\n%d of %d program(s) valid\n", valid, len(result.Files))
}
