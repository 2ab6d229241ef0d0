package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/p4ir/internal/compiler"
	"github.com/roach88/p4ir/internal/ir"
	"github.com/roach88/p4ir/internal/store"
)

// BuildOptions holds flags for the build command.
type BuildOptions struct {
	*RootOptions
	Arch   string // architecture prelude override
	Output string // canonical JSON output path
	Emit   string // msgpack artifact path
	DB     string // build history database
}

// BuildOutput is the data payload of a successful build.
type BuildOutput struct {
	Program     string         `json:"program"`
	Arch        string         `json:"arch"`
	Package     map[string]any `json:"package"`
	Fingerprint string         `json:"fingerprint"`
	Warnings    []string       `json:"warnings,omitempty"`
	BuildID     string         `json:"build_id,omitempty"`
	Seq         int64          `json:"seq,omitempty"`
	Unchanged   bool           `json:"unchanged,omitempty"`
	PreviousID  string         `json:"previous_id,omitempty"`
}

// NewBuildCommand creates the build command.
func NewBuildCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &BuildOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "build <program.cue>",
		Short: "Build a program and resolve its main package",
		Long: `Build a CUE program against its architecture prelude.

The program is validated, every declaration is checked in order, and the
main package instance is resolved to its pipeline stages. Successful builds
are recorded in the build history when a database is configured.

Examples:
  p4ir build program.cue
  p4ir build program.cue --arch v1model -o package.json
  p4ir build program.cue --emit package.mp --db p4ir.db`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true, // Don't print usage on errors - we handle our own error output
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBuild(cmd.Context(), opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Arch, "arch", "", "architecture prelude (overrides the program's arch)")
	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "write the resolved package as canonical JSON")
	cmd.Flags().StringVar(&opts.Emit, "emit", "", "write the resolved package as a msgpack artifact")
	cmd.Flags().StringVar(&opts.DB, "db", "", "build history database (default: [store].path from config)")

	return cmd
}

func runBuild(ctx context.Context, opts *BuildOptions, path string, cmd *cobra.Command) error {
	if ctx == nil {
		ctx = context.Background()
	}
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(), // Verbose logs go to stderr to avoid corrupting JSON
		Verbose:   opts.Verbose,
	}
	cfg := opts.config()

	c, err := compileFile(path, opts.Arch, cfg.Build.Arch, opts.logger())
	if err != nil {
		return outputLoadError(formatter, err)
	}
	formatter.VerboseLog("Loaded %s: %d declaration(s) with prelude %q", c.Name, len(c.Decls), c.Arch)
	if !c.OK() {
		return outputFailure(formatter, c)
	}

	rec, err := store.NewBuild(c.Name, c.Arch, c.Decls, c.Program.Main)
	if err != nil {
		return outputCommandError(formatter, ErrCodeGeneric, err.Error())
	}
	out := BuildOutput{
		Program:     c.Name,
		Arch:        c.Arch,
		Package:     ir.Snapshot(c.Program.Main),
		Fingerprint: rec.Fingerprint,
		Warnings:    warningMessages(c),
	}

	if opts.Output != "" {
		data, err := ir.MarshalCanonical(out.Package)
		if err == nil {
			err = os.WriteFile(opts.Output, append(data, '\n'), 0644)
		}
		if err != nil {
			return outputCommandError(formatter, ErrCodeWriteFailed, fmt.Sprintf("writing output file: %v", err))
		}
		formatter.VerboseLog("Wrote canonical package to %s", opts.Output)
	}
	if opts.Emit != "" {
		if err := WriteArtifact(opts.Emit, NewArtifact(rec)); err != nil {
			return outputCommandError(formatter, ErrCodeWriteFailed, fmt.Sprintf("writing artifact: %v", err))
		}
		formatter.VerboseLog("Wrote artifact to %s", opts.Emit)
	}

	dbPath := opts.DB
	if dbPath == "" {
		dbPath = cfg.Store.Path
	}
	if dbPath != "" {
		if err := recordBuild(ctx, dbPath, rec, &out); err != nil {
			return outputCommandError(formatter, ErrCodeStoreFailed, err.Error())
		}
	}

	if formatter.Format == "json" {
		return formatter.Success(out)
	}
	return outputBuildText(formatter, c, out, opts)
}

// recordBuild appends rec to the history and notes whether the package changed
// since the program's previous build.
func recordBuild(ctx context.Context, dbPath string, rec store.Build, out *BuildOutput) error {
	st, err := store.Open(dbPath)
	if err != nil {
		return fmt.Errorf("opening build history: %w", err)
	}
	defer st.Close()

	prev, ok, err := st.Latest(ctx, rec.Program)
	if err != nil {
		return fmt.Errorf("reading build history: %w", err)
	}
	saved, err := st.RecordBuild(ctx, rec)
	if err != nil {
		return fmt.Errorf("recording build: %w", err)
	}
	out.BuildID = saved.ID
	out.Seq = saved.Seq
	if ok && prev.Fingerprint == saved.Fingerprint {
		out.Unchanged = true
		out.PreviousID = prev.ID
	}
	return nil
}

func outputBuildText(formatter *OutputFormatter, c *Compiled, out BuildOutput, opts *BuildOptions) error {
	w := formatter.Writer
	pkg := c.Program.Main
	fmt.Fprintf(w, "%s Built %s (%s)\n\n", Mark(true), c.Name, archLabel(c.Arch))
	fmt.Fprintf(w, "%s = %s\n", pkg.Name, packageType(pkg))
	for _, s := range pkg.Stages {
		fmt.Fprintf(w, "  %s\n", stageLine(s))
	}
	fmt.Fprintln(w)
	for _, msg := range out.Warnings {
		fmt.Fprintf(w, "%s %s\n", Warn("warning:"), msg)
	}
	fmt.Fprintf(w, "Fingerprint: %s\n", out.Fingerprint)

	if out.BuildID != "" {
		fmt.Fprintf(w, "Recorded build %s (#%d)", out.BuildID, out.Seq)
		if out.Unchanged {
			fmt.Fprintf(w, ", package unchanged since %s", out.PreviousID)
		}
		fmt.Fprintln(w)
	}
	if opts.Output != "" {
		fmt.Fprintf(w, "Wrote canonical package to %s\n", opts.Output)
	}
	if opts.Emit != "" {
		fmt.Fprintf(w, "Wrote artifact to %s\n", opts.Emit)
	}
	return nil
}

// =============================================================================
// Shared output helpers
// =============================================================================

func archLabel(arch string) string {
	if arch == "" {
		return "no prelude"
	}
	return arch
}

func packageType(p *ir.ResolvedPackage) string {
	if len(p.TypeArgs) == 0 {
		return p.Package
	}
	args := make([]string, len(p.TypeArgs))
	for i, t := range p.TypeArgs {
		args[i] = t.String()
	}
	return fmt.Sprintf("%s<%s>", p.Package, strings.Join(args, ", "))
}

func stageLine(s ir.Stage) string {
	decl := "<none>"
	if s.Decl != nil {
		decl = s.Decl.Name
	}
	return fmt.Sprintf("%-4s %s → %s", s.Param+":", s.RoleType, decl)
}

func warningMessages(c *Compiled) []string {
	var out []string
	for _, w := range c.Warnings {
		if w.Level == "warning" {
			out = append(out, fmt.Sprintf("parser %s: %s", w.Parser, w.Message))
		}
	}
	return out
}

// outputLoadError reports a program that could not be read or decoded.
func outputLoadError(formatter *OutputFormatter, err error) error {
	var loadErr *LoadError
	if errors.As(err, &loadErr) {
		if formatter.Format != "json" && loadErr.Pos.IsValid() {
			fmt.Fprintf(formatter.Writer, "%s:%d:%d\n", loadErr.Pos.Filename(), loadErr.Pos.Line(), loadErr.Pos.Column())
		}
		return outputCommandError(formatter, loadErr.Code, loadErr.Message)
	}
	return outputCommandError(formatter, ErrCodeGeneric, err.Error())
}

// outputCommandError outputs a single command-level error (exit code 2).
func outputCommandError(formatter *OutputFormatter, code, message string) error {
	_ = formatter.Error(code, message, nil)
	return WrapExitError(ExitCommandError, fmt.Sprintf("%s: %s", code, message), nil)
}

// outputFailure reports validation errors or the build error of c (exit code 1).
func outputFailure(formatter *OutputFormatter, c *Compiled) error {
	if len(c.Validation) > 0 {
		return outputValidationErrors(formatter, c.Path, c.Validation)
	}

	code, message := ErrCodeGeneric, c.Err.Error()
	var details any
	if c.BuildError != nil {
		code = string(c.BuildError.Kind)
		details = c.BuildError
	}
	if formatter.Format == "json" {
		_ = formatter.Error(code, message, details)
	} else {
		fmt.Fprintf(formatter.Writer, "%s Build failed: %s\n\n", Mark(false), c.Path)
		fmt.Fprintf(formatter.Writer, "  %s: %s\n", code, message)
	}
	return WrapExitError(ExitFailure, "build failed", c.Err)
}

// outputValidationErrors outputs collect-all validation errors (exit code 1).
func outputValidationErrors(formatter *OutputFormatter, path string, errs []compiler.ValidationError) error {
	if formatter.Format == "json" {
		_ = formatter.Error(errs[0].Code, fmt.Sprintf("validation failed with %d error(s)", len(errs)), errs)
	} else {
		fmt.Fprintf(formatter.Writer, "%s Validation failed: %s\n\n", Mark(false), path)
		for _, e := range errs {
			if e.Line > 0 {
				fmt.Fprintf(formatter.Writer, "  [%s] line %d: %s: %s\n", e.Code, e.Line, e.Field, e.Message)
			} else {
				fmt.Fprintf(formatter.Writer, "  [%s] %s: %s\n", e.Code, e.Field, e.Message)
			}
		}
	}
	return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(errs)))
}
