package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/p4ir/internal/store"
)

// HistoryOptions holds flags for the history and show commands.
type HistoryOptions struct {
	*RootOptions
	DB          string
	Program     string
	Fingerprint string
}

// HistoryEntry is one build in the history listing. The package snapshot and
// declaration catalogue are left to show.
type HistoryEntry struct {
	ID          string `json:"id"`
	Seq         int64  `json:"seq"`
	Program     string `json:"program"`
	Arch        string `json:"arch"`
	Package     string `json:"package"`
	Fingerprint string `json:"fingerprint"`
	DeclCount   int    `json:"decl_count"`
}

// NewHistoryCommand creates the history command.
func NewHistoryCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &HistoryOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recorded builds",
		Long: `List the builds recorded in the build history, oldest first.

With --fingerprint only builds whose resolved package hashed to the given
fingerprint are listed: the same package built from different sources or at
different times.

Examples:
  p4ir history --db p4ir.db
  p4ir history --program regression --format json
  p4ir history --fingerprint 3f9a...e21c`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHistory(cmd.Context(), opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.DB, "db", "", "build history database (default: [store].path from config)")
	cmd.Flags().StringVar(&opts.Program, "program", "", "only list builds of this program")
	cmd.Flags().StringVar(&opts.Fingerprint, "fingerprint", "", "only list builds with this package fingerprint")

	return cmd
}

// NewShowCommand creates the show command.
func NewShowCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &HistoryOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "show <build-id | artifact.mp>",
		Short: "Show one recorded build or emitted artifact",
		Long: `Show a recorded build: its fingerprints, versions, declaration catalogue
and the resolved package it produced. An argument naming an existing file is
read as an artifact written by build --emit instead, and needs no database.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runShow(cmd.Context(), opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.DB, "db", "", "build history database (default: [store].path from config)")

	return cmd
}

// openHistory opens an existing build history database.
func openHistory(opts *HistoryOptions) (*store.Store, error) {
	path := opts.DB
	if path == "" {
		path = opts.config().Store.Path
	}
	if path == "" {
		return nil, NewExitError(ExitCommandError, "no build history database: use --db or set [store].path")
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, NewExitError(ExitCommandError, fmt.Sprintf("database not found: %s", path))
	}
	st, err := store.Open(path)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "opening build history", err)
	}
	return st, nil
}

func runHistory(ctx context.Context, opts *HistoryOptions, cmd *cobra.Command) error {
	if ctx == nil {
		ctx = context.Background()
	}
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	st, err := openHistory(opts)
	if err != nil {
		_ = formatter.Error(ErrCodeStoreFailed, err.Error(), nil)
		return err
	}
	defer st.Close()

	var builds []store.Build
	if opts.Fingerprint != "" {
		builds, err = buildsWithFingerprint(ctx, st, opts.Fingerprint, opts.Program)
	} else {
		builds, err = st.Builds(ctx, opts.Program)
	}
	if err != nil {
		return outputCommandError(formatter, ErrCodeStoreFailed, err.Error())
	}
	entries := make([]HistoryEntry, len(builds))
	for i, b := range builds {
		entries[i] = HistoryEntry{
			ID:          b.ID,
			Seq:         b.Seq,
			Program:     b.Program,
			Arch:        b.Arch,
			Package:     b.Package,
			Fingerprint: b.Fingerprint,
			DeclCount:   b.DeclCount,
		}
	}

	if formatter.Format == "json" {
		return formatter.Success(entries)
	}

	w := formatter.Writer
	if len(entries) == 0 {
		fmt.Fprintln(w, "No builds recorded.")
		return nil
	}
	for _, e := range entries {
		fmt.Fprintf(w, "#%-4d %s  %-16s %-8s %-10s %s\n",
			e.Seq, e.ID, e.Program, archLabel(e.Arch), e.Package, shortHash(e.Fingerprint))
	}
	return nil
}

// buildsWithFingerprint loads the builds that resolved to fp, optionally
// restricted to one program.
func buildsWithFingerprint(ctx context.Context, st *store.Store, fp, program string) ([]store.Build, error) {
	ids, err := st.BuildsWithFingerprint(ctx, fp)
	if err != nil {
		return nil, err
	}
	builds := make([]store.Build, 0, len(ids))
	for _, id := range ids {
		b, err := st.Build(ctx, id)
		if err != nil {
			return nil, err
		}
		if program == "" || b.Program == program {
			builds = append(builds, b)
		}
	}
	return builds, nil
}

func runShow(ctx context.Context, opts *HistoryOptions, id string, cmd *cobra.Command) error {
	if ctx == nil {
		ctx = context.Background()
	}
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	if info, err := os.Stat(id); err == nil && !info.IsDir() {
		return showArtifact(formatter, id)
	}

	st, err := openHistory(opts)
	if err != nil {
		_ = formatter.Error(ErrCodeStoreFailed, err.Error(), nil)
		return err
	}
	defer st.Close()

	b, err := st.Build(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return outputCommandError(formatter, ErrCodeNotFound, fmt.Sprintf("build not found: %s", id))
	}
	if err != nil {
		return outputCommandError(formatter, ErrCodeStoreFailed, err.Error())
	}

	if formatter.Format == "json" {
		return formatter.Success(b)
	}

	w := formatter.Writer
	fmt.Fprintf(w, "Build %s (#%d)\n", b.ID, b.Seq)
	fmt.Fprintf(w, "  program:      %s (%s)\n", b.Program, archLabel(b.Arch))
	fmt.Fprintf(w, "  package:      %s\n", b.Package)
	fmt.Fprintf(w, "  fingerprint:  %s\n", b.Fingerprint)
	fmt.Fprintf(w, "  catalogue:    %s\n", b.CatalogueHash)
	fmt.Fprintf(w, "  versions:     ir %s, builder %s\n", b.IRVersion, b.BuilderVersion)
	fmt.Fprintf(w, "  declarations: %d\n", b.DeclCount)
	if formatter.Verbose {
		for _, d := range b.Decls {
			fmt.Fprintf(w, "    %-14s %s\n", d.Kind, d.Name)
		}
	}

	return printSnapshot(formatter, ErrCodeStoreFailed, []byte(b.Snapshot))
}

func showArtifact(formatter *OutputFormatter, path string) error {
	a, err := ReadArtifact(path)
	if err != nil {
		return outputCommandError(formatter, ErrCodeArtifact, err.Error())
	}

	if formatter.Format == "json" {
		var pkg map[string]any
		if err := json.Unmarshal(a.Package, &pkg); err != nil {
			return outputCommandError(formatter, ErrCodeArtifact, fmt.Sprintf("corrupt snapshot: %v", err))
		}
		return formatter.Success(map[string]any{
			"program":         a.Program,
			"arch":            a.Arch,
			"fingerprint":     a.Fingerprint,
			"catalogue_hash":  a.CatalogueHash,
			"ir_version":      a.IRVersion,
			"builder_version": a.BuilderVersion,
			"package":         pkg,
		})
	}

	w := formatter.Writer
	fmt.Fprintf(w, "Artifact %s\n", path)
	fmt.Fprintf(w, "  program:      %s (%s)\n", a.Program, archLabel(a.Arch))
	fmt.Fprintf(w, "  fingerprint:  %s\n", a.Fingerprint)
	fmt.Fprintf(w, "  catalogue:    %s\n", a.CatalogueHash)
	fmt.Fprintf(w, "  versions:     ir %s, builder %s\n", a.IRVersion, a.BuilderVersion)
	return printSnapshot(formatter, ErrCodeArtifact, a.Package)
}

// printSnapshot pretty-prints a canonical package snapshot.
func printSnapshot(formatter *OutputFormatter, code string, data []byte) error {
	var snapshot any
	if err := json.Unmarshal(data, &snapshot); err != nil {
		return outputCommandError(formatter, code, fmt.Sprintf("corrupt snapshot: %v", err))
	}
	pretty, err := json.MarshalIndent(snapshot, "", "  ")
	if err != nil {
		return err
	}
	fmt.Fprintf(formatter.Writer, "\n%s\n", pretty)
	return nil
}

// shortHash trims a hex fingerprint for listings.
func shortHash(h string) string {
	const keep = 12
	if len(h) > keep {
		return h[:keep]
	}
	return h
}
