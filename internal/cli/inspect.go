package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/p4ir/internal/ir"
	"github.com/roach88/p4ir/internal/table"
)

// InspectOptions holds flags for the inspect command.
type InspectOptions struct {
	*RootOptions
	Arch  string
	Types []string
}

// InspectOutput is the data payload of inspect.
type InspectOutput struct {
	Program    string              `json:"program"`
	Arch       string              `json:"arch"`
	Package    map[string]any      `json:"package"`
	Parsers    []*ir.ParserGraph   `json:"parsers"`
	Controls   []*ir.ControlModel  `json:"controls"`
	MatchKinds []string            `json:"match_kinds"`
	Types      map[string]TypeInfo `json:"types,omitempty"`
}

// TypeInfo is the layout of one named type.
type TypeInfo struct {
	Width int    `json:"width,omitempty"`
	Error string `json:"error,omitempty"`
}

// NewInspectCommand creates the inspect command.
func NewInspectCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &InspectOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "inspect <program.cue>",
		Short: "Show the checked parsers, controls and type layouts of a program",
		Long: `Build a program and show what the builder resolved.

Parser states are listed with their extraction widths, successors and whether
a select can fail with NoMatch. Controls are listed with their actions and
the declaration each call resolved to. --type reports the bit width of a
named type and may be repeated.

Examples:
  p4ir inspect program.cue
  p4ir inspect program.cue --type Parsed_packet --type ethernet_t`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInspect(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Arch, "arch", "", "architecture prelude (overrides the program's arch)")
	cmd.Flags().StringArrayVar(&opts.Types, "type", nil, "report the width of a named type")

	return cmd
}

func runInspect(opts *InspectOptions, path string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	c, err := compileFile(path, opts.Arch, opts.config().Build.Arch, opts.logger())
	if err != nil {
		return outputLoadError(formatter, err)
	}
	if !c.OK() {
		return outputFailure(formatter, c)
	}

	out := InspectOutput{
		Program:    c.Name,
		Arch:       c.Arch,
		Parsers:    []*ir.ParserGraph{},
		Controls:   []*ir.ControlModel{},
		MatchKinds: c.Program.View.MatchKinds(),
	}
	if c.Program.Main != nil {
		out.Package = ir.Snapshot(c.Program.Main)
	}

	// Declaration order, not map order.
	for _, d := range c.Decls {
		if g, ok := c.Program.Parsers[d.Name]; ok && d.Kind == ir.DeclParser {
			out.Parsers = append(out.Parsers, g)
		}
		if m, ok := c.Program.Controls[d.Name]; ok && d.Kind == ir.DeclControl {
			out.Controls = append(out.Controls, m)
		}
	}

	if len(opts.Types) > 0 {
		out.Types = make(map[string]TypeInfo, len(opts.Types))
		for _, name := range opts.Types {
			w, err := table.Width(c.Program.View, ir.Named(name))
			if err != nil {
				out.Types[name] = TypeInfo{Error: err.Error()}
				continue
			}
			out.Types[name] = TypeInfo{Width: w}
		}
	}

	if formatter.Format == "json" {
		return formatter.Success(out)
	}
	outputInspectText(formatter, c, out, opts.Types)
	return nil
}

func outputInspectText(formatter *OutputFormatter, c *Compiled, out InspectOutput, types []string) {
	w := formatter.Writer
	fmt.Fprintf(w, "Program %s (%s)\n", out.Program, archLabel(out.Arch))

	if pkg := c.Program.Main; pkg != nil {
		fmt.Fprintf(w, "\n%s = %s\n", pkg.Name, packageType(pkg))
		for _, s := range pkg.Stages {
			fmt.Fprintf(w, "  %s\n", stageLine(s))
		}
	}

	for _, g := range out.Parsers {
		fmt.Fprintf(w, "\nparser %s\n", g.Name)
		unreachable := make(map[string]bool)
		for _, s := range g.Unreachable() {
			unreachable[s] = true
		}
		for i := range g.States {
			st := &g.States[i]
			next := st.Select.Targets()
			var notes []string
			if !st.HasDefault {
				notes = append(notes, "may NoMatch")
			}
			if unreachable[st.Name] {
				notes = append(notes, "unreachable")
			}
			line := fmt.Sprintf("  %-12s %4d bits → %s", st.Name, st.ExtractedWidth(), strings.Join(next, ", "))
			if len(notes) > 0 {
				line += " (" + strings.Join(notes, "; ") + ")"
			}
			fmt.Fprintln(w, line)
		}
	}

	for _, m := range out.Controls {
		fmt.Fprintf(w, "\ncontrol %s\n", m.Name)
		if len(m.Actions) > 0 {
			fmt.Fprintf(w, "  actions: %s\n", strings.Join(m.Actions, ", "))
		}
		for _, t := range m.Tables {
			keys := make([]string, len(t.Keys))
			for i, k := range t.Keys {
				keys[i] = fmt.Sprintf("%s (%s)", k.Expr, k.MatchKind)
			}
			actions := make([]string, len(t.Actions))
			for i, a := range t.Actions {
				actions[i] = a.Name
			}
			fmt.Fprintf(w, "  table %s [%s] → %s\n", t.Name, strings.Join(keys, ", "), strings.Join(actions, ", "))
		}
		for _, call := range m.Calls {
			fmt.Fprintf(w, "  %-12s %s → %s\n", call.Where, call.Callee, call.Target)
		}
	}

	if len(types) > 0 {
		fmt.Fprintln(w, "\ntypes")
		for _, name := range types {
			info := out.Types[name]
			if info.Error != "" {
				fmt.Fprintf(w, "  %s %s: %s\n", Mark(false), name, info.Error)
				continue
			}
			fmt.Fprintf(w, "  %s: %d bits\n", name, info.Width)
		}
	}

	if formatter.Verbose {
		fmt.Fprintf(w, "\nmatch kinds: %s\n", strings.Join(out.MatchKinds, ", "))
	}
}
