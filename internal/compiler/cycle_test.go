package compiler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/p4ir/internal/ir"
)

func parserOf(states ...ir.ParserState) ir.Declaration {
	return ir.NewParser("p", nil, nil, states...)
}

func selectState(name string, cases ...string) ir.ParserState {
	st := ir.ParserState{Name: name, Select: ir.Transition{Keys: []ir.Expr{ir.Path("k")}}}
	for i, next := range cases {
		st.Select.Cases = append(st.Select.Cases, ir.SelectCase{Keyset: []ir.Expr{ir.Int(int64(i))}, Next: next})
	}
	return st
}

// TestAnalyzeParser_Empty tests that a parser without states produces no warnings.
func TestAnalyzeParser_Empty(t *testing.T) {
	warnings := AnalyzeParser(parserOf())
	assert.NotNil(t, warnings)
	assert.Empty(t, warnings)

	warnings = AnalyzeParser(ir.NewParserType("P", nil))
	assert.Empty(t, warnings, "prototypes have no graph")
}

// TestAnalyzeParser_DAG tests that an acyclic graph produces no warnings.
func TestAnalyzeParser_DAG(t *testing.T) {
	d := parserOf(
		selectState("start", "parse_ipv4", "parse_ipv6", "accept"),
		ir.State("parse_ipv4", "accept"),
		ir.State("parse_ipv6", "reject"),
	)
	warnings := AnalyzeParser(d)
	assert.Empty(t, warnings, "DAG should produce no warnings")
}

// TestAnalyzeParser_SelfLoop tests detection of a state that transitions to itself.
func TestAnalyzeParser_SelfLoop(t *testing.T) {
	d := parserOf(
		ir.State("start", "parse_opt"),
		selectState("parse_opt", "parse_opt", "accept"),
	)
	warnings := AnalyzeParser(d)
	require.Len(t, warnings, 1)
	w := warnings[0]
	assert.Equal(t, "p", w.Parser)
	assert.Equal(t, []string{"parse_opt", "parse_opt"}, w.Path)
	assert.Equal(t, "warning", w.Level)
	assert.Equal(t, "Self-looping parser state: parse_opt → parse_opt", w.Message)
}

// TestAnalyzeParser_MultiStateLoop tests detection of a loop through several states.
func TestAnalyzeParser_MultiStateLoop(t *testing.T) {
	d := parserOf(
		ir.State("start", "parse_a"),
		ir.State("parse_a", "parse_b"),
		selectState("parse_b", "parse_c", "accept"),
		ir.State("parse_c", "parse_a"),
	)
	warnings := AnalyzeParser(d)
	require.Len(t, warnings, 1)
	assert.Equal(t, []string{"parse_a", "parse_b", "parse_c", "parse_a"}, warnings[0].Path)
	assert.Equal(t, "Parser loop: parse_a → parse_b → parse_c → parse_a", warnings[0].Message)
}

// TestAnalyzeParser_LoopThroughStart tests that start itself can be part of a loop.
func TestAnalyzeParser_LoopThroughStart(t *testing.T) {
	d := parserOf(
		selectState("start", "next_hdr", "accept"),
		ir.State("next_hdr", "start"),
	)
	warnings := AnalyzeParser(d)
	require.Len(t, warnings, 1)
	assert.Equal(t, []string{"start", "next_hdr", "start"}, warnings[0].Path)
}

// TestAnalyzeParser_Unreachable tests info-level reporting of dead states.
func TestAnalyzeParser_Unreachable(t *testing.T) {
	d := parserOf(
		ir.State("start", "accept"),
		ir.State("orphan", "accept"),
		ir.State("orphan_loop", "orphan_loop"),
	)
	warnings := AnalyzeParser(d)
	require.Len(t, warnings, 3)

	assert.Equal(t, "warning", warnings[0].Level)
	assert.Equal(t, []string{"orphan_loop", "orphan_loop"}, warnings[0].Path)

	assert.Equal(t, "info", warnings[1].Level)
	assert.Equal(t, []string{"orphan"}, warnings[1].Path)
	assert.Equal(t, "state orphan is unreachable from start", warnings[1].Message)
	assert.Equal(t, []string{"orphan_loop"}, warnings[2].Path)
}

// TestAnalyzeParser_IgnoresUndeclaredTargets tests that dangling transitions are not edges.
func TestAnalyzeParser_IgnoresUndeclaredTargets(t *testing.T) {
	d := parserOf(
		selectState("start", "missing", "accept"),
	)
	assert.Empty(t, AnalyzeParser(d))
}

// TestAnalyzeParser_Deterministic tests that repeated runs give identical output.
func TestAnalyzeParser_Deterministic(t *testing.T) {
	d := parserOf(
		selectState("start", "a", "c"),
		selectState("a", "b", "accept"),
		ir.State("b", "a"),
		selectState("c", "d", "accept"),
		ir.State("d", "c"),
	)
	first := AnalyzeParser(d)
	require.Len(t, first, 2)
	assert.Equal(t, []string{"a", "b", "a"}, first[0].Path)
	assert.Equal(t, []string{"c", "d", "c"}, first[1].Path)
	for i := 0; i < 20; i++ {
		assert.Equal(t, first, AnalyzeParser(d))
	}
}

// TestAnalyzeProgram tests that only concrete parsers are analyzed.
func TestAnalyzeProgram(t *testing.T) {
	loop := ir.NewParser("loopy", nil, nil, ir.State("start", "start"))
	clean := ir.NewParser("clean", nil, nil, ir.State("start", "accept"))
	prog := &Program{Name: "x", Decls: []ir.Declaration{
		ir.NewParserType("P", nil),
		clean,
		loop,
		ir.NewControl("c", nil, nil),
	}}
	warnings := AnalyzeProgram(prog)
	require.Len(t, warnings, 1)
	assert.Equal(t, "loopy", warnings[0].Parser)
}

// =============================================================================
// tarjanSCC Tests
// =============================================================================

func TestTarjanSCC_SeparateComponents(t *testing.T) {
	graph := stateGraph{"a": {"b"}, "b": {"a"}, "c": {}}
	sccs := tarjanSCC(graph, []string{"a", "b", "c"})
	require.Len(t, sccs, 2)
	assert.ElementsMatch(t, []string{"a", "b"}, sccs[0])
	assert.Equal(t, []string{"c"}, sccs[1])
}

func TestHasSelfLoop(t *testing.T) {
	graph := stateGraph{"a": {"b", "a"}, "b": {}}
	assert.True(t, hasSelfLoop("a", graph))
	assert.False(t, hasSelfLoop("b", graph))
}

func TestReconstructCyclePath_Empty(t *testing.T) {
	assert.Equal(t, []string{}, reconstructCyclePath(nil, stateGraph{}, nil))
}
