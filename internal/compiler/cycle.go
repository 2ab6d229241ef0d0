package compiler

import (
	"fmt"
	"strings"

	"github.com/roach88/p4ir/internal/ir"
)

// CycleWarning represents a loop or dead state in a parser graph.
//
// Loops are warnings, not errors, because they may be intentional:
//   - Header stacks parsed one element per iteration
//   - Option lists (IPv4, TCP) walked until an end marker
type CycleWarning struct {
	Parser  string   `json:"parser"`
	Path    []string `json:"path"`    // Cycle path: ["parse_opt", "parse_opt"]
	Message string   `json:"message"` // Human-readable description
	Level   string   `json:"level"`   // "warning" or "info"
}

// AnalyzeProgram runs AnalyzeParser over every concrete parser of the program.
func AnalyzeProgram(p *Program) []CycleWarning {
	var out []CycleWarning
	for _, d := range p.Decls {
		if d.Kind == ir.DeclParser && d.Block != nil {
			out = append(out, AnalyzeParser(d)...)
		}
	}
	return out
}

// AnalyzeParser performs static loop analysis on one parser's state graph.
//
// The algorithm:
//  1. Build the state → successor graph from each transition's targets
//  2. Use Tarjan's algorithm to find strongly connected components
//  3. Report each SCC with size > 1 or self-loops as a loop warning
//  4. Report states unreachable from start at info level
//
// Terminal states are sinks and never part of a loop. Transitions to undeclared
// states are ignored here; the builder rejects them.
func AnalyzeParser(d ir.Declaration) []CycleWarning {
	if d.Block == nil || len(d.Block.States) == 0 {
		return []CycleWarning{}
	}
	graph, order := buildStateGraph(d.Block.States)

	var warnings []CycleWarning
	for _, scc := range tarjanSCC(graph, order) {
		if len(scc) > 1 || (len(scc) == 1 && hasSelfLoop(scc[0], graph)) {
			w := cycleSCCToWarning(scc, graph, order)
			w.Parser = d.Name
			warnings = append(warnings, w)
		}
	}

	reach := reachable(graph)
	for _, s := range order {
		if !reach[s] {
			warnings = append(warnings, CycleWarning{
				Parser:  d.Name,
				Path:    []string{s},
				Message: fmt.Sprintf("state %s is unreachable from start", s),
				Level:   "info",
			})
		}
	}
	if warnings == nil {
		return []CycleWarning{}
	}
	return warnings
}

// stateGraph maps a declared state to its declared successors.
type stateGraph map[string][]string

func buildStateGraph(states []ir.ParserState) (stateGraph, []string) {
	graph := make(stateGraph, len(states))
	order := make([]string, 0, len(states))
	for _, st := range states {
		if !ir.IsTerminalState(st.Name) {
			graph[st.Name] = []string{}
			order = append(order, st.Name)
		}
	}
	for _, st := range states {
		if _, ok := graph[st.Name]; !ok {
			continue
		}
		for _, next := range st.Select.Targets() {
			if _, declared := graph[next]; declared {
				graph[st.Name] = append(graph[st.Name], next)
			}
		}
	}
	return graph, order
}

func reachable(graph stateGraph) map[string]bool {
	seen := make(map[string]bool)
	if _, ok := graph[ir.StateStart]; !ok {
		return seen
	}
	stack := []string{ir.StateStart}
	seen[ir.StateStart] = true
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for _, m := range graph[n] {
			if !seen[m] {
				seen[m] = true
				stack = append(stack, m)
			}
		}
	}
	return seen
}

// hasSelfLoop checks if a node has an edge to itself.
func hasSelfLoop(node string, graph stateGraph) bool {
	for _, neighbor := range graph[node] {
		if neighbor == node {
			return true
		}
	}
	return false
}

// tarjanSCC finds strongly connected components using Tarjan's algorithm.
// Roots are visited in declaration order so results are deterministic.
//
// Returns a list of SCCs, where each SCC is a list of state names.
// Single-node SCCs without self-loops are NOT cycles.
func tarjanSCC(graph stateGraph, order []string) [][]string {
	var (
		index   = 0
		stack   []string
		indices = make(map[string]int)
		lowlink = make(map[string]int)
		onStack = make(map[string]bool)
		sccs    [][]string
	)

	var strongConnect func(string)
	strongConnect = func(v string) {
		// Set the depth index for v
		indices[v] = index
		lowlink[v] = index
		index++
		stack = append(stack, v)
		onStack[v] = true

		// Consider successors of v
		for _, w := range graph[v] {
			if _, visited := indices[w]; !visited {
				strongConnect(w)
				lowlink[v] = min(lowlink[v], lowlink[w])
			} else if onStack[w] {
				lowlink[v] = min(lowlink[v], indices[w])
			}
		}

		// If v is a root node, pop the stack and create an SCC
		if lowlink[v] == indices[v] {
			var scc []string
			for {
				w := stack[len(stack)-1]
				stack = stack[:len(stack)-1]
				onStack[w] = false
				scc = append(scc, w)
				if w == v {
					break
				}
			}
			sccs = append(sccs, scc)
		}
	}

	for _, node := range order {
		if _, visited := indices[node]; !visited {
			strongConnect(node)
		}
	}

	return sccs
}

// cycleSCCToWarning converts an SCC to a CycleWarning. The path starts at the
// member declared first.
func cycleSCCToWarning(scc []string, graph stateGraph, order []string) CycleWarning {
	if len(scc) == 1 {
		s := scc[0]
		return CycleWarning{
			Path:    []string{s, s},
			Message: fmt.Sprintf("Self-looping parser state: %s → %s", s, s),
			Level:   "warning",
		}
	}

	path := reconstructCyclePath(scc, graph, order)
	return CycleWarning{
		Path:    path,
		Message: fmt.Sprintf("Parser loop: %s", strings.Join(path, " → ")),
		Level:   "warning",
	}
}

// reconstructCyclePath builds a cycle path from an SCC.
//
// Strategy: Start at the first SCC member in declaration order, follow edges to
// other SCC members, continue until we return to start.
func reconstructCyclePath(scc []string, graph stateGraph, order []string) []string {
	if len(scc) == 0 {
		return []string{}
	}

	sccSet := make(map[string]bool)
	for _, node := range scc {
		sccSet[node] = true
	}

	start := scc[0]
	for _, s := range order {
		if sccSet[s] {
			start = s
			break
		}
	}
	current := start
	path := []string{current}
	visited := make(map[string]bool)

	for {
		visited[current] = true

		var next string
		for _, neighbor := range graph[current] {
			if sccSet[neighbor] && (!visited[neighbor] || neighbor == start) {
				next = neighbor
				break
			}
		}

		if next == "" {
			break
		}

		path = append(path, next)

		if next == start {
			break
		}

		current = next
	}

	return path
}
