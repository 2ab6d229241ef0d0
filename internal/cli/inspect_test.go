package cli

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInspect_ParserText(t *testing.T) {
	out, _, err := run(t, NewInspectCommand(&RootOptions{Format: "text"}), programPath("select"))
	require.NoError(t, err)

	assert.Contains(t, out, "Program select (v1model)")
	assert.Contains(t, out, "main = V1Switch<Parsed_packet, Metadata>")
	assert.Contains(t, out, "parser p")
	assert.Regexp(t, `start\s+112 bits → parse_h, accept\n`, out)
	assert.Regexp(t, `parse_h\s+8 bits → accept, parse_h \(may NoMatch\)`, out)
	assert.Regexp(t, `orphan\s+0 bits → reject \(unreachable\)`, out)
}

func TestInspect_ControlText(t *testing.T) {
	out, _, err := run(t, NewInspectCommand(&RootOptions{Format: "text"}), programPath("regression"))
	require.NoError(t, err)

	assert.Contains(t, out, "control ingress")
	assert.Regexp(t, `apply\[0\]\s+\S+ → do_action_0`, out)
	assert.NotContains(t, out, "match kinds:")
}

func TestInspect_Types(t *testing.T) {
	out, _, err := run(t, NewInspectCommand(&RootOptions{Format: "text"}), programPath("regression"),
		"--type", "Parsed_packet", "--type", "ethernet_t", "--type", "nosuch")
	require.NoError(t, err)

	assert.Contains(t, out, "Parsed_packet: 120 bits")
	assert.Contains(t, out, "ethernet_t: 112 bits")
	assert.Contains(t, out, "✗ nosuch:")
}

func TestInspect_JSON(t *testing.T) {
	out, _, err := run(t, NewInspectCommand(&RootOptions{Format: "json"}), programPath("select"), "--type", "H")
	require.NoError(t, err)

	var resp struct {
		Status string `json:"status"`
		Data   struct {
			Program    string              `json:"program"`
			Package    map[string]any      `json:"package"`
			Parsers    []map[string]any    `json:"parsers"`
			Controls   []map[string]any    `json:"controls"`
			MatchKinds []string            `json:"match_kinds"`
			Types      map[string]TypeInfo `json:"types"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, "select", resp.Data.Program)
	assert.Equal(t, "main", resp.Data.Package["name"])

	require.Len(t, resp.Data.Parsers, 1)
	assert.Equal(t, "p", resp.Data.Parsers[0]["name"])
	assert.Len(t, resp.Data.Parsers[0]["states"], 3)

	names := make([]string, len(resp.Data.Controls))
	for i, c := range resp.Data.Controls {
		names[i], _ = c["name"].(string)
	}
	assert.Equal(t, []string{"deparser", "ingress", "egress", "vrfy", "update"}, names)

	assert.Contains(t, resp.Data.MatchKinds, "exact")
	assert.Equal(t, TypeInfo{Width: 8}, resp.Data.Types["H"])
}

func TestInspect_BuildFailure(t *testing.T) {
	_, _, err := run(t, NewInspectCommand(&RootOptions{Format: "text"}), programPath("bad_keyset"))
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
}
