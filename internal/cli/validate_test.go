package cli

import (
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidate_Valid(t *testing.T) {
	out, _, err := run(t, NewValidateCommand(&RootOptions{Format: "text"}), programPath("regression"), programPath("select"))
	require.NoError(t, err)

	assert.Contains(t, out, "✓ "+filepath.Clean(programPath("regression")))
	assert.Contains(t, out, "✓ "+filepath.Clean(programPath("select")))
	assert.Contains(t, out, "2 of 2 program(s) valid")
}

func TestValidate_LoopWarningShown(t *testing.T) {
	out, _, err := run(t, NewValidateCommand(&RootOptions{Format: "text"}), programPath("select"))
	require.NoError(t, err)
	assert.Contains(t, out, "warning: parser p")
	assert.NotContains(t, out, "info:", "reachability notes need --verbose")

	out, _, err = run(t, NewValidateCommand(&RootOptions{Format: "text", Verbose: true}), programPath("select"))
	require.NoError(t, err)
	assert.Contains(t, out, "info: parser p")
}

func TestValidate_Invalid(t *testing.T) {
	out, _, err := run(t, NewValidateCommand(&RootOptions{Format: "text"}),
		programPath("regression"), programPath("zero_width"), programPath("bad_keyset"))
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	assert.Contains(t, out, "✗ "+filepath.Clean(programPath("zero_width"))+": 1 validation error(s)")
	assert.Contains(t, out, "E106")
	assert.Contains(t, out, "TypeMismatch")
	assert.Contains(t, out, "1 of 3 program(s) valid")
}

func TestValidate_JSONKeepsArgumentOrder(t *testing.T) {
	paths := []string{programPath("bad_slice"), programPath("regression"), programPath("zero_width")}
	out, _, err := run(t, NewValidateCommand(&RootOptions{Format: "json"}), paths...)
	require.Error(t, err)

	var resp struct {
		Status string           `json:"status"`
		Data   ValidationResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.False(t, resp.Data.Valid)
	require.Len(t, resp.Data.Files, 3)

	for i, f := range resp.Data.Files {
		assert.Equal(t, filepath.Clean(paths[i]), f.Path)
	}
	bad := resp.Data.Files[0]
	require.NotNil(t, bad.BuildError)
	assert.Equal(t, "InvalidSlice", string(bad.BuildError.Kind))
	assert.Equal(t, "ingress", bad.BuildError.Decl)

	assert.True(t, resp.Data.Files[1].Valid)

	zero := resp.Data.Files[2]
	require.Len(t, zero.Errors, 1)
	assert.Equal(t, "E106", zero.Errors[0].Code)
}

func TestValidate_Serial(t *testing.T) {
	out, _, err := run(t, NewValidateCommand(&RootOptions{Format: "text"}), "-j", "1", programPath("regression"), programPath("select"))
	require.NoError(t, err)
	assert.Contains(t, out, "2 of 2 program(s) valid")
}

func TestValidate_LoadErrorIsCommandError(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "missing.cue")
	out, _, err := run(t, NewValidateCommand(&RootOptions{Format: "text"}), programPath("zero_width"), missing)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err), "load failures outrank invalid programs")
	assert.Contains(t, out, "program file not found")
}

func TestValidate_MissingArgs(t *testing.T) {
	_, _, err := run(t, NewValidateCommand(&RootOptions{Format: "text"}))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "requires at least 1 arg")
}
