package cli

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, ConfigFileName, `
[build]
arch = "v1model"
format = "json"

[store]
path = "builds/history.db"

[log]
level = "debug"
`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, path, cfg.Path)
	assert.Equal(t, "v1model", cfg.Build.Arch)
	assert.Equal(t, "json", cfg.Build.Format)
	assert.Equal(t, filepath.Join(dir, "builds", "history.db"), cfg.Store.Path)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestLoadConfig_KeepsAbsoluteAndMemoryPaths(t *testing.T) {
	dir := t.TempDir()
	abs := filepath.Join(t.TempDir(), "h.db")

	cfg, err := LoadConfig(writeFile(t, dir, "abs.toml", "[store]\npath = \""+filepath.ToSlash(abs)+"\"\n"))
	require.NoError(t, err)
	assert.Equal(t, filepath.ToSlash(abs), filepath.ToSlash(cfg.Store.Path))

	cfg, err = LoadConfig(writeFile(t, dir, "mem.toml", "[store]\npath = \":memory:\"\n"))
	require.NoError(t, err)
	assert.Equal(t, ":memory:", cfg.Store.Path)
}

func TestLoadConfig_Errors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{"bad_toml", "[build\narch = 1", "failed to parse TOML"},
		{"unknown_key", "[build]\nprelude = \"v1model\"\n", "unknown keys: build.prelude"},
		{"bad_format", "[build]\nformat = \"xml\"\n", "[build].format"},
		{"bad_level", "[log]\nlevel = \"loud\"\n", "[log].level"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeFile(t, t.TempDir(), ConfigFileName, tt.content)
			_, err := LoadConfig(path)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestFindConfig_WalksUp(t *testing.T) {
	root := t.TempDir()
	want := writeFile(t, root, ConfigFileName, "")
	nested := filepath.Join(root, "a", "b")
	require.NoError(t, os.MkdirAll(nested, 0755))

	got, ok, err := FindConfig(nested)
	require.NoError(t, err)
	require.True(t, ok)

	wantAbs, err := filepath.Abs(want)
	require.NoError(t, err)
	assert.Equal(t, wantAbs, got)
}

func TestResolveConfig_Explicit(t *testing.T) {
	path := writeFile(t, t.TempDir(), "custom.toml", "[build]\narch = \"core\"\n")

	cfg, err := resolveConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "core", cfg.Build.Arch)

	_, err = resolveConfig(filepath.Join(t.TempDir(), "missing.toml"))
	assert.Error(t, err)
}

func TestConfigArchIsFallback(t *testing.T) {
	dir := t.TempDir()
	// The program names no arch, so the config default applies.
	src, err := os.ReadFile(programPath("regression"))
	require.NoError(t, err)
	prog := writeFile(t, dir, "noarch.cue", strings.Replace(string(src), "\tarch: \"v1model\"\n", "", 1))
	cfg := writeFile(t, dir, ConfigFileName, "[build]\narch = \"v1model\"\n")

	out, _, err := run(t, NewRootCommand(), "--config", cfg, "build", prog)
	require.NoError(t, err)
	assert.Contains(t, out, "Built regression (v1model)")

	empty := writeFile(t, t.TempDir(), ConfigFileName, "")
	_, _, err = run(t, NewRootCommand(), "--config", empty, "build", prog)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
}
