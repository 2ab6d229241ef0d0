package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"
)

var harnessTestdata = filepath.Join("..", "harness", "testdata")

// programPath names one of the harness test programs.
func programPath(name string) string {
	return filepath.Join(harnessTestdata, "programs", name+".cue")
}

// plainOutput disables colour so marks compare as plain text.
func plainOutput(t *testing.T) {
	t.Helper()
	prev := color.NoColor
	color.NoColor = true
	t.Cleanup(func() { color.NoColor = prev })
}

// run executes cmd with args and returns what it wrote to stdout and stderr.
func run(t *testing.T, cmd *cobra.Command, args ...string) (string, string, error) {
	t.Helper()
	plainOutput(t)
	out, errOut := &bytes.Buffer{}, &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetErr(errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), errOut.String(), err
}

// writeFile writes content under dir and returns the path.
func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

// copyTestdata copies the harness scenarios and programs into a temp dir and
// returns its root.
func copyTestdata(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	for _, sub := range []string{"scenarios", "programs"} {
		entries, err := os.ReadDir(filepath.Join(harnessTestdata, sub))
		require.NoError(t, err)
		for _, e := range entries {
			data, err := os.ReadFile(filepath.Join(harnessTestdata, sub, e.Name()))
			require.NoError(t, err)
			writeFile(t, root, filepath.Join(sub, e.Name()), string(data))
		}
	}
	return root
}
