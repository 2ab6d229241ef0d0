package harness

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDiscoverScenarios(t *testing.T) {
	paths, err := DiscoverScenarios("testdata/scenarios", "")
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join("testdata/scenarios", "bad_keyset.yaml"),
		filepath.Join("testdata/scenarios", "bad_slice.yaml"),
		filepath.Join("testdata/scenarios", "regression.yaml"),
		filepath.Join("testdata/scenarios", "select.yaml"),
		filepath.Join("testdata/scenarios", "swapped_stages.yaml"),
		filepath.Join("testdata/scenarios", "zero_width.yaml"),
	}, paths)
}

func TestDiscoverScenarios_Filter(t *testing.T) {
	paths, err := DiscoverScenarios("testdata/scenarios", "bad_*")
	require.NoError(t, err)
	assert.Len(t, paths, 2)

	_, err = DiscoverScenarios("testdata/scenarios", "[")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid filter")
}

func TestDiscoverScenarios_MissingDir(t *testing.T) {
	_, err := DiscoverScenarios(filepath.Join(t.TempDir(), "nope"), "")
	require.Error(t, err)
}

func TestRunSuite_Testdata(t *testing.T) {
	paths, err := DiscoverScenarios("testdata/scenarios", "")
	require.NoError(t, err)

	suite, err := RunSuite(context.Background(), paths, SuiteOptions{GoldenDir: "testdata/golden"})
	require.NoError(t, err)

	assert.Equal(t, len(paths), suite.Total)
	assert.Equal(t, len(paths), suite.Passed, "failures: %v", suite.Failures)
	assert.Zero(t, suite.Failed)
	require.Len(t, suite.Results, len(paths))
	for i, run := range suite.Results {
		assert.Equal(t, paths[i], run.Path, "results keep path order")
		require.NotNil(t, run.Result)
	}
}

func TestRunSuite_ReportsFailures(t *testing.T) {
	dir := t.TempDir()
	program, err := filepath.Abs("testdata/programs/regression.cue")
	require.NoError(t, err)

	good := filepath.Join(dir, "good.yaml")
	require.NoError(t, os.WriteFile(good, []byte("name: good\ndescription: d\nprogram: "+program+"\n"), 0644))
	wrong := filepath.Join(dir, "wrong.yaml")
	require.NoError(t, os.WriteFile(wrong, []byte("name: wrong\ndescription: d\nprogram: "+program+"\nassertions:\n  - type: loops\n    count: 3\n"), 0644))
	broken := filepath.Join(dir, "broken.yaml")
	require.NoError(t, os.WriteFile(broken, []byte("name: broken\n"), 0644))

	suite, err := RunSuite(context.Background(), []string{good, wrong, broken}, SuiteOptions{Jobs: 2})
	require.NoError(t, err)

	assert.Equal(t, 3, suite.Total)
	assert.Equal(t, 1, suite.Passed)
	assert.Equal(t, 2, suite.Failed)
	require.Len(t, suite.Failures, 2)
	assert.Equal(t, wrong, suite.Failures[0].ScenarioPath)
	assert.Contains(t, suite.Failures[0].Error, "scenario assertions failed")
	assert.Equal(t, broken, suite.Failures[1].ScenarioPath)
	assert.Contains(t, suite.Failures[1].Error, "failed to load scenario")
}

func TestRunSuite_UpdateGolden(t *testing.T) {
	goldenDir := filepath.Join(t.TempDir(), "golden")
	paths := []string{"testdata/scenarios/regression.yaml"}

	suite, err := RunSuite(context.Background(), paths, SuiteOptions{GoldenDir: goldenDir})
	require.NoError(t, err)
	assert.Equal(t, 1, suite.Failed, "missing golden file fails")

	suite, err = RunSuite(context.Background(), paths, SuiteOptions{GoldenDir: goldenDir, Update: true})
	require.NoError(t, err)
	assert.Equal(t, 1, suite.Passed)

	written, err := os.ReadFile(filepath.Join(goldenDir, "regression.golden"))
	require.NoError(t, err)
	want, err := os.ReadFile("testdata/golden/regression.golden")
	require.NoError(t, err)
	assert.Equal(t, string(want), string(written))

	suite, err = RunSuite(context.Background(), paths, SuiteOptions{GoldenDir: goldenDir})
	require.NoError(t, err)
	assert.Equal(t, 1, suite.Passed)
}

func TestRunSuite_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := RunSuite(ctx, []string{"testdata/scenarios/regression.yaml"}, SuiteOptions{})
	require.ErrorIs(t, err, context.Canceled)
}

func TestRunSuite_Empty(t *testing.T) {
	suite, err := RunSuite(context.Background(), nil, SuiteOptions{})
	require.NoError(t, err)
	assert.Zero(t, suite.Total)
}
