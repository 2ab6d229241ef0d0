package harness

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sort"

	"golang.org/x/sync/errgroup"
)

// SuiteOptions configures RunSuite.
type SuiteOptions struct {
	// Jobs bounds the number of scenarios run at once. Zero means GOMAXPROCS.
	Jobs int

	// GoldenDir holds {name}.golden files for scenarios with golden: true.
	// Empty disables golden comparison.
	GoldenDir string

	// Update rewrites golden files instead of comparing them.
	Update bool

	// Options are passed to every Run.
	Options []Option
}

// SuiteResult summarizes a suite run.
type SuiteResult struct {
	Total    int            `json:"total"`
	Passed   int            `json:"passed"`
	Failed   int            `json:"failed"`
	Results  []ScenarioRun  `json:"results"`
	Failures []SuiteFailure `json:"failures,omitempty"`
}

// ScenarioRun is one scenario's entry in a suite, in path order.
type ScenarioRun struct {
	Path   string  `json:"path"`
	Name   string  `json:"name,omitempty"`
	Result *Result `json:"result,omitempty"`
}

// SuiteFailure represents a failed scenario.
type SuiteFailure struct {
	ScenarioPath string `json:"scenario_path"`
	Error        string `json:"error"`
}

// DiscoverScenarios returns the scenario files under dir, sorted. A non-empty
// filter is a glob matched against the file base name without extension.
func DiscoverScenarios(dir, filter string) ([]string, error) {
	if filter != "" {
		if _, err := filepath.Match(filter, ""); err != nil {
			return nil, fmt.Errorf("invalid filter %q: %w", filter, err)
		}
	}

	var paths []string
	err := filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		ext := filepath.Ext(path)
		if ext != ".yaml" && ext != ".yml" {
			return nil
		}
		if filter != "" {
			base := filepath.Base(path)
			if ok, _ := filepath.Match(filter, base[:len(base)-len(ext)]); !ok {
				return nil
			}
		}
		paths = append(paths, path)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("discover scenarios in %s: %w", dir, err)
	}
	sort.Strings(paths)
	return paths, nil
}

// RunSuite loads and runs every scenario concurrently. Load errors and failed
// scenarios are reported as failures; the returned error is reserved for
// cancellation.
func RunSuite(ctx context.Context, paths []string, opts SuiteOptions) (*SuiteResult, error) {
	jobs := opts.Jobs
	if jobs <= 0 {
		jobs = runtime.GOMAXPROCS(0)
	}

	// Each goroutine owns one index.
	runs := make([]ScenarioRun, len(paths))
	errs := make([]string, len(paths))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(1, min(jobs, len(paths))))

	for i, path := range paths {
		g.Go(func() error {
			select {
			case <-gctx.Done():
				return gctx.Err()
			default:
			}

			runs[i].Path = path
			scenario, err := LoadScenario(path)
			if err != nil {
				errs[i] = fmt.Sprintf("failed to load scenario: %v", err)
				return nil
			}
			runs[i].Name = scenario.Name

			result, err := RunContext(gctx, scenario, opts.Options...)
			if err != nil {
				errs[i] = fmt.Sprintf("scenario execution failed: %v", err)
				return nil
			}
			runs[i].Result = result

			if scenario.Golden && opts.GoldenDir != "" {
				if err := compareGoldenFile(opts.GoldenDir, scenario.Name, result, opts.Update); err != nil {
					result.AddError(err.Error())
				}
			}
			if !result.Pass {
				errs[i] = fmt.Sprintf("scenario assertions failed: %v", result.Errors)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	suite := &SuiteResult{Total: len(paths), Results: runs}
	for i, msg := range errs {
		if msg == "" {
			suite.Passed++
			continue
		}
		suite.Failed++
		suite.Failures = append(suite.Failures, SuiteFailure{ScenarioPath: paths[i], Error: msg})
	}
	return suite, nil
}

// compareGoldenFile checks a result against {dir}/{name}.golden, or rewrites the
// file when update is set.
func compareGoldenFile(dir, name string, result *Result, update bool) error {
	snapshot := NewOutcomeSnapshot(name, result)
	data, err := snapshot.Marshal()
	if err != nil {
		return fmt.Errorf("golden %s: %w", name, err)
	}

	path := filepath.Join(dir, name+".golden")
	if update {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("golden %s: %w", name, err)
		}
		if err := os.WriteFile(path, data, 0o644); err != nil {
			return fmt.Errorf("golden %s: %w", name, err)
		}
		return nil
	}

	want, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("golden %s: %w", name, err)
	}
	if !bytes.Equal(want, data) {
		return fmt.Errorf("golden %s: snapshot differs from %s", name, path)
	}
	return nil
}
