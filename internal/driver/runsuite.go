package driver

import (
	"context"
	"fmt"
	"os"
	"os/exec"

	"golang.org/x/sync/errgroup"

	"github.com/crashfs/crashfs/internal/changelog"
	"github.com/crashfs/crashfs/internal/gentest"
)

// RunSuiteOptions configures the run-suite verb.
type RunSuiteOptions struct {
	Sudo   bool
	Script string
}

// RunSuiteResult is the outcome of one verify invocation for one generated
// filter.
type RunSuiteResult struct {
	Filter string
	Passed bool
	Err    error
}

// RunSuite invokes Script with "prepare", then "record", inside a fresh
// temporary directory, generates filters from the resulting change log, then
// invokes Script with "verify FILTER" once per generated filter, running
// verifications concurrently. A non-zero verify exit is recorded as a
// failure, not a driver error.
func (d *Driver) RunSuite(ctx context.Context, opts RunSuiteOptions) ([]RunSuiteResult, error) {
	tmpDir, err := os.MkdirTemp("", "crashfs-suite-")
	if err != nil {
		return nil, fmt.Errorf("%w: create suite temp dir: %v", ErrSetup, err)
	}
	defer os.RemoveAll(tmpDir)

	if err := runScriptPhase(ctx, opts, tmpDir, "prepare"); err != nil {
		return nil, fmt.Errorf("%w: prepare: %v", ErrSetup, err)
	}
	if err := runScriptPhase(ctx, opts, tmpDir, "record"); err != nil {
		return nil, fmt.Errorf("%w: record: %v", ErrSetup, err)
	}

	suite := New(tmpDir)
	baseLen, err := suite.baseLen()
	if err != nil {
		return nil, err
	}
	log, err := changelog.Load(tmpDir, baseLen)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrGeneration, err)
	}

	filters := gentest.Generate(log, gentest.DefaultCap)
	results := make([]RunSuiteResult, len(filters))

	g, gctx := errgroup.WithContext(ctx)
	for i, f := range filters {
		i, f := i, f
		g.Go(func() error {
			verifyErr := runScriptPhase(gctx, opts, tmpDir, "verify", f)
			results[i] = RunSuiteResult{Filter: f, Passed: verifyErr == nil, Err: verifyErr}
			return nil
		})
	}
	_ = g.Wait()

	return results, nil
}

func runScriptPhase(ctx context.Context, opts RunSuiteOptions, dir string, args ...string) error {
	name := opts.Script
	cmdArgs := args
	if opts.Sudo {
		name = "sudo"
		cmdArgs = append([]string{"-n", "--", opts.Script}, args...)
	}

	cmd := exec.CommandContext(ctx, name, cmdArgs...)
	cmd.Dir = dir
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	return cmd.Run()
}
