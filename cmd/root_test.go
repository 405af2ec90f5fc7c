package cmd

import (
	"bytes"
	"context"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/northcutted/pkgextract/pkg/analysis"
	"github.com/northcutted/pkgextract/pkg/config"
	"github.com/northcutted/pkgextract/pkg/types"
)

// captureOutput runs f with stdout redirected to a buffer.
func captureOutput(f func()) string {
	old := stdout
	var buf bytes.Buffer
	stdout = &buf
	defer func() { stdout = old }()

	f()
	return buf.String()
}

// resetFlags restores every flag global and cobra's "changed" state, and the
// analyzer factory. Use as: defer resetFlags()()
func resetFlags() func() {
	reset := func() {
		for _, c := range []*cobra.Command{rootCmd, analyzeCmd, toolsCmd, versionCmd} {
			for _, fs := range []*pflag.FlagSet{c.Flags(), c.PersistentFlags()} {
				fs.VisitAll(func(f *pflag.Flag) {
					_ = f.Value.Set(f.DefValue)
					f.Changed = false
				})
			}
		}
		verbose = 0
	}
	oldAnalyzer := newAnalyzer
	oldVersion, oldCommit, oldDate := Version, Commit, Date
	reset()
	return func() {
		reset()
		newAnalyzer = oldAnalyzer
		Version, Commit, Date = oldVersion, oldCommit, oldDate
		rootCmd.SetArgs(nil)
	}
}

// isolateEnv clears every environment override read by config.Load.
func isolateEnv(t *testing.T) {
	t.Helper()
	for _, env := range []string{
		config.EnvContainerDiffBin, config.EnvMercatorBin, config.EnvMercatorHandlers,
		config.EnvAtomicBin, config.EnvMountBackend, config.EnvContainerRuntime, config.EnvTimeout,
	} {
		t.Setenv(env, "")
	}
}

type stubRPM struct{ local bool }

func (s *stubRPM) Name() string { return "container-diff" }

func (s *stubRPM) Collect(_ context.Context, _ string, local bool) ([]types.RPMPackage, error) {
	s.local = local
	return []types.RPMPackage{
		{Name: "python3", Version: "3.11.7"},
		{Name: "bash", Version: "5.1.8"},
	}, nil
}

type stubPyPI struct{}

func (stubPyPI) Name() string { return "mercator" }

func (stubPyPI) Collect(_ context.Context, path string) ([]types.PyPIPackage, error) {
	return []types.PyPIPackage{
		types.NewPyPIPackage(map[string]any{"name": "requests", "version": "2.31.0", "path": path + "/site-packages"}),
	}, nil
}

type stubMounter struct {
	mountErr  error
	unmounted bool
}

func (s *stubMounter) Name() string { return "stub" }

func (s *stubMounter) Mount(context.Context, string) (string, error) {
	if s.mountErr != nil {
		return "", s.mountErr
	}
	return "/mnt/image", nil
}

func (s *stubMounter) Unmount(context.Context, string) error {
	s.unmounted = true
	return nil
}

// useStubAnalyzer makes the analyze command run against in-memory tools and
// returns the config and options it was built with.
func useStubAnalyzer(rpm *stubRPM, m *stubMounter) (*config.Config, *analysis.Options) {
	var gotCfg config.Config
	var gotOpts analysis.Options
	newAnalyzer = func(cfg *config.Config, opts analysis.Options) (*analysis.Analyzer, error) {
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
		gotCfg, gotOpts = *cfg, opts
		return analysis.New(rpm, stubPyPI{}, m, opts), nil
	}
	return &gotCfg, &gotOpts
}
