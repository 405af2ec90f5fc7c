// Package analysis assembles the package inventory of a container image
// from the RPM and PyPI collectors.
package analysis

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/northcutted/pkgextract/pkg/config"
	"github.com/northcutted/pkgextract/pkg/logging"
	"github.com/northcutted/pkgextract/pkg/runner"
	"github.com/northcutted/pkgextract/pkg/types"
)

// RPMCollector lists the RPM packages of an image.
type RPMCollector interface {
	Name() string
	Collect(ctx context.Context, image string, local bool) ([]types.RPMPackage, error)
}

// PyPICollector lists the Python packages below a directory.
type PyPICollector interface {
	Name() string
	Collect(ctx context.Context, path string) ([]types.PyPIPackage, error)
}

// Options tune a single analysis.
type Options struct {
	// Remote makes the RPM analyzer pull the image from its registry
	// instead of reading the local image store.
	Remote bool
	// PackageURLs adds a purl to every package that has a name.
	PackageURLs bool
}

// Analyzer runs the collectors for one image at a time.
type Analyzer struct {
	rpm     RPMCollector
	pypi    PyPICollector
	mounter runner.Mounter
	opts    Options
}

// New returns an Analyzer using the given collectors and mounter.
// Collectors are injected to allow easy testing/mocking.
func New(rpm RPMCollector, pypi PyPICollector, mounter runner.Mounter, opts Options) *Analyzer {
	return &Analyzer{rpm: rpm, pypi: pypi, mounter: mounter, opts: opts}
}

// NewFromConfig wires the external tools named in cfg.
func NewFromConfig(cfg *config.Config, opts Options) (*Analyzer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	exec := runner.NewExecExecutor(cfg.Timeout)

	var mounter runner.Mounter
	switch cfg.MountBackend {
	case config.MountBackendArchive:
		mounter = runner.NewArchiveMounter(exec, cfg.ContainerRuntime)
	default:
		mounter = runner.NewAtomicMounter(exec, cfg.AtomicBin)
	}

	return New(
		runner.NewRPMCollector(exec, cfg.ContainerDiffBin),
		runner.NewPyPICollector(exec, cfg.MercatorBin, cfg.MercatorHandlers),
		mounter,
		opts,
	), nil
}

// Analyze collects the RPM packages of image, then mounts it and collects
// its Python packages. Either everything succeeds or an error is returned;
// there are no partial results.
func (a *Analyzer) Analyze(ctx context.Context, image string) (*types.AnalysisResult, error) {
	if image == "" {
		return nil, fmt.Errorf("%w: image name is required", types.ErrInvalidInput)
	}

	ctx = logging.ContextWithAttrs(ctx,
		slog.String("run_id", uuid.NewString()),
		slog.String("image", image))
	slog.InfoContext(ctx, "analyzing image", "mounter", a.mounter.Name(), "remote", a.opts.Remote)

	rpmPackages, err := a.rpm.Collect(ctx, image, !a.opts.Remote)
	if err != nil {
		return nil, fmt.Errorf("%s failed: %w", a.rpm.Name(), err)
	}
	slog.InfoContext(ctx, "collected rpm packages", "count", len(rpmPackages))

	var pypiPackages []types.PyPIPackage
	err = runner.WithMountedImage(ctx, a.mounter, image, func(dir string) error {
		pkgs, err := a.pypi.Collect(ctx, dir)
		if err != nil {
			return fmt.Errorf("%s failed: %w", a.pypi.Name(), err)
		}
		pypiPackages = pkgs
		return nil
	})
	if err != nil {
		return nil, err
	}
	slog.InfoContext(ctx, "collected pypi packages", "count", len(pypiPackages))

	if a.opts.PackageURLs {
		rpmPackages = withRPMPackageURLs(rpmPackages)
		pypiPackages = withPyPIPackageURLs(pypiPackages)
	}

	return &types.AnalysisResult{
		ImageName: image,
		PyPI:      pypiPackages,
		RPM:       rpmPackages,
	}, nil
}
