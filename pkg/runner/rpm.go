package runner

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/northcutted/pkgextract/pkg/types"
)

const containerDiffTool = "container-diff"

// ImageReference builds the container-diff image reference: daemon:// reads
// the local image store, remote:// pulls from the registry.
func ImageReference(image string, local bool) string {
	if local {
		return "daemon://" + image
	}
	return "remote://" + image
}

// RPMCollector runs 'container-diff analyze --json --type rpm <ref>'.
type RPMCollector struct {
	exec   Executor
	binary string
}

// NewRPMCollector returns a collector running the container-diff binary.
func NewRPMCollector(exec Executor, binary string) *RPMCollector {
	return &RPMCollector{exec: exec, binary: binary}
}

// Name returns the display name for this collector.
func (r *RPMCollector) Name() string { return containerDiffTool }

// Collect lists the RPM packages installed in image.
func (r *RPMCollector) Collect(ctx context.Context, image string, local bool) ([]types.RPMPackage, error) {
	output, err := r.exec.Run(ctx, Command{
		Path: r.binary,
		Args: []string{"analyze", "--json", "--type", "rpm", ImageReference(image, local)},
	})
	if err != nil {
		return nil, err
	}

	return parseContainerDiffOutput(output)
}

// parseContainerDiffOutput keeps name and version of each entry in the
// first analysis. Later analyses, if any, are ignored.
func parseContainerDiffOutput(output []byte) ([]types.RPMPackage, error) {
	var analyses []struct {
		Analysis []struct {
			Name    string `json:"Name"`
			Version string `json:"Version"`
		} `json:"Analysis"`
	}

	if err := json.Unmarshal(output, &analyses); err != nil {
		return nil, &types.MalformedOutputError{Tool: containerDiffTool, Err: err}
	}
	if len(analyses) == 0 {
		return nil, &types.MalformedOutputError{Tool: containerDiffTool, Err: errors.New("no analysis in output")}
	}

	packages := make([]types.RPMPackage, 0, len(analyses[0].Analysis))
	for _, entry := range analyses[0].Analysis {
		packages = append(packages, types.RPMPackage{
			Name:    entry.Name,
			Version: entry.Version,
		})
	}
	return packages, nil
}
