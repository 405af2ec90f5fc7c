package runner

import (
	"context"
	"encoding/json"

	"github.com/northcutted/pkgextract/pkg/types"
)

const (
	mercatorTool = "mercator"

	// Makes mercator evaluate setup.py files instead of skipping them.
	interpretSetupPyEnv = "MERCATOR_INTERPRET_SETUP_PY"
)

// PyPICollector runs 'mercator -config <handlers> <path>'.
type PyPICollector struct {
	exec     Executor
	binary   string
	handlers string
}

// NewPyPICollector returns a collector running the mercator binary with the
// given handlers file.
func NewPyPICollector(exec Executor, binary, handlers string) *PyPICollector {
	return &PyPICollector{exec: exec, binary: binary, handlers: handlers}
}

// Name returns the display name for this collector.
func (p *PyPICollector) Name() string { return mercatorTool }

// Collect lists the Python packages found under path.
func (p *PyPICollector) Collect(ctx context.Context, path string) ([]types.PyPIPackage, error) {
	output, err := p.exec.Run(ctx, Command{
		Path: p.binary,
		Args: []string{"-config", p.handlers, path},
		Env:  map[string]string{interpretSetupPyEnv: "true"},
	})
	if err != nil {
		return nil, err
	}

	return parseMercatorOutput(output)
}

func parseMercatorOutput(output []byte) ([]types.PyPIPackage, error) {
	var mercatorOutput struct {
		Items []types.PyPIPackage `json:"items"`
	}

	if err := json.Unmarshal(output, &mercatorOutput); err != nil {
		return nil, &types.MalformedOutputError{Tool: mercatorTool, Err: err}
	}

	if mercatorOutput.Items == nil {
		return make([]types.PyPIPackage, 0), nil
	}
	return mercatorOutput.Items, nil
}
