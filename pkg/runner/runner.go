package runner

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"sort"
	"strings"
	"time"

	"github.com/northcutted/pkgextract/pkg/types"
)

const waitDelay = 5 * time.Second

// lookPath resolves an executable name against PATH.
var lookPath = exec.LookPath

// Command is a single external program invocation. Args are passed to the
// program as-is; no shell is involved.
type Command struct {
	Path string
	Args []string
	// Env is added to the inherited environment.
	Env map[string]string
}

func (c Command) String() string {
	return strings.Join(append([]string{c.Path}, c.Args...), " ")
}

func (c Command) environ() []string {
	keys := make([]string, 0, len(c.Env))
	for k := range c.Env {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	env := make([]string, 0, len(keys))
	for _, k := range keys {
		env = append(env, k+"="+c.Env[k])
	}
	return env
}

// Executor runs external commands and returns their standard output.
type Executor interface {
	Run(ctx context.Context, cmd Command) ([]byte, error)
}

// ExecExecutor runs commands as child processes.
type ExecExecutor struct {
	// Timeout bounds each command. Zero means no limit besides ctx.
	Timeout time.Duration
}

// NewExecExecutor returns an executor applying timeout to every command.
func NewExecExecutor(timeout time.Duration) *ExecExecutor {
	return &ExecExecutor{Timeout: timeout}
}

// Run executes cmd and returns its stdout. A nonzero exit status, a failure
// to start, or a timeout yields a *types.CommandError and no output.
func (e *ExecExecutor) Run(ctx context.Context, c Command) ([]byte, error) {
	if e.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.Timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, c.Path, c.Args...)
	// children left behind by a killed process may hold the pipes open
	cmd.WaitDelay = waitDelay
	if len(c.Env) > 0 {
		cmd.Env = append(os.Environ(), c.environ()...)
	}
	return runCommand(ctx, cmd)
}

// runCommand executes a command, logging it first, and reports failures
// together with whatever the process wrote to stderr.
func runCommand(ctx context.Context, cmd *exec.Cmd) ([]byte, error) {
	slog.DebugContext(ctx, "running command", "cmd", cmd.String())

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	output, err := cmd.Output()
	if err != nil {
		exitCode := -1
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			exitCode = exitErr.ExitCode()
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			err = fmt.Errorf("%w (%w)", err, ctxErr)
		}

		slog.ErrorContext(ctx, "command failed",
			"cmd", cmd.String(),
			"exit_code", exitCode,
			"stderr", stderr.String())

		return nil, &types.CommandError{
			Args:     cmd.Args,
			ExitCode: exitCode,
			Stderr:   stderr.String(),
			Err:      err,
		}
	}

	slog.DebugContext(ctx, "command finished", "cmd", cmd.String(), "bytes", len(output))
	return output, nil
}

// ToolStatus describes where a configured tool resolves to.
type ToolStatus struct {
	Name  string
	Path  string
	Found bool
}

// LookupTool resolves a configured tool. Names containing a path separator
// are checked as given; bare names are searched on PATH.
func LookupTool(name, configured string) ToolStatus {
	status := ToolStatus{Name: name, Path: configured}
	if path, err := lookPath(configured); err == nil {
		status.Path = path
		status.Found = true
	}
	return status
}
