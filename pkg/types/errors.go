package types

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrInvalidInput is returned for missing or malformed user input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrCommandExecution is matched by every *CommandError.
	ErrCommandExecution = errors.New("command execution failed")

	// ErrMalformedToolOutput is matched by every *MalformedOutputError.
	ErrMalformedToolOutput = errors.New("malformed tool output")
)

// CommandError reports an external command that could not be started or
// exited with a nonzero status.
type CommandError struct {
	Args     []string
	ExitCode int // -1 when the process never ran to completion
	Stderr   string
	Err      error
}

func (e *CommandError) Error() string {
	msg := fmt.Sprintf("failed to run command %q: %v", strings.Join(e.Args, " "), e.Err)
	if stderr := strings.TrimSpace(e.Stderr); stderr != "" {
		msg += "\nStderr: " + stderr
	}
	return msg
}

func (e *CommandError) Unwrap() error { return e.Err }

func (e *CommandError) Is(target error) bool { return target == ErrCommandExecution }

// MalformedOutputError reports tool output that does not have the expected
// JSON shape.
type MalformedOutputError struct {
	Tool string
	Err  error
}

func (e *MalformedOutputError) Error() string {
	return fmt.Sprintf("failed to unmarshal %s output: %v", e.Tool, e.Err)
}

func (e *MalformedOutputError) Unwrap() error { return e.Err }

func (e *MalformedOutputError) Is(target error) bool { return target == ErrMalformedToolOutput }
