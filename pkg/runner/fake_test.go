package runner

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/northcutted/pkgextract/pkg/types"
)

// fakeExecutor records commands and answers them with handler.
type fakeExecutor struct {
	calls   []Command
	handler func(Command) ([]byte, error)
}

func (f *fakeExecutor) Run(ctx context.Context, cmd Command) ([]byte, error) {
	f.calls = append(f.calls, cmd)
	if f.handler == nil {
		return nil, nil
	}
	return f.handler(cmd)
}

func returning(output string) func(Command) ([]byte, error) {
	return func(Command) ([]byte, error) { return []byte(output), nil }
}

func failing(cmd Command) ([]byte, error) {
	return nil, &types.CommandError{
		Args:     append([]string{cmd.Path}, cmd.Args...),
		ExitCode: 1,
		Stderr:   "boom",
		Err:      errors.New("exit status 1"),
	}
}

// useTempBase makes mkdirTemp create directories below a test directory.
func useTempBase(t *testing.T) string {
	t.Helper()
	base := t.TempDir()
	prev := mkdirTemp
	mkdirTemp = func(_, pattern string) (string, error) {
		return os.MkdirTemp(base, pattern)
	}
	t.Cleanup(func() { mkdirTemp = prev })
	return base
}
