package ili2db

import (
	"bytes"
	"context"
	stderrors "errors"
	"os/exec"
)

// Runner starts a subprocess and waits for it.
type Runner interface {
	// Run returns the exit code and the combined output. err is set only
	// when the process could not run to completion.
	Run(ctx context.Context, name string, args []string) (int, string, error)
}

// ExecRunner runs commands with os/exec.
type ExecRunner struct{}

func (ExecRunner) Run(ctx context.Context, name string, args []string) (int, string, error) {
	var out bytes.Buffer
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdout = &out
	cmd.Stderr = &out

	err := cmd.Run()
	var exitErr *exec.ExitError
	if stderrors.As(err, &exitErr) && ctx.Err() == nil {
		return exitErr.ExitCode(), out.String(), nil
	}
	if err != nil {
		return -1, out.String(), err
	}
	return 0, out.String(), nil
}
