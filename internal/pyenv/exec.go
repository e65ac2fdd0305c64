package pyenv

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"

	"github.com/shinji-kodama/seqfixtures/internal/model"
	"github.com/shinji-kodama/seqfixtures/internal/sandbox"
)

// runCommand executes name with args and waits for it to exit.
//
// Output is streamed to the given Streams while the tail of stderr is kept
// for error messages. A process that runs and exits non-zero is NOT a Go
// error: its status is returned in the result. An error is returned only
// when the process could not be started or waited for, including context
// cancellation.
func runCommand(ctx context.Context, dir string, streams sandbox.Streams, name string, args ...string) (*model.CommandResult, error) {
	// #nosec G204: binaries are the environment's own python/pip
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = dir

	tail := sandbox.NewTail(sandbox.DefaultTailSize)
	cmd.Stdout = streams.Stdout
	cmd.Stderr = io.MultiWriter(streams.Stderr, tail)

	result := &model.CommandResult{
		Args:     append([]string{name}, args...),
		ExitCode: -1,
	}

	err := cmd.Run()
	result.Stderr = tail.String()

	if err == nil {
		result.ExitCode = 0
		return result, nil
	}

	if ctxErr := ctx.Err(); ctxErr != nil {
		return result, fmt.Errorf("%s interrupted: %w", result.String(), ctxErr)
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		result.ExitCode = exitErr.ExitCode()
		return result, nil
	}

	return result, fmt.Errorf("failed to run %s: %w", name, err)
}
