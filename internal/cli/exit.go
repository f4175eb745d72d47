package cli

import (
	"errors"
	"fmt"
	"io"

	"github.com/cephforge/cephcli/internal/executor"
	"github.com/cephforge/cephcli/pkg/resolver"
)

// exitInvalid is EINVAL, returned for command lines that match nothing.
const exitInvalid = 22

// ExitCode maps an error returned by a command to a process exit code.
func ExitCode(err error) int {
	var statusErr *executor.StatusError
	switch {
	case err == nil:
		return 0
	case errors.As(err, &statusErr):
		return statusErr.ExitCode()
	case errors.Is(err, resolver.ErrNoMatch), errors.Is(err, resolver.ErrNoTokens):
		return exitInvalid
	}
	return 1
}

// Run calls execute, prints its error on w and returns the exit code.
func Run(execute func() error, w io.Writer) int {
	err := execute()
	if err != nil {
		fmt.Fprintf(w, "Error: %v\n", err)
	}
	return ExitCode(err)
}
