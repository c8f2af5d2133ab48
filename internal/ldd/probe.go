package ldd

import (
	"context"
	"errors"
	"strings"

	"github.com/temirov/check-broken-packages/internal/execshell"
)

const (
	executorNotConfiguredMessageConstant = "ldd executor not configured"
	outputLineSeparatorConstant          = "\n"
)

// CommandExecutor is the minimal interface required from execshell.ShellExecutor.
type CommandExecutor interface {
	ExecuteLdd(executionContext context.Context, details execshell.CommandDetails) (execshell.ExecutionResult, error)
}

// ErrExecutorNotConfigured indicates the probe was constructed without an executor.
var ErrExecutorNotConfigured = errors.New(executorNotConfiguredMessageConstant)

// Probe reports the shared-library resolution of executables.
type Probe struct {
	executor CommandExecutor
}

// NewProbe constructs a Probe.
func NewProbe(executor CommandExecutor) (*Probe, error) {
	if executor == nil {
		return nil, ErrExecutorNotConfigured
	}
	return &Probe{executor: executor}, nil
}

// Check returns the output lines of the probe for the file. A file the probe
// refuses (static binaries, scripts, foreign architectures) yields no lines
// and no error. Only a probe that cannot be started at all is an error.
func (probe *Probe) Check(executionContext context.Context, filePath string) ([]string, error) {
	executionResult, executionError := probe.executor.ExecuteLdd(executionContext, execshell.CommandDetails{
		Arguments: []string{filePath},
	})
	if executionError != nil {
		var failedError execshell.CommandFailedError
		if errors.As(executionError, &failedError) {
			return nil, nil
		}
		return nil, executionError
	}

	outputLines := strings.Split(executionResult.StandardOutput, outputLineSeparatorConstant)
	lines := make([]string, 0, len(outputLines))
	for _, outputLine := range outputLines {
		if len(strings.TrimSpace(outputLine)) == 0 {
			continue
		}
		lines = append(lines, outputLine)
	}
	return lines, nil
}
