package ldd_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/temirov/check-broken-packages/internal/execshell"
	"github.com/temirov/check-broken-packages/internal/ldd"
)

const (
	testDynamicExecutableCaseNameConstant = "dynamic_executable"
	testStaticExecutableCaseNameConstant  = "static_executable"
	testMissingProbeCaseNameConstant      = "probe_not_installed"
	testExecutablePathConstant            = "/usr/bin/foo"
)

type stubLddExecutor struct {
	executionResult execshell.ExecutionResult
	executionError  error
	recordedDetails []execshell.CommandDetails
}

func (executor *stubLddExecutor) ExecuteLdd(executionContext context.Context, details execshell.CommandDetails) (execshell.ExecutionResult, error) {
	executor.recordedDetails = append(executor.recordedDetails, details)
	return executor.executionResult, executor.executionError
}

func TestNewProbeRequiresExecutor(testInstance *testing.T) {
	probe, creationError := ldd.NewProbe(nil)
	require.ErrorIs(testInstance, creationError, ldd.ErrExecutorNotConfigured)
	require.Nil(testInstance, probe)
}

func TestProbeCheck(testInstance *testing.T) {
	executionFailure := execshell.CommandExecutionError{
		Command: execshell.ShellCommand{Name: execshell.CommandLdd},
		Cause:   errors.New("executable file not found in $PATH"),
	}

	testCases := []struct {
		name          string
		result        execshell.ExecutionResult
		failure       error
		expectedLines []string
		expectError   bool
	}{
		{
			name: testDynamicExecutableCaseNameConstant,
			result: execshell.ExecutionResult{
				StandardOutput: "\tlinux-vdso.so.1 (0x00007ffd)\n\tlibbar.so => not found\n\n",
			},
			expectedLines: []string{"\tlinux-vdso.so.1 (0x00007ffd)", "\tlibbar.so => not found"},
		},
		{
			name: testStaticExecutableCaseNameConstant,
			failure: execshell.CommandFailedError{
				Command: execshell.ShellCommand{Name: execshell.CommandLdd},
				Result:  execshell.ExecutionResult{ExitCode: 1, StandardOutput: "\tnot a dynamic executable\n"},
			},
		},
		{
			name:          testMissingProbeCaseNameConstant,
			failure:     executionFailure,
			expectError: true,
		},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(testInstance *testing.T) {
			executor := &stubLddExecutor{executionResult: testCase.result, executionError: testCase.failure}
			probe, creationError := ldd.NewProbe(executor)
			require.NoError(testInstance, creationError)

			lines, checkError := probe.Check(context.Background(), testExecutablePathConstant)
			if testCase.expectError {
				var executionError execshell.CommandExecutionError
				require.ErrorAs(testInstance, checkError, &executionError)
				require.Nil(testInstance, lines)
				return
			}
			require.NoError(testInstance, checkError)
			require.Equal(testInstance, testCase.expectedLines, lines)
			require.Equal(testInstance, []string{testExecutablePathConstant}, executor.recordedDetails[0].Arguments)
		})
	}
}
