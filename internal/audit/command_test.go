package audit_test

import (
	"context"
	"encoding/json"
	"os"
	"strings"
	"sync"
	"testing"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/memfs"
	"github.com/go-git/go-billy/v5/util"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/temirov/check-broken-packages/internal/audit"
	"github.com/temirov/check-broken-packages/internal/execshell"
	"github.com/temirov/check-broken-packages/internal/report"
)

const (
	testCommandKeySeparatorConstant = " "
	testPythonInformationConstant   = "Name            : python\nVersion         : 3.10.4-1\n"
	testLddOutputConstant           = "\tlinux-vdso.so.1 (0x00007ffc8a5f2000)\n\tlibbar.so => not found\n\tlibc.so.6 => /usr/lib/libc.so.6 (0x00007f0e8c000000)\n"
	testCustomPacmanPathConstant    = "/opt/pacman/bin/pacman"
	testTextFormatCaseNameConstant  = "flag_overrides_configuration"
	testYAMLFormatCaseNameConstant  = "configuration_format"
)

type scriptedCommandRunner struct {
	mutex            sync.Mutex
	results          map[string]execshell.ExecutionResult
	recordedCommands []execshell.ShellCommand
}

func (runner *scriptedCommandRunner) Run(executionContext context.Context, command execshell.ShellCommand) (execshell.ExecutionResult, error) {
	runner.mutex.Lock()
	defer runner.mutex.Unlock()
	runner.recordedCommands = append(runner.recordedCommands, command)

	commandKey := strings.Join(append([]string{string(command.Name)}, command.Details.Arguments...), testCommandKeySeparatorConstant)
	result, found := runner.results[commandKey]
	if !found {
		return execshell.ExecutionResult{ExitCode: 1, StandardError: "unexpected command " + commandKey}, nil
	}
	return result, nil
}

func (runner *scriptedCommandRunner) executables(commandName execshell.CommandName) []string {
	runner.mutex.Lock()
	defer runner.mutex.Unlock()
	var executables []string
	for _, command := range runner.recordedCommands {
		if command.Name == commandName {
			executables = append(executables, command.ExecutableName())
		}
	}
	return executables
}

func newHostRunner() *scriptedCommandRunner {
	return &scriptedCommandRunner{results: map[string]execshell.ExecutionResult{
		"pacman -Qqm":                    {StandardOutput: "foo\n"},
		"pacman -Ql foo":                 {StandardOutput: "foo /usr/bin/\nfoo /usr/bin/foo\nfoo /usr/share/doc/foo/README\n"},
		"ldd /usr/bin/foo":               {StandardOutput: testLddOutputConstant},
		"pacman -Qi python":              {StandardOutput: testPythonInformationConstant},
		"pacman -Qoq /usr/lib/python3.8": {StandardOutput: "python-legacy\n"},
	}}
}

func newHostFilesystem(testInstance *testing.T) billy.Filesystem {
	testInstance.Helper()
	filesystem := memfs.New()
	require.NoError(testInstance, filesystem.MkdirAll("/usr/share/doc/foo", 0o755))
	require.NoError(testInstance, filesystem.MkdirAll("/usr/lib/python3.8/site-packages", 0o755))
	require.NoError(testInstance, filesystem.MkdirAll("/usr/lib/python3.10/site-packages", 0o755))
	require.NoError(testInstance, util.WriteFile(filesystem, "/usr/bin/foo", []byte("binary"), os.FileMode(0o755)))
	require.NoError(testInstance, util.WriteFile(filesystem, "/usr/share/doc/foo/README", []byte("readme"), os.FileMode(0o644)))
	return filesystem
}

func executeAuditCommand(testInstance *testing.T, builder *audit.CommandBuilder, arguments ...string) (string, string, error) {
	testInstance.Helper()
	command, buildError := builder.Build()
	require.NoError(testInstance, buildError)

	standardOutput := &strings.Builder{}
	standardError := &strings.Builder{}
	command.SetOut(standardOutput)
	command.SetErr(standardError)
	command.SetArgs(arguments)

	executionError := command.ExecuteContext(context.Background())
	return standardOutput.String(), standardError.String(), executionError
}

func TestAuditCommandReportsBrokenHost(testInstance *testing.T) {
	runner := newHostRunner()
	builder := &audit.CommandBuilder{
		LoggerProvider: func() *zap.Logger { return zap.NewNop() },
		CommandRunner:  runner,
		Filesystem:     newHostFilesystem(testInstance),
	}

	standardOutput, _, executionError := executeAuditCommand(testInstance, builder, "--workers", "2", "--progress", "never", "--color", "never")
	require.NoError(testInstance, executionError)

	expectedOutput := strings.Join([]string{
		"File '/usr/bin/foo' from package 'foo' is missing dependency 'libbar.so'",
		"Package 'python-legacy' has files in directory '/usr/lib/python3.8' that are ignored by the current Python interpreter",
	}, "\n") + "\n"
	require.Equal(testInstance, expectedOutput, standardOutput)
	require.Equal(testInstance, []string{"ldd"}, runner.executables(execshell.CommandLdd))
}

func TestAuditCommandRendersJSONReport(testInstance *testing.T) {
	builder := &audit.CommandBuilder{
		CommandRunner: newHostRunner(),
		Filesystem:    newHostFilesystem(testInstance),
	}

	standardOutput, _, executionError := executeAuditCommand(testInstance, builder, "--format", "json", "--progress", "never")
	require.NoError(testInstance, executionError)

	var decodedReport report.Report
	require.NoError(testInstance, json.Unmarshal([]byte(standardOutput), &decodedReport))
	require.Len(testInstance, decodedReport.MissingDependencies, 1)
	require.Equal(testInstance, "libbar.so", decodedReport.MissingDependencies[0].Library)
	require.Len(testInstance, decodedReport.StrayPythonDirectories, 1)
	require.Equal(testInstance, "python-legacy", decodedReport.StrayPythonDirectories[0].Package)
}

func TestAuditCommandFormatSelection(testInstance *testing.T) {
	testCases := []struct {
		name           string
		arguments      []string
		expectedPrefix string
	}{
		{
			name:           testYAMLFormatCaseNameConstant,
			arguments:      []string{"--progress", "never"},
			expectedPrefix: "missing_dependencies:",
		},
		{
			name:           testTextFormatCaseNameConstant,
			arguments:      []string{"--progress", "never", "--format", "text"},
			expectedPrefix: "File '/usr/bin/foo'",
		},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(testInstance *testing.T) {
			builder := &audit.CommandBuilder{
				ConfigurationProvider: func() audit.CommandConfiguration {
					configuration := audit.DefaultCommandConfiguration()
					configuration.OutputFormat = report.OutputFormatYAML
					return configuration
				},
				CommandRunner: newHostRunner(),
				Filesystem:    newHostFilesystem(testInstance),
			}

			standardOutput, _, executionError := executeAuditCommand(testInstance, builder, testCase.arguments...)
			require.NoError(testInstance, executionError)
			require.True(testInstance, strings.HasPrefix(standardOutput, testCase.expectedPrefix), standardOutput)
		})
	}
}

func TestAuditCommandUsesConfiguredToolPaths(testInstance *testing.T) {
	runner := newHostRunner()
	builder := &audit.CommandBuilder{
		ConfigurationProvider: func() audit.CommandConfiguration {
			configuration := audit.DefaultCommandConfiguration()
			configuration.Tools.Pacman = testCustomPacmanPathConstant
			configuration.Progress = "never"
			return configuration
		},
		CommandRunner: runner,
		Filesystem:    newHostFilesystem(testInstance),
	}

	_, _, executionError := executeAuditCommand(testInstance, builder)
	require.NoError(testInstance, executionError)

	pacmanExecutables := runner.executables(execshell.CommandPacman)
	require.NotEmpty(testInstance, pacmanExecutables)
	for _, executable := range pacmanExecutables {
		require.Equal(testInstance, testCustomPacmanPathConstant, executable)
	}
}

func TestAuditCommandDrawsProgressWhenForced(testInstance *testing.T) {
	builder := &audit.CommandBuilder{
		CommandRunner: newHostRunner(),
		Filesystem:    newHostFilesystem(testInstance),
	}

	_, standardError, executionError := executeAuditCommand(testInstance, builder, "--progress", "always")
	require.NoError(testInstance, executionError)
	require.Contains(testInstance, standardError, "Analyzing packages")
}

func TestAuditCommandFailsWhenPackageDatabaseFails(testInstance *testing.T) {
	runner := newHostRunner()
	runner.results["pacman -Qqm"] = execshell.ExecutionResult{ExitCode: 1, StandardError: "error: could not lock database"}
	builder := &audit.CommandBuilder{
		CommandRunner: runner,
		Filesystem:    newHostFilesystem(testInstance),
	}

	standardOutput, _, executionError := executeAuditCommand(testInstance, builder, "--progress", "never")
	require.Error(testInstance, executionError)
	require.Contains(testInstance, executionError.Error(), "audit failed")
	require.Contains(testInstance, executionError.Error(), "could not lock database")
	require.Empty(testInstance, standardOutput)
}

func TestAuditCommandRejectsInvalidInput(testInstance *testing.T) {
	testCases := []struct {
		name            string
		arguments       []string
		expectedMessage string
	}{
		{name: "unknown_format", arguments: []string{"--format", "xml"}, expectedMessage: "unsupported output format"},
		{name: "unknown_progress_mode", arguments: []string{"--progress", "sometimes"}, expectedMessage: "unsupported display mode"},
		{name: "negative_workers", arguments: []string{"--workers", "-1"}, expectedMessage: "invalid worker count"},
		{name: "positional_argument", arguments: []string{"extra"}, expectedMessage: "unknown command"},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(testInstance *testing.T) {
			runner := newHostRunner()
			builder := &audit.CommandBuilder{
				CommandRunner: runner,
				Filesystem:    newHostFilesystem(testInstance),
			}

			_, _, executionError := executeAuditCommand(testInstance, builder, testCase.arguments...)
			require.Error(testInstance, executionError)
			require.Contains(testInstance, executionError.Error(), testCase.expectedMessage)
			require.Empty(testInstance, runner.recordedCommands)
		})
	}
}
