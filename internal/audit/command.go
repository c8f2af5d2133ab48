package audit

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/osfs"
	"github.com/gookit/color"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/temirov/check-broken-packages/internal/execshell"
	"github.com/temirov/check-broken-packages/internal/ldd"
	"github.com/temirov/check-broken-packages/internal/pacman"
	"github.com/temirov/check-broken-packages/internal/pipeline"
	"github.com/temirov/check-broken-packages/internal/python"
	"github.com/temirov/check-broken-packages/internal/report"
	"github.com/temirov/check-broken-packages/internal/ui"
	"github.com/temirov/check-broken-packages/internal/utils/flags"
)

const (
	commandUseConstant                    = "check-broken-packages"
	commandShortDescriptionConstant       = "Find foreign packages with unresolved shared libraries"
	commandLongDescriptionConstant        = "check-broken-packages runs ldd over every executable of the foreign pacman packages and reports unresolved shared libraries. It also reports packages with files in Python library directories the active interpreter ignores."
	commandExecutionErrorTemplateConstant = "audit failed: %w"
	invalidWorkersTemplateConstant        = "invalid worker count %d (expected a non-negative number)"
	rootDirectoryConstant                 = "/"
	workersFlagNameConstant               = "workers"
	workersFlagDescriptionConstant        = "Workers per pipeline stage (0 uses the CPU count)"
	formatFlagNameConstant                = "format"
	formatFlagDescriptionConstant         = "Report output format"
	sortFlagNameConstant                  = "sort"
	sortFlagDescriptionConstant           = "Sort findings by package, file, and library"
	progressFlagNameConstant              = "progress"
	progressFlagDescriptionConstant       = "Show the progress bar on standard error"
	colorFlagNameConstant                 = "color"
	colorFlagDescriptionConstant          = "Color text findings on standard output"
)

// LoggerProvider supplies a zap logger for command execution.
type LoggerProvider func() *zap.Logger

// ConfigurationProvider returns the current audit configuration.
type ConfigurationProvider func() CommandConfiguration

// HumanReadableLoggingProvider reports whether console-formatted command events are requested.
type HumanReadableLoggingProvider func() bool

// CommandBuilder assembles the audit cobra command with configurable dependencies.
type CommandBuilder struct {
	LoggerProvider               LoggerProvider
	ConfigurationProvider        ConfigurationProvider
	HumanReadableLoggingProvider HumanReadableLoggingProvider
	CommandRunner                execshell.CommandRunner
	Filesystem                   billy.Filesystem
}

// Build constructs the audit command.
func (builder *CommandBuilder) Build() (*cobra.Command, error) {
	command := &cobra.Command{
		Use:           commandUseConstant,
		Short:         commandShortDescriptionConstant,
		Long:          commandLongDescriptionConstant,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          builder.run,
	}

	defaults := DefaultCommandConfiguration()
	command.Flags().Int(workersFlagNameConstant, defaults.Workers, workersFlagDescriptionConstant)
	command.Flags().String(formatFlagNameConstant, "", flags.FormatChoiceUsage(string(defaults.OutputFormat), report.OutputFormatChoices, formatFlagDescriptionConstant))
	flags.AddToggleFlag(command.Flags(), nil, sortFlagNameConstant, "", defaults.Sort, sortFlagDescriptionConstant)
	command.Flags().String(progressFlagNameConstant, "", flags.FormatChoiceUsage(string(defaults.Progress), ui.DisplayModeChoices, progressFlagDescriptionConstant))
	command.Flags().String(colorFlagNameConstant, "", flags.FormatChoiceUsage(string(defaults.Color), ui.DisplayModeChoices, colorFlagDescriptionConstant))

	return command, nil
}

func (builder *CommandBuilder) run(command *cobra.Command, arguments []string) error {
	configuration, configurationError := builder.parseConfiguration(command)
	if configurationError != nil {
		return configurationError
	}

	logger := builder.resolveLogger()
	service, serviceError := builder.buildService(logger, configuration, command.OutOrStdout(), command.ErrOrStderr())
	if serviceError != nil {
		return serviceError
	}

	executionContext := command.Context()
	if executionContext == nil {
		executionContext = context.Background()
	}

	if runError := service.Run(executionContext, CommandOptions{Sort: configuration.Sort}); runError != nil {
		return fmt.Errorf(commandExecutionErrorTemplateConstant, runError)
	}
	return nil
}

func (builder *CommandBuilder) parseConfiguration(command *cobra.Command) (CommandConfiguration, error) {
	configuration := builder.resolveConfiguration()

	if command.Flags().Changed(workersFlagNameConstant) {
		workersValue, workersError := command.Flags().GetInt(workersFlagNameConstant)
		if workersError != nil {
			return CommandConfiguration{}, workersError
		}
		if workersValue < 0 {
			return CommandConfiguration{}, fmt.Errorf(invalidWorkersTemplateConstant, workersValue)
		}
		configuration.Workers = workersValue
	}

	formatFlagValue, formatFlagError := command.Flags().GetString(formatFlagNameConstant)
	if formatFlagError != nil {
		return CommandConfiguration{}, formatFlagError
	}
	parsedFormat, formatParseError := report.ParseOutputFormat(selectStringValue(formatFlagValue, string(configuration.OutputFormat)))
	if formatParseError != nil {
		return CommandConfiguration{}, formatParseError
	}
	configuration.OutputFormat = parsedFormat

	if command.Flags().Changed(sortFlagNameConstant) {
		sortValue, sortFlagError := command.Flags().GetBool(sortFlagNameConstant)
		if sortFlagError != nil {
			return CommandConfiguration{}, sortFlagError
		}
		configuration.Sort = sortValue
	}

	progressMode, progressError := parseDisplayModeFlag(command, progressFlagNameConstant, configuration.Progress)
	if progressError != nil {
		return CommandConfiguration{}, progressError
	}
	configuration.Progress = progressMode

	colorMode, colorError := parseDisplayModeFlag(command, colorFlagNameConstant, configuration.Color)
	if colorError != nil {
		return CommandConfiguration{}, colorError
	}
	configuration.Color = colorMode

	return configuration, nil
}

func (builder *CommandBuilder) buildService(logger *zap.Logger, configuration CommandConfiguration, outputWriter io.Writer, errorWriter io.Writer) (*Service, error) {
	executorOptions := []execshell.ShellExecutorOption{
		execshell.WithExecutablePath(execshell.CommandPacman, configuration.Tools.Pacman),
		execshell.WithExecutablePath(execshell.CommandLdd, configuration.Tools.Ldd),
	}
	if builder.humanReadableLogging() {
		executorOptions = append(executorOptions, execshell.WithCommandEventObserver(ui.NewConsoleCommandEventLogger(logger)))
	}

	shellExecutor, executorError := execshell.NewShellExecutor(logger, builder.resolveCommandRunner(), executorOptions...)
	if executorError != nil {
		return nil, executorError
	}

	pacmanClient, clientError := pacman.NewClient(shellExecutor)
	if clientError != nil {
		return nil, clientError
	}

	lddProbe, probeError := ldd.NewProbe(shellExecutor)
	if probeError != nil {
		return nil, probeError
	}

	filesystem := builder.resolveFilesystem()

	enumerator, enumeratorError := pipeline.NewExecutableFileEnumerator(pacmanClient, filesystem)
	if enumeratorError != nil {
		return nil, enumeratorError
	}

	checker, checkerError := pipeline.NewDependencyChecker(lddProbe)
	if checkerError != nil {
		return nil, checkerError
	}

	orchestratorOptions := []pipeline.OrchestratorOption{pipeline.WithWorkerCount(configuration.Workers)}
	serviceOptions := []ServiceOption{}
	if configuration.Progress.Enabled(errorWriter) {
		progressDisplay := ui.NewProgressDisplay(errorWriter)
		orchestratorOptions = append(orchestratorOptions, pipeline.WithProgressObserver(progressDisplay))
		serviceOptions = append(serviceOptions, WithProgressReporter(progressDisplay))
	}

	orchestrator, orchestratorError := pipeline.NewOrchestrator(logger, enumerator, checker, orchestratorOptions...)
	if orchestratorError != nil {
		return nil, orchestratorError
	}

	detector, detectorError := python.NewDetector(
		logger,
		pacmanClient,
		filesystem,
		python.WithPackageName(configuration.Python.Package),
		python.WithLibraryRootPrefix(configuration.Python.LibraryRootPrefix),
	)
	if detectorError != nil {
		return nil, detectorError
	}

	colorize := configuration.OutputFormat == report.OutputFormatText && configuration.Color.Enabled(outputWriter)
	if colorize {
		color.ForceOpenColor()
	}
	renderer := report.NewRenderer(configuration.OutputFormat, colorize)

	return NewService(logger, pacmanClient, orchestrator, detector, renderer, outputWriter, serviceOptions...)
}

func (builder *CommandBuilder) resolveLogger() *zap.Logger {
	if builder.LoggerProvider == nil {
		return zap.NewNop()
	}
	logger := builder.LoggerProvider()
	if logger == nil {
		return zap.NewNop()
	}
	return logger
}

func (builder *CommandBuilder) resolveConfiguration() CommandConfiguration {
	if builder.ConfigurationProvider == nil {
		return DefaultCommandConfiguration()
	}
	return builder.ConfigurationProvider().sanitize()
}

func (builder *CommandBuilder) humanReadableLogging() bool {
	if builder.HumanReadableLoggingProvider == nil {
		return false
	}
	return builder.HumanReadableLoggingProvider()
}

func (builder *CommandBuilder) resolveCommandRunner() execshell.CommandRunner {
	if builder.CommandRunner != nil {
		return builder.CommandRunner
	}
	return execshell.NewOSCommandRunner()
}

func (builder *CommandBuilder) resolveFilesystem() billy.Filesystem {
	if builder.Filesystem != nil {
		return builder.Filesystem
	}
	return osfs.New(rootDirectoryConstant)
}

func parseDisplayModeFlag(command *cobra.Command, flagName string, configuredMode ui.DisplayMode) (ui.DisplayMode, error) {
	flagValue, flagError := command.Flags().GetString(flagName)
	if flagError != nil {
		return "", flagError
	}
	return ui.ParseDisplayMode(selectStringValue(flagValue, string(configuredMode)))
}

func selectStringValue(flagValue string, configuredValue string) string {
	trimmedFlagValue := strings.TrimSpace(flagValue)
	if len(trimmedFlagValue) > 0 {
		return trimmedFlagValue
	}
	return strings.TrimSpace(configuredValue)
}
