package execshell

import (
	"fmt"
	"strings"
)

type messageStage int

const (
	messageStageStart messageStage = iota
	messageStageSuccess
	messageStageFailure
	messageStageExecutionFailure
)

const (
	genericStartTemplateConstant            = "Running %s"
	genericSuccessTemplateConstant          = "Completed %s"
	genericFailureTemplateConstant          = "%s failed with exit code %d%s"
	genericExecutionFailureTemplateConstant = "%s failed: %s"
	commandLabelTemplateConstant            = "%s%s"
	workingDirectorySuffixTemplateConstant  = " (in %s)"
	commandArgumentsJoinSeparatorConstant   = " "
	standardErrorSuffixTemplateConstant     = ": %s"
	unknownFailureMessageConstant           = "unknown error"
	emptyStringConstant                     = ""
	fallbackUnknownValueLabelConstant       = "unknown"
)

const (
	pacmanListForeignFlagConstant   = "-Qqm"
	pacmanListFilesFlagConstant     = "-Ql"
	pacmanPackageInfoFlagConstant   = "-Qi"
	pacmanOwningPackageFlagConstant = "-Qoq"
)

const (
	pacmanListForeignStartTemplateConstant            = "Listing foreign packages"
	pacmanListForeignSuccessTemplateConstant          = "Listed foreign packages"
	pacmanListForeignFailureTemplateConstant          = "Failed to list foreign packages (exit code %d%s)"
	pacmanListForeignExecutionFailureTemplateConstant = "Unable to list foreign packages: %s"
	pacmanListFilesStartTemplateConstant              = "Listing files owned by %s"
	pacmanListFilesSuccessTemplateConstant            = "Listed files owned by %s"
	pacmanListFilesFailureTemplateConstant            = "Failed to list files owned by %s (exit code %d%s)"
	pacmanListFilesExecutionFailureTemplateConstant   = "Unable to list files owned by %s: %s"
	pacmanPackageInfoStartTemplateConstant            = "Reading package information for %s"
	pacmanPackageInfoSuccessTemplateConstant          = "Read package information for %s"
	pacmanPackageInfoFailureTemplateConstant          = "Failed to read package information for %s (exit code %d%s)"
	pacmanPackageInfoExecutionFailureTemplateConstant = "Unable to read package information for %s: %s"
	pacmanOwnerStartTemplateConstant                  = "Looking up packages owning %s"
	pacmanOwnerSuccessTemplateConstant                = "Found packages owning %s"
	pacmanOwnerFailureTemplateConstant                = "Failed to look up packages owning %s (exit code %d%s)"
	pacmanOwnerExecutionFailureTemplateConstant       = "Unable to look up packages owning %s: %s"
	lddStartTemplateConstant                          = "Resolving shared libraries of %s"
	lddSuccessTemplateConstant                        = "Resolved shared libraries of %s"
	lddFailureTemplateConstant                        = "%s is not a dynamic executable (exit code %d%s)"
	lddExecutionFailureTemplateConstant               = "Unable to resolve shared libraries of %s: %s"
)

type stageTemplates struct {
	start            string
	success          string
	failure          string
	executionFailure string
}

var pacmanTemplatesByFlag = map[string]stageTemplates{
	pacmanListFilesFlagConstant: {
		start:            pacmanListFilesStartTemplateConstant,
		success:          pacmanListFilesSuccessTemplateConstant,
		failure:          pacmanListFilesFailureTemplateConstant,
		executionFailure: pacmanListFilesExecutionFailureTemplateConstant,
	},
	pacmanPackageInfoFlagConstant: {
		start:            pacmanPackageInfoStartTemplateConstant,
		success:          pacmanPackageInfoSuccessTemplateConstant,
		failure:          pacmanPackageInfoFailureTemplateConstant,
		executionFailure: pacmanPackageInfoExecutionFailureTemplateConstant,
	},
	pacmanOwningPackageFlagConstant: {
		start:            pacmanOwnerStartTemplateConstant,
		success:          pacmanOwnerSuccessTemplateConstant,
		failure:          pacmanOwnerFailureTemplateConstant,
		executionFailure: pacmanOwnerExecutionFailureTemplateConstant,
	},
}

var lddTemplates = stageTemplates{
	start:            lddStartTemplateConstant,
	success:          lddSuccessTemplateConstant,
	failure:          lddFailureTemplateConstant,
	executionFailure: lddExecutionFailureTemplateConstant,
}

// CommandMessageFormatter builds human-readable messages for command lifecycle events.
type CommandMessageFormatter struct{}

// BuildStartedMessage formats the message describing a command about to run.
func (formatter CommandMessageFormatter) BuildStartedMessage(command ShellCommand) string {
	return formatter.buildMessage(command, ExecutionResult{}, nil, messageStageStart)
}

// BuildSuccessMessage formats the message describing a completed command with a zero exit code.
func (formatter CommandMessageFormatter) BuildSuccessMessage(command ShellCommand) string {
	return formatter.buildMessage(command, ExecutionResult{}, nil, messageStageSuccess)
}

// BuildFailureMessage formats the message describing a command that returned a non-zero exit code.
func (formatter CommandMessageFormatter) BuildFailureMessage(command ShellCommand, result ExecutionResult) string {
	return formatter.buildMessage(command, result, nil, messageStageFailure)
}

// BuildExecutionFailureMessage formats the message describing an unexpected execution failure.
func (formatter CommandMessageFormatter) BuildExecutionFailureMessage(command ShellCommand, failure error) string {
	return formatter.buildMessage(command, ExecutionResult{}, failure, messageStageExecutionFailure)
}

func (formatter CommandMessageFormatter) buildMessage(command ShellCommand, result ExecutionResult, failure error, stage messageStage) string {
	switch command.Name {
	case CommandPacman:
		return formatter.describePacmanMessage(command, result, failure, stage)
	case CommandLdd:
		target := formatter.ensureValue(formatter.argumentAtIndex(command.Details.Arguments, len(command.Details.Arguments)-1))
		return formatter.applyTemplates(lddTemplates, target, result, failure, stage)
	default:
		return formatter.buildGenericMessage(command, result, failure, stage)
	}
}

func (formatter CommandMessageFormatter) describePacmanMessage(command ShellCommand, result ExecutionResult, failure error, stage messageStage) string {
	arguments := command.Details.Arguments
	if len(arguments) == 0 {
		return formatter.buildGenericMessage(command, result, failure, stage)
	}

	operationFlag := strings.TrimSpace(arguments[0])
	if operationFlag == pacmanListForeignFlagConstant {
		switch stage {
		case messageStageStart:
			return pacmanListForeignStartTemplateConstant
		case messageStageSuccess:
			return pacmanListForeignSuccessTemplateConstant
		case messageStageFailure:
			return fmt.Sprintf(pacmanListForeignFailureTemplateConstant, result.ExitCode, formatter.formatStandardErrorSuffix(result.StandardError))
		case messageStageExecutionFailure:
			return fmt.Sprintf(pacmanListForeignExecutionFailureTemplateConstant, formatter.describeFailure(failure))
		}
	}

	templates, templatesFound := pacmanTemplatesByFlag[operationFlag]
	if !templatesFound {
		return formatter.buildGenericMessage(command, result, failure, stage)
	}

	target := formatter.ensureValue(formatter.argumentAtIndex(arguments, 1))
	return formatter.applyTemplates(templates, target, result, failure, stage)
}

func (formatter CommandMessageFormatter) applyTemplates(templates stageTemplates, target string, result ExecutionResult, failure error, stage messageStage) string {
	switch stage {
	case messageStageStart:
		return fmt.Sprintf(templates.start, target)
	case messageStageSuccess:
		return fmt.Sprintf(templates.success, target)
	case messageStageFailure:
		return fmt.Sprintf(templates.failure, target, result.ExitCode, formatter.formatStandardErrorSuffix(result.StandardError))
	case messageStageExecutionFailure:
		return fmt.Sprintf(templates.executionFailure, target, formatter.describeFailure(failure))
	default:
		return emptyStringConstant
	}
}

func (formatter CommandMessageFormatter) buildGenericMessage(command ShellCommand, result ExecutionResult, failure error, stage messageStage) string {
	commandLabel := formatter.formatCommandLabel(command)
	switch stage {
	case messageStageStart:
		return fmt.Sprintf(genericStartTemplateConstant, commandLabel)
	case messageStageSuccess:
		return fmt.Sprintf(genericSuccessTemplateConstant, commandLabel)
	case messageStageFailure:
		return fmt.Sprintf(genericFailureTemplateConstant, commandLabel, result.ExitCode, formatter.formatStandardErrorSuffix(result.StandardError))
	case messageStageExecutionFailure:
		return fmt.Sprintf(genericExecutionFailureTemplateConstant, commandLabel, formatter.describeFailure(failure))
	default:
		return emptyStringConstant
	}
}

func (formatter CommandMessageFormatter) formatCommandLabel(command ShellCommand) string {
	commandLabel := string(command.Name)
	if len(command.Details.Arguments) > 0 {
		commandLabel = fmt.Sprintf("%s %s", commandLabel, strings.Join(command.Details.Arguments, commandArgumentsJoinSeparatorConstant))
	}
	return fmt.Sprintf(commandLabelTemplateConstant, commandLabel, formatter.formatWorkingDirectorySuffix(command))
}

func (formatter CommandMessageFormatter) formatWorkingDirectorySuffix(command ShellCommand) string {
	trimmedWorkingDirectory := strings.TrimSpace(command.Details.WorkingDirectory)
	if len(trimmedWorkingDirectory) == 0 {
		return emptyStringConstant
	}
	return fmt.Sprintf(workingDirectorySuffixTemplateConstant, trimmedWorkingDirectory)
}

func (formatter CommandMessageFormatter) formatStandardErrorSuffix(standardError string) string {
	trimmedStandardError := strings.TrimSpace(standardError)
	if len(trimmedStandardError) == 0 {
		return emptyStringConstant
	}
	return fmt.Sprintf(standardErrorSuffixTemplateConstant, trimmedStandardError)
}

func (formatter CommandMessageFormatter) describeFailure(failure error) string {
	if failure == nil {
		return unknownFailureMessageConstant
	}
	return failure.Error()
}

func (formatter CommandMessageFormatter) argumentAtIndex(arguments []string, index int) string {
	if index < 0 || index >= len(arguments) {
		return emptyStringConstant
	}
	return strings.TrimSpace(arguments[index])
}

func (formatter CommandMessageFormatter) ensureValue(value string) string {
	if len(strings.TrimSpace(value)) == 0 {
		return fallbackUnknownValueLabelConstant
	}
	return value
}
