package execshell

// CommandEventObserver receives lifecycle notifications for every external command.
// Implementations are called from many pipeline workers at once.
type CommandEventObserver interface {
	// CommandStarted notifies observers that a command is about to start.
	CommandStarted(command ShellCommand)
	// CommandCompleted notifies observers that a command exited and supplies its result.
	CommandCompleted(command ShellCommand, result ExecutionResult)
	// CommandExecutionFailed reports commands that never produced a result.
	CommandExecutionFailed(command ShellCommand, failure error)
}

type noopCommandEventObserver struct{}

func (noopCommandEventObserver) CommandStarted(ShellCommand) {}

func (noopCommandEventObserver) CommandCompleted(ShellCommand, ExecutionResult) {}

func (noopCommandEventObserver) CommandExecutionFailed(ShellCommand, error) {}
