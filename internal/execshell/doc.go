// Package execshell provides structured helpers for invoking external tools.
//
// ShellExecutor wraps a CommandRunner with zap logging, optional lifecycle
// observers, and typed failures (CommandFailedError for non-zero exits,
// CommandExecutionError for processes that could not run). OSCommandRunner is
// the os/exec backed runner used for pacman and ldd.
package execshell
