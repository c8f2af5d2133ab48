// Package pacman answers the installed-package catalog queries of the audit:
// foreign package names, per-package file manifests, package information
// blocks, and the owners of a path. Every query runs through
// execshell.ShellExecutor and any failure is reported as an OperationError.
package pacman
