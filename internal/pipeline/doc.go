// Package pipeline finds executables of installed packages whose shared-library
// dependencies cannot be resolved.
//
// A scan runs in two stages connected by channels. The enumeration stage turns
// package names into executable work items and the checking stage turns work
// items into MissingDependencyFinding values. Each stage closes its output
// channel once all of its workers returned, so the consumer sees a finite
// stream. A ProgressCounter advances once per package: when the package has no
// executables, or when the work item tagged LastForPackage has been checked.
package pipeline
