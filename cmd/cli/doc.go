// Package cli builds the check-broken-packages command line: a single root
// command backed by the audit command, with persistent flags for the
// configuration file and logging. Configuration is layered from embedded
// defaults, an optional file, CHECKBROKEN_* environment variables, and flags.
package cli
