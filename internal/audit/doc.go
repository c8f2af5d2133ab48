// Package audit wires the package database, the dependency pipeline, and the
// Python directory check into the single command that audits a host.
//
// Service.Run starts the Python check on its own goroutine, lists the foreign
// packages, runs the dependency pipeline, joins the check, and renders one
// report. Any collaborator failure aborts the run before anything is written
// to standard output.
package audit
