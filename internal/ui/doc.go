// Package ui provides helpers for human-readable console output: command
// lifecycle messages for console logging, terminal detection, and the scan
// progress bar written to standard error.
package ui
