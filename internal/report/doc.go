// Package report renders audit findings as text lines, JSON, or YAML.
package report
