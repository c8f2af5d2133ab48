package pipeline

import (
	"context"
	"errors"
	"strings"
)

const (
	missingLibraryMarkerConstant      = "=> not found"
	probeNotConfiguredMessageConstant = "dependency probe not configured"
)

// DependencyProbe returns the raw output lines of the dynamic-linker probe for a file.
type DependencyProbe interface {
	Check(executionContext context.Context, filePath string) ([]string, error)
}

// ErrDependencyProbeNotConfigured indicates the checker was constructed without a probe.
var ErrDependencyProbeNotConfigured = errors.New(probeNotConfiguredMessageConstant)

// DependencyChecker extracts unresolved shared libraries from probe output.
type DependencyChecker struct {
	probe DependencyProbe
}

// NewDependencyChecker constructs a DependencyChecker.
func NewDependencyChecker(probe DependencyProbe) (*DependencyChecker, error) {
	if probe == nil {
		return nil, ErrDependencyProbeNotConfigured
	}
	return &DependencyChecker{probe: probe}, nil
}

// MissingLibraries returns the unresolved libraries of the executable in probe output order.
func (checker *DependencyChecker) MissingLibraries(executionContext context.Context, filePath string) ([]string, error) {
	probeLines, probeError := checker.probe.Check(executionContext, filePath)
	if probeError != nil {
		return nil, probeError
	}
	return ParseMissingLibraries(probeLines), nil
}

// ParseMissingLibraries returns the first token of every line ending in "=> not found".
func ParseMissingLibraries(probeLines []string) []string {
	var missingLibraries []string
	for _, probeLine := range probeLines {
		trimmedLine := strings.TrimSpace(probeLine)
		if !strings.HasSuffix(trimmedLine, missingLibraryMarkerConstant) {
			continue
		}
		lineFields := strings.Fields(trimmedLine)
		if len(lineFields) < 4 {
			continue
		}
		missingLibraries = append(missingLibraries, lineFields[0])
	}
	return missingLibraries
}
