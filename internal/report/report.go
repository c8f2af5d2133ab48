package report

import (
	"cmp"
	"slices"

	"github.com/temirov/check-broken-packages/internal/pipeline"
	"github.com/temirov/check-broken-packages/internal/python"
)

// Report holds the results of one audit.
type Report struct {
	MissingDependencies    []pipeline.MissingDependencyFinding `json:"missing_dependencies" yaml:"missing_dependencies"`
	StrayPythonDirectories []python.StrayDirectoryFinding      `json:"stray_python_directories" yaml:"stray_python_directories"`
}

// FindingCount returns the number of findings of both kinds.
func (report Report) FindingCount() int {
	return len(report.MissingDependencies) + len(report.StrayPythonDirectories)
}

// Sorted returns a copy ordered by package, then file or directory, then library.
func (report Report) Sorted() Report {
	missingDependencies := slices.Clone(report.MissingDependencies)
	slices.SortStableFunc(missingDependencies, func(left, right pipeline.MissingDependencyFinding) int {
		return cmp.Or(
			cmp.Compare(left.Package, right.Package),
			cmp.Compare(left.FilePath, right.FilePath),
			cmp.Compare(left.Library, right.Library),
		)
	})

	strayDirectories := slices.Clone(report.StrayPythonDirectories)
	slices.SortStableFunc(strayDirectories, func(left, right python.StrayDirectoryFinding) int {
		return cmp.Or(
			cmp.Compare(left.Package, right.Package),
			cmp.Compare(left.Directory, right.Directory),
		)
	})

	return Report{MissingDependencies: missingDependencies, StrayPythonDirectories: strayDirectories}
}
