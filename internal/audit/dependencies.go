package audit

import (
	"context"
	"io"

	"github.com/temirov/check-broken-packages/internal/pipeline"
	"github.com/temirov/check-broken-packages/internal/python"
	"github.com/temirov/check-broken-packages/internal/report"
)

// PackageLister lists the foreign packages selected for the dependency scan.
type PackageLister interface {
	ListForeignPackages(executionContext context.Context) ([]string, error)
}

// MissingDependencyScanner runs the two-stage dependency pipeline.
type MissingDependencyScanner interface {
	Run(executionContext context.Context, packages []pipeline.PackageName) ([]pipeline.MissingDependencyFinding, error)
}

// StrayDirectoryDetector finds packages with files in inactive Python library directories.
type StrayDirectoryDetector interface {
	Detect(executionContext context.Context) ([]python.StrayDirectoryFinding, error)
}

// ProgressReporter is told how many packages a scan covers and when it ends.
type ProgressReporter interface {
	Start(total int)
	Finish()
}

// ReportRenderer writes the finished report.
type ReportRenderer interface {
	Render(writer io.Writer, auditReport report.Report) error
}

type noopProgressReporter struct{}

func (noopProgressReporter) Start(int) {}

func (noopProgressReporter) Finish() {}
