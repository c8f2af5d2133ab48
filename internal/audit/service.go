package audit

import (
	"context"
	"errors"
	"fmt"
	"io"

	"go.uber.org/zap"

	"github.com/temirov/check-broken-packages/internal/pipeline"
	"github.com/temirov/check-broken-packages/internal/python"
	"github.com/temirov/check-broken-packages/internal/report"
)

const (
	loggerNotConfiguredMessageConstant    = "audit logger not configured"
	listerNotConfiguredMessageConstant    = "audit package lister not configured"
	scannerNotConfiguredMessageConstant   = "audit dependency scanner not configured"
	detectorNotConfiguredMessageConstant  = "audit python detector not configured"
	rendererNotConfiguredMessageConstant  = "audit report renderer not configured"
	listPackagesFailedTemplateConstant    = "list foreign packages: %w"
	detectionFailedTemplateConstant       = "detect stray python directories: %w"
	auditCompletedMessageConstant         = "Audit completed"
	packageCountLogFieldNameConstant      = "packages"
	missingDependencyLogFieldNameConstant = "missing_dependencies"
	strayDirectoryLogFieldNameConstant    = "stray_directories"
)

var (
	// ErrLoggerNotConfigured indicates the service was constructed without a logger.
	ErrLoggerNotConfigured = errors.New(loggerNotConfiguredMessageConstant)
	// ErrPackageListerNotConfigured indicates the service was constructed without a package lister.
	ErrPackageListerNotConfigured = errors.New(listerNotConfiguredMessageConstant)
	// ErrScannerNotConfigured indicates the service was constructed without a dependency scanner.
	ErrScannerNotConfigured = errors.New(scannerNotConfiguredMessageConstant)
	// ErrDetectorNotConfigured indicates the service was constructed without a Python detector.
	ErrDetectorNotConfigured = errors.New(detectorNotConfiguredMessageConstant)
	// ErrRendererNotConfigured indicates the service was constructed without a renderer.
	ErrRendererNotConfigured = errors.New(rendererNotConfiguredMessageConstant)
)

// CommandOptions configures a single audit run.
type CommandOptions struct {
	Sort bool
}

// ServiceOption customizes a Service during construction.
type ServiceOption func(*Service)

// WithProgressReporter registers the reporter told about the package count and scan end.
func WithProgressReporter(reporter ProgressReporter) ServiceOption {
	return func(service *Service) {
		if reporter != nil {
			service.progress = reporter
		}
	}
}

// Service runs the dependency scan and the Python directory check, then renders one report.
type Service struct {
	logger       *zap.Logger
	lister       PackageLister
	scanner      MissingDependencyScanner
	detector     StrayDirectoryDetector
	renderer     ReportRenderer
	progress     ProgressReporter
	outputWriter io.Writer
}

type detectionOutcome struct {
	findings []python.StrayDirectoryFinding
	err      error
}

// NewService validates collaborators and constructs a Service.
func NewService(logger *zap.Logger, lister PackageLister, scanner MissingDependencyScanner, detector StrayDirectoryDetector, renderer ReportRenderer, outputWriter io.Writer, options ...ServiceOption) (*Service, error) {
	switch {
	case logger == nil:
		return nil, ErrLoggerNotConfigured
	case lister == nil:
		return nil, ErrPackageListerNotConfigured
	case scanner == nil:
		return nil, ErrScannerNotConfigured
	case detector == nil:
		return nil, ErrDetectorNotConfigured
	case renderer == nil:
		return nil, ErrRendererNotConfigured
	}
	if outputWriter == nil {
		outputWriter = io.Discard
	}

	service := &Service{
		logger:       logger,
		lister:       lister,
		scanner:      scanner,
		detector:     detector,
		renderer:     renderer,
		progress:     noopProgressReporter{},
		outputWriter: outputWriter,
	}
	for _, option := range options {
		if option != nil {
			option(service)
		}
	}
	return service, nil
}

// Run audits the host. The Python check runs alongside the dependency scan; the
// first failure of either cancels the other and nothing is rendered.
func (service *Service) Run(executionContext context.Context, options CommandOptions) error {
	scanContext, cancelScan := context.WithCancelCause(executionContext)
	defer cancelScan(nil)

	detectionOutcomes := make(chan detectionOutcome, 1)
	go func() {
		strayDirectories, detectionError := service.detector.Detect(scanContext)
		if detectionError != nil {
			detectionError = fmt.Errorf(detectionFailedTemplateConstant, detectionError)
			cancelScan(detectionError)
		}
		detectionOutcomes <- detectionOutcome{findings: strayDirectories, err: detectionError}
	}()

	packageCount, missingDependencies, scanError := service.scanPackages(scanContext)
	if scanError != nil {
		cancelScan(scanError)
	}

	outcome := <-detectionOutcomes
	if cause := context.Cause(scanContext); cause != nil {
		return cause
	}
	if outcome.err != nil {
		return outcome.err
	}

	auditReport := report.Report{
		MissingDependencies:    missingDependencies,
		StrayPythonDirectories: outcome.findings,
	}
	if options.Sort {
		auditReport = auditReport.Sorted()
	}

	service.logger.Info(
		auditCompletedMessageConstant,
		zap.Int(packageCountLogFieldNameConstant, packageCount),
		zap.Int(missingDependencyLogFieldNameConstant, len(auditReport.MissingDependencies)),
		zap.Int(strayDirectoryLogFieldNameConstant, len(auditReport.StrayPythonDirectories)),
	)

	return service.renderer.Render(service.outputWriter, auditReport)
}

func (service *Service) scanPackages(executionContext context.Context) (int, []pipeline.MissingDependencyFinding, error) {
	packageNames, listError := service.lister.ListForeignPackages(executionContext)
	if listError != nil {
		return 0, nil, fmt.Errorf(listPackagesFailedTemplateConstant, listError)
	}

	packages := make([]pipeline.PackageName, 0, len(packageNames))
	for _, packageName := range packageNames {
		packages = append(packages, pipeline.PackageName(packageName))
	}

	service.progress.Start(len(packages))
	defer service.progress.Finish()

	missingDependencies, scanError := service.scanner.Run(executionContext, packages)
	if scanError != nil {
		return len(packages), nil, scanError
	}
	return len(packages), missingDependencies, nil
}
