package pipeline

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	loggerNotConfiguredMessageConstant     = "pipeline logger not configured"
	enumeratorNotConfiguredMessageConstant = "executable enumerator not configured"
	checkerNotConfiguredMessageConstant    = "dependency checker not configured"
	enumerationFailedTemplateConstant      = "enumerate executables of package %s: %w"
	checkFailedTemplateConstant            = "check dependencies of %s: %w"
	scanStartedMessageConstant             = "Scanning packages"
	scanCompletedMessageConstant           = "Package scan completed"
	packageCountLogFieldNameConstant       = "packages"
	workerCountLogFieldNameConstant        = "workers"
	enumerationWorkersLogFieldNameConstant = "enumeration_workers"
	findingCountLogFieldNameConstant       = "missing_dependencies"
)

// ExecutableEnumerator lists the executable files of a package.
type ExecutableEnumerator interface {
	ExecutableFiles(executionContext context.Context, packageName PackageName) ([]string, error)
}

// MissingLibraryChecker lists the unresolved shared libraries of an executable.
type MissingLibraryChecker interface {
	MissingLibraries(executionContext context.Context, filePath string) ([]string, error)
}

var (
	// ErrLoggerNotConfigured indicates the orchestrator was constructed without a logger.
	ErrLoggerNotConfigured = errors.New(loggerNotConfiguredMessageConstant)
	// ErrEnumeratorNotConfigured indicates the orchestrator was constructed without an enumerator.
	ErrEnumeratorNotConfigured = errors.New(enumeratorNotConfiguredMessageConstant)
	// ErrCheckerNotConfigured indicates the orchestrator was constructed without a checker.
	ErrCheckerNotConfigured = errors.New(checkerNotConfiguredMessageConstant)
)

// OrchestratorOption customizes an Orchestrator during construction.
type OrchestratorOption func(*Orchestrator)

// WithWorkerCount sets the pool size of each stage. Non-positive values keep the CPU count.
func WithWorkerCount(workerCount int) OrchestratorOption {
	return func(orchestrator *Orchestrator) {
		if workerCount > 0 {
			orchestrator.workerCount = workerCount
		}
	}
}

// WithProgressObserver registers an observer notified whenever a package finishes.
func WithProgressObserver(observer ProgressObserver) OrchestratorOption {
	return func(orchestrator *Orchestrator) {
		orchestrator.progressObserver = observer
	}
}

// Orchestrator runs the two-stage scan: packages are enumerated into executable
// work items by one pool and the work items are checked by a second pool.
type Orchestrator struct {
	logger           *zap.Logger
	enumerator       ExecutableEnumerator
	checker          MissingLibraryChecker
	workerCount      int
	progressObserver ProgressObserver
}

// NewOrchestrator validates collaborators and constructs an Orchestrator.
func NewOrchestrator(logger *zap.Logger, enumerator ExecutableEnumerator, checker MissingLibraryChecker, options ...OrchestratorOption) (*Orchestrator, error) {
	if logger == nil {
		return nil, ErrLoggerNotConfigured
	}
	if enumerator == nil {
		return nil, ErrEnumeratorNotConfigured
	}
	if checker == nil {
		return nil, ErrCheckerNotConfigured
	}

	orchestrator := &Orchestrator{
		logger:      logger,
		enumerator:  enumerator,
		checker:     checker,
		workerCount: runtime.NumCPU(),
	}
	for _, option := range options {
		if option != nil {
			option(orchestrator)
		}
	}
	return orchestrator, nil
}

// WorkerCount reports the pool size of each stage.
func (orchestrator *Orchestrator) WorkerCount() int {
	return orchestrator.workerCount
}

// Run scans the packages and returns every missing dependency found. The first
// collaborator failure stops both stages and is returned without partial results.
// Findings arrive in scheduler order.
func (orchestrator *Orchestrator) Run(executionContext context.Context, packages []PackageName) ([]MissingDependencyFinding, error) {
	progress := NewProgressCounter(len(packages), orchestrator.progressObserver)
	if len(packages) == 0 {
		return nil, nil
	}

	enumerationWorkerCount := min(orchestrator.workerCount, len(packages))
	orchestrator.logger.Info(
		scanStartedMessageConstant,
		zap.Int(packageCountLogFieldNameConstant, len(packages)),
		zap.Int(workerCountLogFieldNameConstant, orchestrator.workerCount),
		zap.Int(enumerationWorkersLogFieldNameConstant, enumerationWorkerCount),
	)

	packageQueue := make(chan PackageName, len(packages))
	for _, packageName := range packages {
		packageQueue <- packageName
	}
	close(packageQueue)

	workQueue := make(chan ExecutableWorkItem, orchestrator.workerCount)
	findingQueue := make(chan MissingDependencyFinding, orchestrator.workerCount)

	scanGroup, scanContext := errgroup.WithContext(executionContext)

	var enumerationWorkers sync.WaitGroup
	for range enumerationWorkerCount {
		enumerationWorkers.Add(1)
		scanGroup.Go(func() error {
			defer enumerationWorkers.Done()
			return orchestrator.enumeratePackages(scanContext, packageQueue, workQueue, progress)
		})
	}

	var checkWorkers sync.WaitGroup
	for range orchestrator.workerCount {
		checkWorkers.Add(1)
		scanGroup.Go(func() error {
			defer checkWorkers.Done()
			return orchestrator.checkWorkItems(scanContext, workQueue, findingQueue, progress)
		})
	}

	go func() {
		enumerationWorkers.Wait()
		close(workQueue)
	}()
	go func() {
		checkWorkers.Wait()
		close(findingQueue)
	}()

	var findings []MissingDependencyFinding
	for finding := range findingQueue {
		findings = append(findings, finding)
	}

	scanError := scanGroup.Wait()
	if executionContext.Err() != nil {
		return nil, context.Cause(executionContext)
	}
	if scanError != nil {
		return nil, scanError
	}

	orchestrator.logger.Info(
		scanCompletedMessageConstant,
		zap.Int(packageCountLogFieldNameConstant, int(progress.Completed())),
		zap.Int(findingCountLogFieldNameConstant, len(findings)),
	)
	return findings, nil
}

func (orchestrator *Orchestrator) enumeratePackages(executionContext context.Context, packageQueue <-chan PackageName, workQueue chan<- ExecutableWorkItem, progress *ProgressCounter) error {
	for packageName := range packageQueue {
		if executionContext.Err() != nil {
			return nil
		}

		executableFiles, enumerationError := orchestrator.enumerator.ExecutableFiles(executionContext, packageName)
		if enumerationError != nil {
			return fmt.Errorf(enumerationFailedTemplateConstant, packageName, enumerationError)
		}
		if len(executableFiles) == 0 {
			progress.Increment()
			continue
		}

		for _, workItem := range BuildWorkItems(packageName, executableFiles) {
			select {
			case workQueue <- workItem:
			case <-executionContext.Done():
				return nil
			}
		}
	}
	return nil
}

func (orchestrator *Orchestrator) checkWorkItems(executionContext context.Context, workQueue <-chan ExecutableWorkItem, findingQueue chan<- MissingDependencyFinding, progress *ProgressCounter) error {
	for {
		var workItem ExecutableWorkItem
		select {
		case <-executionContext.Done():
			return nil
		case nextWorkItem, open := <-workQueue:
			if !open {
				return nil
			}
			workItem = nextWorkItem
		}

		missingLibraries, checkError := orchestrator.checker.MissingLibraries(executionContext, workItem.FilePath)
		if checkError != nil {
			return fmt.Errorf(checkFailedTemplateConstant, workItem.FilePath, checkError)
		}

		for _, missingLibrary := range missingLibraries {
			finding := MissingDependencyFinding{
				Package:  workItem.Package,
				FilePath: workItem.FilePath,
				Library:  missingLibrary,
			}
			select {
			case findingQueue <- finding:
			case <-executionContext.Done():
				return nil
			}
		}

		if workItem.LastForPackage {
			progress.Increment()
		}
	}
}
