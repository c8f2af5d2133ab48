package audit_test

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/temirov/check-broken-packages/internal/audit"
	"github.com/temirov/check-broken-packages/internal/pipeline"
	"github.com/temirov/check-broken-packages/internal/python"
	"github.com/temirov/check-broken-packages/internal/report"
)

const (
	testLoggerValidationCaseNameConstant   = "logger_validation"
	testListerValidationCaseNameConstant   = "lister_validation"
	testScannerValidationCaseNameConstant  = "scanner_validation"
	testDetectorValidationCaseNameConstant = "detector_validation"
	testRendererValidationCaseNameConstant = "renderer_validation"
	testAuditCompletedMessageConstant      = "Audit completed"
	testMissingDependencyLineConstant      = "File '/usr/bin/foo' from package 'foo' is missing dependency 'libbar.so'"
	testStrayDirectoryLineConstant         = "Package 'python-legacy' has files in directory '/usr/lib/python3.8' that are ignored by the current Python interpreter"
)

type stubPackageLister struct {
	packages  []string
	listError error
	blockOnce bool
}

func (lister *stubPackageLister) ListForeignPackages(executionContext context.Context) ([]string, error) {
	if lister.blockOnce {
		<-executionContext.Done()
		return nil, context.Cause(executionContext)
	}
	return lister.packages, lister.listError
}

type stubDependencyScanner struct {
	mutex            sync.Mutex
	findings         []pipeline.MissingDependencyFinding
	scanError        error
	waitForCancel    bool
	receivedPackages []pipeline.PackageName
	invoked          bool
}

func (scanner *stubDependencyScanner) Run(executionContext context.Context, packages []pipeline.PackageName) ([]pipeline.MissingDependencyFinding, error) {
	scanner.mutex.Lock()
	scanner.invoked = true
	scanner.receivedPackages = append([]pipeline.PackageName{}, packages...)
	scanner.mutex.Unlock()

	if scanner.waitForCancel {
		<-executionContext.Done()
		return nil, context.Cause(executionContext)
	}
	return scanner.findings, scanner.scanError
}

type stubStrayDirectoryDetector struct {
	findings       []python.StrayDirectoryFinding
	detectionError error
	waitForCancel  bool
}

func (detector *stubStrayDirectoryDetector) Detect(executionContext context.Context) ([]python.StrayDirectoryFinding, error) {
	if detector.waitForCancel {
		<-executionContext.Done()
		return nil, context.Cause(executionContext)
	}
	return detector.findings, detector.detectionError
}

type recordingProgressReporter struct {
	startedTotals []int
	finished      int
}

func (reporter *recordingProgressReporter) Start(total int) {
	reporter.startedTotals = append(reporter.startedTotals, total)
}

func (reporter *recordingProgressReporter) Finish() {
	reporter.finished++
}

func newTestService(testInstance *testing.T, logger *zap.Logger, lister audit.PackageLister, scanner audit.MissingDependencyScanner, detector audit.StrayDirectoryDetector, output *strings.Builder, options ...audit.ServiceOption) *audit.Service {
	testInstance.Helper()
	service, creationError := audit.NewService(logger, lister, scanner, detector, report.NewRenderer(report.OutputFormatText, false), output, options...)
	require.NoError(testInstance, creationError)
	return service
}

func TestServiceRunRendersDependenciesBeforeStrayDirectories(testInstance *testing.T) {
	observerCore, observerLogs := observer.New(zap.InfoLevel)
	lister := &stubPackageLister{packages: []string{"foo", "baz"}}
	scanner := &stubDependencyScanner{findings: []pipeline.MissingDependencyFinding{
		{Package: "foo", FilePath: "/usr/bin/foo", Library: "libbar.so"},
	}}
	detector := &stubStrayDirectoryDetector{findings: []python.StrayDirectoryFinding{
		{Package: "python-legacy", Directory: "/usr/lib/python3.8"},
	}}
	output := &strings.Builder{}

	service := newTestService(testInstance, zap.New(observerCore), lister, scanner, detector, output)
	require.NoError(testInstance, service.Run(context.Background(), audit.CommandOptions{}))

	require.Equal(testInstance, testMissingDependencyLineConstant+"\n"+testStrayDirectoryLineConstant+"\n", output.String())
	require.Equal(testInstance, []pipeline.PackageName{"foo", "baz"}, scanner.receivedPackages)

	completedEntries := observerLogs.FilterMessage(testAuditCompletedMessageConstant).All()
	require.Len(testInstance, completedEntries, 1)
	fields := completedEntries[0].ContextMap()
	require.EqualValues(testInstance, 2, fields["packages"])
	require.EqualValues(testInstance, 1, fields["missing_dependencies"])
	require.EqualValues(testInstance, 1, fields["stray_directories"])
}

func TestServiceRunSortsFindingsWhenRequested(testInstance *testing.T) {
	lister := &stubPackageLister{packages: []string{"zeta", "alpha"}}
	scanner := &stubDependencyScanner{findings: []pipeline.MissingDependencyFinding{
		{Package: "zeta", FilePath: "/usr/bin/zeta", Library: "libz.so"},
		{Package: "alpha", FilePath: "/usr/bin/alpha", Library: "libb.so"},
		{Package: "alpha", FilePath: "/usr/bin/alpha", Library: "liba.so"},
	}}
	output := &strings.Builder{}

	service := newTestService(testInstance, zap.NewNop(), lister, scanner, &stubStrayDirectoryDetector{}, output)
	require.NoError(testInstance, service.Run(context.Background(), audit.CommandOptions{Sort: true}))

	expectedOutput := strings.Join([]string{
		"File '/usr/bin/alpha' from package 'alpha' is missing dependency 'liba.so'",
		"File '/usr/bin/alpha' from package 'alpha' is missing dependency 'libb.so'",
		"File '/usr/bin/zeta' from package 'zeta' is missing dependency 'libz.so'",
	}, "\n") + "\n"
	require.Equal(testInstance, expectedOutput, output.String())
}

func TestServiceRunWithoutForeignPackagesStillReportsStrayDirectories(testInstance *testing.T) {
	scanner := &stubDependencyScanner{}
	detector := &stubStrayDirectoryDetector{findings: []python.StrayDirectoryFinding{
		{Package: "python-legacy", Directory: "/usr/lib/python3.8"},
	}}
	reporter := &recordingProgressReporter{}
	output := &strings.Builder{}

	service := newTestService(testInstance, zap.NewNop(), &stubPackageLister{}, scanner, detector, output, audit.WithProgressReporter(reporter))
	require.NoError(testInstance, service.Run(context.Background(), audit.CommandOptions{}))

	require.Equal(testInstance, testStrayDirectoryLineConstant+"\n", output.String())
	require.True(testInstance, scanner.invoked)
	require.Empty(testInstance, scanner.receivedPackages)
	require.Equal(testInstance, []int{0}, reporter.startedTotals)
	require.Equal(testInstance, 1, reporter.finished)
}

func TestServiceRunReportsProgressLifecycle(testInstance *testing.T) {
	reporter := &recordingProgressReporter{}
	lister := &stubPackageLister{packages: []string{"a", "b", "c"}}

	service := newTestService(testInstance, zap.NewNop(), lister, &stubDependencyScanner{}, &stubStrayDirectoryDetector{}, &strings.Builder{}, audit.WithProgressReporter(reporter))
	require.NoError(testInstance, service.Run(context.Background(), audit.CommandOptions{}))

	require.Equal(testInstance, []int{3}, reporter.startedTotals)
	require.Equal(testInstance, 1, reporter.finished)
}

func TestServiceRunDetectorFailureCancelsScan(testInstance *testing.T) {
	detectionError := errors.New("package python information has no Version field")
	scanner := &stubDependencyScanner{waitForCancel: true}
	reporter := &recordingProgressReporter{}
	output := &strings.Builder{}

	service := newTestService(testInstance, zap.NewNop(), &stubPackageLister{packages: []string{"foo"}}, scanner, &stubStrayDirectoryDetector{detectionError: detectionError}, output, audit.WithProgressReporter(reporter))
	runError := service.Run(context.Background(), audit.CommandOptions{})

	require.Error(testInstance, runError)
	require.ErrorIs(testInstance, runError, detectionError)
	require.Contains(testInstance, runError.Error(), "detect stray python directories")
	require.Empty(testInstance, output.String())
	require.Equal(testInstance, 1, reporter.finished)
}

func TestServiceRunListFailureCancelsDetector(testInstance *testing.T) {
	listError := errors.New("pacman exited with code 1: error: could not lock database")
	scanner := &stubDependencyScanner{}
	reporter := &recordingProgressReporter{}
	output := &strings.Builder{}

	service := newTestService(testInstance, zap.NewNop(), &stubPackageLister{listError: listError}, scanner, &stubStrayDirectoryDetector{waitForCancel: true}, output, audit.WithProgressReporter(reporter))
	runError := service.Run(context.Background(), audit.CommandOptions{})

	require.ErrorIs(testInstance, runError, listError)
	require.Contains(testInstance, runError.Error(), "list foreign packages")
	require.False(testInstance, scanner.invoked)
	require.Empty(testInstance, reporter.startedTotals)
	require.Zero(testInstance, reporter.finished)
	require.Empty(testInstance, output.String())
}

func TestServiceRunScanFailureSuppressesOutput(testInstance *testing.T) {
	scanError := errors.New("check dependencies of /usr/bin/foo: ldd could not be executed")
	reporter := &recordingProgressReporter{}
	output := &strings.Builder{}
	detector := &stubStrayDirectoryDetector{findings: []python.StrayDirectoryFinding{
		{Package: "python-legacy", Directory: "/usr/lib/python3.8"},
	}}

	service := newTestService(testInstance, zap.NewNop(), &stubPackageLister{packages: []string{"foo"}}, &stubDependencyScanner{scanError: scanError}, detector, output, audit.WithProgressReporter(reporter))
	runError := service.Run(context.Background(), audit.CommandOptions{})

	require.ErrorIs(testInstance, runError, scanError)
	require.Equal(testInstance, 1, reporter.finished)
	require.Empty(testInstance, output.String())
}

func TestServiceRunReturnsParentCancellationCause(testInstance *testing.T) {
	interruptError := errors.New("interrupted")
	parentContext, cancelParent := context.WithCancelCause(context.Background())
	cancelParent(interruptError)

	output := &strings.Builder{}
	service := newTestService(testInstance, zap.NewNop(), &stubPackageLister{blockOnce: true}, &stubDependencyScanner{}, &stubStrayDirectoryDetector{waitForCancel: true}, output)
	runError := service.Run(parentContext, audit.CommandOptions{})

	require.ErrorIs(testInstance, runError, interruptError)
	require.Empty(testInstance, output.String())
}

func TestNewServiceValidatesCollaborators(testInstance *testing.T) {
	renderer := report.NewRenderer(report.OutputFormatText, false)
	testCases := []struct {
		name        string
		logger      *zap.Logger
		lister      audit.PackageLister
		scanner     audit.MissingDependencyScanner
		detector    audit.StrayDirectoryDetector
		renderer    audit.ReportRenderer
		expectError error
	}{
		{
			name:        testLoggerValidationCaseNameConstant,
			lister:      &stubPackageLister{},
			scanner:     &stubDependencyScanner{},
			detector:    &stubStrayDirectoryDetector{},
			renderer:    renderer,
			expectError: audit.ErrLoggerNotConfigured,
		},
		{
			name:        testListerValidationCaseNameConstant,
			logger:      zap.NewNop(),
			scanner:     &stubDependencyScanner{},
			detector:    &stubStrayDirectoryDetector{},
			renderer:    renderer,
			expectError: audit.ErrPackageListerNotConfigured,
		},
		{
			name:        testScannerValidationCaseNameConstant,
			logger:      zap.NewNop(),
			lister:      &stubPackageLister{},
			detector:    &stubStrayDirectoryDetector{},
			renderer:    renderer,
			expectError: audit.ErrScannerNotConfigured,
		},
		{
			name:        testDetectorValidationCaseNameConstant,
			logger:      zap.NewNop(),
			lister:      &stubPackageLister{},
			scanner:     &stubDependencyScanner{},
			renderer:    renderer,
			expectError: audit.ErrDetectorNotConfigured,
		},
		{
			name:        testRendererValidationCaseNameConstant,
			logger:      zap.NewNop(),
			lister:      &stubPackageLister{},
			scanner:     &stubDependencyScanner{},
			detector:    &stubStrayDirectoryDetector{},
			expectError: audit.ErrRendererNotConfigured,
		},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(testInstance *testing.T) {
			service, creationError := audit.NewService(testCase.logger, testCase.lister, testCase.scanner, testCase.detector, testCase.renderer, &strings.Builder{})
			require.ErrorIs(testInstance, creationError, testCase.expectError)
			require.Nil(testInstance, service)
		})
	}
}
