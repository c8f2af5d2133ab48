package python

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/util"
	"go.uber.org/zap"

	"github.com/temirov/check-broken-packages/internal/pacman"
)

const (
	// DefaultPackageName is the installed package providing the interpreter.
	DefaultPackageName = "python"
	// DefaultLibraryRootPrefix prefixes every versioned library directory.
	DefaultLibraryRootPrefix = "/usr/lib/python"

	versionFieldNameConstant                = "Version"
	globWildcardConstant                    = "*"
	loggerNotConfiguredMessageConstant      = "python detector logger not configured"
	catalogNotConfiguredMessageConstant     = "python detector package catalog not configured"
	filesystemNotConfiguredMessageConstant  = "python detector filesystem not configured"
	missingVersionFieldTemplateConstant     = "package %s information has no %s field"
	readVersionFailedTemplateConstant       = "read %s package version: %w"
	globFailedTemplateConstant              = "list python library directories %s: %w"
	ownerLookupFailedTemplateConstant       = "look up owners of %s: %w"
	runtimeDetectedMessageConstant          = "Detected Python runtime"
	strayDirectoriesDetectedMessageConstant = "Python library directories checked"
	versionLogFieldNameConstant             = "version"
	currentDirectoryLogFieldNameConstant    = "current_directory"
	directoryCountLogFieldNameConstant      = "directories"
	findingCountLogFieldNameConstant        = "stray_directories"
)

// PackageCatalog answers the package queries the detector needs.
type PackageCatalog interface {
	PackageInfo(executionContext context.Context, packageName string) (string, error)
	OwningPackages(executionContext context.Context, path string) ([]string, error)
}

var (
	// ErrLoggerNotConfigured indicates the detector was constructed without a logger.
	ErrLoggerNotConfigured = errors.New(loggerNotConfiguredMessageConstant)
	// ErrCatalogNotConfigured indicates the detector was constructed without a package catalog.
	ErrCatalogNotConfigured = errors.New(catalogNotConfiguredMessageConstant)
	// ErrFilesystemNotConfigured indicates the detector was constructed without a filesystem.
	ErrFilesystemNotConfigured = errors.New(filesystemNotConfiguredMessageConstant)
)

// StrayDirectoryFinding reports a package owning files in a library directory of
// another interpreter version.
type StrayDirectoryFinding struct {
	Package   string `json:"package" yaml:"package"`
	Directory string `json:"directory" yaml:"directory"`
}

// DetectorOption customizes a Detector during construction.
type DetectorOption func(*Detector)

// WithPackageName sets the package whose version identifies the active interpreter.
func WithPackageName(packageName string) DetectorOption {
	return func(detector *Detector) {
		if trimmed := strings.TrimSpace(packageName); len(trimmed) > 0 {
			detector.packageName = trimmed
		}
	}
}

// WithLibraryRootPrefix sets the path prefix shared by the versioned library directories.
func WithLibraryRootPrefix(libraryRootPrefix string) DetectorOption {
	return func(detector *Detector) {
		if trimmed := strings.TrimSpace(libraryRootPrefix); len(trimmed) > 0 {
			detector.libraryRootPrefix = trimmed
		}
	}
}

// Detector finds packages that left files under library directories of a
// Python version other than the installed one.
type Detector struct {
	logger            *zap.Logger
	catalog           PackageCatalog
	filesystem        billy.Filesystem
	packageName       string
	libraryRootPrefix string
}

// NewDetector validates collaborators and constructs a Detector.
func NewDetector(logger *zap.Logger, catalog PackageCatalog, filesystem billy.Filesystem, options ...DetectorOption) (*Detector, error) {
	if logger == nil {
		return nil, ErrLoggerNotConfigured
	}
	if catalog == nil {
		return nil, ErrCatalogNotConfigured
	}
	if filesystem == nil {
		return nil, ErrFilesystemNotConfigured
	}

	detector := &Detector{
		logger:            logger,
		catalog:           catalog,
		filesystem:        filesystem,
		packageName:       DefaultPackageName,
		libraryRootPrefix: DefaultLibraryRootPrefix,
	}
	for _, option := range options {
		if option != nil {
			option(detector)
		}
	}
	return detector, nil
}

// RuntimeVersion reads the installed interpreter package version.
func (detector *Detector) RuntimeVersion(executionContext context.Context) (RuntimeVersion, error) {
	packageInformation, infoError := detector.catalog.PackageInfo(executionContext, detector.packageName)
	if infoError != nil {
		return RuntimeVersion{}, fmt.Errorf(readVersionFailedTemplateConstant, detector.packageName, infoError)
	}

	versionText, versionFound := pacman.InfoField(packageInformation, versionFieldNameConstant)
	if !versionFound {
		return RuntimeVersion{}, fmt.Errorf(missingVersionFieldTemplateConstant, detector.packageName, versionFieldNameConstant)
	}

	runtimeVersion, parseError := ParseRuntimeVersion(versionText)
	if parseError != nil {
		return RuntimeVersion{}, fmt.Errorf(readVersionFailedTemplateConstant, detector.packageName, parseError)
	}
	return runtimeVersion, nil
}

// Detect returns every (package, directory) pair where the package owns a
// library directory of the same major version but a different minor version.
// Pairs are unique and kept in discovery order.
func (detector *Detector) Detect(executionContext context.Context) ([]StrayDirectoryFinding, error) {
	runtimeVersion, versionError := detector.RuntimeVersion(executionContext)
	if versionError != nil {
		return nil, versionError
	}

	currentDirectory := detector.libraryRootPrefix + runtimeVersion.DirectorySuffix()
	detector.logger.Debug(
		runtimeDetectedMessageConstant,
		zap.String(versionLogFieldNameConstant, runtimeVersion.String()),
		zap.String(currentDirectoryLogFieldNameConstant, currentDirectory),
	)

	libraryDirectories, globError := detector.libraryDirectories(runtimeVersion)
	if globError != nil {
		return nil, globError
	}

	var findings []StrayDirectoryFinding
	seenFindings := make(map[StrayDirectoryFinding]struct{})
	for _, libraryDirectory := range libraryDirectories {
		if libraryDirectory == currentDirectory {
			continue
		}

		owners, ownersError := detector.catalog.OwningPackages(executionContext, libraryDirectory)
		if ownersError != nil {
			return nil, fmt.Errorf(ownerLookupFailedTemplateConstant, libraryDirectory, ownersError)
		}
		for _, owner := range owners {
			finding := StrayDirectoryFinding{Package: owner, Directory: libraryDirectory}
			if _, seen := seenFindings[finding]; seen {
				continue
			}
			seenFindings[finding] = struct{}{}
			findings = append(findings, finding)
		}
	}

	detector.logger.Debug(
		strayDirectoriesDetectedMessageConstant,
		zap.Int(directoryCountLogFieldNameConstant, len(libraryDirectories)),
		zap.Int(findingCountLogFieldNameConstant, len(findings)),
	)
	return findings, nil
}

func (detector *Detector) libraryDirectories(runtimeVersion RuntimeVersion) ([]string, error) {
	pattern := fmt.Sprintf("%s%d%s", detector.libraryRootPrefix, runtimeVersion.Major, globWildcardConstant)
	matches, globError := util.Glob(detector.filesystem, pattern)
	if globError != nil {
		return nil, fmt.Errorf(globFailedTemplateConstant, pattern, globError)
	}

	directories := make([]string, 0, len(matches))
	for _, match := range matches {
		fileInfo, statError := detector.filesystem.Stat(match)
		if statError != nil || !fileInfo.IsDir() {
			continue
		}
		directories = append(directories, match)
	}
	return directories, nil
}
