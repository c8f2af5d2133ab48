package python

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/Masterminds/semver/v3"
)

const (
	runtimeVersionTemplateConstant         = "%d.%d.%d-%d"
	directoryVersionSuffixTemplateConstant = "%d.%d"
	versionParseErrorTemplateConstant      = "invalid python package version %q: %s"
	missingBuildNumberMessageConstant      = "missing package build number"
	invalidBuildNumberTemplateConstant     = "invalid package build number %q"
	metadataSeparatorConstant              = "+"
)

// RuntimeVersion is the installed interpreter package version in the
// "<major>.<minor>.<release>-<build>" form.
type RuntimeVersion struct {
	Major   int
	Minor   int
	Release int
	Build   int
}

// String renders the version in its package form.
func (version RuntimeVersion) String() string {
	return fmt.Sprintf(runtimeVersionTemplateConstant, version.Major, version.Minor, version.Release, version.Build)
}

// DirectorySuffix returns the "<major>.<minor>" part used in library directory names.
func (version RuntimeVersion) DirectorySuffix() string {
	return fmt.Sprintf(directoryVersionSuffixTemplateConstant, version.Major, version.Minor)
}

// VersionParseError reports version text that does not match the package version form.
type VersionParseError struct {
	Value string
	Cause error
}

// Error describes the parse failure.
func (parseError VersionParseError) Error() string {
	return fmt.Sprintf(versionParseErrorTemplateConstant, parseError.Value, parseError.Cause)
}

// Unwrap exposes the underlying cause.
func (parseError VersionParseError) Unwrap() error {
	return parseError.Cause
}

// ParseRuntimeVersion parses "<major>.<minor>.<release>-<build>", for example "3.9.7-2".
func ParseRuntimeVersion(value string) (RuntimeVersion, error) {
	parsedVersion, parseError := semver.StrictNewVersion(value)
	if parseError != nil {
		return RuntimeVersion{}, VersionParseError{Value: value, Cause: parseError}
	}
	if len(parsedVersion.Metadata()) > 0 {
		return RuntimeVersion{}, VersionParseError{Value: value, Cause: fmt.Errorf(invalidBuildNumberTemplateConstant, metadataSeparatorConstant+parsedVersion.Metadata())}
	}

	buildText := parsedVersion.Prerelease()
	if len(buildText) == 0 {
		return RuntimeVersion{}, VersionParseError{Value: value, Cause: errors.New(missingBuildNumberMessageConstant)}
	}
	buildNumber, conversionError := strconv.Atoi(buildText)
	if conversionError != nil || buildNumber < 0 {
		return RuntimeVersion{}, VersionParseError{Value: value, Cause: fmt.Errorf(invalidBuildNumberTemplateConstant, buildText)}
	}

	return RuntimeVersion{
		Major:   int(parsedVersion.Major()),
		Minor:   int(parsedVersion.Minor()),
		Release: int(parsedVersion.Patch()),
		Build:   buildNumber,
	}, nil
}
