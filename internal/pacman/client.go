package pacman

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/temirov/check-broken-packages/internal/execshell"
)

const (
	listForeignFlagConstant                  = "-Qqm"
	listFilesFlagConstant                    = "-Ql"
	packageInfoFlagConstant                  = "-Qi"
	owningPackagesFlagConstant               = "-Qoq"
	localeEnvironmentNameConstant            = "LANG"
	localeEnvironmentValueConstant           = "C"
	infoFieldSeparatorConstant               = ":"
	manifestFieldSeparatorConstant           = " "
	requiredValueMessageConstant             = "value required"
	executorNotConfiguredMessageConstant     = "pacman executor not configured"
	operationErrorMessageTemplateConstant    = "%s operation failed"
	operationErrorWithCauseTemplateConstant  = "%s operation failed: %s"
	invalidInputErrorTemplateConstant        = "%s: %s"
	malformedManifestLineTemplateConstant    = "malformed file list line %q"
	packageNameFieldNameConstant             = "package_name"
	pathFieldNameConstant                    = "path"
	emptyForeignListingExitCodeConstant      = 1
	listForeignPackagesOperationNameConstant = OperationName("ListForeignPackages")
	listOwnedFilesOperationNameConstant      = OperationName("ListOwnedFiles")
	packageInfoOperationNameConstant         = OperationName("PackageInfo")
	owningPackagesOperationNameConstant      = OperationName("OwningPackages")
)

// OperationName describes a named catalog query supported by the client.
type OperationName string

// OwnedFile is one entry of a package file manifest.
type OwnedFile struct {
	Package string
	Path    string
}

// CommandExecutor is the minimal interface required from execshell.ShellExecutor.
type CommandExecutor interface {
	ExecutePacman(executionContext context.Context, details execshell.CommandDetails) (execshell.ExecutionResult, error)
}

// Client answers installed-package catalog queries through pacman.
type Client struct {
	executor CommandExecutor
}

var (
	// ErrExecutorNotConfigured indicates the client was constructed without an executor.
	ErrExecutorNotConfigured = errors.New(executorNotConfiguredMessageConstant)
)

// InvalidInputError surfaces validation issues for query inputs.
type InvalidInputError struct {
	FieldName string
	Message   string
}

// Error describes the invalid input.
func (inputError InvalidInputError) Error() string {
	return fmt.Sprintf(invalidInputErrorTemplateConstant, inputError.FieldName, inputError.Message)
}

// OperationError wraps failures of catalog queries. Every OperationError means the
// host is not in the state the audit assumes.
type OperationError struct {
	Operation OperationName
	Cause     error
}

// Error describes the operation failure.
func (operationError OperationError) Error() string {
	if operationError.Cause == nil {
		return fmt.Sprintf(operationErrorMessageTemplateConstant, operationError.Operation)
	}
	return fmt.Sprintf(operationErrorWithCauseTemplateConstant, operationError.Operation, operationError.Cause)
}

// Unwrap exposes the underlying cause.
func (operationError OperationError) Unwrap() error {
	return operationError.Cause
}

// NewClient constructs a Client.
func NewClient(executor CommandExecutor) (*Client, error) {
	if executor == nil {
		return nil, ErrExecutorNotConfigured
	}
	return &Client{executor: executor}, nil
}

// ListForeignPackages returns the names of packages installed outside the sync repositories.
func (client *Client) ListForeignPackages(executionContext context.Context) ([]string, error) {
	executionResult, executionError := client.executor.ExecutePacman(executionContext, execshell.CommandDetails{
		Arguments: []string{listForeignFlagConstant},
	})
	if executionError != nil {
		if isEmptyForeignListing(executionError) {
			return nil, nil
		}
		return nil, OperationError{Operation: listForeignPackagesOperationNameConstant, Cause: executionError}
	}

	return splitNonEmptyLines(executionResult.StandardOutput), nil
}

// ListOwnedFiles returns the file manifest of the package in manifest order.
func (client *Client) ListOwnedFiles(executionContext context.Context, packageName string) ([]OwnedFile, error) {
	trimmedPackageName := strings.TrimSpace(packageName)
	if len(trimmedPackageName) == 0 {
		return nil, InvalidInputError{FieldName: packageNameFieldNameConstant, Message: requiredValueMessageConstant}
	}

	executionResult, executionError := client.executor.ExecutePacman(executionContext, execshell.CommandDetails{
		Arguments: []string{listFilesFlagConstant, trimmedPackageName},
	})
	if executionError != nil {
		return nil, OperationError{Operation: listOwnedFilesOperationNameConstant, Cause: executionError}
	}

	manifestLines := splitNonEmptyLines(executionResult.StandardOutput)
	ownedFiles := make([]OwnedFile, 0, len(manifestLines))
	for _, manifestLine := range manifestLines {
		ownerName, ownedPath, separatorFound := strings.Cut(manifestLine, manifestFieldSeparatorConstant)
		if !separatorFound || len(ownedPath) == 0 {
			return nil, OperationError{
				Operation: listOwnedFilesOperationNameConstant,
				Cause:     fmt.Errorf(malformedManifestLineTemplateConstant, manifestLine),
			}
		}
		ownedFiles = append(ownedFiles, OwnedFile{Package: ownerName, Path: ownedPath})
	}

	return ownedFiles, nil
}

// PackageInfo returns the raw, locale-independent information block of an installed package.
func (client *Client) PackageInfo(executionContext context.Context, packageName string) (string, error) {
	trimmedPackageName := strings.TrimSpace(packageName)
	if len(trimmedPackageName) == 0 {
		return "", InvalidInputError{FieldName: packageNameFieldNameConstant, Message: requiredValueMessageConstant}
	}

	executionResult, executionError := client.executor.ExecutePacman(executionContext, execshell.CommandDetails{
		Arguments:            []string{packageInfoFlagConstant, trimmedPackageName},
		EnvironmentVariables: map[string]string{localeEnvironmentNameConstant: localeEnvironmentValueConstant},
	})
	if executionError != nil {
		return "", OperationError{Operation: packageInfoOperationNameConstant, Cause: executionError}
	}

	return executionResult.StandardOutput, nil
}

// OwningPackages returns the names of the packages owning the path.
func (client *Client) OwningPackages(executionContext context.Context, path string) ([]string, error) {
	trimmedPath := strings.TrimSpace(path)
	if len(trimmedPath) == 0 {
		return nil, InvalidInputError{FieldName: pathFieldNameConstant, Message: requiredValueMessageConstant}
	}

	executionResult, executionError := client.executor.ExecutePacman(executionContext, execshell.CommandDetails{
		Arguments: []string{owningPackagesFlagConstant, trimmedPath},
	})
	if executionError != nil {
		return nil, OperationError{Operation: owningPackagesOperationNameConstant, Cause: executionError}
	}

	return splitNonEmptyLines(executionResult.StandardOutput), nil
}

// InfoField extracts the value of a "Key : Value" line from PackageInfo output.
func InfoField(packageInformation string, fieldName string) (string, bool) {
	lineScanner := bufio.NewScanner(strings.NewReader(packageInformation))
	for lineScanner.Scan() {
		currentLine := lineScanner.Text()
		if !strings.HasPrefix(currentLine, fieldName) {
			continue
		}
		lineKey, lineValue, separatorFound := strings.Cut(currentLine, infoFieldSeparatorConstant)
		if !separatorFound || strings.TrimSpace(lineKey) != fieldName {
			continue
		}
		return strings.TrimSpace(lineValue), true
	}
	return "", false
}

// pacman -Qqm exits 1 without any output when no foreign package is installed.
func isEmptyForeignListing(executionError error) bool {
	var failedError execshell.CommandFailedError
	if !errors.As(executionError, &failedError) {
		return false
	}
	return failedError.Result.ExitCode == emptyForeignListingExitCodeConstant &&
		len(strings.TrimSpace(failedError.Result.StandardOutput)) == 0 &&
		len(strings.TrimSpace(failedError.Result.StandardError)) == 0
}

func splitNonEmptyLines(output string) []string {
	rawLines := strings.Split(output, "\n")
	lines := make([]string, 0, len(rawLines))
	for _, rawLine := range rawLines {
		trimmedLine := strings.TrimRight(rawLine, "\r")
		if len(strings.TrimSpace(trimmedLine)) == 0 {
			continue
		}
		lines = append(lines, trimmedLine)
	}
	return lines
}
