package pipeline

import (
	"context"
	"errors"

	"github.com/go-git/go-billy/v5"

	"github.com/temirov/check-broken-packages/internal/pacman"
)

const (
	manifestSourceNotConfiguredMessageConstant = "package manifest source not configured"
	filesystemNotConfiguredMessageConstant     = "filesystem not configured"
	executablePermissionMaskConstant           = 0o111
)

// ManifestSource lists the files owned by an installed package.
type ManifestSource interface {
	ListOwnedFiles(executionContext context.Context, packageName string) ([]pacman.OwnedFile, error)
}

var (
	// ErrManifestSourceNotConfigured indicates the enumerator was constructed without a manifest source.
	ErrManifestSourceNotConfigured = errors.New(manifestSourceNotConfiguredMessageConstant)
	// ErrFilesystemNotConfigured indicates the enumerator was constructed without a filesystem.
	ErrFilesystemNotConfigured = errors.New(filesystemNotConfiguredMessageConstant)
)

// ExecutableFileEnumerator selects the executable regular files of a package manifest.
type ExecutableFileEnumerator struct {
	manifestSource ManifestSource
	filesystem     billy.Basic
}

// NewExecutableFileEnumerator constructs an ExecutableFileEnumerator.
func NewExecutableFileEnumerator(manifestSource ManifestSource, filesystem billy.Basic) (*ExecutableFileEnumerator, error) {
	if manifestSource == nil {
		return nil, ErrManifestSourceNotConfigured
	}
	if filesystem == nil {
		return nil, ErrFilesystemNotConfigured
	}
	return &ExecutableFileEnumerator{manifestSource: manifestSource, filesystem: filesystem}, nil
}

// ExecutableFiles returns, in manifest order, the owned paths that currently
// resolve to a regular file with any execute bit set. Paths that cannot be
// inspected are skipped.
func (enumerator *ExecutableFileEnumerator) ExecutableFiles(executionContext context.Context, packageName PackageName) ([]string, error) {
	ownedFiles, listError := enumerator.manifestSource.ListOwnedFiles(executionContext, string(packageName))
	if listError != nil {
		return nil, listError
	}

	executableFiles := make([]string, 0, len(ownedFiles))
	for _, ownedFile := range ownedFiles {
		fileInfo, statError := enumerator.filesystem.Stat(ownedFile.Path)
		if statError != nil {
			continue
		}
		fileMode := fileInfo.Mode()
		if !fileMode.IsRegular() || fileMode.Perm()&executablePermissionMaskConstant == 0 {
			continue
		}
		executableFiles = append(executableFiles, ownedFile.Path)
	}
	return executableFiles, nil
}
