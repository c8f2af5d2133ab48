package pipeline_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/temirov/check-broken-packages/internal/pipeline"
)

const testLddOutputConstant = `	linux-vdso.so.1 (0x00007ffea89a7000)
	libavdevice.so.57 => not found
	libavfilter.so.6 => not found
	libavformat.so.57 => not found
	libavcodec.so.57 => not found
	libavresample.so.3 => not found
	libpostproc.so.54 => not found
	libswresample.so.2 => not found
	libswscale.so.4 => not found
	libavutil.so.55 => not found
	libm.so.6 => /usr/lib/libm.so.6 (0x00007f4bd9cc3000)
	libpthread.so.0 => /usr/lib/libpthread.so.0 (0x00007f4bd9ca2000)
	libc.so.6 => /usr/lib/libc.so.6 (0x00007f4bd9add000)
	/lib64/ld-linux-x86-64.so.2 => /usr/lib64/ld-linux-x86-64.so.2 (0x00007f4bda08d000)`

type stubDependencyProbe struct {
	linesByPath map[string][]string
	errorByPath map[string]error
}

func (probe *stubDependencyProbe) Check(executionContext context.Context, filePath string) ([]string, error) {
	if probeError, found := probe.errorByPath[filePath]; found {
		return nil, probeError
	}
	return probe.linesByPath[filePath], nil
}

func TestParseMissingLibrariesKeepsProbeOrder(testInstance *testing.T) {
	missingLibraries := pipeline.ParseMissingLibraries(strings.Split(testLddOutputConstant, "\n"))

	require.Equal(testInstance, []string{
		"libavdevice.so.57",
		"libavfilter.so.6",
		"libavformat.so.57",
		"libavcodec.so.57",
		"libavresample.so.3",
		"libpostproc.so.54",
		"libswresample.so.2",
		"libswscale.so.4",
		"libavutil.so.55",
	}, missingLibraries)
}

func TestParseMissingLibrariesIgnoresResolvedOutput(testInstance *testing.T) {
	probeLines := []string{
		"\tlinux-vdso.so.1 (0x00007ffd)",
		"\tlibc.so.6 => /usr/lib/libc.so.6 (0x00007f4bd9add000)",
		"\tlibx.so.1 => /usr/lib/libnot found",
		"not found",
		"=> not found",
		"",
	}

	require.Empty(testInstance, pipeline.ParseMissingLibraries(probeLines))
}

func TestDependencyCheckerMissingLibraries(testInstance *testing.T) {
	probe := &stubDependencyProbe{
		linesByPath: map[string][]string{
			"/usr/bin/foo":    {"\tlibbar.so => not found", "\tlibc.so.6 => /usr/lib/libc.so.6 (0x1)"},
			"/usr/bin/static": nil,
		},
		errorByPath: map[string]error{"/usr/bin/broken": errors.New("ldd missing")},
	}
	checker, creationError := pipeline.NewDependencyChecker(probe)
	require.NoError(testInstance, creationError)

	missingLibraries, checkError := checker.MissingLibraries(context.Background(), "/usr/bin/foo")
	require.NoError(testInstance, checkError)
	require.Equal(testInstance, []string{"libbar.so"}, missingLibraries)

	missingLibraries, checkError = checker.MissingLibraries(context.Background(), "/usr/bin/static")
	require.NoError(testInstance, checkError)
	require.Empty(testInstance, missingLibraries)

	_, checkError = checker.MissingLibraries(context.Background(), "/usr/bin/broken")
	require.EqualError(testInstance, checkError, "ldd missing")
}

func TestNewDependencyCheckerRequiresProbe(testInstance *testing.T) {
	checker, creationError := pipeline.NewDependencyChecker(nil)
	require.ErrorIs(testInstance, creationError, pipeline.ErrDependencyProbeNotConfigured)
	require.Nil(testInstance, checker)
}
