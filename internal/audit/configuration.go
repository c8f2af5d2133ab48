package audit

import (
	"strings"

	"github.com/temirov/check-broken-packages/internal/execshell"
	"github.com/temirov/check-broken-packages/internal/python"
	"github.com/temirov/check-broken-packages/internal/report"
	"github.com/temirov/check-broken-packages/internal/ui"
)

const (
	configurationKeySeparatorConstant         = "."
	workersConfigurationKeyConstant           = "workers"
	outputFormatConfigurationKeyConstant      = "output_format"
	sortConfigurationKeyConstant              = "sort"
	progressConfigurationKeyConstant          = "progress"
	colorConfigurationKeyConstant             = "color"
	pacmanToolConfigurationKeyConstant        = "tools.pacman"
	lddToolConfigurationKeyConstant           = "tools.ldd"
	pythonPackageConfigurationKeyConstant     = "python.package"
	pythonLibraryRootConfigurationKeyConstant = "python.library_root_prefix"
)

// CommandConfiguration captures persistent settings for the audit command.
type CommandConfiguration struct {
	Workers      int                 `mapstructure:"workers"`
	OutputFormat report.OutputFormat `mapstructure:"output_format"`
	Sort         bool                `mapstructure:"sort"`
	Progress     ui.DisplayMode      `mapstructure:"progress"`
	Color        ui.DisplayMode      `mapstructure:"color"`
	Tools        ToolsConfiguration  `mapstructure:"tools"`
	Python       PythonConfiguration `mapstructure:"python"`
}

// ToolsConfiguration names the external binaries started by the audit.
type ToolsConfiguration struct {
	Pacman string `mapstructure:"pacman"`
	Ldd    string `mapstructure:"ldd"`
}

// PythonConfiguration locates the interpreter package and its library directories.
type PythonConfiguration struct {
	Package           string `mapstructure:"package"`
	LibraryRootPrefix string `mapstructure:"library_root_prefix"`
}

// DefaultCommandConfiguration returns baseline configuration values for the audit command.
func DefaultCommandConfiguration() CommandConfiguration {
	return CommandConfiguration{
		Workers:      0,
		OutputFormat: report.OutputFormatText,
		Sort:         false,
		Progress:     ui.DisplayModeAuto,
		Color:        ui.DisplayModeAuto,
		Tools: ToolsConfiguration{
			Pacman: string(execshell.CommandPacman),
			Ldd:    string(execshell.CommandLdd),
		},
		Python: PythonConfiguration{
			Package:           python.DefaultPackageName,
			LibraryRootPrefix: python.DefaultLibraryRootPrefix,
		},
	}
}

// DefaultConfigurationValues exposes the defaults as viper keys under the provided prefix.
func DefaultConfigurationValues(prefix string) map[string]any {
	defaults := DefaultCommandConfiguration()
	values := map[string]any{
		workersConfigurationKeyConstant:           defaults.Workers,
		outputFormatConfigurationKeyConstant:      string(defaults.OutputFormat),
		sortConfigurationKeyConstant:              defaults.Sort,
		progressConfigurationKeyConstant:          string(defaults.Progress),
		colorConfigurationKeyConstant:             string(defaults.Color),
		pacmanToolConfigurationKeyConstant:        defaults.Tools.Pacman,
		lddToolConfigurationKeyConstant:           defaults.Tools.Ldd,
		pythonPackageConfigurationKeyConstant:     defaults.Python.Package,
		pythonLibraryRootConfigurationKeyConstant: defaults.Python.LibraryRootPrefix,
	}

	trimmedPrefix := strings.TrimSpace(prefix)
	if len(trimmedPrefix) == 0 {
		return values
	}

	prefixedValues := make(map[string]any, len(values))
	for key, value := range values {
		prefixedValues[trimmedPrefix+configurationKeySeparatorConstant+key] = value
	}
	return prefixedValues
}

// sanitize trims whitespace and restores defaults for unset values.
func (configuration CommandConfiguration) sanitize() CommandConfiguration {
	defaults := DefaultCommandConfiguration()
	sanitized := configuration

	if sanitized.Workers < 0 {
		sanitized.Workers = defaults.Workers
	}
	if len(sanitized.OutputFormat) == 0 {
		sanitized.OutputFormat = defaults.OutputFormat
	}
	if len(sanitized.Progress) == 0 {
		sanitized.Progress = defaults.Progress
	}
	if len(sanitized.Color) == 0 {
		sanitized.Color = defaults.Color
	}
	sanitized.Tools.Pacman = valueOrDefault(sanitized.Tools.Pacman, defaults.Tools.Pacman)
	sanitized.Tools.Ldd = valueOrDefault(sanitized.Tools.Ldd, defaults.Tools.Ldd)
	sanitized.Python.Package = valueOrDefault(sanitized.Python.Package, defaults.Python.Package)
	sanitized.Python.LibraryRootPrefix = valueOrDefault(sanitized.Python.LibraryRootPrefix, defaults.Python.LibraryRootPrefix)

	return sanitized
}

func valueOrDefault(value string, defaultValue string) string {
	trimmedValue := strings.TrimSpace(value)
	if len(trimmedValue) == 0 {
		return defaultValue
	}
	return trimmedValue
}
