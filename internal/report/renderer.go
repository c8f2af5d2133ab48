package report

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/gookit/color"
	"gopkg.in/yaml.v3"

	"github.com/temirov/check-broken-packages/internal/pipeline"
	"github.com/temirov/check-broken-packages/internal/python"
)

const (
	outputFormatTextConstant            = "text"
	outputFormatJSONConstant            = "json"
	outputFormatYAMLConstant            = "yaml"
	invalidOutputFormatTemplateConstant = "unsupported output format %q (expected text|json|yaml)"
	missingDependencyTemplateConstant   = "File '%s' from package '%s' is missing dependency '%s'"
	strayDirectoryTemplateConstant      = "Package '%s' has files in directory '%s' that are ignored by the current Python interpreter"
	writeReportFailedTemplateConstant   = "write %s report: %w"
	jsonIndentConstant                  = "  "
	yamlIndentConstant                  = 2
	lineTerminatorConstant              = "\n"
)

// OutputFormat selects how a report is written.
type OutputFormat string

// Supported output formats.
const (
	OutputFormatText OutputFormat = OutputFormat(outputFormatTextConstant)
	OutputFormatJSON OutputFormat = OutputFormat(outputFormatJSONConstant)
	OutputFormatYAML OutputFormat = OutputFormat(outputFormatYAMLConstant)
)

// OutputFormatChoices lists the accepted output format values.
var OutputFormatChoices = []string{outputFormatTextConstant, outputFormatJSONConstant, outputFormatYAMLConstant}

// ParseOutputFormat validates an output format value. An empty value means text.
func ParseOutputFormat(value string) (OutputFormat, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "", outputFormatTextConstant:
		return OutputFormatText, nil
	case outputFormatJSONConstant:
		return OutputFormatJSON, nil
	case outputFormatYAMLConstant:
		return OutputFormatYAML, nil
	default:
		return "", fmt.Errorf(invalidOutputFormatTemplateConstant, value)
	}
}

// UnmarshalText decodes configuration values through ParseOutputFormat.
func (format *OutputFormat) UnmarshalText(text []byte) error {
	parsedFormat, parseError := ParseOutputFormat(string(text))
	if parseError != nil {
		return parseError
	}
	*format = parsedFormat
	return nil
}

// Renderer writes reports in one output format.
type Renderer struct {
	format   OutputFormat
	colorize bool
}

// NewRenderer constructs a Renderer. Colorize only affects the text format.
func NewRenderer(format OutputFormat, colorize bool) *Renderer {
	return &Renderer{format: format, colorize: colorize}
}

// Render writes the report. In text format missing dependencies come first,
// one line per finding, followed by stray Python directories.
func (renderer *Renderer) Render(writer io.Writer, report Report) error {
	var renderError error
	switch renderer.format {
	case OutputFormatJSON:
		encoder := json.NewEncoder(writer)
		encoder.SetIndent("", jsonIndentConstant)
		renderError = encoder.Encode(normalized(report))
	case OutputFormatYAML:
		encoder := yaml.NewEncoder(writer)
		encoder.SetIndent(yamlIndentConstant)
		renderError = encoder.Encode(normalized(report))
		if renderError == nil {
			renderError = encoder.Close()
		}
	default:
		renderError = renderer.renderText(writer, report)
	}
	if renderError != nil {
		return fmt.Errorf(writeReportFailedTemplateConstant, renderer.format, renderError)
	}
	return nil
}

func (renderer *Renderer) renderText(writer io.Writer, report Report) error {
	for _, finding := range report.MissingDependencies {
		if writeError := renderer.writeLine(writer, fmt.Sprintf(missingDependencyTemplateConstant, finding.FilePath, finding.Package, finding.Library)); writeError != nil {
			return writeError
		}
	}
	for _, finding := range report.StrayPythonDirectories {
		if writeError := renderer.writeLine(writer, fmt.Sprintf(strayDirectoryTemplateConstant, finding.Package, finding.Directory)); writeError != nil {
			return writeError
		}
	}
	return nil
}

func (renderer *Renderer) writeLine(writer io.Writer, line string) error {
	if renderer.colorize {
		line = color.Yellow.Sprint(line)
	}
	_, writeError := io.WriteString(writer, line+lineTerminatorConstant)
	return writeError
}

// Structured formats list empty result sets as [] rather than null.
func normalized(report Report) Report {
	if report.MissingDependencies == nil {
		report.MissingDependencies = []pipeline.MissingDependencyFinding{}
	}
	if report.StrayPythonDirectories == nil {
		report.StrayPythonDirectories = []python.StrayDirectoryFinding{}
	}
	return report
}
