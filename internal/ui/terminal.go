package ui

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mattn/go-isatty"
)

const (
	displayModeAutoConstant            = "auto"
	displayModeAlwaysConstant          = "always"
	displayModeNeverConstant           = "never"
	invalidDisplayModeTemplateConstant = "unsupported display mode %q (expected auto|always|never)"
)

// DisplayMode selects whether terminal decorations are produced.
type DisplayMode string

// Supported display modes.
const (
	DisplayModeAuto   DisplayMode = DisplayMode(displayModeAutoConstant)
	DisplayModeAlways DisplayMode = DisplayMode(displayModeAlwaysConstant)
	DisplayModeNever  DisplayMode = DisplayMode(displayModeNeverConstant)
)

// DisplayModeChoices lists the accepted display mode values.
var DisplayModeChoices = []string{displayModeAutoConstant, displayModeAlwaysConstant, displayModeNeverConstant}

// ParseDisplayMode validates a display mode value. An empty value means auto.
func ParseDisplayMode(value string) (DisplayMode, error) {
	normalizedValue := strings.ToLower(strings.TrimSpace(value))
	switch normalizedValue {
	case "", displayModeAutoConstant:
		return DisplayModeAuto, nil
	case displayModeAlwaysConstant:
		return DisplayModeAlways, nil
	case displayModeNeverConstant:
		return DisplayModeNever, nil
	default:
		return "", fmt.Errorf(invalidDisplayModeTemplateConstant, value)
	}
}

// UnmarshalText decodes configuration values through ParseDisplayMode.
func (mode *DisplayMode) UnmarshalText(text []byte) error {
	parsedMode, parseError := ParseDisplayMode(string(text))
	if parseError != nil {
		return parseError
	}
	*mode = parsedMode
	return nil
}

// Enabled reports whether decorations should be written to the writer.
func (mode DisplayMode) Enabled(writer io.Writer) bool {
	switch mode {
	case DisplayModeAlways:
		return true
	case DisplayModeNever:
		return false
	default:
		return IsTerminal(writer)
	}
}

// IsTerminal reports whether the writer is a file attached to a terminal.
func IsTerminal(writer io.Writer) bool {
	file, isFile := writer.(*os.File)
	if !isFile || file == nil {
		return false
	}
	fileDescriptor := file.Fd()
	return isatty.IsTerminal(fileDescriptor) || isatty.IsCygwinTerminal(fileDescriptor)
}
