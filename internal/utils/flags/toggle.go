package flags

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/pflag"
)

const (
	toggleTypeNameConstant      = "bool"
	toggleImplicitValueConstant = "true"
	toggleParseErrorTemplate    = "invalid toggle value %q (expected yes|no)"
	toggleUsageTemplateConstant = "`%s` %s"
	toggleDefaultOnPlaceholder  = "<YES|no>"
	toggleDefaultOffPlaceholder = "<yes|NO>"
	longFlagPrefixConstant      = "--"
	shortFlagPrefixConstant     = "-"
	flagValueSeparatorConstant  = "="
	argumentTerminatorConstant  = "--"
)

var toggleLiterals = map[string]bool{
	"yes": true,
	"y":   true,
	"on":  true,
	"no":  false,
	"n":   false,
	"off": false,
}

// AddToggleFlag registers a boolean flag that also accepts yes/no and on/off,
// either attached ("--sort=no") or, after NormalizeToggleArguments, as the next argument.
func AddToggleFlag(flagSet *pflag.FlagSet, target *bool, name string, shorthand string, defaultValue bool, usage string) {
	if flagSet == nil || len(name) == 0 {
		return
	}

	value := &toggleValue{target: target, current: defaultValue}
	if target != nil {
		*target = defaultValue
	}

	flagSet.VarP(value, name, shorthand, formatToggleUsage(usage, defaultValue))
	flagSet.Lookup(name).NoOptDefVal = toggleImplicitValueConstant
}

// NormalizeToggleArguments joins a toggle flag of flagSet with a following
// value, so "--sort no" parses as "--sort=no". Other arguments pass through.
func NormalizeToggleArguments(flagSet *pflag.FlagSet, arguments []string) []string {
	if len(arguments) == 0 {
		return nil
	}

	normalized := make([]string, 0, len(arguments))
	for index := 0; index < len(arguments); index++ {
		current := arguments[index]
		if current == argumentTerminatorConstant {
			return append(normalized, arguments[index:]...)
		}

		nextIndex := index + 1
		if nextIndex < len(arguments) && isBareToggle(flagSet, current) && isToggleLiteral(arguments[nextIndex]) {
			normalized = append(normalized, current+flagValueSeparatorConstant+arguments[nextIndex])
			index = nextIndex
			continue
		}
		normalized = append(normalized, current)
	}
	return normalized
}

type toggleValue struct {
	target  *bool
	current bool
}

func (value *toggleValue) Set(rawValue string) error {
	parsedValue, parseError := parseToggleValue(rawValue)
	if parseError != nil {
		return parseError
	}
	value.current = parsedValue
	if value.target != nil {
		*value.target = parsedValue
	}
	return nil
}

func (value *toggleValue) String() string {
	if value == nil {
		return strconv.FormatBool(false)
	}
	return strconv.FormatBool(value.current)
}

func (value *toggleValue) Type() string {
	return toggleTypeNameConstant
}

func parseToggleValue(rawValue string) (bool, error) {
	normalizedValue := strings.ToLower(strings.TrimSpace(rawValue))
	if parsedLiteral, isLiteral := toggleLiterals[normalizedValue]; isLiteral {
		return parsedLiteral, nil
	}
	parsedBool, parseError := strconv.ParseBool(normalizedValue)
	if parseError != nil {
		return false, fmt.Errorf(toggleParseErrorTemplate, rawValue)
	}
	return parsedBool, nil
}

func isToggleLiteral(candidate string) bool {
	_, parseError := parseToggleValue(candidate)
	return parseError == nil && !strings.HasPrefix(candidate, shortFlagPrefixConstant)
}

func isBareToggle(flagSet *pflag.FlagSet, argument string) bool {
	if flagSet == nil || strings.Contains(argument, flagValueSeparatorConstant) {
		return false
	}

	var flag *pflag.Flag
	switch {
	case strings.HasPrefix(argument, longFlagPrefixConstant):
		flag = flagSet.Lookup(strings.TrimPrefix(argument, longFlagPrefixConstant))
	case strings.HasPrefix(argument, shortFlagPrefixConstant) && len(argument) == 2:
		flag = flagSet.ShorthandLookup(strings.TrimPrefix(argument, shortFlagPrefixConstant))
	}
	if flag == nil {
		return false
	}
	_, isToggle := flag.Value.(*toggleValue)
	return isToggle
}

func formatToggleUsage(description string, defaultValue bool) string {
	placeholder := toggleDefaultOffPlaceholder
	if defaultValue {
		placeholder = toggleDefaultOnPlaceholder
	}
	return strings.TrimSpace(fmt.Sprintf(toggleUsageTemplateConstant, placeholder, strings.TrimSpace(description)))
}
