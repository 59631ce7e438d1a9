package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

const (
	toggleTypeName           = "bool"
	toggleImplicitLiteral    = "true"
	toggleAcceptedLiterals   = "true, false, yes, no, on, off, 1, 0"
	toggleInvalidValueFormat = "invalid value %q for --%s; accepted values: %s"
	argumentTerminator       = "--"
	longFlagPrefix           = "--"
	shortFlagPrefix          = "-"
	flagValueSeparator       = "="
)

var toggleLiterals = map[string]bool{
	"true":  true,
	"t":     true,
	"1":     true,
	"yes":   true,
	"y":     true,
	"on":    true,
	"false": false,
	"f":     false,
	"0":     false,
	"no":    false,
	"n":     false,
	"off":   false,
}

// parseToggleLiteral reports the boolean meaning of input. An empty input means true.
func parseToggleLiteral(input string) (bool, bool) {
	normalized := strings.ToLower(strings.TrimSpace(input))
	if normalized == "" {
		return true, true
	}
	parsed, known := toggleLiterals[normalized]
	return parsed, known
}

func isToggleLiteral(argument string) bool {
	if argument == "" || strings.HasPrefix(argument, shortFlagPrefix) {
		return false
	}
	_, known := parseToggleLiteral(argument)
	return known
}

// toggleValue is a pflag.Value accepting the extended boolean literals.
type toggleValue struct {
	target   *bool
	flagName string
}

func (value *toggleValue) Set(input string) error {
	parsed, known := parseToggleLiteral(input)
	if !known {
		return fmt.Errorf(toggleInvalidValueFormat, input, value.flagName, toggleAcceptedLiterals)
	}
	*value.target = parsed
	return nil
}

func (value *toggleValue) String() string {
	if value.target == nil {
		return strconv.FormatBool(false)
	}
	return strconv.FormatBool(*value.target)
}

func (value *toggleValue) Type() string {
	return toggleTypeName
}

// registerBooleanFlag adds a flag that is true when given bare and otherwise
// accepts any literal in toggleLiterals, either as --name=value or --name value.
func registerBooleanFlag(flagSet *pflag.FlagSet, target *bool, name string, defaultValue bool, usage string) {
	*target = defaultValue
	flagSet.Var(&toggleValue{target: target, flagName: name}, name, usage)
	registered := flagSet.Lookup(name)
	registered.DefValue = strconv.FormatBool(defaultValue)
	registered.NoOptDefVal = toggleImplicitLiteral
}

// flagCatalog classifies the flags of a command and its direct subcommands.
type flagCatalog struct {
	toggles         map[string]struct{}
	valued          map[string]struct{}
	valuedShorthand map[string]struct{}
}

func catalogFlags(command *cobra.Command) flagCatalog {
	catalog := flagCatalog{
		toggles:         map[string]struct{}{},
		valued:          map[string]struct{}{},
		valuedShorthand: map[string]struct{}{},
	}
	record := func(flag *pflag.Flag) {
		if flag.Value.Type() == toggleTypeName {
			catalog.toggles[flag.Name] = struct{}{}
			return
		}
		catalog.valued[flag.Name] = struct{}{}
		if flag.Shorthand != "" {
			catalog.valuedShorthand[flag.Shorthand] = struct{}{}
		}
	}
	for _, current := range append([]*cobra.Command{command}, command.Commands()...) {
		current.PersistentFlags().VisitAll(record)
		current.Flags().VisitAll(record)
	}
	return catalog
}

// scanArguments returns the indexes of literals that directly follow a bare
// boolean flag, and whether any other positional argument is present.
func (catalog flagCatalog) scanArguments(arguments []string) ([]int, bool) {
	var literalIndexes []int
	hasPositional := false
	for index := 0; index < len(arguments); index++ {
		argument := arguments[index]
		switch {
		case argument == argumentTerminator:
			return literalIndexes, hasPositional || index+1 < len(arguments)
		case strings.HasPrefix(argument, longFlagPrefix):
			if strings.Contains(argument, flagValueSeparator) {
				continue
			}
			name := strings.TrimPrefix(argument, longFlagPrefix)
			if _, toggle := catalog.toggles[name]; toggle {
				if index+1 < len(arguments) && isToggleLiteral(arguments[index+1]) {
					index++
					literalIndexes = append(literalIndexes, index)
				}
				continue
			}
			if _, valued := catalog.valued[name]; valued {
				index++
			}
		case len(argument) == 2 && strings.HasPrefix(argument, shortFlagPrefix):
			if _, valued := catalog.valuedShorthand[argument[1:]]; valued {
				index++
			}
		case len(argument) > 2 && strings.HasPrefix(argument, shortFlagPrefix):
			// shorthand with an attached value, such as -egenerated
		default:
			hasPositional = true
		}
	}
	return literalIndexes, hasPositional
}

// normalizeBooleanFlagArguments rewrites "--flag literal" into "--flag=literal"
// for boolean flags so that pflag does not treat the literal as a positional
// argument. When the command line has no other positional argument, the last
// such literal is left in place and becomes the root: "unify --copy yes" copies
// a directory named yes, and "unify yes --copy no" walks it without copying.
func normalizeBooleanFlagArguments(command *cobra.Command, arguments []string) []string {
	if command == nil || len(arguments) == 0 {
		return arguments
	}
	literalIndexes, hasPositional := catalogFlags(command).scanArguments(arguments)
	if !hasPositional && len(literalIndexes) > 0 {
		literalIndexes = literalIndexes[:len(literalIndexes)-1]
	}
	if len(literalIndexes) == 0 {
		return arguments
	}
	attached := make(map[int]struct{}, len(literalIndexes))
	for _, literalIndex := range literalIndexes {
		attached[literalIndex] = struct{}{}
	}
	normalized := make([]string, 0, len(arguments))
	for index := 0; index < len(arguments); index++ {
		if _, attach := attached[index+1]; attach {
			normalized = append(normalized, arguments[index]+flagValueSeparator+arguments[index+1])
			index++
			continue
		}
		normalized = append(normalized, arguments[index])
	}
	return normalized
}
