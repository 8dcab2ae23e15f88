package config

import (
	"fmt"
	"os"
	"regexp"
	"strings"
)

// envRefPattern matches ${VAR}, ${VAR:-default} and ${VAR:?message}.
// Bare $VAR is deliberately not expanded so shell-looking values pass
// through config files untouched.
var envRefPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)(:-[^}]*|:\?[^}]*)?\}`)

// envExpander expands environment variable references in config text.
type envExpander struct {
	// strict turns unset plain ${VAR} references into errors.
	strict bool
	// missing collects unresolved references for the final error.
	missing []string
}

// Expand replaces every ${VAR...} reference in input. An unset variable
// with a :- modifier takes the default, one with a :? modifier is
// recorded as an error, and a plain reference expands to the empty
// string unless strict mode is on.
func (e *envExpander) Expand(input string) (string, error) {
	e.missing = nil

	result := envRefPattern.ReplaceAllStringFunc(input, e.expandRef)

	if len(e.missing) > 0 {
		return "", fmt.Errorf("%w: %s", ErrMissingEnvVar, strings.Join(e.missing, ", "))
	}

	return result, nil
}

func (e *envExpander) expandRef(match string) string {
	name, modifier, _ := strings.Cut(match[2:len(match)-1], ":")

	value, set := os.LookupEnv(name)
	if set && value != "" {
		return value
	}

	switch {
	case strings.HasPrefix(modifier, "-"):
		return modifier[1:]
	case strings.HasPrefix(modifier, "?"):
		e.missing = append(e.missing, fmt.Sprintf("%s: %s", name, modifier[1:]))
		return match
	}

	if !set && e.strict {
		e.missing = append(e.missing, name)
	}
	return ""
}

// ExpandEnv expands environment references, treating unset variables as
// empty strings.
func ExpandEnv(input string) string {
	e := &envExpander{}
	result, _ := e.Expand(input)
	return result
}

// ExpandEnvStrict expands environment references and errors on any
// unset variable.
func ExpandEnvStrict(input string) (string, error) {
	e := &envExpander{strict: true}
	return e.Expand(input)
}
