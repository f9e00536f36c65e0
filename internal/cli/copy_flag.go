package cli

import (
	"fmt"
	"strings"
)

const (
	copyFlagTypeName            = "copy"
	invalidCopyFlagValueMessage = "invalid copy flag value '%s'"
)

var (
	trueCopyFlagLiterals = map[string]struct{}{
		"":     {},
		"true": {},
		"t":    {},
		"1":    {},
		"yes":  {},
		"y":    {},
	}
	falseCopyFlagLiterals = map[string]struct{}{
		"false": {},
		"f":     {},
		"0":     {},
		"no":    {},
		"n":     {},
	}
)

func interpretCopyFlagLiteral(input string) (bool, bool) {
	normalized := strings.ToLower(strings.TrimSpace(input))
	if _, matches := trueCopyFlagLiterals[normalized]; matches {
		return true, true
	}
	if _, matches := falseCopyFlagLiterals[normalized]; matches {
		return false, true
	}
	return false, false
}

// copyFlagValue is a boolean flag that accepts a bare --copy as true and the
// usual boolean literals otherwise.
type copyFlagValue struct {
	enabled *bool
}

func newCopyFlagValue(target *bool) *copyFlagValue {
	return &copyFlagValue{enabled: target}
}

// String reports the current value.
func (value *copyFlagValue) String() string {
	if value.enabled != nil && *value.enabled {
		return "true"
	}
	return "false"
}

// Set parses a copy flag literal.
func (value *copyFlagValue) Set(input string) error {
	parsed, recognized := interpretCopyFlagLiteral(input)
	if !recognized {
		return fmt.Errorf(invalidCopyFlagValueMessage, input)
	}
	*value.enabled = parsed
	return nil
}

// Type names the flag type for help output.
func (value *copyFlagValue) Type() string {
	return copyFlagTypeName
}
