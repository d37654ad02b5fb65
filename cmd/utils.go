package cmd

import (
	"fmt"
	"slices"
	"strings"

	"github.com/spf13/cobra"
)

// EnumValue is a flag that only accepts one of a fixed set of values
type EnumValue struct {
	value   string
	allowed map[string]string // value -> help text
}

func NewEnumValue(defaultVal string, allowed map[string]string) EnumValue {
	if _, ok := allowed[defaultVal]; !ok {
		panic(fmt.Sprintf("default value %q not in allowed set", defaultVal))
	}
	return EnumValue{value: defaultVal, allowed: allowed}
}

func (e *EnumValue) String() string     { return e.value }
func (e *EnumValue) HelpString() string { return "[" + strings.Join(e.AllowedKeys(), ", ") + "]" }
func (e *EnumValue) Type() string       { return "enum" }
func (e *EnumValue) Value() string      { return e.value }

func (e *EnumValue) Set(v string) error {
	if _, ok := e.allowed[v]; !ok {
		return fmt.Errorf("must be one of: %s", strings.Join(e.AllowedKeys(), ", "))
	}
	e.value = v
	return nil
}

// AllowedKeys returns the accepted values in a stable order
func (e *EnumValue) AllowedKeys() []string {
	keys := make([]string, 0, len(e.allowed))
	for k := range e.allowed {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

func (e *EnumValue) CompletionFunc() cobra.CompletionFunc {
	return func(cmd *cobra.Command, args []string, toComplete string) ([]cobra.Completion, cobra.ShellCompDirective) {
		var items []cobra.Completion
		for _, k := range e.AllowedKeys() {
			if !strings.HasPrefix(k, toComplete) {
				continue
			}
			items = append(items, cobra.CompletionWithDesc(k, e.allowed[k]))
		}
		return items, cobra.ShellCompDirectiveNoFileComp
	}
}
