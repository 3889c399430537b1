package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

// Flag lookups below only fail when a command reads a flag it never
// registered, so they panic instead of returning an error.

func mustGetBool(cmd *cobra.Command, name string) bool {
	val, err := cmd.Flags().GetBool(name)
	if err != nil {
		panic(fmt.Sprintf("undefined bool flag --%s on %s: %v", name, cmd.Name(), err))
	}
	return val
}

func mustGetInt(cmd *cobra.Command, name string) int {
	val, err := cmd.Flags().GetInt(name)
	if err != nil {
		panic(fmt.Sprintf("undefined int flag --%s on %s: %v", name, cmd.Name(), err))
	}
	return val
}

func mustGetString(cmd *cobra.Command, name string) string {
	val, err := cmd.Flags().GetString(name)
	if err != nil {
		panic(fmt.Sprintf("undefined string flag --%s on %s: %v", name, cmd.Name(), err))
	}
	return val
}
