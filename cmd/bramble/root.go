package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "bramble",
	Short: "Bramble is a conversation flow engine for guided task sessions",
	Long: `Bramble runs branching conversation flows defined in YAML or JSON:
scripted messages, button choices, free-text triggers and reusable
subflows, with timed delivery and variable substitution.`,
}

// Execute runs the root command and exits non-zero on error.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().String("dir", ".", "Directory containing flow documents")
	rootCmd.PersistentFlags().Bool("debug", false, "Enable debug logging to stderr")
}
