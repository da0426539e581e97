package main

import (
	"fmt"
	"os"

	"github.com/branchwork/bramble/internal/cli"
	"github.com/spf13/cobra"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check flow documents for consistency",
	Long:  `Loads every flow in the directory and reports dangling destinations, unreachable branches and unknown subflow references.`,
	Run: func(cmd *cobra.Command, args []string) {
		dir, _ := cmd.Flags().GetString("dir")
		if !cmd.Flags().Changed("dir") && len(args) > 0 {
			dir = args[0]
		}
		debug, _ := cmd.Flags().GetBool("debug")

		if err := cli.Validate(dir, os.Stdout, debug); err != nil {
			fmt.Fprintf(os.Stderr, "Validation failed: %v\n", err)
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
}
