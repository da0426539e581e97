package main

import (
	"fmt"
	"os"

	"github.com/branchwork/bramble/internal/cli"
	"github.com/spf13/cobra"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run a flow as an interactive conversation",
	Long: `Starts a conversation over stdin/stdout. With a single flow in the
directory it runs that one; otherwise pick with --flow.`,
	Run: func(cmd *cobra.Command, args []string) {
		dir, _ := cmd.Flags().GetString("dir")
		if !cmd.Flags().Changed("dir") && len(args) > 0 {
			dir = args[0]
		}

		opts := cli.RunOptions{Dir: dir}
		opts.Flow, _ = cmd.Flags().GetString("flow")
		opts.Headless, _ = cmd.Flags().GetBool("headless")
		opts.Debug, _ = cmd.Flags().GetBool("debug")
		opts.Vars, _ = cmd.Flags().GetStringArray("var")

		if err := cli.RunSession(opts); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringP("flow", "f", "", "Flow name to run")
	runCmd.Flags().Bool("headless", false, "Plain line IO, no banner or markdown rendering")
	runCmd.Flags().StringArray("var", nil, "Seed variable as key=value (repeatable, dots nest)")

	// Bare `bramble` behaves like `bramble run`.
	rootCmd.Run = runCmd.Run
	rootCmd.Flags().AddFlagSet(runCmd.Flags())
}
