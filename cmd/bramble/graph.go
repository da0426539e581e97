package main

import (
	"fmt"
	"os"

	"github.com/branchwork/bramble/internal/cli"
	"github.com/spf13/cobra"
)

var graphCmd = &cobra.Command{
	Use:   "graph",
	Short: "Export a flow as a Mermaid diagram",
	Long:  `Outputs a Mermaid flowchart (graph TD) of the flow's branches, transitions and triggers.`,
	Run: func(cmd *cobra.Command, args []string) {
		dir, _ := cmd.Flags().GetString("dir")
		if !cmd.Flags().Changed("dir") && len(args) > 0 {
			dir = args[0]
		}
		flowName, _ := cmd.Flags().GetString("flow")
		debug, _ := cmd.Flags().GetBool("debug")

		if err := cli.Graph(dir, flowName, os.Stdout, debug); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(graphCmd)
	graphCmd.Flags().StringP("flow", "f", "", "Flow name to diagram")
}
