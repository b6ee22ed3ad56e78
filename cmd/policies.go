package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dispatch-sim/dispatch-sim/sim"
)

var policiesCmd = &cobra.Command{
	Use:   "policies",
	Short: "List the built-in dispatch policies",
	Run: func(cmd *cobra.Command, args []string) {
		for _, name := range sim.BuiltinPolicyNames() {
			fmt.Fprintf(cmd.OutOrStdout(), "%-6s %s\n", name, sim.NewPolicy(name).Name())
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%-6s %s\n", sim.ExprPolicyName, "custom priority expression (--expr)")
	},
}

func init() {
	rootCmd.AddCommand(policiesCmd)
}
