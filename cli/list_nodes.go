package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/tipee-sa/sherpa/cluster"
)

var listNodesCmd = &cobra.Command{
	Use:   "list-nodes NAME",
	Short: "List a cluster's nodes with their state and addresses",
	Args:  cobra.ExactArgs(1),

	RunE: func(cmd *cobra.Command, args []string) error {
		repo, err := openRepository()
		if err != nil {
			return err
		}
		c, err := repo.Load(args[0])
		if err != nil {
			return err
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "GROUP\tNODE\tSTATE\tPUBLIC IP\tPRIVATE IP\tINSTANCE")
		for _, kind := range c.GroupNames() {
			for _, node := range c.Groups[kind].Nodes {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
					node.Kind, node.Name, coloredState(node), node.PublicIP, node.PrivateIP, node.InstanceID)
			}
		}
		return w.Flush()
	},
}

func coloredState(node *cluster.Node) string {
	state := string(node.State)
	switch node.State {
	case cluster.NodeStateRunningReachable:
		return color.HiGreenString(state)
	case cluster.NodeStateRequested, cluster.NodeStateRunningUnreachable:
		return color.HiYellowString(state)
	case cluster.NodeStateTerminating, cluster.NodeStateTerminated:
		return color.HiRedString(state)
	}
	return state
}
