package main

import (
	"github.com/fatih/color"
	"github.com/samber/lo"
	"github.com/spf13/cobra"
	"github.com/tipee-sa/sherpa/cluster"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List the clusters tracked by the repository",
	Args:  cobra.NoArgs,

	RunE: func(cmd *cobra.Command, args []string) error {
		repo, err := openRepository()
		if err != nil {
			return err
		}
		clusters, err := repo.LoadAll()
		if err != nil {
			return err
		}
		if len(clusters) == 0 {
			cmd.Println("No clusters tracked.")
			return nil
		}

		for _, c := range clusters {
			nodes := c.Nodes()
			reachable := lo.CountBy(nodes, (*cluster.Node).Reachable)
			cmd.Printf("%s %s  template=%s provider=%s nodes=%d/%d\n",
				color.HiBlueString("•"), c.Name, c.Template, c.Provider, reachable, len(nodes))
		}
		return nil
	},
}
