package main

import (
	"github.com/alessio/shellescape"
	"github.com/samber/lo"
	"github.com/spf13/cobra"
	"github.com/tipee-sa/sherpa/sshx"
)

var sshCmd = &cobra.Command{
	Use:   "ssh NAME [-- COMMAND [ARGS...]]",
	Short: "Open a shell on the cluster's login node, or run a one-off command there",
	Args:  cobra.MinimumNArgs(1),

	RunE: func(cmd *cobra.Command, args []string) error {
		repo, err := openRepository()
		if err != nil {
			return err
		}
		c, err := repo.Load(args[0])
		if err != nil {
			return err
		}

		node, opts, err := dialLogin(cmd.Context(), c, repo, lo.Must(cmd.Flags().GetString("group")))
		if err != nil {
			return err
		}
		client, err := sshx.Dial(cmd.Context(), node.Addr(), *opts)
		if err != nil {
			return err
		}
		defer client.Close()

		if len(args) > 1 {
			return sshx.Exec(client, shellescape.QuoteCommand(args[1:]))
		}
		return sshx.Shell(client)
	},
}

func init() {
	sshCmd.Flags().StringP("group", "g", "", "connect to this group's first node instead of the default login node")
}
