package main

import (
	"fmt"

	"github.com/samber/lo"
	"github.com/spf13/cobra"
	"github.com/tipee-sa/sherpa/sshx"
)

var sftpCmd = &cobra.Command{
	Use:   "sftp NAME (put LOCAL REMOTE | get REMOTE LOCAL)",
	Short: "Copy a file to or from the cluster's login node over SFTP",
	Args:  cobra.ExactArgs(4),

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

		switch args[1] {
		case "put":
			if err := sshx.Push(client, args[2], args[3]); err != nil {
				return err
			}
			cmd.Printf("Copied %s to %s:%s\n", args[2], node.Name, args[3])
		case "get":
			if err := sshx.Pull(client, args[2], args[3]); err != nil {
				return err
			}
			cmd.Printf("Copied %s:%s to %s\n", node.Name, args[2], args[3])
		default:
			return fmt.Errorf("unknown direction '%s', expected put or get", args[1])
		}
		return nil
	},
}

func init() {
	sftpCmd.Flags().StringP("group", "g", "", "use this group's first node instead of the default login node")
}
