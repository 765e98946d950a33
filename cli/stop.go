package main

import (
	"fmt"

	"github.com/samber/lo"
	"github.com/spf13/cobra"
	"github.com/tipee-sa/sherpa/cli/ui"
)

var stopCmd = &cobra.Command{
	Use:   "stop NAME",
	Short: "Tear down every node of a cluster and delete its snapshot",
	Args:  cobra.ExactArgs(1),

	RunE: func(cmd *cobra.Command, args []string) error {
		name := args[0]
		if !confirm(cmd, fmt.Sprintf("Destroy cluster '%s' and all its nodes?", name)) {
			return fmt.Errorf("aborted")
		}

		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		repo, err := openRepository()
		if err != nil {
			return err
		}
		unlock, err := repo.Lock(name)
		if err != nil {
			return err
		}
		defer unlock()

		c, err := repo.Load(name)
		if err != nil {
			return err
		}

		spin := ui.NewSpinner(fmt.Sprintf("Stopping cluster '%s'", name))
		orchestrator, err := newOrchestrator(cmd.Context(), c, repo, cfg, false, spin.UpdateMessage)
		if err != nil {
			spin.Fail(err.Error())
			return err
		}

		if err := orchestrator.Stop(cmd.Context(), lo.Must(cmd.Flags().GetBool("force"))); err != nil {
			spin.Fail(fmt.Sprintf("Stop of cluster '%s' failed", name))
			return err
		}
		spin.Success(fmt.Sprintf("Cluster '%s' destroyed", name))
		return nil
	},
}

func init() {
	stopCmd.Flags().Bool("force", false, "keep going on termination failures and delete the snapshot regardless")
	stopCmd.Flags().Bool("yes", false, "do not ask for confirmation")
}
