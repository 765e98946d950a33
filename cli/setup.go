package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/tipee-sa/sherpa/cli/ui"
)

var setupCmd = &cobra.Command{
	Use:   "setup NAME",
	Short: "Re-run configuration management over a cluster's full inventory",
	Long: "Setup retries configuration of a started cluster, for example after a failed\n" +
		"playbook run left it started but unconfigured. The whole reachable inventory\n" +
		"is configured, not just new nodes.",
	Args: cobra.ExactArgs(1),

	RunE: func(cmd *cobra.Command, args []string) error {
		name := args[0]
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

		spin := ui.NewSpinner(fmt.Sprintf("Configuring cluster '%s'", name))
		orchestrator, err := newOrchestrator(cmd.Context(), c, repo, cfg, false, spin.UpdateMessage)
		if err != nil {
			spin.Fail(err.Error())
			return err
		}

		if err := orchestrator.Setup(cmd.Context()); err != nil {
			spin.Fail(fmt.Sprintf("Setup of cluster '%s' failed", name))
			return err
		}
		spin.Success(fmt.Sprintf("Cluster '%s' configured", name))
		return nil
	},
}
