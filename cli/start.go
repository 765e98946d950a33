package main

import (
	"errors"
	"fmt"

	"github.com/fatih/color"
	"github.com/samber/lo"
	"github.com/spf13/cobra"
	"github.com/tipee-sa/sherpa/cli/ui"
	"github.com/tipee-sa/sherpa/cluster"
	"github.com/tipee-sa/sherpa/namegen"
	"github.com/tipee-sa/sherpa/repository"
)

var startCmd = &cobra.Command{
	Use:   "start TEMPLATE [NAME]",
	Short: "Provision a cluster from a template and hand it to configuration management",
	Long: "Start instantiates the named template, provisions its nodes with bounded\n" +
		"concurrency, waits for SSH liveness, and runs the configured setup provider.\n" +
		"Re-running start on an existing cluster resumes it: nodes already reachable\n" +
		"are left alone.",
	Args: cobra.RangeArgs(1, 2),

	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		template, err := cfg.Template(args[0])
		if err != nil {
			return err
		}

		name := namegen.Get().String()
		if len(args) > 1 {
			name = args[1]
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

		// A second start resumes the recorded cluster instead of recreating
		// it; the template is only instantiated for a name the repository
		// does not know yet.
		c, err := repo.Load(name)
		switch {
		case err == nil:
			if c.Template != args[0] {
				return fmt.Errorf("cluster '%s' was started from template '%s'", name, c.Template)
			}
		case errors.Is(err, repository.ErrClusterNotFound):
			overrides, err := parseGroupCounts(lo.Must(cmd.Flags().GetString("nodes")))
			if err != nil {
				return err
			}
			c, err = template.NewCluster(name, args[0], overrides)
			if err != nil {
				return err
			}
			if err := repo.Save(c); err != nil {
				return err
			}
		default:
			return err
		}

		spin := ui.NewSpinner(fmt.Sprintf("Starting cluster '%s'", name))
		orchestrator, err := newOrchestrator(cmd.Context(), c, repo, cfg, true, spin.UpdateMessage)
		if err != nil {
			spin.Fail(err.Error())
			return err
		}

		if err := orchestrator.Start(cmd.Context(), cluster.StartOptions{
			NoSetup: lo.Must(cmd.Flags().GetBool("no-setup")),
		}); err != nil {
			spin.Fail(fmt.Sprintf("Start of cluster '%s' failed", name))
			return err
		}
		spin.Success(fmt.Sprintf("Cluster '%s' is up", name))

		printClusterSummary(cmd, c)
		return nil
	},
}

func printClusterSummary(cmd *cobra.Command, c *cluster.Cluster) {
	for _, kind := range c.GroupNames() {
		group := c.Groups[kind]
		reachable := lo.CountBy(group.Nodes, (*cluster.Node).Reachable)
		cmd.Printf("%s %s: %d/%d node(s) reachable\n",
			color.HiBlueString("•"), kind, reachable, len(group.Nodes))
	}
	if node, err := c.LoginNode(""); err == nil {
		cmd.Printf("Login node: %s (%s)\n", node.Name, node.Addr())
	}
}

func init() {
	startCmd.Flags().String("nodes", "", "override template group sizes, e.g. 'frontend:1,compute:4'")
	startCmd.Flags().Bool("no-setup", false, "skip configuration management, leave the cluster started but unconfigured")
}
