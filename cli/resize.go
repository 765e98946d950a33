package main

import (
	"fmt"
	"strings"

	"github.com/samber/lo"
	"github.com/spf13/cobra"
	"github.com/tipee-sa/sherpa/cli/ui"
	"github.com/tipee-sa/sherpa/cluster"
)

var resizeCmd = &cobra.Command{
	Use:   "resize NAME",
	Short: "Grow or shrink node groups of a running cluster",
	Long: "Resize adds or removes nodes per group. Growth provisions the new nodes and\n" +
		"reconfigures the whole cluster. Removal picks nodes uniformly at random: the\n" +
		"orchestrator knows nothing about node load, so make sure removed nodes are\n" +
		"idle before shrinking. This is intentionally unsafe.",
	Args: cobra.ExactArgs(1),

	RunE: func(cmd *cobra.Command, args []string) error {
		name := args[0]
		deltas := make(map[string]int)
		for _, spec := range lo.Must(cmd.Flags().GetStringSlice("add")) {
			kind, count, err := parseDelta(spec)
			if err != nil {
				return err
			}
			deltas[kind] += count
		}
		removing := false
		for _, spec := range lo.Must(cmd.Flags().GetStringSlice("remove")) {
			kind, count, err := parseDelta(spec)
			if err != nil {
				return err
			}
			deltas[kind] -= count
			removing = true
		}
		if len(deltas) == 0 {
			return fmt.Errorf("nothing to do, use --add and/or --remove")
		}

		if removing && !confirm(cmd, fmt.Sprintf("Remove randomly selected nodes from cluster '%s'?", name)) {
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

		spin := ui.NewSpinner(fmt.Sprintf("Resizing cluster '%s'", name))
		orchestrator, err := newOrchestrator(cmd.Context(), c, repo, cfg, true, spin.UpdateMessage)
		if err != nil {
			spin.Fail(err.Error())
			return err
		}

		if err := orchestrator.Resize(cmd.Context(), deltas, cluster.ResizeOptions{
			NoSetup: lo.Must(cmd.Flags().GetBool("no-setup")),
		}); err != nil {
			spin.Fail(fmt.Sprintf("Resize of cluster '%s' failed", name))
			return err
		}
		spin.Success(fmt.Sprintf("Cluster '%s' resized", name))

		printClusterSummary(cmd, c)
		return nil
	},
}

// parseDelta parses a "compute:2" spec.
func parseDelta(spec string) (string, int, error) {
	counts, err := parseGroupCounts(spec)
	if err != nil || len(counts) != 1 {
		return "", 0, fmt.Errorf("invalid node spec '%s', expected kind:count", spec)
	}
	for kind, count := range counts {
		if count == 0 {
			return "", 0, fmt.Errorf("invalid node spec '%s', count must be positive", spec)
		}
		return strings.TrimSpace(kind), count, nil
	}
	panic("unreachable")
}

func init() {
	resizeCmd.Flags().StringSliceP("add", "a", nil, "grow a group, e.g. --add compute:2")
	resizeCmd.Flags().StringSliceP("remove", "r", nil, "shrink a group, e.g. --remove compute:1 (unsafe, see help)")
	resizeCmd.Flags().Bool("no-setup", false, "skip the cluster-wide setup re-run")
	resizeCmd.Flags().Bool("yes", false, "do not ask for confirmation")
}
