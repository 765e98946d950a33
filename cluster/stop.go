package cluster

import (
	"context"
	"fmt"

	"github.com/samber/lo"
)

// Stop tears down every node of the cluster with bounded concurrency. With
// force set, individual termination failures are reported but do not abort
// the teardown, and the repository entry is deleted regardless; without it
// the snapshot is kept whenever any node could not be confirmed terminated.
func (o *Orchestrator) Stop(ctx context.Context, force bool) error {
	nodes := o.cluster.Nodes()
	o.log.Info("Stopping cluster", "nodes", len(nodes), "force", force)
	o.notify("Stopping %d node(s)", len(nodes))

	failures := forEachNode(ctx, o.config.Workers, nodes, func(ctx context.Context, n *Node) error {
		return n.stop(ctx, o.provider, force)
	})

	if err := o.persist(); err != nil {
		return err
	}

	if len(failures) > 0 {
		if !force {
			return fmt.Errorf("stop of cluster '%s': %w", o.cluster.Name, failures)
		}
		o.log.Warn("Ignoring termination failures", "errors", failures.Error())
	}

	if !force && !lo.EveryBy(nodes, (*Node).Terminated) {
		return fmt.Errorf("stop of cluster '%s': not all nodes confirmed terminated", o.cluster.Name)
	}

	if err := o.repo.Delete(o.cluster.Name); err != nil {
		return fmt.Errorf("delete cluster '%s': %w", o.cluster.Name, err)
	}
	o.log.Info("Cluster stopped and removed")
	return nil
}
