package cluster

import (
	"context"
	"fmt"
	"sort"

	"github.com/samber/lo"
)

type ResizeOptions struct {
	NoSetup bool
}

// Resize applies a signed per-group node delta. Growth reuses the start
// algorithm restricted to the added nodes and then reconfigures the whole
// cluster so new nodes get integrated. Shrink removes nodes chosen uniformly
// at random: the orchestrator has no notion of node load, so the caller must
// ensure the removed nodes are idle. This is intentionally unsafe.
func (o *Orchestrator) Resize(ctx context.Context, deltas map[string]int, opts ResizeOptions) error {
	kinds := make([]string, 0, len(deltas))
	for kind, delta := range deltas {
		group, ok := o.cluster.Groups[kind]
		if !ok {
			return fmt.Errorf("%w: '%s'", ErrUnknownGroup, kind)
		}
		if delta < 0 && -delta > len(group.Nodes) {
			return fmt.Errorf("cannot remove %d node(s) from group '%s' which has %d", -delta, kind, len(group.Nodes))
		}
		if delta != 0 {
			kinds = append(kinds, kind)
		}
	}
	sort.Strings(kinds)

	var added []*Node
	for _, kind := range kinds {
		if delta := deltas[kind]; delta > 0 {
			nodes := lo.Must(o.cluster.Grow(kind, delta))
			added = append(added, nodes...)
			o.log.Info("Growing node group", "group", kind, "count", delta)
		}
	}

	if len(added) > 0 {
		// Reserve the new names in the snapshot before any cloud call.
		if err := o.persist(); err != nil {
			return err
		}
		if err := o.startNodes(ctx, added); err != nil {
			return err
		}
	}

	var stopFailures NodeErrors
	removed := 0
	for _, kind := range kinds {
		delta := deltas[kind]
		if delta >= 0 {
			continue
		}
		group := o.cluster.Groups[kind]
		victims := group.pickVictims(-delta, o.config.Rand)
		o.log.Warn("Removing randomly selected nodes, make sure they are idle",
			"group", kind, "nodes", lo.Map(victims, func(n *Node, _ int) string { return n.Name }))
		o.notify("Removing %d node(s) from group '%s'", len(victims), kind)

		stopFailures = append(stopFailures, forEachNode(ctx, o.config.Workers, victims, func(ctx context.Context, n *Node) error {
			return n.stop(ctx, o.provider, false)
		})...)

		// Nodes that failed to terminate stay in the inventory so a later
		// stop can retry them.
		for _, victim := range victims {
			if victim.Terminated() {
				group.remove(victim)
				removed++
			}
		}
	}

	if err := o.persist(); err != nil {
		return err
	}

	if (len(added) > 0 || removed > 0) && !opts.NoSetup {
		if err := o.Setup(ctx); err != nil {
			return err
		}
	}

	return stopFailures.ErrOrNil()
}
