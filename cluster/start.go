package cluster

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/samber/lo"
	"github.com/tipee-sa/sherpa/sshx"
)

type StartOptions struct {
	// NoSetup leaves the cluster started but unconfigured.
	NoSetup bool
}

// Start provisions every node of the cluster that is not already reachable,
// waits for SSH liveness, applies the min_nodes policy and finally hands the
// inventory to the setup provider. It is idempotent: on a fully reachable
// cluster no cloud request is issued and the node set is left unchanged.
func (o *Orchestrator) Start(ctx context.Context, opts StartOptions) error {
	if err := o.startNodes(ctx, o.cluster.Nodes()); err != nil {
		return err
	}
	if opts.NoSetup {
		o.log.Info("Skipping setup, cluster is started but unconfigured")
		return nil
	}
	return o.Setup(ctx)
}

// startNodes runs the provisioning algorithm over a scope of nodes: the whole
// cluster for start, only the added nodes for a resize grow. The min_nodes
// policy is always evaluated over whole groups. On policy failure only the
// nodes created by this call are torn down.
func (o *Orchestrator) startNodes(ctx context.Context, scope []*Node) error {
	created := lo.Filter(scope, func(n *Node, _ int) bool {
		return n.State == NodeStateUnknown
	})

	if len(created) > 0 {
		o.log.Info("Requesting instances", "count", len(created), "workers", o.config.Workers)
		o.notify("Requesting %d instance(s)", len(created))
		forEachNode(ctx, o.config.Workers, created, func(ctx context.Context, n *Node) error {
			n.start(ctx, o.provider, o.cluster.SSH.KeyPair)
			if n.Error != "" {
				o.log.Warn("Instance request failed", "node", n.Name, "error", n.Error)
			} else {
				o.log.Debug("Instance requested", "node", n.Name, "instance", n.InstanceID)
			}
			return nil
		})

		// Persist before anything else so an interrupted run leaves no
		// instance id unrecorded; a later stop must be able to find every
		// instance we asked for.
		if err := o.persist(); err != nil {
			return err
		}
	}

	if err := ctx.Err(); err != nil {
		o.flush()
		return err
	}

	if err := o.awaitReachable(ctx, scope); err != nil {
		return err
	}

	var threshold *ThresholdError
	for _, name := range o.cluster.GroupNames() {
		group := o.cluster.Groups[name]
		if reachable := group.reachableCount(); reachable < group.MinNodes {
			threshold = &ThresholdError{Group: name, Reachable: reachable, MinNodes: group.MinNodes}
			break
		}
	}

	if threshold == nil {
		casualties := lo.Filter(scope, func(n *Node, _ int) bool {
			return !n.Reachable()
		})
		if len(casualties) > 0 {
			o.log.Warn("Dropping nodes that never became reachable", "count", len(casualties))
			o.teardown(ctx, casualties)
			if err := o.persist(); err != nil {
				return err
			}
		}
		return nil
	}

	// The cluster must not stay registered as started when it is unusable:
	// undo this operation entirely.
	o.log.Error("Start failed, tearing down nodes created by this operation",
		"group", threshold.Group, "reachable", threshold.Reachable, "required", threshold.MinNodes)
	o.notify("Start failed, tearing down %d node(s)", len(created))
	o.teardown(ctx, created)
	if len(o.cluster.Nodes()) == 0 {
		// Nothing survived the teardown. An empty cluster record could never
		// satisfy a retried start, so it must not stay registered.
		if err := o.repo.Delete(o.cluster.Name); err != nil {
			o.log.Warn("Failed to remove cluster record", "error", err)
		}
		return threshold
	}
	if err := o.persist(); err != nil {
		return err
	}
	return threshold
}

// teardown best-effort stops the given nodes and removes them from their
// groups. Failures are logged, not returned; the nodes leave the inventory
// either way.
func (o *Orchestrator) teardown(ctx context.Context, nodes []*Node) {
	failures := forEachNode(ctx, o.config.Workers, nodes, func(ctx context.Context, n *Node) error {
		return n.stop(ctx, o.provider, true)
	})
	for _, failure := range failures {
		o.log.Warn("Best-effort teardown failed", "node", failure.Node, "error", failure.Err)
	}
	for _, node := range nodes {
		o.cluster.Groups[node.Kind].remove(node)
	}
}

// awaitReachable polls the scope until every node is either reachable or
// written off, or the startup timeout elapses. The timeout is not an error by
// itself; the caller applies the min_nodes policy afterwards. Only context
// cancellation and repository failures propagate.
func (o *Orchestrator) awaitReachable(ctx context.Context, scope []*Node) error {
	deadline := time.Now().Add(o.config.StartupTimeout)
	interval := o.config.PollInterval

	for {
		var changed atomic.Bool

		requested := lo.Filter(scope, func(n *Node, _ int) bool {
			return n.State == NodeStateRequested
		})
		forEachNode(ctx, o.config.Workers, requested, func(ctx context.Context, n *Node) error {
			state, err := o.provider.InstanceState(ctx, n.InstanceID)
			if err != nil {
				o.log.Debug("Instance state query failed", "node", n.Name, "error", err)
				return nil
			}
			switch state {
			case InstanceStateRunning:
				addresses, err := o.provider.InstanceAddresses(ctx, n.InstanceID)
				if err != nil {
					o.log.Debug("Instance address query failed", "node", n.Name, "error", err)
					return nil
				}
				n.PublicIP = addresses.PublicIP
				n.PrivateIP = addresses.PrivateIP
				n.State = NodeStateRunningUnreachable
				changed.Store(true)
				o.log.Debug("Instance is running", "node", n.Name, "address", n.Addr())
			case InstanceStateTerminated, InstanceStateError:
				n.Error = "instance entered state " + string(state)
				n.State = NodeStateTerminated
				changed.Store(true)
				o.log.Warn("Instance failed before becoming reachable", "node", n.Name, "state", state)
			}
			return nil
		})

		probing := lo.Filter(scope, func(n *Node, _ int) bool {
			return n.State == NodeStateRunningUnreachable && !n.failed
		})
		forEachNode(ctx, o.config.Workers, probing, func(ctx context.Context, n *Node) error {
			err := o.prober.Probe(ctx, n.Addr())
			switch {
			case err == nil:
				n.State = NodeStateRunningReachable
				changed.Store(true)
				o.log.Info("Node is reachable", "node", n.Name, "address", n.Addr())
			case errors.As(err, new(*sshx.HostKeyMismatchError)):
				// Security-sensitive: never retried, never overridden.
				n.Error = err.Error()
				n.failed = true
				changed.Store(true)
				o.log.Error("Host key mismatch, giving up on node", "node", n.Name, "error", err)
			default:
				o.log.Debug("Node not reachable yet", "node", n.Name, "error", err)
			}
			return nil
		})

		if changed.Load() {
			if err := o.persist(); err != nil {
				return err
			}
		}

		remaining := lo.Filter(scope, func(n *Node, _ int) bool {
			return (n.State == NodeStateRequested || n.State == NodeStateRunningUnreachable) && !n.failed
		})
		if len(remaining) == 0 {
			return nil
		}

		reachable := lo.CountBy(scope, (*Node).Reachable)
		o.notify("Waiting for nodes: %d/%d reachable", reachable, len(scope))

		if time.Now().After(deadline) {
			o.log.Warn("Startup timeout elapsed", "unreachable", len(remaining))
			return nil
		}

		select {
		case <-ctx.Done():
			o.flush()
			return ctx.Err()
		case <-time.After(interval):
		}

		interval = time.Duration(float64(interval) * o.config.PollBackoff)
		if interval > maxPollInterval {
			interval = maxPollInterval
		}
	}
}
