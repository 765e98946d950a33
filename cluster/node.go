package cluster

import (
	"context"
	"errors"
	"fmt"
)

type NodeState string

const (
	// NodeStateUnknown: the node exists in memory only, no cloud request yet.
	NodeStateUnknown NodeState = "unknown"
	// NodeStateRequested: the create-instance call was issued.
	NodeStateRequested NodeState = "requested"
	// NodeStateRunningUnreachable: the cloud reports the instance running but
	// no SSH handshake has succeeded yet.
	NodeStateRunningUnreachable NodeState = "running-unreachable"
	// NodeStateRunningReachable: an SSH handshake succeeded at least once.
	NodeStateRunningReachable NodeState = "running-reachable"
	NodeStateTerminating      NodeState = "terminating"
	NodeStateTerminated       NodeState = "terminated"
)

// Node represents one virtual machine owned by a cluster. Nodes never
// transition on their own; every state change is driven by the orchestrator
// calling into the cloud provider and the SSH prober.
type Node struct {
	Name        string `json:"name"`
	Kind        string `json:"kind"`
	ClusterName string `json:"cluster_name"`

	InstanceID string `json:"instance_id,omitempty"`
	PublicIP   string `json:"public_ip,omitempty"`
	PrivateIP  string `json:"private_ip,omitempty"`

	// Identifiers used at creation time, kept so a snapshot fully describes
	// how the node was built.
	Image          string   `json:"image"`
	Flavor         string   `json:"flavor"`
	SecurityGroups []string `json:"security_groups,omitempty"`

	State NodeState `json:"state"`
	Error string    `json:"error,omitempty"`

	// failed marks a node whose liveness probing hit a permanent error (host
	// key mismatch). Not persisted; only meaningful within one command run.
	failed bool
}

func (n *Node) Reachable() bool {
	return n.State == NodeStateRunningReachable
}

func (n *Node) Terminated() bool {
	return n.State == NodeStateTerminated
}

// Addr returns the address the node should be reached at over SSH, favoring
// the public address when both are known.
func (n *Node) Addr() string {
	if n.PublicIP != "" {
		return n.PublicIP
	}
	return n.PrivateIP
}

func (n *Node) spec(keyPair string) InstanceSpec {
	return InstanceSpec{
		Name:           n.Name,
		Image:          n.Image,
		Flavor:         n.Flavor,
		SecurityGroups: n.SecurityGroups,
		KeyPair:        keyPair,
	}
}

// start issues the create-instance request for the node. It is idempotent: a
// node that already has a backing instance is left untouched. A provider
// failure is recorded on the node and moves it to terminated instead of being
// raised, so the caller can aggregate failures across a whole batch.
func (n *Node) start(ctx context.Context, provider Provider, keyPair string) {
	if n.InstanceID != "" || n.State != NodeStateUnknown {
		return
	}

	n.State = NodeStateRequested
	id, err := provider.CreateInstance(ctx, n.spec(keyPair))
	if err != nil {
		n.Error = fmt.Sprintf("create instance: %v", err)
		n.State = NodeStateTerminated
		return
	}
	n.InstanceID = id
}

// stop issues the terminate-instance request for the node. With force set, an
// instance the provider no longer knows about counts as terminated.
func (n *Node) stop(ctx context.Context, provider Provider, force bool) error {
	switch n.State {
	case NodeStateTerminated:
		return nil
	case NodeStateUnknown:
		// No cloud request was ever issued.
		n.State = NodeStateTerminated
		return nil
	}

	n.State = NodeStateTerminating
	if err := provider.TerminateInstance(ctx, n.InstanceID); err != nil {
		if force && errors.Is(err, ErrInstanceNotFound) {
			n.State = NodeStateTerminated
			return nil
		}
		n.Error = fmt.Sprintf("terminate instance: %v", err)
		return fmt.Errorf("terminate instance '%s': %w", n.InstanceID, err)
	}
	n.State = NodeStateTerminated
	return nil
}
