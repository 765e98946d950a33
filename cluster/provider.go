package cluster

import "context"

// InstanceState is the coarse lifecycle state a cloud back-end reports for a
// single virtual machine.
type InstanceState string

const (
	InstanceStatePending    InstanceState = "pending"
	InstanceStateRunning    InstanceState = "running"
	InstanceStateTerminated InstanceState = "terminated"
	InstanceStateError      InstanceState = "error"
)

// InstanceSpec describes the virtual machine a provider should create for a
// node.
type InstanceSpec struct {
	Name           string
	Image          string
	Flavor         string
	SecurityGroups []string
	KeyPair        string
}

// Addresses holds the network addresses of a running instance. Either field
// may be empty depending on the back-end and network layout.
type Addresses struct {
	PublicIP  string
	PrivateIP string
}

// Provider is the capability the orchestrator needs from a cloud back-end.
// Implementations live under provisioner/ and are selected by name through
// the provisioner registry; the orchestrator never inspects provider-specific
// error types.
type Provider interface {
	CreateInstance(ctx context.Context, spec InstanceSpec) (string, error)
	TerminateInstance(ctx context.Context, id string) error
	InstanceState(ctx context.Context, id string) (InstanceState, error)
	InstanceAddresses(ctx context.Context, id string) (Addresses, error)
}

// SetupProvider runs configuration management over a cluster's full node
// inventory.
type SetupProvider interface {
	Configure(ctx context.Context, c *Cluster) error
}

// Prober performs a single SSH liveness probe against a node address. It must
// not retry internally; the orchestrator owns the polling schedule. A
// successful probe pins the host key into the cluster's trust record.
type Prober interface {
	Probe(ctx context.Context, addr string) error
}

// Repository persists cluster snapshots. The disk and in-memory
// implementations live in the repository package.
type Repository interface {
	Save(c *Cluster) error
	Load(name string) (*Cluster, error)
	LoadAll() ([]*Cluster, error)
	Delete(name string) error
}
