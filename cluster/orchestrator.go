package cluster

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"time"
)

// Config carries the tunables of one orchestration run. It is built by the
// CLI from flags and handed down explicitly; the orchestrator keeps no global
// state.
type Config struct {
	Logger *slog.Logger

	// Workers bounds the fan-out of instance creation, termination and
	// liveness probing. Size 1 makes every batch strictly sequential.
	Workers int

	// StartupTimeout bounds the liveness-polling phase as a whole. Reaching
	// it is not an error by itself; it only triggers the min_nodes
	// evaluation.
	StartupTimeout time.Duration

	// PollInterval is the initial delay between liveness rounds, multiplied
	// by PollBackoff after every round up to maxPollInterval.
	PollInterval time.Duration
	PollBackoff  float64

	// Notify, when set, receives one-line progress updates for interactive
	// display.
	Notify func(msg string)

	// Rand drives shrink victim selection. Defaults to a time-seeded source.
	Rand *rand.Rand
}

const maxPollInterval = 60 * time.Second

// Orchestrator drives the lifecycle of a single cluster: it mutates the node
// set through the cloud provider, polls for SSH liveness, persists every
// state-changing step through the repository, and hands the inventory to the
// setup provider. One orchestrator is scoped to one command invocation.
type Orchestrator struct {
	cluster  *Cluster
	repo     Repository
	provider Provider
	setup    SetupProvider
	prober   Prober
	config   Config

	log *slog.Logger
}

func NewOrchestrator(c *Cluster, repo Repository, provider Provider, setup SetupProvider, prober Prober, config Config) *Orchestrator {
	if config.Logger == nil {
		config.Logger = slog.Default()
	}
	if config.Workers < 1 {
		config.Workers = 1
	}
	if config.StartupTimeout <= 0 {
		config.StartupTimeout = 600 * time.Second
	}
	if config.PollInterval <= 0 {
		config.PollInterval = 5 * time.Second
	}
	if config.PollBackoff < 1 {
		config.PollBackoff = 1
	}
	if config.Rand == nil {
		config.Rand = rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), 0))
	}

	return &Orchestrator{
		cluster:  c,
		repo:     repo,
		provider: provider,
		setup:    setup,
		prober:   prober,
		config:   config,
		log:      config.Logger.With("cluster", c.Name),
	}
}

func (o *Orchestrator) Cluster() *Cluster {
	return o.cluster
}

func (o *Orchestrator) notify(format string, args ...any) {
	if o.config.Notify != nil {
		o.config.Notify(fmt.Sprintf(format, args...))
	}
}

// persist saves the current snapshot. Repository failures are fatal to the
// invoking command: a cluster the system cannot describe cannot be safely
// torn down later.
func (o *Orchestrator) persist() error {
	if err := o.repo.Save(o.cluster); err != nil {
		return fmt.Errorf("persist cluster '%s': %w", o.cluster.Name, err)
	}
	return nil
}

// flush persists best-effort, for interrupt paths where the original error
// must win.
func (o *Orchestrator) flush() {
	if err := o.repo.Save(o.cluster); err != nil {
		o.log.Error("Failed to flush cluster state", "error", err)
	}
}

// Setup runs configuration management over the full reachable inventory,
// including previously configured nodes, since configuration must stay
// consistent cluster-wide. A failure here does not un-start the cluster; the
// operator can retry setup without re-provisioning.
func (o *Orchestrator) Setup(ctx context.Context) error {
	o.log.Info("Running setup", "provider", o.cluster.Setup)
	o.notify("Configuring cluster '%s'", o.cluster.Name)
	if err := o.setup.Configure(ctx, o.cluster); err != nil {
		return fmt.Errorf("setup of cluster '%s': %w", o.cluster.Name, err)
	}
	return nil
}
