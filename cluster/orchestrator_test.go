package cluster

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/samber/lo"
)

// --- Mock provider ---

type mockProvider struct {
	createFunc    func(ctx context.Context, spec InstanceSpec) (string, error)
	terminateFunc func(ctx context.Context, id string) error
	stateFunc     func(ctx context.Context, id string) (InstanceState, error)
	addressesFunc func(ctx context.Context, id string) (Addresses, error)

	mu         sync.Mutex
	created    []string
	terminated []string
}

var _ Provider = (*mockProvider)(nil)

func (p *mockProvider) CreateInstance(ctx context.Context, spec InstanceSpec) (string, error) {
	p.mu.Lock()
	p.created = append(p.created, spec.Name)
	p.mu.Unlock()

	if p.createFunc != nil {
		return p.createFunc(ctx, spec)
	}
	return "i-" + spec.Name, nil
}

func (p *mockProvider) TerminateInstance(ctx context.Context, id string) error {
	p.mu.Lock()
	p.terminated = append(p.terminated, id)
	p.mu.Unlock()

	if p.terminateFunc != nil {
		return p.terminateFunc(ctx, id)
	}
	return nil
}

func (p *mockProvider) InstanceState(ctx context.Context, id string) (InstanceState, error) {
	if p.stateFunc != nil {
		return p.stateFunc(ctx, id)
	}
	return InstanceStateRunning, nil
}

func (p *mockProvider) InstanceAddresses(ctx context.Context, id string) (Addresses, error) {
	if p.addressesFunc != nil {
		return p.addressesFunc(ctx, id)
	}
	return Addresses{PublicIP: "203.0.113.10", PrivateIP: "10.0.0.10"}, nil
}

func (p *mockProvider) getCreated() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	result := make([]string, len(p.created))
	copy(result, p.created)
	return result
}

func (p *mockProvider) getTerminated() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	result := make([]string, len(p.terminated))
	copy(result, p.terminated)
	return result
}

// --- Mock repository ---

type mockRepo struct {
	mu      sync.Mutex
	saves   int
	deleted []string
	saveErr error
}

var _ Repository = (*mockRepo)(nil)

func (r *mockRepo) Save(c *Cluster) error {
	r.mu.Lock()
	r.saves++
	r.mu.Unlock()
	return r.saveErr
}

func (r *mockRepo) Load(name string) (*Cluster, error) {
	return nil, fmt.Errorf("not implemented")
}

func (r *mockRepo) LoadAll() ([]*Cluster, error) {
	return nil, nil
}

func (r *mockRepo) Delete(name string) error {
	r.mu.Lock()
	r.deleted = append(r.deleted, name)
	r.mu.Unlock()
	return nil
}

func (r *mockRepo) saveCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.saves
}

func (r *mockRepo) getDeleted() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	result := make([]string, len(r.deleted))
	copy(result, r.deleted)
	return result
}

// --- Mock prober and setup ---

type proberFunc func(ctx context.Context, addr string) error

func (f proberFunc) Probe(ctx context.Context, addr string) error {
	return f(ctx, addr)
}

func reachableProber() proberFunc {
	return func(ctx context.Context, addr string) error { return nil }
}

type mockSetup struct {
	mu    sync.Mutex
	calls int
	err   error
}

var _ SetupProvider = (*mockSetup)(nil)

func (s *mockSetup) Configure(ctx context.Context, c *Cluster) error {
	s.mu.Lock()
	s.calls++
	s.mu.Unlock()
	return s.err
}

func (s *mockSetup) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

// --- Helpers ---

type nopWriter struct{}

func (nopWriter) Write(p []byte) (int, error) { return len(p), nil }

func silentLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(nopWriter{}, &slog.HandlerOptions{Level: slog.LevelError + 1}))
}

func newTestConfig() Config {
	return Config{
		Logger:         silentLogger(),
		Workers:        4,
		StartupTimeout: 2 * time.Second,
		PollInterval:   time.Millisecond,
		PollBackoff:    1,
		Rand:           rand.New(rand.NewPCG(1, 2)),
	}
}

// newTestCluster builds a cluster with one group per entry, each filled with
// count fresh nodes and min_nodes = count.
func newTestCluster(groups map[string]int) *Cluster {
	c := New("test", "testing")
	c.Provider = "fake"
	c.SSH = SSHConfig{User: "ubuntu", KeyPair: "test-key"}
	for kind, count := range groups {
		lo.Must(c.AddGroup(kind, count, "ubuntu-24.04", "m1.small", nil))
		lo.Must(c.Grow(kind, count))
	}
	return c
}

type testOrchestrator struct {
	*Orchestrator
	provider *mockProvider
	repo     *mockRepo
	setup    *mockSetup
}

func newTestOrchestrator(c *Cluster, config Config) *testOrchestrator {
	provider := &mockProvider{}
	repo := &mockRepo{}
	setup := &mockSetup{}
	return &testOrchestrator{
		Orchestrator: NewOrchestrator(c, repo, provider, setup, reachableProber(), config),
		provider:     provider,
		repo:         repo,
		setup:        setup,
	}
}
