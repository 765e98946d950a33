// Package fake is an in-memory cloud back-end for development and embedding.
// Instances become running immediately and get loopback-ish addresses; no SSH
// daemon backs them, so liveness probing against a fake cluster only works
// when something listens on the fabricated addresses.
package fake

import (
	"context"
	"fmt"
	"sync"

	"github.com/tipee-sa/sherpa/cluster"
)

type instance struct {
	state     cluster.InstanceState
	addresses cluster.Addresses
}

type Provider struct {
	mu        sync.Mutex
	nextID    int
	instances map[string]*instance
}

var _ cluster.Provider = (*Provider)(nil)

func New() *Provider {
	return &Provider{instances: make(map[string]*instance)}
}

func (p *Provider) CreateInstance(ctx context.Context, spec cluster.InstanceSpec) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.nextID++
	id := fmt.Sprintf("fake-%04d", p.nextID)
	p.instances[id] = &instance{
		state: cluster.InstanceStateRunning,
		addresses: cluster.Addresses{
			PublicIP:  fmt.Sprintf("127.1.%d.%d", p.nextID/256, p.nextID%256),
			PrivateIP: fmt.Sprintf("10.0.%d.%d", p.nextID/256, p.nextID%256),
		},
	}
	return id, nil
}

func (p *Provider) TerminateInstance(ctx context.Context, id string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	inst, ok := p.instances[id]
	if !ok {
		return fmt.Errorf("%w: '%s'", cluster.ErrInstanceNotFound, id)
	}
	inst.state = cluster.InstanceStateTerminated
	return nil
}

func (p *Provider) InstanceState(ctx context.Context, id string) (cluster.InstanceState, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	inst, ok := p.instances[id]
	if !ok {
		return "", fmt.Errorf("%w: '%s'", cluster.ErrInstanceNotFound, id)
	}
	return inst.state, nil
}

func (p *Provider) InstanceAddresses(ctx context.Context, id string) (cluster.Addresses, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	inst, ok := p.instances[id]
	if !ok {
		return cluster.Addresses{}, fmt.Errorf("%w: '%s'", cluster.ErrInstanceNotFound, id)
	}
	return inst.addresses, nil
}
