package cluster

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStopTerminatesAndDeletes(t *testing.T) {
	c := newTestCluster(map[string]int{"frontend": 1, "compute": 2})
	o := newTestOrchestrator(c, newTestConfig())
	require.NoError(t, o.Start(context.Background(), StartOptions{NoSetup: true}))

	err := o.Stop(context.Background(), false)
	require.NoError(t, err)

	assert.Len(t, o.provider.getTerminated(), 3)
	for _, node := range c.Nodes() {
		assert.Equal(t, NodeStateTerminated, node.State)
	}
	assert.Equal(t, []string{"test"}, o.repo.deleted)
}

func TestStopFailureKeepsSnapshot(t *testing.T) {
	c := newTestCluster(map[string]int{"compute": 2})
	o := newTestOrchestrator(c, newTestConfig())
	require.NoError(t, o.Start(context.Background(), StartOptions{NoSetup: true}))

	o.provider.terminateFunc = func(_ context.Context, id string) error {
		if id == "i-compute001" {
			return fmt.Errorf("api timeout")
		}
		return nil
	}

	err := o.Stop(context.Background(), false)
	require.Error(t, err)
	assert.Empty(t, o.repo.deleted, "a partially stopped cluster must stay registered")
}

func TestStopForceIgnoresFailures(t *testing.T) {
	c := newTestCluster(map[string]int{"compute": 2})
	o := newTestOrchestrator(c, newTestConfig())
	require.NoError(t, o.Start(context.Background(), StartOptions{NoSetup: true}))

	o.provider.terminateFunc = func(_ context.Context, id string) error {
		return fmt.Errorf("api timeout")
	}

	err := o.Stop(context.Background(), true)
	require.NoError(t, err)
	assert.Equal(t, []string{"test"}, o.repo.deleted)
}

// An instance the provider no longer knows counts as terminated under force,
// so a cluster whose instances were deleted out of band can still be cleaned
// up.
func TestStopForceAcceptsMissingInstances(t *testing.T) {
	c := newTestCluster(map[string]int{"compute": 1})
	o := newTestOrchestrator(c, newTestConfig())
	require.NoError(t, o.Start(context.Background(), StartOptions{NoSetup: true}))

	o.provider.terminateFunc = func(_ context.Context, id string) error {
		return fmt.Errorf("instance '%s': %w", id, ErrInstanceNotFound)
	}

	err := o.Stop(context.Background(), true)
	require.NoError(t, err)
	assert.Equal(t, NodeStateTerminated, c.Nodes()[0].State)
}

func TestStopNeverStartedCluster(t *testing.T) {
	c := newTestCluster(map[string]int{"compute": 2})
	o := newTestOrchestrator(c, newTestConfig())

	err := o.Stop(context.Background(), false)
	require.NoError(t, err)
	assert.Empty(t, o.provider.getTerminated(), "no cloud request for nodes that never existed")
	assert.Equal(t, []string{"test"}, o.repo.deleted)
}
