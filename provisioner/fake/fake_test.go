package fake

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tipee-sa/sherpa/cluster"
)

func TestFakeLifecycle(t *testing.T) {
	p := New()
	ctx := context.Background()

	id, err := p.CreateInstance(ctx, cluster.InstanceSpec{Name: "compute001"})
	require.NoError(t, err)
	assert.Equal(t, "fake-0001", id)

	state, err := p.InstanceState(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, cluster.InstanceStateRunning, state, "fake instances run immediately")

	addresses, err := p.InstanceAddresses(ctx, id)
	require.NoError(t, err)
	assert.NotEmpty(t, addresses.PublicIP)
	assert.NotEmpty(t, addresses.PrivateIP)

	require.NoError(t, p.TerminateInstance(ctx, id))
	state, err = p.InstanceState(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, cluster.InstanceStateTerminated, state)
}

func TestFakeUnknownInstance(t *testing.T) {
	p := New()
	ctx := context.Background()

	assert.ErrorIs(t, p.TerminateInstance(ctx, "fake-9999"), cluster.ErrInstanceNotFound)
	_, err := p.InstanceState(ctx, "fake-9999")
	assert.ErrorIs(t, err, cluster.ErrInstanceNotFound)
}

func TestFakeAddressesAreDistinct(t *testing.T) {
	p := New()
	ctx := context.Background()

	a, err := p.CreateInstance(ctx, cluster.InstanceSpec{Name: "compute001"})
	require.NoError(t, err)
	b, err := p.CreateInstance(ctx, cluster.InstanceSpec{Name: "compute002"})
	require.NoError(t, err)

	addrA, _ := p.InstanceAddresses(ctx, a)
	addrB, _ := p.InstanceAddresses(ctx, b)
	assert.NotEqual(t, addrA.PublicIP, addrB.PublicIP)
}
