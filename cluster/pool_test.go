package cluster

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func poolNodes(n int) []*Node {
	nodes := make([]*Node, n)
	for i := range nodes {
		nodes[i] = &Node{Name: fmt.Sprintf("node%03d", i+1)}
	}
	return nodes
}

func TestForEachNodeSequentialOrder(t *testing.T) {
	var order []string
	failures := forEachNode(context.Background(), 1, poolNodes(5), func(_ context.Context, n *Node) error {
		order = append(order, n.Name)
		return nil
	})
	require.Empty(t, failures)
	assert.Equal(t, []string{"node001", "node002", "node003", "node004", "node005"}, order)
}

func TestForEachNodeBoundsConcurrency(t *testing.T) {
	var current, peak atomic.Int32
	var mu sync.Mutex

	failures := forEachNode(context.Background(), 3, poolNodes(12), func(_ context.Context, n *Node) error {
		c := current.Add(1)
		mu.Lock()
		if c > peak.Load() {
			peak.Store(c)
		}
		mu.Unlock()
		time.Sleep(5 * time.Millisecond)
		current.Add(-1)
		return nil
	})
	require.Empty(t, failures)
	assert.LessOrEqual(t, peak.Load(), int32(3))
	assert.Greater(t, peak.Load(), int32(1), "work should actually overlap")
}

func TestForEachNodeCollectsAllFailures(t *testing.T) {
	failures := forEachNode(context.Background(), 4, poolNodes(4), func(_ context.Context, n *Node) error {
		if n.Name == "node002" || n.Name == "node004" {
			return fmt.Errorf("boom")
		}
		return nil
	})
	assert.Len(t, failures, 2)
	assert.Error(t, failures.ErrOrNil())
	assert.Contains(t, failures.Error(), "2 node(s) failed")
}

func TestForEachNodeEmptyBatch(t *testing.T) {
	failures := forEachNode(context.Background(), 4, nil, func(_ context.Context, n *Node) error {
		t.Fatal("fn must not be called for an empty batch")
		return nil
	})
	assert.NoError(t, failures.ErrOrNil())
}

func TestForEachNodeCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var calls atomic.Int32
	failures := forEachNode(ctx, 2, poolNodes(3), func(_ context.Context, n *Node) error {
		calls.Add(1)
		return nil
	})
	assert.Len(t, failures, 3)
	assert.Equal(t, int32(0), calls.Load())
	for _, failure := range failures {
		assert.ErrorIs(t, failure.Err, context.Canceled)
	}
}
