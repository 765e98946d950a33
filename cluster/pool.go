package cluster

import (
	"context"
	"sync"
)

// forEachNode runs fn for every node with at most workers goroutines in
// flight and collects per-node failures. With workers = 1 the nodes are
// processed strictly in order, which the orchestrator uses at debug verbosity
// to produce readable traces. Instance creation, termination and liveness
// probing are the only operations that go through this pool; everything else
// in the orchestration runs single-threaded.
func forEachNode(ctx context.Context, workers int, nodes []*Node, fn func(context.Context, *Node) error) NodeErrors {
	if workers <= 1 {
		// Sequential path: strict node order, no goroutines.
		var failures NodeErrors
		for _, node := range nodes {
			if err := ctx.Err(); err != nil {
				failures = append(failures, NodeError{Node: node.Name, Err: err})
				continue
			}
			if err := fn(ctx, node); err != nil {
				failures = append(failures, NodeError{Node: node.Name, Err: err})
			}
		}
		return failures
	}

	sem := make(chan struct{}, workers)
	var wg sync.WaitGroup
	var mu sync.Mutex
	var failures NodeErrors

	for _, node := range nodes {
		wg.Add(1)
		go func(node *Node) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			if err := ctx.Err(); err != nil {
				mu.Lock()
				failures = append(failures, NodeError{Node: node.Name, Err: err})
				mu.Unlock()
				return
			}
			if err := fn(ctx, node); err != nil {
				mu.Lock()
				failures = append(failures, NodeError{Node: node.Name, Err: err})
				mu.Unlock()
			}
		}(node)
	}

	wg.Wait()
	return failures
}
