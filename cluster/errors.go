package cluster

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnknownGroup is returned when an operation names a node group the
// cluster does not have.
var ErrUnknownGroup = errors.New("unknown node group")

// ErrInstanceNotFound is returned (wrapped) by providers when they are asked
// about an instance they no longer know. Under --force a terminate hitting
// this error counts as success.
var ErrInstanceNotFound = errors.New("instance not found")

// ThresholdError reports a node group that did not reach its min_nodes count
// of reachable nodes before the startup timeout.
type ThresholdError struct {
	Group     string
	Reachable int
	MinNodes  int
}

func (e *ThresholdError) Error() string {
	return fmt.Sprintf("node group '%s' reached %d of %d required nodes", e.Group, e.Reachable, e.MinNodes)
}

// NodeError ties a provisioning or termination failure to the node it
// happened on.
type NodeError struct {
	Node string
	Err  error
}

func (e NodeError) Error() string {
	return fmt.Sprintf("node '%s': %v", e.Node, e.Err)
}

func (e NodeError) Unwrap() error {
	return e.Err
}

// NodeErrors aggregates per-node failures from one fan-out batch. A batch
// never aborts on the first failure; callers get the full list.
type NodeErrors []NodeError

func (e NodeErrors) Error() string {
	msgs := make([]string, len(e))
	for i, err := range e {
		msgs[i] = err.Error()
	}
	return fmt.Sprintf("%d node(s) failed: %s", len(e), strings.Join(msgs, "; "))
}

// ErrOrNil returns the aggregate as an error, or nil when the batch was
// clean.
func (e NodeErrors) ErrOrNil() error {
	if len(e) == 0 {
		return nil
	}
	return e
}
