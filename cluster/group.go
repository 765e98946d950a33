package cluster

import (
	"fmt"
	"math/rand/v2"

	"github.com/samber/lo"
)

// Group is a named, ordered collection of nodes sharing a kind. Node names
// carry a zero-padded sequential suffix; NextIndex only ever grows, so a name
// freed by a shrink is never handed out again.
type Group struct {
	Kind      string `json:"kind"`
	MinNodes  int    `json:"min_nodes"`
	NextIndex int    `json:"next_index"`

	Image          string   `json:"image"`
	Flavor         string   `json:"flavor"`
	SecurityGroups []string `json:"security_groups,omitempty"`

	Nodes []*Node `json:"nodes"`
}

// newNode appends a fresh node to the group and assigns it the next name in
// the sequence (e.g. compute003).
func (g *Group) newNode(clusterName string) *Node {
	g.NextIndex++
	node := &Node{
		Name:           fmt.Sprintf("%s%03d", g.Kind, g.NextIndex),
		Kind:           g.Kind,
		ClusterName:    clusterName,
		Image:          g.Image,
		Flavor:         g.Flavor,
		SecurityGroups: g.SecurityGroups,
		State:          NodeStateUnknown,
	}
	g.Nodes = append(g.Nodes, node)
	return node
}

func (g *Group) reachableCount() int {
	return lo.CountBy(g.Nodes, (*Node).Reachable)
}

func (g *Group) remove(node *Node) {
	g.Nodes = lo.Without(g.Nodes, node)
}

// pickVictims selects n nodes to remove uniformly at random. The group has no
// notion of node load or job occupancy; callers must ensure the removed nodes
// are idle.
func (g *Group) pickVictims(n int, rng *rand.Rand) []*Node {
	victims := make([]*Node, len(g.Nodes))
	copy(victims, g.Nodes)
	rng.Shuffle(len(victims), func(i, j int) {
		victims[i], victims[j] = victims[j], victims[i]
	})
	if n > len(victims) {
		n = len(victims)
	}
	return victims[:n]
}
