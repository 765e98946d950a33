package cluster

import (
	"fmt"
	"sort"
)

// SSHConfig holds the login and key material references a cluster uses to
// reach its nodes. Key files are referenced by path; the repository snapshot
// stores the paths, not the keys.
type SSHConfig struct {
	User           string `json:"user"`
	KeyPair        string `json:"key_pair"`
	PublicKeyPath  string `json:"public_key_path"`
	PrivateKeyPath string `json:"private_key_path"`
}

// Cluster owns a set of node groups and is the unit of persistence. Provider
// and Setup reference the configured back-ends by name; the snapshot must be
// re-loadable with no other external lookups.
type Cluster struct {
	Name     string `json:"name"`
	Template string `json:"template"`

	Provider string    `json:"provider"`
	Setup    string    `json:"setup"`
	SSH      SSHConfig `json:"ssh"`

	Groups map[string]*Group `json:"groups"`
}

func New(name, template string) *Cluster {
	return &Cluster{
		Name:     name,
		Template: template,
		Groups:   make(map[string]*Group),
	}
}

// AddGroup registers a new node group. It does not create any nodes; see
// Grow.
func (c *Cluster) AddGroup(kind string, minNodes int, image, flavor string, securityGroups []string) (*Group, error) {
	if _, exists := c.Groups[kind]; exists {
		return nil, fmt.Errorf("node group '%s' already defined", kind)
	}
	group := &Group{
		Kind:           kind,
		MinNodes:       minNodes,
		Image:          image,
		Flavor:         flavor,
		SecurityGroups: securityGroups,
	}
	c.Groups[kind] = group
	return group, nil
}

// Grow appends n freshly named nodes to the given group and returns them.
func (c *Cluster) Grow(kind string, n int) ([]*Node, error) {
	group, ok := c.Groups[kind]
	if !ok {
		return nil, fmt.Errorf("%w: '%s'", ErrUnknownGroup, kind)
	}
	nodes := make([]*Node, 0, n)
	for i := 0; i < n; i++ {
		nodes = append(nodes, group.newNode(c.Name))
	}
	return nodes, nil
}

// GroupNames returns the group names in sorted order so that every walk over
// the groups is deterministic regardless of map iteration order.
func (c *Cluster) GroupNames() []string {
	names := make([]string, 0, len(c.Groups))
	for name := range c.Groups {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Nodes returns every node of the cluster, ordered by group name and then by
// the stable sequential ordering within each group.
func (c *Cluster) Nodes() []*Node {
	var nodes []*Node
	for _, name := range c.GroupNames() {
		nodes = append(nodes, c.Groups[name].Nodes...)
	}
	return nodes
}

// FindNode looks a node up by name across all groups.
func (c *Cluster) FindNode(name string) (*Node, error) {
	for _, node := range c.Nodes() {
		if node.Name == name {
			return node, nil
		}
	}
	return nil, fmt.Errorf("no node named '%s' in cluster '%s'", name, c.Name)
}

// Groups tried in order when no login group is configured.
var loginGroupPreference = []string{"ssh", "login", "frontend", "master"}

// LoginNode resolves the node an ssh/sftp command should target: the first
// node of the preferred group if one is set, otherwise the first node of the
// first conventional login group that exists, otherwise the first node of the
// alphabetically-first group.
func (c *Cluster) LoginNode(preferred string) (*Node, error) {
	if preferred != "" {
		group, ok := c.Groups[preferred]
		if !ok {
			return nil, fmt.Errorf("%w: '%s'", ErrUnknownGroup, preferred)
		}
		if len(group.Nodes) == 0 {
			return nil, fmt.Errorf("node group '%s' has no nodes", preferred)
		}
		return group.Nodes[0], nil
	}

	for _, kind := range loginGroupPreference {
		if group, ok := c.Groups[kind]; ok && len(group.Nodes) > 0 {
			return group.Nodes[0], nil
		}
	}

	for _, name := range c.GroupNames() {
		if group := c.Groups[name]; len(group.Nodes) > 0 {
			return group.Nodes[0], nil
		}
	}
	return nil, fmt.Errorf("cluster '%s' has no nodes", c.Name)
}
