package ansible

import (
	"context"
	"log/slog"
	"testing"

	"github.com/samber/lo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tipee-sa/sherpa/cluster"
)

type nopWriter struct{}

func (nopWriter) Write(p []byte) (int, error) { return len(p), nil }

func silentLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(nopWriter{}, &slog.HandlerOptions{Level: slog.LevelError + 1}))
}

func testCluster() *cluster.Cluster {
	c := cluster.New("demo", "testing")
	c.SSH = cluster.SSHConfig{User: "ubuntu", PrivateKeyPath: "/home/op/.ssh/id_sherpa"}

	lo.Must(c.AddGroup("frontend", 1, "img", "flavor", nil))
	lo.Must(c.AddGroup("compute", 1, "img", "flavor", nil))
	frontend := lo.Must(c.Grow("frontend", 1))
	compute := lo.Must(c.Grow("compute", 2))

	frontend[0].State = cluster.NodeStateRunningReachable
	frontend[0].PublicIP = "203.0.113.1"
	compute[0].State = cluster.NodeStateRunningReachable
	compute[0].PrivateIP = "10.0.0.2"
	// compute002 never became reachable and must not appear in the inventory.
	compute[1].State = cluster.NodeStateTerminated
	return c
}

func TestNewRequiresPlaybook(t *testing.T) {
	_, err := New(Config{}, silentLogger())
	require.Error(t, err)
}

func TestInventory(t *testing.T) {
	p, err := New(Config{Playbook: "site.yml"}, silentLogger())
	require.NoError(t, err)

	inventory, err := p.Inventory(testCluster())
	require.NoError(t, err)

	assert.Contains(t, inventory, "[frontend]")
	assert.Contains(t, inventory, "[compute]")
	assert.Contains(t, inventory, "frontend001 ansible_host=203.0.113.1 ansible_user=ubuntu ansible_ssh_private_key_file=/home/op/.ssh/id_sherpa")
	assert.Contains(t, inventory, "compute001 ansible_host=10.0.0.2")
	assert.NotContains(t, inventory, "compute002", "unreachable nodes must be left out")
	assert.NotContains(t, inventory, "ansible_ssh_common_args")
}

func TestInventoryPinsKnownHosts(t *testing.T) {
	p, err := New(Config{
		Playbook:       "site.yml",
		KnownHostsFile: "/var/lib/sherpa/demo.known_hosts",
	}, silentLogger())
	require.NoError(t, err)

	inventory, err := p.Inventory(testCluster())
	require.NoError(t, err)
	assert.Contains(t, inventory, "ansible_ssh_common_args='-o UserKnownHostsFile=/var/lib/sherpa/demo.known_hosts'")
}

func TestInventoryCustomTemplate(t *testing.T) {
	p, err := New(Config{
		Playbook:          "site.yml",
		InventoryTemplate: `{{ range .Groups }}{{ .Kind | upper }}:{{ len .Nodes }} {{ end }}`,
	}, silentLogger())
	require.NoError(t, err)

	inventory, err := p.Inventory(testCluster())
	require.NoError(t, err)
	assert.Equal(t, "COMPUTE:1 FRONTEND:1 ", inventory)
}

func TestConfigureRefusesEmptyInventory(t *testing.T) {
	p, err := New(Config{Playbook: "site.yml"}, silentLogger())
	require.NoError(t, err)

	c := cluster.New("demo", "testing")
	err = p.Configure(context.Background(), c)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no reachable nodes")
}
