// Package setup selects the configuration-management back-end a cluster
// hands its inventory to after provisioning.
package setup

import (
	"fmt"
	"log/slog"

	"github.com/tipee-sa/sherpa/cluster"
	"github.com/tipee-sa/sherpa/config"
	"github.com/tipee-sa/sherpa/setup/ansible"
	"github.com/tipee-sa/sherpa/setup/noop"
)

// New builds the setup provider registered under name. An empty name means no
// configuration management: the cluster stays started but unconfigured.
// knownHostsFile is the cluster's trust record, handed to back-ends that run
// their own SSH connections.
func New(name string, cfg config.Setup, knownHostsFile string, logger *slog.Logger) (cluster.SetupProvider, error) {
	switch name {
	case "ansible":
		return ansible.New(ansible.Config{
			Playbook:       cfg.Ansible.Playbook,
			Binary:         cfg.Ansible.Binary,
			ExtraVars:      cfg.Ansible.ExtraVars,
			KnownHostsFile: knownHostsFile,
		}, logger)
	case "", "none":
		return noop.New(logger), nil
	default:
		return nil, fmt.Errorf("unknown setup provider '%s'", name)
	}
}
