// Package provisioner selects the cloud back-end a cluster is configured to
// use. Back-ends implement cluster.Provider and are registered here by name;
// the orchestrator stays agnostic to which one is wired in.
package provisioner

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/tipee-sa/sherpa/cluster"
	"github.com/tipee-sa/sherpa/config"
	"github.com/tipee-sa/sherpa/provisioner/aws"
	"github.com/tipee-sa/sherpa/provisioner/fake"
	"github.com/tipee-sa/sherpa/provisioner/openstack"
)

// New builds the provider registered under name from the configuration file's
// provider section.
func New(ctx context.Context, name string, cfg config.Providers, logger *slog.Logger) (cluster.Provider, error) {
	switch name {
	case "openstack":
		return openstack.New(openstack.Config{
			Region:   cfg.OpenStack.Region,
			Networks: cfg.OpenStack.Networks,
		}, logger)
	case "aws", "ec2":
		return aws.New(ctx, aws.Config{
			Region:   cfg.AWS.Region,
			SubnetID: cfg.AWS.SubnetID,
		}, logger)
	case "fake":
		return fake.New(), nil
	default:
		return nil, fmt.Errorf("unknown cloud provider '%s'", name)
	}
}
