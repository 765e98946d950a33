// Package openstack adapts an OpenStack compute endpoint to the provider
// capability. Authentication comes from the usual OS_* environment variables.
package openstack

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/gophercloud/gophercloud"
	"github.com/gophercloud/gophercloud/openstack"
	"github.com/gophercloud/gophercloud/openstack/compute/v2/extensions/keypairs"
	"github.com/gophercloud/gophercloud/openstack/compute/v2/servers"
	"github.com/tipee-sa/sherpa/cluster"
	"github.com/tipee-sa/sherpa/provisioner/internal"
)

type Config struct {
	Region   string
	Networks []string
}

type Provider struct {
	client *gophercloud.ServiceClient
	config Config
	log    *slog.Logger
}

var _ cluster.Provider = (*Provider)(nil)

func New(config Config, logger *slog.Logger) (*Provider, error) {
	opts, err := openstack.AuthOptionsFromEnv()
	if err != nil {
		return nil, fmt.Errorf("failed to get auth options from env: %w", err)
	}

	provider, err := openstack.AuthenticatedClient(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to get authenticated client: %w", err)
	}

	client, err := openstack.NewComputeV2(provider, gophercloud.EndpointOpts{
		Region: config.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get compute client: %w", err)
	}

	return &Provider{
		client: client,
		config: config,
		log:    logger.With("provider", "openstack"),
	}, nil
}

func (p *Provider) CreateInstance(ctx context.Context, spec cluster.InstanceSpec) (string, error) {
	networks := make([]servers.Network, len(p.config.Networks))
	for i, uuid := range p.config.Networks {
		networks[i] = servers.Network{UUID: uuid}
	}

	server, err := internal.RetryResultWithContext(ctx, 3, func() (*servers.Server, error) {
		return servers.Create(p.client, keypairs.CreateOptsExt{
			CreateOptsBuilder: servers.CreateOpts{
				Name:           spec.Name,
				ImageRef:       spec.Image,
				FlavorRef:      spec.Flavor,
				Networks:       networks,
				SecurityGroups: spec.SecurityGroups,
				Metadata: map[string]string{
					"sherpa-node":           spec.Name,
					"sherpa-provisioned-at": time.Now().Format(time.RFC3339),
				},
			},
			KeyName: spec.KeyPair,
		}).Extract()
	})
	if err != nil {
		return "", fmt.Errorf("failed to create server '%s': %w", spec.Name, err)
	}

	p.log.Debug("Created server", "name", spec.Name, "id", server.ID)
	return server.ID, nil
}

func (p *Provider) TerminateInstance(ctx context.Context, id string) error {
	if err := servers.Delete(p.client, id).ExtractErr(); err != nil {
		if isNotFound(err) {
			return fmt.Errorf("%w: '%s'", cluster.ErrInstanceNotFound, id)
		}
		return fmt.Errorf("failed to delete server '%s': %w", id, err)
	}
	return nil
}

func (p *Provider) InstanceState(ctx context.Context, id string) (cluster.InstanceState, error) {
	server, err := servers.Get(p.client, id).Extract()
	if err != nil {
		if isNotFound(err) {
			return cluster.InstanceStateTerminated, nil
		}
		return "", fmt.Errorf("failed to get server '%s': %w", id, err)
	}

	switch server.Status {
	case "ACTIVE":
		return cluster.InstanceStateRunning, nil
	case "ERROR":
		return cluster.InstanceStateError, nil
	case "DELETED", "SOFT_DELETED", "SHUTOFF":
		return cluster.InstanceStateTerminated, nil
	default: // BUILD, REBUILD, ...
		return cluster.InstanceStatePending, nil
	}
}

func (p *Provider) InstanceAddresses(ctx context.Context, id string) (cluster.Addresses, error) {
	server, err := servers.Get(p.client, id).Extract()
	if err != nil {
		return cluster.Addresses{}, fmt.Errorf("failed to get server '%s': %w", id, err)
	}

	pages, err := servers.ListAddresses(p.client, id).AllPages()
	if err != nil {
		return cluster.Addresses{}, fmt.Errorf("failed to get server addresses for '%s': %w", id, err)
	}
	allAddresses, err := servers.ExtractAddresses(pages)
	if err != nil {
		return cluster.Addresses{}, fmt.Errorf("failed to extract server addresses for '%s': %w", id, err)
	}

	var addresses cluster.Addresses
	for _, networkAddresses := range allAddresses {
		for _, address := range networkAddresses {
			if address.Version == 4 && addresses.PrivateIP == "" {
				addresses.PrivateIP = address.Address
			}
		}
	}
	if server.AccessIPv4 != "" {
		addresses.PublicIP = server.AccessIPv4
	} else {
		addresses.PublicIP = addresses.PrivateIP
	}
	return addresses, nil
}

func isNotFound(err error) bool {
	var notFound gophercloud.ErrDefault404
	return errors.As(err, &notFound)
}
