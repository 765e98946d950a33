// Package noop is the setup provider used when a cluster carries no
// configuration management.
package noop

import (
	"context"
	"log/slog"

	"github.com/tipee-sa/sherpa/cluster"
)

type Provider struct {
	log *slog.Logger
}

var _ cluster.SetupProvider = (*Provider)(nil)

func New(logger *slog.Logger) *Provider {
	return &Provider{log: logger.With("setup", "noop")}
}

func (p *Provider) Configure(ctx context.Context, c *cluster.Cluster) error {
	p.log.Info("No setup provider configured, leaving cluster unconfigured", "cluster", c.Name)
	return nil
}
