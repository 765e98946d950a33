package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/samber/lo"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/tipee-sa/sherpa/cluster"
	"github.com/tipee-sa/sherpa/config"
	"github.com/tipee-sa/sherpa/flags"
	"github.com/tipee-sa/sherpa/log"
	"github.com/tipee-sa/sherpa/provisioner"
	"github.com/tipee-sa/sherpa/repository"
	"github.com/tipee-sa/sherpa/setup"
	"github.com/tipee-sa/sherpa/sshx"
)

func loadConfig() (*config.Config, error) {
	return config.Load(viper.GetString(flags.Config))
}

func openRepository() (*repository.Disk, error) {
	dir := viper.GetString(flags.Storage)
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("resolve home dir: %w", err)
		}
		dir = filepath.Join(home, ".sherpa", "storage")
	}
	codec := repository.DefaultCodec()
	if name := viper.GetString(flags.SnapshotFormat); name != "" {
		var err error
		if codec, err = repository.CodecByName(name); err != nil {
			return nil, err
		}
	}
	return repository.NewDisk(dir, codec)
}

// workers returns the configured pool size, forced down to 1 at debug
// verbosity so cloud API traces come out in node order.
func workers() int {
	if log.Debugging() {
		return 1
	}
	return viper.GetInt(flags.Workers)
}

func orchestratorConfig(notify func(string)) cluster.Config {
	return cluster.Config{
		Logger:         log.Base,
		Workers:        workers(),
		StartupTimeout: viper.GetDuration(flags.StartupTimeout),
		PollInterval:   viper.GetDuration(flags.PollInterval),
		PollBackoff:    viper.GetFloat64(flags.PollBackoff),
		Notify:         notify,
	}
}

// newOrchestrator wires the cluster's configured back-ends together.
// needProber is set by commands that probe SSH liveness and therefore need
// the cluster's private key to be loadable.
func newOrchestrator(ctx context.Context, c *cluster.Cluster, repo *repository.Disk, cfg *config.Config, needProber bool, notify func(string)) (*cluster.Orchestrator, error) {
	provider, err := provisioner.New(ctx, c.Provider, cfg.Providers, log.Base)
	if err != nil {
		return nil, err
	}
	setupProvider, err := setup.New(c.Setup, cfg.Setup, repo.KnownHostsPath(c.Name), log.Base)
	if err != nil {
		return nil, err
	}

	var prober cluster.Prober = unusableProber{}
	if needProber {
		signer, err := sshx.LoadSigner(c.SSH.PrivateKeyPath)
		if err != nil {
			return nil, fmt.Errorf("cluster '%s' key material: %w", c.Name, err)
		}
		prober = &sshx.Prober{Opts: sshx.Options{
			User:    c.SSH.User,
			Signer:  signer,
			Trust:   sshx.NewTrustStore(repo.KnownHostsPath(c.Name)),
			Timeout: viper.GetDuration(flags.SSHTimeout),
		}}
	}

	return cluster.NewOrchestrator(c, repo, provider, setupProvider, prober, orchestratorConfig(notify)), nil
}

// unusableProber backs commands that never probe.
type unusableProber struct{}

func (unusableProber) Probe(ctx context.Context, addr string) error {
	return fmt.Errorf("liveness probing not available in this command")
}

// dialLogin opens an SSH connection to the cluster's login node, enforcing
// the cluster's pinned host keys.
func dialLogin(ctx context.Context, c *cluster.Cluster, repo *repository.Disk, group string) (*cluster.Node, *sshx.Options, error) {
	node, err := c.LoginNode(group)
	if err != nil {
		return nil, nil, err
	}
	if node.Addr() == "" {
		return nil, nil, fmt.Errorf("node '%s' has no known address; is the cluster started?", node.Name)
	}
	signer, err := sshx.LoadSigner(c.SSH.PrivateKeyPath)
	if err != nil {
		return nil, nil, fmt.Errorf("cluster '%s' key material: %w", c.Name, err)
	}
	return node, &sshx.Options{
		User:    c.SSH.User,
		Signer:  signer,
		Trust:   sshx.NewTrustStore(repo.KnownHostsPath(c.Name)),
		Timeout: viper.GetDuration(flags.SSHTimeout),
	}, nil
}

// confirm asks the operator before a destructive operation, unless --yes was
// given.
func confirm(cmd *cobra.Command, prompt string) bool {
	if lo.Must(cmd.Flags().GetBool("yes")) {
		return true
	}
	fmt.Fprintf(os.Stderr, "%s [y/N] ", prompt)
	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil {
		return false
	}
	answer := strings.ToLower(strings.TrimSpace(line))
	return answer == "y" || answer == "yes"
}

// parseGroupCounts parses "frontend:1,compute:4" style specs.
func parseGroupCounts(spec string) (map[string]int, error) {
	counts := make(map[string]int)
	if spec == "" {
		return counts, nil
	}
	for _, part := range strings.Split(spec, ",") {
		kind, value, ok := strings.Cut(strings.TrimSpace(part), ":")
		if !ok {
			return nil, fmt.Errorf("invalid group count '%s', expected kind:count", part)
		}
		count, err := strconv.Atoi(value)
		if err != nil || count < 0 {
			return nil, fmt.Errorf("invalid count in '%s'", part)
		}
		counts[kind] = count
	}
	return counts, nil
}
