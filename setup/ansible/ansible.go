// Package ansible hands a cluster's node inventory to an external
// ansible-playbook run. The orchestrator only learns whether the run
// succeeded; playbook content is entirely the operator's business.
package ansible

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"sort"
	"strings"
	"text/template"

	"github.com/alessio/shellescape"
	sprig "github.com/go-task/slim-sprig/v3"
	"github.com/tipee-sa/sherpa/cluster"
)

type Config struct {
	// Playbook is the entry playbook path. Required.
	Playbook string
	// Binary defaults to "ansible-playbook" resolved through PATH.
	Binary string
	// ExtraVars are passed through as --extra-vars key=value pairs.
	ExtraVars map[string]string
	// KnownHostsFile, when set, pins host identities to the cluster's trust
	// record instead of the user's global known_hosts.
	KnownHostsFile string
	// InventoryTemplate overrides the default inventory layout. It is parsed
	// with the sprig function set.
	InventoryTemplate string
}

// One ini-style section per node group, reachable nodes only.
const defaultInventoryTemplate = `{{- range .Groups }}
[{{ .Kind }}]
{{- range .Nodes }}
{{ .Name }} ansible_host={{ .Addr }} ansible_user={{ $.User }} ansible_ssh_private_key_file={{ $.PrivateKey }}{{ with $.SSHCommonArgs }} ansible_ssh_common_args={{ . }}{{ end }}
{{- end }}
{{ end -}}
`

type Provider struct {
	config   Config
	template *template.Template
	log      *slog.Logger
}

var _ cluster.SetupProvider = (*Provider)(nil)

func New(config Config, logger *slog.Logger) (*Provider, error) {
	if config.Playbook == "" {
		return nil, fmt.Errorf("ansible setup requires a playbook")
	}
	if config.Binary == "" {
		config.Binary = "ansible-playbook"
	}
	text := config.InventoryTemplate
	if text == "" {
		text = defaultInventoryTemplate
	}
	tpl, err := template.New("inventory").Funcs(sprig.FuncMap()).Parse(text)
	if err != nil {
		return nil, fmt.Errorf("parse inventory template: %w", err)
	}
	return &Provider{
		config:   config,
		template: tpl,
		log:      logger.With("setup", "ansible"),
	}, nil
}

type inventoryGroup struct {
	Kind  string
	Nodes []*cluster.Node
}

type inventoryData struct {
	User          string
	PrivateKey    string
	SSHCommonArgs string
	Groups        []inventoryGroup
}

// Inventory renders the ini-style inventory for the cluster's reachable
// nodes. Exported for tests and for operators debugging their playbooks.
func (p *Provider) Inventory(c *cluster.Cluster) (string, error) {
	data := inventoryData{
		User:       c.SSH.User,
		PrivateKey: c.SSH.PrivateKeyPath,
	}
	if p.config.KnownHostsFile != "" {
		data.SSHCommonArgs = shellescape.Quote("-o UserKnownHostsFile=" + p.config.KnownHostsFile)
	}

	for _, kind := range c.GroupNames() {
		group := inventoryGroup{Kind: kind}
		for _, node := range c.Groups[kind].Nodes {
			if node.Reachable() {
				group.Nodes = append(group.Nodes, node)
			}
		}
		if len(group.Nodes) > 0 {
			data.Groups = append(data.Groups, group)
		}
	}

	var buf strings.Builder
	if err := p.template.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("render inventory: %w", err)
	}
	return buf.String(), nil
}

// Configure writes the inventory to a temporary file and runs the playbook
// over it, streaming ansible's output to the operator.
func (p *Provider) Configure(ctx context.Context, c *cluster.Cluster) error {
	inventory, err := p.Inventory(c)
	if err != nil {
		return err
	}
	if !strings.Contains(inventory, "ansible_host=") {
		return fmt.Errorf("cluster '%s' has no reachable nodes to configure", c.Name)
	}

	f, err := os.CreateTemp("", "sherpa-inventory-*.ini")
	if err != nil {
		return fmt.Errorf("create inventory file: %w", err)
	}
	defer os.Remove(f.Name())
	if _, err := f.WriteString(inventory); err != nil {
		f.Close()
		return fmt.Errorf("write inventory file: %w", err)
	}
	f.Close()

	args := []string{"-i", f.Name()}
	keys := make([]string, 0, len(p.config.ExtraVars))
	for key := range p.config.ExtraVars {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		args = append(args, "--extra-vars", key+"="+p.config.ExtraVars[key])
	}
	args = append(args, p.config.Playbook)

	p.log.Info("Running playbook", "cluster", c.Name, "playbook", p.config.Playbook)
	cmd := exec.CommandContext(ctx, p.config.Binary, args...)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("ansible-playbook failed: %w", err)
	}
	return nil
}
