// Package config loads the YAML file describing cluster templates and the
// credentials-free parts of the provider and setup back-ends. Cloud
// credentials themselves come from each back-end's usual environment (OS_*
// variables, AWS config chain), never from this file.
package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"github.com/tipee-sa/sherpa/cluster"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Templates map[string]Template `yaml:"templates"`
	Providers Providers           `yaml:"providers"`
	Setup     Setup               `yaml:"setup"`
}

// Template is a named cluster composition a start command instantiates.
type Template struct {
	Provider string           `yaml:"provider"`
	Setup    string           `yaml:"setup"`
	SSH      SSH              `yaml:"ssh"`
	Groups   map[string]Group `yaml:"groups"`
}

type SSH struct {
	User           string `yaml:"user"`
	KeyPair        string `yaml:"key_pair"`
	PublicKeyPath  string `yaml:"public_key"`
	PrivateKeyPath string `yaml:"private_key"`
}

type Group struct {
	Count int `yaml:"count"`
	// MinNodes defaults to Count when omitted: by default every requested
	// node must come up.
	MinNodes       *int     `yaml:"min_nodes"`
	Image          string   `yaml:"image"`
	Flavor         string   `yaml:"flavor"`
	SecurityGroups []string `yaml:"security_groups"`
}

type Providers struct {
	OpenStack OpenStack `yaml:"openstack"`
	AWS       AWS       `yaml:"aws"`
}

type OpenStack struct {
	Region   string   `yaml:"region"`
	Networks []string `yaml:"networks"`
}

type AWS struct {
	Region   string `yaml:"region"`
	SubnetID string `yaml:"subnet_id"`
}

type Setup struct {
	Ansible Ansible `yaml:"ansible"`
}

type Ansible struct {
	Playbook  string            `yaml:"playbook"`
	Binary    string            `yaml:"binary"`
	ExtraVars map[string]string `yaml:"extra_vars"`
}

// Load reads the configuration from path, or from
// $XDG_CONFIG_HOME/sherpa/config.yaml when path is empty.
func Load(path string) (*Config, error) {
	if path == "" {
		base := os.Getenv("XDG_CONFIG_HOME")
		if base == "" {
			home, err := os.UserHomeDir()
			if err != nil {
				return nil, fmt.Errorf("resolve home dir: %w", err)
			}
			base = filepath.Join(home, ".config")
		}
		path = filepath.Join(base, "sherpa", "config.yaml")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	var cfg Config
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("parse config '%s': %w", path, err)
	}
	return &cfg, nil
}

// Template looks a template up by name.
func (c *Config) Template(name string) (Template, error) {
	tpl, ok := c.Templates[name]
	if !ok {
		return Template{}, fmt.Errorf("no cluster template named '%s'", name)
	}
	return tpl, nil
}

// NewCluster instantiates an in-memory cluster from the template. Group
// counts can be overridden per kind (the --nodes flag); nodes are named but
// no cloud request is made here.
func (t Template) NewCluster(name, templateName string, countOverrides map[string]int) (*cluster.Cluster, error) {
	if len(t.Groups) == 0 {
		return nil, fmt.Errorf("template '%s' defines no node groups", templateName)
	}

	c := cluster.New(name, templateName)
	c.Provider = t.Provider
	c.Setup = t.Setup
	c.SSH = cluster.SSHConfig{
		User:           t.SSH.User,
		KeyPair:        t.SSH.KeyPair,
		PublicKeyPath:  t.SSH.PublicKeyPath,
		PrivateKeyPath: t.SSH.PrivateKeyPath,
	}

	for kind, group := range t.Groups {
		count := group.Count
		if override, ok := countOverrides[kind]; ok {
			count = override
		}
		minNodes := count
		if group.MinNodes != nil {
			minNodes = *group.MinNodes
		}
		if minNodes > count {
			return nil, fmt.Errorf("group '%s': min_nodes %d exceeds count %d", kind, minNodes, count)
		}
		if _, err := c.AddGroup(kind, minNodes, group.Image, group.Flavor, group.SecurityGroups); err != nil {
			return nil, err
		}
		if _, err := c.Grow(kind, count); err != nil {
			return nil, err
		}
	}
	for kind := range countOverrides {
		if _, ok := t.Groups[kind]; !ok {
			return nil, fmt.Errorf("--nodes names unknown group '%s'", kind)
		}
	}
	return c, nil
}
