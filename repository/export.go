package repository

import (
	"archive/tar"
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/klauspost/compress/zstd"
	"gopkg.in/yaml.v3"
)

// Archive entry names. The snapshot entry carries the codec extension so an
// import knows how to decode it.
const (
	manifestEntry   = "manifest.yaml"
	knownHostsEntry = "known_hosts"
	privateKeyEntry = "keys/id_key"
	publicKeyEntry  = "keys/id_key.pub"
)

type manifest struct {
	Name         string    `yaml:"name"`
	Codec        string    `yaml:"codec"`
	ExportedAt   time.Time `yaml:"exported_at"`
	IncludesKeys bool      `yaml:"includes_keys"`
}

type ExportOptions struct {
	// IncludeKeys copies the private key material into the archive. Off by
	// default; an archive without keys leaves the key paths for the operator
	// to reconcile on import.
	IncludeKeys bool
}

// Export writes a portable zstd-compressed tar archive holding the snapshot
// as stored, the known-hosts trust record, and optionally the SSH key
// material.
func (d *Disk) Export(name string, w io.Writer, opts ExportOptions) error {
	// Loading first guarantees we never export a snapshot we could not load
	// back.
	c, err := d.Load(name)
	if err != nil {
		return err
	}
	path, codec := d.snapshotFile(name)

	zw, err := zstd.NewWriter(w)
	if err != nil {
		return fmt.Errorf("zstd writer: %w", err)
	}
	tw := tar.NewWriter(zw)

	manifestData, err := yaml.Marshal(manifest{
		Name:         name,
		Codec:        codec.Name(),
		ExportedAt:   time.Now().UTC(),
		IncludesKeys: opts.IncludeKeys,
	})
	if err != nil {
		return fmt.Errorf("marshal manifest: %w", err)
	}
	if err := writeEntry(tw, manifestEntry, manifestData); err != nil {
		return err
	}

	snapshot, err := os.ReadFile(path)
	if err != nil {
		return &ReadError{Name: name, Err: err}
	}
	if err := writeEntry(tw, "snapshot"+codec.Ext(), snapshot); err != nil {
		return err
	}

	if hosts, err := os.ReadFile(d.KnownHostsPath(name)); err == nil {
		if err := writeEntry(tw, knownHostsEntry, hosts); err != nil {
			return err
		}
	} else if !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("read known_hosts of '%s': %w", name, err)
	}

	if opts.IncludeKeys {
		for entry, keyPath := range map[string]string{
			privateKeyEntry: c.SSH.PrivateKeyPath,
			publicKeyEntry:  c.SSH.PublicKeyPath,
		} {
			if keyPath == "" {
				continue
			}
			key, err := os.ReadFile(keyPath)
			if err != nil {
				return fmt.Errorf("read key material: %w", err)
			}
			if err := writeEntry(tw, entry, key); err != nil {
				return err
			}
		}
	}

	if err := tw.Close(); err != nil {
		return fmt.Errorf("close archive: %w", err)
	}
	return zw.Close()
}

type ImportOptions struct {
	// Rename imports the cluster under a new name. Required when a cluster
	// with the archived name still exists in the repository.
	Rename string
}

// Import reads an archive produced by Export and registers the cluster in
// this repository. It refuses to overwrite an existing cluster unless a
// rename is supplied, and never guesses key paths when the archive carries no
// key material.
func (d *Disk) Import(r io.Reader, opts ImportOptions) (name string, err error) {
	zr, err := zstd.NewReader(r)
	if err != nil {
		return "", fmt.Errorf("zstd reader: %w", err)
	}
	defer zr.Close()

	entries := make(map[string][]byte)
	tr := tar.NewReader(zr)
	for {
		header, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", fmt.Errorf("read archive: %w", err)
		}
		data, err := io.ReadAll(tr)
		if err != nil {
			return "", fmt.Errorf("read archive entry '%s': %w", header.Name, err)
		}
		entries[header.Name] = data
	}

	manifestData, ok := entries[manifestEntry]
	if !ok {
		return "", fmt.Errorf("archive has no %s", manifestEntry)
	}
	var m manifest
	if err := yaml.Unmarshal(manifestData, &m); err != nil {
		return "", fmt.Errorf("parse manifest: %w", err)
	}
	codec, err := CodecByName(m.Codec)
	if err != nil {
		return "", err
	}
	snapshot, ok := entries["snapshot"+codec.Ext()]
	if !ok {
		return "", fmt.Errorf("archive has no snapshot entry")
	}

	name = m.Name
	if opts.Rename != "" {
		name = opts.Rename
	}
	// Archives come from outside the repository; their manifests get the same
	// name screening as operator input.
	if err := checkName(name); err != nil {
		return "", err
	}
	if d.Exists(name) {
		return "", fmt.Errorf("%w: '%s' (supply a rename)", ErrClusterExists, name)
	}

	c, err := codec.Decode(bytes.NewReader(snapshot))
	if err != nil {
		return "", &ReadError{Name: m.Name, Err: err}
	}
	c.Name = name
	for _, node := range c.Nodes() {
		node.ClusterName = name
	}

	if key, ok := entries[privateKeyEntry]; ok {
		keyPath := filepath.Join(d.dir, name+".key")
		if err := os.WriteFile(keyPath, key, 0600); err != nil {
			return "", fmt.Errorf("write key material: %w", err)
		}
		c.SSH.PrivateKeyPath = keyPath
		if pub, ok := entries[publicKeyEntry]; ok {
			if err := os.WriteFile(keyPath+".pub", pub, 0644); err != nil {
				return "", fmt.Errorf("write key material: %w", err)
			}
			c.SSH.PublicKeyPath = keyPath + ".pub"
		}
	}

	if hosts, ok := entries[knownHostsEntry]; ok {
		if err := os.WriteFile(d.KnownHostsPath(name), hosts, 0600); err != nil {
			return "", fmt.Errorf("write known_hosts of '%s': %w", name, err)
		}
	}

	// New snapshot: the archive's codec becomes its codec, regardless of the
	// repository default.
	var buf bytes.Buffer
	if err := codec.Encode(&buf, c); err != nil {
		return "", fmt.Errorf("encode snapshot of '%s': %w", name, err)
	}
	if err := os.WriteFile(filepath.Join(d.dir, name+codec.Ext()), buf.Bytes(), 0600); err != nil {
		return "", fmt.Errorf("write snapshot of '%s': %w", name, err)
	}
	return name, nil
}

func writeEntry(tw *tar.Writer, name string, data []byte) error {
	if err := tw.WriteHeader(&tar.Header{
		Name:    name,
		Mode:    0600,
		Size:    int64(len(data)),
		ModTime: time.Now(),
	}); err != nil {
		return fmt.Errorf("write archive header '%s': %w", name, err)
	}
	if _, err := tw.Write(data); err != nil {
		return fmt.Errorf("write archive entry '%s': %w", name, err)
	}
	return nil
}
