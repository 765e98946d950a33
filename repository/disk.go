package repository

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/tipee-sa/sherpa/cluster"
)

// Disk stores one snapshot file and one known_hosts file per cluster under a
// storage directory. Deleting that directory destroys the orchestrator's
// ability to manage the clusters it tracked, even if the cloud resources are
// still running.
type Disk struct {
	dir   string
	codec Codec
}

var _ cluster.Repository = (*Disk)(nil)

// NewDisk opens (and creates if needed) a disk repository. codec is used for
// newly created snapshots only; existing snapshots keep their encoding.
func NewDisk(dir string, codec Codec) (*Disk, error) {
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("create storage dir: %w", err)
	}
	if codec == nil {
		codec = DefaultCodec()
	}
	return &Disk{dir: dir, codec: codec}, nil
}

func (d *Disk) Dir() string {
	return d.dir
}

// checkName keeps every file the repository touches inside the storage
// directory. Names with path separators or dot components never belong to a
// cluster the repository created.
func checkName(name string) error {
	if name == "" || name == "." || name == ".." || name != filepath.Base(name) {
		return fmt.Errorf("%w: '%s'", ErrInvalidName, name)
	}
	return nil
}

// snapshotFile returns the path of the existing snapshot for name, or "" when
// none exists, along with the codec its extension denotes.
func (d *Disk) snapshotFile(name string) (string, Codec) {
	for _, codec := range codecs {
		path := filepath.Join(d.dir, name+codec.Ext())
		if _, err := os.Stat(path); err == nil {
			return path, codec
		}
	}
	return "", nil
}

func (d *Disk) Exists(name string) bool {
	path, _ := d.snapshotFile(name)
	return path != ""
}

// Save writes the snapshot atomically: the new content goes to a temporary
// file in the same directory which is then renamed over the old snapshot, so
// a crash leaves either the prior or the new snapshot, never a torn file.
func (d *Disk) Save(c *cluster.Cluster) error {
	if err := checkName(c.Name); err != nil {
		return err
	}
	codec := d.codec
	if _, existing := d.snapshotFile(c.Name); existing != nil {
		codec = existing
	}
	path := filepath.Join(d.dir, c.Name+codec.Ext())

	tmp, err := os.CreateTemp(d.dir, c.Name+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp snapshot: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := codec.Encode(tmp, c); err != nil {
		tmp.Close()
		return fmt.Errorf("encode snapshot of '%s': %w", c.Name, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync snapshot of '%s': %w", c.Name, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close snapshot of '%s': %w", c.Name, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("replace snapshot of '%s': %w", c.Name, err)
	}
	return nil
}

func (d *Disk) Load(name string) (*cluster.Cluster, error) {
	if err := checkName(name); err != nil {
		return nil, err
	}
	path, codec := d.snapshotFile(name)
	if path == "" {
		return nil, fmt.Errorf("%w: '%s'", ErrClusterNotFound, name)
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, &ReadError{Name: name, Err: err}
	}
	defer f.Close()

	c, err := codec.Decode(f)
	if err != nil {
		return nil, &ReadError{Name: name, Err: err}
	}
	if c.Name != name {
		return nil, &ReadError{Name: name, Err: fmt.Errorf("snapshot names cluster '%s'", c.Name)}
	}
	return c, nil
}

func (d *Disk) LoadAll() ([]*cluster.Cluster, error) {
	entries, err := os.ReadDir(d.dir)
	if err != nil {
		return nil, fmt.Errorf("read storage dir: %w", err)
	}

	var clusters []*cluster.Cluster
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		for _, codec := range codecs {
			if name, ok := strings.CutSuffix(entry.Name(), codec.Ext()); ok {
				c, err := d.Load(name)
				if err != nil {
					return nil, err
				}
				clusters = append(clusters, c)
				break
			}
		}
	}
	return clusters, nil
}

func (d *Disk) Delete(name string) error {
	if err := checkName(name); err != nil {
		return err
	}
	path, _ := d.snapshotFile(name)
	if path == "" {
		return fmt.Errorf("%w: '%s'", ErrClusterNotFound, name)
	}
	if err := os.Remove(path); err != nil {
		return fmt.Errorf("delete snapshot of '%s': %w", name, err)
	}
	if err := os.Remove(d.KnownHostsPath(name)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("delete known_hosts of '%s': %w", name, err)
	}
	return nil
}

// KnownHostsPath returns the per-cluster trust record path, named by
// convention from the cluster name.
func (d *Disk) KnownHostsPath(name string) string {
	return filepath.Join(d.dir, name+".known_hosts")
}

// Lock takes the advisory per-cluster lock guarding load→mutate→save.
// Concurrent lifecycle commands against the same cluster name are not
// supported; the second one fails fast with ErrClusterLocked. The returned
// function releases the lock.
func (d *Disk) Lock(name string) (func(), error) {
	if err := checkName(name); err != nil {
		return nil, err
	}
	path := filepath.Join(d.dir, name+".lock")
	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0600)
	if err != nil {
		if errors.Is(err, os.ErrExist) {
			return nil, fmt.Errorf("%w: '%s' (remove %s if stale)", ErrClusterLocked, name, path)
		}
		return nil, fmt.Errorf("lock cluster '%s': %w", name, err)
	}
	fmt.Fprintf(f, "%d\n", os.Getpid())
	f.Close()

	return func() {
		if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			// Leave the stale lock for the operator; the message above
			// explains how to clear it.
			fmt.Fprintf(os.Stderr, "failed to release lock %s: %v\n", path, err)
		}
	}, nil
}
