package repository

import (
	"bytes"
	"fmt"
	"sync"

	"github.com/tipee-sa/sherpa/cluster"
)

// Memory keeps snapshots for the lifetime of the process. It exists for
// embedding and tests; semantics match the disk repository, including the
// fact that a saved snapshot is a copy and not an alias of the live cluster.
type Memory struct {
	mu        sync.Mutex
	snapshots map[string][]byte
}

var _ cluster.Repository = (*Memory)(nil)

func NewMemory() *Memory {
	return &Memory{snapshots: make(map[string][]byte)}
}

func (m *Memory) Save(c *cluster.Cluster) error {
	var buf bytes.Buffer
	if err := DefaultCodec().Encode(&buf, c); err != nil {
		return fmt.Errorf("encode snapshot of '%s': %w", c.Name, err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.snapshots[c.Name] = buf.Bytes()
	return nil
}

func (m *Memory) Load(name string) (*cluster.Cluster, error) {
	m.mu.Lock()
	data, ok := m.snapshots[name]
	m.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("%w: '%s'", ErrClusterNotFound, name)
	}
	c, err := DefaultCodec().Decode(bytes.NewReader(data))
	if err != nil {
		return nil, &ReadError{Name: name, Err: err}
	}
	return c, nil
}

func (m *Memory) LoadAll() ([]*cluster.Cluster, error) {
	m.mu.Lock()
	names := make([]string, 0, len(m.snapshots))
	for name := range m.snapshots {
		names = append(names, name)
	}
	m.mu.Unlock()

	var clusters []*cluster.Cluster
	for _, name := range names {
		c, err := m.Load(name)
		if err != nil {
			return nil, err
		}
		clusters = append(clusters, c)
	}
	return clusters, nil
}

func (m *Memory) Delete(name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.snapshots[name]; !ok {
		return fmt.Errorf("%w: '%s'", ErrClusterNotFound, name)
	}
	delete(m.snapshots, name)
	return nil
}
