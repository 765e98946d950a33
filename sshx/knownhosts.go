package sshx

import (
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"sync"

	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/knownhosts"
)

// HostKeyMismatchError reports a host presenting a different key than the one
// pinned on first contact. This is always fatal for the connection attempt.
type HostKeyMismatchError struct {
	Host        string
	Fingerprint string
}

func (e *HostKeyMismatchError) Error() string {
	return fmt.Sprintf("host key mismatch for '%s': remote now presents %s", e.Host, e.Fingerprint)
}

// TrustStore is a per-cluster known_hosts file applying trust-on-first-use:
// the first key a host presents is pinned, every later contact is checked
// against it.
type TrustStore struct {
	path string
	mu   sync.Mutex
}

func NewTrustStore(path string) *TrustStore {
	return &TrustStore{path: path}
}

func (t *TrustStore) Path() string {
	return t.path
}

// Callback returns a host key callback enforcing the store's pins. Unknown
// hosts are recorded and accepted; known hosts with a different key are
// rejected with a HostKeyMismatchError.
func (t *TrustStore) Callback() ssh.HostKeyCallback {
	return func(hostname string, remote net.Addr, key ssh.PublicKey) error {
		t.mu.Lock()
		defer t.mu.Unlock()

		if err := t.ensure(); err != nil {
			return err
		}
		check, err := knownhosts.New(t.path)
		if err != nil {
			return fmt.Errorf("load known_hosts: %w", err)
		}

		err = check(hostname, remote, key)
		if err == nil {
			return nil
		}

		var keyErr *knownhosts.KeyError
		if errors.As(err, &keyErr) {
			if len(keyErr.Want) == 0 {
				// First contact: pin the key.
				return t.append(hostname, key)
			}
			return &HostKeyMismatchError{
				Host:        hostname,
				Fingerprint: ssh.FingerprintSHA256(key),
			}
		}
		return err
	}
}

func (t *TrustStore) ensure() error {
	if err := os.MkdirAll(filepath.Dir(t.path), 0700); err != nil {
		return fmt.Errorf("mkdir known_hosts dir: %w", err)
	}
	if _, err := os.Stat(t.path); os.IsNotExist(err) {
		if err := os.WriteFile(t.path, nil, 0600); err != nil {
			return fmt.Errorf("create known_hosts: %w", err)
		}
	}
	return nil
}

func (t *TrustStore) append(hostname string, key ssh.PublicKey) error {
	line := knownhosts.Line([]string{knownhosts.Normalize(hostname)}, key)
	f, err := os.OpenFile(t.path, os.O_APPEND|os.O_WRONLY, 0600)
	if err != nil {
		return fmt.Errorf("open known_hosts: %w", err)
	}
	defer f.Close()
	if _, err := f.WriteString(line + "\n"); err != nil {
		return fmt.Errorf("write known_hosts: %w", err)
	}
	return nil
}
