package sshx

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"net"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/ssh"
)

func testSigner(t *testing.T) ssh.Signer {
	t.Helper()
	_, priv, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)
	signer, err := ssh.NewSignerFromKey(priv)
	require.NoError(t, err)
	return signer
}

// Dial must return promptly when the context is cancelled, even while the
// underlying handshake is still blocked on an unresponsive host.
func TestDialContextCancellation(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	// Accept the connection but never speak SSH, so the handshake hangs.
	hold := make(chan struct{})
	defer close(hold)
	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		<-hold
		conn.Close()
	}()

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	start := time.Now()
	_, err = Dial(ctx, ln.Addr().String(), Options{
		User:    "ubuntu",
		Signer:  testSigner(t),
		Trust:   NewTrustStore(filepath.Join(t.TempDir(), "test.known_hosts")),
		Timeout: 10 * time.Second,
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestDialDefaultsPort(t *testing.T) {
	// An address without a port gets ":22" appended; with a port it is kept.
	// Exercised indirectly through a failing dial against a closed port.
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	ln.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_, err = Dial(ctx, addr, Options{
		User:    "ubuntu",
		Signer:  testSigner(t),
		Trust:   NewTrustStore(filepath.Join(t.TempDir(), "test.known_hosts")),
		Timeout: time.Second,
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), addr, "the explicit port must be dialed as given")
}
