package sshx

import (
	"context"
	"fmt"
	"net"
	"os"
	"time"

	"golang.org/x/crypto/ssh"
	"golang.org/x/term"
)

// LoadSigner reads an OpenSSH/PEM private key file without passphrase and
// returns a signer for it.
func LoadSigner(path string) (ssh.Signer, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read private key: %w", err)
	}
	signer, err := ssh.ParsePrivateKey(data)
	if err != nil {
		return nil, fmt.Errorf("parse private key '%s': %w", path, err)
	}
	return signer, nil
}

// Options configures a single SSH connection.
type Options struct {
	User    string
	Signer  ssh.Signer
	Trust   *TrustStore
	Timeout time.Duration
}

func (o Options) clientConfig() *ssh.ClientConfig {
	return &ssh.ClientConfig{
		User:            o.User,
		Auth:            []ssh.AuthMethod{ssh.PublicKeys(o.Signer)},
		HostKeyCallback: o.Trust.Callback(),
		Timeout:         o.Timeout,
	}
}

// Dial opens one SSH connection to addr (host or host:port). The caller owns
// the returned client.
func Dial(ctx context.Context, addr string, opts Options) (*ssh.Client, error) {
	if _, _, err := net.SplitHostPort(addr); err != nil {
		addr = net.JoinHostPort(addr, "22")
	}

	type result struct {
		client *ssh.Client
		err    error
	}
	ch := make(chan result, 1)
	go func() {
		client, err := ssh.Dial("tcp", addr, opts.clientConfig())
		ch <- result{client, err}
	}()

	select {
	case <-ctx.Done():
		// The dial goroutine keeps running; reap its result so a connection
		// established after cancellation is not leaked.
		go func() {
			if r := <-ch; r.client != nil {
				r.client.Close()
			}
		}()
		return nil, ctx.Err()
	case r := <-ch:
		if r.err != nil {
			return nil, fmt.Errorf("ssh dial %s: %w", addr, r.err)
		}
		return r.client, nil
	}
}

// Prober implements the orchestrator's liveness probe: one SSH handshake with
// a short timeout, no internal retries. A successful handshake pins the host
// key through the trust store.
type Prober struct {
	Opts Options
}

func (p *Prober) Probe(ctx context.Context, addr string) error {
	if addr == "" {
		return fmt.Errorf("node has no address yet")
	}
	client, err := Dial(ctx, addr, p.Opts)
	if err != nil {
		return err
	}
	return client.Close()
}

// Exec runs a remote command, wiring the session to the local stdio.
func Exec(client *ssh.Client, command string) error {
	session, err := client.NewSession()
	if err != nil {
		return fmt.Errorf("ssh session: %w", err)
	}
	defer session.Close()

	session.Stdin = os.Stdin
	session.Stdout = os.Stdout
	session.Stderr = os.Stderr
	return session.Run(command)
}

// Shell starts an interactive login shell on the remote host, putting the
// local terminal in raw mode for the duration of the session.
func Shell(client *ssh.Client) error {
	session, err := client.NewSession()
	if err != nil {
		return fmt.Errorf("ssh session: %w", err)
	}
	defer session.Close()

	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return fmt.Errorf("stdin is not a terminal")
	}
	oldState, err := term.MakeRaw(fd)
	if err != nil {
		return fmt.Errorf("raw terminal: %w", err)
	}
	defer term.Restore(fd, oldState) //nolint:errcheck

	width, height, err := term.GetSize(fd)
	if err != nil {
		width, height = 80, 24
	}
	modes := ssh.TerminalModes{
		ssh.ECHO:          1,
		ssh.TTY_OP_ISPEED: 14400,
		ssh.TTY_OP_OSPEED: 14400,
	}
	if err := session.RequestPty("xterm-256color", height, width, modes); err != nil {
		return fmt.Errorf("request pty: %w", err)
	}

	session.Stdin = os.Stdin
	session.Stdout = os.Stdout
	session.Stderr = os.Stderr

	if err := session.Shell(); err != nil {
		return err
	}
	return session.Wait()
}
