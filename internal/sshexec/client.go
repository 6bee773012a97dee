// Package sshexec drives remote docker compose lifecycles over SSH. It is
// grounded on the original platform's SSH_Manager/Docker_Manager pair,
// reworked from shelling out to a local "ssh" binary into a native
// golang.org/x/crypto/ssh client — the PLD no longer depends on an ssh
// binary being on its own PATH.
package sshexec

import (
	"bytes"
	"fmt"
	"os"
	"time"

	"golang.org/x/crypto/ssh"
)

const dialTimeout = 5 * time.Second

// Client drives a single remote host over SSH, mirroring SSH_Manager's
// per-host lifetime.
type Client struct {
	host   string
	port   int
	config *ssh.ClientConfig
}

// NewClient builds a Client authenticating with the private key at
// keyPath. An empty knownHostsPath falls back to ssh.InsecureIgnoreHostKey,
// matching the original's "-o StrictHostKeyChecking=no" default for
// simulation hosts under test.
func NewClient(user, host string, port int, keyPath, knownHostsPath string) (*Client, error) {
	signer, err := loadSigner(keyPath)
	if err != nil {
		return nil, fmt.Errorf("loading SSH private key %s: %w", keyPath, err)
	}

	hostKeyCallback, err := hostKeyCallback(knownHostsPath)
	if err != nil {
		return nil, fmt.Errorf("loading known_hosts %s: %w", knownHostsPath, err)
	}

	return &Client{
		host: host,
		port: port,
		config: &ssh.ClientConfig{
			User:            user,
			Auth:            []ssh.AuthMethod{ssh.PublicKeys(signer)},
			HostKeyCallback: hostKeyCallback,
			Timeout:         dialTimeout,
		},
	}, nil
}

func loadSigner(keyPath string) (ssh.Signer, error) {
	data, err := os.ReadFile(keyPath)
	if err != nil {
		return nil, err
	}
	return ssh.ParsePrivateKey(data)
}

func hostKeyCallback(knownHostsPath string) (ssh.HostKeyCallback, error) {
	if knownHostsPath == "" {
		return ssh.InsecureIgnoreHostKey(), nil
	}
	return knownHostsCallback(knownHostsPath)
}

// Run executes a single remote command and returns its combined stdout.
// Exit codes are surfaced through the returned error, matching the
// original's pclose()-exit-code check.
func (c *Client) Run(command string) (string, error) {
	conn, err := ssh.Dial("tcp", fmt.Sprintf("%s:%d", c.host, c.port), c.config)
	if err != nil {
		return "", fmt.Errorf("dialing %s:%d: %w", c.host, c.port, err)
	}
	defer conn.Close()

	session, err := conn.NewSession()
	if err != nil {
		return "", fmt.Errorf("opening SSH session: %w", err)
	}
	defer session.Close()

	var out bytes.Buffer
	session.Stdout = &out
	session.Stderr = &out

	if err := session.Run(command); err != nil {
		return out.String(), fmt.Errorf("running %q: %w", command, err)
	}
	return out.String(), nil
}

// TestConnection mirrors SSH_Manager::test_connection — a no-op round
// trip used to validate reachability before starting a container.
func (c *Client) TestConnection() bool {
	out, err := c.Run("echo connection_test")
	return err == nil && bytes.Contains([]byte(out), []byte("connection_test"))
}
