package sshexec

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"golang.org/x/crypto/ssh"
)

func encodePrivateKeyPEM(key *rsa.PrivateKey) []byte {
	return pem.EncodeToMemory(&pem.Block{
		Type:  "RSA PRIVATE KEY",
		Bytes: x509.MarshalPKCS1PrivateKey(key),
	})
}

// testServer starts a minimal in-process SSH server that answers any
// "exec" request with a fixed "connection_test" line and exit status 0,
// without running the command, so Client.Run can be exercised over a
// real loopback connection without a system sshd.
func testServer(t *testing.T) (addr string, clientKeyPath string) {
	t.Helper()

	hostKey, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("generating host key: %v", err)
	}
	signer, err := ssh.NewSignerFromKey(hostKey)
	if err != nil {
		t.Fatalf("signer from host key: %v", err)
	}

	clientKey, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("generating client key: %v", err)
	}
	clientSigner, err := ssh.NewSignerFromKey(clientKey)
	if err != nil {
		t.Fatalf("signer from client key: %v", err)
	}

	config := &ssh.ServerConfig{
		PublicKeyCallback: func(conn ssh.ConnMetadata, key ssh.PublicKey) (*ssh.Permissions, error) {
			if string(key.Marshal()) == string(clientSigner.PublicKey().Marshal()) {
				return nil, nil
			}
			return nil, &ssh.AuthError{}
		},
	}
	config.AddHostKey(signer)

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listening: %v", err)
	}
	t.Cleanup(func() { listener.Close() })

	go acceptLoop(t, listener, config)

	keyPath := filepath.Join(t.TempDir(), "id_rsa")
	if err := os.WriteFile(keyPath, encodePrivateKeyPEM(clientKey), 0o600); err != nil {
		t.Fatalf("writing client private key: %v", err)
	}

	return listener.Addr().String(), keyPath
}

func acceptLoop(t *testing.T, listener net.Listener, config *ssh.ServerConfig) {
	for {
		nConn, err := listener.Accept()
		if err != nil {
			return
		}
		go handleConn(nConn, config)
	}
}

func handleConn(nConn net.Conn, config *ssh.ServerConfig) {
	sshConn, chans, reqs, err := ssh.NewServerConn(nConn, config)
	if err != nil {
		return
	}
	defer sshConn.Close()
	go ssh.DiscardRequests(reqs)

	for newChannel := range chans {
		if newChannel.ChannelType() != "session" {
			newChannel.Reject(ssh.UnknownChannelType, "unsupported channel type")
			continue
		}
		channel, requests, err := newChannel.Accept()
		if err != nil {
			return
		}
		go func() {
			for req := range requests {
				if req.Type == "exec" {
					// payload is a length-prefixed command string
					cmd := string(req.Payload[4:])
					channel.Write([]byte("connection_test\n"))
					req.Reply(true, nil)
					_ = cmd
					channel.SendRequest("exit-status", false, []byte{0, 0, 0, 0})
					channel.Close()
				} else {
					req.Reply(false, nil)
				}
			}
		}()
	}
}

func TestClientRunAndTestConnection(t *testing.T) {
	addr, keyPath := testServer(t)
	host, portStr, err := net.SplitHostPort(addr)
	if err != nil {
		t.Fatalf("splitting host/port: %v", err)
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		t.Fatalf("parsing port: %v", err)
	}

	client, err := NewClient("tester", host, port, keyPath, "")
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}

	out, err := client.Run("echo connection_test")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !strings.Contains(out, "connection_test") {
		t.Errorf("output = %q, want it to contain connection_test", out)
	}

	if !client.TestConnection() {
		t.Error("TestConnection should succeed against the test server")
	}
}
