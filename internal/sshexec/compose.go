package sshexec

import (
	"fmt"
	"strings"
)

// ComposeManager drives a single docker-compose.yml on a remote host over
// SSH, the Go descendant of the original Docker_Manager. It exposes the
// four distinct remote operations the original split across
// Docker_Manager and SSH_Manager: connectivity test, compose up, container
// removal ("docker rm -f"), and running-service listing.
type ComposeManager struct {
	client      *Client
	composeFile string
}

// NewComposeManager returns a ComposeManager driving composeFile over client.
func NewComposeManager(client *Client, composeFile string) *ComposeManager {
	return &ComposeManager{client: client, composeFile: composeFile}
}

// TestConnection verifies the remote host is reachable before attempting
// any container lifecycle operation.
func (m *ComposeManager) TestConnection() bool {
	return m.client.TestConnection()
}

// StartContainer brings up one named service via "docker compose up -d".
func (m *ComposeManager) StartContainer(containerName string) error {
	cmd := fmt.Sprintf("docker compose -f %s up -d %s", m.composeFile, containerName)
	if _, err := m.client.Run(cmd); err != nil {
		return fmt.Errorf("starting container %s: %w", containerName, err)
	}
	return nil
}

// StopContainer force-removes a named container. The original shells out
// to "docker rm -f" directly rather than "compose down", matching a
// single-service teardown instead of tearing down the whole stack.
func (m *ComposeManager) StopContainer(containerName string) error {
	cmd := fmt.Sprintf("docker rm -f %s", containerName)
	if _, err := m.client.Run(cmd); err != nil {
		return fmt.Errorf("stopping container %s: %w", containerName, err)
	}
	return nil
}

// IsContainerRunning lists running services via "compose ps" and checks
// whether containerName appears among them.
func (m *ComposeManager) IsContainerRunning(containerName string) (bool, error) {
	cmd := fmt.Sprintf("docker compose -f %s ps --services --filter \"status=running\"", m.composeFile)
	out, err := m.client.Run(cmd)
	if err != nil {
		return false, fmt.Errorf("listing running containers: %w", err)
	}
	for _, line := range strings.Split(out, "\n") {
		if strings.TrimSpace(line) == containerName {
			return true, nil
		}
	}
	return false, nil
}
