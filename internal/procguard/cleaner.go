package procguard

import (
	"fmt"
	"log"
	"os"
	"os/exec"
	"syscall"
	"time"
)

// killGraceWindow is how long a cleanup sweep waits after sending SIGTERM
// to a process group before escalating to SIGKILL.
const killGraceWindow = 2 * time.Second

// Spawn starts a detached simulator process in its own process group so
// that killing the group later cannot also take down this supervisor. It
// does not wait for the child: the spec's spawn step sleeps 2s and moves
// on without blocking on exit.
func Spawn(name, shellCommand string, env []string) (pid int, err error) {
	cmd := exec.Command("sh", "-c", shellCommand)
	cmd.Env = append(os.Environ(), env...)
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	cmd.Stdout = nil
	cmd.Stderr = nil

	if err := cmd.Start(); err != nil {
		return 0, fmt.Errorf("spawning %s: %w", name, err)
	}

	go func() {
		_ = cmd.Wait()
	}()

	return cmd.Process.Pid, nil
}

// Cleaner tears down simulator process groups registered in a Registry,
// escalating from SIGTERM to SIGKILL and reaping zombies, the Go analog
// of the original Gazebo_Cleaner::cleanup().
type Cleaner struct {
	registry *Registry
}

// NewCleaner returns a Cleaner backed by reg.
func NewCleaner(reg *Registry) *Cleaner {
	return &Cleaner{registry: reg}
}

// CleanupAll kills every process currently registered and removes the
// registry file — the global sweep used on process-wide shutdown.
func (c *Cleaner) CleanupAll() error {
	entries, err := c.registry.Entries()
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		log.Printf("[procguard] no simulation processes registered")
		return nil
	}

	for _, e := range entries {
		c.killProcessGroup(e)
	}

	c.waitAndReap()
	return c.registry.Remove()
}

// CleanupVehicle kills only the process(es) registered under name,
// leaving the registry file and any other vehicle's processes intact —
// used when one drone engine errors out but the mission continues for
// the rest of the fleet.
func (c *Cleaner) CleanupVehicle(name string) error {
	entries, err := c.registry.Entries()
	if err != nil {
		return err
	}

	found := false
	for _, e := range entries {
		if e.Name == name {
			c.killProcessGroup(e)
			found = true
		}
	}
	if !found {
		log.Printf("[procguard] no registered process for vehicle %s", name)
		return nil
	}

	c.waitAndReap()
	return nil
}

func (c *Cleaner) killProcessGroup(e Entry) {
	if e.PID <= 0 {
		return
	}

	pgid, err := syscall.Getpgid(e.PID)
	target := e.PID
	negate := false
	if err == nil && pgid > 0 {
		target = pgid
		negate = true
	}

	log.Printf("[procguard] terminating %s (pid %d)", e.Name, e.PID)
	signalTarget(target, negate, syscall.SIGTERM)

	time.Sleep(killGraceWindow)

	if processAlive(e.PID) {
		log.Printf("[procguard] %s (pid %d) still alive after SIGTERM, sending SIGKILL", e.Name, e.PID)
		signalTarget(target, negate, syscall.SIGKILL)
	}
}

func signalTarget(target int, negate bool, sig syscall.Signal) {
	if negate {
		_ = syscall.Kill(-target, sig)
		return
	}
	_ = syscall.Kill(target, sig)
}

func processAlive(pid int) bool {
	return syscall.Kill(pid, 0) == nil
}

// waitAndReap collects any now-exited child processes so they don't
// remain as zombies, mirroring the original's waitpid(-1, WNOHANG) loop.
func (c *Cleaner) waitAndReap() {
	for {
		var status syscall.WaitStatus
		pid, err := syscall.Wait4(-1, &status, syscall.WNOHANG, nil)
		if pid <= 0 || err != nil {
			return
		}
		log.Printf("[procguard] reaped process %d", pid)
	}
}
