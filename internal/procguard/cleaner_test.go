package procguard

import (
	"path/filepath"
	"syscall"
	"testing"
	"time"
)

func TestSpawnAndKillProcessGroupKillsProcess(t *testing.T) {
	pid, err := Spawn("sleeper", "sleep 60", nil)
	if err != nil {
		t.Fatalf("Spawn: %v", err)
	}
	if !processAlive(pid) {
		t.Fatal("spawned process should be alive immediately after Spawn")
	}

	reg := NewRegistry(filepath.Join(t.TempDir(), "sim.pid"))
	if err := reg.Record("sleeper", pid); err != nil {
		t.Fatalf("Record: %v", err)
	}

	cleaner := &Cleaner{registry: reg}
	cleaner.killProcessGroup(Entry{Name: "sleeper", PID: pid})

	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) && processAlive(pid) {
		time.Sleep(20 * time.Millisecond)
	}
	if processAlive(pid) {
		t.Fatal("process should have been killed")
	}
}

func TestCleanupAllNoRegisteredProcesses(t *testing.T) {
	reg := NewRegistry(filepath.Join(t.TempDir(), "sim.pid"))
	cleaner := NewCleaner(reg)

	if err := cleaner.CleanupAll(); err != nil {
		t.Fatalf("CleanupAll with empty registry should not error: %v", err)
	}
}

func TestCleanupVehicleOnlyAffectsNamedProcess(t *testing.T) {
	pidA, err := Spawn("drone-a", "sleep 60", nil)
	if err != nil {
		t.Fatalf("Spawn: %v", err)
	}
	pidB, err := Spawn("drone-b", "sleep 60", nil)
	if err != nil {
		t.Fatalf("Spawn: %v", err)
	}
	defer syscall.Kill(-pidB, syscall.SIGKILL)

	reg := NewRegistry(filepath.Join(t.TempDir(), "sim.pid"))
	reg.Record("drone-a", pidA)
	reg.Record("drone-b", pidB)

	cleaner := NewCleaner(reg)
	if err := cleaner.CleanupVehicle("drone-a"); err != nil {
		t.Fatalf("CleanupVehicle: %v", err)
	}

	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) && processAlive(pidA) {
		time.Sleep(20 * time.Millisecond)
	}
	if processAlive(pidA) {
		t.Error("drone-a process should have been killed")
	}
	if !processAlive(pidB) {
		t.Error("drone-b process should still be alive")
	}

	entries, err := reg.Entries()
	if err != nil {
		t.Fatalf("Entries: %v", err)
	}
	if len(entries) != 2 {
		t.Errorf("CleanupVehicle should leave the registry file untouched, got %d entries", len(entries))
	}
}
