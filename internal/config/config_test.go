package config

import (
	"flag"
	"os"
	"path/filepath"
	"testing"
)

func TestLoadConfig(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	configContent := `
server:
  log_level: debug

route:
  k_nearest: 8
  span_coefficient: 150

drone:
  allow_pause: true
  health_gate_timeout_ms: 15000

ssh:
  host: "planner-host"
  user: "ubuntu"
`

	if err := os.WriteFile(configPath, []byte(configContent), 0o644); err != nil {
		t.Fatalf("Failed to write test config: %v", err)
	}

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if cfg.Server.LogLevel != "debug" {
		t.Errorf("LogLevel: got %s, want debug", cfg.Server.LogLevel)
	}
	if cfg.Route.KNearest != 8 {
		t.Errorf("KNearest: got %d, want 8", cfg.Route.KNearest)
	}
	if cfg.Route.SpanCoefficient != 150 {
		t.Errorf("SpanCoefficient: got %d, want 150", cfg.Route.SpanCoefficient)
	}
	if !cfg.Drone.AllowPause {
		t.Error("AllowPause should be true")
	}
	if cfg.SSH.Host != "planner-host" {
		t.Errorf("SSH.Host: got %s, want planner-host", cfg.SSH.Host)
	}
	if cfg.SSH.Port != 22 {
		t.Errorf("SSH.Port default: got %d, want 22", cfg.SSH.Port)
	}
}

func TestLoadConfigDefaults(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	if err := os.WriteFile(configPath, []byte("drone:\n  allow_pause: false\n"), 0o644); err != nil {
		t.Fatalf("Failed to write test config: %v", err)
	}

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if cfg.Server.LogLevel != "info" {
		t.Errorf("Default LogLevel: got %s, want info", cfg.Server.LogLevel)
	}
	if cfg.Route.SpanCoefficient != 100 {
		t.Errorf("Default SpanCoefficient: got %d, want 100", cfg.Route.SpanCoefficient)
	}
	if cfg.Drone.HealthGateTimeoutMs != 30000 {
		t.Errorf("Default HealthGateTimeoutMs: got %d, want 30000", cfg.Drone.HealthGateTimeoutMs)
	}
	if cfg.Drone.PIDRegistryPath != "/tmp/simulation_processes.pid" {
		t.Errorf("Default PIDRegistryPath: got %s, want /tmp/simulation_processes.pid", cfg.Drone.PIDRegistryPath)
	}
}

func TestLoadConfigFileNotFound(t *testing.T) {
	_, err := Load("/nonexistent/config.yaml")
	if err == nil {
		t.Error("Expected error for non-existent file")
	}
}

func TestLoadConfigInvalidYAML(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	if err := os.WriteFile(configPath, []byte("invalid: yaml: content:"), 0o644); err != nil {
		t.Fatalf("Failed to write test config: %v", err)
	}

	_, err := Load(configPath)
	if err == nil {
		t.Error("Expected error for invalid YAML")
	}
}

func TestParseFlagsPLDRequiresOwnAddress(t *testing.T) {
	fs := flag.NewFlagSet("pld", flag.ContinueOnError)
	if _, err := ParseFlags(fs, []string{}, true); err == nil {
		t.Fatal("expected error when --Own_Address/--Own_port are missing")
	}
}

func TestParseFlagsPLDSuccess(t *testing.T) {
	fs := flag.NewFlagSet("pld", flag.ContinueOnError)
	e, err := ParseFlags(fs, []string{"-Own_Address", "127.0.0.1", "-Own_port", "9000"}, true)
	if err != nil {
		t.Fatalf("ParseFlags: %v", err)
	}
	if e.OwnAddress != "127.0.0.1" || e.OwnPort != 9000 {
		t.Errorf("unexpected endpoints: %+v", e)
	}
}

func TestParseFlagsNonPLDRequiresPLDAddress(t *testing.T) {
	fs := flag.NewFlagSet("drone", flag.ContinueOnError)
	if _, err := ParseFlags(fs, []string{"-PLD_Address", "10.0.0.1"}, false); err == nil {
		t.Fatal("expected error when --PLD_port is missing")
	}
}

func TestParseFlagsNonPLDSuccess(t *testing.T) {
	fs := flag.NewFlagSet("drone", flag.ContinueOnError)
	e, err := ParseFlags(fs, []string{"-PLD_Address", "10.0.0.1", "-PLD_port", "9100"}, false)
	if err != nil {
		t.Fatalf("ParseFlags: %v", err)
	}
	if e.PLDAddress != "10.0.0.1" || e.PLDPort != 9100 {
		t.Errorf("unexpected endpoints: %+v", e)
	}
}
