// Package config loads the static per-process configuration (YAML) and the
// CLI flags every module's main() requires, mirroring the load-with-defaults
// pattern used throughout this platform.
package config

import (
	"flag"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config represents the static, file-based configuration shared by all four
// modules. Each module reads only the sub-sections relevant to it, but a
// single struct keeps one YAML schema across the platform.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Recorder RecorderConfig `yaml:"recorder"`
	Signal   SignalConfig   `yaml:"signal"`
	Route    RouteConfig    `yaml:"route"`
	Drone    DroneConfig    `yaml:"drone"`
	SSH      SSHConfig      `yaml:"ssh"`
	Dashboard DashboardConfig `yaml:"dashboard"`
}

// ServerConfig contains server-level settings shared by all modules.
type ServerConfig struct {
	LogLevel       string `yaml:"log_level"`
	LogDir         string `yaml:"log_dir"`
	RingBufferSize int    `yaml:"ring_buffer_size"`
}

// RecorderConfig controls where session recordings are written.
type RecorderConfig struct {
	BaseDir string `yaml:"base_dir"`
}

// SignalConfig holds RF-coverage raster generation defaults merged with any
// per-request SignalServerConfig fields the client omits.
type SignalConfig struct {
	SDFDirectory     string  `yaml:"sdf_directory"`
	OutputDirectory  string  `yaml:"output_directory"`
	RFToolPath       string  `yaml:"rf_tool_path"`
	PropagationModel string  `yaml:"propagation_model"`
	Resolution       int     `yaml:"resolution"`
	Radius           float64 `yaml:"radius"`
}

// RouteConfig controls the planner's k-NN graph and VRP solver parameters.
type RouteConfig struct {
	KNearest        int     `yaml:"k_nearest"`
	SpanCoefficient int     `yaml:"span_coefficient"`
	SolverTimeoutMs int     `yaml:"solver_timeout_ms"`
	CoverageFloorDBm float64 `yaml:"coverage_floor_dbm"`
}

// DroneConfig controls per-vehicle engine behavior.
type DroneConfig struct {
	HealthGateTimeoutMs int    `yaml:"health_gate_timeout_ms"`
	AllowPause          bool   `yaml:"allow_pause"`
	AutostartSimulator  bool   `yaml:"autostart_simulator"`
	SpawnCommandTpl     string `yaml:"spawn_command_template"`
	PIDRegistryPath     string `yaml:"pid_registry_path"`
}

// SSHConfig holds the credentials used to drive remote container lifecycles.
type SSHConfig struct {
	Host           string `yaml:"host"`
	Port           int    `yaml:"port"`
	User           string `yaml:"user"`
	PrivateKeyPath string `yaml:"private_key_path"`
	KnownHostsPath string `yaml:"known_hosts_path"`
}

// DashboardConfig controls the optional HTTP+websocket status dashboard.
type DashboardConfig struct {
	Enabled     bool     `yaml:"enabled"`
	Address     string   `yaml:"address"`
	CORSOrigins []string `yaml:"cors_origins"`
	JWTSecret   string   `yaml:"jwt_secret"`
}

// Load reads configuration from a YAML file and fills in defaults for the
// zero-valued fields applyDefaults lists; every other field keeps the
// value (or zero value) the file gave it.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	applyDefaults(&cfg)
	return &cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Server.LogLevel == "" {
		cfg.Server.LogLevel = "info"
	}
	if cfg.Server.LogDir == "" {
		cfg.Server.LogDir = "logs"
	}
	if cfg.Server.RingBufferSize == 0 {
		cfg.Server.RingBufferSize = 1000
	}
	if cfg.Recorder.BaseDir == "" {
		cfg.Recorder.BaseDir = "recordings"
	}
	if cfg.Signal.PropagationModel == "" {
		cfg.Signal.PropagationModel = "longley-rice"
	}
	if cfg.Signal.Resolution == 0 {
		cfg.Signal.Resolution = 1200
	}
	if cfg.Route.KNearest == 0 {
		cfg.Route.KNearest = 5
	}
	if cfg.Route.SpanCoefficient == 0 {
		cfg.Route.SpanCoefficient = 100
	}
	if cfg.Route.SolverTimeoutMs == 0 {
		cfg.Route.SolverTimeoutMs = 5000
	}
	if cfg.Route.CoverageFloorDBm == 0 {
		cfg.Route.CoverageFloorDBm = -110
	}
	if cfg.Drone.HealthGateTimeoutMs == 0 {
		cfg.Drone.HealthGateTimeoutMs = 30000
	}
	if cfg.Drone.PIDRegistryPath == "" {
		cfg.Drone.PIDRegistryPath = "/tmp/simulation_processes.pid"
	}
	if cfg.SSH.Port == 0 {
		cfg.SSH.Port = 22
	}
	if cfg.Dashboard.Address == "" {
		cfg.Dashboard.Address = "0.0.0.0:8080"
	}
}

// Endpoints holds the peer addressing every module's main() parses from CLI
// flags per spec §7: "--PLD_Address <ip> --PLD_port <u16>" for non-PLD
// modules, or "--Own_Address --Own_port" for the PLD itself.
type Endpoints struct {
	PLDAddress string
	PLDPort    uint16
	OwnAddress string
	OwnPort    uint16
	ConfigPath string
}

// ParseFlags parses the CLI flags common to every module's entry point.
// isPLD selects between the PLD's own --Own_Address/--Own_port pair and
// every other module's --PLD_Address/--PLD_port pair. It returns an error
// when required flags are missing; whether a flag parse error exits the
// process is decided by fs's own ErrorHandling setting.
func ParseFlags(fs *flag.FlagSet, args []string, isPLD bool) (*Endpoints, error) {
	e := &Endpoints{}
	fs.StringVar(&e.ConfigPath, "config", "config.yaml", "path to YAML configuration file")

	if isPLD {
		fs.StringVar(&e.OwnAddress, "Own_Address", "", "address this module listens on")
		var port uint
		fs.UintVar(&port, "Own_port", 0, "port this module listens on")
		if err := fs.Parse(args); err != nil {
			return nil, err
		}
		e.OwnPort = uint16(port)
		if e.OwnAddress == "" || e.OwnPort == 0 {
			return nil, fmt.Errorf("missing required flags: --Own_Address and --Own_port")
		}
		return e, nil
	}

	fs.StringVar(&e.PLDAddress, "PLD_Address", "", "address of the PLD to connect to")
	var port uint
	fs.UintVar(&port, "PLD_port", 0, "port of the PLD to connect to")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	e.PLDPort = uint16(port)
	if e.PLDAddress == "" || e.PLDPort == 0 {
		return nil, fmt.Errorf("missing required flags: --PLD_Address and --PLD_port")
	}
	return e, nil
}
