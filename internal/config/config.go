package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"

	simerrors "github.com/meow-stack/factory-sim/internal/errors"
)

// ProjectDir is the per-project directory holding config, data and state.
const ProjectDir = ".factorysim"

// LogLevel specifies the logging verbosity.
type LogLevel string

const (
	LogLevelDebug LogLevel = "debug"
	LogLevelInfo  LogLevel = "info"
	LogLevelWarn  LogLevel = "warn"
	LogLevelError LogLevel = "error"
)

// LogFormat specifies the log output format.
type LogFormat string

const (
	LogFormatJSON LogFormat = "json"
	LogFormatText LogFormat = "text"
)

// StoreDriver selects the database backing the four record stores.
type StoreDriver string

const (
	StoreDriverSQLite   StoreDriver = "sqlite"
	StoreDriverPostgres StoreDriver = "postgres"
)

// SnapshotFormat selects the encoding of the persisted snapshot file.
type SnapshotFormat string

const (
	SnapshotFormatJSON SnapshotFormat = "json"
	SnapshotFormatYAML SnapshotFormat = "yaml"
)

// PathsConfig holds path configuration.
type PathsConfig struct {
	DataDir   string `toml:"data_dir"`
	StateFile string `toml:"state_file"`
	Socket    string `toml:"socket"`
	LogsDir   string `toml:"logs_dir"`
}

// SimulationConfig holds the business constants used by the operations.
type SimulationConfig struct {
	// Seed drives every random choice. Zero picks a time-based seed.
	Seed uint64 `toml:"seed"`

	Customers        int     `toml:"customers"`
	Employees        int     `toml:"employees"`
	MaxOrdersPerDay  int     `toml:"max_orders_per_day"`
	MaxOrderQuantity int     `toml:"max_order_quantity"`
	TargetMargin     float64 `toml:"target_margin"`
	RestockThreshold int     `toml:"restock_threshold"` // Widgets' worth of parts below which to reorder
	RestockTarget    int     `toml:"restock_target"`    // Widgets' worth of parts to reorder up to
	StageMinHours    float64 `toml:"stage_min_hours"`
	StageMaxHours    float64 `toml:"stage_max_hours"`
}

// StoreConfig holds store driver settings.
type StoreConfig struct {
	Driver StoreDriver `toml:"driver"`
	DSN    string      `toml:"dsn"` // Postgres only; sqlite uses paths.data_dir
}

// SyncConfig holds agent synchronization settings.
type SyncConfig struct {
	Format SnapshotFormat `toml:"format"`
	IPC    bool           `toml:"ipc"`
}

// MetricsConfig holds metrics exposition settings.
type MetricsConfig struct {
	Listen string `toml:"listen"` // e.g. ":9464"; empty disables the endpoint
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  LogLevel  `toml:"level"`
	Format LogFormat `toml:"format"`
	File   string    `toml:"file"`
}

// Config is the main configuration struct for factorysim.
type Config struct {
	Version    string           `toml:"version"`
	Paths      PathsConfig      `toml:"paths"`
	Simulation SimulationConfig `toml:"simulation"`
	Store      StoreConfig      `toml:"store"`
	Sync       SyncConfig       `toml:"sync"`
	Metrics    MetricsConfig    `toml:"metrics"`
	Logging    LoggingConfig    `toml:"logging"`
}

// Default returns a Config with sensible defaults.
func Default() *Config {
	return &Config{
		Version: "1",
		Paths: PathsConfig{
			DataDir:   ".factorysim/data",
			StateFile: ".factorysim/sim_state.json",
			Socket:    ".factorysim/sim.sock",
			LogsDir:   ".factorysim/logs",
		},
		Simulation: SimulationConfig{
			Seed:             42,
			Customers:        1000,
			Employees:        200,
			MaxOrdersPerDay:  20,
			MaxOrderQuantity: 20,
			TargetMargin:     0.30,
			RestockThreshold: 10,
			RestockTarget:    100,
			StageMinHours:    3,
			StageMaxHours:    72,
		},
		Store: StoreConfig{
			Driver: StoreDriverSQLite,
		},
		Sync: SyncConfig{
			Format: SnapshotFormatJSON,
			IPC:    true,
		},
		Logging: LoggingConfig{
			Level:  LogLevelInfo,
			Format: LogFormatText,
		},
	}
}

// Load loads configuration from file, merging with defaults.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil // Use defaults if no config file
		}
		return nil, fmt.Errorf("reading config: %w", err)
	}

	if _, err := toml.Decode(string(data), cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	return cfg, nil
}

// LoadFromDir loads configuration from the standard locations in a directory.
// Applies in order: defaults -> ~/.factorysim/config.toml -> .factorysim/config.toml
func LoadFromDir(dir string) (*Config, error) {
	cfg := Default()

	home, err := os.UserHomeDir()
	if err == nil {
		globalConfig := filepath.Join(home, ProjectDir, "config.toml")
		if data, err := os.ReadFile(globalConfig); err == nil {
			if _, err := toml.Decode(string(data), cfg); err != nil {
				return nil, fmt.Errorf("parsing global config: %w", err)
			}
		}
	}

	projectConfig := filepath.Join(dir, ProjectDir, "config.toml")
	if data, err := os.ReadFile(projectConfig); err == nil {
		if _, err := toml.Decode(string(data), cfg); err != nil {
			return nil, fmt.Errorf("parsing project config: %w", err)
		}
	}

	return cfg, nil
}

// Validate checks that the configuration is valid.
func (c *Config) Validate() error {
	if c.Version == "" {
		return simerrors.ConfigMissingField("version")
	}
	if c.Paths.DataDir == "" && c.Store.Driver == StoreDriverSQLite {
		return simerrors.ConfigMissingField("paths.data_dir")
	}
	if c.Paths.StateFile == "" {
		return simerrors.ConfigMissingField("paths.state_file")
	}
	switch c.Store.Driver {
	case StoreDriverSQLite:
	case StoreDriverPostgres:
		if c.Store.DSN == "" {
			return simerrors.ConfigMissingField("store.dsn")
		}
	default:
		return simerrors.ConfigInvalidValue("store.driver", c.Store.Driver, "must be sqlite or postgres")
	}
	switch c.Sync.Format {
	case SnapshotFormatJSON, SnapshotFormatYAML:
	default:
		return simerrors.ConfigInvalidValue("sync.format", c.Sync.Format, "must be json or yaml")
	}

	s := c.Simulation
	if s.Customers <= 0 {
		return simerrors.ConfigInvalidValue("simulation.customers", s.Customers, "must be positive")
	}
	if s.Employees < 0 {
		return simerrors.ConfigInvalidValue("simulation.employees", s.Employees, "must not be negative")
	}
	if s.MaxOrdersPerDay < 0 {
		return simerrors.ConfigInvalidValue("simulation.max_orders_per_day", s.MaxOrdersPerDay, "must not be negative")
	}
	if s.MaxOrderQuantity <= 0 {
		return simerrors.ConfigInvalidValue("simulation.max_order_quantity", s.MaxOrderQuantity, "must be positive")
	}
	if s.TargetMargin < 0 || s.TargetMargin >= 1 {
		return simerrors.ConfigInvalidValue("simulation.target_margin", s.TargetMargin, "must be in [0, 1)")
	}
	if s.RestockThreshold < 0 || s.RestockTarget < s.RestockThreshold {
		return simerrors.ConfigInvalidValue("simulation.restock_target", s.RestockTarget, "must be >= restock_threshold >= 0")
	}
	if s.StageMinHours <= 0 || s.StageMaxHours < s.StageMinHours {
		return simerrors.ConfigInvalidValue("simulation.stage_max_hours", s.StageMaxHours, "must be >= stage_min_hours > 0")
	}
	return nil
}

func resolve(baseDir, path string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(baseDir, path)
}

// DataDir returns the absolute store data directory path.
func (c *Config) DataDir(baseDir string) string {
	return resolve(baseDir, c.Paths.DataDir)
}

// StateFile returns the absolute snapshot file path.
func (c *Config) StateFile(baseDir string) string {
	return resolve(baseDir, c.Paths.StateFile)
}

// SocketPath returns the absolute IPC socket path.
func (c *Config) SocketPath(baseDir string) string {
	return resolve(baseDir, c.Paths.Socket)
}

// LogsDir returns the absolute logs directory path.
func (c *Config) LogsDir(baseDir string) string {
	return resolve(baseDir, c.Paths.LogsDir)
}

// LogFile returns the absolute log file path, relative files living in the logs dir.
func (c *Config) LogFile(baseDir string) string {
	if c.Logging.File == "" || filepath.IsAbs(c.Logging.File) {
		return c.Logging.File
	}
	return filepath.Join(c.LogsDir(baseDir), c.Logging.File)
}
