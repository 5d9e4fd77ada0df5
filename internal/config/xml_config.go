// Package config provides XML-based configuration management for air-gapped deployment.
package config

import (
	"encoding/xml"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/spf13/afero"

	"github.com/charge-telemetry/backend/internal/charge"
	"github.com/charge-telemetry/backend/internal/models"
	"github.com/charge-telemetry/backend/internal/replay"
	"github.com/charge-telemetry/backend/internal/storage"
)

// AppConfig represents the root XML configuration structure
type AppConfig struct {
	XMLName xml.Name `xml:"ChargeTelemetry"`

	// Server configuration
	Server ServerConfig `xml:"Server"`

	// CAN trace and signal database locations
	CANData CANDataConfig `xml:"CANData"`

	// Replay engine tuning
	Replay ReplayConfig `xml:"Replay"`

	// Per-user carbon ledger
	Ledger LedgerConfig `xml:"Ledger"`

	// Advanced options
	Advanced AdvancedConfig `xml:"Advanced"`
}

// ServerConfig contains HTTP server settings
type ServerConfig struct {
	Port         int    `xml:"Port"`
	BindAddress  string `xml:"BindAddress"`
	EnableCORS   bool   `xml:"EnableCORS"`
	AllowOrigins string `xml:"AllowOrigins"`
	ReadTimeout  int    `xml:"ReadTimeoutSeconds"`
	WriteTimeout int    `xml:"WriteTimeoutSeconds"`
	IdleTimeout  int    `xml:"IdleTimeoutSeconds"`
	BodyLimit    string `xml:"BodyLimit"`
}

// CANDataConfig locates the replayable logs and the signal database
type CANDataConfig struct {
	DataDirectory string     `xml:"DataDirectory"`
	DBCFile       string     `xml:"DBCFile"`
	CatalogFile   string     `xml:"CatalogFile,omitempty"`
	DefaultLog    string     `xml:"DefaultLog"`
	Logs          []LogEntry `xml:"Logs>Log"`
}

// LogEntry is one named log in the catalog
type LogEntry struct {
	Name        string `xml:"name,attr"`
	File        string `xml:"file,attr"`
	Description string `xml:"description,attr,omitempty"`
}

// ReplayConfig contains replay engine constants
type ReplayConfig struct {
	SnapshotInterval     int     `xml:"SnapshotInterval"`
	YieldMillis          int     `xml:"YieldMillis"`
	MinEnergyKWh         float64 `xml:"MinEnergyKWh"`
	MaxEnergyKWh         float64 `xml:"MaxEnergyKWh"`
	CarbonFactorKgPerKWh float64 `xml:"CarbonFactorKgPerKWh"`
	PointsPerKgCarbon    float64 `xml:"PointsPerKgCarbon"`
	MaxConcurrentReplays int     `xml:"MaxConcurrentReplays"`
	RateLimitPerSecond   float64 `xml:"RateLimitPerSecond"`
	RateLimitBurst       int     `xml:"RateLimitBurst"`
	SignalDBCacheSize    int     `xml:"SignalDBCacheSize"`
}

// LedgerConfig selects the carbon ledger database
type LedgerConfig struct {
	Driver string `xml:"Driver"`
	DSN    string `xml:"DSN"`
}

// AdvancedConfig contains advanced/tuning options
type AdvancedConfig struct {
	LogLevel             string `xml:"LogLevel"`
	LogFormat            string `xml:"LogFormat"`
	EnableRequestLogging bool   `xml:"EnableRequestLogging"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() *AppConfig {
	return &AppConfig{
		Server: ServerConfig{
			Port:         8089,
			BindAddress:  "0.0.0.0",
			EnableCORS:   true,
			AllowOrigins: "*",
			ReadTimeout:  30,
			WriteTimeout: 0, // streams stay open for the whole replay
			IdleTimeout:  120,
			BodyLimit:    "1M",
		},
		CANData: CANDataConfig{
			DataDirectory: "./data/can",
			DBCFile:       "tesla.dbc",
			DefaultLog:    "charge",
			Logs: []LogEntry{
				{Name: "charge", File: "Model3Log2019-01-13LowTempDriveCharge.asc", Description: "Low temperature drive and AC charge"},
				{Name: "supercharge", File: "Model3Log2019-01-19supercharge.asc", Description: "DC fast charge session"},
				{Name: "supercharge_end", File: "Model3Log2019-01-19superchargeend.asc", Description: "End of a DC fast charge session"},
			},
		},
		Replay: ReplayConfig{
			SnapshotInterval:     1000,
			YieldMillis:          10,
			MinEnergyKWh:         10,
			MaxEnergyKWh:         120,
			CarbonFactorKgPerKWh: 0.494,
			PointsPerKgCarbon:    10,
			MaxConcurrentReplays: 10,
			RateLimitPerSecond:   5,
			RateLimitBurst:       10,
			SignalDBCacheSize:    4,
		},
		Ledger: LedgerConfig{
			Driver: "duckdb",
			DSN:    "./data/ledger.duckdb",
		},
		Advanced: AdvancedConfig{
			LogLevel:             "info",
			LogFormat:            "text",
			EnableRequestLogging: true,
		},
	}
}

// LoadConfig loads configuration from XML file
func LoadConfig(configPath string) (*AppConfig, error) {
	// If file doesn't exist, create default
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		config := DefaultConfig()
		if err := config.Save(configPath); err != nil {
			return nil, fmt.Errorf("failed to create default config: %w", err)
		}
		config.applyEnvironmentOverrides()
		config.resolvePaths(filepath.Dir(configPath))
		return config, nil
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	config.CANData.Logs = nil
	if err := xml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	if len(config.CANData.Logs) == 0 {
		config.CANData.Logs = DefaultConfig().CANData.Logs
	}

	// Apply environment variable overrides
	config.applyEnvironmentOverrides()

	// Resolve relative paths
	config.resolvePaths(filepath.Dir(configPath))

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// Save saves the configuration to XML file
func (c *AppConfig) Save(configPath string) error {
	output, err := xml.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	header := []byte(xml.Header + "\n<!-- Charge Telemetry Configuration -->\n<!-- This file is auto-generated on first run -->\n\n")
	content := append(header, output...)

	if dir := filepath.Dir(configPath); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create config directory: %w", err)
		}
	}
	if err := os.WriteFile(configPath, content, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Validate rejects settings the replay engine cannot run with
func (c *AppConfig) Validate() error {
	r := c.Replay
	switch {
	case r.SnapshotInterval < 1:
		return fmt.Errorf("invalid config: SnapshotInterval must be positive")
	case r.MinEnergyKWh > r.MaxEnergyKWh:
		return fmt.Errorf("invalid config: MinEnergyKWh exceeds MaxEnergyKWh")
	case r.YieldMillis < 0:
		return fmt.Errorf("invalid config: YieldMillis must not be negative")
	}
	if c.Ledger.Driver != "duckdb" && c.Ledger.Driver != "postgres" {
		return fmt.Errorf("invalid config: unsupported ledger driver %q", c.Ledger.Driver)
	}
	return nil
}

// applyEnvironmentOverrides allows environment variables to override config values
func (c *AppConfig) applyEnvironmentOverrides() {
	// PORT override
	if port := os.Getenv("PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			c.Server.Port = p
		}
	}

	// CAN_DATA_DIR override
	if dataDir := os.Getenv("CAN_DATA_DIR"); dataDir != "" {
		c.CANData.DataDirectory = dataDir
	}

	if driver := os.Getenv("LEDGER_DRIVER"); driver != "" {
		c.Ledger.Driver = driver
	}
	if dsn := os.Getenv("LEDGER_DSN"); dsn != "" {
		c.Ledger.DSN = dsn
	}

	if level := os.Getenv("LOG_LEVEL"); level != "" {
		c.Advanced.LogLevel = level
	}
}

// resolvePaths converts relative paths to absolute based on config file location
func (c *AppConfig) resolvePaths(configDir string) {
	if !filepath.IsAbs(c.CANData.DataDirectory) {
		c.CANData.DataDirectory = filepath.Join(configDir, c.CANData.DataDirectory)
	}
	if c.CANData.CatalogFile != "" && !filepath.IsAbs(c.CANData.CatalogFile) {
		c.CANData.CatalogFile = filepath.Join(configDir, c.CANData.CatalogFile)
	}
	// Postgres DSNs are connection strings, not paths
	if c.Ledger.Driver == "duckdb" && c.Ledger.DSN != "" && !filepath.IsAbs(c.Ledger.DSN) {
		c.Ledger.DSN = filepath.Join(configDir, c.Ledger.DSN)
	}
}

// LogResources returns the configured catalog entries
func (c *AppConfig) LogResources() []models.LogResource {
	out := make([]models.LogResource, len(c.CANData.Logs))
	for i, l := range c.CANData.Logs {
		out[i] = models.LogResource{Name: l.Name, File: l.File, Description: l.Description}
	}
	return out
}

// Catalog builds the log catalog on fs. A CatalogFile manifest replaces the inline entries.
func (c *AppConfig) Catalog(fs afero.Fs) (*storage.Catalog, error) {
	logs := c.LogResources()
	if c.CANData.CatalogFile != "" {
		manifest, err := storage.LoadManifest(fs, c.CANData.CatalogFile)
		if err != nil {
			return nil, err
		}
		logs = manifest
	}
	return storage.NewCatalog(fs, c.CANData.DataDirectory, c.CANData.DBCFile, c.CANData.DefaultLog, logs)
}

// Calculator returns the configured conversion constants
func (c *AppConfig) Calculator() charge.Calculator {
	return charge.Calculator{
		CarbonFactorKgPerKWh: c.Replay.CarbonFactorKgPerKWh,
		PointsPerKgCarbon:    c.Replay.PointsPerKgCarbon,
	}
}

// EngineOptions returns the replay engine constants
func (c *AppConfig) EngineOptions() replay.Options {
	return replay.Options{
		SnapshotInterval: uint64(c.Replay.SnapshotInterval),
		Yield:            c.YieldDuration(),
		MinEnergyKWh:     c.Replay.MinEnergyKWh,
		MaxEnergyKWh:     c.Replay.MaxEnergyKWh,
		Calculator:       c.Calculator(),
	}
}

// YieldDuration returns the post-snapshot suspension
func (c *AppConfig) YieldDuration() time.Duration {
	return time.Duration(c.Replay.YieldMillis) * time.Millisecond
}

// GetServerAddr returns the server bind address
func (c *AppConfig) GetServerAddr() string {
	return fmt.Sprintf("%s:%d", c.Server.BindAddress, c.Server.Port)
}

// EnsureDirectories creates all necessary directories
func (c *AppConfig) EnsureDirectories() error {
	dirs := []string{c.CANData.DataDirectory}
	if c.Ledger.Driver == "duckdb" && c.Ledger.DSN != "" {
		dirs = append(dirs, filepath.Dir(c.Ledger.DSN))
	}

	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	return nil
}
