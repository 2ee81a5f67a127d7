// Package config loads and saves logbuf configuration files.
package config

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ssargent/logbuf/pkg/printk"
	"github.com/ssargent/logbuf/pkg/source"
	"gopkg.in/yaml.v3"
)

// Config represents the logbuf configuration
type Config struct {
	Decoder Decoder `yaml:"decoder"`
	Store   Store   `yaml:"store"`
	Output  Output  `yaml:"output"`
	Server  Server  `yaml:"server"`
	Archive Archive `yaml:"archive"`
	Logging Logging `yaml:"logging"`
}

// Decoder contains capture decoding options
type Decoder struct {
	ByteOrder     string `yaml:"byte_order"`      // little or big, from the capture's provenance
	MaxRecordSize int    `yaml:"max_record_size"` // 0 disables the limit
	Compression   string `yaml:"compression"`     // auto, none, gzip, zstd, lz4, snappy or brotli
}

// Store contains record store options
type Store struct {
	Capacity int `yaml:"capacity"` // 0 means unbounded
}

// Output contains rendering options
type Output struct {
	Format       string `yaml:"format"`
	AllowCorrupt bool   `yaml:"allow_corrupt"`
}

// Server contains HTTP server options
type Server struct {
	Bind   string `yaml:"bind"`
	Port   int    `yaml:"port"`
	APIKey string `yaml:"api_key"`
}

// Archive contains archive options
type Archive struct {
	Dir string `yaml:"dir"`
}

// Logging contains logging configuration
type Logging struct {
	Level string `yaml:"level"`
}

var (
	validFormats   = []string{"text", "dmesg", "dmesg-x", "json", "cbor"}
	validLogLevels = []string{"debug", "info", "warn", "error", "off"}
)

// DefaultConfig returns a default configuration
func DefaultConfig() *Config {
	return &Config{
		Decoder: Decoder{
			ByteOrder:     "little",
			MaxRecordSize: printk.DefaultMaxRecordSize,
			Compression:   "auto",
		},
		Store: Store{
			Capacity: 0,
		},
		Output: Output{
			Format: "text",
		},
		Server: Server{
			Bind: "127.0.0.1",
			Port: 8080,
		},
		Archive: Archive{
			Dir: "./archive",
		},
		Logging: Logging{
			Level: "info",
		},
	}
}

// Validate checks that every option has a usable value
func (c *Config) Validate() error {
	if _, err := printk.ParseByteOrder(c.Decoder.ByteOrder); err != nil {
		return fmt.Errorf("decoder.byte_order: %w", err)
	}
	if c.Decoder.MaxRecordSize < 0 {
		return fmt.Errorf("decoder.max_record_size must not be negative: %d", c.Decoder.MaxRecordSize)
	}
	if _, err := source.ParseCompression(c.Decoder.Compression); err != nil {
		return fmt.Errorf("decoder.compression: %w", err)
	}
	if c.Store.Capacity < 0 {
		return fmt.Errorf("store.capacity must not be negative: %d", c.Store.Capacity)
	}
	if !contains(validFormats, c.Output.Format) {
		return fmt.Errorf("output.format %q is not one of %s", c.Output.Format, strings.Join(validFormats, ", "))
	}
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port out of range: %d", c.Server.Port)
	}
	if !contains(validLogLevels, c.Logging.Level) {
		return fmt.Errorf("logging.level %q is not one of %s", c.Logging.Level, strings.Join(validLogLevels, ", "))
	}
	return nil
}

// ByteOrder returns the parsed decoder byte order
func (c *Config) ByteOrder() printk.ByteOrder {
	order, _ := printk.ParseByteOrder(c.Decoder.ByteOrder)
	return order
}

// Compression returns the parsed capture compression
func (c *Config) Compression() source.Compression {
	comp, _ := source.ParseCompression(c.Decoder.Compression)
	return comp
}

func contains(values []string, v string) bool {
	for _, candidate := range values {
		if strings.EqualFold(candidate, v) {
			return true
		}
	}
	return false
}

// LoadConfig loads configuration from the specified path. Fields missing
// from the file keep their default values.
func LoadConfig(configPath string) (*Config, error) {
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("config file does not exist: %s", configPath)
	}

	if !filepath.IsAbs(configPath) {
		absPath, err := filepath.Abs(configPath)
		if err != nil {
			return nil, fmt.Errorf("invalid config path: %w", err)
		}
		configPath = absPath
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config file: %w", err)
	}

	return config, nil
}

// SaveConfig saves the configuration to the specified path with secure permissions
func SaveConfig(config *Config, configPath string) error {
	configDir := filepath.Dir(configPath)
	if err := os.MkdirAll(configDir, 0750); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(config)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	// The file may hold the API key
	if err := os.WriteFile(configPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// GenerateSecureKey generates a cryptographically secure random key
func GenerateSecureKey(length int) (string, error) {
	bytes := make([]byte, length)
	if _, err := rand.Read(bytes); err != nil {
		return "", fmt.Errorf("failed to generate secure key: %w", err)
	}
	return hex.EncodeToString(bytes), nil
}

// BootstrapConfig writes a default configuration with a generated API key
func BootstrapConfig(configPath string, archiveDir string) (*Config, error) {
	config := DefaultConfig()
	if archiveDir != "" {
		config.Archive.Dir = archiveDir
	}

	apiKey, err := GenerateSecureKey(32)
	if err != nil {
		return nil, fmt.Errorf("failed to generate API key: %w", err)
	}
	config.Server.APIKey = apiKey

	if err := SaveConfig(config, configPath); err != nil {
		return nil, fmt.Errorf("failed to save bootstrap config: %w", err)
	}

	return config, nil
}

// GetDefaultConfigPath returns the default configuration path for the current platform
func GetDefaultConfigPath() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "./logbuf.yaml"
	}

	// For Linux/macOS, use ~/.config/logbuf/config.yaml
	configDir := filepath.Join(homeDir, ".config", "logbuf")
	return filepath.Join(configDir, "config.yaml")
}

// ConfigExists checks if a configuration file exists
func ConfigExists(configPath string) bool {
	_, err := os.Stat(configPath)
	return !os.IsNotExist(err)
}
