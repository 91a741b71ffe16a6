// Package config handles configuration loading, validation, and persistence
// for the lobbywire service.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/rs/zerolog/log"
)

const (
	DefaultConfigDir  = "config"
	DefaultConfigFile = "config.json"
	DefaultListenPort = 11032
	DefaultAPIPort    = 5000
)

// Config is the root configuration structure for lobbywire.
type Config struct {
	mu   sync.RWMutex
	path string

	Server      ServerConfig      `json:"server"`
	Crypto      CryptoConfig      `json:"crypto"`
	Logging     LoggingConfig     `json:"logging"`
	API         APIConfig         `json:"api"`
	MQTT        MQTTConfig        `json:"mqtt"`
	Persistence PersistenceConfig `json:"persistence"`
}

// ServerConfig holds the listener and idle-timeout settings for the
// netcore.Server.
type ServerConfig struct {
	ListenAddress     string `json:"listen_address"`
	ListenPort        int    `json:"listen_port"`
	IdleTimeoutSec    int    `json:"idle_timeout_sec"`
	IdleCheckInterval int    `json:"idle_check_interval_sec"`
}

// CryptoConfig holds the Diffie-Hellman group used for the handshake.
// PinnedPrimeHex, when non-empty, is loaded via crypto.LoadParamsHex in
// place of the prime persisted in the database (or a freshly generated one
// when none is stored yet), matching the original's operator-supplied
// <prime> configuration hint.
type CryptoConfig struct {
	PinnedPrimeHex string `json:"pinned_prime_hex"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level      string `json:"level"`
	Directory  string `json:"directory"`
	MaxSizeMB  int    `json:"max_size_mb"`
	MaxBackups int    `json:"max_backups"`
	Console    bool   `json:"console"`
}

// APIConfig holds the monitor API's bind address and CORS settings.
type APIConfig struct {
	Enabled        bool     `json:"enabled"`
	ListenAddress  string   `json:"listen_address"`
	AllowedOrigins []string `json:"allowed_origins"`
}

// MQTTConfig holds MQTT telemetry settings.
type MQTTConfig struct {
	Enabled   bool   `json:"enabled"`
	BrokerURL string `json:"broker_url"`
	ClientID  string `json:"client_id"`
	Topic     string `json:"topic"`
}

// PersistenceConfig holds the SQLite path used for prime/audit persistence.
type PersistenceConfig struct {
	DatabasePath string `json:"database_path"`
}

// DefaultConfig returns a configuration with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			ListenAddress:     "0.0.0.0",
			ListenPort:        DefaultListenPort,
			IdleTimeoutSec:    300,
			IdleCheckInterval: 30,
		},
		Logging: LoggingConfig{
			Level:      "info",
			Directory:  "logs",
			MaxSizeMB:  10,
			MaxBackups: 5,
			Console:    true,
		},
		API: APIConfig{
			Enabled:       true,
			ListenAddress: fmt.Sprintf("127.0.0.1:%d", DefaultAPIPort),
		},
		MQTT: MQTTConfig{
			Enabled:   false,
			BrokerURL: "tcp://localhost:1883",
			ClientID:  "lobbywire",
			Topic:     "lobbywire/events",
		},
		Persistence: PersistenceConfig{
			DatabasePath: "lobbywire.db",
		},
	}
}

// Load reads configuration from a JSON file, writing out defaults if the
// file is missing. An existing file is re-saved after loading so that any
// newly added fields appear in it with their default values.
func Load(configDir string) (*Config, error) {
	configPath := filepath.Join(configDir, DefaultConfigFile)

	data, err := os.ReadFile(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			log.Info().Str("path", configPath).Msg("config file not found, creating default")
			cfg := DefaultConfig()
			cfg.path = configPath
			if saveErr := cfg.Save(); saveErr != nil {
				return nil, fmt.Errorf("failed to save default config: %w", saveErr)
			}
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config file %s: %w", configPath, err)
	}

	cfg := DefaultConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", configPath, err)
	}
	cfg.path = configPath
	log.Info().Str("path", configPath).Msg("configuration loaded")

	if saveErr := cfg.Save(); saveErr != nil {
		log.Warn().Err(saveErr).Msg("failed to re-save config with updated defaults")
	}
	return cfg, nil
}

// Save writes the current configuration to disk.
func (c *Config) Save() error {
	c.mu.RLock()
	defer c.mu.RUnlock()

	dir := filepath.Dir(c.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(c.path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	log.Debug().Str("path", c.path).Msg("configuration saved")
	return nil
}

// GetServer returns a copy of the server configuration.
func (c *Config) GetServer() ServerConfig {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.Server
}

// SetServer updates the server configuration.
func (c *Config) SetServer(s ServerConfig) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Server = s
}

// GetCrypto returns a copy of the crypto configuration.
func (c *Config) GetCrypto() CryptoConfig {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.Crypto
}

// SetPinnedPrimeHex updates the pinned DH prime and persists it, so a
// restart picks up the same group an operator copied from the monitor API.
func (c *Config) SetPinnedPrimeHex(primeHex string) error {
	c.mu.Lock()
	c.Crypto.PinnedPrimeHex = primeHex
	c.mu.Unlock()
	return c.Save()
}

// UpdateField updates a single JSON field within one of the top-level
// sections by name, marshaling to a map and back. It changes the in-memory
// configuration only; the monitor API exposes no route that calls it.
func (c *Config) UpdateField(section string, key string, value interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	var target interface{}
	switch section {
	case "server":
		target = &c.Server
	case "crypto":
		target = &c.Crypto
	case "logging":
		target = &c.Logging
	case "api":
		target = &c.API
	case "mqtt":
		target = &c.MQTT
	case "persistence":
		target = &c.Persistence
	default:
		return fmt.Errorf("unknown config section %q", section)
	}

	data, err := json.Marshal(target)
	if err != nil {
		return err
	}
	m := make(map[string]interface{})
	if err := json.Unmarshal(data, &m); err != nil {
		return err
	}
	m[key] = value

	updated, err := json.Marshal(m)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(updated, target); err != nil {
		return fmt.Errorf("failed to update %s.%s: %w", section, key, err)
	}
	return nil
}

// Path returns the config file path.
func (c *Config) Path() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.path
}
