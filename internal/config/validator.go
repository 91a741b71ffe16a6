package config

import (
	"encoding/hex"
	"fmt"
	"net"
	"strings"
)

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("config validation error [%s]: %s", e.Field, e.Message)
}

// ValidationResult holds the results of configuration validation.
type ValidationResult struct {
	Errors   []ValidationError
	Warnings []ValidationError
}

// IsValid returns true if there are no validation errors.
func (r *ValidationResult) IsValid() bool {
	return len(r.Errors) == 0
}

// AddError adds a validation error.
func (r *ValidationResult) AddError(field, message string) {
	r.Errors = append(r.Errors, ValidationError{Field: field, Message: message})
}

// AddWarning adds a validation warning.
func (r *ValidationResult) AddWarning(field, message string) {
	r.Warnings = append(r.Warnings, ValidationError{Field: field, Message: message})
}

// Validate performs comprehensive validation of the configuration.
func Validate(cfg *Config) *ValidationResult {
	result := &ValidationResult{}

	validateServer(&cfg.Server, result)
	validateCrypto(&cfg.Crypto, result)
	validateAPI(&cfg.API, result)
	validateMQTT(&cfg.MQTT, result)

	return result
}

func validateServer(s *ServerConfig, result *ValidationResult) {
	validatePort(s.ListenPort, "server.listen_port", result)

	if s.IdleTimeoutSec < 10 {
		result.AddWarning("server.idle_timeout_sec", "idle timeout less than 10 seconds may close slow handshakes")
	}
	if s.IdleCheckInterval < 1 {
		result.AddError("server.idle_check_interval_sec", "must be at least 1 second")
	}
}

func validateCrypto(c *CryptoConfig, result *ValidationResult) {
	if c.PinnedPrimeHex == "" {
		return
	}
	if len(c.PinnedPrimeHex) != DHKeyHexDigits {
		result.AddError("crypto.pinned_prime_hex",
			fmt.Sprintf("pinned prime must be exactly %d hex characters", DHKeyHexDigits))
		return
	}
	if _, err := hex.DecodeString(c.PinnedPrimeHex); err != nil {
		result.AddError("crypto.pinned_prime_hex", "pinned prime is not valid hex")
	}
}

func validateAPI(a *APIConfig, result *ValidationResult) {
	if !a.Enabled {
		return
	}
	if strings.TrimSpace(a.ListenAddress) == "" {
		result.AddError("api.listen_address", "listen address is required when the monitor API is enabled")
	}
}

func validateMQTT(m *MQTTConfig, result *ValidationResult) {
	if !m.Enabled {
		return
	}
	if strings.TrimSpace(m.BrokerURL) == "" {
		result.AddError("mqtt.broker_url", "MQTT broker URL is required when enabled")
	}
	if strings.TrimSpace(m.Topic) == "" {
		result.AddError("mqtt.topic", "MQTT topic is required when enabled")
	}
}

func validatePort(port int, field string, result *ValidationResult) {
	if port < 1 || port > 65535 {
		result.AddError(field, fmt.Sprintf("invalid port number: %d (must be 1-65535)", port))
		return
	}
	if port < 1024 {
		result.AddWarning(field,
			fmt.Sprintf("port %d is a privileged port, may require elevated permissions", port))
	}
}

// IsPortAvailable checks if a port is available for binding.
func IsPortAvailable(port int) bool {
	ln, err := net.Listen("tcp", fmt.Sprintf(":%d", port))
	if err != nil {
		return false
	}
	ln.Close()
	return true
}

// DHKeyHexDigits mirrors crypto.DHKeyHexSize without importing internal/crypto,
// keeping config free of a dependency on the core packages it configures.
const DHKeyHexDigits = 256
