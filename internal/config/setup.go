package config

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"
)

// RunSetupWizard guides an operator through first-time configuration.
func RunSetupWizard(cfg *Config) error {
	reader := bufio.NewReader(os.Stdin)

	fmt.Println("╔══════════════════════════════════════════════╗")
	fmt.Println("║         lobbywire - First Run Setup           ║")
	fmt.Println("╚══════════════════════════════════════════════╝")
	fmt.Println()

	fmt.Println("── Listener ──")
	cfg.Server.ListenAddress = promptString(reader, "Listen address", cfg.Server.ListenAddress)
	cfg.Server.ListenPort = promptInt(reader, "Listen port", cfg.Server.ListenPort)
	cfg.Server.IdleTimeoutSec = promptInt(reader, "Idle connection timeout (seconds)", cfg.Server.IdleTimeoutSec)

	fmt.Println()
	fmt.Println("── Diffie-Hellman group ──")
	fmt.Println("  Leave blank to reuse the stored prime, or generate one on first start.")
	cfg.Crypto.PinnedPrimeHex = promptString(reader, "Pinned prime (hex, optional)", cfg.Crypto.PinnedPrimeHex)

	fmt.Println()
	fmt.Println("── Monitor API ──")
	cfg.API.Enabled = promptBool(reader, "Enable the monitor API", cfg.API.Enabled)
	if cfg.API.Enabled {
		cfg.API.ListenAddress = promptString(reader, "Monitor API listen address", cfg.API.ListenAddress)
	}

	fmt.Println()
	fmt.Println("── MQTT Telemetry ──")
	cfg.MQTT.Enabled = promptBool(reader, "Enable MQTT telemetry", cfg.MQTT.Enabled)
	if cfg.MQTT.Enabled {
		cfg.MQTT.BrokerURL = promptString(reader, "MQTT broker URL", cfg.MQTT.BrokerURL)
	}

	result := Validate(cfg)
	if !result.IsValid() {
		fmt.Println("\n⚠ Configuration has errors:")
		for _, e := range result.Errors {
			fmt.Printf("  - [%s] %s\n", e.Field, e.Message)
		}
		retry := promptString(reader, "Would you like to try again? (yes/no)", "yes")
		if strings.ToLower(retry) == "yes" {
			return RunSetupWizard(cfg)
		}
		return fmt.Errorf("configuration validation failed")
	}

	for _, w := range result.Warnings {
		log.Warn().Str("field", w.Field).Msg(w.Message)
	}

	if err := cfg.Save(); err != nil {
		return fmt.Errorf("failed to save configuration: %w", err)
	}

	fmt.Println()
	fmt.Println("✓ Configuration saved successfully!")
	fmt.Println()
	return nil
}

func promptString(reader *bufio.Reader, prompt string, defaultVal string) string {
	if defaultVal != "" {
		fmt.Printf("  %s [%s]: ", prompt, defaultVal)
	} else {
		fmt.Printf("  %s: ", prompt)
	}

	input, _ := reader.ReadString('\n')
	input = strings.TrimSpace(input)

	if input == "" {
		return defaultVal
	}
	return input
}

func promptInt(reader *bufio.Reader, prompt string, defaultVal int) int {
	fmt.Printf("  %s [%d]: ", prompt, defaultVal)

	input, _ := reader.ReadString('\n')
	input = strings.TrimSpace(input)

	if input == "" {
		return defaultVal
	}

	val, err := strconv.Atoi(input)
	if err != nil {
		fmt.Printf("    Invalid number, using default: %d\n", defaultVal)
		return defaultVal
	}
	return val
}

func promptBool(reader *bufio.Reader, prompt string, defaultVal bool) bool {
	defaultStr := "no"
	if defaultVal {
		defaultStr = "yes"
	}

	fmt.Printf("  %s [%s]: ", prompt, defaultStr)

	input, _ := reader.ReadString('\n')
	input = strings.TrimSpace(strings.ToLower(input))

	if input == "" {
		return defaultVal
	}
	return input == "yes" || input == "y" || input == "true" || input == "1"
}
