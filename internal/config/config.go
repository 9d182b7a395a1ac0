// Package config loads runtime settings. Precedence is file over environment
// over defaults; a partial file or environment only overrides what it names.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"time"
)

type Config struct {
	Database *DatabaseConfig `json:"database"`
	HTTP     *HTTPConfig     `json:"http"`
	Gateway  *GatewayConfig  `json:"gateway"`
	TCP      *TCPConfig      `json:"tcp"`
	Profile  *ProfileConfig  `json:"profile"`
}

type DatabaseConfig struct {
	Path    string        `json:"path"`
	Timeout time.Duration `json:"timeout"`
}

// HTTPConfig covers the shared HTTP listener: the websocket gateway endpoint,
// the admin API and the metrics endpoint.
type HTTPConfig struct {
	Port         int           `json:"port"`
	Host         string        `json:"host"`
	ReadTimeout  time.Duration `json:"read_timeout"`
	WriteTimeout time.Duration `json:"write_timeout"`
}

type GatewayConfig struct {
	PingInterval time.Duration `json:"ping_interval"`
	ReadTimeout  time.Duration `json:"read_timeout"`
	WriteTimeout time.Duration `json:"write_timeout"`
}

// TCPConfig covers the binary transport listener.
type TCPConfig struct {
	Port        int           `json:"port"`
	Host        string        `json:"host"`
	ReadTimeout time.Duration `json:"read_timeout"`
}

// ProfileConfig points at the upstream display-name service.
type ProfileConfig struct {
	BaseURL string        `json:"base_url"`
	Timeout time.Duration `json:"timeout"`
}

func DefaultConfig() *Config {
	return &Config{
		Database: &DatabaseConfig{
			Path:    "./axolotlclient.db",
			Timeout: 30 * time.Second,
		},
		HTTP: &HTTPConfig{
			Port:         8080,
			Host:         "0.0.0.0",
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 30 * time.Second,
		},
		Gateway: &GatewayConfig{
			PingInterval: 30 * time.Second,
			ReadTimeout:  60 * time.Second,
			WriteTimeout: 10 * time.Second,
		},
		TCP: &TCPConfig{
			Port:        8081,
			Host:        "0.0.0.0",
			ReadTimeout: 90 * time.Second,
		},
		Profile: &ProfileConfig{
			BaseURL: "https://sessionserver.mojang.com/session/minecraft/profile",
			Timeout: 10 * time.Second,
		},
	}
}

func (c *Config) Validate() error {
	if c.Database == nil || c.Database.Path == "" {
		return fmt.Errorf("database path cannot be empty")
	}
	if c.Database.Timeout <= 0 {
		return fmt.Errorf("database timeout must be positive")
	}
	if c.HTTP == nil {
		return fmt.Errorf("HTTP configuration is required")
	}
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("HTTP port must be between 1 and 65535")
	}
	if c.HTTP.Host == "" {
		return fmt.Errorf("HTTP host cannot be empty")
	}
	if c.HTTP.ReadTimeout <= 0 || c.HTTP.WriteTimeout <= 0 {
		return fmt.Errorf("HTTP timeouts must be positive")
	}
	if c.Gateway == nil {
		return fmt.Errorf("gateway configuration is required")
	}
	if c.Gateway.PingInterval <= 0 {
		return fmt.Errorf("gateway ping interval must be positive")
	}
	if c.Gateway.ReadTimeout <= c.Gateway.PingInterval {
		return fmt.Errorf("gateway read timeout must exceed the ping interval")
	}
	if c.Gateway.WriteTimeout <= 0 {
		return fmt.Errorf("gateway write timeout must be positive")
	}
	if c.TCP == nil {
		return fmt.Errorf("TCP configuration is required")
	}
	if c.TCP.Port <= 0 || c.TCP.Port > 65535 {
		return fmt.Errorf("TCP port must be between 1 and 65535")
	}
	if c.TCP.Port == c.HTTP.Port {
		return fmt.Errorf("TCP port must differ from the HTTP port")
	}
	if c.TCP.ReadTimeout <= 0 {
		return fmt.Errorf("TCP read timeout must be positive")
	}
	if c.Profile == nil || c.Profile.BaseURL == "" {
		return fmt.Errorf("profile base URL cannot be empty")
	}
	if c.Profile.Timeout <= 0 {
		return fmt.Errorf("profile timeout must be positive")
	}
	return nil
}

// LoadFromEnv applies AXOLOTL_* environment overrides on top of the defaults.
// Malformed values fall back silently; Validate catches anything fatal.
func LoadFromEnv() *Config {
	config := DefaultConfig()

	overrideInt(&config.HTTP.Port, "AXOLOTL_HTTP_PORT")
	overrideString(&config.HTTP.Host, "AXOLOTL_HTTP_HOST")
	overrideDuration(&config.HTTP.ReadTimeout, "AXOLOTL_HTTP_READ_TIMEOUT")
	overrideDuration(&config.HTTP.WriteTimeout, "AXOLOTL_HTTP_WRITE_TIMEOUT")

	overrideString(&config.Database.Path, "AXOLOTL_DATABASE_PATH")
	overrideDuration(&config.Database.Timeout, "AXOLOTL_DATABASE_TIMEOUT")

	overrideDuration(&config.Gateway.PingInterval, "AXOLOTL_GATEWAY_PING_INTERVAL")
	overrideDuration(&config.Gateway.ReadTimeout, "AXOLOTL_GATEWAY_READ_TIMEOUT")
	overrideDuration(&config.Gateway.WriteTimeout, "AXOLOTL_GATEWAY_WRITE_TIMEOUT")

	overrideInt(&config.TCP.Port, "AXOLOTL_TCP_PORT")
	overrideString(&config.TCP.Host, "AXOLOTL_TCP_HOST")
	overrideDuration(&config.TCP.ReadTimeout, "AXOLOTL_TCP_READ_TIMEOUT")

	overrideString(&config.Profile.BaseURL, "AXOLOTL_PROFILE_BASE_URL")
	overrideDuration(&config.Profile.Timeout, "AXOLOTL_PROFILE_TIMEOUT")

	return config
}

func overrideString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func overrideInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func overrideDuration(dst *time.Duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			*dst = d
		}
	}
}

// configFile mirrors Config with durations as strings for JSON parsing.
type configFile struct {
	Database *struct {
		Path    string `json:"path"`
		Timeout string `json:"timeout"`
	} `json:"database"`
	HTTP *struct {
		Port         int    `json:"port"`
		Host         string `json:"host"`
		ReadTimeout  string `json:"read_timeout"`
		WriteTimeout string `json:"write_timeout"`
	} `json:"http"`
	Gateway *struct {
		PingInterval string `json:"ping_interval"`
		ReadTimeout  string `json:"read_timeout"`
		WriteTimeout string `json:"write_timeout"`
	} `json:"gateway"`
	TCP *struct {
		Port        int    `json:"port"`
		Host        string `json:"host"`
		ReadTimeout string `json:"read_timeout"`
	} `json:"tcp"`
	Profile *struct {
		BaseURL string `json:"base_url"`
		Timeout string `json:"timeout"`
	} `json:"profile"`
}

// LoadFromFile loads a JSON config on top of the environment-resolved
// settings, so a partial file keeps environment overrides for everything it
// does not name.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file %s: %w", path, err)
	}

	var file configFile
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse config file %s: %w", path, err)
	}

	config := LoadFromEnv()

	if file.Database != nil {
		if file.Database.Path != "" {
			config.Database.Path = file.Database.Path
		}
		mergeDuration(&config.Database.Timeout, file.Database.Timeout)
	}
	if file.HTTP != nil {
		if file.HTTP.Port > 0 {
			config.HTTP.Port = file.HTTP.Port
		}
		if file.HTTP.Host != "" {
			config.HTTP.Host = file.HTTP.Host
		}
		mergeDuration(&config.HTTP.ReadTimeout, file.HTTP.ReadTimeout)
		mergeDuration(&config.HTTP.WriteTimeout, file.HTTP.WriteTimeout)
	}
	if file.Gateway != nil {
		mergeDuration(&config.Gateway.PingInterval, file.Gateway.PingInterval)
		mergeDuration(&config.Gateway.ReadTimeout, file.Gateway.ReadTimeout)
		mergeDuration(&config.Gateway.WriteTimeout, file.Gateway.WriteTimeout)
	}
	if file.TCP != nil {
		if file.TCP.Port > 0 {
			config.TCP.Port = file.TCP.Port
		}
		if file.TCP.Host != "" {
			config.TCP.Host = file.TCP.Host
		}
		mergeDuration(&config.TCP.ReadTimeout, file.TCP.ReadTimeout)
	}
	if file.Profile != nil {
		if file.Profile.BaseURL != "" {
			config.Profile.BaseURL = file.Profile.BaseURL
		}
		mergeDuration(&config.Profile.Timeout, file.Profile.Timeout)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration in %s: %w", path, err)
	}
	return config, nil
}

func mergeDuration(dst *time.Duration, raw string) {
	if raw == "" {
		return
	}
	if d, err := time.ParseDuration(raw); err == nil {
		*dst = d
	}
}

// Load resolves configuration with file > environment > defaults precedence.
// An empty path skips the file layer.
func Load(path string) (*Config, error) {
	if path != "" {
		return LoadFromFile(path)
	}
	config := LoadFromEnv()
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}
