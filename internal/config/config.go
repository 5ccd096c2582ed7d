package config

import (
	"os"
	"regexp"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the application configuration
type Config struct {
	Bridge          BridgeConfig      `yaml:"bridge"`
	Store           StoreConfig       `yaml:"store"`
	MQTT            MQTTConfig        `yaml:"mqtt"`
	Healthcheck     HealthcheckConfig `yaml:"healthcheck"`
	Log             LogConfig         `yaml:"log"`
	RateLimitRPS    float64           `yaml:"rate_limit_rps"`   // Bridge command rate limit for daemons and scripts
	ShutdownTimeout Duration          `yaml:"shutdown_timeout"` // General shutdown timeout for graceful stops
}

// BridgeConfig contains bridge connection settings
type BridgeConfig struct {
	Host     string   `yaml:"host"`
	Username string   `yaml:"username"`
	Timeout  Duration `yaml:"timeout"` // HTTP timeout for bridge API requests
}

// StoreConfig contains local store settings
type StoreConfig struct {
	Path              string   `yaml:"path"`
	Retention         Duration `yaml:"retention"`          // How long journal entries are kept
	RetentionInterval Duration `yaml:"retention_interval"` // How often the daemon prunes the journal
}

// MQTTConfig contains MQTT daemon settings
type MQTTConfig struct {
	Broker      string `yaml:"broker"`       // e.g. tcp://127.0.0.1:1883
	TopicPrefix string `yaml:"topic_prefix"` // Subscribes {prefix}/set/..., publishes {prefix}/status/...
	QoS         byte   `yaml:"qos"`
}

// HealthcheckConfig contains health check server settings
type HealthcheckConfig struct {
	Enabled bool   `yaml:"enabled"`
	Host    string `yaml:"host"`
	Port    int    `yaml:"port"`
}

// LogConfig contains logging settings
type LogConfig struct {
	Level  string `yaml:"level"`
	Colors bool   `yaml:"colors"`
	JSON   bool   `yaml:"json"`
}

// Duration is a wrapper around time.Duration for YAML unmarshalling
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler for Duration
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(parsed)
	return nil
}

// Duration returns the underlying time.Duration
func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}

// Default returns the configuration used when no file is present
func Default() *Config {
	cfg := &Config{}
	applyDefaults(cfg)
	return cfg
}

// Load reads and parses the configuration file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	// Expand environment variables
	expanded := expandEnvVars(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, err
	}

	applyDefaults(&cfg)
	return &cfg, nil
}

// LoadOrDefault reads the configuration file if it exists and falls back
// to defaults otherwise. The CLI works from flags alone.
func LoadOrDefault(path string) (*Config, error) {
	cfg, err := Load(path)
	if os.IsNotExist(err) {
		return Default(), nil
	}
	return cfg, err
}

func applyDefaults(cfg *Config) {
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Store.Path == "" {
		cfg.Store.Path = "./huectl.sqlite"
	}
	if cfg.Store.Retention == 0 {
		cfg.Store.Retention = Duration(30 * 24 * time.Hour)
	}
	if cfg.Store.RetentionInterval == 0 {
		cfg.Store.RetentionInterval = Duration(time.Hour)
	}

	// Bridge defaults
	if cfg.Bridge.Timeout == 0 {
		cfg.Bridge.Timeout = Duration(10 * time.Second)
	}

	// MQTT defaults
	if cfg.MQTT.Broker == "" {
		cfg.MQTT.Broker = "tcp://127.0.0.1:1883"
	}
	if cfg.MQTT.TopicPrefix == "" {
		cfg.MQTT.TopicPrefix = "huectl"
	}

	// Healthcheck defaults
	if cfg.Healthcheck.Port == 0 {
		cfg.Healthcheck.Port = 9090
	}
	if cfg.Healthcheck.Host == "" {
		cfg.Healthcheck.Host = "0.0.0.0"
	}

	if cfg.RateLimitRPS == 0 {
		cfg.RateLimitRPS = 10.0 // bridges drop commands past roughly this rate
	}
	if cfg.ShutdownTimeout == 0 {
		cfg.ShutdownTimeout = Duration(5 * time.Second)
	}
}

// expandEnvVars expands environment variables in the format ${VAR} or ${VAR:default}
func expandEnvVars(input string) string {
	// Match ${VAR} or ${VAR:default}
	re := regexp.MustCompile(`\$\{([^}:]+)(?::([^}]*))?\}`)

	return re.ReplaceAllStringFunc(input, func(match string) string {
		parts := re.FindStringSubmatch(match)
		if len(parts) < 2 {
			return match
		}

		varName := parts[1]
		defaultVal := ""
		if len(parts) >= 3 {
			defaultVal = parts[2]
		}

		if val := os.Getenv(varName); val != "" {
			return val
		}
		return defaultVal
	})
}
