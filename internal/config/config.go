package config

import (
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

const DefaultPath = "/etc/idlebell/config.yaml"

type Config struct {
	HTTP struct {
		Bind string `yaml:"bind" env:"IDLEBELL_HTTP_BIND"`
		Port int    `yaml:"port" env:"IDLEBELL_HTTP_PORT"`
		TLS  struct {
			Enabled bool   `yaml:"enabled" env:"IDLEBELL_TLS_ENABLED"`
			Cert    string `yaml:"cert" env:"IDLEBELL_TLS_CERT"`
			Key     string `yaml:"key" env:"IDLEBELL_TLS_KEY"`
		} `yaml:"tls"`
	} `yaml:"http"`
	Auth struct {
		Enabled       bool     `yaml:"enabled" env:"IDLEBELL_AUTH_ENABLED"`
		JWTPublicKeys []string `yaml:"jwt_public_keys" env:"IDLEBELL_JWT_PUBLIC_KEYS"` // rutas a PEM
		Issuer        string   `yaml:"issuer" env:"IDLEBELL_JWT_ISSUER"`
		Audience      string   `yaml:"audience" env:"IDLEBELL_JWT_AUDIENCE"`
	} `yaml:"auth"`
	Logging struct {
		Level string `yaml:"level" env:"IDLEBELL_LOG_LEVEL"`
		JSON  bool   `yaml:"json" env:"IDLEBELL_LOG_JSON"`
	} `yaml:"logging"`
	// Source is the upstream agent host event stream.
	Source struct {
		URL            string        `yaml:"url" env:"IDLEBELL_SOURCE_URL"` // ws://127.0.0.1:4096/event
		Insecure       bool          `yaml:"insecure" env:"IDLEBELL_SOURCE_INSECURE"`
		Fake           bool          `yaml:"fake" env:"IDLEBELL_SOURCE_FAKE"`
		FakeInterval   time.Duration `yaml:"fake_interval" env:"IDLEBELL_SOURCE_FAKE_INTERVAL"`
		ReconnectDelay time.Duration `yaml:"reconnect_delay" env:"IDLEBELL_SOURCE_RECONNECT_DELAY"`
	} `yaml:"source"`
	Bell struct {
		Mode  string `yaml:"mode" env:"IDLEBELL_BELL_MODE"` // exec | beep
		Shell string `yaml:"shell" env:"IDLEBELL_BELL_SHELL"`
	} `yaml:"bell"`
	Plugins struct {
		Manifest       string        `yaml:"manifest" env:"IDLEBELL_PLUGINS_MANIFEST"`
		HandlerTimeout time.Duration `yaml:"handler_timeout" env:"IDLEBELL_HANDLER_TIMEOUT"`
	} `yaml:"plugins"`
}

// Load reads the YAML file at path, applies IDLEBELL_* environment
// overrides and fills in defaults. A missing file is not an error: the
// defaults and environment alone are a valid configuration.
func Load(path string) (*Config, error) {
	var c Config
	b, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(b, &c); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	case os.IsNotExist(err):
	default:
		return nil, err
	}

	if err := env.Parse(&c); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	c.applyDefaults()
	return &c, nil
}

func (c *Config) applyDefaults() {
	if c.HTTP.Bind == "" {
		c.HTTP.Bind = "127.0.0.1"
	}
	if c.HTTP.Port == 0 {
		c.HTTP.Port = 7477
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Source.FakeInterval == 0 {
		c.Source.FakeInterval = 30 * time.Second
	}
	if c.Source.ReconnectDelay == 0 {
		c.Source.ReconnectDelay = 2 * time.Second
	}
	if c.Bell.Mode == "" {
		c.Bell.Mode = "exec"
	}
	if c.Bell.Shell == "" {
		c.Bell.Shell = "/bin/sh"
	}
	if c.Plugins.Manifest == "" {
		c.Plugins.Manifest = "/etc/idlebell/plugins.json"
	}
}

// Addr is the HTTP listen address.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.HTTP.Bind, c.HTTP.Port)
}
