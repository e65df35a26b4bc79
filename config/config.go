package config

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/kilianp07/collabsched/auth"
	"github.com/kilianp07/collabsched/core/metrics"
	"github.com/kilianp07/collabsched/infra/collab"
	"github.com/kilianp07/collabsched/infra/monitoring"
	"github.com/kilianp07/collabsched/infra/mqtt"
)

// EnvPrefix marks environment overrides; COLLAB_API__BASE_URL sets
// api.base_url.
const EnvPrefix = "COLLAB_"

type Config struct {
	API     collab.Config     `json:"api"`
	Auth    auth.Conf         `json:"auth"`
	Session SessionConfig     `json:"session"`
	Upload  UploadConfig      `json:"upload"`
	Logging LoggingConfig     `json:"logging"`
	Metrics metrics.Config    `json:"metrics"`
	Notify  mqtt.Config       `json:"notify"`
	Sentry  monitoring.Config `json:"sentry"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{
		API:     collab.Config{BaseURL: collab.DefaultBaseURL, TimeoutSeconds: 10},
		Session: DefaultSessionConfig(),
		Upload:  DefaultUploadConfig(),
		Logging: LoggingConfig{Level: "info"},
	}
}

// Load reads path (yaml or json) over the defaults, then applies
// environment overrides. An empty path loads defaults and environment only.
func Load(path string) (*Config, error) {
	k := koanf.New(".")
	if path != "" {
		var parser koanf.Parser
		switch ext := strings.ToLower(filepath.Ext(path)); ext {
		case ".yaml", ".yml":
			parser = yaml.Parser()
		case ".json":
			parser = json.Parser()
		default:
			return nil, fmt.Errorf("unsupported config format: %s", ext)
		}
		if err := k.Load(file.Provider(path), parser); err != nil {
			return nil, fmt.Errorf("load %s: %w", path, err)
		}
	}
	if err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		s = strings.TrimPrefix(strings.ToLower(s), strings.ToLower(EnvPrefix))
		return strings.ReplaceAll(s, "__", ".")
	}), nil); err != nil {
		return nil, err
	}

	cfg := Default()
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "json"}); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// SetDefaults fills fields that depend on other settings.
func (c *Config) SetDefaults() {
	c.API.SetDefaults()
	c.Session.SetDefaults()
	c.Upload.SetDefaults()
	c.Logging.SetDefaults()
	if c.Notify.Enabled() {
		c.Notify.SetDefaults()
	}
}

// Validate checks every section.
func (c Config) Validate() error {
	if err := c.API.Validate(); err != nil {
		return err
	}
	if err := c.Auth.Validate(); err != nil {
		return err
	}
	if err := c.Session.Validate(); err != nil {
		return err
	}
	if err := c.Upload.Validate(); err != nil {
		return err
	}
	if err := c.Logging.Validate(); err != nil {
		return err
	}
	return c.Notify.Validate()
}
