package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/eric2969/OR2025-Final/core/metrics"
	"github.com/eric2969/OR2025-Final/core/model"
	"github.com/eric2969/OR2025-Final/core/runlog"
	"github.com/eric2969/OR2025-Final/infra/mqtt"
)

// EnvPrefix marks environment overrides, e.g. REBAL_SOLVER__BATCH_SIZE=6.
const EnvPrefix = "REBAL_"

type Config struct {
	Model   model.Params   `json:"model"`
	Solver  SolverConfig   `json:"solver"`
	Input   InputConfig    `json:"input"`
	Output  OutputConfig   `json:"output"`
	Metrics metrics.Config `json:"metrics"`
	RunLog  runlog.Config  `json:"run_log"`
	MQTT    mqtt.Config    `json:"mqtt"`
	Sentry  SentryConfig   `json:"sentry"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	cfg := &Config{Model: model.DefaultParams()}
	cfg.SetDefaults()
	return cfg
}

// SetDefaults fills every empty section.
func (c *Config) SetDefaults() {
	c.Solver.SetDefaults()
	c.Output.SetDefaults()
	c.RunLog.SetDefaults()
	c.MQTT.SetDefaults()
}

// Validate checks every section and reports all problems at once.
func (c *Config) Validate() error {
	var errs []error
	if err := c.Model.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("model: %w", err))
	}
	for name, v := range map[string]interface{ Validate() error }{
		"solver":  c.Solver,
		"output":  c.Output,
		"metrics": c.Metrics,
		"run_log": c.RunLog,
		"mqtt":    c.MQTT,
		"sentry":  c.Sentry,
	} {
		if err := v.Validate(); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", name, err))
		}
	}
	return errors.Join(errs...)
}

// Load reads path on top of the defaults and applies REBAL_ environment
// overrides. An empty path loads the environment only.
func Load(path string) (*Config, error) {
	k := koanf.New(".")
	if path != "" {
		ext := strings.ToLower(filepath.Ext(path))
		var parser koanf.Parser
		switch ext {
		case ".yaml", ".yml":
			parser = yaml.Parser()
		case ".json":
			parser = json.Parser()
		default:
			return nil, fmt.Errorf("unsupported config format: %s", ext)
		}
		if err := k.Load(file.Provider(path), parser); err != nil {
			return nil, err
		}
	}
	if err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		s = strings.TrimPrefix(strings.ToLower(s), strings.ToLower(EnvPrefix))
		return strings.ReplaceAll(s, "__", ".")
	}), nil); err != nil {
		return nil, err
	}

	cfg := &Config{Model: model.DefaultParams()}
	if err := k.UnmarshalWithConf("", cfg, koanf.UnmarshalConf{Tag: "json"}); err != nil {
		return nil, err
	}
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
