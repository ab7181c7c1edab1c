// Package config loads labelledshell settings from a YAML file and the
// environment.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	// FileName is the config file looked up when no path is given.
	FileName  = "labelledshell"
	EnvPrefix = "LSHELL"
)

// Engine names.
const (
	EngineLocal   = "local"
	EngineVirtual = "virtual"
	EngineRemote  = "remote"
)

var ErrInvalidConfig = errors.New("invalid config")

type (
	Config struct {
		// Engine picks how steps run: local, virtual or remote.
		Engine string       `mapstructure:"engine"`
		Shell  string       `mapstructure:"shell"`
		Agent  AgentConfig  `mapstructure:"agent"`
		Log    LogConfig    `mapstructure:"log"`
		Ledger LedgerConfig `mapstructure:"ledger"`
		Keys   KeysConfig   `mapstructure:"keys"`
		Step   StepConfig   `mapstructure:"step"`
	}

	AgentConfig struct {
		// URL of the agent used by the remote engine.
		URL string `mapstructure:"url"`
		// Listen is the address `labelledshell agent` binds to.
		Listen string `mapstructure:"listen"`
		ID     string `mapstructure:"id"`
		// PollInterval is how often the remote engine polls for completion.
		PollInterval time.Duration `mapstructure:"poll_interval"`
	}

	LogConfig struct {
		Level string `mapstructure:"level"`
		// Dir receives one build log file per executed step.
		Dir string `mapstructure:"dir"`
	}

	LedgerConfig struct {
		Enabled bool   `mapstructure:"enabled"`
		Path    string `mapstructure:"path"`
	}

	KeysConfig struct {
		Dir string `mapstructure:"dir"`
	}

	StepConfig struct {
		// Timeout bounds a single step; zero means no limit.
		Timeout time.Duration `mapstructure:"timeout"`
		WorkDir string        `mapstructure:"workdir"`
	}
)

// Default returns the built-in settings.
func Default() *Config {
	return &Config{
		Engine: EngineLocal,
		Shell:  "sh",
		Agent: AgentConfig{
			URL:          "http://localhost:9090",
			Listen:       ":9090",
			ID:           "local-agent",
			PollInterval: 500 * time.Millisecond,
		},
		Log:    LogConfig{Level: "info", Dir: "./logs"},
		Ledger: LedgerConfig{Enabled: true, Path: "./ledger.jsonl"},
		Keys:   KeysConfig{Dir: "./keys"},
		Step:   StepConfig{Timeout: 0},
	}
}

// Load reads path, or ./labelledshell.yaml when path is empty, on top of the
// defaults. A missing default file is not an error. LSHELL_* variables
// override file values, e.g. LSHELL_AGENT_URL.
func Load(path string) (*Config, error) {
	v := viper.New()
	d := Default()
	v.SetDefault("engine", d.Engine)
	v.SetDefault("shell", d.Shell)
	v.SetDefault("agent.url", d.Agent.URL)
	v.SetDefault("agent.listen", d.Agent.Listen)
	v.SetDefault("agent.id", d.Agent.ID)
	v.SetDefault("agent.poll_interval", d.Agent.PollInterval)
	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.dir", d.Log.Dir)
	v.SetDefault("ledger.enabled", d.Ledger.Enabled)
	v.SetDefault("ledger.path", d.Ledger.Path)
	v.SetDefault("keys.dir", d.Keys.Dir)
	v.SetDefault("step.timeout", d.Step.Timeout)
	v.SetDefault("step.workdir", d.Step.WorkDir)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetConfigType("yaml")
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	} else {
		v.SetConfigName(FileName)
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("read config: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks values viper cannot.
func (c *Config) Validate() error {
	switch c.Engine {
	case EngineLocal, EngineVirtual:
	case EngineRemote:
		if c.Agent.URL == "" {
			return fmt.Errorf("%w: engine %q needs agent.url", ErrInvalidConfig, c.Engine)
		}
	default:
		return fmt.Errorf("%w: unknown engine %q (want local, virtual or remote)", ErrInvalidConfig, c.Engine)
	}
	if c.Step.Timeout < 0 {
		return fmt.Errorf("%w: step.timeout must not be negative", ErrInvalidConfig)
	}
	if c.Ledger.Enabled && c.Ledger.Path == "" {
		return fmt.Errorf("%w: ledger.path is required when the ledger is enabled", ErrInvalidConfig)
	}
	return nil
}
