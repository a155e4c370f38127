// Package config loads kernel settings from a YAML file, the environment and
// in-code defaults, in increasing order of precedence: defaults, file, env.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes environment overrides, e.g. NOTEBOOK_CANCEL_FILE.
const EnvPrefix = "NOTEBOOK"

// Config is the resolved kernel configuration.
type Config struct {
	Roots      []string         `mapstructure:"roots"`
	Cancel     CancelConfig     `mapstructure:"cancel"`
	Supervisor SupervisorConfig `mapstructure:"supervisor"`
	Shutdown   ShutdownConfig   `mapstructure:"shutdown"`
	Workers    WorkersConfig    `mapstructure:"workers"`
	HTTP       HTTPConfig       `mapstructure:"http"`
	Log        LogConfig        `mapstructure:"log"`
	Build      BuildConfig      `mapstructure:"build"`
}

// CancelConfig locates the cancellation signals. Empty values disable them.
type CancelConfig struct {
	File  string      `mapstructure:"file"`
	Redis RedisConfig `mapstructure:"redis"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	Key      string `mapstructure:"key"`
}

type SupervisorConfig struct {
	Delay  time.Duration `mapstructure:"delay"`
	Period time.Duration `mapstructure:"period"`
}

type ShutdownConfig struct {
	Grace time.Duration `mapstructure:"grace"`
}

type WorkersConfig struct {
	Max int `mapstructure:"max"`
}

// HTTPConfig enables the introspection endpoint when Addr is set.
type HTTPConfig struct {
	Addr string `mapstructure:"addr"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
}

// BuildConfig controls how plugin sources are compiled.
type BuildConfig struct {
	Dir   string `mapstructure:"dir"`
	GoBin string `mapstructure:"gobin"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("roots", []string{"units"})
	v.SetDefault("cancel.file", "cancel.signal")
	v.SetDefault("cancel.redis.addr", "")
	v.SetDefault("cancel.redis.password", "")
	v.SetDefault("cancel.redis.db", 0)
	v.SetDefault("cancel.redis.key", "notebook:cancel")
	v.SetDefault("supervisor.delay", "1s")
	v.SetDefault("supervisor.period", "1s")
	v.SetDefault("shutdown.grace", "5s")
	v.SetDefault("workers.max", 64)
	v.SetDefault("http.addr", "")
	v.SetDefault("log.level", "info")
	v.SetDefault("build.dir", "")
	v.SetDefault("build.gobin", "go")
}

// Load resolves the configuration. An empty path skips the file; a path that
// does not exist is an error.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}
	return decode(v.AllSettings())
}

func decode(settings map[string]any) (*Config, error) {
	var cfg Config
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		),
		WeaklyTypedInput: true,
		Result:           &cfg,
	})
	if err != nil {
		return nil, fmt.Errorf("config decoder: %w", err)
	}
	if err := dec.Decode(settings); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects settings the kernel cannot run with.
func (c *Config) Validate() error {
	var errs []error
	if c.Supervisor.Period <= 0 {
		errs = append(errs, fmt.Errorf("supervisor.period must be positive, got %s", c.Supervisor.Period))
	}
	if c.Supervisor.Delay < 0 {
		errs = append(errs, fmt.Errorf("supervisor.delay must not be negative, got %s", c.Supervisor.Delay))
	}
	if c.Shutdown.Grace < 0 {
		errs = append(errs, fmt.Errorf("shutdown.grace must not be negative, got %s", c.Shutdown.Grace))
	}
	if c.Workers.Max <= 0 {
		errs = append(errs, fmt.Errorf("workers.max must be positive, got %d", c.Workers.Max))
	}
	if c.Cancel.Redis.Addr != "" && c.Cancel.Redis.Key == "" {
		errs = append(errs, errors.New("cancel.redis.key is required with cancel.redis.addr"))
	}
	return errors.Join(errs...)
}
