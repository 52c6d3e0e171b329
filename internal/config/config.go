// Package config loads and validates hoarder configuration via Viper.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"reflect"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/JakeFAU/experience-hoarder/internal/code"
)

// EnvPrefix prefixes every environment override, e.g. HOARDER_SWEEP_START.
const EnvPrefix = "HOARDER"

// Config captures all knobs loaded via Viper.
type Config struct {
	Sweep   SweepConfig   `mapstructure:"sweep"`
	Probe   ProbeConfig   `mapstructure:"probe"`
	Server  ServerConfig  `mapstructure:"server"`
	Logging LoggingConfig `mapstructure:"logging"`
	Render  RenderConfig  `mapstructure:"render"`
}

// SweepConfig bounds the code range and window size.
type SweepConfig struct {
	Start       code.Code `mapstructure:"start"`
	End         code.Code `mapstructure:"end"`
	ChunkSize   int       `mapstructure:"chunk_size"`
	MaxInFlight int       `mapstructure:"max_in_flight"`
}

// ProbeConfig configures the lookup service client.
type ProbeConfig struct {
	BaseURL       string        `mapstructure:"base_url"`
	UserAgent     string        `mapstructure:"user_agent"`
	Timeout       time.Duration `mapstructure:"timeout"`
	RatePerSecond float64       `mapstructure:"rate_per_second"`
	Burst         int           `mapstructure:"burst"`
}

// ServerConfig controls the optional status HTTP server.
type ServerConfig struct {
	Enabled bool `mapstructure:"enabled"`
	Port    int  `mapstructure:"port"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool   `mapstructure:"development"`
	Level       string `mapstructure:"level"`
}

// RenderConfig toggles the terminal status table.
type RenderConfig struct {
	Enabled bool `mapstructure:"enabled"`
	Redraw  bool `mapstructure:"redraw"`
}

// flagKeys maps CLI flag names onto config keys.
var flagKeys = map[string]string{
	"start":           "sweep.start",
	"end":             "sweep.end",
	"chunk-size":      "sweep.chunk_size",
	"max-in-flight":   "sweep.max_in_flight",
	"base-url":        "probe.base_url",
	"user-agent":      "probe.user_agent",
	"timeout":         "probe.timeout",
	"rate-per-second": "probe.rate_per_second",
	"burst":           "probe.burst",
	"serve":           "server.enabled",
	"port":            "server.port",
	"dev":             "logging.development",
	"log-level":       "logging.level",
	"render":          "render.enabled",
	"redraw":          "render.redraw",
}

// Load builds a Config from defaults, an optional file, the environment and
// any flags in flags that have a config key. Later sources win.
func Load(path string, flags *pflag.FlagSet) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)
	// Keys without defaults are invisible to AutomaticEnv during Unmarshal.
	for _, key := range []string{"sweep.start", "probe.base_url"} {
		if err := v.BindEnv(key); err != nil {
			return Config{}, fmt.Errorf("bind env %s: %w", key, err)
		}
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	if flags != nil {
		for name, key := range flagKeys {
			if f := flags.Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return Config{}, fmt.Errorf("bind flag %s: %w", name, err)
				}
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg, viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		CodeHookFunc(),
		mapstructure.StringToTimeDurationHookFunc(),
	))); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("sweep.end", "AAA")
	v.SetDefault("sweep.chunk_size", 9)
	v.SetDefault("sweep.max_in_flight", 0)
	v.SetDefault("probe.user_agent", "experience-hoarder/0.1")
	v.SetDefault("probe.timeout", "10s")
	v.SetDefault("probe.rate_per_second", 0)
	v.SetDefault("probe.burst", 1)
	v.SetDefault("server.enabled", false)
	v.SetDefault("server.port", 8080)
	v.SetDefault("logging.development", true)
	v.SetDefault("logging.level", "")
	v.SetDefault("render.enabled", false)
	v.SetDefault("render.redraw", true)
}

// CodeHookFunc decodes text into code.Code. Empty text is left as the zero
// Code; non-text input such as a bare YAML number fails with
// code.ErrTypeMismatch.
func CodeHookFunc() mapstructure.DecodeHookFuncType {
	target := reflect.TypeOf(code.Code{})
	return func(_ reflect.Type, to reflect.Type, data any) (any, error) {
		if to != target {
			return data, nil
		}
		if s, ok := data.(string); ok && strings.TrimSpace(s) == "" {
			return code.Code{}, nil
		}
		c, err := code.FromValue(data)
		if err != nil {
			return nil, err
		}
		return c, nil
	}
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	var errs []error
	// An unset start decodes to AAA, so start == end is rejected as well.
	if c.Sweep.Start.Compare(c.Sweep.End) <= 0 {
		errs = append(errs, fmt.Errorf("sweep.start %s must be above sweep.end %s", c.Sweep.Start, c.Sweep.End))
	}
	if c.Sweep.ChunkSize <= 0 {
		errs = append(errs, errors.New("sweep.chunk_size must be > 0"))
	}
	if c.Sweep.MaxInFlight < 0 {
		errs = append(errs, errors.New("sweep.max_in_flight must be >= 0"))
	}
	if c.Probe.BaseURL == "" {
		errs = append(errs, errors.New("probe.base_url is required"))
	} else if u, err := url.Parse(c.Probe.BaseURL); err != nil || !u.IsAbs() || u.Host == "" {
		errs = append(errs, fmt.Errorf("probe.base_url %q must be an absolute URL", c.Probe.BaseURL))
	}
	if c.Probe.Timeout <= 0 {
		errs = append(errs, errors.New("probe.timeout must be > 0"))
	}
	if c.Probe.RatePerSecond < 0 {
		errs = append(errs, errors.New("probe.rate_per_second must be >= 0"))
	}
	if c.Server.Enabled && (c.Server.Port <= 0 || c.Server.Port > 65535) {
		errs = append(errs, errors.New("server.port must be in 1..65535"))
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}
