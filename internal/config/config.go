// Package config loads the responder daemon configuration using viper.
package config

import (
	"errors"
	"fmt"
	"net"
	"net/netip"
	"path/filepath"
	"strings"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/MyuraASM/netcore"
	"github.com/MyuraASM/netcore/internal/log"
)

// EnvPrefix prefixes environment variable overrides, e.g.
// RESPONDER_IDENTITY_ADDR=192.168.0.200.
const EnvPrefix = "RESPONDER"

// Config is the top-level daemon configuration.
type Config struct {
	Interface       string         `mapstructure:"interface" yaml:"interface"`
	Identity        IdentityConfig `mapstructure:"identity" yaml:"identity"`
	Silent          bool           `mapstructure:"silent" yaml:"silent"`
	VerifyChecksums bool           `mapstructure:"verify_checksums" yaml:"verify_checksums"`
	Log             log.Config     `mapstructure:"log" yaml:"log"`
	Metrics         MetricsConfig  `mapstructure:"metrics" yaml:"metrics"`
}

// IdentityConfig holds the local link and network addresses.
type IdentityConfig struct {
	HardwareAddr HardwareAddr `mapstructure:"hardware_addr" yaml:"hardware_addr"`
	Addr         netip.Addr   `mapstructure:"addr" yaml:"addr"`
}

// MetricsConfig configures the Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled" yaml:"enabled"`
	Addr    string `mapstructure:"addr" yaml:"addr"`
	Path    string `mapstructure:"path" yaml:"path"`
}

// HardwareAddr is a net.HardwareAddr which decodes from and encodes to its
// textual form.
type HardwareAddr net.HardwareAddr

// UnmarshalText implements encoding.TextUnmarshaler.
func (a *HardwareAddr) UnmarshalText(text []byte) error {
	if len(text) == 0 {
		*a = nil
		return nil
	}
	mac, err := net.ParseMAC(string(text))
	if err != nil {
		return err
	}
	*a = HardwareAddr(mac)
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (a HardwareAddr) MarshalText() ([]byte, error) {
	if len(a) == 0 {
		return []byte{}, nil
	}
	return []byte(net.HardwareAddr(a).String()), nil
}

// Default returns the configuration used for keys absent from the file and
// the environment.
func Default() Config {
	return Config{
		Interface: "eth0",
		Log: log.Config{
			Level:   "info",
			Format:  log.FormatPattern,
			Pattern: log.DefaultPattern,
			Time:    log.DefaultTime,
			File: log.FileConfig{
				MaxSizeMB:  100,
				MaxBackups: 3,
				MaxAgeDays: 7,
			},
		},
		Metrics: MetricsConfig{
			Addr: ":9105",
			Path: "/metrics",
		},
	}
}

// An Option adjusts the viper instance used by Load.
type Option func(v *viper.Viper) error

// WithFlag binds a command line flag to key.  A flag set on the command line
// takes precedence over the environment and the file.
func WithFlag(key string, f *pflag.Flag) Option {
	return func(v *viper.Viper) error {
		if err := v.BindPFlag(key, f); err != nil {
			return fmt.Errorf("failed to bind flag for %s: %w", key, err)
		}
		return nil
	}
}

// Load reads the configuration file at path, applies environment overrides
// and defaults, and validates the result.  An empty path loads defaults and
// environment overrides only.
func Load(path string, opts ...Option) (*Config, error) {
	v := viper.New()
	setDefaults(v, Default())

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	for _, opt := range opts {
		if err := opt(v); err != nil {
			return nil, err
		}
	}

	if path != "" {
		filename := filepath.Base(path)
		ext := filepath.Ext(filename)
		v.SetConfigName(strings.TrimSuffix(filename, ext))
		v.SetConfigType(strings.TrimPrefix(ext, "."))
		v.AddConfigPath(filepath.Dir(path))

		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
	}

	var cfg Config
	// Addresses decode straight from their textual form.
	hook := viper.DecodeHook(mapstructure.TextUnmarshallerHookFunc())
	if err := v.Unmarshal(&cfg, hook); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// setDefaults registers every key so that environment variables are picked
// up by Unmarshal even when the file omits them.
func setDefaults(v *viper.Viper, d Config) {
	v.SetDefault("interface", d.Interface)
	v.SetDefault("identity.hardware_addr", "")
	v.SetDefault("identity.addr", "")
	v.SetDefault("silent", d.Silent)
	v.SetDefault("verify_checksums", d.VerifyChecksums)
	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.format", d.Log.Format)
	v.SetDefault("log.pattern", d.Log.Pattern)
	v.SetDefault("log.time", d.Log.Time)
	v.SetDefault("log.file.enabled", d.Log.File.Enabled)
	v.SetDefault("log.file.path", d.Log.File.Path)
	v.SetDefault("log.file.max_size_mb", d.Log.File.MaxSizeMB)
	v.SetDefault("log.file.max_backups", d.Log.File.MaxBackups)
	v.SetDefault("log.file.max_age_days", d.Log.File.MaxAgeDays)
	v.SetDefault("log.file.compress", d.Log.File.Compress)
	v.SetDefault("metrics.enabled", d.Metrics.Enabled)
	v.SetDefault("metrics.addr", d.Metrics.Addr)
	v.SetDefault("metrics.path", d.Metrics.Path)
}

// Validate checks that the configuration describes a usable identity.
func (c *Config) Validate() error {
	if c.Interface == "" {
		return errors.New("interface is required")
	}
	if err := c.NetIdentity().Validate(); err != nil {
		return fmt.Errorf("identity: %w", err)
	}
	if c.Metrics.Enabled && c.Metrics.Addr == "" {
		return errors.New("metrics: addr is required when enabled")
	}
	return nil
}

// NetIdentity returns the configured identity.
func (c *Config) NetIdentity() netcore.Identity {
	return netcore.Identity{
		HardwareAddr: net.HardwareAddr(c.Identity.HardwareAddr),
		Addr:         c.Identity.Addr,
	}
}

// Marshal encodes the configuration as YAML.
func (c *Config) Marshal() ([]byte, error) {
	return yaml.Marshal(c)
}
