package config

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"github.com/subosito/gotenv"
)

const (
	AppDir     = "gestation"
	configName = "config"
	configType = "toml"
	envPrefix  = "GESTATION"

	ModeDirect  = "direct"
	ModeManaged = "managed"

	DriverJSON   = "json"
	DriverSQLite = "sqlite"
)

var ErrInvalidConfig = errors.New("invalid config")

type Config struct {
	Transport TransportConfig `mapstructure:"transport"`
	Discovery DiscoveryConfig `mapstructure:"discovery"`
	Metadata  MetadataConfig  `mapstructure:"metadata"`
	Broadcast BroadcastConfig `mapstructure:"broadcast"`
	Store     StoreConfig     `mapstructure:"store"`
	API       APIConfig       `mapstructure:"api"`
}

type TransportConfig struct {
	Mode   string        `mapstructure:"mode"`
	Host   string        `mapstructure:"host"`
	Port   int           `mapstructure:"port"`
	Remote string        `mapstructure:"remote"`
	Warmup time.Duration `mapstructure:"warmup"`
}

type DiscoveryConfig struct {
	Enabled       bool          `mapstructure:"enabled"`
	Interval      time.Duration `mapstructure:"interval"`
	ClientPattern string        `mapstructure:"client_pattern"`
	ServiceName   string        `mapstructure:"service_name"`
}

type MetadataConfig struct {
	URL           string        `mapstructure:"url"`
	Timeout       time.Duration `mapstructure:"timeout"`
	TTL           time.Duration `mapstructure:"ttl"`
	ClearDebounce time.Duration `mapstructure:"clear_debounce"`
	Workers       int           `mapstructure:"workers"`
}

type BroadcastConfig struct {
	Interval time.Duration `mapstructure:"interval"`
}

type StoreConfig struct {
	Driver string `mapstructure:"driver"`
	Path   string `mapstructure:"path"`
}

type APIConfig struct {
	Enabled     bool     `mapstructure:"enabled"`
	Addr        string   `mapstructure:"addr"`
	CORSOrigins []string `mapstructure:"cors_origins"`
}

// defaults lists every key with its default; it is also the set of keys
// that environment variables may override.
var defaults = []struct {
	key   string
	value any
}{
	{"transport.mode", ModeDirect},
	{"transport.host", "127.0.0.1"},
	{"transport.port", 9001},
	{"transport.remote", "127.0.0.1:9000"},
	{"transport.warmup", 5 * time.Second},
	{"discovery.enabled", true},
	{"discovery.interval", 2 * time.Second},
	{"discovery.client_pattern", "VRChat-Client-*"},
	{"discovery.service_name", "Gestation OSC"},
	{"metadata.url", ""},
	{"metadata.timeout", 3 * time.Second},
	{"metadata.ttl", 5 * time.Second},
	{"metadata.clear_debounce", 500 * time.Millisecond},
	{"metadata.workers", 4},
	{"broadcast.interval", 5 * time.Second},
	{"store.driver", DriverJSON},
	{"store.path", ""},
	{"api.enabled", true},
	{"api.addr", "127.0.0.1:9050"},
	{"api.cors_origins", []string{}},
}

// FlagKeys maps command-line flag names onto config keys.
var FlagKeys = map[string]string{
	"mode":               "transport.mode",
	"host":               "transport.host",
	"port":               "transport.port",
	"remote":             "transport.remote",
	"discovery":          "discovery.enabled",
	"metadata-url":       "metadata.url",
	"store":              "store.driver",
	"store-path":         "store.path",
	"api":                "api.enabled",
	"api-addr":           "api.addr",
	"broadcast-interval": "broadcast.interval",
}

type LoadOptions struct {
	// ConfigFile is an explicit config path; it must exist when set.
	ConfigFile string
	// ConfigDir is searched for config.toml when ConfigFile is empty.
	ConfigDir string
	// EnvFile is a dotenv file; a missing file is ignored.
	EnvFile string
	Flags   *pflag.FlagSet
	Getenv  func(string) (string, bool)
}

// Load layers defaults, the TOML file, the dotenv file, the environment and
// changed flags, in increasing precedence.
func Load(opts LoadOptions) (Config, error) {
	v := viper.New()
	for _, d := range defaults {
		v.SetDefault(d.key, d.value)
	}

	if err := readConfigFile(v, opts); err != nil {
		return Config{}, err
	}

	lookup, err := envLookup(opts)
	if err != nil {
		return Config{}, err
	}
	applyEnv(v, lookup)

	if opts.Flags != nil {
		opts.Flags.Visit(func(f *pflag.Flag) {
			if key, ok := FlagKeys[f.Name]; ok {
				v.Set(key, f.Value.String())
			}
		})
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}

	cfg.Transport.Mode = strings.ToLower(strings.TrimSpace(cfg.Transport.Mode))
	cfg.Store.Driver = strings.ToLower(strings.TrimSpace(cfg.Store.Driver))
	if cfg.Store.Path == "" {
		dir, err := configDir(opts)
		if err != nil {
			return Config{}, err
		}
		cfg.Store.Path = DefaultStorePath(dir, cfg.Store.Driver)
	}

	if err := Validate(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func readConfigFile(v *viper.Viper, opts LoadOptions) error {
	v.SetConfigType(configType)
	if opts.ConfigFile != "" {
		v.SetConfigFile(opts.ConfigFile)
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("read config file %s: %w", opts.ConfigFile, err)
		}
		return nil
	}

	dir, err := configDir(opts)
	if err != nil {
		return err
	}
	v.SetConfigName(configName)
	v.AddConfigPath(dir)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return fmt.Errorf("read config file: %w", err)
		}
	}
	return nil
}

func envLookup(opts LoadOptions) (func(string) (string, bool), error) {
	lookup := opts.Getenv
	if lookup == nil {
		lookup = os.LookupEnv
	}

	envFile := opts.EnvFile
	if envFile == "" {
		envFile = ".env"
	}
	dotenv, err := gotenv.Read(envFile)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return lookup, nil
		}
		return nil, fmt.Errorf("read env file %s: %w", envFile, err)
	}

	return func(key string) (string, bool) {
		if value, ok := lookup(key); ok {
			return value, true
		}
		value, ok := dotenv[key]
		return value, ok
	}, nil
}

// applyEnv honours the legacy PORT and OSCQuery variables, then GESTATION_*.
func applyEnv(v *viper.Viper, lookup func(string) (string, bool)) {
	if port, ok := lookup("PORT"); ok && strings.TrimSpace(port) != "" {
		v.Set("transport.port", strings.TrimSpace(port))
	}
	if raw, ok := lookup("OSCQuery"); ok {
		if enabled, err := strconv.ParseBool(strings.TrimSpace(raw)); err == nil {
			if enabled {
				v.Set("transport.mode", ModeManaged)
			} else {
				v.Set("transport.mode", ModeDirect)
			}
		}
	}

	replacer := strings.NewReplacer(".", "_")
	for _, d := range defaults {
		name := envPrefix + "_" + strings.ToUpper(replacer.Replace(d.key))
		if value, ok := lookup(name); ok {
			v.Set(d.key, value)
		}
	}
}

func Validate(cfg Config) error {
	switch cfg.Transport.Mode {
	case ModeDirect, ModeManaged:
	default:
		return fmt.Errorf("%w: transport.mode must be %q or %q, got %q", ErrInvalidConfig, ModeDirect, ModeManaged, cfg.Transport.Mode)
	}
	if cfg.Transport.Port < 0 || cfg.Transport.Port > 65535 {
		return fmt.Errorf("%w: transport.port %d out of range", ErrInvalidConfig, cfg.Transport.Port)
	}
	if strings.TrimSpace(cfg.Transport.Remote) != "" {
		if err := validateHostPort(cfg.Transport.Remote); err != nil {
			return fmt.Errorf("%w: transport.remote: %w", ErrInvalidConfig, err)
		}
	}
	if cfg.Transport.Warmup < 0 {
		return fmt.Errorf("%w: transport.warmup must not be negative", ErrInvalidConfig)
	}

	if cfg.Discovery.Enabled && cfg.Discovery.Interval <= 0 {
		return fmt.Errorf("%w: discovery.interval must be positive", ErrInvalidConfig)
	}

	if raw := strings.TrimSpace(cfg.Metadata.URL); raw != "" {
		u, err := url.Parse(raw)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return fmt.Errorf("%w: metadata.url must be an http(s) base url, got %q", ErrInvalidConfig, raw)
		}
	}
	if cfg.Metadata.TTL <= 0 || cfg.Metadata.Timeout <= 0 {
		return fmt.Errorf("%w: metadata.ttl and metadata.timeout must be positive", ErrInvalidConfig)
	}
	if cfg.Metadata.ClearDebounce < 0 || cfg.Metadata.Workers < 0 {
		return fmt.Errorf("%w: metadata.clear_debounce and metadata.workers must not be negative", ErrInvalidConfig)
	}

	if cfg.Broadcast.Interval <= 0 {
		return fmt.Errorf("%w: broadcast.interval must be positive", ErrInvalidConfig)
	}

	switch cfg.Store.Driver {
	case DriverJSON, DriverSQLite:
	default:
		return fmt.Errorf("%w: store.driver must be %q or %q, got %q", ErrInvalidConfig, DriverJSON, DriverSQLite, cfg.Store.Driver)
	}
	if strings.TrimSpace(cfg.Store.Path) == "" {
		return fmt.Errorf("%w: store.path is empty", ErrInvalidConfig)
	}

	if cfg.API.Enabled {
		if err := validateHostPort(cfg.API.Addr); err != nil {
			return fmt.Errorf("%w: api.addr: %w", ErrInvalidConfig, err)
		}
	}
	return nil
}

func validateHostPort(raw string) error {
	_, port, err := net.SplitHostPort(strings.TrimSpace(raw))
	if err != nil {
		return err
	}
	n, err := strconv.Atoi(port)
	if err != nil || n < 0 || n > 65535 {
		return fmt.Errorf("invalid port %q", port)
	}
	return nil
}

// DefaultDir is the per-user config directory.
func DefaultDir() (string, error) {
	base, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("resolve config directory: %w", err)
	}
	return filepath.Join(base, AppDir), nil
}

func DefaultStorePath(dir, driver string) string {
	if driver == DriverSQLite {
		return filepath.Join(dir, "save.db")
	}
	return filepath.Join(dir, "save.json")
}

func configDir(opts LoadOptions) (string, error) {
	if opts.ConfigDir != "" {
		return opts.ConfigDir, nil
	}
	return DefaultDir()
}
