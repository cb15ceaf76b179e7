package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func envMap(values map[string]string) func(string) (string, bool) {
	return func(key string) (string, bool) {
		v, ok := values[key]
		return v, ok
	}
}

func baseOptions(t *testing.T) LoadOptions {
	t.Helper()
	dir := t.TempDir()
	return LoadOptions{
		ConfigDir: dir,
		EnvFile:   filepath.Join(dir, "missing.env"),
		Getenv:    envMap(nil),
	}
}

func TestLoadDefaults(t *testing.T) {
	opts := baseOptions(t)

	cfg, err := Load(opts)
	require.NoError(t, err)
	assert.Equal(t, ModeDirect, cfg.Transport.Mode)
	assert.Equal(t, 9001, cfg.Transport.Port)
	assert.Equal(t, "127.0.0.1:9000", cfg.Transport.Remote)
	assert.Equal(t, 5*time.Second, cfg.Transport.Warmup)
	assert.True(t, cfg.Discovery.Enabled)
	assert.Empty(t, cfg.Metadata.URL)
	assert.Equal(t, 5*time.Second, cfg.Metadata.TTL)
	assert.Equal(t, 500*time.Millisecond, cfg.Metadata.ClearDebounce)
	assert.Equal(t, 5*time.Second, cfg.Broadcast.Interval)
	assert.Equal(t, DriverJSON, cfg.Store.Driver)
	assert.Equal(t, filepath.Join(opts.ConfigDir, "save.json"), cfg.Store.Path)
	assert.True(t, cfg.API.Enabled)
}

func TestLoadLayersFileEnvAndFlags(t *testing.T) {
	opts := baseOptions(t)
	require.NoError(t, os.WriteFile(DefaultFile(opts.ConfigDir), []byte(`
[transport]
mode = "managed"
port = 9100

[store]
driver = "sqlite"

[api]
cors_origins = ["http://localhost:3000"]
`), 0o600))

	opts.Getenv = envMap(map[string]string{
		"GESTATION_TRANSPORT_PORT": "9200",
		"GESTATION_METADATA_TTL":   "10s",
	})
	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.String("host", "", "")
	flags.String("remote", "", "")
	require.NoError(t, flags.Parse([]string{"--host", "0.0.0.0"}))
	opts.Flags = flags

	cfg, err := Load(opts)
	require.NoError(t, err)
	assert.Equal(t, ModeManaged, cfg.Transport.Mode)
	assert.Equal(t, 9200, cfg.Transport.Port)
	assert.Equal(t, "0.0.0.0", cfg.Transport.Host)
	assert.Equal(t, "127.0.0.1:9000", cfg.Transport.Remote)
	assert.Equal(t, 10*time.Second, cfg.Metadata.TTL)
	assert.Equal(t, DriverSQLite, cfg.Store.Driver)
	assert.Equal(t, filepath.Join(opts.ConfigDir, "save.db"), cfg.Store.Path)
	assert.Equal(t, []string{"http://localhost:3000"}, cfg.API.CORSOrigins)
}

func TestLoadLegacyEnvAndDotenv(t *testing.T) {
	opts := baseOptions(t)
	opts.EnvFile = filepath.Join(opts.ConfigDir, ".env")
	require.NoError(t, os.WriteFile(opts.EnvFile, []byte("PORT=9300\nOSCQuery=true\nGESTATION_STORE_PATH=/tmp/from-dotenv.json\n"), 0o600))
	opts.Getenv = envMap(map[string]string{"GESTATION_STORE_PATH": "/tmp/from-env.json"})

	cfg, err := Load(opts)
	require.NoError(t, err)
	assert.Equal(t, 9300, cfg.Transport.Port)
	assert.Equal(t, ModeManaged, cfg.Transport.Mode)
	assert.Equal(t, "/tmp/from-env.json", cfg.Store.Path)
}

func TestLegacyOSCQueryFalseKeepsDirectDiscovery(t *testing.T) {
	opts := baseOptions(t)
	require.NoError(t, os.WriteFile(DefaultFile(opts.ConfigDir), []byte("[transport]\nmode = \"managed\"\n"), 0o600))
	opts.Getenv = envMap(map[string]string{"OSCQuery": "false"})

	cfg, err := Load(opts)
	require.NoError(t, err)
	assert.Equal(t, ModeDirect, cfg.Transport.Mode)
	assert.True(t, cfg.Discovery.Enabled)
}

func TestLoadExplicitFileMustExist(t *testing.T) {
	opts := baseOptions(t)
	opts.ConfigFile = filepath.Join(opts.ConfigDir, "nope.toml")

	_, err := Load(opts)
	require.Error(t, err)
}

func TestValidate(t *testing.T) {
	valid := func() Config {
		cfg, err := Load(LoadOptions{ConfigDir: t.TempDir(), EnvFile: "/nonexistent/.env", Getenv: envMap(nil)})
		require.NoError(t, err)
		return cfg
	}

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{name: "mode", mutate: func(c *Config) { c.Transport.Mode = "carrier-pigeon" }},
		{name: "port", mutate: func(c *Config) { c.Transport.Port = 70000 }},
		{name: "remote", mutate: func(c *Config) { c.Transport.Remote = "nope" }},
		{name: "metadata url", mutate: func(c *Config) { c.Metadata.URL = "ftp://x" }},
		{name: "ttl", mutate: func(c *Config) { c.Metadata.TTL = 0 }},
		{name: "broadcast", mutate: func(c *Config) { c.Broadcast.Interval = 0 }},
		{name: "driver", mutate: func(c *Config) { c.Store.Driver = "csv" }},
		{name: "api addr", mutate: func(c *Config) { c.API.Addr = "localhost" }},
		{name: "discovery interval", mutate: func(c *Config) { c.Discovery.Enabled = true; c.Discovery.Interval = 0 }},
	}

	require.NoError(t, Validate(valid()))
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(&cfg)
			require.ErrorIs(t, Validate(cfg), ErrInvalidConfig)
		})
	}
}

func TestWriteFileRoundTrips(t *testing.T) {
	opts := baseOptions(t)
	cfg, err := Load(opts)
	require.NoError(t, err)
	cfg.Transport.Mode = ModeManaged
	cfg.Metadata.ClearDebounce = 750 * time.Millisecond
	cfg.API.CORSOrigins = []string{"http://a", "http://b"}

	path := DefaultFile(opts.ConfigDir)
	require.NoError(t, WriteFile(path, cfg, false))
	require.ErrorIs(t, WriteFile(path, cfg, false), ErrConfigExists)
	require.NoError(t, WriteFile(path, cfg, true))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	loaded, err := Load(opts)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}
