package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	toml "github.com/pelletier/go-toml/v2"
)

const (
	fileMode = 0o600
	dirMode  = 0o700
)

var ErrConfigExists = errors.New("config file already exists")

type fileSchema struct {
	Transport struct {
		Mode   string `toml:"mode"`
		Host   string `toml:"host"`
		Port   int    `toml:"port"`
		Remote string `toml:"remote"`
		Warmup string `toml:"warmup"`
	} `toml:"transport"`
	Discovery struct {
		Enabled       bool   `toml:"enabled"`
		Interval      string `toml:"interval"`
		ClientPattern string `toml:"client_pattern"`
		ServiceName   string `toml:"service_name"`
	} `toml:"discovery"`
	Metadata struct {
		URL           string `toml:"url"`
		Timeout       string `toml:"timeout"`
		TTL           string `toml:"ttl"`
		ClearDebounce string `toml:"clear_debounce"`
		Workers       int    `toml:"workers"`
	} `toml:"metadata"`
	Broadcast struct {
		Interval string `toml:"interval"`
	} `toml:"broadcast"`
	Store struct {
		Driver string `toml:"driver"`
		Path   string `toml:"path"`
	} `toml:"store"`
	API struct {
		Enabled     bool     `toml:"enabled"`
		Addr        string   `toml:"addr"`
		CORSOrigins []string `toml:"cors_origins"`
	} `toml:"api"`
}

// Marshal renders cfg as TOML that Load reads back unchanged.
func Marshal(cfg Config) ([]byte, error) {
	var f fileSchema
	f.Transport.Mode = cfg.Transport.Mode
	f.Transport.Host = cfg.Transport.Host
	f.Transport.Port = cfg.Transport.Port
	f.Transport.Remote = cfg.Transport.Remote
	f.Transport.Warmup = cfg.Transport.Warmup.String()
	f.Discovery.Enabled = cfg.Discovery.Enabled
	f.Discovery.Interval = cfg.Discovery.Interval.String()
	f.Discovery.ClientPattern = cfg.Discovery.ClientPattern
	f.Discovery.ServiceName = cfg.Discovery.ServiceName
	f.Metadata.URL = cfg.Metadata.URL
	f.Metadata.Timeout = cfg.Metadata.Timeout.String()
	f.Metadata.TTL = cfg.Metadata.TTL.String()
	f.Metadata.ClearDebounce = cfg.Metadata.ClearDebounce.String()
	f.Metadata.Workers = cfg.Metadata.Workers
	f.Broadcast.Interval = cfg.Broadcast.Interval.String()
	f.Store.Driver = cfg.Store.Driver
	f.Store.Path = cfg.Store.Path
	f.API.Enabled = cfg.API.Enabled
	f.API.Addr = cfg.API.Addr
	f.API.CORSOrigins = cfg.API.CORSOrigins
	if f.API.CORSOrigins == nil {
		f.API.CORSOrigins = []string{}
	}

	data, err := toml.Marshal(f)
	if err != nil {
		return nil, fmt.Errorf("encode config: %w", err)
	}
	return data, nil
}

// WriteFile writes cfg to path. An existing file is only replaced when
// overwrite is set.
func WriteFile(path string, cfg Config, overwrite bool) error {
	if !overwrite {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("%w: %s", ErrConfigExists, path)
		}
	}

	data, err := Marshal(cfg)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), dirMode); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	if err := os.WriteFile(path, data, fileMode); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}
	return nil
}

func DefaultFile(dir string) string {
	return filepath.Join(dir, configName+"."+configType)
}
