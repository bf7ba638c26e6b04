package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// PaceSource selects how current/average pace is produced: derived from
// distance deltas, or taken from the platform's native pace/speed channels.
type PaceSource string

const (
	PaceDerived PaceSource = "derived"
	PaceNative  PaceSource = "native"
)

type Config struct {
	DataDir            string     `yaml:"data_dir"`
	DBPath             string     `yaml:"db_path"`
	Pace               PaceSource `yaml:"pace_source"`
	OnlyHighHRAccuracy bool       `yaml:"only_high_hr_accuracy"`
	OnlyPolarDevices   bool       `yaml:"only_polar_devices"`
	AutoReconnect      bool       `yaml:"auto_reconnect"`
	MetricBuffer       int        `yaml:"metric_buffer"`
}

func Default(dataDir string) (Config, error) {
	if dataDir == "" {
		return Config{}, fmt.Errorf("data dir is required")
	}
	return Config{
		DataDir:       dataDir,
		DBPath:        filepath.Join(dataDir, "stride.db"),
		Pace:          PaceDerived,
		AutoReconnect: true,
		MetricBuffer:  64,
	}, nil
}

// Load reads stride.yaml from the data dir when present; absent file means
// defaults. Unknown keys are rejected to catch typos early.
func Load(dataDir string) (Config, error) {
	cfg, err := Default(dataDir)
	if err != nil {
		return Config{}, err
	}
	path := filepath.Join(dataDir, "stride.yaml")
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	decoder := yaml.NewDecoder(bytes.NewReader(raw))
	decoder.KnownFields(true)
	if err := decoder.Decode(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	if cfg.DBPath == "" {
		cfg.DBPath = filepath.Join(cfg.DataDir, "stride.db")
	}
	return cfg, nil
}

func (c Config) validate() error {
	switch c.Pace {
	case PaceDerived, PaceNative:
	default:
		return fmt.Errorf("pace_source must be %q or %q, got %q", PaceDerived, PaceNative, c.Pace)
	}
	if c.MetricBuffer <= 0 {
		return fmt.Errorf("metric_buffer must be positive, got %d", c.MetricBuffer)
	}
	return nil
}
