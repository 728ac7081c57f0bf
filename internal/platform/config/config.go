package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	apperrors "cadence/internal/platform/errors"
)

const (
	BackendFile   = "file"
	BackendSQLite = "sqlite"
	BackendMemory = "memory"
)

type Config struct {
	DataPath    string `yaml:"-" toml:"-"`
	DBPath      string `yaml:"-" toml:"-"`
	StoragePath string `yaml:"-" toml:"-"`
	LogPath     string `yaml:"-" toml:"-"`

	Storage Storage `yaml:"storage" toml:"storage"`
	Timer   Timer   `yaml:"timer" toml:"timer"`
	Scoring Scoring `yaml:"scoring" toml:"scoring"`
	Log     Log     `yaml:"log" toml:"log"`
}

type Storage struct {
	Backend string `yaml:"backend" toml:"backend"`
}

type Timer struct {
	TickInterval Duration `yaml:"tick_interval" toml:"tick_interval"`
	WindowSize   int      `yaml:"window_size" toml:"window_size"`
}

type Scoring struct {
	Leniency       float64 `yaml:"leniency" toml:"leniency"`
	SuccessBand    float64 `yaml:"success_band" toml:"success_band"`
	FailureBand    float64 `yaml:"failure_band" toml:"failure_band"`
	RhythmMinRatio float64 `yaml:"rhythm_min_ratio" toml:"rhythm_min_ratio"`
	RhythmMaxRatio float64 `yaml:"rhythm_max_ratio" toml:"rhythm_max_ratio"`
	FlowThreshold  int     `yaml:"flow_threshold" toml:"flow_threshold"`
}

type Log struct {
	Level  string `yaml:"level" toml:"level"`
	Format string `yaml:"format" toml:"format"`
}

// Duration reads "16ms"-style strings from both file formats.
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return fmt.Errorf("parse duration %q: %w", string(text), err)
	}
	d.Duration = parsed
	return nil
}

func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	return d.UnmarshalText([]byte(node.Value))
}

func New(dataPath string) (Config, error) {
	if dataPath == "" {
		return Config{}, fmt.Errorf("data path is required")
	}
	return Config{
		DataPath:    dataPath,
		DBPath:      filepath.Join(dataPath, "cadence.db"),
		StoragePath: filepath.Join(dataPath, "store"),
		LogPath:     filepath.Join(dataPath, "cadence.log"),
		Storage:     Storage{Backend: BackendFile},
		Timer:       Timer{TickInterval: Duration{16 * time.Millisecond}, WindowSize: 10},
		Scoring: Scoring{
			Leniency:       1.0,
			SuccessBand:    0.10,
			FailureBand:    0.50,
			RhythmMinRatio: 0.5,
			RhythmMaxRatio: 2.0,
			FlowThreshold:  80,
		},
		Log: Log{Level: "info", Format: "text"},
	}, nil
}

// Load applies cadence.yaml or cadence.toml from the data dir on top of the defaults.
func Load(dataPath string) (Config, error) {
	cfg, err := New(dataPath)
	if err != nil {
		return Config{}, err
	}
	yamlPath := filepath.Join(dataPath, "cadence.yaml")
	tomlPath := filepath.Join(dataPath, "cadence.toml")
	if payload, err := os.ReadFile(yamlPath); err == nil {
		if err := yaml.Unmarshal(payload, &cfg); err != nil {
			return Config{}, fmt.Errorf("decode %s: %w", yamlPath, err)
		}
	} else if !os.IsNotExist(err) {
		return Config{}, fmt.Errorf("read %s: %w", yamlPath, err)
	} else if _, err := os.Stat(tomlPath); err == nil {
		if _, err := toml.DecodeFile(tomlPath, &cfg); err != nil {
			return Config{}, fmt.Errorf("decode %s: %w", tomlPath, err)
		}
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	switch c.Storage.Backend {
	case BackendFile, BackendSQLite, BackendMemory:
	default:
		return fmt.Errorf("%w: unsupported storage backend %q", apperrors.ErrInvalidInput, c.Storage.Backend)
	}
	if c.Timer.TickInterval.Duration <= 0 {
		return fmt.Errorf("%w: tick interval must be positive", apperrors.ErrInvalidInput)
	}
	if c.Timer.WindowSize < 2 {
		return fmt.Errorf("%w: window size must be at least 2", apperrors.ErrInvalidInput)
	}
	s := c.Scoring
	if s.Leniency < 0 {
		return fmt.Errorf("%w: leniency must be non-negative", apperrors.ErrInvalidInput)
	}
	if s.SuccessBand <= 0 || s.FailureBand <= s.SuccessBand {
		return fmt.Errorf("%w: success band must be positive and below failure band", apperrors.ErrInvalidInput)
	}
	if s.RhythmMinRatio <= 0 || s.RhythmMinRatio >= 1 || s.RhythmMaxRatio <= 1 {
		return fmt.Errorf("%w: rhythm ratio band must straddle 1", apperrors.ErrInvalidInput)
	}
	if s.FlowThreshold < 0 || s.FlowThreshold > 100 {
		return fmt.Errorf("%w: flow threshold must be within 0..100", apperrors.ErrInvalidInput)
	}
	return nil
}
