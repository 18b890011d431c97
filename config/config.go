package config

import (
	"os"
	"strings"

	"github.com/goccy/go-yaml"
	"github.com/pkg/errors"
)

const DefaultCompactionThreshold = 1000

type Config struct {
	Logger LoggerOptions `yaml:"logger"`
	Engine EngineOptions `yaml:"engine"`
}

type LoggerOptions struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// EngineOptions describe one engine's file set. KeySize and ValueSize are
// fixed for the life of the files.
type EngineOptions struct {
	Path                string `yaml:"path"`
	KeySize             int    `yaml:"key_size"`
	ValueSize           int    `yaml:"value_size"`
	CompactionThreshold int    `yaml:"compaction_threshold"`
}

func Default() Config {
	return Config{
		Logger: LoggerOptions{
			Level:  "info",
			Format: "logfmt",
		},
		Engine: EngineOptions{
			Path:                "data/sortkv.db",
			KeySize:             32,
			ValueSize:           64,
			CompactionThreshold: DefaultCompactionThreshold,
		},
	}
}

// Load reads a YAML config over the defaults. A missing file yields the defaults.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, errors.Wrap(err, "read config")
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, errors.Wrapf(err, "parse config %s", path)
	}

	cfg.Engine.SetDefaults()

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}

	return cfg, nil
}

func (c Config) Validate() error {
	switch strings.ToLower(c.Logger.Level) {
	case "debug", "info", "warn", "error":
	default:
		return errors.Errorf("unknown log level %q", c.Logger.Level)
	}

	switch c.Logger.Format {
	case "logfmt", "json":
	default:
		return errors.Errorf("unknown log format %q", c.Logger.Format)
	}

	return c.Engine.Validate()
}

// SetDefaults fills in a zero compaction threshold.
func (o *EngineOptions) SetDefaults() {
	if o.CompactionThreshold == 0 {
		o.CompactionThreshold = DefaultCompactionThreshold
	}
}

func (o EngineOptions) Validate() error {
	if o.Path == "" {
		return errors.New("engine path is empty")
	}

	if o.KeySize <= 0 || o.ValueSize <= 0 {
		return errors.Errorf("key and value sizes must be positive, got %d and %d", o.KeySize, o.ValueSize)
	}

	if o.CompactionThreshold <= 0 {
		return errors.Errorf("compaction threshold must be positive, got %d", o.CompactionThreshold)
	}

	return nil
}
