package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/conduit-lang/mirror/internal/logging"
)

// FileName is the configuration file looked up in the project root.
const FileName = "mirror.yaml"

// EnvPrefix prefixes environment overrides, e.g. MIRROR_GENERATOR_WORKERS.
const EnvPrefix = "MIRROR"

// Config represents the mirror configuration
type Config struct {
	Hierarchy HierarchyConfig `mapstructure:"hierarchy" yaml:"hierarchy"`
	Generator GeneratorConfig `mapstructure:"generator" yaml:"generator"`
	Scanner   ScannerConfig   `mapstructure:"scanner" yaml:"scanner"`
	Snapshot  SnapshotConfig  `mapstructure:"snapshot" yaml:"snapshot"`
	Log       LogConfig       `mapstructure:"log" yaml:"log"`
}

// HierarchyConfig names the packages that get fixed registry levels
type HierarchyConfig struct {
	CorePackage    string `mapstructure:"core_package" yaml:"core_package"`
	Namespace      string `mapstructure:"namespace" yaml:"namespace"`
	BuiltinPackage string `mapstructure:"builtin_package" yaml:"builtin_package"`
}

// GeneratorConfig represents metadata generation settings
type GeneratorConfig struct {
	Workers int `mapstructure:"workers" yaml:"workers"`
}

// ScannerConfig represents project scanning settings
type ScannerConfig struct {
	SkipDirs     []string `mapstructure:"skip_dirs" yaml:"skip_dirs"`
	IncludeTests bool     `mapstructure:"include_tests" yaml:"include_tests"`
}

// SnapshotConfig represents the snapshot store used by export
type SnapshotConfig struct {
	Backend  string        `mapstructure:"backend" yaml:"backend"`
	Addr     string        `mapstructure:"addr" yaml:"addr,omitempty"`
	Password string        `mapstructure:"password" yaml:"password,omitempty"`
	DB       int           `mapstructure:"db" yaml:"db,omitempty"`
	Prefix   string        `mapstructure:"prefix" yaml:"prefix"`
	TTL      time.Duration `mapstructure:"ttl" yaml:"-"`
	Codec    string        `mapstructure:"codec" yaml:"codec"`
}

// MarshalYAML writes the TTL as a duration string.
func (s SnapshotConfig) MarshalYAML() (any, error) {
	type plain SnapshotConfig
	return struct {
		plain `yaml:",inline"`
		TTL   string `yaml:"ttl"`
	}{plain(s), s.TTL.String()}, nil
}

// LogConfig represents logging settings
type LogConfig struct {
	Level       string `mapstructure:"level" yaml:"level"`
	Development bool   `mapstructure:"development" yaml:"development"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("hierarchy.core_package", "github.com/conduit-lang/mirror")
	v.SetDefault("hierarchy.namespace", "github.com/conduit-lang/mirror-")
	v.SetDefault("hierarchy.builtin_package", "std")
	v.SetDefault("generator.workers", 0)
	v.SetDefault("scanner.skip_dirs", []string{"vendor", "testdata", "node_modules"})
	v.SetDefault("scanner.include_tests", false)
	v.SetDefault("snapshot.backend", "memory")
	v.SetDefault("snapshot.addr", "localhost:6379")
	v.SetDefault("snapshot.password", "")
	v.SetDefault("snapshot.db", 0)
	v.SetDefault("snapshot.prefix", "mirror:")
	v.SetDefault("snapshot.ttl", "24h")
	v.SetDefault("snapshot.codec", "json")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.development", false)
}

// Default returns the configuration used when no file is present
func Default() *Config {
	v := viper.New()
	setDefaults(v)
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		panic(fmt.Sprintf("invalid default configuration: %v", err))
	}
	return &cfg
}

// Load loads the configuration from mirror.yaml in dir, applying defaults
// and MIRROR_* environment overrides
func Load(dir string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigName(strings.TrimSuffix(FileName, filepath.Ext(FileName)))
	v.SetConfigType("yaml")
	v.AddConfigPath(dir)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validateConfig(&config); err != nil {
		return nil, err
	}

	return &config, nil
}

// Write stores cfg as YAML at path
func Write(path string, cfg *Config) error {
	if err := validateConfig(cfg); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

// GetProjectRoot walks up from start looking for mirror.yaml or go.mod
func GetProjectRoot(start string) (string, error) {
	dir, err := filepath.Abs(start)
	if err != nil {
		return "", err
	}

	for {
		if _, err := os.Stat(filepath.Join(dir, FileName)); err == nil {
			return dir, nil
		}
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir, nil
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return "", fmt.Errorf("not in a Go project (no %s or go.mod found)", FileName)
		}
		dir = parent
	}
}

// validateConfig validates the configuration
func validateConfig(cfg *Config) error {
	if cfg.Generator.Workers < 0 {
		return fmt.Errorf("generator.workers must not be negative, got: %d", cfg.Generator.Workers)
	}
	switch cfg.Snapshot.Backend {
	case "memory":
	case "redis":
		if cfg.Snapshot.Addr == "" {
			return fmt.Errorf("snapshot.addr is required for the redis backend")
		}
	default:
		return fmt.Errorf("snapshot.backend must be memory or redis, got: %s", cfg.Snapshot.Backend)
	}
	if cfg.Snapshot.Codec != "json" && cfg.Snapshot.Codec != "msgpack" {
		return fmt.Errorf("snapshot.codec must be json or msgpack, got: %s", cfg.Snapshot.Codec)
	}
	if cfg.Snapshot.TTL < 0 {
		return fmt.Errorf("snapshot.ttl must not be negative, got: %s", cfg.Snapshot.TTL)
	}
	if cfg.Hierarchy.Namespace != "" && cfg.Hierarchy.Namespace == cfg.Hierarchy.CorePackage {
		return fmt.Errorf("hierarchy.namespace must differ from hierarchy.core_package")
	}
	if _, err := logging.ParseLevel(cfg.Log.Level); err != nil {
		return fmt.Errorf("log.level: %w", err)
	}
	return nil
}
