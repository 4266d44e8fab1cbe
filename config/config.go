package config

import (
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

// DefaultPath is where the daemon looks for its configuration file.
const DefaultPath = "config/config.yaml"

const (
	BackendMemory  = "memory"
	BackendLevelDB = "leveldb"
	BackendBolt    = "bolt"

	WeightUnit = "unit"
	WeightWork = "work"
)

type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Log       LogConfig       `mapstructure:"log"`
	Store     StoreConfig     `mapstructure:"store"`
	Consensus ConsensusConfig `mapstructure:"consensus"`
	Events    EventsConfig    `mapstructure:"events"`
}

type ServerConfig struct {
	Port int `mapstructure:"port"`
}

type LogConfig struct {
	AppLogFile string `mapstructure:"app_log_file"`
	Level      string `mapstructure:"level"`
	MaxSizeKB  int64  `mapstructure:"max_size_kb"`
	MaxRolls   int    `mapstructure:"max_rolls"`
}

type StoreConfig struct {
	Backend   string `mapstructure:"backend"`
	Path      string `mapstructure:"path"`
	CacheSize int    `mapstructure:"cache_size"`
}

type ConsensusConfig struct {
	Difficulty int    `mapstructure:"difficulty"`
	Weight     string `mapstructure:"weight"`
}

type EventsConfig struct {
	// Buffer is the number of events queued per streaming subscriber before it is dropped.
	Buffer int `mapstructure:"buffer"`
}

// SetDefaults registers the default value of every key on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("log.app_log_file", "")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.max_size_kb", 10*1024)
	v.SetDefault("log.max_rolls", 8)
	v.SetDefault("store.backend", BackendLevelDB)
	v.SetDefault("store.path", "data/blocks")
	v.SetDefault("store.cache_size", 4096)
	v.SetDefault("consensus.difficulty", 0)
	v.SetDefault("consensus.weight", WeightUnit)
	v.SetDefault("events.buffer", 256)
}

// Load reads the YAML file at path, applies DAGNODE_* environment overrides and validates the result.
// An empty path skips the file and uses defaults plus environment only.
func Load(v *viper.Viper, path string) (*Config, error) {
	SetDefaults(v)
	v.SetEnvPrefix("dagnode")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, errors.Wrapf(err, "failed to read config file %s", path)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, errors.Wrap(err, "failed to decode config")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	switch c.Store.Backend {
	case BackendMemory, BackendLevelDB, BackendBolt:
	default:
		return errors.Errorf("unknown store backend %q", c.Store.Backend)
	}
	if c.Store.Backend != BackendMemory && c.Store.Path == "" {
		return errors.Errorf("store.path is required for the %s backend", c.Store.Backend)
	}
	switch c.Consensus.Weight {
	case WeightUnit, WeightWork:
	default:
		return errors.Errorf("unknown weight function %q", c.Consensus.Weight)
	}
	if c.Consensus.Difficulty < 0 || c.Consensus.Difficulty > 64 {
		return errors.Errorf("difficulty %d out of range", c.Consensus.Difficulty)
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return errors.Errorf("invalid server port %d", c.Server.Port)
	}
	if c.Events.Buffer <= 0 {
		return errors.New("events.buffer must be positive")
	}
	return nil
}
