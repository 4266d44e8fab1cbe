package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(viper.New(), "")
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, BackendLevelDB, cfg.Store.Backend)
	assert.Equal(t, WeightUnit, cfg.Consensus.Weight)
	assert.Equal(t, 256, cfg.Events.Buffer)
}

func TestLoadFileAndEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "node.yaml")
	content := "server:\n  port: 9000\nstore:\n  backend: bolt\n  path: /tmp/x.db\nconsensus:\n  difficulty: 2\n  weight: work\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	t.Setenv("DAGNODE_LOG_LEVEL", "debug")

	cfg, err := Load(viper.New(), path)
	require.NoError(t, err)

	assert.Equal(t, 9000, cfg.Server.Port)
	assert.Equal(t, BackendBolt, cfg.Store.Backend)
	assert.Equal(t, 2, cfg.Consensus.Difficulty)
	assert.Equal(t, WeightWork, cfg.Consensus.Weight)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(viper.New(), filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	cases := map[string]func(c *Config){
		"backend":    func(c *Config) { c.Store.Backend = "redis" },
		"path":       func(c *Config) { c.Store.Path = "" },
		"weight":     func(c *Config) { c.Consensus.Weight = "stake" },
		"difficulty": func(c *Config) { c.Consensus.Difficulty = 65 },
		"port":       func(c *Config) { c.Server.Port = 0 },
		"buffer":     func(c *Config) { c.Events.Buffer = 0 },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			cfg, err := Load(viper.New(), "")
			require.NoError(t, err)
			mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}

	cfg, err := Load(viper.New(), "")
	require.NoError(t, err)
	cfg.Store.Backend = BackendMemory
	cfg.Store.Path = ""
	assert.NoError(t, cfg.Validate())
}
