package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultIsValid(t *testing.T) {
	assert.NoError(t, Default().Validate())
}

func TestLoadMissingFile(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sortkv.yaml")

	data := []byte(`
logger:
  level: debug
engine:
  path: /var/lib/sortkv/tree.btr
  key_size: 16
`)
	require.NoError(t, os.WriteFile(path, data, 0o666))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.Logger.Level)
	assert.Equal(t, "logfmt", cfg.Logger.Format)
	assert.Equal(t, "/var/lib/sortkv/tree.btr", cfg.Engine.Path)
	assert.Equal(t, 16, cfg.Engine.KeySize)
	assert.Equal(t, 64, cfg.Engine.ValueSize)
	assert.Equal(t, DefaultCompactionThreshold, cfg.Engine.CompactionThreshold)
}

func TestLoadZeroThresholdMeansDefault(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sortkv.yaml")
	require.NoError(t, os.WriteFile(path, []byte("engine:\n  compaction_threshold: 0\n"), 0o666))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, DefaultCompactionThreshold, cfg.Engine.CompactionThreshold)
}

func TestSetDefaultsKeepsExplicitThreshold(t *testing.T) {
	opts := EngineOptions{CompactionThreshold: 7}
	opts.SetDefaults()
	assert.Equal(t, 7, opts.CompactionThreshold)

	opts = EngineOptions{}
	opts.SetDefaults()
	assert.Equal(t, DefaultCompactionThreshold, opts.CompactionThreshold)
}

func TestLoadRejectsInvalid(t *testing.T) {
	tests := map[string]string{
		"level":     "logger:\n  level: loud\n",
		"format":    "logger:\n  format: xml\n",
		"key size":  "engine:\n  key_size: 0\n",
		"threshold": "engine:\n  compaction_threshold: -1\n",
		"path":      "engine:\n  path: \"\"\n",
		"syntax":    "engine: [\n",
	}

	for name, body := range tests {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "sortkv.yaml")
			require.NoError(t, os.WriteFile(path, []byte(body), 0o666))

			_, err := Load(path)
			assert.Error(t, err)
		})
	}
}
