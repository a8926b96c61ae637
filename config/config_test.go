package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brettbedarf/zkpath/internal/util"
)

// TestNewConfig_WithNilOverride tests that NewConfig creates a config with
// all default values when no override is provided.
func TestNewConfig_WithNilOverride(t *testing.T) {
	t.Parallel()

	cfg := NewConfig(nil)

	require.NotNil(t, cfg)
	assert.Equal(t, NewDefaultConfig(), cfg, "must use default values when no config provided")
}

// TestNewConfig_WithOverride tests that NewConfig properly applies overrides
// while preserving defaults for unset fields.
func TestNewConfig_WithPartialOverride(t *testing.T) {
	t.Parallel()

	cfg := NewConfig(&ConfigOverride{
		Endpoints:        []string{"zk1:2181", "zk2:2181"},
		SessionTimeoutMS: util.Pointer(30_000),
		BasePath:         util.Pointer("/apps/demo"),
	})

	assert.Equal(t, []string{"zk1:2181", "zk2:2181"}, cfg.Endpoints)
	assert.Equal(t, 30*time.Second, cfg.SessionTimeout)
	assert.Equal(t, "/apps/demo", cfg.BasePath)
	// Untouched fields keep defaults
	assert.Equal(t, DefaultConnectTimeoutMS*time.Millisecond, cfg.ConnectTimeout)
	assert.Equal(t, DefaultWorkers, cfg.Workers)
}

func TestMerge_AllFields(t *testing.T) {
	t.Parallel()

	cfg := NewDefaultConfig()
	cfg.Merge(&ConfigOverride{
		Endpoints:        []string{"h:1"},
		SessionTimeoutMS: util.Pointer(1_000),
		ConnectTimeoutMS: util.Pointer(2_000),
		BasePath:         util.Pointer("/b"),
		Workers:          util.Pointer(2),
		LogLvl:           util.Pointer(util.DebugLevel),
	})

	assert.Equal(t, []string{"h:1"}, cfg.Endpoints)
	assert.Equal(t, time.Second, cfg.SessionTimeout)
	assert.Equal(t, 2*time.Second, cfg.ConnectTimeout)
	assert.Equal(t, "/b", cfg.BasePath)
	assert.Equal(t, 2, cfg.Workers)
	assert.Equal(t, util.DebugLevel, cfg.LogLvl)
}

func TestLoadConfigOverrideFile_YAML(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "cfg.yaml")
	content := `
endpoints:
  - zk1:2181
session_timeout_ms: 15000
base_path: /yaml/base
workers: 4
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	override, err := LoadConfigOverrideFile(path)
	require.NoError(t, err)

	assert.Equal(t, []string{"zk1:2181"}, override.Endpoints)
	assert.Equal(t, 15_000, *override.SessionTimeoutMS)
	assert.Equal(t, "/yaml/base", *override.BasePath)
	assert.Equal(t, 4, *override.Workers)
	assert.Nil(t, override.ConnectTimeoutMS, "unset field must stay nil")
}

func TestLoadConfigOverrideFile_JSON(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "cfg.json")
	content := `{"endpoints":["zk9:2181"],"connect_timeout_ms":2500}`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	override, err := LoadConfigOverrideFile(path)
	require.NoError(t, err)

	assert.Equal(t, []string{"zk9:2181"}, override.Endpoints)
	assert.Equal(t, 2500, *override.ConnectTimeoutMS)
}

func TestLoadConfigOverrideFile_UnknownExtension(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "cfg.toml")
	require.NoError(t, os.WriteFile(path, []byte("x = 1"), 0o644))

	_, err := LoadConfigOverrideFile(path)
	assert.Error(t, err)
}

func TestLoadConfigOverrideFile_Missing(t *testing.T) {
	t.Parallel()

	_, err := LoadConfigOverrideFile(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestNewConfigFromFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "cfg.yml")
	require.NoError(t, os.WriteFile(path, []byte("base_path: /from/file\n"), 0o644))

	cfg, err := NewConfigFromFile(path)
	require.NoError(t, err)

	assert.Equal(t, "/from/file", cfg.BasePath)
	assert.Equal(t, []string{DefaultEndpoint}, cfg.Endpoints)
}
