package modelasset

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/srcres/modelasset-go/pkg/modelasset/logging"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig("")
	require.NoError(t, err)
	assert.Equal(t, DefaultName, cfg.Name)
	assert.Equal(t, "native", cfg.Backend)
	assert.Equal(t, "./resources", cfg.ResourceDir)
	assert.Equal(t, "info", cfg.LogLevel)
}

func TestLoadConfigFileAndEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "modelasset.yaml")
	yaml := "name: custom\nbackend: wasm\nresource_dir: " + dir + "\nlog_level: debug\n"
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o600))
	t.Setenv("MODELASSET_BACKEND", "inprocess")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "custom", cfg.Name)
	assert.Equal(t, "inprocess", cfg.Backend)
	assert.Equal(t, "debug", cfg.LogLevel)

	c, err := cfg.Config(logging.Discard())
	require.NoError(t, err)
	assert.Equal(t, BackendInProcess, c.Backend)
	assert.NotNil(t, c.Resources)
}

func TestLoadConfigErrors(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	t.Setenv("MODELASSET_BACKEND", "jni")
	_, err = LoadConfig("")
	assert.Error(t, err)
}
