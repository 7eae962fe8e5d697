package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, "github.com/conduit-lang/mirror", cfg.Hierarchy.CorePackage)
	assert.Equal(t, "std", cfg.Hierarchy.BuiltinPackage)
	assert.Equal(t, 0, cfg.Generator.Workers)
	assert.Equal(t, []string{"vendor", "testdata", "node_modules"}, cfg.Scanner.SkipDirs)
	assert.Equal(t, "memory", cfg.Snapshot.Backend)
	assert.Equal(t, 24*time.Hour, cfg.Snapshot.TTL)
	assert.Equal(t, "json", cfg.Snapshot.Codec)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, Default(), cfg)
}

func TestLoad_ConfigFile(t *testing.T) {
	dir := t.TempDir()
	content := `
hierarchy:
  core_package: example.com/framework
  namespace: example.com/framework-
generator:
  workers: 4
scanner:
  include_tests: true
snapshot:
  backend: redis
  addr: 127.0.0.1:6380
  ttl: 90m
  codec: msgpack
log:
  level: debug
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, FileName), []byte(content), 0o644))

	cfg, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, "example.com/framework", cfg.Hierarchy.CorePackage)
	assert.Equal(t, "example.com/framework-", cfg.Hierarchy.Namespace)
	assert.Equal(t, 4, cfg.Generator.Workers)
	assert.True(t, cfg.Scanner.IncludeTests)
	assert.Equal(t, "redis", cfg.Snapshot.Backend)
	assert.Equal(t, "127.0.0.1:6380", cfg.Snapshot.Addr)
	assert.Equal(t, 90*time.Minute, cfg.Snapshot.TTL)
	assert.Equal(t, "msgpack", cfg.Snapshot.Codec)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestLoad_EnvironmentOverrides(t *testing.T) {
	t.Setenv("MIRROR_GENERATOR_WORKERS", "3")
	t.Setenv("MIRROR_SNAPSHOT_CODEC", "msgpack")

	cfg, err := Load(t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, 3, cfg.Generator.Workers)
	assert.Equal(t, "msgpack", cfg.Snapshot.Codec)
}

func TestLoad_Invalid(t *testing.T) {
	tests := map[string]string{
		"backend":   "snapshot:\n  backend: disk\n",
		"codec":     "snapshot:\n  codec: xml\n",
		"workers":   "generator:\n  workers: -1\n",
		"log level": "log:\n  level: loud\n",
		"namespace": "hierarchy:\n  core_package: a\n  namespace: a\n",
	}
	for name, content := range tests {
		t.Run(name, func(t *testing.T) {
			dir := t.TempDir()
			require.NoError(t, os.WriteFile(filepath.Join(dir, FileName), []byte(content), 0o644))
			_, err := Load(dir)
			assert.Error(t, err)
		})
	}
}

func TestWrite_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	cfg := Default()
	cfg.Generator.Workers = 2
	cfg.Snapshot.TTL = 30 * time.Minute

	require.NoError(t, Write(filepath.Join(dir, FileName), cfg))
	data, err := os.ReadFile(filepath.Join(dir, FileName))
	require.NoError(t, err)
	assert.Contains(t, string(data), "ttl: 30m0s")

	loaded, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)

	cfg.Snapshot.Backend = "disk"
	assert.Error(t, Write(filepath.Join(dir, "bad.yaml"), cfg))
}

func TestGetProjectRoot(t *testing.T) {
	tmpDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(tmpDir, FileName), []byte(""), 0o644))
	subDir := filepath.Join(tmpDir, "src", "deep", "nested")
	require.NoError(t, os.MkdirAll(subDir, 0o755))

	root, err := GetProjectRoot(subDir)
	require.NoError(t, err)

	resolvedRoot, _ := filepath.EvalSymlinks(root)
	resolvedTmpDir, _ := filepath.EvalSymlinks(tmpDir)
	assert.Equal(t, resolvedTmpDir, resolvedRoot)
}
