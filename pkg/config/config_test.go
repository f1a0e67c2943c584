package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))
	return path
}

func TestLoadMergesFileOverDefaults(t *testing.T) {
	path := writeConfig(t, `
server:
  port: 9000
  rateLimit: 10
search:
  mode: TC
  topK: 5
runs:
  backend: sqlite
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 9000, cfg.Server.Port)
	assert.Equal(t, 10, cfg.Server.RateLimit)
	assert.Equal(t, time.Minute, cfg.Server.RateWindow)
	assert.Equal(t, "TC", cfg.Search.Mode)
	assert.Equal(t, 5, cfg.Search.TopK)
	assert.Equal(t, "sqlite", cfg.Runs.Backend)
	assert.Equal(t, 5432, cfg.Postgres.Port, "untouched sections keep defaults")
}

func TestEnvOverridesFile(t *testing.T) {
	path := writeConfig(t, "search:\n  topK: 5\n")
	t.Setenv("QT_SEARCH_TOPK", "7")
	t.Setenv("QT_KAFKA_BROKERS", "a:9092,b:9092")
	t.Setenv("QT_SERVER_PORT", "not-a-port")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 7, cfg.Search.TopK)
	assert.Equal(t, []string{"a:9092", "b:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, 8080, cfg.Server.Port, "malformed numbers are ignored")
}

func TestLoadRejectsInvalidSettings(t *testing.T) {
	for name, body := range map[string]string{
		"artifact backend": "artifacts:\n  backend: s3\n",
		"runs backend":     "runs:\n  backend: mysql\n",
		"topK":             "search:\n  topK: 0\n",
		"rate limit":       "server:\n  rateLimit: -1\n",
	} {
		t.Run(name, func(t *testing.T) {
			_, err := Load(writeConfig(t, body))
			assert.Error(t, err)
		})
	}
}

func TestLoadReportsMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.ErrorContains(t, err, "reading config file")
}

func TestResolveJoinsRelativePaths(t *testing.T) {
	d := DataConfig{Dir: "/data"}
	assert.Equal(t, "/data/types.ttl", d.Resolve(SourceConfig{Path: "types.ttl"}).Path)
	assert.Equal(t, "/abs/x.ttl", d.Resolve(SourceConfig{Path: "/abs/x.ttl"}).Path)
	assert.Equal(t, "", d.Resolve(SourceConfig{}).Path)
}
