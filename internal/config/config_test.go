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
	path := filepath.Join(t.TempDir(), "intel.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	path := writeConfig(t, "store:\n  driver: memory\n")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "memory", cfg.Store.Driver)
	assert.Equal(t, 8000, cfg.Server.HTTPPort)
	assert.Equal(t, []string{"*"}, cfg.Server.CORSOrigins)
	assert.Equal(t, "fashion_intel", cfg.Mongo.Database)
	assert.Equal(t, "events", cfg.Mongo.Collection)

	assert.Equal(t, 50, cfg.Recommend.ItemMatchLimit)
	assert.Equal(t, 5, cfg.Recommend.ItemTopN)
	assert.Equal(t, 100, cfg.Recommend.SectionMatchLimit)
	assert.Equal(t, 3, cfg.Recommend.SectionTopN)
	assert.Zero(t, cfg.Recommend.SectionCovisitWindow)

	assert.Equal(t, int64(10), cfg.Insights.LowEngagement.MinVisits)
	assert.Equal(t, 120.0, cfg.Insights.LowEngagement.MaxAvgTimeSecs)
	assert.Equal(t, int64(10), cfg.Insights.HiddenGem.MaxVisits)
	assert.Equal(t, 180.0, cfg.Insights.HiddenGem.MinAvgTimeSecs)
	assert.Equal(t, 3.0, cfg.Insights.StrongInterest.MinAvgItems)
	assert.Equal(t, 5, cfg.Insights.MaxInsights)
}

func TestLoad_ExpandsEnvironment(t *testing.T) {
	t.Setenv("INTEL_TEST_MONGO_URI", "mongodb://mongo.internal:27017")
	path := writeConfig(t, `
mongo:
  uri: ${INTEL_TEST_MONGO_URI}
  timeout: 3s
recommend:
  section_covisit_window: 30m
kafka:
  brokers: ["kafka:9092"]
  topics:
    events: chanceux.events
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "mongodb://mongo.internal:27017", cfg.Mongo.URI)
	assert.Equal(t, 3*time.Second, cfg.Mongo.Timeout)
	assert.Equal(t, 30*time.Minute, cfg.Recommend.SectionCovisitWindow)
	assert.Equal(t, []string{"kafka:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, "chanceux.events", cfg.Kafka.Topics["events"])
	assert.Equal(t, "mongo", cfg.Store.Driver)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestLoad_InvalidYAML(t *testing.T) {
	path := writeConfig(t, "server: [unterminated")
	_, err := Load(path)
	assert.Error(t, err)
}
