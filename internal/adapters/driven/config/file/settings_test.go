package file

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/falcon245sp/SBG-with-AQI-sub002/internal/core/domain"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	settings, err := Load(filepath.Join(t.TempDir(), "does-not-exist.toml"))
	require.NoError(t, err)

	assert.Equal(t, ":8080", settings.ListenAddr)
	assert.Equal(t, 10*time.Second, settings.Queue.PollInterval)
	assert.Equal(t, domain.DefaultMaxAttempts, settings.Queue.MaxAttempts)
	assert.Equal(t, 0.7, settings.Orchestrator.ConfidenceCutoff)
	assert.False(t, settings.Primary.IsConfigured())
}

func TestLoadLayersOverDefaults(t *testing.T) {
	path := writeConfig(t, `
data_dir = "/var/lib/aqi"
listen_addr = ":9090"

[primary]
provider = "openai"
api_key = "sk-test"
model = "gpt-5"
timeout_seconds = 120
requests_per_minute = 30

[fallback]
provider = "anthropic"
api_key = "ak-test"

[queue]
poll_interval_seconds = 5
max_attempts = 7

[orchestrator]
confidence_cutoff = 0.85

[scoring]
target_mild = 0.2
target_medium = 0.6
target_spicy = 0.2
`)

	settings, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "/var/lib/aqi", settings.DataDir)
	assert.Equal(t, ":9090", settings.ListenAddr)

	assert.Equal(t, domain.ProviderOpenAI, settings.Primary.Provider)
	assert.Equal(t, "sk-test", settings.Primary.APIKey)
	assert.Equal(t, "gpt-5", settings.Primary.Model)
	assert.Equal(t, 2*time.Minute, settings.Primary.Timeout)
	assert.Equal(t, 30, settings.Primary.RequestsPerMinute)
	assert.True(t, settings.Fallback.IsConfigured())

	assert.Equal(t, 5*time.Second, settings.Queue.PollInterval)
	// Untouched keys keep their defaults.
	assert.Equal(t, 30*time.Second, settings.Queue.ExportPollInterval)
	assert.Equal(t, 7, settings.Queue.MaxAttempts)
	assert.Equal(t, 0.85, settings.Orchestrator.ConfidenceCutoff)

	assert.Equal(t, 0.6, settings.Scoring.TargetRigorDistribution[domain.RigorMedium])
}

func TestLoadAPIKeyEnvPrecedence(t *testing.T) {
	t.Setenv("AQI_TEST_OPENAI_KEY", "sk-from-env")

	path := writeConfig(t, `
[primary]
provider = "openai"
api_key = "sk-inline"
api_key_env = "AQI_TEST_OPENAI_KEY"
`)

	settings, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "sk-from-env", settings.Primary.APIKey)
}

func TestLoadAPIKeyEnvUnsetFallsBackToInline(t *testing.T) {
	path := writeConfig(t, `
[primary]
provider = "openai"
api_key = "sk-inline"
api_key_env = "AQI_TEST_UNSET_KEY"
`)

	settings, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "sk-inline", settings.Primary.APIKey)
}

func TestLoadMalformedFile(t *testing.T) {
	path := writeConfig(t, `listen_addr = [broken`)

	_, err := Load(path)
	assert.ErrorContains(t, err, "parsing")
}
