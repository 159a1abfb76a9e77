// Package file loads service settings from a TOML file.
package file

import (
	"fmt"
	"os"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/falcon245sp/SBG-with-AQI-sub002/internal/core/domain"
)

// fileSettings is the on-disk TOML shape. Durations are expressed in
// seconds so the file stays plain numbers.
type fileSettings struct {
	DataDir    string `toml:"data_dir"`
	ListenAddr string `toml:"listen_addr"`

	Primary  fileBackend `toml:"primary"`
	Fallback fileBackend `toml:"fallback"`

	Queue struct {
		PollIntervalSeconds       int `toml:"poll_interval_seconds"`
		ExportPollIntervalSeconds int `toml:"export_poll_interval_seconds"`
		MaxAttempts               int `toml:"max_attempts"`
	} `toml:"queue"`

	Orchestrator struct {
		ConfidenceCutoff float64 `toml:"confidence_cutoff"`
	} `toml:"orchestrator"`

	Scoring struct {
		TargetMild   float64 `toml:"target_mild"`
		TargetMedium float64 `toml:"target_medium"`
		TargetSpicy  float64 `toml:"target_spicy"`
	} `toml:"scoring"`
}

type fileBackend struct {
	Provider          string `toml:"provider"`
	APIKey            string `toml:"api_key"`
	APIKeyEnv         string `toml:"api_key_env"`
	BaseURL           string `toml:"base_url"`
	Model             string `toml:"model"`
	TimeoutSeconds    int    `toml:"timeout_seconds"`
	RequestsPerMinute int    `toml:"requests_per_minute"`
}

// Load reads settings from path, layering file values over
// domain.DefaultSettings. A missing file returns the defaults.
func Load(path string) (domain.Settings, error) {
	settings := domain.DefaultSettings()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return settings, nil
		}
		return settings, fmt.Errorf("config: reading %s: %w", path, err)
	}

	var fs fileSettings
	if err := toml.Unmarshal(data, &fs); err != nil {
		return settings, fmt.Errorf("config: parsing %s: %w", path, err)
	}

	if fs.DataDir != "" {
		settings.DataDir = fs.DataDir
	}
	if fs.ListenAddr != "" {
		settings.ListenAddr = fs.ListenAddr
	}

	settings.Primary = backendSettings(fs.Primary)
	settings.Fallback = backendSettings(fs.Fallback)

	if fs.Queue.PollIntervalSeconds > 0 {
		settings.Queue.PollInterval = time.Duration(fs.Queue.PollIntervalSeconds) * time.Second
	}
	if fs.Queue.ExportPollIntervalSeconds > 0 {
		settings.Queue.ExportPollInterval = time.Duration(fs.Queue.ExportPollIntervalSeconds) * time.Second
	}
	if fs.Queue.MaxAttempts > 0 {
		settings.Queue.MaxAttempts = fs.Queue.MaxAttempts
	}
	if fs.Orchestrator.ConfidenceCutoff > 0 {
		settings.Orchestrator.ConfidenceCutoff = fs.Orchestrator.ConfidenceCutoff
	}
	if fs.Scoring.TargetMild > 0 || fs.Scoring.TargetMedium > 0 || fs.Scoring.TargetSpicy > 0 {
		settings.Scoring = domain.ScoringConfig{
			TargetRigorDistribution: map[domain.RigorLabel]float64{
				domain.RigorMild:   fs.Scoring.TargetMild,
				domain.RigorMedium: fs.Scoring.TargetMedium,
				domain.RigorSpicy:  fs.Scoring.TargetSpicy,
			},
		}
	}

	return settings, nil
}

// backendSettings maps a file backend section into domain settings.
// api_key_env takes precedence over the inline key so credentials can
// stay out of the file.
func backendSettings(fb fileBackend) domain.BackendSettings {
	apiKey := fb.APIKey
	if fb.APIKeyEnv != "" {
		if env := os.Getenv(fb.APIKeyEnv); env != "" {
			apiKey = env
		}
	}
	return domain.BackendSettings{
		Provider:          domain.BackendProvider(fb.Provider),
		APIKey:            apiKey,
		BaseURL:           fb.BaseURL,
		Model:             fb.Model,
		Timeout:           time.Duration(fb.TimeoutSeconds) * time.Second,
		RequestsPerMinute: fb.RequestsPerMinute,
	}
}
