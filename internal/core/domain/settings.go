package domain

import "time"

// BackendProvider identifies a model backend implementation.
type BackendProvider string

// Supported backend providers.
const (
	ProviderOpenAI    BackendProvider = "openai"
	ProviderAnthropic BackendProvider = "anthropic"
)

// IsValid returns true if the provider is recognised.
func (p BackendProvider) IsValid() bool {
	return p == ProviderOpenAI || p == ProviderAnthropic
}

// BackendSettings configures one model backend.
type BackendSettings struct {
	// Provider selects the backend implementation.
	Provider BackendProvider

	// APIKey authenticates against the provider.
	APIKey string

	// BaseURL overrides the provider's default endpoint.
	BaseURL string

	// Model is the model identifier to request.
	Model string

	// Timeout bounds each request.
	Timeout time.Duration

	// RequestsPerMinute caps the call rate to the provider.
	RequestsPerMinute int
}

// IsConfigured returns true when the backend can be constructed.
func (s *BackendSettings) IsConfigured() bool {
	return s != nil && s.Provider.IsValid() && s.APIKey != ""
}

// QueueSettings configures the queue coordinators.
type QueueSettings struct {
	// PollInterval is the processing queue tick.
	PollInterval time.Duration

	// ExportPollInterval is the export queue tick, independent of the
	// processing queue.
	ExportPollInterval time.Duration

	// MaxAttempts bounds retries before dead-lettering.
	MaxAttempts int
}

// OrchestratorSettings configures the model orchestrator.
type OrchestratorSettings struct {
	// ConfidenceCutoff triggers the fallback second pass for any question
	// whose rigor confidence falls below it.
	ConfidenceCutoff float64
}

// Settings is the full service configuration.
type Settings struct {
	// DataDir is where the SQLite store and exports live.
	DataDir string

	// ListenAddr is the HTTP bind address.
	ListenAddr string

	// Primary is the primary model backend.
	Primary BackendSettings

	// Fallback is the fallback model backend.
	Fallback BackendSettings

	// Queue configures the coordinators.
	Queue QueueSettings

	// Orchestrator configures the analysis protocol.
	Orchestrator OrchestratorSettings

	// Scoring configures the scoring engine.
	Scoring ScoringConfig
}

// DefaultSettings returns sensible defaults for everything except
// backend credentials.
func DefaultSettings() Settings {
	return Settings{
		ListenAddr: ":8080",
		Queue: QueueSettings{
			PollInterval:       10 * time.Second,
			ExportPollInterval: 30 * time.Second,
			MaxAttempts:        DefaultMaxAttempts,
		},
		Orchestrator: OrchestratorSettings{
			ConfidenceCutoff: 0.7,
		},
		Scoring: DefaultScoringConfig(),
	}
}
