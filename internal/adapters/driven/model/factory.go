// Package model constructs model backends from settings.
package model

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/falcon245sp/SBG-with-AQI-sub002/internal/adapters/driven/model/anthropic"
	"github.com/falcon245sp/SBG-with-AQI-sub002/internal/adapters/driven/model/openai"
	"github.com/falcon245sp/SBG-with-AQI-sub002/internal/core/domain"
	"github.com/falcon245sp/SBG-with-AQI-sub002/internal/core/ports/driven"
)

// pingTimeout bounds backend validation at construction time.
const pingTimeout = 15 * time.Second

// CreateBackend builds a model backend from settings.
func CreateBackend(settings domain.BackendSettings) (driven.ModelBackend, error) {
	if !settings.IsConfigured() {
		return nil, fmt.Errorf("model: backend %q is not configured: %w", settings.Provider, domain.ErrBackendUnavailable)
	}

	switch settings.Provider {
	case domain.ProviderOpenAI:
		return openai.NewBackend(openai.Config{
			APIKey:            settings.APIKey,
			BaseURL:           settings.BaseURL,
			Model:             settings.Model,
			Timeout:           settings.Timeout,
			RequestsPerMinute: settings.RequestsPerMinute,
		})
	case domain.ProviderAnthropic:
		return anthropic.NewBackend(anthropic.Config{
			APIKey:            settings.APIKey,
			BaseURL:           settings.BaseURL,
			Model:             settings.Model,
			Timeout:           settings.Timeout,
			RequestsPerMinute: settings.RequestsPerMinute,
		})
	default:
		return nil, fmt.Errorf("model: unsupported provider %q", settings.Provider)
	}
}

// CreateValidatedBackend builds a backend and pings it. A failed ping
// is logged as a warning but does not fail construction, so the service
// can start while a provider is having a bad moment.
func CreateValidatedBackend(ctx context.Context, settings domain.BackendSettings) (driven.ModelBackend, error) {
	backend, err := CreateBackend(settings)
	if err != nil {
		return nil, err
	}

	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := backend.Ping(pingCtx); err != nil {
		log.Printf("model: warning: %s ping failed: %v", backend.Name(), err)
	}
	return backend, nil
}
