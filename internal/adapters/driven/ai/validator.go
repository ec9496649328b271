package ai

import (
	"context"
	"fmt"
	"time"

	"github.com/custodia-labs/lexgraph/internal/core/domain"
	"github.com/custodia-labs/lexgraph/internal/core/ports/driven"
)

// Ensure ConfigValidator implements the interface.
var _ driven.AIConfigValidator = (*ConfigValidator)(nil)

// sampleText is embedded once to measure the provider's real vector size.
const sampleText = "Article 16 application for authorisation"

// ConfigValidator checks provider settings before the settings commands
// accept them. Settings must be complete, the provider must answer a ping
// and a sample embedding must have the configured number of dimensions.
type ConfigValidator struct {
	timeout      time.Duration
	newEmbedding func(context.Context, *domain.EmbeddingSettings) (driven.EmbeddingService, error)
	newLLM       func(context.Context, *domain.LLMSettings) (driven.LLMService, error)
}

// NewConfigValidator creates a validator that talks to the real providers.
func NewConfigValidator() *ConfigValidator {
	return &ConfigValidator{
		timeout:      pingTimeout,
		newEmbedding: CreateEmbeddingService,
		newLLM:       CreateLLMService,
	}
}

// ValidateEmbedding rejects incomplete settings, pings the provider and
// compares the size of a sample vector with config.Dimensions.
// An empty provider has nothing to validate.
func (v *ConfigValidator) ValidateEmbedding(config *domain.EmbeddingSettings) error {
	if config == nil || config.Provider == "" {
		return nil
	}
	if err := checkEmbeddingSettings(config); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), v.timeout)
	defer cancel()

	svc, err := v.newEmbedding(ctx, config)
	if err != nil || svc == nil {
		return err
	}
	defer svc.Close()

	if err := svc.Ping(ctx); err != nil {
		return fmt.Errorf("%s embedding: %w", config.Provider, err)
	}
	if config.Dimensions == 0 {
		return nil
	}

	vec, err := svc.Embed(ctx, sampleText)
	if err != nil {
		return fmt.Errorf("%s sample embedding: %w", config.Provider, err)
	}
	if len(vec) != config.Dimensions {
		return fmt.Errorf("%s returned %d dimensions, configured %d: %w",
			svc.ModelName(), len(vec), config.Dimensions, domain.ErrDimensionMismatch)
	}
	return nil
}

// ValidateLLM rejects incomplete settings and pings the provider.
// An empty provider has nothing to validate.
func (v *ConfigValidator) ValidateLLM(config *domain.LLMSettings) error {
	if config == nil || config.Provider == "" {
		return nil
	}
	switch {
	case !config.Provider.IsValid():
		return fmt.Errorf("%w: unknown llm provider %q", domain.ErrConfiguration, config.Provider)
	case config.Provider == domain.AIProviderHash:
		return fmt.Errorf("%w: the hash provider cannot generate answers", domain.ErrConfiguration)
	case config.Provider.RequiresAPIKey() && config.APIKey == "":
		return fmt.Errorf("%s: %w", config.Provider, domain.ErrMissingCredentials)
	}

	ctx, cancel := context.WithTimeout(context.Background(), v.timeout)
	defer cancel()

	svc, err := v.newLLM(ctx, config)
	if err != nil || svc == nil {
		return err
	}
	defer svc.Close()

	if err := svc.Ping(ctx); err != nil {
		return fmt.Errorf("%s llm: %w", config.Provider, err)
	}
	return nil
}

func checkEmbeddingSettings(config *domain.EmbeddingSettings) error {
	switch {
	case !config.Provider.IsValid():
		return fmt.Errorf("%w: unknown embedding provider %q", domain.ErrConfiguration, config.Provider)
	case config.Provider == domain.AIProviderAnthropic:
		return fmt.Errorf("%w: anthropic does not serve embeddings", domain.ErrConfiguration)
	case config.Provider.RequiresAPIKey() && config.APIKey == "":
		return fmt.Errorf("%s: %w", config.Provider, domain.ErrMissingCredentials)
	case config.Dimensions < 0:
		return fmt.Errorf("%w: embedding.dimensions must not be negative", domain.ErrConfiguration)
	case config.Provider == domain.AIProviderHash && config.Dimensions == 0:
		return fmt.Errorf("%w: the hash provider needs embedding.dimensions", domain.ErrConfiguration)
	}
	return nil
}
