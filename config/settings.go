// Package config provides application settings loaded from environment variables.
//
// Settings are created via Load() which handles:
// - Environment variable parsing with validation
// - Default value application
// - Provider-specific configuration lookup

package config

import (
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"

	"github.com/richinex/svgpainter/llm"
)

// EnvPrefix prefixes every settings variable.
const EnvPrefix = "PAINTER_"

// Settings holds all application configuration.
type Settings struct {
	LLM       LLMConfig
	Retry     RetryConfig
	Workspace WorkspaceConfig

	MaxTurns     int    `env:"MAX_TURNS" envDefault:"0"`
	TranscriptDB string `env:"TRANSCRIPT_DB"`
	Usecase      string `env:"USECASE" envDefault:"painter"`
}

// LLMConfig holds LLM provider configuration.
type LLMConfig struct {
	Provider    string  `env:"PROVIDER" envDefault:"anthropic"`
	Model       string  `env:"MODEL"`
	MaxTokens   uint32  `env:"MAX_TOKENS" envDefault:"8192"`
	Temperature float64 `env:"TEMPERATURE" envDefault:"1.0"`
}

// RetryConfig holds the model call retry policy.
type RetryConfig struct {
	MaxRetries   int           `env:"MAX_RETRIES" envDefault:"10"`
	InitialDelay time.Duration `env:"RETRY_INITIAL_DELAY" envDefault:"1s"`
	MaxDelay     time.Duration `env:"RETRY_MAX_DELAY" envDefault:"120s"`
	MaxJitter    time.Duration `env:"RETRY_MAX_JITTER" envDefault:"1s"`
}

// WorkspaceConfig holds the directories a run writes to.
type WorkspaceConfig struct {
	WorkDir  string `env:"WORK_DIR" envDefault:"work"`
	ImageDir string `env:"IMAGE_DIR" envDefault:"image"`
	LogDir   string `env:"LOG_DIR" envDefault:"logs"`
}

// providerInfo holds configuration for a specific LLM provider.
type providerInfo struct {
	modelEnv     string
	defaultModel string
	apiKeyEnv    string
}

// Supported providers and their configuration. Every entry accepts image input.
// This table is the only place provider env names and default models live.
var providers = map[string]providerInfo{
	"openai":    {"OPENAI_MODEL", llm.ModelOpenAIGPT4o, "OPENAI_API_KEY"},
	"anthropic": {"ANTHROPIC_MODEL", llm.ModelAnthropicClaudeSonnet4, "ANTHROPIC_API_KEY"},
	"gemini":    {"GEMINI_MODEL", llm.ModelGeminiFlash2, "GEMINI_API_KEY"},
}

// Provider aliases map to canonical names.
var providerAliases = map[string]string{
	"claude": "anthropic",
	"google": "gemini",
	"gpt":    "openai",
}

// Load reads settings from the environment. A non-empty provider overrides
// PAINTER_PROVIDER. The model falls back to the provider's model variable and
// then to its default.
func Load(provider string) (Settings, error) {
	var s Settings
	if err := env.ParseWithOptions(&s, env.Options{Prefix: EnvPrefix}); err != nil {
		return Settings{}, fmt.Errorf("config: %w", err)
	}

	if provider != "" {
		s.LLM.Provider = provider
	}
	s.LLM.Provider = normalizeProvider(s.LLM.Provider)

	if s.LLM.Model == "" {
		model, err := ModelFor(s.LLM.Provider)
		if err != nil {
			return Settings{}, err
		}
		s.LLM.Model = model
	} else if _, err := getProviderInfo(s.LLM.Provider); err != nil {
		return Settings{}, err
	}

	if err := s.validate(); err != nil {
		return Settings{}, err
	}
	return s, nil
}

func (s Settings) validate() error {
	switch {
	case s.MaxTurns < 0:
		return fmt.Errorf("config: %sMAX_TURNS must not be negative, got %d", EnvPrefix, s.MaxTurns)
	case s.Retry.MaxRetries < 1:
		return fmt.Errorf("config: %sMAX_RETRIES must be at least 1, got %d", EnvPrefix, s.Retry.MaxRetries)
	case s.Retry.InitialDelay <= 0 || s.Retry.MaxDelay <= 0:
		return fmt.Errorf("config: retry delays must be positive")
	case s.Retry.MaxJitter < 0:
		return fmt.Errorf("config: %sRETRY_MAX_JITTER must not be negative", EnvPrefix)
	case s.LLM.Temperature < 0:
		return fmt.Errorf("config: %sTEMPERATURE must not be negative", EnvPrefix)
	case s.Workspace.WorkDir == "" || s.Workspace.ImageDir == "" || s.Workspace.LogDir == "":
		return fmt.Errorf("config: workspace directories must not be empty")
	}
	return nil
}

// RetryPolicy converts the retry settings into an llm.RetryPolicy.
func (s Settings) RetryPolicy() llm.RetryPolicy {
	return llm.RetryPolicy{
		MaxRetries:   s.Retry.MaxRetries,
		InitialDelay: s.Retry.InitialDelay,
		MaxDelay:     s.Retry.MaxDelay,
		MaxJitter:    s.Retry.MaxJitter,
	}
}

// ProviderType returns the llm provider type for the configured provider.
func (s Settings) ProviderType() (llm.ProviderType, error) {
	return llm.ParseProviderType(s.LLM.Provider)
}

// normalizeProvider converts provider aliases to canonical names.
func normalizeProvider(provider string) string {
	provider = strings.ToLower(strings.TrimSpace(provider))
	if canonical, ok := providerAliases[provider]; ok {
		return canonical
	}
	return provider
}

// getProviderInfo returns configuration for a provider.
func getProviderInfo(provider string) (providerInfo, error) {
	info, ok := providers[provider]
	if !ok {
		return providerInfo{}, fmt.Errorf("unknown provider: %q (supported: %s)",
			provider, strings.Join(SupportedProviders(), ", "))
	}
	return info, nil
}

// APIKey returns the API key of the configured provider.
func (s Settings) APIKey() (string, error) {
	return APIKeyFor(s.LLM.Provider)
}

// APIKeyFor returns the API key for a provider from environment variables.
func APIKeyFor(provider string) (string, error) {
	info, err := getProviderInfo(normalizeProvider(provider))
	if err != nil {
		return "", err
	}

	key := os.Getenv(info.apiKeyEnv)
	if key == "" {
		return "", fmt.Errorf("%s environment variable not set", info.apiKeyEnv)
	}
	return key, nil
}

// ModelFor returns the model for a provider, checking environment first.
func ModelFor(provider string) (string, error) {
	info, err := getProviderInfo(normalizeProvider(provider))
	if err != nil {
		return "", err
	}

	if val := os.Getenv(info.modelEnv); val != "" {
		return val, nil
	}
	return info.defaultModel, nil
}

// SupportedProviders returns the sorted list of supported provider names.
func SupportedProviders() []string {
	result := make([]string, 0, len(providers))
	for name := range providers {
		result = append(result, name)
	}
	sort.Strings(result)
	return result
}
