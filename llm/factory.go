// Provider construction.
//
// Information Hiding:
// - Vendor SDK constructors hidden behind ProviderType
// - Inference defaults applied when left unset
//
// API keys and model selection come from the caller (see package config);
// this file never reads the environment.

package llm

import (
	"errors"
	"fmt"
	"strings"
)

// ProviderType names a vendor whose models accept image input.
type ProviderType int

const (
	ProviderOpenAI ProviderType = iota
	ProviderAnthropic
	ProviderGemini
)

func (p ProviderType) String() string {
	switch p {
	case ProviderOpenAI:
		return "openai"
	case ProviderAnthropic:
		return "anthropic"
	case ProviderGemini:
		return "gemini"
	default:
		return "unknown"
	}
}

// ParseProviderType accepts canonical names and the aliases gpt, claude and google.
func ParseProviderType(s string) (ProviderType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "openai", "gpt":
		return ProviderOpenAI, nil
	case "anthropic", "claude":
		return ProviderAnthropic, nil
	case "gemini", "google":
		return ProviderGemini, nil
	default:
		return 0, fmt.Errorf("unknown provider: %q", s)
	}
}

// Inference defaults used when the builder leaves them unset.
const (
	DefaultMaxTokens   = 8192
	DefaultTemperature = 1.0
)

// Model identifiers used as per-provider defaults.
const (
	ModelOpenAIGPT4o            = "gpt-4o"
	ModelOpenAIGPT4oMini        = "gpt-4o-mini"
	ModelAnthropicClaudeSonnet4 = "claude-sonnet-4-20250514"
	ModelGeminiFlash2           = "gemini-2.0-flash"
)

// ProviderBuilder collects model settings before Build picks the vendor SDK.
type ProviderBuilder struct {
	providerType ProviderType
	model        string
	maxTokens    uint32
	temperature  *float32
}

// NewProviderBuilder creates a builder for providerType.
func NewProviderBuilder(providerType ProviderType) *ProviderBuilder {
	return &ProviderBuilder{providerType: providerType}
}

// Model sets the model identifier. It is required.
func (b *ProviderBuilder) Model(model string) *ProviderBuilder {
	b.model = model
	return b
}

// MaxTokens caps each response. Zero means DefaultMaxTokens.
func (b *ProviderBuilder) MaxTokens(tokens uint32) *ProviderBuilder {
	b.maxTokens = tokens
	return b
}

// Temperature sets the sampling temperature. Unset means DefaultTemperature.
func (b *ProviderBuilder) Temperature(temp float32) *ProviderBuilder {
	b.temperature = &temp
	return b
}

// Build creates the provider with apiKey.
func (b *ProviderBuilder) Build(apiKey string) (Provider, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("%s: API key is empty", b.providerType)
	}
	if b.model == "" {
		return nil, errors.New(b.providerType.String() + ": model is empty")
	}

	maxTokens := b.maxTokens
	if maxTokens == 0 {
		maxTokens = DefaultMaxTokens
	}
	temperature := float32(DefaultTemperature)
	if b.temperature != nil {
		temperature = *b.temperature
	}

	switch b.providerType {
	case ProviderOpenAI:
		return NewOpenAIProvider(apiKey, b.model, maxTokens, temperature), nil
	case ProviderAnthropic:
		return NewAnthropicProvider(apiKey, b.model, maxTokens, temperature), nil
	case ProviderGemini:
		return NewGeminiProvider(apiKey, b.model, maxTokens, temperature), nil
	default:
		return nil, fmt.Errorf("unknown provider type: %v", b.providerType)
	}
}
