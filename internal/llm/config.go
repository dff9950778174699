// Package llm wraps the Gemini API behind a small client interface and
// implements the advisory application evaluator.
package llm

// ModelTier represents the complexity/capability level of a model
type ModelTier string

const (
	// TierLite is for short answers such as suggested form responses
	TierLite ModelTier = "lite"
	// TierStandard is for structured evaluation output
	TierStandard ModelTier = "standard"
	// TierAdvanced is reserved for longer reasoning
	TierAdvanced ModelTier = "advanced"
)

// Provider represents an LLM provider
type Provider string

// ProviderGemini is the Google Gemini provider
const ProviderGemini Provider = "gemini"

// DefaultMaxTokens bounds the response length when none is configured.
const DefaultMaxTokens = 1024

// Config holds the model configuration
type Config struct {
	Provider  Provider
	Models    map[ModelTier]string
	MaxTokens int
}

// DefaultConfig returns the default Gemini configuration
func DefaultConfig() *Config {
	return &Config{
		Provider: ProviderGemini,
		Models: map[ModelTier]string{
			TierLite:     "gemini-2.5-flash-lite",
			TierStandard: "gemini-2.5-flash",
			TierAdvanced: "gemini-2.5-pro",
		},
		MaxTokens: DefaultMaxTokens,
	}
}

// NewConfig returns the default configuration with model as the standard
// tier. Empty model and non-positive maxTokens keep the defaults.
func NewConfig(model string, maxTokens int) *Config {
	cfg := DefaultConfig()
	if model != "" {
		cfg = cfg.WithModel(TierStandard, model)
	}
	if maxTokens > 0 {
		cfg.MaxTokens = maxTokens
	}
	return cfg
}

// GetModel returns the model name for a given tier
func (c *Config) GetModel(tier ModelTier) string {
	if model, ok := c.Models[tier]; ok {
		return model
	}
	// Fallback chain: try standard, then lite
	if model, ok := c.Models[TierStandard]; ok {
		return model
	}
	if model, ok := c.Models[TierLite]; ok {
		return model
	}
	return ""
}

// WithModel returns a new Config with a specific model for a tier
func (c *Config) WithModel(tier ModelTier, model string) *Config {
	newConfig := &Config{
		Provider:  c.Provider,
		Models:    make(map[ModelTier]string, len(c.Models)+1),
		MaxTokens: c.MaxTokens,
	}
	for k, v := range c.Models {
		newConfig.Models[k] = v
	}
	newConfig.Models[tier] = model
	return newConfig
}
