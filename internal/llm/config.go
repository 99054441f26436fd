// Package llm provides centralized LLM configuration and client abstractions.
// Sessions pick a model tier once at creation; every AI call of the session then
// resolves the tier to a concrete model through Config.
package llm

import "strings"

// ModelTier represents the complexity/capability level of a model
type ModelTier string

const (
	// TierLite is for free plans and simple tasks such as transcription
	TierLite ModelTier = "lite"
	// TierStandard is the default tier for question generation and evaluation
	TierStandard ModelTier = "standard"
	// TierAdvanced is for paid plans: deeper evaluation and richer reports
	TierAdvanced ModelTier = "advanced"
)

// Provider represents an LLM provider
type Provider string

// ProviderGemini is the Google Gemini provider
const ProviderGemini Provider = "gemini"

// Config holds the model configuration for the application
type Config struct {
	Provider Provider
	Models   map[ModelTier]string
	// PlanTiers maps a subscription plan to the tier its sessions use
	PlanTiers map[string]ModelTier
	// Temperature applies to every generation call
	Temperature float32
}

// DefaultConfig returns the default configuration (currently Gemini)
func DefaultConfig() *Config {
	return DefaultGeminiConfig()
}

// DefaultGeminiConfig returns the default Gemini configuration
func DefaultGeminiConfig() *Config {
	return &Config{
		Provider: ProviderGemini,
		Models: map[ModelTier]string{
			TierLite:     "gemini-2.5-flash-lite",
			TierStandard: "gemini-2.5-flash",
			TierAdvanced: "gemini-2.5-pro",
		},
		PlanTiers:   DefaultPlanTiers(),
		Temperature: 0.4,
	}
}

// DefaultPlanTiers is the plan to tier mapping used when none is configured
func DefaultPlanTiers() map[string]ModelTier {
	return map[string]ModelTier{
		"free":       TierLite,
		"basic":      TierStandard,
		"pro":        TierAdvanced,
		"enterprise": TierAdvanced,
	}
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
	return "" // No model configured
}

// WithModel returns a new Config with a specific model for a tier
func (c *Config) WithModel(tier ModelTier, model string) *Config {
	newConfig := &Config{
		Provider:    c.Provider,
		Models:      make(map[ModelTier]string),
		PlanTiers:   c.PlanTiers,
		Temperature: c.Temperature,
	}
	for k, v := range c.Models {
		newConfig.Models[k] = v
	}
	newConfig.Models[tier] = model
	return newConfig
}

// TierForPlan resolves the tier for a subscription plan. Unknown or empty plans
// get TierLite.
func (c *Config) TierForPlan(plan string) ModelTier {
	tiers := c.PlanTiers
	if tiers == nil {
		tiers = DefaultPlanTiers()
	}
	if tier, ok := tiers[strings.ToLower(strings.TrimSpace(plan))]; ok {
		return tier
	}
	return TierLite
}

// TierForPlan resolves a plan with the default mapping
func TierForPlan(plan string) ModelTier {
	return DefaultConfig().TierForPlan(plan)
}

// ParseTier converts a stored tier name back to a ModelTier, defaulting to TierStandard
func ParseTier(s string) ModelTier {
	switch t := ModelTier(strings.ToLower(strings.TrimSpace(s))); t {
	case TierLite, TierStandard, TierAdvanced:
		return t
	}
	return TierStandard
}
