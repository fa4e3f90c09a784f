package core

import "github.com/santiagomed/conjure/schema"

// Output ceilings per provider. Unknown providers use the OpenAI ceiling.
var providerMaxTokens = map[string]int{
	schema.ProviderOpenAI:    64000,
	schema.ProviderAnthropic: 200000,
	schema.ProviderGoogle:    1000000,
	schema.ProviderDeepSeek:  8192,
}

// DefaultsFor returns the generation settings a provider starts with.
func DefaultsFor(provider string) schema.AISettings {
	temperature := 0.7
	if provider == schema.ProviderDeepSeek {
		temperature = 0.0
	}
	maxTokens, ok := providerMaxTokens[provider]
	if !ok {
		maxTokens = providerMaxTokens[schema.ProviderOpenAI]
	}
	return schema.AISettings{
		Temperature:      temperature,
		MaxTokens:        maxTokens,
		TopP:             1,
		StreamOutput:     true,
		FrequencyPenalty: 0,
		PresencePenalty:  0,
	}
}

// ApplyProviderChange overwrites temperature and maxTokens when the provider changes.
// Everything else the user set is kept.
func ApplyProviderChange(current schema.AISettings, from, to string) schema.AISettings {
	if from == to {
		return current
	}
	defaults := DefaultsFor(to)
	current.Temperature = defaults.Temperature
	current.MaxTokens = defaults.MaxTokens
	return current
}
