package core

import (
	"testing"

	"github.com/santiagomed/conjure/schema"
	"github.com/stretchr/testify/assert"
)

func TestDefaultsFor(t *testing.T) {
	assert.Equal(t, 0.0, DefaultsFor(schema.ProviderDeepSeek).Temperature)
	for _, p := range []string{schema.ProviderOpenAI, schema.ProviderAnthropic, schema.ProviderGoogle} {
		assert.Equal(t, 0.7, DefaultsFor(p).Temperature, p)
	}

	assert.Equal(t, 64000, DefaultsFor(schema.ProviderOpenAI).MaxTokens)
	assert.Equal(t, 200000, DefaultsFor(schema.ProviderAnthropic).MaxTokens)
	assert.Equal(t, 1000000, DefaultsFor(schema.ProviderGoogle).MaxTokens)
	assert.Equal(t, 8192, DefaultsFor(schema.ProviderDeepSeek).MaxTokens)
	assert.Equal(t, 64000, DefaultsFor("mistral").MaxTokens)

	d := DefaultsFor(schema.ProviderOpenAI)
	assert.Equal(t, 1.0, d.TopP)
	assert.True(t, d.StreamOutput)
	assert.Zero(t, d.FrequencyPenalty)
	assert.Zero(t, d.PresencePenalty)
}

func TestApplyProviderChange(t *testing.T) {
	current := DefaultsFor(schema.ProviderOpenAI)
	current.TopP = 0.5
	current.Temperature = 1.2

	same := ApplyProviderChange(current, schema.ProviderOpenAI, schema.ProviderOpenAI)
	assert.Equal(t, current, same)

	got := ApplyProviderChange(current, schema.ProviderOpenAI, schema.ProviderGoogle)
	assert.Equal(t, 1000000, got.MaxTokens)
	assert.Equal(t, 0.7, got.Temperature)
	assert.Equal(t, 0.5, got.TopP)
}
