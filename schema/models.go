package schema

const (
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
	ProviderGoogle    = "google"
	ProviderDeepSeek  = "deepseek"
)

// DefaultModel is selected for a fresh session.
const DefaultModel = "gpt-4o"

// Model is a single selectable language model.
type Model struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Provider string `json:"provider"`
	// MaxTokens is the context ceiling used for utilization.
	MaxTokens int `json:"maxTokens"`
	// MaxOutputTokens caps a single response regardless of the requested maxTokens.
	MaxOutputTokens int `json:"maxOutputTokens"`
	// Reasoning models accept no sampling parameters.
	Reasoning bool `json:"reasoning,omitempty"`
}

var Catalog = []Model{
	{ID: "gpt-4o", Name: "GPT-4o", Provider: ProviderOpenAI, MaxTokens: 128000, MaxOutputTokens: 16384},
	{ID: "gpt-4o-mini", Name: "GPT-4o mini", Provider: ProviderOpenAI, MaxTokens: 128000, MaxOutputTokens: 16384},
	{ID: "o3-mini", Name: "o3-mini", Provider: ProviderOpenAI, MaxTokens: 200000, MaxOutputTokens: 100000, Reasoning: true},
	{ID: "claude-3-7-sonnet-20250219", Name: "Claude 3.7 Sonnet", Provider: ProviderAnthropic, MaxTokens: 200000, MaxOutputTokens: 64000},
	{ID: "claude-3-5-haiku-20241022", Name: "Claude 3.5 Haiku", Provider: ProviderAnthropic, MaxTokens: 200000, MaxOutputTokens: 8192},
	{ID: "gemini-2.0-flash", Name: "Gemini 2.0 Flash", Provider: ProviderGoogle, MaxTokens: 1048576, MaxOutputTokens: 8192},
	{ID: "gemini-1.5-pro", Name: "Gemini 1.5 Pro", Provider: ProviderGoogle, MaxTokens: 2097152, MaxOutputTokens: 8192},
	{ID: "deepseek-chat", Name: "DeepSeek V3", Provider: ProviderDeepSeek, MaxTokens: 64000, MaxOutputTokens: 8192},
	{ID: "deepseek-reasoner", Name: "DeepSeek R1", Provider: ProviderDeepSeek, MaxTokens: 64000, MaxOutputTokens: 8192},
}

// LookupModel finds a catalogue entry by id.
func LookupModel(id string) (Model, bool) {
	for _, m := range Catalog {
		if m.ID == id {
			return m, true
		}
	}
	return Model{}, false
}

// OutputLimit clamps a requested response size to the model's output ceiling.
func (m Model) OutputLimit(requested int) int {
	if m.MaxOutputTokens > 0 && (requested <= 0 || requested > m.MaxOutputTokens) {
		return m.MaxOutputTokens
	}
	return requested
}

// ProviderOf returns the provider serving the model, or "" when the model is unknown.
func ProviderOf(id string) string {
	m, ok := LookupModel(id)
	if !ok {
		return ""
	}
	return m.Provider
}
