// Package schema holds the JSON types exchanged between the orchestrator and the backend.
package schema

import "time"

type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// AISettings are passed through verbatim to the generation endpoints.
type AISettings struct {
	Temperature      float64 `json:"temperature"`
	MaxTokens        int     `json:"maxTokens"`
	TopP             float64 `json:"topP"`
	StreamOutput     bool    `json:"streamOutput"`
	FrequencyPenalty float64 `json:"frequencyPenalty"`
	PresencePenalty  float64 `json:"presencePenalty"`
}

type IdeaRequest struct {
	Model    string     `json:"model"`
	Settings AISettings `json:"settings"`
}

type RefinePromptRequest struct {
	Model    string     `json:"model"`
	Prompt   string     `json:"prompt"`
	Settings AISettings `json:"settings"`
}

type GenerateRequest struct {
	Model    string     `json:"model"`
	Messages []Message  `json:"messages"`
	Settings AISettings `json:"settings"`
}

type CreateAppRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
	Code   string `json:"code"`
}

type GeneratedApp struct {
	ID        string          `json:"id"`
	Code      string          `json:"code"`
	Model     string          `json:"model"`
	Prompt    string          `json:"prompt"`
	Analytics *TokenAnalytics `json:"analytics,omitempty"`
	CreatedAt time.Time       `json:"createdAt"`
}

type TokenAnalyticsRequest struct {
	Model          string `json:"model"`
	Prompt         string `json:"prompt"`
	GeneratedCode  string `json:"generatedCode"`
	GeneratedAppID string `json:"generatedAppId,omitempty"`
}

// TokenAnalytics is the usage of a single exchange.
type TokenAnalytics struct {
	Model                 string  `json:"model"`
	Provider              string  `json:"provider"`
	PromptTokens          int     `json:"promptTokens"`
	ResponseTokens        int     `json:"responseTokens"`
	TotalTokens           int     `json:"totalTokens"`
	MaxTokens             int     `json:"maxTokens"`
	UtilizationPercentage float64 `json:"utilizationPercentage"`
}

// CumulativeTokenAnalytics carries the latest exchange plus running sums for the session.
// UtilizationPercentage is recomputed from the cumulative total.
type CumulativeTokenAnalytics struct {
	TokenAnalytics
	CumulativePromptTokens   int `json:"cumulativePromptTokens"`
	CumulativeResponseTokens int `json:"cumulativeResponseTokens"`
	CumulativeTotalTokens    int `json:"cumulativeTotalTokens"`
}

type SaveGenerationRequest struct {
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	AppID       string `json:"appId"`
}

type SavedGeneration struct {
	ID           string       `json:"id"`
	Title        string       `json:"title"`
	Description  string       `json:"description,omitempty"`
	CreatedAt    time.Time    `json:"createdAt"`
	GeneratedApp GeneratedApp `json:"generatedApp"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}
