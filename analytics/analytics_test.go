package analytics

import (
	"context"
	"testing"

	"github.com/santiagomed/conjure/logger"
	"github.com/santiagomed/conjure/schema"
	"github.com/santiagomed/conjure/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockAppRepository lets each test define only the behaviour it needs.
type mockAppRepository struct {
	GetFunc             func(ctx context.Context, id string) (*store.App, error)
	CreateFunc          func(ctx context.Context, app *store.App) error
	UpdateAnalyticsFunc func(ctx context.Context, id string, analytics *schema.TokenAnalytics) error
}

func (m *mockAppRepository) Get(ctx context.Context, id string) (*store.App, error) {
	return m.GetFunc(ctx, id)
}

func (m *mockAppRepository) Create(ctx context.Context, app *store.App) error {
	return m.CreateFunc(ctx, app)
}

func (m *mockAppRepository) UpdateAnalytics(ctx context.Context, id string, analytics *schema.TokenAnalytics) error {
	return m.UpdateAnalyticsFunc(ctx, id, analytics)
}

func TestCountTokens(t *testing.T) {
	tests := []struct {
		input    string
		expected int
	}{
		{"", 0},
		{"hello", 1},
		{"hello world", 2},
		{"hello world hello world", 4},
	}
	for _, tt := range tests {
		n, err := CountTokens(tt.input)
		require.NoError(t, err)
		assert.Equal(t, tt.expected, n, tt.input)
	}

	short, err := CountTokens("export default function App(){}")
	require.NoError(t, err)
	long, err := CountTokens("export default function App(){}\nexport const x = 1;")
	require.NoError(t, err)
	assert.Greater(t, long, short)
}

func TestService_Compute(t *testing.T) {
	var storedID string
	var stored *schema.TokenAnalytics
	repo := &mockAppRepository{
		UpdateAnalyticsFunc: func(ctx context.Context, id string, a *schema.TokenAnalytics) error {
			storedID, stored = id, a
			return nil
		},
	}
	s := NewService(repo, logger.NewNullLogger())

	a, err := s.Compute(context.Background(), schema.TokenAnalyticsRequest{
		Model:          "deepseek-chat",
		Prompt:         "hello world",
		GeneratedCode:  "hello world hello world",
		GeneratedAppID: "app-1",
	})
	require.NoError(t, err)
	assert.Equal(t, schema.ProviderDeepSeek, a.Provider)
	assert.Equal(t, 2, a.PromptTokens)
	assert.Equal(t, 4, a.ResponseTokens)
	assert.Equal(t, 6, a.TotalTokens)
	assert.Equal(t, 64000, a.MaxTokens)
	assert.Equal(t, 0.01, a.UtilizationPercentage)
	assert.Equal(t, "app-1", storedID)
	assert.Equal(t, a, stored)
}

func TestService_ComputeErrors(t *testing.T) {
	repo := &mockAppRepository{
		UpdateAnalyticsFunc: func(ctx context.Context, id string, a *schema.TokenAnalytics) error {
			return store.ErrNotFound
		},
	}
	s := NewService(repo, logger.NewNullLogger())

	_, err := s.Compute(context.Background(), schema.TokenAnalyticsRequest{Model: "gpt-9"})
	assert.ErrorIs(t, err, ErrUnknownModel)

	_, err = s.Compute(context.Background(), schema.TokenAnalyticsRequest{Model: "gpt-4o", GeneratedAppID: "gone"})
	assert.ErrorIs(t, err, store.ErrNotFound)

	a, err := s.Compute(context.Background(), schema.TokenAnalyticsRequest{Model: "gpt-4o", Prompt: "hello"})
	require.NoError(t, err)
	assert.Equal(t, 1, a.TotalTokens)
}
