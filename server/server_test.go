package server

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/santiagomed/conjure/analytics"
	"github.com/santiagomed/conjure/llm"
	"github.com/santiagomed/conjure/logger"
	"github.com/santiagomed/conjure/schema"
	"github.com/santiagomed/conjure/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeGenerator writes fixed chunks, then optionally fails.
type fakeGenerator struct {
	chunks   []string
	err      error
	messages []schema.Message
	prompt   string
}

func (g *fakeGenerator) Models() []schema.Model { return schema.Catalog[:2] }

func (g *fakeGenerator) Check(model string) error {
	if _, ok := schema.LookupModel(model); !ok {
		return fmt.Errorf("%w: %q", llm.ErrUnknownModel, model)
	}
	return nil
}

func (g *fakeGenerator) write(w io.Writer) error {
	for _, c := range g.chunks {
		if _, err := io.WriteString(w, c); err != nil {
			return err
		}
	}
	return g.err
}

func (g *fakeGenerator) GenerateIdea(ctx context.Context, model string, settings schema.AISettings, w io.Writer) error {
	return g.write(w)
}

func (g *fakeGenerator) RefinePrompt(ctx context.Context, model, prompt string, settings schema.AISettings, w io.Writer) error {
	g.prompt = prompt
	return g.write(w)
}

func (g *fakeGenerator) GenerateCode(ctx context.Context, model string, messages []schema.Message, settings schema.AISettings, w io.Writer) error {
	g.messages = messages
	return g.write(w)
}

func newTestServer(t *testing.T, g *fakeGenerator) *httptest.Server {
	t.Helper()
	db, err := store.Init(store.Config{Path: filepath.Join(t.TempDir(), "conjure.db")})
	require.NoError(t, err)
	apps := store.NewAppRepository(db)
	s := New(g, analytics.NewService(apps, logger.NewNullLogger()), apps, store.NewSavedGenerationRepository(db), time.Minute, logger.NewNullLogger())
	srv := httptest.NewServer(s.Handler())
	t.Cleanup(func() {
		srv.Close()
		sqlDB, _ := db.DB()
		_ = sqlDB.Close()
	})
	return srv
}

func post(t *testing.T, url string, body interface{}) *http.Response {
	t.Helper()
	b, err := json.Marshal(body)
	require.NoError(t, err)
	resp, err := http.Post(url, "application/json", bytes.NewReader(b))
	require.NoError(t, err)
	return resp
}

func readBody(t *testing.T, resp *http.Response) string {
	t.Helper()
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return string(b)
}

func TestGenerate_Streams(t *testing.T) {
	g := &fakeGenerator{chunks: []string{"```tsx\n", "export default function App(){}", "\n```"}}
	srv := newTestServer(t, g)

	resp := post(t, srv.URL+"/api/generate", schema.GenerateRequest{
		Model:    "gpt-4o",
		Messages: []schema.Message{{Role: schema.RoleUser, Content: "calculator"}},
		Settings: schema.AISettings{StreamOutput: true},
	})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/plain; charset=utf-8", resp.Header.Get("Content-Type"))
	assert.Equal(t, int64(-1), resp.ContentLength)
	assert.Equal(t, "```tsx\nexport default function App(){}\n```", readBody(t, resp))
	assert.Equal(t, "calculator", g.messages[0].Content)
}

func TestGenerate_Validation(t *testing.T) {
	srv := newTestServer(t, &fakeGenerator{})

	resp := post(t, srv.URL+"/api/generate", schema.GenerateRequest{Model: "gpt-4o"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, readBody(t, resp), "messages are required")

	resp = post(t, srv.URL+"/api/generate", schema.GenerateRequest{
		Model:    "gpt-9",
		Messages: []schema.Message{{Role: schema.RoleUser, Content: "x"}},
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	var e schema.ErrorResponse
	require.NoError(t, json.Unmarshal([]byte(readBody(t, resp)), &e))
	assert.Contains(t, e.Error, "unknown model")

	resp, err := http.Post(srv.URL+"/api/generate", "application/json", strings.NewReader("{"))
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()

	resp, err = http.Get(srv.URL + "/api/generate")
	require.NoError(t, err)
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
	resp.Body.Close()
}

func TestGenerate_UpstreamFailure(t *testing.T) {
	srv := newTestServer(t, &fakeGenerator{err: errors.New("rate limited by openai API")})

	resp := post(t, srv.URL+"/api/generate-idea", schema.IdeaRequest{Model: "gpt-4o"})
	assert.Equal(t, http.StatusBadGateway, resp.StatusCode)
	assert.Contains(t, readBody(t, resp), "rate limited")
}

func TestGenerate_InterruptedStreamAborts(t *testing.T) {
	srv := newTestServer(t, &fakeGenerator{chunks: []string{"partial"}, err: errors.New("connection reset")})

	resp := post(t, srv.URL+"/api/generate-idea", schema.IdeaRequest{Model: "gpt-4o", Settings: schema.AISettings{StreamOutput: true}})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	_, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Error(t, err)
}

func TestGenerate_BufferedOutput(t *testing.T) {
	g := &fakeGenerator{chunks: []string{"```tsx\n", "code", "\n```"}}
	srv := newTestServer(t, g)

	resp := post(t, srv.URL+"/api/generate", schema.GenerateRequest{
		Model:    "gpt-4o",
		Messages: []schema.Message{{Role: schema.RoleUser, Content: "calculator"}},
		Settings: schema.AISettings{StreamOutput: false},
	})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, int64(len("```tsx\ncode\n```")), resp.ContentLength)
	assert.Equal(t, "```tsx\ncode\n```", readBody(t, resp))

	g.err = errors.New("connection reset")
	resp = post(t, srv.URL+"/api/generate-idea", schema.IdeaRequest{Model: "gpt-4o"})
	assert.Equal(t, http.StatusBadGateway, resp.StatusCode)
	var e schema.ErrorResponse
	require.NoError(t, json.Unmarshal([]byte(readBody(t, resp)), &e))
	assert.Contains(t, e.Error, "connection reset")
}

func TestGenerateIdea(t *testing.T) {
	srv := newTestServer(t, &fakeGenerator{chunks: []string{"A habit tracker ", "with streaks"}})

	resp := post(t, srv.URL+"/api/generate-idea", schema.IdeaRequest{Model: "gpt-4o"})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "A habit tracker with streaks", readBody(t, resp))

	resp = post(t, srv.URL+"/api/generate-idea", schema.IdeaRequest{Model: "gpt-9"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()
}

func TestRefinePrompt(t *testing.T) {
	g := &fakeGenerator{chunks: []string{"A better prompt"}}
	srv := newTestServer(t, g)

	resp := post(t, srv.URL+"/api/refine-prompt", schema.RefinePromptRequest{Model: "gpt-4o", Prompt: "  "})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()

	resp = post(t, srv.URL+"/api/refine-prompt", schema.RefinePromptRequest{Model: "gpt-4o", Prompt: " todo app "})
	assert.Equal(t, "A better prompt", readBody(t, resp))
	assert.Equal(t, "todo app", g.prompt)
}

func TestAppsAnalyticsAndSaved(t *testing.T) {
	srv := newTestServer(t, &fakeGenerator{})

	resp := post(t, srv.URL+"/api/apps", schema.CreateAppRequest{Model: "gpt-4o", Prompt: "calculator", Code: ""})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()

	resp = post(t, srv.URL+"/api/apps", schema.CreateAppRequest{Model: "gpt-4o", Prompt: "calculator", Code: "export default function App(){}"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var app schema.GeneratedApp
	require.NoError(t, json.Unmarshal([]byte(readBody(t, resp)), &app))
	require.NotEmpty(t, app.ID)

	resp = post(t, srv.URL+"/api/token-analytics", schema.TokenAnalyticsRequest{
		Model: "gpt-4o", Prompt: "calculator", GeneratedCode: app.Code, GeneratedAppID: app.ID,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var a schema.TokenAnalytics
	require.NoError(t, json.Unmarshal([]byte(readBody(t, resp)), &a))
	assert.Equal(t, schema.ProviderOpenAI, a.Provider)
	assert.Equal(t, a.PromptTokens+a.ResponseTokens, a.TotalTokens)
	assert.Equal(t, 128000, a.MaxTokens)

	resp, err := http.Get(srv.URL + "/api/apps/" + app.ID)
	require.NoError(t, err)
	var stored schema.GeneratedApp
	require.NoError(t, json.Unmarshal([]byte(readBody(t, resp)), &stored))
	assert.Equal(t, &a, stored.Analytics)

	resp = post(t, srv.URL+"/api/token-analytics", schema.TokenAnalyticsRequest{Model: "gpt-4o", GeneratedAppID: "missing"})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp.Body.Close()

	resp = post(t, srv.URL+"/api/saved", schema.SaveGenerationRequest{Title: "Calc", AppID: app.ID})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var saved schema.SavedGeneration
	require.NoError(t, json.Unmarshal([]byte(readBody(t, resp)), &saved))
	assert.Equal(t, app.ID, saved.GeneratedApp.ID)

	resp, err = http.Get(srv.URL + "/api/saved")
	require.NoError(t, err)
	var list []schema.SavedGeneration
	require.NoError(t, json.Unmarshal([]byte(readBody(t, resp)), &list))
	assert.Len(t, list, 1)

	resp, err = http.Get(srv.URL + "/api/saved/" + saved.ID + "/download")
	require.NoError(t, err)
	assert.Equal(t, "application/zip", resp.Header.Get("Content-Type"))
	zipBytes := []byte(readBody(t, resp))
	assert.Equal(t, int64(len(zipBytes)), resp.ContentLength)
	zr, err := zip.NewReader(bytes.NewReader(zipBytes), int64(len(zipBytes)))
	require.NoError(t, err)
	assert.Len(t, zr.File, 2)

	req, _ := http.NewRequest(http.MethodDelete, srv.URL+"/api/saved/"+saved.ID, nil)
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	resp.Body.Close()

	resp, err = http.Get(srv.URL + "/api/saved/" + saved.ID)
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp.Body.Close()
}

func TestModelsAndHealth(t *testing.T) {
	srv := newTestServer(t, &fakeGenerator{})

	resp, err := http.Get(srv.URL + "/api/models")
	require.NoError(t, err)
	var models []schema.Model
	require.NoError(t, json.Unmarshal([]byte(readBody(t, resp)), &models))
	assert.Len(t, models, 2)

	resp, err = http.Get(srv.URL + "/healthz")
	require.NoError(t, err)
	assert.JSONEq(t, `{"status":"ok"}`, readBody(t, resp))
}
