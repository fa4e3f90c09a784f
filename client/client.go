// Package client talks to the conjure backend over HTTP.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"
	"time"

	"github.com/santiagomed/conjure/schema"
)

// ErrNoBody is returned when a streaming endpoint answers without a body.
var ErrNoBody = errors.New("no response body")

// StatusError is a non-OK response.
type StatusError struct {
	StatusCode int
	Status     string
	Message    string
}

func (e *StatusError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s: %s", e.Status, e.Message)
	}
	if e.Status != "" {
		return e.Status
	}
	return "request failed"
}

type Client struct {
	baseURL    string
	httpClient *http.Client
}

// New creates a client for the backend at baseURL. Streaming responses are bounded by timeout
// as a whole.
func New(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
}

func (c *Client) do(ctx context.Context, method, path string, body interface{}) (*http.Response, error) {
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("error marshaling request: %w", err)
		}
		reader = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("error creating request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("error sending request: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		defer resp.Body.Close()
		return nil, statusError(resp)
	}
	return resp, nil
}

func statusError(resp *http.Response) error {
	e := &StatusError{StatusCode: resp.StatusCode, Status: http.StatusText(resp.StatusCode)}
	var body schema.ErrorResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 64<<10)).Decode(&body); err == nil {
		e.Message = body.Error
	}
	return e
}

func (c *Client) stream(ctx context.Context, path string, body interface{}) (io.ReadCloser, error) {
	resp, err := c.do(ctx, http.MethodPost, path, body)
	if err != nil {
		return nil, err
	}
	if resp.Body == nil || resp.Body == http.NoBody {
		return nil, ErrNoBody
	}
	return resp.Body, nil
}

func (c *Client) getJSON(ctx context.Context, method, path string, body, out interface{}) error {
	resp, err := c.do(ctx, method, path, body)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("error decoding response: %w", err)
	}
	return nil
}

func (c *Client) GenerateIdea(ctx context.Context, req schema.IdeaRequest) (io.ReadCloser, error) {
	return c.stream(ctx, "/api/generate-idea", req)
}

func (c *Client) RefinePrompt(ctx context.Context, req schema.RefinePromptRequest) (io.ReadCloser, error) {
	return c.stream(ctx, "/api/refine-prompt", req)
}

func (c *Client) GenerateCode(ctx context.Context, req schema.GenerateRequest) (io.ReadCloser, error) {
	return c.stream(ctx, "/api/generate", req)
}

func (c *Client) CreateApp(ctx context.Context, req schema.CreateAppRequest) (*schema.GeneratedApp, error) {
	var app schema.GeneratedApp
	if err := c.getJSON(ctx, http.MethodPost, "/api/apps", req, &app); err != nil {
		return nil, err
	}
	return &app, nil
}

func (c *Client) GetApp(ctx context.Context, id string) (*schema.GeneratedApp, error) {
	var app schema.GeneratedApp
	if err := c.getJSON(ctx, http.MethodGet, "/api/apps/"+id, nil, &app); err != nil {
		return nil, err
	}
	return &app, nil
}

func (c *Client) TokenAnalytics(ctx context.Context, req schema.TokenAnalyticsRequest) (*schema.TokenAnalytics, error) {
	var a schema.TokenAnalytics
	if err := c.getJSON(ctx, http.MethodPost, "/api/token-analytics", req, &a); err != nil {
		return nil, err
	}
	return &a, nil
}

func (c *Client) SaveGeneration(ctx context.Context, req schema.SaveGenerationRequest) (*schema.SavedGeneration, error) {
	var saved schema.SavedGeneration
	if err := c.getJSON(ctx, http.MethodPost, "/api/saved", req, &saved); err != nil {
		return nil, err
	}
	return &saved, nil
}

func (c *Client) ListSaved(ctx context.Context) ([]schema.SavedGeneration, error) {
	var list []schema.SavedGeneration
	if err := c.getJSON(ctx, http.MethodGet, "/api/saved", nil, &list); err != nil {
		return nil, err
	}
	return list, nil
}

func (c *Client) GetSaved(ctx context.Context, id string) (*schema.SavedGeneration, error) {
	var saved schema.SavedGeneration
	if err := c.getJSON(ctx, http.MethodGet, "/api/saved/"+id, nil, &saved); err != nil {
		return nil, err
	}
	return &saved, nil
}

func (c *Client) DeleteSaved(ctx context.Context, id string) error {
	return c.getJSON(ctx, http.MethodDelete, "/api/saved/"+id, nil, nil)
}

func (c *Client) Models(ctx context.Context) ([]schema.Model, error) {
	var models []schema.Model
	if err := c.getJSON(ctx, http.MethodGet, "/api/models", nil, &models); err != nil {
		return nil, err
	}
	return models, nil
}

// Download is a zip archive of a saved generation. Size is -1 when the server does not send a
// length.
type Download struct {
	Body     io.ReadCloser
	Size     int64
	Filename string
}

func (c *Client) DownloadSaved(ctx context.Context, id string) (*Download, error) {
	resp, err := c.do(ctx, http.MethodGet, "/api/saved/"+id+"/download", nil)
	if err != nil {
		return nil, err
	}
	if ct := resp.Header.Get("Content-Type"); ct != "application/zip" && ct != "application/octet-stream" {
		resp.Body.Close()
		return nil, fmt.Errorf("unexpected content type: %s", ct)
	}
	filename := id + ".zip"
	if _, params, err := mime.ParseMediaType(resp.Header.Get("Content-Disposition")); err == nil && params["filename"] != "" {
		filename = params["filename"]
	}
	return &Download{Body: resp.Body, Size: resp.ContentLength, Filename: filename}, nil
}
