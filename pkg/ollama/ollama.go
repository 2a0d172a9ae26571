// Copyright 2025 Kadir Pekel
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package ollama implements the HTTP client for a local Ollama daemon.
// All model inference in obot goes through this package; nothing else in
// the module opens a network connection.
package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"
)

// DefaultBaseURL is the default Ollama daemon URL.
const DefaultBaseURL = "http://localhost:11434"

// defaultKeepAlive keeps models warm between consecutive process steps.
const defaultKeepAlive = "30m"

// Client is an HTTP client for the Ollama API.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
	model      string
	options    map[string]any
}

// ClientOption configures the client.
type ClientOption func(*Client)

// WithBaseURL sets a custom base URL.
func WithBaseURL(url string) ClientOption {
	return func(c *Client) {
		c.baseURL = url
	}
}

// WithModel sets the default model.
func WithModel(model string) ClientOption {
	return func(c *Client) {
		c.model = model
	}
}

// WithTimeout sets the HTTP timeout.
func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *Client) {
		c.httpClient.Timeout = timeout
	}
}

// WithToken sets a bearer token sent with every request. Empty means no
// Authorization header, which is the normal local-daemon case.
func WithToken(token string) ClientOption {
	return func(c *Client) {
		c.token = token
	}
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithOptions sets default generation options.
func WithOptions(opts map[string]any) ClientOption {
	return func(c *Client) {
		c.options = opts
	}
}

// NewClient creates a new Ollama client. The OLLAMA_TOKEN environment
// variable seeds the bearer token unless WithToken overrides it.
func NewClient(opts ...ClientOption) *Client {
	c := &Client{
		baseURL: DefaultBaseURL,
		token:   os.Getenv("OLLAMA_TOKEN"),
		httpClient: &http.Client{
			Timeout: 5 * time.Minute, // generation can be slow on large models
		},
		options: make(map[string]any),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// SetModel sets the model to use for requests.
func (c *Client) SetModel(model string) {
	c.model = model
}

// GetModel returns the current model.
func (c *Client) GetModel() string {
	return c.model
}

// BaseURL returns the configured base URL.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// SetOption sets a generation option.
func (c *Client) SetOption(key string, value any) {
	c.options[key] = value
}

// SetTemperature sets the sampling temperature.
func (c *Client) SetTemperature(temp float64) {
	c.options["temperature"] = temp
}

// SetContextWindow sets the context window size.
func (c *Client) SetContextWindow(size int) {
	c.options["num_ctx"] = size
}

// SetMaxTokens sets the maximum tokens to generate.
func (c *Client) SetMaxTokens(max int) {
	c.options["num_predict"] = max
}

// newRequest builds an API request with content type and auth headers set.
func (c *Client) newRequest(ctx context.Context, method, path string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	return req, nil
}

// doJSON posts reqBody to path and decodes the response into out.
func (c *Client) doJSON(ctx context.Context, path string, reqBody, out any) error {
	body, err := json.Marshal(reqBody)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := c.newRequest(ctx, http.MethodPost, path, bytes.NewReader(body))
	if err != nil {
		return err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("API error (status %d): %s", resp.StatusCode, string(respBody))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// CheckConnection checks if the Ollama daemon is running and accessible.
func (c *Client) CheckConnection(ctx context.Context) error {
	req, err := c.newRequest(ctx, http.MethodGet, "/api/tags", nil)
	if err != nil {
		return err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("ollama not reachable at %s: %w", c.baseURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("ollama returned status %d", resp.StatusCode)
	}

	return nil
}

// ListModels returns the models the daemon has pulled.
func (c *Client) ListModels(ctx context.Context) ([]ModelInfo, error) {
	req, err := c.newRequest(ctx, http.MethodGet, "/api/tags", nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("API error (status %d): %s", resp.StatusCode, string(body))
	}

	var tagsResp TagsResponse
	if err := json.NewDecoder(resp.Body).Decode(&tagsResp); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	return tagsResp.Models, nil
}

// HasModel checks if a specific model is available.
func (c *Client) HasModel(ctx context.Context, model string) (bool, error) {
	models, err := c.ListModels(ctx)
	if err != nil {
		return false, err
	}

	for _, m := range models {
		if m.Name == model {
			return true, nil
		}
	}
	return false, nil
}

// Generate sends a prompt and returns the complete response (non-streaming).
func (c *Client) Generate(ctx context.Context, prompt string) (string, *InferenceStats, error) {
	reqBody := GenerateRequest{
		Model:     c.model,
		Prompt:    prompt,
		Stream:    false,
		Options:   c.options,
		KeepAlive: defaultKeepAlive,
	}

	var genResp GenerateResponse
	if err := c.doJSON(ctx, "/api/generate", reqBody, &genResp); err != nil {
		return "", nil, err
	}

	stats := CalculateStats(&genResp, c.model)
	return genResp.Response, &stats, nil
}

// Chat sends messages and returns the complete response (non-streaming).
func (c *Client) Chat(ctx context.Context, messages []Message) (string, *InferenceStats, error) {
	reqBody := ChatRequest{
		Model:     c.model,
		Messages:  messages,
		Stream:    false,
		Options:   c.options,
		KeepAlive: defaultKeepAlive,
	}

	var chatResp ChatResponse
	if err := c.doJSON(ctx, "/api/chat", reqBody, &chatResp); err != nil {
		return "", nil, err
	}

	stats := CalculateChatStats(&chatResp, c.model)
	return chatResp.Message.Content, &stats, nil
}

// Embed returns the embedding vector for the prompt.
func (c *Client) Embed(ctx context.Context, prompt string) ([]float64, error) {
	reqBody := EmbeddingRequest{
		Model:   c.model,
		Prompt:  prompt,
		Options: c.options,
	}

	var embResp EmbeddingResponse
	if err := c.doJSON(ctx, "/api/embeddings", reqBody, &embResp); err != nil {
		return nil, err
	}

	return embResp.Embedding, nil
}
