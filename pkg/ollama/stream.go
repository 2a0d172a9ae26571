package ollama

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

// StreamCallback receives each token as it arrives.
type StreamCallback func(token string)

// StreamResult is the accumulated outcome of a streaming request.
type StreamResult struct {
	Content string
	Stats   *InferenceStats
}

// GenerateStream sends a prompt and streams the response token by token.
// The callback runs on the reading goroutine; the final chunk's token
// counts and timings are folded into the returned stats.
func (c *Client) GenerateStream(ctx context.Context, prompt string, callback StreamCallback) (*StreamResult, error) {
	reqBody := GenerateRequest{
		Model:     c.model,
		Prompt:    prompt,
		Stream:    true,
		Options:   c.options,
		KeepAlive: defaultKeepAlive,
	}

	resp, err := c.postStream(ctx, "/api/generate", reqBody)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var final GenerateResponse
	content, err := readStream(resp.Body, callback, func(line []byte) (string, error) {
		var chunk GenerateResponse
		if err := json.Unmarshal(line, &chunk); err != nil {
			return "", nil // skip malformed lines
		}
		if chunk.Error != "" {
			return "", fmt.Errorf("API error: %s", chunk.Error)
		}
		if chunk.Done {
			final = chunk
		}
		return chunk.Response, nil
	})
	if err != nil {
		return nil, err
	}

	stats := CalculateStats(&final, c.model)
	return &StreamResult{Content: content, Stats: &stats}, nil
}

// ChatStream sends messages and streams the response token by token.
func (c *Client) ChatStream(ctx context.Context, messages []Message, callback StreamCallback) (*StreamResult, error) {
	reqBody := ChatRequest{
		Model:     c.model,
		Messages:  messages,
		Stream:    true,
		Options:   c.options,
		KeepAlive: defaultKeepAlive,
	}

	resp, err := c.postStream(ctx, "/api/chat", reqBody)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var final ChatResponse
	content, err := readStream(resp.Body, callback, func(line []byte) (string, error) {
		var chunk ChatResponse
		if err := json.Unmarshal(line, &chunk); err != nil {
			return "", nil
		}
		if chunk.Error != "" {
			return "", fmt.Errorf("API error: %s", chunk.Error)
		}
		if chunk.Done {
			final = chunk
		}
		return chunk.Message.Content, nil
	})
	if err != nil {
		return nil, err
	}

	stats := CalculateChatStats(&final, c.model)
	return &StreamResult{Content: content, Stats: &stats}, nil
}

func (c *Client) postStream(ctx context.Context, path string, reqBody any) (*http.Response, error) {
	body, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := c.newRequest(ctx, http.MethodPost, path, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		var apiErr struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(respBody, &apiErr) == nil && apiErr.Error != "" {
			return nil, fmt.Errorf("API error (status %d): %s", resp.StatusCode, apiErr.Error)
		}
		return nil, fmt.Errorf("API error (status %d): %s", resp.StatusCode, string(respBody))
	}

	return resp, nil
}

// readStream consumes a JSON-lines body, feeding each decoded token to the
// callback and accumulating the full content. The decode closure owns the
// per-endpoint chunk shape.
func readStream(body io.Reader, callback StreamCallback, decode func(line []byte) (string, error)) (string, error) {
	reader := bufio.NewReader(body)
	var content bytes.Buffer

	for {
		line, err := reader.ReadBytes('\n')
		if err != nil && err != io.EOF {
			return content.String(), fmt.Errorf("read stream: %w", err)
		}

		if trimmed := bytes.TrimSpace(line); len(trimmed) > 0 {
			token, derr := decode(trimmed)
			if derr != nil {
				return content.String(), derr
			}
			if token != "" {
				content.WriteString(token)
				if callback != nil {
					callback(token)
				}
			}
		}

		if err == io.EOF {
			return content.String(), nil
		}
	}
}
