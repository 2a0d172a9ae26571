package ollama

// Message is one turn of a chat conversation.
type Message struct {
	Role    string   `json:"role"`             // "system", "user", "assistant"
	Content string   `json:"content"`          // Message content
	Images  []string `json:"images,omitempty"` // Base64 encoded images
}

// GenerateRequest is the request body for /api/generate.
type GenerateRequest struct {
	Model     string         `json:"model"`
	Prompt    string         `json:"prompt"`
	Images    []string       `json:"images,omitempty"`
	Stream    bool           `json:"stream"`
	Options   map[string]any `json:"options,omitempty"`
	KeepAlive string         `json:"keep_alive,omitempty"`
}

// GenerateResponse is a single response chunk from /api/generate.
// In a streamed response, only the chunk with Done set carries timings.
type GenerateResponse struct {
	Model              string `json:"model"`
	CreatedAt          string `json:"created_at"`
	Response           string `json:"response"`
	Error              string `json:"error,omitempty"`
	Done               bool   `json:"done"`
	Context            []int  `json:"context,omitempty"`
	TotalDuration      int64  `json:"total_duration,omitempty"`
	LoadDuration       int64  `json:"load_duration,omitempty"`
	PromptEvalCount    int    `json:"prompt_eval_count,omitempty"`
	PromptEvalDuration int64  `json:"prompt_eval_duration,omitempty"`
	EvalCount          int    `json:"eval_count,omitempty"`
	EvalDuration       int64  `json:"eval_duration,omitempty"`
}

// ChatRequest is the request body for /api/chat.
type ChatRequest struct {
	Model     string         `json:"model"`
	Messages  []Message      `json:"messages"`
	Stream    bool           `json:"stream"`
	Options   map[string]any `json:"options,omitempty"`
	KeepAlive string         `json:"keep_alive,omitempty"`
}

// ChatResponse is a single response chunk from /api/chat.
type ChatResponse struct {
	Model              string  `json:"model"`
	CreatedAt          string  `json:"created_at"`
	Message            Message `json:"message"`
	Error              string  `json:"error,omitempty"`
	Done               bool    `json:"done"`
	TotalDuration      int64   `json:"total_duration,omitempty"`
	LoadDuration       int64   `json:"load_duration,omitempty"`
	PromptEvalCount    int     `json:"prompt_eval_count,omitempty"`
	PromptEvalDuration int64   `json:"prompt_eval_duration,omitempty"`
	EvalCount          int     `json:"eval_count,omitempty"`
	EvalDuration       int64   `json:"eval_duration,omitempty"`
}

// ModelInfo describes one model from /api/tags.
type ModelInfo struct {
	Name       string `json:"name"`
	ModifiedAt string `json:"modified_at"`
	Size       int64  `json:"size"`
	Digest     string `json:"digest"`
}

// TagsResponse is the response from /api/tags.
type TagsResponse struct {
	Models []ModelInfo `json:"models"`
}

// EmbeddingRequest is the request body for /api/embeddings.
type EmbeddingRequest struct {
	Model   string         `json:"model"`
	Prompt  string         `json:"prompt"`
	Options map[string]any `json:"options,omitempty"`
}

// EmbeddingResponse is the response from /api/embeddings.
type EmbeddingResponse struct {
	Embedding []float64 `json:"embedding"`
}

// InferenceStats summarizes a completed inference.
type InferenceStats struct {
	Model              string
	PromptTokens       int
	CompletionTokens   int
	TotalTokens        int
	PromptEvalDuration int64 // nanoseconds
	EvalDuration       int64 // nanoseconds
	TotalDuration      int64 // nanoseconds
	TokensPerSecond    float64
}

// CalculateStats derives inference statistics from a generate response.
func CalculateStats(resp *GenerateResponse, model string) InferenceStats {
	return calculateStats(model, resp.PromptEvalCount, resp.EvalCount,
		resp.PromptEvalDuration, resp.EvalDuration, resp.TotalDuration)
}

// CalculateChatStats derives inference statistics from a chat response.
func CalculateChatStats(resp *ChatResponse, model string) InferenceStats {
	return calculateStats(model, resp.PromptEvalCount, resp.EvalCount,
		resp.PromptEvalDuration, resp.EvalDuration, resp.TotalDuration)
}

func calculateStats(model string, promptTokens, evalTokens int, promptDur, evalDur, totalDur int64) InferenceStats {
	stats := InferenceStats{
		Model:              model,
		PromptTokens:       promptTokens,
		CompletionTokens:   evalTokens,
		TotalTokens:        promptTokens + evalTokens,
		PromptEvalDuration: promptDur,
		EvalDuration:       evalDur,
		TotalDuration:      totalDur,
	}

	if evalDur > 0 {
		// EvalDuration is in nanoseconds
		seconds := float64(evalDur) / 1e9
		stats.TokensPerSecond = float64(evalTokens) / seconds
	}

	return stats
}
