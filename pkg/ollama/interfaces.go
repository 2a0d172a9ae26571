package ollama

import "context"

// Generator is the minimal surface for single-prompt inference. Packages
// that only issue one-shot prompts accept this instead of *Client so tests
// can substitute a canned implementation.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, *InferenceStats, error)
}

// Chatter is the minimal surface for multi-turn inference.
type Chatter interface {
	Chat(ctx context.Context, messages []Message) (string, *InferenceStats, error)
}

// LLM combines the inference surfaces used by the model coordinator.
type LLM interface {
	Generator
	Chatter
	GetModel() string
}

// StreamingGenerator is implemented by clients that can stream a generate
// response token by token. Callers fall back to Generate when the client
// does not support streaming.
type StreamingGenerator interface {
	GenerateStream(ctx context.Context, prompt string, callback StreamCallback) (*StreamResult, error)
}

// StreamingChatter is the chat counterpart of StreamingGenerator.
type StreamingChatter interface {
	ChatStream(ctx context.Context, messages []Message, callback StreamCallback) (*StreamResult, error)
}

var (
	_ LLM                = (*Client)(nil)
	_ StreamingGenerator = (*Client)(nil)
	_ StreamingChatter   = (*Client)(nil)
)
