package contextbudget

import (
	"log/slog"

	"github.com/pkoukk/tiktoken-go"
)

// Counter estimates token counts. It prefers a real BPE encoding and
// falls back to the 4-chars-per-token heuristic when the encoding cannot
// be loaded, which keeps allocation working offline.
type Counter struct {
	enc *tiktoken.Tiktoken
}

// NewCounter creates a counter backed by the cl100k_base encoding.
func NewCounter() *Counter {
	enc, err := tiktoken.GetEncoding(tiktoken.MODEL_CL100K_BASE)
	if err != nil {
		slog.Debug("tiktoken encoding unavailable, using heuristic", "error", err)
		return &Counter{}
	}
	return &Counter{enc: enc}
}

// NewHeuristicCounter creates a counter that only uses the length heuristic.
func NewHeuristicCounter() *Counter {
	return &Counter{}
}

// Count estimates the token count of text.
func (c *Counter) Count(text string) int {
	if text == "" {
		return 0
	}
	if c.enc != nil {
		return len(c.enc.Encode(text, nil, nil))
	}
	return (len(text) + 3) / 4
}

// Truncate cuts text down to at most maxTokens.
func (c *Counter) Truncate(text string, maxTokens int) string {
	if maxTokens <= 0 {
		return ""
	}
	if c.enc != nil {
		ids := c.enc.Encode(text, nil, nil)
		if len(ids) <= maxTokens {
			return text
		}
		return c.enc.Decode(ids[:maxTokens])
	}
	maxChars := maxTokens * 4
	if len(text) <= maxChars {
		return text
	}
	return text[:maxChars]
}
