package intent

import (
	"regexp"
	"strings"
	"sync"
)

// History remembers recent classifications so that ambiguous prompts can
// lean on what the user was just doing.
type History struct {
	mu      sync.Mutex
	recent  []Intent
	maxSize int
}

// NewHistory creates a history window of the given size.
func NewHistory(size int) *History {
	if size <= 0 {
		size = 10
	}
	return &History{maxSize: size}
}

// Record appends an intent, evicting the oldest entry when full.
func (h *History) Record(intent Intent) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.recent = append(h.recent, intent)
	if len(h.recent) > h.maxSize {
		h.recent = h.recent[1:]
	}
}

// Dominant returns the most frequent recorded intent, or General when the
// history is empty.
func (h *History) Dominant() Intent {
	h.mu.Lock()
	defer h.mu.Unlock()

	counts := make(map[Intent]int)
	for _, intent := range h.recent {
		counts[intent]++
	}

	dominant := General
	best := 0
	for intent, n := range counts {
		if n > best {
			best = n
			dominant = intent
		}
	}
	return dominant
}

// Len returns the number of recorded intents.
func (h *History) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.recent)
}

var (
	fillerRe     = regexp.MustCompile(`(?i)\b(please|kindly|can you|could you|would you|i want to|i need to|help me)\b`)
	whitespaceRe = regexp.MustCompile(`\s+`)
)

// CleanPrompt strips politeness filler and collapses whitespace so that
// classification sees only the substantive words.
func CleanPrompt(prompt string) string {
	cleaned := fillerRe.ReplaceAllString(prompt, " ")
	cleaned = whitespaceRe.ReplaceAllString(cleaned, " ")
	return strings.TrimSpace(cleaned)
}

// HistoryRouter wraps a Router with history-aware disambiguation. When a
// classification is ambiguous, the dominant recent intent gets a score
// boost and the prompt is reclassified against the adjusted scores.
type HistoryRouter struct {
	router    *Router
	history   *History
	threshold float64
	boost     float64
}

// NewHistoryRouter creates a history-aware router with the default
// ambiguity threshold of 0.4 and a boost of 0.5.
func NewHistoryRouter(router *Router) *HistoryRouter {
	return &HistoryRouter{
		router:    router,
		history:   NewHistory(10),
		threshold: 0.4,
		boost:     0.5,
	}
}

// Classify classifies the cleaned prompt, applying the history boost when
// the initial result is ambiguous, and records the final intent.
func (r *HistoryRouter) Classify(prompt string) *Result {
	result := r.router.Classify(CleanPrompt(prompt))

	if result.IsAmbiguous(r.threshold) {
		if dominant := r.history.Dominant(); dominant != General {
			result = reclassify(result, dominant, r.boost)
		}
	}

	r.history.Record(result.Intent)
	return result
}

// reclassify applies a boost to one intent's score and recomputes the
// winner and confidence from the adjusted scores.
func reclassify(result *Result, favored Intent, boost float64) *Result {
	scores := make(map[Intent]float64, len(result.Scores))
	for intent, score := range result.Scores {
		scores[intent] = score
	}
	scores[favored] += boost

	top := General
	maxScore := 0.0
	totalScore := 0.0
	for intent, score := range scores {
		totalScore += score
		if score > maxScore {
			maxScore = score
			top = intent
		}
	}

	confidence := 0.0
	if totalScore > 0 {
		confidence = maxScore / totalScore
	}

	return &Result{
		Intent:          top,
		Confidence:      confidence,
		Scores:          scores,
		MatchedKeywords: result.MatchedKeywords,
		Prompt:          result.Prompt,
	}
}
