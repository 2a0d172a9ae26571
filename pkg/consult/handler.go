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

// Package consult implements the human-in-the-loop consultation pause.
// A consultation blocks the run until the operator answers, the timeout
// elapses (after which an AI substitute answers on their behalf), or the
// run is cancelled.
package consult

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync/atomic"
	"time"

	"github.com/kadirpekel/obot/pkg/ollama"
	"github.com/kadirpekel/obot/pkg/ui"
)

var (
	// ErrConsultationBusy is returned when a consultation is already in
	// flight. Only one operator prompt may be open at a time.
	ErrConsultationBusy = errors.New("a consultation is already in progress")

	// ErrConsultationTimeout is returned on timeout when the AI
	// substitute is disabled.
	ErrConsultationTimeout = errors.New("consultation timed out")
)

// Kind distinguishes the two consultation flavors.
type Kind string

const (
	KindClarify  Kind = "clarify"
	KindFeedback Kind = "feedback"
)

// Source indicates who provided the consultation response.
type Source string

const (
	SourceHuman        Source = "human"
	SourceAISubstitute Source = "ai_substitute"
)

const (
	defaultClarifyTimeout  = 60 * time.Second
	defaultFeedbackTimeout = 300 * time.Second
	defaultCountdown       = 15 // seconds of visible countdown before timeout
)

// Request is one consultation to put in front of the operator.
type Request struct {
	Kind     Kind
	Question string
	Context  string
	Options  []string // lettered A, B, C... when present
	Timeout  time.Duration
}

// Response is the operator's (or the substitute's) answer.
type Response struct {
	Content   string
	Source    Source
	Timestamp time.Time
}

// Handler runs consultations against a terminal. Safe for concurrent
// callers; concurrent requests beyond the first fail with
// ErrConsultationBusy.
type Handler struct {
	reader     io.Reader
	writer     io.Writer
	substitute ollama.Generator
	timeouts   map[Kind]time.Duration
	countdown  int
	allowSub   bool
	busy       atomic.Bool

	onTimeout  func()
	onResponse func(string, Source)
}

type Option func(*Handler)

// WithIO overrides the terminal streams.
func WithIO(r io.Reader, w io.Writer) Option {
	return func(h *Handler) { h.reader, h.writer = r, w }
}

// WithSubstitute sets the model that answers on timeout.
func WithSubstitute(gen ollama.Generator) Option {
	return func(h *Handler) { h.substitute = gen }
}

// WithTimeout overrides the timeout for one consultation kind.
func WithTimeout(kind Kind, d time.Duration) Option {
	return func(h *Handler) { h.timeouts[kind] = d }
}

// WithCountdown sets how many seconds before timeout the warning ticks.
func WithCountdown(seconds int) Option {
	return func(h *Handler) { h.countdown = seconds }
}

// WithoutSubstitute disables the AI substitute; timeouts become errors.
func WithoutSubstitute() Option {
	return func(h *Handler) { h.allowSub = false }
}

// WithCallbacks registers observers for timeout and response events.
func WithCallbacks(onTimeout func(), onResponse func(string, Source)) Option {
	return func(h *Handler) { h.onTimeout, h.onResponse = onTimeout, onResponse }
}

// NewHandler creates a consultation handler bound to stdin/stdout unless
// overridden.
func NewHandler(opts ...Option) *Handler {
	h := &Handler{
		reader: os.Stdin,
		writer: os.Stdout,
		timeouts: map[Kind]time.Duration{
			KindClarify:  defaultClarifyTimeout,
			KindFeedback: defaultFeedbackTimeout,
		},
		countdown: defaultCountdown,
		allowSub:  true,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Request displays the consultation and blocks for an answer. On timeout
// the AI substitute answers; on context cancellation the context error is
// returned.
func (h *Handler) Request(ctx context.Context, req Request) (*Response, error) {
	if !h.busy.CompareAndSwap(false, true) {
		return nil, ErrConsultationBusy
	}
	defer h.busy.Store(false)

	timeout := req.Timeout
	if timeout == 0 {
		timeout = h.timeouts[req.Kind]
	}

	h.display(req, timeout)

	responseCh := make(chan string, 1)
	errorCh := make(chan error, 1)
	go func() {
		answer, err := h.readInput()
		if err != nil {
			errorCh <- err
			return
		}
		responseCh <- answer
	}()

	timeoutCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	stopCountdown := make(chan struct{})
	go h.runCountdown(timeoutCtx, timeout, stopCountdown)
	defer close(stopCountdown)

	select {
	case answer := <-responseCh:
		if h.onResponse != nil {
			h.onResponse(answer, SourceHuman)
		}
		return &Response{Content: answer, Source: SourceHuman, Timestamp: time.Now()}, nil

	case err := <-errorCh:
		return nil, err

	case <-timeoutCtx.Done():
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if h.onTimeout != nil {
			h.onTimeout()
		}
		if !h.allowSub {
			return nil, ErrConsultationTimeout
		}
		slog.Warn("consultation timed out, substituting", "kind", req.Kind)
		answer := h.generateSubstitute(ctx, req)
		if h.onResponse != nil {
			h.onResponse(answer, SourceAISubstitute)
		}
		return &Response{Content: answer, Source: SourceAISubstitute, Timestamp: time.Now()}, nil
	}
}

func (h *Handler) display(req Request, timeout time.Duration) {
	box := ui.NewBox().
		Title("HUMAN CONSULTATION REQUESTED").
		Blank().
		Label("Process", string(req.Kind)).
		Line("Question:").
		Wrapped(req.Question).
		Blank()

	if req.Kind == KindClarify && len(req.Options) > 0 {
		box.Line("Options:")
		for i, opt := range req.Options {
			box.Line(fmt.Sprintf("  %c) %s", 'A'+i, opt))
		}
		box.Blank()
	}

	box.Label("Time remaining", ui.FormatDuration(int(timeout.Seconds()))).
		Blank().
		Warning("⚠ After timeout, an AI model will respond on your behalf")

	fmt.Fprint(h.writer, box.Render())
}

func (h *Handler) runCountdown(ctx context.Context, timeout time.Duration, stop <-chan struct{}) {
	remaining := int(timeout.Seconds())
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			remaining--
			if remaining <= 0 {
				return
			}
			if remaining <= h.countdown {
				fmt.Fprintf(h.writer, "\r%s⚠ AI RESPONSE IN: %s... %s",
					ui.Yellow, ui.FormatDuration(remaining), ui.Reset)
			}
		case <-stop:
			return
		case <-ctx.Done():
			return
		}
	}
}

func (h *Handler) readInput() (string, error) {
	buf := make([]byte, 4096)
	n, err := h.reader.Read(buf)
	if err != nil && err != io.EOF {
		return "", err
	}
	return strings.TrimSpace(string(buf[:n])), nil
}

func (h *Handler) generateSubstitute(ctx context.Context, req Request) string {
	if h.substitute != nil {
		answer, _, err := h.substitute.Generate(ctx, substitutePrompt(req))
		if err == nil && answer != "" {
			return strings.TrimSpace(answer)
		}
		slog.Debug("substitute generation failed, using canned response", "err", err)
	}
	return fallbackResponse(req)
}

func substitutePrompt(req Request) string {
	options := "None"
	if len(req.Options) > 0 {
		options = strings.Join(req.Options, ", ")
	}

	return fmt.Sprintf(`Act as human-in-the-loop for an agentic system. The human did not respond within the timeout.
Provide a reasonable and safe response to the question below to allow the process to continue.

INSTRUCTIONS:
1. If the question is about approval, approve if the changes seem reasonable.
2. If the question is about choosing an approach, choose the most standard or safe approach.
3. If the question is about clarification, provide a sensible default interpretation.
4. Keep the response concise and professional.
5. If options are provided (A, B, C, etc.), pick the best one and explain why briefly.

CONTEXT:
%s

TYPE:
%s

QUESTION:
%s

OPTIONS:
%s

Your response:`, req.Context, req.Kind, req.Question, options)
}

func fallbackResponse(req Request) string {
	switch req.Kind {
	case KindClarify:
		if len(req.Options) > 0 {
			return "A"
		}
		return "[AI-SUBSTITUTE] Proceeding with the most common interpretation to avoid block."
	case KindFeedback:
		return "[AI-SUBSTITUTE] The changes appear reasonable and follow standard patterns. Proceeding with the current state."
	default:
		return "[AI-SUBSTITUTE] No response provided. Defaulting to safe continuation."
	}
}
