package consult

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/kadirpekel/obot/pkg/ollama"
)

type fakeGenerator struct {
	reply string
	err   error
}

func (f *fakeGenerator) Generate(ctx context.Context, prompt string) (string, *ollama.InferenceStats, error) {
	return f.reply, nil, f.err
}

// blockingReader never yields input, standing in for an absent operator.
type blockingReader struct{}

func (blockingReader) Read([]byte) (int, error) {
	select {}
}

func TestHumanResponse(t *testing.T) {
	var out bytes.Buffer
	h := NewHandler(WithIO(strings.NewReader("B\n"), &out))

	resp, err := h.Request(context.Background(), Request{
		Kind:     KindClarify,
		Question: "Which storage backend should the cache use?",
		Options:  []string{"bolt", "sqlite"},
	})
	if err != nil {
		t.Fatalf("Request: %v", err)
	}
	if resp.Source != SourceHuman || resp.Content != "B" {
		t.Errorf("resp = %q from %s, want B from human", resp.Content, resp.Source)
	}
	if !strings.Contains(out.String(), "HUMAN CONSULTATION REQUESTED") {
		t.Error("consultation box not rendered")
	}
}

func TestTimeoutUsesSubstitute(t *testing.T) {
	var out bytes.Buffer
	h := NewHandler(
		WithIO(blockingReader{}, &out),
		WithSubstitute(&fakeGenerator{reply: "Option A is the standard choice."}),
		WithTimeout(KindClarify, 50*time.Millisecond),
	)

	resp, err := h.Request(context.Background(), Request{Kind: KindClarify, Question: "Pick one"})
	if err != nil {
		t.Fatalf("Request: %v", err)
	}
	if resp.Source != SourceAISubstitute {
		t.Errorf("source = %s, want ai_substitute", resp.Source)
	}
	if resp.Content != "Option A is the standard choice." {
		t.Errorf("content = %q", resp.Content)
	}
}

func TestSubstituteFallbacks(t *testing.T) {
	broken := &fakeGenerator{err: errors.New("model gone")}

	cases := []struct {
		req  Request
		want string
	}{
		{Request{Kind: KindClarify, Question: "q", Options: []string{"x", "y"}}, "A"},
		{Request{Kind: KindFeedback, Question: "q"},
			"[AI-SUBSTITUTE] The changes appear reasonable and follow standard patterns. Proceeding with the current state."},
		{Request{Kind: KindClarify, Question: "q"},
			"[AI-SUBSTITUTE] Proceeding with the most common interpretation to avoid block."},
	}
	for _, tc := range cases {
		var out bytes.Buffer
		h := NewHandler(
			WithIO(blockingReader{}, &out),
			WithSubstitute(broken),
			WithTimeout(tc.req.Kind, 30*time.Millisecond),
		)
		resp, err := h.Request(context.Background(), tc.req)
		if err != nil {
			t.Fatalf("Request(%s): %v", tc.req.Kind, err)
		}
		if resp.Content != tc.want {
			t.Errorf("fallback for %s/%d options = %q, want %q",
				tc.req.Kind, len(tc.req.Options), resp.Content, tc.want)
		}
	}
}

func TestTimeoutWithoutSubstitute(t *testing.T) {
	var out bytes.Buffer
	h := NewHandler(
		WithIO(blockingReader{}, &out),
		WithoutSubstitute(),
		WithTimeout(KindClarify, 30*time.Millisecond),
	)

	_, err := h.Request(context.Background(), Request{Kind: KindClarify, Question: "q"})
	if !errors.Is(err, ErrConsultationTimeout) {
		t.Fatalf("err = %v, want ErrConsultationTimeout", err)
	}
}

func TestSecondRequestIsBusy(t *testing.T) {
	var out bytes.Buffer
	h := NewHandler(
		WithIO(blockingReader{}, &out),
		WithSubstitute(&fakeGenerator{reply: "ok"}),
		WithTimeout(KindClarify, 200*time.Millisecond),
	)

	done := make(chan struct{})
	go func() {
		defer close(done)
		h.Request(context.Background(), Request{Kind: KindClarify, Question: "first"})
	}()

	time.Sleep(50 * time.Millisecond)
	_, err := h.Request(context.Background(), Request{Kind: KindClarify, Question: "second"})
	if !errors.Is(err, ErrConsultationBusy) {
		t.Fatalf("err = %v, want ErrConsultationBusy", err)
	}
	<-done
}

func TestContextCancellation(t *testing.T) {
	var out bytes.Buffer
	h := NewHandler(WithIO(blockingReader{}, &out))

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(30 * time.Millisecond)
		cancel()
	}()

	_, err := h.Request(ctx, Request{Kind: KindFeedback, Question: "q"})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
}

func TestCallbacks(t *testing.T) {
	var out bytes.Buffer
	var timedOut bool
	var gotSource Source
	h := NewHandler(
		WithIO(blockingReader{}, &out),
		WithSubstitute(&fakeGenerator{reply: "ok"}),
		WithTimeout(KindClarify, 30*time.Millisecond),
		WithCallbacks(
			func() { timedOut = true },
			func(_ string, src Source) { gotSource = src },
		),
	)

	if _, err := h.Request(context.Background(), Request{Kind: KindClarify, Question: "q"}); err != nil {
		t.Fatalf("Request: %v", err)
	}
	if !timedOut || gotSource != SourceAISubstitute {
		t.Errorf("callbacks: timedOut=%v source=%s", timedOut, gotSource)
	}
}

func TestFormatClarifyRequest(t *testing.T) {
	req := FormatClarifyRequest("adding a cache", "unclear eviction policy", []string{"LRU", "LFU", "TTL"})
	if req.Kind != KindClarify {
		t.Errorf("kind = %s", req.Kind)
	}
	for _, want := range []string{"A) LRU", "B) LFU", "C) TTL", "Ambiguity: unclear eviction policy"} {
		if !strings.Contains(req.Question, want) {
			t.Errorf("question missing %q", want)
		}
	}
}

func TestFormatFeedbackRequest(t *testing.T) {
	req := FormatFeedbackRequest(
		[]ChangeDescription{{Description: "added cache", File: "cache.go", Lines: "10-80"}},
		VerificationResults{TestsPassed: 12, TestsTotal: 12, BuildStatus: "ok"},
		[]FeedbackQuestion{{Question: "Keep the TTL default?", Options: []string{"yes", "no"}}},
	)
	if req.Kind != KindFeedback {
		t.Errorf("kind = %s", req.Kind)
	}
	for _, want := range []string{"1. added cache", "Tests: 12/12 passed", "Q1: Keep the TTL default?"} {
		if !strings.Contains(req.Question, want) {
			t.Errorf("question missing %q", want)
		}
	}
}
