package ollama

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestCheckConnection(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/tags" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		fmt.Fprint(w, `{"models":[]}`)
	}))
	defer srv.Close()

	c := NewClient(WithBaseURL(srv.URL))
	if err := c.CheckConnection(context.Background()); err != nil {
		t.Fatalf("CheckConnection: %v", err)
	}
}

func TestCheckConnectionDown(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // connection refused from here on

	c := NewClient(WithBaseURL(srv.URL))
	if err := c.CheckConnection(context.Background()); err == nil {
		t.Fatal("expected error for unreachable daemon")
	}
}

func TestHasModel(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"models":[{"name":"qwen3:32b"},{"name":"qwen2.5-coder:32b"}]}`)
	}))
	defer srv.Close()

	c := NewClient(WithBaseURL(srv.URL))
	ctx := context.Background()

	ok, err := c.HasModel(ctx, "qwen3:32b")
	if err != nil || !ok {
		t.Errorf("HasModel(qwen3:32b) = %v, %v; want true, nil", ok, err)
	}
	ok, err = c.HasModel(ctx, "llava:7b")
	if err != nil || ok {
		t.Errorf("HasModel(llava:7b) = %v, %v; want false, nil", ok, err)
	}
}

func TestGenerate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/generate" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		fmt.Fprint(w, `{"model":"qwen3:32b","response":"hello","done":true,"prompt_eval_count":12,"eval_count":3,"eval_duration":1000000000}`)
	}))
	defer srv.Close()

	c := NewClient(WithBaseURL(srv.URL), WithModel("qwen3:32b"))
	text, stats, err := c.Generate(context.Background(), "say hello")
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if text != "hello" {
		t.Errorf("response = %q, want hello", text)
	}
	if stats.TotalTokens != 15 {
		t.Errorf("TotalTokens = %d, want 15", stats.TotalTokens)
	}
	if stats.TokensPerSecond != 3 {
		t.Errorf("TokensPerSecond = %v, want 3", stats.TokensPerSecond)
	}
}

func TestGenerateAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"model not loaded"}`, http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := NewClient(WithBaseURL(srv.URL))
	_, _, err := c.Generate(context.Background(), "hi")
	if err == nil || !strings.Contains(err.Error(), "status 500") {
		t.Fatalf("expected status 500 error, got %v", err)
	}
}

func TestGenerateStream(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintln(w, `{"response":"foo","done":false}`)
		fmt.Fprintln(w, `{"response":" bar","done":false}`)
		fmt.Fprintln(w, `{"response":"","done":true,"prompt_eval_count":5,"eval_count":2,"eval_duration":2000000000}`)
	}))
	defer srv.Close()

	c := NewClient(WithBaseURL(srv.URL), WithModel("qwen3:32b"))

	var tokens []string
	result, err := c.GenerateStream(context.Background(), "go", func(token string) {
		tokens = append(tokens, token)
	})
	if err != nil {
		t.Fatalf("GenerateStream: %v", err)
	}
	if result.Content != "foo bar" {
		t.Errorf("content = %q, want %q", result.Content, "foo bar")
	}
	if len(tokens) != 2 {
		t.Errorf("callback fired %d times, want 2", len(tokens))
	}
	if result.Stats.TotalTokens != 7 {
		t.Errorf("TotalTokens = %d, want 7", result.Stats.TotalTokens)
	}
	if result.Stats.TokensPerSecond != 1 {
		t.Errorf("TokensPerSecond = %v, want 1", result.Stats.TokensPerSecond)
	}
}

func TestChatStreamSkipsMalformedLines(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintln(w, `{"message":{"role":"assistant","content":"a"},"done":false}`)
		fmt.Fprintln(w, `not json`)
		fmt.Fprintln(w, `{"message":{"role":"assistant","content":"b"},"done":true,"eval_count":2}`)
	}))
	defer srv.Close()

	c := NewClient(WithBaseURL(srv.URL))
	result, err := c.ChatStream(context.Background(), []Message{{Role: "user", Content: "hi"}}, nil)
	if err != nil {
		t.Fatalf("ChatStream: %v", err)
	}
	if result.Content != "ab" {
		t.Errorf("content = %q, want ab", result.Content)
	}
}

func TestGenerateStreamSurfacesChunkError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintln(w, `{"response":"a","done":false}`)
		fmt.Fprintln(w, `{"error":"model runner has unexpectedly stopped"}`)
	}))
	defer srv.Close()

	c := NewClient(WithBaseURL(srv.URL))
	_, err := c.GenerateStream(context.Background(), "go", nil)
	if err == nil || !strings.Contains(err.Error(), "model runner has unexpectedly stopped") {
		t.Fatalf("chunk error lost: %v", err)
	}
}

func TestBearerToken(t *testing.T) {
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		fmt.Fprint(w, `{"models":[]}`)
	}))
	defer srv.Close()

	c := NewClient(WithBaseURL(srv.URL), WithToken("secret"))
	if err := c.CheckConnection(context.Background()); err != nil {
		t.Fatalf("CheckConnection: %v", err)
	}
	if gotAuth != "Bearer secret" {
		t.Errorf("Authorization = %q, want Bearer secret", gotAuth)
	}
}

func TestEmbed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/embeddings" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		fmt.Fprint(w, `{"embedding":[0.1,0.2,0.3]}`)
	}))
	defer srv.Close()

	c := NewClient(WithBaseURL(srv.URL), WithModel("nomic-embed-text"))
	vec, err := c.Embed(context.Background(), "hello")
	if err != nil {
		t.Fatalf("Embed: %v", err)
	}
	if len(vec) != 3 || vec[1] != 0.2 {
		t.Errorf("unexpected embedding %v", vec)
	}
}

func TestClientOptions(t *testing.T) {
	c := NewClient(WithModel("m"), WithOptions(map[string]any{"temperature": 0.5}))
	if c.GetModel() != "m" {
		t.Errorf("model = %q", c.GetModel())
	}
	c.SetTemperature(0.3)
	if c.options["temperature"] != 0.3 {
		t.Errorf("temperature = %v", c.options["temperature"])
	}
	c.SetContextWindow(32768)
	if c.options["num_ctx"] != 32768 {
		t.Errorf("num_ctx = %v", c.options["num_ctx"])
	}
}
