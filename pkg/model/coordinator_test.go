package model

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/kadirpekel/obot/pkg/config"
	"github.com/kadirpekel/obot/pkg/errs"
	"github.com/kadirpekel/obot/pkg/intent"
	"github.com/kadirpekel/obot/pkg/ollama"
	"github.com/kadirpekel/obot/pkg/orchestrate"
	"github.com/kadirpekel/obot/pkg/tier"
)

type fakeLLM struct {
	model string
	reply string
}

func (f *fakeLLM) Generate(ctx context.Context, prompt string) (string, *ollama.InferenceStats, error) {
	return f.reply, nil, nil
}

func (f *fakeLLM) Chat(ctx context.Context, messages []ollama.Message) (string, *ollama.InferenceStats, error) {
	return f.reply, nil, nil
}

func (f *fakeLLM) GetModel() string { return f.model }

func newTestCoordinator(t *testing.T, opts ...Option) *Coordinator {
	t.Helper()
	opts = append([]Option{WithTier(tier.Performance)}, opts...)
	return NewCoordinator(config.Default(), opts...)
}

func TestSelectMapping(t *testing.T) {
	c := newTestCoordinator(t)
	cases := []struct {
		schedule orchestrate.ScheduleID
		process  orchestrate.ProcessID
		intent   intent.Intent
		want     orchestrate.Role
	}{
		{orchestrate.ScheduleKnowledge, orchestrate.Process1, intent.Coding, orchestrate.RoleResearcher},
		{orchestrate.ScheduleKnowledge, orchestrate.Process3, intent.General, orchestrate.RoleResearcher},
		{orchestrate.ScheduleProduction, orchestrate.Process3, intent.Coding, orchestrate.RoleVision},
		{orchestrate.ScheduleProduction, orchestrate.Process1, intent.Coding, orchestrate.RoleCoder},
		{orchestrate.ScheduleImplement, orchestrate.Process1, intent.Coding, orchestrate.RoleCoder},
		{orchestrate.SchedulePlan, orchestrate.Process1, intent.Research, orchestrate.RoleResearcher},
		{orchestrate.SchedulePlan, orchestrate.Process1, intent.Vision, orchestrate.RoleVision},
		{orchestrate.ScheduleScale, orchestrate.Process2, intent.General, orchestrate.RoleCoder},
	}
	for _, tc := range cases {
		if got := c.Select(tc.schedule, tc.process, tc.intent); got != tc.want {
			t.Errorf("Select(%s, P%s, %s) = %s, want %s", tc.schedule, tc.process, tc.intent, got, tc.want)
		}
	}
}

func TestMinimalTierDemotion(t *testing.T) {
	c := newTestCoordinator(t, WithTier(tier.Minimal))

	if got := c.Select(orchestrate.ScheduleImplement, orchestrate.Process1, intent.Coding); got != orchestrate.RoleOrchestrator {
		t.Errorf("coder on minimal tier = %s, want orchestrator", got)
	}
	if got := c.Select(orchestrate.ScheduleProduction, orchestrate.Process3, intent.Coding); got != orchestrate.RoleCoder {
		t.Errorf("vision on minimal tier = %s, want coder", got)
	}
	// The researcher is light enough to keep
	if got := c.Select(orchestrate.ScheduleKnowledge, orchestrate.Process1, intent.General); got != orchestrate.RoleResearcher {
		t.Errorf("researcher on minimal tier = %s", got)
	}
}

func TestTierResolvesModelNames(t *testing.T) {
	c := newTestCoordinator(t, WithTier(tier.Minimal))
	if got := c.RoleFor(orchestrate.RoleCoder).Name; got != "deepseek-coder:1.3b" {
		t.Errorf("minimal coder model = %q", got)
	}

	c = newTestCoordinator(t, WithTier(tier.Performance))
	if got := c.RoleFor(orchestrate.RoleCoder).Name; got != "qwen2.5-coder:32b" {
		t.Errorf("performance coder model = %q", got)
	}
}

func TestRoleConfigs(t *testing.T) {
	c := newTestCoordinator(t)

	cases := []struct {
		role orchestrate.Role
		temp float64
	}{
		{orchestrate.RoleOrchestrator, 0.3},
		{orchestrate.RoleCoder, 0.7},
		{orchestrate.RoleResearcher, 0.5},
		{orchestrate.RoleVision, 0.5},
	}
	for _, tc := range cases {
		rc := c.RoleFor(tc.role)
		if rc == nil {
			t.Fatalf("no config for %s", tc.role)
		}
		if rc.Temperature != tc.temp {
			t.Errorf("%s temperature = %f, want %f", tc.role, rc.Temperature, tc.temp)
		}
		if rc.SystemPrompt == "" {
			t.Errorf("%s has no system prompt", tc.role)
		}
	}

	// RoleFor returns a copy
	c.RoleFor(orchestrate.RoleCoder).Name = "mutated"
	if c.RoleFor(orchestrate.RoleCoder).Name == "mutated" {
		t.Error("RoleFor leaked internal config")
	}
}

func TestFallbackChain(t *testing.T) {
	c := newTestCoordinator(t)
	coder := c.RoleFor(orchestrate.RoleCoder).Name
	researcher := c.RoleFor(orchestrate.RoleResearcher).Name

	// Vision missing, coder installed
	installed := map[string]bool{coder: true}
	if got := c.Fallback(orchestrate.RoleVision, installed); got != orchestrate.RoleCoder {
		t.Errorf("vision fallback = %s, want coder", got)
	}

	// Vision and coder missing, researcher installed
	installed = map[string]bool{researcher: true}
	if got := c.Fallback(orchestrate.RoleVision, installed); got != orchestrate.RoleResearcher {
		t.Errorf("vision fallback = %s, want researcher", got)
	}

	// Nothing installed: chain terminates at the orchestrator
	if got := c.Fallback(orchestrate.RoleVision, nil); got != orchestrate.RoleOrchestrator {
		t.Errorf("empty fallback = %s, want orchestrator", got)
	}
}

func TestWithClientInjectsFake(t *testing.T) {
	fake := &fakeLLM{model: "fake", reply: "hello"}
	c := newTestCoordinator(t, WithClient(orchestrate.RoleCoder, fake))

	got, _, err := c.Client(orchestrate.RoleCoder).Generate(context.Background(), "hi")
	if err != nil || got != "hello" {
		t.Fatalf("fake client Generate = %q, %v", got, err)
	}
	if c.Client(orchestrate.RoleOrchestrator) == nil {
		t.Error("non-overridden role has no client")
	}
}

func TestTokenAccounting(t *testing.T) {
	c := newTestCoordinator(t)
	c.RecordTokens(orchestrate.RoleCoder, 100)
	c.RecordTokens(orchestrate.RoleCoder, 50)
	c.RecordTokens(orchestrate.RoleVision, 10)

	counts := c.TokenCounts()
	if counts[orchestrate.RoleCoder] != 150 {
		t.Errorf("coder tokens = %d, want 150", counts[orchestrate.RoleCoder])
	}
	if c.TotalTokens() != 160 {
		t.Errorf("total tokens = %d, want 160", c.TotalTokens())
	}
}

func TestHandoff(t *testing.T) {
	c := newTestCoordinator(t)
	c.Handoff(orchestrate.RoleVision)
	if got := c.ActiveRole(); got != orchestrate.RoleVision {
		t.Errorf("active role = %s", got)
	}
}

func TestValidateDaemonDown(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // guaranteed-dead endpoint

	probe := ollama.NewClient(ollama.WithBaseURL(srv.URL))
	c := newTestCoordinator(t, WithProbe(probe))

	err := c.Validate(context.Background())
	if code, ok := errs.CodeOf(err); !ok || code != errs.ErrOllamaUnavailable {
		t.Fatalf("err = %v, want E010", err)
	}
}

func TestValidateMissingModel(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(ollama.TagsResponse{Models: []ollama.ModelInfo{
			{Name: "qwen3:32b"},
		}})
	}))
	defer srv.Close()

	probe := ollama.NewClient(ollama.WithBaseURL(srv.URL))
	c := newTestCoordinator(t, WithProbe(probe))

	err := c.Validate(context.Background())
	if code, ok := errs.CodeOf(err); !ok || code != errs.ErrModelNotFound {
		t.Fatalf("err = %v, want E011", err)
	}
}

func TestValidateAllInstalled(t *testing.T) {
	c := newTestCoordinator(t)
	var names []ollama.ModelInfo
	for _, role := range []orchestrate.Role{
		orchestrate.RoleOrchestrator, orchestrate.RoleCoder,
		orchestrate.RoleResearcher, orchestrate.RoleVision,
	} {
		names = append(names, ollama.ModelInfo{Name: c.RoleFor(role).Name})
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(ollama.TagsResponse{Models: names})
	}))
	defer srv.Close()

	probe := ollama.NewClient(ollama.WithBaseURL(srv.URL))
	c2 := newTestCoordinator(t, WithProbe(probe))
	if err := c2.Validate(context.Background()); err != nil {
		t.Fatalf("Validate: %v", err)
	}
}
