package judge

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/kadirpekel/obot/pkg/ollama"
)

type fakeChatter struct {
	reply string
	err   error
}

func (f *fakeChatter) Chat(ctx context.Context, messages []ollama.Message) (string, *ollama.InferenceStats, error) {
	return f.reply, nil, f.err
}

const coderReply = `PROMPT_ADHERENCE: 92
PROJECT_QUALITY: 88
ACTIONS: 14
ERRORS: 1
OBSERVATIONS:
- clean separation of concerns
* tests cover the edge cases
• error paths are handled
RECOMMENDATIONS:
- add a benchmark for the hot loop
`

const researcherReply = `PROMPT_ADHERENCE: 80
PROJECT_QUALITY: 76
OBSERVATIONS:
- sources were verified
RECOMMENDATIONS:
- cite the upstream docs
`

const synthesisReply = `PROMPT GOAL: Add a persistent cache
IMPLEMENTATION: Added a bolt-backed cache with TTL eviction.
Wired it into the fetch path.
EXPERT CONSENSUS: strong agreement
DISCOVERIES:
- the fetch path dominated latency
- eviction was the tricky part
ISSUES: None
QUALITY ASSESSMENT: ACCEPTABLE
JUSTIFICATION: Solid work with minor gaps.
RECOMMENDATIONS:
1. Add cache metrics
2. Document the TTL default
`

func TestParseReportTolerantMarkers(t *testing.T) {
	report := parseReport(ExpertCoder, coderReply)
	if report.PromptAdherence != 92 || report.ProjectQuality != 88 {
		t.Errorf("scores = %f/%f", report.PromptAdherence, report.ProjectQuality)
	}
	if report.ActionsTaken != 14 || report.ErrorsMade != 1 {
		t.Errorf("counts = %d/%d", report.ActionsTaken, report.ErrorsMade)
	}
	if len(report.Observations) != 3 {
		t.Errorf("observations = %v, want all three marker styles accepted", report.Observations)
	}
	if len(report.Recommendations) != 1 {
		t.Errorf("recommendations = %v", report.Recommendations)
	}
}

func TestEvaluateFullPass(t *testing.T) {
	c := NewCoordinator(
		&fakeChatter{reply: synthesisReply},
		WithExpert(ExpertCoder, &fakeChatter{reply: coderReply}),
		WithExpert(ExpertResearcher, &fakeChatter{reply: researcherReply}),
	)

	analysis, err := c.Evaluate(context.Background(), &Input{
		OriginalPrompt: "Add a persistent cache",
		FlowCode:       "S1P123S2P123S3P123S4P123S5P123",
	})
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}

	if len(analysis.Reports) != 2 || len(analysis.Failures) != 0 {
		t.Fatalf("reports=%d failures=%v", len(analysis.Reports), analysis.Failures)
	}
	if got := analysis.Consensus.PromptAdherenceAvg; got != 86 {
		t.Errorf("adherence avg = %f, want 86", got)
	}
	if got := analysis.Consensus.ProjectQualityAvg; got != 82 {
		t.Errorf("quality avg = %f, want 82", got)
	}

	tldr := analysis.TLDR
	if tldr.QualityAssessment != QualityAcceptable {
		t.Errorf("quality = %s", tldr.QualityAssessment)
	}
	if !strings.Contains(tldr.ImplementationSummary, "Wired it into the fetch path.") {
		t.Errorf("multi-line implementation lost: %q", tldr.ImplementationSummary)
	}
	if len(tldr.Discoveries) != 2 {
		t.Errorf("discoveries = %v", tldr.Discoveries)
	}
	if len(tldr.Issues) != 0 {
		t.Errorf("'None' should yield no issues, got %v", tldr.Issues)
	}
	if len(tldr.Recommendations) != 2 || tldr.Recommendations[0] != "Add cache metrics" {
		t.Errorf("numbered recommendations = %v", tldr.Recommendations)
	}
}

func TestEvaluateToleratesOneFailingExpert(t *testing.T) {
	c := NewCoordinator(
		&fakeChatter{reply: synthesisReply},
		WithExpert(ExpertCoder, &fakeChatter{reply: coderReply}),
		WithExpert(ExpertVision, &fakeChatter{err: errors.New("model crashed")}),
	)

	analysis, err := c.Evaluate(context.Background(), &Input{OriginalPrompt: "goal"})
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if len(analysis.Failures) != 1 || analysis.Failures[0] != "vision" {
		t.Errorf("failures = %v", analysis.Failures)
	}
	// Consensus covers only the surviving expert
	if analysis.Consensus.PromptAdherenceAvg != 92 {
		t.Errorf("consensus from survivors = %f", analysis.Consensus.PromptAdherenceAvg)
	}
}

func TestEvaluateAllExpertsFailing(t *testing.T) {
	c := NewCoordinator(
		&fakeChatter{reply: synthesisReply},
		WithExpert(ExpertCoder, &fakeChatter{err: errors.New("down")}),
	)

	analysis, err := c.Evaluate(context.Background(), &Input{OriginalPrompt: "goal"})
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if len(analysis.Failures) != 1 || analysis.Failures[0] != "coder" {
		t.Errorf("failures = %v", analysis.Failures)
	}
	if analysis.TLDR != nil {
		t.Error("synthesis ran without reports")
	}
}

func TestEvaluateNoExpertsConfigured(t *testing.T) {
	// A failing synthesizer proves synthesis is never attempted: any
	// call would surface its error.
	c := NewCoordinator(&fakeChatter{err: errors.New("should not be called")})

	analysis, err := c.Evaluate(context.Background(), &Input{OriginalPrompt: "goal"})
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	want := []string{"coder", "researcher", "vision"}
	if len(analysis.Failures) != len(want) {
		t.Fatalf("failures = %v, want %v", analysis.Failures, want)
	}
	for i, expert := range want {
		if analysis.Failures[i] != expert {
			t.Errorf("failures[%d] = %s, want %s", i, analysis.Failures[i], expert)
		}
	}
	if analysis.TLDR != nil {
		t.Error("TLDR produced with no expert reports")
	}
}

func TestQualityFallbackFromConsensus(t *testing.T) {
	// Synthesis without a recognizable quality line
	c := NewCoordinator(
		&fakeChatter{reply: "PROMPT GOAL: x\nIMPLEMENTATION: y\nQUALITY ASSESSMENT: superb\n"},
		WithExpert(ExpertCoder, &fakeChatter{reply: "PROMPT_ADHERENCE: 95\nPROJECT_QUALITY: 95\n"}),
	)

	analysis, err := c.Evaluate(context.Background(), &Input{OriginalPrompt: "goal"})
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if analysis.TLDR.QualityAssessment != QualityExceptional {
		t.Errorf("fallback quality = %s, want EXCEPTIONAL from 95%% consensus", analysis.TLDR.QualityAssessment)
	}
}

func TestAssessQualityBands(t *testing.T) {
	cases := []struct {
		score float64
		want  QualityLevel
	}{
		{95, QualityExceptional},
		{90, QualityExceptional},
		{89.9, QualityAcceptable},
		{70, QualityAcceptable},
		{69.9, QualityNeedsImprovement},
		{0, QualityNeedsImprovement},
	}
	for _, tc := range cases {
		if got := AssessQuality(tc.score); got != tc.want {
			t.Errorf("AssessQuality(%f) = %s, want %s", tc.score, got, tc.want)
		}
	}
}

func TestSynthesisWithoutSynthesizer(t *testing.T) {
	c := NewCoordinator(nil, WithExpert(ExpertCoder, &fakeChatter{reply: coderReply}))
	if _, err := c.Evaluate(context.Background(), &Input{OriginalPrompt: "goal"}); err == nil {
		t.Fatal("expected error without a synthesizer")
	}
}

func TestRenderTLDR(t *testing.T) {
	tldr := &TLDR{
		PromptGoal:            "Add a persistent cache",
		ImplementationSummary: "Added a bolt-backed cache.",
		Consensus: Consensus{
			PromptAdherenceAvg: 86,
			ProjectQualityAvg:  82,
			PromptAdherence:    map[ExpertType]float64{ExpertCoder: 92},
			ProjectQuality:     map[ExpertType]float64{ExpertCoder: 88},
		},
		Discoveries:       []string{"fetch path dominated latency"},
		QualityAssessment: QualityAcceptable,
		Justification:     "Solid work.",
		Recommendations:   []string{"Add cache metrics"},
	}

	out := RenderTLDR(tldr)
	for _, want := range []string{
		"Final Analysis TLDR", "PROMPT GOAL", "EXPERT CONSENSUS",
		"ACCEPTABLE", "1. Add cache metrics", "DISCOVERIES",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("render missing %q", want)
		}
	}
}
