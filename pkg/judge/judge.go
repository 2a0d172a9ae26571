package judge

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/kadirpekel/obot/pkg/ollama"
	"github.com/kadirpekel/obot/pkg/ui"
)

// Coordinator fans a session out to the expert models and synthesizes
// their reports through the orchestrator model.
type Coordinator struct {
	synthesizer ollama.Chatter
	experts     map[ExpertType]ollama.Chatter
}

type Option func(*Coordinator)

// WithExpert registers an expert reviewer.
func WithExpert(expert ExpertType, client ollama.Chatter) Option {
	return func(c *Coordinator) { c.experts[expert] = client }
}

// NewCoordinator creates a judge coordinator. The synthesizer is the
// orchestrator model; experts are added via WithExpert.
func NewCoordinator(synthesizer ollama.Chatter, opts ...Option) *Coordinator {
	c := &Coordinator{
		synthesizer: synthesizer,
		experts:     make(map[ExpertType]ollama.Chatter),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Evaluate runs every expert in parallel, tolerating individual expert
// failures, and synthesizes the surviving reports. When no expert produced
// a report the analysis comes back with every expert listed in Failures
// and no TLDR; synthesis is skipped rather than attempted on nothing.
func (c *Coordinator) Evaluate(ctx context.Context, input *Input) (*Analysis, error) {
	analysis := &Analysis{
		Reports:   make(map[ExpertType]*Report),
		StartTime: time.Now(),
	}

	if len(c.experts) == 0 {
		for _, expert := range []ExpertType{ExpertCoder, ExpertResearcher, ExpertVision} {
			analysis.Failures = append(analysis.Failures, string(expert))
		}
	}

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	for expert, client := range c.experts {
		g.Go(func() error {
			report, err := c.consult(gctx, expert, client, input)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				slog.Warn("expert review failed", "expert", expert, "err", err)
				analysis.Failures = append(analysis.Failures, string(expert))
				return nil // one dead expert must not sink the review
			}
			analysis.Reports[expert] = report
			return nil
		})
	}
	g.Wait()
	sort.Strings(analysis.Failures)

	if len(analysis.Reports) == 0 {
		analysis.EndTime = time.Now()
		return analysis, nil
	}

	analysis.Consensus = consensusOf(analysis.Reports)

	tldr, err := c.synthesize(ctx, input, analysis)
	if err != nil {
		return analysis, err
	}
	analysis.TLDR = tldr
	analysis.EndTime = time.Now()
	return analysis, nil
}

func (c *Coordinator) consult(ctx context.Context, expert ExpertType, client ollama.Chatter, input *Input) (*Report, error) {
	if client == nil {
		return nil, fmt.Errorf("%s model not configured", expert)
	}

	messages := []ollama.Message{
		{Role: "system", Content: expertSystemPrompt(expert)},
		{Role: "user", Content: expertUserPrompt(input)},
	}
	resp, err := chat(ctx, client, messages)
	if err != nil {
		return nil, fmt.Errorf("%s analysis failed: %w", expert, err)
	}
	return parseReport(expert, resp), nil
}

// chat prefers the streaming endpoint so a cancelled evaluation aborts the
// in-flight review instead of waiting out the full response.
func chat(ctx context.Context, client ollama.Chatter, messages []ollama.Message) (string, error) {
	if sc, ok := client.(ollama.StreamingChatter); ok {
		result, err := sc.ChatStream(ctx, messages, nil)
		if err != nil {
			return "", err
		}
		return result.Content, nil
	}
	resp, _, err := client.Chat(ctx, messages)
	return resp, err
}

func expertSystemPrompt(expert ExpertType) string {
	return fmt.Sprintf(`You are the expert %s judge. Analyze the following session from your perspective.
Provide your analysis in the following structured format:
PROMPT_ADHERENCE: [score 0-100]
PROJECT_QUALITY: [score 0-100]
ACTIONS: [count]
ERRORS: [count]
OBSERVATIONS:
- observation 1
- observation 2
- observation 3
RECOMMENDATIONS:
- recommendation 1
- recommendation 2`, expert)
}

func expertUserPrompt(input *Input) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Original Prompt: %s\n", input.OriginalPrompt)
	fmt.Fprintf(&sb, "Flow Code: %s\n\n", input.FlowCode)

	sb.WriteString("Actions Taken:\n")
	for _, a := range input.Actions {
		sb.WriteString("- " + a + "\n")
	}
	sb.WriteString("\nErrors Encountered:\n")
	for _, e := range input.Errors {
		sb.WriteString("- " + e + "\n")
	}

	if input.TestResults != nil {
		fmt.Fprintf(&sb, "\nTests: %d/%d passed\n", input.TestResults.Passed, input.TestResults.Total)
	}
	if input.LintResults != nil {
		fmt.Fprintf(&sb, "Lint: %d errors, %d warnings\n", input.LintResults.Errors, input.LintResults.Warnings)
	}
	return sb.String()
}

// parseReport extracts scores and bullet lists from an expert response.
// The parser is tolerant: hyphen, asterisk and bullet markers are all
// accepted and unknown lines are skipped.
func parseReport(expert ExpertType, resp string) *Report {
	report := &Report{Expert: expert, Timestamp: time.Now()}

	section := ""
	for _, line := range strings.Split(resp, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		upper := strings.ToUpper(line)

		switch {
		case strings.Contains(upper, "PROMPT_ADHERENCE:"):
			scanScore(line, &report.PromptAdherence)
		case strings.Contains(upper, "PROJECT_QUALITY:"):
			scanScore(line, &report.ProjectQuality)
		case strings.Contains(upper, "ACTIONS:"):
			scanCount(line, &report.ActionsTaken)
		case strings.Contains(upper, "ERRORS:"):
			scanCount(line, &report.ErrorsMade)
		case strings.HasPrefix(upper, "OBSERVATIONS"):
			section = "observations"
		case strings.HasPrefix(upper, "RECOMMENDATIONS"):
			section = "recommendations"
		default:
			if item, ok := bulletItem(line); ok {
				switch section {
				case "observations":
					report.Observations = append(report.Observations, item)
				case "recommendations":
					report.Recommendations = append(report.Recommendations, item)
				}
			}
		}
	}
	return report
}

func scanScore(line string, dst *float64) {
	if _, after, ok := strings.Cut(line, ":"); ok {
		fmt.Sscanf(strings.TrimSpace(after), "%f", dst)
	}
}

func scanCount(line string, dst *int) {
	if _, after, ok := strings.Cut(line, ":"); ok {
		fmt.Sscanf(strings.TrimSpace(after), "%d", dst)
	}
}

func bulletItem(line string) (string, bool) {
	for _, marker := range []string{"- ", "* ", "• "} {
		if strings.HasPrefix(line, marker) {
			return strings.TrimPrefix(line, marker), true
		}
	}
	return "", false
}

func consensusOf(reports map[ExpertType]*Report) *Consensus {
	consensus := &Consensus{
		PromptAdherence: make(map[ExpertType]float64),
		ProjectQuality:  make(map[ExpertType]float64),
	}

	var sumAdherence, sumQuality float64
	for expert, report := range reports {
		consensus.PromptAdherence[expert] = report.PromptAdherence
		consensus.ProjectQuality[expert] = report.ProjectQuality
		sumAdherence += report.PromptAdherence
		sumQuality += report.ProjectQuality
	}
	n := float64(len(reports))
	consensus.PromptAdherenceAvg = sumAdherence / n
	consensus.ProjectQualityAvg = sumQuality / n
	return consensus
}

func (c *Coordinator) synthesize(ctx context.Context, input *Input, analysis *Analysis) (*TLDR, error) {
	if c.synthesizer == nil {
		return nil, fmt.Errorf("orchestrator model not configured for synthesis")
	}

	messages := []ollama.Message{
		{Role: "system", Content: "You are the Chief Orchestrator. Synthesize these expert reviews into a final TLDR."},
		{Role: "user", Content: synthesisPrompt(input, analysis)},
	}
	resp, err := chat(ctx, c.synthesizer, messages)
	if err != nil {
		return nil, fmt.Errorf("synthesis failed: %w", err)
	}

	tldr := parseTLDR(resp, input.OriginalPrompt, *analysis.Consensus)
	if !validQuality(tldr.QualityAssessment) {
		tldr.QualityAssessment = AssessQuality(analysis.Consensus.ProjectQualityAvg)
	}
	return tldr, nil
}

func validQuality(q QualityLevel) bool {
	return q == QualityExceptional || q == QualityAcceptable || q == QualityNeedsImprovement
}

func synthesisPrompt(input *Input, analysis *Analysis) string {
	var sb strings.Builder
	sb.WriteString(`Your response must follow this EXACT structure:

PROMPT GOAL: [Original goal]
IMPLEMENTATION: [Summary of what was done]
EXPERT CONSENSUS: [Aggregated scores and consensus]
DISCOVERIES:
- [Discovery 1]
- [Discovery 2]
- [Discovery 3 (optional)]
ISSUES: [List of issues found or 'None']
QUALITY ASSESSMENT: [EXCEPTIONAL/ACCEPTABLE/NEEDS_IMPROVEMENT]
JUSTIFICATION: [Reasoning for the assessment]
RECOMMENDATIONS:
1. [Recommendation 1]
2. [Recommendation 2]
3. [Recommendation 3]

Expert Reports:
`)

	experts := make([]ExpertType, 0, len(analysis.Reports))
	for expert := range analysis.Reports {
		experts = append(experts, expert)
	}
	sort.Slice(experts, func(i, j int) bool { return experts[i] < experts[j] })

	for _, expert := range experts {
		report := analysis.Reports[expert]
		fmt.Fprintf(&sb, "\n--- %s Expert ---\n", expert)
		fmt.Fprintf(&sb, "Adherence: %.1f%%, Quality: %.1f%%\n", report.PromptAdherence, report.ProjectQuality)
		sb.WriteString("Observations: " + strings.Join(report.Observations, "; ") + "\n")
		sb.WriteString("Recommendations: " + strings.Join(report.Recommendations, "; ") + "\n")
	}
	return sb.String()
}

// parseTLDR extracts the structured sections of the synthesis response.
// Numbered recommendations ("1. ...") are accepted alongside bullets.
func parseTLDR(resp, goal string, consensus Consensus) *TLDR {
	tldr := &TLDR{PromptGoal: goal, Consensus: consensus}

	section := ""
	for _, line := range strings.Split(resp, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		upper := strings.ToUpper(line)

		switch {
		case strings.HasPrefix(upper, "PROMPT GOAL:"):
			if v := strings.TrimSpace(line[len("PROMPT GOAL:"):]); v != "" {
				tldr.PromptGoal = v
			}
			section = ""
		case strings.HasPrefix(upper, "IMPLEMENTATION:"):
			tldr.ImplementationSummary = strings.TrimSpace(line[len("IMPLEMENTATION:"):])
			section = "implementation"
		case strings.HasPrefix(upper, "EXPERT CONSENSUS:"):
			section = ""
		case strings.HasPrefix(upper, "DISCOVERIES:"):
			section = "discoveries"
		case strings.HasPrefix(upper, "LEARNINGS:"):
			section = "learnings"
		case strings.HasPrefix(upper, "ISSUES:"):
			section = "issues"
			if v := strings.TrimSpace(line[len("ISSUES:"):]); v != "" && !strings.EqualFold(v, "none") {
				tldr.Issues = append(tldr.Issues, Issue{Description: v})
			}
		case strings.HasPrefix(upper, "QUALITY ASSESSMENT:"):
			tldr.QualityAssessment = QualityLevel(strings.TrimSpace(line[len("QUALITY ASSESSMENT:"):]))
			section = ""
		case strings.HasPrefix(upper, "JUSTIFICATION:"):
			tldr.Justification = strings.TrimSpace(line[len("JUSTIFICATION:"):])
			section = "justification"
		case strings.HasPrefix(upper, "RECOMMENDATIONS:"):
			section = "recommendations"
		default:
			appendSectionLine(tldr, section, line)
		}
	}
	return tldr
}

func appendSectionLine(tldr *TLDR, section, line string) {
	item, isBullet := bulletItem(line)

	switch section {
	case "implementation":
		tldr.ImplementationSummary = joinLines(tldr.ImplementationSummary, line)
	case "justification":
		tldr.Justification = joinLines(tldr.Justification, line)
	case "discoveries":
		if isBullet {
			tldr.Discoveries = append(tldr.Discoveries, item)
		}
	case "learnings":
		if isBullet {
			tldr.Learnings = append(tldr.Learnings, item)
		}
	case "issues":
		if isBullet && !strings.EqualFold(item, "none") {
			tldr.Issues = append(tldr.Issues, Issue{Description: item})
		}
	case "recommendations":
		if isBullet {
			tldr.Recommendations = append(tldr.Recommendations, item)
		} else if _, after, ok := strings.Cut(line, ". "); ok {
			tldr.Recommendations = append(tldr.Recommendations, strings.TrimSpace(after))
		}
	}
}

func joinLines(existing, line string) string {
	if existing == "" {
		return line
	}
	return existing + "\n" + line
}

// RenderTLDR formats the verdict as a framed terminal report.
func RenderTLDR(tldr *TLDR) string {
	box := ui.NewBox().
		Title("obot • Final Analysis TLDR").
		Blank().
		Line("PROMPT GOAL").
		Wrapped(tldr.PromptGoal).
		Blank().
		Line("IMPLEMENTATION SUMMARY")
	for _, line := range strings.Split(tldr.ImplementationSummary, "\n") {
		if line != "" {
			box.Wrapped(line)
		}
	}
	box.Blank().
		Line("EXPERT CONSENSUS").
		Wrapped(fmt.Sprintf("Prompt Adherence: %.1f%% / Project Quality: %.1f%%",
			tldr.Consensus.PromptAdherenceAvg, tldr.Consensus.ProjectQualityAvg))

	experts := make([]ExpertType, 0, len(tldr.Consensus.PromptAdherence))
	for expert := range tldr.Consensus.PromptAdherence {
		experts = append(experts, expert)
	}
	sort.Slice(experts, func(i, j int) bool { return experts[i] < experts[j] })
	for _, expert := range experts {
		box.Wrapped(fmt.Sprintf("%s: Adherence %.1f%%, Quality %.1f%%",
			expert, tldr.Consensus.PromptAdherence[expert], tldr.Consensus.ProjectQuality[expert]))
	}
	box.Blank()

	if len(tldr.Discoveries) > 0 || len(tldr.Learnings) > 0 {
		box.Line("DISCOVERIES & LEARNINGS")
		for _, d := range tldr.Discoveries {
			box.Wrapped("• " + d)
		}
		for _, l := range tldr.Learnings {
			box.Wrapped("• " + l)
		}
		box.Blank()
	}

	box.Line("QUALITY ASSESSMENT").
		Label("  Status", string(tldr.QualityAssessment)).
		Line("  Justification:")
	for _, line := range strings.Split(tldr.Justification, "\n") {
		if line != "" {
			box.Wrapped(line)
		}
	}

	if len(tldr.Recommendations) > 0 {
		box.Blank().Line("ACTIONABLE RECOMMENDATIONS")
		for i, rec := range tldr.Recommendations {
			box.Wrapped(fmt.Sprintf("%d. %s", i+1, rec))
		}
	}

	return box.Render()
}
