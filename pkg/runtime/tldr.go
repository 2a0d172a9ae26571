package runtime

import (
	"context"
	"log/slog"

	"github.com/kadirpekel/obot/pkg/errs"
	"github.com/kadirpekel/obot/pkg/judge"
	"github.com/kadirpekel/obot/pkg/orchestrate"
	"github.com/kadirpekel/obot/pkg/session"
)

// Evaluate runs the multi-expert final analysis over the run. Every
// configured worker model reviews the session independently; the
// orchestrator model synthesizes their reports into the TLDR.
func (h *RunHandle) Evaluate(ctx context.Context) (*judge.Analysis, error) {
	synth := h.o.coord.Orchestrator()
	if synth == nil {
		return nil, errs.New(errs.ErrModelNotFound, "no orchestrator model available for synthesis")
	}

	var opts []judge.Option
	experts := map[judge.ExpertType]orchestrate.Role{
		judge.ExpertCoder:      orchestrate.RoleCoder,
		judge.ExpertResearcher: orchestrate.RoleResearcher,
		judge.ExpertVision:     orchestrate.RoleVision,
	}
	for expert, role := range experts {
		if client := h.o.coord.Client(role); client != nil {
			opts = append(opts, judge.WithExpert(expert, client))
		}
	}

	var actions, failures []string
	for _, step := range h.sess.Steps {
		actions = append(actions, step.Input)
		if !step.Success {
			failures = append(failures, step.Input)
		}
	}

	input := &judge.Input{
		OriginalPrompt: h.sess.Task.Description,
		FlowCode:       h.machine.FlowCode(),
		Actions:        actions,
		Errors:         failures,
	}
	return judge.NewCoordinator(synth, opts...).Evaluate(ctx, input)
}

// Analysis returns the final judge analysis, or nil when the run has not
// reached goal-met termination.
func (h *RunHandle) Analysis() *judge.Analysis {
	return h.analysis
}

// finalizeAnalysis runs the judge over the terminating run and stores the
// verdict on the session before it is sealed. Analysis failures degrade
// the session to one without a TLDR rather than failing the run.
func (h *RunHandle) finalizeAnalysis() {
	analysis, err := h.Evaluate(h.ctx)
	if err != nil {
		slog.Warn("final analysis unavailable", "error", err)
		return
	}
	h.analysis = analysis
	if analysis.TLDR != nil {
		h.sess.TLDR = usfTLDR(analysis.TLDR)
	}
}

func usfTLDR(t *judge.TLDR) *session.USFTLDR {
	out := &session.USFTLDR{
		PromptGoal:            t.PromptGoal,
		ImplementationSummary: t.ImplementationSummary,
		QualityAssessment:     string(t.QualityAssessment),
		Justification:         t.Justification,
		PromptAdherenceAvg:    t.Consensus.PromptAdherenceAvg,
		ProjectQualityAvg:     t.Consensus.ProjectQualityAvg,
		Discoveries:           append([]string(nil), t.Discoveries...),
		Learnings:             append([]string(nil), t.Learnings...),
		Recommendations:       append([]string(nil), t.Recommendations...),
	}
	for _, issue := range t.Issues {
		out.Issues = append(out.Issues, issue.Description)
	}
	return out
}
