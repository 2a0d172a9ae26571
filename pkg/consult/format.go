package consult

import (
	"fmt"
	"strings"
)

// ChangeDescription summarizes one change shown during feedback.
type ChangeDescription struct {
	Description string
	File        string
	Lines       string
}

// VerificationResults carries the verify process outcome into feedback.
type VerificationResults struct {
	TestsPassed  int
	TestsTotal   int
	LintWarnings int
	LintErrors   int
	BuildStatus  string
}

// FeedbackQuestion is one structured question for the operator.
type FeedbackQuestion struct {
	Question string
	Options  []string
}

// FormatClarifyRequest builds a clarify consultation with lettered
// options.
func FormatClarifyRequest(context, ambiguity string, options []string) Request {
	var sb strings.Builder
	sb.WriteString("CLARIFY REQUEST\n")
	sb.WriteString("───────────────\n")
	fmt.Fprintf(&sb, "Context: %s\n", context)
	fmt.Fprintf(&sb, "Ambiguity: %s\n", ambiguity)
	sb.WriteString("Options:\n")
	for i, opt := range options {
		fmt.Fprintf(&sb, "  %c) %s\n", 'A'+i, opt)
	}
	sb.WriteString("\nWhich option best matches your intent?")

	return Request{
		Kind:     KindClarify,
		Question: sb.String(),
		Options:  options,
	}
}

// FormatFeedbackRequest builds the feedback demonstration shown after
// the verify process.
func FormatFeedbackRequest(changes []ChangeDescription, results VerificationResults, questions []FeedbackQuestion) Request {
	var sb strings.Builder
	sb.WriteString("FEEDBACK DEMONSTRATION\n")
	sb.WriteString("──────────────────────\n")
	sb.WriteString("Changes Made:\n")
	for i, change := range changes {
		fmt.Fprintf(&sb, "  %d. %s\n", i+1, change.Description)
		fmt.Fprintf(&sb, "     File: %s\n", change.File)
		fmt.Fprintf(&sb, "     Lines: %s\n\n", change.Lines)
	}

	sb.WriteString("Verification Results:\n")
	fmt.Fprintf(&sb, "  ✓ Tests: %d/%d passed\n", results.TestsPassed, results.TestsTotal)
	fmt.Fprintf(&sb, "  ✓ Lint: %d warnings, %d errors\n", results.LintWarnings, results.LintErrors)
	fmt.Fprintf(&sb, "  ✓ Build: %s\n\n", results.BuildStatus)

	sb.WriteString("Questions for Review:\n")
	for i, q := range questions {
		fmt.Fprintf(&sb, "  Q%d: %s\n", i+1, q.Question)
		fmt.Fprintf(&sb, "      %s\n\n", strings.Join(q.Options, " "))
	}

	return Request{
		Kind:     KindFeedback,
		Question: sb.String(),
	}
}
