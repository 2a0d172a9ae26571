package schedule

import (
	"strings"
	"testing"

	"github.com/kadirpekel/obot/pkg/orchestrate"
)

func TestNewBuildsAllFive(t *testing.T) {
	for id := orchestrate.ScheduleKnowledge; id <= orchestrate.ScheduleProduction; id++ {
		s, err := New(id)
		if err != nil {
			t.Fatalf("New(%d): %v", id, err)
		}
		if s.Name == "" || s.Summary == "" {
			t.Errorf("%s: incomplete descriptor", s.Name)
		}
		for i, p := range s.Processes {
			if p.ID != orchestrate.ProcessID(i+1) {
				t.Errorf("%s process %d has ID %d", s.Name, i, p.ID)
			}
			if p.Name == "" {
				t.Errorf("%s process %d has no name", s.Name, i)
			}
			if p.Prompt == "" {
				t.Errorf("%s/%s has no prompt", s.Name, p.Name)
			}
		}
	}
}

func TestNewRejectsUnknownID(t *testing.T) {
	if _, err := New(0); err == nil {
		t.Error("New(0) accepted")
	}
	if _, err := New(6); err == nil {
		t.Error("New(6) accepted")
	}
}

func TestProcessNames(t *testing.T) {
	s, _ := New(orchestrate.ScheduleKnowledge)
	want := []string{"Research", "Crawl", "Retrieve"}
	for i, name := range want {
		if got := s.Processes[i].Name; got != name {
			t.Errorf("Knowledge P%d = %s, want %s", i+1, got, name)
		}
	}
}

func TestConsultationRequirements(t *testing.T) {
	plan, _ := New(orchestrate.SchedulePlan)
	if got := plan.Process(orchestrate.Process2).Consultation; got != orchestrate.ConsultationOptional {
		t.Errorf("Plan Clarify consultation = %s, want optional", got)
	}
	if plan.Process(orchestrate.Process1).RequiresConsultation() {
		t.Error("Plan Brainstorm should not require consultation")
	}

	impl, _ := New(orchestrate.ScheduleImplement)
	feedback := impl.Process(orchestrate.Process3)
	if feedback.Consultation != orchestrate.ConsultationMandatory {
		t.Errorf("Implement Feedback consultation = %s, want mandatory", feedback.Consultation)
	}
	if !feedback.RequiresConsultation() {
		t.Error("Implement Feedback should require consultation")
	}
}

func TestModelAssignments(t *testing.T) {
	knowledge, _ := New(orchestrate.ScheduleKnowledge)
	if knowledge.Model != orchestrate.RoleResearcher {
		t.Errorf("Knowledge model = %s, want researcher", knowledge.Model)
	}
	impl, _ := New(orchestrate.ScheduleImplement)
	if impl.Model != orchestrate.RoleCoder {
		t.Errorf("Implement model = %s, want coder", impl.Model)
	}
}

func TestPromptShape(t *testing.T) {
	s, _ := New(orchestrate.ScheduleKnowledge)
	prompt := s.Prompt(orchestrate.Process1)

	if !strings.HasPrefix(prompt, "### PROCESS: RESEARCH (Knowledge P1)") {
		t.Errorf("prompt header wrong:\n%s", prompt)
	}
	for _, section := range []string{"TASKS:", "GUIDELINES:", "OUTPUT:", "IDENTIFY GAPS"} {
		if !strings.Contains(prompt, section) {
			t.Errorf("prompt missing %q", section)
		}
	}
	if !strings.Contains(prompt, "1. **Scan Workspace**") {
		t.Error("tasks are not numbered")
	}
}

func TestEveryPromptNamesItsProcess(t *testing.T) {
	for _, s := range All() {
		for _, p := range s.Processes {
			header := "### PROCESS: " + strings.ToUpper(p.Name)
			if !strings.HasPrefix(p.Prompt, header) {
				t.Errorf("%s/%s prompt does not open with %q", s.Name, p.Name, header)
			}
		}
	}
}

func TestProcessOutOfRange(t *testing.T) {
	s, _ := New(orchestrate.ScheduleScale)
	if s.Process(0) != nil || s.Process(4) != nil {
		t.Error("out-of-range process lookup returned a descriptor")
	}
	if s.Prompt(0) != "" {
		t.Error("out-of-range prompt lookup returned text")
	}
}
