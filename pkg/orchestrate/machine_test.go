package orchestrate

import (
	"errors"
	"testing"

	"github.com/kadirpekel/obot/pkg/errs"
)

func TestNavigationTable(t *testing.T) {
	cases := []struct {
		from, to ProcessID
		valid    bool
	}{
		{0, Process1, true},
		{0, Process2, false},
		{0, Process3, false},
		{Process1, Process1, true},
		{Process1, Process2, true},
		{Process1, Process3, false},
		{Process2, Process1, true},
		{Process2, Process2, true},
		{Process2, Process3, true},
		{Process3, Process1, false},
		{Process3, Process2, true},
		{Process3, Process3, true},
		// Termination (to == 0) only from P3
		{0, 0, false},
		{Process1, 0, false},
		{Process2, 0, false},
		{Process3, 0, true},
	}
	for _, tc := range cases {
		if got := IsValidNavigation(tc.from, tc.to); got != tc.valid {
			t.Errorf("IsValidNavigation(%d, %d) = %v, want %v", tc.from, tc.to, got, tc.valid)
		}
	}
}

func mustEnter(t *testing.T, m *Machine, id ScheduleID) {
	t.Helper()
	if err := m.EnterSchedule(id); err != nil {
		t.Fatalf("EnterSchedule(%s): %v", id, err)
	}
}

func mustNavigate(t *testing.T, m *Machine, to ProcessID) {
	t.Helper()
	if err := m.Navigate(to); err != nil {
		t.Fatalf("Navigate(P%s): %v", to, err)
	}
}

func runScheduleThrough(t *testing.T, m *Machine, id ScheduleID) {
	t.Helper()
	mustEnter(t, m, id)
	mustNavigate(t, m, Process1)
	mustNavigate(t, m, Process2)
	mustNavigate(t, m, Process3)
	if err := m.TerminateSchedule(); err != nil {
		t.Fatalf("TerminateSchedule(%s): %v", id, err)
	}
}

func TestIllegalJumpIsE001(t *testing.T) {
	m := NewMachine()
	mustEnter(t, m, ScheduleImplement)
	mustNavigate(t, m, Process1)

	err := m.Navigate(Process3)
	if err == nil {
		t.Fatal("P1 to P3 jump accepted")
	}
	var orch *errs.OrchestrationError
	if !errors.As(err, &orch) || orch.Code != errs.ErrInvalidTransition {
		t.Fatalf("err = %v, want E001 OrchestrationError", err)
	}
	if orch.State.FlowCode != "S3P1" {
		t.Errorf("frozen flow code = %q, want S3P1", orch.State.FlowCode)
	}

	// Position unchanged after the rejected move
	if m.Position() != (Position{ScheduleImplement, Process1}) {
		t.Errorf("position moved to %v after rejected jump", m.Position())
	}
}

func TestEarlyTerminationRejected(t *testing.T) {
	m := NewMachine()
	mustEnter(t, m, ScheduleKnowledge)
	mustNavigate(t, m, Process1)
	mustNavigate(t, m, Process2)

	if err := m.TerminateSchedule(); err == nil {
		t.Fatal("schedule terminated from P2")
	}
}

func TestReopenTerminatedScheduleIsE006(t *testing.T) {
	m := NewMachine()
	runScheduleThrough(t, m, ScheduleKnowledge)

	err := m.EnterSchedule(ScheduleKnowledge)
	if err == nil {
		t.Fatal("re-entered a terminated schedule")
	}
	var orch *errs.OrchestrationError
	if !errors.As(err, &orch) || orch.Code != errs.ErrIllegalBacktrack {
		t.Fatalf("err = %v, want E006", err)
	}
}

func TestRunTerminationPolicy(t *testing.T) {
	m := NewMachine()

	for _, id := range []ScheduleID{ScheduleKnowledge, SchedulePlan, ScheduleImplement, ScheduleScale} {
		runScheduleThrough(t, m, id)
		if m.CanTerminateRun() {
			t.Fatalf("run terminable after only %d schedules", m.TerminatedCount())
		}
	}

	runScheduleThrough(t, m, ScheduleProduction)
	if !m.CanTerminateRun() {
		t.Fatal("run not terminable after all 5 schedules with Production last")
	}

	want := "S1P123S2P123S3P123S4P123S5P123"
	if got := m.FlowCode(); got != want {
		t.Errorf("flow code = %q, want %q", got, want)
	}
}

func TestProductionMustBeLast(t *testing.T) {
	m := NewMachine()
	for _, id := range []ScheduleID{ScheduleKnowledge, SchedulePlan, ScheduleImplement, ScheduleProduction, ScheduleScale} {
		runScheduleThrough(t, m, id)
	}
	// All five terminated, but Scale closed after Production
	if m.CanTerminateRun() {
		t.Fatal("run terminable with Production not last")
	}
}

func TestRevisitWithinScheduleAllowed(t *testing.T) {
	m := NewMachine()
	mustEnter(t, m, ScheduleImplement)
	mustNavigate(t, m, Process1)
	mustNavigate(t, m, Process2)
	mustNavigate(t, m, Process3)
	mustNavigate(t, m, Process2) // verify failed, back to P2
	mustNavigate(t, m, Process3)
	if err := m.TerminateSchedule(); err != nil {
		t.Fatalf("TerminateSchedule: %v", err)
	}
	if got := m.FlowCode(); got != "S3P12323" {
		t.Errorf("flow code = %q, want S3P12323", got)
	}
}

func TestEnterWhileActiveRejected(t *testing.T) {
	m := NewMachine()
	mustEnter(t, m, ScheduleKnowledge)
	if err := m.EnterSchedule(SchedulePlan); err == nil {
		t.Fatal("entered a schedule while another is active")
	}
}

func TestOpenSchedules(t *testing.T) {
	m := NewMachine()
	runScheduleThrough(t, m, SchedulePlan)
	open := m.OpenSchedules()
	if len(open) != 4 {
		t.Fatalf("open schedules = %v", open)
	}
	for _, id := range open {
		if id == SchedulePlan {
			t.Error("terminated schedule listed as open")
		}
	}
}

func TestResumeMachine(t *testing.T) {
	m, err := ResumeMachine("S1P123S2P12")
	if err != nil {
		t.Fatalf("ResumeMachine: %v", err)
	}
	if m.Position() != (Position{SchedulePlan, Process2}) {
		t.Errorf("position = %v, want Plan.P2", m.Position())
	}
	if !m.IsTerminated(ScheduleKnowledge) {
		t.Error("Knowledge should be terminated after resume")
	}
	if m.IsTerminated(SchedulePlan) {
		t.Error("Plan should still be open")
	}

	// Machine continues where it left off
	mustNavigate(t, m, Process3)
	if err := m.TerminateSchedule(); err != nil {
		t.Fatalf("TerminateSchedule: %v", err)
	}
	if got := m.FlowCode(); got != "S1P123S2P123" {
		t.Errorf("flow code = %q", got)
	}
}

func TestSuspensionJournaling(t *testing.T) {
	m := NewMachine()
	mustEnter(t, m, ScheduleImplement)
	mustNavigate(t, m, Process1)

	m.Suspend()
	if got := m.FlowCode(); got != "S3P1X" {
		t.Errorf("flow code = %q, want S3P1X", got)
	}

	// Verdict did not advance the run: marker stays
	m.ResumeFromSuspension(false)
	if got := m.FlowCode(); got != "S3P1X" {
		t.Errorf("flow code = %q, want S3P1X", got)
	}

	// Verdict advanced: marker removed
	m.ResumeFromSuspension(true)
	if got := m.FlowCode(); got != "S3P1" {
		t.Errorf("flow code = %q, want S3P1", got)
	}
}

func TestConsultationMapping(t *testing.T) {
	if got := ProcessConsultation(SchedulePlan, Process2); got != ConsultationOptional {
		t.Errorf("Plan.P2 = %s, want optional", got)
	}
	if got := ProcessConsultation(ScheduleImplement, Process3); got != ConsultationMandatory {
		t.Errorf("Implement.P3 = %s, want mandatory", got)
	}
	if got := ProcessConsultation(ScheduleKnowledge, Process1); got != ConsultationNone {
		t.Errorf("Knowledge.P1 = %s, want none", got)
	}
}

func TestScheduleModel(t *testing.T) {
	if got := ScheduleModel(ScheduleKnowledge); got != RoleResearcher {
		t.Errorf("Knowledge model = %s, want researcher", got)
	}
	if got := ScheduleModel(ScheduleImplement); got != RoleCoder {
		t.Errorf("Implement model = %s, want coder", got)
	}
}
