package orchestrate

import (
	"regexp"
	"testing"
)

func TestFlowCodeHappyPath(t *testing.T) {
	f := NewFlowCode()
	for s := ScheduleKnowledge; s <= ScheduleProduction; s++ {
		f.AddSchedule(s)
		for p := Process1; p <= Process3; p++ {
			f.AddProcess(p)
		}
	}

	want := "S1P123S2P123S3P123S4P123S5P123"
	if got := f.String(); got != want {
		t.Fatalf("flow code = %q, want %q", got, want)
	}

	happy := regexp.MustCompile(`^(S[12345]P1(2(3)?)?)+X?$`)
	if !happy.MatchString(f.String()) {
		t.Errorf("happy-path code %q does not match grammar", f.String())
	}
}

func TestFlowCodeRetriesAndRevisits(t *testing.T) {
	f := NewFlowCode()
	f.AddSchedule(ScheduleImplement)
	f.AddProcess(Process1)
	f.AddProcess(Process1) // retry P1
	f.AddProcess(Process2)
	f.AddProcess(Process3)
	f.AddProcess(Process2) // back to verify
	f.AddProcess(Process3)

	if got := f.String(); got != "S3P112323" {
		t.Errorf("flow code = %q, want S3P112323", got)
	}
}

func TestSuspensionMarker(t *testing.T) {
	f := NewFlowCode()
	f.AddSchedule(SchedulePlan)
	f.AddProcess(Process1)
	f.MarkSuspended()
	if f.String() != "S2P1X" {
		t.Errorf("code = %q, want S2P1X", f.String())
	}

	// Idempotent while suspended
	f.MarkSuspended()
	if f.String() != "S2P1X" {
		t.Errorf("code = %q after double mark", f.String())
	}

	// Verdict advanced the run: marker removed
	f.ClearSuspended()
	if f.String() != "S2P1" {
		t.Errorf("code = %q after clear, want S2P1", f.String())
	}

	// Clearing when not suspended is a no-op
	f.ClearSuspended()
	if f.String() != "S2P1" {
		t.Errorf("code = %q, want S2P1", f.String())
	}
}

func TestParseRoundTrip(t *testing.T) {
	codes := []string{
		"",
		"S1P1",
		"S1P123",
		"S1P123S2P12",
		"S3P112323",
		"S1P123S2P1X",
		"S1P123S2P123S3P123S4P123S5P123",
	}
	for _, code := range codes {
		events, err := Parse(code)
		if err != nil {
			t.Errorf("Parse(%q): %v", code, err)
			continue
		}

		// Re-apply events and check we reproduce the input
		f := NewFlowCode()
		for _, ev := range events {
			switch ev.Type {
			case EventSchedule:
				f.AddSchedule(ev.Schedule)
			case EventProcess:
				f.AddProcess(ev.Process)
			case EventSuspended:
				f.MarkSuspended()
			}
		}
		if f.String() != code {
			t.Errorf("round trip %q -> %q", code, f.String())
		}
	}
}

func TestParseRejectsMalformed(t *testing.T) {
	bad := []string{
		"S",      // truncated marker
		"S1",     // missing P
		"S6P1",   // no schedule 6
		"S1P4",   // no process 4
		"1S1P1",  // digit before any schedule
		"S1Q1",   // wrong separator
		"hello",  // junk
		"S1P123Z",
	}
	for _, code := range bad {
		if _, err := Parse(code); err == nil {
			t.Errorf("Parse(%q) accepted malformed code", code)
		}
	}
}

func TestParseFlowCodeRestoresState(t *testing.T) {
	f, err := ParseFlowCode("S1P123S2P1X")
	if err != nil {
		t.Fatalf("ParseFlowCode: %v", err)
	}
	if f.CurrentSchedule() != SchedulePlan {
		t.Errorf("current schedule = %s, want Plan", f.CurrentSchedule())
	}
	if !f.Suspended() {
		t.Error("expected suspended state")
	}
}

func TestCalculateFlowStats(t *testing.T) {
	stats, err := CalculateFlowStats("S1P123S2P112S1P1X")
	if err != nil {
		t.Fatalf("CalculateFlowStats: %v", err)
	}
	if stats.TotalSchedulings != 3 {
		t.Errorf("TotalSchedulings = %d, want 3", stats.TotalSchedulings)
	}
	if stats.TotalProcesses != 7 {
		t.Errorf("TotalProcesses = %d, want 7", stats.TotalProcesses)
	}
	if stats.ScheduleCounts[ScheduleKnowledge] != 2 {
		t.Errorf("knowledge entries = %d, want 2", stats.ScheduleCounts[ScheduleKnowledge])
	}
	if stats.ProcessCounts[SchedulePlan][Process1] != 2 {
		t.Errorf("plan P1 visits = %d, want 2", stats.ProcessCounts[SchedulePlan][Process1])
	}
	if !stats.Suspended {
		t.Error("expected suspended stats")
	}
}

func TestPositions(t *testing.T) {
	positions, err := Positions("S1P12S3P1")
	if err != nil {
		t.Fatalf("Positions: %v", err)
	}
	want := []Position{
		{ScheduleKnowledge, Process1},
		{ScheduleKnowledge, Process2},
		{ScheduleImplement, Process1},
	}
	if len(positions) != len(want) {
		t.Fatalf("got %d positions, want %d", len(positions), len(want))
	}
	for i := range want {
		if positions[i] != want[i] {
			t.Errorf("positions[%d] = %v, want %v", i, positions[i], want[i])
		}
	}
}
