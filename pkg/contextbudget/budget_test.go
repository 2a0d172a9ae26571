package contextbudget

import (
	"strings"
	"testing"
)

var testFractions = map[string]float64{
	"task":    0.25,
	"files":   0.33,
	"project": 0.16,
	"history": 0.12,
	"memory":  0.12,
	"errors":  0.06,
	"reserve": 0.06,
}

func TestBudgetAllocationsSumToTotal(t *testing.T) {
	b := NewBudget(32768, testFractions)

	sum := 0
	for _, cat := range []Category{
		CategoryTask, CategoryFiles, CategoryProject,
		CategoryHistory, CategoryMemory, CategoryErrors, CategoryReserve,
	} {
		n := b.Allocation(cat)
		if n < 0 {
			t.Errorf("%s allocation = %d", cat, n)
		}
		sum += n
	}
	if sum != 32768 {
		t.Errorf("allocations sum to %d, want 32768", sum)
	}
	if got := b.Allocation(CategoryTask); got != 8192 {
		t.Errorf("task = %d, want 8192", got)
	}
	if got := b.Allocation(CategoryFiles); got != 10813 {
		t.Errorf("files = %d, want 10813", got)
	}
}

func TestBudgetUsesDefaultsForMissingFractions(t *testing.T) {
	b := NewBudget(10000, nil)
	if got := b.Allocation(CategoryTask); got != 2500 {
		t.Errorf("default task fraction: %d, want 2500", got)
	}
	if b.Allocation(CategoryReserve) <= 0 {
		t.Error("reserve should soak up the remainder")
	}
}

func TestBudgetConsume(t *testing.T) {
	b := NewBudget(1000, testFractions)

	task := b.Allocation(CategoryTask)
	if err := b.Consume(CategoryTask, task); err != nil {
		t.Fatalf("Consume full allowance: %v", err)
	}
	if b.Remaining(CategoryTask) != 0 {
		t.Errorf("remaining = %d", b.Remaining(CategoryTask))
	}
	if err := b.Consume(CategoryTask, 1); err == nil {
		t.Error("overconsumption accepted")
	}
	if b.TotalUsed() != task {
		t.Errorf("total used = %d, want %d", b.TotalUsed(), task)
	}

	b.Reset()
	if b.TotalUsed() != 0 || b.Remaining(CategoryTask) != task {
		t.Error("reset did not clear usage")
	}
}

func TestHeuristicCount(t *testing.T) {
	c := NewHeuristicCounter()
	if got := c.Count(""); got != 0 {
		t.Errorf("Count(\"\") = %d", got)
	}
	if got := c.Count("abcd"); got != 1 {
		t.Errorf("Count(4 chars) = %d, want 1", got)
	}
	if got := c.Count("abcde"); got != 2 {
		t.Errorf("Count(5 chars) = %d, want 2", got)
	}
}

func TestHeuristicTruncate(t *testing.T) {
	c := NewHeuristicCounter()
	text := strings.Repeat("x", 100)
	if got := c.Truncate(text, 10); len(got) != 40 {
		t.Errorf("Truncate to 10 tokens = %d chars, want 40", len(got))
	}
	if got := c.Truncate("short", 10); got != "short" {
		t.Errorf("short text modified: %q", got)
	}
	if got := c.Truncate(text, 0); got != "" {
		t.Errorf("Truncate to 0 = %q", got)
	}
}

func TestAssembleBuildsSections(t *testing.T) {
	b := NewBudget(10000, testFractions)
	a := NewAssembler(NewHeuristicCounter(), b)

	out := a.Assemble(Parts{
		Task:    "fix the login bug",
		Files:   "auth.go contents here",
		History: "step 1 searched the codebase",
	})

	for _, header := range []string{"## TASK", "## FILES", "## HISTORY"} {
		if !strings.Contains(out, header) {
			t.Errorf("missing section %s", header)
		}
	}
	for _, header := range []string{"## PROJECT", "## MEMORY", "## RECENT ERRORS"} {
		if strings.Contains(out, header) {
			t.Errorf("empty section %s was emitted", header)
		}
	}
	if !strings.Contains(out, "fix the login bug") {
		t.Error("task text lost")
	}
	if b.TotalUsed() == 0 {
		t.Error("assembly did not consume from the budget")
	}
}

func TestAssembleTruncatesOversizedParts(t *testing.T) {
	b := NewBudget(100, testFractions)
	a := NewAssembler(NewHeuristicCounter(), b)

	huge := strings.Repeat("word ", 1000)
	out := a.Assemble(Parts{Files: huge})

	if len(out) >= len(huge) {
		t.Error("oversized files section was not truncated")
	}
	if b.Remaining(CategoryFiles) != 0 {
		t.Errorf("files remaining = %d, want 0", b.Remaining(CategoryFiles))
	}
}

func TestAssembleSectionOrderIsStable(t *testing.T) {
	b := NewBudget(10000, testFractions)
	a := NewAssembler(nil, b)

	out := a.Assemble(Parts{
		Task:   "t",
		Errors: "e",
		Memory: "m",
	})
	taskIdx := strings.Index(out, "## TASK")
	memIdx := strings.Index(out, "## MEMORY")
	errIdx := strings.Index(out, "## RECENT ERRORS")
	if !(taskIdx < memIdx && memIdx < errIdx) {
		t.Errorf("section order wrong:\n%s", out)
	}
}
