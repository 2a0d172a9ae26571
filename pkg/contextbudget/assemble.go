package contextbudget

import "strings"

// Parts is the raw material for one step's context package.
type Parts struct {
	Task    string
	Files   string
	Project string
	History string
	Memory  string
	Errors  string
}

// Assembler builds per-step context packages within a budget.
type Assembler struct {
	counter *Counter
	budget  *Budget
}

// NewAssembler creates an assembler over the given budget.
func NewAssembler(counter *Counter, budget *Budget) *Assembler {
	if counter == nil {
		counter = NewHeuristicCounter()
	}
	return &Assembler{counter: counter, budget: budget}
}

var sectionOrder = []struct {
	cat    Category
	header string
}{
	{CategoryTask, "## TASK"},
	{CategoryFiles, "## FILES"},
	{CategoryProject, "## PROJECT"},
	{CategoryHistory, "## HISTORY"},
	{CategoryMemory, "## MEMORY"},
	{CategoryErrors, "## RECENT ERRORS"},
}

// Assemble truncates each part to its category allowance and joins the
// non-empty sections. The budget records what was consumed.
func (a *Assembler) Assemble(parts Parts) string {
	content := map[Category]string{
		CategoryTask:    parts.Task,
		CategoryFiles:   parts.Files,
		CategoryProject: parts.Project,
		CategoryHistory: parts.History,
		CategoryMemory:  parts.Memory,
		CategoryErrors:  parts.Errors,
	}

	var sections []string
	for _, sec := range sectionOrder {
		text := content[sec.cat]
		if text == "" {
			continue
		}
		text = a.counter.Truncate(text, a.budget.Remaining(sec.cat))
		if text == "" {
			continue
		}
		_ = a.budget.Consume(sec.cat, a.counter.Count(text))
		sections = append(sections, sec.header+"\n"+text)
	}
	return strings.Join(sections, "\n\n")
}
