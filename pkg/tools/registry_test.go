package tools

import "testing"

func TestRegistryCatalogue(t *testing.T) {
	r := NewRegistry()

	if got := r.Count(); got != 27 {
		t.Errorf("Count() = %d, want 27", got)
	}
	if got := len(r.ListByTier(1)); got != 9 {
		t.Errorf("tier 1 tools = %d, want 9", got)
	}
	if got := len(r.ListByTier(2)); got != 18 {
		t.Errorf("tier 2 tools = %d, want 18", got)
	}
}

func TestLookup(t *testing.T) {
	r := NewRegistry()

	def, ok := r.Lookup(FileWrite)
	if !ok {
		t.Fatal("file.write not registered")
	}
	if def.Category != CategoryFile || def.Tier != 1 {
		t.Errorf("file.write = %+v", def)
	}

	if _, ok := r.Lookup(ID("file.teleport")); ok {
		t.Error("unknown tool resolved")
	}
	if r.IsValid(ID("file.teleport")) {
		t.Error("unknown tool valid")
	}
	if !r.IsValid(SystemRun) {
		t.Error("system.run should be valid")
	}
}

func TestAliases(t *testing.T) {
	r := NewRegistry()

	def, ok := r.ByCLIAlias("CreateFile")
	if !ok || def.ID != FileWrite {
		t.Errorf("ByCLIAlias(CreateFile) = %v, %v", def, ok)
	}

	def, ok = r.ByIDEAlias("run_command")
	if !ok || def.ID != SystemRun {
		t.Errorf("ByIDEAlias(run_command) = %v, %v", def, ok)
	}

	// Tools without a CLI alias are only reachable by ID or IDE alias
	if _, ok := r.ByCLIAlias("think"); ok {
		t.Error("think has no CLI alias")
	}
	def, ok = r.ByIDEAlias("think")
	if !ok || def.ID != Think {
		t.Errorf("ByIDEAlias(think) = %v, %v", def, ok)
	}
}

func TestListByCategory(t *testing.T) {
	r := NewRegistry()

	delegation := r.ListByCategory(CategoryDelegation)
	if len(delegation) != 3 {
		t.Errorf("delegation tools = %d, want 3", len(delegation))
	}
	session := r.ListByCategory(CategorySession)
	if len(session) != 3 {
		t.Errorf("session tools = %d, want 3", len(session))
	}
}
