// Copyright 2025 Kadir Pekel
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package tools implements the unified tool registry. Agent tool calls are
// validated against this catalogue; legacy CLI and IDE front-ends resolve
// their historical action names through the alias indexes.
package tools

import (
	"sync"

	"github.com/kadirpekel/obot/pkg/registry"
)

// ID is the canonical tool identifier.
type ID string

// Tool categories.
const (
	CategoryCore       = "core"
	CategoryFile       = "file"
	CategorySystem     = "system"
	CategoryDelegation = "delegation"
	CategoryWeb        = "web"
	CategoryGit        = "git"
	CategorySession    = "session"
)

// Tier 1 (executor) tools.
const (
	FileWrite  ID = "file.write"
	FileEdit   ID = "file.edit"
	FileDelete ID = "file.delete"
	FileRename ID = "file.rename"
	FileMove   ID = "file.move"
	FileCopy   ID = "file.copy"
	DirCreate  ID = "dir.create"
	DirDelete  ID = "dir.delete"
	SystemRun  ID = "system.run"
)

// Tier 2 (autonomous) tools.
const (
	Think              ID = "think"
	Complete           ID = "complete"
	AskUser            ID = "ask_user"
	FileRead           ID = "file.read"
	FileSearch         ID = "file.search"
	FileList           ID = "file.list"
	FileEditRange      ID = "file.edit_range"
	DelegateCoder      ID = "ai.delegate.coder"
	DelegateResearcher ID = "ai.delegate.researcher"
	DelegateVision     ID = "ai.delegate.vision"
	WebSearch          ID = "web.search"
	WebFetch           ID = "web.fetch"
	GitStatus          ID = "git.status"
	GitDiff            ID = "git.diff"
	GitCommit          ID = "git.commit"
	CheckpointSave     ID = "checkpoint.save"
	CheckpointRestore  ID = "checkpoint.restore"
	CheckpointList     ID = "checkpoint.list"
)

// Def describes one tool in the catalogue.
type Def struct {
	ID          ID
	Category    string
	Description string
	Tier        int    // 1 = executor, 2 = autonomous
	CLIAlias    string // legacy CLI action name
	IDEAlias    string // legacy IDE tool name
	Available   bool
}

// Registry is the unified tool catalogue with alias lookup.
type Registry struct {
	*registry.BaseRegistry[*Def]

	mu         sync.RWMutex
	cliAliases map[string]ID
	ideAliases map[string]ID
}

// NewRegistry creates the default unified tool registry.
func NewRegistry() *Registry {
	r := &Registry{
		BaseRegistry: registry.NewBaseRegistry[*Def](),
		cliAliases:   make(map[string]ID),
		ideAliases:   make(map[string]ID),
	}

	// Tier 1: executor tools
	r.add(FileWrite, CategoryFile, "Create or overwrite a file", 1, "CreateFile", "write_file")
	r.add(FileEdit, CategoryFile, "Edit a file with search/replace", 1, "EditFile", "edit_file")
	r.add(FileDelete, CategoryFile, "Delete a file", 1, "DeleteFile", "delete_file")
	r.add(FileRename, CategoryFile, "Rename a file", 1, "RenameFile", "rename_file")
	r.add(FileMove, CategoryFile, "Move a file", 1, "MoveFile", "move_file")
	r.add(FileCopy, CategoryFile, "Copy a file", 1, "CopyFile", "copy_file")
	r.add(DirCreate, CategoryFile, "Create a directory", 1, "CreateDir", "create_directory")
	r.add(DirDelete, CategoryFile, "Delete a directory", 1, "DeleteDir", "delete_directory")
	r.add(SystemRun, CategorySystem, "Execute a shell command", 1, "RunCommand", "run_command")

	// Tier 2: autonomous tools
	r.add(Think, CategoryCore, "Internal reasoning step", 2, "", "think")
	r.add(Complete, CategoryCore, "Signal task completion", 2, "", "complete")
	r.add(AskUser, CategoryCore, "Request human consultation", 2, "", "ask_user")
	r.add(FileRead, CategoryFile, "Read file contents", 2, "ReadFile", "read_file")
	r.add(FileSearch, CategoryFile, "Search file contents", 2, "SearchFiles", "search_files")
	r.add(FileList, CategoryFile, "List directory contents", 2, "ListDirectory", "list_directory")
	r.add(FileEditRange, CategoryFile, "Edit specific line range", 2, "", "edit_file_range")
	r.add(DelegateCoder, CategoryDelegation, "Delegate to coding model", 2, "DelegateToCoder", "delegate_to_coder")
	r.add(DelegateResearcher, CategoryDelegation, "Delegate to research model", 2, "DelegateToResearcher", "delegate_to_researcher")
	r.add(DelegateVision, CategoryDelegation, "Delegate to vision model", 2, "DelegateToVision", "delegate_to_vision")
	r.add(WebSearch, CategoryWeb, "Search the web", 2, "", "web_search")
	r.add(WebFetch, CategoryWeb, "Fetch URL content", 2, "", "fetch_url")
	r.add(GitStatus, CategoryGit, "Get git status", 2, "", "git_status")
	r.add(GitDiff, CategoryGit, "Get git diff", 2, "", "git_diff")
	r.add(GitCommit, CategoryGit, "Create git commit", 2, "", "git_commit")
	r.add(CheckpointSave, CategorySession, "Save checkpoint", 2, "", "checkpoint_save")
	r.add(CheckpointRestore, CategorySession, "Restore checkpoint", 2, "", "checkpoint_restore")
	r.add(CheckpointList, CategorySession, "List checkpoints", 2, "", "checkpoint_list")

	return r
}

func (r *Registry) add(id ID, category, description string, tier int, cliAlias, ideAlias string) {
	def := &Def{
		ID:          id,
		Category:    category,
		Description: description,
		Tier:        tier,
		CLIAlias:    cliAlias,
		IDEAlias:    ideAlias,
		Available:   true,
	}
	_ = r.BaseRegistry.Register(string(id), def)

	r.mu.Lock()
	defer r.mu.Unlock()
	if cliAlias != "" {
		r.cliAliases[cliAlias] = id
	}
	if ideAlias != "" {
		r.ideAliases[ideAlias] = id
	}
}

// Lookup returns a tool definition by ID.
func (r *Registry) Lookup(id ID) (*Def, bool) {
	return r.BaseRegistry.Get(string(id))
}

// ByCLIAlias resolves a legacy CLI action name to a tool.
func (r *Registry) ByCLIAlias(alias string) (*Def, bool) {
	r.mu.RLock()
	id, ok := r.cliAliases[alias]
	r.mu.RUnlock()
	if !ok {
		return nil, false
	}
	return r.Lookup(id)
}

// ByIDEAlias resolves a legacy IDE tool name to a tool.
func (r *Registry) ByIDEAlias(alias string) (*Def, bool) {
	r.mu.RLock()
	id, ok := r.ideAliases[alias]
	r.mu.RUnlock()
	if !ok {
		return nil, false
	}
	return r.Lookup(id)
}

// IsValid checks if a tool ID exists and is available.
func (r *Registry) IsValid(id ID) bool {
	def, ok := r.Lookup(id)
	return ok && def.Available
}

// ListByCategory returns all tools in a category.
func (r *Registry) ListByCategory(category string) []*Def {
	result := make([]*Def, 0)
	for _, def := range r.List() {
		if def.Category == category {
			result = append(result, def)
		}
	}
	return result
}

// ListByTier returns all tools of a given tier.
func (r *Registry) ListByTier(tier int) []*Def {
	result := make([]*Def, 0)
	for _, def := range r.List() {
		if def.Tier == tier {
			result = append(result, def)
		}
	}
	return result
}
