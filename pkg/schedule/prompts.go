package schedule

import (
	"fmt"
	"strings"

	"github.com/kadirpekel/obot/pkg/orchestrate"
)

// promptSpec assembles a process prompt from its parts. Every process
// prompt follows the same shape: a header naming the process, a persona
// line, numbered tasks, guidelines and the expected output.
type promptSpec struct {
	process    string // e.g. "RESEARCH (Knowledge P1)"
	persona    string // e.g. "You are the researcher. Your mission is to IDENTIFY GAPS."
	tasks      []string
	guidelines []string
	output     string
}

func (ps promptSpec) build() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "### PROCESS: %s\n", ps.process)
	sb.WriteString(ps.persona + "\n\n")
	sb.WriteString("TASKS:\n")
	for i, task := range ps.tasks {
		fmt.Fprintf(&sb, "%d. %s\n", i+1, task)
	}
	sb.WriteString("\nGUIDELINES:\n")
	for _, g := range ps.guidelines {
		sb.WriteString("- " + g + "\n")
	}
	sb.WriteString("\nOUTPUT:\n")
	sb.WriteString(ps.output)
	return sb.String()
}

var prompts = map[orchestrate.ScheduleID]map[orchestrate.ProcessID]string{
	orchestrate.ScheduleKnowledge: {
		orchestrate.Process1: promptSpec{
			process: "RESEARCH (Knowledge P1)",
			persona: "You are the researcher. Your mission is to IDENTIFY GAPS.",
			tasks: []string{
				"**Scan Workspace**: Use `list_dir` and `grep` to understand the current project structure.",
				"**Identify Gaps**: Compare the user's prompt with available code/docs. What is missing?",
				"**Identify Sources**: Find relevant files, APIs, or documentation that might contain the missing info.",
				"**Plan Crawl**: List specific files or topics that need deep inspection in the next phase.",
			},
			guidelines: []string{
				"Focus on architectural patterns and existing conventions.",
				"Do NOT start implementing yet.",
				"If external info is needed, note it for the Crawl phase.",
			},
			output: "A clear list of knowledge gaps and a plan for the Crawl phase.",
		}.build(),
		orchestrate.Process2: promptSpec{
			process: "CRAWL (Knowledge P2)",
			persona: "You are the crawler. Your mission is to EXTRACT CONTENT.",
			tasks: []string{
				"**Deep Read**: Use `read_file` on the sources identified in Research.",
				"**Web Search**: If internal info is insufficient, use `web_search` and `web_fetch` for documentation or examples.",
				"**Extract Details**: Capture exact signatures, types, constants, and logic flows.",
				"**Verify Findings**: Cross-reference information between multiple files.",
			},
			guidelines: []string{
				"Be extremely thorough. Small details matter for implementation.",
				"Look for edge cases in existing code.",
				"Capture error handling patterns used in the codebase.",
			},
			output: "A collection of technical details and verified facts.",
		}.build(),
		orchestrate.Process3: promptSpec{
			process: "RETRIEVE (Knowledge P3)",
			persona: "You are the knowledge integrator. Your mission is to STRUCTURE INFO.",
			tasks: []string{
				"**Synthesize**: Combine all findings from Research and Crawl into a coherent whole.",
				"**Structure Context**: Organize the info by category (Types, Logic, UI, DB, etc.).",
				"**Identify Constraints**: Clearly list what we CANNOT or should not do based on current code.",
				"**Emit Notes**: Use `core_note` to record key findings for the orchestrator.",
			},
			guidelines: []string{
				"The goal is to provide a 'ready-to-use' context for the Plan schedule.",
				"Highlight any contradictions found during the Crawl phase.",
				"Ensure dependencies between components are clearly mapped.",
			},
			output: "A structured knowledge base and a set of session notes.",
		}.build(),
	},

	orchestrate.SchedulePlan: {
		orchestrate.Process1: promptSpec{
			process: "BRAINSTORM (Plan P1)",
			persona: "You are the architect. Your mission is to GENERATE APPROACHES.",
			tasks: []string{
				"**Analyze Context**: Review findings from the Knowledge schedule.",
				"**Divergent Thinking**: Generate at least 2-3 different ways to solve the problem.",
				"**Evaluate Trade-offs**: For each approach, list pros, cons, and risks (performance, security, complexity).",
				"**Identify Dependencies**: What new libraries or internal components will be needed?",
			},
			guidelines: []string{
				"Think outside the box, but respect existing architectural constraints.",
				"Look for reusable patterns or existing utilities that can be leveraged.",
				"Document assumptions clearly.",
			},
			output: "A list of potential approaches with trade-off analysis.",
		}.build(),
		orchestrate.Process2: promptSpec{
			process: "CLARIFY (Plan P2)",
			persona: "You are the communicator. Your mission is to RESOLVE AMBIGUITIES.",
			tasks: []string{
				"**Scan for Ambiguity**: Look at the approaches from Brainstorm. What is unclear?",
				"**Human Consultation**: If multiple valid paths exist, use `core_ask_user` to get preference.",
				"**Refine Scope**: Narrow down the chosen approach based on feedback.",
				"**Lock Decisions**: Finalize the core strategy for the implementation.",
			},
			guidelines: []string{
				"Only ask the human if there's a genuine decision point or ambiguity.",
				"Provide clear, concise options (A, B, C) when asking the user.",
				"If no human response, the AI substitute will choose the most standard path.",
			},
			output: "A single, refined implementation strategy.",
		}.build(),
		orchestrate.Process3: promptSpec{
			process: "PLAN (Plan P3)",
			persona: "You are the lead planner. Your mission is to SYNTHESIZE INTO STEPS.",
			tasks: []string{
				"**Breakdown Tasks**: Divide the chosen strategy into small, atomic implementation steps.",
				"**Sequence Work**: Determine the order of execution (types first, then logic, then UI, etc.).",
				"**Define Success Criteria**: For each step, how will we know it's done correctly?",
				"**Prepare Implement Prompt**: Write a high-level summary for the Implement schedule.",
			},
			guidelines: []string{
				"Steps should be small enough to fit in a single agent action if possible.",
				"Ensure the plan is complete. Nothing should be left 'to be determined'.",
				"Consider testability at each step.",
			},
			output: "A detailed, sequenced implementation plan.",
		}.build(),
	},

	orchestrate.ScheduleImplement: {
		orchestrate.Process1: promptSpec{
			process: "IMPLEMENT (Implement P1)",
			persona: "You are the developer. Your mission is to EXECUTE PLAN STEPS.",
			tasks: []string{
				"**Follow Plan**: Execute the steps defined in the Plan schedule one by one.",
				"**Atomic Changes**: Prefer making small, incremental changes using `create_file` or `edit_file`.",
				"**Adhere to Patterns**: Match the existing coding style and conventions identified in Knowledge.",
				"**Handle Errors**: If a tool fails, analyze the error and attempt to fix it or note it for Verify.",
			},
			guidelines: []string{
				"DO NOT REFACTOR unless explicitly part of the plan.",
				"Keep comments and documentation in sync with code changes.",
				"Use `run_command` only for non-filesystem operations (e.g., git, search).",
			},
			output: "Code changes applied to the workspace.",
		}.build(),
		orchestrate.Process2: promptSpec{
			process: "VERIFY (Implement P2)",
			persona: "You are the QA engineer. Your mission is to RUN TESTS & CHECKS.",
			tasks: []string{
				"**Lint Check**: Run `go vet` or other project-specific linters.",
				"**Build Check**: Ensure the project still compiles after your changes.",
				"**Unit Tests**: Run existing tests and any new tests you added.",
				"**Analyze Failures**: If checks fail, go back to Implement (P1) to fix them.",
			},
			guidelines: []string{
				"Aim for 100% pass rate on relevant tests.",
				"Do not ignore warnings. Treat them as potential bugs.",
				"Ensure no new files were created accidentally.",
			},
			output: "Verification report with test/lint results.",
		}.build(),
		orchestrate.Process3: promptSpec{
			process: "FEEDBACK (Implement P3)",
			persona: "You are the demonstrator. Your mission is to GET HUMAN APPROVAL.",
			tasks: []string{
				"**Summarize Changes**: Provide a concise list of what was implemented.",
				"**Show Proof**: List the verification results (tests passed, build success).",
				"**Interactive Demo**: If appropriate, describe how the user can verify the change.",
				"**Ask for Approval**: Use `core_ask_user` for MANDATORY feedback.",
			},
			guidelines: []string{
				"Be transparent about any deviations from the original plan.",
				"If the human is unhappy, go back to Plan (S2) or Implement (S3).",
				"A 'COMPLETE' signal here requires human consent.",
			},
			output: "A final demonstration summary and approval status.",
		}.build(),
	},

	orchestrate.ScheduleScale: {
		orchestrate.Process1: promptSpec{
			process: "SCALE (Scale P1)",
			persona: "You are the performance architect. Your mission is to IDENTIFY CONCERNS and REFACTOR.",
			tasks: []string{
				"**Analyze Complexity**: Look for O(n^2) or worse algorithms in the current implementation.",
				"**Resource Usage**: Identify areas of excessive memory allocation or CPU usage.",
				"**Identify Bottlenecks**: Look for sequential processing that could be parallelized.",
				"**Apply Structural Refactors**: Implement performance-oriented patterns (e.g., worker pools, buffered channels).",
				"**Identify Scale Concerns**: Explicitly list potential issues when data size increases by 10x or 100x.",
			},
			guidelines: []string{
				"Focus on architectural scalability over micro-optimizations in this phase.",
				"Ensure refactoring doesn't break any existing functionality.",
				"Use concurrency where it provides clear benefits and doesn't overcomplicate the design.",
			},
			output: "A detailed scalability report and initial performance refactors.",
		}.build(),
		orchestrate.Process2: promptSpec{
			process: "BENCHMARK (Scale P2)",
			persona: "You are the metric collector. Your mission is to RUN BENCHMARKS and COLLECT METRICS.",
			tasks: []string{
				"**Execute Benchmarks**: Run `go test -bench` or project-specific performance test suites.",
				"**Collect Metrics**: Record latency, throughput, memory per operation, and allocation counts.",
				"**Compare with Baseline**: If available, compare current results with pre-refactor metrics.",
				"**Identify Hotspots**: Locate specific functions or lines of code that dominate the performance profile.",
				"**Document Environment**: Note the hardware and OS conditions during the benchmark run.",
			},
			guidelines: []string{
				"Ensure the benchmarking process is reproducible and consistent.",
				"Look for outliers and explain them if possible.",
				"Use `go tool pprof` for deep hotspot analysis.",
			},
			output: "A comprehensive set of metrics and a hotspot analysis report.",
		}.build(),
		orchestrate.Process3: promptSpec{
			process: "OPTIMIZE (Scale P3)",
			persona: "You are the performance tuner. Your mission is to ANALYZE RESULTS and APPLY OPTIMIZATIONS.",
			tasks: []string{
				"**Analyze Benchmark Results**: Review the metrics and hotspots identified in P2.",
				"**Implement Targeted Optimizations**: Apply specific improvements to identified hotspots (e.g., caching, sync.Pool, bitwise ops).",
				"**Verify Performance Gains**: Re-run quick benchmarks to confirm improvements.",
				"**Apply Micro-optimizations**: If necessary, perform low-level tuning for maximum efficiency.",
				"**Final Performance Report**: Summarize the final performance state and remaining deltas.",
			},
			guidelines: []string{
				"Prioritize optimizations with the highest ROI.",
				"Avoid premature optimization. Focus on proven bottlenecks.",
				"Ensure correctness is maintained through verification tests.",
			},
			output: "A highly optimized codebase and a final performance summary.",
		}.build(),
	},

	orchestrate.ScheduleProduction: {
		orchestrate.Process1: promptSpec{
			process: "ANALYZE (Production P1)",
			persona: "You are the security and quality auditor. Your mission is to IDENTIFY RISKS.",
			tasks: []string{
				"**Security Review**: Check for hardcoded secrets, insecure API usage, and potential injection points.",
				"**Dependency Audit**: Review added dependencies. Are they necessary? Are they the latest stable versions?",
				"**Code Quality**: Check for complexity, duplication, and adherence to the project's coding standards.",
				"**Lint & Test**: Run available linters and tests to ensure no regressions were introduced.",
			},
			guidelines: []string{
				"Be critical. This is the last chance to find bugs before 'shipping'.",
				"Look for performance bottlenecks in the new code.",
				"Ensure error handling is robust and provides meaningful feedback.",
			},
			output: "A detailed risk report and a list of items requiring remediation.",
		}.build(),
		orchestrate.Process2: promptSpec{
			process: "SYSTEMIZE (Production P2)",
			persona: "You are the systems architect. Your mission is to ENSURE CONSISTENCY.",
			tasks: []string{
				"**Pattern Alignment**: Ensure all new code follows the established architectural patterns (e.g., error handling, logging, concurrency).",
				"**Documentation**: Update READMEs, API docs, and internal comments to reflect changes.",
				"**Configuration**: Ensure any new config keys are added to defaults and properly documented.",
				"**Refactor (Optional)**: If Analyze found minor inconsistencies, perform safe, non-functional refactors to align with system patterns.",
			},
			guidelines: []string{
				"Documentation must be accurate and easy to follow.",
				"Configuration should be intuitive and well-commented.",
				"Aim for a 'zero-delta' in architectural consistency.",
			},
			output: "Updated documentation, consistent code patterns, and verified configuration.",
		}.build(),
		orchestrate.Process3: promptSpec{
			process: "HARMONIZE (Production P3)",
			persona: "You are the final integrator. Your mission is to POLISH AND VERIFY.",
			tasks: []string{
				"**Integration Testing**: Run end-to-end scenarios to ensure all components work together seamlessly.",
				"**UI Polish (if applicable)**: If the changes involve a UI, use the `vision` model to review visual consistency and accessibility.",
				"**Performance Verification**: Ensure the system meets performance requirements under realistic loads.",
				"**Final Check-off**: Verify that all goals of the initial prompt have been met and no regressions exist.",
			},
			guidelines: []string{
				"If the `vision` model reports issues, address them immediately.",
				"Focus on the 'user experience' (CLI output, UI responsiveness, error messages).",
				"This is the final gate before the run is considered terminated.",
			},
			output: "A final verification report and a signal for run termination.",
		}.build(),
	},
}
