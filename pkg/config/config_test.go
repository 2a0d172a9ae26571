package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	cfg := Default()

	assert.Equal(t, "2.0", cfg.Version)
	assert.Equal(t, "http://localhost:11434", cfg.Ollama.URL)
	assert.Equal(t, 32768, cfg.Context.MaxTokens)
	assert.Len(t, cfg.Orchestration.Schedules, 5)

	// Every schedule carries exactly three processes
	for _, sched := range cfg.Orchestration.Schedules {
		assert.Len(t, sched.Processes, 3, "schedule %s", sched.ID)
	}

	// Budget allocation sums to 1.0
	var total float64
	for _, frac := range cfg.Context.BudgetAllocation {
		total += frac
	}
	assert.InDelta(t, 1.0, total, 0.001)

	require.NoError(t, cfg.Validate())
}

func TestGetModelForRole(t *testing.T) {
	cfg := Default()

	assert.Equal(t, "qwen3:8b", cfg.GetModelForRole("orchestrator", "minimal"))
	assert.Equal(t, "qwen3:32b", cfg.GetModelForRole("orchestrator", "performance"))
	// Tiers with no override fall through to the default
	assert.Equal(t, "qwen3:32b", cfg.GetModelForRole("orchestrator", "advanced"))
	assert.Equal(t, "command-r:35b", cfg.GetModelForRole("researcher", "balanced"))
	assert.Equal(t, "deepseek-coder:6.7b", cfg.GetModelForRole("coder", "compact"))
	assert.Equal(t, "llava:13b", cfg.GetModelForRole("vision", "balanced"))
	// Unknown role defaults to coder
	assert.Equal(t, "qwen2.5-coder:32b", cfg.GetModelForRole("narrator", "performance"))
}

func TestGetQualityPreset(t *testing.T) {
	cfg := Default()

	assert.Equal(t, QualityPreset{Iterations: 1, Verification: "none"}, cfg.GetQualityPreset("fast"))
	assert.Equal(t, QualityPreset{Iterations: 3, Verification: "expert_judge"}, cfg.GetQualityPreset("thorough"))
	assert.Equal(t, QualityPreset{Iterations: 2, Verification: "llm_review"}, cfg.GetQualityPreset("nonsense"))
}

func TestConsultationDefaults(t *testing.T) {
	cfg := Default()

	plan, ok := cfg.ScheduleByID("plan")
	require.True(t, ok)
	assert.Equal(t, ConsultationEntry{Type: "optional", Timeout: 60}, plan.Consultation["clarify"])

	impl, ok := cfg.ScheduleByID("implement")
	require.True(t, ok)
	assert.Equal(t, ConsultationEntry{Type: "mandatory", Timeout: 300}, impl.Consultation["feedback"])
}

func TestLoadMissingFileYieldsDefaults(t *testing.T) {
	t.Setenv("OBOT_CONFIG_DIR", t.TempDir())

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, Default().Version, cfg.Version)
}

func TestLoadPartialFileLayersOverDefaults(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("OBOT_CONFIG_DIR", dir)

	partial := "version: \"2.0\"\ncontext:\n  max_tokens: 8192\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(partial), 0644))

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 8192, cfg.Context.MaxTokens)
	// Untouched sections stay at defaults
	assert.Equal(t, "qwen3:32b", cfg.Models.Orchestrator.Default)
}

func TestSaveLoadRoundTrip(t *testing.T) {
	t.Setenv("OBOT_CONFIG_DIR", t.TempDir())

	cfg := Default()
	cfg.Context.MaxTokens = 16384
	cfg.Models.Coder.Default = "qwen2.5-coder:7b"
	require.NoError(t, Save(cfg))

	loaded, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 16384, loaded.Context.MaxTokens)
	assert.Equal(t, "qwen2.5-coder:7b", loaded.Models.Coder.Default)
}

func TestOllamaURLEnvOverride(t *testing.T) {
	t.Setenv("OBOT_CONFIG_DIR", t.TempDir())
	t.Setenv("OLLAMA_URL", "http://gpu-box:11434")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "http://gpu-box:11434", cfg.Ollama.URL)
}

func TestExpandEnvVarsInFile(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("OBOT_CONFIG_DIR", dir)
	t.Setenv("MY_MODEL", "qwen3:14b")

	raw := "version: \"2.0\"\nmodels:\n  orchestrator:\n    default: ${MY_MODEL}\nollama:\n  url: ${MISSING_URL:-http://localhost:11434}\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(raw), 0644))

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "qwen3:14b", cfg.Models.Orchestrator.Default)
	assert.Equal(t, "http://localhost:11434", cfg.Ollama.URL)
}

func TestValidateRejectsBadSchedule(t *testing.T) {
	cfg := Default()
	cfg.Orchestration.Schedules[0].Processes = []string{"research"}
	assert.Error(t, cfg.Validate())
}

func TestMigrateLegacy(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("OBOT_CONFIG_DIR", dir)

	legacy := `{"model":"llama3:8b","ollama_url":"http://127.0.0.1:11434","max_tokens":4096,"quality":"fast"}`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.json"), []byte(legacy), 0644))

	cfg, err := MigrateLegacy()
	require.NoError(t, err)
	require.NotNil(t, cfg)

	assert.Equal(t, "llama3:8b", cfg.Models.Orchestrator.Default)
	assert.Equal(t, 4096, cfg.Context.MaxTokens)

	// Legacy file is preserved as a backup, yaml now exists
	_, err = os.Stat(filepath.Join(dir, "config.json.backup"))
	assert.NoError(t, err)
	_, err = os.Stat(filepath.Join(dir, "config.yaml"))
	assert.NoError(t, err)

	// Second run is a no-op
	cfg2, err := MigrateLegacy()
	require.NoError(t, err)
	assert.Nil(t, cfg2)
}
