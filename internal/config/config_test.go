package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, workspace, content string) {
	t.Helper()
	dir := filepath.Join(workspace, ".whplan")
	require.NoError(t, os.MkdirAll(dir, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(content), 0644))
}

func clearAPIKeyEnv(t *testing.T) {
	t.Helper()
	t.Setenv("GOOGLE_API_KEY", "")
	t.Setenv("GEMINI_API_KEY", "")
	t.Setenv("WHPLAN_MODEL", "")
}

func TestDefaults(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, "gemini", cfg.LLM.Provider)
	assert.Equal(t, "gemini-2.5-pro", cfg.LLM.Model)
	assert.Equal(t, 5, cfg.Refine.MaxIterations)
	assert.Equal(t, "structured-feedback", cfg.Refine.ConvergenceMode)
	assert.True(t, cfg.OracleFaultConsumesBudget())
	assert.True(t, cfg.Store.Enabled)
	require.NoError(t, cfg.Validate())
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	clearAPIKeyEnv(t)
	cfg, err := Load(t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, 5, cfg.Refine.MaxIterations)
}

func TestLoadFromFile(t *testing.T) {
	clearAPIKeyEnv(t)
	ws := t.TempDir()
	writeConfig(t, ws, `
llm:
  model: gemini-2.5-flash
refine:
  max_iterations: 8
  convergence_mode: binary
  oracle_fault_consumes_budget: false
oracle:
  eval_timeout: 10s
`)

	cfg, err := Load(ws)
	require.NoError(t, err)
	assert.Equal(t, "gemini-2.5-flash", cfg.LLM.Model)
	assert.Equal(t, 8, cfg.Refine.MaxIterations)
	assert.Equal(t, "binary", cfg.Refine.ConvergenceMode)
	assert.False(t, cfg.OracleFaultConsumesBudget())

	d, err := cfg.EvalTimeout()
	require.NoError(t, err)
	assert.Equal(t, 10*time.Second, d)
}

func TestEnvOverrides(t *testing.T) {
	clearAPIKeyEnv(t)
	t.Setenv("GOOGLE_API_KEY", "google-key")
	t.Setenv("WHPLAN_MODEL", "gemini-override")

	cfg, err := Load(t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, "google-key", cfg.LLM.APIKey)
	assert.Equal(t, "gemini-override", cfg.LLM.Model)
}

func TestGeminiKeyTakesPrecedence(t *testing.T) {
	clearAPIKeyEnv(t)
	t.Setenv("GOOGLE_API_KEY", "google-key")
	t.Setenv("GEMINI_API_KEY", "gemini-key")

	cfg, err := Load(t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, "gemini-key", cfg.LLM.APIKey)
}

func TestValidateRejectsBadValues(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Refine.MaxIterations = 0
	assert.Error(t, cfg.Validate())

	cfg = DefaultConfig()
	cfg.Refine.ConvergenceMode = "chatty"
	assert.Error(t, cfg.Validate())

	cfg = DefaultConfig()
	cfg.Refine.StepTimeout = "soon"
	assert.Error(t, cfg.Validate())

	cfg = DefaultConfig()
	cfg.Oracle.EvalTimeout = "-5s"
	assert.Error(t, cfg.Validate())
}

func TestLoadRejectsInvalidConfig(t *testing.T) {
	clearAPIKeyEnv(t)
	ws := t.TempDir()
	writeConfig(t, ws, "refine:\n  max_iterations: -1\n")

	_, err := Load(ws)
	assert.Error(t, err)
}

func TestDurationFallbacks(t *testing.T) {
	cfg := &Config{Refine: RefineConfig{MaxIterations: 1, ConvergenceMode: "binary"}}

	d, err := cfg.StepTimeout()
	require.NoError(t, err)
	assert.Equal(t, 120*time.Second, d)

	d, err = cfg.LLMTimeout()
	require.NoError(t, err)
	assert.Equal(t, 120*time.Second, d)
}
