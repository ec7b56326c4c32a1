// Package config loads and validates whplan configuration.
// Configuration lives in .whplan/config.yaml; environment variables override
// API credentials so a config file is never required for a quick run.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all whplan configuration.
type Config struct {
	// Core settings
	Name    string `yaml:"name"`
	Version string `yaml:"version"`

	// LLM generator configuration
	LLM LLMConfig `yaml:"llm"`

	// Verification oracle configuration
	Oracle OracleConfig `yaml:"oracle"`

	// Refinement loop configuration
	Refine RefineConfig `yaml:"refine"`

	// Run audit trail storage
	Store StoreConfig `yaml:"store"`

	// Logging
	Logging LoggingConfig `yaml:"logging"`
}

// LLMConfig configures the generation backend.
type LLMConfig struct {
	Provider  string `yaml:"provider"` // gemini
	APIKey    string `yaml:"api_key"`
	Model     string `yaml:"model"`
	Timeout   string `yaml:"timeout"`
	Calibrate bool   `yaml:"calibrate"` // issue a separate calibration warm-up call
}

// OracleConfig configures the Mangle evaluation oracle.
type OracleConfig struct {
	EvalTimeout string `yaml:"eval_timeout"`
	FactLimit   int    `yaml:"fact_limit"`
}

// RefineConfig configures the refinement controller.
type RefineConfig struct {
	MaxIterations int    `yaml:"max_iterations"`
	StepTimeout   string `yaml:"timeout_per_step"`
	// ConvergenceMode selects feedback verbosity: "binary" or
	// "structured-feedback".
	ConvergenceMode string `yaml:"convergence_mode"`
	// OracleFaultConsumesBudget decides whether a VerifierError iteration
	// counts against max_iterations. When false, one free retry is allowed
	// per oracle fault occurrence.
	OracleFaultConsumesBudget *bool `yaml:"oracle_fault_consumes_budget"`
}

// StoreConfig configures the SQLite run store.
type StoreConfig struct {
	Enabled      bool   `yaml:"enabled"`
	DatabasePath string `yaml:"database_path"`
}

// LoggingConfig configures categorized file logging.
type LoggingConfig struct {
	DebugMode  bool            `yaml:"debug_mode"`
	Categories map[string]bool `yaml:"categories"`
	Level      string          `yaml:"level"`
}

// DefaultConfig returns a config with production defaults.
func DefaultConfig() *Config {
	consume := true
	return &Config{
		Name:    "whplan",
		Version: "1.0.0",
		LLM: LLMConfig{
			Provider: "gemini",
			Model:    "gemini-2.5-pro",
			Timeout:  "120s",
		},
		Oracle: OracleConfig{
			EvalTimeout: "30s",
			FactLimit:   100000,
		},
		Refine: RefineConfig{
			MaxIterations:             5,
			StepTimeout:               "120s",
			ConvergenceMode:           "structured-feedback",
			OracleFaultConsumesBudget: &consume,
		},
		Store: StoreConfig{
			Enabled:      true,
			DatabasePath: ".whplan/runs.db",
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Load reads configuration from the workspace, applying defaults and
// environment overrides. A missing config file is not an error.
func Load(workspace string) (*Config, error) {
	cfg := DefaultConfig()

	path := filepath.Join(workspace, ".whplan", "config.yaml")
	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	} else if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}

	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnvOverrides applies environment variable overrides.
// GEMINI_API_KEY takes precedence over GOOGLE_API_KEY, matching the
// behavior of the upstream GenAI SDK.
func (c *Config) applyEnvOverrides() {
	if key := os.Getenv("GOOGLE_API_KEY"); key != "" {
		c.LLM.APIKey = key
		if c.LLM.Provider == "" {
			c.LLM.Provider = "gemini"
		}
	}
	if key := os.Getenv("GEMINI_API_KEY"); key != "" {
		c.LLM.APIKey = key
		if c.LLM.Provider == "" {
			c.LLM.Provider = "gemini"
		}
	}
	if model := os.Getenv("WHPLAN_MODEL"); model != "" {
		c.LLM.Model = model
	}
}

// Validate checks configuration invariants.
func (c *Config) Validate() error {
	if c.Refine.MaxIterations <= 0 {
		return fmt.Errorf("refine.max_iterations must be positive, got %d", c.Refine.MaxIterations)
	}
	switch c.Refine.ConvergenceMode {
	case "binary", "structured-feedback":
	default:
		return fmt.Errorf("refine.convergence_mode must be %q or %q, got %q",
			"binary", "structured-feedback", c.Refine.ConvergenceMode)
	}
	if _, err := c.StepTimeout(); err != nil {
		return err
	}
	if _, err := c.EvalTimeout(); err != nil {
		return err
	}
	return nil
}

// StepTimeout returns the parsed per-step timeout.
func (c *Config) StepTimeout() (time.Duration, error) {
	return parseDuration("refine.timeout_per_step", c.Refine.StepTimeout, 120*time.Second)
}

// EvalTimeout returns the parsed oracle evaluation timeout.
func (c *Config) EvalTimeout() (time.Duration, error) {
	return parseDuration("oracle.eval_timeout", c.Oracle.EvalTimeout, 30*time.Second)
}

// LLMTimeout returns the parsed generation call timeout.
func (c *Config) LLMTimeout() (time.Duration, error) {
	return parseDuration("llm.timeout", c.LLM.Timeout, 120*time.Second)
}

// OracleFaultConsumesBudget resolves the oracle fault policy with its default.
func (c *Config) OracleFaultConsumesBudget() bool {
	if c.Refine.OracleFaultConsumesBudget == nil {
		return true
	}
	return *c.Refine.OracleFaultConsumesBudget
}

func parseDuration(field, value string, fallback time.Duration) (time.Duration, error) {
	if value == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("%s: invalid duration %q: %w", field, value, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("%s: duration must be positive, got %q", field, value)
	}
	return d, nil
}
