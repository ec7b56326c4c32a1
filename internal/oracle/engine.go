// Package oracle wraps the Google Mangle engine as the logic-evaluation
// oracle for formulation verification. Given a candidate program it produces
// the derived model (the set of facts the program entails) or a typed
// failure. Parse and analysis faults belong to the candidate; evaluation
// faults and timeouts belong to the oracle, and the two are distinct types
// so the verifier can classify them.
package oracle

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/google/mangle/analysis"
	"github.com/google/mangle/ast"
	mengine "github.com/google/mangle/engine"
	"github.com/google/mangle/factstore"
	"github.com/google/mangle/parse"

	"github.com/SRIRUPINPOTULA/Warehouse-Planning-using-LLM/internal/logging"
)

// Config holds oracle configuration.
type Config struct {
	// EvalTimeout bounds a single evaluation. Zero means 30s.
	EvalTimeout time.Duration
	// FactLimit aborts evaluation results larger than this. Zero disables
	// the check.
	FactLimit int
}

// DefaultConfig returns production defaults.
func DefaultConfig() Config {
	return Config{
		EvalTimeout: 30 * time.Second,
		FactLimit:   100000,
	}
}

// ParseError reports that the candidate program is not a well-formed logic
// program. This is the candidate's fault.
type ParseError struct {
	Detail string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse failed: %s", e.Detail)
}

// EvalError reports that the oracle could not produce a model: evaluation
// failure, fact blow-up, or timeout. This is not attributed to the
// candidate.
type EvalError struct {
	Timeout bool
	Detail  string
}

func (e *EvalError) Error() string {
	if e.Timeout {
		return fmt.Sprintf("evaluation timed out: %s", e.Detail)
	}
	return fmt.Sprintf("evaluation failed: %s", e.Detail)
}

// Model is the derived fact set of a successfully evaluated program.
type Model struct {
	counts map[string]int
	facts  map[string][]string
	total  int
}

// NewModel builds a model from rendered facts keyed by predicate name.
func NewModel(facts map[string][]string) *Model {
	m := &Model{
		counts: make(map[string]int, len(facts)),
		facts:  make(map[string][]string, len(facts)),
	}
	for name, fs := range facts {
		m.counts[name] = len(fs)
		m.facts[name] = append([]string(nil), fs...)
		m.total += len(fs)
	}
	return m
}

// Count returns the number of derived instances of the named predicate.
func (m *Model) Count(predicate string) int {
	return m.counts[predicate]
}

// Facts returns rendered instances of the named predicate, capped at limit
// (limit <= 0 means all). Used for violation messages.
func (m *Model) Facts(predicate string, limit int) []string {
	all := m.facts[predicate]
	if limit <= 0 || limit >= len(all) {
		out := make([]string, len(all))
		copy(out, all)
		return out
	}
	out := make([]string, limit)
	copy(out, all[:limit])
	return out
}

// Size returns the total number of derived facts.
func (m *Model) Size() int { return m.total }

// Engine evaluates candidate programs. Stateless between calls; a fresh
// fact store is built per evaluation so concurrent runs never share state.
type Engine struct {
	cfg Config
}

// NewEngine creates an oracle engine.
func NewEngine(cfg Config) *Engine {
	if cfg.EvalTimeout <= 0 {
		cfg.EvalTimeout = 30 * time.Second
	}
	return &Engine{cfg: cfg}
}

// Eval parses, analyzes and evaluates source, returning the derived model.
// Errors are *ParseError for malformed programs and *EvalError for oracle
// faults; identical input always yields an identical result.
func (e *Engine) Eval(ctx context.Context, source string) (*Model, error) {
	timer := logging.StartTimer(logging.CategoryOracle, "Eval")
	defer timer.StopWithThreshold(e.cfg.EvalTimeout / 2)

	unit, err := parse.Unit(bytes.NewReader([]byte(source)))
	if err != nil {
		logging.OracleDebug("parse failed: %v", err)
		return nil, &ParseError{Detail: err.Error()}
	}

	programInfo, err := analysis.AnalyzeOneUnit(unit, nil)
	if err != nil {
		// Analysis failures (unsafe variables, stratification, arity
		// clashes) are structural faults of the candidate program.
		logging.OracleDebug("analysis failed: %v", err)
		return nil, &ParseError{Detail: err.Error()}
	}

	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.cfg.EvalTimeout)
		defer cancel()
	}

	store := factstore.NewSimpleInMemoryStore()

	start := time.Now()
	done := make(chan error, 1)
	go func() {
		_, evalErr := mengine.EvalProgramWithStats(programInfo, store)
		done <- evalErr
	}()

	select {
	case evalErr := <-done:
		if evalErr != nil {
			logging.OracleError("evaluation failed: %v", evalErr)
			return nil, &EvalError{Detail: evalErr.Error()}
		}
	case <-ctx.Done():
		logging.OracleError("evaluation timed out after %v", time.Since(start))
		return nil, &EvalError{Timeout: true, Detail: ctx.Err().Error()}
	}

	if e.cfg.FactLimit > 0 && store.EstimateFactCount() > e.cfg.FactLimit {
		return nil, &EvalError{Detail: fmt.Sprintf(
			"derived %d facts, exceeding the configured limit of %d",
			store.EstimateFactCount(), e.cfg.FactLimit)}
	}

	model := &Model{
		counts: make(map[string]int),
		facts:  make(map[string][]string),
	}
	for _, sym := range store.ListPredicates() {
		name := sym.Symbol
		collectErr := store.GetFacts(ast.NewQuery(sym), func(atom ast.Atom) error {
			model.counts[name]++
			model.total++
			model.facts[name] = append(model.facts[name], atom.String())
			return nil
		})
		if collectErr != nil {
			return nil, &EvalError{Detail: fmt.Sprintf("collect facts for %s: %v", name, collectErr)}
		}
	}

	logging.Oracle("evaluated program: %d predicates, %d facts in %v",
		len(model.counts), model.total, time.Since(start))
	return model, nil
}
