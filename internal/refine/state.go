// Package refine runs the generate, verify, refine loop: it asks the
// generator for a candidate, has the verifier judge it, synthesizes
// feedback, and repeats until convergence or budget exhaustion. The full
// step history of every run is retained.
package refine

import (
	"time"

	"github.com/google/uuid"

	"github.com/SRIRUPINPOTULA/Warehouse-Planning-using-LLM/internal/feedback"
	"github.com/SRIRUPINPOTULA/Warehouse-Planning-using-LLM/internal/formulation"
	"github.com/SRIRUPINPOTULA/Warehouse-Planning-using-LLM/internal/verify"
)

// Status is the lifecycle state of a run.
type Status string

const (
	// StatusRunning means the loop is still iterating.
	StatusRunning Status = "running"
	// StatusConverged means a candidate passed verification.
	StatusConverged Status = "converged"
	// StatusExhausted means the iteration budget ran out without a valid
	// candidate.
	StatusExhausted Status = "exhausted"
	// StatusAborted means the run stopped early: cancellation or a
	// generation transport failure.
	StatusAborted Status = "aborted"
)

// Terminal reports whether the status is an end state.
func (s Status) Terminal() bool { return s != StatusRunning }

// Step is one completed iteration: the prompt sent, the candidate
// produced, its verdict, and the directives derived from the verdict.
type Step struct {
	// Index is the zero-based position in the run history.
	Index int
	// Prompt is the full prompt the generator was given.
	Prompt string
	// RawResponse is the unprocessed model output.
	RawResponse string
	// Candidate is the extracted formulation.
	Candidate formulation.Candidate
	// Report is the verifier's verdict.
	Report verify.Report
	// Directives is the feedback sent forward. Empty for the converging
	// step.
	Directives []feedback.Directive
	// FreeRetry marks a step that did not consume iteration budget, which
	// only happens for oracle faults under the non-consuming policy.
	FreeRetry bool
}

// Result is the complete record of one run.
type Result struct {
	ID       uuid.UUID
	Domain   string
	Status   Status
	Steps    []Step
	Started  time.Time
	Finished time.Time
	// Err holds the abort cause when Status is StatusAborted.
	Err error
}

// Converged reports whether the run produced a valid formulation.
func (r Result) Converged() bool { return r.Status == StatusConverged }

// Final returns the converged formulation, or nil.
func (r Result) Final() *formulation.Candidate {
	if !r.Converged() || len(r.Steps) == 0 {
		return nil
	}
	last := r.Steps[len(r.Steps)-1]
	if !last.Report.Valid() {
		return nil
	}
	c := last.Candidate
	return &c
}

// ConsumedIterations counts steps that drew on the iteration budget.
func (r Result) ConsumedIterations() int {
	n := 0
	for _, s := range r.Steps {
		if !s.FreeRetry {
			n++
		}
	}
	return n
}
