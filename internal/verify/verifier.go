// Package verify checks candidate formulations against a domain. The
// verifier first runs fast structural pre-validation, then evaluates the
// program with the oracle and counts each constraint's diagnostic predicate
// in the derived model. Reports are deterministic: the same candidate and
// domain always produce the same status and the same violation order.
package verify

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/SRIRUPINPOTULA/Warehouse-Planning-using-LLM/internal/domain"
	"github.com/SRIRUPINPOTULA/Warehouse-Planning-using-LLM/internal/formulation"
	"github.com/SRIRUPINPOTULA/Warehouse-Planning-using-LLM/internal/logging"
	"github.com/SRIRUPINPOTULA/Warehouse-Planning-using-LLM/internal/oracle"
)

// Status is the overall outcome of a verification.
type Status string

const (
	// StatusValid means the program parsed, evaluated, and satisfied every
	// domain constraint.
	StatusValid Status = "valid"
	// StatusSyntaxInvalid means the program failed structural checks or did
	// not parse.
	StatusSyntaxInvalid Status = "syntax_invalid"
	// StatusSemanticInvalid means the program evaluated but violated at
	// least one domain constraint.
	StatusSemanticInvalid Status = "semantic_invalid"
	// StatusVerifierError means the oracle itself failed. The candidate is
	// neither confirmed nor refuted.
	StatusVerifierError Status = "verifier_error"
)

// ViolationKind classifies a single violation.
type ViolationKind string

const (
	KindSyntax   ViolationKind = "syntax"
	KindSemantic ViolationKind = "semantic"
	KindVerifier ViolationKind = "verifier"
)

// Violation is one concrete defect found in a candidate.
type Violation struct {
	// Kind classifies the defect.
	Kind ViolationKind
	// ConstraintID names the violated domain constraint. Empty for syntax
	// and verifier violations.
	ConstraintID string
	// Line and Column locate syntax defects in the source. Zero when the
	// location is unknown or not applicable.
	Line   int
	Column int
	// Message describes the defect.
	Message string
	// Witnesses holds sample derived facts demonstrating a semantic
	// violation.
	Witnesses []string
}

// Report is the verifier's verdict on one candidate. Status is StatusValid
// exactly when Violations is empty.
type Report struct {
	Status     Status
	Violations []Violation
	Elapsed    time.Duration
}

// Valid reports whether the candidate passed all checks.
func (r Report) Valid() bool { return r.Status == StatusValid }

// maxWitnesses caps sample facts per semantic violation.
const maxWitnesses = 3

// Evaluator produces a derived model for a program, or a typed failure.
// Satisfied by *oracle.Engine.
type Evaluator interface {
	Eval(ctx context.Context, source string) (*oracle.Model, error)
}

// Verifier checks candidates against a single domain.
type Verifier struct {
	engine Evaluator
	dom    *domain.Domain
}

// New creates a verifier for the given domain.
func New(engine Evaluator, dom *domain.Domain) *Verifier {
	return &Verifier{engine: engine, dom: dom}
}

// Domain returns the domain this verifier checks against.
func (v *Verifier) Domain() *domain.Domain { return v.dom }

// Verify checks a candidate and returns the report. It never returns an
// error: oracle faults become StatusVerifierError reports.
func (v *Verifier) Verify(ctx context.Context, cand formulation.Candidate) Report {
	start := time.Now()

	// Fast structural checks before touching the oracle.
	if issues := prevalidate(cand.SourceText); len(issues) > 0 {
		sort.SliceStable(issues, func(i, j int) bool {
			if issues[i].Line != issues[j].Line {
				return issues[i].Line < issues[j].Line
			}
			return issues[i].Column < issues[j].Column
		})
		logging.OracleDebug("pre-validation rejected candidate: %d issues", len(issues))
		return Report{
			Status:     StatusSyntaxInvalid,
			Violations: issues,
			Elapsed:    time.Since(start),
		}
	}

	model, err := v.engine.Eval(ctx, cand.SourceText)
	if err != nil {
		var parseErr *oracle.ParseError
		if errors.As(err, &parseErr) {
			line, col := extractLineCol(parseErr.Detail)
			return Report{
				Status: StatusSyntaxInvalid,
				Violations: []Violation{{
					Kind:    KindSyntax,
					Line:    line,
					Column:  col,
					Message: condenseDetail(parseErr.Detail),
				}},
				Elapsed: time.Since(start),
			}
		}
		// Oracle fault. The candidate is not blamed.
		return Report{
			Status: StatusVerifierError,
			Violations: []Violation{{
				Kind:    KindVerifier,
				Message: err.Error(),
			}},
			Elapsed: time.Since(start),
		}
	}

	// Semantic checks run in domain constraint order so reports are stable.
	var violations []Violation
	for _, c := range v.dom.Constraints() {
		if viol, ok := checkConstraint(c, cand, model); !ok {
			violations = append(violations, viol)
		}
	}

	status := StatusValid
	if len(violations) > 0 {
		status = StatusSemanticInvalid
	}
	logging.Oracle("verified candidate %d: %s (%d violations)", cand.Iteration, status, len(violations))
	return Report{
		Status:     status,
		Violations: violations,
		Elapsed:    time.Since(start),
	}
}

// checkConstraint evaluates one constraint against the derived model.
// A diagnostic predicate the candidate never defines is itself a violation,
// otherwise a forbid constraint would pass vacuously.
func checkConstraint(c domain.ConstraintSpec, cand formulation.Candidate, model *oracle.Model) (Violation, bool) {
	if !cand.Defines(c.Predicate) {
		return Violation{
			Kind:         KindSemantic,
			ConstraintID: c.ID,
			Message: fmt.Sprintf("diagnostic predicate %q is not defined; the formulation must derive it so the constraint can be checked (%s)",
				c.Predicate, c.Rationale),
		}, false
	}

	count := model.Count(c.Predicate)
	switch c.Mode {
	case domain.ModeForbid:
		if count > 0 {
			return Violation{
				Kind:         KindSemantic,
				ConstraintID: c.ID,
				Message: fmt.Sprintf("%d instance(s) of forbidden predicate %q derived (%s)",
					count, c.Predicate, c.Rationale),
				Witnesses: model.Facts(c.Predicate, maxWitnesses),
			}, false
		}
	case domain.ModeRequire:
		if count == 0 {
			return Violation{
				Kind:         KindSemantic,
				ConstraintID: c.ID,
				Message: fmt.Sprintf("required predicate %q was never derived (%s)",
					c.Predicate, c.Rationale),
			}, false
		}
	case domain.ModeExactly:
		if count != c.Count {
			return Violation{
				Kind:         KindSemantic,
				ConstraintID: c.ID,
				Message: fmt.Sprintf("predicate %q derived %d time(s), expected exactly %d (%s)",
					c.Predicate, count, c.Count, c.Rationale),
				Witnesses: model.Facts(c.Predicate, maxWitnesses),
			}, false
		}
	}
	return Violation{}, true
}

// condenseDetail collapses a multi-line oracle error into a single line.
func condenseDetail(detail string) string {
	lines := strings.Split(strings.TrimSpace(detail), "\n")
	for i, l := range lines {
		lines[i] = strings.TrimSpace(l)
	}
	return strings.Join(lines, " ")
}
