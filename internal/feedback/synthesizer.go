// Package feedback turns verification reports into corrective directives and
// renders the prompts the generator sends to the model. Directive order
// follows report order, so syntax problems always surface before semantic
// ones and semantic problems follow the domain's constraint order.
package feedback

import (
	"errors"
	"fmt"
	"strings"

	"github.com/SRIRUPINPOTULA/Warehouse-Planning-using-LLM/internal/logging"
	"github.com/SRIRUPINPOTULA/Warehouse-Planning-using-LLM/internal/verify"
)

// Mode selects how much of the report reaches the model.
type Mode string

const (
	// ModeBinary tells the model only that the attempt failed.
	ModeBinary Mode = "binary"
	// ModeStructured gives the model one directive per violation.
	ModeStructured Mode = "structured-feedback"
)

// ParseMode maps a config string to a Mode.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case ModeBinary, ModeStructured:
		return Mode(s), nil
	}
	return "", fmt.Errorf("unknown convergence mode %q", s)
}

// Directive is one corrective instruction for the next generation attempt.
type Directive struct {
	// ConstraintID names the domain constraint this directive addresses.
	// Empty for syntax and verifier directives.
	ConstraintID string
	// Kind mirrors the violation kind the directive was built from.
	Kind verify.ViolationKind
	// Text is the instruction shown to the model.
	Text string
}

// ErrValidReport is returned when synthesis is requested for a report with
// no violations. A valid report needs no feedback; asking for it indicates
// a controller bug.
var ErrValidReport = errors.New("cannot synthesize feedback for a valid report")

// Synthesizer builds directives from failed reports.
type Synthesizer struct {
	mode Mode
}

// NewSynthesizer creates a synthesizer for the given mode.
func NewSynthesizer(mode Mode) *Synthesizer {
	return &Synthesizer{mode: mode}
}

// Mode returns the configured feedback mode.
func (s *Synthesizer) Mode() Mode { return s.mode }

// Synthesize converts a failed report into directives, one per violation.
// The report's violation order is preserved.
func (s *Synthesizer) Synthesize(report verify.Report) ([]Directive, error) {
	if report.Valid() {
		return nil, ErrValidReport
	}

	if report.Status == verify.StatusVerifierError {
		// The candidate was never judged; ask for a resubmission rather
		// than a correction.
		return []Directive{{
			Kind: verify.KindVerifier,
			Text: "The previous attempt could not be checked because the verifier failed internally. Submit the complete program again, unchanged or improved.",
		}}, nil
	}

	if s.mode == ModeBinary {
		return []Directive{{
			Kind: report.Violations[0].Kind,
			Text: "The previous program was incorrect. Produce a corrected complete program.",
		}}, nil
	}

	// Syntax corrections come before semantic ones: the model must produce
	// a parseable program before constraint fixes mean anything. Within a
	// kind, report order is preserved.
	directives := make([]Directive, 0, len(report.Violations))
	for _, v := range report.Violations {
		if v.Kind == verify.KindSyntax {
			directives = append(directives, Directive{
				ConstraintID: v.ConstraintID,
				Kind:         v.Kind,
				Text:         directiveText(v),
			})
		}
	}
	for _, v := range report.Violations {
		if v.Kind != verify.KindSyntax {
			directives = append(directives, Directive{
				ConstraintID: v.ConstraintID,
				Kind:         v.Kind,
				Text:         directiveText(v),
			})
		}
	}
	logging.Feedback("synthesized %d directive(s) from %s report", len(directives), report.Status)
	return directives, nil
}

func directiveText(v verify.Violation) string {
	var b strings.Builder
	switch v.Kind {
	case verify.KindSyntax:
		if v.Line > 0 {
			fmt.Fprintf(&b, "Syntax error at line %d", v.Line)
			if v.Column > 0 {
				fmt.Fprintf(&b, ", column %d", v.Column)
			}
			b.WriteString(": ")
		} else {
			b.WriteString("Syntax error: ")
		}
		b.WriteString(v.Message)
		b.WriteString(" Fix the syntax and resubmit the complete program.")
	case verify.KindSemantic:
		fmt.Fprintf(&b, "Constraint %q is violated: %s", v.ConstraintID, v.Message)
		if len(v.Witnesses) > 0 {
			fmt.Fprintf(&b, " Counterexamples: %s.", strings.Join(v.Witnesses, "; "))
		}
		b.WriteString(" Adjust the rules so this constraint holds.")
	default:
		b.WriteString(v.Message)
	}
	return b.String()
}
