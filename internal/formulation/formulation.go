// Package formulation defines the candidate artifact produced by each
// refinement iteration: the raw logic-program text plus structural metadata.
// Candidates are immutable once created and retained in run history.
package formulation

import (
	"regexp"
	"sort"
	"strings"
	"time"
)

// Candidate is one generated formulation. Created by the generator, consumed
// by the verifier, never mutated.
type Candidate struct {
	// SourceText is the raw logic-program text.
	SourceText string

	// DeclaredPredicates holds the sorted names of predicates the text
	// defines (rule heads and facts).
	DeclaredPredicates []string

	// Iteration is the zero-based index of the refinement iteration that
	// produced this candidate.
	Iteration int

	// CreatedAt records when the candidate was produced.
	CreatedAt time.Time
}

// New builds a candidate from source text, scanning it for defined
// predicates.
func New(source string, iteration int) Candidate {
	return Candidate{
		SourceText:         source,
		DeclaredPredicates: scanDefinedPredicates(source),
		Iteration:          iteration,
		CreatedAt:          time.Now(),
	}
}

// Defines reports whether the formulation defines the named predicate.
func (c Candidate) Defines(name string) bool {
	i := sort.SearchStrings(c.DeclaredPredicates, name)
	return i < len(c.DeclaredPredicates) && c.DeclaredPredicates[i] == name
}

// headPattern matches a predicate name opening a clause head: either a fact
// ("p(...).") or a rule head ("p(...) :- ...").
var headPattern = regexp.MustCompile(`^([a-z][A-Za-z0-9_]*)\s*\(`)

func scanDefinedPredicates(source string) []string {
	seen := make(map[string]bool)

	// Only lines that begin a new statement define predicates; continuation
	// lines of a multi-line rule body must not be scanned.
	atStatementStart := true
	for _, line := range strings.Split(source, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "#") || strings.HasPrefix(trimmed, "%") {
			continue
		}
		if atStatementStart {
			if m := headPattern.FindStringSubmatch(trimmed); m != nil {
				seen[m[1]] = true
			}
		}
		atStatementStart = strings.HasSuffix(trimmed, ".")
	}

	out := make([]string, 0, len(seen))
	for name := range seen {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}
