package feedback

import (
	"fmt"
	"strings"

	"github.com/SRIRUPINPOTULA/Warehouse-Planning-using-LLM/internal/domain"
	"github.com/SRIRUPINPOTULA/Warehouse-Planning-using-LLM/internal/verify"
)

// outputRules is appended to every prompt. Generated responses that ignore
// these are still salvaged by extraction, but models follow them most of
// the time, which keeps candidates clean.
const outputRules = `STRICT OUTPUT RULES:
1. Respond with ONLY the logic program. No prose before or after.
2. Do not wrap the program in markdown code fences.
3. Use Mangle Datalog syntax: facts and rules terminated with '.', rules use ':-', comments start with '#'.
4. Predicate names start lowercase. Variables start uppercase.
5. Every diagnostic predicate listed in the task must be defined, even when it derives no facts.`

// RenderDomain renders a domain description for inclusion in a prompt:
// the objects the program must model and the diagnostic predicates the
// verifier will count.
func RenderDomain(d *domain.Domain) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Domain: %s\n\nObjects:\n", d.Name())
	for _, obj := range d.Objects() {
		fmt.Fprintf(&b, "- %s (%s)\n", obj.Name, obj.Kind)
	}

	b.WriteString("\nThe program must define these diagnostic predicates:\n")
	for _, c := range d.Constraints() {
		switch c.Mode {
		case domain.ModeForbid:
			fmt.Fprintf(&b, "- %s: must derive NO facts. %s\n", c.Predicate, c.Rationale)
		case domain.ModeRequire:
			fmt.Fprintf(&b, "- %s: must derive AT LEAST ONE fact. %s\n", c.Predicate, c.Rationale)
		case domain.ModeExactly:
			fmt.Fprintf(&b, "- %s: must derive EXACTLY %d fact(s). %s\n", c.Predicate, c.Count, c.Rationale)
		}
	}
	return b.String()
}

// InitialPrompt builds the first-attempt prompt for a domain.
func InitialPrompt(d *domain.Domain) string {
	var b strings.Builder

	b.WriteString("You are formulating an automated-warehouse planning problem as a logic program.\n")
	b.WriteString("Encode the warehouse state, the robots' plan, and the diagnostic predicates below.\n")
	b.WriteString("A diagnostic predicate derives a fact exactly when the condition it names occurs in the plan.\n\n")
	b.WriteString(RenderDomain(d))
	b.WriteString("\n")
	b.WriteString(outputRules)
	return b.String()
}

// FeedbackPrompt builds the prompt for the attempt after attempt failed.
// Guidance escalates as the budget drains: from the third attempt on, the
// model is told to fix only what the directives name, and the last attempt
// is announced as such.
func FeedbackPrompt(d *domain.Domain, prevSource string, directives []Directive, attempt, maxAttempts int) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Your previous formulation (attempt %d of %d) was rejected.\n\n", attempt, maxAttempts)

	b.WriteString("Previous program:\n")
	b.WriteString(strings.TrimSpace(prevSource))
	b.WriteString("\n\nProblems found:\n")
	for i, dir := range directives {
		fmt.Fprintf(&b, "%d. %s\n", i+1, dir.Text)
	}

	next := attempt + 1
	if next >= 3 {
		b.WriteString("\nFix ONLY the problems listed above. Keep every part of the program that was not flagged.\n")
	}
	if next >= maxAttempts {
		b.WriteString("This is the final attempt. Re-read each problem, verify your fix addresses it, then respond.\n")
	}

	b.WriteString("\n")
	b.WriteString(RenderDomain(d))
	b.WriteString("\n")
	b.WriteString(outputRules)
	return b.String()
}

// FormatReport renders a report for human display (CLI output, not prompts).
func FormatReport(report verify.Report) string {
	var b strings.Builder
	fmt.Fprintf(&b, "status: %s (checked in %v)\n", report.Status, report.Elapsed.Round(0))
	for _, v := range report.Violations {
		b.WriteString("  - ")
		if v.ConstraintID != "" {
			fmt.Fprintf(&b, "[%s] ", v.ConstraintID)
		}
		if v.Line > 0 {
			fmt.Fprintf(&b, "line %d: ", v.Line)
		}
		b.WriteString(v.Message)
		b.WriteString("\n")
		for _, w := range v.Witnesses {
			fmt.Fprintf(&b, "      witness: %s\n", w)
		}
	}
	return b.String()
}
