package feedback

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SRIRUPINPOTULA/Warehouse-Planning-using-LLM/internal/domain"
	"github.com/SRIRUPINPOTULA/Warehouse-Planning-using-LLM/internal/verify"
)

func TestParseMode(t *testing.T) {
	m, err := ParseMode("binary")
	require.NoError(t, err)
	assert.Equal(t, ModeBinary, m)

	m, err = ParseMode("structured-feedback")
	require.NoError(t, err)
	assert.Equal(t, ModeStructured, m)

	_, err = ParseMode("chatty")
	assert.Error(t, err)
}

func TestSynthesizeRejectsValidReport(t *testing.T) {
	s := NewSynthesizer(ModeStructured)
	_, err := s.Synthesize(verify.Report{Status: verify.StatusValid})
	assert.ErrorIs(t, err, ErrValidReport)
}

func TestSynthesizeOneDirectivePerViolation(t *testing.T) {
	s := NewSynthesizer(ModeStructured)
	report := verify.Report{
		Status: verify.StatusSemanticInvalid,
		Violations: []verify.Violation{
			{Kind: verify.KindSemantic, ConstraintID: "no_crash", Message: "2 instance(s) of forbidden predicate", Witnesses: []string{"crash(/r1, /r2, 3)"}},
			{Kind: verify.KindSemantic, ConstraintID: "goal", Message: "required predicate never derived"},
		},
	}

	directives, err := s.Synthesize(report)
	require.NoError(t, err)
	require.Len(t, directives, 2)

	assert.Equal(t, "no_crash", directives[0].ConstraintID)
	assert.Contains(t, directives[0].Text, "crash(/r1, /r2, 3)")
	assert.Equal(t, "goal", directives[1].ConstraintID)
}

func TestSynthesizeSyntaxDirectivesComeFirst(t *testing.T) {
	// A mixed report must yield all syntax corrections before any semantic
	// ones, regardless of their order in the report, with report order
	// preserved within each kind.
	s := NewSynthesizer(ModeStructured)
	report := verify.Report{
		Status: verify.StatusSemanticInvalid,
		Violations: []verify.Violation{
			{Kind: verify.KindSemantic, ConstraintID: "no_crash", Message: "forbidden predicate derived"},
			{Kind: verify.KindSyntax, Line: 2, Message: "unexpected token"},
			{Kind: verify.KindSemantic, ConstraintID: "goal", Message: "required predicate never derived"},
			{Kind: verify.KindSyntax, Line: 7, Message: "missing terminator"},
		},
	}

	directives, err := s.Synthesize(report)
	require.NoError(t, err)
	require.Len(t, directives, 4)

	assert.Equal(t, verify.KindSyntax, directives[0].Kind)
	assert.Contains(t, directives[0].Text, "line 2")
	assert.Equal(t, verify.KindSyntax, directives[1].Kind)
	assert.Contains(t, directives[1].Text, "line 7")
	assert.Equal(t, "no_crash", directives[2].ConstraintID)
	assert.Equal(t, "goal", directives[3].ConstraintID)
}

func TestSynthesizeSyntaxDirectiveCarriesPosition(t *testing.T) {
	s := NewSynthesizer(ModeStructured)
	report := verify.Report{
		Status: verify.StatusSyntaxInvalid,
		Violations: []verify.Violation{
			{Kind: verify.KindSyntax, Line: 4, Column: 12, Message: "unexpected token"},
		},
	}

	directives, err := s.Synthesize(report)
	require.NoError(t, err)
	require.Len(t, directives, 1)
	assert.Contains(t, directives[0].Text, "line 4")
	assert.Contains(t, directives[0].Text, "column 12")
}

func TestSynthesizeBinaryMode(t *testing.T) {
	s := NewSynthesizer(ModeBinary)
	report := verify.Report{
		Status: verify.StatusSemanticInvalid,
		Violations: []verify.Violation{
			{Kind: verify.KindSemantic, ConstraintID: "no_crash", Message: "details the model must not see"},
			{Kind: verify.KindSemantic, ConstraintID: "goal", Message: "more hidden details"},
		},
	}

	directives, err := s.Synthesize(report)
	require.NoError(t, err)
	require.Len(t, directives, 1)
	assert.NotContains(t, directives[0].Text, "hidden details")
	assert.Contains(t, directives[0].Text, "incorrect")
}

func TestSynthesizeVerifierError(t *testing.T) {
	for _, mode := range []Mode{ModeBinary, ModeStructured} {
		s := NewSynthesizer(mode)
		report := verify.Report{
			Status: verify.StatusVerifierError,
			Violations: []verify.Violation{
				{Kind: verify.KindVerifier, Message: "evaluation timed out"},
			},
		}

		directives, err := s.Synthesize(report)
		require.NoError(t, err)
		require.Len(t, directives, 1)
		assert.Equal(t, verify.KindVerifier, directives[0].Kind)
		assert.Contains(t, directives[0].Text, "verifier failed")
	}
}

func TestInitialPromptListsConstraints(t *testing.T) {
	prompt := InitialPrompt(domain.Warehouse())

	for _, c := range domain.Warehouse().Constraints() {
		assert.Contains(t, prompt, c.Predicate)
		assert.Contains(t, prompt, c.Rationale)
	}
	assert.Contains(t, prompt, "STRICT OUTPUT RULES")
}

func TestFeedbackPromptEscalation(t *testing.T) {
	d := domain.Warehouse()
	directives := []Directive{{ConstraintID: "no_crash", Kind: verify.KindSemantic, Text: "fix the collision rule"}}
	prev := "robot(/r1)."

	early := FeedbackPrompt(d, prev, directives, 1, 5)
	assert.Contains(t, early, "fix the collision rule")
	assert.Contains(t, early, prev)
	assert.NotContains(t, early, "Fix ONLY")
	assert.NotContains(t, early, "final attempt")

	mid := FeedbackPrompt(d, prev, directives, 3, 5)
	assert.Contains(t, mid, "Fix ONLY")
	assert.NotContains(t, mid, "final attempt")

	// The prompt driving the last generation (after failure 4 of 5) must
	// announce it.
	last := FeedbackPrompt(d, prev, directives, 4, 5)
	assert.Contains(t, last, "final attempt")
}

func TestFeedbackPromptNumbersDirectives(t *testing.T) {
	d := domain.Warehouse()
	directives := []Directive{
		{Text: "first problem"},
		{Text: "second problem"},
	}
	prompt := FeedbackPrompt(d, "p(/a).", directives, 1, 5)

	first := strings.Index(prompt, "1. first problem")
	second := strings.Index(prompt, "2. second problem")
	require.GreaterOrEqual(t, first, 0)
	require.GreaterOrEqual(t, second, 0)
	assert.Less(t, first, second)
}

func TestFormatReport(t *testing.T) {
	out := FormatReport(verify.Report{
		Status: verify.StatusSemanticInvalid,
		Violations: []verify.Violation{
			{ConstraintID: "no_crash", Message: "forbidden predicate derived", Witnesses: []string{"crash()"}},
		},
	})
	assert.Contains(t, out, "semantic_invalid")
	assert.Contains(t, out, "[no_crash]")
	assert.Contains(t, out, "witness: crash()")
}
