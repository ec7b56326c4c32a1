package refine

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/SRIRUPINPOTULA/Warehouse-Planning-using-LLM/internal/domain"
	"github.com/SRIRUPINPOTULA/Warehouse-Planning-using-LLM/internal/feedback"
	"github.com/SRIRUPINPOTULA/Warehouse-Planning-using-LLM/internal/formulation"
	"github.com/SRIRUPINPOTULA/Warehouse-Planning-using-LLM/internal/generator"
	"github.com/SRIRUPINPOTULA/Warehouse-Planning-using-LLM/internal/verify"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

const goodProgram = `goal_met() :- delivered(/o1).
delivered(/o1).
`

// scriptedGen returns canned responses in order, recording each prompt.
type scriptedGen struct {
	mu        sync.Mutex
	responses []string
	errs      []error
	prompts   []string
}

func (g *scriptedGen) Generate(ctx context.Context, history []generator.Turn, prompt string) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	i := len(g.prompts)
	g.prompts = append(g.prompts, prompt)
	if i < len(g.errs) && g.errs[i] != nil {
		return "", g.errs[i]
	}
	if i < len(g.responses) {
		return g.responses[i], nil
	}
	return g.responses[len(g.responses)-1], nil
}

// scriptedVerifier returns canned reports in order, repeating the last one.
type scriptedVerifier struct {
	mu      sync.Mutex
	reports []verify.Report
	calls   int
}

func (v *scriptedVerifier) Verify(ctx context.Context, cand formulation.Candidate) verify.Report {
	v.mu.Lock()
	defer v.mu.Unlock()
	i := v.calls
	v.calls++
	if i >= len(v.reports) {
		i = len(v.reports) - 1
	}
	return v.reports[i]
}

type recordedRun struct {
	steps []Step
	runs  []Result
}

type fakeRecorder struct {
	mu sync.Mutex
	recordedRun
}

func (r *fakeRecorder) RecordStep(ctx context.Context, runID uuid.UUID, domainName string, step Step) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.steps = append(r.steps, step)
	return nil
}

func (r *fakeRecorder) RecordRun(ctx context.Context, res Result) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.runs = append(r.runs, res)
	return nil
}

func validReport() verify.Report {
	return verify.Report{Status: verify.StatusValid}
}

func semanticFailure(constraintID string) verify.Report {
	return verify.Report{
		Status: verify.StatusSemanticInvalid,
		Violations: []verify.Violation{
			{Kind: verify.KindSemantic, ConstraintID: constraintID, Message: "forbidden predicate derived"},
		},
	}
}

func oracleFault() verify.Report {
	return verify.Report{
		Status: verify.StatusVerifierError,
		Violations: []verify.Violation{
			{Kind: verify.KindVerifier, Message: "evaluation timed out"},
		},
	}
}

func newTestController(gen generator.Generator, ver Verifier, rec Recorder, opts Options) *Controller {
	return New(domain.Warehouse(), gen, ver, rec, opts)
}

func TestRunConvergesOnFirstAttempt(t *testing.T) {
	gen := &scriptedGen{responses: []string{goodProgram}}
	ver := &scriptedVerifier{reports: []verify.Report{validReport()}}

	res := newTestController(gen, ver, nil, Options{MaxIterations: 5}).Run(context.Background())

	assert.Equal(t, StatusConverged, res.Status)
	require.Len(t, res.Steps, 1)
	require.NotNil(t, res.Final())
	assert.Contains(t, res.Final().SourceText, "goal_met")
	assert.Equal(t, 0, res.ConsumedIterations())
	assert.False(t, res.Finished.IsZero())
}

func TestRunConvergesAfterFeedback(t *testing.T) {
	gen := &scriptedGen{responses: []string{"robot(/r1).", goodProgram}}
	ver := &scriptedVerifier{reports: []verify.Report{
		semanticFailure("no_crash"),
		validReport(),
	}}

	res := newTestController(gen, ver, nil, Options{MaxIterations: 5}).Run(context.Background())

	assert.Equal(t, StatusConverged, res.Status)
	require.Len(t, res.Steps, 2)

	// The second prompt must carry the failure forward.
	require.Len(t, gen.prompts, 2)
	assert.Contains(t, gen.prompts[1], "forbidden predicate derived")
	assert.Contains(t, gen.prompts[1], "robot(/r1).")

	// Step records: the failed step carries directives, the converging one
	// does not.
	assert.NotEmpty(t, res.Steps[0].Directives)
	assert.Empty(t, res.Steps[1].Directives)
}

func TestRunExhaustsBudget(t *testing.T) {
	gen := &scriptedGen{responses: []string{"robot(/r1)."}}
	ver := &scriptedVerifier{reports: []verify.Report{semanticFailure("no_crash")}}

	res := newTestController(gen, ver, nil, Options{MaxIterations: 3}).Run(context.Background())

	assert.Equal(t, StatusExhausted, res.Status)
	assert.Len(t, res.Steps, 3)
	assert.Equal(t, 3, res.ConsumedIterations())
	assert.Nil(t, res.Final())
}

func TestRunAbortsOnGenerationFailure(t *testing.T) {
	transportErr := &generator.GenerationError{Op: "generate_content", Err: errors.New("connection refused")}
	gen := &scriptedGen{
		responses: []string{"robot(/r1).", ""},
		errs:      []error{nil, transportErr},
	}
	ver := &scriptedVerifier{reports: []verify.Report{semanticFailure("no_crash")}}

	res := newTestController(gen, ver, nil, Options{MaxIterations: 5}).Run(context.Background())

	assert.Equal(t, StatusAborted, res.Status)
	require.ErrorAs(t, res.Err, new(*generator.GenerationError))
	// History up to the failure is retained.
	assert.Len(t, res.Steps, 1)
}

func TestRunAbortsOnCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	gen := &scriptedGen{responses: []string{goodProgram}}
	ver := &scriptedVerifier{reports: []verify.Report{validReport()}}

	res := newTestController(gen, ver, nil, Options{MaxIterations: 5}).Run(ctx)

	assert.Equal(t, StatusAborted, res.Status)
	assert.ErrorIs(t, res.Err, context.Canceled)
	assert.Empty(t, res.Steps)
}

func TestOracleFaultFreeRetry(t *testing.T) {
	gen := &scriptedGen{responses: []string{goodProgram}}
	ver := &scriptedVerifier{reports: []verify.Report{
		oracleFault(),
		validReport(),
	}}

	res := newTestController(gen, ver, nil, Options{
		MaxIterations:             3,
		OracleFaultConsumesBudget: false,
	}).Run(context.Background())

	assert.Equal(t, StatusConverged, res.Status)
	require.Len(t, res.Steps, 2)
	assert.True(t, res.Steps[0].FreeRetry)
	assert.False(t, res.Steps[1].FreeRetry)
	assert.Equal(t, 0, res.ConsumedIterations())
}

func TestConsecutiveOracleFaultsStillTerminate(t *testing.T) {
	// Free retries alternate with consumed ones, so a permanently dead
	// oracle exhausts a budget of N after 2N steps.
	gen := &scriptedGen{responses: []string{goodProgram}}
	ver := &scriptedVerifier{reports: []verify.Report{oracleFault()}}

	res := newTestController(gen, ver, nil, Options{
		MaxIterations:             2,
		OracleFaultConsumesBudget: false,
	}).Run(context.Background())

	assert.Equal(t, StatusExhausted, res.Status)
	assert.Len(t, res.Steps, 4)
	assert.Equal(t, 2, res.ConsumedIterations())
	assert.True(t, res.Steps[0].FreeRetry)
	assert.False(t, res.Steps[1].FreeRetry)
	assert.True(t, res.Steps[2].FreeRetry)
	assert.False(t, res.Steps[3].FreeRetry)
}

func TestOracleFaultConsumesBudgetByDefault(t *testing.T) {
	gen := &scriptedGen{responses: []string{goodProgram}}
	ver := &scriptedVerifier{reports: []verify.Report{oracleFault()}}

	res := newTestController(gen, ver, nil, Options{
		MaxIterations:             2,
		OracleFaultConsumesBudget: true,
	}).Run(context.Background())

	assert.Equal(t, StatusExhausted, res.Status)
	assert.Len(t, res.Steps, 2)
	assert.Equal(t, 2, res.ConsumedIterations())
}

func TestUnextractableResponseBecomesSyntaxInvalidStep(t *testing.T) {
	// Prose with no program still produces a history entry so iteration
	// counts stay honest.
	gen := &scriptedGen{responses: []string{"I am unable to help with that", goodProgram}}
	ver := &scriptedVerifier{reports: []verify.Report{
		{
			Status: verify.StatusSyntaxInvalid,
			Violations: []verify.Violation{
				{Kind: verify.KindSyntax, Message: "empty program: no logic-program text was produced"},
			},
		},
		validReport(),
	}}

	res := newTestController(gen, ver, nil, Options{MaxIterations: 5}).Run(context.Background())

	assert.Equal(t, StatusConverged, res.Status)
	require.Len(t, res.Steps, 2)
	assert.Empty(t, res.Steps[0].Candidate.SourceText)
	assert.Equal(t, verify.StatusSyntaxInvalid, res.Steps[0].Report.Status)
}

func TestRecorderReceivesStepsAndRun(t *testing.T) {
	rec := &fakeRecorder{}
	gen := &scriptedGen{responses: []string{"robot(/r1).", goodProgram}}
	ver := &scriptedVerifier{reports: []verify.Report{
		semanticFailure("no_crash"),
		validReport(),
	}}

	res := newTestController(gen, ver, rec, Options{MaxIterations: 5}).Run(context.Background())

	require.Len(t, rec.steps, 2)
	assert.Equal(t, 0, rec.steps[0].Index)
	assert.Equal(t, 1, rec.steps[1].Index)

	require.Len(t, rec.runs, 1)
	assert.Equal(t, res.ID, rec.runs[0].ID)
	assert.Equal(t, StatusConverged, rec.runs[0].Status)
}

func TestBinaryModeHidesViolationDetail(t *testing.T) {
	gen := &scriptedGen{responses: []string{"robot(/r1).", goodProgram}}
	ver := &scriptedVerifier{reports: []verify.Report{
		semanticFailure("no_crash"),
		validReport(),
	}}

	newTestController(gen, ver, nil, Options{
		MaxIterations: 5,
		Mode:          feedback.ModeBinary,
	}).Run(context.Background())

	require.Len(t, gen.prompts, 2)
	assert.NotContains(t, gen.prompts[1], "forbidden predicate derived")
	assert.Contains(t, gen.prompts[1], "incorrect")
}

func TestDefaultOptions(t *testing.T) {
	c := newTestController(&scriptedGen{responses: []string{""}}, &scriptedVerifier{reports: []verify.Report{validReport()}}, nil, Options{})
	assert.Equal(t, 5, c.opts.MaxIterations)
	assert.Equal(t, 120*time.Second, c.opts.StepTimeout)
	assert.Equal(t, feedback.ModeStructured, c.opts.Mode)
}
