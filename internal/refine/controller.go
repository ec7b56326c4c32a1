package refine

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/SRIRUPINPOTULA/Warehouse-Planning-using-LLM/internal/domain"
	"github.com/SRIRUPINPOTULA/Warehouse-Planning-using-LLM/internal/feedback"
	"github.com/SRIRUPINPOTULA/Warehouse-Planning-using-LLM/internal/formulation"
	"github.com/SRIRUPINPOTULA/Warehouse-Planning-using-LLM/internal/generator"
	"github.com/SRIRUPINPOTULA/Warehouse-Planning-using-LLM/internal/logging"
	"github.com/SRIRUPINPOTULA/Warehouse-Planning-using-LLM/internal/verify"
)

// Verifier is the judgment the controller depends on. Satisfied by
// *verify.Verifier; tests substitute scripted fakes.
type Verifier interface {
	Verify(ctx context.Context, cand formulation.Candidate) verify.Report
}

// Recorder persists run history. Recording failures are logged and never
// stop a run.
type Recorder interface {
	RecordStep(ctx context.Context, runID uuid.UUID, domainName string, step Step) error
	RecordRun(ctx context.Context, res Result) error
}

// Options tunes the loop.
type Options struct {
	// MaxIterations is the budget of generation attempts.
	MaxIterations int
	// StepTimeout bounds one generate-plus-verify iteration.
	StepTimeout time.Duration
	// Mode selects feedback verbosity.
	Mode feedback.Mode
	// OracleFaultConsumesBudget controls whether a verifier-error step
	// draws on MaxIterations. When false, each oracle fault earns one free
	// retry; a second consecutive fault consumes budget so a dead oracle
	// still terminates the run.
	OracleFaultConsumesBudget bool
}

// Controller drives one refinement run to a terminal state.
type Controller struct {
	dom   *domain.Domain
	gen   generator.Generator
	ver   Verifier
	synth *feedback.Synthesizer
	rec   Recorder
	opts  Options
}

// New creates a controller. rec may be nil.
func New(dom *domain.Domain, gen generator.Generator, ver Verifier, rec Recorder, opts Options) *Controller {
	if opts.MaxIterations <= 0 {
		opts.MaxIterations = 5
	}
	if opts.StepTimeout <= 0 {
		opts.StepTimeout = 120 * time.Second
	}
	if opts.Mode == "" {
		opts.Mode = feedback.ModeStructured
	}
	return &Controller{
		dom:   dom,
		gen:   gen,
		ver:   ver,
		synth: feedback.NewSynthesizer(opts.Mode),
		rec:   rec,
		opts:  opts,
	}
}

// Run executes the loop until a terminal state. The returned result always
// carries the full step history, including for aborted runs.
func (c *Controller) Run(ctx context.Context) Result {
	res := Result{
		ID:      uuid.New(),
		Domain:  c.dom.Name(),
		Status:  StatusRunning,
		Started: time.Now(),
	}
	logging.Loop("run %s started: domain=%s budget=%d mode=%s",
		res.ID, res.Domain, c.opts.MaxIterations, c.opts.Mode)

	prompt := feedback.InitialPrompt(c.dom)
	var history []generator.Turn
	consumed := 0
	prevWasFreeRetry := false

	for consumed < c.opts.MaxIterations {
		if err := ctx.Err(); err != nil {
			c.finish(&res, StatusAborted, err)
			return res
		}

		step, genErr := c.runStep(ctx, len(res.Steps), prompt, history)
		if genErr != nil {
			res.Err = genErr
			c.finish(&res, StatusAborted, genErr)
			return res
		}

		if step.Report.Valid() {
			res.Steps = append(res.Steps, step)
			c.recordStep(ctx, res.ID, step)
			c.finish(&res, StatusConverged, nil)
			return res
		}

		directives, synthErr := c.synth.Synthesize(step.Report)
		if synthErr != nil {
			// Unreachable for failed reports; treated as an abort rather
			// than a panic so batch runs survive it.
			res.Err = synthErr
			c.finish(&res, StatusAborted, synthErr)
			return res
		}
		step.Directives = directives

		oracleFault := step.Report.Status == verify.StatusVerifierError
		if oracleFault && !c.opts.OracleFaultConsumesBudget && !prevWasFreeRetry {
			step.FreeRetry = true
			prevWasFreeRetry = true
			logging.LoopWarn("run %s: oracle fault at step %d, free retry granted", res.ID, step.Index)
		} else {
			if oracleFault {
				logging.LoopWarn("run %s: oracle fault at step %d consumed budget", res.ID, step.Index)
			}
			prevWasFreeRetry = false
			consumed++
		}

		res.Steps = append(res.Steps, step)
		c.recordStep(ctx, res.ID, step)

		history = append(history, generator.Turn{Prompt: step.Prompt, Response: step.RawResponse})

		// A free retry leaves consumed at zero; the prompt still refers to
		// a first failed attempt.
		attempt := consumed
		if attempt < 1 {
			attempt = 1
		}
		prompt = feedback.FeedbackPrompt(c.dom, step.Candidate.SourceText, directives, attempt, c.opts.MaxIterations)
	}

	c.finish(&res, StatusExhausted, nil)
	return res
}

// runStep performs one generate-and-verify iteration. A generation
// transport failure is returned as an error; everything else, including
// unextractable output, becomes a verified step.
func (c *Controller) runStep(ctx context.Context, index int, prompt string, history []generator.Turn) (Step, error) {
	stepCtx, cancel := context.WithTimeout(ctx, c.opts.StepTimeout)
	defer cancel()

	raw, err := c.gen.Generate(stepCtx, history, prompt)
	if err != nil {
		logging.LoopWarn("step %d: generation failed: %v", index, err)
		return Step{}, err
	}

	source := formulation.ExtractProgram(raw)
	cand := formulation.New(source, index)
	report := c.ver.Verify(stepCtx, cand)

	logging.Loop("step %d: %s (%d violations, %d predicates)",
		index, report.Status, len(report.Violations), len(cand.DeclaredPredicates))

	return Step{
		Index:       index,
		Prompt:      prompt,
		RawResponse: raw,
		Candidate:   cand,
		Report:      report,
	}, nil
}

func (c *Controller) finish(res *Result, status Status, err error) {
	res.Status = status
	res.Err = err
	res.Finished = time.Now()
	logging.Loop("run %s finished: %s after %d step(s) (%d consumed)",
		res.ID, status, len(res.Steps), res.ConsumedIterations())

	if c.rec != nil {
		// Persist with a fresh context so a cancelled run is still recorded.
		recCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if recErr := c.rec.RecordRun(recCtx, *res); recErr != nil {
			logging.StoreError("record run %s: %v", res.ID, recErr)
		}
	}
}

func (c *Controller) recordStep(ctx context.Context, runID uuid.UUID, step Step) {
	if c.rec == nil {
		return
	}
	if err := c.rec.RecordStep(ctx, runID, c.dom.Name(), step); err != nil {
		logging.StoreError("record step %d of run %s: %v", step.Index, runID, err)
	}
}
