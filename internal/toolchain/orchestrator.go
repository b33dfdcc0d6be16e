// Package toolchain runs external tools one after another, decides from each
// exit status whether to continue, and removes intermediate artifacts after
// every step.
package toolchain

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/tlaplus/tlabridge/internal/process"
	"github.com/tlaplus/tlabridge/internal/session"
)

// NoError is the exit status of a successful tool run.
const NoError = 0

// ErrEmptyPipeline is returned by RunPipeline when it is given no steps.
var ErrEmptyPipeline = errors.New("pipeline has no steps")

// Step is one tool invocation within a pipeline.
type Step struct {
	Name string
	Spec process.Spec

	// Sink is the tool kind whose output sink receives the step's output.
	Sink string

	// Succeeded decides from the exit status whether the pipeline may
	// continue. Nil means the status must be NoError.
	Succeeded func(status int) bool

	// Cleanup lists artifacts removed once the process has terminated,
	// whatever its outcome.
	Cleanup []string
}

func (s Step) succeeded(status int) bool {
	if s.Succeeded == nil {
		return status == NoError
	}
	return s.Succeeded(status)
}

// StepResult is the record of one step that ran.
type StepResult struct {
	Name      string
	Record    process.Record
	Succeeded bool
}

// Outcome is the result of a pipeline run.
type Outcome struct {
	Success bool

	// FailedStep is the index of the step that failed, or -1.
	FailedStep int

	// ExitStatus is the exit status of the last step that ran.
	ExitStatus int

	Steps []StepResult
}

// Failed returns the failed step's result, if any.
func (o Outcome) Failed() (StepResult, bool) {
	if o.Success || o.FailedStep < 0 || o.FailedStep >= len(o.Steps) {
		return StepResult{}, false
	}
	return o.Steps[o.FailedStep], true
}

// Options configures an Orchestrator.
type Options struct {
	Spawner process.Spawner
	Sinks   *Sinks
	Remover Remover
	Events  session.Logger
	Logger  *slog.Logger
}

// Orchestrator runs tool steps and pipelines. It holds no per-run state, so
// independent pipelines may run concurrently; callers that need ordering
// between runs serialize them.
type Orchestrator struct {
	spawner process.Spawner
	sinks   *Sinks
	remover Remover
	events  session.Logger
	logger  *slog.Logger
}

// New creates an Orchestrator. Unset options get working defaults.
func New(opts Options) *Orchestrator {
	if opts.Spawner == nil {
		opts.Spawner = &process.ExecSpawner{Logger: opts.Logger}
	}
	if opts.Sinks == nil {
		opts.Sinks = NewSinks(nil)
	}
	if opts.Remover == nil {
		opts.Remover = FileRemover{}
	}
	if opts.Events == nil {
		opts.Events = session.NopLogger{}
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Orchestrator{
		spawner: opts.Spawner,
		sinks:   opts.Sinks,
		remover: opts.Remover,
		events:  opts.Events,
		logger:  opts.Logger,
	}
}

// Sinks returns the orchestrator's sink registry.
func (o *Orchestrator) Sinks() *Sinks {
	return o.sinks
}

// RunStep runs spec with its output forwarded to the sink of sinkKind and
// returns the exit status once the process has terminated. It never fails:
// a process that cannot be started yields process.StatusStartFailed.
func (o *Orchestrator) RunStep(ctx context.Context, spec process.Spec, sinkKind string) int {
	return o.run(ctx, spec, sinkKind).Wait()
}

func (o *Orchestrator) run(ctx context.Context, spec process.Spec, sinkKind string) process.Process {
	o.logger.Debug("running tool", "command", spec.CommandLine(), "dir", spec.Dir)
	return o.spawner.Spawn(ctx, spec, o.sinks.Get(sinkKind))
}

// RunPipeline runs steps in order. Each step's cleanup runs exactly once
// after its process terminated and before the next step starts. The first
// step whose predicate rejects its exit status stops the pipeline and has
// its sink revealed. A failing step is reported in the Outcome; the error
// is reserved for misuse and cancellation.
func (o *Orchestrator) RunPipeline(ctx context.Context, steps []Step) (Outcome, error) {
	if len(steps) == 0 {
		return Outcome{FailedStep: -1}, ErrEmptyPipeline
	}

	start := time.Now()
	names := make([]string, len(steps))
	for i, s := range steps {
		names[i] = s.Name
	}
	o.logEvent(session.EventPipelineStart, session.PipelineStartData(names))

	outcome := Outcome{Success: true, FailedStep: -1, Steps: make([]StepResult, 0, len(steps))}
	for i, step := range steps {
		if err := ctx.Err(); err != nil {
			outcome.Success = false
			outcome.FailedStep = i
			outcome.ExitStatus = process.StatusSignaled
			o.logEvent(session.EventError, session.ErrorData("pipeline cancelled", map[string]any{"step": step.Name}))
			o.finish(outcome, start)
			return outcome, fmt.Errorf("running step %q: %w", step.Name, err)
		}

		result := o.runPipelineStep(ctx, step, i, len(steps))
		outcome.Steps = append(outcome.Steps, result)
		if result.Record.ExitStatus != nil {
			outcome.ExitStatus = *result.Record.ExitStatus
		}
		if !result.Succeeded {
			outcome.Success = false
			outcome.FailedStep = i
			o.sinks.Get(step.Sink).Reveal()
			o.logger.Debug("step failed", "step", step.Name, "exit_status", outcome.ExitStatus)
			break
		}
	}

	o.finish(outcome, start)
	return outcome, nil
}

func (o *Orchestrator) runPipelineStep(ctx context.Context, step Step, index, total int) StepResult {
	started := time.Now()
	p := o.run(ctx, step.Spec, step.Sink)
	o.logEvent(session.EventStepStart, session.StepStartData(step.Name, index+1, total, p.CommandLine()))

	status := p.Wait()
	ok := step.succeeded(status)
	o.cleanup(ctx, step)

	o.logEvent(session.EventStepComplete,
		session.StepCompleteData(step.Name, status, ok, time.Since(started).Milliseconds()))

	rec := p.Record()
	if rec.ExitStatus == nil {
		rec.ExitStatus = &status
	}
	return StepResult{Name: step.Name, Record: rec, Succeeded: ok}
}

// cleanup removes the step's artifacts. Failures are logged and otherwise
// ignored so they never change the outcome of the step.
func (o *Orchestrator) cleanup(ctx context.Context, step Step) {
	if len(step.Cleanup) == 0 {
		return
	}
	// Cleanup still runs when the pipeline is being cancelled.
	ctx = context.WithoutCancel(ctx)
	for _, path := range step.Cleanup {
		if err := o.remover.RemoveIfExists(ctx, path); err != nil {
			o.logger.Debug("failed to remove artifact", "step", step.Name, "path", path, "error", err)
		}
	}
	o.logEvent(session.EventCleanup, session.CleanupData(step.Name, step.Cleanup))
}

func (o *Orchestrator) finish(outcome Outcome, start time.Time) {
	o.logEvent(session.EventPipelineComplete, session.PipelineCompleteData(
		outcome.Success, outcome.FailedStep, outcome.ExitStatus, time.Since(start).Milliseconds()))
}

func (o *Orchestrator) logEvent(t session.EventType, data map[string]any) {
	if err := o.events.Log(session.NewEvent(t, data)); err != nil {
		o.logger.Debug("failed to write session event", "type", t, "error", err)
	}
}
