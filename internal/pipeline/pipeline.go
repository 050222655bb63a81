package pipeline

import (
	"context"
	"log/slog"
	"time"

	"github.com/nao1215/webindex/internal/crawler"
	"github.com/nao1215/webindex/internal/index"
	"github.com/nao1215/webindex/internal/model"
	"github.com/nao1215/webindex/internal/store"
)

// State carries the artifacts that flow between steps.
type State struct {
	// Seeds are the crawl entry points.
	Seeds []string

	// Store is where artifacts are read from and written to.
	Store *store.Store

	// RunID is the crawl log id of the crawl, zero when not logged.
	RunID int64

	// Crawl is the full crawl result including outcomes.
	Crawl *crawler.Result

	// Documents are the crawled, or loaded, documents.
	Documents []model.Document

	// Index and DocumentMap are set once the index is built or loaded.
	Index       index.InvertedIndex
	DocumentMap index.DocumentMap

	// PerformedSteps lists the names of steps that ran, in order.
	PerformedSteps []string

	// Elapsed is the wall time of each performed step.
	Elapsed map[string]time.Duration

	// Err is the last step error.
	Err error
}

// NewState returns a State for seeds backed by st.
func NewState(st *store.Store, seeds ...string) *State {
	return &State{
		Seeds:   seeds,
		Store:   st,
		Elapsed: make(map[string]time.Duration),
	}
}

// Step is one stage of a job.
type Step interface {
	// Do executes the step. A returned error stops the pipeline unless it
	// was built WithContinueOnError.
	Do(ctx context.Context, state *State) error

	// Name returns the step's name for logging purposes.
	Name() string
}

// Pipeline executes steps in the order they were added.
type Pipeline struct {
	steps           []Step
	logger          *slog.Logger
	continueOnError bool
}

// Option is a function that configures a Pipeline.
type Option func(*Pipeline)

// WithLogger sets a custom logger for the pipeline.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) {
		p.logger = logger
	}
}

// WithContinueOnError keeps executing steps after one fails.
// The default is to stop, because every stage consumes the output of the
// one before it.
func WithContinueOnError(continueOnError bool) Option {
	return func(p *Pipeline) {
		p.continueOnError = continueOnError
	}
}

// New creates a new Pipeline with the given options.
func New(opts ...Option) *Pipeline {
	p := &Pipeline{
		steps: make([]Step, 0),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.logger == nil {
		p.logger = slog.Default()
	}
	return p
}

// AddStep appends a step to the pipeline.
func (p *Pipeline) AddStep(step Step) {
	p.steps = append(p.steps, step)
}

// AddSteps appends multiple steps to the pipeline.
func (p *Pipeline) AddSteps(steps ...Step) {
	p.steps = append(p.steps, steps...)
}

// Execute runs all steps in sequence.
// Cancellation is checked between steps; steps handle it themselves
// while they run.
func (p *Pipeline) Execute(ctx context.Context, state *State) error {
	if state.Elapsed == nil {
		state.Elapsed = make(map[string]time.Duration)
	}

	var firstErr error
	for _, step := range p.steps {
		if err := ctx.Err(); err != nil {
			p.logger.Warn("pipeline cancelled", "step", step.Name(), "reason", err)
			state.Err = err
			return err
		}

		p.logger.Debug("executing step", "step", step.Name())
		start := time.Now()
		err := step.Do(ctx, state)
		state.Elapsed[step.Name()] = time.Since(start)
		state.PerformedSteps = append(state.PerformedSteps, step.Name())

		if err != nil {
			p.logger.Error("step failed", "step", step.Name(), "error", err)
			state.Err = err
			if !p.continueOnError {
				return err
			}
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		p.logger.Debug("step completed", "step", step.Name(), "elapsed", state.Elapsed[step.Name()])
	}
	return firstErr
}

// StepCount returns the number of steps in the pipeline.
func (p *Pipeline) StepCount() int {
	return len(p.steps)
}

// StepNames returns the names of all steps in execution order.
func (p *Pipeline) StepNames() []string {
	names := make([]string, len(p.steps))
	for i, step := range p.steps {
		names[i] = step.Name()
	}
	return names
}
