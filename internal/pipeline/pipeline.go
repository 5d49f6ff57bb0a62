package pipeline

import (
	"context"
	"log/slog"

	"github.com/nao1215/ancestry/internal/model"
)

// Step defines the interface that all pipeline steps must implement.
// Steps are executed in sequence, each receiving the report filled by the
// previous ones.
//
// Design decision: We use an interface rather than function types so that
// steps can carry their own configuration and expose a Name for logging.
type Step interface {
	// Do executes the pipeline step.
	// Non-fatal problems should be recorded in the report and return nil.
	Do(ctx context.Context, report *model.CrawlReport) error

	// Name returns the step's name for logging purposes.
	Name() string
}

// Pipeline orchestrates the execution of multiple steps.
type Pipeline struct {
	// steps contains the ordered list of steps to execute.
	steps []Step

	// logger is used for structured logging during execution.
	logger *slog.Logger

	// continueOnError determines whether to continue executing steps
	// after one fails. If false, the pipeline stops on first error.
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

// WithContinueOnError configures the pipeline to continue execution
// even when a step fails. The first error is still recorded in the report.
//
// Design decision: The default is to stop, because a failed store makes
// every later step meaningless. The export command continues so that a
// summary is written even when the export file cannot be.
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
// Steps are executed in the order they are added.
func (p *Pipeline) AddStep(step Step) {
	p.steps = append(p.steps, step)
}

// AddSteps appends multiple steps to the pipeline.
func (p *Pipeline) AddSteps(steps ...Step) {
	p.steps = append(p.steps, steps...)
}

// Execute runs all pipeline steps in sequence.
//
// Design decision: Cancellation is checked between steps; the steps
// themselves pass ctx down to every blocking call.
//
// Returns the first error encountered if continueOnError is false.
// The report is stamped as finished in every case.
func (p *Pipeline) Execute(ctx context.Context, report *model.CrawlReport) error {
	defer report.Finish()

	var firstErr error
	for _, step := range p.steps {
		select {
		case <-ctx.Done():
			p.logger.Warn("pipeline cancelled",
				"step", step.Name(),
				"reason", ctx.Err(),
			)
			if report.Error == "" {
				report.Error = ctx.Err().Error()
			}
			return ctx.Err()
		default:
		}

		p.logger.Info("executing step", "step", step.Name())

		if err := step.Do(ctx, report); err != nil {
			p.logger.Error("step failed",
				"step", step.Name(),
				"error", err,
			)

			if firstErr == nil {
				firstErr = err
				report.Error = err.Error()
			}

			if !p.continueOnError {
				return err
			}
			continue
		}

		p.logger.Debug("step completed", "step", step.Name())
		report.AddStep(step.Name())
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
