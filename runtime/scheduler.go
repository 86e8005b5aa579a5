// Package runtime runs workflows repeatedly on a schedule.
package runtime

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/demml/potatohead-sub001/workflow"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// Runner is anything that can run once per tick. *workflow.Workflow
// satisfies it.
type Runner interface {
	Run(ctx context.Context, global map[string]any) (*workflow.Result, error)
}

// ResultHandler observes the outcome of every scheduled run.
type ResultHandler func(result *workflow.Result, err error)

var parser = cron.NewParser(cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

// ParseSchedule accepts 5 or 6 field cron expressions, descriptors such
// as "@hourly" or "@every 5m", and bare Go durations like "15m".
func ParseSchedule(spec string) (cron.Schedule, error) {
	if spec == "" {
		return nil, fmt.Errorf("schedule string is empty")
	}
	sched, err := parser.Parse(spec)
	if err == nil {
		return sched, nil
	}
	d, derr := time.ParseDuration(spec)
	if derr != nil {
		return nil, fmt.Errorf("failed to parse schedule %q as cron expression or duration: %w", spec, err)
	}
	if d <= 0 {
		return nil, fmt.Errorf("schedule duration must be positive, got %s", d)
	}
	return cron.Every(d), nil
}

// Scheduler runs a workflow every time its schedule fires, until the
// context passed to Start ends. Ticks that arrive while a run is still in
// flight are skipped.
type Scheduler struct {
	runner    Runner
	schedule  cron.Schedule
	global    map[string]any
	onResult  ResultHandler
	immediate bool
	runs      atomic.Int64
	logger    zerolog.Logger
}

type Option func(*Scheduler)

// WithGlobalContext sets the global context passed to every run.
func WithGlobalContext(global map[string]any) Option {
	return func(s *Scheduler) { s.global = global }
}

// WithResultHandler registers a callback invoked after each run.
func WithResultHandler(h ResultHandler) Option {
	return func(s *Scheduler) { s.onResult = h }
}

// WithRunImmediately makes Start run once before waiting for the first tick.
func WithRunImmediately() Option {
	return func(s *Scheduler) { s.immediate = true }
}

// NewScheduler creates a scheduler for runner on the given schedule spec.
func NewScheduler(runner Runner, spec string, logger zerolog.Logger, opts ...Option) (*Scheduler, error) {
	if runner == nil {
		return nil, fmt.Errorf("runner cannot be nil")
	}
	sched, err := ParseSchedule(spec)
	if err != nil {
		return nil, err
	}
	s := &Scheduler{
		runner:   runner,
		schedule: sched,
		logger:   logger.With().Str("component", "scheduler").Str("schedule", spec).Logger(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Next reports when the schedule fires after t.
func (s *Scheduler) Next(t time.Time) time.Time {
	return s.schedule.Next(t)
}

// Runs returns the number of completed runs.
func (s *Scheduler) Runs() int64 {
	return s.runs.Load()
}

// Start blocks until ctx is done, running the workflow on every tick. It
// waits for an in-flight run to return before it exits.
func (s *Scheduler) Start(ctx context.Context) error {
	cl := cronLogger{s.logger}
	c := cron.New(
		cron.WithParser(parser),
		cron.WithLogger(cl),
		cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
	)
	c.Schedule(s.schedule, cron.FuncJob(func() { s.runOnce(ctx) }))

	s.logger.Info().Time("next", s.schedule.Next(time.Now())).Msg("Starting scheduler")
	if s.immediate {
		s.runOnce(ctx)
	}
	c.Start()

	<-ctx.Done()
	s.logger.Info().Msg("Scheduler stopped: context cancelled")
	<-c.Stop().Done()
	return nil
}

func (s *Scheduler) runOnce(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	result, err := s.runner.Run(ctx, s.global)
	n := s.runs.Add(1)

	ev := s.logger.Info()
	if err != nil {
		ev = s.logger.Error().Err(err)
	}
	if result != nil {
		ev = ev.Str("workflowID", result.WorkflowID).Dur("elapsed", result.Finished.Sub(result.Started))
	}
	ev.Int64("run", n).Msg("scheduled run finished")

	if s.onResult != nil {
		s.onResult(result, err)
	}
}

// cronLogger adapts zerolog to cron.Logger.
type cronLogger struct {
	logger zerolog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.logger.Debug().Fields(keysAndValues).Msg(msg)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.logger.Error().Err(err).Fields(keysAndValues).Msg(msg)
}
