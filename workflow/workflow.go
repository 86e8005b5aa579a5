// Package workflow runs agent tasks as a dependency graph.
package workflow

import (
	"context"
	"encoding/json"
	"fmt"
	"maps"
	"slices"
	"time"

	"github.com/demml/potatohead-sub001/agent"
	"github.com/demml/potatohead-sub001/llm"
	"github.com/demml/potatohead-sub001/telemetry"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/samber/lo"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/sync/errgroup"
)

// DefaultParallelism bounds how many ready tasks run at once.
const DefaultParallelism = 4

// Workflow is a named set of agents and the tasks they execute.
type Workflow struct {
	ID   string
	Name string

	agents      map[string]*agent.Agent
	tasks       *TaskList
	tracker     *EventTracker
	parallelism int
	sinks       []EventSink
	logger      zerolog.Logger
}

// Option configures a Workflow.
type Option func(*Workflow)

// WithParallelism sets how many ready tasks may run at once. 1 runs
// tasks one by one.
func WithParallelism(n int) Option {
	return func(w *Workflow) {
		if n > 0 {
			w.parallelism = n
		}
	}
}

// WithEventSink forwards every finished task event to sinks.
func WithEventSink(sinks ...EventSink) Option {
	return func(w *Workflow) { w.sinks = append(w.sinks, sinks...) }
}

// WithLogger sets the logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(w *Workflow) { w.logger = logger }
}

// New returns an empty workflow.
func New(name string, opts ...Option) *Workflow {
	id := newRunID()
	w := &Workflow{
		ID:          id,
		Name:        name,
		agents:      make(map[string]*agent.Agent),
		tasks:       NewTaskList(),
		tracker:     NewEventTracker(id),
		parallelism: DefaultParallelism,
		logger:      zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(w)
	}
	w.logger = w.logger.With().Str("component", "workflow").Str("workflow", name).Logger()
	return w
}

// AddAgent registers a, replacing any agent with the same id.
func (w *Workflow) AddAgent(a *agent.Agent) {
	w.agents[a.ID] = a
}

// Agent returns the agent with id.
func (w *Workflow) Agent(id string) (*agent.Agent, bool) {
	a, ok := w.agents[id]
	return a, ok
}

// Agents returns the registered agents keyed by id.
func (w *Workflow) Agents() map[string]*agent.Agent {
	return maps.Clone(w.agents)
}

// AddTask adds task to the task list.
func (w *Workflow) AddTask(task *agent.Task) error {
	return w.tasks.AddTask(task)
}

// AddTasks adds tasks in order, stopping at the first error.
func (w *Workflow) AddTasks(tasks ...*agent.Task) error {
	for _, t := range tasks {
		if err := w.AddTask(t); err != nil {
			return err
		}
	}
	return nil
}

// Tasks returns the workflow's task list.
func (w *Workflow) Tasks() *TaskList {
	return w.tasks
}

// Events returns the events of the workflow's own tracker.
func (w *Workflow) Events() []TaskEvent {
	return w.tracker.Events()
}

func (w *Workflow) IsComplete() bool { return w.tasks.IsComplete() }

func (w *Workflow) PendingCount() int { return w.tasks.PendingCount() }

// ExecutionPlan returns the tasks grouped into steps that may run in
// parallel.
func (w *Workflow) ExecutionPlan() [][]string {
	return w.tasks.ExecutionPlan()
}

// Result is the outcome of one run.
type Result struct {
	WorkflowID string      `json:"workflow_id"`
	Name       string      `json:"name"`
	Tasks      *TaskList   `json:"tasks"`
	Events     []TaskEvent `json:"events"`
	Started    time.Time   `json:"started"`
	Finished   time.Time   `json:"finished"`
}

// TaskResult returns the stored response of taskID, or nil.
func (r *Result) TaskResult(taskID string) *agent.AgentResponse {
	t, ok := r.Tasks.Get(taskID)
	if !ok {
		return nil
	}
	return t.Result()
}

// Run executes a fresh copy of the workflow and returns its result. The
// workflow itself is left untouched, so Run may be called repeatedly.
// global binds ${name} variables not bound by dependency output. The
// result is returned even when the run fails.
func (w *Workflow) Run(ctx context.Context, global map[string]any) (*Result, error) {
	run := &Workflow{
		ID:          newRunID(),
		Name:        w.Name,
		agents:      w.agents,
		tasks:       w.tasks.Clone(),
		parallelism: w.parallelism,
		sinks:       w.sinks,
	}
	run.tracker = NewEventTracker(run.ID)
	run.logger = w.logger.With().Str("run_id", run.ID).Logger()

	ctx, span := telemetry.Tracer().Start(ctx, "workflow.run")
	defer span.End()
	span.SetAttributes(
		attribute.String("workflow.name", w.Name),
		attribute.String("workflow.run_id", run.ID),
		attribute.Int("workflow.tasks", run.tasks.Len()),
	)

	result := &Result{WorkflowID: run.ID, Name: run.Name, Tasks: run.tasks, Started: time.Now().UTC()}
	run.logger.Info().Int("tasks", run.tasks.Len()).Int("parallelism", run.parallelism).Msg("Starting workflow run")

	err := run.execute(ctx, global)
	result.Events = run.tracker.Events()
	result.Finished = time.Now().UTC()
	telemetry.RecordWorkflowRun(err)

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		run.logger.Error().Err(err).Msg("Workflow run failed")
		return result, err
	}
	run.logger.Info().Dur("duration", result.Finished.Sub(result.Started)).Msg("Workflow run completed")
	return result, nil
}

func (w *Workflow) execute(ctx context.Context, global map[string]any) error {
	for !w.tasks.IsComplete() {
		if err := ctx.Err(); err != nil {
			return err
		}

		ready := w.tasks.GetReadyTasks()
		if len(ready) == 0 {
			if n := w.tasks.PendingCount(); n > 0 {
				return fmt.Errorf("%w: %d pending", ErrNoTaskFound, n)
			}
			// nothing pending and nothing ready means every task is terminal
			break
		}
		w.logger.Debug().Strs("tasks", lo.Map(ready, func(t *agent.Task, _ int) string { return t.ID })).Msg("Dispatching ready tasks")

		for _, t := range ready {
			if _, ok := w.agents[t.AgentID]; !ok {
				return fmt.Errorf("%w: %s (task %s)", ErrAgentNotFound, t.AgentID, t.ID)
			}
		}

		g := errgroup.Group{}
		g.SetLimit(w.parallelism)
		for _, t := range ready {
			g.Go(func() error {
				w.dispatch(ctx, t, global)
				return nil
			})
		}
		_ = g.Wait()

		if err := ctx.Err(); err != nil {
			return err
		}
		if err := w.waitForRateLimits(ctx, ready); err != nil {
			return err
		}
		if err := w.tasks.ResetFailedTasks(); err != nil {
			return err
		}
	}
	return nil
}

// dispatch runs one task and records its lifecycle. Failures are recorded
// on the task and its event, never returned.
func (w *Workflow) dispatch(ctx context.Context, task *agent.Task, global map[string]any) {
	a := w.agents[task.AgentID]
	logger := w.logger.With().Str("task_id", task.ID).Str("agent_id", a.ID).Logger()

	ctx, span := telemetry.Tracer().Start(ctx, "workflow.task")
	defer span.End()
	span.SetAttributes(
		attribute.String("task.id", task.ID),
		attribute.String("agent.id", a.ID),
		attribute.Int("task.retry_count", task.RetryCount()),
	)

	w.tracker.RecordTaskStarted(task.ID)
	telemetry.IncTasksRunning()
	defer telemetry.DecTasksRunning()
	start := time.Now()

	tc := agent.TaskContext{Global: global}
	for _, dep := range task.Dependencies {
		if d, ok := w.tasks.Get(dep); ok && d.Result() != nil {
			tc.Dependencies = append(tc.Dependencies, d.Result())
		}
	}

	logger.Info().Int("attempt", task.RetryCount()+1).Msg("Task started")
	resp, err := a.ExecuteTaskWithContext(ctx, task, tc)

	var (
		ev TaskEvent
		ok bool
	)
	if err != nil {
		task.SetStatus(agent.TaskStatusFailed)
		ev, ok = w.tracker.RecordTaskFailed(task.ID, err.Error(), task.Prompt)
		telemetry.RecordTaskFinished(string(agent.TaskStatusFailed), time.Since(start))
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		logger.Error().Err(err).Msg("Task failed")
	} else {
		ev, ok = w.tracker.RecordTaskCompleted(task.ID, task.Prompt, resp)
		telemetry.RecordTaskFinished(string(agent.TaskStatusCompleted), time.Since(start))
		logger.Info().Dur("duration", time.Since(start)).Msg("Task completed")
	}
	if ok {
		w.emit(ctx, ev)
	}
}

func (w *Workflow) emit(ctx context.Context, ev TaskEvent) {
	// sinks still get the failure events of a cancelled run
	ctx = context.WithoutCancel(ctx)
	for _, sink := range w.sinks {
		if err := sink.Record(ctx, ev); err != nil {
			w.logger.Warn().Err(err).Str("event_id", ev.ID).Msg("Failed to record task event")
		}
	}
}

// waitForRateLimits sleeps for the longest delay any failed task's agent
// asked for after a rate limit.
func (w *Workflow) waitForRateLimits(ctx context.Context, tasks []*agent.Task) error {
	var delay time.Duration
	for _, t := range tasks {
		if t.Status() != agent.TaskStatusFailed {
			continue
		}
		delay = max(delay, w.agents[t.AgentID].RateLimits().Delay(t.ID))
	}
	if delay == 0 {
		return nil
	}
	w.logger.Info().Dur("delay", delay).Msg("Waiting before retrying rate limited tasks")
	return agent.WaitForRetry(ctx, delay)
}

type workflowJSON struct {
	ID     string                      `json:"id"`
	Name   string                      `json:"name"`
	Tasks  *TaskList                   `json:"task_list"`
	Agents map[string]agent.Descriptor `json:"agents"`
}

func (w *Workflow) MarshalJSON() ([]byte, error) {
	return json.Marshal(workflowJSON{
		ID:    w.ID,
		Name:  w.Name,
		Tasks: w.tasks,
		Agents: lo.MapValues(w.agents, func(a *agent.Agent, _ string) agent.Descriptor {
			return agent.Descriptor{ID: a.ID, Provider: a.Provider, SystemInstructions: a.SystemInstructions}
		}),
	})
}

// FromJSON decodes a workflow written by MarshalJSON. Agents are rebuilt
// from their provider with agentOpts.
func FromJSON(ctx context.Context, data []byte, agentOpts []agent.Option, opts ...Option) (*Workflow, error) {
	var raw workflowJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to decode workflow: %w", err)
	}

	w := New(raw.Name, opts...)
	if raw.ID != "" {
		w.ID = raw.ID
		w.tracker = NewEventTracker(raw.ID)
	}
	if raw.Tasks != nil {
		w.tasks = raw.Tasks
	}

	ids := lo.Keys(raw.Agents)
	slices.Sort(ids)
	for _, id := range ids {
		d := raw.Agents[id]
		a, err := d.Build(ctx, agentOpts...)
		if err != nil {
			return nil, fmt.Errorf("failed to rebuild agent %s: %w", id, err)
		}
		w.AddAgent(a)
	}
	return w, nil
}

func newRunID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}

// IsWorkflowError reports whether err is one of the workflow sentinels.
func IsWorkflowError(err error) bool {
	return llm.IsWorkflowError(err)
}
