package workflow

import (
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/demml/potatohead-sub001/agent"
	"github.com/samber/lo"
)

// TaskList holds a workflow's tasks and a dependency-respecting execution
// order. The map is guarded by the list lock; each task guards its own
// status.
type TaskList struct {
	mu    sync.RWMutex
	tasks map[string]*agent.Task
	order []string
}

func NewTaskList() *TaskList {
	return &TaskList{tasks: make(map[string]*agent.Task)}
}

// AddTask inserts task after checking that its id is new, its
// dependencies exist and it does not depend on itself.
func (l *TaskList) AddTask(task *agent.Task) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, ok := l.tasks[task.ID]; ok {
		return fmt.Errorf("%w: %s", ErrTaskAlreadyExists, task.ID)
	}
	for _, dep := range task.Dependencies {
		if dep == task.ID {
			return fmt.Errorf("%w: %s", ErrTaskDependsOnItself, task.ID)
		}
		if _, ok := l.tasks[dep]; !ok {
			return fmt.Errorf("%w: %s (required by %s)", ErrDependencyNotFound, dep, task.ID)
		}
	}

	l.tasks[task.ID] = task
	l.rebuildOrder()
	return nil
}

// AddDependency makes taskID depend on depID. Both must exist. Cycles are
// accepted here and surface when the workflow runs.
func (l *TaskList) AddDependency(taskID, depID string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	task, ok := l.tasks[taskID]
	if !ok {
		return fmt.Errorf("%w: %s", ErrTaskNotFound, taskID)
	}
	if taskID == depID {
		return fmt.Errorf("%w: %s", ErrTaskDependsOnItself, taskID)
	}
	if _, ok := l.tasks[depID]; !ok {
		return fmt.Errorf("%w: %s (required by %s)", ErrDependencyNotFound, depID, taskID)
	}
	if !slices.Contains(task.Dependencies, depID) {
		task.Dependencies = append(task.Dependencies, depID)
	}
	l.rebuildOrder()
	return nil
}

// Get returns the task with id.
func (l *TaskList) Get(id string) (*agent.Task, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	t, ok := l.tasks[id]
	return t, ok
}

// Len returns the number of tasks.
func (l *TaskList) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.tasks)
}

// IDs returns the task ids in sorted order.
func (l *TaskList) IDs() []string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	ids := lo.Keys(l.tasks)
	slices.Sort(ids)
	return ids
}

// ExecutionOrder returns a topological order of the tasks. Tasks on a
// cycle appear but are never ready.
func (l *TaskList) ExecutionOrder() []string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return slices.Clone(l.order)
}

// rebuildOrder runs a three-color depth-first sort over the sorted ids.
// Reaching a node still on the stack skips that edge.
func (l *TaskList) rebuildOrder() {
	const (
		unvisited = iota
		visiting
		visited
	)
	color := make(map[string]int, len(l.tasks))
	order := make([]string, 0, len(l.tasks))

	var visit func(id string)
	visit = func(id string) {
		if color[id] != unvisited {
			return
		}
		color[id] = visiting
		if t, ok := l.tasks[id]; ok {
			for _, dep := range t.Dependencies {
				visit(dep)
			}
		}
		color[id] = visited
		order = append(order, id)
	}

	ids := lo.Keys(l.tasks)
	slices.Sort(ids)
	for _, id := range ids {
		visit(id)
	}
	l.order = order
}

// GetReadyTasks returns the Pending tasks whose dependencies are all
// Completed, in execution order.
func (l *TaskList) GetReadyTasks() []*agent.Task {
	l.mu.RLock()
	defer l.mu.RUnlock()

	var ready []*agent.Task
	for _, id := range l.order {
		t := l.tasks[id]
		if t.Status() != agent.TaskStatusPending {
			continue
		}
		if lo.EveryBy(t.Dependencies, func(dep string) bool {
			d, ok := l.tasks[dep]
			return ok && d.Status() == agent.TaskStatusCompleted
		}) {
			ready = append(ready, t)
		}
	}
	return ready
}

// UpdateTaskStatus sets the status of id and, when non-nil, its result.
func (l *TaskList) UpdateTaskStatus(id string, status agent.TaskStatus, result *agent.AgentResponse) error {
	t, ok := l.Get(id)
	if !ok {
		return fmt.Errorf("%w: %s", ErrTaskNotFound, id)
	}
	t.Update(status, result)
	return nil
}

// ResetFailedTasks moves every Failed task with budget left back to
// Pending. Tasks without budget stay Failed and are reported with
// ErrMaxRetriesExceeded.
func (l *TaskList) ResetFailedTasks() error {
	l.mu.RLock()
	defer l.mu.RUnlock()

	var errs []error
	for _, id := range l.order {
		t := l.tasks[id]
		if t.Status() != agent.TaskStatusFailed {
			continue
		}
		if !t.Retry() {
			errs = append(errs, fmt.Errorf("%w: %s", ErrMaxRetriesExceeded, id))
		}
	}
	return errors.Join(errs...)
}

// IsComplete reports whether every task is Completed or Failed.
func (l *TaskList) IsComplete() bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return lo.EveryBy(lo.Values(l.tasks), func(t *agent.Task) bool { return t.Status().IsTerminal() })
}

// PendingCount returns the number of Pending tasks.
func (l *TaskList) PendingCount() int {
	return l.CountStatus(agent.TaskStatusPending)
}

// CountStatus returns the number of tasks in status s.
func (l *TaskList) CountStatus(s agent.TaskStatus) int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return lo.CountBy(lo.Values(l.tasks), func(t *agent.Task) bool { return t.Status() == s })
}

// ExecutionPlan groups tasks into steps. Every task in a step depends only
// on tasks of earlier steps, so a step's tasks may run in parallel. Tasks
// on a cycle are left out.
func (l *TaskList) ExecutionPlan() [][]string {
	l.mu.RLock()
	defer l.mu.RUnlock()

	remaining := lo.MapValues(l.tasks, func(t *agent.Task, _ string) []string { return t.Dependencies })
	done := make(map[string]bool, len(l.tasks))
	var plan [][]string
	for len(remaining) > 0 {
		var step []string
		for id, deps := range remaining {
			if lo.EveryBy(deps, func(d string) bool { return done[d] }) {
				step = append(step, id)
			}
		}
		if len(step) == 0 {
			break
		}
		slices.Sort(step)
		for _, id := range step {
			done[id] = true
			delete(remaining, id)
		}
		plan = append(plan, step)
	}
	return plan
}

// Clone returns a list of Pending copies of every task.
func (l *TaskList) Clone() *TaskList {
	l.mu.RLock()
	defer l.mu.RUnlock()
	cp := &TaskList{
		tasks: lo.MapValues(l.tasks, func(t *agent.Task, _ string) *agent.Task { return t.Clone() }),
		order: slices.Clone(l.order),
	}
	return cp
}

type taskListJSON struct {
	Tasks          map[string]*agent.Task `json:"tasks"`
	ExecutionOrder []string               `json:"execution_order"`
}

func (l *TaskList) MarshalJSON() ([]byte, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return json.Marshal(taskListJSON{Tasks: l.tasks, ExecutionOrder: l.order})
}

// UnmarshalJSON restores the tasks and recomputes the execution order.
func (l *TaskList) UnmarshalJSON(data []byte) error {
	var raw taskListJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.tasks = raw.Tasks
	if l.tasks == nil {
		l.tasks = make(map[string]*agent.Task)
	}
	l.rebuildOrder()
	return nil
}
