package workflow

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/demml/potatohead-sub001/agent"
	"github.com/demml/potatohead-sub001/prompt"
	"github.com/demml/potatohead-sub001/response"
	"github.com/google/uuid"
	"github.com/samber/lo"
)

// EventDetails is what is known about one task execution.
type EventDetails struct {
	Prompt    *prompt.Prompt         `json:"prompt,omitempty"`
	Response  *response.ChatResponse `json:"response,omitempty"`
	Duration  time.Duration          `json:"duration,omitempty"`
	StartTime *time.Time             `json:"start_time,omitempty"`
	EndTime   *time.Time             `json:"end_time,omitempty"`
	Error     string                 `json:"error,omitempty"`
}

// TaskEvent records one execution attempt of a task. It is appended as
// Running and updated in place when the attempt ends.
type TaskEvent struct {
	ID         string           `json:"id"`
	WorkflowID string           `json:"workflow_id"`
	TaskID     string           `json:"task_id"`
	Status     agent.TaskStatus `json:"status"`
	CreatedAt  time.Time        `json:"created_at"`
	UpdatedAt  time.Time        `json:"updated_at"`
	Details    EventDetails     `json:"details"`
}

// EventSink receives finished task events.
type EventSink interface {
	Record(ctx context.Context, event TaskEvent) error
}

// EventTracker is an append-then-update log of task events. Timestamps
// are UTC.
type EventTracker struct {
	workflowID string

	mu     sync.RWMutex
	events []TaskEvent
	starts map[string]time.Time
	now    func() time.Time
}

func NewEventTracker(workflowID string) *EventTracker {
	return &EventTracker{
		workflowID: workflowID,
		starts:     make(map[string]time.Time),
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// WorkflowID returns the id stamped on every event.
func (t *EventTracker) WorkflowID() string {
	return t.workflowID
}

// RecordTaskStarted appends a Running event for taskID.
func (t *EventTracker) RecordTaskStarted(taskID string) TaskEvent {
	now := t.now()
	start := now
	ev := TaskEvent{
		ID:         newEventID(),
		WorkflowID: t.workflowID,
		TaskID:     taskID,
		Status:     agent.TaskStatusRunning,
		CreatedAt:  now,
		UpdatedAt:  now,
		Details:    EventDetails{StartTime: &start},
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	t.starts[taskID] = now
	t.events = append(t.events, ev)
	return ev
}

// RecordTaskCompleted marks the last event of taskID Completed.
func (t *EventTracker) RecordTaskCompleted(taskID string, p *prompt.Prompt, resp *agent.AgentResponse) (TaskEvent, bool) {
	return t.finish(taskID, agent.TaskStatusCompleted, func(d *EventDetails) {
		d.Prompt = p
		if resp != nil {
			r := resp.Response
			d.Response = &r
		}
	})
}

// RecordTaskFailed marks the last event of taskID Failed with errMsg.
func (t *EventTracker) RecordTaskFailed(taskID, errMsg string, p *prompt.Prompt) (TaskEvent, bool) {
	return t.finish(taskID, agent.TaskStatusFailed, func(d *EventDetails) {
		d.Prompt = p
		d.Error = errMsg
	})
}

func (t *EventTracker) finish(taskID string, status agent.TaskStatus, fill func(*EventDetails)) (TaskEvent, bool) {
	now := t.now()

	t.mu.Lock()
	defer t.mu.Unlock()
	_, i, ok := lo.FindLastIndexOf(t.events, func(ev TaskEvent) bool { return ev.TaskID == taskID })
	if !ok {
		return TaskEvent{}, false
	}
	ev := &t.events[i]
	ev.Status = status
	ev.UpdatedAt = now
	end := now
	ev.Details.EndTime = &end
	if start, ok := t.starts[taskID]; ok {
		ev.Details.Duration = now.Sub(start)
		delete(t.starts, taskID)
	}
	fill(&ev.Details)
	return *ev, true
}

// Events returns a copy of all events in insertion order.
func (t *EventTracker) Events() []TaskEvent {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return slices.Clone(t.events)
}

// TaskEvents returns the events of taskID in insertion order.
func (t *EventTracker) TaskEvents(taskID string) []TaskEvent {
	t.mu.RLock()
	defer t.mu.RUnlock()
	var out []TaskEvent
	for _, ev := range t.events {
		if ev.TaskID == taskID {
			out = append(out, ev)
		}
	}
	return out
}

func (t *EventTracker) IsEmpty() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.events) == 0
}

// Reset drops all events and start times.
func (t *EventTracker) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.events = nil
	t.starts = make(map[string]time.Time)
}

func newEventID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}
