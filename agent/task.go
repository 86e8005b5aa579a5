package agent

import (
	"encoding/json"
	"sync"

	"github.com/demml/potatohead-sub001/prompt"
	"github.com/demml/potatohead-sub001/response"
	"github.com/samber/lo"
)

// DefaultMaxRetries is the retry budget of a task built without one.
const DefaultMaxRetries = 3

// TaskStatus is the lifecycle state of a task.
type TaskStatus string

const (
	TaskStatusPending   TaskStatus = "pending"
	TaskStatusRunning   TaskStatus = "running"
	TaskStatusCompleted TaskStatus = "completed"
	TaskStatusFailed    TaskStatus = "failed"
)

// IsTerminal reports whether no further transition happens without a retry.
func (s TaskStatus) IsTerminal() bool {
	return s == TaskStatusCompleted || s == TaskStatusFailed
}

// AgentResponse is the outcome of one executed prompt.
type AgentResponse struct {
	ID       string                `json:"id"`
	Response response.ChatResponse `json:"response"`
}

// NewAgentResponse wraps resp, taking the id from the provider response.
func NewAgentResponse(resp response.ChatResponse) *AgentResponse {
	return &AgentResponse{ID: resp.ID(), Response: resp}
}

// Content returns the response text.
func (r *AgentResponse) Content() string {
	return r.Response.Content()
}

// Task is one unit of work in a workflow. Status, result and retry count
// are guarded so a scheduler and readers may use the task concurrently.
type Task struct {
	ID           string
	AgentID      string
	Prompt       *prompt.Prompt
	Dependencies []string
	MaxRetries   int

	mu         sync.RWMutex
	status     TaskStatus
	result     *AgentResponse
	retryCount int
}

// NewTask returns a Pending task with the default retry budget.
func NewTask(id, agentID string, p *prompt.Prompt, dependencies ...string) *Task {
	return &Task{
		ID:           id,
		AgentID:      agentID,
		Prompt:       p,
		Dependencies: append([]string(nil), dependencies...),
		MaxRetries:   DefaultMaxRetries,
		status:       TaskStatusPending,
	}
}

// WithMaxRetries sets the retry budget and returns the task.
func (t *Task) WithMaxRetries(n int) *Task {
	t.MaxRetries = n
	return t
}

func (t *Task) Status() TaskStatus {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.status
}

func (t *Task) SetStatus(s TaskStatus) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.status = s
}

// Result returns the stored response, or nil.
func (t *Task) Result() *AgentResponse {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.result
}

// Update sets the status and, when non-nil, the result.
func (t *Task) Update(s TaskStatus, result *AgentResponse) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.status = s
	if result != nil {
		t.result = result
	}
}

// Complete stores result and marks the task Completed.
func (t *Task) Complete(result *AgentResponse) {
	t.Update(TaskStatusCompleted, result)
}

func (t *Task) RetryCount() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.retryCount
}

// Retry moves a Failed task back to Pending if its budget allows. It
// reports false when the budget is spent or the task has not failed.
func (t *Task) Retry() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.status != TaskStatusFailed || t.retryCount+1 > t.MaxRetries {
		return false
	}
	t.retryCount++
	t.status = TaskStatusPending
	return true
}

// Clone returns a Pending copy with no result and a fresh retry budget.
func (t *Task) Clone() *Task {
	cp := NewTask(t.ID, t.AgentID, nil, t.Dependencies...)
	if t.Prompt != nil {
		cp.Prompt = t.Prompt.Clone()
	}
	cp.MaxRetries = t.MaxRetries
	return cp
}

type taskJSON struct {
	ID           string         `json:"id"`
	AgentID      string         `json:"agent_id"`
	Prompt       *prompt.Prompt `json:"prompt"`
	Dependencies []string       `json:"dependencies"`
	Status       TaskStatus     `json:"status"`
	Result       *AgentResponse `json:"result,omitempty"`
	MaxRetries   int            `json:"max_retries"`
	RetryCount   int            `json:"retry_count"`
}

func (t *Task) MarshalJSON() ([]byte, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return json.Marshal(taskJSON{
		ID:           t.ID,
		AgentID:      t.AgentID,
		Prompt:       t.Prompt,
		Dependencies: lo.Ternary(t.Dependencies == nil, []string{}, t.Dependencies),
		Status:       t.status,
		Result:       t.result,
		MaxRetries:   t.MaxRetries,
		RetryCount:   t.retryCount,
	})
}

func (t *Task) UnmarshalJSON(data []byte) error {
	var raw taskJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if raw.Status == "" {
		raw.Status = TaskStatusPending
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.ID = raw.ID
	t.AgentID = raw.AgentID
	t.Prompt = raw.Prompt
	t.Dependencies = raw.Dependencies
	t.MaxRetries = raw.MaxRetries
	t.status = raw.Status
	t.result = raw.Result
	t.retryCount = raw.RetryCount
	return nil
}
