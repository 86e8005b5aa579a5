package workflow

import "github.com/demml/potatohead-sub001/llm"

// Workflow sentinels are *llm.Error values of type ErrorTypeWorkflow.
var (
	// ErrTaskAlreadyExists is returned when a task id is added twice.
	ErrTaskAlreadyExists error = llm.NewWorkflowError("task already exists")
	// ErrDependencyNotFound is returned when a dependency is not in the list.
	ErrDependencyNotFound error = llm.NewWorkflowError("dependency not found")
	// ErrTaskDependsOnItself is returned for a self-dependency.
	ErrTaskDependsOnItself error = llm.NewWorkflowError("task depends on itself")
	// ErrNoTaskFound is returned when tasks are pending but none can run,
	// which happens when dependencies form a cycle.
	ErrNoTaskFound error = llm.NewWorkflowError("pending tasks remain, possible circular dependency")
	// ErrMaxRetriesExceeded is returned when a failed task has spent its
	// retry budget.
	ErrMaxRetriesExceeded error = llm.NewWorkflowError("max retries exceeded")
	// ErrAgentNotFound is returned when a task names an unknown agent.
	ErrAgentNotFound error = llm.NewWorkflowError("agent not found")
	// ErrTaskNotFound is returned by lookups for unknown task ids.
	ErrTaskNotFound error = llm.NewWorkflowError("task not found")
)
