package workflow

import (
	"testing"

	"github.com/demml/potatohead-sub001/agent"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddTaskInvariants(t *testing.T) {
	l := NewTaskList()
	require.NoError(t, l.AddTask(agent.NewTask("a", "x", nil)))

	tests := []struct {
		name string
		task *agent.Task
		want error
	}{
		{"duplicate id", agent.NewTask("a", "x", nil), ErrTaskAlreadyExists},
		{"unknown dependency", agent.NewTask("b", "x", nil, "missing"), ErrDependencyNotFound},
		{"self dependency", agent.NewTask("c", "x", nil, "c"), ErrTaskDependsOnItself},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, l.AddTask(tt.task), tt.want)
		})
	}
	assert.Equal(t, 1, l.Len(), "rejected tasks are not inserted")
}

func TestReadyTasksFollowDependencies(t *testing.T) {
	l := NewTaskList()
	require.NoError(t, l.AddTask(agent.NewTask("a", "x", nil)))
	require.NoError(t, l.AddTask(agent.NewTask("b", "x", nil, "a")))

	ids := func() []string {
		var out []string
		for _, t := range l.GetReadyTasks() {
			out = append(out, t.ID)
		}
		return out
	}
	assert.Equal(t, []string{"a"}, ids())

	require.NoError(t, l.UpdateTaskStatus("a", agent.TaskStatusRunning, nil))
	assert.Empty(t, ids())
	assert.False(t, l.IsComplete())

	require.NoError(t, l.UpdateTaskStatus("a", agent.TaskStatusCompleted, nil))
	assert.Equal(t, []string{"b"}, ids())
	assert.Equal(t, 1, l.PendingCount())

	assert.ErrorIs(t, l.UpdateTaskStatus("zzz", agent.TaskStatusFailed, nil), ErrTaskNotFound)
}

func TestResetFailedTasks(t *testing.T) {
	l := NewTaskList()
	require.NoError(t, l.AddTask(agent.NewTask("a", "x", nil).WithMaxRetries(1)))
	require.NoError(t, l.AddTask(agent.NewTask("b", "x", nil)))

	a, _ := l.Get("a")
	a.SetStatus(agent.TaskStatusFailed)
	require.NoError(t, l.ResetFailedTasks())
	assert.Equal(t, agent.TaskStatusPending, a.Status())
	assert.Equal(t, 1, a.RetryCount())

	a.SetStatus(agent.TaskStatusFailed)
	err := l.ResetFailedTasks()
	assert.ErrorIs(t, err, ErrMaxRetriesExceeded)
	assert.Contains(t, err.Error(), "a")
	assert.Equal(t, agent.TaskStatusFailed, a.Status())
}

func TestExecutionOrderIsTopological(t *testing.T) {
	l := NewTaskList()
	require.NoError(t, l.AddTask(agent.NewTask("z", "x", nil)))
	require.NoError(t, l.AddTask(agent.NewTask("m", "x", nil, "z")))
	require.NoError(t, l.AddTask(agent.NewTask("a", "x", nil, "m", "z")))

	assert.Equal(t, []string{"z", "m", "a"}, l.ExecutionOrder())
}

func TestCloneResetsState(t *testing.T) {
	l := NewTaskList()
	require.NoError(t, l.AddTask(agent.NewTask("a", "x", nil)))
	require.NoError(t, l.UpdateTaskStatus("a", agent.TaskStatusCompleted, &agent.AgentResponse{ID: "r"}))

	cp := l.Clone()
	c, _ := cp.Get("a")
	assert.Equal(t, agent.TaskStatusPending, c.Status())
	assert.Nil(t, c.Result())

	orig, _ := l.Get("a")
	assert.Equal(t, agent.TaskStatusCompleted, orig.Status())
}
