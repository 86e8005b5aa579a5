package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/demml/potatohead-sub001/agent"
	"github.com/demml/potatohead-sub001/config"
	"github.com/demml/potatohead-sub001/provider"
	"github.com/demml/potatohead-sub001/store"
	"github.com/demml/potatohead-sub001/workflow"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// final is listed before the tasks it depends on
const pipelineYAML = `
name: pipeline
parallelism: 2
context:
  lang: Go
agents:
  - id: writer
    provider: openai
tasks:
  - id: final
    agent: writer
    depends_on: [a, b]
    prompt:
      model: gpt-4o
      user: ["combine"]
  - id: a
    agent: writer
    prompt:
      model: gpt-4o
      user: ["write ${lang}"]
  - id: b
    agent: writer
    max_retries: 0
    prompt:
      model: gpt-4o
      user: ["review"]
`

func writeRunFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "run.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func openAIServer(t *testing.T) (*httptest.Server, func() []string) {
	t.Helper()
	var (
		mu     sync.Mutex
		bodies []string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		mu.Lock()
		bodies = append(bodies, string(body))
		mu.Unlock()
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"c","object":"chat.completion",` +
			`"choices":[{"index":0,"message":{"role":"assistant","content":"ok"},"finish_reason":"stop"}]}`))
	}))
	t.Cleanup(srv.Close)
	return srv, func() []string {
		mu.Lock()
		defer mu.Unlock()
		return append([]string(nil), bodies...)
	}
}

func TestBuildWorkflowRunsWithEventStore(t *testing.T) {
	srv, bodies := openAIServer(t)
	cfg, err := config.LoadRunConfig(writeRunFile(t, pipelineYAML))
	require.NoError(t, err)

	es, err := store.Open(filepath.Join(t.TempDir(), "events.db"), zerolog.Nop())
	require.NoError(t, err)
	defer es.Close() //nolint:errcheck // test cleanup

	wf, err := buildWorkflow(context.Background(), cfg, zerolog.Nop(), []workflow.EventSink{es},
		provider.WithEnv(config.NewEnv(map[string]string{
			config.OpenAIAPIKey: "sk-test",
			config.OpenAIAPIURL: srv.URL,
		})),
	)
	require.NoError(t, err)

	assert.Equal(t, [][]string{{"a", "b"}, {"final"}}, wf.ExecutionPlan())
	b, ok := wf.Tasks().Get("b")
	require.True(t, ok)
	assert.Equal(t, 0, b.MaxRetries)
	a, _ := wf.Tasks().Get("a")
	assert.Equal(t, agent.DefaultMaxRetries, a.MaxRetries)

	result, err := wf.Run(context.Background(), globalContext(cfg))
	require.NoError(t, err)
	assert.Equal(t, 3, result.Tasks.CountStatus(agent.TaskStatusCompleted))
	assert.Len(t, bodies(), 3)
	assert.NotEmpty(t, findBody(bodies(), "write Go"), "global context is bound")

	stored, err := es.ListEvents(context.Background(), result.WorkflowID)
	require.NoError(t, err)
	assert.Len(t, stored, 3)

	summary := summarize(result, nil)
	require.Len(t, summary.Tasks, 3)
	assert.Equal(t, "final", summary.Tasks[2].ID)
	assert.Equal(t, "ok", summary.Tasks[2].Output)
}

func findBody(bodies []string, needle string) string {
	for _, b := range bodies {
		if bytes.Contains([]byte(b), []byte(needle)) {
			return b
		}
	}
	return ""
}

func TestBuildWorkflowUnknownDependency(t *testing.T) {
	cfg, err := config.ParseRunConfig([]byte(`
name: broken
agents:
  - id: writer
    provider: openai
tasks:
  - id: a
    agent: writer
    depends_on: [ghost]
    prompt:
      model: gpt-4o
      user: ["hi"]
`))
	require.NoError(t, err)

	_, err = buildWorkflow(context.Background(), cfg, zerolog.Nop(), nil)
	assert.ErrorIs(t, err, workflow.ErrDependencyNotFound)
}

func TestPlanCommand(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, run([]string{"plan", "-f", writeRunFile(t, pipelineYAML)}, &out))
	assert.Equal(t, "step 1: [a b]\nstep 2: [final]\n", out.String())
}

func TestEventsCommand(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "events.db")
	es, err := store.Open(dbPath, zerolog.Nop())
	require.NoError(t, err)
	require.NoError(t, es.Record(context.Background(), workflow.TaskEvent{
		ID: "e1", WorkflowID: "wf", TaskID: "a", Status: agent.TaskStatusCompleted,
	}))
	require.NoError(t, es.Close())

	var out bytes.Buffer
	require.NoError(t, run([]string{"events", "--db", dbPath, "--workflow", "wf"}, &out))

	var ev workflow.TaskEvent
	require.NoError(t, json.Unmarshal(out.Bytes(), &ev))
	assert.Equal(t, "e1", ev.ID)
	assert.Equal(t, agent.TaskStatusCompleted, ev.Status)

	assert.Error(t, run([]string{"events", "--db", dbPath}, &out))
}

func TestRunRejectsUnknownCommand(t *testing.T) {
	assert.Error(t, run(nil, io.Discard))
	assert.Error(t, run([]string{"bogus"}, io.Discard))
}
