// Package agent binds a provider client to an identity and runs workflow
// tasks through it.
package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/demml/potatohead-sub001/llm"
	"github.com/demml/potatohead-sub001/prompt"
	"github.com/demml/potatohead-sub001/provider"
	"github.com/demml/potatohead-sub001/response"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// ErrProviderMismatch is returned when a prompt targets a different
// provider family than the agent.
var ErrProviderMismatch = prompt.ErrProviderMismatch

// Agent executes prompts against one provider.
type Agent struct {
	ID                 string
	Provider           llm.Provider
	SystemInstructions []prompt.Message

	client     provider.Client
	rateLimits *RateLimitHandler
	logger     zerolog.Logger
}

type options struct {
	id              string
	systemTexts     []string
	client          provider.Client
	providerOptions []provider.Option
	logger          zerolog.Logger
}

// Option configures New.
type Option func(*options)

// WithID sets the agent id. A UUIDv7 is generated otherwise.
func WithID(id string) Option {
	return func(o *options) { o.id = id }
}

// WithSystemInstructions prepends texts as system instructions to every
// prompt the agent executes.
func WithSystemInstructions(texts ...string) Option {
	return func(o *options) { o.systemTexts = append(o.systemTexts, texts...) }
}

// WithClient uses client instead of building one for the provider.
func WithClient(client provider.Client) Option {
	return func(o *options) { o.client = client }
}

// WithProviderOptions passes options to provider.New.
func WithProviderOptions(opts ...provider.Option) Option {
	return func(o *options) { o.providerOptions = append(o.providerOptions, opts...) }
}

// WithLogger sets the logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// New selects and initialises the client for p.
func New(ctx context.Context, p llm.Provider, opts ...Option) (*Agent, error) {
	o := options{logger: zerolog.Nop()}
	for _, opt := range opts {
		opt(&o)
	}
	if o.id == "" {
		id, err := uuid.NewV7()
		if err != nil {
			return nil, fmt.Errorf("failed to generate agent id: %w", err)
		}
		o.id = id.String()
	}

	client := o.client
	if client == nil {
		var err error
		client, err = provider.New(ctx, p, append([]provider.Option{provider.WithLogger(o.logger)}, o.providerOptions...)...)
		if err != nil {
			return nil, fmt.Errorf("agent %s: %w", o.id, err)
		}
	} else if client.Provider().Family() != p.Family() {
		return nil, fmt.Errorf("%w: client is %s, agent is %s", ErrProviderMismatch, client.Provider(), p)
	}

	system := make([]prompt.Message, 0, len(o.systemTexts))
	for _, text := range o.systemTexts {
		msg, err := prompt.SystemInstruction(p, text)
		if err != nil {
			return nil, err
		}
		system = append(system, msg)
	}

	logger := o.logger.With().Str("component", "agent").Str("agent_id", o.id).Logger()
	return &Agent{
		ID:                 o.id,
		Provider:           p,
		SystemInstructions: system,
		client:             client,
		rateLimits:         NewRateLimitHandler(logger),
		logger:             logger,
	}, nil
}

// Client returns the underlying provider client.
func (a *Agent) Client() provider.Client {
	return a.client
}

// RateLimits returns the agent's rate-limit handler.
func (a *Agent) RateLimits() *RateLimitHandler {
	return a.rateLimits
}

// ExecutePrompt sends p with the agent's system instructions prepended.
func (a *Agent) ExecutePrompt(ctx context.Context, p *prompt.Prompt) (*AgentResponse, error) {
	if p.Provider.Family() != a.Provider.Family() {
		return nil, fmt.Errorf("%w: prompt is for %s, agent %s is %s", ErrProviderMismatch, p.Provider, a.ID, a.Provider)
	}
	if len(a.SystemInstructions) > 0 {
		p = p.WithPrependedSystemInstructions(a.SystemInstructions...)
	}

	resp, err := a.client.Generate(ctx, p)
	if err != nil {
		return nil, err
	}
	return NewAgentResponse(resp), nil
}

// ExecuteTask runs task with no dependency context.
func (a *Agent) ExecuteTask(ctx context.Context, task *Task) (*AgentResponse, error) {
	return a.ExecuteTaskWithContext(ctx, task, TaskContext{})
}

// ExecuteTaskWithContext marks task Running, sends its prompt enriched with
// tc and stores the outcome on the task. An empty response fails the task.
func (a *Agent) ExecuteTaskWithContext(ctx context.Context, task *Task, tc TaskContext) (*AgentResponse, error) {
	task.SetStatus(TaskStatusRunning)
	start := time.Now()

	p, err := tc.Apply(task.Prompt)
	if err != nil {
		task.SetStatus(TaskStatusFailed)
		return nil, err
	}

	a.logger.Debug().Str("task_id", task.ID).Str("model", p.ModelIdentifier()).Msg("Executing task")
	resp, err := a.ExecutePrompt(ctx, p)
	if err != nil {
		task.SetStatus(TaskStatusFailed)
		a.rateLimits.Observe(task.ID, err)
		a.logger.Warn().Err(err).Str("task_id", task.ID).Msg("Task failed")
		return nil, err
	}
	if resp.Response.IsEmpty() {
		task.SetStatus(TaskStatusFailed)
		return nil, llm.NewValidationError(fmt.Sprintf("task %s returned an empty response", task.ID), response.ErrEmptyResponse)
	}

	a.rateLimits.Reset(task.ID)
	task.Complete(resp)
	a.logger.Debug().Str("task_id", task.ID).Dur("duration", time.Since(start)).Msg("Task completed")
	return resp, nil
}

// Descriptor is the serialisable part of an agent. The client is rebuilt
// from the provider on load.
type Descriptor struct {
	ID                 string           `json:"id"`
	Provider           llm.Provider     `json:"provider"`
	SystemInstructions []prompt.Message `json:"system_instructions,omitempty"`
}

// MarshalJSON encodes the agent's descriptor.
func (a *Agent) MarshalJSON() ([]byte, error) {
	return json.Marshal(Descriptor{ID: a.ID, Provider: a.Provider, SystemInstructions: a.SystemInstructions})
}

// Build initialises an agent from the descriptor.
func (d Descriptor) Build(ctx context.Context, opts ...Option) (*Agent, error) {
	a, err := New(ctx, d.Provider, append([]Option{WithID(d.ID)}, opts...)...)
	if err != nil {
		return nil, err
	}
	a.SystemInstructions = append(a.SystemInstructions, d.SystemInstructions...)
	return a, nil
}
