package agent

import (
	"encoding/json"
	"fmt"
	"maps"

	"github.com/demml/potatohead-sub001/prompt"
	"github.com/samber/lo"
)

// TaskContext carries what a task sees of the workflow it runs in.
type TaskContext struct {
	// Dependencies are the results of the task's completed dependencies, in
	// declaration order.
	Dependencies []*AgentResponse
	// Global binds ${name} variables not bound by a dependency's
	// structured output.
	Global map[string]any
}

// Params returns the variable values available to the task. Keys from
// dependency structured output win over the global context, and later
// dependencies win over earlier ones.
func (tc TaskContext) Params() map[string]string {
	params := make(map[string]string, len(tc.Global))
	for k, v := range tc.Global {
		params[k] = paramString(v)
	}
	for _, dep := range tc.Dependencies {
		obj, ok := dep.Response.StructuredValue().(map[string]any)
		if !ok {
			continue
		}
		maps.Copy(params, lo.MapValues(obj, func(v any, _ string) string { return paramString(v) }))
	}
	return params
}

// Apply returns a copy of p with the dependency outputs prepended as
// assistant messages and the parameters bound.
func (tc TaskContext) Apply(p *prompt.Prompt) (*prompt.Prompt, error) {
	if len(tc.Dependencies) == 0 && len(tc.Global) == 0 {
		return p, nil
	}

	var history []prompt.Message
	for _, dep := range tc.Dependencies {
		msg, err := dependencyMessage(p, dep)
		if err != nil {
			return nil, err
		}
		history = append(history, msg)
	}

	out := p.WithPrependedMessages(history...)
	params := tc.Params()
	for _, name := range p.ExtractVariables() {
		if v, ok := params[name]; ok {
			out.BindInPlace(name, v)
		}
	}
	return out, nil
}

// dependencyMessage keeps the provider's own message shape when the
// dependency ran on the same family and falls back to plain text otherwise.
func dependencyMessage(p *prompt.Prompt, dep *AgentResponse) (prompt.Message, error) {
	if dep.Response.Provider().Family() == p.Provider.Family() {
		if msg, err := dep.Response.ToMessage(); err == nil {
			return msg, nil
		}
	}
	msg, err := prompt.AssistantMessage(p.Provider, dep.Content())
	if err != nil {
		return prompt.Message{}, fmt.Errorf("failed to carry dependency %s: %w", dep.ID, err)
	}
	return msg, nil
}

func paramString(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	return string(data)
}
