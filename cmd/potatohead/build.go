package main

import (
	"context"
	"fmt"

	"github.com/demml/potatohead-sub001/agent"
	"github.com/demml/potatohead-sub001/config"
	"github.com/demml/potatohead-sub001/provider"
	"github.com/demml/potatohead-sub001/transport"
	"github.com/demml/potatohead-sub001/workflow"
	"github.com/rs/zerolog"
	"github.com/samber/lo"
)

// buildWorkflow turns a run file into a workflow. Tasks may be listed in
// any order; they are added once their dependencies are present.
func buildWorkflow(
	ctx context.Context,
	cfg *config.RunConfig,
	logger zerolog.Logger,
	sinks []workflow.EventSink,
	providerOpts ...provider.Option,
) (*workflow.Workflow, error) {
	tr := transport.New(transport.Config{Timeout: cfg.Timeout}, logger)
	providerOpts = append([]provider.Option{
		provider.WithTransport(tr),
		provider.WithLogger(logger),
	}, providerOpts...)

	wf := workflow.New(cfg.Name,
		workflow.WithParallelism(cfg.Parallelism),
		workflow.WithEventSink(sinks...),
		workflow.WithLogger(logger),
	)

	for _, ac := range cfg.Agents {
		a, err := agent.New(ctx, ac.Provider,
			agent.WithID(ac.ID),
			agent.WithSystemInstructions(ac.SystemInstructions...),
			agent.WithLogger(logger),
			agent.WithProviderOptions(providerOpts...),
		)
		if err != nil {
			return nil, fmt.Errorf("agent %q: %w", ac.ID, err)
		}
		wf.AddAgent(a)
	}

	tasks := make([]*agent.Task, 0, len(cfg.Tasks))
	for _, tc := range cfg.Tasks {
		p, err := cfg.BuildPrompt(tc)
		if err != nil {
			return nil, err
		}
		task := agent.NewTask(tc.ID, tc.Agent, p, tc.DependsOn...)
		if tc.MaxRetries != nil {
			task = task.WithMaxRetries(*tc.MaxRetries)
		}
		tasks = append(tasks, task)
	}

	added := make(map[string]bool, len(tasks))
	for len(tasks) > 0 {
		ready, rest := lo.FilterReject(tasks, func(t *agent.Task, _ int) bool {
			return lo.EveryBy(t.Dependencies, func(dep string) bool { return added[dep] })
		})
		if len(ready) == 0 {
			// unknown or circular dependencies; AddTask reports which
			if err := wf.AddTask(rest[0]); err != nil {
				return nil, err
			}
			return nil, fmt.Errorf("task %q: %w", rest[0].ID, workflow.ErrDependencyNotFound)
		}
		for _, t := range ready {
			if err := wf.AddTask(t); err != nil {
				return nil, err
			}
			added[t.ID] = true
		}
		tasks = rest
	}
	return wf, nil
}

// globalContext converts the run file context into workflow parameters.
func globalContext(cfg *config.RunConfig) map[string]any {
	return lo.MapValues(cfg.Context, func(v string, _ string) any { return v })
}
