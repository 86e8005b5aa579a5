package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"dario.cat/mergo"
	"github.com/demml/potatohead-sub001/llm"
	"github.com/demml/potatohead-sub001/prompt"
	"github.com/samber/lo"
	"gopkg.in/yaml.v3"
)

// Run file defaults.
const (
	DefaultParallelism = 4
	DefaultMaxRetries  = 3
	DefaultTimeout     = 30 * time.Second
	DefaultLogLevel    = "info"
)

// ErrInvalidRunConfig is returned when a run file is structurally invalid.
var ErrInvalidRunConfig = errors.New("invalid run config")

// AgentConfig describes one agent of a run file.
type AgentConfig struct {
	ID                 string       `yaml:"id" json:"id"`
	Provider           llm.Provider `yaml:"provider" json:"provider"`
	SystemInstructions []string     `yaml:"system_instructions,omitempty" json:"system_instructions,omitempty"`
}

// PromptConfig describes a task prompt inline, or points at a saved prompt
// JSON file.
type PromptConfig struct {
	File           string                `yaml:"file,omitempty"`
	Provider       llm.Provider          `yaml:"provider,omitempty"`
	Model          string                `yaml:"model,omitempty"`
	System         []string              `yaml:"system,omitempty"`
	User           []string              `yaml:"user,omitempty"`
	Settings       *prompt.ModelSettings `yaml:"settings,omitempty"`
	ResponseType   prompt.ResponseType   `yaml:"response_type,omitempty"`
	ResponseSchema map[string]any        `yaml:"response_schema,omitempty"`
}

// TaskConfig describes one workflow task.
type TaskConfig struct {
	ID         string       `yaml:"id"`
	Agent      string       `yaml:"agent"`
	DependsOn  []string     `yaml:"depends_on,omitempty"`
	MaxRetries *int         `yaml:"max_retries,omitempty"`
	Prompt     PromptConfig `yaml:"prompt"`
}

// RunConfig is a YAML-defined workflow run.
type RunConfig struct {
	Name        string            `yaml:"name"`
	Parallelism int               `yaml:"parallelism,omitempty"`
	MaxRetries  int               `yaml:"max_retries,omitempty"`
	Timeout     time.Duration     `yaml:"timeout,omitempty"`
	LogLevel    string            `yaml:"log_level,omitempty"`
	LogFile     string            `yaml:"log_file,omitempty"`
	Context     map[string]string `yaml:"context,omitempty"`
	Agents      []AgentConfig     `yaml:"agents"`
	Tasks       []TaskConfig      `yaml:"tasks"`

	// directory of the run file, used to resolve relative prompt files
	dir string
}

// LoadRunConfig reads a run file and merges it over the built-in defaults.
func LoadRunConfig(path string) (*RunConfig, error) {
	expandedPath := expandPath(path)
	data, err := os.ReadFile(expandedPath) //#nosec 304 -- intentional file read for config
	if err != nil {
		return nil, fmt.Errorf("failed to read run config from %q: %w", expandedPath, err)
	}
	cfg, err := ParseRunConfig(data)
	if err != nil {
		return nil, err
	}
	cfg.dir = filepath.Dir(expandedPath)
	return cfg, nil
}

// ParseRunConfig parses run file YAML and applies defaults.
func ParseRunConfig(data []byte) (*RunConfig, error) {
	defaults := RunConfig{
		Parallelism: DefaultParallelism,
		MaxRetries:  DefaultMaxRetries,
		Timeout:     DefaultTimeout,
		LogLevel:    DefaultLogLevel,
		Context:     make(map[string]string),
	}

	var cfg RunConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse run config: %w", err)
	}

	if err := mergo.Merge(&defaults, cfg, mergo.WithOverride); err != nil {
		return nil, fmt.Errorf("failed to merge run config: %w", err)
	}

	for i := range defaults.Tasks {
		if defaults.Tasks[i].MaxRetries == nil {
			defaults.Tasks[i].MaxRetries = lo.ToPtr(defaults.MaxRetries)
		}
	}

	if err := defaults.Validate(); err != nil {
		return nil, err
	}
	return &defaults, nil
}

// Validate checks agent and task references.
func (c *RunConfig) Validate() error {
	if c.Parallelism < 1 {
		return fmt.Errorf("%w: parallelism must be at least 1", ErrInvalidRunConfig)
	}
	if len(c.Tasks) == 0 {
		return fmt.Errorf("%w: no tasks defined", ErrInvalidRunConfig)
	}

	agents := make(map[string]AgentConfig, len(c.Agents))
	for _, a := range c.Agents {
		if a.ID == "" {
			return fmt.Errorf("%w: agent without id", ErrInvalidRunConfig)
		}
		if _, dup := agents[a.ID]; dup {
			return fmt.Errorf("%w: duplicate agent %q", ErrInvalidRunConfig, a.ID)
		}
		if a.Provider.Family() == llm.ProviderUndefined {
			return fmt.Errorf("%w: agent %q has no provider", ErrInvalidRunConfig, a.ID)
		}
		agents[a.ID] = a
	}

	for _, t := range c.Tasks {
		if t.ID == "" {
			return fmt.Errorf("%w: task without id", ErrInvalidRunConfig)
		}
		if _, ok := agents[t.Agent]; !ok {
			return fmt.Errorf("%w: task %q references unknown agent %q", ErrInvalidRunConfig, t.ID, t.Agent)
		}
		if t.Prompt.File == "" && len(t.Prompt.User) == 0 {
			return fmt.Errorf("%w: task %q has no prompt", ErrInvalidRunConfig, t.ID)
		}
		if t.MaxRetries != nil && *t.MaxRetries < 0 {
			return fmt.Errorf("%w: task %q has negative max_retries", ErrInvalidRunConfig, t.ID)
		}
	}
	return nil
}

// Agent returns the agent config with the given id.
func (c *RunConfig) Agent(id string) (AgentConfig, bool) {
	return lo.Find(c.Agents, func(a AgentConfig) bool { return a.ID == id })
}

// BuildPrompt builds the prompt of a task. The provider defaults to the
// task agent's provider.
func (c *RunConfig) BuildPrompt(t TaskConfig) (*prompt.Prompt, error) {
	if t.Prompt.File != "" {
		path := expandPath(t.Prompt.File)
		if !filepath.IsAbs(path) && c.dir != "" {
			path = filepath.Join(c.dir, path)
		}
		p, err := prompt.Load(path)
		if err != nil {
			return nil, fmt.Errorf("task %q: %w", t.ID, err)
		}
		return p, nil
	}

	provider := t.Prompt.Provider
	if provider == "" {
		a, _ := c.Agent(t.Agent)
		provider = a.Provider
	}

	messages := make([]prompt.Message, 0, len(t.Prompt.User))
	for _, text := range t.Prompt.User {
		m, err := prompt.UserMessage(provider, text)
		if err != nil {
			return nil, fmt.Errorf("task %q: %w", t.ID, err)
		}
		messages = append(messages, m)
	}

	opts := []prompt.Option{
		prompt.WithModel(t.Prompt.Model),
		prompt.WithProvider(provider),
		prompt.WithSystemInstructions(t.Prompt.System...),
	}
	if t.Prompt.Settings != nil {
		opts = append(opts, prompt.WithSettings(*t.Prompt.Settings))
	}
	if t.Prompt.ResponseSchema != nil {
		opts = append(opts, prompt.WithResponseSchema(t.Prompt.ResponseSchema))
	}
	if t.Prompt.ResponseType != "" {
		opts = append(opts, prompt.WithResponseType(t.Prompt.ResponseType))
	}

	p, err := prompt.New(messages, opts...)
	if err != nil {
		return nil, fmt.Errorf("task %q: %w", t.ID, err)
	}
	return p, nil
}

// expandPath expands ~ to the user's home directory.
func expandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(homeDir, path[2:])
	}
	return path
}
