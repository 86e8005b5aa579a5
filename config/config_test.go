package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/demml/potatohead-sub001/llm"
	"github.com/demml/potatohead-sub001/prompt"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const runYAML = `
name: review
parallelism: 2
context:
  lang: English
agents:
  - id: writer
    provider: openai
    system_instructions: ["be concise"]
  - id: judge
    provider: gemini
tasks:
  - id: draft
    agent: writer
    prompt:
      model: gpt-4o
      user: ["write about ${topic} in ${lang}"]
      settings:
        provider: openai
        settings:
          temperature: 0.3
  - id: grade
    agent: judge
    depends_on: [draft]
    max_retries: 1
    prompt:
      model: gemini-2.5-flash
      user: ["grade the draft"]
      response_type: Score
`

func TestParseRunConfigAppliesDefaults(t *testing.T) {
	cfg, err := ParseRunConfig([]byte(runYAML))
	require.NoError(t, err)

	assert.Equal(t, "review", cfg.Name)
	assert.Equal(t, 2, cfg.Parallelism)
	assert.Equal(t, DefaultMaxRetries, cfg.MaxRetries)
	assert.Equal(t, DefaultTimeout, cfg.Timeout)
	assert.Equal(t, DefaultLogLevel, cfg.LogLevel)
	assert.Equal(t, "English", cfg.Context["lang"])

	require.Len(t, cfg.Tasks, 2)
	assert.Equal(t, DefaultMaxRetries, *cfg.Tasks[0].MaxRetries)
	assert.Equal(t, 1, *cfg.Tasks[1].MaxRetries)
	assert.Equal(t, llm.ProviderGemini, cfg.Agents[1].Provider)
}

func TestParseRunConfigTimeout(t *testing.T) {
	cfg, err := ParseRunConfig([]byte(runYAML + "timeout: 5s\n"))
	require.NoError(t, err)
	assert.Equal(t, 5*time.Second, cfg.Timeout)
}

func TestParseRunConfigRejectsUnknownAgent(t *testing.T) {
	_, err := ParseRunConfig([]byte(`
agents:
  - id: a
    provider: openai
tasks:
  - id: t
    agent: missing
    prompt:
      model: gpt-4o
      user: ["hi"]
`))
	assert.ErrorIs(t, err, ErrInvalidRunConfig)
}

func TestParseRunConfigRejectsEmpty(t *testing.T) {
	_, err := ParseRunConfig([]byte("name: empty\n"))
	assert.ErrorIs(t, err, ErrInvalidRunConfig)
}

func TestBuildPromptInline(t *testing.T) {
	cfg, err := ParseRunConfig([]byte(runYAML))
	require.NoError(t, err)

	p, err := cfg.BuildPrompt(cfg.Tasks[0])
	require.NoError(t, err)
	assert.Equal(t, llm.ProviderOpenAI, p.Provider)
	assert.Equal(t, []string{"lang", "topic"}, p.ExtractVariables())
	s, ok := p.Settings.OpenAI()
	require.True(t, ok)
	require.NotNil(t, s.Temperature)
	assert.InDelta(t, 0.3, *s.Temperature, 1e-6)

	graded, err := cfg.BuildPrompt(cfg.Tasks[1])
	require.NoError(t, err)
	assert.Equal(t, llm.ProviderGemini, graded.Provider)
	assert.Equal(t, prompt.ResponseTypeScore, graded.ResponseType)
	assert.True(t, graded.HasStructuredOutput())
}

func TestBuildPromptFromFile(t *testing.T) {
	dir := t.TempDir()
	msg, err := prompt.UserMessage(llm.ProviderAnthropic, "hello")
	require.NoError(t, err)
	saved, err := prompt.New([]prompt.Message{msg}, prompt.WithModel("claude-sonnet-4-5"))
	require.NoError(t, err)
	require.NoError(t, saved.Save(filepath.Join(dir, "hello.json")))

	runPath := filepath.Join(dir, "run.yaml")
	require.NoError(t, os.WriteFile(runPath, []byte(`
agents:
  - id: a
    provider: anthropic
tasks:
  - id: t
    agent: a
    prompt:
      file: hello.json
`), 0o600))

	cfg, err := LoadRunConfig(runPath)
	require.NoError(t, err)
	p, err := cfg.BuildPrompt(cfg.Tasks[0])
	require.NoError(t, err)
	assert.Equal(t, "claude-sonnet-4-5", p.Model)
	assert.Equal(t, "hello", p.Messages[0].Text())
}

func TestEnvDefaultsAndLookup(t *testing.T) {
	t.Setenv(OpenAIAPIKey, "sk-test")
	t.Setenv(AnthropicAPIKey, "")
	t.Setenv(GoogleCloudLocation, "")

	env := LoadEnv()
	key, ok := env.Lookup(OpenAIAPIKey)
	assert.True(t, ok)
	assert.Equal(t, "sk-test", key)

	_, ok = env.Lookup(AnthropicAPIKey)
	assert.False(t, ok)
	assert.Equal(t, DefaultGoogleCloudLocation, env.Get(GoogleCloudLocation))

	fixed := NewEnv(map[string]string{GoogleAPIKey: "g-key"})
	assert.Equal(t, DefaultGoogleCloudLocation, fixed.Get(GoogleCloudLocation))
	v, ok := fixed.First(GeminiAPIKey, GoogleAPIKey)
	assert.True(t, ok)
	assert.Equal(t, "g-key", v)
}

func TestParseRunConfigRejectsUnknownResponseType(t *testing.T) {
	_, err := ParseRunConfig([]byte(`
agents:
  - id: a
    provider: openai
tasks:
  - id: t
    agent: a
    prompt:
      model: gpt-4o
      user: ["hi"]
      response_type: bogus
`))
	assert.ErrorIs(t, err, prompt.ErrMessageParse)
}
