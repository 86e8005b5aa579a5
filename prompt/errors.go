package prompt

import (
	"errors"

	"github.com/demml/potatohead-sub001/llm/gemini"
)

var (
	// ErrMessageParse is returned for an empty or malformed message list.
	ErrMessageParse = errors.New("failed to parse prompt messages")
	// ErrProviderMismatch is returned when messages or settings belong to a
	// different provider family than the prompt.
	ErrProviderMismatch = errors.New("provider mismatch")
	// ErrMoreThanOneSystemInstruction is returned for Gemini prompts with
	// several system instructions.
	ErrMoreThanOneSystemInstruction = gemini.ErrMoreThanOneSystemInstruction
	// ErrMissingModel is returned when a prompt has no model.
	ErrMissingModel = errors.New("prompt model is required")
	// ErrUndefinedProvider is returned when no provider can be determined.
	ErrUndefinedProvider = errors.New("provider is undefined")
)
