package response

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strings"

	"github.com/demml/potatohead-sub001/llm"
	"github.com/demml/potatohead-sub001/prompt"
	"github.com/santhosh-tekuri/jsonschema/v5"
)

const schemaResource = "response_schema.json"

// CompileSchema compiles a JSON schema document for validation.
func CompileSchema(schema map[string]any) (*jsonschema.Schema, error) {
	data, err := json.Marshal(schema)
	if err != nil {
		return nil, llm.NewSerializationError("failed to encode schema", err)
	}
	c := jsonschema.NewCompiler()
	c.Draft = jsonschema.Draft2020
	if err := c.AddResource(schemaResource, bytes.NewReader(data)); err != nil {
		return nil, llm.NewConstructionError("invalid response schema", err)
	}
	compiled, err := c.Compile(schemaResource)
	if err != nil {
		return nil, llm.NewConstructionError("invalid response schema", err)
	}
	return compiled, nil
}

// StructuredOutput parses the response content as JSON and validates it
// against schema. A nil schema only checks that the content is JSON.
func (r ChatResponse) StructuredOutput(schema map[string]any) (any, error) {
	if r.IsEmpty() {
		return nil, llm.NewValidationError("no structured output", ErrEmptyResponse)
	}

	content := strings.TrimSpace(r.Content())
	if content == "" {
		return nil, llm.NewValidationError("response has no text content", ErrEmptyResponse)
	}

	var value any
	if err := json.Unmarshal([]byte(content), &value); err != nil {
		return nil, llm.NewValidationError("response content is not JSON", err)
	}

	if schema != nil {
		compiled, err := CompileSchema(schema)
		if err != nil {
			return nil, err
		}
		if err := compiled.Validate(value); err != nil {
			return nil, llm.NewValidationError("response does not match schema", err)
		}
	}
	return value, nil
}

// StructuredAs validates the content against schema and decodes it into T.
func StructuredAs[T any](r ChatResponse, schema map[string]any) (T, error) {
	var out T
	value, err := r.StructuredOutput(schema)
	if err != nil {
		return out, err
	}
	data, err := json.Marshal(value)
	if err != nil {
		return out, llm.NewSerializationError("failed to re-encode structured output", err)
	}
	if err := json.Unmarshal(data, &out); err != nil {
		return out, llm.NewValidationError(fmt.Sprintf("structured output does not fit %T", out), err)
	}
	return out, nil
}

// Score decodes a Score response type result.
func (r ChatResponse) Score() (prompt.Score, error) {
	return StructuredAs[prompt.Score](r, prompt.ScoreSchema())
}

// StructuredValue returns the content parsed as JSON when possible,
// otherwise the tool calls, otherwise the raw text. Nil for an empty
// response.
func (r ChatResponse) StructuredValue() any {
	if r.IsEmpty() {
		return nil
	}
	if content := strings.TrimSpace(r.Content()); content != "" {
		var value any
		if err := json.Unmarshal([]byte(content), &value); err == nil {
			return value
		}
		return content
	}
	if calls := r.ToolCalls(); len(calls) > 0 {
		return calls
	}
	return nil
}

// WeightedScore averages the single-digit tokens of the response by their
// probabilities. ok is false when no digit tokens were returned.
func (r ChatResponse) WeightedScore() (score float64, ok bool) {
	var sum, weight float64
	for _, lp := range r.LogProbs() {
		p := math.Exp(lp.LogProb)
		sum += float64(lp.Token[0]-'0') * p
		weight += p
	}
	if weight == 0 {
		return 0, false
	}
	return sum / weight, true
}
