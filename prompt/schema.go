package prompt

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strings"

	"github.com/invopop/jsonschema"
	"gopkg.in/yaml.v3"
)

// ResponseType tells callers how to interpret structured output.
type ResponseType string

const (
	ResponseTypeNull   ResponseType = "null"
	ResponseTypeScore  ResponseType = "score"
	ResponseTypeCustom ResponseType = "custom"
)

// ParseResponseType accepts null, score or custom in any case. The empty
// string is null.
func ParseResponseType(s string) (ResponseType, error) {
	switch rt := ResponseType(strings.ToLower(strings.TrimSpace(s))); rt {
	case "":
		return ResponseTypeNull, nil
	case ResponseTypeNull, ResponseTypeScore, ResponseTypeCustom:
		return rt, nil
	default:
		return "", fmt.Errorf("%w: unknown response type %q", ErrMessageParse, s)
	}
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (rt *ResponseType) UnmarshalText(text []byte) error {
	parsed, err := ParseResponseType(string(text))
	if err != nil {
		return err
	}
	*rt = parsed
	return nil
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (rt *ResponseType) UnmarshalYAML(node *yaml.Node) error {
	var s string
	if err := node.Decode(&s); err != nil {
		return err
	}
	return rt.UnmarshalText([]byte(s))
}

// Score is the built-in structured response used for LLM-as-judge prompts.
type Score struct {
	Score       int    `json:"score" jsonschema:"description=Integer score"`
	Explanation string `json:"explanation" jsonschema:"description=Reasoning behind the score"`
}

// ScoreSchema returns the JSON schema of Score.
func ScoreSchema() map[string]any {
	schema, err := SchemaFor(Score{})
	if err != nil {
		// Score is a fixed type; reflection cannot fail on it.
		panic(err)
	}
	return schema
}

// SchemaFor generates an inline JSON schema for the Go type of v. The
// schema title is the type name.
func SchemaFor(v any) (map[string]any, error) {
	reflector := jsonschema.Reflector{
		DoNotReference: true,
		ExpandedStruct: true,
	}
	s := reflector.Reflect(v)

	data, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("marshal schema: %w", err)
	}
	var out map[string]any
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("unmarshal schema: %w", err)
	}
	delete(out, "$schema")
	delete(out, "$id")

	t := reflect.TypeOf(v)
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t.Name() != "" {
		out["title"] = t.Name()
	}
	return out, nil
}
