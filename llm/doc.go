// Package llm holds the provider-neutral vocabulary shared by every other
// package: the closed Provider set, message roles, tagged prompt content with
// ${name} variable binding, token usage, and the error taxonomy.
//
// # Core Concepts
//
//  1. Provider: one of OpenAI, Gemini, Vertex, Google, Anthropic or Undefined.
//     Gemini, Vertex and Google form a single wire family (see Provider.Family).
//
//  2. PromptContent: a tagged value (text, image, audio, document, binary).
//     Only text takes part in variable binding; binding anything else returns
//     ErrCannotBindNonStringContent.
//
//  3. Variables: tokens of the form ${identifier}. ExtractVariables returns
//     them sorted so repeated calls agree; BindText substitutes one name.
//
//  4. Errors: *Error carries a category (ErrorType), the HTTP status and raw
//     body for completion failures, and whether the transport may retry it.
//
// Provider wire formats live in the openai, gemini and anthropic subpackages.
//
// Usage Example
//
//	content := llm.Text("What is 2 + ${x}?")
//	content, err := content.Bind("x", "3")
//	if err != nil {
//	    return err
//	}
//	fmt.Println(content.Text) // What is 2 + 3?
package llm
