package tools

import (
	"context"
	"encoding/json"

	openai "github.com/sashabaranov/go-openai"
)

// ToolSpec is a single callable function as exposed to a model.
type ToolSpec struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	JSONSchema  json.RawMessage `json:"json_schema"`
}

// EncodeTools converts specs into the OpenAI-compatible tools array.
func EncodeTools(specs []ToolSpec) []openai.Tool {
	out := make([]openai.Tool, 0, len(specs))
	for _, s := range specs {
		out = append(out, openai.Tool{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        s.Name,
				Description: s.Description,
				Parameters:  s.JSONSchema,
			},
		})
	}
	return out
}

// CallFromOpenAI runs an OpenAI tool call against the registry.
func (r *Registry) CallFromOpenAI(ctx context.Context, call openai.ToolCall) Result {
	if call.Type != "" && call.Type != openai.ToolTypeFunction {
		return Result{Text: "unsupported tool call type: " + string(call.Type), IsError: true}
	}
	return r.Call(ctx, call.Function.Name, json.RawMessage(call.Function.Arguments))
}
