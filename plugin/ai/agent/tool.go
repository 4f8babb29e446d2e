package agent

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/hrygo/decorchat/plugin/ai"
)

// Tool is the interface for agent tools.
type Tool interface {
	// Name returns the name of the tool.
	Name() string

	// Description returns a description of what the tool does.
	Description() string

	// Run executes the tool with the given JSON input.
	Run(ctx context.Context, input string) (string, error)
}

// ToolWithSchema extends Tool with the JSON Schema of its input, which the
// model needs to call it.
type ToolWithSchema interface {
	Tool

	// Parameters returns the JSON Schema for the tool's input parameters.
	Parameters() map[string]any
}

// NativeTool implements ToolWithSchema with direct function execution.
type NativeTool struct {
	name        string
	description string
	execute     func(ctx context.Context, input string) (string, error)
	params      map[string]any
}

// NewNativeTool creates a new NativeTool.
func NewNativeTool(
	name string,
	description string,
	execute func(ctx context.Context, input string) (string, error),
	parameters map[string]any,
) ToolWithSchema {
	return &NativeTool{
		name:        name,
		description: description,
		execute:     execute,
		params:      parameters,
	}
}

func (t *NativeTool) Name() string {
	return t.name
}

func (t *NativeTool) Description() string {
	return t.description
}

func (t *NativeTool) Parameters() map[string]any {
	return t.params
}

func (t *NativeTool) Run(ctx context.Context, input string) (string, error) {
	return t.execute(ctx, input)
}

// toolDescriptors converts tools to the provider's descriptor format.
func toolDescriptors(tools []ToolWithSchema) []ai.ToolDescriptor {
	descriptors := make([]ai.ToolDescriptor, len(tools))
	for i, tool := range tools {
		paramsJSON, err := json.Marshal(tool.Parameters())
		if err != nil {
			slog.Warn("failed to marshal tool parameters, using empty schema",
				"tool", tool.Name(),
				"error", err)
			paramsJSON = []byte(`{"type":"object","properties":{}}`)
		}
		descriptors[i] = ai.ToolDescriptor{
			Name:        tool.Name(),
			Description: tool.Description(),
			Parameters:  string(paramsJSON),
		}
	}
	return descriptors
}
