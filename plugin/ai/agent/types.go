package agent

// EventCallback receives agent lifecycle events. A returned error is logged
// and never aborts the invocation.
type EventCallback func(eventType string, eventData any) error

// Event types passed to EventCallback.
const (
	EventTypeAgentStep  = "agent_step"  // Model call starting; data is the step number
	EventTypeToolUse    = "tool_use"    // Tool call starting; data is the ToolCall
	EventTypeToolResult = "tool_result" // Tool call finished; data is the tool Message
	EventTypeAnswer     = "answer"      // Final answer; data is the text
)
