package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/lithammer/shortuuid/v4"

	"github.com/hrygo/decorchat/plugin/ai"
	"github.com/hrygo/decorchat/plugin/ai/timeout"
)

// Checkpointer persists the message log of each thread.
type Checkpointer interface {
	// Load returns the saved messages of a thread, or none for an unknown thread.
	Load(ctx context.Context, threadID string) ([]Message, error)
	// Save replaces the saved messages of a thread.
	Save(ctx context.Context, threadID string, messages []Message) error
}

// LoopState is a node of the agent state machine.
type LoopState int

const (
	StateAgent LoopState = iota
	StateTools
	StateEnd
)

func (s LoopState) String() string {
	switch s {
	case StateAgent:
		return "agent"
	case StateTools:
		return "tools"
	case StateEnd:
		return "end"
	default:
		return "unknown"
	}
}

// Decision is the outcome of one model call: a FinalAnswer or ToolRequests.
type Decision interface {
	decision()
}

// FinalAnswer ends the loop with Text as the response.
type FinalAnswer struct {
	Text string
}

// ToolRequests asks the loop to run Calls before consulting the model again.
type ToolRequests struct {
	Text  string
	Calls []ToolCall
}

func (FinalAnswer) decision()  {}
func (ToolRequests) decision() {}

// AgentConfig holds configuration for creating a new Agent.
type AgentConfig struct {
	// Name identifies this agent in logs.
	Name string

	// SystemPrompt is the persona template; "{time}" is replaced on every model call.
	SystemPrompt string

	// RecursionLimit caps the AGENT plus TOOLS steps of one invocation.
	RecursionLimit int
}

// Agent runs the AGENT/TOOLS loop over a thread's conversation state.
type Agent struct {
	llm          ai.LLMService
	checkpointer Checkpointer
	config       AgentConfig
	tools        []ToolWithSchema
	toolMap      map[string]ToolWithSchema
	descriptors  []ai.ToolDescriptor
	retrier      *ai.Retrier
	now          func() time.Time
}

// Option configures an Agent.
type Option func(*Agent)

// WithRetrier replaces the retry policy around model calls.
func WithRetrier(r *ai.Retrier) Option {
	return func(a *Agent) { a.retrier = r }
}

// WithClock replaces the clock used for the prompt's time variable.
func WithClock(now func() time.Time) Option {
	return func(a *Agent) { a.now = now }
}

// NewAgent creates a new Agent with the given configuration.
func NewAgent(llm ai.LLMService, checkpointer Checkpointer, config AgentConfig, tools []ToolWithSchema, opts ...Option) *Agent {
	if config.Name == "" {
		config.Name = "store-assistant"
	}
	if config.SystemPrompt == "" {
		config.SystemPrompt = DefaultSystemPrompt
	}
	if config.RecursionLimit <= 0 {
		config.RecursionLimit = timeout.RecursionLimit
	}

	toolMap := make(map[string]ToolWithSchema, len(tools))
	for _, tool := range tools {
		toolMap[tool.Name()] = tool
	}

	a := &Agent{
		llm:          llm,
		checkpointer: checkpointer,
		config:       config,
		tools:        tools,
		toolMap:      toolMap,
		descriptors:  toolDescriptors(tools),
		retrier:      ai.NewRetrier(),
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Invoke appends input to the thread and runs the loop until the model answers.
// Failures are returned as *ClassifiedError.
func (a *Agent) Invoke(ctx context.Context, threadID string, input Message) (string, error) {
	return a.InvokeWithCallback(ctx, threadID, input, nil)
}

// InvokeWithCallback is Invoke with lifecycle events reported to callback.
func (a *Agent) InvokeWithCallback(ctx context.Context, threadID string, input Message, callback EventCallback) (string, error) {
	start := time.Now()
	answer, steps, err := a.run(ctx, threadID, input, callback)
	if err != nil {
		classified := ClassifyError(err)
		slog.Error("agent invocation failed",
			"agent", a.config.Name,
			"thread_id", threadID,
			"class", classified.Class.String(),
			"steps", steps,
			"error", err)
		return "", classified
	}
	slog.Info("agent invocation finished",
		"agent", a.config.Name,
		"thread_id", threadID,
		"steps", steps,
		"duration_ms", time.Since(start).Milliseconds())
	return answer, nil
}

func (a *Agent) run(ctx context.Context, threadID string, input Message, callback EventCallback) (string, int, error) {
	history, err := a.checkpointer.Load(ctx, threadID)
	if err != nil {
		return "", 0, fmt.Errorf("load checkpoint: %w", err)
	}
	state, err := NewState(history...)
	if err != nil {
		return "", 0, fmt.Errorf("restore thread %s: %w", threadID, err)
	}
	if err := state.Append(input); err != nil {
		return "", 0, err
	}
	if err := a.checkpoint(ctx, threadID, state); err != nil {
		return "", 0, err
	}

	current := StateAgent
	step := 0
	for current != StateEnd {
		if step >= a.config.RecursionLimit {
			return "", step, fmt.Errorf("%w: limit of %d steps", ErrRecursionLimit, a.config.RecursionLimit)
		}
		if err := ctx.Err(); err != nil {
			return "", step, err
		}
		step++

		switch current {
		case StateAgent:
			emit(callback, EventTypeAgentStep, step)
			current, err = a.agentStep(ctx, state)
		case StateTools:
			current, err = a.toolsStep(ctx, state, callback)
			if err == nil {
				err = a.checkpoint(ctx, threadID, state)
			}
		}
		if err != nil {
			return "", step, err
		}
	}

	if err := a.checkpoint(ctx, threadID, state); err != nil {
		return "", step, err
	}
	last, _ := state.Last()
	emit(callback, EventTypeAnswer, last.Content)
	return last.Content, step, nil
}

// agentStep calls the model with the whole log and appends its message.
func (a *Agent) agentStep(ctx context.Context, state *State) (LoopState, error) {
	messages := toProviderMessages(renderSystemPrompt(a.config.SystemPrompt, a.now()), state.Messages())
	resp, err := ai.Retry(ctx, a.retrier, func(ctx context.Context) (*ai.ChatResponse, error) {
		return a.llm.ChatWithTools(ctx, messages, a.descriptors)
	})
	if err != nil {
		return StateEnd, fmt.Errorf("model call: %w", err)
	}

	switch d := decide(resp).(type) {
	case ToolRequests:
		if err := state.Append(NewAIMessage(d.Text, d.Calls...)); err != nil {
			return StateEnd, err
		}
		return StateTools, nil
	case FinalAnswer:
		if err := state.Append(NewAIMessage(d.Text)); err != nil {
			return StateEnd, err
		}
		return StateEnd, nil
	default:
		return StateEnd, fmt.Errorf("unexpected decision %T", d)
	}
}

// toolsStep runs every pending call in order and appends each result.
func (a *Agent) toolsStep(ctx context.Context, state *State, callback EventCallback) (LoopState, error) {
	for _, call := range state.PendingToolCalls() {
		emit(callback, EventTypeToolUse, call)

		start := time.Now()
		result := a.executeTool(ctx, call)
		msg := NewToolMessage(call.ID, call.Name, result)
		if err := state.Append(msg); err != nil {
			return StateEnd, err
		}
		slog.Debug("tool call finished",
			"agent", a.config.Name,
			"tool", call.Name,
			"args", truncateString(call.Args, timeout.MaxTruncateLength),
			"result", truncateString(result, timeout.MaxTruncateLength),
			"duration_ms", time.Since(start).Milliseconds())

		emit(callback, EventTypeToolResult, msg)
	}
	return StateAgent, nil
}

// executeTool runs one call. Failures become an error JSON value for the model.
func (a *Agent) executeTool(ctx context.Context, call ToolCall) string {
	tool, exists := a.toolMap[call.Name]
	if !exists {
		return toolError(fmt.Errorf("%w: %s", ErrToolNotFound, call.Name))
	}
	out, err := tool.Run(ctx, call.Args)
	if err != nil {
		slog.Warn("tool execution failed", "tool", call.Name, "error", err)
		return toolError(err)
	}
	return out
}

func (a *Agent) checkpoint(ctx context.Context, threadID string, state *State) error {
	if err := a.checkpointer.Save(ctx, threadID, state.Messages()); err != nil {
		return fmt.Errorf("save checkpoint: %w", err)
	}
	return nil
}

func toolError(err error) string {
	b, _ := json.Marshal(map[string]string{"error": err.Error()})
	return string(b)
}

// decide turns a provider response into a Decision. Missing or repeated call
// ids are replaced so every call can be answered exactly once.
func decide(resp *ai.ChatResponse) Decision {
	if len(resp.ToolCalls) == 0 {
		return FinalAnswer{Text: resp.Content}
	}
	seen := make(map[string]bool, len(resp.ToolCalls))
	calls := make([]ToolCall, 0, len(resp.ToolCalls))
	for _, tc := range resp.ToolCalls {
		id := tc.ID
		if id == "" || seen[id] {
			id = "call_" + shortuuid.New()
		}
		seen[id] = true
		calls = append(calls, ToolCall{ID: id, Name: tc.Function.Name, Args: tc.Function.Arguments})
	}
	return ToolRequests{Text: resp.Content, Calls: calls}
}

func toProviderMessages(system string, log []Message) []ai.Message {
	out := make([]ai.Message, 0, len(log)+1)
	out = append(out, ai.SystemPrompt(system))
	for _, m := range log {
		switch m.Type {
		case MessageHuman:
			out = append(out, ai.UserMessage(m.Content))
		case MessageAI:
			calls := make([]ai.ToolCall, len(m.ToolCalls))
			for i, c := range m.ToolCalls {
				calls[i] = ai.ToolCall{ID: c.ID, Type: "function", Function: ai.FunctionCall{Name: c.Name, Arguments: c.Args}}
			}
			out = append(out, ai.AssistantMessage(m.Content, calls...))
		case MessageTool:
			out = append(out, ai.ToolResultMessage(m.ToolCallID, m.Name, m.Content))
		}
	}
	return out
}

func emit(callback EventCallback, eventType string, data any) {
	if callback == nil {
		return
	}
	if err := callback(eventType, data); err != nil {
		slog.Warn("agent event callback failed", "event", eventType, "error", err)
	}
}
