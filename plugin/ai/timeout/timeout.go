// Package timeout defines centralized timeout constants for AI operations.
package timeout

import "time"

const (
	// AgentTimeout is the default deadline for one chat request, covering every model and tool step.
	AgentTimeout = 2 * time.Minute

	// ToolExecutionTimeout is the timeout for individual tool execution.
	ToolExecutionTimeout = 30 * time.Second

	// EmbeddingTimeout is the timeout for one embedding batch.
	EmbeddingTimeout = 30 * time.Second

	// RecursionLimit is the default number of agent and tool steps allowed per invocation.
	RecursionLimit = 15

	// MaxTruncateLength is the maximum length for truncating strings in logs.
	MaxTruncateLength = 200
)
