package agent

import (
	"fmt"
	"slices"
	"time"

	"github.com/lithammer/shortuuid/v4"
)

// MessageType is the author of a Message.
type MessageType string

const (
	MessageHuman MessageType = "human"
	MessageAI    MessageType = "ai"
	MessageTool  MessageType = "tool"
)

// ToolCall is a tool invocation requested by the model.
// Args is the raw JSON argument object as produced by the model.
type ToolCall struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Args string `json:"args"`
}

// Message is one turn of a conversation.
type Message struct {
	ID      string      `json:"id"`
	Type    MessageType `json:"type"`
	Content string      `json:"content"`
	// ToolCalls is only set on ai messages.
	ToolCalls []ToolCall `json:"tool_calls,omitempty"`
	// ToolCallID and Name are only set on tool messages.
	ToolCallID string `json:"tool_call_id,omitempty"`
	Name       string `json:"name,omitempty"`
	CreatedTs  int64  `json:"created_ts"`
}

func newMessage(t MessageType, content string) Message {
	return Message{
		ID:        shortuuid.New(),
		Type:      t,
		Content:   content,
		CreatedTs: time.Now().Unix(),
	}
}

// NewHumanMessage creates a user-authored message.
func NewHumanMessage(content string) Message {
	return newMessage(MessageHuman, content)
}

// NewAIMessage creates a model-authored message, optionally requesting tools.
func NewAIMessage(content string, calls ...ToolCall) Message {
	m := newMessage(MessageAI, content)
	if len(calls) > 0 {
		m.ToolCalls = slices.Clone(calls)
	}
	return m
}

// NewToolMessage creates the result of the tool call identified by callID.
func NewToolMessage(callID, name, content string) Message {
	m := newMessage(MessageTool, content)
	m.ToolCallID = callID
	m.Name = name
	return m
}

// State is the append-only message log of one thread.
// Append is its only mutating operation.
type State struct {
	messages []Message
}

// NewState builds a State by appending msgs in order.
func NewState(msgs ...Message) (*State, error) {
	s := &State{}
	if err := s.Append(msgs...); err != nil {
		return nil, err
	}
	return s, nil
}

// Append adds msgs to the end of the log. Either every message is appended
// or, when one is rejected, none is.
func (s *State) Append(msgs ...Message) error {
	next := slices.Clip(s.messages)
	for _, m := range msgs {
		if err := validateNext(next, m); err != nil {
			return err
		}
		next = append(next, m)
	}
	s.messages = next
	return nil
}

// Messages returns a copy of the log.
func (s *State) Messages() []Message {
	return slices.Clone(s.messages)
}

func (s *State) Len() int {
	return len(s.messages)
}

// Last returns the most recent message.
func (s *State) Last() (Message, bool) {
	if len(s.messages) == 0 {
		return Message{}, false
	}
	return s.messages[len(s.messages)-1], true
}

// PendingToolCalls returns the calls of the nearest ai message that have no
// tool answer yet.
func (s *State) PendingToolCalls() []ToolCall {
	requester, answered := trailingToolRun(s.messages)
	if requester < 0 {
		return nil
	}
	var pending []ToolCall
	for _, call := range s.messages[requester].ToolCalls {
		if !answered[call.ID] {
			pending = append(pending, call)
		}
	}
	return pending
}

// trailingToolRun finds the ai message that precedes the trailing run of tool
// messages and the call ids that run already answers. requester is -1 when
// there is no such ai message.
func trailingToolRun(msgs []Message) (requester int, answered map[string]bool) {
	answered = map[string]bool{}
	i := len(msgs) - 1
	for ; i >= 0 && msgs[i].Type == MessageTool; i-- {
		answered[msgs[i].ToolCallID] = true
	}
	if i < 0 || msgs[i].Type != MessageAI {
		return -1, answered
	}
	return i, answered
}

func validateNext(log []Message, m Message) error {
	switch m.Type {
	case MessageHuman, MessageAI:
		return nil
	case MessageTool:
		requester, answered := trailingToolRun(log)
		if requester < 0 {
			return fmt.Errorf("%w: tool message %q does not follow an ai message", ErrInvalidMessage, m.ToolCallID)
		}
		if answered[m.ToolCallID] {
			return fmt.Errorf("%w: tool call %q already answered", ErrInvalidMessage, m.ToolCallID)
		}
		for _, call := range log[requester].ToolCalls {
			if call.ID == m.ToolCallID {
				return nil
			}
		}
		return fmt.Errorf("%w: tool call %q was not requested", ErrInvalidMessage, m.ToolCallID)
	default:
		return fmt.Errorf("%w: unknown message type %q", ErrInvalidMessage, m.Type)
	}
}
