package core

import (
	"time"

	"github.com/google/uuid"
)

// MessageType categorizes messages in a session's conversation history.
type MessageType string

const (
	// MessageTypeUserQuery marks a message submitted by the end user.
	MessageTypeUserQuery MessageType = "user_query"
	// MessageTypeAgentResponse marks a message produced by an agent.
	MessageTypeAgentResponse MessageType = "agent_response"
	// MessageTypeHandoff marks a control transfer between agents.
	MessageTypeHandoff MessageType = "handoff"
	// MessageTypeSystemNotification marks an engine-generated notice.
	MessageTypeSystemNotification MessageType = "system_notification"
)

// Message is an immutable record in a session's ordered conversation history.
// Messages are created once, appended to SessionState.History and never
// mutated or deleted (retention cleanup in the memory layer aside).
type Message struct {
	// ID uniquely identifies the message.
	ID string `json:"id"`
	// Type categorizes the message.
	Type MessageType `json:"type"`
	// Sender names the originating agent role, or "user".
	Sender string `json:"sender"`
	// Content is the message text.
	Content string `json:"content"`
	// Timestamp records creation time (UTC).
	Timestamp time.Time `json:"timestamp"`
	// Metadata carries optional structured context.
	Metadata map[string]any `json:"metadata,omitempty"`
}

// NewID generates a unique identifier for messages, queries and sessions.
func NewID() string { return uuid.NewString() }

// NewMessage creates a message of the given type.
func NewMessage(msgType MessageType, sender, content string) Message {
	return Message{
		ID:        NewID(),
		Type:      msgType,
		Sender:    sender,
		Content:   content,
		Timestamp: time.Now().UTC(),
		Metadata:  map[string]any{},
	}
}

// NewUserMessage creates a user query message.
func NewUserMessage(content string) Message {
	return NewMessage(MessageTypeUserQuery, "user", content)
}

// NewAgentMessage creates an agent response message for the given role.
func NewAgentMessage(role AgentRole, content string) Message {
	return NewMessage(MessageTypeAgentResponse, string(role), content)
}

// NewHandoffMessage creates a handoff message recording a control transfer
// from one agent to another together with the routing reason.
func NewHandoffMessage(from, to AgentRole, reason string) Message {
	msg := NewMessage(MessageTypeHandoff, string(from), "Transferring to "+string(to)+": "+reason)
	msg.Metadata["from_agent"] = string(from)
	msg.Metadata["to_agent"] = string(to)
	msg.Metadata["reason"] = reason
	return msg
}

// NewSystemMessage creates a system notification message.
func NewSystemMessage(content string) Message {
	return NewMessage(MessageTypeSystemNotification, "system", content)
}
