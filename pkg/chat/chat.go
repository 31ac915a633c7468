// Package chat defines the conversation data model shared by the streaming
// runtime, the thread store and the HTTP API: messages, their typed parts,
// and the lifecycle status of an in-flight request.
package chat

import (
	"github.com/google/uuid"
)

// MessageRole identifies the author of a message.
type MessageRole string

const (
	MessageRoleUser      MessageRole = "user"
	MessageRoleAssistant MessageRole = "assistant"
	MessageRoleSystem    MessageRole = "system"
)

// PartType discriminates the MessagePart variants.
type PartType string

const (
	PartTypeText             PartType = "text"
	PartTypeImage            PartType = "image"
	PartTypeToolCall         PartType = "tool-call"
	PartTypeToolResult       PartType = "tool-result"
	PartTypeSuggestedQueries PartType = "suggested-queries"
)

// MessagePart is one typed fragment of a message. Only the fields relevant
// to its Type are set; the rest stay at their zero value and are omitted
// from JSON.
type MessagePart struct {
	Type PartType `json:"type"`

	// Text part
	Text string `json:"text,omitempty"`

	// Image part
	ImageData string `json:"imageData,omitempty"`
	ImageName string `json:"imageName,omitempty"`
	ImageType string `json:"imageType,omitempty"`

	// Tool call / tool result parts
	ToolCallID string         `json:"toolCallId,omitempty"`
	ToolName   string         `json:"toolName,omitempty"`
	ToolArgs   map[string]any `json:"toolArgs,omitempty"`
	ToolResult any            `json:"toolResult,omitempty"`

	// Suggested queries part
	Queries []string `json:"queries,omitempty"`
}

// TextPart builds a text part.
func TextPart(text string) MessagePart {
	return MessagePart{Type: PartTypeText, Text: text}
}

// ImagePart builds an image part from base64 data and its metadata.
func ImagePart(data, name, mimeType string) MessagePart {
	return MessagePart{Type: PartTypeImage, ImageData: data, ImageName: name, ImageType: mimeType}
}

// ToolCallPart builds a tool-call part.
func ToolCallPart(callID, name string, args map[string]any) MessagePart {
	return MessagePart{Type: PartTypeToolCall, ToolCallID: callID, ToolName: name, ToolArgs: args}
}

// ToolResultPart builds a tool-result part.
func ToolResultPart(callID string, result any) MessagePart {
	return MessagePart{Type: PartTypeToolResult, ToolCallID: callID, ToolResult: result}
}

// ChatMessage is one turn of a conversation. A message exclusively owns its
// parts; Content carries the plain-text summary used for titles, context
// hashing and upstream prompts.
type ChatMessage struct {
	ID      string        `json:"id"`
	Role    MessageRole   `json:"role"`
	Content string        `json:"content"`
	Parts   []MessagePart `json:"parts"`
}

// NewUserMessage creates a user message with the given parts. When no parts
// are given a single text part is synthesized from content.
func NewUserMessage(content string, parts ...MessagePart) ChatMessage {
	if len(parts) == 0 {
		parts = []MessagePart{TextPart(content)}
	}
	return ChatMessage{
		ID:      uuid.New().String(),
		Role:    MessageRoleUser,
		Content: content,
		Parts:   parts,
	}
}

// NewAssistantMessage creates an assistant message with the given parts.
func NewAssistantMessage(content string, parts ...MessagePart) ChatMessage {
	if len(parts) == 0 {
		parts = []MessagePart{TextPart(content)}
	}
	return ChatMessage{
		ID:      uuid.New().String(),
		Role:    MessageRoleAssistant,
		Content: content,
		Parts:   parts,
	}
}

// RequestStatus is the lifecycle state of one in-flight chat request.
type RequestStatus string

const (
	StatusIdle      RequestStatus = "idle"
	StatusSubmitted RequestStatus = "submitted"
	StatusStreaming RequestStatus = "streaming"
	StatusError     RequestStatus = "error"
)

// LastByRole returns the most recent message with the given role, or false
// when none exists.
func LastByRole(messages []ChatMessage, role MessageRole) (ChatMessage, bool) {
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role == role {
			return messages[i], true
		}
	}
	return ChatMessage{}, false
}
