// Package dispatch routes chat messages to registered commands. It owns
// the message envelope, the command interface, and the registry that
// commands join at init time.
package dispatch

import (
	"time"

	"github.com/google/uuid"
)

// UserMessage is an inbound chat message from any channel.
type UserMessage struct {
	// MessageID identifies the message on its originating channel.
	MessageID string `json:"message_id"`

	// ChannelType is the transport the message arrived on ("nats", "cli").
	ChannelType string `json:"channel_type"`

	// ChannelID identifies the conversation for response routing.
	ChannelID string `json:"channel_id"`

	// UserID identifies the sender.
	UserID string `json:"user_id"`

	// Content is the raw message text.
	Content string `json:"content"`

	// Timestamp is when the message was sent.
	Timestamp time.Time `json:"timestamp"`
}

// Response types.
const (
	ResponseTypeResult = "result"
	ResponseTypeError  = "error"
)

// UserResponse is the reply sent back to the originating channel.
type UserResponse struct {
	// ResponseID uniquely identifies this response.
	ResponseID string `json:"response_id"`

	// InReplyTo is the MessageID this responds to.
	InReplyTo string `json:"in_reply_to"`

	// ChannelType mirrors the inbound channel type.
	ChannelType string `json:"channel_type"`

	// ChannelID mirrors the inbound channel for routing.
	ChannelID string `json:"channel_id"`

	// Type is "result" or "error".
	Type string `json:"type"`

	// Content is the markdown response body.
	Content string `json:"content"`

	// Command is the command that produced this response, if any.
	Command string `json:"command,omitempty"`

	// Timestamp is when the response was produced.
	Timestamp time.Time `json:"timestamp"`
}

// NewResponse builds a result response for a message.
func NewResponse(msg UserMessage, command, content string) UserResponse {
	return UserResponse{
		ResponseID:  uuid.New().String(),
		InReplyTo:   msg.MessageID,
		ChannelType: msg.ChannelType,
		ChannelID:   msg.ChannelID,
		Type:        ResponseTypeResult,
		Content:     content,
		Command:     command,
		Timestamp:   time.Now().UTC(),
	}
}

// NewErrorResponse builds an error response for a message.
func NewErrorResponse(msg UserMessage, command, content string) UserResponse {
	resp := NewResponse(msg, command, content)
	resp.Type = ResponseTypeError
	return resp
}
