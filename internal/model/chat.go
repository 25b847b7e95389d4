package model

import "encoding/json"

// ChatMessage is one turn of a scan-context chat conversation.
type ChatMessage struct {
	// Role is either "user" or "assistant".
	Role string `json:"role"`

	// Content is the message text.
	Content string `json:"content"`
}

// ChatRequest is the request body for the chat endpoint. The scan context
// travels with the request so the backend does not need to re-read the scan.
type ChatRequest struct {
	// Message is the new user message.
	Message string `json:"message"`

	// History holds prior turns of the conversation, oldest first.
	History []ChatMessage `json:"history"`

	// APIKey authenticates the request against the AI backend.
	// It is an opaque secret; never log it.
	APIKey string `json:"api_key"`

	// ScanContext is the scan data the conversation is about.
	ScanContext json.RawMessage `json:"scan_context,omitempty"`
}

// ChatResponse is the chat endpoint's reply.
type ChatResponse struct {
	// Response is the assistant's message text.
	Response string `json:"response"`

	// Status is the backend's result indicator (e.g. "success").
	Status string `json:"status,omitempty"`
}
