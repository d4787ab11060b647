// Package generation defines the chat-completion collaborator used to
// synthesize answers from retrieved context.
package generation

import (
	"context"
	"errors"
)

// ErrGeneration is wrapped by every failure of a Generator.
var ErrGeneration = errors.New("generation failed")

// Request is a single system/user prompt pair.
type Request struct {
	System string
	Prompt string
}

// Response is the generated answer.
type Response struct {
	// Model that generated the response
	Model string

	Text string

	// Stop reason (e.g., "stop", "length")
	StopReason string

	Usage *Usage
}

// Usage contains token counts reported by the backend.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens,omitempty"`
	CompletionTokens int `json:"completion_tokens,omitempty"`
	TotalTokens      int `json:"total_tokens,omitempty"`
}

// Generator produces free text for a prompt.
type Generator interface {
	Generate(ctx context.Context, req Request) (*Response, error)
}
