// Package ai hides the language model vendors behind a single completion
// call. Providers return raw text or raw tool input; interpreting it is the
// caller's job.
package ai

import (
	"context"
	"encoding/json"
	"errors"
)

// ErrNoContent is returned when a vendor answers without usable content.
var ErrNoContent = errors.New("ai: empty response")

type Provider interface {
	Complete(ctx context.Context, req CompletionRequest) (CompletionResponse, error)
	Name() string
}

// Tool describes a function the model is forced to call. Properties is a
// JSON Schema "properties" object.
type Tool struct {
	Name        string
	Description string
	Properties  map[string]any
	Required    []string
}

type CompletionRequest struct {
	System    string
	Prompt    string
	MaxTokens int
	// Tool, when set, forces a single call of that tool.
	Tool *Tool
}

type Usage struct {
	InputTokens  int64
	OutputTokens int64
}

func (u Usage) TotalTokens() int64 {
	return u.InputTokens + u.OutputTokens
}

func (u *Usage) Add(other Usage) {
	u.InputTokens += other.InputTokens
	u.OutputTokens += other.OutputTokens
}

type CompletionResponse struct {
	Text      string
	ToolInput json.RawMessage
	Usage     Usage
}
