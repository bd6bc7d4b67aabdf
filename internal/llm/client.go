package llm

import (
	"context"
)

// Request is a single prompt completion request.
type Request struct {
	Prompt      string
	MaxTokens   int
	Temperature float64
}

// Response carries the model's text output.
type Response struct {
	Content    string
	StopReason string
}

// Client abstracts the completion capability so the scoring engine can be
// tested without network calls.
type Client interface {
	InvokeModel(ctx context.Context, request Request) (*Response, error)
	InvokeModelWithRetry(ctx context.Context, request Request) (*Response, error)
}
