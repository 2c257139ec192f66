// Package llm talks to the structured-output extraction backends and turns
// their replies into typed schema outputs.
package llm

import "context"

// Roles used in chat messages.
const (
	RoleSystem = "system"
	RoleUser   = "user"
)

// Message is one chat turn.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Service performs one structured extraction call. Implementations return a
// value of the concrete output type named by schema, or an error.
type Service interface {
	Extract(ctx context.Context, messages []Message, schema Schema, opts ...CallOption) (Output, error)
}

// CallOptions tunes a single call.
type CallOptions struct {
	TopP *float64
}

// CallOption configures CallOptions.
type CallOption func(*CallOptions)

// WithTopP sets nucleus sampling for one call.
func WithTopP(p float64) CallOption {
	return func(o *CallOptions) { o.TopP = &p }
}

func applyOptions(opts []CallOption) CallOptions {
	var o CallOptions
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// ServiceFunc adapts a function to Service.
type ServiceFunc func(ctx context.Context, messages []Message, schema Schema, opts ...CallOption) (Output, error)

// Extract calls f.
func (f ServiceFunc) Extract(ctx context.Context, messages []Message, schema Schema, opts ...CallOption) (Output, error) {
	return f(ctx, messages, schema, opts...)
}
