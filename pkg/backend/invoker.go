// Package backend invokes generative-text backends with an already encoded
// request body.
package backend

import "context"

// Invoker sends a request body to a backend model and returns the raw
// response body. Implementations do not retry.
type Invoker interface {
	Invoke(ctx context.Context, backendID string, payload []byte) ([]byte, error)
}

// InvokerFunc adapts a function to the Invoker interface
type InvokerFunc func(ctx context.Context, backendID string, payload []byte) ([]byte, error)

// Invoke calls f
func (f InvokerFunc) Invoke(ctx context.Context, backendID string, payload []byte) ([]byte, error) {
	return f(ctx, backendID, payload)
}
