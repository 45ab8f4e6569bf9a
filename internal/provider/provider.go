// Package provider defines the Provider interface for chat completion
// backends and the Completer that collapses every outcome into an optional
// reply.
package provider

import "context"

// ServiceName is the AppContext service under which the loaded provider
// module registers itself during Provision.
const ServiceName = "provider"

// Provider is the interface for communicating with an LLM.
// Concrete implementations live in separate packages (e.g.,
// provider.openai_compatible) and typically also implement core.Module for
// lifecycle management.
type Provider interface {
	// Complete sends a completion request and returns the full response.
	Complete(ctx context.Context, req CompletionRequest) (CompletionResponse, error)

	// ModelName returns the identifier of the configured model.
	ModelName() string
}

// HealthChecker is an optional interface that providers may implement
// to support active health probing from the gateway /health endpoint.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}
