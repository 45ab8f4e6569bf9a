// Package router feeds inbound messages from channels to the relay through
// a bounded inbox and a fixed worker pool.
package router

import "errors"

// Sentinel errors for router operations.
var (
	// ErrInboxFull indicates the router's message inbox is at capacity
	// and the incoming message was dropped.
	ErrInboxFull = errors.New("router: inbox full, message dropped")

	// ErrRouterStopped indicates the router has been shut down and is
	// no longer accepting messages.
	ErrRouterStopped = errors.New("router: stopped")

	// ErrNoHandler indicates no message handler has been configured.
	ErrNoHandler = errors.New("router: no handler configured")
)
