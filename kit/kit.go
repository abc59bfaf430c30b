// Package kit provides the endpoint and transport plumbing shared by
// moulinette's surfaces (HTTP, MCP): a transport-agnostic Endpoint type,
// middleware chaining, and request-scoped context accessors.
package kit

import "context"

// Endpoint is a single transport-agnostic operation: typed request in,
// typed response out. Transports decode into it and encode out of it.
type Endpoint func(ctx context.Context, req any) (any, error)

// Middleware wraps an Endpoint with cross-cutting behavior.
type Middleware func(next Endpoint) Endpoint

// Chain composes middlewares so the first listed is outermost: the
// request passes through them in declaration order, the response in
// reverse.
func Chain(mw ...Middleware) Middleware {
	return func(next Endpoint) Endpoint {
		for i := len(mw) - 1; i >= 0; i-- {
			next = mw[i](next)
		}
		return next
	}
}
