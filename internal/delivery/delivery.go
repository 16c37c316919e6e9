// Package delivery holds the servers that expose the usecases to the outside world.
package delivery

import "context"

// Delivery is a long-running server started by the application entrypoint.
type Delivery interface {
	// Serve blocks until the server stops. A clean shutdown returns nil.
	Serve(ctx context.Context) error
}
