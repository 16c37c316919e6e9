// Package lifecycle holds shared values for component start and stop hooks.
package lifecycle

import "time"

// DefaultTimeout bounds start probes and graceful shutdown of long-lived components.
const DefaultTimeout = 10 * time.Second
