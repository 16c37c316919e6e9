// Package constants holds configuration values shared across layers.
package constants

// Pub/Sub providers accepted in config.
const (
	PubSubProviderNoop   = "noop"
	PubSubProviderLocal  = "local"
	PubSubProviderGoogle = "google"
)

// Transport names reported when a request carries more than one credential.
const (
	AuthSourceHeader = "header"
	AuthSourceCookie = "cookie"
)

// Deployment environments named in config.
const (
	EnvLocal   = "local"
	EnvDevelop = "develop"
)
