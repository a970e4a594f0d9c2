// internal/idp/config.go
package idp

import "time"

// Config carries everything needed to talk to the identity provider.
// It is passed in at construction time so tests can point the client at a
// fake provider; nothing in this package reads ambient globals.
type Config struct {
	// BaseURL is the provider root, e.g. https://xyz.supabase.co
	BaseURL string
	// AnonKey authenticates the application itself (apikey header and the
	// default bearer token when no user session is attached).
	AnonKey string
	// ServiceRoleKey is the elevated key for admin operations. Optional;
	// never sent on user-facing flows.
	ServiceRoleKey string
	// SiteURL is the public origin of this application, used to build
	// email-confirmation and OAuth redirect targets.
	SiteURL string
	// Timeout bounds every provider round trip.
	Timeout time.Duration
}

func (c Config) timeout() time.Duration {
	if c.Timeout <= 0 {
		return 10 * time.Second
	}
	return c.Timeout
}
