// Package session manages the opaque tokens handed out after a successful
// password login.
//
// A session is nothing but a random token with an expiry: there is a single
// shared password, so no identity is attached. Two store implementations are
// provided - an ephemeral in-memory store and a persistent BadgerDB store
// that survives restarts - selected through configuration.
package session

import "context"

// Store is the server-side session token store.
//
// Implementations must be safe for concurrent use; every HTTP request
// validates a token.
type Store interface {
	// Create mints a new session token with the store's configured TTL.
	Create(ctx context.Context) (string, error)

	// Validate reports whether the token identifies a live, unexpired
	// session. Unknown and expired tokens both report false without error.
	Validate(ctx context.Context, token string) (bool, error)

	// Destroy invalidates a session token. Destroying an unknown token is
	// not an error.
	Destroy(ctx context.Context, token string) error

	// Close releases any resources held by the store.
	Close() error
}
