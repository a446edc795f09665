package config

import (
	"context"
	"fmt"

	"github.com/mitchellh/mapstructure"
	"github.com/stashbox/stashd/internal/logger"
	"github.com/stashbox/stashd/pkg/session"
	sessionBadger "github.com/stashbox/stashd/pkg/session/badger"
	sessionMemory "github.com/stashbox/stashd/pkg/session/memory"
)

// CreateSessionStore creates a session store based on configuration.
//
// This factory function uses the Type field to determine which store
// implementation to create, then decodes the type-specific configuration
// from the corresponding map and passes it to the store's constructor.
//
// Supported types:
//   - "memory": Uses pkg/session/memory (ephemeral, lost on restart)
//   - "badger": Uses pkg/session/badger (persistent, TTL-expired)
//
// Parameters:
//   - ctx: Context for initialization operations
//   - cfg: Session store configuration
//
// Returns:
//   - session.Store: Initialized session store
//   - error: Configuration or initialization error
func CreateSessionStore(ctx context.Context, cfg *SessionsConfig) (session.Store, error) {
	switch cfg.Type {
	case "memory":
		return createMemorySessionStore(ctx, cfg)
	case "badger":
		return createBadgerSessionStore(ctx, cfg)
	default:
		return nil, fmt.Errorf("unknown session store type: %q (supported: memory, badger)", cfg.Type)
	}
}

// createMemorySessionStore creates an in-memory session store.
func createMemorySessionStore(ctx context.Context, cfg *SessionsConfig) (session.Store, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// The memory store currently has no type-specific options; decode the
	// section anyway so unknown keys fail loudly instead of being ignored.
	type MemorySessionStoreOptions struct{}

	var storeOpts MemorySessionStoreOptions
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		ErrorUnused: true,
		Result:      &storeOpts,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create decoder: %w", err)
	}
	if err := decoder.Decode(cfg.Memory); err != nil {
		return nil, fmt.Errorf("failed to decode memory session store options: %w", err)
	}

	return sessionMemory.NewMemorySessionStore(cfg.TTL), nil
}

// createBadgerSessionStore creates a BadgerDB-backed persistent session store.
func createBadgerSessionStore(ctx context.Context, cfg *SessionsConfig) (session.Store, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// Decode store-specific options
	type BadgerSessionStoreOptions struct {
		DBPath   string `mapstructure:"db_path"`
		InMemory bool   `mapstructure:"in_memory"`
	}

	var storeOpts BadgerSessionStoreOptions
	if err := mapstructure.Decode(cfg.Badger, &storeOpts); err != nil {
		return nil, fmt.Errorf("failed to decode badger session store options: %w", err)
	}

	// Validate required fields
	if storeOpts.DBPath == "" && !storeOpts.InMemory {
		return nil, fmt.Errorf("badger session store: db_path is required")
	}

	store, err := sessionBadger.NewBadgerSessionStore(ctx, sessionBadger.BadgerSessionStoreConfig{
		DBPath:   storeOpts.DBPath,
		TTL:      cfg.TTL,
		InMemory: storeOpts.InMemory,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create badger session store: %w", err)
	}

	logger.Info("Badger session store initialized: path=%s, ttl=%s", storeOpts.DBPath, cfg.TTL)

	return store, nil
}
