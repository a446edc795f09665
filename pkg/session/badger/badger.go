// Package badger provides a persistent session store backed by BadgerDB.
//
// Sessions survive server restarts, so an operator can roll the process
// without logging every user out. Expiry is delegated to Badger's native
// entry TTL: expired tokens simply stop resolving and are reclaimed by the
// value log garbage collector.
package badger

import (
	"context"
	"errors"
	"fmt"
	"time"

	badger "github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
)

// keyPrefix namespaces session keys inside the database.
const keyPrefix = "session:"

// BadgerSessionStoreConfig configures the BadgerDB session store.
type BadgerSessionStoreConfig struct {
	// DBPath is the directory holding the Badger database files.
	// Required unless InMemory is set.
	DBPath string

	// TTL is the session lifetime applied to every created token.
	TTL time.Duration

	// InMemory runs Badger without touching disk. Used by tests.
	InMemory bool
}

// BadgerSessionStore implements session.Store on BadgerDB.
//
// Thread Safety:
// BadgerDB transactions are safe for concurrent use; the store adds no
// locking of its own.
type BadgerSessionStore struct {
	db  *badger.DB
	ttl time.Duration
}

// NewBadgerSessionStore opens (or creates) the session database.
//
// Parameters:
//   - ctx: Context checked before the open, which can be slow on large
//     value logs
//   - cfg: Store configuration
//
// Returns:
//   - *BadgerSessionStore: Initialized store
//   - error: Configuration or database-open error
func NewBadgerSessionStore(ctx context.Context, cfg BadgerSessionStoreConfig) (*BadgerSessionStore, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if cfg.DBPath == "" && !cfg.InMemory {
		return nil, fmt.Errorf("badger session store: db_path is required")
	}

	opts := badger.DefaultOptions(cfg.DBPath).
		WithInMemory(cfg.InMemory).
		WithLogger(nil)

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open session database: %w", err)
	}

	return &BadgerSessionStore{db: db, ttl: cfg.TTL}, nil
}

// Create mints a new session token with the configured TTL.
func (s *BadgerSessionStore) Create(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	token := uuid.NewString()

	err := s.db.Update(func(txn *badger.Txn) error {
		entry := badger.NewEntry([]byte(keyPrefix+token), []byte{1}).WithTTL(s.ttl)
		return txn.SetEntry(entry)
	})
	if err != nil {
		return "", fmt.Errorf("failed to store session: %w", err)
	}

	return token, nil
}

// Validate reports whether token names a live session. Badger handles
// expiry: an expired entry is indistinguishable from a missing one.
func (s *BadgerSessionStore) Validate(ctx context.Context, token string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	err := s.db.View(func(txn *badger.Txn) error {
		_, err := txn.Get([]byte(keyPrefix + token))
		return err
	})
	if err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("failed to look up session: %w", err)
	}

	return true, nil
}

// Destroy invalidates token. Unknown tokens are ignored.
func (s *BadgerSessionStore) Destroy(ctx context.Context, token string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete([]byte(keyPrefix + token))
	})
	if err != nil {
		return fmt.Errorf("failed to destroy session: %w", err)
	}

	return nil
}

// Close closes the underlying database.
func (s *BadgerSessionStore) Close() error {
	return s.db.Close()
}
