package config

import (
	"context"
	"strings"
	"testing"
	"time"
)

func TestCreateSessionStore_Memory(t *testing.T) {
	ctx := context.Background()
	cfg := &SessionsConfig{
		Type:   "memory",
		TTL:    time.Hour,
		Memory: map[string]any{},
	}

	store, err := CreateSessionStore(ctx, cfg)
	if err != nil {
		t.Fatalf("Failed to create memory session store: %v", err)
	}
	defer store.Close()

	if store == nil {
		t.Fatal("Expected non-nil store")
	}
}

func TestCreateSessionStore_MemoryUnknownOption(t *testing.T) {
	ctx := context.Background()
	cfg := &SessionsConfig{
		Type: "memory",
		TTL:  time.Hour,
		Memory: map[string]any{
			"sweep_interval": "5m",
		},
	}

	if _, err := CreateSessionStore(ctx, cfg); err == nil {
		t.Fatal("Expected error for unknown memory store option")
	}
}

func TestCreateSessionStore_Badger(t *testing.T) {
	ctx := context.Background()
	cfg := &SessionsConfig{
		Type: "badger",
		TTL:  time.Hour,
		Badger: map[string]any{
			"db_path": t.TempDir(),
		},
	}

	store, err := CreateSessionStore(ctx, cfg)
	if err != nil {
		t.Fatalf("Failed to create badger session store: %v", err)
	}
	defer store.Close()

	token, err := store.Create(ctx)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	ok, err := store.Validate(ctx, token)
	if err != nil {
		t.Fatalf("Validate failed: %v", err)
	}
	if !ok {
		t.Error("Fresh token failed validation")
	}
}

func TestCreateSessionStore_BadgerMissingPath(t *testing.T) {
	ctx := context.Background()
	cfg := &SessionsConfig{
		Type:   "badger",
		TTL:    time.Hour,
		Badger: map[string]any{},
	}

	_, err := CreateSessionStore(ctx, cfg)
	if err == nil {
		t.Fatal("Expected error for missing db_path")
	}
	if !strings.Contains(err.Error(), "db_path") {
		t.Errorf("Expected 'db_path' error, got: %v", err)
	}
}

func TestCreateSessionStore_UnknownType(t *testing.T) {
	ctx := context.Background()
	cfg := &SessionsConfig{
		Type: "redis",
		TTL:  time.Hour,
	}

	_, err := CreateSessionStore(ctx, cfg)
	if err == nil {
		t.Fatal("Expected error for unknown store type")
	}
	if !strings.Contains(err.Error(), "unknown session store type") {
		t.Errorf("Expected unknown type error, got: %v", err)
	}
}
