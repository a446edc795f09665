package memory

import (
	"context"
	"testing"
	"time"
)

// TestCreateValidate verifies the basic token lifecycle.
func TestCreateValidate(t *testing.T) {
	ctx := context.Background()
	store := NewMemorySessionStore(time.Hour)
	defer store.Close()

	token, err := store.Create(ctx)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if token == "" {
		t.Fatal("Create returned empty token")
	}

	ok, err := store.Validate(ctx, token)
	if err != nil {
		t.Fatalf("Validate failed: %v", err)
	}
	if !ok {
		t.Error("Fresh token failed validation")
	}
}

// TestValidateUnknownToken verifies unknown tokens are invalid, not errors.
func TestValidateUnknownToken(t *testing.T) {
	ctx := context.Background()
	store := NewMemorySessionStore(time.Hour)
	defer store.Close()

	ok, err := store.Validate(ctx, "no-such-token")
	if err != nil {
		t.Fatalf("Validate failed: %v", err)
	}
	if ok {
		t.Error("Unknown token validated successfully")
	}
}

// TestDestroy verifies destroyed tokens stop validating and that destroying
// an unknown token is not an error.
func TestDestroy(t *testing.T) {
	ctx := context.Background()
	store := NewMemorySessionStore(time.Hour)
	defer store.Close()

	token, err := store.Create(ctx)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	if err := store.Destroy(ctx, token); err != nil {
		t.Fatalf("Destroy failed: %v", err)
	}

	ok, err := store.Validate(ctx, token)
	if err != nil {
		t.Fatalf("Validate failed: %v", err)
	}
	if ok {
		t.Error("Destroyed token still validates")
	}

	if err := store.Destroy(ctx, "no-such-token"); err != nil {
		t.Errorf("Destroy of unknown token returned error: %v", err)
	}
}

// TestExpiry verifies tokens stop validating after the TTL elapses.
func TestExpiry(t *testing.T) {
	ctx := context.Background()
	store := NewMemorySessionStore(10 * time.Millisecond)
	defer store.Close()

	token, err := store.Create(ctx)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	time.Sleep(30 * time.Millisecond)

	ok, err := store.Validate(ctx, token)
	if err != nil {
		t.Fatalf("Validate failed: %v", err)
	}
	if ok {
		t.Error("Expired token still validates")
	}
}

// TestTokensAreUnique verifies distinct sessions get distinct tokens.
func TestTokensAreUnique(t *testing.T) {
	ctx := context.Background()
	store := NewMemorySessionStore(time.Hour)
	defer store.Close()

	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		token, err := store.Create(ctx)
		if err != nil {
			t.Fatalf("Create failed: %v", err)
		}
		if seen[token] {
			t.Fatalf("Duplicate token issued: %s", token)
		}
		seen[token] = true
	}
}

// TestCancelledContext verifies all operations honor cancellation.
func TestCancelledContext(t *testing.T) {
	store := NewMemorySessionStore(time.Hour)
	defer store.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := store.Create(ctx); err == nil {
		t.Error("Create with cancelled context succeeded")
	}
	if _, err := store.Validate(ctx, "x"); err == nil {
		t.Error("Validate with cancelled context succeeded")
	}
	if err := store.Destroy(ctx, "x"); err == nil {
		t.Error("Destroy with cancelled context succeeded")
	}
}
