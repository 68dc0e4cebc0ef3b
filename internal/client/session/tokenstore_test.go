package session

import (
	"os"
	"path/filepath"
	"testing"
)

func TestTokenStore_SetGetClear(t *testing.T) {
	store := NewTokenStore("")

	if _, ok := store.Get(); ok {
		t.Error("new store should be empty")
	}

	store.Set("acc-1", "ref-1")
	pair, ok := store.Get()
	if !ok || pair.Access != "acc-1" || pair.Refresh != "ref-1" {
		t.Errorf("Get = %+v ok=%v; want acc-1/ref-1", pair, ok)
	}

	// Set is a full overwrite.
	store.Set("acc-2", "ref-2")
	pair, _ = store.Get()
	if pair.Access != "acc-2" || pair.Refresh != "ref-2" {
		t.Errorf("Get after overwrite = %+v", pair)
	}

	store.Clear()
	if _, ok := store.Get(); ok {
		t.Error("store not empty after Clear")
	}
	// Clear is idempotent.
	store.Clear()
}

func TestTokenStore_PersistAcrossRestart(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tokens.json")

	store := NewTokenStore(path)
	store.Set("acc-1", "ref-1")

	reloaded := NewTokenStore(path)
	if err := reloaded.Load(); err != nil {
		t.Fatalf("Load: %v", err)
	}
	pair, ok := reloaded.Get()
	if !ok || pair.Access != "acc-1" || pair.Refresh != "ref-1" {
		t.Errorf("reloaded pair = %+v ok=%v; want acc-1/ref-1", pair, ok)
	}
}

func TestTokenStore_ClearRemovesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tokens.json")

	store := NewTokenStore(path)
	store.Set("acc-1", "ref-1")
	store.Clear()

	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Errorf("token file still present after Clear: %v", err)
	}

	reloaded := NewTokenStore(path)
	if err := reloaded.Load(); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if _, ok := reloaded.Get(); ok {
		t.Error("reloaded store should be empty after Clear")
	}
}

func TestTokenStore_LoadMissingFile(t *testing.T) {
	store := NewTokenStore(filepath.Join(t.TempDir(), "absent.json"))
	if err := store.Load(); err != nil {
		t.Fatalf("Load of missing file should not error, got %v", err)
	}
	if _, ok := store.Get(); ok {
		t.Error("store should be empty")
	}
}
