package statecache

import (
	"path/filepath"
	"testing"
)

func TestRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.db")
	cache, err := Open(path)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer cache.Close()

	if _, ok, err := cache.Get(KeyAccessToken); err != nil || ok {
		t.Fatalf("Get on empty cache = ok:%v err:%v, want absent", ok, err)
	}

	if err := cache.Set(KeyAccessToken, "token-1"); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	value, ok, err := cache.Get(KeyAccessToken)
	if err != nil || !ok || value != "token-1" {
		t.Fatalf("Get() = %q, ok:%v, err:%v", value, ok, err)
	}

	// Overwrite replaces the previous value.
	if err := cache.Set(KeyAccessToken, "token-2"); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	value, _, _ = cache.Get(KeyAccessToken)
	if value != "token-2" {
		t.Errorf("value = %q, want token-2", value)
	}

	if err := cache.Delete(KeyAccessToken); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, ok, _ := cache.Get(KeyAccessToken); ok {
		t.Error("key still present after delete")
	}

	// Deleting an absent key is a no-op.
	if err := cache.Delete("never-set"); err != nil {
		t.Errorf("Delete absent key error = %v", err)
	}
}

func TestPersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "dir", "state.db")

	cache, err := Open(path)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	if err := cache.Set(KeyCurrentProject, "p1"); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	if err := cache.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	reopened, err := Open(path)
	if err != nil {
		t.Fatalf("reopen error = %v", err)
	}
	defer reopened.Close()

	value, ok, err := reopened.Get(KeyCurrentProject)
	if err != nil || !ok || value != "p1" {
		t.Errorf("Get() after reopen = %q, ok:%v, err:%v; want p1", value, ok, err)
	}
}
