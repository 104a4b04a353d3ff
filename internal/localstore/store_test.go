package localstore

import (
	"path/filepath"
	"testing"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestKVRoundTrip(t *testing.T) {
	s := openTestStore(t)

	if _, ok, err := s.Get(KeyToken); err != nil || ok {
		t.Fatalf("empty store: ok=%v err=%v", ok, err)
	}

	if err := s.Put(KeyToken, "tok-1"); err != nil {
		t.Fatalf("put: %v", err)
	}
	got, ok, err := s.Get(KeyToken)
	if err != nil || !ok || got != "tok-1" {
		t.Fatalf("get = %q ok=%v err=%v", got, ok, err)
	}

	// Overwrite.
	if err := s.Put(KeyToken, "tok-2"); err != nil {
		t.Fatalf("put: %v", err)
	}
	got, _, _ = s.Get(KeyToken)
	if got != "tok-2" {
		t.Errorf("overwrite got %q", got)
	}

	if err := s.Delete(KeyToken); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, ok, _ := s.Get(KeyToken); ok {
		t.Errorf("key survived delete")
	}
}

func TestKVKeysAreIndependent(t *testing.T) {
	s := openTestStore(t)

	if err := s.Put(KeyToken, "tok"); err != nil {
		t.Fatalf("put: %v", err)
	}
	if err := s.Put(KeyPendingInvite, "ABC123"); err != nil {
		t.Fatalf("put: %v", err)
	}
	if err := s.Delete(KeyToken); err != nil {
		t.Fatalf("delete: %v", err)
	}

	got, ok, err := s.Get(KeyPendingInvite)
	if err != nil || !ok || got != "ABC123" {
		t.Errorf("pending invite = %q ok=%v err=%v", got, ok, err)
	}
}

func TestNilStoreIsNoOp(t *testing.T) {
	var s *Store
	if err := s.Put("k", "v"); err != nil {
		t.Errorf("nil put: %v", err)
	}
	if _, ok, err := s.Get("k"); ok || err != nil {
		t.Errorf("nil get: ok=%v err=%v", ok, err)
	}
	s.ArchivePush("matches", []byte("{}"))
}
