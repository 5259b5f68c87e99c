package session

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestMemoryStore(t *testing.T) {
	store := NewMemoryStore()

	if _, err := store.Load(); !errors.Is(err, ErrNoSession) {
		t.Fatalf("Load() on empty store error = %v, want ErrNoSession", err)
	}

	want := Session{Access: "a1", Refresh: "r1"}
	if err := store.Save(want); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	got, err := store.Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if got != want {
		t.Errorf("Load() = %+v, want %+v", got, want)
	}

	if err := store.Clear(); err != nil {
		t.Fatalf("Clear() error = %v", err)
	}
	if _, err := store.Load(); !errors.Is(err, ErrNoSession) {
		t.Errorf("Load() after Clear error = %v, want ErrNoSession", err)
	}
}

func TestFileStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state", "session.json")
	store := NewFileStore(path)

	if _, err := store.Load(); !errors.Is(err, ErrNoSession) {
		t.Fatalf("Load() on missing file error = %v, want ErrNoSession", err)
	}

	want := Session{Access: "access-token", Refresh: "refresh-token"}
	if err := store.Save(want); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("Stat() error = %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0o600 {
		t.Errorf("file mode = %o, want 600", perm)
	}

	got, err := NewFileStore(path).Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if got != want {
		t.Errorf("Load() = %+v, want %+v", got, want)
	}

	if err := store.Clear(); err != nil {
		t.Fatalf("Clear() error = %v", err)
	}
	if err := store.Clear(); err != nil {
		t.Errorf("second Clear() error = %v", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Errorf("session file still present after Clear")
	}
}

func TestFileStoreCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o600); err != nil {
		t.Fatal(err)
	}

	_, err := NewFileStore(path).Load()
	if err == nil || errors.Is(err, ErrNoSession) {
		t.Errorf("Load() error = %v, want decode error", err)
	}
}

func TestContextInvalidate(t *testing.T) {
	store := NewMemoryStore()
	store.Save(Session{Access: "a", Refresh: "r"})

	calls := 0
	ctx := NewContext(store, WithOnInvalid(func() { calls++ }))

	if got := ctx.AccessToken(); got != "a" {
		t.Fatalf("AccessToken() = %q, want %q", got, "a")
	}

	ctx.Invalidate()
	ctx.Invalidate()

	if got := ctx.AccessToken(); got != "" {
		t.Errorf("AccessToken() after Invalidate = %q, want empty", got)
	}
	if calls != 2 {
		t.Errorf("onInvalid calls = %d, want 2", calls)
	}

	select {
	case path := <-ctx.Redirects():
		if path != LoginPath {
			t.Errorf("redirect = %q, want %q", path, LoginPath)
		}
	default:
		t.Fatal("expected a pending redirect")
	}

	select {
	case <-ctx.Redirects():
		t.Error("redirect channel should hold a single pending signal")
	default:
	}
}

func TestContextClearDoesNotRedirect(t *testing.T) {
	store := NewMemoryStore()
	store.Save(Session{Access: "a"})
	ctx := NewContext(store)

	if err := ctx.Clear(); err != nil {
		t.Fatalf("Clear() error = %v", err)
	}

	select {
	case <-ctx.Redirects():
		t.Error("Clear() should not signal a redirect")
	default:
	}
}

func TestNewContextNilStore(t *testing.T) {
	ctx := NewContext(nil)
	if ctx.AccessToken() != "" {
		t.Error("new context should have no token")
	}
	if err := ctx.Save(Session{Access: "x"}); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if ctx.AccessToken() != "x" {
		t.Error("Save() not visible through AccessToken()")
	}
}
