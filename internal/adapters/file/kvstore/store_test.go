package kvstore

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func TestStore_WritesOneFilePerKey(t *testing.T) {
	t.Parallel()

	dir := filepath.Join(t.TempDir(), "nested", "data")
	s := NewStore(dir)
	if err := s.Put(context.Background(), "trips", []byte(`[]`)); err != nil {
		t.Fatalf("Put() err=%v", err)
	}

	b, err := os.ReadFile(filepath.Join(dir, "trips.json"))
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if string(b) != `[]` {
		t.Fatalf("file=%q", b)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("entries=%d, want 1 (temp files must be cleaned up)", len(entries))
	}
}

func TestStore_RejectsPathKeys(t *testing.T) {
	t.Parallel()

	s := NewStore(t.TempDir())
	if err := s.Put(context.Background(), "../escape", []byte(`x`)); err == nil {
		t.Fatalf("expected error for path-like key")
	}
}
