package workspace

import (
	"path/filepath"
	"sync"
	"testing"
)

func TestStoreSaveAndLoad(t *testing.T) {
	store, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	result, err := store.Save("abc123", "console.log('hi')")
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if result.CodeID != "abc123" {
		t.Fatalf("CodeID = %q, want abc123", result.CodeID)
	}
	if result.Size != len("console.log('hi')") {
		t.Fatalf("Size = %d, want %d", result.Size, len("console.log('hi')"))
	}

	got, err := store.Load("abc123")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got != "console.log('hi')" {
		t.Fatalf("Load = %q, want console.log('hi')", got)
	}

	if !store.Exists("abc123") {
		t.Fatal("Exists = false, want true")
	}
	if store.Exists("does-not-exist") {
		t.Fatal("Exists = true for unsaved codeId")
	}
}

func TestStorePathJoinsUnderDir(t *testing.T) {
	store, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	got := store.Path("abc123")
	want := filepath.Join(store.Dir(), "abc123.ts")
	if got != want {
		t.Fatalf("Path = %q, want %q", got, want)
	}
}

// TestStoreSaveIsAtomic is the atomic-write invariant: a concurrent Load
// never observes a partially written file, only the fully-written content
// of whichever Save won the final rename.
func TestStoreSaveIsAtomic(t *testing.T) {
	store, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	const bodyA = "aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa"
	const bodyB = "bbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb"

	if _, err := store.Save("race", bodyA); err != nil {
		t.Fatalf("seed Save: %v", err)
	}

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		_, _ = store.Save("race", bodyA)
	}()
	go func() {
		defer wg.Done()
		_, _ = store.Save("race", bodyB)
	}()
	wg.Wait()

	got, err := store.Load("race")
	if err != nil {
		t.Fatalf("Load after concurrent saves: %v", err)
	}
	if got != bodyA && got != bodyB {
		t.Fatalf("Load returned neither full write: got %q", got)
	}
}
