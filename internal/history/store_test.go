package history

import (
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"sync"
	"testing"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	return s
}

func TestLoadMissingIsEmpty(t *testing.T) {
	s := newTestStore(t)

	turns, err := s.Load("Nobody")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(turns) != 0 {
		t.Errorf("Load() = %v, want empty", turns)
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	s := newTestStore(t)

	want := []Turn{
		{User: "hi", Agent: "hello!"},
		{User: "what do you do?", Agent: "I build things."},
		{User: "nice", Agent: "thanks"},
	}
	if err := s.Save("Alice", want); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	got, err := s.Load("Alice")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("round trip mismatch:\ngot  %v\nwant %v", got, want)
	}
}

func TestAppendPreservesOrder(t *testing.T) {
	s := newTestStore(t)

	for i := 0; i < 5; i++ {
		turn := Turn{User: fmt.Sprintf("q%d", i), Agent: fmt.Sprintf("a%d", i)}
		if err := s.Append("Bob", turn); err != nil {
			t.Fatalf("Append() error = %v", err)
		}
	}

	turns, err := s.Load("Bob")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(turns) != 5 {
		t.Fatalf("len = %d, want 5", len(turns))
	}
	for i, turn := range turns {
		if turn.User != fmt.Sprintf("q%d", i) {
			t.Errorf("turn %d = %v, out of order", i, turn)
		}
	}
}

func TestConcurrentAppendsSameIdentity(t *testing.T) {
	s := newTestStore(t)

	const n = 20
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			turn := Turn{User: fmt.Sprintf("q%d", i), Agent: "a"}
			if err := s.Append("Carol", turn); err != nil {
				t.Errorf("Append() error = %v", err)
			}
		}(i)
	}
	wg.Wait()

	turns, err := s.Load("Carol")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(turns) != n {
		t.Errorf("len = %d, want %d (no appends may be dropped)", len(turns), n)
	}
}

func TestIdentityFilenameEscaping(t *testing.T) {
	dir := t.TempDir()
	s, err := NewStore(dir)
	if err != nil {
		t.Fatal(err)
	}

	identity := "weird/../name with spaces"
	if err := s.Append(identity, Turn{User: "hi", Agent: "yo"}); err != nil {
		t.Fatalf("Append() error = %v", err)
	}

	// The file must live directly inside the store dir.
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Fatalf("got %d entries in store dir, want 1", len(entries))
	}
	if filepath.Dir(filepath.Join(dir, entries[0].Name())) != dir {
		t.Error("history file escaped the store directory")
	}

	turns, err := s.Load(identity)
	if err != nil || len(turns) != 1 {
		t.Errorf("Load() = %v, %v", turns, err)
	}
}

func TestWindow(t *testing.T) {
	turns := []Turn{{User: "1"}, {User: "2"}, {User: "3"}}

	if got := Window(turns, 0); len(got) != 3 {
		t.Errorf("Window(0) len = %d, want all", len(got))
	}
	if got := Window(turns, 5); len(got) != 3 {
		t.Errorf("Window(5) len = %d, want all", len(got))
	}
	got := Window(turns, 2)
	if len(got) != 2 || got[0].User != "2" {
		t.Errorf("Window(2) = %v, want last two", got)
	}
}
