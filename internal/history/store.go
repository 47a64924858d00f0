// Package history persists per-user conversation transcripts as JSON
// files, one file per identity.
package history

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"sync"
)

// Turn is one completed exchange: what the user said and what the
// agent replied. Turns are written once, at turn completion, and never
// mutated afterward.
type Turn struct {
	User  string `json:"user"`
	Agent string `json:"agent"`
}

// Store reads and writes per-identity transcripts. Load-modify-save
// cycles for the same identity are serialized with a per-identity
// lock; concurrent turns from the same user cannot silently drop each
// other's writes. Different identities don't contend.
type Store struct {
	dir string

	mu    sync.Mutex // guards locks
	locks map[string]*sync.Mutex
}

// NewStore creates a history store rooted at dir, creating it if
// needed.
func NewStore(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create history dir: %w", err)
	}
	return &Store{
		dir:   dir,
		locks: make(map[string]*sync.Mutex),
	}, nil
}

// path returns the transcript file for an identity. Identities are
// free text, so the filename component is escaped.
func (s *Store) path(identity string) string {
	return filepath.Join(s.dir, "chat_history_"+url.PathEscape(identity)+".json")
}

func (s *Store) lock(identity string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.locks[identity]
	if !ok {
		l = &sync.Mutex{}
		s.locks[identity] = l
	}
	return l
}

// Load returns the full transcript for an identity, oldest first. A
// missing file is an empty transcript, never an error.
func (s *Store) Load(identity string) ([]Turn, error) {
	l := s.lock(identity)
	l.Lock()
	defer l.Unlock()
	return s.load(identity)
}

func (s *Store) load(identity string) ([]Turn, error) {
	data, err := os.ReadFile(s.path(identity))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read history for %q: %w", identity, err)
	}

	var turns []Turn
	if err := json.Unmarshal(data, &turns); err != nil {
		return nil, fmt.Errorf("parse history for %q: %w", identity, err)
	}
	return turns, nil
}

// Save replaces the full transcript for an identity. The write goes
// through a temp file and rename so a crash never leaves a truncated
// transcript behind.
func (s *Store) Save(identity string, turns []Turn) error {
	l := s.lock(identity)
	l.Lock()
	defer l.Unlock()
	return s.save(identity, turns)
}

func (s *Store) save(identity string, turns []Turn) error {
	if turns == nil {
		turns = []Turn{}
	}
	data, err := json.MarshalIndent(turns, "", "  ")
	if err != nil {
		return fmt.Errorf("encode history for %q: %w", identity, err)
	}

	path := s.path(identity)
	tmp, err := os.CreateTemp(s.dir, ".history-*")
	if err != nil {
		return fmt.Errorf("create temp history file: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("write history for %q: %w", identity, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("close history for %q: %w", identity, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("replace history for %q: %w", identity, err)
	}
	return nil
}

// Append adds one completed turn to an identity's transcript. The
// read-append-write cycle holds the identity's lock throughout.
func (s *Store) Append(identity string, turn Turn) error {
	l := s.lock(identity)
	l.Lock()
	defer l.Unlock()

	turns, err := s.load(identity)
	if err != nil {
		return err
	}
	return s.save(identity, append(turns, turn))
}

// Window returns the most recent n turns, or all of them when n <= 0
// or the transcript is shorter.
func Window(turns []Turn, n int) []Turn {
	if n <= 0 || len(turns) <= n {
		return turns
	}
	return turns[len(turns)-n:]
}
