// Package profile accumulates per-user behavioral state: contact
// details, interest tags, and a sentiment history reduced to a mood
// trend.
package profile

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/revanthk/concierge/internal/sentiment"
)

// Profile is one user's durable record. Interests are distinct and
// ordered by first detection; Sentiments is append-only with one label
// per analyzed message.
type Profile struct {
	Email      string            `json:"email"`
	Joined     time.Time         `json:"joined"`
	LastChat   time.Time         `json:"last_chat"`
	Interests  []string          `json:"interests"`
	Sentiments []sentiment.Label `json:"sentiments"`
}

// Trend reduces the sentiment history to a single label: the sign of
// the summed per-label scores. An empty history, or a tie, is NEUTRAL.
func (p *Profile) Trend() sentiment.Label {
	score := 0
	for _, label := range p.Sentiments {
		score += label.Score()
	}
	switch {
	case score > 0:
		return sentiment.Positive
	case score < 0:
		return sentiment.Negative
	default:
		return sentiment.Neutral
	}
}

// Store persists all profiles in a single shared JSON table keyed by
// identity. The read-modify-write cycle is serialized by one mutex;
// profile updates are rare enough (once per turn) that finer locking
// isn't worth it.
type Store struct {
	path string
	mu   sync.Mutex
	now  func() time.Time
}

// NewStore creates a profile store backed by the given file, creating
// an empty table if the file doesn't exist.
func NewStore(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create profile dir: %w", err)
	}

	s := &Store{path: path, now: time.Now}

	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		if err := s.write(map[string]*Profile{}); err != nil {
			return nil, err
		}
	} else if err != nil {
		return nil, fmt.Errorf("stat profile table: %w", err)
	}

	return s, nil
}

func (s *Store) read() (map[string]*Profile, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("read profile table: %w", err)
	}
	profiles := make(map[string]*Profile)
	if err := json.Unmarshal(data, &profiles); err != nil {
		return nil, fmt.Errorf("parse profile table: %w", err)
	}
	return profiles, nil
}

func (s *Store) write(profiles map[string]*Profile) error {
	data, err := json.MarshalIndent(profiles, "", "  ")
	if err != nil {
		return fmt.Errorf("encode profile table: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".users-*")
	if err != nil {
		return fmt.Errorf("create temp profile table: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("write profile table: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("close profile table: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("replace profile table: %w", err)
	}
	return nil
}

// Get returns a copy of one profile. ok is false for unknown users.
func (s *Store) Get(identity string) (p Profile, ok bool, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	profiles, err := s.read()
	if err != nil {
		return Profile{}, false, err
	}
	stored, ok := profiles[identity]
	if !ok {
		return Profile{}, false, nil
	}
	return *stored, true, nil
}

// Update applies one completed turn to an identity's profile: refresh
// the last-activity timestamp, append the message's sentiment label
// (when the message was analyzed, i.e. label is non-empty), and add
// the detected interest unless already present. Unknown identities get
// a fresh profile with the join timestamp set to now.
func (s *Store) Update(identity string, label sentiment.Label, interest string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	profiles, err := s.read()
	if err != nil {
		return err
	}

	now := s.now()
	p, ok := profiles[identity]
	if !ok {
		p = &Profile{
			Email:  "unknown",
			Joined: now,
		}
		profiles[identity] = p
	}

	p.LastChat = now

	if label != "" {
		p.Sentiments = append(p.Sentiments, label)
	}

	if interest != "" && !contains(p.Interests, interest) {
		p.Interests = append(p.Interests, interest)
	}

	return s.write(profiles)
}

// SetEmail records a contact address for an identity, creating the
// profile if needed.
func (s *Store) SetEmail(identity, email string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	profiles, err := s.read()
	if err != nil {
		return err
	}

	p, ok := profiles[identity]
	if !ok {
		p = &Profile{Joined: s.now()}
		profiles[identity] = p
	}
	p.Email = email

	return s.write(profiles)
}

// Summary renders a one-line description of a user: last activity,
// interests, and mood trend. Returns ok=false for unknown users.
func (s *Store) Summary(identity string) (string, bool, error) {
	p, ok, err := s.Get(identity)
	if err != nil || !ok {
		return "", ok, err
	}

	interests := "none"
	if len(p.Interests) > 0 {
		interests = strings.Join(p.Interests, ", ")
	}

	return fmt.Sprintf("%s last chatted on %s, main interests: %s, average mood: %s",
		identity, p.LastChat.Format(time.RFC3339), interests, p.Trend()), true, nil
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
