// Package analytics keeps an append-only CSV log of analyzed messages
// and computes batch summaries over it.
package analytics

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/revanthk/concierge/internal/sentiment"
)

// header is the fixed CSV column layout. Changing it breaks every
// existing log file, so don't.
var header = []string{"timestamp", "session_id", "user_name", "message", "sentiment", "duration_sec"}

// Event is one analyzed message. Rows are written once and never
// updated or deleted; the log is the single source of truth for
// derived summaries.
type Event struct {
	Timestamp   time.Time
	SessionID   string
	User        string
	Message     string
	Sentiment   sentiment.Label
	DurationSec int
}

// Log is an append-only CSV event log. Each append is a single Write
// of one complete row, so concurrent writers interleave at row
// granularity and never corrupt each other.
type Log struct {
	path string
	mu   sync.Mutex
}

// Open creates or reopens an analytics log at path, writing the column
// header when the file is new.
func Open(path string) (*Log, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create analytics dir: %w", err)
	}

	l := &Log{path: path}

	info, err := os.Stat(path)
	if err == nil && info.Size() > 0 {
		return l, nil
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("create analytics log: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(header); err != nil {
		return nil, fmt.Errorf("write analytics header: %w", err)
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("flush analytics header: %w", err)
	}
	return l, nil
}

// Append adds one event row to the log.
func (l *Log) Append(e Event) error {
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now()
	}

	// Encode the full row up front so the file write is one syscall.
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	record := []string{
		e.Timestamp.Format(time.RFC3339),
		e.SessionID,
		e.User,
		e.Message,
		string(e.Sentiment),
		strconv.Itoa(e.DurationSec),
	}
	if err := w.Write(record); err != nil {
		return fmt.Errorf("encode analytics row: %w", err)
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("encode analytics row: %w", err)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	f, err := os.OpenFile(l.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open analytics log: %w", err)
	}
	defer f.Close()

	if _, err := f.Write(buf.Bytes()); err != nil {
		return fmt.Errorf("append analytics row: %w", err)
	}
	return nil
}

// UserCount pairs a user with their message count.
type UserCount struct {
	Name     string `json:"name"`
	Messages int    `json:"messages"`
}

// WordCount pairs a word with its occurrence count.
type WordCount struct {
	Word  string `json:"word"`
	Count int    `json:"count"`
}

// Summary is the batch aggregation over the full log. It is computed
// fresh on every request and held in no persistent state.
type Summary struct {
	TotalSessions    int         `json:"total_sessions"`
	TotalMessages    int         `json:"total_messages"`
	MostActiveUsers  []UserCount `json:"most_active_users"`
	CommonWords      []WordCount `json:"common_words"`
	AvgSessionLength float64     `json:"avg_session_length"`
}

const (
	topUsers   = 5
	topWords   = 10
	minWordLen = 4
)

// Summarize reads the whole log and derives session count, message
// count, the most active users, the most frequent words, and the mean
// session length (mean over sessions of each session's longest
// recorded duration).
func (l *Log) Summarize() (*Summary, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	f, err := os.Open(l.path)
	if err != nil {
		return nil, fmt.Errorf("open analytics log: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = len(header)

	// Skip the header row.
	if _, err := r.Read(); err == io.EOF {
		return &Summary{}, nil
	} else if err != nil {
		return nil, fmt.Errorf("read analytics header: %w", err)
	}

	sum := &Summary{}
	userMessages := make(map[string]int)
	wordCounts := make(map[string]int)
	sessionMax := make(map[string]int)

	for {
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read analytics row: %w", err)
		}

		sessionID, user, message := record[1], record[2], record[3]
		duration, _ := strconv.Atoi(record[5])

		sum.TotalMessages++
		userMessages[user]++
		if max, seen := sessionMax[sessionID]; !seen || duration > max {
			sessionMax[sessionID] = duration
		}

		for _, word := range strings.Fields(strings.ToLower(message)) {
			if len([]rune(word)) >= minWordLen {
				wordCounts[word]++
			}
		}
	}

	sum.TotalSessions = len(sessionMax)
	sum.MostActiveUsers = topUserCounts(userMessages, topUsers)
	sum.CommonWords = topWordCounts(wordCounts, topWords)

	if len(sessionMax) > 0 {
		total := 0
		for _, max := range sessionMax {
			total += max
		}
		mean := float64(total) / float64(len(sessionMax))
		sum.AvgSessionLength = math.Round(mean*100) / 100
	}

	return sum, nil
}

// topUserCounts ranks users by message count, ties broken
// alphabetically for stable output.
func topUserCounts(counts map[string]int, n int) []UserCount {
	ranked := make([]UserCount, 0, len(counts))
	for name, c := range counts {
		ranked = append(ranked, UserCount{Name: name, Messages: c})
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].Messages != ranked[j].Messages {
			return ranked[i].Messages > ranked[j].Messages
		}
		return ranked[i].Name < ranked[j].Name
	})
	if len(ranked) > n {
		ranked = ranked[:n]
	}
	return ranked
}

func topWordCounts(counts map[string]int, n int) []WordCount {
	ranked := make([]WordCount, 0, len(counts))
	for word, c := range counts {
		ranked = append(ranked, WordCount{Word: word, Count: c})
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].Count != ranked[j].Count {
			return ranked[i].Count > ranked[j].Count
		}
		return ranked[i].Word < ranked[j].Word
	})
	if len(ranked) > n {
		ranked = ranked[:n]
	}
	return ranked
}
