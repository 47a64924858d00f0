// Package sentiment classifies message text into coarse polarity
// labels via an external text-classification endpoint.
package sentiment

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Label is a coarse message polarity.
type Label string

const (
	Positive Label = "POSITIVE"
	Negative Label = "NEGATIVE"
	Neutral  Label = "NEUTRAL"
)

// Score maps a label to its contribution to a sentiment trend.
func (l Label) Score() int {
	switch l {
	case Positive:
		return 1
	case Negative:
		return -1
	default:
		return 0
	}
}

// maxInputRunes bounds how much of a message is sent for analysis.
// Classification models truncate internally anyway; sending more just
// wastes bandwidth.
const maxInputRunes = 500

// Classifier labels a text snippet. Implementations must be safe for
// concurrent use.
type Classifier interface {
	Classify(ctx context.Context, text string) (Label, error)
}

// Static is a Classifier that always returns a fixed label. Used when
// no classification endpoint is configured, and in tests.
type Static struct {
	Label Label
}

// Classify returns the fixed label.
func (s Static) Classify(ctx context.Context, text string) (Label, error) {
	return s.Label, nil
}

// HTTPClassifier calls a hosted text-classification model over HTTP.
// The endpoint is expected to accept {"inputs": "<text>"} and respond
// with the conventional nested candidate list:
//
//	[[{"label": "POSITIVE", "score": 0.98}, ...]]
type HTTPClassifier struct {
	url        string
	token      string
	httpClient *http.Client
}

// NewHTTPClassifier creates a classifier for the given endpoint.
// Token is sent as a bearer credential when non-empty.
func NewHTTPClassifier(url, token string) *HTTPClassifier {
	return &HTTPClassifier{
		url:   url,
		token: token,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

type candidate struct {
	Label string  `json:"label"`
	Score float64 `json:"score"`
}

// Classify sends the leading portion of text for analysis and returns
// the highest-scoring label, normalized to POSITIVE/NEGATIVE/NEUTRAL.
func (c *HTTPClassifier) Classify(ctx context.Context, text string) (Label, error) {
	payload, err := json.Marshal(map[string]string{"inputs": truncate(text, maxInputRunes)})
	if err != nil {
		return Neutral, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.url, bytes.NewReader(payload))
	if err != nil {
		return Neutral, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Neutral, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return Neutral, fmt.Errorf("API error %d: %s", resp.StatusCode, string(body))
	}

	var results [][]candidate
	if err := json.NewDecoder(resp.Body).Decode(&results); err != nil {
		return Neutral, fmt.Errorf("decode response: %w", err)
	}
	if len(results) == 0 || len(results[0]) == 0 {
		return Neutral, fmt.Errorf("empty classification result")
	}

	best := results[0][0]
	for _, cand := range results[0][1:] {
		if cand.Score > best.Score {
			best = cand
		}
	}

	return Normalize(best.Label), nil
}

// Normalize maps an arbitrary model label to one of the three coarse
// labels. Unrecognized labels are NEUTRAL.
func Normalize(s string) Label {
	switch Label(s) {
	case Positive, Negative, Neutral:
		return Label(s)
	}
	return Neutral
}

func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
