// Package persona loads the identity the agent speaks as: a display
// name, a short summary, and a longer background document. The
// background is authored in markdown; it is rendered to HTML and then
// reduced to plain text so the prompt carries no markup.
package persona

import (
	"bytes"
	"fmt"
	"os"
	"strings"

	"github.com/yuin/goldmark"
)

// Persona is the loaded identity.
type Persona struct {
	// Name is the display name the agent represents.
	Name string

	// Summary is a short free-text self description.
	Summary string

	// Background is the plain-text rendering of the background document.
	Background string
}

// Load reads the persona files from disk. summaryFile is plain text.
// backgroundFile is markdown and may be empty ("") to skip.
func Load(name, summaryFile, backgroundFile string) (*Persona, error) {
	if name == "" {
		return nil, fmt.Errorf("persona name is required")
	}

	p := &Persona{Name: name}

	if summaryFile != "" {
		data, err := os.ReadFile(summaryFile)
		if err != nil {
			return nil, fmt.Errorf("read summary %s: %w", summaryFile, err)
		}
		p.Summary = strings.TrimSpace(string(data))
	}

	if backgroundFile != "" {
		data, err := os.ReadFile(backgroundFile)
		if err != nil {
			return nil, fmt.Errorf("read background %s: %w", backgroundFile, err)
		}
		text, err := renderMarkdown(string(data))
		if err != nil {
			return nil, fmt.Errorf("render background %s: %w", backgroundFile, err)
		}
		p.Background = text
	}

	return p, nil
}

// renderMarkdown converts markdown to plain text by rendering it to
// HTML and extracting the visible text.
func renderMarkdown(md string) (string, error) {
	var buf bytes.Buffer
	if err := goldmark.Convert([]byte(md), &buf); err != nil {
		return "", fmt.Errorf("convert markdown: %w", err)
	}
	return extractText(buf.String()), nil
}

// SystemPrompt builds the system message for a conversation. userName
// may be empty when the user has not introduced themselves yet.
func (p *Persona) SystemPrompt(userName string) string {
	var b strings.Builder

	fmt.Fprintf(&b, "You are acting as %s. You are answering questions on %s's website, "+
		"particularly questions related to %s's career, background, skills and experience. "+
		"Your responsibility is to represent %s for interactions on the website as faithfully as possible. "+
		"If you don't know the answer, use the record_unknown_question tool. "+
		"If the user shares an email, record it using record_user_details. ",
		p.Name, p.Name, p.Name, p.Name)

	fmt.Fprintf(&b, "\n\n## Summary:\n%s\n\n## Background:\n%s\n\n", p.Summary, p.Background)

	if userName != "" {
		fmt.Fprintf(&b, "The user you are chatting with is named %s.\n", userName)
	}

	fmt.Fprintf(&b, "Always stay professional and engaging as %s.", p.Name)

	return b.String()
}
