package interest

import "testing"

func TestClassifyDefaultRules(t *testing.T) {
	c := New(nil)

	tests := []struct {
		message string
		want    string
	}{
		{"Tell me about AI", "AI/Agents"},
		{"how do agents work?", "AI/Agents"},
		{"Can you review my resume?", "Resume"},
		{"career advice please", "Career"},
		{"any job openings?", "Job Opportunities"},
		{"what are you studying?", "Learning"},
		{"I enjoy learning Go", "Learning"},
		{"hello there", ""},
		{"", ""},
	}

	for _, tt := range tests {
		if got := c.Classify(tt.message); got != tt.want {
			t.Errorf("Classify(%q) = %q, want %q", tt.message, got, tt.want)
		}
	}
}

func TestClassifyFirstMatchWins(t *testing.T) {
	c := New(nil)

	// Both "resume" and "career" match; the resume rule is earlier.
	if got := c.Classify("I want to talk about resume and career"); got != "Resume" {
		t.Errorf("Classify() = %q, want %q", got, "Resume")
	}
}

func TestClassifyIsDeterministic(t *testing.T) {
	c := New(nil)
	msg := "thinking about a career change"

	first := c.Classify(msg)
	for i := 0; i < 10; i++ {
		if got := c.Classify(msg); got != first {
			t.Fatalf("Classify() returned %q after %q for the same message", got, first)
		}
	}
}

func TestClassifyCustomRules(t *testing.T) {
	c := New([]Rule{
		{Keywords: []string{"golang", "go "}, Category: "Go"},
		{Keywords: []string{"python"}, Category: "Python"},
	})

	if got := c.Classify("is Golang fast?"); got != "Go" {
		t.Errorf("Classify() = %q, want %q", got, "Go")
	}
	if got := c.Classify("resume help"); got != "" {
		t.Errorf("Classify() = %q, want no category with custom rules", got)
	}
}
