// Package interest tags messages with coarse interest categories using
// ordered keyword rules.
package interest

import "strings"

// Rule maps a set of keywords to a category. A rule matches when any
// of its keywords appears as a substring of the lower-cased message.
type Rule struct {
	Keywords []string
	Category string
}

// Classifier evaluates rules in declaration order; the first matching
// rule wins. A message matches at most one category.
type Classifier struct {
	rules []Rule
}

// DefaultRules is the stock rule table. Order matters: "resume" is
// checked before "career" so a message mentioning both tags as Resume.
func DefaultRules() []Rule {
	return []Rule{
		{Keywords: []string{"ai", "agent"}, Category: "AI/Agents"},
		{Keywords: []string{"resume"}, Category: "Resume"},
		{Keywords: []string{"career"}, Category: "Career"},
		{Keywords: []string{"job"}, Category: "Job Opportunities"},
		{Keywords: []string{"learning", "study"}, Category: "Learning"},
	}
}

// New creates a classifier from an ordered rule table. Passing no
// rules yields the default table.
func New(rules []Rule) *Classifier {
	if len(rules) == 0 {
		rules = DefaultRules()
	}
	return &Classifier{rules: rules}
}

// Classify returns the category of the first rule whose keyword occurs
// in the message, or "" when nothing matches.
func (c *Classifier) Classify(message string) string {
	lower := strings.ToLower(message)
	for _, rule := range c.rules {
		for _, kw := range rule.Keywords {
			if strings.Contains(lower, kw) {
				return rule.Category
			}
		}
	}
	return ""
}
