// Package optout recognizes do-not-call requests in caller utterances.
package optout

import (
	"strings"
)

// DefaultPhrases is the curated do-not-call phrase list. Order matters: the
// first phrase found in an utterance is the one reported.
var DefaultPhrases = []string{
	"stop calling",
	"do not call",
	"don't call",
	"dont call",
	"quit calling",
	"never call",
	"remove me from the list",
	"remove me from your list",
	"remove me from your call list",
	"take me off your list",
	"take me off the list",
	"take me off your call list",
	"remove my number",
	"take my number off",
	"unsubscribe",
	"stop contacting me",
	"lose my number",
}

// Detector matches utterances against a fixed phrase list. It holds no
// mutable state and is safe for concurrent use.
type Detector struct {
	phrases []string
}

// NewDetector builds a detector over DefaultPhrases followed by any extra
// phrases. Extras are lower-cased and duplicates dropped.
func NewDetector(extra ...string) *Detector {
	seen := make(map[string]struct{}, len(DefaultPhrases)+len(extra))
	phrases := make([]string, 0, len(DefaultPhrases)+len(extra))
	for _, p := range append(append([]string{}, DefaultPhrases...), extra...) {
		p = normalize(p)
		if p == "" {
			continue
		}
		if _, dup := seen[p]; dup {
			continue
		}
		seen[p] = struct{}{}
		phrases = append(phrases, p)
	}
	return &Detector{phrases: phrases}
}

// Detect returns the first listed phrase contained in the utterance
func (d *Detector) Detect(utterance string) (string, bool) {
	text := normalize(utterance)
	if text == "" {
		return "", false
	}
	for _, p := range d.phrases {
		if strings.Contains(text, p) {
			return p, true
		}
	}
	return "", false
}

// Phrases returns a copy of the active phrase list
func (d *Detector) Phrases() []string {
	out := make([]string, len(d.phrases))
	copy(out, d.phrases)
	return out
}

// normalize lower-cases, folds typographic apostrophes and collapses runs of
// whitespace so transcripts with odd spacing still match.
func normalize(s string) string {
	s = strings.ToLower(strings.ReplaceAll(s, "’", "'"))
	return strings.Join(strings.Fields(s), " ")
}
