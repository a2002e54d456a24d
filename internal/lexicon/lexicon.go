// Package lexicon is the single home of every word list used by normalisation,
// signal detection and the fallback heuristic.
package lexicon

import (
	"strings"

	"github.com/cloudflare/ahocorasick"
)

// StopWords are dropped by the normalizer. Training and inference both read
// this set; it must not be copied elsewhere.
var StopWords = map[string]struct{}{}

var stopWordList = []string{
	"the", "a", "an", "and", "or", "but", "in", "on", "at", "to", "for", "of", "with",
	"by", "from", "is", "are", "was", "were", "be", "been", "have", "has", "had", "do",
	"does", "did", "will", "would", "could", "should", "this", "that", "these", "those",
	"it", "its", "i", "me", "my", "we", "our", "you", "your", "he", "him", "his", "she",
	"her", "they", "them", "their", "what", "which", "who", "when", "where", "why",
	"how", "all", "each", "also", "said", "says", "according", "told", "report",
	"news", "today", "new", "one", "two", "three",
}

// Clickbait phrases, in priority order.
var Clickbait = []string{
	"shocking", "exposed", "viral", "breaking", "secret",
	"hidden", "suppressed", "must share", "forward this",
	"government hiding", "media hiding", "they don't want",
	"whatsapp forward", "share before delete",
}

// Conspiracy phrases, in priority order.
var Conspiracy = []string{
	"illuminati", "new world order", "deep state", "microchip",
	"population control", "cover up", "false flag", "crisis actor",
}

// Sensational words drive the degraded heuristic used when no trained model
// is loaded. It overlaps Clickbait on purpose but is tuned for recall.
var Sensational = []string{
	"shocking", "exposed", "viral", "breaking", "secret", "hidden",
	"suppressed", "forward", "share before", "government hiding",
}

func init() {
	for _, w := range stopWordList {
		StopWords[w] = struct{}{}
	}
}

// IsStopWord reports whether tok is in StopWords.
func IsStopWord(tok string) bool {
	_, ok := StopWords[tok]
	return ok
}

// Matcher finds lexicon phrases in text, case-insensitively.
// It is safe for concurrent use.
type Matcher struct {
	phrases []string
	ac      *ahocorasick.Matcher
}

// NewMatcher builds a matcher over phrases. Earlier phrases win in First.
func NewMatcher(phrases []string) *Matcher {
	lower := make([]string, len(phrases))
	for i, p := range phrases {
		lower[i] = strings.ToLower(p)
	}
	return &Matcher{phrases: lower, ac: ahocorasick.NewStringMatcher(lower)}
}

// First returns the phrase with the lowest list position that occurs in text.
func (m *Matcher) First(text string) (string, bool) {
	if text == "" || len(m.phrases) == 0 {
		return "", false
	}
	hits := m.ac.MatchThreadSafe([]byte(strings.ToLower(text)))
	if len(hits) == 0 {
		return "", false
	}
	best := hits[0]
	for _, h := range hits[1:] {
		if h < best {
			best = h
		}
	}
	return m.phrases[best], true
}

// Any reports whether any phrase occurs in text.
func (m *Matcher) Any(text string) bool {
	_, ok := m.First(text)
	return ok
}

var (
	clickbaitMatcher   = NewMatcher(Clickbait)
	conspiracyMatcher  = NewMatcher(Conspiracy)
	sensationalMatcher = NewMatcher(Sensational)
)

// ClickbaitMatcher returns the shared matcher over Clickbait.
func ClickbaitMatcher() *Matcher { return clickbaitMatcher }

// ConspiracyMatcher returns the shared matcher over Conspiracy.
func ConspiracyMatcher() *Matcher { return conspiracyMatcher }

// SensationalMatcher returns the shared matcher over Sensational.
func SensationalMatcher() *Matcher { return sensationalMatcher }
