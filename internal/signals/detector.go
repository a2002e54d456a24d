// Package signals flags stylistic markers of fake news in raw text. It never
// consults the classifier and keeps no state.
package signals

import (
	"fmt"
	"strings"
	"unicode"

	"truthlens/internal/lexicon"
)

// Thresholds for the stylistic checks.
const (
	CapsRatioThreshold   = 0.15
	MaxExclamations      = 2
	MaxQuestions         = 3
	MinAllCapsWordLen    = 4
	MinAllCapsWords      = 2
	MaxAllCapsWordsShown = 3
)

// Kind names a detector, used for metrics labels.
type Kind string

const (
	KindCapitalization Kind = "capitalization"
	KindClickbait      Kind = "clickbait"
	KindExclamation    Kind = "exclamation"
	KindQuestion       Kind = "question"
	KindAllCaps        Kind = "all_caps"
	KindConspiracy     Kind = "conspiracy"
)

// Signal is one fired detector with its human-readable message.
type Signal struct {
	Kind    Kind
	Message string
}

// Detect returns the messages of every detector that fires on raw, in the
// fixed order capitalization, clickbait, exclamation, question, all-caps,
// conspiracy.
func Detect(raw string) []string {
	found := Analyze(raw)
	out := make([]string, len(found))
	for i, s := range found {
		out[i] = s.Message
	}
	return out
}

// Analyze is Detect with detector kinds attached.
func Analyze(raw string) []Signal {
	out := []Signal{}

	if CapsRatio(raw) > CapsRatioThreshold {
		out = append(out, Signal{KindCapitalization, "Excessive capitalization detected"})
	}
	if p, ok := lexicon.ClickbaitMatcher().First(raw); ok {
		out = append(out, Signal{KindClickbait, fmt.Sprintf("Clickbait phrase: '%s'", p)})
	}
	if strings.Count(raw, "!") > MaxExclamations {
		out = append(out, Signal{KindExclamation, "Multiple exclamation marks detected"})
	}
	if strings.Count(raw, "?") > MaxQuestions {
		out = append(out, Signal{KindQuestion, "Excessive question marks detected"})
	}
	if words := AllCapsWords(raw); len(words) >= MinAllCapsWords {
		if len(words) > MaxAllCapsWordsShown {
			words = words[:MaxAllCapsWordsShown]
		}
		out = append(out, Signal{KindAllCaps, "All-caps words detected: " + strings.Join(words, ", ")})
	}
	if p, ok := lexicon.ConspiracyMatcher().First(raw); ok {
		out = append(out, Signal{KindConspiracy, fmt.Sprintf("Conspiracy keyword: '%s'", p)})
	}
	return out
}

// CapsRatio is the share of uppercase letters among all characters of s.
func CapsRatio(s string) float64 {
	total, upper := 0, 0
	for _, r := range s {
		total++
		if unicode.IsUpper(r) {
			upper++
		}
	}
	if total == 0 {
		total = 1
	}
	return float64(upper) / float64(total)
}

// AllCapsWords returns whitespace tokens longer than three characters whose
// cased letters are all uppercase, in text order.
func AllCapsWords(s string) []string {
	var out []string
	for _, w := range strings.Fields(s) {
		if len([]rune(w)) >= MinAllCapsWordLen && isUpperWord(w) {
			out = append(out, w)
		}
	}
	return out
}

func isUpperWord(w string) bool {
	cased := false
	for _, r := range w {
		switch {
		case unicode.IsLower(r), unicode.IsTitle(r):
			return false
		case unicode.IsUpper(r):
			cased = true
		}
	}
	return cased
}

// KindOf recovers the detector kind from a message produced by Detect.
func KindOf(message string) (Kind, bool) {
	switch {
	case message == "Excessive capitalization detected":
		return KindCapitalization, true
	case strings.HasPrefix(message, "Clickbait phrase: "):
		return KindClickbait, true
	case message == "Multiple exclamation marks detected":
		return KindExclamation, true
	case message == "Excessive question marks detected":
		return KindQuestion, true
	case strings.HasPrefix(message, "All-caps words detected: "):
		return KindAllCaps, true
	case strings.HasPrefix(message, "Conspiracy keyword: "):
		return KindConspiracy, true
	}
	return "", false
}
